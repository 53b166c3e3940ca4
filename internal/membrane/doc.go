// Package membrane separates two object graphs with a revocable boundary.
//
// Every object crossing a membrane is replaced by a wrapper that forwards
// each operation to its target while wrapping whatever flows further across:
// arguments and receivers travel toward the target, results, property
// values, prototypes, descriptors and thrown values travel back. The same
// target seen from the same side always yields the same wrapper while that
// wrapper is reachable, and a wrapper crossing back yields its target.
//
// Revoke severs every wrapper at once. The membrane holds its wrappers and
// targets only weakly, so it never extends the lifetime of either graph,
// and a revoked wrapper that is still referenced no longer pins its target.
//
//	dry, revoke := membrane.Wrap(wetRoot)
//	v, err := dry.(membrane.Object).Get(membrane.Key("config"))
//	revoke()
//	_, err = dry.(membrane.Object).Get(membrane.Key("config")) // ErrRevoked
package membrane
