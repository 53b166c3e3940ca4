// Package realm hosts isolated script environments on goja runtimes and
// bridges their objects to the membrane object model.
//
// Objects created by a realm's scripts leave it as membrane.Object values.
// A membrane.Object handed to a realm appears to its scripts as a Proxy
// whose traps call back into the Go object, so two realms joined by a
// membrane see each other's graphs through wrappers that preserve identity
// in both directions.
package realm
