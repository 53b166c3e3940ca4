// Package scenario runs script scenarios across a membrane and tracks the
// lifetime of the foreign side.
//
// A scenario pairs a foreign script, run in a fresh realm standing in for
// an iframe, with a host script run in the long-lived host realm. The
// runner joins the two with a new membrane per run, records the host's
// result and console output, and reports when the foreign realm and its
// global object are garbage collected after the run is detached.
//
// Example:
//
//	catalog, _ := scenario.Load(cfg.Scenarios.Dir)
//	runner, _ := scenario.NewRunner(catalog, scenario.DefaultConfig())
//	run, _ := runner.Start(ctx, "object-equality")
//	runner.Detach(run.ID)
//	runner.CollectGarbage()
package scenario
