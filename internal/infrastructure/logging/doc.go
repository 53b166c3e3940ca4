// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Core packages (membrane, realm, scenario) take a plain *zap.Logger; the
// server hands each one a named child via Component.
//
// Example Usage:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Server starting", zap.String("port", "8000"))
//	runner, _ := scenario.NewRunner(catalog, runCfg, scenario.WithLogger(logger.Component("runner")))
package logging
