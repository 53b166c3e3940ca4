// Package server wires the membrane service together.
//
// Startup order:
//  1. Logger from the logging section of the config
//  2. Prometheus metrics and the request tracer
//  3. Scenario catalog (built-ins plus SCENARIO_DIR)
//  4. Runner with its host realm, observed by the metrics
//  5. Gin router: recovery, tracing, metrics, CORS, rate limiting
//  6. JSON API routes and the /stream WebSocket
//
// Close shuts down the listener, the runner and the tracer, then syncs the
// logger.
package server
