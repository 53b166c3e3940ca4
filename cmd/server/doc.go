// Package main is the entry point for the membrane server.
//
// The server runs membrane scenarios: each run evaluates a foreign script in
// a fresh realm, joins it to a long-lived host realm through a membrane and
// reports whether identity, revocation and collection behaved as expected.
//
// The server provides:
//   - REST API for the scenario catalog and runs
//   - WebSocket stream of run events
//   - Prometheus metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -scenarios ./scenarios
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
