// Package config provides 12-factor configuration for the membrane server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Realm: Script timeout, call stack depth, console capture
//   - Scenarios: Extra catalog directory and run table size
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - REALM_TIMEOUT, REALM_MAX_CALL_STACK, REALM_CONSOLE
//   - SCENARIO_DIR, SCENARIO_MAX_RUNS
package config
