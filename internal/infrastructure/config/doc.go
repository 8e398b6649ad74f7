// Package config provides 12-factor configuration management for the
// remote-display server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: listen address, allowed CORS origins, viewer password hash
//   - Desktop: initial desktop size, frame rate, decoration theme and theme directory
//   - Session: viewer negotiation toggles and flow control
//   - Logging: Log level and output format
//   - RateLimit: Per-IP connection rate limiting
//
// Environment variables are prefixed with RDESK and the section name, for
// example RDESK_SERVER_PORT or RDESK_SESSION_DISPLAY_MODE. The bare names
// (PORT, DISPLAY_MODE) are accepted as a fallback.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s\n", cfg.Address())
package config
