// Package main is the entry point for the rdesk server.
//
// Configuration comes from RDESK_* environment variables; command-line
// flags override the variables they name.
//
// Usage:
//
//	# Serve on :3389 with the default 1280x800 desktop
//	./rdesk
//
//	# Development logging, larger desktop, no test pattern
//	./rdesk --dev --width 1920 --height 1080 --demo=false
//
//	# Check a theme file before deploying it
//	./rdesk theme check ./themes/solarized.yaml
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
