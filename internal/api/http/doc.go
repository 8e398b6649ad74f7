// Package http provides the operational HTTP endpoints of the
// remote-display server.
//
// Endpoints:
//   - /: service description
//   - /health: liveness of the desktop event loop
//   - /status: desktop layout, connected viewers and traffic counters
//   - /metrics: Prometheus exposition
//
// Viewers connect on /connect, served by the ws package.
//
// Example Usage:
//
//	handlers := http.NewHandlers(host, metrics, version)
//	router.GET("/health", handlers.Health)
//	router.GET("/metrics", handlers.Metrics)
package http
