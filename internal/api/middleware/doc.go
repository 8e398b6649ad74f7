// Package middleware provides the HTTP middleware for the remote-display server.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins,
//     including the WebSocket upgrade
//   - RateLimit: Per-IP token bucket limiting of viewer connection attempts
//   - ViewerAuth: bcrypt-checked viewer password on the connect route
//
// Rate Limiting:
//   - Per-IP tracking with idle client cleanup
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))
//	router.GET("/connect", middleware.RateLimit(middleware.DefaultRateLimitConfig()), ws.HandleConnection)
package middleware
