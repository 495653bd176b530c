// Package middleware provides the Gin middleware of the control API.
//
//   - CORS: only local origins by default
//   - RateLimit: per-IP token bucket, idle clients are evicted
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
