// Package http provides the handlers of the control API.
//
// Handlers drive a Backend, normally the host. Mutating operations are
// timed through HandlerMetrics.
//
// Example Usage:
//
//	handlers := http.NewHandlers(h, metrics, logger)
//	router.GET("/api/status", handlers.Status)
//	router.PUT("/api/layout", handlers.PutLayout)
package http
