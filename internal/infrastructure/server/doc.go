// Package server wires the control API.
//
// Middleware runs in this order: recovery, tracing, request metrics, CORS
// and the optional per-IP rate limit.
//
// Routes:
//   - GET  /healthz
//   - GET  /api/status, /api/metrics
//   - GET  /api/sessions, POST /api/sessions/:id/stop, GET /api/sessions/:id/output
//   - GET  /api/layout, PUT /api/layout
//   - GET  /metrics (Prometheus)
//   - GET  /ws/events (WebSocket)
package server
