package http

import (
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
)

// HandlerMetrics records the duration of mutating API operations
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing op. The returned func records the outcome.
func (hm *HandlerMetrics) Track(op string) func(err error) {
	timer := monitoring.NewTimer(hm.metrics, "api", op)
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		timer.Stop(status)
	}
}
