package monitoring

import "time"

// Timer measures operation duration
type Timer struct {
	start     time.Time
	metrics   *Metrics
	subsystem string
	op        string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, subsystem, op string) *Timer {
	return &Timer{
		start:     time.Now(),
		metrics:   metrics,
		subsystem: subsystem,
		op:        op,
	}
}

// Stop stops the timer, records the duration and returns it
func (t *Timer) Stop(status string) time.Duration {
	d := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.OperationDuration.WithLabelValues(t.subsystem, t.op, status).Observe(d.Seconds())
	}
	return d
}
