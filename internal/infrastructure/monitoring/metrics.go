package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Provisioning metrics
	ProvisionDuration *prometheus.HistogramVec
	ProvisionBytes    *prometheus.CounterVec
	ProvisionSkipped  *prometheus.CounterVec

	// Loader metrics
	LibrariesLoaded prometheus.Gauge
	LoadFailures    *prometheus.CounterVec

	// Runtime metrics
	SessionsActive prometheus.Gauge
	SessionsEnded  *prometheus.CounterVec

	// Surface metrics
	Swaps                *prometheus.CounterVec
	SurfaceBound         prometheus.Gauge
	ContextInvalidations prometheus.Counter
	UnsupportedCalls     *prometheus.CounterVec

	// Input metrics
	InputEvents  *prometheus.CounterVec
	InputDropped prometheus.Counter

	// Audio metrics
	AudioCalls    *prometheus.CounterVec
	AudioDegraded prometheus.Gauge

	// System metrics
	MemoryAvailable prometheus.Gauge
	Uptime          prometheus.Gauge

	// Control API metrics
	OperationDuration *prometheus.HistogramVec
	APIRequests       *prometheus.CounterVec
	APIDuration       *prometheus.HistogramVec
	WSConnections     prometheus.Gauge

	startTime time.Time

	// Snapshot for JSON status
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON status
type MetricsSnapshot struct {
	BundlesProvisioned int64   `json:"bundles_provisioned"`
	BundlesSkipped     int64   `json:"bundles_skipped"`
	LibrariesLoaded    int64   `json:"libraries_loaded"`
	SessionsStarted    int64   `json:"sessions_started"`
	SessionsCrashed    int64   `json:"sessions_crashed"`
	SwapsPresented     int64   `json:"swaps_presented"`
	SwapsBuffered      int64   `json:"swaps_buffered"`
	SwapsCoalesced     int64   `json:"swaps_coalesced"`
	InputEvents        int64   `json:"input_events"`
	InputDropped       int64   `json:"input_dropped"`
	AudioFailures      int64   `json:"audio_failures"`
	MemoryAvailableMB  uint64  `json:"memory_available_mb"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		ProvisionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zomdroid_provision_duration_seconds",
				Help:    "Bundle provisioning duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"bundle", "result"},
		),
		ProvisionBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_provision_bytes_total",
				Help: "Bytes written while extracting bundles",
			},
			[]string{"bundle"},
		),
		ProvisionSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_provision_skipped_total",
				Help: "Provision requests satisfied by an existing matching manifest",
			},
			[]string{"bundle"},
		),

		LibrariesLoaded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_libraries_loaded",
				Help: "Native libraries currently loaded",
			},
		),
		LoadFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_load_failures_total",
				Help: "Library load failures by reason",
			},
			[]string{"reason"},
		),

		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_sessions_active",
				Help: "Hosted runtime sessions in the running state",
			},
		),
		SessionsEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_sessions_ended_total",
				Help: "Hosted runtime sessions that ended, by outcome",
			},
			[]string{"outcome"},
		),

		Swaps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_surface_swaps_total",
				Help: "Swap requests by disposition",
			},
			[]string{"result"},
		),
		SurfaceBound: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_surface_bound",
				Help: "1 while a display surface is bound",
			},
		),
		ContextInvalidations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "zomdroid_context_invalidations_total",
				Help: "GPU context losses reported to the hosted application",
			},
		),
		UnsupportedCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_unsupported_calls_total",
				Help: "Windowing calls no-op'd because the bridge cannot translate them",
			},
			[]string{"call"},
		),

		InputEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_input_events_total",
				Help: "Translated input events enqueued, by type",
			},
			[]string{"type"},
		),
		InputDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "zomdroid_input_dropped_total",
				Help: "Input events dropped because the queue was full",
			},
		),

		AudioCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_audio_calls_total",
				Help: "Audio engine calls by operation and result",
			},
			[]string{"op", "result"},
		),
		AudioDegraded: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_audio_degraded",
				Help: "1 while audio runs as a silent no-op",
			},
		),

		MemoryAvailable: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_memory_available_bytes",
				Help: "MemAvailable reported by the kernel",
			},
		),
		Uptime: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_uptime_seconds",
				Help: "Bridge uptime in seconds",
			},
		),

		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zomdroid_operation_duration_seconds",
				Help:    "Duration of timed bridge operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"subsystem", "op", "status"},
		),
		APIRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zomdroid_api_requests_total",
				Help: "Control API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zomdroid_api_request_duration_seconds",
				Help:    "Control API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "zomdroid_ws_connections",
				Help: "Open event stream connections",
			},
		),
	}

	return m
}

// RecordProvision records one provisioning attempt
func (m *Metrics) RecordProvision(bundle string, skipped bool, bytes int64, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case skipped:
		result = "skipped"
		m.ProvisionSkipped.WithLabelValues(bundle).Inc()
	}
	m.ProvisionDuration.WithLabelValues(bundle, result).Observe(duration.Seconds())
	if bytes > 0 {
		m.ProvisionBytes.WithLabelValues(bundle).Add(float64(bytes))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		if skipped {
			m.snapshot.BundlesSkipped++
		} else {
			m.snapshot.BundlesProvisioned++
		}
	}
}

// SetLibrariesLoaded records the size of the loaded library set
func (m *Metrics) SetLibrariesLoaded(count int) {
	if m == nil {
		return
	}
	m.LibrariesLoaded.Set(float64(count))
	m.mu.Lock()
	m.snapshot.LibrariesLoaded = int64(count)
	m.mu.Unlock()
}

// RecordLoadFailure counts a failed load by reason
func (m *Metrics) RecordLoadFailure(reason string) {
	if m == nil {
		return
	}
	m.LoadFailures.WithLabelValues(reason).Inc()
}

// SessionStarted records a session entering the running state
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.SessionsStarted++
	m.mu.Unlock()
}

// SessionEnded records a session leaving the running state
func (m *Metrics) SessionEnded(outcome string) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsEnded.WithLabelValues(outcome).Inc()
	if outcome == "crashed" {
		m.mu.Lock()
		m.snapshot.SessionsCrashed++
		m.mu.Unlock()
	}
}

// RecordSwap records a swap request disposition: presented, buffered or coalesced
func (m *Metrics) RecordSwap(result string) {
	if m == nil {
		return
	}
	m.Swaps.WithLabelValues(result).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	switch result {
	case "presented":
		m.snapshot.SwapsPresented++
	case "buffered":
		m.snapshot.SwapsBuffered++
	case "coalesced":
		m.snapshot.SwapsCoalesced++
	}
}

// SetSurfaceBound records whether a display surface is bound
func (m *Metrics) SetSurfaceBound(bound bool) {
	if m == nil {
		return
	}
	if bound {
		m.SurfaceBound.Set(1)
	} else {
		m.SurfaceBound.Set(0)
	}
}

// IncContextInvalidations counts a GPU context loss
func (m *Metrics) IncContextInvalidations() {
	if m == nil {
		return
	}
	m.ContextInvalidations.Inc()
}

// RecordUnsupportedCall counts a no-op'd windowing call
func (m *Metrics) RecordUnsupportedCall(call string) {
	if m == nil {
		return
	}
	m.UnsupportedCalls.WithLabelValues(call).Inc()
}

// RecordInputEvent counts an enqueued input event
func (m *Metrics) RecordInputEvent(eventType string) {
	if m == nil {
		return
	}
	m.InputEvents.WithLabelValues(eventType).Inc()
	m.mu.Lock()
	m.snapshot.InputEvents++
	m.mu.Unlock()
}

// RecordInputDropped counts an event dropped on a full queue
func (m *Metrics) RecordInputDropped() {
	if m == nil {
		return
	}
	m.InputDropped.Inc()
	m.mu.Lock()
	m.snapshot.InputDropped++
	m.mu.Unlock()
}

// RecordAudioCall records an engine call outcome
func (m *Metrics) RecordAudioCall(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		m.mu.Lock()
		m.snapshot.AudioFailures++
		m.mu.Unlock()
	}
	m.AudioCalls.WithLabelValues(op, result).Inc()
}

// SetAudioDegraded records whether audio is running as a no-op
func (m *Metrics) SetAudioDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.AudioDegraded.Set(1)
	} else {
		m.AudioDegraded.Set(0)
	}
}

// SetMemoryAvailable records MemAvailable in bytes
func (m *Metrics) SetMemoryAvailable(bytes uint64) {
	if m == nil {
		return
	}
	m.MemoryAvailable.Set(float64(bytes))
	m.mu.Lock()
	m.snapshot.MemoryAvailableMB = bytes / (1024 * 1024)
	m.mu.Unlock()
}

// RecordAPIRequest records a control API request
func (m *Metrics) RecordAPIRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, path, status).Inc()
	m.APIDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncWSConnections increments open event streams
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements open event streams
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns current values for JSON status
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	uptime := time.Since(m.startTime).Seconds()
	m.Uptime.Set(uptime)

	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = uptime
	return s
}
