package monitoring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeMeminfo(t *testing.T, dir string, availableKB uint64) {
	t.Helper()
	content := fmt.Sprintf("MemTotal:        8000000 kB\nMemFree:          100000 kB\nMemAvailable:   %8d kB\n", availableKB)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meminfo"), []byte(content), 0o644))
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordProvision("jre25", false, 1024, time.Second, nil)
	m.RecordProvision("jre25", true, 0, time.Millisecond, nil)
	m.RecordProvision("libs", false, 0, time.Millisecond, errors.New("corrupt"))
	m.SetLibrariesLoaded(7)
	m.SessionStarted()
	m.SessionEnded("crashed")
	m.RecordSwap("presented")
	m.RecordSwap("buffered")
	m.RecordSwap("coalesced")
	m.RecordInputEvent("keyboard")
	m.RecordInputDropped()
	m.RecordAudioCall("play", errors.New("busy"))

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.BundlesProvisioned)
	assert.Equal(t, int64(1), s.BundlesSkipped)
	assert.Equal(t, int64(7), s.LibrariesLoaded)
	assert.Equal(t, int64(1), s.SessionsStarted)
	assert.Equal(t, int64(1), s.SessionsCrashed)
	assert.Equal(t, int64(1), s.SwapsPresented)
	assert.Equal(t, int64(1), s.SwapsBuffered)
	assert.Equal(t, int64(1), s.SwapsCoalesced)
	assert.Equal(t, int64(1), s.InputEvents)
	assert.Equal(t, int64(1), s.InputDropped)
	assert.Equal(t, int64(1), s.AudioFailures)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProvisionSkipped.WithLabelValues("jre25")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SessionsActive))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSwap("presented")
		m.SetSurfaceBound(true)
		m.RecordInputDropped()
		m.SetAudioDegraded(true)
		_ = m.Snapshot()
	})
}

func TestMemoryMonitorWarnsOncePerInterval(t *testing.T) {
	dir := t.TempDir()
	writeMeminfo(t, dir, 200*1024)

	core, logs := observer.New(zapcore.WarnLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	mon := NewMemoryMonitor(MemoryConfig{
		ThresholdMB:  300,
		WarnInterval: time.Hour,
		ProcRoot:     dir,
	}, metrics, logging.Wrap(zap.New(core)))

	low, mb, err := mon.Check()
	require.NoError(t, err)
	assert.True(t, low)
	assert.Equal(t, uint64(200), mb)

	low, _, err = mon.Check()
	require.NoError(t, err)
	assert.True(t, low)

	assert.Equal(t, 1, logs.FilterMessage("Low memory").Len())
	assert.Equal(t, float64(200*1024*1024), testutil.ToFloat64(metrics.MemoryAvailable))
}

func TestMemoryMonitorAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	writeMeminfo(t, dir, 2*1024*1024)

	mon := NewMemoryMonitor(MemoryConfig{ProcRoot: dir}, nil, nil)
	low, mb, err := mon.Check()
	require.NoError(t, err)
	assert.False(t, low)
	assert.Equal(t, uint64(2048), mb)
}

func TestMemoryMonitorRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeMeminfo(t, dir, 2*1024*1024)
	mon := NewMemoryMonitor(MemoryConfig{ProcRoot: dir, PollInterval: time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestTimerRecords(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	d := NewTimer(m, "provision", "jre25").Stop("ok")
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}
