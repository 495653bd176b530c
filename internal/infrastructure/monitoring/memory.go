package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MemoryConfig configures the low-memory monitor
type MemoryConfig struct {
	ThresholdMB  uint64
	PollInterval time.Duration
	WarnInterval time.Duration
	// ProcRoot overrides the procfs mount point
	ProcRoot string
}

// MemoryMonitor samples MemAvailable and warns when it drops below a threshold
type MemoryMonitor struct {
	cfg     MemoryConfig
	fs      procfs.FS
	fsErr   error
	metrics *Metrics
	logger  *logging.Logger
	warn    rate.Sometimes
}

// NewMemoryMonitor creates a monitor; warnings are throttled to one per WarnInterval
func NewMemoryMonitor(cfg MemoryConfig, metrics *Metrics, logger *logging.Logger) *MemoryMonitor {
	if cfg.ThresholdMB == 0 {
		cfg.ThresholdMB = 300
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.WarnInterval <= 0 {
		cfg.WarnInterval = 30 * time.Second
	}
	if cfg.ProcRoot == "" {
		cfg.ProcRoot = procfs.DefaultMountPoint
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fs, err := procfs.NewFS(cfg.ProcRoot)
	return &MemoryMonitor{
		cfg:     cfg,
		fs:      fs,
		fsErr:   err,
		metrics: metrics,
		logger:  logger,
		warn:    rate.Sometimes{Interval: cfg.WarnInterval},
	}
}

// Available returns MemAvailable in bytes
func (m *MemoryMonitor) Available() (uint64, error) {
	if m.fsErr != nil {
		return 0, fmt.Errorf("procfs unavailable: %w", m.fsErr)
	}
	info, err := m.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read meminfo: %w", err)
	}
	if info.MemAvailable == nil {
		return 0, fmt.Errorf("meminfo has no MemAvailable field")
	}
	return *info.MemAvailable * 1024, nil
}

// Check samples once and reports whether memory is below the threshold
func (m *MemoryMonitor) Check() (low bool, availableMB uint64, err error) {
	avail, err := m.Available()
	if err != nil {
		return false, 0, err
	}
	m.metrics.SetMemoryAvailable(avail)

	availableMB = avail / (1024 * 1024)
	if availableMB >= m.cfg.ThresholdMB {
		return false, availableMB, nil
	}
	m.warn.Do(func() {
		m.logger.Warn("Low memory", zap.Uint64("available_mb", availableMB), zap.Uint64("threshold_mb", m.cfg.ThresholdMB))
	})
	return true, availableMB, nil
}

// Run polls until ctx is cancelled
func (m *MemoryMonitor) Run(ctx context.Context) {
	if _, _, err := m.Check(); err != nil {
		m.logger.Debug("Memory monitor disabled", zap.Error(err))
		return
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}
