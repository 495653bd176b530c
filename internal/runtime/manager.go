package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/creack/pty"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ErrSessionNotFound is returned for unknown session ids
var ErrSessionNotFound = errors.New("session not found")

// pumpDrainTimeout bounds how long exit handling waits for buffered output
const pumpDrainTimeout = 2 * time.Second

// Manager starts and tracks hosted runtime sessions
type Manager struct {
	settings Settings
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	monitor  *monitoring.MemoryMonitor
	observer func(SessionInfo)

	readyTimeout time.Duration
	usePTY       bool
	tailSize     int

	sessions sync.Map // map[id.SessionID]*Session
	vmUsed   atomic.Bool
}

// Option configures a Manager
type Option func(*Manager)

// WithObserver registers a callback for every session state change
func WithObserver(fn func(SessionInfo)) Option {
	return func(m *Manager) { m.observer = fn }
}

// WithMemoryMonitor polls available memory while a session runs
func WithMemoryMonitor(mon *monitoring.MemoryMonitor) Option {
	return func(m *Manager) { m.monitor = mon }
}

// WithReadyTimeout sets how long a silent process stays Starting
func WithReadyTimeout(d time.Duration) Option {
	return func(m *Manager) { m.readyTimeout = d }
}

// WithPTY selects a pseudo-terminal (true) or a plain pipe for output
func WithPTY(enabled bool) Option {
	return func(m *Manager) { m.usePTY = enabled }
}

// WithTailSize sets how many output bytes are kept for crash diagnostics
func WithTailSize(n int) Option {
	return func(m *Manager) { m.tailSize = n }
}

// NewManager creates a session manager
func NewManager(settings Settings, logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		settings:     settings,
		logger:       logger.Named(logging.Runtime),
		metrics:      metrics,
		readyTimeout: 2 * time.Second,
		usePTY:       true,
		tailSize:     64 * 1024,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Launch builds the launch config for inst and starts it
func (m *Manager) Launch(ctx context.Context, inst *Instance) (*Session, error) {
	cfg, err := BuildLaunchConfig(inst, m.settings)
	if err != nil {
		return nil, errs.New(errs.RuntimeFault, "launch", inst.Name, err)
	}
	return m.Start(ctx, cfg)
}

// Start runs cfg and returns once the session is Running. A process that
// exits before producing output or reaching the ready timeout is an error.
func (m *Manager) Start(ctx context.Context, cfg LaunchConfig) (*Session, error) {
	argv := cfg.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = append(os.Environ(), cfg.Environ()...)

	s := newSession(cfg.Instance, cmd, m.tailSize)
	s.onChange = m.notify

	out, err := m.spawn(cmd)
	if err != nil {
		return nil, errs.New(errs.RuntimeFault, "start", cfg.Instance, err)
	}
	s.out = out

	m.sessions.Store(s.ID, s)
	m.metrics.SessionStarted()
	m.logger.Info("Runtime session started",
		zap.String("session_id", s.ID.String()),
		zap.String("instance", cfg.Instance),
		zap.Int("pid", s.Pid()),
		zap.String("main_class", cfg.MainClass))
	m.notify(s.Info())

	m.supervise(s)

	select {
	case <-s.running:
		return s, nil
	case <-s.done:
		if s.reachedRunning() {
			return s, nil
		}
		st := s.Status()
		return s, errs.New(errs.RuntimeFault, "start", cfg.Instance, fmt.Errorf("exited before ready: %s", st))
	case <-ctx.Done():
		s.requestStop()
		cmd.Process.Kill()
		<-s.done
		m.sessions.Delete(s.ID)
		return nil, ctx.Err()
	}
}

func (m *Manager) spawn(cmd *exec.Cmd) (*os.File, error) {
	if m.usePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to start PTY: %w", err)
		}
		return ptmx, nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("failed to start process: %w", err)
	}
	w.Close()
	return r, nil
}

// supervise pumps output and waits for exit
func (m *Manager) supervise(s *Session) {
	lines := logging.NewLineWriter(m.logger.Named(logging.Game), zap.InfoLevel, zap.String("session_id", s.ID.String()))
	sink := io.MultiWriter(s.tail, lines)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		buf := make([]byte, 4096)
		for {
			n, err := s.out.Read(buf)
			if n > 0 {
				s.markRunning()
				sink.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	ready := time.AfterFunc(m.readyTimeout, s.markRunning)

	var stopMonitor context.CancelFunc = func() {}
	if m.monitor != nil {
		var monCtx context.Context
		monCtx, stopMonitor = context.WithCancel(context.Background())
		go m.monitor.Run(monCtx)
	}

	go func() {
		waitErr := s.cmd.Wait()
		ready.Stop()
		stopMonitor()

		select {
		case <-pumpDone:
		case <-time.After(pumpDrainTimeout):
		}
		s.out.Close()
		lines.Flush()

		st := exitStatus(s.cmd.ProcessState, waitErr, s.stopping())
		if st.State == StateCrashed {
			tail := s.tail.Bytes()
			st.FaultAddr = faultAddress(tail)
			st.Diagnostic = lastLines(tail, 20)
		}
		s.finish(st)

		fields := []zap.Field{
			zap.String("session_id", s.ID.String()),
			zap.String("instance", s.Instance),
			zap.String("status", st.String()),
		}
		if st.State == StateCrashed {
			m.logger.Error("Runtime session crashed", append(fields,
				zap.String("fault_addr", st.FaultAddr),
				zap.String("diagnostic", st.Diagnostic))...)
		} else {
			m.logger.Info("Runtime session ended", fields...)
		}
		m.metrics.SessionEnded(st.State.String())
	}()
}

// exitStatus maps a finished process to a terminal status
func exitStatus(ps *os.ProcessState, waitErr error, stopped bool) Status {
	if ps == nil {
		return Status{State: StateCrashed, Code: -1, Diagnostic: fmt.Sprint(waitErr)}
	}

	var signal string
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		signal = unix.SignalName(ws.Signal())
		if signal == "" {
			signal = ws.Signal().String()
		}
	}

	switch {
	case stopped:
		return Status{State: StateExited, Code: ps.ExitCode(), Signal: signal}
	case signal != "":
		return Status{State: StateCrashed, Code: -1, Signal: signal}
	default:
		return Status{State: StateExited, Code: ps.ExitCode()}
	}
}

func (m *Manager) notify(info SessionInfo) {
	if m.observer != nil {
		m.observer(info)
	}
}

// Get returns a tracked session
func (m *Manager) Get(sessionID id.SessionID) (*Session, error) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return v.(*Session), nil
}

// List returns all tracked sessions, oldest first
func (m *Manager) List() []SessionInfo {
	var out []SessionInfo
	m.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stop kills a session, waits for it to exit and forgets it
func (m *Manager) Stop(ctx context.Context, sessionID id.SessionID) (Status, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return Status{}, err
	}

	if s.requestStop() {
		if s.vm != nil {
			if err := s.vm.Exit(0); err != nil {
				m.logger.Warn("Failed to exit embedded runtime", zap.String("session_id", sessionID.String()), zap.Error(err))
			}
		} else if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			m.logger.Warn("Failed to kill runtime", zap.String("session_id", sessionID.String()), zap.Error(err))
		}
	}

	st, err := s.Wait(ctx)
	if err != nil {
		return st, err
	}
	m.sessions.Delete(sessionID)
	return st, nil
}

// Shutdown stops every session
func (m *Manager) Shutdown(ctx context.Context) error {
	var ids []id.SessionID
	m.sessions.Range(func(k, _ any) bool {
		ids = append(ids, k.(id.SessionID))
		return true
	})

	var errList []error
	for _, sid := range ids {
		if _, err := m.Stop(ctx, sid); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
