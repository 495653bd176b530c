package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	goruntime "runtime"
	"strings"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"go.uber.org/zap"
)

// LaunchEmbedded builds the launch config for inst and runs it on vm
// inside this process
func (m *Manager) LaunchEmbedded(ctx context.Context, inst *Instance, vm VM) (*Session, error) {
	cfg, err := BuildLaunchConfig(inst, m.settings)
	if err != nil {
		return nil, errs.New(errs.RuntimeFault, "launch", inst.Name, err)
	}
	return m.Embed(ctx, cfg, vm)
}

// Embed runs cfg on vm in this process and returns once main is about to
// run. The VM gets its own locked OS thread, which it keeps until main
// returns. Once VM creation has begun ctx is no longer consulted: a
// half-created VM cannot be abandoned.
func (m *Manager) Embed(ctx context.Context, cfg LaunchConfig, vm VM) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.vmUsed.Load() {
		return nil, errs.New(errs.RuntimeFault, "embed", cfg.Instance, ErrVMInUse)
	}
	if err := applyProcessEnv(cfg); err != nil {
		return nil, errs.New(errs.RuntimeFault, "embed", cfg.Instance, err)
	}

	s := newSession(cfg.Instance, nil, m.tailSize)
	s.vm = vm
	s.onChange = m.notify

	m.sessions.Store(s.ID, s)
	m.metrics.SessionStarted()
	m.logger.Info("Runtime session embedded",
		zap.String("session_id", s.ID.String()),
		zap.String("instance", cfg.Instance),
		zap.String("libjvm", cfg.LibJVM()),
		zap.String("main_class", cfg.MainClass))
	m.notify(s.Info())

	if m.monitor != nil {
		monCtx, stopMonitor := context.WithCancel(context.Background())
		go m.monitor.Run(monCtx)
		go func() {
			<-s.done
			stopMonitor()
		}()
	}

	hooks := VMHooks{
		Started: func() {
			m.vmUsed.Store(true)
			s.markRunning()
		},
		Exit: func(code int) {
			m.endEmbedded(s, Status{State: StateExited, Code: code})
		},
		Abort: func() {
			m.endEmbedded(s, Status{State: StateCrashed, Code: -1, Signal: "SIGABRT", Diagnostic: "runtime aborted"})
		},
	}
	spec := cfg.VMSpec()
	go func() {
		// never unlocked: the thread carries the VM's main JNIEnv
		goruntime.LockOSThread()
		err := vm.Run(spec, hooks)
		m.endEmbedded(s, vmStatus(err))
	}()

	select {
	case <-s.running:
		return s, nil
	case <-s.done:
		if s.reachedRunning() {
			return s, nil
		}
		return s, errs.New(errs.RuntimeFault, "embed", cfg.Instance, fmt.Errorf("exited before ready: %s", s.Status()))
	}
}

// applyProcessEnv gives the embedded VM the environment and working
// directory a child process would have had
func applyProcessEnv(cfg LaunchConfig) error {
	for _, kv := range cfg.Env {
		k, v, _ := strings.Cut(kv, "=")
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	if cfg.JavaHome != "" {
		if err := os.Setenv("JAVA_HOME", cfg.JavaHome); err != nil {
			return fmt.Errorf("failed to set JAVA_HOME: %w", err)
		}
	}
	if cfg.Dir != "" {
		if err := os.Chdir(cfg.Dir); err != nil {
			return fmt.Errorf("failed to enter %s: %w", cfg.Dir, err)
		}
	}
	return nil
}

// vmStatus maps the return of VM.Run to a terminal status
func vmStatus(err error) Status {
	switch {
	case err == nil:
		return Status{State: StateExited}
	case errors.Is(err, ErrUncaughtException):
		return Status{State: StateCrashed, Code: -1, Signal: "SIGABRT", Diagnostic: err.Error()}
	default:
		return Status{State: StateExited, Code: 1, Diagnostic: err.Error()}
	}
}

// endEmbedded is reached from main returning or from a VM hook; the
// first one decides the outcome
func (m *Manager) endEmbedded(s *Session, st Status) {
	if !s.finish(st) {
		return
	}
	fields := []zap.Field{
		zap.String("session_id", s.ID.String()),
		zap.String("instance", s.Instance),
		zap.String("status", st.String()),
	}
	if st.State == StateCrashed {
		m.logger.Error("Runtime session crashed", append(fields, zap.String("diagnostic", st.Diagnostic))...)
	} else {
		m.logger.Info("Runtime session ended", fields...)
	}
	m.metrics.SessionEnded(st.State.String())
}
