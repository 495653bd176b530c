package host

import (
	"context"
	"fmt"
	"os"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/provision"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/paths"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
)

// SurfaceStatus describes the current binding
type SurfaceStatus struct {
	Bound     bool   `json:"bound"`
	BindingID string `json:"binding_id,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Pending   bool   `json:"pending_swap"`
	Coalesced uint64 `json:"coalesced_swaps"`
}

// InputStatus describes the event queue and active controls
type InputStatus struct {
	Queued   int    `json:"queued"`
	Dropped  uint64 `json:"dropped"`
	Elements int    `json:"elements"`
}

// BundleStatus describes one provisioned install
type BundleStatus struct {
	Name    string `json:"name"`
	Dest    string `json:"dest"`
	Skipped bool   `json:"skipped"`
	Files   int64  `json:"files"`
	Bytes   int64  `json:"bytes"`
}

// Status is a snapshot of every subsystem
type Status struct {
	Renderer  string               `json:"renderer"`
	Session   *runtime.SessionInfo `json:"session,omitempty"`
	Surface   SurfaceStatus        `json:"surface"`
	Audio     *audio.Status        `json:"audio,omitempty"`
	Input     InputStatus          `json:"input"`
	Libraries []string             `json:"libraries,omitempty"`
	Bundles   []BundleStatus       `json:"bundles,omitempty"`
	Phases    []tracing.Span       `json:"phases,omitempty"`
}

// Status collects a snapshot
func (h *Host) Status() Status {
	h.mu.Lock()
	sess, libs, bridge, installed := h.session, h.libs, h.audio, h.installed
	h.mu.Unlock()

	st := Status{
		Renderer: h.renderer.String(),
		Input: InputStatus{
			Queued:   h.queue.Len(),
			Dropped:  h.queue.Dropped(),
			Elements: len(h.translator.Layout().Elements),
		},
		Phases: h.tracer.Recent(),
	}
	if sess != nil {
		info := sess.Info()
		st.Session = &info
	}
	target := h.binding.Target()
	st.Surface = SurfaceStatus{
		Bound:     target.Bound(),
		Width:     target.Width,
		Height:    target.Height,
		Pending:   h.binding.Pending(),
		Coalesced: h.binding.Coalesced(),
	}
	if target.Bound() {
		st.Surface.BindingID = h.binding.ID().String()
	}
	if bridge != nil {
		a := bridge.Status()
		st.Audio = &a
	}
	if libs != nil {
		st.Libraries = libs.Names()
	}
	for _, in := range installed {
		st.Bundles = append(st.Bundles, BundleStatus{
			Name:    in.Bundle.Name,
			Dest:    in.Bundle.Dest,
			Skipped: in.Manifest.Skipped,
			Files:   in.Files,
			Bytes:   in.Bytes,
		})
	}
	return st
}

// ApplyLayout validates l, applies it and saves it to the configured
// layout file when there is one
func (h *Host) ApplyLayout(l *input.Layout) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}
	if path := h.cfg.Input.LayoutFile; path != "" {
		if err := l.Save(path); err != nil {
			return err
		}
	}
	h.translator.SetLayout(l)
	return nil
}

// ListSessions returns every tracked runtime session
func (h *Host) ListSessions() []runtime.SessionInfo {
	return h.sessions.List()
}

// StopSession stops a tracked session by id
func (h *Host) StopSession(ctx context.Context, sessionID string) (runtime.Status, error) {
	return h.sessions.Stop(ctx, id.SessionID(sessionID))
}

// SessionOutput returns the retained console tail of a session
func (h *Host) SessionOutput(sessionID string) ([]byte, error) {
	s, err := h.sessions.Get(id.SessionID(sessionID))
	if err != nil {
		return nil, err
	}
	return s.Output(), nil
}

// ControlLayout returns the active control layout
func (h *Host) ControlLayout() *input.Layout {
	return h.translator.Layout()
}

// Provision installs the standard bundles without launching anything
func (h *Host) Provision(ctx context.Context) ([]*provision.Manifest, error) {
	return h.provisioner.ProvisionAll(ctx, h.bundles)
}

// Verify checks every provisioned bundle against its manifest
func (h *Host) Verify(ctx context.Context) ([]*provision.Manifest, error) {
	out := make([]*provision.Manifest, 0, len(h.bundles))
	for _, b := range h.bundles {
		m, err := h.provisioner.Verify(ctx, b.Dest)
		if err != nil {
			return out, fmt.Errorf("%s: %w", b.Name, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// EnsureDirs creates the storage roots
func (h *Host) EnsureDirs() error {
	for _, dir := range []string{h.layout.Home, h.layout.Cache, h.layout.InstancesRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (h *Host) Config() *config.Config             { return h.cfg }
func (h *Host) Layout() paths.Layout               { return h.layout }
func (h *Host) Logger() *logging.Logger            { return h.logger }
func (h *Host) Metrics() *monitoring.Metrics       { return h.metrics }
func (h *Host) Bus() *hostshell.Bus                { return h.bus }
func (h *Host) Callbacks() *hostshell.CallbackSlot { return h.callbacks }
func (h *Host) Store() *runtime.Store              { return h.store }
func (h *Host) Sessions() *runtime.Manager         { return h.sessions }
func (h *Host) Binding() *surface.Binding          { return h.binding }
func (h *Host) Queue() *input.Queue                { return h.queue }
func (h *Host) Translator() *input.Translator      { return h.translator }

// PollEvents drains queued input for the runtime's polling thread
func (h *Host) PollEvents(dst []input.Event) (int, error) {
	if err := runtime.Admit(h); err != nil {
		return 0, err
	}
	return h.queue.Poll(dst), nil
}

// Router returns the windowing router, nil without a platform
func (h *Host) Router() *surface.Router { return h.router }

// Audio returns the audio bridge of the running session, nil before Start
func (h *Host) Audio() *audio.Bridge {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.audio
}

// Session returns the current session, nil before Start
func (h *Host) Session() *runtime.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}
