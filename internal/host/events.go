package host

import (
	"fmt"
	"strconv"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
	"go.uber.org/zap"
)

func (h *Host) publish(e hostshell.Event) {
	h.logger.Debug("Host event", zap.String("type", string(e.Type)), zap.String("subject", e.Subject))
	h.bus.Publish(e)
}

// onSession maps runtime state changes to host events
func (h *Host) onSession(info runtime.SessionInfo) {
	subject := info.ID.String()
	switch info.State {
	case runtime.StateRunning.String():
		h.publish(hostshell.NewEvent(hostshell.RuntimeStarted, subject, "pid "+strconv.Itoa(info.Pid)))
	case runtime.StateExited.String():
		e := hostshell.NewEvent(hostshell.RuntimeExited, subject, info.Signal)
		e.Code = info.Code
		h.publish(e)
	case runtime.StateCrashed.String():
		detail := info.Signal
		if info.FaultAddr != "" {
			detail = fmt.Sprintf("%s at %s", info.Signal, info.FaultAddr)
		}
		e := hostshell.NewEvent(hostshell.RuntimeCrashed, subject, detail)
		e.Code = info.Code
		h.publish(e)
	}
}

// onSurface keeps input geometry in step with the surface
func (h *Host) onSurface(bound bool) {
	subject := h.binding.ID().String()
	if !bound {
		h.translator.Cancel()
		h.publish(hostshell.NewEvent(hostshell.SurfaceLost, subject, ""))
		return
	}
	w, ht := h.binding.Size()
	h.translator.SetScreen(float64(w), float64(ht))
	h.publish(hostshell.NewEvent(hostshell.SurfaceBound, subject, fmt.Sprintf("%dx%d", w, ht)))
}

func (h *Host) onInvalidated(ctx surface.ContextHandle) {
	h.publish(hostshell.NewEvent(hostshell.ContextInvalidated, strconv.FormatUint(uint64(ctx), 10), h.renderer.String()))
}
