package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/audio"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/surface"
)

// Status codes returned across the C boundary
const (
	codeOK             = 0
	codeError          = -1
	codeCrashed        = -2
	codeNotInitialized = -3
	codeNotRunning     = -4
)

const unbindTimeout = 2 * time.Second

var (
	errNotInitialized = errors.New("bridge not initialized")
	errNotRunning     = errors.New("no running session")
)

// native holds the process-wide host behind the exported entry points
type native struct {
	mu   sync.Mutex
	host *host.Host
}

var bridge native

// code maps an error to a C status code
func code(err error) int {
	switch {
	case err == nil:
		return codeOK
	case errors.Is(err, errs.ErrSessionCrashed):
		return codeCrashed
	case errors.Is(err, errNotInitialized):
		return codeNotInitialized
	case errors.Is(err, errNotRunning):
		return codeNotRunning
	default:
		return codeError
	}
}

// init builds the host. A non-nil vm runs the game inside this process,
// where its natives reach the exported entry points.
func (n *native) init(cfg *config.Config, platform surface.Platform, engine audio.Engine, vm runtime.VM) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.host != nil {
		return errors.New("bridge already initialized")
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	opts := []host.Option{host.WithAudioEngine(engine)}
	if platform != nil {
		opts = append(opts, host.WithPlatform(platform))
	}
	if vm != nil {
		opts = append(opts, host.WithVM(vm))
	}
	h, err := host.New(cfg, logger, nil, opts...)
	if err != nil {
		return err
	}
	if err := h.EnsureDirs(); err != nil {
		h.Close(context.Background())
		return err
	}
	n.host = h
	return nil
}

func (n *native) current() (*host.Host, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.host == nil {
		return nil, errNotInitialized
	}
	return n.host, nil
}

func (n *native) start(instance string) error {
	h, err := n.current()
	if err != nil {
		return err
	}
	_, err = h.Start(context.Background(), instance)
	return err
}

func (n *native) stop() error {
	h, err := n.current()
	if err != nil {
		return err
	}
	return h.Shutdown(context.Background())
}

// deinit closes the host for good
func (n *native) deinit() error {
	n.mu.Lock()
	h := n.host
	n.host = nil
	n.mu.Unlock()
	if h == nil {
		return errNotInitialized
	}
	return h.Close(context.Background())
}

func (n *native) setCallback(fn func(hostshell.Event)) error {
	h, err := n.current()
	if err != nil {
		return err
	}
	if fn == nil {
		h.Callbacks().Clear()
		return nil
	}
	h.Callbacks().Set(fn)
	return nil
}

func (n *native) surfaceInit(win uintptr, width, height int) error {
	h, err := n.current()
	if err != nil {
		return err
	}
	return h.Binding().Bind(surface.NativeWindow(win), width, height)
}

func (n *native) surfaceDeinit() error {
	h, err := n.current()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), unbindTimeout)
	defer cancel()
	if err := h.Binding().Unbind(ctx); err != nil {
		h.Logger().Warn("Surface still in use after unbind timeout", zap.Error(err))
		return err
	}
	return nil
}

// translator returns nil before init; input arriving that early is dropped
func (n *native) translator() *input.Translator {
	h, err := n.current()
	if err != nil {
		return nil
	}
	return h.Translator()
}

func (n *native) poll(dst []input.Event) (int, error) {
	h, err := n.current()
	if err != nil {
		return 0, err
	}
	return h.PollEvents(dst)
}

func (n *native) router() (*surface.Router, error) {
	h, err := n.current()
	if err != nil {
		return nil, err
	}
	r := h.Router()
	if r == nil {
		return nil, errors.New("no platform registered")
	}
	return r, nil
}

// windowSize is 0x0 without a router
func (n *native) windowSize(win surface.WindowHandle) (int, int) {
	r, err := n.router()
	if err != nil {
		return 0, 0
	}
	return r.GetWindowSize(win)
}

// shouldClose treats a missing router as a closed window so the game loop
// ends after deinit
func (n *native) shouldClose(win surface.WindowHandle) bool {
	r, err := n.router()
	if err != nil {
		return true
	}
	return r.WindowShouldClose(win)
}

func (n *native) destroyWindow(win surface.WindowHandle) error {
	r, err := n.router()
	if err != nil {
		return err
	}
	return r.DestroyWindow(win)
}

func (n *native) destroyContext(ctx surface.ContextHandle) error {
	r, err := n.router()
	if err != nil {
		return err
	}
	return r.DestroyContext(ctx)
}

func (n *native) swapInterval(interval int) error {
	r, err := n.router()
	if err != nil {
		return err
	}
	return r.SwapInterval(interval)
}

// unsupported records a windowing call with no bridge implementation
func (n *native) unsupported(name string) error {
	r, err := n.router()
	if err != nil {
		return err
	}
	return r.Invoke(name)
}

func (n *native) audio() (*audio.Bridge, error) {
	h, err := n.current()
	if err != nil {
		return nil, err
	}
	b := h.Audio()
	if b == nil {
		return nil, errNotRunning
	}
	return b, nil
}
