package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/errs"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/types"
	"go.uber.org/zap"
)

// WindowHandle identifies a desktop window
type WindowHandle uint64

// ContextHandle identifies a desktop GL context. It survives platform
// context re-creation.
type ContextHandle uint64

var (
	ErrUnknownWindow  = errors.New("unknown window")
	ErrUnknownContext = errors.New("unknown context")
)

// Windowing is the desktop window/context contract the game calls into
type Windowing interface {
	CreateWindow(width, height int, title string) (WindowHandle, error)
	DestroyWindow(h WindowHandle) error
	WindowShouldClose(h WindowHandle) bool
	GetFramebufferSize(h WindowHandle) (int, int)
	GetWindowSize(h WindowHandle) (int, int)
	SwapBuffers(h WindowHandle) error
	SwapInterval(interval int) error
	CreateContext() (ContextHandle, error)
	MakeContextCurrent(h ContextHandle) error
	DestroyContext(h ContextHandle) error
	Invoke(name string) error
}

type window struct {
	width, height int
	title         string
	shouldClose   bool
}

type glContext struct {
	native PlatformContext
	// window the native context was last made current on
	window NativeWindow
}

// Router implements Windowing over a Binding and a Platform
type Router struct {
	binding  *Binding
	platform Platform
	renderer types.Renderer
	gate     runtime.Gate
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu         sync.Mutex
	windows    map[WindowHandle]*window
	contexts   map[ContextHandle]*glContext
	current    ContextHandle
	nextWindow WindowHandle
	nextCtx    ContextHandle
	interval   int

	unsupported   sync.Map // map[string]struct{}
	invalidated   chan ContextHandle
	onInvalidated func(ContextHandle)
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithGate rejects calls once the gate stops accepting
func WithGate(g runtime.Gate) RouterOption {
	return func(r *Router) { r.gate = g }
}

// WithInvalidationHook is called once per context loss
func WithInvalidationHook(fn func(ContextHandle)) RouterOption {
	return func(r *Router) { r.onInvalidated = fn }
}

// NewRouter creates a Router
func NewRouter(binding *Binding, platform Platform, renderer types.Renderer, logger *logging.Logger, metrics *monitoring.Metrics, opts ...RouterOption) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Router{
		binding:     binding,
		platform:    platform,
		renderer:    renderer,
		logger:      logger.Named(logging.Surface),
		metrics:     metrics,
		windows:     make(map[WindowHandle]*window),
		contexts:    make(map[ContextHandle]*glContext),
		invalidated: make(chan ContextHandle, 16),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invalidated delivers a handle each time its platform context was lost
func (r *Router) Invalidated() <-chan ContextHandle {
	return r.invalidated
}

// CreateWindow registers the game's window. The size is only a hint: the
// platform surface decides the real one.
func (r *Router) CreateWindow(width, height int, title string) (WindowHandle, error) {
	if err := runtime.Admit(r.gate); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextWindow++
	h := r.nextWindow
	r.windows[h] = &window{width: width, height: height, title: title}
	r.logger.Debug("Window created", zap.Uint64("window", uint64(h)), zap.String("title", title))
	return h, nil
}

// DestroyWindow forgets a window
func (r *Router) DestroyWindow(h WindowHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.windows[h]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWindow, h)
	}
	delete(r.windows, h)
	return nil
}

// RequestClose makes WindowShouldClose report true for every window
func (r *Router) RequestClose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.windows {
		w.shouldClose = true
	}
}

// WindowShouldClose reports whether the host asked the game to quit
func (r *Router) WindowShouldClose(h WindowHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[h]
	return !ok || w.shouldClose
}

// GetFramebufferSize returns the bound surface size, or the requested
// window size while unbound
func (r *Router) GetFramebufferSize(h WindowHandle) (int, int) {
	if w, hgt := r.binding.Size(); w > 0 {
		return w, hgt
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if win, ok := r.windows[h]; ok {
		return win.width, win.height
	}
	return 0, 0
}

// GetWindowSize matches the framebuffer size; there is no window chrome
func (r *Router) GetWindowSize(h WindowHandle) (int, int) {
	return r.GetFramebufferSize(h)
}

// SwapInterval stores the interval and forwards it to the platform
func (r *Router) SwapInterval(interval int) error {
	r.mu.Lock()
	r.interval = interval
	r.mu.Unlock()
	return r.platform.SetSwapInterval(interval)
}

// CreateContext returns a handle; the platform context is created now if a
// surface is bound, otherwise on first use
func (r *Router) CreateContext() (ContextHandle, error) {
	if err := runtime.Admit(r.gate); err != nil {
		return 0, err
	}
	target := r.binding.Target()

	r.mu.Lock()
	defer r.mu.Unlock()

	c := &glContext{}
	if target.Bound() {
		native, err := r.platform.CreateContext(target.Window, r.renderer)
		if err != nil {
			return 0, fmt.Errorf("failed to create platform context: %w", err)
		}
		c.native = native
	}
	r.nextCtx++
	h := r.nextCtx
	r.contexts[h] = c
	return h, nil
}

// MakeContextCurrent binds h to the render thread; 0 releases the surface
func (r *Router) MakeContextCurrent(h ContextHandle) error {
	if h == 0 {
		r.mu.Lock()
		r.current = 0
		r.mu.Unlock()
		r.binding.Release()
		return nil
	}
	if err := runtime.Admit(r.gate); err != nil {
		return err
	}

	r.mu.Lock()
	_, ok := r.contexts[h]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownContext, h)
	}

	target := r.binding.Acquire()

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contexts[h]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownContext, h)
	}
	r.current = h
	if !target.Bound() {
		return nil
	}
	return r.ensureCurrent(h, c, target.Window, false)
}

// DestroyContext destroys the platform context behind h
func (r *Router) DestroyContext(h ContextHandle) error {
	r.mu.Lock()
	c, ok := r.contexts[h]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownContext, h)
	}
	delete(r.contexts, h)
	wasCurrent := r.current == h
	if wasCurrent {
		r.current = 0
	}
	r.mu.Unlock()

	if wasCurrent {
		r.binding.Release()
	}
	if c.native != 0 {
		return r.platform.DestroyContext(c.native)
	}
	return nil
}

// SwapBuffers presents the current context, or buffers the swap while no
// surface is bound
func (r *Router) SwapBuffers(h WindowHandle) error {
	if err := runtime.Admit(r.gate); err != nil {
		return err
	}
	return r.binding.Swap(func(f Frame) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		c, ok := r.contexts[r.current]
		if !ok {
			return nil
		}
		if err := r.ensureCurrent(r.current, c, f.Window, f.Rebound); err != nil {
			return err
		}
		return r.platform.SwapBuffers(c.native, f.Window)
	})
}

// ensureCurrent re-creates a lost or missing platform context and makes it
// current on win. Caller holds r.mu.
func (r *Router) ensureCurrent(h ContextHandle, c *glContext, win NativeWindow, rebound bool) error {
	lost := c.native != 0 && r.platform.ContextLost(c.native)
	if lost {
		if err := r.platform.DestroyContext(c.native); err != nil {
			r.logger.Debug("Destroying lost context failed", zap.Error(err))
		}
		c.native = 0
	}

	if c.native == 0 {
		native, err := r.platform.CreateContext(win, r.renderer)
		if err != nil {
			return fmt.Errorf("failed to create platform context: %w", err)
		}
		c.native = native
		c.window = 0
	}

	if rebound || c.window != win {
		if err := r.platform.MakeCurrent(c.native, win); err != nil {
			return fmt.Errorf("failed to make context current: %w", err)
		}
		c.window = win
	}

	if lost {
		r.invalidate(h)
	}
	return nil
}

func (r *Router) invalidate(h ContextHandle) {
	r.metrics.IncContextInvalidations()
	r.logger.Warn("GPU context lost and re-created", zap.Uint64("context", uint64(h)))
	select {
	case r.invalidated <- h:
	default:
		r.logger.Warn("Context invalidation dropped, no reader", zap.Uint64("context", uint64(h)))
	}
	if r.onInvalidated != nil {
		r.onInvalidated(h)
	}
}

// Invoke handles a windowing call the bridge does not implement. It is
// logged once per name and otherwise ignored.
func (r *Router) Invoke(name string) error {
	r.metrics.RecordUnsupportedCall(name)
	if _, seen := r.unsupported.LoadOrStore(name, struct{}{}); !seen {
		err := errs.New(errs.BridgeTranslationError, "invoke", name, errs.ErrUnsupportedCall)
		r.logger.Warn("Unsupported windowing call ignored", zap.String("call", name), zap.Error(err))
	}
	return nil
}

var _ Windowing = (*Router)(nil)
