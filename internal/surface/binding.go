package surface

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
)

// NativeWindow is an opaque platform window pointer
type NativeWindow uintptr

// Target is the window a frame is presented to
type Target struct {
	Window NativeWindow
	Width  int
	Height int
}

// Bound reports whether the target refers to a window
func (t Target) Bound() bool {
	return t.Window != 0
}

// Frame is what a swap callback renders against
type Frame struct {
	Target
	// Rebound is set on the first frame after the window changed
	Rebound bool
}

var ErrInvalidTarget = errors.New("invalid surface target")

// Binding guards the current surface target
type Binding struct {
	mu   sync.Mutex
	cond *sync.Cond

	id       id.BindingID
	target   Target
	inUse    bool
	released bool
	dirty    bool

	pending   func(Frame) error
	coalesced uint64

	metrics  *monitoring.Metrics
	onChange func(bound bool)
}

// NewBinding creates an unbound binding
func NewBinding(metrics *monitoring.Metrics) *Binding {
	b := &Binding{metrics: metrics}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// OnChange registers a callback fired after every Bind and Unbind
func (b *Binding) OnChange(fn func(bound bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Bind points the binding at win. A buffered swap stays buffered: it is
// presented by the render thread on its next Swap or Acquire, never here.
func (b *Binding) Bind(win NativeWindow, width, height int) error {
	if win == 0 || width <= 0 || height <= 0 {
		return ErrInvalidTarget
	}

	b.mu.Lock()
	b.id = id.NewBindingID()
	b.target = Target{Window: win, Width: width, Height: height}
	if b.inUse || b.released || b.pending != nil {
		b.dirty = true
	}
	onChange := b.onChange
	b.mu.Unlock()

	b.metrics.SetSurfaceBound(true)
	if onChange != nil {
		onChange(true)
	}
	return nil
}

// Unbind clears the target and waits until the render thread releases it
func (b *Binding) Unbind(ctx context.Context) error {
	b.mu.Lock()
	b.target = Target{}
	if b.inUse {
		b.dirty = true
	}
	onChange := b.onChange

	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	for b.inUse && ctx.Err() == nil {
		b.cond.Wait()
	}
	stop()
	err := ctx.Err()
	if !b.inUse {
		err = nil
	}
	b.mu.Unlock()

	b.metrics.SetSurfaceBound(false)
	if onChange != nil {
		onChange(false)
	}
	return err
}

// Acquire marks the surface as in use by the render thread. A swap
// buffered while unbound is presented here if a target is bound again.
func (b *Binding) Acquire() Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inUse = true
	b.released = false
	if b.pending != nil && b.target.Bound() {
		fn := b.pending
		b.pending = nil
		b.dirty = false
		b.recordSwap(fn(Frame{Target: b.target, Rebound: true}))
	}
	return b.target
}

// Release ends render-thread use and wakes a pending Unbind
func (b *Binding) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inUse = false
	b.released = false
	b.cond.Broadcast()
}

// Swap runs fn against the bound target. While unbound the swap is
// buffered instead: one is kept, later ones are coalesced into it. The
// first swap after a rebind supersedes the buffered one.
func (b *Binding) Swap(fn func(Frame) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.target.Bound() {
		// the render thread stops touching the old window here
		if b.inUse {
			b.inUse = false
			b.released = true
			b.dirty = true
			b.cond.Broadcast()
		}
		if b.pending != nil {
			b.coalesced++
			b.metrics.RecordSwap("coalesced")
			return nil
		}
		b.pending = fn
		b.metrics.RecordSwap("buffered")
		return nil
	}

	if b.released {
		b.inUse = true
		b.released = false
	}
	if b.pending != nil {
		b.pending = nil
		b.coalesced++
		b.metrics.RecordSwap("coalesced")
	}
	rebound := b.dirty
	b.dirty = false
	err := fn(Frame{Target: b.target, Rebound: rebound})
	b.recordSwap(err)
	return err
}

func (b *Binding) recordSwap(err error) {
	if err != nil {
		b.metrics.RecordSwap("failed")
		return
	}
	b.metrics.RecordSwap("presented")
}

// ID identifies the most recent Bind, empty before the first one
func (b *Binding) ID() id.BindingID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// Target returns the current target
func (b *Binding) Target() Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

// Size returns the bound surface size, zero when unbound
func (b *Binding) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target.Width, b.target.Height
}

// Dirty reports a window change once, then clears
func (b *Binding) Dirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.dirty
	b.dirty = false
	return d
}

// Pending reports whether a swap is buffered
func (b *Binding) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// Coalesced returns how many swaps were folded into a buffered one
func (b *Binding) Coalesced() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coalesced
}
