package input

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
)

const defaultScrollRelease = 50 * time.Millisecond

// pointer is the state of one active touch
type pointer struct {
	region region
	last   r2.Vec
	click  bool
}

// Translator turns touch, keyboard and IME input into desktop events on a
// Queue. All methods are safe for concurrent use; the translator is the
// queue's only producer.
type Translator struct {
	mu sync.Mutex

	queue  *Queue
	logger *logging.Logger
	gate   runtime.Gate

	layout   *Layout
	geo      geometry
	split    splitState
	regions  []region
	pointers map[int]*pointer

	sensitivity   float64
	tapToClick    bool
	cursorMode    bool
	renderScale   float64
	scrollRelease time.Duration

	// pending scroll releases keyed by timer
	scrolls map[*time.Timer]int
	closed  bool
}

// TranslatorOption configures a Translator
type TranslatorOption func(*Translator)

// WithSensitivity scales mouse-look deltas
func WithSensitivity(s float64) TranslatorOption {
	return func(t *Translator) { t.sensitivity = s }
}

// WithPixelScale scales control sizes for the display density
func WithPixelScale(s float64) TranslatorOption {
	return func(t *Translator) {
		if s > 0 {
			t.geo.pixelScale = s
		}
	}
}

// WithTapToClick presses the left mouse button while a look pointer is down
func WithTapToClick(enabled bool) TranslatorOption {
	return func(t *Translator) { t.tapToClick = enabled }
}

// WithCursorMode sends absolute cursor positions scaled to the render
// resolution instead of relative mouse-look
func WithCursorMode(renderScale float64) TranslatorOption {
	return func(t *Translator) {
		t.cursorMode = true
		t.renderScale = renderScale
	}
}

// WithScrollRelease sets how long a scroll key stays pressed
func WithScrollRelease(d time.Duration) TranslatorOption {
	return func(t *Translator) { t.scrollRelease = d }
}

// WithTranslatorLogger sets the logger
func WithTranslatorLogger(l *logging.Logger) TranslatorOption {
	return func(t *Translator) { t.logger = l }
}

// WithTranslatorGate stops emitting events once g stops accepting calls
func WithTranslatorGate(g runtime.Gate) TranslatorOption {
	return func(t *Translator) { t.gate = g }
}

// NewTranslator creates a translator for a screen of width x height pixels.
// A nil layout uses DefaultLayout.
func NewTranslator(queue *Queue, layout *Layout, width, height float64, opts ...TranslatorOption) *Translator {
	if layout == nil {
		layout = DefaultLayout()
	}
	t := &Translator{
		queue:         queue,
		logger:        logging.NewNop(),
		layout:        layout,
		geo:           geometry{width: width, height: height, pixelScale: 1},
		pointers:      make(map[int]*pointer),
		sensitivity:   1,
		renderScale:   1,
		scrollRelease: defaultScrollRelease,
		scrolls:       make(map[*time.Timer]int),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.rebuild()
	return t
}

func (t *Translator) emit(e Event) {
	if runtime.Admit(t.gate) != nil {
		return
	}
	t.queue.Push(e)
}

func (t *Translator) rebuild() {
	t.split = splitState{}
	t.regions = t.regions[:0]
	for _, d := range t.layout.Elements {
		if r := newRegion(d, t.geo, &t.split); r != nil {
			t.regions = append(t.regions, r)
		}
	}
}

// PointerDown starts a touch. The pointer binds to the first region it
// lands in, or becomes a mouse-look pointer.
func (t *Translator) PointerDown(id int, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if _, ok := t.pointers[id]; ok {
		return
	}
	p := r2.Vec{X: x, Y: y}
	ptr := &pointer{last: p}
	t.pointers[id] = ptr

	for _, r := range t.regions {
		if r.hit(p) {
			ptr.region = r
			r.down(p, t.emit)
			return
		}
	}
	if t.cursorMode {
		t.emit(CursorPosEvent(x*t.renderScale, y*t.renderScale))
	}
	if t.tapToClick {
		ptr.click = true
		t.emit(MouseButtonEvent(MouseLeft, true))
	}
}

// PointerMove updates a touch
func (t *Translator) PointerMove(id int, x, y float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ptr, ok := t.pointers[id]
	if !ok || t.closed {
		return
	}
	p := r2.Vec{X: x, Y: y}
	if ptr.region != nil {
		ptr.region.move(p, t.emit)
		return
	}
	if t.cursorMode {
		t.emit(CursorPosEvent(x*t.renderScale, y*t.renderScale))
	} else {
		d := r2.Scale(t.sensitivity, r2.Sub(p, ptr.last))
		if d.X != 0 || d.Y != 0 {
			t.emit(MouseMotionEvent(d.X, d.Y))
		}
	}
	ptr.last = p
}

// PointerUp ends a touch and releases whatever it pressed
func (t *Translator) PointerUp(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ptr, ok := t.pointers[id]
	if !ok {
		return
	}
	delete(t.pointers, id)
	t.lift(ptr, false)
}

func (t *Translator) lift(ptr *pointer, cancel bool) {
	if ptr.region != nil {
		ptr.region.up(t.emit, cancel)
	}
	if ptr.click {
		ptr.click = false
		t.emit(MouseButtonEvent(MouseLeft, false))
	}
}

// Cancel ends every touch and releases every held control, toggles included
func (t *Translator) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Translator) cancelLocked() {
	for id, ptr := range t.pointers {
		delete(t.pointers, id)
		t.lift(ptr, true)
	}
	for _, r := range t.regions {
		r.up(t.emit, true)
	}
}

// Scroll maps a wheel or pinch step to a zoom key tap
func (t *Translator) Scroll(dy float64) {
	if dy == 0 {
		return
	}
	key := KeyMinus
	if dy > 0 {
		key = KeyEqual
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.emit(KeyEvent(key, true))

	var timer *time.Timer
	timer = time.AfterFunc(t.scrollRelease, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.scrolls[timer]; !ok {
			return
		}
		delete(t.scrolls, timer)
		t.emit(KeyEvent(key, false))
	})
	t.scrolls[timer] = key
}

// Key forwards a hardware or soft keyboard key
func (t *Translator) Key(code int, pressed bool) {
	t.push(KeyEvent(code, pressed))
}

// Char forwards one typed codepoint
func (t *Translator) Char(r rune) {
	t.push(CharEvent(r))
}

// CommitText forwards IME text one codepoint at a time
func (t *Translator) CommitText(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, r := range s {
		t.emit(CharEvent(r))
	}
}

// DeleteText taps backspace n times
func (t *Translator) DeleteText(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for i := 0; i < n; i++ {
		t.emit(KeyEvent(KeyBackspace, true))
		t.emit(KeyEvent(KeyBackspace, false))
	}
}

// ConnectJoystick announces the virtual controller
func (t *Translator) ConnectJoystick() {
	t.push(JoystickConnectedEvent(VirtualController))
}

// DisconnectJoystick removes the virtual controller
func (t *Translator) DisconnectJoystick() {
	t.push(JoystickDisconnectedEvent())
}

func (t *Translator) push(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.emit(e)
}

// SetLayout replaces the controls; held controls are released first
func (t *Translator) SetLayout(l *Layout) {
	if l == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.layout = l
	t.rebuild()
	t.logger.Info("Control layout applied", zap.Int("elements", len(l.Elements)))
}

// Layout returns the active layout
func (t *Translator) Layout() *Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout
}

// SetScreen updates the screen size; held controls are released first
func (t *Translator) SetScreen(width, height float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.geo.width, t.geo.height = width, height
	t.rebuild()
}

// Close releases everything still held, including pending scroll keys,
// and ignores further input
func (t *Translator) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.cancelLocked()
	for timer, key := range t.scrolls {
		timer.Stop()
		delete(t.scrolls, timer)
		t.emit(KeyEvent(key, false))
	}
	t.closed = true
}
