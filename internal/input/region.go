package input

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	stickRadius    = 160.0
	dpadSize       = 340.0
	buttonDiameter = 160.0
	rectWidth      = 240.0
	rectHeight     = 120.0
	deadZone       = 0.3
)

type emitter func(Event)

// region is the on-screen hit area and behavior of one layout element.
// A pointer that lands in a region stays bound to it until lift.
type region interface {
	hit(p r2.Vec) bool
	down(p r2.Vec, emit emitter)
	move(p r2.Vec, emit emitter)
	// up ends the touch; cancel also releases toggled buttons
	up(emit emitter, cancel bool)
}

// geometry maps relative layout positions onto the screen
type geometry struct {
	width, height float64
	pixelScale    float64
}

func (g geometry) center(d ElementDescription) r2.Vec {
	return r2.Vec{X: d.CenterX * g.width, Y: d.CenterY * g.height}
}

func (g geometry) size(base float64, d ElementDescription) float64 {
	return base * g.pixelScale * d.Scale
}

// splitState is the hat mask shared by the split dpad parts of a layout
type splitState struct {
	mask uint8
}

func newRegion(d ElementDescription, g geometry, split *splitState) region {
	c := g.center(d)
	if hat, ok := d.Type.splitHat(); ok {
		half := g.size(dpadSize, d) / 6
		return &splitDpadRegion{
			box:     squareBox(c, half),
			hat:     hat,
			binding: first(d.Bindings),
			gamepad: d.InputType == InputGamepad,
			shared:  split,
		}
	}
	switch d.Type {
	case ElementButtonCircle:
		return &buttonRegion{
			center:   c,
			radius:   g.size(buttonDiameter, d) / 2,
			circle:   true,
			bindings: d.Bindings,
			gamepad:  d.InputType == InputGamepad,
			toggle:   d.Toggle,
		}
	case ElementButtonRect:
		w, h := g.size(rectWidth, d)/2, g.size(rectHeight, d)/2
		return &buttonRegion{
			center:   c,
			box:      r2.Box{Min: r2.Vec{X: c.X - w, Y: c.Y - h}, Max: r2.Vec{X: c.X + w, Y: c.Y + h}},
			bindings: d.Bindings,
			gamepad:  d.InputType == InputGamepad,
			toggle:   d.Toggle,
		}
	case ElementDpad:
		half := g.size(dpadSize, d) / 2
		return &dpadRegion{
			center:   c,
			half:     half,
			box:      squareBox(c, half),
			bindings: d.Bindings,
			gamepad:  d.InputType == InputGamepad,
		}
	case ElementStick:
		return &stickRegion{
			center:   c,
			radius:   g.size(stickRadius, d),
			bindings: d.Bindings,
			gamepad:  d.InputType == InputGamepad,
		}
	}
	return nil
}

func squareBox(c r2.Vec, half float64) r2.Box {
	return r2.Box{Min: r2.Vec{X: c.X - half, Y: c.Y - half}, Max: r2.Vec{X: c.X + half, Y: c.Y + half}}
}

func first(b []Binding) Binding {
	if len(b) == 0 {
		return ""
	}
	return b[0]
}

// sendBinding emits the event a binding produces for a press or release
func sendBinding(b Binding, pressed bool, emit emitter) {
	switch b.Kind() {
	case KindKey:
		emit(KeyEvent(b.Code(), pressed))
	case KindMouseButton:
		emit(MouseButtonEvent(b.Code(), pressed))
	case KindGamepadButton:
		emit(JoystickButtonEvent(b.Code(), pressed))
	case KindTrigger:
		v := float32(-1)
		if pressed {
			v = 1
		}
		emit(JoystickAxisEvent(b.Code(), v))
	}
}

// directionMask quantizes a normalized deflection into hat bits
func directionMask(nx, ny float64) uint8 {
	var m uint8
	if ny < -deadZone {
		m |= HatUp
	}
	if nx > deadZone {
		m |= HatRight
	}
	if ny > deadZone {
		m |= HatDown
	}
	if nx < -deadZone {
		m |= HatLeft
	}
	return m
}

// directional bindings are ordered left, up, right, down
var directionOrder = [4]uint8{HatLeft, HatUp, HatRight, HatDown}

// sendMaskChange emits presses and releases for the bits that changed,
// releasing before pressing so a direction flip never holds both keys
func sendMaskChange(bindings []Binding, prev, next uint8, emit emitter) {
	if len(bindings) != len(directionOrder) {
		return
	}
	for i, bit := range directionOrder {
		if prev&bit != 0 && next&bit == 0 {
			sendBinding(bindings[i], false, emit)
		}
	}
	for i, bit := range directionOrder {
		if prev&bit == 0 && next&bit != 0 {
			sendBinding(bindings[i], true, emit)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type buttonRegion struct {
	center   r2.Vec
	radius   float64
	circle   bool
	box      r2.Box
	bindings []Binding
	gamepad  bool
	toggle   bool
	pressed  bool
}

func (b *buttonRegion) hit(p r2.Vec) bool {
	if b.circle {
		return r2.Norm(r2.Sub(p, b.center)) <= b.radius
	}
	return inBox(b.box, p)
}

func (b *buttonRegion) set(pressed bool, emit emitter) {
	if b.pressed == pressed {
		return
	}
	b.pressed = pressed
	for _, bind := range b.bindings {
		sendBinding(bind, pressed, emit)
	}
}

func (b *buttonRegion) down(_ r2.Vec, emit emitter) {
	if b.toggle {
		b.set(!b.pressed, emit)
		return
	}
	b.set(true, emit)
}

func (b *buttonRegion) move(r2.Vec, emitter) {}

func (b *buttonRegion) up(emit emitter, cancel bool) {
	if b.toggle && !cancel {
		return
	}
	b.set(false, emit)
}

type dpadRegion struct {
	center   r2.Vec
	half     float64
	box      r2.Box
	bindings []Binding
	gamepad  bool
	mask     uint8
}

func (d *dpadRegion) hit(p r2.Vec) bool { return inBox(d.box, p) }

func (d *dpadRegion) apply(mask uint8, emit emitter) {
	if mask == d.mask {
		return
	}
	if d.gamepad {
		emit(JoystickDpadEvent(0, mask))
	} else {
		sendMaskChange(d.bindings, d.mask, mask, emit)
	}
	d.mask = mask
}

func (d *dpadRegion) down(p r2.Vec, emit emitter) { d.move(p, emit) }

func (d *dpadRegion) move(p r2.Vec, emit emitter) {
	v := r2.Scale(1/d.half, r2.Sub(p, d.center))
	d.apply(directionMask(clamp(v.X, -1, 1), clamp(v.Y, -1, 1)), emit)
}

func (d *dpadRegion) up(emit emitter, _ bool) { d.apply(0, emit) }

type splitDpadRegion struct {
	box     r2.Box
	hat     uint8
	binding Binding
	gamepad bool
	shared  *splitState
	pressed bool
}

func (s *splitDpadRegion) hit(p r2.Vec) bool { return inBox(s.box, p) }

func (s *splitDpadRegion) set(pressed bool, emit emitter) {
	if s.pressed == pressed {
		return
	}
	s.pressed = pressed
	if pressed {
		s.shared.mask |= s.hat
	} else {
		s.shared.mask &^= s.hat
	}
	if s.gamepad {
		emit(JoystickDpadEvent(0, s.shared.mask))
		return
	}
	sendBinding(s.binding, pressed, emit)
}

func (s *splitDpadRegion) down(_ r2.Vec, emit emitter) { s.set(true, emit) }

func (s *splitDpadRegion) move(r2.Vec, emitter) {}

func (s *splitDpadRegion) up(emit emitter, _ bool) { s.set(false, emit) }

type stickRegion struct {
	center   r2.Vec
	radius   float64
	bindings []Binding
	gamepad  bool
	mask     uint8
	nx, ny   float64
}

func (s *stickRegion) hit(p r2.Vec) bool {
	return r2.Norm(r2.Sub(p, s.center)) <= s.radius
}

func (s *stickRegion) down(p r2.Vec, emit emitter) { s.move(p, emit) }

func (s *stickRegion) move(p r2.Vec, emit emitter) {
	d := r2.Sub(p, s.center)
	if n := r2.Norm(d); n > s.radius {
		d = r2.Scale(s.radius/n, d)
	}
	s.deflect(clamp(d.X*math.Sqrt2/s.radius, -1, 1), clamp(d.Y*math.Sqrt2/s.radius, -1, 1), emit)
}

func (s *stickRegion) up(emit emitter, _ bool) { s.deflect(0, 0, emit) }

func (s *stickRegion) deflect(nx, ny float64, emit emitter) {
	if s.gamepad {
		if nx == s.nx && ny == s.ny {
			return
		}
		s.nx, s.ny = nx, ny
		ax, ay := AxisLX, AxisLY
		if first(s.bindings) == RightJoystick {
			ax, ay = AxisRX, AxisRY
		}
		emit(JoystickAxisEvent(ax, float32(nx)))
		emit(JoystickAxisEvent(ay, float32(ny)))
		return
	}
	s.nx, s.ny = nx, ny
	mask := directionMask(nx, ny)
	if mask != s.mask {
		sendMaskChange(s.bindings, s.mask, mask, emit)
		s.mask = mask
	}
}

func inBox(b r2.Box, p r2.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}
