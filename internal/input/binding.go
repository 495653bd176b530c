package input

import (
	"fmt"
	"sort"
)

// Binding names a desktop key, button, axis or stick a control sends
type Binding string

// BindingKind groups bindings by the event they produce
type BindingKind uint8

const (
	KindKey BindingKind = iota + 1
	KindMouseButton
	KindGamepadButton
	KindTrigger
	KindAxis
	KindJoystick
)

type bindingInfo struct {
	code int
	kind BindingKind
}

// Gamepad axes
const (
	AxisLX = 0
	AxisLY = 1
	AxisRX = 2
	AxisRY = 3
	AxisLT = 4
	AxisRT = 5
)

// Keys the translator sends on its own
const (
	KeyBackspace = 8
	KeyMinus     = 45
	KeyEqual     = 61
	MouseLeft    = 0
)

const (
	LeftJoystick  Binding = "LEFT_JOYSTICK"
	RightJoystick Binding = "RIGHT_JOYSTICK"
)

var bindings = map[Binding]bindingInfo{}

func register(name string, code int, kind BindingKind) {
	bindings[Binding(name)] = bindingInfo{code: code, kind: kind}
}

func init() {
	register("KEY_SPACE", 32, KindKey)
	register("KEY_APOSTROPHE", 39, KindKey)
	register("KEY_COMMA", 44, KindKey)
	register("KEY_MINUS", 45, KindKey)
	register("KEY_PERIOD", 46, KindKey)
	register("KEY_SLASH", 47, KindKey)
	for c := '0'; c <= '9'; c++ {
		register("KEY_"+string(c), int(c), KindKey)
	}
	register("KEY_SEMICOLON", 59, KindKey)
	register("KEY_EQUAL", 61, KindKey)
	for c := 'A'; c <= 'Z'; c++ {
		register("KEY_"+string(c), int(c), KindKey)
	}
	register("KEY_LEFT_BRACKET", 91, KindKey)
	register("KEY_BACKSLASH", 92, KindKey)
	register("KEY_RIGHT_BRACKET", 93, KindKey)
	register("KEY_GRAVE_ACCENT", 96, KindKey)
	register("KEY_WORLD_1", 161, KindKey)
	register("KEY_WORLD_2", 162, KindKey)

	register("KEY_ESCAPE", 27, KindKey)
	register("KEY_ENTER", 13, KindKey)
	register("KEY_TAB", 9, KindKey)
	register("KEY_BACKSPACE", 8, KindKey)
	register("KEY_RIGHT", 262, KindKey)
	register("KEY_LEFT", 263, KindKey)
	register("KEY_DOWN", 264, KindKey)
	register("KEY_UP", 265, KindKey)

	register("MOUSE_BUTTON_LEFT", 0, KindMouseButton)
	register("MOUSE_BUTTON_RIGHT", 1, KindMouseButton)
	register("MOUSE_BUTTON_WHEEL", 2, KindMouseButton)
	for i := 4; i <= 8; i++ {
		register(fmt.Sprintf("MOUSE_BUTTON_%d", i), i-1, KindMouseButton)
	}

	for i, name := range []string{"A", "B", "X", "Y", "LB", "RB", "BACK", "START", "GUIDE", "LSTICK", "RSTICK"} {
		register("GAMEPAD_BUTTON_"+name, i, KindGamepadButton)
	}
	register("GAMEPAD_LTRIGGER", AxisLT, KindTrigger)
	register("GAMEPAD_RTRIGGER", AxisRT, KindTrigger)

	for i, name := range []string{"LX", "LY", "RX", "RY", "LT", "RT"} {
		register("GAMEPAD_AXIS_"+name, i, KindAxis)
	}

	register(string(LeftJoystick), -1, KindJoystick)
	register(string(RightJoystick), -1, KindJoystick)
}

// ParseBinding looks a binding up by name
func ParseBinding(name string) (Binding, error) {
	b := Binding(name)
	if _, ok := bindings[b]; !ok {
		return "", fmt.Errorf("unknown binding %q", name)
	}
	return b, nil
}

// Valid reports whether b is a known binding
func (b Binding) Valid() bool {
	_, ok := bindings[b]
	return ok
}

// Code returns the GLFW code, or -1 for stick bindings
func (b Binding) Code() int {
	if info, ok := bindings[b]; ok {
		return info.code
	}
	return -1
}

// Kind returns the binding's event group, zero when unknown
func (b Binding) Kind() BindingKind {
	return bindings[b].kind
}

// ForMNK reports whether b can be sent by a mouse-and-keyboard control
func (b Binding) ForMNK() bool {
	k := b.Kind()
	return k == KindKey || k == KindMouseButton
}

// ForGamepad reports whether b can be sent by a gamepad button
func (b Binding) ForGamepad() bool {
	k := b.Kind()
	return k == KindGamepadButton || k == KindTrigger
}

// Bindings lists every binding of kind, sorted by name
func Bindings(kind BindingKind) []Binding {
	var out []Binding
	for b, info := range bindings {
		if info.kind == kind {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
