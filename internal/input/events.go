package input

import "fmt"

// EventType tags an Event
type EventType uint8

const (
	EventKeyboard EventType = iota + 1
	EventCursorPos
	EventMouseMotion
	EventMouseButton
	EventChar
	EventJoystickConnected
	EventJoystickDisconnected
	EventJoystickAxis
	EventJoystickDpad
	EventJoystickButton
)

func (t EventType) String() string {
	switch t {
	case EventKeyboard:
		return "keyboard"
	case EventCursorPos:
		return "cursor_pos"
	case EventMouseMotion:
		return "mouse_motion"
	case EventMouseButton:
		return "mouse_button"
	case EventChar:
		return "char"
	case EventJoystickConnected:
		return "joystick_connected"
	case EventJoystickDisconnected:
		return "joystick_disconnected"
	case EventJoystickAxis:
		return "joystick_axis"
	case EventJoystickDpad:
		return "joystick_dpad"
	case EventJoystickButton:
		return "joystick_button"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Dpad hat bits
const (
	HatUp    uint8 = 0x1
	HatRight uint8 = 0x2
	HatDown  uint8 = 0x4
	HatLeft  uint8 = 0x8
)

// Joystick describes the virtual controller announced on connect
type Joystick struct {
	Name    string
	GUID    string
	Axes    int
	Buttons int
	Hats    int
}

// VirtualController matches the mapping the bridge registers with GLFW
var VirtualController = Joystick{
	Name:    "Zomdroid Controller",
	GUID:    "00000000000000000000000000000000",
	Axes:    6,
	Buttons: 15,
	Hats:    0,
}

// Event is one desktop input event. Only the fields for Type are set.
type Event struct {
	Type EventType

	// Code is the key, mouse button, joystick button, axis or dpad index
	Code    int
	Pressed bool

	X, Y float64

	Value float32
	Hat   uint8
	Char  rune

	Joystick *Joystick
}

func KeyEvent(key int, pressed bool) Event {
	return Event{Type: EventKeyboard, Code: key, Pressed: pressed}
}

func CursorPosEvent(x, y float64) Event {
	return Event{Type: EventCursorPos, X: x, Y: y}
}

func MouseMotionEvent(dx, dy float64) Event {
	return Event{Type: EventMouseMotion, X: dx, Y: dy}
}

func MouseButtonEvent(button int, pressed bool) Event {
	return Event{Type: EventMouseButton, Code: button, Pressed: pressed}
}

func CharEvent(r rune) Event {
	return Event{Type: EventChar, Char: r}
}

func JoystickConnectedEvent(j Joystick) Event {
	return Event{Type: EventJoystickConnected, Joystick: &j}
}

func JoystickDisconnectedEvent() Event {
	return Event{Type: EventJoystickDisconnected}
}

func JoystickAxisEvent(axis int, value float32) Event {
	return Event{Type: EventJoystickAxis, Code: axis, Value: value}
}

func JoystickDpadEvent(dpad int, hat uint8) Event {
	return Event{Type: EventJoystickDpad, Code: dpad, Hat: hat}
}

func JoystickButtonEvent(button int, pressed bool) Event {
	return Event{Type: EventJoystickButton, Code: button, Pressed: pressed}
}

// Releases reports whether e returns an input to rest: a key, button or
// dpad let go, a stick centered, a trigger back at -1 or a disconnect
func (e Event) Releases() bool {
	switch e.Type {
	case EventKeyboard, EventMouseButton, EventJoystickButton:
		return !e.Pressed
	case EventJoystickDpad:
		return e.Hat == 0
	case EventJoystickAxis:
		if e.Code == AxisLT || e.Code == AxisRT {
			return e.Value == -1
		}
		return e.Value == 0
	case EventJoystickDisconnected:
		return true
	default:
		return false
	}
}

func (e Event) String() string {
	switch e.Type {
	case EventKeyboard, EventMouseButton, EventJoystickButton:
		return fmt.Sprintf("%s{%d %t}", e.Type, e.Code, e.Pressed)
	case EventCursorPos, EventMouseMotion:
		return fmt.Sprintf("%s{%.2f %.2f}", e.Type, e.X, e.Y)
	case EventChar:
		return fmt.Sprintf("%s{%q}", e.Type, e.Char)
	case EventJoystickAxis:
		return fmt.Sprintf("%s{%d %.3f}", e.Type, e.Code, e.Value)
	case EventJoystickDpad:
		return fmt.Sprintf("%s{%d %#x}", e.Type, e.Code, e.Hat)
	default:
		return e.Type.String()
	}
}
