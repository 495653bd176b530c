package input

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// ElementType is the shape and behavior of a control
type ElementType string

const (
	ElementButtonCircle ElementType = "BUTTON_CIRCLE"
	ElementButtonRect   ElementType = "BUTTON_RECT"
	ElementDpad         ElementType = "DPAD"
	ElementDpadUp       ElementType = "DPAD_UP"
	ElementDpadRight    ElementType = "DPAD_RIGHT"
	ElementDpadDown     ElementType = "DPAD_DOWN"
	ElementDpadLeft     ElementType = "DPAD_LEFT"
	ElementStick        ElementType = "STICK"
)

// splitHat returns the hat bit of a split dpad element
func (t ElementType) splitHat() (uint8, bool) {
	switch t {
	case ElementDpadUp:
		return HatUp, true
	case ElementDpadRight:
		return HatRight, true
	case ElementDpadDown:
		return HatDown, true
	case ElementDpadLeft:
		return HatLeft, true
	}
	return 0, false
}

// InputType selects whether a control emulates keyboard/mouse or a gamepad
type InputType string

const (
	InputMNK     InputType = "MNK"
	InputGamepad InputType = "GAMEPAD"
)

const (
	MinScale = 0.5
	MaxScale = 2.0
)

// ElementDescription is one control as stored in a layout file
type ElementDescription struct {
	Type      ElementType `yaml:"type" json:"type"`
	InputType InputType   `yaml:"input_type" json:"input_type"`
	// CenterX and CenterY are relative to the screen, in (0, 1)
	CenterX  float64   `yaml:"center_x" json:"center_x"`
	CenterY  float64   `yaml:"center_y" json:"center_y"`
	Scale    float64   `yaml:"scale" json:"scale"`
	Alpha    int       `yaml:"alpha" json:"alpha"`
	Color    uint32    `yaml:"color" json:"color"`
	Text     string    `yaml:"text,omitempty" json:"text,omitempty"`
	Bindings []Binding `yaml:"bindings" json:"bindings"`
	Toggle   bool      `yaml:"toggle,omitempty" json:"toggle,omitempty"`
}

// Validate checks ranges and the binding count rules for the element type
func (d ElementDescription) Validate() error {
	if d.Scale < MinScale || d.Scale > MaxScale {
		return fmt.Errorf("scale must be in [%.1f, %.1f], got %g", MinScale, MaxScale, d.Scale)
	}
	if d.CenterX <= 0 || d.CenterX >= 1 || d.CenterY <= 0 || d.CenterY >= 1 {
		return fmt.Errorf("relative center must be in (0,1), got x=%g y=%g", d.CenterX, d.CenterY)
	}
	if d.Alpha < 0 || d.Alpha > 255 {
		return fmt.Errorf("alpha must be in [0,255], got %d", d.Alpha)
	}
	for _, b := range d.Bindings {
		if !b.Valid() {
			return fmt.Errorf("unknown binding %q", b)
		}
	}

	_, split := d.Type.splitHat()
	switch d.Type {
	case ElementButtonCircle, ElementButtonRect, ElementDpad, ElementStick:
	default:
		if !split {
			return fmt.Errorf("unknown element type %q", d.Type)
		}
	}

	switch d.InputType {
	case InputMNK:
		switch {
		case d.Type == ElementDpad || d.Type == ElementStick:
			if len(d.Bindings) != 4 {
				return fmt.Errorf("%s with MNK input must have exactly 4 bindings, got %d", d.Type, len(d.Bindings))
			}
		case split:
			if len(d.Bindings) != 1 {
				return fmt.Errorf("%s with MNK input must have exactly 1 binding, got %d", d.Type, len(d.Bindings))
			}
		}
		for _, b := range d.Bindings {
			if !b.ForMNK() {
				return fmt.Errorf("%s is not a keyboard or mouse binding", b)
			}
		}
	case InputGamepad:
		switch d.Type {
		case ElementStick:
			if len(d.Bindings) != 1 {
				return fmt.Errorf("STICK with GAMEPAD input must have exactly 1 binding, got %d", len(d.Bindings))
			}
			if d.Bindings[0] != LeftJoystick && d.Bindings[0] != RightJoystick {
				return fmt.Errorf("STICK with GAMEPAD input must bind to LEFT_JOYSTICK or RIGHT_JOYSTICK, got %s", d.Bindings[0])
			}
		case ElementButtonCircle, ElementButtonRect:
			for _, b := range d.Bindings {
				if !b.ForGamepad() {
					return fmt.Errorf("%s is not a gamepad button binding", b)
				}
			}
		}
	default:
		return fmt.Errorf("unknown input type %q", d.InputType)
	}
	return nil
}

// Layout is the set of on-screen controls
type Layout struct {
	Elements []ElementDescription `yaml:"elements" json:"elements"`
}

// Validate checks every element
func (l *Layout) Validate() error {
	var errList []error
	for i, e := range l.Elements {
		if err := e.Validate(); err != nil {
			errList = append(errList, fmt.Errorf("element %d (%s): %w", i, e.Type, err))
		}
	}
	return errors.Join(errList...)
}

// ParseLayout decodes a layout; JSON is detected by a leading brace
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := sonic.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("failed to parse layout JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout YAML: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return &l, nil
}

// LoadLayout reads and validates a layout file
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	return ParseLayout(data)
}

// Encode serializes the layout as YAML, or JSON for a .json path
func (l *Layout) Encode(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return sonic.ConfigStd.MarshalIndent(l, "", "  ")
	}
	return yaml.Marshal(l)
}

// Save validates and writes the layout atomically
func (l *Layout) Save(path string) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid layout: %w", err)
	}
	data, err := l.Encode(path)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit layout: %w", err)
	}
	return nil
}

const defaultColor = 0xFFCCCCCC

// DefaultLayout is a movement stick, a look-around mouse area and the
// handful of keys needed to get into a game
func DefaultLayout() *Layout {
	button := func(x, y float64, text string, b ...Binding) ElementDescription {
		return ElementDescription{
			Type: ElementButtonCircle, InputType: InputMNK,
			CenterX: x, CenterY: y, Scale: 1, Alpha: 200, Color: defaultColor,
			Text: text, Bindings: b,
		}
	}
	return &Layout{Elements: []ElementDescription{
		{
			Type: ElementStick, InputType: InputMNK,
			CenterX: 0.15, CenterY: 0.7, Scale: 1, Alpha: 200, Color: defaultColor,
			Bindings: []Binding{"KEY_A", "KEY_W", "KEY_D", "KEY_S"},
		},
		button(0.92, 0.55, "LMB", "MOUSE_BUTTON_LEFT"),
		button(0.82, 0.7, "RMB", "MOUSE_BUTTON_RIGHT"),
		button(0.92, 0.85, "Run", "KEY_SPACE"),
		button(0.05, 0.08, "Esc", "KEY_ESCAPE"),
		button(0.95, 0.08, "Tab", "KEY_TAB"),
	}}
}
