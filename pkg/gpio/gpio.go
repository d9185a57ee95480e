package gpio

import (
	"fmt"
	"strings"
)

// PinMode selects how a GPIO pin is driven.
type PinMode uint8

const (
	ModeInput PinMode = iota
	ModePushPull
	ModeOpenDrain
	ModeAnalogInput
	ModeAnalogOutput
	ModeAlternate
)

var pinModeNames = map[PinMode]string{
	ModeInput:        "Input",
	ModePushPull:     "PushPull",
	ModeOpenDrain:    "OpenDrain",
	ModeAnalogInput:  "AnalogInput",
	ModeAnalogOutput: "AnalogOutput",
	ModeAlternate:    "Alternate",
}

func (m PinMode) String() string {
	if name, ok := pinModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("PinMode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m PinMode) MarshalText() ([]byte, error) {
	name, ok := pinModeNames[m]
	if !ok {
		return nil, fmt.Errorf("gpio: invalid pin mode %d", uint8(m))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PinMode) UnmarshalText(text []byte) error {
	v, err := ParsePinMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParsePinMode accepts CamelCase, snake_case and kebab-case spellings,
// case-insensitively.
func ParsePinMode(s string) (PinMode, error) {
	key := normalize(s)
	for mode, name := range pinModeNames {
		if normalize(name) == key {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("gpio: unknown pin mode %q", s)
}

// PullMode selects the pull resistor attached to a pin.
type PullMode uint8

const (
	PullNone PullMode = iota
	PullUp
	PullDown
	WeakPullUp
	WeakPullDown
)

var pullModeNames = map[PullMode]string{
	PullNone:     "None",
	PullUp:       "PullUp",
	PullDown:     "PullDown",
	WeakPullUp:   "WeakPullUp",
	WeakPullDown: "WeakPullDown",
}

func (p PullMode) String() string {
	if name, ok := pullModeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PullMode(%d)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p PullMode) MarshalText() ([]byte, error) {
	name, ok := pullModeNames[p]
	if !ok {
		return nil, fmt.Errorf("gpio: invalid pull mode %d", uint8(p))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PullMode) UnmarshalText(text []byte) error {
	v, err := ParsePullMode(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePullMode is the PullMode counterpart of ParsePinMode.
func ParsePullMode(s string) (PullMode, error) {
	key := normalize(s)
	for mode, name := range pullModeNames {
		if normalize(name) == key {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("gpio: unknown pull mode %q", s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// Pin is a single GPIO line exposed by a transport backend.
type Pin interface {
	Read() (bool, error)
	Write(level bool) error
	SetMode(mode PinMode) error
	SetPullMode(pull PullMode) error
	// Set changes any combination of mode, level and pull mode in one call.
	// Nil arguments leave the corresponding setting untouched.
	Set(mode *PinMode, level *bool, pull *PullMode) error
}

// ApplySet is the generic Set sequence for backends that have no atomic
// multi-setting operation. The pull mode goes first, then the level, and the
// mode last, so a pin switching to output starts at its requested level.
func ApplySet(p Pin, mode *PinMode, level *bool, pull *PullMode) error {
	if pull != nil {
		if err := p.SetPullMode(*pull); err != nil {
			return err
		}
	}
	if level != nil {
		if err := p.Write(*level); err != nil {
			return err
		}
	}
	if mode != nil {
		if err := p.SetMode(*mode); err != nil {
			return err
		}
	}
	return nil
}
