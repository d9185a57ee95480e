package bench

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
)

// PinConfiguration is a possibly partial pin declaration. A nil field is
// unset, which is different from any concrete value.
type PinConfiguration struct {
	Mode     *gpio.PinMode
	Level    *bool
	PullMode *gpio.PullMode
}

// IsEmpty reports whether no field is set.
func (c PinConfiguration) IsEmpty() bool {
	return c.Mode == nil && c.Level == nil && c.PullMode == nil
}

// Merge combines two partial declarations of the same pin. Fields set in only
// one of them are taken from that one; fields set to the same value in both
// are kept; fields set to different values fail with *ConflictError. The
// receiver is not modified.
//
// One file often declares OpenDrain without a level while another declares
// the level only; Merge is what lets both contribute.
func (c PinConfiguration) Merge(other PinConfiguration) (PinConfiguration, error) {
	var (
		out PinConfiguration
		err error
	)
	if out.Mode, err = mergeField("mode", c.Mode, other.Mode); err != nil {
		return c, err
	}
	if out.Level, err = mergeField("level", c.Level, other.Level); err != nil {
		return c, err
	}
	if out.PullMode, err = mergeField("pull_mode", c.PullMode, other.PullMode); err != nil {
		return c, err
	}
	return out, nil
}

func (c PinConfiguration) String() string {
	var parts []string
	if c.Mode != nil {
		parts = append(parts, "mode="+c.Mode.String())
	}
	if c.Level != nil {
		parts = append(parts, "level="+levelString(*c.Level))
	}
	if c.PullMode != nil {
		parts = append(parts, "pull_mode="+c.PullMode.String())
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// SpiConfiguration is a possibly partial SPI target declaration.
type SpiConfiguration struct {
	BitsPerSec *uint32
}

// IsEmpty reports whether no field is set.
func (c SpiConfiguration) IsEmpty() bool {
	return c.BitsPerSec == nil
}

// Merge follows the same rules as PinConfiguration.Merge.
func (c SpiConfiguration) Merge(other SpiConfiguration) (SpiConfiguration, error) {
	speed, err := mergeField("bits_per_sec", c.BitsPerSec, other.BitsPerSec)
	if err != nil {
		return c, err
	}
	return SpiConfiguration{BitsPerSec: speed}, nil
}

func (c SpiConfiguration) String() string {
	if c.BitsPerSec == nil {
		return "{}"
	}
	return fmt.Sprintf("{bits_per_sec=%d}", *c.BitsPerSec)
}

// mergeField returns a fresh copy of the merged value so that the result
// never aliases caller-owned declarations.
func mergeField[T comparable](field string, dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, nil
	case dst == nil:
		v := *src
		return &v, nil
	case src != nil && *dst != *src:
		return nil, &ConflictError{Field: field, Existing: *dst, Incoming: *src}
	default:
		v := *dst
		return &v, nil
	}
}

func levelString(level bool) string {
	if level {
		return "high"
	}
	return "low"
}
