package bench

import (
	"sync/atomic"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
)

// NullPinName is the canonical name that marks a pin as unsupported by the
// current transport. Generic strapping files may mention such a pin; aliasing
// it to NULL makes every access harmless instead of an error.
const NullPinName = "NULL"

// NullPin stands in for a pin aliased to NULL. Reads return false and every
// other operation succeeds without doing anything. The first access logs a
// warning; later accesses are silent.
type NullPin struct {
	name   string
	logger Logger
	warned atomic.Bool
}

func newNullPin(name string, logger Logger) *NullPin {
	return &NullPin{name: name, logger: logger}
}

func (p *NullPin) warn() {
	if p.warned.CompareAndSwap(false, true) {
		p.logger.Warnf("Accessed NULL pin %s", p.name)
	}
}

func (p *NullPin) Read() (bool, error) {
	p.warn()
	return false, nil
}

func (p *NullPin) Write(bool) error {
	p.warn()
	return nil
}

func (p *NullPin) SetMode(gpio.PinMode) error {
	p.warn()
	return nil
}

func (p *NullPin) SetPullMode(gpio.PullMode) error {
	p.warn()
	return nil
}

func (p *NullPin) Set(*gpio.PinMode, *bool, *gpio.PullMode) error {
	p.warn()
	return nil
}

var _ gpio.Pin = (*NullPin)(nil)
