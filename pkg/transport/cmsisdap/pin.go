package cmsisdap

import (
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// Pin is one DAP_SWJ_Pins line. The probe cannot tristate its outputs: in
// Input mode writes are remembered and driven once the pin becomes an output
// again. TDO is input only.
type Pin struct {
	t    *Transport
	name string
	bit  byte

	mu    sync.Mutex
	mode  gpio.PinMode
	level bool
}

func newPin(t *Transport, name string, bit byte) *Pin {
	p := &Pin{t: t, name: name, bit: bit, mode: gpio.ModePushPull, level: true}
	if bit == PinTDO {
		p.mode = gpio.ModeInput
	}
	return p
}

func (p *Pin) output() bool {
	return p.mode == gpio.ModePushPull || p.mode == gpio.ModeOpenDrain
}

func (p *Pin) drive(level bool) error {
	var out byte
	if level {
		out = p.bit
	}
	_, err := p.t.swjPins(out, p.bit)
	return err
}

func (p *Pin) Read() (bool, error) {
	in, err := p.t.swjPins(0, 0)
	if err != nil {
		return false, err
	}
	return in&p.bit != 0, nil
}

func (p *Pin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bit == PinTDO {
		return fmt.Errorf("cmsisdap: pin %s is input only", p.name)
	}
	if p.output() {
		if err := p.drive(level); err != nil {
			return err
		}
	}
	p.level = level
	return nil
}

func (p *Pin) SetMode(mode gpio.PinMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch mode {
	case gpio.ModeInput:
	case gpio.ModePushPull, gpio.ModeOpenDrain:
		if p.bit == PinTDO {
			return fmt.Errorf("cmsisdap: pin %s is input only", p.name)
		}
		if !p.output() {
			if err := p.drive(p.level); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cmsisdap: pin %s: mode %s: %w", p.name, mode, transport.ErrNotImplemented)
	}
	p.mode = mode
	return nil
}

func (p *Pin) SetPullMode(pull gpio.PullMode) error {
	if pull != gpio.PullNone {
		return fmt.Errorf("cmsisdap: pin %s: pull mode %s: %w", p.name, pull, transport.ErrNotImplemented)
	}
	return nil
}

// Set applies pull mode, level and mode in that order.
func (p *Pin) Set(mode *gpio.PinMode, level *bool, pull *gpio.PullMode) error {
	return gpio.ApplySet(p, mode, level, pull)
}

var _ gpio.Pin = (*Pin)(nil)
