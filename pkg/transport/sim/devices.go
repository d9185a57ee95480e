package sim

import (
	"github.com/OpenTraceLab/OpenTraceBench/pkg/bus"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// Pin is a simulated GPIO line.
type Pin struct {
	sim   *Transport
	name  string
	state PinState
}

func (p *Pin) Read() (bool, error) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpPinRead, p.name); err != nil {
		return false, err
	}
	return p.state.Level, nil
}

func (p *Pin) Write(level bool) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpPinWrite, p.name, level); err != nil {
		return err
	}
	p.state.Level = level
	return nil
}

func (p *Pin) SetMode(mode gpio.PinMode) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpPinMode, p.name, mode); err != nil {
		return err
	}
	p.state.Mode = mode
	return nil
}

func (p *Pin) SetPullMode(pull gpio.PullMode) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpPinPull, p.name, pull); err != nil {
		return err
	}
	p.state.Pull = pull
	return nil
}

// Set records a single pin.set call carrying the three optional settings, so
// tests can assert on whole configurations rather than on individual steps.
func (p *Pin) Set(mode *gpio.PinMode, level *bool, pull *gpio.PullMode) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpPinSet, p.name, mode, level, pull); err != nil {
		return err
	}
	if pull != nil {
		p.state.Pull = *pull
	}
	if level != nil {
		p.state.Level = *level
	}
	if mode != nil {
		p.state.Mode = *mode
	}
	return nil
}

// SPI is a simulated SPI target wired in loopback: reads return what was
// written.
type SPI struct {
	sim   *Transport
	name  string
	speed uint32
}

func (s *SPI) Tx(w, r []byte) error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if err := s.sim.recordLocked(OpSPITx, s.name, len(w), len(r)); err != nil {
		return err
	}
	copy(r, w)
	return nil
}

func (s *SPI) Transfer(b byte) (byte, error) {
	r := []byte{0}
	if err := s.Tx([]byte{b}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (s *SPI) SetMaxSpeed(bitsPerSec uint32) error {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	if err := s.sim.recordLocked(OpSPISpeed, s.name, bitsPerSec); err != nil {
		return err
	}
	s.speed = bitsPerSec
	return nil
}

func (s *SPI) MaxSpeed() (uint32, error) {
	s.sim.mu.Lock()
	defer s.sim.mu.Unlock()
	return s.speed, nil
}

// I2C is a simulated I2C bus on which every address acknowledges and reads
// return zeroes.
type I2C struct {
	sim   *Transport
	name  string
	speed uint32
}

func (b *I2C) Tx(addr uint16, w, r []byte) error {
	b.sim.mu.Lock()
	defer b.sim.mu.Unlock()
	if err := b.sim.recordLocked(OpI2CTx, b.name, addr, len(w), len(r)); err != nil {
		return err
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

func (b *I2C) SetMaxSpeed(bitsPerSec uint32) error {
	b.sim.mu.Lock()
	defer b.sim.mu.Unlock()
	if err := b.sim.recordLocked(OpI2CSpeed, b.name, bitsPerSec); err != nil {
		return err
	}
	b.speed = bitsPerSec
	return nil
}

// UART is a simulated serial port. Received data is queued with
// Transport.Feed; written data is kept for inspection.
type UART struct {
	sim  *Transport
	name string
	baud uint32
	rx   []byte
	tx   []byte
}

func (u *UART) Read(p []byte) (int, error) {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	if err := u.sim.recordLocked(OpUARTRead, u.name, len(p)); err != nil {
		return 0, err
	}
	n := copy(p, u.rx)
	u.rx = u.rx[n:]
	return n, nil
}

func (u *UART) Write(p []byte) (int, error) {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	if err := u.sim.recordLocked(OpUARTWrite, u.name, len(p)); err != nil {
		return 0, err
	}
	u.tx = append(u.tx, p...)
	return len(p), nil
}

func (u *UART) Baudrate() (uint32, error) {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	return u.baud, nil
}

func (u *UART) SetBaudrate(baud uint32) error {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	if err := u.sim.recordLocked(OpUARTBaud, u.name, baud); err != nil {
		return err
	}
	u.baud = baud
	return nil
}

func (u *UART) ClearRxBuffer() error {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	if err := u.sim.recordLocked(OpUARTClear, u.name); err != nil {
		return err
	}
	u.rx = nil
	return nil
}

// Pending reports how many received bytes are waiting to be read.
func (u *UART) Pending() int {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	return len(u.rx)
}

// Transmitted returns a copy of everything written so far.
func (u *UART) Transmitted() []byte {
	u.sim.mu.Lock()
	defer u.sim.mu.Unlock()
	return append([]byte(nil), u.tx...)
}

// Emulator is a simulated target model with a start/stop life cycle.
type Emulator struct {
	sim   *Transport
	state transport.EmulatorState
	args  map[string]string
}

func (e *Emulator) State() (transport.EmulatorState, error) {
	e.sim.mu.Lock()
	defer e.sim.mu.Unlock()
	if err := e.sim.recordLocked(OpEmuState, ""); err != nil {
		return transport.EmulatorError, err
	}
	return e.state, nil
}

func (e *Emulator) Start(args map[string]string) error {
	e.sim.mu.Lock()
	defer e.sim.mu.Unlock()
	if err := e.sim.recordLocked(OpEmuStart, "", args); err != nil {
		e.state = transport.EmulatorError
		return err
	}
	e.args = args
	e.state = transport.EmulatorRunning
	return nil
}

func (e *Emulator) Stop() error {
	e.sim.mu.Lock()
	defer e.sim.mu.Unlock()
	if err := e.sim.recordLocked(OpEmuStop, ""); err != nil {
		return err
	}
	e.state = transport.EmulatorOff
	return nil
}

type proxyOps struct {
	sim *Transport
}

func (p proxyOps) ProvidesMap() (map[string]string, error) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if err := p.sim.recordLocked(OpProxyQuery, ""); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(p.sim.proxy))
	for k, v := range p.sim.proxy {
		out[k] = v
	}
	return out, nil
}

var (
	_ gpio.Pin           = (*Pin)(nil)
	_ bus.SPITarget      = (*SPI)(nil)
	_ bus.I2CBus         = (*I2C)(nil)
	_ bus.UART           = (*UART)(nil)
	_ transport.Emulator = (*Emulator)(nil)
	_ transport.ProxyOps = proxyOps{}
)
