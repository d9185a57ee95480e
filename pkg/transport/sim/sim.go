// Package sim provides an in-memory transport backend. It records every call
// made through it, in order and with a timestamp, and can be told to fail
// specific operations, which makes it the test double for the transport
// wrapper as well as a "no hardware" target for the command line tools.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bus"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// Op identifies a recorded backend operation.
type Op string

const (
	OpCapabilities Op = "capabilities"
	OpGPIOPin      Op = "gpio"
	OpSPI          Op = "spi"
	OpI2C          Op = "i2c"
	OpUART         Op = "uart"
	OpEmulator     Op = "emulator"
	OpProxyOps     Op = "proxy"
	OpDispatch     Op = "dispatch"

	OpPinRead    Op = "pin.read"
	OpPinWrite   Op = "pin.write"
	OpPinMode    Op = "pin.set_mode"
	OpPinPull    Op = "pin.set_pull_mode"
	OpPinSet     Op = "pin.set"
	OpSPISpeed   Op = "spi.set_max_speed"
	OpSPITx      Op = "spi.tx"
	OpI2CSpeed   Op = "i2c.set_max_speed"
	OpI2CTx      Op = "i2c.tx"
	OpUARTRead   Op = "uart.read"
	OpUARTWrite  Op = "uart.write"
	OpUARTBaud   Op = "uart.set_baudrate"
	OpUARTClear  Op = "uart.clear_rx_buffer"
	OpEmuStart   Op = "emulator.start"
	OpEmuStop    Op = "emulator.stop"
	OpEmuState   Op = "emulator.state"
	OpProxyQuery Op = "proxy.provides_map"
)

// Call is one recorded operation.
type Call struct {
	Op   Op
	Name string
	Args []any
	At   time.Time
}

func (c Call) String() string {
	if c.Name == "" {
		return fmt.Sprintf("%s%v", c.Op, c.Args)
	}
	return fmt.Sprintf("%s(%s)%v", c.Op, c.Name, c.Args)
}

// Echo is the dispatch action understood by the simulator; Dispatch returns
// Value unchanged.
type Echo struct {
	Value any
}

// PinState is the simulated electrical state of a pin.
type PinState struct {
	Mode  gpio.PinMode
	Level bool
	Pull  gpio.PullMode
}

type failKey struct {
	op   Op
	name string
}

// Transport is the simulator backend.
type Transport struct {
	mu sync.Mutex

	caps    transport.Capabilities
	known   map[transport.InterfaceType]map[string]bool
	pins    map[string]*Pin
	spis    map[string]*SPI
	i2cs    map[string]*I2C
	uarts   map[string]*UART
	emu     *Emulator
	proxy   map[string]string
	calls   []Call
	failOn  map[failKey]error
	nowFunc func() time.Time
}

// Option configures a simulator.
type Option func(*Transport)

// WithPins restricts the simulator to the listed pins; any other name fails
// with *transport.InvalidInstanceError. Without it pins are created on demand.
func WithPins(names ...string) Option {
	return withKnown(transport.InterfaceGPIO, names)
}

// WithSPI restricts the SPI targets, like WithPins.
func WithSPI(names ...string) Option {
	return withKnown(transport.InterfaceSPI, names)
}

// WithI2C restricts the I2C buses, like WithPins.
func WithI2C(names ...string) Option {
	return withKnown(transport.InterfaceI2C, names)
}

// WithUARTs restricts the UARTs, like WithPins.
func WithUARTs(names ...string) Option {
	return withKnown(transport.InterfaceUART, names)
}

// WithCapabilities overrides the reported capability set. By default the
// simulator reports GPIO, SPI, I2C, UART and emulator support.
func WithCapabilities(types ...transport.InterfaceType) Option {
	return func(t *Transport) {
		t.caps = transport.NewCapabilities(types...)
	}
}

// WithProxy makes ProxyOps available with the given provides map.
func WithProxy(provides map[string]string) Option {
	return func(t *Transport) {
		t.proxy = provides
		t.caps = transport.NewCapabilities(append(t.capList(), transport.InterfaceProxyOps)...)
	}
}

func withKnown(kind transport.InterfaceType, names []string) Option {
	return func(t *Transport) {
		set := t.known[kind]
		if set == nil {
			set = make(map[string]bool)
			t.known[kind] = set
		}
		for _, n := range names {
			set[n] = true
		}
	}
}

// New builds a simulator.
func New(opts ...Option) *Transport {
	t := &Transport{
		caps: transport.NewCapabilities(
			transport.InterfaceGPIO,
			transport.InterfaceSPI,
			transport.InterfaceI2C,
			transport.InterfaceUART,
			transport.InterfaceEmulator,
		),
		known:   make(map[transport.InterfaceType]map[string]bool),
		pins:    make(map[string]*Pin),
		spis:    make(map[string]*SPI),
		i2cs:    make(map[string]*I2C),
		uarts:   make(map[string]*UART),
		failOn:  make(map[failKey]error),
		nowFunc: time.Now,
	}
	t.emu = &Emulator{sim: t, state: transport.EmulatorOff}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) capList() []transport.InterfaceType {
	var out []transport.InterfaceType
	for k := transport.InterfaceGPIO; k <= transport.InterfaceProxyOps; k++ {
		if t.caps.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// FailOn makes every later call of op on the named instance return err. An
// empty name matches any instance.
func (t *Transport) FailOn(op Op, name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOn[failKey{op, name}] = err
}

// ClearFailures removes every injected failure.
func (t *Transport) ClearFailures() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failOn = make(map[failKey]error)
}

// Calls returns a copy of the call log.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// CallCount returns the number of recorded calls.
func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// ResetCalls clears the call log.
func (t *Transport) ResetCalls() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
}

// PinState reports the simulated state of a pin and whether it has been
// touched at all.
func (t *Transport) PinState(name string) (PinState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pins[name]
	if !ok {
		return PinState{}, false
	}
	return p.state, true
}

// Drive forces the level seen by reads of a pin, as an external driver would.
func (t *Transport) Drive(name string, level bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pinLocked(name).state.Level = level
}

// record logs a call and returns any injected failure for it.
func (t *Transport) record(op Op, name string, args ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordLocked(op, name, args...)
}

func (t *Transport) recordLocked(op Op, name string, args ...any) error {
	t.calls = append(t.calls, Call{Op: op, Name: name, Args: args, At: t.nowFunc()})
	if err, ok := t.failOn[failKey{op, name}]; ok {
		return err
	}
	if err, ok := t.failOn[failKey{op, ""}]; ok {
		return err
	}
	return nil
}

func (t *Transport) checkKnown(kind transport.InterfaceType, name string) error {
	if !t.caps.Has(kind) {
		return &transport.UnsupportedInterfaceError{Kind: kind}
	}
	if set, restricted := t.known[kind]; restricted && !set[name] {
		return &transport.InvalidInstanceError{Kind: kind, Name: name}
	}
	return nil
}

func (t *Transport) pinLocked(name string) *Pin {
	p, ok := t.pins[name]
	if !ok {
		p = &Pin{sim: t, name: name}
		t.pins[name] = p
	}
	return p
}

// Capabilities implements transport.Transport.
func (t *Transport) Capabilities() (transport.Capabilities, error) {
	if err := t.record(OpCapabilities, ""); err != nil {
		return transport.Capabilities{}, err
	}
	return t.caps, nil
}

// GPIOPin implements transport.Transport.
func (t *Transport) GPIOPin(name string) (gpio.Pin, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.recordLocked(OpGPIOPin, name); err != nil {
		return nil, err
	}
	if err := t.checkKnown(transport.InterfaceGPIO, name); err != nil {
		return nil, err
	}
	return t.pinLocked(name), nil
}

// SPI implements transport.Transport.
func (t *Transport) SPI(name string) (bus.SPITarget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.recordLocked(OpSPI, name); err != nil {
		return nil, err
	}
	if err := t.checkKnown(transport.InterfaceSPI, name); err != nil {
		return nil, err
	}
	s, ok := t.spis[name]
	if !ok {
		s = &SPI{sim: t, name: name}
		t.spis[name] = s
	}
	return s, nil
}

// I2C implements transport.Transport.
func (t *Transport) I2C(name string) (bus.I2CBus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.recordLocked(OpI2C, name); err != nil {
		return nil, err
	}
	if err := t.checkKnown(transport.InterfaceI2C, name); err != nil {
		return nil, err
	}
	b, ok := t.i2cs[name]
	if !ok {
		b = &I2C{sim: t, name: name}
		t.i2cs[name] = b
	}
	return b, nil
}

// UART implements transport.Transport.
func (t *Transport) UART(name string) (bus.UART, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uartLocked(name, true)
}

func (t *Transport) uartLocked(name string, record bool) (*UART, error) {
	if record {
		if err := t.recordLocked(OpUART, name); err != nil {
			return nil, err
		}
	}
	if err := t.checkKnown(transport.InterfaceUART, name); err != nil {
		return nil, err
	}
	u, ok := t.uarts[name]
	if !ok {
		u = &UART{sim: t, name: name, baud: 115200}
		t.uarts[name] = u
	}
	return u, nil
}

// Feed queues bytes as if the target had sent them on the named UART.
func (t *Transport) Feed(name string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, err := t.uartLocked(name, false)
	if err != nil {
		return err
	}
	u.rx = append(u.rx, data...)
	return nil
}

// Emulator implements transport.Transport.
func (t *Transport) Emulator() (transport.Emulator, error) {
	if err := t.record(OpEmulator, ""); err != nil {
		return nil, err
	}
	if !t.caps.Has(transport.InterfaceEmulator) {
		return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceEmulator}
	}
	return t.emu, nil
}

// ProxyOps implements transport.Transport.
func (t *Transport) ProxyOps() (transport.ProxyOps, error) {
	if err := t.record(OpProxyOps, ""); err != nil {
		return nil, err
	}
	if !t.caps.Has(transport.InterfaceProxyOps) {
		return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceProxyOps}
	}
	return proxyOps{sim: t}, nil
}

// Dispatch implements transport.Transport. Only Echo is understood.
func (t *Transport) Dispatch(action any) (any, error) {
	if err := t.record(OpDispatch, fmt.Sprintf("%T", action), action); err != nil {
		return nil, err
	}
	switch a := action.(type) {
	case Echo:
		return a.Value, nil
	case *Echo:
		if a == nil {
			return nil, &transport.UnsupportedActionError{Action: action}
		}
		return a.Value, nil
	default:
		return nil, &transport.UnsupportedActionError{Action: action}
	}
}

var _ transport.Transport = (*Transport)(nil)
