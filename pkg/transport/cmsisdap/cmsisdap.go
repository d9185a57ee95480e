// Package cmsisdap is a transport backend for CMSIS-DAP debug probes. The
// probe's JTAG/SWD lines and its nRESET output are exposed as GPIO pins through
// DAP_SWJ_Pins; the probe offers no SPI, I2C, UART or emulator interface.
package cmsisdap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bus"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// DefaultClockHz is programmed at open.
const DefaultClockHz = 1_000_000

// Info is what the probe reports about itself.
type Info struct {
	Vendor     string
	Product    string
	Serial     string
	Firmware   string
	PacketSize int
}

// Dispatch actions understood by the CMSIS-DAP backend.
type (
	// ResetTarget runs the probe's device specific reset sequence. The
	// result is a bool reporting whether the probe executed one.
	ResetTarget struct{}
	// SetClock programs the SWJ clock.
	SetClock struct{ Hz uint32 }
	// ReadInfo queries one DAP_Info string.
	ReadInfo struct{ ID byte }
)

// pinBits maps pin names to DAP_SWJ_Pins bits.
var pinBits = map[string]byte{
	"TCK":    PinTCK,
	"SWCLK":  PinTCK,
	"TMS":    PinTMS,
	"SWDIO":  PinTMS,
	"TDI":    PinTDI,
	"TDO":    PinTDO,
	"NTRST":  PinNTRST,
	"NRESET": PinNRESET,
}

// Transport is an open CMSIS-DAP probe.
type Transport struct {
	link     link
	protocol *Protocol
	info     Info

	mu   sync.Mutex // serializes probe transactions
	pins map[byte]*Pin

	// settle is the DAP_SWJ_Pins wait time in microseconds.
	settle uint32
}

// Open connects to the first probe matching vid:pid.
func Open(vid, pid uint16) (*Transport, error) {
	l, err := openUSB(vid, pid, DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: failed to open USB device: %w", err)
	}
	t, err := newTransport(l)
	if err != nil {
		l.Close()
		return nil, err
	}
	return t, nil
}

func newTransport(l link) (*Transport, error) {
	t := &Transport{
		link:     l,
		protocol: NewProtocol(l.PacketSize()),
		pins:     make(map[byte]*Pin),
	}
	if err := t.queryInfo(); err != nil {
		return nil, fmt.Errorf("cmsisdap: failed to query device info: %w", err)
	}
	if err := t.connect(); err != nil {
		return nil, fmt.Errorf("cmsisdap: failed to connect: %w", err)
	}
	if err := t.setClock(DefaultClockHz); err != nil {
		return nil, fmt.Errorf("cmsisdap: failed to set default clock: %w", err)
	}
	return t, nil
}

func (t *Transport) transact(cmd []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.link.WriteRead(cmd)
}

func (t *Transport) readInfo(id byte) (string, error) {
	resp, err := t.transact(t.protocol.EncodeInfo(id))
	if err != nil {
		return "", err
	}
	return t.protocol.DecodeInfo(resp)
}

func (t *Transport) queryInfo() error {
	vendor, err := t.readInfo(InfoVendorID)
	if err != nil {
		return err
	}
	// The remaining strings are optional.
	product, _ := t.readInfo(InfoProductID)
	serial, _ := t.readInfo(InfoSerialNum)
	firmware, _ := t.readInfo(InfoFirmwareVer)

	t.info = Info{
		Vendor:     vendor,
		Product:    product,
		Serial:     serial,
		Firmware:   firmware,
		PacketSize: t.link.PacketSize(),
	}

	resp, err := t.transact(t.protocol.EncodeInfo(InfoPacketSize))
	if err != nil {
		return err
	}
	if size, err := t.protocol.DecodeInfoUint16(resp); err == nil && size > 0 {
		t.info.PacketSize = int(size)
		t.protocol.PacketSize = int(size)
	}
	return nil
}

func (t *Transport) connect() error {
	resp, err := t.transact(t.protocol.EncodeConnect(PortDefault))
	if err != nil {
		return err
	}
	_, err = t.protocol.DecodeConnect(resp)
	return err
}

func (t *Transport) setClock(hz uint32) error {
	resp, err := t.transact(t.protocol.EncodeSetClock(hz))
	if err != nil {
		return err
	}
	return t.protocol.DecodeSetClock(resp)
}

func (t *Transport) resetTarget() (bool, error) {
	resp, err := t.transact(t.protocol.EncodeResetTarget())
	if err != nil {
		return false, err
	}
	return t.protocol.DecodeResetTarget(resp)
}

// swjPins drives the selected pins and returns the sampled inputs.
func (t *Transport) swjPins(out, sel byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmd, err := t.protocol.EncodeSWJPins(out, sel, t.settle)
	if err != nil {
		return 0, err
	}
	resp, err := t.link.WriteRead(cmd)
	if err != nil {
		return 0, err
	}
	return t.protocol.DecodeSWJPins(resp)
}

// Info returns what the probe reported at open.
func (t *Transport) Info() Info {
	return t.info
}

// Close disconnects from the target and releases the probe.
func (t *Transport) Close() error {
	resp, err := t.transact(t.protocol.EncodeDisconnect())
	if err == nil {
		err = t.protocol.DecodeDisconnect(resp)
	}
	if cerr := t.link.Close(); err == nil {
		err = cerr
	}
	return err
}

// Capabilities implements transport.Transport.
func (t *Transport) Capabilities() (transport.Capabilities, error) {
	return transport.NewCapabilities(transport.InterfaceGPIO), nil
}

// GPIOPin implements transport.Transport. Names are case insensitive.
func (t *Transport) GPIOPin(name string) (gpio.Pin, error) {
	bit, ok := pinBits[strings.ToUpper(name)]
	if !ok {
		return nil, &transport.InvalidInstanceError{Kind: transport.InterfaceGPIO, Name: name}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pins[bit]
	if !ok {
		p = newPin(t, strings.ToUpper(name), bit)
		t.pins[bit] = p
	}
	return p, nil
}

func (t *Transport) SPI(string) (bus.SPITarget, error) {
	return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceSPI}
}

func (t *Transport) I2C(string) (bus.I2CBus, error) {
	return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceI2C}
}

func (t *Transport) UART(string) (bus.UART, error) {
	return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceUART}
}

func (t *Transport) Emulator() (transport.Emulator, error) {
	return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceEmulator}
}

func (t *Transport) ProxyOps() (transport.ProxyOps, error) {
	return nil, &transport.UnsupportedInterfaceError{Kind: transport.InterfaceProxyOps}
}

// Dispatch implements transport.Transport for ResetTarget, SetClock and
// ReadInfo actions.
func (t *Transport) Dispatch(action any) (any, error) {
	switch a := action.(type) {
	case ResetTarget:
		return t.resetTarget()
	case SetClock:
		if a.Hz == 0 {
			return nil, fmt.Errorf("cmsisdap: clock must be positive")
		}
		return nil, t.setClock(a.Hz)
	case ReadInfo:
		return t.readInfo(a.ID)
	default:
		return nil, &transport.UnsupportedActionError{Action: action}
	}
}

// MaxSettleTime is the longest pin wait DAP_SWJ_Pins accepts.
const MaxSettleTime = 3 * time.Second

// SetSettleTime sets how long the probe waits after driving pins before it
// samples them. d is truncated to whole microseconds.
func (t *Transport) SetSettleTime(d time.Duration) error {
	if d < 0 || d > MaxSettleTime {
		return fmt.Errorf("cmsisdap: settle time %v out of range (0 to %v)", d, MaxSettleTime)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settle = uint32(d / time.Microsecond)
	return nil
}

var _ transport.Transport = (*Transport)(nil)
