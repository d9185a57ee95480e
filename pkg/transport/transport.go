package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bus"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
)

// InterfaceType names one family of debug interface a transport may offer.
type InterfaceType uint8

const (
	InterfaceGPIO InterfaceType = iota
	InterfaceSPI
	InterfaceI2C
	InterfaceUART
	InterfaceEmulator
	InterfaceProxyOps
)

func (t InterfaceType) String() string {
	switch t {
	case InterfaceGPIO:
		return "gpio"
	case InterfaceSPI:
		return "spi"
	case InterfaceI2C:
		return "i2c"
	case InterfaceUART:
		return "uart"
	case InterfaceEmulator:
		return "emulator"
	case InterfaceProxyOps:
		return "proxy"
	default:
		return fmt.Sprintf("interface(%d)", uint8(t))
	}
}

// Capabilities is the set of interfaces a transport reports as available.
type Capabilities struct {
	mask uint32
}

// NewCapabilities returns a capability set holding the given interfaces.
func NewCapabilities(types ...InterfaceType) Capabilities {
	var c Capabilities
	for _, t := range types {
		c.mask |= 1 << t
	}
	return c
}

// Has reports whether t is available.
func (c Capabilities) Has(t InterfaceType) bool {
	return c.mask&(1<<t) != 0
}

// Request checks that every requested interface is available.
func (c Capabilities) Request(types ...InterfaceType) error {
	var missing []InterfaceType
	for _, t := range types {
		if !c.Has(t) {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return &MissingCapabilitiesError{Missing: missing}
	}
	return nil
}

// EmulatorState is the coarse run state of a simulated target.
type EmulatorState string

const (
	EmulatorOff     EmulatorState = "off"
	EmulatorRunning EmulatorState = "running"
	EmulatorError   EmulatorState = "error"
)

// Emulator controls a software model of the target instead of silicon.
type Emulator interface {
	State() (EmulatorState, error)
	Start(args map[string]string) error
	Stop() error
}

// ProxyOps are only offered by transports that forward to a remote session.
type ProxyOps interface {
	// ProvidesMap reports the properties the remote side advertises.
	ProvidesMap() (map[string]string, error)
}

// Transport is one debug hardware backend. Instance names passed to the
// factories are canonical: callers resolve user aliases first.
type Transport interface {
	Capabilities() (Capabilities, error)
	GPIOPin(name string) (gpio.Pin, error)
	SPI(name string) (bus.SPITarget, error)
	I2C(name string) (bus.I2CBus, error)
	UART(name string) (bus.UART, error)
	Emulator() (Emulator, error)
	ProxyOps() (ProxyOps, error)
	// Dispatch runs a backend-specific action. The accepted action types and
	// the shape of the result are defined by each backend.
	Dispatch(action any) (any, error)
}

// ErrNotImplemented lets backends signal that a requested operation is not
// available yet.
var ErrNotImplemented = errors.New("transport: not implemented")

// InvalidInstanceError reports a name the backend does not know.
type InvalidInstanceError struct {
	Kind InterfaceType
	Name string
}

func (e *InvalidInstanceError) Error() string {
	return fmt.Sprintf("transport: invalid %s instance %q", e.Kind, e.Name)
}

// UnsupportedInterfaceError reports an interface family the backend lacks.
type UnsupportedInterfaceError struct {
	Kind InterfaceType
}

func (e *UnsupportedInterfaceError) Error() string {
	return fmt.Sprintf("transport: %s interface not supported", e.Kind)
}

// UnsupportedActionError is returned by Dispatch for unknown action types.
type UnsupportedActionError struct {
	Action any
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("transport: unsupported dispatch action %T", e.Action)
}

// MissingCapabilitiesError lists the interfaces a Request found missing.
type MissingCapabilitiesError struct {
	Missing []InterfaceType
}

func (e *MissingCapabilitiesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		names[i] = t.String()
	}
	return "transport: missing capabilities: " + strings.Join(names, ", ")
}
