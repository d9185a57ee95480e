package bench

import (
	"strings"
	"sync"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bus"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// handle owns the backend transport. Every use borrows it for one call; a
// second borrow while the first is outstanding is a programming error.
type handle struct {
	mu sync.Mutex
	t  transport.Transport
}

func borrow[T any](h *handle, fn func(transport.Transport) (T, error)) (T, error) {
	if !h.mu.TryLock() {
		panic("bench: transport already borrowed (nested or concurrent hardware access)")
	}
	defer h.mu.Unlock()
	return fn(h.t)
}

// TransportWrapper is the name-resolving facade over one transport backend.
// Its configuration maps are fixed at Build; the only runtime action is
// driving the hardware.
type TransportWrapper struct {
	backend *handle
	logger  Logger

	pinMap  AliasMap
	spiMap  AliasMap
	i2cMap  AliasMap
	uartMap AliasMap

	pinConf    map[string]PinConfiguration
	spiConf    map[string]SpiConfiguration
	strappings map[string]map[string]PinConfiguration

	// nullAlias is the name the apply paths use for the canonical NULL pin,
	// so that they share the stand-in of the first pin declared as NULL.
	nullAlias string
	nullMu    sync.Mutex
	nullPins  map[string]*NullPin
}

// Capabilities reports what the backend supports.
func (w *TransportWrapper) Capabilities() (transport.Capabilities, error) {
	return borrow(w.backend, func(t transport.Transport) (transport.Capabilities, error) {
		return t.Capabilities()
	})
}

// GPIOPin returns the pin a user-facing name resolves to. Names resolving to
// NULL get a NullPin and never reach the backend.
func (w *TransportWrapper) GPIOPin(name string) (gpio.Pin, error) {
	resolved, err := w.pinMap.Resolve(name)
	if err != nil {
		return nil, err
	}
	if resolved == NullPinName {
		return w.nullPin(name), nil
	}
	return borrow(w.backend, func(t transport.Transport) (gpio.Pin, error) {
		return t.GPIOPin(resolved)
	})
}

// nullPin hands out one NullPin per requested name so that a pin warns once
// per session no matter how often it is looked up.
func (w *TransportWrapper) nullPin(name string) *NullPin {
	key := strings.ToUpper(name)
	w.nullMu.Lock()
	defer w.nullMu.Unlock()
	p, ok := w.nullPins[key]
	if !ok {
		p = newNullPin(key, w.logger)
		w.nullPins[key] = p
	}
	return p
}

// SPI returns the SPI target a user-facing name resolves to.
func (w *TransportWrapper) SPI(name string) (bus.SPITarget, error) {
	resolved, err := w.spiMap.Resolve(name)
	if err != nil {
		return nil, err
	}
	return borrow(w.backend, func(t transport.Transport) (bus.SPITarget, error) {
		return t.SPI(resolved)
	})
}

// I2C returns the I2C bus a user-facing name resolves to.
func (w *TransportWrapper) I2C(name string) (bus.I2CBus, error) {
	resolved, err := w.i2cMap.Resolve(name)
	if err != nil {
		return nil, err
	}
	return borrow(w.backend, func(t transport.Transport) (bus.I2CBus, error) {
		return t.I2C(resolved)
	})
}

// UART returns the serial port a user-facing name resolves to.
func (w *TransportWrapper) UART(name string) (bus.UART, error) {
	resolved, err := w.uartMap.Resolve(name)
	if err != nil {
		return nil, err
	}
	return borrow(w.backend, func(t transport.Transport) (bus.UART, error) {
		return t.UART(resolved)
	})
}

// Emulator returns the backend's emulator control, if it has one.
func (w *TransportWrapper) Emulator() (transport.Emulator, error) {
	return borrow(w.backend, func(t transport.Transport) (transport.Emulator, error) {
		return t.Emulator()
	})
}

// ProxyOps returns operations only available on proxy transports.
func (w *TransportWrapper) ProxyOps() (transport.ProxyOps, error) {
	return borrow(w.backend, func(t transport.Transport) (transport.ProxyOps, error) {
		return t.ProxyOps()
	})
}

// Dispatch invokes backend-specific functionality. What action may be and
// what comes back depends entirely on the backend.
func (w *TransportWrapper) Dispatch(action any) (any, error) {
	return borrow(w.backend, func(t transport.Transport) (any, error) {
		return t.Dispatch(action)
	})
}

func (w *TransportWrapper) applyPinConfiguration(name string, conf PinConfiguration) error {
	if name == NullPinName && w.nullAlias != "" {
		name = w.nullAlias
	}
	pin, err := w.GPIOPin(name)
	if err != nil {
		return err
	}
	return pin.Set(conf.Mode, conf.Level, conf.PullMode)
}

// applyPinConfigurations works through confs in name order and stops at the
// first failure.
func (w *TransportWrapper) applyPinConfigurations(confs map[string]PinConfiguration) error {
	for _, name := range sortedKeys(confs) {
		if err := w.applyPinConfiguration(name, confs[name]); err != nil {
			return err
		}
	}
	return nil
}

func (w *TransportWrapper) applySPIConfigurations(confs map[string]SpiConfiguration) error {
	for _, name := range sortedKeys(confs) {
		conf := confs[name]
		spi, err := w.SPI(name)
		if err != nil {
			return err
		}
		if conf.BitsPerSec != nil {
			if err := spi.SetMaxSpeed(*conf.BitsPerSec); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyDefaultConfiguration brings every declared pin and SPI target to the
// configuration given outside of any strapping section.
func (w *TransportWrapper) ApplyDefaultConfiguration() error {
	w.logger.Infof("Applying default configuration to %d pin(s) and %d SPI target(s)",
		len(w.pinConf), len(w.spiConf))
	if err := w.applyPinConfigurations(w.pinConf); err != nil {
		return err
	}
	return w.applySPIConfigurations(w.spiConf)
}

// PinConfigurations returns a copy of the consolidated default pin map.
func (w *TransportWrapper) PinConfigurations() map[string]PinConfiguration {
	return copyConfs(w.pinConf)
}

// SPIConfigurations returns a copy of the consolidated default SPI map.
func (w *TransportWrapper) SPIConfigurations() map[string]SpiConfiguration {
	return copyConfs(w.spiConf)
}

// Aliases returns a copy of the alias map for one interface kind. Kinds
// without names, such as the emulator, have none.
func (w *TransportWrapper) Aliases(kind transport.InterfaceType) AliasMap {
	switch kind {
	case transport.InterfaceGPIO:
		return w.pinMap.clone()
	case transport.InterfaceSPI:
		return w.spiMap.clone()
	case transport.InterfaceI2C:
		return w.i2cMap.clone()
	case transport.InterfaceUART:
		return w.uartMap.clone()
	}
	return AliasMap{}
}

// ResolvePin resolves a pin name without touching the backend.
func (w *TransportWrapper) ResolvePin(name string) (string, error) {
	return w.pinMap.Resolve(name)
}

func copyConfs[C any](m map[string]C) map[string]C {
	out := make(map[string]C, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
