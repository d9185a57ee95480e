package bench

import (
	"context"
	"strings"
	"time"
)

const (
	// ResetStrapping is the strapping ResetTarget asserts.
	ResetStrapping = "RESET"
	// ConsoleUART is the port ResetTarget clears.
	ConsoleUART = "CONSOLE"
)

func (w *TransportWrapper) strapping(name string) (map[string]PinConfiguration, error) {
	confs, ok := w.strappings[strings.ToUpper(name)]
	if !ok {
		return nil, &InvalidStrappingNameError{Name: name}
	}
	return confs, nil
}

// ApplyPinStrapping drives every pin of the named strapping to its override
// configuration. An unknown name fails before any hardware is touched. A
// hardware failure stops the sequence and is returned as is; pins applied
// before it keep their strapped state.
func (w *TransportWrapper) ApplyPinStrapping(name string) error {
	confs, err := w.strapping(name)
	if err != nil {
		return err
	}
	return w.applyPinConfigurations(confs)
}

// RemovePinStrapping returns the pins of the named strapping to their default
// configuration. Pins with no default declaration are left as they are.
func (w *TransportWrapper) RemovePinStrapping(name string) error {
	confs, err := w.strapping(name)
	if err != nil {
		return err
	}
	for _, pin := range sortedKeys(confs) {
		def, ok := w.pinConf[pin]
		if !ok {
			continue
		}
		if err := w.applyPinConfiguration(pin, def); err != nil {
			return err
		}
	}
	return nil
}

// Strappings returns a copy of every consolidated strapping, keyed by the
// uppercased strapping name.
func (w *TransportWrapper) Strappings() map[string]map[string]PinConfiguration {
	out := make(map[string]map[string]PinConfiguration, len(w.strappings))
	for name, confs := range w.strappings {
		out[name] = copyConfs(confs)
	}
	return out
}

// StrappingNames lists the declared strappings in sorted order.
func (w *TransportWrapper) StrappingNames() []string {
	return sortedKeys(w.strappings)
}

// ResetTarget pulses the RESET strapping: assert, wait delay, optionally
// clear the console receive buffer, deassert, wait delay again. The first
// failing step ends the sequence; nothing is retried or rolled back. A ctx
// that is already done fails before the reset line is touched; otherwise
// both waits end early with ctx.Err() when ctx is cancelled.
func (w *TransportWrapper) ResetTarget(ctx context.Context, delay time.Duration, clearUARTRx bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.logger.Infof("Asserting the reset signal")
	if err := w.ApplyPinStrapping(ResetStrapping); err != nil {
		return err
	}
	if err := sleepContext(ctx, delay); err != nil {
		return err
	}
	if clearUARTRx {
		w.logger.Infof("Clearing the UART RX buffer")
		uart, err := w.UART(ConsoleUART)
		if err != nil {
			return err
		}
		if err := uart.ClearRxBuffer(); err != nil {
			return err
		}
	}
	w.logger.Infof("Deasserting the reset signal")
	if err := w.RemovePinStrapping(ResetStrapping); err != nil {
		return err
	}
	return sleepContext(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
