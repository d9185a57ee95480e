package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/config"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport/cmsisdap"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport/sim"
)

// session is one open transport wrapped with the loaded configuration.
type session struct {
	wrapper *bench.TransportWrapper
	closeFn func() error
}

func (s *session) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// createTransport opens the backend selected by --transport.
func createTransport(name string) (transport.Transport, func() error, error) {
	switch name {
	case "sim", "simulator":
		if verbose {
			fmt.Println("Using simulator transport")
		}
		return sim.New(), nil, nil
	case "cmsisdap", "cmsis-dap":
		if verbose {
			fmt.Printf("Opening CMSIS-DAP probe %04X:%04X...\n", usbVID, usbPID)
		}
		t, err := cmsisdap.Open(usbVID, usbPID)
		if err != nil {
			return nil, nil, err
		}
		if verbose {
			info := t.Info()
			fmt.Printf("Probe: %s %s (serial %s, firmware %s)\n", info.Vendor, info.Product, info.Serial, info.Firmware)
		}
		return t, t.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (sim, cmsisdap)", name)
	}
}

// loadFragments returns the configuration files in load order followed by
// the command line overrides.
func loadFragments() ([]*config.File, error) {
	files, err := config.LoadFiles(confFiles...)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		f, err := config.ParseOverrides(overrides...)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func newLogger(w io.Writer) bench.Logger {
	l := bench.NewStdLogger(log.New(w, "benchctl: ", 0))
	if verbose {
		return l
	}
	return bench.WarningsOnly(l)
}

// openSession loads the configuration, opens the transport and, unless
// --no-defaults is set, applies the default configuration.
func openSession(stderr io.Writer) (*session, error) {
	files, err := loadFragments()
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Printf("Loaded %d configuration fragment(s)\n", len(files))
	}

	t, closeFn, err := createTransport(transportName)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	s := &session{closeFn: closeFn}

	b := bench.NewTransportWrapperBuilder(t, bench.WithLogger(newLogger(stderr)))
	for _, f := range files {
		if err := b.AddConfigurationFile(f); err != nil {
			s.Close()
			return nil, err
		}
	}
	s.wrapper, err = b.Build()
	if err != nil {
		s.Close()
		return nil, err
	}

	if !noDefaults {
		if err := s.wrapper.ApplyDefaultConfiguration(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to apply default configuration: %w", err)
		}
	}
	return s, nil
}
