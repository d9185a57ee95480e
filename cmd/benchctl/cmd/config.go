package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/config"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the consolidated configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the consolidated configuration",
	Long: `Load every fragment, resolve aliases and merge the declarations, then print
the result. The yaml format is itself a valid configuration file; the dump
format shows the Go values for debugging.

Examples:
  benchctl --conf board.yaml config show
  benchctl --conf board.yaml --override 'pin IOA0 level=high' config show --format dump`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml",
		"output format (yaml, dump)")
}

type pinEntry struct {
	name string
	conf bench.PinConfiguration
}

func sortedPins(m map[string]bench.PinConfiguration) []pinEntry {
	out := make([]pinEntry, 0, len(m))
	for name, conf := range m {
		out = append(out, pinEntry{name, conf})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func sortedAliases(m bench.AliasMap) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// consolidatedFile renders the wrapper state as a single fragment: alias
// declarations first, then one declaration per canonical name.
func consolidatedFile(w *bench.TransportWrapper) *config.File {
	f := &config.File{Interface: transportName}

	pinAliases := w.Aliases(transport.InterfaceGPIO)
	for _, name := range sortedAliases(pinAliases) {
		f.Pins = append(f.Pins, config.Pin{Name: name, AliasOf: pinAliases[name]})
	}
	for _, p := range sortedPins(w.PinConfigurations()) {
		f.Pins = append(f.Pins, config.Pin{
			Name:     p.name,
			Mode:     p.conf.Mode,
			Level:    p.conf.Level,
			PullMode: p.conf.PullMode,
		})
	}

	strappings := w.Strappings()
	for _, name := range w.StrappingNames() {
		s := config.Strapping{Name: name, Pins: []config.Pin{}}
		for _, p := range sortedPins(strappings[name]) {
			s.Pins = append(s.Pins, config.Pin{
				Name:     p.name,
				Mode:     p.conf.Mode,
				Level:    p.conf.Level,
				PullMode: p.conf.PullMode,
			})
		}
		f.Strappings = append(f.Strappings, s)
	}

	spiAliases := w.Aliases(transport.InterfaceSPI)
	spiConfs := w.SPIConfigurations()
	for _, name := range sortedAliases(spiAliases) {
		f.SPI = append(f.SPI, config.SPI{Name: name, AliasOf: spiAliases[name]})
	}
	spiNames := make([]string, 0, len(spiConfs))
	for name := range spiConfs {
		spiNames = append(spiNames, name)
	}
	sort.Strings(spiNames)
	for _, name := range spiNames {
		f.SPI = append(f.SPI, config.SPI{Name: name, BitsPerSec: spiConfs[name].BitsPerSec})
	}

	i2cAliases := w.Aliases(transport.InterfaceI2C)
	for _, name := range sortedAliases(i2cAliases) {
		f.I2C = append(f.I2C, config.I2C{Name: name, AliasOf: i2cAliases[name]})
	}
	uartAliases := w.Aliases(transport.InterfaceUART)
	for _, name := range sortedAliases(uartAliases) {
		f.UARTs = append(f.UARTs, config.UART{Name: name, AliasOf: uartAliases[name]})
	}
	return f
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if configFormat != "yaml" && configFormat != "dump" {
		return fmt.Errorf("unknown format %q (yaml, dump)", configFormat)
	}

	// Showing the configuration must not drive any pins.
	saved := noDefaults
	noDefaults = true
	defer func() { noDefaults = saved }()

	s, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	f := consolidatedFile(s.wrapper)
	switch configFormat {
	case "dump":
		cfg := spew.ConfigState{
			Indent:                  "  ",
			SortKeys:                true,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
		}
		cfg.Fdump(os.Stdout, f)
	default:
		data, err := config.Marshal(f)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	}
	return nil
}
