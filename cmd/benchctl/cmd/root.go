package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose       bool
	confFiles     []string
	overrides     []string
	transportName string
	usbVID        uint16
	usbPID        uint16
	noDefaults    bool
)

var rootCmd = &cobra.Command{
	Use:   "benchctl",
	Short: "Drive debug hardware through board configuration files",
	Long: `benchctl loads board configuration fragments, resolves pin and bus aliases,
and drives the debug transport: GPIO pins, strapping groups and the target
reset sequence.

Every command starts a session: the configuration files are loaded (with their
includes), the override statements are added last, and the default pin and SPI
configuration is applied unless --no-defaults is given.

Examples:
  benchctl --conf board.yaml gpio read RESET_N
  benchctl --conf board.yaml strapping apply ROM_BOOTSTRAP
  benchctl --conf board.yaml reset --delay 50ms --clear-uart
  benchctl --conf board.yaml --override 'pin RESET_N level=low' config show
  benchctl --transport cmsisdap gpio write NRESET low`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringArrayVarP(&confFiles, "conf", "c", nil,
		"configuration file (repeatable, loaded in order)")
	flags.StringArrayVar(&overrides, "override", nil,
		"override statement, e.g. 'pin RESET_N level=low' (repeatable)")
	flags.StringVarP(&transportName, "transport", "t", "sim",
		"transport backend (sim, cmsisdap)")
	flags.Uint16Var(&usbVID, "vid", 0x2e8a, "USB vendor ID of the probe")
	flags.Uint16Var(&usbPID, "pid", 0x000c, "USB product ID of the probe")
	flags.BoolVar(&noDefaults, "no-defaults", false,
		"do not apply the default pin configuration at session start")
}
