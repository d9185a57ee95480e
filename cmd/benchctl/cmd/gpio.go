package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/config"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/spf13/cobra"
)

var (
	gpioSetMode  string
	gpioSetLevel string
	gpioSetPull  string
)

var gpioCmd = &cobra.Command{
	Use:   "gpio",
	Short: "Read and drive GPIO pins",
	Long: `Read and drive GPIO pins by board name. Names are resolved through the pin
aliases of the loaded configuration; a pin aliased to NULL is accepted and
ignored.`,
}

var gpioReadCmd = &cobra.Command{
	Use:   "read NAME",
	Short: "Read the level of a pin",
	Args:  cobra.ExactArgs(1),
	RunE:  runGPIORead,
}

var gpioWriteCmd = &cobra.Command{
	Use:   "write NAME LEVEL",
	Short: "Drive a pin high or low",
	Long: `Drive a pin high or low. LEVEL is one of high/low, true/false, on/off or 1/0.

Examples:
  benchctl --conf board.yaml gpio write RESET_N low`,
	Args: cobra.ExactArgs(2),
	RunE: runGPIOWrite,
}

var gpioSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Change mode, level and pull mode of a pin in one step",
	Long: `Change any combination of mode, level and pull mode of a pin. Settings that
are not given are left as they are.

Examples:
  benchctl gpio set IOA0 --mode push-pull --level high
  benchctl gpio set IOA1 --mode input --pull weak-pull-up`,
	Args: cobra.ExactArgs(1),
	RunE: runGPIOSet,
}

func init() {
	rootCmd.AddCommand(gpioCmd)
	gpioCmd.AddCommand(gpioReadCmd, gpioWriteCmd, gpioSetCmd)

	gpioSetCmd.Flags().StringVar(&gpioSetMode, "mode", "",
		"pin mode (input, push-pull, open-drain, analog-input, analog-output, alternate)")
	gpioSetCmd.Flags().StringVar(&gpioSetLevel, "level", "",
		"output level (high, low)")
	gpioSetCmd.Flags().StringVar(&gpioSetPull, "pull", "",
		"pull mode (none, pull-up, pull-down, weak-pull-up, weak-pull-down)")
}

// describePin renders "NAME (CANONICAL)" when an alias was followed.
func describePin(s *session, name string) string {
	canonical, err := s.wrapper.ResolvePin(name)
	if err != nil || canonical == name {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, canonical)
}

func runGPIORead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	pin, err := s.wrapper.GPIOPin(args[0])
	if err != nil {
		return fmt.Errorf("gpio %s: %w", args[0], err)
	}
	level, err := pin.Read()
	if err != nil {
		return fmt.Errorf("gpio %s: read: %w", args[0], err)
	}
	fmt.Printf("%s: %s\n", describePin(s, args[0]), levelName(level))
	return nil
}

func runGPIOWrite(cmd *cobra.Command, args []string) error {
	level, err := config.ParseLevel(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	pin, err := s.wrapper.GPIOPin(args[0])
	if err != nil {
		return fmt.Errorf("gpio %s: %w", args[0], err)
	}
	if err := pin.Write(level); err != nil {
		return fmt.Errorf("gpio %s: write: %w", args[0], err)
	}
	fmt.Printf("%s set to %s\n", describePin(s, args[0]), levelName(level))
	return nil
}

func runGPIOSet(cmd *cobra.Command, args []string) error {
	var (
		mode  *gpio.PinMode
		level *bool
		pull  *gpio.PullMode
	)
	if gpioSetMode != "" {
		m, err := gpio.ParsePinMode(gpioSetMode)
		if err != nil {
			return err
		}
		mode = &m
	}
	if gpioSetLevel != "" {
		l, err := config.ParseLevel(gpioSetLevel)
		if err != nil {
			return err
		}
		level = &l
	}
	if gpioSetPull != "" {
		p, err := gpio.ParsePullMode(gpioSetPull)
		if err != nil {
			return err
		}
		pull = &p
	}
	if mode == nil && level == nil && pull == nil {
		return fmt.Errorf("must specify at least one of --mode, --level or --pull")
	}

	s, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	pin, err := s.wrapper.GPIOPin(args[0])
	if err != nil {
		return fmt.Errorf("gpio %s: %w", args[0], err)
	}
	if err := pin.Set(mode, level, pull); err != nil {
		return fmt.Errorf("gpio %s: set: %w", args[0], err)
	}
	fmt.Printf("%s configured\n", describePin(s, args[0]))
	return nil
}

func levelName(level bool) string {
	if level {
		return "high"
	}
	return "low"
}
