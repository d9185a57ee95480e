package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var (
	resetDelay     time.Duration
	resetClearUART bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the target through the RESET strapping",
	Long: `Assert the RESET strapping, wait, optionally clear the CONSOLE UART receive
buffer, deassert the strapping and wait again. Interrupting the command stops
the sequence at the current step.

Examples:
  benchctl --conf board.yaml reset
  benchctl --conf board.yaml reset --delay 200ms --clear-uart`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().DurationVar(&resetDelay, "delay", 100*time.Millisecond,
		"time to hold reset and to wait after releasing it")
	resetCmd.Flags().BoolVar(&resetClearUART, "clear-uart", false,
		"discard pending console UART input while reset is held")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.wrapper.ResetTarget(ctx, resetDelay, resetClearUART); err != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("reset interrupted: %w", err)
		}
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Println("Target reset")
	return nil
}
