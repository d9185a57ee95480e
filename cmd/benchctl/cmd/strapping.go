package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strappingCmd = &cobra.Command{
	Use:   "strapping",
	Short: "Apply, remove and list pin strappings",
	Long: `A strapping is a named group of pin overrides, such as RESET or ROM_BOOTSTRAP.
Applying it drives its pins to the override configuration; removing it returns
them to their default configuration.`,
}

var strappingApplyCmd = &cobra.Command{
	Use:   "apply NAME",
	Short: "Apply a strapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.wrapper.ApplyPinStrapping(args[0]); err != nil {
			return err
		}
		fmt.Printf("Applied strapping %s\n", args[0])
		return nil
	},
}

var strappingRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a strapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.wrapper.RemovePinStrapping(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed strapping %s\n", args[0])
		return nil
	},
}

var strappingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the declared strappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer s.Close()

		strappings := s.wrapper.Strappings()
		names := s.wrapper.StrappingNames()
		if len(names) == 0 {
			fmt.Println("No strappings declared.")
			return nil
		}
		for _, name := range names {
			fmt.Printf("%s (%d pin(s))\n", name, len(strappings[name]))
			if verbose {
				for _, p := range sortedPins(strappings[name]) {
					fmt.Printf("  %s %s\n", p.name, p.conf)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strappingCmd)
	strappingCmd.AddCommand(strappingApplyCmd, strappingRemoveCmd, strappingListCmd)
}
