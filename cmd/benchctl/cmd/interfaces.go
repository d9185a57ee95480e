package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport/cmsisdap"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available debug probes",
	Long: `Scan the host for known debug probes (CMSIS-DAP, Picoprobe) and print a summary.
The simulator is always listed so commands can be tried without hardware.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	infos, err := cmsisdap.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	fmt.Println("Detected probes:")
	for _, p := range infos {
		if p.Kind == cmsisdap.ProbeKindSim {
			fmt.Printf("  - %s [%s]\n", p.Label(), p.Kind)
			continue
		}
		fmt.Printf("  - %s [%s] (VID:PID %04X:%04X)\n", p.Label(), p.Kind, p.VendorID, p.ProductID)
	}
	return nil
}
