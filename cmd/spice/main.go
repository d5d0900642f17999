// Command spice runs SPICE netlists and solves raw linear systems.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spice",
		Short: "Linear circuit simulator",
		Long: `spice simulates linear circuits described by SPICE netlists.

Supported elements: R, C, L, V, I (DC, SIN, PULSE, PWL sources).
Supported analyses: .op, .dc (single and nested), .tran (backward Euler).`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", os.Getenv("SPICE_CONFIG"), "YAML configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log solver statistics and print the assembled system")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spice v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSolveCmd())
	return rootCmd
}
