package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "xvenue-arb",
	Short: "Cross-venue binary event-contract arbitrage engine",
	Long: `xvenue-arb watches YES/NO event-contract quotes on V-Stream and V-RPC,
detects crossed parity (a YES ask on one venue plus a NO ask on the other
summing below $1.00 net of fees and slippage), sizes the opportunity
against available capital, and either executes it or logs it in dry mode.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
