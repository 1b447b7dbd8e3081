package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "parlay-relay",
	Short: "Parlay auction relay",
	Long: `Parlay auction relay that brokers price discovery between takers and
market makers: a taker opens a short-lived auction for a bundle of yes/no
outcome predictions, makers race to submit signed bids, and the relay
validates, stores, and fans out every accepted bid.

No on-chain transaction happens until a consumer picks a winning bid and
hands the mint payload to the settlement step.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
