package cmd

import (
	"fmt"

	"github.com/mselser95/parlay-relay/internal/app"
	"github.com/mselser95/parlay-relay/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the auction relay server",
	Long: `Starts the auction relay, which will:
1. Accept auction.start requests from takers over WebSocket
2. Announce new auctions to every connected maker
3. Validate and append maker bids, extending auction deadlines as needed
4. Broadcast the updated bid list to each auction's subscribers

Metrics, health checks, and a live-auction snapshot API are served on the
same HTTP port.`,
	RunE: runRelay,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
