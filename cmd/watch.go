package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mselser95/parlay-relay/internal/aggregator"
	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchAuctionIDs []string

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch auctions and track the best bid",
	Long: `Connects to the relay, subscribes to the given auctions (and every
new auction announced while connected), and prints the best live bid with
its implied probability on every bid-list update. Runs until interrupted.`,
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	watchCmd.Flags().StringSliceVar(&watchAuctionIDs, "auction-id", nil, "auction to watch (repeatable; omit to watch new auctions only)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadClientDeps()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	client, err := newRelayClient(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if len(watchAuctionIDs) > 0 {
		err = client.Subscribe(context.Background(), watchAuctionIDs)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	agg := aggregator.New(nil, logger)
	wagers := make(map[string]string) // auctionId -> taker wager, for probability

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("watching-auctions", zap.Strings("auction-ids", watchAuctionIDs))

	for {
		select {
		case sig := <-sigChan:
			logger.Info("watch-stopped", zap.String("signal", sig.String()))
			return nil

		case update, ok := <-client.Updates():
			if !ok {
				return nil
			}
			handleWatchUpdate(client, agg, wagers, update.Started, update.Bids, update.Reconnected, logger)
		}
	}
}

func handleWatchUpdate(
	client interface {
		Subscribe(ctx context.Context, auctionIDs []string) error
	},
	agg *aggregator.Aggregator,
	wagers map[string]string,
	started *types.AuctionStartedPayload,
	bids *types.AuctionBidsPayload,
	reconnected bool,
	logger *zap.Logger,
) {
	if reconnected {
		agg.Reset()
		logger.Info("reconnected-resetting-bid-state")
		return
	}

	if started != nil {
		wagers[started.AuctionID] = started.Wager
		err := client.Subscribe(context.Background(), []string{started.AuctionID})
		if err != nil {
			logger.Warn("subscribe-new-auction-failed",
				zap.String("auction-id", started.AuctionID),
				zap.Error(err))
			return
		}
		logger.Info("auction-announced",
			zap.String("auction-id", started.AuctionID),
			zap.String("wager", started.Wager),
			zap.Strings("predicted-outcomes", started.PredictedOutcomes),
			zap.String("taker", started.Taker))
		return
	}

	if bids == nil {
		return
	}

	agg.OnBids(bids.AuctionID, bids.Bids)

	best, ok := agg.BestBid(bids.AuctionID)
	if !ok {
		return
	}

	takerWager := wagers[bids.AuctionID]
	line := fmt.Sprintf("auction=%s bids=%d best maker=%s wager=%s",
		bids.AuctionID, len(bids.Bids), best.Maker, best.MakerWager)
	if takerWager != "" {
		line += fmt.Sprintf(" implied=%.4f", aggregator.ImpliedProbability(takerWager, best.MakerWager))
	}
	fmt.Println(line)
}
