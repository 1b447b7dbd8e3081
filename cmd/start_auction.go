package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/parlay-relay/internal/aggregator"
	"github.com/mselser95/parlay-relay/internal/settlement"
	"github.com/mselser95/parlay-relay/pkg/relayclient"
	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	startWager      string
	startOutcomes   []string
	startResolver   string
	startTaker      string
	startTakerNonce int64
	startChainID    int64
	startWait       time.Duration
)

//nolint:gochecknoglobals // Cobra boilerplate
var startAuctionCmd = &cobra.Command{
	Use:   "start-auction",
	Short: "Open an auction and collect maker bids",
	Long: `Opens an auction on the relay for a bundle of predicted outcomes,
then streams bid updates for the wait window. When the window closes it
reports the best live bid, the implied probability of the parlay, and the
mint payload a settlement step would submit on-chain.`,
	RunE: runStartAuction,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	startAuctionCmd.Flags().StringVar(&startWager, "wager", "", "taker collateral in base units (integer string)")
	startAuctionCmd.Flags().StringSliceVar(&startOutcomes, "outcome", nil, "predicted outcome identifier (repeatable)")
	startAuctionCmd.Flags().StringVar(&startResolver, "resolver", "", "resolver contract address (0x...)")
	startAuctionCmd.Flags().StringVar(&startTaker, "taker", "", "taker wallet address (0x...)")
	startAuctionCmd.Flags().Int64Var(&startTakerNonce, "taker-nonce", 0, "taker nonce")
	startAuctionCmd.Flags().Int64Var(&startChainID, "chain-id", 137, "chain id")
	startAuctionCmd.Flags().DurationVar(&startWait, "wait", 30*time.Second, "how long to collect bids before reporting")

	_ = startAuctionCmd.MarkFlagRequired("wager")
	_ = startAuctionCmd.MarkFlagRequired("outcome")
	_ = startAuctionCmd.MarkFlagRequired("resolver")
	_ = startAuctionCmd.MarkFlagRequired("taker")

	rootCmd.AddCommand(startAuctionCmd)
}

func runStartAuction(cmd *cobra.Command, args []string) error {
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

	req := &types.AuctionRequest{
		Wager:             startWager,
		PredictedOutcomes: startOutcomes,
		Resolver:          startResolver,
		Taker:             startTaker,
		TakerNonce:        startTakerNonce,
		ChainID:           startChainID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RelayAckTimeout)
	auctionID, err := client.StartAuction(ctx, req)
	cancel()
	if err != nil {
		return fmt.Errorf("start auction: %w", err)
	}

	logger.Info("auction-started",
		zap.String("auction-id", auctionID),
		zap.String("wager", startWager),
		zap.Int("outcome-count", len(startOutcomes)),
		zap.Duration("bid-window", startWait))

	agg := aggregator.New(nil, logger)
	collectBids(client, agg, auctionID, startWait, logger)

	best, ok := agg.BestBid(auctionID)
	if !ok {
		logger.Warn("no-bids-received", zap.String("auction-id", auctionID))
		return nil
	}

	probability := aggregator.ImpliedProbability(startWager, best.MakerWager)
	payout, err := settlement.CalculateExpectedPayout(best.MakerWager, startWager)
	if err != nil {
		return fmt.Errorf("calculate payout: %w", err)
	}

	logger.Info("best-bid",
		zap.String("auction-id", auctionID),
		zap.String("maker", best.Maker),
		zap.String("maker-wager", best.MakerWager),
		zap.Int64("maker-deadline", best.MakerDeadline),
		zap.Float64("implied-probability", probability),
		zap.String("expected-payout", payout))

	mintData, err := settlement.CreateMintParlayRequestData(req, startWager)
	if err != nil {
		return fmt.Errorf("build mint payload: %w", err)
	}

	fmt.Printf("auctionId: %s\n", auctionID)
	fmt.Printf("best maker: %s wager=%s deadline=%d\n", best.Maker, best.MakerWager, best.MakerDeadline)
	fmt.Printf("implied probability: %.4f\n", probability)
	fmt.Printf("expected payout: %s\n", payout)
	fmt.Printf("mint payload: resolver=%s taker=%s outcomes=%v collateral=%s\n",
		mintData.Resolver, mintData.Taker, mintData.PredictedOutcomes, mintData.TakerCollateral)

	return nil
}

// collectBids drains bid updates for the given auction until the window
// elapses. Reconnects reset the aggregator; the relay resends the current
// bid list on resubscribe.
func collectBids(
	client *relayclient.Client,
	agg *aggregator.Aggregator,
	auctionID string,
	window time.Duration,
	logger *zap.Logger,
) {
	timer := time.NewTimer(window)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return
		case update, ok := <-client.Updates():
			if !ok {
				return
			}
			if update.Reconnected {
				agg.Reset()
				continue
			}
			if update.Bids != nil && update.Bids.AuctionID == auctionID {
				agg.OnBids(update.Bids.AuctionID, update.Bids.Bids)
				logger.Info("bids-received",
					zap.String("auction-id", update.Bids.AuctionID),
					zap.Int("bid-count", len(update.Bids.Bids)))
			}
		}
	}
}
