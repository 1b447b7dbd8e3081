package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	bidAuctionID   string
	bidMaker       string
	bidWager       string
	bidQuoteWindow time.Duration
	bidSignature   string
	bidNonce       int64
)

//nolint:gochecknoglobals // Cobra boilerplate
var submitBidCmd = &cobra.Command{
	Use:   "submit-bid",
	Short: "Submit a maker bid to a live auction",
	Long: `Submits a signed maker bid to an auction on the relay and waits for
the ack. The quote window sets the bid's deadline relative to now; the
relay extends the auction deadline to cover it when it is the latest.`,
	RunE: runSubmitBid,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	submitBidCmd.Flags().StringVar(&bidAuctionID, "auction-id", "", "auction to bid on")
	submitBidCmd.Flags().StringVar(&bidMaker, "maker", "", "maker wallet address (0x...)")
	submitBidCmd.Flags().StringVar(&bidWager, "wager", "", "maker wager in base units (integer string)")
	submitBidCmd.Flags().DurationVar(&bidQuoteWindow, "quote-window", 30*time.Second, "how long the quote stays valid")
	submitBidCmd.Flags().StringVar(&bidSignature, "signature", "", "maker bid signature (0x...)")
	submitBidCmd.Flags().Int64Var(&bidNonce, "nonce", 0, "maker nonce")

	_ = submitBidCmd.MarkFlagRequired("auction-id")
	_ = submitBidCmd.MarkFlagRequired("maker")
	_ = submitBidCmd.MarkFlagRequired("wager")
	_ = submitBidCmd.MarkFlagRequired("signature")

	rootCmd.AddCommand(submitBidCmd)
}

func runSubmitBid(cmd *cobra.Command, args []string) error {
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

	bid := &types.BidSubmission{
		AuctionID:      bidAuctionID,
		Maker:          bidMaker,
		MakerWager:     bidWager,
		MakerDeadline:  time.Now().Add(bidQuoteWindow).Unix(),
		MakerSignature: bidSignature,
		MakerNonce:     bidNonce,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RelayAckTimeout)
	defer cancel()

	err = client.SubmitBid(ctx, bid)
	if err != nil {
		return fmt.Errorf("submit bid: %w", err)
	}

	logger.Info("bid-accepted",
		zap.String("auction-id", bidAuctionID),
		zap.String("maker", bidMaker),
		zap.String("maker-wager", bidWager),
		zap.Int64("maker-deadline", bid.MakerDeadline))

	fmt.Printf("bid accepted: auction=%s maker=%s wager=%s deadline=%d\n",
		bidAuctionID, bidMaker, bidWager, bid.MakerDeadline)

	return nil
}
