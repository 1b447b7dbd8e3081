// Package settlement derives the byte-exact payload handed to the on-chain
// minting step after a consumer has chosen a winning bid, and checks the
// arithmetic of externally-reported payouts. It is never called by the
// registry itself.
package settlement

import (
	"fmt"

	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/shopspring/decimal"
)

// CreateMintParlayRequestData copies the settlement-relevant fields of an
// auction request and attaches the taker's mint-time collateral. The caller
// is expected to have validated the auction already; a nil auction or empty
// resolver is a contract violation and returns an error.
func CreateMintParlayRequestData(auction *types.AuctionRequest, takerCollateral string) (*types.MintParlayRequestData, error) {
	if auction == nil {
		return nil, fmt.Errorf("auction is nil")
	}
	if auction.Resolver == "" {
		return nil, fmt.Errorf("auction resolver is empty")
	}

	outcomes := make([]string, len(auction.PredictedOutcomes))
	copy(outcomes, auction.PredictedOutcomes)

	return &types.MintParlayRequestData{
		Taker:             auction.Taker,
		PredictedOutcomes: outcomes,
		Resolver:          auction.Resolver,
		Wager:             auction.Wager,
		TakerCollateral:   takerCollateral,
	}, nil
}

// CalculateExpectedPayout returns the exact decimal-string sum of the maker
// wager and the taker collateral. No precision is lost for values beyond
// 64-bit range.
func CalculateExpectedPayout(wager, takerCollateral string) (string, error) {
	w, err := decimal.NewFromString(wager)
	if err != nil {
		return "", fmt.Errorf("parse wager %q: %w", wager, err)
	}
	c, err := decimal.NewFromString(takerCollateral)
	if err != nil {
		return "", fmt.Errorf("parse taker collateral %q: %w", takerCollateral, err)
	}

	return w.Add(c).String(), nil
}

// ValidatePayout reports whether the externally-reported payout equals the
// expected sum exactly. Any parse failure or off-by-one is a mismatch.
func ValidatePayout(wager, takerCollateral, reportedPayout string) bool {
	expected, err := CalculateExpectedPayout(wager, takerCollateral)
	if err != nil {
		return false
	}
	reported, err := decimal.NewFromString(reportedPayout)
	if err != nil {
		return false
	}
	exp, err := decimal.NewFromString(expected)
	if err != nil {
		return false
	}

	return reported.Equal(exp)
}
