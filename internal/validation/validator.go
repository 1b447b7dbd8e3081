// Package validation holds the pure checks applied to taker auction
// requests and maker bids before anything touches the registry. All
// failures are returned as error values; nothing here panics on user input.
package validation

import (
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/shopspring/decimal"
)

// minSignatureLength is the minimum total length of a maker signature,
// including the 0x prefix. Format-level check only.
const minSignatureLength = 10

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// parseIntegerString parses a decimal integer string of arbitrary
// precision. Returns ok=false for empty, non-numeric, or fractional input.
func parseIntegerString(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if !d.IsInteger() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ValidateAuctionForMint checks a taker's auction request for structural
// validity, stopping at the first failure. Error messages are prefixed
// "Validation failed:" and name the offending field.
func ValidateAuctionForMint(req *types.AuctionRequest) error {
	if req == nil {
		return types.NewValidationError("auction request is nil")
	}

	wager, ok := parseIntegerString(req.Wager)
	if !ok {
		return types.NewValidationError("wager must be a positive integer", "wager", req.Wager)
	}
	if wager.Sign() <= 0 {
		return types.NewValidationError("wager must be greater than zero", "wager", req.Wager)
	}

	if len(req.PredictedOutcomes) == 0 {
		return types.NewValidationError("predictedOutcomes must be non-empty")
	}
	for i, outcome := range req.PredictedOutcomes {
		if outcome == "" {
			return types.NewValidationError("predictedOutcomes contains an empty element",
				"index", strconv.Itoa(i))
		}
	}

	if req.ChainID <= 0 {
		return types.NewValidationError("chainId must be a positive number",
			"chainId", strconv.FormatInt(req.ChainID, 10))
	}

	if !IsHexAddress(req.Resolver) {
		return types.NewValidationError("resolver must be a 0x-prefixed 20-byte address",
			"resolver", req.Resolver)
	}

	if req.Taker == "" || !IsHexAddress(req.Taker) {
		return types.NewValidationError("taker must be a 0x-prefixed 20-byte address",
			"taker", req.Taker)
	}

	if req.TakerNonce < 0 {
		return types.NewValidationError("takerNonce must be non-negative",
			"takerNonce", strconv.FormatInt(req.TakerNonce, 10))
	}

	return nil
}

// VerifyMakerBid checks a maker bid's own fields. The makerDeadline check
// is strict: a deadline equal to now is already expired. Signature checking
// is format-level only; cryptographic verification happens downstream.
func VerifyMakerBid(bid *types.BidSubmission, now time.Time) error {
	if bid == nil {
		return types.NewBidError(types.ReasonInvalidPayload)
	}

	if bid.AuctionID == "" {
		return types.NewBidError(types.ReasonInvalidAuctionID)
	}

	if !IsHexAddress(bid.Maker) {
		return types.NewBidError(types.ReasonInvalidMaker)
	}

	wager, ok := parseIntegerString(bid.MakerWager)
	if !ok || wager.Sign() <= 0 {
		return types.NewBidError(types.ReasonInvalidMakerWager)
	}

	if bid.MakerDeadline <= now.Unix() {
		return types.NewBidError(types.ReasonQuoteExpired)
	}

	if !strings.HasPrefix(bid.MakerSignature, "0x") || len(bid.MakerSignature) < minSignatureLength {
		return types.NewBidError(types.ReasonInvalidBidSignature)
	}

	return nil
}

// BasicValidateBid runs the combined auction+bid cascade applied before any
// bid is trusted. Malformed (non-numeric) maker wagers are reported as
// invalid_wager_values, a distinct failure class from empty/zero/negative.
func BasicValidateBid(auction *types.AuctionRequest, bid *types.BidSubmission, now time.Time) error {
	if auction == nil || bid == nil {
		return types.NewBidError(types.ReasonInvalidPayload)
	}

	if err := ValidateAuctionForMint(auction); err != nil {
		return err
	}

	if !IsHexAddress(bid.Maker) {
		return types.NewBidError(types.ReasonInvalidMaker)
	}

	if bid.MakerWager == "" {
		return types.NewBidError(types.ReasonInvalidMakerWager)
	}
	wager, ok := parseIntegerString(bid.MakerWager)
	if !ok {
		return types.NewBidError(types.ReasonInvalidWagerValues)
	}
	if wager.Sign() <= 0 {
		return types.NewBidError(types.ReasonInvalidMakerWager)
	}

	return VerifyMakerBid(bid, now)
}
