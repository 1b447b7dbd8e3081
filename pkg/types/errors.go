package types

import (
	"errors"
	"fmt"
	"strings"
)

// Bid rejection reason codes carried verbatim in bid.ack payloads.
const (
	ReasonInvalidPayload      = "invalid_payload"
	ReasonInvalidAuctionID    = "invalid_auction_id"
	ReasonInvalidMaker        = "invalid_maker"
	ReasonInvalidMakerWager   = "invalid_maker_wager"
	ReasonInvalidWagerValues  = "invalid_wager_values"
	ReasonQuoteExpired        = "quote_expired"
	ReasonInvalidBidSignature = "invalid_maker_bid_signature_format"
)

// BidError is a bid validation failure identified by a wire reason code.
type BidError struct {
	Reason string
}

func (e *BidError) Error() string {
	return e.Reason
}

// NewBidError returns a BidError for the given reason code.
func NewBidError(reason string) *BidError {
	return &BidError{Reason: reason}
}

// Reason extracts the wire reason string from an error. BidErrors yield
// their code; anything else yields its message.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var bidErr *BidError
	if errors.As(err, &bidErr) {
		return bidErr.Reason
	}
	return err.Error()
}

// ValidationError reports an auction-level validation failure with optional
// key=value context pairs.
type ValidationError struct {
	Message string
	Context map[string]string
}

func (e *ValidationError) Error() string {
	msg := "Validation failed: " + e.Message
	if len(e.Context) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(e.Context))
	for k, v := range e.Context {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	return msg + " " + strings.Join(pairs, " ")
}

// NewValidationError builds a ValidationError from a message and alternating
// key, value context strings.
func NewValidationError(message string, kv ...string) *ValidationError {
	ve := &ValidationError{Message: message}
	if len(kv) > 0 {
		ve.Context = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ve.Context[kv[i]] = kv[i+1]
		}
	}
	return ve
}
