package types

import json "github.com/goccy/go-json"

// Relay wire message types.
const (
	MsgAuctionStart     = "auction.start"
	MsgAuctionAck       = "auction.ack"
	MsgAuctionStarted   = "auction.started"
	MsgAuctionSubscribe = "auction.subscribe"
	MsgAuctionBids      = "auction.bids"
	MsgBidSubmit        = "bid.submit"
	MsgBidAck           = "bid.ack"
)

// Envelope is the outer frame of every relay message. RequestID is optional
// and echoed verbatim on the matching ack so clients can correlate replies.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AuctionAckPayload acknowledges an auction.start request. Absence of Error
// signals acceptance.
type AuctionAckPayload struct {
	AuctionID string `json:"auctionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuctionStartedPayload is fanned out to makers when a new auction opens.
// It carries everything a maker needs to construct a bid.
type AuctionStartedPayload struct {
	AuctionID         string   `json:"auctionId"`
	Wager             string   `json:"wager"`
	PredictedOutcomes []string `json:"predictedOutcomes"`
	Resolver          string   `json:"resolver"`
	Taker             string   `json:"taker"`
	ChainID           int64    `json:"chainId"`
}

// SubscribePayload registers interest in per-auction bid updates.
type SubscribePayload struct {
	AuctionIDs []string `json:"auctionIds"`
}

// BidAckPayload acknowledges a bid.submit. Absence of Error signals the bid
// was accepted and appended to the auction's bid list.
type BidAckPayload struct {
	AuctionID string `json:"auctionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuctionBidsPayload is broadcast to an auction's subscribers after every
// accepted bid, carrying the full current bid list in arrival order.
type AuctionBidsPayload struct {
	AuctionID string          `json:"auctionId"`
	Bids      []BidSubmission `json:"bids"`
}
