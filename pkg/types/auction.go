package types

// AuctionRequest is a taker's request for quotes on a bundle of predicted
// outcomes. It is immutable once an auction has been created from it.
type AuctionRequest struct {
	// Wager is the taker's stake in the smallest collateral unit, as a
	// decimal integer string. May exceed 64-bit range.
	Wager string `json:"wager"`

	// PredictedOutcomes are opaque hex-encoded outcome blobs, in order.
	PredictedOutcomes []string `json:"predictedOutcomes"`

	// Resolver is the 0x-prefixed 20-byte address of the resolution oracle.
	Resolver string `json:"resolver"`

	// Taker is the 0x-prefixed 20-byte address of the requesting party.
	Taker string `json:"taker"`

	// TakerNonce is the taker's replay-protection value. Zero is valid.
	TakerNonce int64 `json:"takerNonce"`

	// ChainID identifies the settlement network.
	ChainID int64 `json:"chainId"`
}

// BidSubmission is a maker's signed offer against a live auction.
// The signature is format-checked only; cryptographic verification happens
// downstream before settlement.
type BidSubmission struct {
	AuctionID      string `json:"auctionId"`
	Maker          string `json:"maker"`
	MakerWager     string `json:"makerWager"`
	MakerDeadline  int64  `json:"makerDeadline"` // Unix seconds; quote validity
	MakerSignature string `json:"makerSignature"`
	MakerNonce     int64  `json:"makerNonce"`
}

// Auction is the registry record for one taker request and the bids
// received against it. Bids are append-only in arrival order; DeadlineMs
// only ever increases.
type Auction struct {
	AuctionID  string          `json:"auctionId"`
	Request    AuctionRequest  `json:"auction"`
	Bids       []BidSubmission `json:"bids"`
	DeadlineMs int64           `json:"deadlineMs"`
}

// MintParlayRequestData is the exact payload handed to the on-chain
// settlement collaborator once a winning bid has been chosen.
type MintParlayRequestData struct {
	Taker             string   `json:"taker"`
	PredictedOutcomes []string `json:"predictedOutcomes"`
	Resolver          string   `json:"resolver"`
	Wager             string   `json:"wager"`
	TakerCollateral   string   `json:"takerCollateral"`
}
