// Package storage is the write-only audit trail of accepted bids. The
// relay hands records off asynchronously; nothing here is ever read back
// into the registry, which stays the sole source of truth.
package storage

import (
	"context"
	"time"

	"github.com/mselser95/parlay-relay/pkg/types"
)

// AcceptedBid is one audit record: a bid that cleared validation and was
// appended to an auction.
type AcceptedBid struct {
	Bid        types.BidSubmission
	AcceptedAt time.Time
}

// Storage is the interface for persisting accepted bids.
type Storage interface {
	// StoreBid persists one accepted bid.
	StoreBid(ctx context.Context, rec *AcceptedBid) error

	// Close closes the storage connection.
	Close() error
}
