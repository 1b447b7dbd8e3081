// Package registry owns the in-memory auction store: one record per taker
// request, bids appended in arrival order, expiry computed from an
// injectable clock. This map is the only shared mutable state in the relay.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/parlay-relay/internal/validation"
	"github.com/mselser95/parlay-relay/pkg/types"
	"go.uber.org/zap"
)

// DefaultTTL is how long a freshly created auction accepts bids before its
// first deadline, absent any extension.
const DefaultTTL = 60 * time.Second

// Clock returns the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Registry is the keyed in-memory auction store.
type Registry struct {
	auctions map[string]*types.Auction
	mu       sync.RWMutex
	clock    Clock
	ttl      time.Duration
	sweep    time.Duration
	logger   *zap.Logger
}

// Config holds registry configuration.
type Config struct {
	Clock         Clock
	TTL           time.Duration
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// New creates a registry. Zero-value config fields fall back to real time,
// DefaultTTL, and a 30s sweep.
func New(cfg Config) *Registry {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		auctions: make(map[string]*types.Auction),
		clock:    clock,
		ttl:      ttl,
		sweep:    sweep,
		logger:   logger,
	}
}

// Create stores a new auction for the given request and returns its id.
// Every call inserts a fresh record; identical requests yield distinct ids.
func (r *Registry) Create(req types.AuctionRequest) string {
	id := uuid.New().String()
	deadlineMs := r.clock().UnixMilli() + r.ttl.Milliseconds()

	auction := &types.Auction{
		AuctionID:  id,
		Request:    req,
		Bids:       []types.BidSubmission{},
		DeadlineMs: deadlineMs,
	}

	r.mu.Lock()
	r.auctions[id] = auction
	live := len(r.auctions)
	r.mu.Unlock()

	AuctionsCreatedTotal.Inc()
	AuctionsLive.Set(float64(live))

	r.logger.Info("auction-created",
		zap.String("auction-id", id),
		zap.Int64("deadline-ms", deadlineMs),
		zap.Int("outcome-count", len(req.PredictedOutcomes)))

	return id
}

// Get returns a snapshot of a live auction. Expired or unknown ids behave
// identically: not found, no side effect.
func (r *Registry) Get(auctionID string) (*types.Auction, bool) {
	now := r.clock().UnixMilli()

	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok || now >= auction.DeadlineMs {
		return nil, false
	}

	return copyAuction(auction), true
}

// AddBid verifies and appends a bid to a live auction, extending the
// auction deadline when the bid's own quote deadline outlives it. The
// deadline never shrinks. Rejection leaves no partial state.
func (r *Registry) AddBid(auctionID string, bid types.BidSubmission) (*types.BidSubmission, error) {
	now := r.clock()
	nowMs := now.UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	auction, ok := r.auctions[auctionID]
	if !ok || nowMs >= auction.DeadlineMs {
		BidsRejectedTotal.WithLabelValues(types.ReasonInvalidAuctionID).Inc()
		return nil, types.NewBidError(types.ReasonInvalidAuctionID)
	}

	if err := validation.VerifyMakerBid(&bid, now); err != nil {
		BidsRejectedTotal.WithLabelValues(types.Reason(err)).Inc()
		return nil, err
	}

	auction.Bids = append(auction.Bids, bid)

	bidDeadlineMs := bid.MakerDeadline * 1000
	if bidDeadlineMs > auction.DeadlineMs {
		auction.DeadlineMs = bidDeadlineMs
		DeadlineExtensionsTotal.Inc()
	}

	BidsAcceptedTotal.Inc()

	r.logger.Debug("bid-accepted",
		zap.String("auction-id", auctionID),
		zap.String("maker", bid.Maker),
		zap.Int("bid-count", len(auction.Bids)),
		zap.Int64("deadline-ms", auction.DeadlineMs))

	stored := bid
	return &stored, nil
}

// Bids returns the current bid list for a live auction in arrival order,
// or an empty slice for an absent or expired auction. Never an error.
func (r *Registry) Bids(auctionID string) []types.BidSubmission {
	now := r.clock().UnixMilli()

	r.mu.RLock()
	defer r.mu.RUnlock()

	auction, ok := r.auctions[auctionID]
	if !ok || now >= auction.DeadlineMs {
		return []types.BidSubmission{}
	}

	bids := make([]types.BidSubmission, len(auction.Bids))
	copy(bids, auction.Bids)
	return bids
}

// Live returns snapshots of all live auctions.
func (r *Registry) Live() []*types.Auction {
	now := r.clock().UnixMilli()

	r.mu.RLock()
	defer r.mu.RUnlock()

	live := make([]*types.Auction, 0, len(r.auctions))
	for _, auction := range r.auctions {
		if now < auction.DeadlineMs {
			live = append(live, copyAuction(auction))
		}
	}
	return live
}

// Run periodically reclaims expired auctions until the context is
// cancelled. Expiry is observable without the sweep; this only bounds
// memory.
func (r *Registry) Run(ctx context.Context) error {
	r.logger.Info("registry-sweep-starting", zap.Duration("interval", r.sweep))

	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("registry-sweep-stopping")
			return ctx.Err()
		case <-ticker.C:
			r.sweepExpired()
		}
	}
}

func (r *Registry) sweepExpired() {
	now := r.clock().UnixMilli()

	r.mu.Lock()
	removed := 0
	for id, auction := range r.auctions {
		if now >= auction.DeadlineMs {
			delete(r.auctions, id)
			removed++
		}
	}
	live := len(r.auctions)
	r.mu.Unlock()

	if removed > 0 {
		SweepRemovalsTotal.Add(float64(removed))
		AuctionsLive.Set(float64(live))
		r.logger.Debug("expired-auctions-swept",
			zap.Int("removed", removed),
			zap.Int("live", live))
	}
}

// copyAuction returns a deep copy so readers never observe a partial
// append. Callers hold at least a read lock.
func copyAuction(a *types.Auction) *types.Auction {
	bids := make([]types.BidSubmission, len(a.Bids))
	copy(bids, a.Bids)

	outcomes := make([]string, len(a.Request.PredictedOutcomes))
	copy(outcomes, a.Request.PredictedOutcomes)

	req := a.Request
	req.PredictedOutcomes = outcomes

	return &types.Auction{
		AuctionID:  a.AuctionID,
		Request:    req,
		Bids:       bids,
		DeadlineMs: a.DeadlineMs,
	}
}
