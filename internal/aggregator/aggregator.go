// Package aggregator is the consumer-side view of one or more auctions: it
// retains the latest bid list delivered per auction and derives the single
// best live bid plus an implied probability for display. It is the only
// component that ranks bids.
package aggregator

import (
	"sync"
	"time"

	"github.com/mselser95/parlay-relay/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Probability display clamp bounds. Degenerate 0%/100% quotes are never
// shown.
var (
	minProbability = decimal.NewFromFloat(0.001)
	maxProbability = decimal.NewFromFloat(0.999)
)

// Clock returns the current time. Injectable for deterministic tests.
type Clock func() time.Time

// Aggregator tracks the latest bid list per subscribed auction.
type Aggregator struct {
	latest map[string][]types.BidSubmission
	mu     sync.RWMutex
	clock  Clock
	logger *zap.Logger
}

// New creates an aggregator. A nil clock falls back to real time.
func New(clock Clock, logger *zap.Logger) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		latest: make(map[string][]types.BidSubmission),
		clock:  clock,
		logger: logger,
	}
}

// OnBids replaces the retained bid list for an auction. Called for every
// auction.bids frame received.
func (a *Aggregator) OnBids(auctionID string, bids []types.BidSubmission) {
	snapshot := make([]types.BidSubmission, len(bids))
	copy(snapshot, bids)

	a.mu.Lock()
	a.latest[auctionID] = snapshot
	a.mu.Unlock()

	a.logger.Debug("bids-updated",
		zap.String("auction-id", auctionID),
		zap.Int("bid-count", len(bids)))
}

// Reset drops all retained state. Called after a reconnect: the registry is
// the only source of truth and bid history does not survive the transport.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.latest = make(map[string][]types.BidSubmission)
	a.mu.Unlock()
}

// Bids returns the retained bid list for an auction.
func (a *Aggregator) Bids(auctionID string) []types.BidSubmission {
	a.mu.RLock()
	defer a.mu.RUnlock()

	bids := a.latest[auctionID]
	out := make([]types.BidSubmission, len(bids))
	copy(out, bids)
	return out
}

// BestBid selects the best bid for an auction: among bids whose quote
// deadline is still in the future (falling back to all bids when none are),
// the one with the numerically largest maker wager, first-seen winning
// ties. Returns false when no bids are retained.
func (a *Aggregator) BestBid(auctionID string) (*types.BidSubmission, bool) {
	a.mu.RLock()
	bids := a.latest[auctionID]
	a.mu.RUnlock()

	if len(bids) == 0 {
		return nil, false
	}

	nowMs := a.clock().UnixMilli()

	candidates := make([]types.BidSubmission, 0, len(bids))
	for _, bid := range bids {
		if bid.MakerDeadline*1000 > nowMs {
			candidates = append(candidates, bid)
		}
	}
	if len(candidates) == 0 {
		candidates = bids
	}

	best := candidates[0]
	bestWager, err := decimal.NewFromString(best.MakerWager)
	if err != nil {
		bestWager = decimal.Zero
	}
	for _, bid := range candidates[1:] {
		wager, err := decimal.NewFromString(bid.MakerWager)
		if err != nil {
			continue
		}
		if wager.GreaterThan(bestWager) {
			best = bid
			bestWager = wager
		}
	}

	result := best
	return &result, true
}

// ImpliedProbability derives the display probability of the taker's parlay
// from the taker wager and the winning maker wager:
// makerWager / (makerWager + takerWager), clamped into [0.001, 0.999].
func ImpliedProbability(takerWager, makerWager string) float64 {
	taker, err := decimal.NewFromString(takerWager)
	if err != nil {
		return minProbabilityFloat()
	}
	maker, err := decimal.NewFromString(makerWager)
	if err != nil {
		return minProbabilityFloat()
	}

	total := maker.Add(taker)
	if total.Sign() <= 0 {
		return minProbabilityFloat()
	}

	p := maker.DivRound(total, 6)
	if p.LessThan(minProbability) {
		p = minProbability
	}
	if p.GreaterThan(maxProbability) {
		p = maxProbability
	}

	f, _ := p.Float64()
	return f
}

func minProbabilityFloat() float64 {
	f, _ := minProbability.Float64()
	return f
}
