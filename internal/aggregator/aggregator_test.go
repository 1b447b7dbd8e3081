package aggregator

import (
	"math"
	"testing"
	"time"

	"github.com/mselser95/parlay-relay/pkg/types"
)

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func bid(maker, wager string, deadline int64) types.BidSubmission {
	return types.BidSubmission{
		AuctionID:      "auction-1",
		Maker:          maker,
		MakerWager:     wager,
		MakerDeadline:  deadline,
		MakerSignature: "0xdeadbeefdeadbeef",
	}
}

func TestOnBids_ReplacesAndCopies(t *testing.T) {
	agg := New(nil, nil)

	first := []types.BidSubmission{bid("0xa", "100", 0)}
	agg.OnBids("auction-1", first)

	// Mutating the caller's slice must not reach the aggregator.
	first[0].MakerWager = "999"
	got := agg.Bids("auction-1")
	if len(got) != 1 || got[0].MakerWager != "100" {
		t.Errorf("retained bids aliased caller slice: %+v", got)
	}

	agg.OnBids("auction-1", []types.BidSubmission{bid("0xb", "200", 0), bid("0xc", "300", 0)})
	got = agg.Bids("auction-1")
	if len(got) != 2 {
		t.Errorf("got %d bids after replacement, want 2", len(got))
	}
}

func TestReset(t *testing.T) {
	agg := New(nil, nil)
	agg.OnBids("auction-1", []types.BidSubmission{bid("0xa", "100", 0)})

	agg.Reset()

	if len(agg.Bids("auction-1")) != 0 {
		t.Error("Reset did not drop retained bids")
	}
	if _, ok := agg.BestBid("auction-1"); ok {
		t.Error("BestBid found a bid after Reset")
	}
}

func TestBestBid_NoBids(t *testing.T) {
	agg := New(nil, nil)
	if _, ok := agg.BestBid("auction-1"); ok {
		t.Error("BestBid reported a bid for an empty auction")
	}
}

func TestBestBid_LargestWagerWins(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(fixedClock(now), nil)

	future := now.Unix() + 60
	agg.OnBids("auction-1", []types.BidSubmission{
		bid("0xa", "100", future),
		bid("0xb", "300", future),
		bid("0xc", "200", future),
	})

	best, ok := agg.BestBid("auction-1")
	if !ok {
		t.Fatal("no best bid")
	}
	if best.Maker != "0xb" {
		t.Errorf("best maker = %q, want 0xb", best.Maker)
	}
}

func TestBestBid_HugeWagersCompareNumerically(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(fixedClock(now), nil)

	future := now.Unix() + 60
	agg.OnBids("auction-1", []types.BidSubmission{
		bid("0xa", "999999999999999999999999999998", future),
		bid("0xb", "999999999999999999999999999999", future),
	})

	best, _ := agg.BestBid("auction-1")
	if best.Maker != "0xb" {
		t.Errorf("best maker = %q, want 0xb", best.Maker)
	}
}

func TestBestBid_FirstSeenWinsTies(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(fixedClock(now), nil)

	future := now.Unix() + 60
	agg.OnBids("auction-1", []types.BidSubmission{
		bid("0xfirst", "500", future),
		bid("0xsecond", "500", future),
	})

	best, _ := agg.BestBid("auction-1")
	if best.Maker != "0xfirst" {
		t.Errorf("tie went to %q, want first-seen 0xfirst", best.Maker)
	}
}

func TestBestBid_FiltersExpiredQuotes(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(fixedClock(now), nil)

	agg.OnBids("auction-1", []types.BidSubmission{
		bid("0xexpired", "900", now.Unix()-1),
		bid("0xlive", "100", now.Unix()+60),
	})

	best, _ := agg.BestBid("auction-1")
	if best.Maker != "0xlive" {
		t.Errorf("best maker = %q, want the live quote 0xlive", best.Maker)
	}
}

func TestBestBid_FallsBackWhenAllExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	agg := New(fixedClock(now), nil)

	agg.OnBids("auction-1", []types.BidSubmission{
		bid("0xa", "100", now.Unix()-10),
		bid("0xb", "300", now.Unix()-5),
	})

	best, ok := agg.BestBid("auction-1")
	if !ok {
		t.Fatal("expected fallback to expired quotes")
	}
	if best.Maker != "0xb" {
		t.Errorf("best maker = %q, want 0xb", best.Maker)
	}
}

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		name       string
		takerWager string
		makerWager string
		want       float64
	}{
		{"even_money", "100", "100", 0.5},
		{"maker_heavy", "100", "300", 0.75},
		{"taker_heavy", "300", "100", 0.25},
		{"clamped_low", "999999999", "1", 0.001},
		{"clamped_high", "1", "999999999", 0.999},
		{"bad_taker_wager", "abc", "100", 0.001},
		{"bad_maker_wager", "100", "", 0.001},
		{"zero_total", "0", "0", 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImpliedProbability(tt.takerWager, tt.makerWager)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ImpliedProbability(%q, %q) = %v, want %v",
					tt.takerWager, tt.makerWager, got, tt.want)
			}
		})
	}
}
