package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuctionsCreatedTotal counts auctions created since process start.
	AuctionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_auctions_created_total",
		Help: "Total number of auctions created",
	})

	// AuctionsLive tracks the number of auction records held in memory.
	AuctionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_auctions_live",
		Help: "Number of auction records currently held in memory",
	})

	// BidsAcceptedTotal counts bids appended to an auction.
	BidsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_bids_accepted_total",
		Help: "Total number of bids accepted into auctions",
	})

	// BidsRejectedTotal counts bid rejections by reason code.
	BidsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bids_rejected_total",
			Help: "Total number of bids rejected by the registry",
		},
		[]string{"reason"},
	)

	// DeadlineExtensionsTotal counts auction deadline extensions caused by
	// later-expiring bids.
	DeadlineExtensionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_auction_deadline_extensions_total",
		Help: "Total number of auction deadline extensions",
	})

	// SweepRemovalsTotal counts expired auction records reclaimed by the
	// background sweep.
	SweepRemovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_auction_sweep_removals_total",
		Help: "Total number of expired auctions removed by the sweep",
	})
)
