package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesReceivedTotal counts inbound frames by message type.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_received_total",
			Help: "Total number of messages received by the relay",
		},
		[]string{"type"},
	)

	// ConnectedSessions tracks currently connected WebSocket sessions.
	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_sessions",
		Help: "Number of currently connected WebSocket sessions",
	})

	// BidAcksTotal counts bid acknowledgements by result.
	BidAcksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bid_acks_total",
			Help: "Total number of bid acknowledgements sent",
		},
		[]string{"result"},
	)

	// AuctionsAnnouncedTotal counts auction.started fan-outs.
	AuctionsAnnouncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_auctions_announced_total",
		Help: "Total number of auction.started announcements",
	})

	// DuplicateBidsTotal counts bid resubmissions short-circuited by the
	// dedup cache.
	DuplicateBidsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_duplicate_bids_total",
		Help: "Total number of duplicate bid submissions deduplicated",
	})

	// FramesDroppedTotal counts outgoing frames dropped for slow sessions.
	FramesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_dropped_total",
		Help: "Total number of outgoing frames dropped due to slow sessions",
	})

	// AuditRecordsDroppedTotal counts accepted-bid audit records dropped
	// because the store queue was full.
	AuditRecordsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_audit_records_dropped_total",
		Help: "Total number of audit records dropped due to a full store queue",
	})
)
