package relayclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks whether the client holds a live connection.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_client_active_connections",
		Help: "Number of active relay connections (0 or 1)",
	})

	// MessagesReceivedTotal counts inbound frames by message type.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_client_messages_received_total",
			Help: "Total number of messages received from the relay",
		},
		[]string{"type"},
	)

	// RequestsTotal counts outbound correlated requests by message type.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_client_requests_total",
			Help: "Total number of correlated requests sent to the relay",
		},
		[]string{"type"},
	)

	// AckTimeoutsTotal counts requests that saw no ack within the timeout.
	AckTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_client_ack_timeouts_total",
		Help: "Total number of requests that timed out waiting for an ack",
	})

	// UpdatesDroppedTotal counts updates dropped due to a full consumer
	// channel.
	UpdatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_client_updates_dropped_total",
		Help: "Total number of updates dropped due to a full channel",
	})

	// ReconnectAttemptsTotal counts reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_client_reconnect_attempts_total",
		Help: "Total number of reconnection attempts",
	})

	// ReconnectFailuresTotal counts failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_client_reconnect_failures_total",
		Help: "Total number of failed reconnection attempts",
	})
)
