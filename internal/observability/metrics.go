package observability

// Domain collectors for the real-time core. HTTP traffic is measured by the
// middleware package; these cover what happens behind the handlers and on
// the websocket side. Label values come from closed sets (statuses, types,
// outcomes, ops) so cardinality stays bounded.

import "github.com/prometheus/client_golang/prometheus"

var (
	// CallTransitions counts successful call state transitions by target status.
	CallTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_transitions_total",
			Help: "Call state transitions by resulting status.",
		},
		[]string{"status"},
	)

	// CallConflicts counts PlaceCall attempts refused by the single-live-call rule.
	CallConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "calls_conflicts_total",
			Help: "Call placements refused because a party was busy.",
		},
	)

	// NotificationsCreated counts persisted notifications by type.
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Persisted notifications by type.",
		},
		[]string{"type"},
	)

	// PushOutcomes counts push delivery attempts by classified outcome.
	PushOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Push delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ChatMessages counts appended chat messages.
	ChatMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages appended.",
		},
	)

	// SignalingRelayed counts relayed signaling messages by op.
	SignalingRelayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signaling_messages_total",
			Help: "Signaling messages relayed to peers by op.",
		},
		[]string{"op"},
	)

	// SignalingRooms gauges the number of open signaling rooms.
	SignalingRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signaling_rooms_open",
			Help: "Signaling rooms with at least one member.",
		},
	)

	// RateLimited counts requests refused by a rate limiter, by surface
	// ("http" or "ws").
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests refused by a rate limiter.",
		},
		[]string{"surface"},
	)

	// WSConnections gauges open websocket connections.
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_open",
			Help: "Open websocket connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CallTransitions, CallConflicts, NotificationsCreated, PushOutcomes,
		ChatMessages, SignalingRelayed, SignalingRooms, WSConnections, RateLimited,
	)
}
