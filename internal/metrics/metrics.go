package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP requests by route template, method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detodo_http_requests_total",
			Help: "Total number of HTTP requests handled.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "detodo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Product state transitions, by target state and cause (seller | trade).
	ProductTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detodo_product_transitions_total",
			Help: "Product status transitions.",
		},
		[]string{"to", "cause"},
	)

	// Trade lifecycle events: proposed, approved, rejected, conflict.
	TradeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detodo_trade_events_total",
			Help: "Trade proposal lifecycle events.",
		},
		[]string{"event"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detodo_errors_total",
			Help: "Count of internal errors by component.",
		},
		[]string{"component", "reason"},
	)
)

func IncProductTransition(to, cause string) {
	ProductTransitions.WithLabelValues(to, cause).Inc()
}

func IncTradeEvent(event string) {
	TradeEvents.WithLabelValues(event).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
