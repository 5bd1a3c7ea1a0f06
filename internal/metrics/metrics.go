package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "quotes_total",
			Help:      "Quote requests by outcome.",
		},
		[]string{"outcome"},
	)

	commits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "booking_commits_total",
			Help:      "Booking commit attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "booking_transitions_total",
			Help:      "Booking state transitions by target status.",
		},
		[]string{"status"},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "concurrency_conflicts_total",
			Help:      "Optimistic lock conflicts detected during writes.",
		},
	)

	expiredHolds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "innkeeper",
			Name:      "expired_holds_total",
			Help:      "Holds released by the expiry sweeper.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, quotes, commits, transitions, conflicts, expiredHolds)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncQuote records a quote request outcome: priced, unavailable, rejected.
func IncQuote(outcome string) {
	quotes.WithLabelValues(outcome).Inc()
}

// IncCommit records a booking commit outcome: committed, sold_out, rejected.
func IncCommit(outcome string) {
	commits.WithLabelValues(outcome).Inc()
}

// IncTransition records a completed lifecycle transition.
func IncTransition(status string) {
	transitions.WithLabelValues(status).Inc()
}

// IncConflict counts an optimistic concurrency conflict.
func IncConflict() {
	conflicts.Inc()
}

// AddExpiredHolds counts holds released by one sweep pass.
func AddExpiredHolds(n int) {
	expiredHolds.Add(float64(n))
}
