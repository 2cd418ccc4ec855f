package metrics

import (
	"strconv" // Status code labels
	"time"    // Request durations

	"github.com/prometheus/client_golang/prometheus"          // Prometheus metric types
	"github.com/prometheus/client_golang/prometheus/promauto" // Auto-registered metrics
)

var (
	// httpRequestsTotal counts requests per route and status
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",                                       // Metric name
			Help: "Total number of HTTP requests labeled by route and status", // Description
		},
		[]string{"route", "status"},
	)
	// httpRequestDurationSeconds observes request latency per route
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",        // Metric name
			Help:    "Duration of HTTP requests in seconds", // Description
			Buckets: prometheus.DefBuckets,                  // Default latency buckets
		},
		[]string{"route"},
	)
	// signupsTotal counts created users per referral outcome
	signupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_signups_total",                     // Metric name
			Help: "Users created, labeled by referral outcome", // Description
		},
		[]string{"referral"},
	)
	// referralCreditsTotal counts applied referral credits
	referralCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_credits_total",                   // Metric name
			Help: "Total number of referral credits applied", // Description
		},
	)
)

// Referral outcomes of a signup
const (
	SignupDirect   = "none"     // No referral code given
	SignupCredited = "credited" // Referrer found and credited
	SignupOrphaned = "orphaned" // Code given but nobody holds it
)

// RecordRequest tracks one HTTP request
func RecordRequest(route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched" // No route matched the path
	}
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSignup tracks a user creation and, when credited, the referral credit
func RecordSignup(outcome string) {
	signupsTotal.WithLabelValues(outcome).Inc()
	if outcome == SignupCredited {
		referralCreditsTotal.Inc() // One credit per credited signup
	}
}
