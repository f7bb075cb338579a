package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Upstream
	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_calls_total",
			Help: "Upstream quote calls by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_call_duration_seconds",
			Help:    "Upstream quote call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	quoteCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_cache_lookups_total",
			Help: "Quote cache lookups by strategy and result.",
		},
		[]string{"strategy", "result"},
	)

	// Budget
	budgetUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_budget_used",
			Help: "Upstream calls counted against the current billing period.",
		},
	)
	budgetRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_budget_remaining",
			Help: "Upstream calls still available in the current billing period.",
		},
	)

	// Search
	strategyRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strategy_runs_total",
			Help: "Strategy executions and skips by reason.",
		},
		[]string{"strategy", "result"},
	)
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end arbitrage search duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	searchSavings = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_best_savings",
			Help:    "Savings of the best option over the standard fare, in request currency.",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 200, 500, 1000},
		},
	)

	// Booking
	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	bookingSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "booking_sessions",
			Help: "Current booking sessions by status.",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			upstreamCalls,
			upstreamDuration,
			quoteCacheLookups,

			budgetUsed,
			budgetRemaining,

			strategyRuns,
			searchDuration,
			searchSavings,

			bookingTransitions,
			bookingSessions,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	c := strconv.Itoa(code)
	httpRequests.WithLabelValues(method, route, c).Inc()
	httpDuration.WithLabelValues(method, route, c).Observe(d.Seconds())
}

// --- Upstream ---
func ObserveUpstreamCall(strategy, outcome string, d time.Duration) {
	upstreamCalls.WithLabelValues(strategy, outcome).Inc()
	upstreamDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func IncCacheHit(strategy string)  { quoteCacheLookups.WithLabelValues(strategy, "hit").Inc() }
func IncCacheMiss(strategy string) { quoteCacheLookups.WithLabelValues(strategy, "miss").Inc() }

// --- Budget ---
func SetBudget(used, remaining int) {
	budgetUsed.Set(float64(max0(used)))
	budgetRemaining.Set(float64(max0(remaining)))
}

// --- Search ---
func IncStrategyRun(strategy string) { strategyRuns.WithLabelValues(strategy, "executed").Inc() }
func IncStrategySkipped(strategy, reason string) {
	strategyRuns.WithLabelValues(strategy, reason).Inc()
}
func ObserveSearch(d time.Duration) { searchDuration.Observe(d.Seconds()) }
func ObserveBestSavings(v float64) {
	if v < 0 {
		v = 0
	}
	searchSavings.Observe(v)
}

// --- Booking ---
func IncBookingTransition(operation, outcome string) {
	bookingTransitions.WithLabelValues(operation, outcome).Inc()
}

func SetBookingSessions(status string, count int) {
	bookingSessions.WithLabelValues(status).Set(float64(max0(count)))
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
