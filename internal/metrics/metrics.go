// Package metrics exposes Prometheus collectors for the directory crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gateInFlight               prometheus.Gauge
	gateWaitSeconds            prometheus.Histogram
	fetchAttemptsTotal         *prometheus.CounterVec
	listingsTotal              *prometheus.CounterVec
	fieldFailuresTotal         *prometheus.CounterVec
	unitsTotal                 *prometheus.CounterVec
	snapshotsTotal             *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gateInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dircrawler_gate_in_flight",
				Help: "Number of outbound HTTP requests currently admitted by the throttle gate.",
			},
		)

		gateWaitSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dircrawler_gate_wait_seconds",
				Help:    "Histogram of time spent waiting for a throttle gate slot.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawler_fetch_attempts_total",
				Help: "Total number of fetch attempts, labeled by resource kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		listingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawler_listings_total",
				Help: "Total number of listings extracted, labeled by area.",
			},
			[]string{"area"},
		)

		fieldFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawler_field_failures_total",
				Help: "Total number of isolated field extraction failures, labeled by field.",
			},
			[]string{"field"},
		)

		unitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawler_units_total",
				Help: "Total number of search units processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		snapshotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawler_snapshots_total",
				Help: "Total number of snapshots written, labeled by kind.",
			},
			[]string{"kind"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dircrawler_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetGateInFlight records the number of admitted requests.
func SetGateInFlight(n int) {
	Init()
	gateInFlight.Set(float64(n))
}

// ObserveGateWait records how long an acquisition waited for a slot.
func ObserveGateWait(d time.Duration) {
	Init()
	gateWaitSeconds.Observe(d.Seconds())
}

// ObserveFetchAttempt counts one fetch attempt for kind ("image", "site").
func ObserveFetchAttempt(kind, outcome string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(kind, outcome).Inc()
}

// AddListings counts listings extracted for an area.
func AddListings(area string, n int) {
	Init()
	if n > 0 {
		listingsTotal.WithLabelValues(area).Add(float64(n))
	}
}

// ObserveFieldFailure counts an isolated field extraction failure.
func ObserveFieldFailure(field string) {
	Init()
	fieldFailuresTotal.WithLabelValues(field).Inc()
}

// ObserveUnit counts a processed search unit.
func ObserveUnit(outcome string) {
	Init()
	unitsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSnapshot counts a written snapshot.
func ObserveSnapshot(kind string) {
	Init()
	snapshotsTotal.WithLabelValues(kind).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
