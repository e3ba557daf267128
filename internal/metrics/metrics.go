// Package metrics exposes process-wide Prometheus collectors for the harvester.
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

// Unit results recorded by ObserveUnit.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	unitsTotal                 *prometheus.CounterVec
	activeUnits                *prometheus.GaugeVec
	bytesTotal                 *prometheus.CounterVec
	assetsSkippedTotal         prometheus.Counter
	rateLimitDelaysSeconds     *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		unitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_units_total",
				Help: "Units executed, labeled by pass and result.",
			},
			[]string{"pass", "result"},
		)

		activeUnits = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harvester_active_units",
				Help: "Units currently in flight, labeled by pass.",
			},
			[]string{"pass"},
		)

		bytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_bytes_total",
				Help: "Response bytes received, labeled by site.",
			},
			[]string{"site"},
		)

		assetsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_assets_skipped_total",
				Help: "Asset downloads satisfied by an existing object.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
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

// ObserveUnit counts one finished unit of the given pass.
func ObserveUnit(pass string, ok bool) {
	Init()
	result := ResultSuccess
	if !ok {
		result = ResultFailure
	}
	unitsTotal.WithLabelValues(pass, result).Inc()
}

// UnitStarted marks a unit of pass as in flight and returns the matching release.
func UnitStarted(pass string) func() {
	Init()
	g := activeUnits.WithLabelValues(pass)
	g.Inc()
	return g.Dec
}

// ObserveBytes adds n response bytes for the host of rawURL.
func ObserveBytes(rawURL string, n int) {
	if n <= 0 {
		return
	}
	Init()
	bytesTotal.WithLabelValues(SanitizeSite(rawURL)).Add(float64(n))
}

// ObserveAssetSkipped counts a download satisfied by an existing object.
func ObserveAssetSkipped() {
	Init()
	assetsSkippedTotal.Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one request served by the status API.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
