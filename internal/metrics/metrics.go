// Package metrics exposes Prometheus collectors for the fetch pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal                *prometheus.CounterVec
	fetchBytesTotal           *prometheus.CounterVec
	fetchDurationSeconds      *prometheus.HistogramVec
	retriesTotal              *prometheus.CounterVec
	insecureFallbacksTotal    prometheus.Counter
	outcomesTotal             *prometheus.CounterVec
	activeWorkers             prometheus.Gauge
	rateLimitDelaySeconds     *prometheus.HistogramVec
	httpRequestDurationSecond *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsimg_pages_total",
				Help: "Total fetch attempts, labeled by site and result.",
			},
			[]string{"site", "result"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsimg_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsimg_fetch_duration_seconds",
				Help:    "Histogram of fetch attempt latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 12},
			},
			[]string{"site"},
		)

		retriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsimg_retries_total",
				Help: "Retry attempts scheduled after transient failures, labeled by reason.",
			},
			[]string{"reason"},
		)

		insecureFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newsimg_insecure_fallbacks_total",
				Help: "Tasks retried without certificate verification after an SSL failure.",
			},
		)

		outcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsimg_outcomes_total",
				Help: "Terminal row outcomes, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newsimg_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsimg_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsimg_http_request_duration_seconds",
				Help:    "Histogram of metrics endpoint request latencies, labeled by method and route.",
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

// ObserveFetch records one fetch attempt. The result is "success" or
// the failure kind. Calls before Init are no-ops.
func ObserveFetch(site, result string, bytesFetched int, duration time.Duration) {
	if pagesTotal == nil {
		return
	}
	sanitizedSite := SanitizeSite(site)
	pagesTotal.WithLabelValues(sanitizedSite, result).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
	fetchDurationSeconds.WithLabelValues(sanitizedSite).Observe(duration.Seconds())
}

// ObserveRetry increments the retry counter for the given reason.
func ObserveRetry(reason string) {
	if retriesTotal == nil {
		return
	}
	retriesTotal.WithLabelValues(reason).Inc()
}

// ObserveInsecureFallback counts a task switching to insecure fetching.
func ObserveInsecureFallback() {
	if insecureFallbacksTotal == nil {
		return
	}
	insecureFallbacksTotal.Inc()
}

// ObserveOutcome increments the outcome counter for the given status.
func ObserveOutcome(status string) {
	if outcomesTotal == nil {
		return
	}
	outcomesTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest records a metrics endpoint request latency.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	if httpRequestDurationSecond == nil {
		return
	}
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}
