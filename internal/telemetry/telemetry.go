// Package telemetry holds the Prometheus collectors and OpenTelemetry setup
// shared by the router and the build-time pipelines.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	routerDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_router_decisions_total",
			Help: "Page router responses, labeled by mode (crawler, human) and metadata source.",
		},
		[]string{"mode", "source"},
	)

	pageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_page_cache_total",
			Help: "Rendered page cache lookups, labeled by result.",
		},
		[]string{"result"},
	)

	metadataUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_metadata_upserts_total",
			Help: "Metadata upserts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	metadataUpsertRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seo_metadata_upsert_retries_total",
			Help: "Upsert attempts retried after a unique-key conflict.",
		},
	)

	deployFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_deploy_files_total",
			Help: "Files handled by deployments, labeled by target and outcome.",
		},
		[]string{"target", "outcome"},
	)

	deployRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_deploy_runs_total",
			Help: "Deployment runs, labeled by target and success.",
		},
		[]string{"target", "success"},
	)

	deployDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seo_deploy_duration_seconds",
			Help:    "Histogram of deployment run durations.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"target"},
	)

	prerenderRoutesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_prerender_routes_total",
			Help: "Prerendered routes, labeled by outcome (rendered, shell, failed).",
		},
		[]string{"outcome"},
	)

	sitemapEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seo_sitemap_entries",
			Help: "Number of URLs in the last generated sitemap.",
		},
	)

	sitemapSourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_sitemap_source_errors_total",
			Help: "Sitemap data sources that failed and were skipped.",
		},
		[]string{"source"},
	)

	auditFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_audit_fetches_total",
			Help: "Crawler-view audit fetches, labeled by HTTP status.",
		},
		[]string{"status"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seo_rate_limit_delay_seconds",
			Help:    "Time outbound fetches spent waiting on the per-host rate limiter.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"host"},
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
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRouterDecision records one page router response.
func ObserveRouterDecision(mode, source string) {
	routerDecisionsTotal.WithLabelValues(mode, source).Inc()
}

// ObservePageCache records a page cache hit or miss.
func ObservePageCache(hit bool) {
	if hit {
		pageCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	pageCacheTotal.WithLabelValues("miss").Inc()
}

// ObserveMetadataUpsert records the outcome of a metadata upsert.
func ObserveMetadataUpsert(outcome string) {
	metadataUpsertsTotal.WithLabelValues(outcome).Inc()
}

// ObserveMetadataRetry records a retried upsert attempt.
func ObserveMetadataRetry() {
	metadataUpsertRetriesTotal.Inc()
}

// ObserveDeployFile records the outcome of one deployed file.
func ObserveDeployFile(target string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "succeeded"
	}
	deployFilesTotal.WithLabelValues(target, outcome).Inc()
}

// ObserveDeployRun records a finished deployment.
func ObserveDeployRun(target string, success bool, duration time.Duration) {
	deployRunsTotal.WithLabelValues(target, strconv.FormatBool(success)).Inc()
	deployDurationSeconds.WithLabelValues(target).Observe(duration.Seconds())
}

// ObservePrerenderRoute records the outcome of one prerendered route.
func ObservePrerenderRoute(outcome string) {
	prerenderRoutesTotal.WithLabelValues(outcome).Inc()
}

// ObserveSitemap records the size of a generated sitemap.
func ObserveSitemap(entries int) {
	sitemapEntries.Set(float64(entries))
}

// ObserveSitemapSourceError records a skipped sitemap data source.
func ObserveSitemapSourceError(source string) {
	sitemapSourceErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveAuditFetch records a crawler-view audit fetch.
func ObserveAuditFetch(status int) {
	auditFetchesTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveRateLimitDelay records time spent waiting for a host's token.
func ObserveRateLimitDelay(host string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
}
