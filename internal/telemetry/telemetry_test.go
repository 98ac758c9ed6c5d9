package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(pageCacheTotal.WithLabelValues("hit"))
	ObservePageCache(true)
	assert.Equal(t, before+1, testutil.ToFloat64(pageCacheTotal.WithLabelValues("hit")))

	before = testutil.ToFloat64(deployFilesTotal.WithLabelValues("memory", "failed"))
	ObserveDeployFile("memory", false)
	assert.Equal(t, before+1, testutil.ToFloat64(deployFilesTotal.WithLabelValues("memory", "failed")))

	before = testutil.ToFloat64(deployRunsTotal.WithLabelValues("memory", "true"))
	ObserveDeployRun("memory", true, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(deployRunsTotal.WithLabelValues("memory", "true")))

	ObserveSitemap(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(sitemapEntries))

	before = testutil.ToFloat64(routerDecisionsTotal.WithLabelValues("crawler", "fallback"))
	ObserveRouterDecision("crawler", "fallback")
	assert.Equal(t, before+1, testutil.ToFloat64(routerDecisionsTotal.WithLabelValues("crawler", "fallback")))

	before = testutil.ToFloat64(auditFetchesTotal.WithLabelValues("404"))
	ObserveAuditFetch(http.StatusNotFound)
	assert.Equal(t, before+1, testutil.ToFloat64(auditFetchesTotal.WithLabelValues("404")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/seo/listing/{kind}/{slug}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "201"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/seo/listing/stay/hotel-x", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "201")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestDurationSeconds), 1)
}

func TestInitTracerProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := InitTracerProvider(context.Background(), "cambutal-seo", "test", sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer().Start(context.Background(), "deploy.Run")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "deploy.Run", spans[0].Name)
}
