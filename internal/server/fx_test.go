package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cambutal-seo/internal/cache"
	"github.com/JakeFAU/cambutal-seo/internal/config"
	"github.com/JakeFAU/cambutal-seo/internal/prerender"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Auth:   config.AuthConfig{APIKey: "admin-key"},
		Site: config.SiteConfig{
			Name:      "Playa Cambutal",
			BaseURL:   "https://playacambutal.com",
			SPAOrigin: "https://app.playacambutal.com",
		},
		Database: config.DatabaseConfig{Driver: config.DriverAuto},
		SQLite:   config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "seo.db")},
		Deploy:   config.DeployConfig{Target: "memory", Cleanup: true, Generator: "cambutal-seo", Version: "test"},
		Cache:    config.CacheConfig{Enabled: true},
		Metadata: config.MetadataConfig{RetryAttempts: 3, PersistOnView: true},
		Prerender: config.PrerenderConfig{
			Template:     "index.html",
			StaticRoutes: []string{"/", "/surf"},
		},
	}
}

func TestHandlerWiresSQLiteStack(t *testing.T) {
	t.Parallel()

	app := New(testConfig(t), nil)
	defer app.Close(context.Background())

	handler, err := app.Handler(context.Background())
	require.NoError(t, err)
	_, isMemory := app.cache.(*cache.Memory)
	assert.True(t, isMemory)
	assert.Contains(t, app.ready, "database")
	assert.Equal(t, "memory", app.DeployTarget().Name)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/surf", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; bingbot/2.0)")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>")

	req = httptest.NewRequest(http.MethodGet, "/surf?day=1", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh) Safari/605.1.15")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.playacambutal.com/surf?day=1", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodPost, "/admin/deploy", nil)
	req.Header.Set("X-API-Key", "admin-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	last, ok := app.deployer.LastRun()
	require.True(t, ok)
	assert.True(t, last.Success)
}

func TestOpenDataWithoutStore(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.SQLite.Path = ""
	app := New(cfg, nil)
	defer app.Close(context.Background())

	metadata, listings, err := app.OpenData(context.Background())
	require.NoError(t, err)
	assert.False(t, metadata.Available())
	assert.Nil(t, listings)
	assert.NotContains(t, app.ready, "database")

	again, _, err := app.OpenData(context.Background())
	require.NoError(t, err)
	assert.Same(t, metadata, again)
}

func TestOpenCacheDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Cache.Enabled = false
	app := New(cfg, nil)

	store, err := app.OpenCache(context.Background())
	require.NoError(t, err)
	assert.IsType(t, cache.Noop{}, store)
}

func TestPrerenderWritesIntoOutputDir(t *testing.T) {
	t.Parallel()

	clientDir := t.TempDir()
	tmpl := `<!DOCTYPE html><html><head><title>App</title></head><body><div id="root">` + prerender.Placeholder + `</div></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(clientDir, "index.html"), []byte(tmpl), 0o600))

	cfg := testConfig(t)
	cfg.Prerender.ClientDir = clientDir
	cfg.Prerender.OutputDir = t.TempDir()
	app := New(cfg, nil)
	defer app.Close(context.Background())

	metadata, _, err := app.OpenData(context.Background())
	require.NoError(t, err)
	_, err = metadata.UpdatePageSEO(context.Background(), seo.PageMetadata{Path: "/surf", Title: "Surf Report"})
	require.NoError(t, err)

	pipeline, err := app.Prerender(context.Background())
	require.NoError(t, err)
	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	body, err := os.ReadFile(filepath.Join(cfg.Prerender.OutputDir, "surf", "index.html"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "<title>Surf Report</title>"))
	_, err = os.Stat(filepath.Join(cfg.Prerender.OutputDir, "index.html"))
	assert.NoError(t, err)
}
