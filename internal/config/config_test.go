package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout: 5s
auth:
  api_key: secret
site:
  name: Cambutal Guide
  base_url: https://staging.playacambutal.com/
  spa_origin: https://app.playacambutal.com
database:
  dsn: postgres://seo@localhost:5432/seo
  page_table: page_seo_staging
crawlers:
  extra: ["petalbot", "seznambot"]
fallbacks:
  pages:
    /surf:
      title: Surf Cambutal
      description: Breaks and tides.
deploy:
  target: local
  layout: directory
storage:
  local:
    base_dir: /tmp/seo-out
cache:
  ttl: 10m
metadata:
  retry_attempts: 5
  retry_backoff: 50ms
prerender:
  static_routes: ["/", "/surf"]
  min_bytes: 512
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.RequestTimeout != 5*time.Second {
		t.Fatalf("expected server overrides, got %+v", cfg.Server)
	}
	if cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected api key to load")
	}
	if got := cfg.SiteSettings().BaseURL; got != "https://staging.playacambutal.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", got)
	}
	if cfg.StoreDriver() != DriverPostgres {
		t.Fatalf("expected DSN to select postgres, got %q", cfg.StoreDriver())
	}
	if len(cfg.Crawlers.Extra) != 2 || cfg.Crawlers.Extra[0] != "petalbot" {
		t.Fatalf("expected extra crawler tokens, got %v", cfg.Crawlers.Extra)
	}
	entry, ok := cfg.FallbackTable().Lookup("/surf")
	if !ok || entry.Title != "Surf Cambutal" {
		t.Fatalf("expected configured fallback, got %+v (exact=%v)", entry, ok)
	}
	if _, ok := cfg.FallbackTable().Lookup("/eat"); !ok {
		t.Fatalf("expected built-in fallbacks to survive the overlay")
	}
	if cfg.Storage.Local.BaseDir != "/tmp/seo-out" || cfg.Deploy.Layout != "directory" {
		t.Fatalf("expected storage overrides, got %+v %+v", cfg.Storage, cfg.Deploy)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("expected cache ttl 10m, got %v", cfg.Cache.TTL)
	}
	if cfg.Metadata.RetryAttempts != 5 || cfg.Metadata.RetryBackoff != 50*time.Millisecond {
		t.Fatalf("expected metadata retry overrides, got %+v", cfg.Metadata)
	}
	if len(cfg.Prerender.StaticRoutes) != 2 || cfg.Prerender.MinBytes != 512 {
		t.Fatalf("expected prerender overrides, got %+v", cfg.Prerender)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Deploy.Target != "memory" {
		t.Fatalf("expected memory deploy target, got %q", cfg.Deploy.Target)
	}
	if cfg.Metadata.RetryAttempts != 3 || cfg.Metadata.RetryBackoff != 100*time.Millisecond {
		t.Fatalf("expected 3 attempts at 100ms, got %+v", cfg.Metadata)
	}
	if cfg.Prerender.MinBytes != 1024 || cfg.Prerender.Template != "index.html" {
		t.Fatalf("unexpected prerender defaults %+v", cfg.Prerender)
	}
	if cfg.AuditBaseURL() != "https://playacambutal.com" {
		t.Fatalf("expected audit to default to the site, got %q", cfg.AuditBaseURL())
	}
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CAMBUTAL_SERVER_PORT", "7070")
	t.Setenv("CAMBUTAL_SITE_BASE_URL", "https://example.org")
	t.Setenv("CAMBUTAL_AUTH_API_KEY", "env-key")
	t.Setenv("CAMBUTAL_SQLITE_PATH", "/tmp/seo.db")
	t.Setenv("CAMBUTAL_DEPLOY_TARGET", "gcs")
	t.Setenv("CAMBUTAL_STORAGE_GCS_BUCKET", "seo-bucket")
	t.Setenv("CAMBUTAL_CRAWLERS_EXTRA", "petalbot, seznambot")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Site.BaseURL != "https://example.org" || cfg.Auth.APIKey != "env-key" {
		t.Fatalf("expected env site and key, got %+v %+v", cfg.Site, cfg.Auth)
	}
	if cfg.StoreDriver() != DriverSQLite {
		t.Fatalf("expected sqlite path to select sqlite, got %q", cfg.StoreDriver())
	}
	if cfg.Storage.GCSBucket != "seo-bucket" {
		t.Fatalf("expected env bucket, got %q", cfg.Storage.GCSBucket)
	}
	if strings.Join(cfg.Crawlers.Extra, "|") != "petalbot|seznambot" {
		t.Fatalf("expected comma separated tokens, got %v", cfg.Crawlers.Extra)
	}
}

func TestStoreDriver(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "nothing configured", cfg: Config{}, want: DriverNone},
		{name: "dsn", cfg: Config{Database: DatabaseConfig{DSN: "postgres://x"}}, want: DriverPostgres},
		{name: "sqlite path", cfg: Config{SQLite: SQLiteConfig{Path: "seo.db"}}, want: DriverSQLite},
		{name: "explicit none wins", cfg: Config{Database: DatabaseConfig{Driver: "none", DSN: "postgres://x"}}, want: DriverNone},
		{name: "explicit sqlite", cfg: Config{Database: DatabaseConfig{Driver: "SQLite"}, SQLite: SQLiteConfig{Path: "a.db"}}, want: DriverSQLite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.StoreDriver(); got != tc.want {
				t.Fatalf("StoreDriver() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080},
			Site:     SiteConfig{BaseURL: "https://playacambutal.com"},
			Deploy:   DeployConfig{Target: "memory"},
			Metadata: MetadataConfig{RetryAttempts: 3},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "base url missing", mutate: func(c *Config) { c.Site.BaseURL = "" }, want: "site.base_url"},
		{name: "base url relative", mutate: func(c *Config) { c.Site.BaseURL = "playacambutal.com" }, want: "site.base_url"},
		{name: "spa origin", mutate: func(c *Config) { c.Site.SPAOrigin = "ftp://x" }, want: "site.spa_origin"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, want: "database.dsn"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = DriverSQLite }, want: "sqlite.path"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, want: "database.driver"},
		{name: "local without dir", mutate: func(c *Config) { c.Deploy.Target = "local" }, want: "storage.local.base_dir"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Deploy.Target = "gcs" }, want: "storage.gcs_bucket"},
		{name: "unknown target", mutate: func(c *Config) { c.Deploy.Target = "s3" }, want: "deploy.target"},
		{name: "retry attempts", mutate: func(c *Config) { c.Metadata.RetryAttempts = 0 }, want: "metadata.retry_attempts"},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTL = -time.Second }, want: "cache.ttl"},
		{name: "negative min bytes", mutate: func(c *Config) { c.Prerender.MinBytes = -1 }, want: "prerender.min_bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestResolvePath(t *testing.T) {
	if got := ResolvePath("explicit.yaml"); got != "explicit.yaml" {
		t.Fatalf("expected explicit path to win, got %q", got)
	}
	t.Setenv(PathEnv, "/etc/seo/from-env.yaml")
	if got := ResolvePath(""); got != "/etc/seo/from-env.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
}
