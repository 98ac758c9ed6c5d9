// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// EnvPrefix prefixes every environment override, e.g. CAMBUTAL_DATABASE_DSN.
const EnvPrefix = "CAMBUTAL"

// PathEnv names a config file for runs that take no flags.
const PathEnv = EnvPrefix + "_CONFIG"

// SearchPaths are checked in order for config.yaml when no path is given.
var SearchPaths = []string{".", "/etc/cambutal-seo", "$HOME/.cambutal-seo"}

// Metadata store drivers.
const (
	DriverAuto     = "auto"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Site      SiteConfig      `mapstructure:"site"`
	Database  DatabaseConfig  `mapstructure:"database"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Crawlers  CrawlersConfig  `mapstructure:"crawlers"`
	Fallbacks FallbacksConfig `mapstructure:"fallbacks"`
	Deploy    DeployConfig    `mapstructure:"deploy"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Sitemap   SitemapConfig   `mapstructure:"sitemap"`
	Prerender PrerenderConfig `mapstructure:"prerender"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig holds the admin API key. An empty key locks the admin routes.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Name          string `mapstructure:"name"`
	BaseURL       string `mapstructure:"base_url"`
	SPAOrigin     string `mapstructure:"spa_origin"`
	DefaultImage  string `mapstructure:"default_image"`
	Locale        string `mapstructure:"locale"`
	Language      string `mapstructure:"language"`
	TwitterHandle string `mapstructure:"twitter_handle"`
}

// DatabaseConfig controls the Postgres metadata and listing store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	PageTable       string        `mapstructure:"page_table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
}

// SQLiteConfig points at the local metadata database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// CrawlersConfig overrides the crawler token list. Extra tokens are appended
// to Tokens (or to the built-in list when Tokens is empty).
type CrawlersConfig struct {
	Tokens []string `mapstructure:"tokens"`
	Extra  []string `mapstructure:"extra"`
}

// FallbacksConfig overlays the built-in fallback metadata table.
type FallbacksConfig struct {
	Pages   map[string]seo.FallbackEntry `mapstructure:"pages"`
	Generic seo.FallbackEntry            `mapstructure:"generic"`
}

// DeployConfig selects the deployment target.
type DeployConfig struct {
	Target    string `mapstructure:"target"`
	Layout    string `mapstructure:"layout"`
	Cleanup   bool   `mapstructure:"cleanup"`
	Generator string `mapstructure:"generator"`
	Version   string `mapstructure:"version"`
}

// StorageConfig configures the deployment writers.
type StorageConfig struct {
	Local        LocalStorageConfig `mapstructure:"local"`
	GCSBucket    string             `mapstructure:"gcs_bucket"`
	GCSPrefix    string             `mapstructure:"gcs_prefix"`
	CacheControl string             `mapstructure:"cache_control"`
}

// LocalStorageConfig points the local writer at a directory.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// PubSubConfig holds metadata for deployment notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CacheConfig controls the rendered-page cache.
type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// SitemapConfig controls the build-time sitemap file.
type SitemapConfig struct {
	OutputPath string `mapstructure:"output_path"`
}

// PrerenderConfig controls the build-time prerender run.
type PrerenderConfig struct {
	ClientDir     string        `mapstructure:"client_dir"`
	Template      string        `mapstructure:"template"`
	BuildCommand  string        `mapstructure:"build_command"`
	BuildDir      string        `mapstructure:"build_dir"`
	BuildTimeout  time.Duration `mapstructure:"build_timeout"`
	Headless      bool          `mapstructure:"headless"`
	ChromePath    string        `mapstructure:"chrome_path"`
	MountSelector string        `mapstructure:"mount_selector"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	Settle        time.Duration `mapstructure:"settle"`
	OutputDir     string        `mapstructure:"output_dir"`
	MinBytes      int           `mapstructure:"min_bytes"`
	StaticRoutes  []string      `mapstructure:"static_routes"`
}

// AuditConfig controls crawler-view audits.
type AuditConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ShellThreshold    int           `mapstructure:"shell_threshold"`
}

// LoggingConfig toggles zap development features and the level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetadataConfig tunes metadata writes.
type MetadataConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	PersistOnView bool          `mapstructure:"persist_on_view"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Crawlers.Tokens = splitList(cfg.Crawlers.Tokens)
	cfg.Crawlers.Extra = splitList(cfg.Crawlers.Extra)
	cfg.Prerender.StaticRoutes = splitList(cfg.Prerender.StaticRoutes)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ResolvePath picks the config file: explicit, then $CAMBUTAL_CONFIG, then
// the first config.yaml on SearchPaths. Empty means env and defaults only.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	for _, dir := range SearchPaths {
		candidate := filepath.Join(os.ExpandEnv(dir), "config.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("site.name", "Playa Cambutal")
	v.SetDefault("site.base_url", "https://playacambutal.com")
	v.SetDefault("site.spa_origin", "")
	v.SetDefault("site.default_image", "/images/cambutal-og.jpg")
	v.SetDefault("site.locale", "en_US")
	v.SetDefault("site.language", "en")
	v.SetDefault("site.twitter_handle", "")
	v.SetDefault("database.driver", DriverAuto)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.page_table", "page_seo")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.ensure_schema", false)
	v.SetDefault("sqlite.path", "")
	v.SetDefault("crawlers.tokens", []string{})
	v.SetDefault("crawlers.extra", []string{})
	v.SetDefault("deploy.target", "memory")
	v.SetDefault("deploy.layout", string(seo.LayoutFlat))
	v.SetDefault("deploy.cleanup", true)
	v.SetDefault("deploy.generator", "cambutal-seo")
	v.SetDefault("deploy.version", "dev")
	v.SetDefault("storage.local.base_dir", "dist/seo")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "")
	v.SetDefault("storage.cache_control", "public, max-age=3600")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "cambutal-seo:")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("sitemap.output_path", "public/sitemap.xml")
	v.SetDefault("prerender.client_dir", "dist/client")
	v.SetDefault("prerender.template", "index.html")
	v.SetDefault("prerender.build_command", "")
	v.SetDefault("prerender.build_dir", ".")
	v.SetDefault("prerender.build_timeout", 5*time.Minute)
	v.SetDefault("prerender.headless", true)
	v.SetDefault("prerender.chrome_path", "")
	v.SetDefault("prerender.mount_selector", "#root")
	v.SetDefault("prerender.render_timeout", 30*time.Second)
	v.SetDefault("prerender.settle", 250*time.Millisecond)
	v.SetDefault("prerender.output_dir", "dist/client")
	v.SetDefault("prerender.min_bytes", 1024)
	v.SetDefault("prerender.static_routes", []string{})
	v.SetDefault("audit.base_url", "")
	v.SetDefault("audit.user_agent", "")
	v.SetDefault("audit.timeout", 15*time.Second)
	v.SetDefault("audit.requests_per_second", 2.0)
	v.SetDefault("audit.burst", 1)
	v.SetDefault("audit.shell_threshold", 0)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metadata.retry_attempts", 3)
	v.SetDefault("metadata.retry_backoff", 100*time.Millisecond)
	v.SetDefault("metadata.persist_on_view", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if err := validateURL("site.base_url", c.Site.BaseURL, true); err != nil {
		return err
	}
	if err := validateURL("site.spa_origin", c.Site.SPAOrigin, false); err != nil {
		return err
	}
	switch c.StoreDriver() {
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is postgres")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path must be set when database.driver is sqlite")
		}
	case DriverNone:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Deploy.Target) {
	case "memory", "":
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir must be set for the local deploy target")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs deploy target")
		}
	default:
		return fmt.Errorf("unknown deploy.target %q", c.Deploy.Target)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0")
	}
	if c.Metadata.RetryAttempts <= 0 {
		return fmt.Errorf("metadata.retry_attempts must be > 0")
	}
	if c.Metadata.RetryBackoff < 0 {
		return fmt.Errorf("metadata.retry_backoff must be >= 0")
	}
	if c.Prerender.MinBytes < 0 {
		return fmt.Errorf("prerender.min_bytes must be >= 0")
	}
	if c.Audit.RequestsPerSecond < 0 {
		return fmt.Errorf("audit.requests_per_second must be >= 0")
	}
	return nil
}

// StoreDriver resolves DriverAuto: a DSN selects Postgres, a SQLite path
// selects SQLite, otherwise no store is used.
func (c Config) StoreDriver() string {
	driver := strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if driver != "" && driver != DriverAuto {
		return driver
	}
	switch {
	case c.Database.DSN != "":
		return DriverPostgres
	case c.SQLite.Path != "":
		return DriverSQLite
	default:
		return DriverNone
	}
}

// SiteSettings converts the site section into seo.Site.
func (c Config) SiteSettings() seo.Site {
	return seo.Site{
		Name:          c.Site.Name,
		BaseURL:       c.Site.BaseURL,
		SPAOrigin:     c.Site.SPAOrigin,
		DefaultImage:  c.Site.DefaultImage,
		Locale:        c.Site.Locale,
		Language:      c.Site.Language,
		TwitterHandle: c.Site.TwitterHandle,
	}.Normalized()
}

// FallbackTable overlays configured fallbacks on the built-in table.
func (c Config) FallbackTable() seo.FallbackTable {
	return seo.DefaultFallbacks().Merge(c.Fallbacks.Pages, c.Fallbacks.Generic)
}

// AuditBaseURL is the origin audits fetch from, defaulting to the site.
func (c Config) AuditBaseURL() string {
	if c.Audit.BaseURL != "" {
		return strings.TrimRight(c.Audit.BaseURL, "/")
	}
	return c.SiteSettings().BaseURL
}

func validateURL(key, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s must be set", key)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
