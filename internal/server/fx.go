// Package server wires configuration into the long-lived services shared by
// the HTTP server and the build-time commands.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/api"
	"github.com/JakeFAU/cambutal-seo/internal/audit"
	"github.com/JakeFAU/cambutal-seo/internal/cache"
	rediscache "github.com/JakeFAU/cambutal-seo/internal/cache/redis"
	"github.com/JakeFAU/cambutal-seo/internal/classifier"
	"github.com/JakeFAU/cambutal-seo/internal/config"
	"github.com/JakeFAU/cambutal-seo/internal/deploy"
	"github.com/JakeFAU/cambutal-seo/internal/prerender"
	memorypublisher "github.com/JakeFAU/cambutal-seo/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/cambutal-seo/internal/publisher/pubsub"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/sitemap"
	"github.com/JakeFAU/cambutal-seo/internal/storage"
	"github.com/JakeFAU/cambutal-seo/internal/storage/local"
	pgstore "github.com/JakeFAU/cambutal-seo/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/cambutal-seo/internal/storage/sqlite"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

const cacheSweepInterval = time.Minute

// App contains the application's dependencies. Components are opened on
// demand so build-time commands only touch what they use.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	site      seo.Site
	fallbacks seo.FallbackTable

	metadata *seo.MetadataService
	listings seo.ListingSource
	cache    cache.Store
	target   *storage.Target
	deployer *deploy.Manager
	router   *api.PageRouter

	ready   map[string]api.ReadinessCheck
	closers []namedCloser

	tracerShutdown func(context.Context) error
}

type namedCloser struct {
	name  string
	close func() error
}

// New creates an App with nothing opened yet.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:       cfg,
		logger:    logger,
		site:      cfg.SiteSettings(),
		fallbacks: cfg.FallbackTable(),
		ready:     make(map[string]api.ReadinessCheck),
	}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Site returns the configured site settings.
func (a *App) Site() seo.Site {
	return a.site
}

// Fallbacks returns the merged fallback table.
func (a *App) Fallbacks() seo.FallbackTable {
	return a.fallbacks
}

// InitTracing installs the global tracer provider.
func (a *App) InitTracing(ctx context.Context) error {
	tp, err := telemetry.InitTracerProvider(ctx, "cambutal-seo", a.cfg.Deploy.Version)
	if err != nil {
		return fmt.Errorf("tracer init failed: %w", err)
	}
	a.tracerShutdown = tp.Shutdown
	return nil
}

// OpenData opens the metadata store and listing source selected by config.
// With no store configured the metadata service reports unavailable and every
// reader degrades to fallbacks.
func (a *App) OpenData(ctx context.Context) (*seo.MetadataService, seo.ListingSource, error) {
	if a.metadata != nil {
		return a.metadata, a.listings, nil
	}
	var store seo.MetadataStore
	switch driver := a.cfg.StoreDriver(); driver {
	case config.DriverPostgres:
		pool, err := pgstore.Open(ctx, pgstore.Config{
			DSN:             a.cfg.Database.DSN,
			MaxConns:        a.cfg.Database.MaxConns,
			MinConns:        a.cfg.Database.MinConns,
			MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres init failed: %w", err)
		}
		a.addCloser("postgres", func() error { pool.Close(); return nil })
		pages, err := pgstore.NewPageStoreWithPool(pool, a.cfg.Database.PageTable)
		if err != nil {
			return nil, nil, fmt.Errorf("page store init failed: %w", err)
		}
		if a.cfg.Database.EnsureSchema {
			if err := pages.EnsureSchema(ctx); err != nil {
				return nil, nil, fmt.Errorf("page store schema: %w", err)
			}
		}
		listings, err := pgstore.NewListingStoreWithPool(pool)
		if err != nil {
			return nil, nil, fmt.Errorf("listing store init failed: %w", err)
		}
		store, a.listings = pages, listings
		a.ready["database"] = pages.Ping
		a.logger.Info("using postgres metadata store", zap.String("table", a.cfg.Database.PageTable))
	case config.DriverSQLite:
		db, err := sqlitestore.Open(ctx, a.cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite init failed: %w", err)
		}
		a.addCloser("sqlite", db.Close)
		store, a.listings = db, db
		a.ready["database"] = db.Ping
		a.logger.Info("using sqlite metadata store", zap.String("path", a.cfg.SQLite.Path))
	default:
		a.logger.Warn("no metadata store configured, serving fallback metadata only")
	}

	a.metadata = seo.NewMetadataService(store, a.site, a.logger.Named("metadata"),
		seo.WithUpsertRetry(a.cfg.Metadata.RetryAttempts, a.cfg.Metadata.RetryBackoff))
	return a.metadata, a.listings, nil
}

// OpenCache returns the rendered-page cache: Redis when an address is set,
// otherwise process memory, or nothing when disabled.
func (a *App) OpenCache(ctx context.Context) (cache.Store, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	switch {
	case !a.cfg.Cache.Enabled:
		a.logger.Info("page cache disabled")
		a.cache = cache.Noop{}
	case a.cfg.Cache.RedisAddr != "":
		store, err := rediscache.Dial(ctx, a.cfg.Cache.RedisAddr, a.cfg.Cache.RedisPassword, a.cfg.Cache.RedisDB, a.cfg.Cache.Prefix)
		if err != nil {
			return nil, fmt.Errorf("redis cache init failed: %w", err)
		}
		a.addCloser("redis", store.Close)
		a.ready["cache"] = store.Ping
		a.cache = store
		a.logger.Info("using redis page cache", zap.String("addr", a.cfg.Cache.RedisAddr))
	default:
		a.cache = cache.NewMemory()
		a.logger.Info("using in-memory page cache")
	}
	return a.cache, nil
}

// OpenDeployer builds the deployment target, its publisher and the manager.
func (a *App) OpenDeployer(ctx context.Context) (*deploy.Manager, error) {
	if a.deployer != nil {
		return a.deployer, nil
	}
	target, err := storage.Open(ctx, storage.Config{
		Target:       a.cfg.Deploy.Target,
		Layout:       a.cfg.Deploy.Layout,
		LocalDir:     a.cfg.Storage.Local.BaseDir,
		GCSBucket:    a.cfg.Storage.GCSBucket,
		GCSPrefix:    a.cfg.Storage.GCSPrefix,
		CacheControl: a.cfg.Storage.CacheControl,
	}, a.logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("deploy target init failed: %w", err)
	}
	a.target = target
	a.addCloser("deploy target", target.Close)

	publisher, topic, err := a.openPublisher(ctx)
	if err != nil {
		return nil, err
	}
	a.deployer = deploy.NewManager(target.Name, target.Writer, a.logger.Named("deploy"),
		deploy.WithLayout(target.Layout),
		deploy.WithCleanup(a.cfg.Deploy.Cleanup),
		deploy.WithPublisher(publisher, topic),
	)
	return a.deployer, nil
}

// DeployTarget returns the target opened by OpenDeployer.
func (a *App) DeployTarget() *storage.Target {
	return a.target
}

// ManifestInfo describes this build in deployment manifests.
func (a *App) ManifestInfo() seo.ManifestInfo {
	return seo.ManifestInfo{Generator: a.cfg.Deploy.Generator, Version: a.cfg.Deploy.Version}
}

func (a *App) openPublisher(ctx context.Context) (seo.Publisher, string, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), deploy.DefaultTopic, nil
	}
	pub, err := gcppublisher.Dial(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.TopicName)
	if err != nil {
		return nil, "", fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.addCloser("pubsub", pub.Close)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName))
	return pub, a.cfg.PubSub.TopicName, nil
}

// Sitemap builds the sitemap generator over the opened data sources.
func (a *App) Sitemap(ctx context.Context) (*sitemap.Generator, error) {
	metadata, listings, err := a.OpenData(ctx)
	if err != nil {
		return nil, err
	}
	g := &sitemap.Generator{
		Site:   a.site,
		Pages:  metadata,
		Logger: a.logger.Named("sitemap"),
	}
	if listings != nil {
		g.Listings = listings
	}
	return g, nil
}

// Auditor builds the crawler-view auditor.
func (a *App) Auditor() *audit.Auditor {
	return audit.New(audit.Config{
		UserAgent:         a.cfg.Audit.UserAgent,
		Timeout:           a.cfg.Audit.Timeout,
		RequestsPerSecond: a.cfg.Audit.RequestsPerSecond,
		Burst:             a.cfg.Audit.Burst,
		ShellThreshold:    a.cfg.Audit.ShellThreshold,
	})
}

// Prerender builds the prerender pipeline writing into the client build.
func (a *App) Prerender(ctx context.Context) (*prerender.Pipeline, error) {
	metadata, listings, err := a.OpenData(ctx)
	if err != nil {
		return nil, err
	}
	outDir := a.cfg.Prerender.OutputDir
	if outDir == "" {
		outDir = a.cfg.Prerender.ClientDir
	}
	w, err := local.New(local.Config{BaseDir: outDir})
	if err != nil {
		return nil, fmt.Errorf("prerender output: %w", err)
	}
	pc := a.cfg.Prerender
	return prerender.New(prerender.Config{
		ClientDir:    pc.ClientDir,
		Template:     pc.Template,
		BuildCommand: pc.BuildCommand,
		BuildDir:     pc.BuildDir,
		BuildTimeout: pc.BuildTimeout,
		Headless:     pc.Headless,
		Chrome: prerender.ChromeConfig{
			ExecPath:      pc.ChromePath,
			MountSelector: pc.MountSelector,
			Timeout:       pc.RenderTimeout,
			Settle:        pc.Settle,
		},
		StaticRoutes: pc.StaticRoutes,
		MinBytes:     pc.MinBytes,
	}, a.site, a.fallbacks, w, a.logger.Named("prerender"), prerender.WithMetadata(metadata, listings)), nil
}

// Handler opens every component the HTTP server needs and returns its
// handler.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	metadata, listings, err := a.OpenData(ctx)
	if err != nil {
		return nil, err
	}
	pageCache, err := a.OpenCache(ctx)
	if err != nil {
		return nil, err
	}
	deployer, err := a.OpenDeployer(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := a.Sitemap(ctx)
	if err != nil {
		return nil, err
	}

	a.router = api.NewPageRouter(api.PageRouterConfig{
		Site:          a.site,
		Classifier:    classifier.New(a.cfg.Crawlers.Tokens, a.cfg.Crawlers.Extra...),
		Metadata:      metadata,
		Listings:      listings,
		Fallbacks:     a.fallbacks,
		Cache:         pageCache,
		CacheTTL:      a.cfg.Cache.TTL,
		PersistOnView: a.cfg.Metadata.PersistOnView,
		Logger:        a.logger.Named("router"),
	})
	if a.cfg.Auth.APIKey == "" {
		a.logger.Warn("auth.api_key is empty, admin routes will reject every request")
	}

	srv := api.NewServer(api.Options{
		Site:           a.site,
		Router:         a.router,
		Metadata:       metadata,
		Listings:       listings,
		Fallbacks:      a.fallbacks,
		Deployer:       deployer,
		Manifest:       a.ManifestInfo(),
		Sitemap:        generator,
		Auditor:        a.Auditor(),
		AuditBaseURL:   a.cfg.AuditBaseURL(),
		APIKey:         a.cfg.Auth.APIKey,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Ready:          a.ready,
		Logger:         a.logger.Named("api"),
	})
	return srv.Handler(), nil
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, err := a.Handler(ctx)
	if err != nil {
		return err
	}
	if mem, ok := a.cache.(*cache.Memory); ok {
		go sweepCache(ctx, mem, a.logger)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown initiated")
	case serveErr = <-errCh:
		a.logger.Error("http server error", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}

// Close releases every opened component in reverse order.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *App) addCloser(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func sweepCache(ctx context.Context, mem *cache.Memory, logger *zap.Logger) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug("expired cached pages", zap.Int("removed", n))
			}
		}
	}
}
