package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/audit"
	"github.com/JakeFAU/cambutal-seo/internal/middleware"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

const readinessTimeout = 3 * time.Second

// Deployer runs deployments and remembers the last one.
type Deployer interface {
	Deploy(ctx context.Context, files []seo.DeployFile, info seo.ManifestInfo) seo.DeploymentStat
	LastRun() (seo.DeploymentStat, bool)
}

// SitemapGenerator renders the sitemap document.
type SitemapGenerator interface {
	Generate(ctx context.Context) ([]byte, error)
}

// Auditor fetches a URL the way a crawler does.
type Auditor interface {
	Inspect(ctx context.Context, url string) (audit.Result, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options wires the server. Everything except Router may be nil; the
// matching routes then answer 503.
type Options struct {
	Site           seo.Site
	Router         *PageRouter
	Metadata       *seo.MetadataService
	Listings       seo.ListingSource
	Fallbacks      seo.FallbackTable
	Deployer       Deployer
	Manifest       seo.ManifestInfo
	Sitemap        SitemapGenerator
	Auditor        Auditor
	AuditBaseURL   string
	APIKey         string
	RequestTimeout time.Duration
	Ready          map[string]ReadinessCheck
	Logger         *zap.Logger
}

// Server wires HTTP handlers to the SEO services.
type Server struct {
	router chi.Router
	opts   Options
	site   seo.Site
	pages  *PageRouter
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pages := opts.Router
	if pages == nil {
		pages = NewPageRouter(PageRouterConfig{
			Site:      opts.Site,
			Metadata:  opts.Metadata,
			Listings:  opts.Listings,
			Fallbacks: opts.Fallbacks,
			Logger:    logger.Named("router"),
		})
	}
	if len(opts.Fallbacks.Exact) == 0 && opts.Fallbacks.Generic.Title == "" {
		opts.Fallbacks = seo.DefaultFallbacks()
	}
	s := &Server{
		opts:   opts,
		site:   opts.Site.Normalized(),
		pages:  pages,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(telemetry.Middleware)
	r.Use(middleware.CORS)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", telemetry.Handler())
	r.Get("/robots.txt", s.robots)
	r.Get("/sitemap.xml", s.sitemapXML)

	r.Route("/api/seo", func(r chi.Router) {
		r.Use(middleware.Recover(logger))
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Get("/page", s.getPublicPage)
		r.Get("/listing/{kind}/{slug}", s.getListingPage)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Recover(logger))
		r.Use(middleware.APIKey(opts.APIKey))
		r.Post("/seo/generate", s.generate)
		r.Get("/seo/pages", s.getPages)
		r.Put("/seo/pages", s.putPage)
		r.Delete("/cache", s.invalidate)
		r.Post("/deploy", s.deploy)
		r.Get("/deploy/last", s.lastDeploy)
		r.Get("/sitemap", s.downloadSitemap)
		r.Get("/audit", s.audit)
	})

	r.Handle("/*", pages)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.opts.Ready {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for n := range failed {
			names = append(names, n)
		}
		sort.Strings(names)
		s.logger.Warn("readiness check failed", zap.Strings("checks", names))
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) robots(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n\n")
	b.WriteString("Sitemap: " + s.site.CanonicalURL("/sitemap.xml") + "\n")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) sitemapXML(w http.ResponseWriter, r *http.Request) {
	s.writeSitemap(w, r, false)
}

func (s *Server) writeSitemap(w http.ResponseWriter, r *http.Request, attachment bool) {
	if s.opts.Sitemap == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "sitemap generator unavailable")
		return
	}
	body, err := s.opts.Sitemap.Generate(r.Context())
	if err != nil {
		s.logger.Error("sitemap generation failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "sitemap generation failed")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if attachment {
		w.Header().Set("Content-Disposition", `attachment; filename="sitemap.xml"`)
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
