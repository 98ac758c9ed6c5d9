package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/cambutal-seo/internal/cache"
	"github.com/JakeFAU/cambutal-seo/internal/classifier"
	"github.com/JakeFAU/cambutal-seo/internal/hash/sha256"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

// CrawlerCacheControl is sent with every crawler document.
const CrawlerCacheControl = "public, max-age=3600"

const defaultPageTTL = time.Hour

// Metadata sources reported in X-SEO-Source and metrics.
const (
	sourceStored   = "metadata"
	sourceListing  = "listing"
	sourceFallback = "fallback"
	sourceCache    = "cache"
	sourceError    = "last_resort"
	sourceRedirect = "redirect"
)

// PageRouter decides per request between crawler HTML and an SPA redirect.
type PageRouter struct {
	site          seo.Site
	classifier    *classifier.Classifier
	metadata      *seo.MetadataService
	listings      seo.ListingSource
	fallbacks     seo.FallbackTable
	cache         cache.Store
	ttl           time.Duration
	persistOnView bool
	logger        *zap.Logger
	group         singleflight.Group
}

// PageRouterConfig carries the router's collaborators. Metadata, Listings and
// Cache may be nil.
type PageRouterConfig struct {
	Site          seo.Site
	Classifier    *classifier.Classifier
	Metadata      *seo.MetadataService
	Listings      seo.ListingSource
	Fallbacks     seo.FallbackTable
	Cache         cache.Store
	CacheTTL      time.Duration
	PersistOnView bool
	Logger        *zap.Logger
}

// NewPageRouter builds the router.
func NewPageRouter(cfg PageRouterConfig) *PageRouter {
	p := &PageRouter{
		site:          cfg.Site.Normalized(),
		classifier:    cfg.Classifier,
		metadata:      cfg.Metadata,
		listings:      cfg.Listings,
		fallbacks:     cfg.Fallbacks,
		cache:         cfg.Cache,
		ttl:           cfg.CacheTTL,
		persistOnView: cfg.PersistOnView,
		logger:        cfg.Logger,
	}
	if p.classifier == nil {
		p.classifier = classifier.New(nil)
	}
	if len(p.fallbacks.Exact) == 0 && p.fallbacks.Generic.Title == "" {
		p.fallbacks = seo.DefaultFallbacks()
	}
	if p.cache == nil {
		p.cache = cache.Noop{}
	}
	if p.ttl <= 0 {
		p.ttl = defaultPageTTL
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// ServeHTTP implements the crawler/human split. It never answers with a 5xx.
func (p *PageRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := seo.NormalizePath(r.URL.Path)
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("page router panic", zap.Any("error", rec), zap.String("path", path))
			p.writeLastResort(w, path)
		}
	}()

	token, isCrawler := p.classifier.Classify(r.UserAgent())
	if !isCrawler {
		target := p.site.SPAOrigin + r.URL.EscapedPath()
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		telemetry.ObserveRouterDecision("human", sourceRedirect)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	body, source, err := p.render(r.Context(), path)
	if err != nil {
		p.logger.Warn("crawler render failed, serving last resort document",
			zap.String("path", path), zap.String("crawler", token), zap.Error(err))
		p.writeLastResort(w, path)
		return
	}
	telemetry.ObserveRouterDecision("crawler", source)
	p.logger.Debug("served crawler page",
		zap.String("path", path), zap.String("crawler", token), zap.String("source", source))
	p.writeHTML(w, r, http.StatusOK, body, source)
}

// Invalidate drops the cached document of path.
func (p *PageRouter) Invalidate(ctx context.Context, path string) error {
	if err := p.cache.Delete(ctx, cacheKey(seo.NormalizePath(path))); err != nil {
		return fmt.Errorf("invalidate %s: %w", path, err)
	}
	return nil
}

type rendered struct {
	body   []byte
	source string
}

func (p *PageRouter) render(ctx context.Context, path string) ([]byte, string, error) {
	key := cacheKey(path)
	if body, ok, err := p.cache.Get(ctx, key); err != nil {
		p.logger.Warn("page cache read failed", zap.String("path", path), zap.Error(err))
	} else if ok {
		telemetry.ObservePageCache(true)
		return body, sourceCache, nil
	}
	telemetry.ObservePageCache(false)

	v, err, _ := p.group.Do(path, func() (any, error) {
		page, source, err := p.resolve(ctx, path)
		if err != nil {
			return nil, err
		}
		body := []byte(seo.GenerateStaticHTML(p.site, page))
		if p.cacheable(path, source) {
			if err := p.cache.Set(ctx, key, body, p.ttl); err != nil {
				p.logger.Warn("page cache write failed", zap.String("path", path), zap.Error(err))
			}
		}
		return rendered{body: body, source: source}, nil
	})
	if err != nil {
		return nil, "", err
	}
	out, ok := v.(rendered)
	if !ok {
		return nil, "", errors.New("unexpected render result")
	}
	return out.body, out.source, nil
}

// cacheable keeps arbitrary unknown paths out of the cache. Fallback pages
// are cached only for paths the fallback table names exactly.
func (p *PageRouter) cacheable(path, source string) bool {
	if source != sourceFallback {
		return true
	}
	_, exact := p.fallbacks.Exact[path]
	return exact
}

// resolve picks the metadata for path: stored row, generated from the
// listing, then the fallback table.
func (p *PageRouter) resolve(ctx context.Context, path string) (seo.PageMetadata, string, error) {
	if p.metadata != nil && p.metadata.Available() {
		stored, err := p.metadata.GetPageSEO(ctx, path)
		if err != nil {
			return seo.PageMetadata{}, "", err
		}
		if stored != nil {
			return *stored, sourceStored, nil
		}
	}

	if l, ok := p.findListing(ctx, path); ok {
		if p.metadata != nil {
			page, err := p.metadata.EnsurePageSEO(ctx, l, p.persistOnView)
			if err != nil {
				p.logger.Warn("listing metadata not persisted", zap.String("path", path), zap.Error(err))
			}
			return page, sourceListing, nil
		}
		return seo.MetadataFromListing(p.site, l), sourceListing, nil
	}

	return p.fallbacks.Metadata(p.site, path), sourceFallback, nil
}

// findListing maps /{section}/{slug} to an approved listing. Lookup failures
// are logged and treated as a miss.
func (p *PageRouter) findListing(ctx context.Context, path string) (seo.Listing, bool) {
	if p.listings == nil {
		return seo.Listing{}, false
	}
	section, slug, ok := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if !ok || slug == "" || strings.Contains(slug, "/") {
		return seo.Listing{}, false
	}
	kind, ok := seo.ParseListingKind(section)
	if !ok || kind.Section() != section {
		return seo.Listing{}, false
	}
	return lookupListing(ctx, p.listings, kind, slug, p.logger)
}

func lookupListing(ctx context.Context, src seo.ListingSource, kind seo.ListingKind, slug string, logger *zap.Logger) (seo.Listing, bool) {
	listings, err := src.ListListings(ctx, kind)
	if err != nil {
		logger.Warn("listing lookup failed", zap.String("kind", string(kind)), zap.Error(err))
		return seo.Listing{}, false
	}
	for _, l := range listings {
		if l.PathSlug() == slug {
			return l, true
		}
	}
	return seo.Listing{}, false
}

func (p *PageRouter) writeHTML(w http.ResponseWriter, r *http.Request, status int, body []byte, source string) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", CrawlerCacheControl)
	h.Set("Vary", "User-Agent")
	h.Set("X-SEO-Source", source)
	if r != nil && status == http.StatusOK {
		etag := sha256.ETag(body)
		h.Set("ETag", etag)
		if sha256.Matches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.WriteHeader(status)
	if r != nil && r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (p *PageRouter) writeLastResort(w http.ResponseWriter, path string) {
	telemetry.ObserveRouterDecision("crawler", sourceError)
	generic := p.fallbacks.Generic
	body := seo.MinimalHTML(generic.Title, generic.Description, path)
	p.writeHTML(w, nil, http.StatusOK, []byte(body), sourceError)
}

func cacheKey(path string) string {
	return "page:" + path
}
