package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/deploy"
	"github.com/JakeFAU/cambutal-seo/internal/middleware"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

const maxBodyBytes = 1 << 20

type pageResponse struct {
	Source string           `json:"source"`
	Page   seo.PageMetadata `json:"page"`
}

// getPublicPage handles GET /api/seo/page?path=. It returns the fully
// resolved metadata the crawler document for path would carry.
func (s *Server) getPublicPage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if strings.TrimSpace(path) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}
	path = seo.NormalizePath(path)
	page, source, err := s.pages.resolve(r.Context(), path)
	if err != nil {
		s.logger.Warn("metadata lookup failed, using fallback", zap.String("path", path), zap.Error(err))
		page, source = s.opts.Fallbacks.Metadata(s.site, path), sourceFallback
	}
	middleware.WriteJSON(w, http.StatusOK, pageResponse{Source: source, Page: seo.Resolve(s.site, page)})
}

// getListingPage handles GET /api/seo/listing/{kind}/{slug}. Metadata is
// generated on the fly and never persisted from this public route.
func (s *Server) getListingPage(w http.ResponseWriter, r *http.Request) {
	kind, ok := seo.ParseListingKind(chi.URLParam(r, "kind"))
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "unknown listing kind")
		return
	}
	if s.opts.Listings == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "listing source unavailable")
		return
	}
	listing, found := lookupListing(r.Context(), s.opts.Listings, kind, chi.URLParam(r, "slug"), s.logger)
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "listing not found")
		return
	}
	var page seo.PageMetadata
	if s.opts.Metadata != nil {
		var err error
		page, err = s.opts.Metadata.EnsurePageSEO(r.Context(), listing, false)
		if err != nil {
			s.logger.Warn("listing metadata lookup failed", zap.String("path", listing.Path()), zap.Error(err))
		}
	} else {
		page = seo.MetadataFromListing(s.site, listing)
	}
	middleware.WriteJSON(w, http.StatusOK, pageResponse{Source: sourceListing, Page: seo.Resolve(s.site, page)})
}

type generateRequest struct {
	Kinds         []string `json:"kinds"`
	IncludeStatic bool     `json:"includeStatic"`
}

// generate handles POST /admin/seo/generate.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if !s.storeAvailable(w) {
		return
	}
	var req generateRequest
	if err := decodeOptional(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	bulk := seo.BulkRequest{IncludeStatic: req.IncludeStatic}
	for _, raw := range req.Kinds {
		kind, ok := seo.ParseListingKind(raw)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "unknown listing kind: "+raw)
			return
		}
		bulk.Kinds = append(bulk.Kinds, kind)
	}
	result, err := s.opts.Metadata.BulkGenerate(r.Context(), s.opts.Listings, s.opts.Fallbacks, bulk)
	if err != nil {
		s.logger.Error("bulk generation aborted", zap.Error(err))
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "result": result})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// getPages handles GET /admin/seo/pages[?path=].
func (s *Server) getPages(w http.ResponseWriter, r *http.Request) {
	if !s.storeAvailable(w) {
		return
	}
	if path := r.URL.Query().Get("path"); path != "" {
		page, err := s.opts.Metadata.GetPageSEO(r.Context(), path)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if page == nil {
			middleware.WriteError(w, http.StatusNotFound, "page not found")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, page)
		return
	}
	pages, err := s.opts.Metadata.ListPageSEO(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// putPage handles PUT /admin/seo/pages: the body is the full new state of one path.
func (s *Server) putPage(w http.ResponseWriter, r *http.Request) {
	if !s.storeAvailable(w) {
		return
	}
	var page seo.PageMetadata
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&page); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(page.Path) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}
	saved, err := s.opts.Metadata.UpdatePageSEO(r.Context(), page)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.pages.Invalidate(r.Context(), page.Path); err != nil {
		s.logger.Warn("page cache invalidation failed", zap.Error(err))
	}
	if saved == nil {
		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "skipped", "path": seo.NormalizePath(page.Path)})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, saved)
}

// invalidate handles DELETE /admin/cache?path=.
func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		middleware.WriteError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.pages.Invalidate(r.Context(), path); err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deploy handles POST /admin/deploy: render every page and run a deployment.
func (s *Server) deploy(w http.ResponseWriter, r *http.Request) {
	if s.opts.Deployer == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "deployment target unavailable")
		return
	}
	var lister deploy.PageLister
	if s.opts.Metadata != nil {
		lister = s.opts.Metadata
	}
	files, err := deploy.CollectFiles(r.Context(), lister, s.site, s.opts.Fallbacks)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stat := s.opts.Deployer.Deploy(r.Context(), files, s.opts.Manifest)
	middleware.WriteJSON(w, http.StatusOK, stat)
}

// lastDeploy handles GET /admin/deploy/last.
func (s *Server) lastDeploy(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Deployer == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "deployment target unavailable")
		return
	}
	stat, ok := s.opts.Deployer.LastRun()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "no deployment has run")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, stat)
}

// downloadSitemap handles GET /admin/sitemap.
func (s *Server) downloadSitemap(w http.ResponseWriter, r *http.Request) {
	s.writeSitemap(w, r, true)
}

// audit handles GET /admin/audit?path= (or ?url= for an absolute URL).
func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	if s.opts.Auditor == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "auditor unavailable")
		return
	}
	target := r.URL.Query().Get("url")
	if target == "" {
		path := r.URL.Query().Get("path")
		if path == "" {
			middleware.WriteError(w, http.StatusBadRequest, "path or url is required")
			return
		}
		target = s.site.CanonicalURL(path)
	}
	if !s.auditAllowed(target) {
		middleware.WriteError(w, http.StatusBadRequest, "url must be on the site or the audit base url")
		return
	}
	result, err := s.opts.Auditor.Inspect(r.Context(), target)
	if err != nil {
		middleware.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// auditAllowed limits audits to the site origin and the configured audit
// origin so the endpoint cannot be pointed at arbitrary hosts.
func (s *Server) auditAllowed(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return false
	}
	for _, base := range []string{s.site.BaseURL, s.opts.AuditBaseURL} {
		b, err := url.Parse(base)
		if err != nil || b.Host == "" {
			continue
		}
		if strings.EqualFold(u.Host, b.Host) {
			return true
		}
	}
	return false
}

func (s *Server) storeAvailable(w http.ResponseWriter) bool {
	if s.opts.Metadata == nil || !s.opts.Metadata.Available() {
		middleware.WriteError(w, http.StatusServiceUnavailable, seo.ErrStoreUnavailable.Error())
		return false
	}
	return true
}

func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
