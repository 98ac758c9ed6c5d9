// Package prerender bakes every public route of the client build into a
// standalone HTML file carrying its SEO metadata.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/audit"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

// DefaultStaticRoutes are prerendered on every run.
var DefaultStaticRoutes = []string{"/", "/eat", "/stay", "/do", "/surf", "/calendar", "/blog", "/info"}

// DefaultListingKinds contribute one route per listing.
var DefaultListingKinds = []seo.ListingKind{seo.KindHotel, seo.KindRestaurant, seo.KindBlog}

const (
	defaultTemplate     = "index.html"
	defaultMinBytes     = 1024
	defaultBuildTimeout = 5 * time.Minute
)

// Config controls a prerender run.
type Config struct {
	ClientDir    string
	Template     string
	BuildCommand string
	BuildDir     string
	BuildTimeout time.Duration
	Headless     bool
	Chrome       ChromeConfig
	StaticRoutes []string
	ListingKinds []seo.ListingKind
	MinBytes     int
}

// Report is the aggregate outcome of a run.
type Report struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Shell     int           `json:"shell"`
	Warnings  []string      `json:"warnings"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// CommandRunner runs a shell command in dir and returns its combined output.
type CommandRunner func(ctx context.Context, dir, command string) ([]byte, error)

// RendererFactory starts the headless renderer for a validated client build.
type RendererFactory func(ctx context.Context, clientDir, templateName string, cfg ChromeConfig) (Renderer, error)

// Pipeline runs the prerender steps. Metadata and Listings may be nil.
type Pipeline struct {
	cfg         Config
	site        seo.Site
	metadata    *seo.MetadataService
	listings    seo.ListingSource
	fallbacks   seo.FallbackTable
	writer      seo.Writer
	logger      *zap.Logger
	detector    *audit.ShellDetector
	runCommand  CommandRunner
	newRenderer RendererFactory
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithCommandRunner replaces the build command runner.
func WithCommandRunner(run CommandRunner) Option {
	return func(p *Pipeline) {
		if run != nil {
			p.runCommand = run
		}
	}
}

// WithRendererFactory replaces the headless renderer constructor.
func WithRendererFactory(f RendererFactory) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newRenderer = f
		}
	}
}

// WithMetadata sets the metadata service and listing source used to resolve
// page metadata and enumerate listing routes.
func WithMetadata(metadata *seo.MetadataService, listings seo.ListingSource) Option {
	return func(p *Pipeline) {
		p.metadata = metadata
		p.listings = listings
	}
}

// New builds a pipeline writing through w.
func New(cfg Config, site seo.Site, fallbacks seo.FallbackTable, w seo.Writer, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Template == "" {
		cfg.Template = defaultTemplate
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = defaultMinBytes
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = defaultBuildTimeout
	}
	if len(cfg.StaticRoutes) == 0 {
		cfg.StaticRoutes = DefaultStaticRoutes
	}
	if len(cfg.ListingKinds) == 0 {
		cfg.ListingKinds = DefaultListingKinds
	}
	p := &Pipeline{
		cfg:        cfg,
		site:       site.Normalized(),
		fallbacks:  fallbacks,
		writer:     w,
		logger:     logger,
		detector:   audit.NewShellDetector(0),
		runCommand: runShell,
		newRenderer: func(ctx context.Context, dir, name string, cc ChromeConfig) (Renderer, error) {
			return NewChromeRenderer(ctx, dir, name, cc)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline. Only a missing client build or template is
// returned as an error; everything else is reported.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{Warnings: []string{}, Errors: []string{}}

	ctx, span := telemetry.Tracer().Start(ctx, "prerender.Run")
	defer span.End()

	tmpl, err := p.loadTemplate()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	renderer := p.selectRenderer(ctx, &report)
	defer func() {
		if err := renderer.Close(); err != nil {
			p.logger.Warn("renderer close failed", zap.Error(err))
		}
	}()

	routes, byRoute := p.routes(ctx, &report)
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run canceled: %v", err))
			break
		}
		report.Total++
		if err := p.renderRoute(ctx, renderer, tmpl, route, byRoute[route], &report); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", route, err))
			telemetry.ObservePrerenderRoute("failed")
			p.logger.Error("route prerender failed", zap.String("route", route), zap.Error(err))
			continue
		}
		report.Succeeded++
	}

	report.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("prerender.total", report.Total),
		attribute.Int("prerender.failed", report.Failed),
		attribute.Int("prerender.shell", report.Shell),
	)
	p.logger.Info("prerender finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("shell", report.Shell),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (p *Pipeline) loadTemplate() (string, error) {
	info, err := os.Stat(p.cfg.ClientDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("client build %q not found, build the client first: %w", p.cfg.ClientDir, seo.ErrPreconditionFailed)
	}
	raw, err := os.ReadFile(filepath.Join(p.cfg.ClientDir, p.cfg.Template))
	if err != nil {
		return "", fmt.Errorf("read template %s: %v: %w", p.cfg.Template, err, seo.ErrPreconditionFailed)
	}
	tmpl := string(raw)
	if !strings.Contains(tmpl, Placeholder) {
		return "", fmt.Errorf("template %s has no %s marker: %w", p.cfg.Template, Placeholder, seo.ErrPreconditionFailed)
	}
	return tmpl, nil
}

// selectRenderer runs the optional build and starts the headless renderer.
// Either failing leaves the shell renderer in charge of every route.
func (p *Pipeline) selectRenderer(ctx context.Context, report *Report) Renderer {
	if cmd := strings.TrimSpace(p.cfg.BuildCommand); cmd != "" {
		buildCtx, cancel := context.WithTimeout(ctx, p.cfg.BuildTimeout)
		out, err := p.runCommand(buildCtx, p.cfg.BuildDir, cmd)
		cancel()
		if err != nil {
			p.warn(report, fmt.Sprintf("build command failed, using loading shell: %v", err),
				zap.String("output", tail(string(out), 2048)))
			return ShellRenderer{}
		}
		p.logger.Info("build command finished", zap.String("command", cmd))
	}
	if !p.cfg.Headless {
		return ShellRenderer{}
	}
	r, err := p.newRenderer(ctx, p.cfg.ClientDir, p.cfg.Template, p.cfg.Chrome)
	if err != nil {
		p.warn(report, fmt.Sprintf("headless renderer unavailable, using loading shell: %v", err))
		return ShellRenderer{}
	}
	return r
}

// routes returns the static routes followed by one route per listing. Listing
// routes map back to the listing that produced them.
func (p *Pipeline) routes(ctx context.Context, report *Report) ([]string, map[string]seo.Listing) {
	seen := make(map[string]bool)
	var routes []string
	add := func(route string) bool {
		route = seo.NormalizePath(route)
		if seen[route] {
			return false
		}
		seen[route] = true
		routes = append(routes, route)
		return true
	}
	for _, r := range p.cfg.StaticRoutes {
		add(r)
	}

	byRoute := make(map[string]seo.Listing)
	if p.listings == nil {
		return routes, byRoute
	}
	for _, kind := range p.cfg.ListingKinds {
		listings, err := p.listings.ListListings(ctx, kind)
		if err != nil {
			p.warn(report, fmt.Sprintf("list %s: %v", kind, err))
			continue
		}
		for _, l := range listings {
			if l.PathSlug() == "" {
				continue
			}
			route := l.Path()
			if add(route) {
				byRoute[route] = l
			}
		}
	}
	return routes, byRoute
}

func (p *Pipeline) renderRoute(ctx context.Context, r Renderer, tmpl, route string, listing seo.Listing, report *Report) error {
	log := p.logger.With(zap.String("route", route))

	markup, err := r.Render(ctx, route)
	outcome := "rendered"
	if _, isShell := r.(ShellRenderer); isShell {
		outcome = "shell"
	}
	if err != nil {
		log.Warn("render failed, using loading shell", zap.Error(err))
		markup = LoadingShell
		outcome = "shell"
	}
	if outcome == "shell" {
		report.Shell++
	}

	page := p.resolveMetadata(ctx, route, listing)
	document, err := Inject(Substitute(tmpl, markup), p.site, page)
	if err != nil {
		return err
	}

	target := seo.LayoutDirectoryIndex.Map(route)
	if err := p.writer.Write(ctx, target, []byte(document)); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	if n := len(document); n < p.cfg.MinBytes {
		p.warn(report, fmt.Sprintf("%s: output is only %d bytes", route, n))
	}
	if outcome == "rendered" && p.detector.LooksLikeShell([]byte(document)) {
		p.warn(report, fmt.Sprintf("%s: output looks like an unrendered shell", route))
	}
	telemetry.ObservePrerenderRoute(outcome)
	log.Debug("route prerendered", zap.String("file", target), zap.Int("bytes", len(document)), zap.String("outcome", outcome))
	return nil
}

// resolveMetadata prefers the stored row, then metadata generated from the
// route's listing, then the fallback table.
func (p *Pipeline) resolveMetadata(ctx context.Context, route string, listing seo.Listing) seo.PageMetadata {
	if p.metadata != nil && p.metadata.Available() {
		stored, err := p.metadata.GetPageSEO(ctx, route)
		switch {
		case err != nil && !errors.Is(err, seo.ErrStoreUnavailable):
			p.logger.Warn("metadata lookup failed", zap.String("route", route), zap.Error(err))
		case stored != nil:
			return *stored
		}
	}
	if listing.Kind != "" {
		return seo.MetadataFromListing(p.site, listing)
	}
	return p.fallbacks.Metadata(p.site, route)
}

func (p *Pipeline) warn(report *Report, msg string, fields ...zap.Field) {
	report.Warnings = append(report.Warnings, msg)
	p.logger.Warn(msg, fields...)
}

func runShell(ctx context.Context, dir, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // command comes from operator config
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("run %q: %w", command, err)
	}
	return out, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
