// Package sitemap assembles the sitemap-protocol document from the static
// route list, approved listings and any remaining metadata rows.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Route is a static sitemap entry with hand-assigned weights.
type Route struct {
	Path            string  `mapstructure:"path"`
	ChangeFrequency string  `mapstructure:"changefreq"`
	Priority        float64 `mapstructure:"priority"`
}

// DefaultRoutes are the always-present site sections.
var DefaultRoutes = []Route{
	{Path: "/", ChangeFrequency: seo.ChangeDaily, Priority: 1.0},
	{Path: "/eat", ChangeFrequency: seo.ChangeWeekly, Priority: 0.9},
	{Path: "/stay", ChangeFrequency: seo.ChangeWeekly, Priority: 0.9},
	{Path: "/do", ChangeFrequency: seo.ChangeWeekly, Priority: 0.9},
	{Path: "/surf", ChangeFrequency: seo.ChangeDaily, Priority: 0.8},
	{Path: "/calendar", ChangeFrequency: seo.ChangeDaily, Priority: 0.8},
	{Path: "/blog", ChangeFrequency: seo.ChangeWeekly, Priority: 0.8},
	{Path: "/info", ChangeFrequency: seo.ChangeMonthly, Priority: 0.6},
}

var listingWeights = map[seo.ListingKind]Route{
	seo.KindRestaurant: {ChangeFrequency: seo.ChangeWeekly, Priority: 0.7},
	seo.KindHotel:      {ChangeFrequency: seo.ChangeWeekly, Priority: 0.7},
	seo.KindActivity:   {ChangeFrequency: seo.ChangeWeekly, Priority: 0.7},
	seo.KindBlog:       {ChangeFrequency: seo.ChangeMonthly, Priority: 0.6},
}

const (
	leftoverFrequency = seo.ChangeMonthly
	leftoverPriority  = 0.5
)

// PageLister is the read side of the metadata service.
type PageLister interface {
	ListPageSEO(ctx context.Context) ([]seo.PageMetadata, error)
	Available() bool
}

// Generator builds sitemaps. Listings and Pages may be nil.
type Generator struct {
	Site     seo.Site
	Routes   []Route
	Listings seo.ListingSource
	Pages    PageLister
	Logger   *zap.Logger
	Now      func() time.Time
}

func (g *Generator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now().UTC()
	}
	return g.Now()
}

// Entries returns the deduplicated, ordered entries. A failing data source is
// logged and skipped.
func (g *Generator) Entries(ctx context.Context) []seo.SitemapEntry {
	site := g.Site.Normalized()
	routes := g.Routes
	if len(routes) == 0 {
		routes = DefaultRoutes
	}
	log := g.logger()

	entries := make([]seo.SitemapEntry, 0, len(routes))
	for _, r := range routes {
		entries = append(entries, seo.SitemapEntry{
			URL:             site.CanonicalURL(r.Path),
			ChangeFrequency: r.ChangeFrequency,
			Priority:        r.Priority,
		})
	}

	if g.Listings != nil {
		for _, kind := range seo.AllKinds {
			listings, err := g.Listings.ListListings(ctx, kind)
			if err != nil {
				telemetry.ObserveSitemapSourceError(string(kind))
				log.Warn("sitemap listing source failed", zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			w := listingWeights[kind]
			for _, l := range listings {
				if l.PathSlug() == "" {
					continue
				}
				entries = append(entries, seo.SitemapEntry{
					URL:             site.CanonicalURL(l.Path()),
					LastModified:    listingModified(l),
					ChangeFrequency: w.ChangeFrequency,
					Priority:        w.Priority,
				})
			}
		}
	}

	if g.Pages != nil && g.Pages.Available() {
		pages, err := g.Pages.ListPageSEO(ctx)
		if err != nil {
			telemetry.ObserveSitemapSourceError("page_seo")
			log.Warn("sitemap metadata source failed", zap.Error(err))
		}
		for _, p := range pages {
			var mod *time.Time
			if !p.UpdatedAt.IsZero() {
				t := p.UpdatedAt
				mod = &t
			}
			entries = append(entries, seo.SitemapEntry{
				URL:             site.CanonicalURL(p.Path),
				LastModified:    mod,
				ChangeFrequency: leftoverFrequency,
				Priority:        leftoverPriority,
			})
		}
	}

	entries = Dedupe(entries)
	Sort(entries)
	telemetry.ObserveSitemap(len(entries))
	return entries
}

func listingModified(l seo.Listing) *time.Time {
	switch {
	case !l.UpdatedAt.IsZero():
		t := l.UpdatedAt
		return &t
	case l.PublishedAt != nil:
		t := *l.PublishedAt
		return &t
	default:
		return nil
	}
}

// Dedupe keeps the first entry per URL. Earlier sources win, so static routes
// shadow listings and listings shadow leftover metadata rows.
func Dedupe(entries []seo.SitemapEntry) []seo.SitemapEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.URL]; ok {
			continue
		}
		seen[e.URL] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Sort orders entries by descending priority, then ascending URL.
func Sort(entries []seo.SitemapEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].URL < entries[j].URL
	})
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []urlXML `xml:"url"`
}

type urlXML struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Marshal serializes entries. Entries without a modification time use today.
func Marshal(entries []seo.SitemapEntry, today time.Time) ([]byte, error) {
	set := urlSet{XMLNS: xmlns, URLs: make([]urlXML, 0, len(entries))}
	for _, e := range entries {
		mod := today
		if e.LastModified != nil {
			mod = *e.LastModified
		}
		set.URLs = append(set.URLs, urlXML{
			Loc:        e.URL,
			LastMod:    mod.UTC().Format(time.DateOnly),
			ChangeFreq: e.ChangeFrequency,
			Priority:   strconv.FormatFloat(e.Priority, 'f', 1, 64),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Generate returns the sitemap XML document.
func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	return Marshal(g.Entries(ctx), g.now())
}

// WriteFile generates the sitemap and writes it to path, returning the entry count.
func (g *Generator) WriteFile(ctx context.Context, path string) (int, error) {
	entries := g.Entries(ctx)
	body, err := Marshal(entries, g.now())
	if err != nil {
		return 0, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return 0, fmt.Errorf("create sitemap directory: %w", err)
		}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil { //nolint:gosec // public static asset
		return 0, fmt.Errorf("write sitemap: %w", err)
	}
	g.logger().Info("sitemap written", zap.String("path", path), zap.Int("entries", len(entries)))
	return len(entries), nil
}
