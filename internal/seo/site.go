package seo

import (
	"net/url"
	"strings"
)

// Site holds the process-wide settings every generator needs.
type Site struct {
	Name          string
	BaseURL       string
	SPAOrigin     string
	DefaultImage  string
	Locale        string
	Language      string
	TwitterHandle string
}

// NavLink is one entry of the fixed section navigation.
type NavLink struct {
	Path  string
	Label string
}

// SectionNav is the navigation list rendered into every static page.
var SectionNav = []NavLink{
	{Path: "/", Label: "Home"},
	{Path: "/eat", Label: "Eat"},
	{Path: "/stay", Label: "Stay"},
	{Path: "/do", Label: "Do"},
	{Path: "/surf", Label: "Surf"},
	{Path: "/calendar", Label: "Calendar"},
	{Path: "/blog", Label: "Blog"},
	{Path: "/info", Label: "Info"},
}

// Normalized returns a copy with trailing slashes trimmed and defaults applied.
func (s Site) Normalized() Site {
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	s.SPAOrigin = strings.TrimRight(strings.TrimSpace(s.SPAOrigin), "/")
	if s.SPAOrigin == "" {
		s.SPAOrigin = s.BaseURL
	}
	if s.Name == "" {
		s.Name = "Playa Cambutal"
	}
	if s.Locale == "" {
		s.Locale = "en_US"
	}
	if s.Language == "" {
		s.Language = "en"
	}
	return s
}

// Domain returns the host of the production base URL.
func (s Site) Domain() string {
	u, err := url.Parse(s.Normalized().BaseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// CanonicalURL returns the production URL of a logical path.
func (s Site) CanonicalURL(path string) string {
	path = NormalizePath(path)
	base := s.Normalized().BaseURL
	if path == "/" {
		return base + "/"
	}
	return base + path
}

// AbsoluteURL resolves site-relative asset references against the base URL.
func (s Site) AbsoluteURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return s.Normalized().BaseURL + ref
}

// NormalizePath canonicalizes a logical page path: leading slash, no query or
// fragment, no trailing slash except for the root.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = "/" + strings.Trim(path, "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}

// NormalizeCanonical forces the canonical URL of page onto the production
// domain. Stored values are never trusted.
func NormalizeCanonical(site Site, page PageMetadata) PageMetadata {
	page.Path = NormalizePath(page.Path)
	page.CanonicalURL = site.CanonicalURL(page.Path)
	return page
}
