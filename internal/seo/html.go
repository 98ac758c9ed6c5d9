package seo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strings"
)

var staticPageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
{{- if .Keywords}}
<meta name="keywords" content="{{.Keywords}}">
{{- end}}
<link rel="canonical" href="{{.Canonical}}">
<meta name="robots" content="{{.Robots}}">
<meta property="og:type" content="website">
<meta property="og:site_name" content="{{.SiteName}}">
<meta property="og:locale" content="{{.Locale}}">
<meta property="og:url" content="{{.Canonical}}">
<meta property="og:title" content="{{.OGTitle}}">
<meta property="og:description" content="{{.OGDescription}}">
{{- if .OGImage}}
<meta property="og:image" content="{{.OGImage}}">
{{- end}}
<meta name="twitter:card" content="{{.TwitterCard}}">
{{- if .TwitterSite}}
<meta name="twitter:site" content="{{.TwitterSite}}">
{{- end}}
<meta name="twitter:title" content="{{.TwitterTitle}}">
<meta name="twitter:description" content="{{.TwitterDescription}}">
{{- if .TwitterImage}}
<meta name="twitter:image" content="{{.TwitterImage}}">
{{- end}}
<meta http-equiv="refresh" content="{{.Refresh}}">
<script type="application/ld+json">{{.JSONLD}}</script>
<script>window.location.href = {{.RedirectPath}};</script>
</head>
<body>
<header>
<nav>
<ul>
{{- range .Nav}}
<li><a href="{{.Path}}">{{.Label}}</a></li>
{{- end}}
</ul>
</nav>
</header>
<main>
<h1>{{.Title}}</h1>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
<p><a href="{{.RedirectPath}}">Continue to {{.SiteName}}</a></p>
</main>
</body>
</html>
`))

type staticPageView struct {
	Lang               string
	Locale             string
	SiteName           string
	Title              string
	Description        string
	Keywords           string
	Canonical          string
	Robots             string
	OGTitle            string
	OGDescription      string
	OGImage            string
	TwitterCard        string
	TwitterSite        string
	TwitterTitle       string
	TwitterDescription string
	TwitterImage       string
	Refresh            string
	RedirectPath       string
	JSONLD             template.JS
	Nav                []NavLink
}

// ResolvedTitle applies the "Page - {path}" rule for records without a title.
func ResolvedTitle(page PageMetadata) string {
	if t := strings.TrimSpace(page.Title); t != "" {
		return t
	}
	return "Page - " + NormalizePath(page.Path)
}

// Resolve fills every derivable field of page: title, canonical URL, robots,
// OG and Twitter fallbacks, and default structured data.
func Resolve(site Site, page PageMetadata) PageMetadata {
	site = site.Normalized()
	page = NormalizeCanonical(site, page)
	page.Title = ResolvedTitle(page)
	if page.Robots == "" {
		page.Robots = "index, follow"
	}
	page.OGTitle = firstNonEmpty(page.OGTitle, page.Title)
	page.OGDescription = firstNonEmpty(page.OGDescription, page.Description)
	page.OGImage = site.AbsoluteURL(firstNonEmpty(page.OGImage, site.DefaultImage))
	page.TwitterTitle = firstNonEmpty(page.TwitterTitle, page.OGTitle)
	page.TwitterDescription = firstNonEmpty(page.TwitterDescription, page.OGDescription)
	page.TwitterImage = site.AbsoluteURL(firstNonEmpty(page.TwitterImage, page.OGImage))
	if len(page.StructuredData) == 0 {
		page.StructuredData = WebPageSchema(site, page)
	}
	return page
}

// StructuredDataJSON encodes the page's JSON-LD object. The encoder escapes
// <, > and & so the result is safe inside a script element.
func StructuredDataJSON(site Site, page PageMetadata) string {
	data := page.StructuredData
	if len(data) == 0 {
		data = WebPageSchema(site, page)
	}
	b, err := json.Marshal(data)
	if err != nil {
		b, _ = json.Marshal(WebPageSchema(site, page))
	}
	return string(b)
}

// GenerateStaticHTML renders the crawler document for page. It never fails:
// every optional field degrades to a fallback and a template failure yields
// the minimal document.
func GenerateStaticHTML(site Site, page PageMetadata) string {
	site = site.Normalized()
	page = Resolve(site, page)

	card := "summary"
	if page.TwitterImage != "" {
		card = "summary_large_image"
	}
	view := staticPageView{
		Lang:               site.Language,
		Locale:             site.Locale,
		SiteName:           site.Name,
		Title:              page.Title,
		Description:        page.Description,
		Keywords:           page.Keywords,
		Canonical:          page.CanonicalURL,
		Robots:             page.Robots,
		OGTitle:            page.OGTitle,
		OGDescription:      page.OGDescription,
		OGImage:            page.OGImage,
		TwitterCard:        card,
		TwitterSite:        site.TwitterHandle,
		TwitterTitle:       page.TwitterTitle,
		TwitterDescription: page.TwitterDescription,
		TwitterImage:       page.TwitterImage,
		Refresh:            "0; url=" + page.Path,
		RedirectPath:       page.Path,
		JSONLD:             template.JS(StructuredDataJSON(site, page)), //nolint:gosec // json.Marshal escapes <, > and &
		Nav:                SectionNav,
	}

	var buf bytes.Buffer
	if err := staticPageTemplate.Execute(&buf, view); err != nil {
		return MinimalHTML(page.Title, page.Description, page.Path)
	}
	return buf.String()
}

// MinimalHTML is the last-resort document used when nothing else can render.
func MinimalHTML(title, description, path string) string {
	path = NormalizePath(path)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<meta name="description" content="%s">
<meta http-equiv="refresh" content="0; url=%s">
</head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(description), html.EscapeString(path),
		html.EscapeString(title), html.EscapeString(description))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
