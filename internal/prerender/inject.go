package prerender

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// Placeholder marks where rendered application markup goes in the template.
const Placeholder = "<!--app-html-->"

// staleHead matches the head tags Inject owns. Any copy already present in the
// template is dropped before fresh tags are appended.
const staleHead = `meta[name="description"], meta[name="keywords"], meta[name="robots"], ` +
	`meta[property^="og:"], meta[name^="twitter:"], link[rel="canonical"], ` +
	`script[type="application/ld+json"]`

var headTemplate = template.Must(template.New("head").Parse(`
<meta name="description" content="{{.Description}}">
{{- if .Keywords}}
<meta name="keywords" content="{{.Keywords}}">
{{- end}}
<meta name="robots" content="{{.Robots}}">
<link rel="canonical" href="{{.Canonical}}">
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
<script type="application/ld+json">{{.JSONLD}}</script>
`))

type headView struct {
	SiteName           string
	Locale             string
	Description        string
	Keywords           string
	Robots             string
	Canonical          string
	OGTitle            string
	OGDescription      string
	OGImage            string
	TwitterCard        string
	TwitterSite        string
	TwitterTitle       string
	TwitterDescription string
	TwitterImage       string
	JSONLD             template.JS
}

// Substitute places markup at the template placeholder.
func Substitute(tmpl, markup string) string {
	return strings.Replace(tmpl, Placeholder, markup, 1)
}

// Inject sets the document title and appends the page's meta, Open Graph,
// Twitter, canonical and JSON-LD tags to the head.
func Inject(document string, site seo.Site, page seo.PageMetadata) (string, error) {
	site = site.Normalized()
	page = seo.Resolve(site, page)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	head := doc.Find("head").First()

	titles := doc.Find("title")
	if titles.Length() == 0 {
		head.PrependHtml("<title></title>")
		titles = head.Find("title")
	}
	titles.Slice(1, goquery.ToEnd).Remove()
	titles.First().SetText(page.Title)

	doc.Find(staleHead).Remove()

	card := "summary"
	if page.TwitterImage != "" {
		card = "summary_large_image"
	}
	var buf bytes.Buffer
	err = headTemplate.Execute(&buf, headView{
		SiteName:           site.Name,
		Locale:             site.Locale,
		Description:        page.Description,
		Keywords:           page.Keywords,
		Robots:             page.Robots,
		Canonical:          page.CanonicalURL,
		OGTitle:            page.OGTitle,
		OGDescription:      page.OGDescription,
		OGImage:            page.OGImage,
		TwitterCard:        card,
		TwitterSite:        site.TwitterHandle,
		TwitterTitle:       page.TwitterTitle,
		TwitterDescription: page.TwitterDescription,
		TwitterImage:       page.TwitterImage,
		JSONLD:             template.JS(seo.StructuredDataJSON(site, page)), //nolint:gosec // json.Marshal escapes <, > and &
	})
	if err != nil {
		return "", fmt.Errorf("render head tags: %w", err)
	}
	head.AppendHtml(buf.String())

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize document: %w", err)
	}
	return out, nil
}
