package seo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, doc string) *goquery.Document {
	t.Helper()
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	return parsed
}

func attr(t *testing.T, doc *goquery.Document, selector, name string) string {
	t.Helper()
	sel := doc.Find(selector)
	require.Equal(t, 1, sel.Length(), selector)
	v, ok := sel.Attr(name)
	require.True(t, ok, selector)
	return v
}

func TestGenerateStaticHTMLFullRecord(t *testing.T) {
	t.Parallel()

	page := PageMetadata{
		Path:           "/eat/mama-fela",
		Title:          "Mama Fela | Playa Cambutal",
		Description:    "Home cooking by the beach.",
		Keywords:       "restaurant, cambutal",
		OGTitle:        "Mama Fela",
		OGImage:        "https://cdn.example.com/fela.jpg",
		CanonicalURL:   "http://localhost:5173/eat/mama-fela",
		Robots:         "index, follow",
		StructuredData: map[string]any{"@context": "https://schema.org", "@type": "Restaurant", "name": "Mama Fela"},
	}
	doc := parseHTML(t, GenerateStaticHTML(testSite, page))

	require.Equal(t, 1, doc.Find("title").Length())
	require.Equal(t, page.Title, doc.Find("title").Text())
	require.Equal(t, page.Description, attr(t, doc, `meta[name="description"]`, "content"))
	require.Equal(t, page.Keywords, attr(t, doc, `meta[name="keywords"]`, "content"))
	require.Equal(t, "https://playacambutal.com/eat/mama-fela", attr(t, doc, `link[rel="canonical"]`, "href"))
	require.Equal(t, "Mama Fela", attr(t, doc, `meta[property="og:title"]`, "content"))
	require.Equal(t, page.Description, attr(t, doc, `meta[property="og:description"]`, "content"))
	require.Equal(t, "Mama Fela", attr(t, doc, `meta[name="twitter:title"]`, "content"))
	require.Equal(t, "summary_large_image", attr(t, doc, `meta[name="twitter:card"]`, "content"))
	require.Equal(t, "0; url=/eat/mama-fela", attr(t, doc, `meta[http-equiv="refresh"]`, "content"))
	require.Equal(t, page.Title, doc.Find("h1").Text())

	var ld map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).Text()), &ld))
	require.Equal(t, "Restaurant", ld["@type"])

	var redirect bool
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), "window.location.href") && strings.Contains(s.Text(), "mama-fela") {
			redirect = true
		}
	})
	require.True(t, redirect, "expected script redirect")

	var nav []string
	doc.Find("nav a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		nav = append(nav, href)
	})
	require.Equal(t, []string{"/", "/eat", "/stay", "/do", "/surf", "/calendar", "/blog", "/info"}, nav)
}

func TestGenerateStaticHTMLEmptyRecordDegrades(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, GenerateStaticHTML(Site{BaseURL: "https://playacambutal.com"}, PageMetadata{Path: "/info/"}))

	require.Equal(t, "Page - /info", doc.Find("title").Text())
	require.Equal(t, "https://playacambutal.com/info", attr(t, doc, `link[rel="canonical"]`, "href"))
	require.Equal(t, "Page - /info", attr(t, doc, `meta[property="og:title"]`, "content"))
	require.Equal(t, "summary", attr(t, doc, `meta[name="twitter:card"]`, "content"))
	require.Equal(t, 0, doc.Find(`meta[property="og:image"]`).Length())

	var ld map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc.Find(`script[type="application/ld+json"]`).Text()), &ld))
	require.Equal(t, "WebPage", ld["@type"])
	require.Equal(t, "https://playacambutal.com/info", ld["url"])
}

func TestGenerateStaticHTMLEscapesContent(t *testing.T) {
	t.Parallel()

	page := PageMetadata{
		Path:           "/blog/x",
		Title:          `Tacos </title><script>alert(1)</script>`,
		Description:    `"quoted" & <b>bold</b>`,
		StructuredData: map[string]any{"name": "</script><script>alert(2)</script>"},
	}
	out := GenerateStaticHTML(testSite, page)
	require.NotContains(t, out, "<script>alert(1)</script>")
	require.NotContains(t, out, "</script><script>alert(2)")

	doc := parseHTML(t, out)
	require.Equal(t, page.Title, doc.Find("title").Text())
	require.Equal(t, page.Description, attr(t, doc, `meta[name="description"]`, "content"))
}

func TestGenerateStaticHTMLCanonicalAlwaysOnProductionDomain(t *testing.T) {
	t.Parallel()

	for _, stored := range []string{"", "/eat", "https://evil.example/eat", "http://localhost/eat"} {
		doc := parseHTML(t, GenerateStaticHTML(testSite, PageMetadata{Path: "/eat", Title: "Eat", CanonicalURL: stored}))
		href := attr(t, doc, `link[rel="canonical"]`, "href")
		require.True(t, strings.HasPrefix(href, "https://playacambutal.com"), href)
	}
}

func TestMinimalHTML(t *testing.T) {
	t.Parallel()

	doc := parseHTML(t, MinimalHTML("Playa Cambutal <Guide>", "desc", "eat"))
	require.Equal(t, "Playa Cambutal <Guide>", doc.Find("title").Text())
	require.Equal(t, "0; url=/eat", attr(t, doc, `meta[http-equiv="refresh"]`, "content"))
}
