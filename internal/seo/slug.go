package seo

import (
	"regexp"
	"strings"
)

var (
	slugNonWord = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugHyphens = regexp.MustCompile(`-+`)
)

// Slugify derives a URL slug from a listing name: lower-case, strip non-word
// characters, collapse whitespace to hyphens, collapse repeated hyphens.
//
// Every URL the pipeline emits for a listing goes through this function so the
// sitemap, bulk generation and prerendered pages agree on the same slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonWord.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugHyphens.ReplaceAllString(s, "-")
}
