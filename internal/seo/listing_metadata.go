package seo

import (
	"strings"
	"unicode/utf8"
)

const maxDescriptionLen = 160

// MetadataFromListing generates page metadata for a listing detail page.
func MetadataFromListing(site Site, l Listing) PageMetadata {
	site = site.Normalized()
	section := sectionTitle(l.Kind)
	title := strings.TrimSpace(l.Name)
	if title == "" {
		title = l.PathSlug()
	}
	desc := TruncateDescription(l.Description)
	if desc == "" {
		desc = title + " in " + site.Name + ", Panama."
	}

	keywords := []string{title, site.Name, "Panama"}
	if section != "" {
		keywords = append(keywords, section)
	}
	if l.Category != "" {
		keywords = append(keywords, l.Category)
	}

	page := PageMetadata{
		Path:           l.Path(),
		Title:          title + " | " + site.Name,
		Description:    desc,
		Keywords:       strings.Join(keywords, ", "),
		OGImage:        site.AbsoluteURL(l.ImageURL),
		TwitterImage:   site.AbsoluteURL(l.ImageURL),
		Robots:         "index, follow",
		StructuredData: ListingSchema(site, l),
	}
	return NormalizeCanonical(site, page)
}

func sectionTitle(k ListingKind) string {
	switch k {
	case KindRestaurant:
		return "restaurants"
	case KindHotel:
		return "hotels"
	case KindActivity:
		return "activities"
	case KindBlog:
		return "blog"
	default:
		return ""
	}
}

// TruncateDescription collapses whitespace and cuts s to at most 160
// characters on a word boundary, appending an ellipsis when cut.
func TruncateDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxDescriptionLen {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxDescriptionLen-3])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
