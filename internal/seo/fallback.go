package seo

import "strings"

// FallbackEntry is a hardcoded title/description pair for a known path.
type FallbackEntry struct {
	Title       string `mapstructure:"title" json:"title"`
	Description string `mapstructure:"description" json:"description"`
}

// FallbackTable resolves minimal metadata when no stored row exists.
type FallbackTable struct {
	Exact   map[string]FallbackEntry
	Generic FallbackEntry
}

// DefaultFallbacks returns the built-in per-path table.
func DefaultFallbacks() FallbackTable {
	return FallbackTable{
		Exact: map[string]FallbackEntry{
			"/": {
				Title:       "Playa Cambutal - Your Guide to Paradise in Panama",
				Description: "Discover restaurants, hotels, surf spots, activities and events in Playa Cambutal, Panama.",
			},
			"/eat": {
				Title:       "Restaurants in Playa Cambutal",
				Description: "Find the best places to eat and drink in Playa Cambutal, from beachfront cafes to local fondas.",
			},
			"/stay": {
				Title:       "Hotels and Accommodation in Playa Cambutal",
				Description: "Browse hotels, hostels, cabins and vacation rentals in Playa Cambutal.",
			},
			"/do": {
				Title:       "Things to Do in Playa Cambutal",
				Description: "Tours, surf lessons, fishing trips, yoga and adventures around Playa Cambutal.",
			},
			"/surf": {
				Title:       "Surfing in Playa Cambutal",
				Description: "Surf conditions, breaks, schools and board rentals in Playa Cambutal.",
			},
			"/calendar": {
				Title:       "Events Calendar - Playa Cambutal",
				Description: "Upcoming events, classes and gatherings in Playa Cambutal.",
			},
			"/blog": {
				Title:       "Playa Cambutal Blog",
				Description: "Stories, guides and news from Playa Cambutal.",
			},
			"/info": {
				Title:       "Practical Information - Playa Cambutal",
				Description: "Getting there, weather, services and local tips for visiting Playa Cambutal.",
			},
		},
		Generic: FallbackEntry{
			Title:       "Playa Cambutal - Panama Beach Guide",
			Description: "Your guide to restaurants, hotels and activities in Playa Cambutal, Panama.",
		},
	}
}

// Merge overlays configured entries on top of t. Keys are normalized paths.
func (t FallbackTable) Merge(extra map[string]FallbackEntry, generic FallbackEntry) FallbackTable {
	out := FallbackTable{Exact: make(map[string]FallbackEntry, len(t.Exact)+len(extra)), Generic: t.Generic}
	for k, v := range t.Exact {
		out.Exact[k] = v
	}
	for k, v := range extra {
		if strings.TrimSpace(v.Title) == "" {
			continue
		}
		out.Exact[NormalizePath(k)] = v
	}
	if strings.TrimSpace(generic.Title) != "" {
		out.Generic = generic
	}
	return out
}

// Lookup returns the entry for path: exact match, then the parent section,
// then the generic site entry. The second result reports an exact match.
func (t FallbackTable) Lookup(path string) (FallbackEntry, bool) {
	path = NormalizePath(path)
	if e, ok := t.Exact[path]; ok {
		return e, true
	}
	if section, _, nested := strings.Cut(strings.TrimPrefix(path, "/"), "/"); nested {
		if e, ok := t.Exact["/"+section]; ok {
			return FallbackEntry{Title: t.Generic.Title, Description: e.Description}, false
		}
	}
	return t.Generic, false
}

// Metadata builds a complete PageMetadata record for path from the table.
func (t FallbackTable) Metadata(site Site, path string) PageMetadata {
	e, _ := t.Lookup(path)
	page := PageMetadata{
		Path:        NormalizePath(path),
		Title:       e.Title,
		Description: e.Description,
		Robots:      "index, follow",
	}
	return NormalizeCanonical(site, page)
}
