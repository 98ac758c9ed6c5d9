package seo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackLookup(t *testing.T) {
	t.Parallel()

	table := DefaultFallbacks()

	entry, exact := table.Lookup("/eat/")
	require.True(t, exact)
	require.Equal(t, "Restaurants in Playa Cambutal", entry.Title)

	entry, exact = table.Lookup("/eat/sample-restaurant")
	require.False(t, exact)
	require.Contains(t, entry.Title, "Playa Cambutal")
	require.Equal(t, table.Exact["/eat"].Description, entry.Description)

	entry, exact = table.Lookup("/nowhere/at/all")
	require.False(t, exact)
	require.Equal(t, table.Generic, entry)
	require.Contains(t, entry.Title, "Playa Cambutal")
}

func TestFallbackMerge(t *testing.T) {
	t.Parallel()

	table := DefaultFallbacks().Merge(map[string]FallbackEntry{
		"events/":  {Title: "Events", Description: "What is on"},
		"/ignored": {Title: "  "},
	}, FallbackEntry{})

	e, ok := table.Lookup("/events")
	require.True(t, ok)
	require.Equal(t, "Events", e.Title)
	_, ok = table.Exact["/ignored"]
	require.False(t, ok)
	require.Equal(t, DefaultFallbacks().Generic, table.Generic)

	custom := table.Merge(nil, FallbackEntry{Title: "Custom Playa Cambutal"})
	require.Equal(t, "Custom Playa Cambutal", custom.Generic.Title)
}

func TestFallbackMetadata(t *testing.T) {
	t.Parallel()

	page := DefaultFallbacks().Metadata(testSite, "/surf/")
	require.Equal(t, "/surf", page.Path)
	require.Equal(t, "Surfing in Playa Cambutal", page.Title)
	require.Equal(t, "https://playacambutal.com/surf", page.CanonicalURL)
	require.Equal(t, "index, follow", page.Robots)
}
