package seo

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestMetadataFromListingRestaurant(t *testing.T) {
	t.Parallel()

	l := Listing{
		Kind:        KindRestaurant,
		Name:        "Mama Fela's",
		Description: "Fresh fish and casados.",
		Category:    "Panamanian",
		ImageURL:    "/uploads/fela.jpg",
		Phone:       "+507 6000-0000",
		Rating:      4.5,
	}
	page := MetadataFromListing(testSite, l)

	require.Equal(t, "/eat/mama-felas", page.Path)
	require.Equal(t, "Mama Fela's | Playa Cambutal", page.Title)
	require.Equal(t, "Fresh fish and casados.", page.Description)
	require.Equal(t, "https://playacambutal.com/eat/mama-felas", page.CanonicalURL)
	require.Equal(t, "https://playacambutal.com/uploads/fela.jpg", page.OGImage)
	require.Contains(t, page.Keywords, "Panamanian")
	require.Equal(t, "Restaurant", page.StructuredData["@type"])
	require.Equal(t, "Panamanian", page.StructuredData["servesCuisine"])
	require.Contains(t, page.StructuredData, "aggregateRating")
}

func TestMetadataFromListingDefaultsDescription(t *testing.T) {
	t.Parallel()

	page := MetadataFromListing(testSite, Listing{Kind: KindHotel, Name: "Hotel Playa"})
	require.Equal(t, "Hotel Playa in Playa Cambutal, Panama.", page.Description)
	require.Equal(t, "LodgingBusiness", page.StructuredData["@type"])
}

func TestListingSchemaKinds(t *testing.T) {
	t.Parallel()

	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := map[ListingKind]string{
		KindRestaurant: "Restaurant",
		KindHotel:      "LodgingBusiness",
		KindActivity:   "TouristAttraction",
		KindBlog:       "BlogPosting",
		"event":        "WebPage",
	}
	for kind, want := range tests {
		data := ListingSchema(testSite, Listing{Kind: kind, Name: "X", PublishedAt: &published, Author: "Ana"})
		require.Equal(t, want, data["@type"], kind)
		require.Equal(t, "https://schema.org", data["@context"], kind)
	}

	post := BlogPostingSchema(testSite, Listing{Kind: KindBlog, Name: "Dry Season", PublishedAt: &published})
	require.Equal(t, "2024-03-01", post["datePublished"])
	require.Equal(t, "https://playacambutal.com/blog/dry-season", post["url"])
}

func TestWebSiteSchema(t *testing.T) {
	t.Parallel()

	data := WebSiteSchema(testSite, "Guide")
	require.Equal(t, "WebSite", data["@type"])
	require.Equal(t, "https://playacambutal.com/", data["url"])
	require.Equal(t, "Guide", data["description"])
}

func TestTruncateDescription(t *testing.T) {
	t.Parallel()

	short := "A  short\n description."
	require.Equal(t, "A short description.", TruncateDescription(short))

	long := strings.Repeat("palabra ", 40)
	got := TruncateDescription(long)
	require.LessOrEqual(t, utf8.RuneCountInString(got), 160)
	require.True(t, strings.HasSuffix(got, "palabra..."), got)
}
