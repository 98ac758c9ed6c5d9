package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

var listingColumns = []string{
	"id", "name", "slug", "description", "category", "address", "image_url",
	"phone", "website", "price_range", "rating", "author", "published_at", "updated_at",
}

func TestListingStoreListsApprovedRestaurants(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewListingStoreWithPool(mock)
	require.NoError(t, err)

	updated := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("FROM restaurants\\s+WHERE status = \\$1").
		WithArgs("approved").
		WillReturnRows(pgxmock.NewRows(listingColumns).
			AddRow("1", "Mama Fela", "", "Casados", "Panamanian", "Main road", "/img.jpg",
				"+507", "", "$$", 4.5, "", (*time.Time)(nil), updated))

	listings, err := store.ListListings(context.Background(), seo.KindRestaurant)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, seo.KindRestaurant, listings[0].Kind)
	require.Equal(t, "/eat/mama-fela", listings[0].Path())
	require.InDelta(t, 4.5, listings[0].Rating, 0.001)
	require.Nil(t, listings[0].PublishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingStoreListsPublishedPosts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewListingStoreWithPool(mock)
	require.NoError(t, err)

	published := time.Unix(1690000000, 0).UTC()
	mock.ExpectQuery("FROM blog_posts\\s+WHERE status = \\$1").
		WithArgs("published").
		WillReturnRows(pgxmock.NewRows(listingColumns).
			AddRow("9", "Dry Season Guide", "dry-season", "", "", "", "",
				"", "", "", 0.0, "Ana", &published, published))

	listings, err := store.ListListings(context.Background(), seo.KindBlog)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "/blog/dry-season", listings[0].Path())
	require.Equal(t, "Ana", listings[0].Author)
	require.NotNil(t, listings[0].PublishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListingStoreUnknownKind(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store, err := NewListingStoreWithPool(mock)
	require.NoError(t, err)

	_, err = store.ListListings(context.Background(), "event")
	require.Error(t, err)
}
