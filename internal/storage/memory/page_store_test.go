package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

func TestPageStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPageStore()

	_, err := store.GetPage(ctx, "/eat")
	require.ErrorIs(t, err, seo.ErrNotFound)

	_, err = store.UpdatePage(ctx, seo.PageMetadata{Path: "/eat"})
	require.ErrorIs(t, err, seo.ErrNotFound)

	_, err = store.InsertPage(ctx, seo.PageMetadata{Path: "/eat", Title: "Eat"})
	require.NoError(t, err)

	_, err = store.InsertPage(ctx, seo.PageMetadata{Path: "/eat", Title: "Dup"})
	require.ErrorIs(t, err, seo.ErrConflict)

	updated, err := store.UpdatePage(ctx, seo.PageMetadata{Path: "/eat", Title: "Eat v2"})
	require.NoError(t, err)
	require.Equal(t, "Eat v2", updated.Title)

	_, err = store.InsertPage(ctx, seo.PageMetadata{Path: "/", Title: "Home"})
	require.NoError(t, err)

	pages, err := store.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, "/", pages[0].Path)
	require.Equal(t, 2, store.Len())
}

func TestPageStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewPageStore()
	_, err := store.InsertPage(ctx, seo.PageMetadata{
		Path:           "/blog",
		StructuredData: map[string]any{"@type": "Blog"},
	})
	require.NoError(t, err)

	got, err := store.GetPage(ctx, "/blog")
	require.NoError(t, err)
	got.StructuredData["@type"] = "Changed"

	again, err := store.GetPage(ctx, "/blog")
	require.NoError(t, err)
	require.Equal(t, "Blog", again.StructuredData["@type"])
}

func TestListingStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewListingStore(
		seo.Listing{Kind: seo.KindHotel, Name: "Hotel Cambutal"},
		seo.Listing{Kind: seo.KindRestaurant, Name: "Mama Fela"},
	)
	hotels, err := store.ListListings(ctx, seo.KindHotel)
	require.NoError(t, err)
	require.Len(t, hotels, 1)

	boom := errors.New("timeout")
	store.FailKind(seo.KindRestaurant, boom)
	_, err = store.ListListings(ctx, seo.KindRestaurant)
	require.ErrorIs(t, err, boom)

	blog, err := store.ListListings(ctx, seo.KindBlog)
	require.NoError(t, err)
	require.Empty(t, blog)
}
