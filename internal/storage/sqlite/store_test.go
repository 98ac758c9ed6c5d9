package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "seo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePageLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Ping(ctx))

	_, err := s.GetPage(ctx, "/eat")
	require.ErrorIs(t, err, seo.ErrNotFound)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	inserted, err := s.InsertPage(ctx, seo.PageMetadata{
		Path:           "/eat",
		Title:          "Eat",
		StructuredData: map[string]any{"@type": "WebPage"},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)
	require.Equal(t, now, inserted.CreatedAt)
	require.Equal(t, "WebPage", inserted.StructuredData["@type"])

	_, err = s.InsertPage(ctx, seo.PageMetadata{Path: "/eat", Title: "Dup", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, seo.ErrConflict)

	later := now.Add(time.Hour)
	updated, err := s.UpdatePage(ctx, seo.PageMetadata{Path: "/eat", Title: "Eat v2", UpdatedAt: later})
	require.NoError(t, err)
	require.Equal(t, "Eat v2", updated.Title)
	require.Equal(t, now, updated.CreatedAt)
	require.Equal(t, later, updated.UpdatedAt)
	require.Nil(t, updated.StructuredData)

	_, err = s.UpdatePage(ctx, seo.PageMetadata{Path: "/missing", Title: "x", UpdatedAt: later})
	require.ErrorIs(t, err, seo.ErrNotFound)

	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestConcurrentUpsertOnFreshPathStoresOneRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	svc := seo.NewMetadataService(s, seo.Site{BaseURL: "https://playacambutal.com"}, zap.NewNop(),
		seo.WithUpsertRetry(3, 5*time.Millisecond))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	saved := make([]*seo.PageMetadata, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			saved[i], errs[i] = svc.UpdatePageSEO(ctx, seo.PageMetadata{Path: "/x", Title: "X"})
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.NotNil(t, saved[i])
	}
	pages, err := s.ListPages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "/x", pages[0].Path)
	require.Equal(t, "https://playacambutal.com/x", pages[0].CanonicalURL)
}

func TestStoreListings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	published := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutListing(ctx, seo.Listing{Kind: seo.KindHotel, ID: "1", Name: "Hotel Uno", Rating: 4}, "approved"))
	require.NoError(t, s.PutListing(ctx, seo.Listing{Kind: seo.KindHotel, ID: "2", Name: "Hotel Pending"}, "pending"))
	require.NoError(t, s.PutListing(ctx, seo.Listing{Kind: seo.KindBlog, ID: "3", Name: "Post", PublishedAt: &published}, "published"))

	hotels, err := s.ListListings(ctx, seo.KindHotel)
	require.NoError(t, err)
	require.Len(t, hotels, 1)
	require.Equal(t, "/stay/hotel-uno", hotels[0].Path())

	posts, err := s.ListListings(ctx, seo.KindBlog)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].PublishedAt)
	require.Equal(t, published, *posts[0].PublishedAt)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.Error(t, err)
}
