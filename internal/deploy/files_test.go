package deploy_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cambutal-seo/internal/deploy"
	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

var site = seo.Site{Name: "Playa Cambutal", BaseURL: "https://playacambutal.com"}

func paths(files []seo.DeployFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestBuildFilesAddsFallbackPages(t *testing.T) {
	t.Parallel()

	fallbacks := seo.FallbackTable{
		Exact: map[string]seo.FallbackEntry{
			"/":    {Title: "Home", Description: "Welcome"},
			"/eat": {Title: "Eat", Description: "Restaurants"},
		},
	}
	pages := []seo.PageMetadata{
		{Path: "/eat/", Title: "Stored Eat Title"},
		{Path: "/eat/la-casita", Title: "La Casita"},
	}

	files := deploy.BuildFiles(site, fallbacks, pages)

	assert.Equal(t, []string{"/", "/eat", "/eat/la-casita"}, paths(files))
	assert.Contains(t, string(files[1].Content), "<title>Stored Eat Title</title>")
	assert.Contains(t, string(files[0].Content), "<title>Home</title>")
}

type stubLister struct {
	pages     []seo.PageMetadata
	err       error
	available bool
}

func (s stubLister) ListPageSEO(context.Context) ([]seo.PageMetadata, error) { return s.pages, s.err }
func (s stubLister) Available() bool                                         { return s.available }

func TestCollectFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fallbacks := seo.DefaultFallbacks()

	files, err := deploy.CollectFiles(ctx, stubLister{}, site, fallbacks)
	require.NoError(t, err)
	assert.Len(t, files, len(fallbacks.Exact))

	files, err = deploy.CollectFiles(ctx, stubLister{available: true, pages: []seo.PageMetadata{{Path: "/blog/hello", Title: "Hello"}}}, site, fallbacks)
	require.NoError(t, err)
	assert.Len(t, files, len(fallbacks.Exact)+1)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(string(f.Content), "<!DOCTYPE html>"), f.Path)
	}

	_, err = deploy.CollectFiles(ctx, stubLister{available: true, err: errors.New("db down")}, site, fallbacks)
	assert.ErrorContains(t, err, "db down")
}
