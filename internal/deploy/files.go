package deploy

import (
	"context"
	"fmt"
	"slices"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// BuildFiles renders one crawler document per page. Exact fallback paths with
// no stored row are added so every section page is always deployed.
func BuildFiles(site seo.Site, fallbacks seo.FallbackTable, pages []seo.PageMetadata) []seo.DeployFile {
	byPath := make(map[string]seo.PageMetadata, len(pages)+len(fallbacks.Exact))
	for _, p := range pages {
		p.Path = seo.NormalizePath(p.Path)
		byPath[p.Path] = p
	}
	for path := range fallbacks.Exact {
		path = seo.NormalizePath(path)
		if _, ok := byPath[path]; !ok {
			byPath[path] = fallbacks.Metadata(site, path)
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	files := make([]seo.DeployFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, seo.DeployFile{
			Path:    p,
			Content: []byte(seo.GenerateStaticHTML(site, byPath[p])),
		})
	}
	return files
}

// PageLister is the read side of the metadata service.
type PageLister interface {
	ListPageSEO(ctx context.Context) ([]seo.PageMetadata, error)
	Available() bool
}

// CollectFiles lists stored metadata and renders the deployment file set.
// Without a store only the fallback pages are produced.
func CollectFiles(ctx context.Context, lister PageLister, site seo.Site, fallbacks seo.FallbackTable) ([]seo.DeployFile, error) {
	var pages []seo.PageMetadata
	if lister != nil && lister.Available() {
		var err error
		pages, err = lister.ListPageSEO(ctx)
		if err != nil {
			return nil, fmt.Errorf("collect pages: %w", err)
		}
	}
	return BuildFiles(site, fallbacks, pages), nil
}
