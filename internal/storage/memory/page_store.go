package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// PageStore is an in-memory seo.MetadataStore with page_seo's unique key on path.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string]seo.PageMetadata
}

// NewPageStore constructs an empty PageStore.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string]seo.PageMetadata)}
}

// GetPage returns the row for path.
func (s *PageStore) GetPage(_ context.Context, path string) (seo.PageMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.pages[path]
	if !ok {
		return seo.PageMetadata{}, seo.ErrNotFound
	}
	return clonePage(page), nil
}

// ListPages returns every row ordered by path.
func (s *PageStore) ListPages(_ context.Context) ([]seo.PageMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]seo.PageMetadata, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, clonePage(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// InsertPage adds a new row; an existing path yields seo.ErrConflict.
func (s *PageStore) InsertPage(_ context.Context, page seo.PageMetadata) (seo.PageMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pages[page.Path]; exists {
		return seo.PageMetadata{}, seo.ErrConflict
	}
	s.pages[page.Path] = clonePage(page)
	return clonePage(page), nil
}

// UpdatePage replaces an existing row.
func (s *PageStore) UpdatePage(_ context.Context, page seo.PageMetadata) (seo.PageMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pages[page.Path]; !exists {
		return seo.PageMetadata{}, seo.ErrNotFound
	}
	s.pages[page.Path] = clonePage(page)
	return clonePage(page), nil
}

// Len returns the number of stored rows.
func (s *PageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

func clonePage(p seo.PageMetadata) seo.PageMetadata {
	if p.StructuredData != nil {
		data := make(map[string]any, len(p.StructuredData))
		for k, v := range p.StructuredData {
			data[k] = v
		}
		p.StructuredData = data
	}
	return p
}

// ListingStore is an in-memory seo.ListingSource. Only listings added with
// Put are returned; approval is assumed.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[seo.ListingKind][]seo.Listing
	errs     map[seo.ListingKind]error
}

// NewListingStore seeds a store with listings.
func NewListingStore(listings ...seo.Listing) *ListingStore {
	s := &ListingStore{
		listings: make(map[seo.ListingKind][]seo.Listing),
		errs:     make(map[seo.ListingKind]error),
	}
	s.Put(listings...)
	return s
}

// Put appends listings to their kind's collection.
func (s *ListingStore) Put(listings ...seo.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range listings {
		s.listings[l.Kind] = append(s.listings[l.Kind], l)
	}
}

// FailKind makes ListListings for kind return err.
func (s *ListingStore) FailKind(kind seo.ListingKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[kind] = err
}

// ListListings returns the listings of kind.
func (s *ListingStore) ListListings(_ context.Context, kind seo.ListingKind) ([]seo.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errs[kind]; err != nil {
		return nil, err
	}
	out := make([]seo.Listing, len(s.listings[kind]))
	copy(out, s.listings[kind])
	return out, nil
}
