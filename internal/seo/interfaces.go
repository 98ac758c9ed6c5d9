package seo

import (
	"context"
	"time"
)

// MetadataStore persists PageMetadata rows keyed by path.
//
// Implementations translate driver failures into the sentinel errors of this
// package: ErrNotFound for missing rows, ErrConflict for unique-key races and
// ErrPermissionDenied when the credential may not write.
type MetadataStore interface {
	GetPage(ctx context.Context, path string) (PageMetadata, error)
	ListPages(ctx context.Context) ([]PageMetadata, error)
	InsertPage(ctx context.Context, page PageMetadata) (PageMetadata, error)
	UpdatePage(ctx context.Context, page PageMetadata) (PageMetadata, error)
}

// ListingSource returns approved listings (published posts for KindBlog).
type ListingSource interface {
	ListListings(ctx context.Context, kind ListingKind) ([]Listing, error)
}

// Writer persists deployed files under a target root.
type Writer interface {
	Write(ctx context.Context, path string, content []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Cleaner is implemented by writers that can remove artifacts of earlier runs.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
