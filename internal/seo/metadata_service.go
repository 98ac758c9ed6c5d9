package seo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/telemetry"
)

const (
	defaultUpsertAttempts = 3
	defaultUpsertBackoff  = 100 * time.Millisecond
)

// MetadataService reads and writes page metadata on top of a MetadataStore.
// Writes are "update if exists, else insert" and absorb unique-key races on
// the same path with a bounded linear-backoff retry.
type MetadataService struct {
	store    MetadataStore
	site     Site
	clock    Clock
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
	retry    retrypolicy.RetryPolicy[PageMetadata]
}

// MetadataOption customizes a MetadataService.
type MetadataOption func(*MetadataService)

// WithClock overrides the timestamp source.
func WithClock(c Clock) MetadataOption {
	return func(s *MetadataService) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithUpsertRetry sets the attempt bound and the linear backoff step.
func WithUpsertRetry(attempts int, backoff time.Duration) MetadataOption {
	return func(s *MetadataService) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if backoff >= 0 {
			s.backoff = backoff
		}
	}
}

// NewMetadataService builds a service. store may be nil, in which case reads
// report nothing and writes return ErrStoreUnavailable.
func NewMetadataService(store MetadataStore, site Site, logger *zap.Logger, opts ...MetadataOption) *MetadataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MetadataService{
		store:    store,
		site:     site.Normalized(),
		clock:    SystemClock{},
		logger:   logger,
		attempts: defaultUpsertAttempts,
		backoff:  defaultUpsertBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	backoff := s.backoff
	s.retry = retrypolicy.NewBuilder[PageMetadata]().
		HandleIf(func(_ PageMetadata, err error) bool {
			return errors.Is(err, ErrConflict)
		}).
		WithMaxAttempts(s.attempts).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[PageMetadata]) time.Duration {
			return time.Duration(exec.Attempts()) * backoff
		}).
		ReturnLastFailure().
		Build()
	return s
}

// Site returns the site settings used for canonical URLs.
func (s *MetadataService) Site() Site {
	return s.site
}

// Available reports whether a backing store is configured.
func (s *MetadataService) Available() bool {
	return s.store != nil
}

// GetPageSEO returns the stored row for path, or nil when none exists.
func (s *MetadataService) GetPageSEO(ctx context.Context, path string) (*PageMetadata, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	page, err := s.store.GetPage(ctx, NormalizePath(path))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", path, err)
	}
	page = NormalizeCanonical(s.site, page)
	return &page, nil
}

// ListPageSEO returns every stored row.
func (s *MetadataService) ListPageSEO(ctx context.Context) ([]PageMetadata, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for i := range pages {
		pages[i] = NormalizeCanonical(s.site, pages[i])
	}
	return pages, nil
}

// UpdatePageSEO writes page as the full new state of its path.
//
// Permission errors are logged and reported as (nil, nil). When conflicts
// persist past the retry bound the row that won the race is returned if it
// can be read, else (nil, nil).
func (s *MetadataService) UpdatePageSEO(ctx context.Context, page PageMetadata) (*PageMetadata, error) {
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}
	page = NormalizeCanonical(s.site, page)
	page.Title = ResolvedTitle(page)
	log := s.logger.With(zap.String("path", page.Path))

	attempt := 0
	saved, err := failsafe.With(s.retry).WithContext(ctx).Get(func() (PageMetadata, error) {
		attempt++
		if attempt > 1 {
			telemetry.ObserveMetadataRetry()
			log.Debug("retrying metadata upsert", zap.Int("attempt", attempt))
		}
		return s.upsertOnce(ctx, page)
	})

	switch {
	case err == nil:
		return &saved, nil
	case errors.Is(err, ErrPermissionDenied):
		telemetry.ObserveMetadataUpsert("permission_denied")
		log.Warn("metadata write not permitted", zap.Error(err))
		return nil, nil
	case errors.Is(err, ErrConflict):
		telemetry.ObserveMetadataUpsert("conflict_exhausted")
		log.Warn("metadata upsert conflicts exhausted retries", zap.Int("attempts", attempt), zap.Error(err))
		existing, getErr := s.store.GetPage(ctx, page.Path)
		if getErr != nil {
			return nil, nil
		}
		existing = NormalizeCanonical(s.site, existing)
		return &existing, nil
	default:
		telemetry.ObserveMetadataUpsert("error")
		return nil, fmt.Errorf("upsert page %s: %w", page.Path, err)
	}
}

func (s *MetadataService) upsertOnce(ctx context.Context, page PageMetadata) (PageMetadata, error) {
	now := s.clock.Now()
	page.UpdatedAt = now

	existing, err := s.store.GetPage(ctx, page.Path)
	switch {
	case err == nil:
		page.CreatedAt = existing.CreatedAt
		updated, err := s.store.UpdatePage(ctx, page)
		if errors.Is(err, ErrNotFound) {
			// Row vanished between read and write; go around again.
			return PageMetadata{}, ErrConflict
		}
		if err != nil {
			return PageMetadata{}, err
		}
		telemetry.ObserveMetadataUpsert("updated")
		return updated, nil
	case errors.Is(err, ErrNotFound):
		page.CreatedAt = now
		inserted, err := s.store.InsertPage(ctx, page)
		if err != nil {
			return PageMetadata{}, err
		}
		telemetry.ObserveMetadataUpsert("inserted")
		return inserted, nil
	default:
		return PageMetadata{}, err
	}
}

// EnsurePageSEO returns metadata for a listing detail page, generating it from
// the listing when no row exists. Generated metadata is persisted only when
// persist is true; otherwise it lives for this call alone.
func (s *MetadataService) EnsurePageSEO(ctx context.Context, listing Listing, persist bool) (PageMetadata, error) {
	path := listing.Path()
	if s.store != nil {
		stored, err := s.GetPageSEO(ctx, path)
		if err != nil {
			s.logger.Warn("metadata lookup failed, generating", zap.String("path", path), zap.Error(err))
		} else if stored != nil {
			return *stored, nil
		}
	}

	generated := MetadataFromListing(s.site, listing)
	if !persist || s.store == nil {
		return generated, nil
	}
	saved, err := s.UpdatePageSEO(ctx, generated)
	if err != nil {
		return generated, err
	}
	if saved == nil {
		return generated, nil
	}
	return *saved, nil
}

// BulkRequest selects what BulkGenerate writes.
type BulkRequest struct {
	Kinds         []ListingKind `json:"kinds"`
	IncludeStatic bool          `json:"includeStatic"`
}

// BulkResult is the aggregate outcome of a bulk generation run.
type BulkResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// BulkGenerate regenerates metadata for every listing of the requested kinds
// and, optionally, the static section pages from fallbacks. Individual
// failures are counted and never stop the run.
func (s *MetadataService) BulkGenerate(ctx context.Context, source ListingSource, fallbacks FallbackTable, req BulkRequest) (BulkResult, error) {
	result := BulkResult{Errors: []string{}}
	if s.store == nil {
		return result, ErrStoreUnavailable
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	var pages []PageMetadata
	if req.IncludeStatic {
		paths := make([]string, 0, len(fallbacks.Exact))
		for p := range fallbacks.Exact {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		for _, p := range paths {
			pages = append(pages, fallbacks.Metadata(s.site, p))
		}
	}
	if source != nil {
		for _, kind := range kinds {
			listings, err := source.ListListings(ctx, kind)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("list %s: %v", kind, err))
				s.logger.Warn("listing fetch failed", zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			for _, l := range listings {
				pages = append(pages, MetadataFromListing(s.site, l))
			}
		}
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("bulk generate: %w", err)
		}
		result.Total++
		saved, err := s.UpdatePageSEO(ctx, page)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", page.Path, err))
		case saved == nil:
			result.Skipped++
		default:
			result.Succeeded++
		}
	}
	s.logger.Info("bulk metadata generation finished",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}
