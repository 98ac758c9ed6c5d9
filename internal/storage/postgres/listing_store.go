package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// listingTable describes how one directory table maps onto seo.Listing.
// Expressions are trusted SQL fragments owned by this package.
type listingTable struct {
	table     string
	status    string
	name      string
	category  string
	address   string
	phone     string
	website   string
	price     string
	rating    string
	author    string
	published string
}

var listingTables = map[seo.ListingKind]listingTable{
	seo.KindRestaurant: {
		table:     "restaurants",
		status:    "approved",
		name:      "name",
		category:  "COALESCE(cuisine_type, '')",
		address:   "COALESCE(address, '')",
		phone:     "COALESCE(phone, '')",
		website:   "COALESCE(website, '')",
		price:     "COALESCE(price_range, '')",
		rating:    "COALESCE(rating, 0)::float8",
		author:    "''",
		published: "NULL::timestamptz",
	},
	seo.KindHotel: {
		table:     "hotels",
		status:    "approved",
		name:      "name",
		category:  "COALESCE(hotel_type, '')",
		address:   "COALESCE(address, '')",
		phone:     "COALESCE(phone, '')",
		website:   "COALESCE(website, '')",
		price:     "COALESCE(price_range, '')",
		rating:    "COALESCE(rating, 0)::float8",
		author:    "''",
		published: "NULL::timestamptz",
	},
	seo.KindActivity: {
		table:     "adventure_businesses",
		status:    "approved",
		name:      "name",
		category:  "COALESCE(category, '')",
		address:   "COALESCE(address, '')",
		phone:     "COALESCE(phone, '')",
		website:   "COALESCE(website, '')",
		price:     "COALESCE(price_range, '')",
		rating:    "COALESCE(rating, 0)::float8",
		author:    "''",
		published: "NULL::timestamptz",
	},
	seo.KindBlog: {
		table:     "blog_posts",
		status:    "published",
		name:      "title",
		category:  "COALESCE(category, '')",
		address:   "''",
		phone:     "''",
		website:   "''",
		price:     "''",
		rating:    "0::float8",
		author:    "COALESCE(author, '')",
		published: "published_at",
	},
}

// ListingStore implements seo.ListingSource over the directory tables.
type ListingStore struct {
	pool pgxIface
}

// NewListingStoreWithPool constructs a listing source on an existing pool.
func NewListingStoreWithPool(pool pgxIface) (*ListingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ListingStore{pool: pool}, nil
}

func (t listingTable) query() string {
	return fmt.Sprintf(`SELECT
	id::text,
	%s,
	COALESCE(slug, ''),
	COALESCE(description, ''),
	%s,
	%s,
	COALESCE(image_url, ''),
	%s,
	%s,
	%s,
	%s,
	%s,
	%s,
	updated_at
FROM %s
WHERE status = $1
ORDER BY %s`,
		t.name, t.category, t.address, t.phone, t.website, t.price, t.rating, t.author, t.published,
		t.table, t.name)
}

// ListListings returns approved listings (published posts for seo.KindBlog).
func (s *ListingStore) ListListings(ctx context.Context, kind seo.ListingKind) ([]seo.Listing, error) {
	t, ok := listingTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}
	rows, err := s.pool.Query(ctx, t.query(), t.status)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, translateError(err))
	}
	defer rows.Close()

	var out []seo.Listing
	for rows.Next() {
		var (
			l         seo.Listing
			published *time.Time
			updated   time.Time
		)
		if err := rows.Scan(
			&l.ID,
			&l.Name,
			&l.Slug,
			&l.Description,
			&l.Category,
			&l.Address,
			&l.ImageURL,
			&l.Phone,
			&l.Website,
			&l.PriceRange,
			&l.Rating,
			&l.Author,
			&published,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		l.Kind = kind
		l.PublishedAt = published
		l.UpdatedAt = updated.UTC()
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.table, translateError(err))
	}
	return out, nil
}
