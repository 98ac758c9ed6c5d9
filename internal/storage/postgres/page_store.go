package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

const defaultPageTable = "page_seo"

var pageColumns = []string{
	"page_path",
	"title",
	"description",
	"keywords",
	"og_title",
	"og_description",
	"og_image",
	"twitter_title",
	"twitter_description",
	"twitter_image",
	"canonical_url",
	"robots",
	"structured_data",
	"created_at",
	"updated_at",
}

// PageStore implements seo.MetadataStore on the page_seo table.
type PageStore struct {
	pool  pgxIface
	table string
}

// NewPageStoreWithPool constructs a store from an existing pool.
func NewPageStoreWithPool(pool pgxIface, table string) (*PageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultPageTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PageStore{pool: pool, table: table}, nil
}

// EnsureSchema creates the table and its unique path index when missing.
func (s *PageStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	page_path TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	keywords TEXT,
	og_title TEXT,
	og_description TEXT,
	og_image TEXT,
	twitter_title TEXT,
	twitter_description TEXT,
	twitter_image TEXT,
	canonical_url TEXT,
	robots TEXT,
	structured_data JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT %[1]s_page_path_key UNIQUE (page_path)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure %s schema: %w", s.table, translateError(err))
	}
	return nil
}

// Ping checks connectivity.
func (s *PageStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *PageStore) selectList() string {
	cols := make([]string, len(pageColumns))
	for i, c := range pageColumns {
		switch c {
		case "page_path", "title", "structured_data", "created_at", "updated_at":
			cols[i] = c
		default:
			cols[i] = "COALESCE(" + c + ", '')"
		}
	}
	return strings.Join(cols, ", ")
}

// GetPage returns the row for path.
func (s *PageStore) GetPage(ctx context.Context, path string) (seo.PageMetadata, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE page_path = $1", s.selectList(), s.table)
	page, err := scanPage(s.pool.QueryRow(ctx, query, path))
	if err != nil {
		return seo.PageMetadata{}, translateError(err)
	}
	return page, nil
}

// ListPages returns every row ordered by path.
func (s *PageStore) ListPages(ctx context.Context) ([]seo.PageMetadata, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY page_path", s.selectList(), s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", translateError(err))
	}
	defer rows.Close()

	var pages []seo.PageMetadata
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", translateError(err))
	}
	return pages, nil
}

// InsertPage adds a row. A concurrent insert of the same path yields seo.ErrConflict.
func (s *PageStore) InsertPage(ctx context.Context, page seo.PageMetadata) (seo.PageMetadata, error) {
	data, err := marshalStructuredData(page.StructuredData)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	placeholders := make([]string, len(pageColumns))
	for i := range pageColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table, strings.Join(pageColumns, ", "), strings.Join(placeholders, ", "), s.selectList())

	saved, err := scanPage(s.pool.QueryRow(ctx, query,
		page.Path,
		page.Title,
		page.Description,
		page.Keywords,
		page.OGTitle,
		page.OGDescription,
		page.OGImage,
		page.TwitterTitle,
		page.TwitterDescription,
		page.TwitterImage,
		page.CanonicalURL,
		page.Robots,
		data,
		page.CreatedAt,
		page.UpdatedAt,
	))
	if err != nil {
		return seo.PageMetadata{}, fmt.Errorf("insert page %s: %w", page.Path, translateError(err))
	}
	return saved, nil
}

// UpdatePage replaces every column of an existing row except created_at.
func (s *PageStore) UpdatePage(ctx context.Context, page seo.PageMetadata) (seo.PageMetadata, error) {
	data, err := marshalStructuredData(page.StructuredData)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	query := fmt.Sprintf(`UPDATE %s SET
	title = $2,
	description = $3,
	keywords = $4,
	og_title = $5,
	og_description = $6,
	og_image = $7,
	twitter_title = $8,
	twitter_description = $9,
	twitter_image = $10,
	canonical_url = $11,
	robots = $12,
	structured_data = $13,
	updated_at = $14
WHERE page_path = $1
RETURNING %s`, s.table, s.selectList())

	saved, err := scanPage(s.pool.QueryRow(ctx, query,
		page.Path,
		page.Title,
		page.Description,
		page.Keywords,
		page.OGTitle,
		page.OGDescription,
		page.OGImage,
		page.TwitterTitle,
		page.TwitterDescription,
		page.TwitterImage,
		page.CanonicalURL,
		page.Robots,
		data,
		page.UpdatedAt,
	))
	if err != nil {
		return seo.PageMetadata{}, fmt.Errorf("update page %s: %w", page.Path, translateError(err))
	}
	return saved, nil
}

func scanPage(row pgx.Row) (seo.PageMetadata, error) {
	var (
		page    seo.PageMetadata
		data    []byte
		created time.Time
		updated time.Time
	)
	err := row.Scan(
		&page.Path,
		&page.Title,
		&page.Description,
		&page.Keywords,
		&page.OGTitle,
		&page.OGDescription,
		&page.OGImage,
		&page.TwitterTitle,
		&page.TwitterDescription,
		&page.TwitterImage,
		&page.CanonicalURL,
		&page.Robots,
		&data,
		&created,
		&updated,
	)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &page.StructuredData); err != nil {
			return seo.PageMetadata{}, fmt.Errorf("decode structured_data for %s: %w", page.Path, err)
		}
	}
	page.CreatedAt = created.UTC()
	page.UpdatedAt = updated.UTC()
	return page, nil
}

func marshalStructuredData(data map[string]any) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal structured_data: %w", err)
	}
	return b, nil
}
