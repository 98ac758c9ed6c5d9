// Package sqlite is a single-file metadata store and listing source for local
// development. It enforces the same unique key on page_path as page_seo.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
)

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite.path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS page_seo (
	page_path TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	og_title TEXT NOT NULL DEFAULT '',
	og_description TEXT NOT NULL DEFAULT '',
	og_image TEXT NOT NULL DEFAULT '',
	twitter_title TEXT NOT NULL DEFAULT '',
	twitter_description TEXT NOT NULL DEFAULT '',
	twitter_image TEXT NOT NULL DEFAULT '',
	canonical_url TEXT NOT NULL DEFAULT '',
	robots TEXT NOT NULL DEFAULT '',
	structured_data TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS listings (
	kind TEXT NOT NULL,
	id TEXT NOT NULL,
	name TEXT NOT NULL,
	slug TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	price_range TEXT NOT NULL DEFAULT '',
	rating REAL NOT NULL DEFAULT 0,
	author TEXT NOT NULL DEFAULT '',
	published_at TEXT,
	status TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (kind, id)
);
`)
	if err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}

const pageSelect = `SELECT page_path, title, description, keywords, og_title, og_description, og_image,
	twitter_title, twitter_description, twitter_image, canonical_url, robots, structured_data,
	created_at, updated_at FROM page_seo`

type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (seo.PageMetadata, error) {
	var (
		p       seo.PageMetadata
		data    sql.NullString
		created string
		updated string
	)
	if err := row.Scan(&p.Path, &p.Title, &p.Description, &p.Keywords, &p.OGTitle, &p.OGDescription,
		&p.OGImage, &p.TwitterTitle, &p.TwitterDescription, &p.TwitterImage, &p.CanonicalURL,
		&p.Robots, &data, &created, &updated); err != nil {
		return seo.PageMetadata{}, err
	}
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &p.StructuredData); err != nil {
			return seo.PageMetadata{}, fmt.Errorf("decode structured_data for %s: %w", p.Path, err)
		}
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

// GetPage returns the row for path.
func (s *Store) GetPage(ctx context.Context, path string) (seo.PageMetadata, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx, pageSelect+` WHERE page_path = ?`, path))
	if err != nil {
		return seo.PageMetadata{}, translateError(err)
	}
	return p, nil
}

// ListPages returns every row ordered by path.
func (s *Store) ListPages(ctx context.Context) ([]seo.PageMetadata, error) {
	rows, err := s.db.QueryContext(ctx, pageSelect+` ORDER BY page_path`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", translateError(err))
	}
	defer rows.Close()
	var out []seo.PageMetadata
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return out, nil
}

// InsertPage adds a row; a duplicate path yields seo.ErrConflict.
func (s *Store) InsertPage(ctx context.Context, p seo.PageMetadata) (seo.PageMetadata, error) {
	data, err := encodeData(p.StructuredData)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO page_seo (page_path, title, description, keywords,
	og_title, og_description, og_image, twitter_title, twitter_description, twitter_image,
	canonical_url, robots, structured_data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Path, p.Title, p.Description, p.Keywords, p.OGTitle, p.OGDescription, p.OGImage,
		p.TwitterTitle, p.TwitterDescription, p.TwitterImage, p.CanonicalURL, p.Robots, data,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return seo.PageMetadata{}, fmt.Errorf("insert page %s: %w", p.Path, translateError(err))
	}
	return s.GetPage(ctx, p.Path)
}

// UpdatePage replaces every column of an existing row except created_at.
func (s *Store) UpdatePage(ctx context.Context, p seo.PageMetadata) (seo.PageMetadata, error) {
	data, err := encodeData(p.StructuredData)
	if err != nil {
		return seo.PageMetadata{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE page_seo SET title = ?, description = ?, keywords = ?,
	og_title = ?, og_description = ?, og_image = ?, twitter_title = ?, twitter_description = ?,
	twitter_image = ?, canonical_url = ?, robots = ?, structured_data = ?, updated_at = ?
WHERE page_path = ?`,
		p.Title, p.Description, p.Keywords, p.OGTitle, p.OGDescription, p.OGImage,
		p.TwitterTitle, p.TwitterDescription, p.TwitterImage, p.CanonicalURL, p.Robots, data,
		formatTime(p.UpdatedAt), p.Path)
	if err != nil {
		return seo.PageMetadata{}, fmt.Errorf("update page %s: %w", p.Path, translateError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return seo.PageMetadata{}, seo.ErrNotFound
	}
	return s.GetPage(ctx, p.Path)
}

// PutListing inserts or replaces a listing with the given status.
func (s *Store) PutListing(ctx context.Context, l seo.Listing, status string) error {
	var published any
	if l.PublishedAt != nil {
		published = formatTime(*l.PublishedAt)
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO listings (kind, id, name, slug, description,
	category, address, image_url, phone, website, price_range, rating, author, published_at, status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(l.Kind), l.ID, l.Name, l.Slug, l.Description, l.Category, l.Address, l.ImageURL,
		l.Phone, l.Website, l.PriceRange, l.Rating, l.Author, published, status, formatTime(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put listing %s/%s: %w", l.Kind, l.ID, translateError(err))
	}
	return nil
}

// ListListings returns approved listings (published posts for seo.KindBlog).
func (s *Store) ListListings(ctx context.Context, kind seo.ListingKind) ([]seo.Listing, error) {
	status := "approved"
	if kind == seo.KindBlog {
		status = "published"
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug, description, category, address, image_url,
	phone, website, price_range, rating, author, published_at, updated_at
FROM listings WHERE kind = ? AND status = ? ORDER BY name`, string(kind), status)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()
	var out []seo.Listing
	for rows.Next() {
		var (
			l         seo.Listing
			published sql.NullString
			updated   string
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Slug, &l.Description, &l.Category, &l.Address,
			&l.ImageURL, &l.Phone, &l.Website, &l.PriceRange, &l.Rating, &l.Author, &published, &updated); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		l.Kind = kind
		if published.Valid {
			t := parseTime(published.String)
			l.PublishedAt = &t
		}
		l.UpdatedAt = parseTime(updated)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return seo.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", seo.ErrConflict, se.Error())
		case sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH:
			return fmt.Errorf("%w: %s", seo.ErrPermissionDenied, se.Error())
		}
	}
	return err
}

func encodeData(data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal structured_data: %w", err)
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
