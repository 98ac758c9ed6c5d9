// Package gcs writes deployed files to a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const (
	generatorKey   = "generator"
	generatorValue = "cambutal-seo"
)

// Config captures the parameters required to write to GCS.
type Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	CacheControl string `mapstructure:"cache_control"`
}

// Writer uploads deployed files to a configured GCS bucket.
type Writer struct {
	client       *storage.Client
	bucket       string
	prefix       string
	cacheControl string
}

// New creates a GCS-backed writer.
func New(client *storage.Client, cfg Config) (*Writer, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Writer{
		client:       client,
		bucket:       cfg.Bucket,
		prefix:       strings.Trim(cfg.Prefix, "/"),
		cacheControl: cfg.CacheControl,
	}, nil
}

// Verify checks that the bucket exists and is reachable with the client's credentials.
func (w *Writer) Verify(ctx context.Context) error {
	if _, err := w.client.Bucket(w.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", w.bucket, err)
	}
	return nil
}

// Root returns the gs:// URI files are written under.
func (w *Writer) Root() string {
	if w.prefix == "" {
		return "gs://" + w.bucket
	}
	return "gs://" + w.bucket + "/" + w.prefix
}

func (w *Writer) objectName(p string) string {
	p = strings.TrimLeft(p, "/")
	if w.prefix == "" {
		return p
	}
	return w.prefix + "/" + p
}

// Write uploads content to the object at path.
func (w *Writer) Write(ctx context.Context, p string, content []byte) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path is required")
	}
	obj := w.client.Bucket(w.bucket).Object(w.objectName(p))
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType(p)
	writer.CacheControl = w.cacheControl
	writer.Metadata = map[string]string{generatorKey: generatorValue}
	if _, err := writer.Write(content); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", p, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", p, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer %s: %w", p, err)
	}
	return nil
}

// Exists reports whether the object at path is present.
func (w *Writer) Exists(ctx context.Context, p string) (bool, error) {
	_, err := w.client.Bucket(w.bucket).Object(w.objectName(p)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", p, err)
	}
	return true, nil
}

// Cleanup deletes objects under the prefix that were written by this generator.
func (w *Writer) Cleanup(ctx context.Context) (int, error) {
	query := &storage.Query{}
	if w.prefix != "" {
		query.Prefix = w.prefix + "/"
	}
	bucket := w.client.Bucket(w.bucket)
	it := bucket.Objects(ctx, query)
	removed := 0
	var errs []error
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("list objects: %w", err)
		}
		if attrs.Metadata[generatorKey] != generatorValue {
			continue
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", attrs.Name, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func contentType(p string) string {
	switch path.Ext(p) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
