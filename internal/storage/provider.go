// Package storage selects the deployment writer for a configured target.
// Writers live in the memory, local and gcs subpackages; this package turns a
// target name into one of them.
package storage

import (
	"context"
	"fmt"
	"strings"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/storage/gcs"
	"github.com/JakeFAU/cambutal-seo/internal/storage/local"
	"github.com/JakeFAU/cambutal-seo/internal/storage/memory"
)

// Deployment targets.
const (
	TargetMemory = "memory"
	TargetLocal  = "local"
	TargetGCS    = "gcs"
)

// Config selects and configures a deployment target.
type Config struct {
	Target       string
	Layout       string
	LocalDir     string
	GCSBucket    string
	GCSPrefix    string
	CacheControl string
}

// Target is a configured writer and the layout it expects.
type Target struct {
	Name   string
	Writer seo.Writer
	Layout seo.Layout
	closer func() error
}

// Root returns a printable description of where files land.
func (t *Target) Root() string {
	if r, ok := t.Writer.(interface{ Root() string }); ok {
		return r.Root()
	}
	return t.Name
}

// Close releases any client held by the writer.
func (t *Target) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

// Open builds the writer for cfg.Target. An empty target means memory.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Target, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Target))
	if name == "" {
		name = TargetMemory
	}
	layout := seo.ParseLayout(cfg.Layout)

	switch name {
	case TargetMemory:
		logger.Info("using in-memory deployment target (dry run)")
		return &Target{Name: name, Writer: memory.NewWriter(""), Layout: layout}, nil
	case TargetLocal:
		w, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local target: %w", err)
		}
		logger.Info("using local deployment target", zap.String("dir", w.Root()), zap.String("layout", string(layout)))
		return &Target{Name: name, Writer: w, Layout: layout}, nil
	case TargetGCS:
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		w, err := gcs.New(client, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix, CacheControl: cfg.CacheControl})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs target: %w", err)
		}
		if err := w.Verify(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs target: %w", err)
		}
		logger.Info("using GCS deployment target", zap.String("root", w.Root()))
		return &Target{Name: name, Writer: w, Layout: layout, closer: client.Close}, nil
	default:
		return nil, fmt.Errorf("unknown deployment target %q", cfg.Target)
	}
}
