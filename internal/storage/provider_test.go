package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cambutal-seo/internal/seo"
	"github.com/JakeFAU/cambutal-seo/internal/storage"
	"github.com/JakeFAU/cambutal-seo/internal/storage/local"
	"github.com/JakeFAU/cambutal-seo/internal/storage/memory"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("DefaultsToMemory", func(t *testing.T) {
		t.Parallel()
		target, err := storage.Open(ctx, storage.Config{}, nil)
		require.NoError(t, err)
		assert.Equal(t, storage.TargetMemory, target.Name)
		assert.IsType(t, &memory.Writer{}, target.Writer)
		assert.Equal(t, seo.LayoutFlat, target.Layout)
		assert.NoError(t, target.Close())
	})

	t.Run("LocalDirectoryLayout", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		target, err := storage.Open(ctx, storage.Config{Target: "LOCAL", LocalDir: dir, Layout: "directory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &local.Writer{}, target.Writer)
		assert.Equal(t, seo.LayoutDirectoryIndex, target.Layout)
		assert.Equal(t, dir, target.Root())
	})

	t.Run("LocalRequiresDir", func(t *testing.T) {
		t.Parallel()
		_, err := storage.Open(ctx, storage.Config{Target: "local"}, nil)
		assert.Error(t, err)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		t.Parallel()
		_, err := storage.Open(ctx, storage.Config{Target: "ftp"}, nil)
		assert.ErrorContains(t, err, "unknown deployment target")
	})
}
