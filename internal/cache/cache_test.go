package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "page:/eat", []byte("<html>"), time.Hour))
	require.NoError(t, m.Set(ctx, "forever", []byte("x"), 0))

	got, ok, err := m.Get(ctx, "page:/eat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<html>", string(got))

	got[0] = 'X'
	again, _, _ := m.Get(ctx, "page:/eat")
	assert.Equal(t, "<html>", string(again), "Get must return a copy")

	now = now.Add(time.Hour)
	_, ok, err = m.Get(ctx, "page:/eat")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemorySweepAndDelete(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, m.Set(ctx, "c", []byte("3"), time.Hour))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Delete(ctx, "b"))
	_, ok, _ := m.Get(ctx, "b")
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var s Store = Noop{}
	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), time.Hour))
	_, ok, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
