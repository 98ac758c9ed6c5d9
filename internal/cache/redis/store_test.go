package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ""), mr
}

func TestStoreRoundTripAndExpiry(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "page:/eat")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "page:/eat", []byte("<html>eat</html>"), time.Hour))
	assert.True(t, mr.Exists(DefaultPrefix+"page:/eat"))

	got, ok, err := s.Get(ctx, "page:/eat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<html>eat</html>", string(got))

	mr.FastForward(time.Hour + time.Second)
	_, ok, err = s.Get(ctx, "page:/eat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDeleteAndPing(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreReportsConnectionErrors(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Dial(context.Background(), mr.Addr(), "", 0, "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Dial(context.Background(), "127.0.0.1:1", "", 0, "")
	assert.Error(t, err)
}
