package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "seo-deployments", map[string]int{"total": 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)
	id, err = pub.Publish(context.Background(), "seo-deployments", "second")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "second", events[1].Payload)

	events[0].Topic = "modified"
	assert.Equal(t, "seo-deployments", pub.Events()[0].Topic, "Events must return a copy")
}

func TestPublisherFailWith(t *testing.T) {
	t.Parallel()

	pub := New()
	boom := errors.New("boom")
	pub.FailWith(boom)
	_, err := pub.Publish(context.Background(), "t", nil)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, pub.Events())

	pub.FailWith(nil)
	_, err = pub.Publish(context.Background(), "t", nil)
	require.NoError(t, err)
}

func TestPublisherHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Publish(ctx, "t", nil)
	require.ErrorIs(t, err, context.Canceled)
}
