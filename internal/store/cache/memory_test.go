package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/store/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "v"}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "v", got.Name)
}

func TestMemoryCacheMissIsSentinel(t *testing.T) {
	c := cache.NewMemoryCache()

	var got string
	assert.ErrorIs(t, c.Get(context.Background(), "missing", &got), ports.ErrCacheMiss)
}

func TestMemoryCacheExpiryIsMiss(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", -time.Second))

	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ports.ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ports.ErrCacheMiss)
}
