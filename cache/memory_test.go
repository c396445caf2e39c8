package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Title string `json:"title"`
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "home", page{Title: "Loja"}, time.Minute))

	var got page
	ok, err := c.Get(ctx, "home", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Loja", got.Title)
}

func TestMemoryCache_Expires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "home", page{Title: "Loja"}, 5*time.Minute))

	now = now.Add(5 * time.Minute)
	var got page
	ok, err := c.Get(ctx, "home", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "home", page{Title: "Loja"}, time.Minute))
	require.NoError(t, c.Invalidate(ctx))

	var got page
	ok, _ := c.Get(ctx, "home", &got)
	assert.False(t, ok)
}
