package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts Embed calls.
type countingEmbedder struct {
	*StaticEmbedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.StaticEmbedder.Embed(ctx, text)
}

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	// Given
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 8)
	defer cached.Close()

	// When: embedding the same text twice
	first, err := cached.Embed(context.Background(), "조속기 점검")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "조속기 점검")
	require.NoError(t, err)

	// Then: one inner call, identical vectors
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
}

func TestCachedEmbedder_DistinctTextsMiss(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 8)
	defer cached.Close()

	_, err := cached.Embed(context.Background(), "조속기")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "변압기")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_ErrorsNotCached(t *testing.T) {
	// Given: an inner embedder that fails once
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(), err: errors.New("service down")}
	cached := NewCachedEmbedder(inner, 8)
	defer cached.Close()

	_, err := cached.Embed(context.Background(), "조속기")
	require.Error(t, err)

	// When: the service recovers
	inner.err = nil
	vec, err := cached.Embed(context.Background(), "조속기")

	// Then: retry reached the inner embedder
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	// Given: a cache with room for one entry
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 1)
	defer cached.Close()

	_, err := cached.Embed(context.Background(), "조속기")
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), "변압기")
	require.NoError(t, err)

	// When: re-embedding the evicted text
	_, err = cached.Embed(context.Background(), "조속기")
	require.NoError(t, err)

	// Then
	assert.Equal(t, 3, inner.calls)
}

func TestCachedEmbedder_DelegatesMetadata(t *testing.T) {
	inner := NewStaticEmbedder()
	cached := NewCachedEmbedder(inner, 8)
	defer cached.Close()

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
}
