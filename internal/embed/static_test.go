package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	// Given
	e := NewStaticEmbedder()
	defer e.Close()

	// When: embedding the same text twice
	a, err := e.Embed(context.Background(), "조속기 과속 시험")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "조속기 과속 시험")
	require.NoError(t, err)

	// Then
	assert.Equal(t, a, b)
}

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "governor inspection")
	require.NoError(t, err)

	assert.Len(t, vec, StaticDimensions)
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestStaticEmbedder_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "변압기 절연유 시험 절차")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedder_SimilarTextsCloser(t *testing.T) {
	// Given: two paraphrases and one unrelated text
	e := NewStaticEmbedder()
	defer e.Close()

	base, err := e.Embed(context.Background(), "governor overspeed test procedure")
	require.NoError(t, err)
	near, err := e.Embed(context.Background(), "overspeed test procedure for governor")
	require.NoError(t, err)
	far, err := e.Embed(context.Background(), "변압기 절연유 샘플링")
	require.NoError(t, err)

	// Then: shared tokens dominate the hash vector
	assert.Greater(t, dot(base, near), dot(base, far))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestStaticEmbedder_EmptyText(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)

	assert.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_ClosedFails(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "조속기")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestStaticEmbedder_CancelledContext(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, "조속기")
	assert.ErrorIs(t, err, context.Canceled)
}
