// Package embed defines the embedding collaborator boundary and its
// implementations: an HTTP client for a real embedding service, an LRU
// cache wrapper, and a deterministic hash-based embedder for offline use
// and tests.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultTimeout bounds a single embedding request. This is the only
	// network hop in a query's lifecycle; when it expires the engine
	// degrades to sparse-only retrieval.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the retry budget for transient HTTP failures.
	DefaultMaxRetries = 2

	// DefaultCacheSize is the default number of query embeddings kept in
	// the LRU cache. Conversation turns repeat queries often.
	DefaultCacheSize = 512

	// StaticDimensions is the dimensionality of the hash-based embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text. Implementations must fail
// distinctly on error — never silently return a zero vector — so the dense
// retriever can apply its sparse-only fallback.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
