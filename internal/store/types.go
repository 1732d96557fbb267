// Package store provides the sparse lexical index (Bleve BM25) and the
// dense vector index the search engine runs over. Both are built once from
// a loaded corpus and treated as immutable afterwards.
package store

import (
	"context"
	"fmt"
)

// SparseResult is a single lexical search hit.
type SparseResult struct {
	ID    string
	Score float64
}

// DenseResult is a single vector search hit. Score is cosine similarity.
type DenseResult struct {
	ID    string
	Score float64
}

// FieldBoosts weights the four indexed fields during sparse search.
type FieldBoosts struct {
	Title     float64 `yaml:"title" json:"title"`
	Equipment float64 `yaml:"equipment" json:"equipment"`
	Component float64 `yaml:"component" json:"component"`
	Text      float64 `yaml:"text" json:"text"`
}

// DefaultFieldBoosts returns the default per-field weights.
func DefaultFieldBoosts() FieldBoosts {
	return FieldBoosts{
		Title:     2.0,
		Equipment: 1.5,
		Component: 1.2,
		Text:      1.0,
	}
}

// SparseConfig configures the sparse lexical index.
type SparseConfig struct {
	// Boosts are the per-field query-time weights.
	Boosts FieldBoosts

	// FuzzyRatio is the edit-distance tolerance as a fraction of term
	// length (default 0.2). The resulting edit distance is capped at 2,
	// the maximum Bleve supports.
	FuzzyRatio float64
}

// DefaultSparseConfig returns the default sparse index configuration.
func DefaultSparseConfig() SparseConfig {
	return SparseConfig{
		Boosts:     DefaultFieldBoosts(),
		FuzzyRatio: 0.2,
	}
}

// Dense backend selection.
const (
	// DenseBackendLinear is a brute-force cosine scan. Exact, and fast
	// enough for corpora up to tens of thousands of passages.
	DenseBackendLinear = "linear"

	// DenseBackendHNSW is an approximate nearest-neighbor graph. Same
	// contract, sub-linear queries for large corpora.
	DenseBackendHNSW = "hnsw"
)

// DenseConfig configures the dense vector index.
type DenseConfig struct {
	// Backend selects the implementation: "linear" (default) or "hnsw".
	Backend string

	// Dimensions is the expected embedding dimensionality. Zero means
	// adopt the dimensionality of the first vector added.
	Dimensions int

	// M is the HNSW max connections per layer (hnsw backend only).
	M int

	// EfSearch is the HNSW query-time search width (hnsw backend only).
	EfSearch int
}

// DefaultDenseConfig returns the default dense index configuration.
func DefaultDenseConfig(dimensions int) DenseConfig {
	return DenseConfig{
		Backend:    DenseBackendLinear,
		Dimensions: dimensions,
		M:          16,
		EfSearch:   32,
	}
}

// DenseIndex ranks passages by embedding similarity. Implementations must
// skip stored vectors whose dimensionality does not match rather than fail
// the whole query.
type DenseIndex interface {
	// Add inserts vectors with their IDs. Vectors with mismatched
	// dimensions are skipped and counted, not fatal.
	Add(ids []string, vectors [][]float32) error

	// Search returns the k nearest passages to the query vector,
	// ordered by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]DenseResult, error)

	// Count returns the number of indexed vectors.
	Count() int

	// SkippedVectors returns how many vectors were dropped at Add time
	// for dimension mismatch. Exposed for diagnostics.
	SkippedVectors() int
}

// ErrQueryDimension indicates the query embedding does not match the
// index dimensionality. The engine degrades to sparse-only on this error.
type ErrQueryDimension struct {
	Expected int
	Got      int
}

func (e ErrQueryDimension) Error() string {
	return fmt.Sprintf("query embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
