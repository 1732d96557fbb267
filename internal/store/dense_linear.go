package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// LinearDenseIndex ranks passages by brute-force cosine similarity over
// every stored embedding. Exact and allocation-light; a full scan over a
// few thousand to tens of thousands of passages is well under a
// millisecond, so no approximate structure is needed at this scale.
type LinearDenseIndex struct {
	mu         sync.RWMutex
	ids        []string
	vectors    [][]float32
	dimensions int
	skipped    int
}

// NewLinearDenseIndex creates an empty brute-force dense index.
func NewLinearDenseIndex(cfg DenseConfig) *LinearDenseIndex {
	return &LinearDenseIndex{
		dimensions: cfg.Dimensions,
	}
}

// Add stores vectors in insertion order. Vectors whose dimensionality does
// not match the index are skipped and counted, never fatal: one malformed
// embedding must not take the whole corpus out of dense retrieval.
func (l *LinearDenseIndex) Add(ids []string, vectors [][]float32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, id := range ids {
		if i >= len(vectors) {
			break
		}
		vec := vectors[i]
		if len(vec) == 0 {
			l.skipped++
			continue
		}
		if l.dimensions == 0 {
			l.dimensions = len(vec)
		}
		if len(vec) != l.dimensions {
			l.skipped++
			slog.Debug("dense_vector_skipped",
				slog.String("id", id),
				slog.Int("expected", l.dimensions),
				slog.Int("got", len(vec)))
			continue
		}
		l.ids = append(l.ids, id)
		l.vectors = append(l.vectors, vec)
	}

	return nil
}

// Search scans every stored vector and returns the k most similar.
// Ties are broken by insertion order, which keeps results deterministic.
func (l *LinearDenseIndex) Search(ctx context.Context, query []float32, k int) ([]DenseResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if k <= 0 || len(l.ids) == 0 {
		return []DenseResult{}, nil
	}
	if l.dimensions > 0 && len(query) != l.dimensions {
		return nil, ErrQueryDimension{Expected: l.dimensions, Got: len(query)}
	}

	scored := make([]DenseResult, 0, len(l.ids))
	for i, vec := range l.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scored = append(scored, DenseResult{
			ID:    l.ids[i],
			Score: Cosine(query, vec),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of indexed vectors.
func (l *LinearDenseIndex) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// SkippedVectors returns how many vectors were dropped at Add time.
func (l *LinearDenseIndex) SkippedVectors() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.skipped
}

var _ DenseIndex = (*LinearDenseIndex)(nil)
