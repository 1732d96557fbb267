package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWDenseIndex implements DenseIndex on a coder/hnsw graph. Same
// contract as LinearDenseIndex with approximate, sub-linear queries;
// intended for corpora too large for the brute-force scan.
type HNSWDenseIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config DenseConfig

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	skipped int
}

// NewHNSWDenseIndex creates an empty HNSW-backed dense index.
func NewHNSWDenseIndex(cfg DenseConfig) *HNSWDenseIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 32
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWDenseIndex{
		graph:  graph,
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Add inserts vectors into the graph. Vectors are copied and normalized so
// cosine distance reduces to 1 - dot. Mismatched dimensions are skipped
// and counted, matching the linear backend.
func (h *HNSWDenseIndex) Add(ids []string, vectors [][]float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, id := range ids {
		if i >= len(vectors) {
			break
		}
		src := vectors[i]
		if len(src) == 0 {
			h.skipped++
			continue
		}
		if h.config.Dimensions == 0 {
			h.config.Dimensions = len(src)
		}
		if len(src) != h.config.Dimensions {
			h.skipped++
			slog.Debug("dense_vector_skipped",
				slog.String("id", id),
				slog.Int("expected", h.config.Dimensions),
				slog.Int("got", len(src)))
			continue
		}

		vec := make([]float32, len(src))
		copy(vec, src)
		normalizeInPlace(vec)

		key := h.nextKey
		h.nextKey++
		h.graph.Add(hnsw.MakeNode(key, vec))
		h.idMap[id] = key
		h.keyMap[key] = id
	}

	return nil
}

// Search returns the approximate k nearest neighbors by cosine similarity.
func (h *HNSWDenseIndex) Search(ctx context.Context, query []float32, k int) ([]DenseResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || h.graph.Len() == 0 {
		return []DenseResult{}, nil
	}
	if h.config.Dimensions > 0 && len(query) != h.config.Dimensions {
		return nil, ErrQueryDimension{Expected: h.config.Dimensions, Got: len(query)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	nodes := h.graph.Search(normalized, k)

	results := make([]DenseResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := h.keyMap[node.Key]
		if !ok {
			continue
		}
		// Cosine distance over unit vectors is 1 - similarity, so this
		// recovers the similarity the contract promises.
		distance := h.graph.Distance(normalized, node.Value)
		results = append(results, DenseResult{
			ID:    id,
			Score: 1.0 - float64(distance),
		})
	}

	return results, nil
}

// Count returns the number of indexed vectors.
func (h *HNSWDenseIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idMap)
}

// SkippedVectors returns how many vectors were dropped at Add time.
func (h *HNSWDenseIndex) SkippedVectors() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.skipped
}

var _ DenseIndex = (*HNSWDenseIndex)(nil)
