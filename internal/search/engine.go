package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/embed"
	safeerr "github.com/plantops/safesearch/internal/errors"
	"github.com/plantops/safesearch/internal/store"
	"github.com/plantops/safesearch/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// snapshot bundles a corpus with the indexes built over it. The engine
// swaps the whole snapshot atomically on reload, so a search in flight
// keeps using the indexes it started with. Searches pin a snapshot with
// acquire/release; the sparse index is closed only after the snapshot is
// retired and the last pin is gone.
type snapshot struct {
	corpus *corpus.Corpus
	sparse *store.SparseIndex
	dense  store.DenseIndex

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

// acquire pins the snapshot. It fails once the snapshot has been retired
// and closed, in which case the caller must reload the current pointer.
func (s *snapshot) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.refs++
	return true
}

// release drops a pin, closing the sparse index when the snapshot is
// retired and no pins remain.
func (s *snapshot) release() {
	s.mu.Lock()
	s.refs--
	doClose := s.retired && s.refs == 0 && !s.closed
	if doClose {
		s.closed = true
	}
	s.mu.Unlock()
	if doClose {
		s.closeSparse()
	}
}

// retire marks the snapshot as replaced. The sparse index closes now if
// no search holds a pin, otherwise when the last pin is released.
func (s *snapshot) retire() {
	s.mu.Lock()
	s.retired = true
	doClose := s.refs == 0 && !s.closed
	if doClose {
		s.closed = true
	}
	s.mu.Unlock()
	if doClose {
		s.closeSparse()
	}
}

func (s *snapshot) closeSparse() {
	if err := s.sparse.Close(); err != nil {
		slog.Warn("sparse_index_close_failed", slog.String("error", err.Error()))
	}
}

// Engine is the hybrid search pipeline: bilingual expansion feeding a
// BM25 index, the original query feeding a vector index, RRF fusion,
// safety boost, then facet filtering.
type Engine struct {
	snap     atomic.Pointer[snapshot]
	embedder embed.Embedder
	config   Config
	fuser    *Fuser
	expander *Expander
	booster  *SafetyBooster
	lexicon  *Lexicon
	metrics  *telemetry.QueryMetrics

	sparseCfg store.SparseConfig
	denseCfg  store.DenseConfig
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithLexicon overrides the built-in bilingual lexicon.
func WithLexicon(lex *Lexicon) EngineOption {
	return func(e *Engine) {
		if lex != nil {
			e.lexicon = lex
		}
	}
}

// WithMetrics sets an optional query metrics collector. When set, query
// latency and zero-result queries are tracked.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSparseConfig overrides field boosts and fuzzy matching for the
// BM25 index.
func WithSparseConfig(cfg store.SparseConfig) EngineOption {
	return func(e *Engine) {
		e.sparseCfg = cfg
	}
}

// WithDenseConfig selects the vector index backend.
func WithDenseConfig(cfg store.DenseConfig) EngineOption {
	return func(e *Engine) {
		e.denseCfg = cfg
	}
}

// NewEngine builds the indexes for the given corpus and returns a ready
// engine. The embedder is required even if it is never reachable; a
// failing embedder degrades searches to sparse-only rather than failing
// construction.
func NewEngine(c *corpus.Corpus, embedder embed.Embedder, config Config, opts ...EngineOption) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: corpus is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}

	config = config.normalized()
	e := &Engine{
		embedder:  embedder,
		config:    config,
		fuser:     NewFuser(config.RRFConstant),
		lexicon:   DefaultLexicon(),
		sparseCfg: store.DefaultSparseConfig(),
		denseCfg:  store.DefaultDenseConfig(embedder.Dimensions()),
	}
	for _, opt := range opts {
		opt(e)
	}

	expander, err := NewExpander(e.lexicon, WithMaxVariants(config.MaxVariants))
	if err != nil {
		return nil, safeerr.Wrap(safeerr.ErrCodeConfigInvalid, err)
	}
	e.expander = expander

	booster, err := NewSafetyBooster(e.lexicon, config.SafetyBoost)
	if err != nil {
		return nil, safeerr.Wrap(safeerr.ErrCodeConfigInvalid, err)
	}
	e.booster = booster

	snap, err := e.buildSnapshot(c)
	if err != nil {
		return nil, err
	}
	e.snap.Store(snap)

	slog.Info("engine_ready",
		slog.Int("passages", c.Len()),
		slog.Int("skipped_records", c.Skipped()),
		slog.String("dense_backend", string(e.denseCfg.Backend)),
		slog.String("embed_model", embedder.ModelName()))
	return e, nil
}

// buildSnapshot indexes the corpus into fresh sparse and dense indexes.
func (e *Engine) buildSnapshot(c *corpus.Corpus) (*snapshot, error) {
	sparse, err := store.NewSparseIndex(e.sparseCfg)
	if err != nil {
		return nil, err
	}
	if err := sparse.Index(c.Passages()); err != nil {
		sparse.Close()
		return nil, err
	}

	dense, err := store.NewDenseIndex(e.denseCfg)
	if err != nil {
		sparse.Close()
		return nil, err
	}
	ids := make([]string, 0, c.Len())
	vectors := make([][]float32, 0, c.Len())
	for _, p := range c.Passages() {
		ids = append(ids, p.ID)
		vectors = append(vectors, p.Embedding)
	}
	if err := dense.Add(ids, vectors); err != nil {
		sparse.Close()
		return nil, err
	}
	if skipped := dense.SkippedVectors(); skipped > 0 {
		slog.Warn("dense_vectors_skipped",
			slog.Int("skipped", skipped),
			slog.Int("indexed", dense.Count()))
	}

	return &snapshot{corpus: c, sparse: sparse, dense: dense}, nil
}

// Reload swaps in a freshly indexed corpus. Searches already running
// finish against the old snapshot; new searches see the new one.
func (e *Engine) Reload(c *corpus.Corpus) error {
	if c == nil {
		return fmt.Errorf("%w: corpus is required", ErrNilDependency)
	}
	snap, err := e.buildSnapshot(c)
	if err != nil {
		return err
	}
	old := e.snap.Swap(snap)
	if old != nil {
		old.retire()
	}
	slog.Info("corpus_reloaded",
		slog.Int("passages", c.Len()),
		slog.Int("skipped_records", c.Skipped()))
	return nil
}

// Search runs the full hybrid pipeline for one query.
//
// The sparse path searches every expansion variant; the dense path
// embeds the original query only, since the embedding model handles
// cross-lingual similarity natively and expansion would add noise. An
// embedder failure degrades to sparse-only results instead of erroring.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	snap := e.acquireSnapshot()
	defer snap.release()
	limit := e.config.clampLimit(opts.Limit)

	// 2x headroom so fusion and facet filtering have enough material to
	// still fill the page.
	headroom := limit * 2

	variants := e.expander.Expand(query)

	sparseIDs, denseIDs, degraded := e.parallelSearch(ctx, snap, query, variants, headroom)

	candidates := e.fuser.Fuse(sparseIDs, denseIDs)
	e.booster.Apply(candidates, snap.corpus.Get)
	Rank(candidates)

	filter := FacetFilter{Equipment: opts.Equipment, Family: opts.Family}
	candidates = filter.Apply(candidates, snap.corpus.Get)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*Result, 0, len(candidates))
	for _, c := range candidates {
		p := snap.corpus.Get(c.ID)
		if p == nil {
			continue
		}
		results = append(results, &Result{
			Passage:       p,
			Score:         c.Final,
			SparseRank:    c.SparseRank,
			DenseRank:     c.DenseRank,
			SafetyBoosted: c.Boost > 0,
		})
	}

	e.recordMetrics(query, len(variants), len(results), degraded, time.Since(start))

	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("variants", len(variants)),
		slog.Int("results", len(results)),
		slog.Bool("degraded", degraded),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// parallelSearch runs the sparse and dense paths concurrently. A dense
// failure (embedder down, dimension mismatch) is logged and yields an
// empty dense list; it never fails the search.
func (e *Engine) parallelSearch(ctx context.Context, snap *snapshot, query string, variants []string, limit int) (sparseIDs, denseIDs []string, degraded bool) {
	g, gctx := errgroup.WithContext(ctx)

	var denseErr error

	g.Go(func() error {
		sparseIDs = e.searchSparse(gctx, snap, variants, limit)
		return nil
	})

	g.Go(func() error {
		if query == "" {
			return nil
		}
		embedCtx, cancel := context.WithTimeout(gctx, e.config.EmbedTimeout)
		defer cancel()

		vec, err := e.embedder.Embed(embedCtx, query)
		if err != nil {
			denseErr = err
			return nil
		}
		hits, err := snap.dense.Search(gctx, vec, limit)
		if err != nil {
			denseErr = err
			return nil
		}
		denseIDs = make([]string, len(hits))
		for i, h := range hits {
			denseIDs[i] = h.ID
		}
		return nil
	})

	// Errors never propagate through the group; Wait only fails on
	// context cancellation, which we surface as a degraded empty side.
	_ = g.Wait()

	if denseErr != nil {
		degraded = true
		slog.Warn("dense_path_degraded",
			slog.String("error", denseErr.Error()),
			slog.String("fallback", "sparse-only results"))
	}
	return sparseIDs, denseIDs, degraded
}

// searchSparse queries the BM25 index once per variant and merges the
// rank lists: variant order is preserved, duplicates keep their first
// position, and the merged list is truncated to limit.
func (e *Engine) searchSparse(ctx context.Context, snap *snapshot, variants []string, limit int) []string {
	seen := make(map[string]struct{}, limit)
	merged := make([]string, 0, limit)

	for _, v := range variants {
		if len(merged) >= limit {
			break
		}
		hits, err := snap.sparse.Search(ctx, v, limit)
		if err != nil {
			slog.Warn("sparse_variant_failed",
				slog.String("variant", v),
				slog.String("error", err.Error()))
			continue
		}
		for _, h := range hits {
			if _, dup := seen[h.ID]; dup {
				continue
			}
			seen[h.ID] = struct{}{}
			merged = append(merged, h.ID)
			if len(merged) >= limit {
				break
			}
		}
	}
	return merged
}

// acquireSnapshot pins the current snapshot for the duration of a
// search. A reload between the load and the pin retires the loaded
// snapshot, so a failed pin just means the pointer moved on.
func (e *Engine) acquireSnapshot() *snapshot {
	for {
		snap := e.snap.Load()
		if snap.acquire() {
			return snap
		}
	}
}

// EquipmentByFamily exposes the facet tree of the current corpus for UI
// pickers: family -> sorted equipment tags.
func (e *Engine) EquipmentByFamily() map[string][]string {
	return e.snap.Load().corpus.EquipmentByFamily()
}

// Stats summarizes the current snapshot.
type Stats struct {
	Passages       int    `json:"passages"`
	SkippedRecords int    `json:"skippedRecords"`
	SparseDocs     int    `json:"sparseDocs"`
	DenseVectors   int    `json:"denseVectors"`
	SkippedVectors int    `json:"skippedVectors"`
	EmbedModel     string `json:"embedModel"`
	EmbedAvailable bool   `json:"embedAvailable"`
}

// Stats returns index and embedder statistics for the current snapshot.
func (e *Engine) Stats(ctx context.Context) Stats {
	snap := e.acquireSnapshot()
	defer snap.release()
	return Stats{
		Passages:       snap.corpus.Len(),
		SkippedRecords: snap.corpus.Skipped(),
		SparseDocs:     snap.sparse.DocCount(),
		DenseVectors:   snap.dense.Count(),
		SkippedVectors: snap.dense.SkippedVectors(),
		EmbedModel:     e.embedder.ModelName(),
		EmbedAvailable: e.embedder.Available(ctx),
	}
}

// Close releases index and embedder resources. Searches still holding a
// snapshot pin finish before their index closes.
func (e *Engine) Close() error {
	if snap := e.snap.Load(); snap != nil {
		snap.retire()
	}
	return e.embedder.Close()
}

func (e *Engine) recordMetrics(query string, variants, results int, degraded bool, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:        query,
		VariantCount: variants,
		ResultCount:  results,
		Degraded:     degraded,
		Latency:      latency,
		Timestamp:    time.Now(),
	})
}
