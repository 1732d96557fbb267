package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/safesearch/internal/corpus"
)

// stubEmbedder returns a fixed vector, or fails on demand, so engine
// tests control the dense path without a real model.
type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) Dimensions() int                    { return 2 }
func (s *stubEmbedder) ModelName() string                  { return "stub" }
func (s *stubEmbedder) Available(ctx context.Context) bool { return s.err == nil }
func (s *stubEmbedder) Close() error                       { return nil }

func engineCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()

	records := strings.Join([]string{
		`{"id":"gov-safety","text":"조속기 과속 시험 전 인터록 상태를 확인한다","embedding":[1,0],"metadata":{"docId":"HYD-01","family":"수력","equipment":["조속기"],"taskType":["안전점검"],"pageStart":10,"pageEnd":11,"collection":"hydro","title":"조속기 과속 시험"}}`,
		`{"id":"gov-plain","text":"조속기 윤활유 교체 주기와 점검 항목","embedding":[0.9,0.1],"metadata":{"docId":"HYD-01","family":"수력","equipment":["조속기"],"pageStart":20,"pageEnd":21,"collection":"hydro","title":"조속기 윤활"}}`,
		`{"id":"tx-oil","text":"변압기 절연유 샘플링 및 분석 절차","embedding":[0,1],"metadata":{"docId":"TX-03","family":"송변전","equipment":["변압기"],"pageStart":5,"pageEnd":6,"collection":"substation","title":"변압기 절연유"}}`,
	}, "\n")

	c, err := corpus.Load(strings.NewReader(records))
	require.NoError(t, err)
	return c
}

func newTestEngine(t *testing.T, embedder *stubEmbedder) *Engine {
	t.Helper()

	e, err := NewEngine(engineCorpus(t), embedder, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngine_HybridSearch(t *testing.T) {
	// Given: an embedder pointing at the governor passages
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	// When
	results, err := e.Search(context.Background(), "조속기 점검", Options{Limit: 5})

	// Then: governor passages surface with both ranks populated
	require.NoError(t, err)
	require.NotEmpty(t, results)

	ids := resultIDs(results)
	assert.Contains(t, ids, "gov-safety")
	assert.Contains(t, ids, "gov-plain")

	top := results[0]
	assert.Positive(t, top.Score)
	assert.Positive(t, top.DenseRank)
}

func TestEngine_SafetyContentFirst(t *testing.T) {
	// Given: both governor passages match the query lexically
	e := newTestEngine(t, &stubEmbedder{vec: []float32{0.9, 0.1}})

	// When
	results, err := e.Search(context.Background(), "조속기", Options{Limit: 5})

	// Then: the boost lifts the hazard-tagged passage to the top
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "gov-safety", results[0].Passage.ID)
	assert.True(t, results[0].SafetyBoosted)
}

func TestEngine_DegradesToSparseOnEmbedderFailure(t *testing.T) {
	// Given: a dead embedder
	e := newTestEngine(t, &stubEmbedder{err: errors.New("service unreachable")})

	// When
	results, err := e.Search(context.Background(), "조속기 과속", Options{Limit: 5})

	// Then: sparse-only results, no error surfaced
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Zero(t, r.DenseRank)
		assert.Positive(t, r.SparseRank)
	}
}

func TestEngine_FacetFilterRestricts(t *testing.T) {
	// Given: a query that lexically hits both families
	e := newTestEngine(t, &stubEmbedder{vec: []float32{0, 1}})

	// When
	results, err := e.Search(context.Background(), "절연유 점검", Options{Limit: 5, Family: "송변전"})

	// Then: only substation passages survive
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "송변전", r.Passage.Meta.Family)
	}
}

func TestEngine_FacetFilterSubstring(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	// A partial equipment selection still matches via substring.
	results, err := e.Search(context.Background(), "조속기", Options{Limit: 5, Equipment: []string{"조속"}})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Adding a second name widens rather than narrows the selection.
	both, err := e.Search(context.Background(), "조속기", Options{Limit: 5, Equipment: []string{"보일러", "조속"}})
	require.NoError(t, err)
	assert.Equal(t, resultIDs(results), resultIDs(both))

	none, err := e.Search(context.Background(), "조속기", Options{Limit: 5, Equipment: []string{"보일러"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEngine_LimitApplied(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	results, err := e.Search(context.Background(), "점검 절차", Options{Limit: 1})

	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 1)
}

func TestEngine_EmptyQuery(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	results, err := e.Search(context.Background(), "   ", Options{Limit: 5})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_BilingualRecall(t *testing.T) {
	// Given: a Korean-only passage queried in English
	e := newTestEngine(t, &stubEmbedder{err: errors.New("sparse only")})

	// When: expansion substitutes the bilingual equivalent
	results, err := e.Search(context.Background(), "governor 점검", Options{Limit: 5})

	// Then
	require.NoError(t, err)
	assert.Contains(t, resultIDs(results), "gov-plain")
}

func TestEngine_Reload(t *testing.T) {
	// Given
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	replacement, err := corpus.Load(strings.NewReader(
		`{"id":"new-1","text":"발전기 고정자 권선 점검","embedding":[1,0],"metadata":{"docId":"GEN-01","family":"수력","equipment":["발전기"],"pageStart":1,"pageEnd":2,"collection":"hydro"}}`))
	require.NoError(t, err)

	// When
	require.NoError(t, e.Reload(replacement))

	// Then: new content searchable, old content gone
	results, err := e.Search(context.Background(), "발전기 점검", Options{Limit: 5})
	require.NoError(t, err)
	assert.Contains(t, resultIDs(results), "new-1")

	old, err := e.Search(context.Background(), "조속기", Options{Limit: 5})
	require.NoError(t, err)
	assert.NotContains(t, resultIDs(old), "gov-safety")
}

func TestEngine_ReloadKeepsPinnedSnapshotOpen(t *testing.T) {
	// Given: a search-in-flight has pinned the current snapshot
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})
	pinned := e.acquireSnapshot()

	// When: the corpus is reloaded underneath it
	replacement, err := corpus.Load(strings.NewReader(
		`{"id":"new-1","text":"발전기 고정자 권선 점검","embedding":[1,0],"metadata":{"docId":"GEN-01","family":"수력","equipment":["발전기"],"pageStart":1,"pageEnd":2,"collection":"hydro"}}`))
	require.NoError(t, err)
	require.NoError(t, e.Reload(replacement))

	// Then: the pinned index still serves queries
	hits, err := pinned.sparse.Search(context.Background(), "조속기", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// And: dropping the last pin closes the retired index
	pinned.release()
	_, err = pinned.sparse.Search(context.Background(), "조속기", 5)
	assert.Error(t, err)
}

func TestEngine_SearchDuringReload(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				results, err := e.Search(context.Background(), "조속기", Options{Limit: 5})
				assert.NoError(t, err)
				assert.NotEmpty(t, results)
			}
		}()
	}

	// Reloading the same content repeatedly must never starve a
	// concurrent search of its index.
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Reload(engineCorpus(t)))
	}
	close(done)
	wg.Wait()
}

func TestEngine_Stats(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	stats := e.Stats(context.Background())

	assert.Equal(t, 3, stats.Passages)
	assert.Equal(t, 3, stats.SparseDocs)
	assert.Equal(t, 3, stats.DenseVectors)
	assert.Equal(t, "stub", stats.EmbedModel)
	assert.True(t, stats.EmbedAvailable)
}

func TestEngine_EquipmentByFamily(t *testing.T) {
	e := newTestEngine(t, &stubEmbedder{vec: []float32{1, 0}})

	byFamily := e.EquipmentByFamily()

	assert.Equal(t, []string{"조속기"}, byFamily["수력"])
	assert.Equal(t, []string{"변압기"}, byFamily["송변전"])
}

func TestNewEngine_NilDependencies(t *testing.T) {
	_, err := NewEngine(nil, &stubEmbedder{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(engineCorpus(t), nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func resultIDs(results []*Result) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Passage.ID)
	}
	return ids
}
