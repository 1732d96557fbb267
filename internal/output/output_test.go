package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/search"
)

func outputPassage() *corpus.Passage {
	return &corpus.Passage{
		ID:   "hyd-001",
		Text: "조속기 과속 시험 전 인터록 상태를 확인한다",
		Meta: corpus.Metadata{
			DocID:       "HYD-GOV-01",
			SectionPath: "5.2 과속 시험",
			PageStart:   12,
			PageEnd:     13,
			Title:       "조속기 과속 시험",
		},
	}
}

func TestCitation(t *testing.T) {
	assert.Equal(t, "HYD-GOV-01 › 5.2 과속 시험 (p.12-13)", Citation(outputPassage()))
}

func TestCitation_SinglePage(t *testing.T) {
	p := outputPassage()
	p.Meta.PageEnd = p.Meta.PageStart

	assert.Equal(t, "HYD-GOV-01 › 5.2 과속 시험 (p.12)", Citation(p))
}

func TestCitation_Minimal(t *testing.T) {
	p := &corpus.Passage{Meta: corpus.Metadata{DocID: "TX-03"}}

	assert.Equal(t, "TX-03", Citation(p))
}

func TestResults_RendersRankedList(t *testing.T) {
	// Given: plain output into a buffer
	var buf bytes.Buffer
	w := New(&buf, true)

	// When
	w.Results([]*search.Result{
		{Passage: outputPassage(), Score: 0.2328, SafetyBoosted: true},
	})

	// Then
	out := buf.String()
	assert.Contains(t, out, "1. 조속기 과속 시험")
	assert.Contains(t, out, "[safety]")
	assert.Contains(t, out, "HYD-GOV-01")
	assert.Contains(t, out, "score 0.2328")
	assert.Contains(t, out, "인터록")
}

func TestResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Results(nil)

	assert.Contains(t, buf.String(), "no results")
}

func TestResults_SeparatorBetweenEntries(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	second := outputPassage()
	second.ID = "hyd-002"
	second.Meta.Title = "윤활유 점검"
	w.Results([]*search.Result{
		{Passage: outputPassage(), Score: 0.03},
		{Passage: second, Score: 0.02},
	})

	assert.Contains(t, buf.String(), strings.Repeat("─", 60))
}

func TestSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("안전점검 ", 100)

	s := snippet(long, 200)

	assert.LessOrEqual(t, len([]rune(s)), 201)
	assert.True(t, strings.HasSuffix(s, "…"))
}

func TestFacets(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	w.Facets(map[string][]string{
		"수력":  {"수차", "조속기"},
		"송변전": {"변압기"},
	}, []string{"송변전", "수력"})

	out := buf.String()
	assert.Contains(t, out, "수력")
	assert.Contains(t, out, "  조속기")
	assert.Contains(t, out, "  변압기")
}

func TestStats(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	w.Stats(search.Stats{
		Passages:       1200,
		SparseDocs:     1200,
		DenseVectors:   1180,
		SkippedVectors: 20,
		EmbedModel:     "bge-m3",
		EmbedAvailable: true,
	})

	out := buf.String()
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "bge-m3")
	assert.Contains(t, out, "true")
}

func TestErrorAndSuccess(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, true)

	w.Errorf("corpus not found at %s", "/data/corpus.jsonl")
	w.Success("corpus reloaded")

	out := buf.String()
	assert.Contains(t, out, "error: corpus not found at /data/corpus.jsonl")
	assert.Contains(t, out, "corpus reloaded")
}
