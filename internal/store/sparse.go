package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/plantops/safesearch/internal/corpus"
)

const (
	// ManualAnalyzerName is the analyzer used for all indexed fields.
	// The unicode tokenizer segments both Hangul and Latin runs, which is
	// what a bilingual technical corpus needs; lowercase folds English.
	ManualAnalyzerName = "manual_analyzer"

	fieldText      = "text"
	fieldTitle     = "title"
	fieldEquipment = "equipment"
	fieldComponent = "component"

	// maxFuzziness is the largest edit distance Bleve supports.
	maxFuzziness = 2
)

// SparseIndex wraps a Bleve in-memory index over four passage fields:
// body text, title, space-joined equipment tags, and space-joined
// component tags. Field boosts and fuzzy tolerance are applied at query
// time so they stay configurable without reindexing.
type SparseIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	config SparseConfig
	closed bool
}

// sparseDocument is the Bleve document shape for one passage.
type sparseDocument struct {
	Text      string `json:"text"`
	Title     string `json:"title"`
	Equipment string `json:"equipment"`
	Component string `json:"component"`
}

// NewSparseIndex creates an empty in-memory sparse index.
func NewSparseIndex(cfg SparseConfig) (*SparseIndex, error) {
	if cfg.Boosts == (FieldBoosts{}) {
		cfg.Boosts = DefaultFieldBoosts()
	}
	if cfg.FuzzyRatio <= 0 {
		cfg.FuzzyRatio = DefaultSparseConfig().FuzzyRatio
	}

	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SparseIndex{
		index:  idx,
		config: cfg,
	}, nil
}

// createIndexMapping builds the Bleve mapping with the bilingual analyzer.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(ManualAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = ManualAnalyzerName

	docMapping := bleve.NewDocumentMapping()
	for _, field := range []string{fieldText, fieldTitle, fieldEquipment, fieldComponent} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = ManualAnalyzerName
		docMapping.AddFieldMappingsAt(field, fm)
	}
	indexMapping.DefaultMapping = docMapping

	return indexMapping, nil
}

// Index adds passages to the sparse index in one batch.
func (s *SparseIndex) Index(passages []*corpus.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	batch := s.index.NewBatch()
	for _, p := range passages {
		doc := sparseDocument{
			Text:      p.Text,
			Title:     p.Meta.Title,
			Equipment: strings.Join(p.Meta.Equipment, " "),
			Component: strings.Join(p.Meta.Component, " "),
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("index passage %s: %w", p.ID, err)
		}
	}

	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}

	return nil
}

// Search runs a fuzzy, field-boosted match query and returns the top hits.
func (s *SparseIndex) Search(ctx context.Context, queryStr string, limit int) ([]SparseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" || limit <= 0 {
		return []SparseResult{}, nil
	}

	fuzziness := fuzzinessFor(queryStr, s.config.FuzzyRatio)

	fieldQueries := []query.Query{
		s.fieldQuery(queryStr, fieldTitle, s.config.Boosts.Title, fuzziness),
		s.fieldQuery(queryStr, fieldEquipment, s.config.Boosts.Equipment, fuzziness),
		s.fieldQuery(queryStr, fieldComponent, s.config.Boosts.Component, fuzziness),
		s.fieldQuery(queryStr, fieldText, s.config.Boosts.Text, fuzziness),
	}

	searchRequest := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fieldQueries...))
	searchRequest.Size = limit

	result, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}

	results := make([]SparseResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, SparseResult{
			ID:    hit.ID,
			Score: hit.Score,
		})
	}

	return results, nil
}

// fieldQuery builds one boosted, optionally fuzzy match query.
func (s *SparseIndex) fieldQuery(queryStr, field string, boost float64, fuzziness int) query.Query {
	q := bleve.NewMatchQuery(queryStr)
	q.SetField(field)
	q.SetBoost(boost)
	if fuzziness > 0 {
		q.SetFuzziness(fuzziness)
	}
	return q
}

// fuzzinessFor converts the edit-distance ratio into a whole edit distance
// for this query, based on its longest token. Short tokens get no fuzz:
// a 1-character edit on a 2-syllable Korean term changes its meaning.
func fuzzinessFor(queryStr string, ratio float64) int {
	longest := 0
	for _, tok := range strings.Fields(queryStr) {
		if n := len([]rune(tok)); n > longest {
			longest = n
		}
	}
	d := int(ratio * float64(longest))
	if d > maxFuzziness {
		return maxFuzziness
	}
	return d
}

// DocCount returns the number of indexed passages.
func (s *SparseIndex) DocCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	n, _ := s.index.DocCount()
	return int(n)
}

// Close releases the underlying Bleve index.
func (s *SparseIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
