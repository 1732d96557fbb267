package search

import (
	"time"

	"github.com/plantops/safesearch/internal/corpus"
)

// Defaults for result assembly.
const (
	DefaultLimit = 5
	MaxLimit     = 50
)

// Options narrows a single search call.
type Options struct {
	// Limit caps returned results. <= 0 uses DefaultLimit; values above
	// MaxLimit are clamped.
	Limit int

	// Equipment and Family restrict results to matching facet tags
	// (bidirectional case-insensitive substring match). A passage passes
	// when any requested equipment name matches any of its tags. Empty
	// means no restriction.
	Equipment []string
	Family    string
}

// Result is one ranked passage with its retrieval provenance.
type Result struct {
	Passage *corpus.Passage `json:"passage"`

	// Score is the fused RRF score plus any safety boost.
	Score float64 `json:"score"`

	// SparseRank and DenseRank are 1-indexed positions in the underlying
	// rank lists; 0 means the passage was absent from that list.
	SparseRank int `json:"sparseRank"`
	DenseRank  int `json:"denseRank"`

	// SafetyBoosted marks results whose score includes the safety bump.
	SafetyBoosted bool `json:"safetyBoosted"`
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// QueryContext carries per-session chat state into a search. The engine
// and orchestrator treat it as read-only.
type QueryContext struct {
	SessionID         string    `json:"sessionId"`
	Messages          []Message `json:"messages"`
	SelectedEquipment []string  `json:"selectedEquipment"`
	SelectedFamily    string    `json:"selectedFamily"`
}

// Config tunes the search pipeline. Zero values mean "use the default".
type Config struct {
	// RRFConstant is the k in the 1/(k+rank) fusion formula.
	RRFConstant int `yaml:"rrf_constant"`

	// SafetyBoost is added to the fused score of safety-relevant passages.
	SafetyBoost float64 `yaml:"safety_boost"`

	// DefaultLimit and MaxLimit bound the number of returned results.
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`

	// MaxVariants caps query expansion output.
	MaxVariants int `yaml:"max_variants"`

	// EmbedTimeout bounds the dense-path embedding call per query.
	EmbedTimeout time.Duration `yaml:"embed_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RRFConstant:  DefaultRRFConstant,
		SafetyBoost:  DefaultSafetyBoost,
		DefaultLimit: DefaultLimit,
		MaxLimit:     MaxLimit,
		MaxVariants:  DefaultMaxVariants,
		EmbedTimeout: 10 * time.Second,
	}
}

// normalized fills zero fields with defaults and clamps inconsistencies.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.RRFConstant <= 0 {
		c.RRFConstant = d.RRFConstant
	}
	if c.SafetyBoost <= 0 {
		c.SafetyBoost = d.SafetyBoost
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.MaxVariants <= 0 {
		c.MaxVariants = d.MaxVariants
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = d.EmbedTimeout
	}
	return c
}

// clampLimit resolves a caller-supplied limit against the config bounds.
func (c Config) clampLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}
