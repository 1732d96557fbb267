package search

import (
	"regexp"
	"strings"

	"github.com/plantops/safesearch/internal/corpus"
)

// DefaultSafetyBoost is the additive bump applied to safety-relevant
// passages after fusion. Additive rather than multiplicative so that
// low-ranked safety content still surfaces without drowning high-signal
// non-safety results.
const DefaultSafetyBoost = 0.2

// SafetyBooster marks passages that carry safety-relevant content and
// adds a flat boost to their fused score. It only ever raises scores; no
// candidate is removed or demoted.
type SafetyBooster struct {
	boost    float64
	safetyRe *regexp.Regexp
	hazardRe *regexp.Regexp
}

// NewSafetyBooster compiles the lexicon's safety patterns. boost <= 0
// uses the default.
func NewSafetyBooster(lex *Lexicon, boost float64) (*SafetyBooster, error) {
	if lex == nil {
		lex = DefaultLexicon()
	}
	if boost <= 0 {
		boost = DefaultSafetyBoost
	}
	safetyRe, err := regexp.Compile(lex.SafetyPattern)
	if err != nil {
		return nil, err
	}
	hazardRe, err := regexp.Compile(lex.HazardTagPattern)
	if err != nil {
		return nil, err
	}
	return &SafetyBooster{boost: boost, safetyRe: safetyRe, hazardRe: hazardRe}, nil
}

// Boost returns the additive boost for the passage: the configured value
// when the passage is safety-relevant, else 0.
func (b *SafetyBooster) Boost(p *corpus.Passage) float64 {
	if b.Relevant(p) {
		return b.boost
	}
	return 0
}

// Relevant reports whether the passage carries safety content: a task
// type tagged as hazardous, or safety terms in title or body text.
func (b *SafetyBooster) Relevant(p *corpus.Passage) bool {
	if p == nil {
		return false
	}
	for _, tag := range p.Meta.TaskType {
		if b.hazardRe.MatchString(tag) {
			return true
		}
	}
	if p.Meta.Title != "" && b.safetyRe.MatchString(p.Meta.Title) {
		return true
	}
	return b.safetyRe.MatchString(p.Text)
}

// Apply sets the boost on every candidate that resolves to a
// safety-relevant passage. Unresolvable ids are left untouched.
func (b *SafetyBooster) Apply(candidates []*Candidate, lookup func(id string) *corpus.Passage) {
	for _, c := range candidates {
		p := lookup(c.ID)
		if p == nil {
			continue
		}
		c.Boost = b.Boost(p)
	}
}

// containsFold reports a case-insensitive substring match. Shared by the
// facet filter; lives here so both boost and filter fold the same way.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
