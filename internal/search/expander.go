package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxVariants bounds how many expanded query variants are tried.
// The original query always survives the cap. The default leaves room
// for the full built-in safety-alias list plus dictionary substitutions.
const DefaultMaxVariants = 16

// Expander produces semantically equivalent query variants: the original,
// bilingual term substitutions, and safety-domain aliases. Recall over a
// corpus that mixes Korean and English beats precision here; the fusion
// stage re-ranks whatever the variants drag in.
type Expander struct {
	terms       []termEntry
	aliases     []string
	safetyRe    *regexp.Regexp
	maxVariants int
}

// termEntry is one dictionary mapping with its fold precomputed.
type termEntry struct {
	folded      string
	equivalents []string
}

// ExpanderOption configures the expander.
type ExpanderOption func(*Expander)

// WithMaxVariants caps the number of variants Expand returns.
func WithMaxVariants(n int) ExpanderOption {
	return func(e *Expander) {
		if n > 0 {
			e.maxVariants = n
		}
	}
}

// NewExpander creates an expander over the given lexicon.
func NewExpander(lex *Lexicon, opts ...ExpanderOption) (*Expander, error) {
	if lex == nil {
		lex = DefaultLexicon()
	}

	safetyRe, err := regexp.Compile(lex.SafetyPattern)
	if err != nil {
		return nil, err
	}

	// Map iteration order is random; sort source terms so expansion is
	// deterministic and reproducible in tests.
	terms := make([]termEntry, 0, len(lex.Terms))
	sources := make([]string, 0, len(lex.Terms))
	for src := range lex.Terms {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		equivalents := lex.Terms[src]
		if len(equivalents) == 0 {
			continue
		}
		terms = append(terms, termEntry{
			folded:      strings.ToLower(src),
			equivalents: equivalents,
		})
	}

	e := &Expander{
		terms:       terms,
		aliases:     lex.SafetyAliases,
		safetyRe:    safetyRe,
		maxVariants: DefaultMaxVariants,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Expand returns the query variants, original first, deduplicated.
// An empty query expands to the singleton {""}; validating non-emptiness
// is the caller's job.
func (e *Expander) Expand(query string) []string {
	variants := []string{query}

	// Lowercasing can change rune widths (U+212A KELVIN SIGN folds to a
	// one-byte "k"), so matches found in the folded text are mapped back
	// to original offsets before slicing the query.
	folded := foldQuery(query)
	for _, t := range e.terms {
		idx := strings.Index(folded.text, t.folded)
		if idx < 0 {
			continue
		}
		start, end, ok := folded.span(idx, idx+len(t.folded))
		if !ok {
			continue
		}
		variant := query[:start] + t.equivalents[0] + query[end:]
		variants = append(variants, variant)
	}

	if query != "" && e.safetyRe.MatchString(query) {
		variants = append(variants, e.aliases...)
	}

	return dedupeVariants(variants, e.maxVariants)
}

// foldedQuery is a lowercased copy of a query together with, per folded
// byte, the offset of the original rune it came from. The extra entry at
// the end holds len(original) so spans ending at the last byte resolve.
type foldedQuery struct {
	text string
	orig []int
}

func foldQuery(q string) foldedQuery {
	var b strings.Builder
	b.Grow(len(q))
	orig := make([]int, 0, len(q)+1)
	for i, r := range q {
		n, _ := b.WriteRune(unicode.ToLower(r))
		for ; n > 0; n-- {
			orig = append(orig, i)
		}
	}
	orig = append(orig, len(q))
	return foldedQuery{text: b.String(), orig: orig}
}

// span maps the [from, to) byte range of the folded text onto the
// original query. It reports false when the range does not align with
// rune boundaries in the original, which can happen when a dictionary
// term's bytes land inside a multi-byte folded rune.
func (f foldedQuery) span(from, to int) (start, end int, ok bool) {
	start, end = f.orig[from], f.orig[to]
	if from > 0 && f.orig[from-1] == start {
		return 0, 0, false
	}
	if to > from && f.orig[to-1] == end {
		return 0, 0, false
	}
	return start, end, true
}

// dedupeVariants removes duplicates preserving first-occurrence order and
// caps the result length.
func dedupeVariants(variants []string, max int) []string {
	out := make([]string, 0, len(variants))
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
