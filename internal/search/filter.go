package search

import "github.com/plantops/safesearch/internal/corpus"

// FacetFilter restricts candidates to selected equipment names and/or a
// family. Matching is bidirectional case-insensitive substring: "governor"
// selects passages tagged "overspeed governor" and vice versa, which
// tolerates the inconsistent tag granularity across manual vendors. A
// passage passes the equipment facet when any selected name matches any
// of its tags.
type FacetFilter struct {
	Equipment []string
	Family    string
}

// Empty reports whether no facet is selected, in which case the filter
// passes everything through.
func (f FacetFilter) Empty() bool {
	return len(f.Equipment) == 0 && f.Family == ""
}

// Matches reports whether the passage satisfies every selected facet.
func (f FacetFilter) Matches(p *corpus.Passage) bool {
	if p == nil {
		return false
	}
	if len(f.Equipment) > 0 && !anySelectedMatches(p.Meta.Equipment, f.Equipment) {
		return false
	}
	if f.Family != "" && !facetMatch(p.Meta.Family, f.Family) {
		return false
	}
	return true
}

// Apply filters candidates in place, preserving order. Candidates whose
// id does not resolve to a passage are dropped.
func (f FacetFilter) Apply(candidates []*Candidate, lookup func(id string) *corpus.Passage) []*Candidate {
	if f.Empty() {
		return candidates
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if p := lookup(c.ID); p != nil && f.Matches(p) {
			kept = append(kept, c)
		}
	}
	return kept
}

func anySelectedMatches(tags, selected []string) bool {
	for _, sel := range selected {
		for _, tag := range tags {
			if facetMatch(tag, sel) {
				return true
			}
		}
	}
	return false
}

// facetMatch is a bidirectional case-insensitive substring test.
func facetMatch(tag, selected string) bool {
	if tag == "" || selected == "" {
		return false
	}
	return containsFold(tag, selected) || containsFold(selected, tag)
}
