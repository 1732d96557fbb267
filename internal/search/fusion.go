// Package search implements the hybrid manual-search pipeline: bilingual
// query expansion, parallel sparse/dense retrieval, Reciprocal Rank Fusion
// with a safety-content boost, facet filtering, and result assembly.
package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (Azure AI Search, OpenSearch).
const DefaultRRFConstant = 60

// Candidate is a passage id with its fusion state. Candidates keep their
// first-seen order until Rank sorts them, which makes the final tie-break
// stable and deterministic.
type Candidate struct {
	ID string

	// Fused is the summed RRF contribution from both lists.
	Fused float64

	// Boost is the additive safety boost (0 when not boosted).
	Boost float64

	// Final is Fused + Boost, the only score exposed externally.
	Final float64

	// SparseRank and DenseRank are 1-indexed positions; 0 means absent
	// from that list.
	SparseRank int
	DenseRank  int
}

// Fuser merges sparse and dense rank lists with Reciprocal Rank Fusion.
//
// A passage at 0-based rank r contributes 1/(k+r+1) per list it appears
// in; absence from a list contributes nothing. Summing both contributions
// is what rewards agreement between lexical and semantic retrieval.
// Rank-based fusion is used instead of combining raw scores because BM25
// and cosine magnitudes live on incomparable scales.
type Fuser struct {
	K int
}

// NewFuser creates a fuser with the given RRF constant; k <= 0 uses the
// default of 60.
func NewFuser(k int) *Fuser {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fuser{K: k}
}

// Fuse merges the two ranked id lists into fusion candidates, ordered by
// first occurrence (sparse list first, then dense-only additions).
func (f *Fuser) Fuse(sparse, dense []string) []*Candidate {
	byID := make(map[string]*Candidate, len(sparse)+len(dense))
	ordered := make([]*Candidate, 0, len(sparse)+len(dense))

	get := func(id string) *Candidate {
		if c, ok := byID[id]; ok {
			return c
		}
		c := &Candidate{ID: id}
		byID[id] = c
		ordered = append(ordered, c)
		return c
	}

	for r, id := range sparse {
		c := get(id)
		if c.SparseRank != 0 {
			continue // duplicate within the list adds nothing
		}
		c.SparseRank = r + 1
		c.Fused += 1.0 / float64(f.K+r+1)
	}

	for r, id := range dense {
		c := get(id)
		if c.DenseRank != 0 {
			continue
		}
		c.DenseRank = r + 1
		c.Fused += 1.0 / float64(f.K+r+1)
	}

	return ordered
}

// Rank computes each candidate's final score and sorts descending. The
// sort is stable, so ties keep the original fused-list order.
func Rank(candidates []*Candidate) {
	for _, c := range candidates {
		c.Final = c.Fused + c.Boost
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Final > candidates[j].Final
	})
}
