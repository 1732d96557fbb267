// Package corpus loads pre-chunked manual passages into memory and exposes
// the read-only corpus view the search indices are built from.
package corpus

import "sort"

// Metadata carries the structured attributes of a passage. All coercion
// (nil sets, duplicate tags, whitespace) happens once at load time, so
// downstream consumers never need defensive checks.
type Metadata struct {
	DocID       string   `json:"docId"`
	Family      string   `json:"family"`
	Equipment   []string `json:"equipment"`
	PageStart   int      `json:"pageStart"`
	PageEnd     int      `json:"pageEnd"`
	SectionPath string   `json:"sectionPath,omitempty"`
	Title       string   `json:"title,omitempty"`
	Collection  string   `json:"collection"`
	TaskType    []string `json:"taskType"`
	Component   []string `json:"component"`
}

// Passage is one immutable unit of indexed manual content.
type Passage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Meta      Metadata  `json:"metadata"`
}

// Corpus is the in-memory passage collection. It is immutable after Load
// completes; concurrent readers need no locking.
type Corpus struct {
	passages []*Passage
	byID     map[string]*Passage
	skipped  int
}

// Passages returns all loaded passages in input order.
func (c *Corpus) Passages() []*Passage {
	return c.passages
}

// Get returns the passage with the given ID, or nil if absent.
func (c *Corpus) Get(id string) *Passage {
	return c.byID[id]
}

// Len returns the number of loaded passages.
func (c *Corpus) Len() int {
	return len(c.passages)
}

// Skipped returns the number of malformed records dropped during load.
func (c *Corpus) Skipped() int {
	return c.skipped
}

// EquipmentByFamily scans passage metadata and returns the equipment names
// known for each family, sorted and deduplicated. Used by callers to
// populate facet filter choices.
func (c *Corpus) EquipmentByFamily() map[string][]string {
	seen := make(map[string]map[string]struct{})
	for _, p := range c.passages {
		if p.Meta.Family == "" {
			continue
		}
		set, ok := seen[p.Meta.Family]
		if !ok {
			set = make(map[string]struct{})
			seen[p.Meta.Family] = set
		}
		for _, eq := range p.Meta.Equipment {
			set[eq] = struct{}{}
		}
	}

	result := make(map[string][]string, len(seen))
	for family, set := range seen {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		result[family] = names
	}
	return result
}
