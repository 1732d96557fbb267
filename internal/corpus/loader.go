package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/plantops/safesearch/internal/errors"
)

const (
	// maxRecordBytes bounds a single NDJSON record. Passages are a few
	// thousand characters of text plus an embedding vector.
	maxRecordBytes = 4 * 1024 * 1024
)

// Load reads newline-delimited passage records from r and returns the
// loaded corpus. Malformed records are skipped and counted, never fatal.
// A source that yields no valid passage at all is a fatal load failure:
// no search is possible without a corpus.
func Load(r io.Reader) (*Corpus, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)

	c := &Corpus{byID: make(map[string]*Passage)}

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var p Passage
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.skipped++
			slog.Debug("corpus_record_skipped",
				slog.Int("line", line),
				slog.String("reason", "invalid json"))
			continue
		}

		if err := normalizePassage(&p); err != nil {
			c.skipped++
			slog.Debug("corpus_record_skipped",
				slog.Int("line", line),
				slog.String("reason", err.Error()))
			continue
		}

		if _, dup := c.byID[p.ID]; dup {
			c.skipped++
			slog.Debug("corpus_record_skipped",
				slog.Int("line", line),
				slog.String("reason", "duplicate id"),
				slog.String("id", p.ID))
			continue
		}

		cp := p
		c.passages = append(c.passages, &cp)
		c.byID[cp.ID] = &cp
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.CorpusError("reading corpus source", err)
	}

	if len(c.passages) == 0 {
		return nil, errors.CorpusError(
			fmt.Sprintf("corpus source contained no valid passages (%d skipped)", c.skipped), nil)
	}

	slog.Info("corpus_loaded",
		slog.Int("passages", len(c.passages)),
		slog.Int("skipped", c.skipped))

	return c, nil
}

// LoadFile opens path and loads the corpus from it.
func LoadFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.CorpusError("opening corpus file "+path, err)
	}
	defer f.Close()

	return Load(f)
}

// normalizePassage validates required fields and coerces optional metadata
// to its declared shape. Returns an error for records that cannot be
// indexed; those are skipped by the loader.
func normalizePassage(p *Passage) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Text = strings.TrimSpace(p.Text)

	if p.ID == "" {
		return fmt.Errorf("missing id")
	}
	if p.Text == "" {
		return fmt.Errorf("missing text")
	}
	if p.Meta.Collection == "" {
		return fmt.Errorf("missing collection")
	}
	if p.Meta.PageStart < 0 || p.Meta.PageEnd < 0 {
		return fmt.Errorf("negative page bounds")
	}
	if p.Meta.PageStart > p.Meta.PageEnd {
		return fmt.Errorf("page bounds out of order")
	}

	p.Meta.Equipment = dedupeSet(p.Meta.Equipment)
	p.Meta.TaskType = dedupeSet(p.Meta.TaskType)
	p.Meta.Component = dedupeSet(p.Meta.Component)
	p.Meta.Title = strings.TrimSpace(p.Meta.Title)
	p.Meta.Family = strings.TrimSpace(p.Meta.Family)

	return nil
}

// dedupeSet trims, drops empties, and removes duplicates while preserving
// first-occurrence order. Never returns nil.
func dedupeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
