// Package chat turns search results into grounded chat answers. The
// orchestrator is deliberately thin: it retrieves passages for the latest
// user message, hands them to a response generator, and attaches source
// citations. It never answers from outside the corpus.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/output"
	"github.com/plantops/safesearch/internal/search"
)

// DefaultRetrievalLimit is how many passages back one answer.
const DefaultRetrievalLimit = 5

// Generator produces an answer from the user's question and the
// retrieved passages. Implementations wrap an LLM; Static is the
// no-model fallback that quotes the passages directly.
type Generator interface {
	// Generate produces an answer grounded in the given passages. The
	// passages are the only permitted knowledge source.
	Generate(ctx context.Context, question string, passages []*corpus.Passage) (string, error)
}

// Answer is a chat reply with its supporting sources.
type Answer struct {
	Text      string           `json:"text"`
	Sources   []*search.Result `json:"sources"`
	Degraded  bool             `json:"degraded"`
	SessionID string           `json:"sessionId"`
}

// Searcher is the retrieval dependency, satisfied by *search.Engine.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) ([]*search.Result, error)
}

// Orchestrator wires retrieval and generation for one chat turn.
type Orchestrator struct {
	engine    Searcher
	generator Generator
	limit     int
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithRetrievalLimit sets how many passages are retrieved per turn.
func WithRetrievalLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.limit = n
		}
	}
}

// New creates an orchestrator. A nil generator falls back to the static
// extractive generator.
func New(engine Searcher, generator Generator, opts ...Option) (*Orchestrator, error) {
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if generator == nil {
		generator = &StaticGenerator{}
	}
	o := &Orchestrator{
		engine:    engine,
		generator: generator,
		limit:     DefaultRetrievalLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Respond answers the latest user message in qc. The context is treated
// as read-only: facet selections are copied into search options, never
// written back.
func (o *Orchestrator) Respond(ctx context.Context, qc search.QueryContext) (*Answer, error) {
	start := time.Now()

	question := latestUserMessage(qc.Messages)
	if strings.TrimSpace(question) == "" {
		return &Answer{
			Text:      "질문을 입력해 주세요. (Please enter a question.)",
			SessionID: qc.SessionID,
		}, nil
	}

	results, err := o.engine.Search(ctx, question, search.Options{
		Limit:     o.limit,
		Equipment: qc.SelectedEquipment,
		Family:    qc.SelectedFamily,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}

	if len(results) == 0 {
		return &Answer{
			Text:      noResultsMessage(qc),
			SessionID: qc.SessionID,
		}, nil
	}

	passages := make([]*corpus.Passage, len(results))
	for i, r := range results {
		passages[i] = r.Passage
	}

	text, err := o.generator.Generate(ctx, question, passages)
	degraded := false
	if err != nil {
		// Generation failure still yields a useful answer: fall back to
		// quoting the retrieved passages.
		slog.Warn("generation_failed",
			slog.String("error", err.Error()),
			slog.String("fallback", "extractive answer"))
		text, _ = (&StaticGenerator{}).Generate(ctx, question, passages)
		degraded = true
	}

	slog.Debug("chat_turn_complete",
		slog.String("session", qc.SessionID),
		slog.Int("sources", len(results)),
		slog.Bool("degraded", degraded),
		slog.Duration("duration", time.Since(start)))

	return &Answer{
		Text:      text,
		Sources:   results,
		Degraded:  degraded,
		SessionID: qc.SessionID,
	}, nil
}

// latestUserMessage returns the content of the most recent user turn.
func latestUserMessage(messages []search.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// noResultsMessage tells the user nothing matched, naming the active
// facet restriction when one is set.
func noResultsMessage(qc search.QueryContext) string {
	var b strings.Builder
	b.WriteString("관련 문서를 찾지 못했습니다. (No relevant manual passages found.)")
	if len(qc.SelectedEquipment) > 0 || qc.SelectedFamily != "" {
		b.WriteString(" 선택된 설비 필터를 해제하고 다시 시도해 보세요.")
		b.WriteString(" (Try clearing the equipment filter and searching again.)")
	}
	return b.String()
}

// StaticGenerator is the no-LLM fallback: it quotes the top passages
// with their citations so the answer stays verifiable.
type StaticGenerator struct{}

// Generate builds an extractive answer from the passages.
func (g *StaticGenerator) Generate(_ context.Context, _ string, passages []*corpus.Passage) (string, error) {
	var b strings.Builder
	b.WriteString("관련 매뉴얼 내용입니다. (Relevant manual excerpts:)\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, output.Citation(p))
		b.WriteString(indent(trimExcerpt(p.Text, 400), "   "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func trimExcerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
