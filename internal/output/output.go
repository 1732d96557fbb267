// Package output renders CLI results: styled for terminals, plain text
// when piped.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/search"
)

// Color palette. Amber accent for the safety theme.
const (
	colorAmber    = "214" // Safety highlights
	colorCyan     = "45"  // Titles
	colorGray     = "245" // Metadata
	colorDarkGray = "238" // Separators
	colorRed      = "196" // Errors
	colorGreen    = "114" // Success
)

// Styles holds the render styles.
type Styles struct {
	Title    lipgloss.Style
	Safety   lipgloss.Style
	Meta     lipgloss.Style
	Score    lipgloss.Style
	Dim      lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Safety:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAmber)),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(colorDarkGray)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
	}
}

// NoColorStyles returns unstyled components for piped output.
func NoColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Safety:  lipgloss.NewStyle(),
		Meta:    lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
	}
}

// Writer renders formatted output.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer. Color is enabled when out is a terminal and
// noColor is false.
func New(out io.Writer, noColor bool) *Writer {
	styled := !noColor && isTerminal(out)
	styles := NoColorStyles()
	if styled {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Results renders a ranked result list.
func (w *Writer) Results(results []*search.Result) {
	if len(results) == 0 {
		w.println(w.styles.Dim.Render("no results"))
		return
	}
	for i, r := range results {
		w.result(i+1, r)
		if i < len(results)-1 {
			w.println(w.styles.Dim.Render(strings.Repeat("─", 60)))
		}
	}
}

func (w *Writer) result(rank int, r *search.Result) {
	title := r.Passage.Meta.Title
	if title == "" {
		title = r.Passage.ID
	}

	header := fmt.Sprintf("%d. %s", rank, w.styles.Title.Render(title))
	if r.SafetyBoosted {
		header += " " + w.styles.Safety.Render("[safety]")
	}
	w.println(header)

	w.println("   " + w.styles.Meta.Render(Citation(r.Passage)))
	w.printf("   %s\n", w.styles.Score.Render(fmt.Sprintf("score %.4f", r.Score)))
	w.println("   " + snippet(r.Passage.Text, 200))
}

// Citation formats a passage source reference: document, section, pages.
func Citation(p *corpus.Passage) string {
	var b strings.Builder
	b.WriteString(p.Meta.DocID)
	if p.Meta.SectionPath != "" {
		b.WriteString(" › ")
		b.WriteString(p.Meta.SectionPath)
	}
	if p.Meta.PageStart > 0 {
		if p.Meta.PageEnd > p.Meta.PageStart {
			fmt.Fprintf(&b, " (p.%d-%d)", p.Meta.PageStart, p.Meta.PageEnd)
		} else {
			fmt.Fprintf(&b, " (p.%d)", p.Meta.PageStart)
		}
	}
	return b.String()
}

// snippet truncates text to max runes on a rune boundary.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// Facets renders the family -> equipment facet tree.
func (w *Writer) Facets(byFamily map[string][]string, families []string) {
	if len(families) == 0 {
		w.println(w.styles.Dim.Render("no facets"))
		return
	}
	for _, family := range families {
		w.println(w.styles.Title.Render(family))
		for _, eq := range byFamily[family] {
			w.println("  " + eq)
		}
	}
}

// Stats renders engine statistics.
func (w *Writer) Stats(s search.Stats) {
	w.kv("passages", fmt.Sprintf("%d", s.Passages))
	w.kv("skipped records", fmt.Sprintf("%d", s.SkippedRecords))
	w.kv("sparse docs", fmt.Sprintf("%d", s.SparseDocs))
	w.kv("dense vectors", fmt.Sprintf("%d", s.DenseVectors))
	w.kv("skipped vectors", fmt.Sprintf("%d", s.SkippedVectors))
	w.kv("embed model", s.EmbedModel)
	w.kv("embed available", fmt.Sprintf("%t", s.EmbedAvailable))
}

func (w *Writer) kv(key, value string) {
	w.printf("%s %s\n", w.styles.Meta.Render(fmt.Sprintf("%-18s", key)), value)
}

// Error renders an error message.
func (w *Writer) Error(msg string) {
	w.println(w.styles.Error.Render("error: ") + msg)
}

// Errorf renders a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Success renders a success message.
func (w *Writer) Success(msg string) {
	w.println(w.styles.Success.Render(msg))
}

func (w *Writer) println(s string) {
	_, _ = fmt.Fprintln(w.out, s)
}

func (w *Writer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}
