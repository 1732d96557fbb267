package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plantops/safesearch/internal/output"
	"github.com/plantops/safesearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	equipment []string
	family    string
	format    string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the manual corpus",
		Long: `Search the manual corpus using hybrid retrieval.

Combines BM25 keyword search over bilingual query variants with
embedding similarity, fused via Reciprocal Rank Fusion. Passages with
safety content rank higher.

Examples:
  safesearch search "조속기 점검 절차"
  safesearch search "governor overspeed trip" --equipment governor
  safesearch search "윤활유 압력" --family turbine --limit 3
  safesearch search "alarm setpoint" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.equipment, "equipment", "e", nil, "Restrict to equipment tags (substring match, repeatable)")
	cmd.Flags().StringVar(&opts.family, "family", "", "Restrict to an equipment family (substring match)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	results, err := rt.engine.Search(cmd.Context(), query, search.Options{
		Limit:     opts.limit,
		Equipment: opts.equipment,
		Family:    opts.family,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout(), noColor)
	out.Results(results)
	return nil
}
