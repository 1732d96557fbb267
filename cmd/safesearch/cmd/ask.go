package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plantops/safesearch/internal/chat"
	"github.com/plantops/safesearch/internal/corpus"
	"github.com/plantops/safesearch/internal/output"
	"github.com/plantops/safesearch/internal/search"
	"github.com/plantops/safesearch/internal/watcher"
)

// askOptions holds CLI flags for the chat commands.
type askOptions struct {
	equipment   []string
	family      string
	limit       int
	interactive bool
	watch       bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the manual corpus",
		Long: `Ask a question and get an answer grounded in retrieved manual
passages, with source citations. Without an LLM backend configured the
answer quotes the passages directly.

Examples:
  safesearch ask "조속기 과속 트립은 언제 동작하나요?"
  safesearch ask "how do I reset the lube oil pressure alarm" -e "lube oil system"
  safesearch ask -i                 # interactive session
  safesearch ask -i --watch        # reload index when corpus changes`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.interactive {
				return runInteractive(cmd, opts)
			}
			if len(args) == 0 {
				return fmt.Errorf("provide a question or use --interactive")
			}
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.equipment, "equipment", "e", nil, "Restrict to equipment tags (repeatable)")
	cmd.Flags().StringVar(&opts.family, "family", "", "Restrict to an equipment family")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Passages to retrieve per answer")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Interactive chat session")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the index when the corpus file changes (interactive only)")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts askOptions) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	orch, err := newOrchestrator(rt, opts)
	if err != nil {
		return err
	}

	answer, err := orch.Respond(cmd.Context(), search.QueryContext{
		SessionID:         "cli",
		Messages:          []search.Message{{Role: "user", Content: question}},
		SelectedEquipment: opts.equipment,
		SelectedFamily:    opts.family,
	})
	if err != nil {
		return err
	}
	printAnswer(cmd, answer)
	return nil
}

// runInteractive reads questions from stdin until EOF, carrying the
// conversation history across turns.
func runInteractive(cmd *cobra.Command, opts askOptions) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	orch, err := newOrchestrator(rt, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.watch {
		w, err := watcher.New(rt.cfg.Corpus.Path, rt.cfg.Corpus.WatchDebounce, func() error {
			c, err := corpus.LoadFile(rt.cfg.Corpus.Path)
			if err != nil {
				return err
			}
			return rt.engine.Reload(c)
		})
		if err != nil {
			return fmt.Errorf("watch corpus: %w", err)
		}
		defer w.Close()
		go w.Run(ctx)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "safesearch interactive session. Ctrl-D to exit.")

	qc := search.QueryContext{
		SessionID:         "interactive",
		SelectedEquipment: opts.equipment,
		SelectedFamily:    opts.family,
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		qc.Messages = append(qc.Messages, search.Message{Role: "user", Content: question})
		answer, err := orch.Respond(ctx, qc)
		if err != nil {
			output.New(out, noColor).Errorf("%v", err)
			continue
		}
		printAnswer(cmd, answer)
		qc.Messages = append(qc.Messages, search.Message{Role: "assistant", Content: answer.Text})
	}
	return scanner.Err()
}

func newOrchestrator(rt *runtime, opts askOptions) (*chat.Orchestrator, error) {
	var orchOpts []chat.Option
	if opts.limit > 0 {
		orchOpts = append(orchOpts, chat.WithRetrievalLimit(opts.limit))
	}
	return chat.New(rt.engine, nil, orchOpts...)
}

func printAnswer(cmd *cobra.Command, answer *chat.Answer) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, r := range answer.Sources {
			marker := ""
			if r.SafetyBoosted {
				marker = " [safety]"
			}
			fmt.Fprintf(out, "  [%d] %s%s\n", i+1, output.Citation(r.Passage), marker)
		}
	}
}
