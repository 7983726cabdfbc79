package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/retrieval"
	"github.com/dshills/jotdown/internal/session"
	"github.com/dshills/jotdown/internal/thoughts"
)

func searchCmd() *cobra.Command {
	var (
		mode     string
		limit    int
		category string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search thoughts by pattern, by meaning, or ask a question",
		Long: `Search thoughts.

Modes:
  literal   case-insensitive regular expression match (default)
  semantic  ranked by similarity of meaning
  answer    a generated answer with the thoughts it drew from`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := retrieval.ParseMode(mode)
			if err != nil {
				return err
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			response, err := a.service.SearchWithOptions(cmd.Context(), thoughts.SearchOptions{
				Query:    strings.Join(args, " "),
				Mode:     m,
				Limit:    limit,
				Category: category,
			})
			if err != nil {
				return err
			}

			printResponse(cmd.OutOrStdout(), response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(retrieval.ModeLiteral), "literal, semantic or answer")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only search this category")
	return cmd
}

func keywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "Show the keyword cloud across all thoughts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			keywords, err := a.service.Keywords(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keywords) == 0 {
				fmt.Fprintln(out, "No keywords yet.")
				return nil
			}
			fmt.Fprintln(out, strings.Join(keywords, " "))
			return nil
		},
	}
}

func liveCmd() *cobra.Command {
	var (
		mode     string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Search as you type, one query per input line",
		Long: `Read queries from stdin, one per line. Each line replaces the current
query; a search runs once input has been quiet for the debounce window.

Commands:
  :mode <literal|semantic|answer>  switch mode and re-run the current query
  :clear                           clear the query and results
  :quit                            exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := retrieval.ParseMode(mode)
			if err != nil {
				return err
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if debounce <= 0 {
				debounce = a.cfg.Debounce
			}

			return runLive(cmd.InOrStdin(), cmd.OutOrStdout(), a.service, session.Options{
				Debounce: debounce,
				Mode:     m,
				Logger:   a.logger,
			})
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(retrieval.ModeLiteral), "literal, semantic or answer")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet window before searching (default $JOTDOWN_SEARCH_DEBOUNCE_MS)")
	return cmd
}

// runLive drives a search session from line input until EOF or :quit.
// Pending searches are allowed to finish before returning.
func runLive(in io.Reader, out io.Writer, searcher session.Searcher, opts session.Options) error {
	var outMu sync.Mutex
	settled := make(chan struct{}, 1)

	opts.Observer = func(snap session.Snapshot) {
		switch snap.State {
		case session.Completed:
			outMu.Lock()
			printResponse(out, snap.Response)
			outMu.Unlock()
		case session.Failed:
			outMu.Lock()
			fmt.Fprintf(out, "search failed: %v\n", snap.Err)
			outMu.Unlock()
		default:
			return
		}
		select {
		case settled <- struct{}{}:
		default:
		}
	}

	sess := session.New(searcher, opts)
	defer sess.Close()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.TrimSpace(line) == ":quit":
			return nil
		case strings.TrimSpace(line) == ":clear":
			sess.Clear()
		case strings.HasPrefix(strings.TrimSpace(line), ":mode"):
			m, err := retrieval.ParseMode(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ":mode")))
			if err != nil {
				outMu.Lock()
				fmt.Fprintln(out, err)
				outMu.Unlock()
				continue
			}
			sess.SetMode(m)
		default:
			sess.SetQuery(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// Input ended; let a scheduled search deliver its result
	for {
		state := sess.Snapshot().State
		if state != session.PendingDebounce && state != session.InFlight {
			return nil
		}
		<-settled
	}
}

func printResponse(out io.Writer, response *retrieval.Response) {
	if response == nil || response.Query == "" {
		return
	}

	if response.Mode == retrieval.ModeAnswer {
		fmt.Fprintf(out, "%s\n", response.Answer)
		if len(response.Sources) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for _, source := range response.Sources {
				fmt.Fprintf(out, "  %d. %s (%.2f)\n", source.Rank, truncate(source.Thought.Content, 70), source.Score)
			}
		}
		if len(response.Keywords) > 0 {
			fmt.Fprintf(out, "\nKeywords: %s\n", strings.Join(response.Keywords, " "))
		}
		return
	}

	if response.IsEmpty() {
		fmt.Fprintf(out, "No matches for %q\n", response.Query)
		return
	}
	for _, result := range response.Results {
		if response.Mode == retrieval.ModeSemantic {
			fmt.Fprintf(out, "%2d. [%.2f] %s  %s\n", result.Rank, result.Score, shortID(result.Thought.ID), truncate(result.Thought.Content, 70))
			continue
		}
		fmt.Fprintf(out, "%2d. %s  %s\n", result.Rank, shortID(result.Thought.ID), truncate(result.Thought.Content, 70))
	}
	if response.Skipped > 0 {
		fmt.Fprintf(out, "(%d thought(s) skipped; run `jotdown reindex`)\n", response.Skipped)
	}
}
