package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/embedder"
	"github.com/dshills/jotdown/internal/indexer"
	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/internal/thoughts"
)

var embedcheckSamples = []string{
	"practice cello scales before lessons",
	"finish the quarterly report for work",
	"buy milk and eggs",
}

func embedcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embedcheck",
		Short: "Verify the embedding provider end to end against a scratch database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			emb, err := embedder.New(cfg.EmbedderConfig(logger))
			if err != nil {
				return fmt.Errorf("embedding provider: %w", err)
			}
			defer emb.Close()

			return runEmbedcheck(cmd.Context(), cmd.OutOrStdout(), emb)
		},
	}
}

// runEmbedcheck stores sample thoughts in memory, forces a reindex and
// confirms every stored vector has the provider's dimension
func runEmbedcheck(ctx context.Context, out io.Writer, emb embedder.Embedder) error {
	fmt.Fprintf(out, "Provider: %s/%s (%d dims)\n", emb.Provider(), emb.Model(), emb.Dimension())

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	svc := thoughts.New(store, emb, nil, thoughts.Options{})
	for _, sample := range embedcheckSamples {
		thought, err := svc.CreateThought(ctx, sample)
		if err != nil {
			return fmt.Errorf("failed to store %q: %w", sample, err)
		}
		fmt.Fprintf(out, "  stored %q (%d dims)\n", thought.Content, thought.Dimension())
	}

	stats, err := svc.Reindex(ctx, &indexer.Config{Force: true})
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	fmt.Fprintf(out, "Re-embedded %d of %d, %d failed in %v\n", stats.Reembedded, stats.Scanned, stats.Failed, stats.Duration)
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(out, "  - %s\n", msg)
	}

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}
	if stats.Failed > 0 || status.ByDimension[emb.Dimension()] != len(embedcheckSamples) {
		fmt.Fprintln(out, "FAILURE: stored vectors do not match the provider dimension")
		return fmt.Errorf("embedcheck failed: %v", status.ByDimension)
	}

	fmt.Fprintln(out, "SUCCESS: embeddings were generated and stored")
	return nil
}
