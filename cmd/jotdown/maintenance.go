package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/indexer"
	"github.com/dshills/jotdown/internal/mcp"
)

func reindexCmd() *cobra.Command {
	var (
		force        bool
		recategorize bool
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed thoughts after changing the embedding provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.service.Reindex(cmd.Context(), &indexer.Config{
				Workers:      workers,
				Force:        force,
				Recategorize: recategorize,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned:       %d\n", stats.Scanned)
			fmt.Fprintf(out, "Re-embedded:   %d\n", stats.Reembedded)
			fmt.Fprintf(out, "Recategorized: %d\n", stats.Recategorized)
			fmt.Fprintf(out, "Failed:        %d\n", stats.Failed)
			fmt.Fprintf(out, "Duration:      %v\n", stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "  - %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-embed every thought")
	cmd.Flags().BoolVar(&recategorize, "recategorize", false, "re-run categorization on re-embedded thoughts")
	cmd.Flags().IntVarP(&workers, "workers", "w", indexer.DefaultWorkers, "concurrent embedding batches")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what is stored and which providers are in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.service.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:    %s (%.2f MB)\n", a.cfg.DBPath, status.DatabaseSizeMB)
			fmt.Fprintf(out, "Thoughts:    %d live, %d deleted\n", status.LiveThoughts, status.DeletedThoughts)
			fmt.Fprintf(out, "Categories:  %d active, %d archived\n", status.ActiveCategories, status.ArchivedCategories)
			fmt.Fprintf(out, "Embedding:   %s/%s (%d dims)\n", a.emb.Provider(), a.emb.Model(), a.emb.Dimension())
			fmt.Fprintf(out, "Generation:  %s\n", a.gen.Provider())
			fmt.Fprintf(out, "Threshold:   %.2f\n", a.service.Categorizer().Threshold())

			dims := make([]int, 0, len(status.ByDimension))
			for dim := range status.ByDimension {
				dims = append(dims, dim)
			}
			sort.Ints(dims)
			for _, dim := range dims {
				marker := ""
				if dim != a.emb.Dimension() {
					marker = "  (stale, run reindex)"
				}
				fmt.Fprintf(out, "  %4d dims: %d thought(s)%s\n", dim, status.ByDimension[dim], marker)
			}
			if !status.LastThoughtAt.IsZero() {
				fmt.Fprintf(out, "Last added:  %s\n", status.LastThoughtAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve thoughts to AI assistants over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer(a.service, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx := cmd.Context()
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			// Wait for shutdown signal or error
			select {
			case <-ctx.Done():
				a.logger.Info().Msg("shutting down")
				return nil
			case err := <-errChan:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			}

			a.logger.Info().Msg("server stopped")
			return nil
		},
	}
}
