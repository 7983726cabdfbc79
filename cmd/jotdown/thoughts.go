package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/storage"
	"github.com/dshills/jotdown/internal/thoughts"
	"github.com/dshills/jotdown/pkg/types"
)

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [content]",
		Short: "Add a thought",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			thought, err := a.service.CreateThought(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s] %s\n", shortID(thought.ID), thought.CategoryName(), thought.Content)
			return nil
		},
	}
}

func editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> [content]",
		Short: "Replace a thought's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveThoughtID(cmd.Context(), a.service, args[0])
			if err != nil {
				return err
			}

			thought, err := a.service.EditThought(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s [%s] %s\n", shortID(thought.ID), thought.CategoryName(), thought.Content)
			return nil
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete thoughts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ids := make([]string, 0, len(args))
			for _, arg := range args {
				id, err := resolveThoughtID(cmd.Context(), a.service, arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			deleted, err := a.service.DeleteThoughts(cmd.Context(), ids...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d thought(s)\n", deleted)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var (
		category string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List thoughts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.service.ListThoughts(cmd.Context(), thoughts.ListOptions{Category: category, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No thoughts yet.")
				return nil
			}
			for _, thought := range list {
				printThought(out, thought)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only thoughts in this category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of thoughts (0 for all)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := resolveThoughtID(cmd.Context(), a.service, args[0])
			if err != nil {
				return err
			}
			thought, err := a.service.GetThought(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", thought.ID)
			fmt.Fprintf(out, "Category:  %s\n", thought.CategoryName())
			fmt.Fprintf(out, "Created:   %s\n", thought.CreatedAt.Local().Format(time.DateTime))
			if !thought.UpdatedAt.Equal(thought.CreatedAt) {
				fmt.Fprintf(out, "Updated:   %s\n", thought.UpdatedAt.Local().Format(time.DateTime))
			}
			fmt.Fprintf(out, "Embedding: %s/%s (%d dims)\n", thought.Provider, thought.Model, thought.Dimension())
			fmt.Fprintf(out, "\n%s\n", thought.Content)
			return nil
		},
	}
}

func printThought(out io.Writer, thought *types.Thought) {
	fmt.Fprintf(out, "%s  %s  %-12s %s\n",
		shortID(thought.ID),
		thought.CreatedAt.Local().Format("Jan 02 15:04"),
		truncate(thought.CategoryName(), 12),
		truncate(thought.Content, 80))
}

// resolveThoughtID accepts a full id or a unique prefix of one
func resolveThoughtID(ctx context.Context, svc *thoughts.Service, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("thought id is required")
	}
	if _, err := svc.GetThought(ctx, ref); err == nil {
		return ref, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	list, err := svc.ListThoughts(ctx, thoughts.ListOptions{})
	if err != nil {
		return "", err
	}

	var match string
	for _, thought := range list {
		if !strings.HasPrefix(thought.ID, ref) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("id prefix %q is ambiguous", ref)
		}
		match = thought.ID
	}
	if match == "" {
		return "", fmt.Errorf("thought %q: %w", ref, storage.ErrNotFound)
	}
	return match, nil
}
