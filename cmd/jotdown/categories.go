package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/jotdown/internal/thoughts"
	"github.com/dshills/jotdown/pkg/types"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "List and manage categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCategories(cmd, false)
		},
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesDescribeCmd())
	cmd.AddCommand(categoriesArchiveCmd())
	cmd.AddCommand(categoriesGenerateCmd())
	return cmd
}

func categoriesListCmd() *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active categories with recent thoughts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCategories(cmd, archived)
		},
	}

	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "also list archived categories")
	return cmd
}

func listCategories(cmd *cobra.Command, includeArchived bool) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	active, err := a.service.ActiveCategories(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		fmt.Fprintln(out, "No categories yet. Add one with `jotdown categories add` or run `jotdown categories generate`.")
	}

	for _, category := range active {
		fmt.Fprintf(out, "%s  %s\n", category.Name, category.Description)
		snippets, err := a.service.RecentSnippets(ctx, category.Name, thoughts.DefaultSnippetCount)
		if err != nil {
			return err
		}
		for _, snippet := range snippets {
			fmt.Fprintf(out, "    - %s\n", truncate(snippet, 70))
		}
	}

	if !includeArchived {
		return nil
	}

	archived, err := a.service.ArchivedCategories(ctx)
	if err != nil {
		return err
	}
	if len(archived) > 0 {
		fmt.Fprintln(out, "\nArchived:")
		for _, category := range archived {
			fmt.Fprintf(out, "%s  %s\n", category.Name, category.Description)
		}
	}
	return nil
}

func categoriesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [description]",
		Short: "Add a category, or reactivate an archived one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.service.AddCategory(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Category %s: %s\n", category.Name, category.Description)
			return nil
		},
	}
}

func categoriesDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name> <description>",
		Short: "Change a category's description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.service.FindCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			category, err = a.service.UpdateCategoryDescription(cmd.Context(), category.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Category %s: %s\n", category.Name, category.Description)
			return nil
		},
	}
}

func categoriesArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <name>",
		Short: "Archive a category; its thoughts keep their assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.service.FindCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.service.ArchiveCategory(cmd.Context(), category.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %s\n", category.Name)
			return nil
		},
	}
}

func categoriesGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Replace active categories with ones generated from your profile bio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.service.GenerateCategories(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %d categories:\n", len(categories))
			for _, category := range categories {
				fmt.Fprintf(out, "  %s  %s\n", category.Name, category.Description)
			}
			return nil
		},
	}
}

func profileCmd() *cobra.Command {
	var name, bio string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or set the profile used for category generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.service.GetProfile(cmd.Context())
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") || cmd.Flags().Changed("bio") {
				next := types.Profile{Name: profile.Name, Bio: profile.Bio}
				if cmd.Flags().Changed("name") {
					next.Name = name
				}
				if cmd.Flags().Changed("bio") {
					next.Bio = bio
				}
				if profile, err = a.service.UpdateProfile(cmd.Context(), next.Name, next.Bio); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name: %s\n", strings.TrimSpace(profile.Name))
			fmt.Fprintf(out, "Bio:  %s\n", strings.TrimSpace(profile.Bio))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "a few sentences about your interests and activities")
	return cmd
}
