package main

import (
	"fmt"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newFilterCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filter",
		Aliases: []string{"filters"},
		Short:   "Save and run issue filters",
	}

	var in app.SaveFilterInput
	save := &cobra.Command{
		Use:   "save <name> <query>",
		Short: "Save a named query for the current user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			in.OwnerID = actor.ID
			in.Name = args[0]
			in.Query = args[1]
			filter, err := rt.svc.CreateSavedFilter(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("save filter: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s saved filter %s %s", okStyle.Render("✓"), filter.Name, dimStyle.Render(filter.ID))
			return nil
		},
	}
	save.Flags().BoolVar(&in.IsJQLMode, "jql", false, "treat the query as JQL-lite instead of text")
	save.Flags().BoolVar(&in.IsFavorite, "favorite", false, "mark as favorite")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the current user's filters, favorites first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			filters, err := rt.svc.ListSavedFilters(cmd.Context(), actor.ID)
			if err != nil {
				return fmt.Errorf("list filters: %w", err)
			}
			renderFilters(cmd.OutOrStdout(), filters)
			return nil
		},
	}

	var projectKey string
	runCmd := &cobra.Command{
		Use:   "run <filter-id>",
		Short: "Run a saved filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := ""
			if projectKey != "" {
				project, err := rt.project(cmd.Context(), projectKey)
				if err != nil {
					return err
				}
				projectID = project.ID
			}
			issues, err := rt.svc.RunSavedFilter(cmd.Context(), args[0], projectID)
			if err != nil {
				return fmt.Errorf("run filter: %w", err)
			}
			renderIssues(cmd.OutOrStdout(), issues, rt.svc.Users())
			return nil
		},
	}
	runCmd.Flags().StringVarP(&projectKey, "project", "p", "", "limit to one project")

	favorite := &cobra.Command{
		Use:   "favorite <filter-id>",
		Short: "Toggle a filter's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := rt.svc.ToggleFavoriteFilter(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("toggle favorite: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s favorite=%t", filter.Name, filter.IsFavorite)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <filter-id>",
		Short: "Delete a saved filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.svc.DeleteSavedFilter(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete filter: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "deleted filter %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(save, list, runCmd, favorite, del)
	return cmd
}

func newDashboardCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show or arrange the current user's dashboard gadgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			gadgets, err := rt.svc.DashboardGadgets(cmd.Context(), actor.ID)
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			t := newTable("POS", "ID", "KIND")
			for _, g := range gadgets {
				t.Row(fmt.Sprint(g.Position), g.ID, string(g.Kind))
			}
			writeLine(cmd.OutOrStdout(), "%s", t.Render())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <kind>...",
		Short: "Replace the layout with gadgets in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			gadgets := make([]domain.Gadget, 0, len(args))
			for _, kind := range args {
				gadgets = append(gadgets, domain.Gadget{Kind: domain.GadgetKind(kind)})
			}
			saved, err := rt.svc.SaveDashboardGadgets(cmd.Context(), actor.ID, gadgets)
			if err != nil {
				return fmt.Errorf("save dashboard: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "saved %d gadgets", len(saved))
			return nil
		},
	})
	return cmd
}
