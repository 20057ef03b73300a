package main

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newProjectListCmd(rt),
		newProjectCreateCmd(rt),
		newProjectDeleteCmd(rt),
		newProjectStarCmd(rt),
		newProjectWIPCmd(rt),
	)
	return cmd
}

func newProjectListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, starred first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := rt.svc.ListProjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			renderProjects(cmd.OutOrStdout(), projects, rt.svc.Users())
			return nil
		},
	}
}

func newProjectCreateCmd(rt *runtime) *cobra.Command {
	var in app.CreateProjectInput
	var ptype, category string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project led by the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			if in.Type, err = titleWord(ptype, domain.ProjectTypeScrum, domain.ProjectTypeKanban); err != nil {
				return err
			}
			if in.Category, err = titleWord(category, domain.CategorySoftware, domain.CategoryBusiness); err != nil {
				return err
			}
			in.LeadID = actor.ID
			project, err := rt.svc.CreateProject(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s created %s %s", okStyle.Render("✓"), keyStyle.Render(project.Key), project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Key, "key", "", "project key, e.g. WEB")
	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "project description")
	cmd.Flags().StringVar(&ptype, "type", string(domain.ProjectTypeScrum), "Scrum or Kanban")
	cmd.Flags().StringVar(&category, "category", string(domain.CategorySoftware), "Software or Business")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a project with its issues, sprints, versions and rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := rt.svc.DeleteProject(cmd.Context(), actor.ID, project.ID); err != nil {
				return fmt.Errorf("delete project: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "deleted %s", project.Key)
			return nil
		},
	}
}

func newProjectStarCmd(rt *runtime) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "star <key>",
		Short: "Star or unstar a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			project, err = rt.svc.StarProject(cmd.Context(), project.ID, !off)
			if err != nil {
				return fmt.Errorf("star project: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s starred=%t", project.Key, project.Starred)
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove the star")
	return cmd
}

func newProjectWIPCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "wip <key> <status> <limit>",
		Short: "Set a board column WIP limit, 0 clears it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			limit, err := strconv.Atoi(args[2])
			if err != nil || limit < 0 {
				return fmt.Errorf("%w: limit must be a non-negative integer", app.ErrInvalidInput)
			}
			settings := maps.Clone(project.ColumnSettings)
			if settings == nil {
				settings = map[domain.IssueStatus]int{}
			}
			settings[status] = limit
			project, err = rt.svc.UpdateProject(cmd.Context(), app.UpdateProjectInput{
				ProjectID:      project.ID,
				ColumnSettings: settings,
			})
			if err != nil {
				return fmt.Errorf("update project: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s %s wip=%d", project.Key, status, project.ColumnSettings[status])
			return nil
		},
	}
}
