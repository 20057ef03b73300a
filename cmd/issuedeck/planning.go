package main

import (
	"fmt"
	"time"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newSprintCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sprint",
		Aliases: []string{"sprints"},
		Short:   "Plan Scrum sprints",
	}
	cmd.AddCommand(
		newSprintListCmd(rt),
		newSprintCreateCmd(rt),
		newSprintStartCmd(rt),
		newSprintCompleteCmd(rt),
		newSprintDeleteCmd(rt),
	)
	return cmd
}

func newSprintListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-key>",
		Short: "List sprints, active first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sprints, err := rt.svc.ListSprints(cmd.Context(), project.ID)
			if err != nil {
				return fmt.Errorf("list sprints: %w", err)
			}
			renderSprints(cmd.OutOrStdout(), sprints)
			return nil
		},
	}
}

func newSprintCreateCmd(rt *runtime) *cobra.Command {
	var (
		in         app.CreateSprintInput
		projectKey string
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a future sprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := rt.project(cmd.Context(), projectKey)
			if err != nil {
				return err
			}
			in.ProjectID = project.ID
			if in.StartDate, err = parseDay(start); err != nil {
				return err
			}
			if in.EndDate, err = parseDay(end); err != nil {
				return err
			}
			sprint, err := rt.svc.CreateSprint(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create sprint: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s created sprint %s %s", okStyle.Render("✓"), sprint.Name, dimStyle.Render(sprint.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectKey, "project", "p", "", "project key")
	cmd.Flags().StringVar(&in.Name, "name", "", "sprint name")
	cmd.Flags().StringVar(&in.Goal, "goal", "", "sprint goal")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSprintStartCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "start <sprint-id>",
		Short: "Start a future sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sprint, err := rt.svc.StartSprint(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("start sprint: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "started %s", sprint.Name)
			return nil
		},
	}
}

func newSprintCompleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <sprint-id>",
		Short: "Complete an active sprint, returning unfinished issues to the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			sprint, moved, err := rt.svc.CompleteSprint(cmd.Context(), args[0], actor.ID)
			if err != nil {
				return fmt.Errorf("complete sprint: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "completed %s, %d issues returned to the backlog", sprint.Name, len(moved))
			return nil
		},
	}
}

func newSprintDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sprint-id>",
		Short: "Delete a sprint, returning all of its issues to the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.svc.DeleteSprint(cmd.Context(), args[0], actor.ID); err != nil {
				return fmt.Errorf("delete sprint: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "deleted sprint %s", args[0])
			return nil
		},
	}
}

func newVersionCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "release",
		Aliases: []string{"releases", "fix-version"},
		Short:   "Manage fix versions",
	}

	list := &cobra.Command{
		Use:   "list <project-key>",
		Short: "List versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			versions, err := rt.svc.ListVersions(cmd.Context(), project.ID)
			if err != nil {
				return fmt.Errorf("list versions: %w", err)
			}
			renderVersions(cmd.OutOrStdout(), versions)
			return nil
		},
	}

	var (
		in         app.CreateVersionInput
		projectKey string
		release    string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an unreleased version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := rt.project(cmd.Context(), projectKey)
			if err != nil {
				return err
			}
			in.ProjectID = project.ID
			if in.ReleaseDate, err = parseDay(release); err != nil {
				return err
			}
			fixVersion, err := rt.svc.CreateVersion(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create version: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s created version %s %s", okStyle.Render("✓"), fixVersion.Name, dimStyle.Render(fixVersion.ID))
			return nil
		},
	}
	create.Flags().StringVarP(&projectKey, "project", "p", "", "project key")
	create.Flags().StringVar(&in.Name, "name", "", "version name")
	create.Flags().StringVar(&in.Description, "description", "", "release notes")
	create.Flags().StringVar(&release, "date", "", "planned release date (YYYY-MM-DD)")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("name")

	releaseCmd := &cobra.Command{
		Use:   "release <version-id>",
		Short: "Mark a version released",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixVersion, err := rt.svc.ReleaseVersion(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("release version: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "released %s on %s", fixVersion.Name, domain.FormatDate(fixVersion.ReleaseDate))
			return nil
		},
	}

	cmd.AddCommand(list, create, releaseCmd)
	return cmd
}

// parseDay parses an optional YYYY-MM-DD flag in local time.
func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", app.ErrInvalidInput, raw)
	}
	return &day, nil
}
