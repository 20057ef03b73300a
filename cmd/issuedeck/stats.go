package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Project statistics",
	}

	workload := &cobra.Command{
		Use:   "workload <project-key>",
		Short: "Open, in-progress and done counts per assignee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows, err := rt.svc.Workload(cmd.Context(), project.ID)
			if err != nil {
				return fmt.Errorf("workload: %w", err)
			}
			renderWorkload(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	epic := &cobra.Command{
		Use:   "epic <epic-key>",
		Short: "Completion of an epic's child issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := rt.issue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			progress, err := rt.svc.EpicProgress(cmd.Context(), issue.ID)
			if err != nil {
				return fmt.Errorf("epic progress: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s %s", keyStyle.Render(issue.Key), headerStyle.Render(issue.Title))
			writeLine(cmd.OutOrStdout(), "%d/%d done (%d%%)", progress.Done, progress.Total, progress.Percent)
			return nil
		},
	}

	cmd.AddCommand(workload, epic)
	return cmd
}
