package main

import (
	"fmt"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newAutomationCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "automation",
		Aliases: []string{"rules"},
		Short:   "Manage project automation rules",
	}
	cmd.AddCommand(
		newAutomationListCmd(rt),
		newAutomationCreateCmd(rt),
		newAutomationEnableCmd(rt),
		newAutomationDeleteCmd(rt),
		newAutomationLogsCmd(rt),
	)
	return cmd
}

func newAutomationListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-key>",
		Short: "List a project's rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rules, err := rt.svc.ListAutomationRules(cmd.Context(), project.ID)
			if err != nil {
				return fmt.Errorf("list rules: %w", err)
			}
			renderRules(cmd.OutOrStdout(), rules)
			return nil
		},
	}
}

func newAutomationCreateCmd(rt *runtime) *cobra.Command {
	var (
		in         app.CreateAutomationRuleInput
		projectKey string
		trigger    string
		action     string
		disabled   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule; needs the manage_automation permission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			project, err := rt.project(cmd.Context(), projectKey)
			if err != nil {
				return err
			}
			in.ActorID = actor.ID
			in.ProjectID = project.ID
			in.Trigger = domain.AutomationTrigger(trigger)
			in.Action = domain.AutomationAction(action)
			in.Enabled = !disabled
			rule, err := rt.svc.CreateAutomationRule(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s created rule %s %s", okStyle.Render("✓"), rule.Name, dimStyle.Render(rule.ID))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&projectKey, "project", "p", "", "project key")
	flags.StringVar(&in.Name, "name", "", "rule name")
	flags.StringVar(&in.Description, "description", "", "rule description")
	flags.StringVar(&trigger, "trigger", "", "issue_created, status_changed or comment_added")
	flags.StringVar(&in.Condition, "condition", "", "optional condition, e.g. 'priority = High'")
	flags.StringVar(&action, "action", "", "assign_reporter, add_comment or set_priority_high")
	flags.BoolVar(&disabled, "disabled", false, "create the rule disabled")
	for _, name := range []string{"project", "name", "trigger", "action"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newAutomationEnableCmd(rt *runtime) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "enable <rule-id>",
		Short: "Enable or disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			rule, err := rt.svc.SetAutomationRuleEnabled(cmd.Context(), actor.ID, args[0], !off)
			if err != nil {
				return fmt.Errorf("toggle rule: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s enabled=%t", rule.Name, rule.Enabled)
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "disable instead")
	return cmd
}

func newAutomationDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule and its execution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.svc.DeleteAutomationRule(cmd.Context(), actor.ID, args[0]); err != nil {
				return fmt.Errorf("delete rule: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "deleted rule %s", args[0])
			return nil
		},
	}
}

func newAutomationLogsCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs <rule-id>",
		Short: "Show a rule's recent executions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := rt.svc.ListAutomationLogs(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("list rule logs: %w", err)
			}
			renderRuleLogs(cmd.OutOrStdout(), logs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries")
	return cmd
}
