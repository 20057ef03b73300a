package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newIssueCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "issue",
		Aliases: []string{"issues"},
		Short:   "Work with issues",
	}
	cmd.AddCommand(
		newIssueListCmd(rt),
		newIssueShowCmd(rt),
		newIssueCreateCmd(rt),
		newIssueMoveCmd(rt),
		newIssueAssignCmd(rt),
		newIssueCommentCmd(rt),
		newIssueLogCmd(rt),
		newIssueWatchCmd(rt),
		newIssueDeleteCmd(rt),
		newIssueRecentCmd(rt),
		newIssueBoardCmd(rt),
	)
	return cmd
}

func newIssueListCmd(rt *runtime) *cobra.Command {
	var (
		projectKey string
		query      string
		status     string
		assignee   string
		backlog    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues, optionally filtered by a JQL query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var filter app.IssueFilter
			if projectKey != "" {
				project, err := rt.project(ctx, projectKey)
				if err != nil {
					return err
				}
				filter.ProjectID = project.ID
			}
			if status != "" {
				s, err := parseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}
			if assignee != "" {
				filter.AssigneeID = assignee
				if assignee == "me" {
					actor, err := rt.actor(ctx)
					if err != nil {
						return err
					}
					filter.AssigneeID = actor.ID
				}
			}

			var (
				issues []domain.Issue
				err    error
			)
			switch {
			case backlog:
				if filter.ProjectID == "" {
					return fmt.Errorf("%w: --backlog needs --project", app.ErrInvalidInput)
				}
				issues, err = rt.svc.ListBacklog(ctx, filter.ProjectID)
			case strings.TrimSpace(query) != "":
				issues, err = rt.svc.SearchIssues(ctx, filter.ProjectID, query)
				if err == nil {
					issues = keepMatching(issues, filter)
				}
			default:
				issues, err = rt.svc.ListIssues(ctx, filter)
			}
			if err != nil {
				return fmt.Errorf("list issues: %w", err)
			}
			renderIssues(cmd.OutOrStdout(), issues, rt.svc.Users())
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectKey, "project", "p", "", "project key")
	cmd.Flags().StringVar(&query, "jql", "", "JQL-lite query, e.g. 'status = \"In Progress\" AND priority = High'")
	cmd.Flags().StringVar(&status, "status", "", "only issues in this status")
	cmd.Flags().StringVar(&assignee, "assignee", "", "user id, or 'me'")
	cmd.Flags().BoolVar(&backlog, "backlog", false, "only open issues outside any sprint")
	return cmd
}

// keepMatching applies the structured filters on top of a query result.
func keepMatching(issues []domain.Issue, filter app.IssueFilter) []domain.Issue {
	out := issues[:0]
	for _, issue := range issues {
		if filter.Matches(issue) {
			out = append(out, issue)
		}
	}
	return out
}

func newIssueShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Show one issue and record the view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			if actor, err := rt.actor(ctx); err == nil {
				if _, err := rt.svc.RecordView(ctx, actor.ID, issue.ID); err != nil {
					rt.logger.Warn("record view failed", "issue", issue.Key, "err", err)
				}
			}
			next, err := rt.svc.AllowedTransitions(ctx, issue.ID)
			if err != nil {
				return fmt.Errorf("allowed transitions: %w", err)
			}
			renderIssueDetail(cmd.OutOrStdout(), issue, rt.svc.Users(), next)
			return nil
		},
	}
}

func newIssueCreateCmd(rt *runtime) *cobra.Command {
	var (
		in         app.CreateIssueInput
		projectKey string
		issueType  string
		priority   string
		parentKey  string
		points     int
		due        string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue reported by the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			project, err := rt.project(ctx, projectKey)
			if err != nil {
				return err
			}
			in.ProjectID = project.ID
			in.ReporterID = actor.ID
			if in.Type, err = titleWord(issueType, domain.IssueTypeStory, domain.IssueTypeBug, domain.IssueTypeTask, domain.IssueTypeEpic); err != nil {
				return err
			}
			if in.Priority, err = titleWord(priority, domain.PriorityHighest, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow, domain.PriorityLowest); err != nil {
				return err
			}
			if cmd.Flags().Changed("points") {
				in.StoryPoints = &points
			}
			if due != "" {
				parsed, err := time.ParseInLocation(time.DateOnly, due, time.Local)
				if err != nil {
					return fmt.Errorf("%w: due date must be YYYY-MM-DD", app.ErrInvalidInput)
				}
				in.DueDate = &parsed
			}
			if parentKey != "" {
				parent, err := rt.issue(ctx, parentKey)
				if err != nil {
					return fmt.Errorf("parent: %w", err)
				}
				in.ParentID = parent.ID
			}
			issue, err := rt.svc.CreateIssue(ctx, in)
			if err != nil {
				return fmt.Errorf("create issue: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s created %s %s", okStyle.Render("✓"), keyStyle.Render(issue.Key), issue.Title)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&projectKey, "project", "p", "", "project key")
	flags.StringVarP(&in.Title, "title", "t", "", "issue title")
	flags.StringVarP(&in.Description, "description", "d", "", "issue description")
	flags.StringVar(&issueType, "type", "", "Story, Bug, Task or Epic")
	flags.StringVar(&priority, "priority", "", "Highest, High, Medium, Low or Lowest")
	flags.StringVar(&in.AssigneeID, "assignee", "", "assignee user id")
	flags.StringVar(&in.SprintID, "sprint", "", "sprint id")
	flags.StringVar(&in.FixVersionID, "fix-version", "", "fix version id")
	flags.StringVar(&parentKey, "parent", "", "parent epic key")
	flags.StringSliceVar(&in.Labels, "label", nil, "label (repeatable)")
	flags.IntVar(&points, "points", 0, "story points")
	flags.StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newIssueMoveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "move <key> <status>",
		Short: "Transition an issue along the project workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			if issue.Status == status {
				writeLine(cmd.OutOrStdout(), "%s is already %s", issue.Key, status)
				return nil
			}
			issue, err = rt.svc.TransitionIssue(ctx, issue.ID, status, actor.ID)
			if err != nil {
				return fmt.Errorf("move issue: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "moved %s to %s", keyStyle.Render(issue.Key), issue.Status)
			return nil
		},
	}
}

func newIssueAssignCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <key> [user-id]",
		Short: "Assign an issue, or unassign it when no user is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			assignee := ""
			if len(args) == 2 {
				assignee = args[1]
				if assignee == "me" {
					assignee = actor.ID
				}
			}
			issue, err = rt.svc.AssignIssue(ctx, issue.ID, assignee, actor.ID)
			if err != nil {
				return fmt.Errorf("assign issue: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s assignee: %s", keyStyle.Render(issue.Key), userName(rt.svc.Users(), issue.AssigneeID))
			return nil
		},
	}
}

func newIssueCommentCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <key> <text>...",
		Short: "Comment on an issue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := rt.svc.AddComment(ctx, issue.ID, actor.ID, strings.Join(args[1:], " ")); err != nil {
				return fmt.Errorf("add comment: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "commented on %s", keyStyle.Render(issue.Key))
			return nil
		},
	}
}

func newIssueLogCmd(rt *runtime) *cobra.Command {
	var (
		minutes     int
		description string
	)
	cmd := &cobra.Command{
		Use:   "log <key>",
		Short: "Log time spent on an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			entry, err := rt.svc.AddWorkLog(ctx, app.WorkLogInput{
				IssueID:     issue.ID,
				AuthorID:    actor.ID,
				Minutes:     minutes,
				Description: description,
				StartedAt:   rt.now(),
			})
			if err != nil {
				return fmt.Errorf("log work: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "logged %dm on %s", entry.TimeSpent, keyStyle.Render(issue.Key))
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "minutes spent")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what was done")
	_ = cmd.MarkFlagRequired("minutes")
	return cmd
}

func newIssueWatchCmd(rt *runtime) *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:   "watch <key>",
		Short: "Follow an issue's notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			if stop {
				issue, err = rt.svc.RemoveWatcher(ctx, issue.ID, actor.ID)
			} else {
				issue, err = rt.svc.AddWatcher(ctx, issue.ID, actor.ID)
			}
			if err != nil {
				return fmt.Errorf("update watchers: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s watchers: %d", keyStyle.Render(issue.Key), len(issue.WatcherIDs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "stop watching")
	return cmd
}

func newIssueDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := rt.actor(ctx)
			if err != nil {
				return err
			}
			issue, err := rt.issue(ctx, args[0])
			if err != nil {
				return err
			}
			deleted, err := rt.svc.DeleteIssue(ctx, issue.ID, actor.ID)
			if err != nil {
				return fmt.Errorf("delete issue: %w", err)
			}
			if !deleted {
				return fmt.Errorf("%w: %s may not delete issues", app.ErrPermissionDenied, actor.ID)
			}
			writeLine(cmd.OutOrStdout(), "deleted %s", issue.Key)
			return nil
		},
	}
}

func newIssueRecentCmd(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List issues the current user viewed recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			issues, err := rt.svc.RecentIssues(cmd.Context(), actor.ID, limit)
			if err != nil {
				return fmt.Errorf("recent issues: %w", err)
			}
			renderIssues(cmd.OutOrStdout(), issues, rt.svc.Users())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum issues to show")
	return cmd
}

func newIssueBoardCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "board <project-key>",
		Aliases: []string{"kanban"},
		Short:   "Show the project board grouped by status",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := rt.project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			columns, err := rt.svc.Board(cmd.Context(), project.ID)
			if err != nil {
				return fmt.Errorf("board: %w", err)
			}
			renderBoard(cmd.OutOrStdout(), project, columns)
			return nil
		},
	}
}
