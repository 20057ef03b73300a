package main

import (
	"fmt"

	"github.com/evanschultz/issuedeck/internal/app"
	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/spf13/cobra"
)

func newSetupCmd(rt *runtime) *cobra.Command {
	var (
		userID      string
		projectKey  string
		projectName string
		projectType string
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the first project and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ptype, err := titleWord(projectType, domain.ProjectTypeScrum, domain.ProjectTypeKanban)
			if err != nil {
				return err
			}
			project, err := rt.svc.CompleteSetup(cmd.Context(), app.SetupInput{
				UserID:      userID,
				ProjectKey:  projectKey,
				ProjectName: projectName,
				ProjectType: ptype,
			})
			if err != nil {
				return fmt.Errorf("complete setup: %w", err)
			}
			rt.logger.Info("setup complete", "project", project.Key, "user", userID)
			writeLine(cmd.OutOrStdout(), "%s created %s %s", okStyle.Render("✓"), keyStyle.Render(project.Key), project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id that leads the project")
	cmd.Flags().StringVar(&projectKey, "project-key", "", "project key, e.g. WEB")
	cmd.Flags().StringVar(&projectName, "project-name", "", "project name")
	cmd.Flags().StringVar(&projectType, "type", string(domain.ProjectTypeScrum), "Scrum or Kanban")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("project-key")
	_ = cmd.MarkFlagRequired("project-name")
	return cmd
}

func newLoginCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Switch the current user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := rt.svc.Login(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "logged in as %s (%s)", headerStyle.Render(user.Name), user.Role)
			return nil
		},
	}
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.svc.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			unread, err := rt.svc.UnreadCount(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("count notifications: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "%s %s <%s> %s", headerStyle.Render(user.Name), dimStyle.Render(user.ID), user.Email, user.Role)
			writeLine(cmd.OutOrStdout(), "unread notifications: %d", unread)
			return nil
		},
	}
}

func newUsersCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the user directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable("ID", "NAME", "EMAIL", "ROLE")
			for _, u := range rt.svc.Users() {
				t.Row(u.ID, u.Name, u.Email, string(u.Role))
			}
			writeLine(cmd.OutOrStdout(), "%s", t.Render())
			return nil
		},
	}
}
