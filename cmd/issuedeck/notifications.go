package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd(rt *runtime) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Show the current user's notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			items, err := rt.svc.ListNotifications(cmd.Context(), actor.ID, unread)
			if err != nil {
				return fmt.Errorf("list notifications: %w", err)
			}
			renderNotifications(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unread, "unread", "u", false, "only unread notifications")

	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := rt.actor(cmd.Context())
			if err != nil {
				return err
			}
			n, err := rt.svc.MarkAllNotificationsRead(cmd.Context(), actor.ID)
			if err != nil {
				return fmt.Errorf("mark notifications read: %w", err)
			}
			writeLine(cmd.OutOrStdout(), "marked %d notifications read", n)
			return nil
		},
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := rt.svc.SetNotificationsEnabled(cmd.Context(), enabled); err != nil {
					return fmt.Errorf("set notifications: %w", err)
				}
				writeLine(cmd.OutOrStdout(), "notifications enabled=%t", enabled)
				return nil
			},
		}
	}

	cmd.AddCommand(readAll, toggle("enable", "Resume notification delivery", true), toggle("disable", "Stop creating notifications", false))
	return cmd
}
