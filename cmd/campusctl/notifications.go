package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	campushub "github.com/campushub/campushub-go"
	"github.com/spf13/cobra"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and follow notifications",
	}
	cmd.AddCommand(
		newNotificationsListCmd(a),
		newNotificationsReadCmd(a),
		newNotificationsWatchCmd(a),
	)
	return cmd
}

func newNotificationsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current notification feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if err := a.feed.Refresh(cmd.Context()); err != nil {
				return err
			}

			items := a.feed.Items()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
				return nil
			}
			for _, n := range items {
				printNotification(cmd, n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", a.feed.UnreadCount())
			return nil
		},
	}
}

func newNotificationsReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id|all>",
		Short: "Mark one notification (or all) as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if err := a.feed.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := a.feed.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unread\n", a.feed.UnreadCount())
			return nil
		},
	}
}

func newNotificationsWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the feed and print new notifications until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.feed.Bind(a.ctrl)
			defer a.feed.Stop()

			seen := make(map[string]bool)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Watching notifications (Ctrl-C to stop).")
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					for _, n := range a.feed.Items() {
						if seen[n.ID] {
							continue
						}
						seen[n.ID] = true
						printNotification(cmd, n)
					}
				}
			}
		},
	}
}

func printNotification(cmd *cobra.Command, n campushub.Notification) {
	marker := " "
	if !n.Read {
		marker = "*"
	}
	ts := ""
	if !n.CreatedAt.IsZero() {
		ts = n.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %-8s %s  %s\n", marker, n.ID, n.Type, ts, n.Message)
}
