package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReminderCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Inspect or dismiss the daily photo reminder",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print whether the reminder is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()

			due := "not due"
			if service.ShouldRemind(ctx) {
				due = "due"
			}
			last := "never"
			if t, ok := service.LastReminderDismissal(ctx); ok {
				last = t.Local().Format(time.RFC3339)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reminder: %s (last dismissed: %s)\n", due, last)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss",
		Short: "Dismiss the reminder for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, err := open()
			if err != nil {
				return err
			}
			ctx := context.Background()
			defer func() {
				_ = service.Close(ctx)
			}()
			if err := service.DismissReminder(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reminder dismissed")
			return nil
		},
	})
	return cmd
}
