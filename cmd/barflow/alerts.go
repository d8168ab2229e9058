package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	alertsMarkRead string
	alertsDismiss  string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Recompute and list stock notifications",
	Long: `Recompute low-stock and projection notifications from the current
inventory and list the unexpired ones.`,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		ctx := context.Background()

		if alertsMarkRead != "" {
			if err := app.Alerts.MarkRead(ctx, alertsMarkRead); err != nil {
				fatal("Failed to mark notification read", err)
			}
			fmt.Printf("Notification '%s' marked read.\n", alertsMarkRead)
			return
		}
		if alertsDismiss != "" {
			if err := app.Alerts.Dismiss(ctx, alertsDismiss); err != nil {
				fatal("Failed to dismiss notification", err)
			}
			fmt.Printf("Notification '%s' dismissed.\n", alertsDismiss)
			return
		}

		if _, err := app.Alerts.Recompute(ctx); err != nil {
			fatal("Failed to recompute notifications", err)
		}

		list, err := app.Alerts.Notifications(ctx)
		if err != nil {
			fatal("Failed to list notifications", err)
		}
		if len(list) == 0 {
			fmt.Println("No notifications.")
			return
		}

		for _, n := range list {
			status := " "
			if n.Read {
				status = "r"
			}
			fmt.Printf("[%s] %-6s %s  %s: %s\n", status, n.Priority, n.ID, n.Title, n.Message)
		}
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().StringVar(&alertsMarkRead, "read", "", "Mark the notification with this ID as read")
	alertsCmd.Flags().StringVar(&alertsDismiss, "dismiss", "", "Dismiss the notification with this ID")
}
