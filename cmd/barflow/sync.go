package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barflowtrack/barflow/pkg/core"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the offline sync queue",
	Long: `Attempt to deliver every queued mutation to the configured remote.
Failed items stay queued for the next run.`,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		fmt.Println("Syncing...")
		report, err := app.Outbox.Drain(context.Background())
		if err != nil {
			if errors.Is(err, core.ErrOffline) {
				fmt.Fprintln(os.Stderr, "Error: no remote configured.")
				fmt.Println("Tip: set remote.url in barflow.yaml to enable synchronization.")
				os.Exit(1)
			}
			fatal("Sync failed", err)
		}

		fmt.Printf("Sync finished: %d delivered, %d still queued.\n",
			report.SuccessCount, len(report.Failed))
		if report.Noteworthy() {
			for _, item := range report.Failed {
				fmt.Fprintf(os.Stderr, "  kept: %s %s (%s)\n", item.Op, item.Table, item.ID)
			}
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
