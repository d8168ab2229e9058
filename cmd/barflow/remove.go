package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [key]",
	Short: "Delete a key",
	Long:  `Delete a key and its value. Removing an absent key is not an error.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		if err := app.Store.Remove(context.Background(), args[0]); err != nil {
			fatal("Failed to remove key", err)
		}
		fmt.Printf("Key '%s' removed.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
