package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List stored keys",
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		keys, err := app.Store.Keys(context.Background())
		if err != nil {
			fatal("Failed to list keys", err)
		}
		for _, key := range keys {
			fmt.Println(key)
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
