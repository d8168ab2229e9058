package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every key as one JSON snapshot",
	Long:  `Write a single JSON object mapping every stored key to its value, to stdout or --out.`,
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		ctx := context.Background()
		keys, err := app.Store.Keys(ctx)
		if err != nil {
			fatal("Failed to list keys", err)
		}

		snapshot := make(map[string]json.RawMessage, len(keys))
		for _, key := range keys {
			raw, ok, err := app.Store.GetRaw(ctx, key)
			if err != nil {
				fatal("Failed to read key", err)
			}
			if ok {
				snapshot[key] = raw
			}
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				fatal("Failed to create output file", err)
			}
			defer f.Close()
			out = f
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			fatal("Failed to encode snapshot", err)
		}

		if exportOut != "" {
			fmt.Fprintf(os.Stderr, "Exported %d keys to %s\n", len(snapshot), exportOut)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write the snapshot to a file instead of stdout")
}
