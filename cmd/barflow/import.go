package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/barflowtrack/barflow/pkg/core"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON snapshot",
	Long: `Read a JSON object mapping keys to values (the export format) and store
every entry in one batch. Existing keys are overwritten.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			fatal("Failed to read snapshot", err)
		}

		var snapshot map[string]json.RawMessage
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			fatal("Failed to parse snapshot", err)
		}

		now := time.Now()
		records := make([]core.Record, 0, len(snapshot))
		for key, value := range snapshot {
			records = append(records, core.Record{Key: key, Value: value, Timestamp: now})
		}

		app := openApp()
		defer app.Close()

		if err := app.Store.SetBatch(context.Background(), records); err != nil {
			fatal("Import failed", err)
		}
		fmt.Printf("Imported %d keys.\n", len(records))
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
