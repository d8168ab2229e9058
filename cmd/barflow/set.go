package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var setFile string

var setCmd = &cobra.Command{
	Use:   "set [key] [json]",
	Short: "Write a key",
	Long: `Store a JSON value under a key. The value comes from the second argument,
from --file, or from stdin when neither is given.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := readValue(args)
		if err != nil {
			fatal("Failed to read value", err)
		}
		if !json.Valid(raw) {
			fatal("Invalid value", fmt.Errorf("not valid JSON"))
		}

		app := openApp()
		defer app.Close()

		if err := app.Store.SetRaw(context.Background(), args[0], raw); err != nil {
			fatal("Failed to write key", err)
		}
		fmt.Printf("Key '%s' saved.\n", args[0])
	},
}

func readValue(args []string) ([]byte, error) {
	if len(args) == 2 {
		return []byte(args[1]), nil
	}
	if setFile != "" {
		return os.ReadFile(setFile)
	}
	return io.ReadAll(os.Stdin)
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringVarP(&setFile, "file", "f", "", "Read the value from a file")
}
