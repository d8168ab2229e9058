package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getPretty bool

var getCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Read a key",
	Long:  `Read the raw JSON value stored under a key. Absent keys print null.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp()
		defer app.Close()

		raw, ok, err := app.Store.GetRaw(context.Background(), args[0])
		if err != nil {
			fatal("Failed to read key", err)
		}
		if !ok {
			fmt.Println("null")
			return
		}

		if getPretty {
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				fatal("Stored value is not valid JSON", err)
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(value); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		fmt.Println(string(raw))
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getPretty, "pretty", false, "Indent the JSON output")
}
