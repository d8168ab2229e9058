package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/barflowtrack/barflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of barflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("barflow version %s\n", strings.TrimSpace(barflow.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
