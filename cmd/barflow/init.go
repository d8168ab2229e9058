package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a data directory",
	Long:  `Create the data directory and its database in the current directory (or --dir).`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := dataDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatal("Failed to get CWD", err)
			}
			dir = cwd
		}

		app := openAppAt(dir)
		defer app.Close()

		fmt.Println("Initialized BarFlow data directory in", dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
