package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/barflowtrack/barflow"
)

var (
	verbose bool
	dataDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "barflow",
	Short: "Local-first persistence core for bar inventory and sales",
	Long: `BarFlow stores inventory, sales and settings on the device first.
Remote synchronization happens in the background through an offline queue.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Data directory (defaults to the nearest one above the CWD)")
}

// resolveDir picks the data directory: the --dir flag, the nearest existing
// data directory above the CWD, or the CWD itself.
func resolveDir() string {
	if dataDir != "" {
		return dataDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get CWD", err)
	}
	if root, err := barflow.FindRoot(cwd); err == nil {
		return root
	}
	return cwd
}

func openApp(opts ...barflow.Option) *barflow.App {
	return openAppAt(resolveDir(), opts...)
}

func openAppAt(dir string, opts ...barflow.Option) *barflow.App {
	opts = append([]barflow.Option{barflow.WithLogger(slog.Default())}, opts...)
	app, err := barflow.Open(dir, opts...)
	if err != nil {
		fatal("Failed to open data directory", err)
	}
	return app
}
