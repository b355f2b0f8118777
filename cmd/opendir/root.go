package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for opendir.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opendir",
		Short: "Crawl and index open directory listings",
		Long: `opendir crawls open directory listings (auto-generated web server
indexes of files), records every file it finds into a relocatable SQLite
index, and lets you search, tag and download the indexed files.

Indexes are selected with --db: a file path, an http(s) URL of a published
index (opened read-only as a snapshot), or a name defined in the
configuration file. Without --db the default index in the data directory is
used.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .opendir.yaml in current directory or XDG config directory)")
	cmd.PersistentFlags().String("log-file", "", "Also write debug logs as JSON to this rotating file")

	// Add subcommands
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewDownloadCmd())
	cmd.AddCommand(NewTagCmd())
	cmd.AddCommand(NewDBCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
