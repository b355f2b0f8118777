package main

import (
	"fmt"

	"github.com/nao1215/opendir/internal/report"
	"github.com/nao1215/opendir/internal/search"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search TERM...",
		Short: "Search the index by name, URL or tag",
		Long: `Search lists indexed files whose name, URL or tags contain any of the
given terms. Matching ignores case.

Examples:
  # Search the default index
  opendir search debian

  # Search a published index and print JSON
  opendir search --db https://example.com/indexes/linux.db --json iso

  # Search by tag
  opendir search --db ./linux.db favourite`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	addDBFlag(cmd)
	addReportFlags(cmd)

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closer, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := search.NewEngine(store, search.WithLogger(logger)).Search(ctx, args)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	_, err = report.NewWriter(reportFormat(cfg), cmd.OutOrStdout()).WriteFiles(files)
	return err
}
