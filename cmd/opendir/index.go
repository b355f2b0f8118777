package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/crawler"
	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index URL...",
		Short: "Crawl open directories and index their files",
		Long: `Index crawls one or more open directory listings breadth-first and
records every file it finds, with its size, type and modification time, into
the selected index.

Each URL is checked with a HEAD request. A text/html response without a
Last-Modified header is treated as a directory listing and its links are
followed; anything else is recorded as a file. With --quick no HEAD requests
are made: URLs ending in "/" are listings and everything else is a file
without metadata.

Examples:
  # Index a directory into the default index
  opendir index http://example.com/pub/

  # Quick crawl, at most two levels deep, skipping ISO images
  opendir index --quick --depth 2 --ignore '*.iso' http://example.com/pub/

  # Index into a specific file
  opendir index --db ./linux.db http://example.com/linux/`,
		Args: cobra.ArbitraryArgs,
		RunE: runIndexCmd,
	}

	addDBFlag(cmd)

	cmd.Flags().BoolP("quick", "q", false,
		"Classify URLs by trailing slash instead of HEAD requests")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of parallel requests per crawl level")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of levels below the start URLs (0 = unlimited)")
	cmd.Flags().StringSliceP("ignore", "i", nil,
		"URL path glob to skip (repeatable)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header to send")

	return cmd
}

// runIndexCmd executes the index command.
func runIndexCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildIndexConfig(cmd)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return config.ErrNoTarget
	}

	// Validate configuration
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

	return runIndex(ctx, cfg, args, cmd.OutOrStdout(), logger)
}

// buildIndexConfig reads the crawl flags. Options the user did not set on
// the command line are taken from the configuration file defaults.
func buildIndexConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Quick, err = cmd.Flags().GetBool("quick"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = cmd.Flags().GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults(cfg.File.Defaults, func(option string) bool {
		return cmd.Flags().Changed(option)
	})

	return cfg, nil
}

// runIndex crawls seeds into the selected index and prints a summary.
// A partial summary is printed even when the crawl is interrupted.
func runIndex(ctx context.Context, cfg *config.Config, seeds []string, out io.Writer, logger *slog.Logger) error {
	store, err := openWritableStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	mode := crawler.ModeStandard
	if cfg.Quick {
		mode = crawler.ModeQuick
	}

	spider := crawler.NewSpider(newHTTPClient(cfg),
		crawler.WithMode(mode),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithLogger(logger),
	)

	logger.Info("starting crawl",
		"seeds", seeds,
		"mode", mode.String(),
		"concurrency", cfg.Concurrency,
		"database", store.Path(),
	)

	result, crawlErr := spider.Crawl(ctx, seeds, store)
	if result != nil {
		fmt.Fprintf(out, "Indexed %s file(s) from %s listing(s) in %d level(s) into %s\n",
			humanize.Comma(int64(result.FilesFound)),
			humanize.Comma(int64(result.DirectoriesListed)),
			result.Levels,
			store.Path(),
		)
		if n := len(result.Dropped); n > 0 {
			fmt.Fprintf(out, "Skipped %s URL(s); run with -v for details\n", humanize.Comma(int64(n)))
		}
	}
	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	return nil
}
