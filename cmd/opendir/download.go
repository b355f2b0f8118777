package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/download"
	"github.com/nao1215/opendir/internal/model"
	"github.com/nao1215/opendir/internal/report"
	"github.com/spf13/cobra"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download URL|ID...",
		Short: "Download files by URL or index ID",
		Long: `Download fetches files into a directory and prints the SHA3-256 digest
of each one. Arguments are URLs or IDs of indexed files (as shown by search).

Downloaded URLs are added to the index unless --no-index is given, so files
fetched directly can be searched later.

Examples:
  # Download two indexed files
  opendir download 12 42

  # Download a URL into ./isos without indexing it
  opendir download --no-index -o isos http://example.com/pub/debian.iso`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDownloadCmd,
	}

	addDBFlag(cmd)
	addReportFlags(cmd)

	cmd.Flags().StringP("output", "o", ".",
		"Directory to write files to (created if needed)")
	cmd.Flags().Bool("no-index", false,
		"Do not add downloaded URLs to the index")
	cmd.Flags().IntP("concurrency", "n", 4,
		"Number of parallel downloads")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Timeout for each download (0 = none)")

	return cmd
}

// downloadOptions are the flags of the download command.
type downloadOptions struct {
	dir         string
	noIndex     bool
	concurrency int
	timeout     time.Duration
}

// runDownloadCmd executes the download command.
func runDownloadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	var opts downloadOptions
	if opts.dir, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if opts.noIndex, err = cmd.Flags().GetBool("no-index"); err != nil {
		return err
	}
	if opts.concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	}
	if opts.timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}

	if opts.concurrency <= 0 {
		return config.ErrInvalidConcurrency
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

	results, err := runDownload(ctx, cfg, opts, args, logger)

	downloaded := make([]*download.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			downloaded = append(downloaded, r)
		}
	}
	if _, writeErr := report.NewWriter(reportFormat(cfg), cmd.OutOrStdout()).WriteDownloads(downloaded); writeErr != nil && err == nil {
		err = writeErr
	}
	return err
}

// runDownload resolves the targets, downloads them and indexes the results.
// Results finished before a failure are returned together with the error.
func runDownload(ctx context.Context, cfg *config.Config, opts downloadOptions, targets []string, logger *slog.Logger) ([]*download.Result, error) {
	var store *database.Store
	if needsStore(targets, opts.noIndex) {
		var err error
		if opts.noIndex {
			store, err = openStore(ctx, cfg, logger)
		} else {
			store, err = openWritableStore(ctx, cfg, logger)
		}
		if err != nil {
			return nil, err
		}
		defer store.Close()
	}

	urls, err := resolveTargets(ctx, store, targets)
	if err != nil {
		return nil, err
	}

	client := newHTTPClient(cfg)
	client.Timeout = opts.timeout

	downloader := download.NewDownloader(client,
		download.WithDirectory(opts.dir),
		download.WithUserAgent(cfg.UserAgent),
		download.WithConcurrency(opts.concurrency),
		download.WithLogger(logger),
	)

	results, downloadErr := downloader.DownloadAll(ctx, urls)

	if !opts.noIndex {
		now := time.Now()
		for _, r := range results {
			if r == nil {
				continue
			}
			record := model.NewFileRecord(r.URL, r.Head, now)
			if err := store.AddFile(ctx, &record); err != nil {
				return results, errors.Join(downloadErr, fmt.Errorf("failed to index %s: %w", r.URL, err))
			}
			logger.Debug("indexed download", "url", r.URL, "id", record.ID)
		}
	}

	if downloadErr != nil {
		return results, fmt.Errorf("download failed: %w", downloadErr)
	}
	return results, nil
}

// needsStore reports whether the download command has to open an index:
// to look up IDs or to record the downloads.
func needsStore(targets []string, noIndex bool) bool {
	if !noIndex {
		return true
	}
	for _, t := range targets {
		if _, err := strconv.ParseInt(t, 10, 64); err == nil {
			return true
		}
	}
	return false
}

// resolveTargets turns IDs into the URLs of the indexed files. Other
// arguments are used as URLs.
func resolveTargets(ctx context.Context, store *database.Store, targets []string) ([]string, error) {
	urls := make([]string, 0, len(targets))
	for _, target := range targets {
		if _, err := strconv.ParseInt(target, 10, 64); err != nil {
			urls = append(urls, target)
			continue
		}

		id, err := parseFileID(target)
		if err != nil {
			return nil, err
		}
		record, err := store.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, fmt.Errorf("%w: %d", database.ErrFileNotFound, id)
		}
		urls = append(urls, record.URL)
	}
	return urls, nil
}
