package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/log"
	"github.com/nao1215/opendir/internal/report"
	"github.com/spf13/cobra"
)

// getStringFlag returns a local or inherited string flag, or "" when the
// command does not define it.
func getStringFlag(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return value
}

// getBoolFlag returns a local or inherited bool flag, or false when the
// command does not define it.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}
	return value
}

// buildConfig creates a Config from the global flags and the configuration
// file. If the user explicitly specified a config file path, a missing file
// is an error; otherwise an empty configuration is used.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogFile = getStringFlag(cmd, "log-file")
	cfg.ConfigFilePath = getStringFlag(cmd, "config")
	cfg.Database = getStringFlag(cmd, "db")
	cfg.JSONReport = getBoolFlag(cmd, "json")
	cfg.MarkdownReport = getBoolFlag(cmd, "markdown")

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.File = file
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// configWritePath returns the file that commands modifying the
// configuration write to: the explicit or discovered file, else the XDG
// default.
func configWritePath(cfg *config.Config) string {
	if cfg.ConfigFilePath != "" {
		return cfg.ConfigFilePath
	}
	if found := config.FindConfigFile(""); found != "" {
		return found
	}
	return config.DefaultConfigFilePath()
}

// setupLogger creates the application logger and makes it the default.
// Logs go to the command's error stream, plus the log file if configured.
func setupLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	logger, closer, err := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// newHTTPClient returns the client used for crawling, downloads and URL
// stores.
func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

// newResolver returns a Resolver for --db descriptors.
func newResolver(cfg *config.Config) *database.Resolver {
	return &database.Resolver{
		DefaultPath: cfg.DefaultStorePath(),
		Registry:    cfg.File,
		Client:      newHTTPClient(cfg),
		Options:     database.DefaultOptions(),
	}
}

// openStore opens the index selected with --db.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	store, err := newResolver(cfg).OpenDescriptor(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", store.Path(), "snapshot", store.Temporary())
	return store, nil
}

// openWritableStore opens the index selected with --db and rejects
// snapshots, whose changes would be discarded.
func openWritableStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if store.Temporary() {
		_ = store.Close()
		return nil, fmt.Errorf("database %q is a read-only snapshot: %w", cfg.Database, errReadOnlyStore)
	}
	return store, nil
}

// errReadOnlyStore is returned when a command would modify a URL snapshot.
var errReadOnlyStore = errors.New("changes to a downloaded index cannot be saved")

// reportFormat returns the output format selected by --json and --markdown.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// The returned stop function must be called to release the signal handler.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// addReportFlags adds the mutually exclusive output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
}

// addDBFlag adds the --db flag.
func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "",
		"Index to use: a file path, an http(s) URL, or a name from the configuration file (default: the default index)")
}
