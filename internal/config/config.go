package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "opendir"

	// DefaultTimeout bounds each HTTP request. Open directories are usually
	// plain static web servers, so 30 seconds is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency is the number of HEAD/GET requests issued in
	// parallel within one crawl level.
	DefaultConcurrency = 8

	// DefaultMaxDepth of 0 follows listings to any depth. The visited set
	// guarantees termination on finite sites.
	DefaultMaxDepth = 0

	// DefaultUserAgent identifies opendir in HTTP requests.
	// Using a descriptive User-Agent allows operators to identify crawler
	// traffic in their logs.
	DefaultUserAgent = "opendir/1.0 (+https://github.com/nao1215/opendir)"

	// DefaultMaxBodySize limits the size of a listing page to read.
	// Listings of very large directories can reach several megabytes.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultDatabaseName is the reserved name of the default index store.
	DefaultDatabaseName = "default"

	// DefaultDatabaseFile is the file name of the default index store inside
	// the data directory.
	DefaultDatabaseFile = "default.db"

	// DefaultConfigFile is the file name of the configuration file inside the
	// config directory.
	DefaultConfigFile = "config.yaml"
)

// Config holds all runtime options for opendir commands.
// It is populated from CLI flags, with crawl defaults optionally taken from
// the configuration file, and passed to the commands explicitly.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, OutputConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// Concurrency is the number of parallel requests within one crawl level
	// or the number of parallel downloads.
	Concurrency int

	// MaxDepth limits how many levels below the seeds are followed.
	// 0 means unlimited.
	MaxDepth int

	// Quick selects trailing-slash classification instead of HEAD requests.
	Quick bool

	// IgnorePatterns are URL path globs that are never requested.
	IgnorePatterns []string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum listing page size in bytes.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// LogFile is an optional path of a rotating log file.
	LogFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// DataDir is the directory of the default index store.
	// Defaults to XDG data directory (~/.local/share/opendir on Linux).
	DataDir string

	// Database is the store descriptor selected with --db: a path, a URL,
	// or a name defined in the configuration file. Empty means the default store.
	Database string

	// JSONReport writes results as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes results as a Markdown table.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// File holds the configuration file contents, if one was loaded.
	File *File
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, concurrency).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		MaxDepth:    DefaultMaxDepth,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DataDir:     XDGDataDir(),
		File:        NewFile(),
	}
}

// DefaultStorePath returns the path of the default index store.
func (c *Config) DefaultStorePath() string {
	dir := c.DataDir
	if dir == "" {
		dir = XDGDataDir()
	}
	return filepath.Join(dir, DefaultDatabaseFile)
}

// ApplyDefaults copies crawl defaults from the configuration file into c.
// isSet reports whether the user set an option explicitly; such options are
// left untouched. Ignore patterns from the file are always added.
func (c *Config) ApplyDefaults(d CrawlDefaults, isSet func(option string) bool) {
	if d.Concurrency > 0 && !isSet("concurrency") {
		c.Concurrency = d.Concurrency
	}
	if d.Depth > 0 && !isSet("depth") {
		c.MaxDepth = d.Depth
	}
	if d.Quick && !isSet("quick") {
		c.Quick = true
	}
	if d.UserAgent != "" && !isSet("user-agent") {
		c.UserAgent = d.UserAgent
	}
	if d.Timeout > 0 && !isSet("timeout") {
		c.Timeout = d.Timeout
	}
	c.IgnorePatterns = append(c.IgnorePatterns, d.IgnorePatterns...)
}

// XDGDataDir returns the XDG data directory for opendir.
// On Linux: ~/.local/share/opendir
// On macOS: ~/Library/Application Support/opendir
// On Windows: %LOCALAPPDATA%\opendir
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for opendir.
// On Linux: ~/.config/opendir
// On macOS: ~/Library/Application Support/opendir
// On Windows: %APPDATA%\opendir
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultConfigFilePath returns where the configuration file is written
// when no explicit path is given.
func DefaultConfigFilePath() string {
	return filepath.Join(XDGConfigDir(), DefaultConfigFile)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Concurrency must be positive; zero would mean no requests at all
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
