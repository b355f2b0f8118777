// Package download fetches remote files to the local filesystem.
//
// A download is a plain GET whose body is written to disk. The response
// headers are returned so that the caller can index the file with the same
// metadata a crawl would have recorded.
package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/opendir/internal/model"
)

// Result describes a finished download.
type Result struct {
	// URL is the downloaded URL.
	URL string `json:"url"`

	// Path is where the body was written.
	Path string `json:"path"`

	// Size is the number of bytes written.
	Size int64 `json:"size"`

	// SHA3 is the hex-encoded SHA3-256 digest of the body.
	SHA3 string `json:"sha3_256"`

	// Head holds the response headers.
	Head model.Head `json:"-"`
}

// Downloader writes GET response bodies into a directory.
type Downloader struct {
	client      *http.Client
	dir         string
	userAgent   string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithDirectory sets the output directory. The default is the working directory.
func WithDirectory(dir string) Option {
	return func(d *Downloader) {
		d.dir = dir
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithConcurrency sets how many downloads DownloadAll runs in parallel.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDownloader creates a Downloader using client.
func NewDownloader(client *http.Client, opts ...Option) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}

	d := &Downloader{
		client:      client,
		dir:         ".",
		userAgent:   "opendir",
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches rawURL and writes it to the output directory under the
// file name derived from the URL. A non-200 response is a
// *model.NetworkError and leaves no file behind.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Result, error) {
	return d.downloadTo(ctx, rawURL, localName(rawURL))
}

// downloadTo fetches rawURL into name inside the output directory.
func (d *Downloader) downloadTo(ctx context.Context, rawURL, name string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &model.NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.NetworkError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(d.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(d.dir, name)
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	hash := sha3.New256()
	size, err := io.Copy(io.MultiWriter(f, hash), resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}

	d.logger.Info("downloaded file", "url", rawURL, "path", path, "bytes", size)

	return &Result{
		URL:  rawURL,
		Path: path,
		Size: size,
		SHA3: hex.EncodeToString(hash.Sum(nil)),
		Head: model.HeadFromHeader(resp.Header),
	}, nil
}

// DownloadAll downloads every URL with bounded parallelism.
// Results keep the order of urls. The first error cancels the remaining
// downloads and is returned together with the results finished so far
// (failed entries are nil). URLs sharing a file name are written to
// distinct files ("f.txt", "f-1.txt", ...).
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) ([]*Result, error) {
	results := make([]*Result, len(urls))
	names := uniqueNames(urls)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, rawURL := range urls {
		g.Go(func() error {
			result, err := d.downloadTo(ctx, rawURL, names[i])
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	return results, g.Wait()
}

// localName returns a safe file name for rawURL inside the output directory.
func localName(rawURL string) string {
	name := filepath.Base(filepath.FromSlash(model.URLToFilename(rawURL)))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return model.DefaultFilename
	}
	return name
}

// uniqueNames returns one local file name per URL. Repeated names get a
// numeric suffix before the extension.
func uniqueNames(urls []string) []string {
	names := make([]string, len(urls))
	taken := make(map[string]bool, len(urls))
	for i, rawURL := range urls {
		name := localName(rawURL)
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
