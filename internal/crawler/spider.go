package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/opendir/internal/model"
)

// Drop reasons reported by the Spider itself. Classifiers add their own.
const (
	reasonAlreadySeen = "already seen"
	reasonMaxDepth    = "beyond max depth"
	reasonIgnored     = "matches ignore pattern"
)

// RecordSink receives the files found during one level of the crawl.
// SaveFiles is called once per level and must persist the whole batch
// atomically; *database.Store implements it with a single transaction.
type RecordSink interface {
	SaveFiles(ctx context.Context, records []model.FileRecord) error
}

// Drop describes a URL that was neither recorded nor followed.
type Drop struct {
	// URL is the dropped URL.
	URL string

	// Reason explains why the URL was dropped.
	Reason string

	// StatusCode is the HTTP status that caused the drop, if any.
	StatusCode int
}

// Result summarises a finished crawl.
type Result struct {
	// Levels is the number of passes of the driver loop.
	Levels int

	// DirectoriesListed is the number of listing pages read successfully.
	DirectoriesListed int

	// FilesFound is the number of records handed to the sink.
	FilesFound int

	// Dropped lists every URL that was skipped, in the order it was skipped.
	Dropped []Drop
}

func (r *Result) drop(d Drop) {
	r.Dropped = append(r.Dropped, d)
}

// Spider crawls open directory listings.
// It owns the three work queues and the visited set; a Spider must not run
// two crawls at the same time.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
type Spider struct {
	// client is used for listing GETs and, in standard mode, HEAD requests.
	client *http.Client

	// mode selects the classifier when none is supplied explicitly.
	mode Mode

	// classifier triages pending URLs.
	classifier Classifier

	// concurrency limits parallel requests within one level.
	concurrency int

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of listing pages to read.
	maxBodySize int64

	// maxDepth limits how many levels below the seeds are followed.
	// 0 means unlimited.
	maxDepth int

	// ignorePatterns are URL path patterns to skip.
	// Patterns use glob syntax (e.g., "*.iso", "/pub/old/*").
	ignorePatterns []string

	logger *slog.Logger

	// now returns the indexing timestamp for new records.
	now func() time.Time

	// visited tracks normalized URLs already queued.
	visited map[string]bool

	// mutex protects concurrent access to visited.
	mutex sync.Mutex
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMode selects the classification strategy.
func WithMode(mode Mode) SpiderOption {
	return func(s *Spider) {
		s.mode = mode
	}
}

// withClassifier replaces the mode-selected classifier.
func withClassifier(c Classifier) SpiderOption {
	return func(s *Spider) {
		s.classifier = c
	}
}

// WithConcurrency sets how many requests run in parallel within a level.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		s.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum listing page size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithMaxDepth limits how many levels below the seeds are followed.
// 0 (the default) means unlimited.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
// Patterns use glob syntax (e.g., "/private/*", "*.iso").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for FileRecord.LastIndexed.
func WithClock(now func() time.Time) SpiderOption {
	return func(s *Spider) {
		s.now = now
	}
}

// NewSpider creates a new Spider with the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeouts and transports are configured by the caller
//  2. Allows for httptest servers in tests
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = http.DefaultClient
	}

	s := &Spider{
		client:      client,
		mode:        ModeStandard,
		concurrency: 8,
		userAgent:   "opendir",
		maxBodySize: 10 * 1024 * 1024, // 10MB
		logger:      slog.Default(),
		now:         time.Now,
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.classifier == nil {
		switch s.mode {
		case ModeQuick:
			s.classifier = QuickClassifier{}
		default:
			s.classifier = NewStandardClassifier(s.client, s.userAgent)
		}
	}

	return s
}

// queueItem is a URL together with the level it was discovered on.
type queueItem struct {
	url   string
	depth int
}

// listing is the outcome of reading one directory page.
type listing struct {
	links []string
	err   error
}

// Crawl traverses the open directories reachable from seeds and hands every
// file it finds to sink, one batch per level.
//
// The loop runs until the pending, directories and files queues are all
// empty. Each pass drains them in order: classify pending URLs, read the
// listings of confirmed directories (which refills pending), then save the
// confirmed files. URLs are deduplicated by their normalized form, so cyclic
// listings terminate.
//
// Failures on individual URLs are recorded in Result.Dropped. Crawl returns
// an error only for invalid seeds, a failing sink or a cancelled context; in
// the last two cases the partial Result is returned as well.
//
// Each call starts with an empty visited set, so a Spider can crawl the same
// tree again. Calls on one Spider must not run concurrently.
func (s *Spider) Crawl(ctx context.Context, seeds []string, sink RecordSink) (*Result, error) {
	if err := s.validate(seeds); err != nil {
		return nil, err
	}
	s.reset()

	result := &Result{Dropped: make([]Drop, 0)}

	pending := make([]queueItem, 0, len(seeds))
	for _, seed := range seeds {
		if !s.markVisited(seed) {
			result.drop(Drop{URL: seed, Reason: reasonAlreadySeen})
			continue
		}
		pending = append(pending, queueItem{url: seed, depth: 0})
	}

	var directories []queueItem
	var files []Classification

	for len(pending)+len(directories)+len(files) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Levels++

		// Triage every pending URL.
		for i, c := range s.classifyAll(ctx, pending) {
			switch c.Kind {
			case KindDirectory:
				directories = append(directories, queueItem{url: c.URL, depth: pending[i].depth})
			case KindFile:
				files = append(files, c)
			default:
				s.logger.Debug("dropped url", "url", c.URL, "reason", c.Reason, "status", c.StatusCode)
				result.drop(Drop{URL: c.URL, Reason: c.Reason, StatusCode: c.StatusCode})
			}
		}
		pending = nil

		// Read every confirmed directory; its links become the next level.
		for i, l := range s.listAll(ctx, directories) {
			dir := directories[i]
			if l.err != nil {
				s.logger.Debug("dropped directory", "url", dir.url, "error", l.err)
				result.drop(Drop{URL: dir.url, Reason: l.err.Error()})
				continue
			}
			result.DirectoriesListed++

			for _, link := range l.links {
				if reason, ok := s.admit(link, dir.depth+1); !ok {
					result.drop(Drop{URL: link, Reason: reason})
					continue
				}
				pending = append(pending, queueItem{url: link, depth: dir.depth + 1})
			}
		}
		directories = nil

		// Persist the files of this level in one batch.
		if len(files) > 0 {
			records := make([]model.FileRecord, 0, len(files))
			for _, c := range files {
				records = append(records, model.NewFileRecord(c.URL, c.Head, s.now()))
				s.logger.Info("found file", "url", c.URL)
			}
			if err := sink.SaveFiles(ctx, records); err != nil {
				return result, fmt.Errorf("failed to save %d file records: %w", len(records), err)
			}
			result.FilesFound += len(records)
			files = nil
		}
	}

	return result, nil
}

// validate checks the seed list before any request is made.
func (s *Spider) validate(seeds []string) error {
	if s.mode != ModeStandard && s.mode != ModeQuick {
		return &model.ValidationError{Field: "classifier mode", Value: s.mode.String(), Reason: "must be one of: standard, quick"}
	}
	if len(seeds) == 0 {
		return &model.ValidationError{Field: "seed list", Reason: "at least one URL is required"}
	}
	for _, seed := range seeds {
		if !strings.HasPrefix(seed, "http://") && !strings.HasPrefix(seed, "https://") {
			return &model.ValidationError{Field: "seed URL", Value: seed, Reason: "must start with http:// or https://"}
		}
	}
	return nil
}

// admit decides whether a discovered link joins the pending queue.
func (s *Spider) admit(link string, depth int) (string, bool) {
	if s.maxDepth > 0 && depth > s.maxDepth {
		return reasonMaxDepth, false
	}
	if !s.shouldCrawl(link) {
		return reasonIgnored, false
	}
	if !s.markVisited(link) {
		return reasonAlreadySeen, false
	}
	return "", true
}

// classifyAll classifies items in parallel. Results keep the input order.
func (s *Spider) classifyAll(ctx context.Context, items []queueItem) []Classification {
	results := make([]Classification, len(items))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.classifier.Classify(ctx, item.url)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // classification never returns an error

	return results
}

// listAll reads directory listings in parallel. Results keep the input order.
func (s *Spider) listAll(ctx context.Context, dirs []queueItem) []listing {
	results := make([]listing, len(dirs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, dir := range dirs {
		g.Go(func() error {
			links, err := s.fetchListing(ctx, dir.url)
			results[i] = listing{links: links, err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // listing errors are carried in the results

	return results
}

// fetchListing downloads a directory page and returns its absolute links.
// Links are resolved against the final URL after redirects.
func (s *Spider) fetchListing(ctx context.Context, dirURL string) ([]string, error) {
	s.logger.Info("searching directory", "url", dirURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	parser := newParserFromURL(resp.Request.URL)
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	if int64(len(body)) > s.maxBodySize {
		s.logger.Warn("listing truncated", "url", dirURL, "limit", s.maxBodySize)
		body = body[:s.maxBodySize]
	}

	links, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	return links, nil
}

// markVisited records pageURL and reports whether it was new.
func (s *Spider) markVisited(pageURL string) bool {
	key := normalizeURL(pageURL)

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.visited[key] {
		return false
	}
	s.visited[key] = true
	return true
}

// reset clears the visited set.
func (s *Spider) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
}

// normalizeURL normalizes a URL for deduplication.
//
// Design decision: We normalize URLs because:
//  1. Same resource can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. http://example.com and http://example.com/ are the same listing
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// shouldCrawl reports whether a URL survives the ignore patterns.
func (s *Spider) shouldCrawl(targetURL string) bool {
	if len(s.ignorePatterns) == 0 {
		return true
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/pub/old/*" matches "/pub/old/a.txt" and "/pub/old/b/"
//   - "*.iso" matches "/images/debian.iso"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path segment
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
