package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nao1215/opendir/internal/model"
)

// Kind is the outcome of classifying a URL.
type Kind int

const (
	// KindDropped means the URL is neither recorded nor followed.
	KindDropped Kind = iota

	// KindDirectory means the URL is a listing whose links should be read.
	KindDirectory

	// KindFile means the URL is a file that should be recorded.
	KindFile
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindDropped:
		return "dropped"
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Classification is the result of triaging a single URL.
//
// Design decision: A dropped URL is an explicit value with a reason rather
// than a silent skip, so that callers and tests can see what was left out
// and why.
type Classification struct {
	// URL is the classified URL.
	URL string

	// Kind is the outcome.
	Kind Kind

	// Head holds the response headers for files classified by HEAD request.
	// It is empty in quick mode.
	Head model.Head

	// StatusCode is the HEAD response status, or 0 when no response was received.
	StatusCode int

	// Reason explains why a URL was dropped.
	Reason string
}

// Classifier decides what a URL is.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) Classification
}

// Mode selects the classification strategy of a Spider.
type Mode int

const (
	// ModeStandard classifies URLs with a HEAD request.
	ModeStandard Mode = iota

	// ModeQuick classifies URLs by their trailing slash without any request.
	ModeQuick
)

// String returns the flag value of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeQuick:
		return "quick"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return ModeStandard, nil
	case "quick":
		return ModeQuick, nil
	default:
		return 0, &model.ValidationError{
			Field:  "classifier mode",
			Value:  s,
			Reason: "must be one of: standard, quick",
		}
	}
}

// IsDirectory reports whether a HEAD response describes a generated
// directory listing. Listings are dynamic pages served as text/html without
// a Last-Modified header; an HTML file saved on disk carries one.
func IsDirectory(head model.Head) bool {
	contentType, _ := head.Get(model.HeaderContentType)
	if !strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return false
	}
	return !head.Has(model.HeaderLastModified)
}

// StandardClassifier classifies URLs with an HTTP HEAD request.
type StandardClassifier struct {
	client    *http.Client
	userAgent string
}

// NewStandardClassifier creates a StandardClassifier using client.
func NewStandardClassifier(client *http.Client, userAgent string) *StandardClassifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &StandardClassifier{client: client, userAgent: userAgent}
}

// Classify issues a HEAD request for rawURL. Transport errors and non-200
// statuses drop the URL.
func (c *StandardClassifier) Classify(ctx context.Context, rawURL string) Classification {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Classification{URL: rawURL, Kind: KindDropped, Reason: fmt.Sprintf("invalid request: %v", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{URL: rawURL, Kind: KindDropped, Reason: fmt.Sprintf("head request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Classification{
			URL:        rawURL,
			Kind:       KindDropped,
			StatusCode: resp.StatusCode,
			Reason:     "unexpected status " + resp.Status,
		}
	}

	head := model.HeadFromHeader(resp.Header)
	kind := KindFile
	if IsDirectory(head) {
		kind = KindDirectory
	}

	return Classification{URL: rawURL, Kind: kind, Head: head, StatusCode: resp.StatusCode}
}

// QuickClassifier classifies URLs without touching the network.
type QuickClassifier struct{}

// Classify treats URLs ending in "/" as directories and everything else as
// files without metadata.
func (QuickClassifier) Classify(_ context.Context, rawURL string) Classification {
	if strings.HasSuffix(rawURL, "/") {
		return Classification{URL: rawURL, Kind: KindDirectory}
	}
	return Classification{URL: rawURL, Kind: KindFile, Head: model.Head{}}
}
