package model

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultFilename is used when a URL has no last path segment,
// e.g. "http://example.com/".
const DefaultFilename = "index.html"

// LastModifiedLayout is the fixed RFC 1123 layout servers use for the
// Last-Modified header.
const LastModifiedLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// FileRecord represents one remote file discovered in an open directory.
// Records are created once by NewFileRecord and never mutated afterwards,
// apart from ID and Tags which are filled in by the store.
//
// Design decision: Optional attributes are pointers so that "unknown" (the
// server did not send the header, or quick mode skipped the HEAD request) is
// distinguishable from a zero value such as an empty file.
type FileRecord struct {
	// ID is the store primary key. Zero until the record is persisted.
	ID int64 `json:"id"`

	// URL is the absolute URL of the file.
	URL string `json:"url"`

	// Name is the percent-decoded last path segment of URL.
	Name string `json:"name"`

	// Domain is the host portion of URL (including the port, if any).
	Domain string `json:"domain"`

	// ContentType is the Content-Type header, nil when absent.
	ContentType *string `json:"content_type,omitempty"`

	// ContentLength is the Content-Length header in bytes, nil when absent
	// or not a number.
	ContentLength *int64 `json:"content_length,omitempty"`

	// LastModified is the parsed Last-Modified header, nil when absent or
	// unparseable.
	LastModified *time.Time `json:"last_modified,omitempty"`

	// LastIndexed is when the record was built, in UTC.
	LastIndexed time.Time `json:"last_indexed"`

	// Tags contains the names of the tags attached to the record.
	// Only populated for records read back from a store.
	Tags []string `json:"tags,omitempty"`
}

// Tag is a free-form label. Tags and records are many-to-many.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewFileRecord builds a FileRecord for a URL that has been classified as a
// file. head may be nil or empty (quick mode); every header-derived field is
// then nil.
func NewFileRecord(rawURL string, head Head, now time.Time) FileRecord {
	record := FileRecord{
		URL:          rawURL,
		Name:         URLToFilename(rawURL),
		Domain:       URLToDomain(rawURL),
		LastModified: CleanDateModified(head),
		LastIndexed:  now.UTC(),
	}

	if v, ok := head.Get(HeaderContentType); ok {
		contentType := v
		record.ContentType = &contentType
	}

	if v, ok := head.Get(HeaderContentLength); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			record.ContentLength = &n
		}
	}

	return record
}

// URLToDomain returns the part of rawURL between an optional "scheme://"
// prefix and the next "/". Without a scheme the domain starts at the first
// character; without a "/" it runs to the end of the string.
func URLToDomain(rawURL string) string {
	start := 0
	if i := strings.Index(rawURL, "://"); i >= 0 {
		start = i + len("://")
	}

	rest := rawURL[start:]
	if end := strings.Index(rest, "/"); end >= 0 {
		return rest[:end]
	}
	return rest
}

// URLToFilename returns the percent-decoded last path segment of rawURL,
// or DefaultFilename when that segment is empty.
func URLToFilename(rawURL string) string {
	segment := rawURL[strings.LastIndex(rawURL, "/")+1:]

	name, err := url.PathUnescape(segment)
	if err != nil {
		// Malformed escapes are kept verbatim
		name = segment
	}

	if name == "" {
		return DefaultFilename
	}
	return name
}

// ParseDateModified parses the Last-Modified header of head.
// It returns a zero time and nil error when the header is absent, and a
// *ParseError when the value does not match LastModifiedLayout.
func ParseDateModified(head Head) (time.Time, error) {
	value, ok := head.Get(HeaderLastModified)
	if !ok || value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(LastModifiedLayout, value)
	if err != nil {
		return time.Time{}, &ParseError{Field: HeaderLastModified, Value: value, Err: err}
	}
	return t.UTC(), nil
}

// CleanDateModified returns the Last-Modified time of head, or nil when the
// header is absent or cannot be parsed. It never fails.
func CleanDateModified(head Head) *time.Time {
	t, err := ParseDateModified(head)
	if err != nil || t.IsZero() {
		return nil
	}
	return &t
}
