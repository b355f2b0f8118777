package report

import (
	"io"

	"github.com/nao1215/opendir/internal/download"
	"github.com/nao1215/opendir/internal/model"
)

// Writer defines the interface for report output.
// Each method returns the number of bytes written and any error encountered.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or pipes with the
// same API.
type Writer interface {
	// WriteFiles outputs index records, typically search results.
	WriteFiles(files []model.FileRecord) (int, error)

	// WriteDatabases outputs the configured databases.
	WriteDatabases(databases []DatabaseEntry) (int, error)

	// WriteDownloads outputs finished downloads with their checksums.
	WriteDownloads(results []*download.Result) (int, error)
}

// DatabaseEntry is one configured database as shown by "db list".
type DatabaseEntry struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Resource string `json:"resource"`
}

// Format selects a Writer implementation.
type Format int

const (
	// FormatText renders plain-text tables.
	FormatText Format = iota
	// FormatMarkdown renders Markdown tables.
	FormatMarkdown
	// FormatJSON renders indented JSON.
	FormatJSON
)

// NewWriter returns the Writer for format writing to output.
func NewWriter(format Format, output io.Writer) Writer {
	switch format {
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// placeholder is shown for unknown values.
const placeholder = "-"

// timeLayout is used for absolute timestamps in text and Markdown output.
const timeLayout = "2006-01-02 15:04"

func contentType(f model.FileRecord) string {
	if f.ContentType == nil || *f.ContentType == "" {
		return placeholder
	}
	return *f.ContentType
}

func lastModified(f model.FileRecord) string {
	if f.LastModified == nil {
		return placeholder
	}
	return f.LastModified.UTC().Format(timeLayout)
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
