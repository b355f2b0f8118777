package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/opendir/internal/download"
	"github.com/nao1215/opendir/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the records are small, flat, and already carry
// struct tags.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteFiles outputs records as a JSON array. An empty result is "[]",
// never "null".
func (w *JSONWriter) WriteFiles(files []model.FileRecord) (int, error) {
	if files == nil {
		files = []model.FileRecord{}
	}
	return w.writeJSON(files)
}

// WriteDatabases outputs the configured databases as a JSON array.
func (w *JSONWriter) WriteDatabases(databases []DatabaseEntry) (int, error) {
	if databases == nil {
		databases = []DatabaseEntry{}
	}
	return w.writeJSON(databases)
}

// WriteDownloads outputs finished downloads as a JSON array.
func (w *JSONWriter) WriteDownloads(results []*download.Result) (int, error) {
	if results == nil {
		results = []*download.Result{}
	}
	return w.writeJSON(results)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
