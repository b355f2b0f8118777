package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/opendir/internal/download"
	"github.com/nao1215/opendir/internal/model"
)

// Column limits of the text tables. URLs wrap instead of stretching the
// terminal.
const (
	nameColumnWidth = 40
	urlColumnWidth  = 60
)

// SimpleWriter outputs human-readable tables for terminal display.
//
// Design decision: Sizes and timestamps are humanized ("1.5 MiB",
// "3 days ago") because this output is only ever read by people. Tools
// should use JSONWriter.
type SimpleWriter struct {
	baseWriter

	// style is the go-pretty table style.
	style table.Style
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithStyle sets the table style.
func WithStyle(style table.Style) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.style = style
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		style:      table.StyleLight,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// newTable creates a table writer with the configured style.
func (w *SimpleWriter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(w.style)
	return t
}

// WriteFiles outputs records as a table followed by a total line.
func (w *SimpleWriter) WriteFiles(files []model.FileRecord) (int, error) {
	if len(files) == 0 {
		return io.WriteString(w.output, "No files found.\n")
	}

	t := w.newTable()
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Name", WidthMax: nameColumnWidth},
		{Name: "URL", WidthMax: urlColumnWidth},
	})
	t.AppendHeader(table.Row{"ID", "Name", "Size", "Type", "Modified", "Indexed", "Tags", "URL"})

	var total uint64
	for _, f := range files {
		size := placeholder
		if f.ContentLength != nil && *f.ContentLength >= 0 {
			size = humanize.IBytes(uint64(*f.ContentLength))
			total += uint64(*f.ContentLength)
		}

		tags := placeholder
		if len(f.Tags) > 0 {
			tags = strings.Join(f.Tags, ", ")
		}

		t.AppendRow(table.Row{
			f.ID,
			f.Name,
			size,
			contentType(f),
			lastModified(f),
			humanize.Time(f.LastIndexed),
			tags,
			f.URL,
		})
	}
	t.AppendFooter(table.Row{"", "Total", humanize.IBytes(total)})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s file(s)\n", humanize.Comma(int64(len(files)))))

	return io.WriteString(w.output, sb.String())
}

// WriteDatabases outputs the configured databases as a table.
func (w *SimpleWriter) WriteDatabases(databases []DatabaseEntry) (int, error) {
	if len(databases) == 0 {
		return io.WriteString(w.output, "No databases configured.\n")
	}

	t := w.newTable()
	t.AppendHeader(table.Row{"Name", "Type", "Resource"})
	for _, db := range databases {
		t.AppendRow(table.Row{db.Name, db.Type, db.Resource})
	}

	return io.WriteString(w.output, t.Render()+"\n")
}

// WriteDownloads outputs finished downloads with their SHA3-256 digests.
func (w *SimpleWriter) WriteDownloads(results []*download.Result) (int, error) {
	if len(results) == 0 {
		return io.WriteString(w.output, "Nothing downloaded.\n")
	}

	t := w.newTable()
	t.AppendHeader(table.Row{"Path", "Size", "SHA3-256"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Path, humanize.IBytes(uint64(r.Size)), r.SHA3}) //nolint:gosec // sizes are never negative
	}
	t.AppendFooter(table.Row{"Total", strconv.Itoa(len(results))})

	return io.WriteString(w.output, t.Render()+"\n")
}
