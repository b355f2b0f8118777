package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/opendir/internal/download"
	"github.com/nao1215/opendir/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteFiles outputs records as a Markdown table.
func (w *MarkdownWriter) WriteFiles(files []model.FileRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H2("Files")
	md.PlainText("")

	if len(files) == 0 {
		md.PlainText("No files found.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(files))
	for i, f := range files {
		size := placeholder
		if f.ContentLength != nil {
			size = strconv.FormatInt(*f.ContentLength, 10)
		}
		tags := placeholder
		if len(f.Tags) > 0 {
			tags = strings.Join(f.Tags, ", ")
		}

		rows[i] = []string{
			strconv.FormatInt(f.ID, 10),
			f.Name,
			size,
			contentType(f),
			lastModified(f),
			tags,
			"[" + truncateString(f.URL, urlColumnWidth) + "](" + f.URL + ")",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name", "Size (bytes)", "Type", "Modified", "Tags", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("%d file(s)", len(files))

	return len(md.String()), md.Build()
}

// WriteDatabases outputs the configured databases as a Markdown table.
func (w *MarkdownWriter) WriteDatabases(databases []DatabaseEntry) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H2("Databases")
	md.PlainText("")

	if len(databases) == 0 {
		md.PlainText("No databases configured.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(databases))
	for i, db := range databases {
		rows[i] = []string{db.Name, db.Type, "`" + db.Resource + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Type", "Resource"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteDownloads outputs finished downloads as a Markdown table.
func (w *MarkdownWriter) WriteDownloads(results []*download.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H2("Downloads")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("Nothing downloaded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{r.URL, "`" + r.Path + "`", strconv.FormatInt(r.Size, 10), "`" + r.SHA3 + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Path", "Size (bytes)", "SHA3-256"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}
