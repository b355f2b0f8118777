// Package report renders index contents for the terminal and for other tools.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain-text tables for terminal display
//   - MarkdownWriter: Markdown tables for documentation and sharing
//   - JSONWriter: structured JSON output for tool integration
//
// Design decision: We separate output formatting from the model and store
// packages so that adding a format never touches how records are built or
// persisted.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably by the commands.
package report
