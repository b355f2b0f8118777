// Package search finds indexed files by name, URL or tag.
package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nao1215/opendir/internal/model"
)

// FileSource iterates over indexed records in a stable order.
// *database.Store implements it.
type FileSource interface {
	EachFile(ctx context.Context, fn func(model.FileRecord) error) error
}

// Engine executes substring queries over a FileSource.
//
// Matching is case-insensitive using Unicode case folding, so "RELEASE"
// matches "release.tar" and "STRASSE" matches "straße". A record matches
// when any term occurs in its name, its URL or one of its tag names.
type Engine struct {
	src    FileSource
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine reading from src.
func NewEngine(src FileSource, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns the records matching any of terms, deduplicated by ID and
// in the order of the source (ID order for a store).
// Blank terms are ignored; with no usable term the result is empty, never
// the whole index.
func (e *Engine) Search(ctx context.Context, terms []string) ([]model.FileRecord, error) {
	caser := cases.Fold()

	folded := make([]string, 0, len(terms))
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		folded = append(folded, caser.String(term))
	}

	results := make([]model.FileRecord, 0)
	if len(folded) == 0 {
		return results, nil
	}

	seen := make(map[int64]bool)
	err := e.src.EachFile(ctx, func(record model.FileRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[record.ID] {
			return nil
		}
		if matches(caser, record, folded) {
			seen[record.ID] = true
			results = append(results, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("search finished", "terms", len(folded), "matches", len(results))
	return results, nil
}

func matches(caser cases.Caser, record model.FileRecord, terms []string) bool {
	fields := make([]string, 0, 2+len(record.Tags))
	fields = append(fields, caser.String(record.Name), caser.String(record.URL))
	for _, tag := range record.Tags {
		fields = append(fields, caser.String(tag))
	}

	for _, term := range terms {
		for _, field := range fields {
			if strings.Contains(field, term) {
				return true
			}
		}
	}
	return false
}
