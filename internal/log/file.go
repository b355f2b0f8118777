package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits of the log file.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

// NewFileWriter returns a size-rotated log file writer at path.
// The directory is created if needed.
func NewFileWriter(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		LocalTime:  true,
	}, nil
}

// NewLogger builds the application logger: secure text output on w and,
// when logFile is set, a JSON copy of every record at debug level in a
// rotating file. The returned closer must be called before exit.
func NewLogger(w io.Writer, verbose bool, logFile string) (*slog.Logger, io.Closer, error) {
	console := NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)}))
	if logFile == "" {
		return slog.New(console), nopCloser{}, nil
	}

	file, err := NewFileWriter(logFile)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := NewSecureHandler(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return slog.New(teeHandler{console, fileHandler}), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// teeHandler sends every record to all of its handlers that accept its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
