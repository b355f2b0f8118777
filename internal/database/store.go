package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/opendir/internal/model"
)

// ErrFileNotFound is returned when a record ID does not exist in the store.
var ErrFileNotFound = errors.New("file not found in index")

// Store is a file index backed by a single SQLite database file.
// It manages the connection and provides methods for reading and writing
// file records and tags.
//
// Design decision: One Store is one database file. Named databases, URL
// snapshots and in-memory byte buffers all end up as a file on disk that is
// opened through the same code path (see Resolver).
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// path is the path to the SQLite database file.
	path string

	// temporary is true when path is a private snapshot that Close removes.
	temporary bool
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file (and its directory) if it
	// doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	// It is off by default so that a store stays one self-contained file that
	// can be copied or published as-is.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         false,
	}
}

// Open opens or creates the index store at path.
// If CreateIfNotExists is true, the parent directory and database file are
// created. Any failure is reported as a *model.StoreOpenError naming path.
func Open(path string, opts Options) (*Store, error) {
	store, err := open(path, opts)
	if err != nil {
		return nil, &model.StoreOpenError{Path: path, Err: err}
	}
	return store, nil
}

func open(path string, opts Options) (*Store, error) {
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found (use CreateIfNotExists option to create): %w", err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, errors.New("path is a directory")
	}

	// mode=rw prevents creating new files when the store must already exist.
	dsn := path + "?mode=rwc"
	if !opts.CreateIfNotExists {
		dsn = path + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{
		db:   db,
		path: path,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Temporary reports whether the store is a private snapshot of a URL or
// in-memory source. Writes to it are lost on Close.
func (s *Store) Temporary() bool {
	return s.temporary
}

// Close closes the database connection. Temporary snapshots are removed
// together with their SQLite side files.
func (s *Store) Close() error {
	err := s.db.Close()
	if !s.temporary {
		return err
	}

	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if rmErr := os.Remove(s.path + suffix); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("failed to remove temporary store: %w", rmErr)
		}
	}
	return err
}

// createTables creates the database schema if it doesn't exist.
// Timestamps are TEXT columns holding RFC 3339 values in UTC.
func (s *Store) createTables() error {
	schema := `
	-- One row per indexed remote file. URLs are not unique: re-indexing adds rows.
	CREATE TABLE IF NOT EXISTS file_index (
		pkid INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		last_indexed TEXT NOT NULL,
		content_type TEXT,
		last_modified TEXT,
		content_length INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_file_index_url ON file_index(url);
	CREATE INDEX IF NOT EXISTS idx_file_index_domain ON file_index(domain);

	CREATE TABLE IF NOT EXISTS tags (
		pkid INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);

	CREATE TABLE IF NOT EXISTS file_tags (
		file_pkid INTEGER NOT NULL REFERENCES file_index(pkid),
		tag_pkid INTEGER NOT NULL REFERENCES tags(pkid)
	);

	CREATE INDEX IF NOT EXISTS idx_file_tags_file ON file_tags(file_pkid);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

const insertFileQuery = `
	INSERT INTO file_index (url, name, domain, last_indexed, content_type, last_modified, content_length)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

// SaveFiles inserts records in a single transaction: either every record is
// stored or none is. The assigned IDs are written back into records.
func (s *Store) SaveFiles(ctx context.Context, records []model.FileRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	stmt, err := tx.PrepareContext(ctx, insertFileQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(records))
	for i := range records {
		result, err := stmt.ExecContext(ctx, fileArgs(&records[i])...)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", records[i].URL, err)
		}
		if ids[i], err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read id of %s: %w", records[i].URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file records: %w", err)
	}

	for i := range records {
		records[i].ID = ids[i]
	}
	return nil
}

// AddFile inserts a single record and sets its ID.
func (s *Store) AddFile(ctx context.Context, record *model.FileRecord) error {
	result, err := s.db.ExecContext(ctx, insertFileQuery, fileArgs(record)...)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", record.URL, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read id of %s: %w", record.URL, err)
	}
	record.ID = id
	return nil
}

func fileArgs(record *model.FileRecord) []any {
	var contentType, lastModified sql.NullString
	var contentLength sql.NullInt64

	if record.ContentType != nil {
		contentType = sql.NullString{String: *record.ContentType, Valid: true}
	}
	if record.LastModified != nil {
		lastModified = sql.NullString{String: formatTimestamp(*record.LastModified), Valid: true}
	}
	if record.ContentLength != nil {
		contentLength = sql.NullInt64{Int64: *record.ContentLength, Valid: true}
	}

	return []any{
		record.URL,
		record.Name,
		record.Domain,
		formatTimestamp(record.LastIndexed),
		contentType,
		lastModified,
		contentLength,
	}
}

const selectFileColumns = `
	SELECT pkid, url, name, domain, last_indexed, content_type, last_modified, content_length
	FROM file_index
	`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (model.FileRecord, error) {
	var record model.FileRecord
	var lastIndexed string
	var contentType, lastModified sql.NullString
	var contentLength sql.NullInt64

	err := row.Scan(
		&record.ID,
		&record.URL,
		&record.Name,
		&record.Domain,
		&lastIndexed,
		&contentType,
		&lastModified,
		&contentLength,
	)
	if err != nil {
		return model.FileRecord{}, err
	}

	record.LastIndexed = parseTimestamp(lastIndexed)
	if contentType.Valid {
		record.ContentType = &contentType.String
	}
	if lastModified.Valid {
		if t := parseTimestamp(lastModified.String); !t.IsZero() {
			record.LastModified = &t
		}
	}
	if contentLength.Valid {
		record.ContentLength = &contentLength.Int64
	}

	return record, nil
}

// GetFile retrieves a record by ID, with its tags.
// It returns nil and no error when the ID does not exist.
func (s *Store) GetFile(ctx context.Context, id int64) (*model.FileRecord, error) {
	record, err := scanFile(s.db.QueryRowContext(ctx, selectFileColumns+" WHERE pkid = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", id, err)
	}

	tags, err := s.tagsByFile(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Tags = tags[id]

	return &record, nil
}

// EachFile calls fn for every record in ID order, with tags attached.
// Iteration stops at the first error returned by fn.
// fn must not call back into the Store: the single connection is held until
// iteration finishes.
func (s *Store) EachFile(ctx context.Context, fn func(model.FileRecord) error) error {
	tags, err := s.tagsByFile(ctx, 0)
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, selectFileColumns+" ORDER BY pkid")
	if err != nil {
		return fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanFile(rows)
		if err != nil {
			return fmt.Errorf("failed to scan file: %w", err)
		}
		record.Tags = tags[record.ID]

		if err := fn(record); err != nil {
			return err
		}
	}

	return rows.Err()
}

// Files returns every record in ID order.
func (s *Store) Files(ctx context.Context) ([]model.FileRecord, error) {
	records := make([]model.FileRecord, 0)
	err := s.EachFile(ctx, func(r model.FileRecord) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// CountFiles returns the number of records in the store.
func (s *Store) CountFiles(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_index").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}
	return count, nil
}

// tagsByFile maps file IDs to their tag names in tag ID order.
// A fileID of 0 loads the tags of every file.
func (s *Store) tagsByFile(ctx context.Context, fileID int64) (map[int64][]string, error) {
	query := `
	SELECT ft.file_pkid, t.name
	FROM file_tags ft
	JOIN tags t ON t.pkid = ft.tag_pkid
	WHERE 1=1
	`
	args := make([]any, 0)

	if fileID != 0 {
		query += " AND ft.file_pkid = ?"
		args = append(args, fileID)
	}
	query += " ORDER BY ft.file_pkid, t.pkid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags[id] = append(tags[id], name)
	}

	return tags, rows.Err()
}

// AddTag attaches the tag name to a record. The first existing tag with that
// name is reused; a new one is created otherwise. Tagging a record twice with
// the same name is a no-op.
func (s *Store) AddTag(ctx context.Context, fileID int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &model.ValidationError{Field: "tag name", Reason: "must not be empty"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_index WHERE pkid = ?", fileID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up file %d: %w", fileID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %d", ErrFileNotFound, fileID)
	}

	var tagID int64
	err = tx.QueryRowContext(ctx, "SELECT pkid FROM tags WHERE name = ? ORDER BY pkid LIMIT 1", name).Scan(&tagID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
		if err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		if tagID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read id of tag %q: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up tag %q: %w", name, err)
	}

	var linked int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_tags WHERE file_pkid = ? AND tag_pkid = ?", fileID, tagID,
	).Scan(&linked); err != nil {
		return fmt.Errorf("failed to check tag %q: %w", name, err)
	}
	if linked == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO file_tags (file_pkid, tag_pkid) VALUES (?, ?)", fileID, tagID,
		); err != nil {
			return fmt.Errorf("failed to tag file %d: %w", fileID, err)
		}
	}

	return tx.Commit()
}

// RemoveTag detaches every tag called name from a record.
// It reports whether anything was removed. Tags themselves are kept.
func (s *Store) RemoveTag(ctx context.Context, fileID int64, name string) (bool, error) {
	query := `
	DELETE FROM file_tags
	WHERE file_pkid = ? AND tag_pkid IN (SELECT pkid FROM tags WHERE name = ?)
	`

	result, err := s.db.ExecContext(ctx, query, fileID, strings.TrimSpace(name))
	if err != nil {
		return false, fmt.Errorf("failed to remove tag %q from file %d: %w", name, fileID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove tag %q from file %d: %w", name, fileID, err)
	}
	return n > 0, nil
}

// ListTags returns every tag in ID order.
func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT pkid, name FROM tags ORDER BY pkid")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.Tag, 0)
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}

// formatTimestamp renders t for storage.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that may be found in a store.
// Stores written by other tools may use SQLite's default datetime format.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by this package
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
