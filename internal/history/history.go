// Package history keeps a local SQLite ledger of uploads and shared links
// produced by the CLI, so recent links can be listed again later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DBFileName is the ledger file name inside the data directory.
const DBFileName = "history.db"

// Actions recorded in the ledger.
const (
	ActionUpload = "upload"
	ActionLink   = "link"
)

// ErrInvalidEntry is returned by Record for incomplete entries.
var ErrInvalidEntry = errors.New("history: invalid entry")

const (
	sqlInsertLink = `INSERT INTO links (action, local_path, remote_path, url, created_at)
		VALUES (?, ?, ?, ?, ?)`

	sqlRecentLinks = `SELECT id, action, local_path, remote_path, url, created_at
		FROM links ORDER BY created_at DESC, id DESC LIMIT ?`
)

// Entry is one recorded link.
type Entry struct {
	ID         int64
	Action     string
	LocalPath  string
	RemotePath string
	URL        string
	CreatedAt  time.Time
}

// Store is the ledger database. It is safe for use by one process.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the ledger at dbPath and migrates it.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// dsn builds the sqlite URI for dbPath. The path is escaped so that "?"
// and "#" in a directory name are not read as the query or fragment.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "busy_timeout(5000)")

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(dbPath),
		RawQuery: q.Encode(),
	}

	return u.String()
}

// Record appends an entry. A zero CreatedAt is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.URL == "" || (e.Action != ActionUpload && e.Action != ActionLink) {
		return fmt.Errorf("%w: action %q url %q", ErrInvalidEntry, e.Action, e.URL)
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.nowFunc()
	}

	_, err := s.db.ExecContext(ctx, sqlInsertLink,
		e.Action, e.LocalPath, e.RemotePath, e.URL, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("history: recording %s: %w", e.RemotePath, err)
	}

	s.logger.Debug("recorded link",
		slog.String("action", e.Action),
		slog.String("remote_path", e.RemotePath),
	)

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, sqlRecentLinks, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent links: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			ns int64
		)

		if err := rows.Scan(&e.ID, &e.Action, &e.LocalPath, &e.RemotePath, &e.URL, &ns); err != nil {
			return nil, fmt.Errorf("history: scanning link row: %w", err)
		}

		e.CreatedAt = time.Unix(0, ns)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating link rows: %w", err)
	}

	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
