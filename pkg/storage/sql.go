package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libsql / Turso
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// createdAtLayout is ISO-8601 with millisecond precision, e.g.
// 2024-05-01T12:00:00.000Z.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

const sqlSchema = `
CREATE TABLE IF NOT EXISTS links (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	clicks     INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);`

// SQLStore persists links in SQLite, either a local file through
// modernc.org/sqlite or a remote libsql database.
type SQLStore struct {
	db *sql.DB
}

// SQLDriverFor picks the database/sql driver for a DSN. libsql://, wss://
// and http(s):// go to the libsql client, everything else is local SQLite.
func SQLDriverFor(dsn string) string {
	for _, prefix := range []string{"libsql://", "wss://", "ws://", "https://", "http://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

// OpenSQL opens the database and creates the links table if missing.
func OpenSQL(ctx context.Context, dsn string) (*SQLStore, error) {
	driver := SQLDriverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time; also keeps a :memory: database alive on a
		// single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w: %w", driver, ErrUnavailable, err)
	}
	if err := MigrateSQL(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// MigrateSQL creates the links table. It is safe to run repeatedly.
func MigrateSQL(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM links WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %q: %w: %w", id, ErrUnavailable, err)
	}
	return true, nil
}

func (s *SQLStore) Insert(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (id, url, clicks, created_at) VALUES (?, ?, ?, ?)`
	createdAt := link.CreatedAt.UTC().Format(createdAtLayout)
	if _, err := s.db.ExecContext(ctx, query, link.ID, link.URL, link.Clicks, createdAt); err != nil {
		if isSQLiteDuplicate(err) {
			return fmt.Errorf("insert %q: %w", link.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("insert %q: %w: %w", link.ID, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Lookup(ctx context.Context, id string) (*Link, error) {
	query := `SELECT id, url, clicks, created_at FROM links WHERE id = ?`
	var (
		link      Link
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&link.ID, &link.URL, &link.Clicks, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w: %w", id, ErrUnavailable, err)
	}
	link.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: bad created_at %q: %w", id, createdAt, err)
	}
	return &link, nil
}

func (s *SQLStore) IncrementClicks(ctx context.Context, id string, expectedClicks int64) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE id = ? AND clicks = ?`
	if _, err := s.db.ExecContext(ctx, query, id, expectedClicks); err != nil {
		return fmt.Errorf("increment %q: %w: %w", id, ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func isSQLiteDuplicate(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	// The libsql client only hands back the message text.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLITE_CONSTRAINT_PRIMARYKEY")
}
