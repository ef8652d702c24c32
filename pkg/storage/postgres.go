package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects a pool and verifies it with a ping. The schema is
// managed separately by the migrations package.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w: %w", ErrUnavailable, err)
	}
	return NewPostgresStore(pool), nil
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %q: %w: %w", id, ErrUnavailable, err)
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (id, url, clicks, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, link.ID, link.URL, link.Clicks, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert %q: %w", link.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("insert %q: %w: %w", link.ID, ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Lookup(ctx context.Context, id string) (*Link, error) {
	query := `SELECT id, url, clicks, created_at FROM links WHERE id = $1`
	var link Link
	err := s.pool.QueryRow(ctx, query, id).Scan(&link.ID, &link.URL, &link.Clicks, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup %q: %w: %w", id, ErrUnavailable, err)
	}
	return &link, nil
}

func (s *PostgresStore) IncrementClicks(ctx context.Context, id string, expectedClicks int64) error {
	query := `UPDATE links SET clicks = clicks + 1 WHERE id = $1 AND clicks = $2`
	if _, err := s.pool.Exec(ctx, query, id, expectedClicks); err != nil {
		return fmt.Errorf("increment %q: %w: %w", id, ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
