// Package postgres provides a PostgreSQL implementation of ports.SnapshotStore.
//
// All sessions live in a single table keyed by session ID; Save is an upsert.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aretw0/tabula/pkg/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "tabula_snapshots"

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DBTX is the subset of pgx used by the store.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store implements ports.SnapshotStore on PostgreSQL.
type Store struct {
	db    DBTX
	pool  *pgxpool.Pool
	table string
}

// Option configures the Store.
type Option func(*Store)

// WithTable sets the table name. Invalid identifiers are ignored.
func WithTable(name string) Option {
	return func(s *Store) {
		if identRe.MatchString(name) {
			s.table = name
		}
	}
}

// New connects to dsn, verifies the connection and ensures the table exists.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewFromDB(pool, opts...)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB wraps an existing pool or transaction. The caller owns its lifecycle
// and is expected to call Migrate once.
func NewFromDB(db DBTX, opts ...Option) *Store {
	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the snapshot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Save upserts the snapshot for sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, snap domain.StoredSnapshot) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	q := fmt.Sprintf(`INSERT INTO %s (session_id, kind, title, data, saved_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE
SET kind = EXCLUDED.kind, title = EXCLUDED.title, data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`, s.table)

	if _, err := s.db.Exec(ctx, q, sessionID, string(snap.Kind), snap.Title, string(snap.Data), snap.SavedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot for sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.StoredSnapshot, error) {
	q := fmt.Sprintf(`SELECT kind, title, data, saved_at FROM %s WHERE session_id = $1`, s.table)

	var (
		snap       domain.StoredSnapshot
		kind, data string
	)
	err := s.db.QueryRow(ctx, q, sessionID).Scan(&kind, &snap.Title, &data, &snap.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StoredSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.StoredSnapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.Kind = domain.SnapshotKind(kind)
	snap.Data = domain.Snapshot(data)
	snap.SavedAt = snap.SavedAt.UTC()
	return snap, nil
}

// Delete removes the snapshot for sessionID. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, s.table)
	if _, err := s.db.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// List returns all session IDs ordered by ID.
func (s *Store) List(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`SELECT session_id FROM %s ORDER BY session_id`, s.table)
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Close releases the pool when the store opened it.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
