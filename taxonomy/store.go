package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists kingdom lookups across runs so a re-harvest does not repeat
// every GBIF query. An empty kingdom is stored too; it records a query GBIF
// could not match.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS kingdom_lookups (
		query      TEXT PRIMARY KEY,
		kingdom    TEXT NOT NULL DEFAULT '',
		fetched_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_kingdom_lookups_kingdom ON kingdom_lookups(kingdom);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create taxonomy schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored kingdom for a query.
func (s *Store) Get(ctx context.Context, query string) (string, bool, error) {
	var kingdom string
	err := s.db.QueryRowContext(ctx,
		`SELECT kingdom FROM kingdom_lookups WHERE query = ?`, query,
	).Scan(&kingdom)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read kingdom lookup: %w", err)
	}
	return kingdom, true, nil
}

// Put records the kingdom for a query, replacing any earlier value.
func (s *Store) Put(ctx context.Context, query, kingdom string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kingdom_lookups (query, kingdom, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(query) DO UPDATE SET kingdom = excluded.kingdom, fetched_at = excluded.fetched_at`,
		query, kingdom, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write kingdom lookup: %w", err)
	}
	return nil
}

// Count returns the number of stored lookups.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kingdom_lookups`).Scan(&n)
	return n, err
}
