package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"case-reasons-training/internal/domain"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// LeaderboardStore keeps leaderboard rows in a local SQLite file. It suits a
// single instance that needs scores to survive restarts without a server.
type LeaderboardStore struct {
	db *sql.DB
}

// Open creates the database file and its table if needed.
func Open(ctx context.Context, dbPath string) (*LeaderboardStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers inside the process.
	db.SetMaxOpenConns(1)

	store := &LeaderboardStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *LeaderboardStore) ensureSchema(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL,
  tier INTEGER NOT NULL,
  recorded_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create leaderboard table: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Append(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (name, country, score, tier, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Name, entry.Country, entry.Score, entry.Tier, entry.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) List(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, country, score, tier, recorded_at FROM leaderboard_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var (
			e          domain.LeaderboardEntry
			recordedAt string
		)
		if err := rows.Scan(&e.Name, &e.Country, &e.Score, &e.Tier, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *LeaderboardStore) Close() error {
	return s.db.Close()
}
