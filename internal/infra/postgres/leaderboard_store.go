package postgres

import (
	"context"
	"fmt"

	"case-reasons-training/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// LeaderboardStore keeps leaderboard rows in the leaderboard_entries table.
// Each completion is a single INSERT, so concurrent writers cannot lose rows.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

func (l *LeaderboardStore) Append(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO leaderboard_entries (name, country, score, tier, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.Name, entry.Country, entry.Score, entry.Tier, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert leaderboard entry: %w", err)
	}
	return nil
}

func (l *LeaderboardStore) List(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT name, country, score, tier, recorded_at FROM leaderboard_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Country, &e.Score, &e.Tier, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}
