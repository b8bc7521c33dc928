package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"case-reasons-training/internal/domain"
	"github.com/redis/go-redis/v9"
)

// LeaderboardStore appends rows to a Redis list. RPUSH is atomic, so
// concurrent completions never overwrite each other.
type LeaderboardStore struct {
	client *redis.Client
	key    string
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client, key: "leaderboard:entries"}
}

func (l *LeaderboardStore) Append(ctx context.Context, entry domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, raw).Err(); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (l *LeaderboardStore) List(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	rows, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(row), &entry); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
