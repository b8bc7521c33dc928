package memory

import (
	"context"
	"slices"
	"sync"

	"case-reasons-training/internal/domain"
)

// LeaderboardStore keeps leaderboard rows in process memory. Rows are lost on
// restart; use it for tests and single-node demos.
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries []domain.LeaderboardEntry
}

func NewLeaderboardStore(seed ...domain.LeaderboardEntry) *LeaderboardStore {
	return &LeaderboardStore{entries: slices.Clone(seed)}
}

func (l *LeaderboardStore) Append(_ context.Context, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *LeaderboardStore) List(_ context.Context) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries), nil
}
