package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"case-reasons-training/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "board.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, domain.LeaderboardEntry{Name: "Ana", Country: "Spain", Score: 80, Tier: 2, RecordedAt: at}))
	require.NoError(t, store.Append(ctx, domain.LeaderboardEntry{Name: "Jan", Country: "Poland", Score: 100, Tier: 3, RecordedAt: at.Add(time.Minute)}))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ana", entries[0].Name)
	assert.Equal(t, 2, entries[0].Tier)
	assert.True(t, entries[0].RecordedAt.Equal(at))
	assert.Equal(t, "Poland", entries[1].Country)
}

func TestLeaderboardStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, domain.LeaderboardEntry{Name: fmt.Sprintf("agent-%d", i), Score: i, RecordedAt: time.Now()}))
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 25)
}
