package memory

import (
	"context"
	"sync"
	"testing"

	"case-reasons-training/internal/domain"
)

func TestLeaderboardStoreConcurrentAppends(t *testing.T) {
	store := NewLeaderboardStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_ = store.Append(ctx, domain.LeaderboardEntry{Name: "agent", Score: score})
		}(i)
	}
	wg.Wait()

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 50 {
		t.Fatalf("expected 50 rows, no lost appends; got %d", len(entries))
	}
}
