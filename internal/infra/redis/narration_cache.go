package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"case-reasons-training/internal/narrator"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// NarrationCache stores generated customer messages in Redis so every
// instance reuses them. Keys are: narration:{sha256(description)}.
// On a miss the inner narrator runs once per key per process. A ttl <= 0
// stores keys without expiry.
type NarrationCache struct {
	client *redis.Client
	inner  narrator.Narrator
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewNarrationCache(client *redis.Client, inner narrator.Narrator, ttl time.Duration) *NarrationCache {
	return &NarrationCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *NarrationCache) Narrate(ctx context.Context, description string) (string, error) {
	key := c.key(description)

	if text, err := c.client.Get(ctx, key).Result(); err == nil {
		return text, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		text, err := c.client.Get(ctx, key).Result()
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, redis.Nil) {
			// Redis trouble should not block narration.
			text, err := c.inner.Narrate(ctx, description)
			return text, err
		}

		text, err = c.inner.Narrate(ctx, description)
		if err != nil {
			return "", err
		}
		_ = c.client.Set(ctx, key, text, c.ttlWithJitter()).Err()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *NarrationCache) key(description string) string {
	return "narration:" + narrator.Key(description)
}

func (c *NarrationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
