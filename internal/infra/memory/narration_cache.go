package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"case-reasons-training/internal/narrator"
	"golang.org/x/sync/singleflight"
)

// NarrationCache caches generated customer messages with TTL so the same
// scenario is not sent to the text generator for every agent. A ttl <= 0
// keeps entries for the life of the process.
type NarrationCache struct {
	inner narrator.Narrator
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand
	rndMu sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedNarration
}

type cachedNarration struct {
	text      string
	expiresAt time.Time
}

func NewNarrationCache(inner narrator.Narrator, ttl time.Duration) *NarrationCache {
	return &NarrationCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedNarration),
	}
}

func (c *NarrationCache) Narrate(ctx context.Context, description string) (string, error) {
	key := narrator.Key(description)
	if text, ok := c.lookup(key); ok {
		return text, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if text, ok := c.lookup(key); ok {
			return text, nil
		}

		text, err := c.inner.Narrate(ctx, description)
		if err != nil {
			return "", err
		}

		entry := cachedNarration{text: text}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			entry.expiresAt = c.clock().Add(ttl)
		}
		c.mu.Lock()
		c.cache[key] = entry
		c.mu.Unlock()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *NarrationCache) lookup(key string) (string, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		return "", false
	}
	return entry.text, true
}

func (c *NarrationCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
