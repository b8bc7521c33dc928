package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/quiz"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps quiz sessions in Redis as JSON so any instance behind a
// load balancer can serve the next request of a session.
// Each Save refreshes the TTL; idle sessions expire on their own.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session quiz.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Save writes session only if the stored Version still equals
// session.Version. The check and the write run under WATCH, so two
// instances racing on one session cannot both win.
func (s *SessionStore) Save(ctx context.Context, session *quiz.Session) error {
	key := s.key(session.ID)
	next := *session
	next.Version++
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		switch {
		case stored < 0 && session.Version != 0:
			return domain.ErrSessionNotFound
		case stored >= 0 && stored != session.Version:
			return domain.ErrConcurrentUpdate
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrConcurrentUpdate
	case errors.Is(err, domain.ErrConcurrentUpdate), errors.Is(err, domain.ErrSessionNotFound):
		return err
	case err != nil:
		return fmt.Errorf("set session: %w", err)
	}
	session.Version = next.Version
	return nil
}

// storedVersion returns -1 when the key does not exist.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	var stored struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return 0, fmt.Errorf("decode session: %w", err)
	}
	return stored.Version, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
