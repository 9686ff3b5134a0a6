package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fdctax/internal/onboarding/models"
	"fdctax/pkg/platform/sentinel"
)

const sessionKeyPrefix = "onboarding:session:"

// minTTL keeps a session readable for the rest of a request even when it is
// saved at the edge of its lifetime.
const minTTL = time.Second

// RedisSessionStore stores sessions as JSON with a TTL matching their expiry,
// so a multi-instance deployment can serve any request of a session.
type RedisSessionStore struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisOption configures a RedisSessionStore.
type RedisOption func(*RedisSessionStore)

// WithRedisClock overrides time.Now for TTL computation.
func WithRedisClock(clock func() time.Time) RedisOption {
	return func(s *RedisSessionStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewRedisSessionStore(client *redis.Client, opts ...RedisOption) *RedisSessionStore {
	s := &RedisSessionStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Duration(0)
	if !session.ExpiresAt.IsZero() {
		ttl = max(session.ExpiresAt.Sub(s.clock()), minTTL)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
