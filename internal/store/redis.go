package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "acis:result:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Put(ctx context.Context, runID string, csv []byte) error {
	if runID == "" {
		return errors.New("run ID cannot be empty")
	}

	if err := s.client.Set(ctx, resultKey(runID), csv, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result %s: %w", runID, err)
	}

	s.logger.Debug().
		Str("runID", runID).
		Int("bytes", len(csv)).
		Dur("ttl", s.ttl).
		Msg("result cached")

	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID string) ([]byte, error) {
	data, err := s.client.Get(ctx, resultKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result %s: %w", runID, err)
	}
	return data, nil
}

func resultKey(runID string) string {
	return keyPrefix + runID
}
