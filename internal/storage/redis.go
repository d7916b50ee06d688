package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/outbreak/internal/types"
)

// RedisStore keeps each snapshot under prefix+dataset.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore connects to the redis URL (redis://host:port/db) and
// verifies connectivity.
func NewRedisStore(uri, prefix string, timeout time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, &types.StorageError{Backend: "redis", Err: fmt.Errorf("parse url: %w", err)}
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), prefix, timeout, logger)
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, timeout time.Duration, logger *slog.Logger) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &types.StorageError{Backend: "redis", Err: fmt.Errorf("ping: %w", err)}
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redis_storage"),
	}, nil
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) key(dataset types.Dataset) string {
	return s.prefix + string(dataset)
}

func (s *RedisStore) Save(ctx context.Context, dataset types.Dataset, data []byte) error {
	if err := s.client.Set(ctx, s.key(dataset), data, 0).Err(); err != nil {
		return &types.StorageError{Backend: "redis", Err: fmt.Errorf("set %s: %w", s.key(dataset), err)}
	}
	s.logger.Debug("snapshot written", "key", s.key(dataset), "bytes", len(data))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, dataset types.Dataset) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(dataset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notStored("redis", dataset)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "redis", Err: fmt.Errorf("get %s: %w", s.key(dataset), err)}
	}
	return data, nil
}

func (s *RedisStore) Close() error {
	s.logger.Info("redis storage closing")
	return s.client.Close()
}
