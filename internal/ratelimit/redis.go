package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
)

// RedisStore implements Store on Redis, for deployments where several
// endpoint classes or processes must share one limiter.
type RedisStore struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(logger *zap.Logger, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		logger: logger.Named("ratelimit.redis"),
		client: client,
		prefix: prefix,
	}, nil
}

func (s *RedisStore) Increment(ctx context.Context, bucket, key string, window time.Duration) (*Result, error) {
	k := s.prefix + ":" + bucket + ":" + key

	hits, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	if hits == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return nil, err
		}
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		// Key lost its expiry (flush or manual intervention); restore it so
		// the counter cannot live forever.
		ttl = window
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return nil, err
		}
	}

	return &Result{TotalHits: hits, ResetTime: time.Now().Add(ttl)}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
