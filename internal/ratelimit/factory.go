package ratelimit

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/harisabid200/ChatFlowUI/internal/common/config"
)

// Type represents the type of rate-limit store
type Type string

const (
	// TypeMemory represents the in-process counter store
	TypeMemory Type = "memory"
	// TypeRedis represents the Redis-backed counter store
	TypeRedis Type = "redis"
)

// NewStore creates a rate-limit store based on configuration.
func NewStore(logger *zap.Logger, cfg *config.RateLimitConfig) (Store, error) {
	logger.Info("Initializing rate-limit store", zap.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeMemory:
		return NewMemoryStore(logger, cfg.SweepInterval), nil
	case TypeRedis:
		return NewRedisStore(logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported rate-limit store type: %s", cfg.Type)
	}
}
