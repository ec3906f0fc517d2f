package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type counter struct {
	hits   int64
	expiry time.Time
}

// MemoryStore implements Store with an in-process map. Expired counters are
// overwritten lazily on next use and evicted by a periodic sweep so unique-IP
// churn does not grow the map without bound.
type MemoryStore struct {
	logger   *zap.Logger
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory counter store. A sweepInterval of zero
// disables the background sweep.
func NewMemoryStore(logger *zap.Logger, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		logger:   logger.Named("ratelimit.memory"),
		counters: make(map[string]*counter),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *MemoryStore) Increment(_ context.Context, bucket, key string, window time.Duration) (*Result, error) {
	k := bucket + ":" + key
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[k]
	if !ok || now.After(c.expiry) {
		c = &counter{hits: 1, expiry: now.Add(window)}
		s.counters[k] = c
	} else {
		c.hits++
	}

	return &Result{TotalHits: c.hits, ResetTime: c.expiry}, nil
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			removed := s.sweep()
			if removed > 0 {
				s.logger.Debug("swept expired rate-limit counters", zap.Int("removed", removed))
			}
		}
	}
}

func (s *MemoryStore) sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, c := range s.counters {
		if now.After(c.expiry) {
			delete(s.counters, k)
			removed++
		}
	}
	return removed
}
