// Package ratelimit implements fixed-window request counters shared by all
// rate-limited endpoints. Counters are partitioned by a bucket prefix per
// endpoint class so widget traffic never starves webhook callbacks.
package ratelimit

import (
	"context"
	"time"
)

// Result is the counter state after one increment.
type Result struct {
	// TotalHits is the number of requests seen in the current window,
	// including this one.
	TotalHits int64
	// ResetTime is when the current window expires.
	ResetTime time.Time
}

// Store counts requests per (bucket, key) in fixed windows. A counter resets
// to 1 when incremented past its window; expired counters are otherwise left
// for the sweeper.
type Store interface {
	// Increment bumps the counter for (bucket, key) and returns its state.
	Increment(ctx context.Context, bucket, key string, window time.Duration) (*Result, error)

	// Close releases the store's resources.
	Close() error
}
