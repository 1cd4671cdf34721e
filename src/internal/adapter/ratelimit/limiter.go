package ratelimit

import (
	"context"
	"time"
)

// Limiter counts attempts per key inside a fixed window. Allow reports whether the attempt
// may proceed and, when it may not, how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}
