package artwork

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between external lookups.
const DefaultMinInterval = time.Second

// RateLimiter spaces out external lookups. The first turn is granted
// immediately; every later turn waits until minInterval has passed since the
// previous one.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter granting one turn per interval.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// WaitTurn blocks until the caller may issue a lookup. It only fails when ctx
// is done first.
func (r *RateLimiter) WaitTurn(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
