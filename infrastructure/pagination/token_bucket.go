package pagination

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Clock is the time source of a TokenBucket
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}

// Limiter paces successive page calls
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases one token per interval with a burst of one, so the
// first call passes immediately and each later call waits for the refill.
type TokenBucket struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewTokenBucket builds a bucket; interval <= 0 disables pacing.
func NewTokenBucket(interval time.Duration, clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
	}
}

// Wait suspends until a token is available or ctx is done. A cancelled wait
// returns its reservation to the bucket.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := b.clock.Now()
	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("token bucket: reservation exceeds burst")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	select {
	case <-b.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(b.clock.Now())
		return ctx.Err()
	}
}
