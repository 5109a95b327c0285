package processor

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate paces the batch between model-backed items.
type Gate interface {
	Wait(ctx context.Context) error
}

// FixedIntervalGate sleeps for Delay on every Wait.
type FixedIntervalGate struct {
	Delay time.Duration
}

func (g FixedIntervalGate) Wait(ctx context.Context) error {
	if g.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucketGate admits perSecond items per second with the given burst.
type TokenBucketGate struct {
	limiter *rate.Limiter
}

func NewTokenBucketGate(perSecond float64, burst int) *TokenBucketGate {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketGate{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (g *TokenBucketGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// NewGate picks a token bucket when perSecond > 0 and a fixed delay otherwise.
func NewGate(delay time.Duration, perSecond float64, burst int) Gate {
	if perSecond > 0 {
		return NewTokenBucketGate(perSecond, burst)
	}
	return FixedIntervalGate{Delay: delay}
}
