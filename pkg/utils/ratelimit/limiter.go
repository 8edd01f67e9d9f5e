package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// TokenBucket admits up to rate operations per second with bursts of up to burst
type TokenBucket struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mutex      sync.Mutex
	log        *logger.Logger
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}

	tb := &TokenBucket{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		now:    time.Now,
		log:    logger.GetLogger("ratelimit.token_bucket"),
	}
	tb.lastUpdate = tb.now()

	tb.log.Debugf("Token bucket rate limiter created with rate=%.2f, burst=%d", rate, burst)
	return tb
}

// Allow checks if a single operation is allowed
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if they are available
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		select {
		case <-time.After(tb.waitTime(1)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill must be called with the mutex held. Fractional tokens carry over.
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}

	tb.tokens = min(float64(tb.burst), tb.tokens+elapsed.Seconds()*tb.rate)
	tb.lastUpdate = now
}

func (tb *TokenBucket) waitTime(n int) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	missing := float64(n) - tb.tokens
	wait := time.Duration(missing / tb.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the sustained rate
func (tb *TokenBucket) Limit() float64 {
	return tb.rate
}

// Burst returns the burst capacity
func (tb *TokenBucket) Burst() int {
	return tb.burst
}

// TokensRemaining returns the whole tokens currently available
func (tb *TokenBucket) TokensRemaining() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	return int(tb.tokens)
}
