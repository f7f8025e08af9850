// Package ratelimiter throttles syscalls with a token bucket.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits syscalls at a sustained rate with bursts.
//
// It wraps golang.org/x/time/rate. Each admitted call consumes one token;
// tokens refill at requestsPerSecond up to burst. A nil *RateLimiter admits
// everything, so callers can leave throttling unconfigured.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: Sustained rate; 0 disables limiting
//   - burst: Bucket capacity; 0 defaults to requestsPerSecond
//
// Example:
//
//	// 500 syscalls/s sustained, bursts of 1000
//	limiter := New(500, 1000)
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Unlimited reports whether the limiter admits everything.
func (r *RateLimiter) Unlimited() bool {
	return r == nil || r.limiter.Limit() == rate.Inf
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// Acquire is Wait that also reports how long the caller was held back.
//
// Returns:
//   - time.Duration: Time spent waiting (0 on the fast path)
//   - error: Context error if ctx ended before a token was available
func (r *RateLimiter) Acquire(ctx context.Context) (time.Duration, error) {
	if r.Allow() {
		return 0, nil
	}

	start := time.Now()
	err := r.Wait(ctx)
	return time.Since(start), err
}

// SetLimit changes the sustained rate; 0 disables limiting.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
	if r.limiter.Burst() == 0 {
		r.limiter.SetBurst(int(requestsPerSecond))
	}
}

// SetBurst changes the bucket capacity.
func (r *RateLimiter) SetBurst(burst uint) {
	r.limiter.SetBurst(int(burst))
}

// Tokens returns the tokens currently available. Useful for debugging only;
// the value may change immediately.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
