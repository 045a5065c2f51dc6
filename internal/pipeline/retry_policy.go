package pipeline

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Default retry parameters. A full secure round is three fetch
// invocations with delays of roughly 1s and 2s between them.
const (
	DefaultMaxAttempts  = 3
	DefaultBackoffBase  = time.Second
	DefaultBackoffLimit = 16 * time.Second
)

// RetryPolicy implements jittered exponential backoff over the
// transient failure kinds.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a policy. Non-positive arguments fall back to
// the defaults.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBackoffBase
	}
	if maxDelay <= 0 {
		maxDelay = DefaultBackoffLimit
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// MaxAttempts returns the total fetch invocations allowed within one
// verification mode.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether the failure that ended the given
// one-based attempt warrants another try.
func (p *RetryPolicy) ShouldRetry(err *FetchError, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return err.Retryable()
}

// Backoff returns the wait duration after the given one-based attempt
// failed. The delay doubles each attempt from the base, is capped at
// the maximum, and carries random jitter so parallel workers do not
// retry in lockstep.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
