package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/metrics"
)

// FetchResult is the terminal result of running the retry engine for
// one URL.
type FetchResult struct {
	Body []byte
	// Attempts counts every fetch invocation, across both
	// verification modes.
	Attempts int
	// Insecure reports the verification mode of the final attempt.
	Insecure bool
	// Err is nil on success.
	Err *FetchError
}

// Retrier drives fetch attempts through the retry policy. Transient
// failures back off and retry, the first certificate failure switches
// the fetch to insecure mode with a fresh attempt window, and
// permanent failures settle immediately with the last failure reason.
type Retrier struct {
	policy  *RetryPolicy
	limiter Limiter
	logger  *zap.Logger
	// insecure starts every fetch without certificate verification.
	insecure bool
}

// RetrierConfig wires a Retrier. Policy defaults when nil; Limiter may
// be nil to disable pacing.
type RetrierConfig struct {
	Policy   *RetryPolicy
	Limiter  Limiter
	Logger   *zap.Logger
	Insecure bool
}

// NewRetrier builds a Retrier.
func NewRetrier(cfg RetrierConfig) *Retrier {
	if cfg.Policy == nil {
		cfg.Policy = NewRetryPolicy(0, 0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Retrier{
		policy:   cfg.Policy,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger,
		insecure: cfg.Insecure,
	}
}

// Do fetches url until success, permanent failure or context
// cancellation. The certificate fallback fires at most once per call:
// when a verified fetch fails with a certificate error, the next
// attempt runs insecurely and the policy's attempt counter restarts.
// A certificate error during an insecure fetch is permanent.
func (r *Retrier) Do(ctx context.Context, fetcher Fetcher, url string) FetchResult {
	insecure := r.insecure
	fallbackUsed := insecure
	attempt := 0
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return FetchResult{Attempts: total, Insecure: insecure, Err: &FetchError{Kind: ErrorCanceled, Err: err}}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, url); err != nil {
				return FetchResult{Attempts: total, Insecure: insecure, Err: &FetchError{Kind: ErrorCanceled, Err: err}}
			}
		}

		attempt++
		total++
		start := time.Now()
		body, err := fetcher.Fetch(ctx, url, insecure)
		if err == nil {
			metrics.ObserveFetch(url, "success", len(body), time.Since(start))
			return FetchResult{Body: body, Attempts: total, Insecure: insecure}
		}

		lastErr := Classify(err)
		metrics.ObserveFetch(url, string(lastErr.Kind), 0, time.Since(start))
		r.logger.Debug("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("total_attempts", total),
			zap.String("kind", string(lastErr.Kind)),
			zap.Error(lastErr),
		)

		if lastErr.Kind == ErrorCanceled {
			return FetchResult{Attempts: total, Insecure: insecure, Err: lastErr}
		}

		if lastErr.Kind == ErrorSSLVerification {
			if fallbackUsed {
				return FetchResult{Attempts: total, Insecure: insecure, Err: lastErr}
			}
			// Immediate insecure retry with a fresh attempt window.
			fallbackUsed = true
			insecure = true
			attempt = 0
			metrics.ObserveInsecureFallback()
			r.logger.Warn("certificate verification failed, retrying without verification",
				zap.String("url", url))
			continue
		}

		if !r.policy.ShouldRetry(lastErr, attempt) {
			return FetchResult{Attempts: total, Insecure: insecure, Err: lastErr}
		}

		delay := r.policy.Backoff(attempt)
		metrics.ObserveRetry(string(lastErr.Kind))
		r.logger.Debug("retrying after backoff",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return FetchResult{Attempts: total, Insecure: insecure, Err: &FetchError{Kind: ErrorCanceled, Err: ctx.Err()}}
		}
	}
}
