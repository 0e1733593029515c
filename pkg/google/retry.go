package google

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig(maxRetries uint64) RetryConfig {
	return RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     time.Minute,
	}
}

// RetryWithBackoff runs op until it succeeds, fails with a non rate limit error, the
// retries are exhausted or ctx is done. The wait before a retry grows exponentially
// and is stretched up to the reset time reported by the provider, never beyond
// MaxInterval.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, op func() (T, error)) (T, error) {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = cfg.InitialInterval
	exponential.MaxInterval = cfg.MaxInterval
	exponential.MaxElapsedTime = 0

	policy := &resetAwareBackOff{BackOff: exponential, maxInterval: cfg.MaxInterval}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, cfg.MaxRetries), ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if rateLimitErr, ok := asRateLimit(err); ok {
			policy.resetAt = rateLimitErr.ResetAt
			return result, err
		}
		return result, backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		log.Warnf("Google Calendar rate limited, retrying in %s: %v", wait, err)
	})
}

func asRateLimit(err error) (*RateLimitError, bool) {
	var rateLimitErr *RateLimitError
	ok := errors.As(err, &rateLimitErr)
	return rateLimitErr, ok
}

type resetAwareBackOff struct {
	backoff.BackOff
	maxInterval time.Duration
	resetAt     time.Time
}

func (b *resetAwareBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if untilReset := time.Until(b.resetAt); untilReset > next {
		next = untilReset
	}
	if b.maxInterval > 0 && next > b.maxInterval {
		next = b.maxInterval
	}
	return next
}
