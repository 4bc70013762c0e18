package retryx

import (
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultMaxInterval    = 2 * time.Second
	DefaultMaxElapsedTime = 5 * time.Second
	DefaultMaxRetries     = 3
)

// ConstantRetry calls fn until it succeeds, waiting the same interval between attempts.
// The interval defaults to DefaultInterval and at most DefaultMaxRetries attempts are made.
func ConstantRetry(fn func() error, opts ...RetryOption) error {
	o := newRetryOptions(opts)

	interval := DefaultInterval
	if o.initialInterval > 0 {
		interval = o.initialInterval
	}

	return retry(fn, backoff.NewConstantBackOff(interval), o)
}

// ExponentialRetry calls fn until it succeeds with an exponentially growing wait between
// attempts, bounded by the max interval and the max elapsed time.
func ExponentialRetry(fn func() error, opts ...RetryOption) error {
	o := newRetryOptions(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = DefaultInterval
	bo.MaxInterval = DefaultMaxInterval
	bo.MaxElapsedTime = DefaultMaxElapsedTime
	if o.initialInterval > 0 {
		bo.InitialInterval = o.initialInterval
	}
	if o.maxInterval > 0 {
		bo.MaxInterval = o.maxInterval
	}
	if o.maxElapsedTime > 0 {
		bo.MaxElapsedTime = o.maxElapsedTime
	}
	bo.Reset()

	return retry(fn, bo, o)
}

// Permanent wraps err so that it is returned right away instead of being retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func retry(fn func() error, bo backoff.BackOff, o *retryOptions) error {
	maxAttempts := DefaultMaxRetries
	if o.retryCount > 0 {
		maxAttempts = o.retryCount
	}

	if o.ctx != nil {
		bo = backoff.WithContext(bo, o.ctx)
	}

	attempt := 0
	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		if _, ok := err.(*backoff.PermanentError); ok {
			return err
		}

		attempt++
		if attempt >= maxAttempts {
			return backoff.Permanent(err)
		}
		if o.retryIf != nil && !o.retryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if o.notify != nil {
		notify = func(err error, wait time.Duration) {
			o.notify(err, attempt, wait)
		}
	}

	return backoff.RetryNotify(op, bo, notify)
}
