package retryx

import (
	"context"
	"time"
)

type retryOptions struct {
	ctx             context.Context
	retryCount      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	retryIf         func(error) bool
	notify          func(err error, attempt int, wait time.Duration)
}

type RetryOption func(*retryOptions)

func newRetryOptions(opts []RetryOption) *retryOptions {
	o := &retryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRetryCount bounds the number of attempts, the first one included.
func WithRetryCount(count int) RetryOption {
	return func(ro *retryOptions) {
		ro.retryCount = count
	}
}

// WithInterval sets the constant interval, or the initial one for exponential retries.
func WithInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.initialInterval = interval
	}
}

func WithMaxInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxInterval = interval
	}
}

func WithMaxElapsedTime(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxElapsedTime = d
	}
}

// WithContext stops retrying once ctx is done; the context error is returned.
func WithContext(ctx context.Context) RetryOption {
	return func(ro *retryOptions) {
		ro.ctx = ctx
	}
}

// WithRetryIf only retries errors for which fn returns true. Other errors are returned as is.
func WithRetryIf(fn func(error) bool) RetryOption {
	return func(ro *retryOptions) {
		ro.retryIf = fn
	}
}

// WithNotify calls fn before each wait with the error of the failed attempt.
func WithNotify(fn func(err error, attempt int, wait time.Duration)) RetryOption {
	return func(ro *retryOptions) {
		ro.notify = fn
	}
}
