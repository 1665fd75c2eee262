package fio

import "time"

type Options struct {
	RingEntries        int
	RingWaitCQETimeout time.Duration
	RingPushRetries    int
}

type Option func(*Options)

// WithRingEntries
// setup the ring backend's entries, which bounds concurrently pending
// operations.
func WithRingEntries(entries int) Option {
	return func(opts *Options) {
		opts.RingEntries = entries
	}
}

// WithRingWaitCQETimeout
// setup the ring backend's completion wait timeout.
func WithRingWaitCQETimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.RingWaitCQETimeout = timeout
	}
}

// WithRingPushRetries
// setup how often a saturated submission queue is retried before the
// retryable saturation error is reported.
func WithRingPushRetries(retries int) Option {
	return func(opts *Options) {
		opts.RingPushRetries = retries
	}
}
