//go:build linux

package uring

import "time"

type Options struct {
	Entries        int
	WaitCQETimeout time.Duration
	PushRetries    int
}

type Option func(*Options)

// WithEntries
// setup the ring's entries, which is also the pending operation queue depth.
func WithEntries(entries int) Option {
	return func(opts *Options) {
		opts.Entries = entries
	}
}

// WithWaitCQETimeout
// setup how long the completion loop waits for a CQE before rechecking the
// stop signal.
func WithWaitCQETimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.WaitCQETimeout = timeout
	}
}

// WithPushRetries
// setup how many times a submitting call retries a saturated queue before
// reporting ErrSaturated.
func WithPushRetries(retries int) Option {
	return func(opts *Options) {
		opts.PushRetries = retries
	}
}
