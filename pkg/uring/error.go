//go:build linux

package uring

import "github.com/brickingsoft/errors"

var (
	// ErrSaturated is returned by Push when the operation queue is full.
	// It is retryable, nothing was dropped.
	ErrSaturated = errors.Define("ring saturated")
	// ErrUncompleted is returned when an awaiter abandoned the operation
	// before its completion was observed. The operation buffer stays pinned
	// by the ring until the kernel delivers the completion.
	ErrUncompleted = errors.Define("uncompleted")
	ErrTimeout     = errors.Define("timeout")
	ErrClosed      = errors.Define("ring closed")
)

func IsSaturated(err error) bool {
	return errors.Is(err, ErrSaturated)
}

func IsUncompleted(err error) bool {
	return errors.Is(err, ErrUncompleted)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
