package fio

import (
	"context"
	"io/fs"
	"syscall"

	"github.com/brickingsoft/errors"
)

var (
	ErrNotFound   = errors.Define("file not found")
	ErrPermission = errors.Define("permission denied")
	ErrExist      = errors.Define("file already exists")
	// ErrClosed reports a second close or an operation on a closed handle,
	// handles are single-ownership.
	ErrClosed = errors.Define("already closed")
	// ErrSaturated is retryable backpressure, the request was not dropped.
	ErrSaturated = errors.Define("submission saturated")
	ErrCanceled  = errors.Define("operation canceled")
	// ErrIO wraps device or kernel failures, fatal to the operation, not to
	// the process.
	ErrIO = errors.Define("i/o error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func IsSaturated(err error) bool {
	return errors.Is(err, ErrSaturated)
}

func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}

const (
	errMetaPkgKey  = "pkg"
	errMetaPkgVal  = "fio"
	errMetaOpKey   = "op"
	errMetaPathKey = "path"
)

func opError(op string, path string, cause error) error {
	return errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithMeta(errMetaPathKey, path),
		errors.WithWrap(cause),
	)
}

// classify folds platform errors into the one taxonomy callers see,
// whichever backend executed the operation.
func classify(cause error) error {
	switch {
	case cause == nil:
		return nil
	case errors.Is(cause, ErrNotFound),
		errors.Is(cause, ErrPermission),
		errors.Is(cause, ErrExist),
		errors.Is(cause, ErrClosed),
		errors.Is(cause, ErrSaturated),
		errors.Is(cause, ErrCanceled),
		errors.Is(cause, ErrIO):
		return cause
	case errors.Is(cause, syscall.ENOENT), errors.Is(cause, fs.ErrNotExist):
		return errors.From(ErrNotFound, errors.WithWrap(cause))
	case errors.Is(cause, syscall.EACCES), errors.Is(cause, syscall.EPERM), errors.Is(cause, fs.ErrPermission):
		return errors.From(ErrPermission, errors.WithWrap(cause))
	case errors.Is(cause, syscall.EEXIST), errors.Is(cause, fs.ErrExist):
		return errors.From(ErrExist, errors.WithWrap(cause))
	case errors.Is(cause, syscall.EBADF), errors.Is(cause, fs.ErrClosed):
		return errors.From(ErrClosed, errors.WithWrap(cause))
	case errors.Is(cause, syscall.ECANCELED), errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		return errors.From(ErrCanceled, errors.WithWrap(cause))
	case errors.Is(cause, syscall.EAGAIN):
		return errors.From(ErrSaturated, errors.WithWrap(cause))
	default:
		return errors.From(ErrIO, errors.WithWrap(cause))
	}
}
