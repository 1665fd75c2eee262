// Package fio provides asynchronous file I/O with two interchangeable
// backends behind one operation contract: an io_uring ring on supporting
// Linux kernels (>= 5.6) and a blocking executor pool everywhere else.
// The backend is selected once per process by the capability probe, callers
// are agnostic to which path executed.
package fio

import (
	"context"
	"sync"

	"github.com/brickingsoft/fio/pkg/kernel"
)

var (
	defaultFS      FileSystem
	defaultFSOnce  sync.Once
	defaultOptions Options
)

// Preset
// tunes the process-wide backend. Must be called before the first operation,
// later calls have no effect on the already selected backend.
func Preset(options ...Option) {
	for _, option := range options {
		option(&defaultOptions)
	}
}

// Default returns the process-wide file system. The ring backend is selected
// when the capability probe reports availability, otherwise the executor
// pool. Probe and ring-setup failures never propagate, they select the
// fallback.
func Default() FileSystem {
	defaultFSOnce.Do(func() {
		if Available() {
			if ringFS, err := newRingFS(defaultOptions); err == nil {
				defaultFS = ringFS
				return
			}
		}
		defaultFS = newBlockingFS()
	})
	return defaultFS
}

func Open(ctx context.Context, path string, options OpenOptions) (*File, error) {
	return Default().Open(ctx, path, options)
}

func Stat(ctx context.Context, path string) (Metadata, error) {
	return Default().Stat(ctx, path)
}

// ReadFile reads the whole file: open, stat for size, read until the end,
// close.
func ReadFile(ctx context.Context, path string) (b []byte, err error) {
	fsys := Default()
	md, statErr := fsys.Stat(ctx, path)
	if statErr != nil {
		err = statErr
		return
	}
	file, openErr := fsys.Open(ctx, path, ReadOnly())
	if openErr != nil {
		err = openErr
		return
	}
	buf := make([]byte, md.Size)
	read := 0
	for read < len(buf) {
		n, rErr := file.ReadAt(ctx, buf[read:], int64(read))
		if rErr != nil {
			_ = file.Close(ctx)
			err = rErr
			return
		}
		if n == 0 {
			break
		}
		read += n
	}
	if cErr := file.Close(ctx); cErr != nil {
		err = cErr
		return
	}
	b = buf[:read]
	return
}

// WriteFile creates or truncates the file, writes all data and flushes it to
// the device before closing.
func WriteFile(ctx context.Context, path string, data []byte) (err error) {
	file, openErr := Open(ctx, path, WriteOnly(0o644))
	if openErr != nil {
		err = openErr
		return
	}
	wrote := 0
	for wrote < len(data) {
		n, wErr := file.WriteAt(ctx, data[wrote:], int64(wrote))
		if wErr != nil {
			_ = file.Close(ctx)
			err = wErr
			return
		}
		wrote += n
	}
	if err = file.Sync(ctx); err != nil {
		_ = file.Close(ctx)
		return
	}
	err = file.Close(ctx)
	return
}

// KernelRelease reports the raw kernel release string, "unknown" when it
// cannot be read.
func KernelRelease() string {
	release, err := kernel.Release()
	if err != nil {
		return "unknown"
	}
	return release
}
