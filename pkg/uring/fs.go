//go:build linux

package uring

import (
	"context"

	"golang.org/x/sys/unix"
)

// Openat opens a path relative to the working directory and returns the new
// file descriptor.
func (ring *Ring) Openat(ctx context.Context, path string, flags int, mode uint32) (fd int, err error) {
	op := ring.AcquireOperation()
	op.PrepareOpen(path, flags, mode)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	fd, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		ring.ReleaseOperation(op)
	}
	return
}

// ReadAt reads into b at the given offset. A short read is a success value,
// n reports what actually arrived. b must not be mutated or reclaimed by the
// caller until ReadAt returns.
func (ring *Ring) ReadAt(ctx context.Context, fd int, b []byte, offset uint64) (n int, err error) {
	if len(b) == 0 {
		return
	}
	op := ring.AcquireOperation()
	op.PrepareRead(fd, b, offset)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	n, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		ring.ReleaseOperation(op)
	}
	return
}

// WriteAt writes b at the given offset. Short writes are success values,
// callers needing exact-write semantics loop until done.
func (ring *Ring) WriteAt(ctx context.Context, fd int, b []byte, offset uint64) (n int, err error) {
	if len(b) == 0 {
		return
	}
	op := ring.AcquireOperation()
	op.PrepareWrite(fd, b, offset)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	n, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		ring.ReleaseOperation(op)
	}
	return
}

// Fsync flushes the file and reports device errors instead of swallowing
// them.
func (ring *Ring) Fsync(ctx context.Context, fd int) (err error) {
	op := ring.AcquireOperation()
	op.PrepareFsync(fd)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	_, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		ring.ReleaseOperation(op)
	}
	return
}

// Statx stats a path.
func (ring *Ring) Statx(ctx context.Context, path string) (statx unix.Statx_t, err error) {
	op := ring.AcquireOperation()
	// the statx destination is owned by the operation until completion
	sx := new(unix.Statx_t)
	op.PrepareStatx(path, sx)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	_, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		if err == nil {
			statx = *sx
		}
		ring.ReleaseOperation(op)
	}
	return
}

// CloseFd closes a file descriptor. Closing twice is not defended here,
// single ownership of the descriptor is the caller's contract.
func (ring *Ring) CloseFd(ctx context.Context, fd int) (err error) {
	op := ring.AcquireOperation()
	op.PrepareClose(fd)
	if err = ring.push(op); err != nil {
		ring.ReleaseOperation(op)
		return
	}
	hijacked := false
	_, hijacked, err = ring.await(ctx, op)
	if !hijacked {
		ring.ReleaseOperation(op)
	}
	return
}
