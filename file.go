package fio

import (
	"context"
	"sync/atomic"
)

// File is a single-ownership handle. Close may be called once, further
// operations and closes report ErrClosed instead of reaching a reused
// descriptor.
type File struct {
	fs     FileSystem
	fd     int
	path   string
	closed atomic.Bool
}

func (f *File) Name() string {
	return f.path
}

func (f *File) Fd() int {
	return f.fd
}

// ReadAt reads into b at offset. Short reads are success values, n reports
// what actually arrived. b must stay untouched by the caller until ReadAt
// returns, on cancellation it remains owned by the pending operation.
func (f *File) ReadAt(ctx context.Context, b []byte, offset int64) (n int, err error) {
	if f.closed.Load() {
		err = opError("read", f.path, ErrClosed)
		return
	}
	n, err = f.fs.readAt(ctx, f.fd, b, offset)
	if err != nil {
		err = opError("read", f.path, err)
	}
	return
}

// WriteAt writes b at offset. Short writes are success values, callers
// needing exact-write semantics loop until all bytes went out.
func (f *File) WriteAt(ctx context.Context, b []byte, offset int64) (n int, err error) {
	if f.closed.Load() {
		err = opError("write", f.path, ErrClosed)
		return
	}
	n, err = f.fs.writeAt(ctx, f.fd, b, offset)
	if err != nil {
		err = opError("write", f.path, err)
	}
	return
}

// Sync flushes file content to the device, flush failures are surfaced.
func (f *File) Sync(ctx context.Context) (err error) {
	if f.closed.Load() {
		return opError("fsync", f.path, ErrClosed)
	}
	if err = f.fs.fsync(ctx, f.fd); err != nil {
		err = opError("fsync", f.path, err)
	}
	return
}

func (f *File) Close(ctx context.Context) (err error) {
	if !f.closed.CompareAndSwap(false, true) {
		return opError("close", f.path, ErrClosed)
	}
	if err = f.fs.closeFd(ctx, f.fd); err != nil {
		err = opError("close", f.path, err)
	}
	return
}
