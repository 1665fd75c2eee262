package fio

import (
	"context"
	"os"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"golang.org/x/sys/unix"
)

// newBlockingFS builds the fallback backend. Every logical operation runs as
// a blocking call on the executor pool, off the caller's execution context.
func newBlockingFS() FileSystem {
	return &blockingFS{
		exec: Executors(),
	}
}

type blockingFS struct {
	exec rxp.Executors
}

func (backend *blockingFS) Name() string {
	return "blocking"
}

// dispatch hands a blocking task to the pool. Executor backpressure maps to
// the same retryable saturation signal the ring reports.
func (backend *blockingFS) dispatch(ctx context.Context, task func()) (err error) {
	if backend.exec == nil {
		return errors.From(ErrIO, errors.WithWrap(executorsErr))
	}
	if err = backend.exec.Execute(ctx, fnTask(task)); err != nil {
		err = errors.From(ErrSaturated, errors.WithWrap(err))
	}
	return
}

type fdResult struct {
	fd  int
	err error
}

func (backend *blockingFS) Open(ctx context.Context, path string, options OpenOptions) (file *File, err error) {
	flags, flagsErr := options.flags()
	if flagsErr != nil {
		err = opError("open", path, flagsErr)
		return
	}
	ch := make(chan fdResult, 1)
	if dErr := backend.dispatch(ctx, func() {
		for {
			fd, oErr := unix.Open(path, flags|unix.O_CLOEXEC, uint32(options.Perm.Perm()))
			if oErr == unix.EINTR {
				continue
			}
			ch <- fdResult{fd: fd, err: oErr}
			return
		}
	}); dErr != nil {
		err = opError("open", path, dErr)
		return
	}
	select {
	case r := <-ch:
		if r.err != nil {
			err = opError("open", path, classify(r.err))
			return
		}
		file = &File{fs: backend, fd: r.fd, path: path}
		return
	case <-ctx.Done():
		// the descriptor may still arrive, reclaim it off-context
		go func() {
			if r := <-ch; r.err == nil {
				_ = unix.Close(r.fd)
			}
		}()
		err = opError("open", path, classify(ctx.Err()))
		return
	}
}

func (backend *blockingFS) Stat(ctx context.Context, path string) (md Metadata, err error) {
	type statResult struct {
		info os.FileInfo
		err  error
	}
	ch := make(chan statResult, 1)
	if dErr := backend.dispatch(ctx, func() {
		info, sErr := os.Stat(path)
		ch <- statResult{info: info, err: sErr}
	}); dErr != nil {
		err = opError("stat", path, dErr)
		return
	}
	select {
	case r := <-ch:
		if r.err != nil {
			err = opError("stat", path, classify(r.err))
			return
		}
		md = Metadata{
			Size:    r.info.Size(),
			Mode:    r.info.Mode(),
			ModTime: r.info.ModTime(),
			IsDir:   r.info.IsDir(),
		}
		return
	case <-ctx.Done():
		err = opError("stat", path, classify(ctx.Err()))
		return
	}
}

func (backend *blockingFS) Close() error {
	// the executor pool is shared process-wide, its lifecycle belongs to
	// Shutdown
	return nil
}

type nResult struct {
	n   int
	err error
}

func (backend *blockingFS) readAt(ctx context.Context, fd int, b []byte, offset int64) (n int, err error) {
	if len(b) == 0 {
		return
	}
	ch := make(chan nResult, 1)
	if err = backend.dispatch(ctx, func() {
		for {
			rn, rErr := unix.Pread(fd, b, offset)
			if rErr == unix.EINTR {
				continue
			}
			ch <- nResult{n: rn, err: rErr}
			return
		}
	}); err != nil {
		return
	}
	return backend.awaitN(ctx, ch)
}

func (backend *blockingFS) writeAt(ctx context.Context, fd int, b []byte, offset int64) (n int, err error) {
	if len(b) == 0 {
		return
	}
	ch := make(chan nResult, 1)
	if err = backend.dispatch(ctx, func() {
		for {
			wn, wErr := unix.Pwrite(fd, b, offset)
			if wErr == unix.EINTR {
				continue
			}
			ch <- nResult{n: wn, err: wErr}
			return
		}
	}); err != nil {
		return
	}
	return backend.awaitN(ctx, ch)
}

func (backend *blockingFS) fsync(ctx context.Context, fd int) (err error) {
	ch := make(chan nResult, 1)
	if err = backend.dispatch(ctx, func() {
		ch <- nResult{err: unix.Fsync(fd)}
	}); err != nil {
		return
	}
	_, err = backend.awaitN(ctx, ch)
	return
}

func (backend *blockingFS) closeFd(ctx context.Context, fd int) (err error) {
	ch := make(chan nResult, 1)
	if err = backend.dispatch(ctx, func() {
		ch <- nResult{err: unix.Close(fd)}
	}); err != nil {
		return
	}
	_, err = backend.awaitN(ctx, ch)
	return
}

// awaitN mirrors the ring's suspension semantics, an abandoning caller gets
// ErrCanceled while the buffer stays owned by the pending task until it
// returns.
func (backend *blockingFS) awaitN(ctx context.Context, ch chan nResult) (n int, err error) {
	select {
	case r := <-ch:
		n = r.n
		if r.err != nil {
			err = classify(r.err)
		}
		return
	case <-ctx.Done():
		err = classify(ctx.Err())
		return
	}
}
