//go:build linux

package fio

import (
	"context"
	"io/fs"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/fio/pkg/uring"
	"golang.org/x/sys/unix"
)

func (options Options) asRingOptions() []uring.Option {
	opts := make([]uring.Option, 0, 3)
	if options.RingEntries > 0 {
		opts = append(opts, uring.WithEntries(options.RingEntries))
	}
	if options.RingWaitCQETimeout > 0 {
		opts = append(opts, uring.WithWaitCQETimeout(options.RingWaitCQETimeout))
	}
	if options.RingPushRetries > 0 {
		opts = append(opts, uring.WithPushRetries(options.RingPushRetries))
	}
	return opts
}

// newRingFS builds the io_uring backend. Setup failures are returned to the
// coordinator, which falls back instead of surfacing them.
func newRingFS(options Options) (FileSystem, error) {
	ring, err := uring.Open(options.asRingOptions()...)
	if err != nil {
		return nil, err
	}
	return &ringFS{ring: ring}, nil
}

type ringFS struct {
	ring *uring.Ring
}

func (backend *ringFS) Name() string {
	return "uring"
}

func (backend *ringFS) Open(ctx context.Context, path string, options OpenOptions) (file *File, err error) {
	flags, flagsErr := options.flags()
	if flagsErr != nil {
		err = opError("open", path, flagsErr)
		return
	}
	fd, openErr := backend.ring.Openat(ctx, path, flags|unix.O_CLOEXEC, uint32(options.Perm.Perm()))
	if openErr != nil {
		err = opError("open", path, classifyRing(openErr))
		return
	}
	file = &File{fs: backend, fd: fd, path: path}
	return
}

func (backend *ringFS) Stat(ctx context.Context, path string) (md Metadata, err error) {
	sx, statErr := backend.ring.Statx(ctx, path)
	if statErr != nil {
		err = opError("stat", path, classifyRing(statErr))
		return
	}
	md = Metadata{
		Size:    int64(sx.Size),
		Mode:    fileModeFrom(sx.Mode),
		ModTime: time.Unix(sx.Mtime.Sec, int64(sx.Mtime.Nsec)),
		IsDir:   sx.Mode&unix.S_IFMT == unix.S_IFDIR,
	}
	return
}

func (backend *ringFS) Close() error {
	return backend.ring.Close()
}

func (backend *ringFS) readAt(ctx context.Context, fd int, b []byte, offset int64) (n int, err error) {
	n, err = backend.ring.ReadAt(ctx, fd, b, uint64(offset))
	if err != nil {
		err = classifyRing(err)
	}
	return
}

func (backend *ringFS) writeAt(ctx context.Context, fd int, b []byte, offset int64) (n int, err error) {
	n, err = backend.ring.WriteAt(ctx, fd, b, uint64(offset))
	if err != nil {
		err = classifyRing(err)
	}
	return
}

func (backend *ringFS) fsync(ctx context.Context, fd int) (err error) {
	if err = backend.ring.Fsync(ctx, fd); err != nil {
		err = classifyRing(err)
	}
	return
}

func (backend *ringFS) closeFd(ctx context.Context, fd int) (err error) {
	if err = backend.ring.CloseFd(ctx, fd); err != nil {
		err = classifyRing(err)
	}
	return
}

// classifyRing folds ring layer signals into the unified taxonomy before the
// generic errno mapping runs.
func classifyRing(err error) error {
	switch {
	case uring.IsSaturated(err):
		return errors.From(ErrSaturated, errors.WithWrap(err))
	case uring.IsUncompleted(err), uring.IsTimeout(err):
		return errors.From(ErrCanceled, errors.WithWrap(err))
	case uring.IsClosed(err):
		return errors.From(ErrClosed, errors.WithWrap(err))
	default:
		return classify(err)
	}
}

func fileModeFrom(mode uint16) fs.FileMode {
	m := fs.FileMode(mode & 0o777)
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		m |= fs.ModeDir
	case unix.S_IFLNK:
		m |= fs.ModeSymlink
	case unix.S_IFIFO:
		m |= fs.ModeNamedPipe
	case unix.S_IFSOCK:
		m |= fs.ModeSocket
	case unix.S_IFBLK:
		m |= fs.ModeDevice
	case unix.S_IFCHR:
		m |= fs.ModeDevice | fs.ModeCharDevice
	}
	if mode&unix.S_ISUID != 0 {
		m |= fs.ModeSetuid
	}
	if mode&unix.S_ISGID != 0 {
		m |= fs.ModeSetgid
	}
	if mode&unix.S_ISVTX != 0 {
		m |= fs.ModeSticky
	}
	return m
}
