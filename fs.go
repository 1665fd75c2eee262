package fio

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/brickingsoft/errors"
)

type Metadata struct {
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

type OpenOptions struct {
	Read      bool
	Write     bool
	Append    bool
	Create    bool
	CreateNew bool
	Truncate  bool
	Perm      fs.FileMode
}

// ReadOnly opens for reading only.
func ReadOnly() OpenOptions {
	return OpenOptions{Read: true}
}

// ReadWrite opens for reading and writing.
func ReadWrite() OpenOptions {
	return OpenOptions{Read: true, Write: true}
}

// WriteOnly creates or truncates for writing.
func WriteOnly(perm fs.FileMode) OpenOptions {
	return OpenOptions{Write: true, Create: true, Truncate: true, Perm: perm}
}

func (options OpenOptions) flags() (flags int, err error) {
	switch {
	case options.Read && options.Write:
		flags = os.O_RDWR
	case options.Write:
		flags = os.O_WRONLY
	case options.Read:
		flags = os.O_RDONLY
	default:
		err = errors.New("open options require read or write access")
		return
	}
	if options.Append {
		if !options.Write {
			err = errors.New("append requires write access")
			return
		}
		flags |= os.O_APPEND
	}
	if options.Truncate {
		if !options.Write {
			err = errors.New("truncate requires write access")
			return
		}
		flags |= os.O_TRUNC
	}
	if options.CreateNew {
		flags |= os.O_CREATE | os.O_EXCL
	} else if options.Create {
		flags |= os.O_CREATE
	}
	return
}

// FileSystem is the uniform operation contract satisfied identically by the
// ring backend and the executor-pool backend. Callers never observe which
// path executed beyond Name.
type FileSystem interface {
	Name() string
	Open(ctx context.Context, path string, options OpenOptions) (*File, error)
	Stat(ctx context.Context, path string) (Metadata, error)
	Close() error

	readAt(ctx context.Context, fd int, b []byte, offset int64) (int, error)
	writeAt(ctx context.Context, fd int, b []byte, offset int64) (int, error)
	fsync(ctx context.Context, fd int) error
	closeFd(ctx context.Context, fd int) error
}
