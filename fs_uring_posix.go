//go:build !linux

package fio

import "github.com/brickingsoft/errors"

func newRingFS(_ Options) (FileSystem, error) {
	return nil, errors.New("io_uring is not supported on this platform")
}
