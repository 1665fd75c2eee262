//go:build !linux

package kernel

import "syscall"

func Release() (string, error) {
	return "", syscall.EINVAL
}

func Get() (Version, error) {
	return Version{}, syscall.EINVAL
}
