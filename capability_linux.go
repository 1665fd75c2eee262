//go:build linux

package fio

import "github.com/brickingsoft/fio/pkg/kernel"

func probe() bool {
	return kernel.Enable(minKernelMajor, minKernelMinor)
}
