//go:build !linux

package fio

func probe() bool {
	return false
}
