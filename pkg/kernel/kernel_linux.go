//go:build linux

package kernel

import (
	"os"
	"strings"
	"sync"
)

const osReleasePath = "/proc/sys/kernel/osrelease"

var (
	version     Version
	versionErr  error
	versionOnce sync.Once
)

// Release reads the raw kernel release string.
func Release() (string, error) {
	b, err := os.ReadFile(osReleasePath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Get reads and parses the running kernel release once for the process
// lifetime.
func Get() (Version, error) {
	versionOnce.Do(func() {
		release, err := Release()
		if err != nil {
			versionErr = err
			return
		}
		version, versionErr = Parse(release)
	})
	return version, versionErr
}
