package kernel

import (
	"fmt"
	"strings"
)

type Version struct {
	Major  int
	Minor  int
	Patch  int
	Flavor string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s", v.Major, v.Minor, v.Patch, v.Flavor)
}

const (
	firstNumberOfParts  = 2
	secondNumberOfParts = 1
)

// Parse parses a kernel release string such as "5.10.0-1-amd64" or "6.1.0".
// The patch field and the trailing flavor are optional, the leading
// "<major>.<minor>" pair is required.
func Parse(release string) (v Version, err error) {
	release = strings.TrimSpace(release)

	var (
		parsed  int
		partial string
	)
	parsed, _ = fmt.Sscanf(release, "%d.%d%s", &v.Major, &v.Minor, &partial)
	if parsed < firstNumberOfParts {
		err = fmt.Errorf("kernel: cannot parse release %q", release)
		return
	}
	if v.Major < 0 || v.Minor < 0 {
		err = fmt.Errorf("kernel: cannot parse release %q", release)
		return
	}

	parsed, _ = fmt.Sscanf(partial, ".%d%s", &v.Patch, &v.Flavor)
	if parsed < secondNumberOfParts {
		v.Flavor = partial
	}
	return
}

// Compare orders two versions by the (major, minor) pair. Patch and flavor
// are ignored.
func Compare(a, b Version) int {
	if a.Major > b.Major {
		return 1
	} else if a.Major < b.Major {
		return -1
	}

	if a.Minor > b.Minor {
		return 1
	} else if a.Minor < b.Minor {
		return -1
	}

	return 0
}

// Enable reports whether the running kernel is at least major.minor.
// It fails closed: an unreadable or unparseable release reports false.
func Enable(major, minor int) bool {
	v, err := Get()
	if err != nil {
		return false
	}
	return Compare(v, Version{Major: major, Minor: minor}) >= 0
}
