package fio

import "sync"

// Capability is the tri-state result of the io_uring probe.
type Capability int

const (
	CapabilityUnknown Capability = iota
	CapabilityAvailable
	CapabilityUnavailable
)

func (c Capability) String() string {
	switch c {
	case CapabilityAvailable:
		return "available"
	case CapabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// io_uring needs linux >= 5.6.
const (
	minKernelMajor = 5
	minKernelMinor = 6
)

var (
	capability     = CapabilityUnknown
	capabilityOnce sync.Once
)

// Probe reports whether io_uring is usable, computed once for the process
// lifetime and immutable afterwards. A failed probe is not an error, it
// selects the fallback path. Fails closed: unreadable or unparseable kernel
// release means unavailable.
func Probe() Capability {
	capabilityOnce.Do(func() {
		if probe() {
			capability = CapabilityAvailable
		} else {
			capability = CapabilityUnavailable
		}
	})
	return capability
}

// Available reports whether the ring backend will be selected.
func Available() bool {
	return Probe() == CapabilityAvailable
}
