//go:build linux

package uring

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type Result struct {
	N   int
	Err error
}

var timers = sync.Pool{
	New: func() interface{} {
		return time.NewTimer(0)
	},
}

func acquireTimer(d time.Duration) *time.Timer {
	timer := timers.Get().(*time.Timer)
	timer.Reset(d)
	return timer
}

func releaseTimer(t *time.Timer) {
	t.Stop()
	timers.Put(t)
}

type OperationKind int

const (
	nop OperationKind = iota
	openOp
	readOp
	writeOp
	fsyncOp
	statxOp
	closeOp
	cancelOp
)

// Operation is a pending request. It exclusively references its buffer (or
// path bytes) from Push until its completion is observed, awaiters that give
// up early mark it hijacked so the ring keeps the memory alive until the
// kernel is done with it.
type Operation struct {
	kind     OperationKind
	fd       int
	b        []byte
	path     []byte
	offset   uint64
	flags    int
	mode     uint32
	statx    *unix.Statx_t
	target   *Operation
	timeout  time.Duration
	detached bool
	done     atomic.Bool
	hijacked atomic.Bool
	// holds counts the completions an abandoned operation still waits on
	// before its memory may be reused: its own CQE plus, when an async
	// cancel was submitted, the cancel's CQE.
	holds atomic.Int32
	ch    chan Result
}

func (op *Operation) PrepareNop() {
	op.kind = nop
}

func (op *Operation) PrepareOpen(path string, flags int, mode uint32) {
	op.kind = openOp
	op.path = nullTerminated(path)
	op.flags = flags
	op.mode = mode
}

func (op *Operation) PrepareRead(fd int, b []byte, offset uint64) {
	op.kind = readOp
	op.fd = fd
	op.b = b
	op.offset = offset
}

func (op *Operation) PrepareWrite(fd int, b []byte, offset uint64) {
	op.kind = writeOp
	op.fd = fd
	op.b = b
	op.offset = offset
}

func (op *Operation) PrepareFsync(fd int) {
	op.kind = fsyncOp
	op.fd = fd
}

func (op *Operation) PrepareStatx(path string, statx *unix.Statx_t) {
	op.kind = statxOp
	op.path = nullTerminated(path)
	op.statx = statx
}

func (op *Operation) PrepareClose(fd int) {
	op.kind = closeOp
	op.fd = fd
}

// PrepareCancel targets an in-flight operation. The cancel operation itself
// is detached, nobody awaits it, its own result is discarded by the
// completion loop.
func (op *Operation) PrepareCancel(target *Operation) {
	op.kind = cancelOp
	op.target = target
	op.detached = true
}

func (op *Operation) SetTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	op.timeout = d
}

func (op *Operation) reset() bool {
	if op.hijacked.Load() {
		return false
	}
	op.kind = nop
	op.fd = 0
	op.b = nil
	op.path = nil
	op.offset = 0
	op.flags = 0
	op.mode = 0
	op.statx = nil
	op.target = nil
	op.timeout = 0
	op.detached = false
	op.done.Store(false)
	op.holds.Store(0)
	return true
}

func nullTerminated(path string) []byte {
	b := make([]byte, len(path)+1)
	copy(b, path)
	return b
}
