//go:build linux

package uring

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"
)

const (
	defaultEntries        = 64
	defaultWaitCQETimeout = 50 * time.Millisecond
	defaultPushRetries    = 10
)

// Open creates a ring and starts its submission and completion loops. The
// ring is owned by the context that created it and must be closed by it,
// hand-off to another owner requires an explicit transfer of that
// responsibility.
func Open(options ...Option) (*Ring, error) {
	opt := Options{
		Entries:        defaultEntries,
		WaitCQETimeout: defaultWaitCQETimeout,
		PushRetries:    defaultPushRetries,
	}
	for _, option := range options {
		option(&opt)
	}
	if opt.Entries < 1 {
		opt.Entries = defaultEntries
	}
	if opt.WaitCQETimeout < 1 {
		opt.WaitCQETimeout = defaultWaitCQETimeout
	}
	if opt.PushRetries < 1 {
		opt.PushRetries = defaultPushRetries
	}
	entries := roundupPow2(opt.Entries)
	r, rErr := giouring.CreateRing(uint32(entries))
	if rErr != nil {
		return nil, rErr
	}
	ring := &Ring{
		ring:        r,
		queue:       newOperationQueue(entries),
		waitTimeout: opt.WaitCQETimeout,
		pushRetries: opt.PushRetries,
		operations: sync.Pool{
			New: func() interface{} {
				return &Operation{
					ch: make(chan Result, 1),
				}
			},
		},
		stopCh: make(chan struct{}),
	}
	ring.start()
	return ring, nil
}

type Ring struct {
	ring        *giouring.Ring
	queue       *operationQueue
	waitTimeout time.Duration
	pushRetries int
	operations  sync.Pool
	pinned      sync.Map
	inflight    atomic.Int64
	closed      atomic.Bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// QueueDepth is the maximum number of concurrently pending operations.
func (ring *Ring) QueueDepth() int {
	return int(ring.queue.Cap())
}

func (ring *Ring) AcquireOperation() *Operation {
	return ring.operations.Get().(*Operation)
}

func (ring *Ring) ReleaseOperation(op *Operation) {
	if op.reset() {
		ring.operations.Put(op)
	}
}

// Push enqueues an operation for submission. A full queue reports
// ErrSaturated and leaves the operation untouched, a closed ring reports
// ErrClosed. Accepted operations are pinned until their completion (or
// failure) is observed.
func (ring *Ring) Push(op *Operation) error {
	if ring.closed.Load() {
		return ErrClosed
	}
	ring.pin(op)
	if ring.queue.Enqueue(op) {
		ring.inflight.Add(1)
		return nil
	}
	ring.unpin(op)
	return ErrSaturated
}

func (ring *Ring) push(op *Operation) (err error) {
	for i := 0; i < ring.pushRetries; i++ {
		if err = ring.Push(op); err != nil {
			if IsSaturated(err) {
				runtime.Gosched()
				continue
			}
			return
		}
		return
	}
	return
}

// pin keeps an operation (and the buffer it references) reachable from Push
// until its completion is observed, the kernel may still write into the
// buffer.
func (ring *Ring) pin(op *Operation) {
	ring.pinned.Store(op, struct{}{})
}

func (ring *Ring) unpin(op *Operation) {
	ring.pinned.Delete(op)
}

// cancel submits an async cancel against an in-flight operation and reports
// whether one was enqueued. Best effort, the race against the real
// completion is resolved by the completion loop.
func (ring *Ring) cancel(target *Operation) bool {
	if ring.closed.Load() {
		return false
	}
	op := ring.AcquireOperation()
	op.PrepareCancel(target)
	if err := ring.Push(op); err != nil {
		op.target = nil
		ring.ReleaseOperation(op)
		return false
	}
	return true
}

// await blocks until the operation result is delivered. When the caller gives
// up first (context or timeout) the operation is marked hijacked, stays
// pinned until its completion arrives, and an async cancel is submitted, the
// result is ErrUncompleted wrapping the cause.
func (ring *Ring) await(ctx context.Context, op *Operation) (n int, hijacked bool, err error) {
	ch := op.ch
	if timeout := op.timeout; timeout > 0 {
		timer := acquireTimer(timeout)
		select {
		case r := <-ch:
			n, err = r.N, r.Err
		case <-timer.C:
			n, hijacked, err = ring.abandon(op, ErrTimeout)
		case <-ctx.Done():
			n, hijacked, err = ring.abandon(op, ctx.Err())
		}
		releaseTimer(timer)
	} else {
		select {
		case r := <-ch:
			n, err = r.N, r.Err
		case <-ctx.Done():
			n, hijacked, err = ring.abandon(op, ctx.Err())
		}
	}
	return
}

func (ring *Ring) abandon(op *Operation, cause error) (n int, hijacked bool, err error) {
	// hijack before racing for done, the completion loop must never observe
	// done without the hijack and its hold count in place
	op.hijacked.Store(true)
	op.holds.Store(2)
	if op.done.CompareAndSwap(false, true) {
		if !ring.cancel(op) {
			// no cancel reached the queue, only the operation's own
			// completion is outstanding
			ring.releaseHold(op)
		}
		hijacked = true
		err = errors.From(ErrUncompleted, errors.WithWrap(cause))
		return
	}
	// completion won the race, undo the hijack and deliver the real result
	op.hijacked.Store(false)
	op.holds.Store(0)
	r := <-op.ch
	n, err = r.N, r.Err
	return
}

// releaseHold drops one hold on an abandoned operation. The operation is
// recycled only after both its own completion and, when submitted, the
// cancel's completion have been observed, a stale cancel entry must never
// target recycled memory.
func (ring *Ring) releaseHold(op *Operation) {
	if op.holds.Add(-1) == 0 {
		op.hijacked.Store(false)
		ring.unpin(op)
		ring.ReleaseOperation(op)
	}
}

func (ring *Ring) start() {
	ring.submitLoop()
	ring.completeLoop()
}

func (ring *Ring) submitLoop() {
	ring.wg.Add(1)
	go func(ring *Ring) {
		defer ring.wg.Done()
		stopCh := ring.stopCh
		queue := ring.queue
		ready := make([]*Operation, queue.Cap())
		peekNothingTimes := 0
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			peeked := queue.PeekBatch(ready)
			if peeked == 0 {
				peekNothingTimes++
				if peekNothingTimes > 10 {
					peekNothingTimes = 0
					runtime.Gosched()
				} else {
					time.Sleep(500 * time.Nanosecond)
				}
				continue
			}
			prepared := int64(0)
			for i := int64(0); i < peeked; i++ {
				op := ready[i]
				if op == nil {
					break
				}
				if ring.prepare(op) == nil {
					// submission queue is full, flush what is prepared
					break
				}
				prepared++
			}
			if prepared == 0 {
				continue
			}
			for {
				_, submitErr := ring.ring.Submit()
				if submitErr != nil {
					if errors.Is(submitErr, syscall.EAGAIN) || errors.Is(submitErr, syscall.EINTR) || errors.Is(submitErr, syscall.ETIME) {
						continue
					}
					// the batch cannot reach the kernel, fail it instead of
					// leaving awaiters suspended
					for i := int64(0); i < prepared; i++ {
						ring.fail(ready[i], submitErr)
					}
				}
				queue.Advance(prepared)
				break
			}
			for i := int64(0); i < peeked; i++ {
				ready[i] = nil
			}
		}
	}(ring)
}

func (ring *Ring) prepare(op *Operation) (sqe *giouring.SubmissionQueueEntry) {
	sqe = ring.ring.GetSQE()
	if sqe == nil {
		return
	}
	switch op.kind {
	case openOp:
		// the library's PrepareOpenat passes the address of the path slice
		// header, not the path bytes, fill the entry directly
		preparePath(sqe, giouring.OpOpenat, unix.AT_FDCWD, op.path, op.mode, 0)
		sqe.OpcodeFlags = uint32(op.flags)
	case readOp:
		sqe.PrepareRead(op.fd, uintptr(unsafe.Pointer(&op.b[0])), uint32(len(op.b)), op.offset)
	case writeOp:
		sqe.PrepareWrite(op.fd, uintptr(unsafe.Pointer(&op.b[0])), uint32(len(op.b)), op.offset)
	case fsyncOp:
		sqe.PrepareFsync(op.fd, 0)
	case statxOp:
		// same slice header defect in PrepareStatx
		preparePath(sqe, giouring.OpStatx, unix.AT_FDCWD, op.path, unix.STATX_BASIC_STATS, uint64(uintptr(unsafe.Pointer(op.statx))))
	case closeOp:
		sqe.PrepareClose(op.fd)
	case cancelOp:
		sqe.PrepareCancel(uintptr(unsafe.Pointer(op.target)), 0)
	default:
		sqe.PrepareNop()
	}
	sqe.SetData(unsafe.Pointer(op))
	runtime.KeepAlive(sqe)
	return
}

// preparePath fills a path-taking submission entry with the address of the
// path bytes. path must be null terminated and non-empty.
func preparePath(sqe *giouring.SubmissionQueueEntry, opcode uint8, dfd int, path []byte, length uint32, offset uint64) {
	sqe.OpCode = opcode
	sqe.Flags = 0
	sqe.IoPrio = 0
	sqe.Fd = int32(dfd)
	sqe.Off = offset
	sqe.Addr = uint64(uintptr(unsafe.Pointer(&path[0])))
	sqe.Len = length
	sqe.OpcodeFlags = 0
	sqe.UserData = 0
	sqe.BufIG = 0
	sqe.Personality = 0
	sqe.SpliceFdIn = 0
}

func (ring *Ring) completeLoop() {
	ring.wg.Add(1)
	go func(ring *Ring) {
		defer ring.wg.Done()
		stopCh := ring.stopCh
		waitTimeout := syscall.NsecToTimespec(ring.waitTimeout.Nanoseconds())
		cq := make([]*giouring.CompletionQueueEvent, ring.queue.Cap())
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			if _, waitErr := ring.ring.WaitCQEs(1, &waitTimeout, nil); waitErr != nil {
				continue
			}
			completed := ring.ring.PeekBatchCQE(cq)
			if completed == 0 {
				continue
			}
			for i := uint32(0); i < completed; i++ {
				cqe := cq[i]
				cq[i] = nil
				if cqe.UserData == 0 {
					continue
				}
				cop := (*Operation)(unsafe.Pointer(uintptr(cqe.UserData)))
				ring.complete(cop, cqe.Res)
			}
			ring.ring.CQAdvance(completed)
		}
	}(ring)
}

func (ring *Ring) fail(op *Operation, cause error) {
	ring.inflight.Add(-1)
	if op.detached {
		if op.target != nil {
			ring.releaseHold(op.target)
		}
		ring.unpin(op)
		ring.ReleaseOperation(op)
		return
	}
	if op.done.CompareAndSwap(false, true) {
		ring.unpin(op)
		op.ch <- Result{Err: cause}
		return
	}
	if op.hijacked.Load() {
		ring.releaseHold(op)
	}
}

// complete attributes a completion to its submitted operation. Attribution is
// by identity, completions arriving out of submission order cannot cross
// wires.
func (ring *Ring) complete(op *Operation, res int32) {
	ring.inflight.Add(-1)
	if op.detached {
		// a finished cancel entry releases its hold on the abandoned target
		if op.target != nil {
			ring.releaseHold(op.target)
		}
		ring.unpin(op)
		ring.ReleaseOperation(op)
		return
	}
	if op.done.CompareAndSwap(false, true) {
		var (
			n   int
			err error
		)
		if res < 0 {
			err = syscall.Errno(-res)
		} else {
			n = int(res)
		}
		ring.unpin(op)
		op.ch <- Result{N: n, Err: err}
		return
	}
	// the awaiter gave up earlier, drop the hold now that the kernel is done
	// with the operation's buffer
	if op.hijacked.Load() {
		ring.releaseHold(op)
	}
}

// Close stops both loops, fails queued operations with ErrClosed and releases
// the kernel ring. Awaiters of operations the kernel still held are woken
// with ErrClosed, their completions are lost with the ring, and the
// outstanding count is reported rather than ignored.
func (ring *Ring) Close() (err error) {
	if !ring.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(ring.stopCh)
	ring.wg.Wait()
	// evict operations that never reached the kernel
	ready := make([]*Operation, ring.queue.Cap())
	for {
		peeked := ring.queue.PeekBatch(ready)
		if peeked == 0 {
			break
		}
		for i := int64(0); i < peeked; i++ {
			op := ready[i]
			ready[i] = nil
			ring.fail(op, ErrClosed)
		}
		ring.queue.Advance(peeked)
	}
	outstanding := ring.inflight.Load()
	ring.ring.QueueExit()
	// wake awaiters of kernel-held operations. Abandoned and detached
	// entries are dropped without returning to the pool, nothing will
	// account for them once the kernel side of the ring is gone.
	ring.pinned.Range(func(key, _ interface{}) bool {
		op := key.(*Operation)
		ring.pinned.Delete(op)
		if op.detached {
			ring.inflight.Add(-1)
			return true
		}
		if op.done.CompareAndSwap(false, true) {
			ring.inflight.Add(-1)
			op.ch <- Result{Err: ErrClosed}
		}
		return true
	})
	if outstanding > 0 {
		err = errors.New(
			"ring closed with operations outstanding",
			errors.WithMeta("pkg", "uring"),
			errors.WithMeta("outstanding", strconv.FormatInt(outstanding, 10)),
			errors.WithWrap(ErrClosed),
		)
	}
	return
}
