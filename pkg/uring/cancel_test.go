//go:build linux

package uring

import (
	"context"
	"sync"
	"syscall"
	"testing"
)

// newLoopbackRing builds a ring whose loops never run, completions are
// driven by the test in the order under scrutiny.
func newLoopbackRing(entries int) *Ring {
	return &Ring{
		queue:       newOperationQueue(entries),
		pushRetries: 1,
		operations: sync.Pool{
			New: func() interface{} {
				return &Operation{ch: make(chan Result, 1)}
			},
		},
		stopCh: make(chan struct{}),
	}
}

func TestAbandonedOperationHeldUntilCancelCompletes(t *testing.T) {
	ring := newLoopbackRing(8)
	op := ring.AcquireOperation()
	op.PrepareRead(1, make([]byte, 8), 0)
	if err := ring.Push(op); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, hijacked, err := ring.await(ctx, op)
	if !hijacked {
		t.Fatal("expected the abandoned operation to be hijacked")
	}
	if !IsUncompleted(err) {
		t.Fatalf("expected ErrUncompleted, got %v", err)
	}

	// drain the queue the way the submit loop would, the read plus its cancel
	batch := make([]*Operation, 8)
	peeked := ring.queue.PeekBatch(batch)
	if peeked != 2 {
		t.Fatalf("expected the read and its cancel queued, got %d", peeked)
	}
	cop := batch[1]
	if cop.kind != cancelOp || cop.target != op {
		t.Fatal("expected a cancel entry targeting the abandoned operation")
	}
	ring.queue.Advance(peeked)

	// the read's own completion arrives first, the operation must stay held
	// while the cancel entry still references it
	ring.complete(op, -int32(syscall.ECANCELED))
	if _, pinned := ring.pinned.Load(op); !pinned {
		t.Fatal("operation released while its cancel entry was outstanding")
	}
	if !op.hijacked.Load() {
		t.Fatal("operation recycled while its cancel entry was outstanding")
	}

	// the cancel's completion drops the last hold
	ring.complete(cop, 0)
	if _, pinned := ring.pinned.Load(op); pinned {
		t.Fatal("operation still pinned after both completions arrived")
	}
	if op.hijacked.Load() {
		t.Fatal("hijack flag not cleared after release")
	}
}

func TestAbandonedOperationWithoutCancelReleasedByCompletion(t *testing.T) {
	ring := newLoopbackRing(8)
	ring.closed.Store(true) // cancel submission is refused on a closing ring
	op := ring.AcquireOperation()
	op.PrepareRead(1, make([]byte, 8), 0)
	ring.pin(op)
	ring.inflight.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, hijacked, err := ring.await(ctx, op)
	if !hijacked || !IsUncompleted(err) {
		t.Fatalf("expected hijack with ErrUncompleted, got %v", err)
	}

	// only the operation's own completion is outstanding
	ring.complete(op, -int32(syscall.ECANCELED))
	if _, pinned := ring.pinned.Load(op); pinned {
		t.Fatal("operation still pinned after its completion arrived")
	}
	if op.hijacked.Load() {
		t.Fatal("hijack flag not cleared after release")
	}
}
