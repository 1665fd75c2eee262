//go:build linux

package uring

import "testing"

func TestOperationQueueSaturation(t *testing.T) {
	queue := newOperationQueue(8)
	if queue.Cap() != 8 {
		t.Fatalf("expected capacity 8, got %d", queue.Cap())
	}
	for i := 0; i < 8; i++ {
		if !queue.Enqueue(&Operation{}) {
			t.Fatalf("enqueue %d failed below capacity", i)
		}
	}
	if queue.Enqueue(&Operation{}) {
		t.Fatal("enqueue above capacity must fail, not drop")
	}
	batch := make([]*Operation, 8)
	if n := queue.PeekBatch(batch); n != 8 {
		t.Fatalf("expected 8 peeked, got %d", n)
	}
	queue.Advance(8)
	if queue.Len() != 0 {
		t.Fatalf("expected drained queue, got %d", queue.Len())
	}
	if !queue.Enqueue(&Operation{}) {
		t.Fatal("enqueue after drain failed")
	}
}

func TestRoundupPow2(t *testing.T) {
	for _, c := range [][2]int{{0, 1}, {1, 1}, {2, 2}, {3, 4}, {8, 8}, {9, 16}, {1000, 1024}} {
		if got := roundupPow2(c[0]); got != c[1] {
			t.Fatalf("roundupPow2(%d) = %d, want %d", c[0], got, c[1])
		}
	}
}
