//go:build linux

package uring

import (
	"sync/atomic"
	"unsafe"
)

func roundupPow2(n int) int {
	if n <= 0 {
		return 1
	}
	v := n - 1
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

// operationQueue is a bounded MPSC ring of pending operations. Producers are
// submitting goroutines, the single consumer is the submission loop.
type operationQueue struct {
	head     unsafe.Pointer
	tail     unsafe.Pointer
	entries  int64
	capacity int64
}

type operationQueueNode struct {
	value unsafe.Pointer
	next  unsafe.Pointer
}

func newOperationQueue(n int) (queue *operationQueue) {
	if n < 1 {
		n = defaultEntries
	}
	n = roundupPow2(n)
	queue = &operationQueue{
		entries:  0,
		capacity: int64(n),
	}
	head := &operationQueueNode{}
	queue.head = unsafe.Pointer(head)
	tail := head
	for i := 1; i < n; i++ {
		next := &operationQueueNode{}
		tail.next = unsafe.Pointer(next)
		tail = next
	}
	tail.next = queue.head
	queue.tail = queue.head
	return
}

func (queue *operationQueue) Enqueue(op *Operation) (ok bool) {
	ptr := unsafe.Pointer(op)
	for {
		if atomic.LoadInt64(&queue.entries) >= queue.capacity {
			break
		}
		tail := (*operationQueueNode)(atomic.LoadPointer(&queue.tail))
		if atomic.LoadPointer(&tail.value) != nil {
			continue
		}
		if atomic.CompareAndSwapPointer(&tail.value, nil, ptr) {
			for {
				if atomic.CompareAndSwapPointer(&queue.tail, unsafe.Pointer(tail), tail.next) {
					atomic.AddInt64(&queue.entries, 1)
					ok = true
					return
				}
			}
		}
	}
	return
}

func (queue *operationQueue) PeekBatch(operations []*Operation) (n int64) {
	size := int64(len(operations))
	if size == 0 {
		return
	}
	if num := atomic.LoadInt64(&queue.entries); num < size {
		size = num
	}
	node := (*operationQueueNode)(atomic.LoadPointer(&queue.head))
	for i := int64(0); i < size; i++ {
		target := atomic.LoadPointer(&node.value)
		if target == nil {
			break
		}
		operations[i] = (*Operation)(target)
		node = (*operationQueueNode)(atomic.LoadPointer(&node.next))
		n++
	}
	return
}

func (queue *operationQueue) Advance(n int64) {
	for i := int64(0); i < n; i++ {
		head := (*operationQueueNode)(atomic.LoadPointer(&queue.head))
		atomic.StorePointer(&head.value, nil)
		if atomic.CompareAndSwapPointer(&queue.head, unsafe.Pointer(head), head.next) {
			atomic.AddInt64(&queue.entries, -1)
		}
	}
}

func (queue *operationQueue) Len() int64 {
	return atomic.LoadInt64(&queue.entries)
}

func (queue *operationQueue) Cap() int64 {
	return queue.capacity
}
