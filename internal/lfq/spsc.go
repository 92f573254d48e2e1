// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue, used as a PID
// instance's packet queue: the owning filter (single-writer rule) is the
// only producer, and the one downstream filter bound to that instance is
// the only consumer.
//
// Based on Lamport's ring buffer with cached-index optimization: the
// producer caches the consumer's dequeue index and vice versa, cutting
// cross-core cache line traffic on the hot path.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64
	_          pad
	cachedTail uint64
	_          pad
	tail       atomix.Uint64
	_          pad
	cachedHead uint64
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates a new SPSC queue. Capacity rounds up to the next power
// of 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 2 {
		panic("lfq: capacity must be >= 2")
	}
	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element (producer only).
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return ErrWouldBlock
		}
	}
	q.buffer[tail&q.mask] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}
	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int { return int(q.mask + 1) }

// Drain is a no-op kept for API parity with MPMC/MPSC: SPSC's Dequeue
// already returns ErrWouldBlock as soon as the ring is empty, so there is
// no livelock guard to bypass during teardown.
func (q *SPSC[T]) Drain() {}
