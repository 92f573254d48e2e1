// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides the bounded lock-free FIFO queues that back the
// filter session's hot paths: a PID instance's packet queue, the
// scheduler's runnable-filter set, and the property-map reservoir.
//
// Three variants are kept, one per access pattern actually exercised by
// the session:
//
//   - SPSC: a pid.Instance's packet queue (the PID's producing filter
//     enqueues, the one downstream consumer of that instance dequeues).
//   - MPSC: the scheduler's global runnable-filter submission queue
//     (many workers may enqueue a filter as runnable, one dispatch loop
//     drains it).
//   - MPMC: the free list of a prop.Reservoir (any goroutine releasing a
//     packet may put a property map back, any goroutine may take one).
//
// All three share the same non-blocking Enqueue/Dequeue contract: an
// operation that cannot proceed immediately returns [ErrWouldBlock] rather
// than blocking the calling goroutine, so callers can apply their own
// backpressure or scheduling policy instead of stalling a worker.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause instructions while
// retrying a contended slot.
package lfq
