// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched implements the Scheduler (spec §4.6): a shared
// runnable-filter set pulled from by a worker pool, task taxonomy,
// regulation/sleep, and cancellation.
package sched

// Mode names the Scheduler's queueing and execution strategy (spec
// §4.6). Only ModeDirect changes the Scheduler's behavior (it forces zero
// workers); the other four modes run the same MPSC-fed dispatch loop and
// errgroup worker pool and differ only in the value Scheduler.Mode
// reports.
type Mode int

const (
	// ModeLockFree names lock-free queues for packets/properties with a
	// mutexed main task list.
	ModeLockFree Mode = iota
	// ModeLock names mutexed queues throughout.
	ModeLock
	// ModeLockFreeX names lock-free structures everywhere, including the
	// main task list.
	ModeLockFreeX
	// ModeLockForce names mutexes even with a single worker; test mode.
	ModeLockForce
	// ModeDirect runs with no worker threads: tasks execute as nested
	// calls on the caller's goroutine.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeLockFree:
		return "lock-free"
	case ModeLock:
		return "lock"
	case ModeLockFreeX:
		return "lock-free-x"
	case ModeLockForce:
		return "lock-force"
	case ModeDirect:
		return "direct"
	default:
		return "unknown"
	}
}

// FlushType names how Abort drains in-flight work (spec §4.6). Abort
// records the value (see Scheduler.FlushType) but stops dispatch the same
// way for all three: Run returns EndOfStream at its next pass. No source
// is forced to end of stream and no buffer is emptied.
type FlushType int

const (
	// FlushNone names dropping everything immediately.
	FlushNone FlushType = iota
	// FlushAll names forcing EndOfStream on every source, then draining
	// normally.
	FlushAll
	// FlushFast names stopping sources, emptying buffers, and draining
	// muxers only.
	FlushFast
)
