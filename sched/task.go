// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import "flowmesh.dev/fsession/filter"

// TaskKind classifies a unit of scheduled work (spec §4.6 task taxonomy).
type TaskKind int

const (
	// TaskProcess is a per-filter process() invocation.
	TaskProcess TaskKind = iota
	// TaskUser is a per-filter user task posted via post_task.
	TaskUser
	// TaskMainThreadUser is a user task pinned to the main worker.
	TaskMainThreadUser
	// TaskGraphResolution is a graph resolution/link request.
	TaskGraphResolution
	// TaskConfigurePID is a configure_pid callback invocation.
	TaskConfigurePID
	// TaskEvent is an event-delivery callback invocation.
	TaskEvent
	// TaskPeriodic is a session-wide periodic task (e.g. stats).
	TaskPeriodic
)

// Task describes one unit of work by kind. Filter is nil for session-wide
// tasks (TaskGraphResolution, TaskPeriodic). The Scheduler dispatches
// filters directly through its runnable set and takes no Task values.
type Task struct {
	Kind   TaskKind
	Filter *filter.Filter
	Run    func() error

	// MainThreadOnly marks work that belongs on the main worker regardless
	// of Kind. Nothing in this module sets or reads it.
	MainThreadOnly bool
}

func (t Task) requiresFilterSlot() bool {
	switch t.Kind {
	case TaskProcess, TaskUser, TaskMainThreadUser, TaskConfigurePID, TaskEvent:
		return t.Filter != nil
	default:
		return false
	}
}
