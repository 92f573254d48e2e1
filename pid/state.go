// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pid implements PID and PID Instance (spec §4.3): the
// output-side handle a filter holds for a logical stream, and the
// per-consumer binding that buffers packets for one connected input.
package pid

// State is a PID's position in its configuration lifecycle (spec §4.3).
type State int

const (
	// StateNew is assigned at creation, before the first ConfigurePID.
	StateNew State = iota
	// StateConfiguring is set while a configure_pid callback is running
	// on a not-yet-ready downstream filter.
	StateConfiguring
	// StateReady means the PID has a complete, acknowledged property set
	// and may carry packets.
	StateReady
	// StateReconfiguring means a property changed on an already-ready
	// PID and downstream filters are being re-notified.
	StateReconfiguring
	// StateRemoving means the owning filter called Remove; no new
	// packets may be sent, queued ones still drain.
	StateRemoving
	// StateDiscarding is terminal: all instances have been notified and
	// drained, the PID may be freed.
	StateDiscarding
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateReconfiguring:
		return "reconfiguring"
	case StateRemoving:
		return "removing"
	case StateDiscarding:
		return "discarding"
	default:
		return "unknown"
	}
}
