// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package examplefilters provides worked Callbacks implementations that
// exercise a session end to end: a synthetic source, a counting sink, and
// a small container-writing sink grounded on write_qcp.c's structure
// (fixed header once, one write per packet, EOS on input detach).
package examplefilters

import (
	"strconv"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/pkt"
)

// argInt reads a filter's constructor argument as an int, falling back to
// def if absent or unparseable.
func argInt(f *filter.Filter, name string, def int) int {
	v, ok := f.Args()[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// inputInstance finds the Instance on p that feeds f, the lookup every
// sink callback needs before it can Dequeue.
func inputInstance(p *pid.PID, destID string) *pid.Instance {
	for _, inst := range p.Instances() {
		if inst.DestName() == destID {
			return inst
		}
	}
	return nil
}

// dequeueOne pulls the next packet off p's instance feeding f, or returns
// (nil, false) if none is queued. eos reports whether the upstream PID has
// signaled end of stream and the instance is drained.
func dequeueOne(f *filter.Filter, p *pid.PID) (pck *pkt.Packet, eos bool) {
	inst := inputInstance(p, f.ID)
	if inst == nil {
		return nil, false
	}
	got, err := inst.Dequeue(0, 0)
	if err != nil {
		return nil, p.IsEndOfStream() && inst.Empty()
	}
	return got, false
}
