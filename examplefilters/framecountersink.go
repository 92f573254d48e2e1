// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package examplefilters

import (
	"sync/atomic"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/prop"
)

// FrameCounterSink is a sink filter that accepts a single audio input PID,
// counts the packets and bytes it pulls, and discards the payload. It
// takes the place of a real renderer/muxer in worked end-to-end examples.
type FrameCounterSink struct {
	nbPackets atomic.Int64
	nbBytes   atomic.Int64
	eos       atomic.Bool
}

// NewFrameCounterSinkRegistry declares the registry for FrameCounterSink:
// one audio input, no output.
func NewFrameCounterSinkRegistry() *filter.Registry {
	return &filter.Registry{
		Name:        "framecountersink",
		Description: "counts packets and bytes pulled from its input for worked examples",
		Author:      "fsession",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInput},
		},
		NewInstance: func() filter.Callbacks { return &FrameCounterSink{} },
	}
}

func (s *FrameCounterSink) Initialize(f *filter.Filter) error { return nil }

func (s *FrameCounterSink) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	if isRemove {
		s.eos.Store(true)
	}
	return nil
}

// Process dequeues one packet, if any is queued, and tallies it.
func (s *FrameCounterSink) Process(f *filter.Filter) error {
	ins := f.Inputs()
	if len(ins) == 0 {
		return nil
	}
	p := ins[0]

	pck, eos := dequeueOne(f, p)
	if pck == nil {
		if eos {
			return fserr.EndOfStream
		}
		return nil
	}
	defer pck.Unref()

	s.nbPackets.Add(1)
	s.nbBytes.Add(int64(len(pck.GetData())))
	return nil
}

func (s *FrameCounterSink) ProcessEvent(f *filter.Filter, evt any) bool { return false }

func (s *FrameCounterSink) UpdateArg(f *filter.Filter, name, value string) error {
	return fserr.New(fserr.NotFound, f.ID, name)
}

// NbPackets and NbBytes report the running tallies, safe to call from any
// goroutine once the session has stopped scheduling this filter.
func (s *FrameCounterSink) NbPackets() int64 { return s.nbPackets.Load() }
func (s *FrameCounterSink) NbBytes() int64   { return s.nbBytes.Load() }
