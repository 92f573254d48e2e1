// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package examplefilters

import (
	"errors"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/pkt"
	"flowmesh.dev/fsession/prop"
)

// RawPCMSource is a source filter that produces a fixed number of
// synthetic, silent PCM frames and then declares end of stream. It takes
// the place of a real decoder/demuxer in worked end-to-end examples.
type RawPCMSource struct {
	opid *pid.PID

	sampleRate uint32
	channels   uint32
	frameBytes int
	nbFrames   int

	sent int
}

// NewRawPCMSourceRegistry declares the registry for RawPCMSource: audio
// output, no input. Constructor args "sr", "ch", "frame_bytes", and
// "frames" override the defaults (48000, 2, 1920, 10).
func NewRawPCMSourceRegistry() *filter.Registry {
	return &filter.Registry{
		Name:        "rawpcmsrc",
		Description: "synthetic silent PCM source for worked examples",
		Author:      "fsession",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapOutput},
		},
		NewInstance: func() filter.Callbacks { return &RawPCMSource{} },
	}
}

func (s *RawPCMSource) Initialize(f *filter.Filter) error {
	s.sampleRate = uint32(argInt(f, "sr", 48000))
	s.channels = uint32(argInt(f, "ch", 2))
	s.frameBytes = argInt(f, "frame_bytes", 1920)
	s.nbFrames = argInt(f, "frames", 10)

	s.opid = f.NewOutputPID("pcm")
	if s.opid == nil {
		return fserr.New(fserr.ServiceError, f.ID, "no session wired to allocate an output PID")
	}
	s.opid.ConfigurePID(func(m *prop.Map) bool {
		changed := m.Set(prop.FourCCKey(prop.PropStreamType), prop.NewUInt(uint32(prop.StreamAudio)))
		changed = m.Set(prop.FourCCKey(prop.PropSampleRate), prop.NewUInt(s.sampleRate)) || changed
		changed = m.Set(prop.FourCCKey(prop.PropChannels), prop.NewUInt(s.channels)) || changed
		changed = m.Set(prop.FourCCKey(prop.PropTimescale), prop.NewUInt(s.sampleRate)) || changed
		return changed
	})
	return nil
}

func (s *RawPCMSource) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	return fserr.New(fserr.BadParam, f.ID, "rawpcmsrc accepts no input PID")
}

// Process sends one silent frame per call and declares end of stream once
// nbFrames have been sent, closing the output PID.
func (s *RawPCMSource) Process(f *filter.Filter) error {
	if s.sent >= s.nbFrames {
		s.opid.EndOfStream()
		return fserr.EndOfStream
	}
	if s.opid.IsBlocking() {
		f.Reschedule()
		return nil
	}

	pck, buf := pkt.NewAllocated(s.frameBytes)
	for i := range buf {
		buf[i] = 0
	}
	samplesPerFrame := uint64(s.frameBytes) / uint64(4*maxU32(s.channels, 1))
	pck.SetDTS(uint64(s.sent) * samplesPerFrame)
	pck.SetCTS(uint64(s.sent) * samplesPerFrame)
	pck.SetDuration(uint32(samplesPerFrame))
	if s.sent == 0 {
		pck.SetSAP(pkt.SAP1)
	}

	s.sent++
	if err := s.opid.SendPacket(pck); err != nil && !errors.Is(err, fserr.NotSupported) {
		return err
	}
	f.Reschedule() // no input PID to wait on; re-arm the next pass ourselves
	return nil
}

func (s *RawPCMSource) ProcessEvent(f *filter.Filter, evt any) bool { return false }

func (s *RawPCMSource) UpdateArg(f *filter.Filter, name, value string) error {
	return fserr.New(fserr.NotFound, f.ID, name)
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
