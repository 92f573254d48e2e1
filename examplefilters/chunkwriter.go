// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package examplefilters

import (
	"encoding/binary"
	"io"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/prop"
)

// chunkMagic and chunkVersion identify the fixed header ChunkWriter emits
// once, before the first payload write: an 8-byte magic, a version byte,
// and the 32-bit sample rate and channel count read off the input PID at
// configure time. Grounded on write_qcp.c's qcpmx_send_header: a single
// fixed-format header built once and sent ahead of the first data packet.
var chunkMagic = [8]byte{'F', 'S', 'C', 'H', 'U', 'N', 'K', '1'}

const chunkVersion = 1

// ChunkWriter is a sink filter that writes a fixed header once, then the
// raw bytes of every subsequent input packet, to an in-memory or
// caller-supplied io.Writer. It takes the place of a real container muxer
// in worked end-to-end examples; it never parses or reframes the payload.
type ChunkWriter struct {
	out io.Writer

	sampleRate uint32
	channels   uint32
	headerSent bool
	bytesOut   int64
	packetsOut int64
}

// NewChunkWriterRegistry declares the registry for ChunkWriter: one audio
// input, no output. dst receives the header and every packet's raw bytes
// in order; the caller owns its lifetime (close/flush it after Run
// returns).
func NewChunkWriterRegistry(dst io.Writer) *filter.Registry {
	return &filter.Registry{
		Name:        "chunkwriter",
		Description: "writes a fixed header once then raw packet bytes, for worked examples",
		Author:      "fsession",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInput},
		},
		NewInstance: func() filter.Callbacks { return &ChunkWriter{out: dst} },
	}
}

func (w *ChunkWriter) Initialize(f *filter.Filter) error { return nil }

// ConfigurePID validates the upstream declares STREAM_TYPE=Audio and
// records its SampleRate/NumChannels for the header, mirroring
// qcpmx_configure_pid's input validation in write_qcp.c.
func (w *ChunkWriter) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	if isRemove {
		return nil
	}
	st, ok := p.GetProp(prop.FourCCKey(prop.PropStreamType))
	if !ok || st.UInt() != uint32(prop.StreamAudio) {
		return fserr.New(fserr.BadParam, f.ID, "chunkwriter requires an audio input")
	}
	if v, ok := p.GetProp(prop.FourCCKey(prop.PropSampleRate)); ok {
		w.sampleRate = v.UInt()
	}
	if v, ok := p.GetProp(prop.FourCCKey(prop.PropChannels)); ok {
		w.channels = v.UInt()
	}
	return nil
}

// sendHeader writes the fixed 17-byte header exactly once, ahead of the
// first packet's payload (write_qcp.c: qcpmx_send_header called from
// qcpmx_process on its first invocation).
func (w *ChunkWriter) sendHeader() error {
	if w.headerSent {
		return nil
	}
	var hdr [8 + 1 + 4 + 4]byte
	copy(hdr[:8], chunkMagic[:])
	hdr[8] = chunkVersion
	binary.LittleEndian.PutUint32(hdr[9:13], w.sampleRate)
	binary.LittleEndian.PutUint32(hdr[13:17], w.channels)
	if _, err := w.out.Write(hdr[:]); err != nil {
		return fserr.Wrap(fserr.IOError, "chunkwriter", err)
	}
	w.headerSent = true
	return nil
}

// Process pulls one input packet, writing the header first if this is the
// first call, then the packet's raw bytes, and drops the input packet
// (write_qcp.c: qcpmx_process). On upstream end of stream with nothing
// left queued it returns fserr.EndOfStream.
func (w *ChunkWriter) Process(f *filter.Filter) error {
	ins := f.Inputs()
	if len(ins) == 0 {
		return fserr.EndOfStream
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

	if err := w.sendHeader(); err != nil {
		return err
	}

	data := pck.GetData()
	if _, err := w.out.Write(data); err != nil {
		return fserr.Wrap(fserr.IOError, f.ID, err)
	}
	w.bytesOut += int64(len(data))
	w.packetsOut++
	return nil
}

func (w *ChunkWriter) ProcessEvent(f *filter.Filter, evt any) bool { return false }

func (w *ChunkWriter) UpdateArg(f *filter.Filter, name, value string) error {
	return fserr.New(fserr.NotFound, f.ID, name)
}

// BytesWritten and PacketsWritten report the running tallies of payload
// bytes/packets written after the header.
func (w *ChunkWriter) BytesWritten() int64   { return w.bytesOut }
func (w *ChunkWriter) PacketsWritten() int64 { return w.packetsOut }
