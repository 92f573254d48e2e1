// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pid

import (
	"sync/atomic"

	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/internal/lfq"
	"flowmesh.dev/fsession/pkt"
)

// instanceQueueCapacity bounds each PID instance's packet queue. Producers
// see ErrWouldBlock once a consumer falls behind by this many packets,
// independent of the byte/duration-based blocking rule below.
const instanceQueueCapacity = 4096

// Instance is the consumer-side binding for one downstream filter
// connected to a PID (spec §4.3's "PID instance"): its own queue, buffer
// accounting, and blocking state, so that one slow consumer in a fan-out
// does not stall the others. An instance is by construction exactly one
// producer (the PID's owning filter, single-writer rule) feeding exactly
// one consumer (this instance's downstream filter), so its queue is an
// SPSC ring.
type Instance struct {
	destName string
	sparse   bool

	queue *lfq.SPSC[*pkt.Packet]

	maxBufferBytes uint32
	maxBufferUs    uint32

	bufferedBytes atomic.Uint32
	bufferedUs    atomic.Uint32
	blocking      atomic.Bool
	queued        atomic.Int32
}

// NewInstance creates a PID instance queue for a downstream filter named
// destName. maxBufferBytes/maxBufferUs of zero disable that dimension of
// the blocking rule. sparse marks a non-continuous stream (spec §4.3): a
// sparse instance blocks as soon as any packet is queued rather than
// waiting for byte/duration thresholds, since sparse data is expected to
// be drained promptly rather than accumulate.
func NewInstance(destName string, maxBufferBytes, maxBufferUs uint32, sparse bool) *Instance {
	return &Instance{
		destName:       destName,
		sparse:         sparse,
		queue:          lfq.NewSPSC[*pkt.Packet](instanceQueueCapacity),
		maxBufferBytes: maxBufferBytes,
		maxBufferUs:    maxBufferUs,
	}
}

// DestName identifies the downstream filter this instance feeds.
func (in *Instance) DestName() string { return in.destName }

// Enqueue pushes p onto this instance's queue and updates buffer
// accounting used by IsBlocking. p must already be refcounted for this
// instance (the PID's fan-out does this before calling Enqueue).
func (in *Instance) Enqueue(p *pkt.Packet, byteSize int, durationUs uint32) error {
	if err := in.queue.Enqueue(&p); err != nil {
		return fserr.Wrap(fserr.NotReady, in.destName, err)
	}
	in.bufferedBytes.Add(uint32(byteSize))
	in.bufferedUs.Add(durationUs)
	in.queued.Add(1)
	in.refreshBlocking()
	return nil
}

// Empty reports whether the instance's queue currently holds no packets,
// without consuming one. Used by PID removal to decide when an instance
// has fully drained.
func (in *Instance) Empty() bool { return in.queued.Load() == 0 }

// Dequeue pops the next packet, updating buffer accounting. Returns
// fserr.NotReady (wrapping lfq.ErrWouldBlock) when the queue is empty.
func (in *Instance) Dequeue(byteSize int, durationUs uint32) (*pkt.Packet, error) {
	p, err := in.queue.Dequeue()
	if err != nil {
		return nil, fserr.Wrap(fserr.NotReady, in.destName, err)
	}
	if b := in.bufferedBytes.Load(); b >= uint32(byteSize) {
		in.bufferedBytes.Store(b - uint32(byteSize))
	} else {
		in.bufferedBytes.Store(0)
	}
	if u := in.bufferedUs.Load(); u >= durationUs {
		in.bufferedUs.Store(u - durationUs)
	} else {
		in.bufferedUs.Store(0)
	}
	in.queued.Add(-1)
	in.refreshBlocking()
	return p, nil
}

func (in *Instance) refreshBlocking() {
	if in.sparse {
		in.blocking.Store(in.queued.Load() > 0)
		return
	}
	overBytes := in.maxBufferBytes != 0 && in.bufferedBytes.Load() >= in.maxBufferBytes
	overTime := in.maxBufferUs != 0 && in.bufferedUs.Load() >= in.maxBufferUs
	in.blocking.Store(overBytes || overTime)
}

// IsBlocking reports whether this instance has crossed its buffer
// threshold and should hold back its source filter's scheduling (spec
// §4.3, §7 backpressure).
func (in *Instance) IsBlocking() bool { return in.blocking.Load() }

// BufferedBytes and BufferedMicroseconds report current buffer occupancy,
// used by session stats reporting.
func (in *Instance) BufferedBytes() uint32 { return in.bufferedBytes.Load() }
func (in *Instance) BufferedMicroseconds() uint32 { return in.bufferedUs.Load() }

// Drain forwards to the SPSC ring's Drain, which is a no-op: Dequeue never
// blocks, so there is no waiting call to release.
func (in *Instance) Drain() { in.queue.Drain() }

// Reset discards every currently queued packet and zeroes buffer
// accounting, for PLAY/SOURCE_SEEK's buffer-reset rule (spec §4.7).
func (in *Instance) Reset() {
	for {
		p, err := in.queue.Dequeue()
		if err != nil {
			break
		}
		p.Unref()
		in.queued.Add(-1)
	}
	in.bufferedBytes.Store(0)
	in.bufferedUs.Store(0)
	in.refreshBlocking()
}

// ScaleBufferLimits rescales max_buffer_bytes/max_buffer_µs by factor,
// for SET_SPEED's |speed| != 1 rule (spec §4.7). factor <= 0 is ignored.
func (in *Instance) ScaleBufferLimits(factor float64) {
	if factor <= 0 {
		return
	}
	in.maxBufferBytes = uint32(float64(in.maxBufferBytes) * factor)
	in.maxBufferUs = uint32(float64(in.maxBufferUs) * factor)
	in.refreshBlocking()
}
