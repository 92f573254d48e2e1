// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pid

import (
	"sync"
	"sync/atomic"

	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/pkt"
	"flowmesh.dev/fsession/prop"
)

// PID is the output-side handle a filter holds for one logical stream
// (spec §4.3). A single PID fans out to zero or more Instances, one per
// connected downstream filter.
//
// Only the owning filter's task may call ConfigurePID/SendPacket/Remove
// (the single-writer-per-filter invariant, spec §4.4); Instances may be
// drained concurrently by their respective downstream filter's task.
type PID struct {
	name string

	state atomic.Int32 // State, accessed via State()/setState()

	mu    sync.Mutex // guards props and instances
	props *prop.Map

	reservoir *prop.Reservoir

	instances []*Instance

	eosSeen bool
	playing atomic.Bool
}

// New creates a PID named name, owned by a source filter. The caller
// typically derives name from the filter's instance name plus an
// incrementing output index.
func New(name string) *PID {
	p := &PID{name: name, props: &prop.Map{}}
	p.state.Store(int32(StateNew))
	return p
}

// SetReservoir attaches the property-map reservoir SendPacket stamps onto
// every outgoing packet (session.NoReservoir leaves this nil, so packets
// allocate and discard a fresh prop.Map per send instead of recycling).
func (p *PID) SetReservoir(r *prop.Reservoir) { p.reservoir = r }

// Name returns the PID's identifying name (used for log/stat reporting
// and graph resolution tie-breaking).
func (p *PID) Name() string { return p.name }

// State returns the PID's current lifecycle state.
func (p *PID) State() State { return State(p.state.Load()) }

func (p *PID) setState(s State) { p.state.Store(int32(s)) }

// ConfigurePID installs or updates the PID's property map. The first call
// (from StateNew) transitions to StateConfiguring then StateReady; any
// later call on an already-Ready PID transitions through
// StateReconfiguring and back to StateReady. fn receives the live
// property map and must return whether it actually changed anything
// (typically by OR-ing together the bool results of prop.Map.Set calls,
// which are themselves no-ops on an equal value per spec §4.1 item 4);
// ConfigurePID propagates that verdict so callers can skip notifying
// downstream filters when nothing changed (spec §8 item 4).
func (p *PID) ConfigurePID(fn func(m *prop.Map) bool) (changed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateNew {
		p.setState(StateConfiguring)
	} else if p.State() == StateReady {
		p.setState(StateReconfiguring)
	}

	changed = fn(p.props)
	p.setState(StateReady)
	return changed
}

// Props returns the PID's current property map. Callers outside the
// owning filter's task must not mutate it.
func (p *PID) Props() *prop.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props
}

// GetProp is a convenience accessor equivalent to Props().Get(key).
func (p *PID) GetProp(key prop.Key) (prop.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props.Get(key)
}

// AddInstance registers a new downstream consumer binding and returns it.
// Called when the graph resolver completes a link to this PID.
func (p *PID) AddInstance(destName string, maxBufferBytes, maxBufferUs uint32) *Instance {
	sparse := false
	if v, ok := p.GetProp(prop.FourCCKey(prop.PropSparse)); ok {
		sparse = v.Bool()
	}
	inst := NewInstance(destName, maxBufferBytes, maxBufferUs, sparse)

	p.mu.Lock()
	p.instances = append(p.instances, inst)
	p.mu.Unlock()
	return inst
}

// RemoveInstance unregisters a downstream consumer binding, e.g. when a
// filter is removed from the graph mid-session.
func (p *PID) RemoveInstance(destName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, inst := range p.instances {
		if inst.destName == destName {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			return
		}
	}
}

// Instances returns a snapshot of the currently connected instances.
func (p *PID) Instances() []*Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Instance, len(p.instances))
	copy(out, p.instances)
	return out
}

// IsBlocking reports whether any connected instance is applying
// backpressure (spec §7): the source filter must not be scheduled to
// produce more output on this PID until it clears.
func (p *PID) IsBlocking() bool {
	for _, inst := range p.Instances() {
		if inst.IsBlocking() {
			return true
		}
	}
	return false
}

// SendPacket dispatches p to every connected instance, incrementing p's
// refcount once per extra fan-out destination (the first instance
// consumes the caller's own reference). SendPacket marks p dispatched,
// freezing it against further mutation (spec §4.2).
//
// Returns fserr.NotSupported if the PID has no connected instances (spec
// §4.3: sending on an unlinked PID is a caller error, not silently
// dropped), or the first instance enqueue error encountered otherwise.
func (p *PID) SendPacket(packet *pkt.Packet) error {
	if p.State() == StateRemoving || p.State() == StateDiscarding {
		return fserr.New(fserr.BadParam, p.name, "cannot send on a PID being removed")
	}
	instances := p.Instances()
	if len(instances) == 0 {
		packet.Unref()
		return fserr.New(fserr.NotSupported, p.name, "PID has no connected instances")
	}

	packet.SetReservoir(p.reservoir)
	packet.MarkDispatched()
	data := packet.GetData()
	byteSize := len(data)
	durationUs := estimateDurationUs(p, packet)

	var firstErr error
	for i, inst := range instances {
		use := packet
		if i > 0 {
			use = packet.Ref()
		}
		if err := inst.Enqueue(use, byteSize, durationUs); err != nil {
			use.Unref() // enqueue failed, this instance never took ownership
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// estimateDurationUs converts a packet's Duration (in the PID's
// timescale) to microseconds for the byte/duration blocking rule.
func estimateDurationUs(p *PID, packet *pkt.Packet) uint32 {
	timescale, ok := p.GetProp(prop.FourCCKey(prop.PropTimescale))
	if !ok || timescale.UInt() == 0 {
		return 0
	}
	return uint32((uint64(packet.Duration()) * 1_000_000) / uint64(timescale.UInt()))
}

// IsPlaying reports whether a PLAY event has been delivered without a
// matching STOP (spec §4.7: PLAY on an already-playing PID and STOP on a
// stopped PID are silently discarded).
func (p *PID) IsPlaying() bool { return p.playing.Load() }

// SetPlaying updates the playing flag.
func (p *PID) SetPlaying(v bool) { p.playing.Store(v) }

// ResetBuffers discards every connected instance's queued packets and
// buffer accounting (spec §4.7: done by the PID machinery before PLAY and
// SOURCE_SEEK are delivered to the filter).
func (p *PID) ResetBuffers() {
	for _, inst := range p.Instances() {
		inst.Reset()
	}
}

// ScaleBufferLimits rescales every connected instance's buffer limits by
// factor (spec §4.7 SET_SPEED with |speed| != 1).
func (p *PID) ScaleBufferLimits(factor float64) {
	for _, inst := range p.Instances() {
		inst.ScaleBufferLimits(factor)
	}
}

// EndOfStream marks the PID as having delivered its last packet. Per spec
// §4.3 this does not by itself remove the PID; Remove does that once all
// instances have drained.
func (p *PID) EndOfStream() {
	p.mu.Lock()
	p.eosSeen = true
	p.mu.Unlock()
}

// IsEndOfStream reports whether EndOfStream has been signaled.
func (p *PID) IsEndOfStream() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eosSeen
}

// Remove transitions the PID to StateRemoving. The move on to
// StateDiscarding is a separate Discard call, made once
// AllInstancesDrained reports true; the scheduler makes no such call.
func (p *PID) Remove() {
	p.setState(StateRemoving)
}

// AllInstancesDrained reports whether every connected instance's queue is
// empty, the condition for finalizing a removal with Discard (spec §4.3).
func (p *PID) AllInstancesDrained() bool {
	for _, inst := range p.Instances() {
		if !inst.Empty() {
			return false
		}
	}
	return true
}

// Discard finalizes removal once AllInstancesDrained is true.
func (p *PID) Discard() {
	p.setState(StateDiscarding)
}
