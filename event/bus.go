// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package event

import (
	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/pid"
)

// Bus propagates events across the filter graph (spec §4.7): downstream
// events walk from a filter to each of its input PIDs toward sources,
// upstream events walk to each output PID toward sinks, repeating until
// sources/sinks are reached or a filter cancels delivery (ProcessEvent
// returns true).
type Bus struct {
	// FilterOf resolves the filter instance that produces (owns) a given
	// PID. Used to find the next filter to visit when walking an input
	// PID downstream-toward-source. The session wires this from its PID
	// registry.
	FilterOf func(p *pid.PID) *filter.Filter

	// ResolveFilter resolves a PID instance's destination name (spec
	// §4.3's "PID instance") back to the consuming *filter.Filter, for
	// walking an output PID upstream-toward-sink.
	ResolveFilter func(destName string) *filter.Filter
}

// New constructs a Bus. filterOf and resolveFilter wire the session's PID
// and filter registries for downstream and upstream walks respectively.
func New(filterOf func(p *pid.PID) *filter.Filter, resolveFilter func(destName string) *filter.Filter) *Bus {
	return &Bus{FilterOf: filterOf, ResolveFilter: resolveFilter}
}

// Dispatch delivers evt to start, then — unless start cancels —
// propagates to every PID evt.Kind.Direction implies, and repeats at
// whatever filter each of those PIDs leads to, breadth-first, until
// canceled or the graph's edges are exhausted (spec §4.7).
//
// A filter's relevant PIDs (its inputs for a downstream event, outputs
// for an upstream one) are checked for the PLAY/STOP dedup rule before
// the filter's own ProcessEvent runs: if every relevant PID discards the
// event, the filter never sees it and propagation along that branch
// stops there. A filter with no relevant PIDs (a source or sink, the
// walk's natural terminus) is never gated this way.
//
// AttachScene/ResetScene are rejected: they are main-thread-only direct
// calls and must never be posted to the bus (spec's supplemented
// scene-graph interface).
func (b *Bus) Dispatch(start *filter.Filter, evt Event) {
	if evt.Kind == AttachScene || evt.Kind == ResetScene {
		return
	}
	dir := evt.Kind.Direction()
	visited := map[*filter.Filter]bool{}
	queue := []*filter.Filter{start}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f == nil || visited[f] {
			continue
		}
		visited[f] = true
		queue = append(queue, b.visit(f, evt, dir)...)
	}
}

// visit applies evt's PID-local side effects and, unless every relevant
// PID discarded it, delivers it to f.Impl.ProcessEvent. It returns the
// next filters to enqueue, or nil if f discarded or canceled the event.
func (b *Bus) visit(f *filter.Filter, evt Event, dir Direction) []*filter.Filter {
	pids := b.pidsForDirection(f, dir)

	type branch struct {
		p  *pid.PID
		ok bool
	}
	branches := make([]branch, len(pids))
	anyOK := len(pids) == 0 // no relevant PIDs: nothing to gate on
	for i, p := range pids {
		ok := b.applySideEffects(p, evt)
		branches[i] = branch{p, ok}
		anyOK = anyOK || ok
	}
	if !anyOK {
		return nil // every branch discarded the event (spec §4.7)
	}

	if f.Impl != nil && f.Impl.ProcessEvent(f, evt) {
		return nil // canceled: do not forward past this filter
	}

	var next []*filter.Filter
	for _, br := range branches {
		if br.ok {
			next = append(next, b.nextFilter(br.p, dir))
		}
	}
	return next
}

func (b *Bus) pidsForDirection(f *filter.Filter, dir Direction) []*pid.PID {
	switch dir {
	case Downstream:
		return f.Inputs()
	case Upstream:
		return f.Outputs()
	default:
		return nil
	}
}

// applySideEffects updates p's state for play/stop dedup, buffer reset,
// and speed scaling, reporting whether propagation should continue past
// p (false for the PLAY-on-playing / STOP-on-stopped discard rule).
func (b *Bus) applySideEffects(p *pid.PID, evt Event) bool {
	switch evt.Kind {
	case Play:
		if p.IsPlaying() {
			return false
		}
		p.SetPlaying(true)
	case Stop:
		if !p.IsPlaying() {
			return false
		}
		p.SetPlaying(false)
	case SetSpeed:
		if evt.Speed != 0 && evt.Speed != 1 {
			p.ScaleBufferLimits(1 / absf(evt.Speed))
		}
	}
	if evt.Kind.resetsBuffers() {
		p.ResetBuffers()
	}
	return true
}

// nextFilter resolves the next filter to visit past p: its producer for
// a Downstream walk (an input PID's own upstream filter), or the
// consuming filter reached by an output PID for an Upstream walk.
func (b *Bus) nextFilter(p *pid.PID, dir Direction) *filter.Filter {
	switch dir {
	case Downstream:
		if b.FilterOf == nil {
			return nil
		}
		return b.FilterOf(p)
	case Upstream:
		for _, inst := range p.Instances() {
			if cf := b.consumerByName(inst.DestName()); cf != nil {
				return cf
			}
		}
	}
	return nil
}

func (b *Bus) consumerByName(name string) *filter.Filter {
	if b.ResolveFilter == nil {
		return nil
	}
	return b.ResolveFilter(name)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
