// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph_test

import (
	"testing"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/graph"
	"flowmesh.dev/fsession/prop"
)

func reg(name string, priority int, caps []filter.CapEntry) *filter.Registry {
	return &filter.Registry{
		Name:     name,
		Priority: priority,
		Caps:     caps,
		NewInstance: func() filter.Callbacks {
			return nil
		},
	}
}

func streamTypeCap(dir filter.CapFlag, st uint32) filter.CapEntry {
	return filter.CapEntry{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(st), Flags: dir}
}

func TestResolveTrivialChain(t *testing.T) {
	demux := reg("demux", 0, []filter.CapEntry{
		streamTypeCap(filter.CapOutput, uint32(prop.StreamAudio)),
	})
	decode := reg("decode", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamAudio)),
		streamTypeCap(filter.CapOutput, uint32(prop.StreamVisual)),
	})
	sink := reg("sink", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamVisual)),
	})

	g := graph.New([]*filter.Registry{demux, decode, sink})
	path, ok := g.Resolve(demux, func(r *filter.Registry) bool { return r == sink }, graph.DefaultMaxChainLength)
	if !ok {
		t.Fatalf("expected a resolvable path")
	}
	if len(path.Registries) != 3 || path.Registries[1] != decode || path.Registries[2] != sink {
		t.Fatalf("unexpected path: %+v", path.Registries)
	}
}

func TestResolveTieBreakByPriority(t *testing.T) {
	src := reg("src", 0, []filter.CapEntry{
		streamTypeCap(filter.CapOutput, uint32(prop.StreamVisual)),
	})
	lowPrio := reg("sinkLow", 1, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamVisual)),
	})
	highPrio := reg("sinkHigh", 10, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamVisual)),
	})

	g := graph.New([]*filter.Registry{src, lowPrio, highPrio})
	path, ok := g.Resolve(src, func(r *filter.Registry) bool {
		return r == lowPrio || r == highPrio
	}, graph.DefaultMaxChainLength)
	if !ok {
		t.Fatalf("expected a path")
	}
	if path.Registries[len(path.Registries)-1] != lowPrio {
		t.Fatalf("equal-weight resolution should prefer the registry with the lower priority value, got %s",
			path.Registries[len(path.Registries)-1].Name)
	}
}

func TestResolveNoPath(t *testing.T) {
	src := reg("src", 0, []filter.CapEntry{
		streamTypeCap(filter.CapOutput, uint32(prop.StreamVisual)),
	})
	sink := reg("sink", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamAudio)),
	})
	g := graph.New([]*filter.Registry{src, sink})
	if _, ok := g.Resolve(src, func(r *filter.Registry) bool { return r == sink }, graph.DefaultMaxChainLength); ok {
		t.Fatalf("mismatched stream types should not resolve")
	}
}

func TestResolveZeroChainLengthDisablesResolution(t *testing.T) {
	demux := reg("demux", 0, []filter.CapEntry{
		streamTypeCap(filter.CapOutput, uint32(prop.StreamAudio)),
	})
	sink := reg("sink", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamAudio)),
	})
	g := graph.New([]*filter.Registry{demux, sink})
	if _, ok := g.Resolve(demux, func(r *filter.Registry) bool { return r == sink }, 0); ok {
		t.Fatalf("max_chain_length=0 must disable dynamic link resolution (spec §8)")
	}
}

func TestResolveSkipsLoadedFilterOnlyBundle(t *testing.T) {
	src := reg("src", 0, []filter.CapEntry{
		streamTypeCap(filter.CapOutput, uint32(prop.StreamAudio)),
	})
	sink := reg("sink", 0, []filter.CapEntry{
		{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInputLoadedFilter()},
	})
	g := graph.New([]*filter.Registry{src, sink})
	if _, ok := g.Resolve(src, func(r *filter.Registry) bool { return r == sink }, graph.DefaultMaxChainLength); ok {
		t.Fatalf("a bundle carrying only CapLoadedFilter must never be reachable through CapabilityGraph resolution")
	}
}

func TestMaxChainLengthBound(t *testing.T) {
	a := reg("a", 0, []filter.CapEntry{streamTypeCap(filter.CapOutput, uint32(prop.StreamAudio))})
	b := reg("b", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamAudio)),
		streamTypeCap(filter.CapOutput, uint32(prop.StreamVisual)),
	})
	c := reg("c", 0, []filter.CapEntry{
		streamTypeCap(filter.CapInput, uint32(prop.StreamVisual)),
		streamTypeCap(filter.CapOutput, uint32(prop.StreamText)),
	})
	sink := reg("sink", 0, []filter.CapEntry{streamTypeCap(filter.CapInput, uint32(prop.StreamText))})

	g := graph.New([]*filter.Registry{a, b, c, sink})
	if _, ok := g.Resolve(a, func(r *filter.Registry) bool { return r == sink }, 2); ok {
		t.Fatalf("path a->b->c->sink is 3 hops, should exceed a max chain length of 2")
	}
	if _, ok := g.Resolve(a, func(r *filter.Registry) bool { return r == sink }, 3); !ok {
		t.Fatalf("path should resolve within a max chain length of 3")
	}
}
