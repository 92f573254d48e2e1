// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package graph implements the CapabilityGraph and LinkResolver (spec
// §4.5): a Dijkstra shortest-weighted-path search over registered
// filters, weighted by capability-bundle match quality.
package graph

import (
	"container/heap"

	"flowmesh.dev/fsession/filter"
)

// DefaultMaxChainLength bounds a resolved path's length (spec §4.5):
// demux -> reframe -> decode -> encode -> reframe -> mux.
const DefaultMaxChainLength = 6

type edge struct {
	to       int
	weight   int
	priority int // destination registry's priority, for tie-break
}

// Graph is the capability graph over a fixed set of registries. It is
// cached per session and rebuilt only when the registry set changes or
// the resolver is asked to bypass the cache (spec §4.5 NO_GRAPH_CACHE).
type Graph struct {
	registries []*filter.Registry
	adjacency  [][]edge
	built      bool
}

// New creates an empty graph over registries; call Build before
// resolving.
func New(registries []*filter.Registry) *Graph {
	return &Graph{registries: registries}
}

// Invalidate forces the next Resolve to rebuild the adjacency list, per
// spec §4.5's "invalidated when registries are added/removed".
func (g *Graph) Invalidate() { g.built = false }

// SetRegistries replaces the registry set and invalidates the cache.
func (g *Graph) SetRegistries(registries []*filter.Registry) {
	g.registries = registries
	g.Invalidate()
}

// Build computes the adjacency list: an edge from every output bundle of
// registry X to every input bundle of registry Y with non-zero match
// weight (spec §4.5). Only the best (lowest-weight) edge between any
// (X, Y) pair is retained.
func (g *Graph) Build() {
	n := len(g.registries)
	g.adjacency = make([][]edge, n)
	best := make(map[[2]int]edge)

	for xi, x := range g.registries {
		outBundles := x.OutputBundles()
		if len(outBundles) == 0 {
			continue
		}
		for yi, y := range g.registries {
			if xi == yi && x.Flags&filter.FlagAllowCyclic == 0 {
				continue
			}
			if y.Flags&filter.FlagExplicitOnly != 0 {
				continue
			}
			inBundles := y.InputBundles()
			bestWeight := -1
			for _, ob := range outBundles {
				outMap := ob.AsPropMap()
				for _, ib := range inBundles {
					if ib.RequiresLoadedFilter() {
						continue // only reachable via a direct loaded-destination match, see session.Connect
					}
					matched, ok := filter.Match(outMap, ib)
					if !ok || matched == 0 {
						continue
					}
					w := 1000 - matched
					if bestWeight == -1 || w < bestWeight {
						bestWeight = w
					}
				}
			}
			if bestWeight == -1 {
				continue
			}
			key := [2]int{xi, yi}
			e := edge{to: yi, weight: bestWeight, priority: y.Priority}
			if cur, ok := best[key]; !ok || e.weight < cur.weight {
				best[key] = e
			}
		}
	}
	for k, e := range best {
		g.adjacency[k[0]] = append(g.adjacency[k[0]], e)
	}
	g.built = true
}

func (g *Graph) ensureBuilt() {
	if !g.built {
		g.Build()
	}
}

// indexOf returns the index of reg in g.registries, or -1.
func (g *Graph) indexOf(reg *filter.Registry) int {
	for i, r := range g.registries {
		if r == reg {
			return i
		}
	}
	return -1
}

// Path is a resolved chain of registry indices from a source to a
// destination, plus its total weight.
type Path struct {
	Registries []*filter.Registry
	Weight     int
}

// dijkstraItem is one entry of the priority queue: lower dist wins; ties
// broken in favor of the lower destination-registry priority value (spec
// §4.5).
type dijkstraItem struct {
	node     int
	dist     int
	priority int
	index    int
}

type priorityQueue []*dijkstraItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].priority < pq[j].priority
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x any) {
	it := x.(*dijkstraItem)
	it.index = len(*pq)
	*pq = append(*pq, it)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}

// Resolve runs Dijkstra from sourceReg to any registry for which sink
// returns true, bounded by maxChainLen edges. maxChainLen < 0 selects
// DefaultMaxChainLength; maxChainLen == 0 disables dynamic link
// resolution entirely (spec §8 boundary behavior) — no edge is ever
// traversed, so only a sourceReg that is itself accepted by sink could
// match, which Resolve excludes by construction (see the cur.node !=
// src guard below). It returns the lowest-weight matching path, or
// ok=false if none exists within the bound.
func (g *Graph) Resolve(sourceReg *filter.Registry, sink func(*filter.Registry) bool, maxChainLen int) (Path, bool) {
	g.ensureBuilt()
	if maxChainLen < 0 {
		maxChainLen = DefaultMaxChainLength
	}
	src := g.indexOf(sourceReg)
	if src < 0 {
		return Path{}, false
	}

	n := len(g.registries)
	dist := make([]int, n)
	hops := make([]int, n)
	prev := make([]int, n)
	for i := range dist {
		dist[i] = -1
		prev[i] = -1
	}
	dist[src] = 0

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &dijkstraItem{node: src, dist: 0, priority: g.registries[src].Priority})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*dijkstraItem)
		if cur.dist != dist[cur.node] {
			continue // stale entry
		}
		if sink(g.registries[cur.node]) && cur.node != src {
			return g.reconstruct(prev, cur.node, dist[cur.node]), true
		}
		if hops[cur.node] >= maxChainLen {
			continue
		}
		for _, e := range g.adjacency[cur.node] {
			nd := dist[cur.node] + e.weight
			if dist[e.to] == -1 || nd < dist[e.to] {
				dist[e.to] = nd
				prev[e.to] = cur.node
				hops[e.to] = hops[cur.node] + 1
				heap.Push(pq, &dijkstraItem{node: e.to, dist: nd, priority: e.priority})
			}
		}
	}
	return Path{}, false
}

func (g *Graph) reconstruct(prev []int, dest, weight int) Path {
	var idxs []int
	for n := dest; n != -1; n = prev[n] {
		idxs = append([]int{n}, idxs...)
	}
	regs := make([]*filter.Registry, len(idxs))
	for i, idx := range idxs {
		regs[i] = g.registries[idx]
	}
	return Path{Registries: regs, Weight: weight}
}
