// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop

import "flowmesh.dev/fsession/internal/lfq"

// Reservoir is a concurrent free list of recycled property Maps (the
// packet property reservoir optimization gated by session.NoReservoir).
// Packets flow through filters running on independent scheduler workers,
// so a Map returned by one filter's packet release and borrowed by an
// unrelated filter's packet allocation is a genuine multi-producer
// multi-consumer access pattern, not a single owner's private pool.
type Reservoir struct {
	pool *lfq.MPMC[*Map]
}

// NewReservoir creates a reservoir holding up to capacity recycled maps.
// Capacity rounds up to the next power of 2 (lfq.MPMC's contract).
func NewReservoir(capacity int) *Reservoir {
	return &Reservoir{pool: lfq.NewMPMC[*Map](capacity)}
}

// Get returns a recycled, empty Map, or a freshly allocated one if the
// reservoir is nil or currently has nothing to recycle.
func (r *Reservoir) Get() *Map {
	if r == nil {
		return &Map{}
	}
	m, err := r.pool.Dequeue()
	if err != nil {
		return &Map{}
	}
	return m
}

// Put releases every entry's payload reference and returns m to the
// reservoir for reuse by a future Get, dropping it instead if the
// reservoir is nil or full.
func (r *Reservoir) Put(m *Map) {
	if m == nil {
		return
	}
	m.reset()
	if r == nil {
		return
	}
	_ = r.pool.Enqueue(&m)
}
