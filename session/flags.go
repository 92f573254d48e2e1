// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package session implements FilterSession/SessionCore (spec §3): registry
// registration, filter instantiation, argument parsing, load_source/
// load_destination, and the lifecycle that wires pid/filter/graph/sched/
// event together.
package session

// Flags is the session-wide behavior bitset (spec's supplemented
// GF_FS_FLAG_* catalogue, SPEC_FULL item 3).
type Flags uint32

const (
	// LoadMeta names registering meta-filters (ones whose Registry.Flags
	// carries no fixed capability bundle, e.g. script-driven filters) at
	// startup. The session does not read this flag.
	LoadMeta Flags = 1 << iota
	// NonBlocking makes Session.Run perform one pass of due work and
	// return, instead of looping until abort/EOS (spec §4.6).
	NonBlocking
	// NoGraphCache disables the CapabilityGraph's build cache; every
	// resolve rebuilds the adjacency list from the current registry set.
	NoGraphCache
	// NoRegulation disables the scheduler's idle-poll rate limiter.
	NoRegulation
	// NoProbe disables LoadSource's probe_url sniffing: LoadSource then
	// fails with NotSupported, and a source is loaded by name through
	// LoadFilter instead.
	NoProbe
	// NoReassign names keeping an already connected PID on its filter
	// chain on reconfiguration. The session does not read this flag.
	NoReassign
	// PrintConnections logs every resolved edge through Session.Logger.
	PrintConnections
	// NoArgCheck names skipping argument-schema validation. The session
	// does not read this flag, and ParseFilterArgs validates no schema:
	// unknown keys are always kept verbatim.
	NoArgCheck
	// NoReservoir disables the packet property-map reservoir: every
	// packet's property map is freshly allocated and discarded instead of
	// being recycled through a prop.Reservoir.
	NoReservoir
	// FullLink names failing the session when no link path is found. The
	// session does not read this flag: a failed resolve is recorded as the
	// last connect error either way, and ExplicitOnly registries stay
	// excluded from resolution.
	FullLink
	// NoImplicit restricts Connect to a single direct hop from the
	// producer's registry to an already-loaded destination: no adapter
	// filter is inserted.
	NoImplicit
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }
