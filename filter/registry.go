// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter

import (
	"flowmesh.dev/fsession/pid"
)

// ProbeScore ranks a source filter's confidence that it can handle a URL
// or a data sample (spec §6.2).
type ProbeScore int

const (
	ProbeNotSupported ProbeScore = iota
	ProbeMaybeNotSupported
	ProbeMaybeSupported
	ProbeSupported
	ProbeForce
	ProbeExtMatch
)

// RegistryFlag marks scheduling/resolution behavior declared by a
// Registry (spec §4.4, §4.5, §4.6).
type RegistryFlag uint32

const (
	// FlagSingleThread declares that every Filter instantiated from this
	// registry belongs on one worker. The scheduler does not read it:
	// such filters are dispatched to any worker like the others.
	FlagSingleThread RegistryFlag = 1 << iota
	// FlagMainThread declares that the filter belongs on the session's
	// main worker (e.g. OpenGL-context-owning filters). The scheduler does
	// not read it.
	FlagMainThread
	// FlagDynamicRedirect marks this filter as a late-bound landing point
	// for later resolutions (e.g. a muxer). Neither the graph resolver nor
	// the session reads it.
	FlagDynamicRedirect
	// FlagAllowCyclic permits the resolver to create edges back to this
	// same registry.
	FlagAllowCyclic
	// FlagExplicitOnly excludes this registry from implicit graph
	// resolution: graph.Graph.Build adds no edge into it. Filter.SourceID
	// is not consulted, so no sourceID expression reaches it either.
	FlagExplicitOnly
)

// Registry is the static descriptor a filter implementation supplies: its
// capability declaration and callback contracts (spec §4.4, §6.3, §6.5).
type Registry struct {
	Name        string
	Description string
	Author      string
	Priority    int
	Flags       RegistryFlag

	Caps []CapEntry

	// NewInstance constructs a fresh Callbacks implementation. Called
	// once per Filter. Filters are not cloned: a configure_pid returning
	// RequiresNewInstance surfaces from the session as a resolve failure.
	NewInstance func() Callbacks

	// ProbeURL and ProbeData implement the external probe interface
	// (spec §6.2) for source filters; both may be nil for filters that
	// are never auto-selected by URL/content sniffing.
	ProbeURL  func(url, mime string) ProbeScore
	ProbeData func(sample []byte) (score ProbeScore, mimeOrExt []string)
}

func (r *Registry) bundles(dirFilter func(Bundle) bool) []Bundle {
	var out []Bundle
	for _, b := range SplitBundles(r.Caps) {
		if dirFilter(b) {
			out = append(out, b)
		}
	}
	return out
}

// InputBundles returns the registry's capability bundles that apply to
// inputs.
func (r *Registry) InputBundles() []Bundle { return r.bundles(Bundle.appliesToInput) }

// OutputBundles returns the registry's capability bundles that apply to
// outputs.
func (r *Registry) OutputBundles() []Bundle { return r.bundles(Bundle.appliesToOutput) }

// Callbacks is the per-instance contract a filter implementation
// satisfies (spec §4.4). Every method may be called only while the
// scheduler holds that filter's single-writer slot.
type Callbacks interface {
	// Initialize allocates instance state. Returning fserr.EndOfStream
	// tells the session not to schedule this filter at all.
	Initialize(f *Filter) error

	// ConfigurePID accepts, rejects, or reconfigures an input PID.
	// isRemove is true when the upstream PID is being torn down.
	ConfigurePID(f *Filter, p *pid.PID, isRemove bool) error

	// Process performs bounded work. Returning fserr.EndOfStream
	// declares every output PID done.
	Process(f *Filter) error

	// ProcessEvent handles a bus event addressed to this filter,
	// returning true to cancel further propagation.
	ProcessEvent(f *Filter, evt any) bool

	// UpdateArg applies a live argument change. fserr.NotFound declines
	// the value without it being treated as an error (spec §7).
	UpdateArg(f *Filter, name string, value string) error
}

// ReconfigureOutput is an optional extension a Callbacks implementation
// may additionally satisfy; its absence tells the resolver to insert an
// adapter chain on output negotiation failure (spec §4.4).
type ReconfigureOutput interface {
	ReconfigureOutput(f *Filter, p *pid.PID) error
}
