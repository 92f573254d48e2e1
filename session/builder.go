// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"runtime"
	"time"

	"flowmesh.dev/fsession/event"
	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/graph"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/prop"
	"flowmesh.dev/fsession/sched"
)

// reservoirCapacity bounds each session's packet property-map reservoir
// (disabled entirely by the NoReservoir flag).
const reservoirCapacity = 256

// Options configures session creation and behavior, mirroring the
// Builder/fluent-configuration pattern used elsewhere in this engine for
// multi-axis construction.
type Options struct {
	nbThreads      int
	schedulerType  sched.Mode
	flags          Flags
	blacklist      map[string]bool
	maxSleep       time.Duration
	separators     Separators
	logger         Logger
	maxChainLength int
}

// Builder creates a Session with fluent configuration.
//
// Example:
//
//	s := session.New(4, sched.ModeLockFree, session.NonBlocking).
//		Blacklist("experimental_mux").
//		WithMaxChainLength(4).
//		Build()
type Builder struct {
	opts Options
}

// New creates a session builder: nbThreads worker goroutines (a negative
// value selects all CPU cores minus one; a resulting count of 0 selects
// sched.ModeDirect regardless of schedulerType, spec §5 "zero -> direct"),
// the requested scheduler mode, and the session-wide behavior flags (spec
// §3, SPEC_FULL item 3).
func New(nbThreads int, schedulerType sched.Mode, flags Flags) *Builder {
	if nbThreads < 0 {
		nbThreads = runtime.NumCPU() - 1
	}
	if nbThreads <= 0 {
		schedulerType = sched.ModeDirect
	}
	return &Builder{opts: Options{
		nbThreads:      nbThreads,
		schedulerType:  schedulerType,
		flags:          flags,
		blacklist:      map[string]bool{},
		maxSleep:       50 * time.Millisecond,
		separators:     DefaultSeparators(),
		maxChainLength: graph.DefaultMaxChainLength,
	}}
}

// Blacklist excludes the named registries from RegisterRegistry.
func (b *Builder) Blacklist(names ...string) *Builder {
	for _, n := range names {
		b.opts.blacklist[n] = true
	}
	return b
}

// WithLogger installs a custom Logger; the default writes to stderr via
// the standard library's log package.
func (b *Builder) WithLogger(l Logger) *Builder {
	b.opts.logger = l
	return b
}

// WithSeparators overrides the default argument-syntax separator table
// (spec §6.1).
func (b *Builder) WithSeparators(s Separators) *Builder {
	b.opts.separators = s
	return b
}

// WithMaxChainLength overrides DefaultMaxChainLength for this session's
// resolver. 0 disables dynamic link resolution (spec §8).
func (b *Builder) WithMaxChainLength(n int) *Builder {
	b.opts.maxChainLength = n
	return b
}

// WithMaxSleep bounds the scheduler's idle sleep between regulation
// passes (spec §4.6).
func (b *Builder) WithMaxSleep(d time.Duration) *Builder {
	b.opts.maxSleep = d
	return b
}

// Build constructs the Session: its Scheduler, CapabilityGraph, and
// EventBus, wired together per spec §2's control-flow description.
func (b *Builder) Build() *Session {
	if b.opts.logger == nil {
		b.opts.logger = newStdLogger()
	}
	s := &Session{
		opts:      b.opts,
		filters:   map[string]*filter.Filter{},
		pidOwner:  map[*pid.PID]*filter.Filter{},
		destByReg: map[*filter.Registry]*filter.Filter{},
		scheduler: sched.New(b.opts.schedulerType, b.opts.nbThreads, b.opts.maxSleep),
	}
	s.scheduler.SetNonBlocking(b.opts.flags.Has(NonBlocking))
	if b.opts.flags.Has(NoRegulation) {
		s.scheduler.SetRegulator(sched.NewRegulator(0))
	}
	if !b.opts.flags.Has(NoReservoir) {
		s.reservoir = prop.NewReservoir(reservoirCapacity)
	}
	s.graph = graph.New(nil)
	s.bus = event.New(s.filterOwning, s.ResolveFilter)
	return s
}
