// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"flowmesh.dev/fsession/event"
	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/graph"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/prop"
	"flowmesh.dev/fsession/sched"
)

// Session is the FilterSession of spec §3: it owns the registry list, the
// live filter set, the capability graph, the scheduler, and the event
// bus, and drives PID resolution whenever a filter creates an output PID.
type Session struct {
	opts Options

	mu         sync.Mutex
	registries []*filter.Registry
	filters    map[string]*filter.Filter
	pidOwner   map[*pid.PID]*filter.Filter
	destByReg  map[*filter.Registry]*filter.Filter // explicitly loaded destinations, by registry

	graph     *graph.Graph
	scheduler *sched.Scheduler
	bus       *event.Bus
	reservoir *prop.Reservoir

	nextID atomic.Int64

	lastConnectErr atomic.Pointer[error]

	stats Stats
}

// Stats reports session-wide counters for external monitoring, mirroring
// spec §3's "stats, reporting" FilterSession responsibility.
type Stats struct {
	FiltersLoaded   int
	EdgesResolved   int
	ResolveFailures int
}

// RegisterRegistry adds reg to the session's candidate set for implicit
// link resolution, unless blacklisted (spec §3 "registered once at
// startup, plus programmatic add/remove").
func (s *Session) RegisterRegistry(reg *filter.Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.blacklist[reg.Name] {
		return fserr.New(fserr.BadParam, reg.Name, "registry is blacklisted")
	}
	s.registries = append(s.registries, reg)
	s.graph.SetRegistries(s.registries)
	return nil
}

// findRegistry looks up a registered (non-blacklisted) registry by name.
func (s *Session) findRegistry(name string) (*filter.Registry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registries {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

func (s *Session) allocID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, s.nextID.Add(1))
}

// instantiate builds a Filter from reg, wires its NewOutputPID hook, and
// calls Initialize. Per the Callbacks contract, Initialize returning
// fserr.EndOfStream means the filter is fully constructed but must never
// be scheduled; any other error aborts construction.
func (s *Session) instantiate(reg *filter.Registry, args map[string]string) (*filter.Filter, error) {
	f := filter.New(s.allocID(reg.Name), reg, args)
	f.SetNewPIDFunc(s.makePID)
	f.SetPostProcessFunc(s.scheduler.PostProcessTask)

	err := f.Impl.Initialize(f)
	if err != nil && !errors.Is(err, fserr.EndOfStream) {
		return nil, err
	}

	s.mu.Lock()
	s.filters[f.ID] = f
	s.stats.FiltersLoaded++
	s.mu.Unlock()

	if err == nil {
		s.scheduler.AddFilter(f)
	}
	return f, nil
}

// LoadFilter instantiates a registry by its invocation string (spec
// §6.1), registers it, and returns the live Filter. Use LoadDestination
// instead for filters meant to be discoverable as resolver sinks.
func (s *Session) LoadFilter(invocation string) (*filter.Filter, error) {
	parsed := ParseFilterArgs(invocation, s.opts.separators)
	reg, ok := s.findRegistry(parsed.Name)
	if !ok {
		return nil, fserr.New(fserr.FilterNotSupported, parsed.Name, "no such registered registry")
	}
	return s.instantiate(reg, parsed.Args)
}

// LoadDestination loads a filter the same way LoadFilter does, and
// additionally marks it as a resolver sink candidate: Connect will target
// it directly, instead of instantiating a fresh adapter, whenever the
// resolved chain's final hop is this filter's registry.
func (s *Session) LoadDestination(invocation string) (*filter.Filter, error) {
	f, err := s.LoadFilter(invocation)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.destByReg[f.Registry] = f
	s.mu.Unlock()
	return f, nil
}

// LoadSource loads a source filter chosen by the external probe interface
// (spec §6.2): every registered registry's ProbeURL is asked to score
// url/mime, and the best-scoring one is instantiated with extraArgs
// appended to its invocation string. If the session has NoProbe set, or
// no registry scores above ProbeNotSupported, an explicit filter name
// must be used instead (via LoadFilter).
func (s *Session) LoadSource(url, mime, extraArgs string) (*filter.Filter, error) {
	if s.opts.flags.Has(NoProbe) {
		return nil, fserr.New(fserr.NotSupported, url, "probing is disabled (NoProbe)")
	}
	s.mu.Lock()
	regs := append([]*filter.Registry(nil), s.registries...)
	s.mu.Unlock()

	reg, ok := selectSourceByURL(regs, url, mime)
	if !ok {
		return nil, fserr.New(fserr.FilterNotSupported, url, "no registry accepted the URL by probe_url")
	}
	invocation := reg.Name
	if extraArgs != "" {
		invocation += string(s.opts.separators.Args) + extraArgs
	}
	return s.LoadFilter(invocation)
}

// ResolveFilter looks up a live filter instance by ID, the lookup the
// EventBus uses to walk an output PID's instances upstream-toward-sink
// (spec §4.7).
func (s *Session) ResolveFilter(destName string) *filter.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters[destName]
}

// filterOwning returns the filter that created p as one of its outputs,
// the lookup the EventBus uses to walk an input PID downstream-toward-
// source (spec §4.7).
func (s *Session) filterOwning(p *pid.PID) *filter.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pidOwner[p]
}

// makePID is the hook Filter.NewOutputPID delegates to: it constructs the
// PID, tracks its producer, and runs Connect synchronously; a resolve
// failure is recorded as the last connect error.
func (s *Session) makePID(f *filter.Filter, name string) *pid.PID {
	p := pid.New(f.ID + "#" + name)
	p.SetReservoir(s.reservoir)
	f.AddOutput(p)
	s.mu.Lock()
	s.pidOwner[p] = f
	s.mu.Unlock()

	if err := s.Connect(f, p); err != nil {
		s.lastConnectErr.Store(&err)
		s.mu.Lock()
		s.stats.ResolveFailures++
		s.mu.Unlock()
		if s.opts.flags.Has(PrintConnections) {
			s.opts.logger.Logf("resolve failed for %s: %v", p.Name(), err)
		}
	}
	return p
}

// Connect resolves a destination chain for p (spec §4.5's LinkResolver)
// and wires it hop by hop. The final hop reuses an already-loaded
// destination filter if the resolved registry matches one; every other
// hop is a freshly instantiated adapter. NoImplicit restricts resolution
// to a single hop: p's producer's registry must connect directly to an
// already-loaded destination, with no adapter insertion and no
// registry-catalog search.
func (s *Session) Connect(producer *filter.Filter, p *pid.PID) error {
	s.mu.Lock()
	dest := make(map[*filter.Registry]*filter.Filter, len(s.destByReg))
	for r, f := range s.destByReg {
		if f != producer {
			dest[r] = f
		}
	}
	maxChain := s.opts.maxChainLength
	s.mu.Unlock()

	if len(dest) == 0 {
		return fserr.New(fserr.NotSupported, p.Name(), "no destination filter is loaded")
	}
	if next, ok := loadedFilterDest(producer.Registry, dest); ok {
		if err := s.linkPID(p, next); err != nil {
			return err
		}
		s.mu.Lock()
		s.stats.EdgesResolved++
		s.mu.Unlock()
		if s.opts.flags.Has(PrintConnections) {
			s.opts.logger.Logf("connect (loaded-filter): %s -> %s", p.Name(), next.ID)
		}
		return nil
	}
	if s.opts.flags.Has(NoImplicit) {
		maxChain = 1
	}
	if s.opts.flags.Has(NoGraphCache) {
		s.graph.Invalidate()
	}

	path, ok := s.graph.Resolve(producer.Registry, func(r *filter.Registry) bool {
		_, isDest := dest[r]
		return isDest
	}, maxChain)
	if !ok {
		return fserr.New(fserr.NotSupported, p.Name(), "no resolvable path to a loaded destination")
	}

	curPID := p
	for _, reg := range path.Registries[1:] {
		next, isDest := dest[reg]
		if !isDest {
			var err error
			next, err = s.instantiate(reg, nil)
			if err != nil {
				return err
			}
		}
		if err := s.linkPID(curPID, next); err != nil {
			return err
		}
		s.mu.Lock()
		s.stats.EdgesResolved++
		s.mu.Unlock()
		if s.opts.flags.Has(PrintConnections) {
			s.opts.logger.Logf("connect: %s -> %s", curPID.Name(), next.ID)
		}

		outs := next.Outputs()
		if len(outs) == 0 {
			return nil // chain continues later when next creates its own output PID
		}
		curPID = outs[len(outs)-1]
	}
	return nil
}

// linkPID connects producer's pid p as a new input of consumer: it
// derives consumer's buffer limits from p's declared properties, adds the
// PID instance, and calls the consumer's ConfigurePID, applying spec §7's
// propagation policy to the result.
func (s *Session) linkPID(p *pid.PID, consumer *filter.Filter) error {
	maxBytes, maxUs := bufferLimitsFromProps(p.Props())
	p.AddInstance(consumer.ID, maxBytes, maxUs)
	consumer.AddInput(p)
	s.scheduler.PostConfigurePID(consumer)

	err := consumer.Impl.ConfigurePID(consumer, p, false)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fserr.EndOfStream):
		p.RemoveInstance(consumer.ID)
		return nil
	default:
		// RequiresNewInstance/FilterNotSupported/ProfileNotSupported are
		// non-fatal per spec §7, but cloning/alternate-path/re-resolution
		// is a scheduler-level concern; at the session layer they surface
		// as a resolve failure rather than a guessed retry.
		return err
	}
}

// loadedFilterDest looks for an already-loaded destination filter whose
// registry declares an input bundle requiring CapLoadedFilter matching
// producer's output (spec §3). Such bundles are deliberately excluded
// from graph.Graph.Build and are only ever reachable this way: a direct
// producer-to-already-loaded-destination match, bypassing both the
// capability graph and NoImplicit's single-hop restriction (it is
// already the most explicit, non-implicit match there is).
func loadedFilterDest(producer *filter.Registry, dest map[*filter.Registry]*filter.Filter) (*filter.Filter, bool) {
	outBundles := producer.OutputBundles()
	for reg, f := range dest {
		for _, ib := range reg.InputBundles() {
			if !ib.RequiresLoadedFilter() {
				continue
			}
			for _, ob := range outBundles {
				if _, ok := filter.Match(ob.AsPropMap(), ib); ok {
					return f, true
				}
			}
		}
	}
	return nil, false
}

// bufferLimitsFromProps reads optional MAX_BUFFER_BYTES/MAX_BUFFER_US
// overrides from a PID's property map, defaulting to 0 (unbounded by
// byte/duration; sparse PIDs still block on any buffered packet).
func bufferLimitsFromProps(m *prop.Map) (maxBytes, maxUs uint32) {
	if v, ok := m.Get(prop.NameKey("MAX_BUFFER_BYTES")); ok {
		maxBytes = v.UInt()
	}
	if v, ok := m.Get(prop.NameKey("MAX_BUFFER_US")); ok {
		maxUs = v.UInt()
	}
	return maxBytes, maxUs
}

// Run drives the scheduler (sched.Scheduler.Run). With NonBlocking it
// performs one pass of due work and returns nil unless a fatal error was
// observed; otherwise it loops until Abort is called (returning
// EndOfStream), a fatal error is observed, or ctx is done. It does not
// detect that every source has reached end of stream, and an EndOfStream
// returned by a filter's Process is not reported by Run.
func (s *Session) Run(ctx context.Context) error {
	return s.scheduler.Run(ctx)
}

// Abort requests session shutdown with the given flush policy (spec
// §4.6); Run's current and subsequent passes observe it cooperatively.
func (s *Session) Abort(flushType sched.FlushType) {
	s.scheduler.Abort(flushType)
}

// Dispatch posts evt to the event bus starting at start (spec §4.7).
func (s *Session) Dispatch(start *filter.Filter, evt event.Event) {
	s.bus.Dispatch(start, evt)
}

// LastConnectError returns the most recent resolve failure observed by
// Connect, if any (spec §3 "last connect error").
func (s *Session) LastConnectError() error {
	v := s.lastConnectErr.Load()
	if v == nil {
		return nil
	}
	return *v
}

// Stats returns a snapshot of the session's running counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// FilterCount returns the number of currently loaded filters (spec §8
// seed test 1: "filter_count() = 2").
func (s *Session) FilterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filters)
}
