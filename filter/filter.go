// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter

import (
	"sync"
	"sync/atomic"

	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/pid"
)

// stallWatchdogLimit is the number of consecutive no-progress OK
// process() returns before the scheduler raises a stall error (spec
// §4.4).
const stallWatchdogLimit = 256

// Filter is one live instance of a Registry (spec §4.4). It owns the set
// of input/output PIDs, the scheduler's single-writer "in use" flag, and
// the stall watchdog counter.
type Filter struct {
	ID       string
	Registry *Registry
	Impl     Callbacks

	SourceID string // raw sourceID expression, stored as given; the graph resolver does not read it
	Blocking bool   // true if the filter declared it performs blocking I/O

	mu      sync.Mutex
	inputs  []*pid.PID
	outputs []*pid.PID
	args    map[string]string

	inUse atomic.Bool // single-writer-per-filter scheduling flag (spec §4.6)

	lastProcessErr   atomic.Pointer[error]
	consecutiveOK    atomic.Int32
	noProgressStreak atomic.Int32

	rtRescheduleUs atomic.Int64 // 0 = no pending deadline

	removed atomic.Bool

	newPIDFn      func(f *Filter, name string) *pid.PID
	postProcessFn func(f *Filter)
}

// New constructs a Filter from a Registry with the given instance ID and
// initial arguments (already parsed by session.ParseFilterArgs).
func New(id string, reg *Registry, args map[string]string) *Filter {
	f := &Filter{ID: id, Registry: reg, args: args}
	f.Impl = reg.NewInstance()
	return f
}

// Args returns the filter's parsed constructor arguments.
func (f *Filter) Args() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.args
}

// TryAcquire attempts to set the single-writer "in use" flag, returning
// false if another worker already holds it (spec §4.6 execution
// invariant).
func (f *Filter) TryAcquire() bool { return f.inUse.CompareAndSwap(false, true) }

// Release clears the single-writer flag.
func (f *Filter) Release() { f.inUse.Store(false) }

// AddInput registers a newly connected input PID.
func (f *Filter) AddInput(p *pid.PID) {
	f.mu.Lock()
	f.inputs = append(f.inputs, p)
	f.mu.Unlock()
}

// AddOutput registers a newly created output PID owned by this filter.
func (f *Filter) AddOutput(p *pid.PID) {
	f.mu.Lock()
	f.outputs = append(f.outputs, p)
	f.mu.Unlock()
}

// SetNewPIDFunc injects the hook NewOutputPID delegates to. The session
// that instantiates a Filter sets this to a closure which constructs the
// PID, registers its ownership, and resolves and links a consumer for it
// synchronously, before NewOutputPID returns; a Filter never imports or
// references the session directly, keeping the package layering
// one-directional.
func (f *Filter) SetNewPIDFunc(fn func(f *Filter, name string) *pid.PID) { f.newPIDFn = fn }

// NewOutputPID creates and connects a new output PID named name. Callback
// implementations call this from Initialize or Process instead of
// constructing a pid.PID directly, so the owning session learns about it
// and can resolve a consumer. Returns nil if no session wired the hook
// (e.g. a Filter built directly in a unit test).
func (f *Filter) NewOutputPID(name string) *pid.PID {
	if f.newPIDFn == nil {
		return nil
	}
	return f.newPIDFn(f, name)
}

// SetPostProcessFunc injects the hook Reschedule delegates to. The
// scheduler that owns this Filter sets this to its own PostProcessTask, so
// a source filter with no input PID to wait on can re-arm its own next
// scheduling pass from within Process (spec §4.4's "post_process_task").
func (f *Filter) SetPostProcessFunc(fn func(f *Filter)) { f.postProcessFn = fn }

// Reschedule requests another Process call on the next scheduling pass,
// independent of input/output queue occupancy. A no-op if no scheduler has
// wired the hook (e.g. a Filter built directly in a unit test).
func (f *Filter) Reschedule() {
	if f.postProcessFn != nil {
		f.postProcessFn(f)
	}
}

// Inputs and Outputs return snapshots of the filter's connected PIDs.
func (f *Filter) Inputs() []*pid.PID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*pid.PID, len(f.inputs))
	copy(out, f.inputs)
	return out
}

func (f *Filter) Outputs() []*pid.PID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*pid.PID, len(f.outputs))
	copy(out, f.outputs)
	return out
}

// IsBlocked reports whether every output PID is blocked (spec §4.6): a
// filter with no outputs at all (a sink) is never blocked by this rule.
func (f *Filter) IsBlocked() bool {
	outs := f.Outputs()
	if len(outs) == 0 {
		return false
	}
	for _, p := range outs {
		if !p.IsBlocking() {
			return false
		}
	}
	return true
}

// HasInputAvailable reports whether any input PID instance has a queued
// packet available for this filter to consume. The filter locates its own
// consuming Instance on each upstream PID by its ID.
func (f *Filter) HasInputAvailable() bool {
	for _, p := range f.Inputs() {
		for _, inst := range p.Instances() {
			if inst.DestName() == f.ID && !inst.Empty() {
				return true
			}
		}
	}
	return false
}

// AskRTReschedule records a reschedule delay of deltaUs microseconds and
// suppresses the stall watchdog while it is set (spec §4.4). The scheduler
// uses the delay only to bound its idle sleep; it does not by itself make
// the filter runnable.
func (f *Filter) AskRTReschedule(deltaUs int64) {
	f.rtRescheduleUs.Store(deltaUs)
	f.noProgressStreak.Store(0)
}

// RTRescheduleDeadline returns the pending reschedule delay in
// microseconds, or 0 if none is set.
func (f *Filter) RTRescheduleDeadline() int64 { return f.rtRescheduleUs.Load() }

// ClearRTReschedule consumes a pending reschedule request.
func (f *Filter) ClearRTReschedule() { f.rtRescheduleUs.Store(0) }

// RunProcess invokes the Registry's Process callback, tracking the stall
// watchdog and last-process-error state (spec §4.4, §7). madeProgress must
// be determined by the caller (scheduler) by comparing input/output queue
// occupancy before and after the call; RunProcess only records the error
// outcome and leaves the progress bookkeeping to the caller via
// RecordProgress.
func (f *Filter) RunProcess() error {
	err := f.Impl.Process(f)
	if err == nil {
		f.consecutiveOK.Add(1)
		return nil
	}
	f.consecutiveOK.Store(0)
	if fserr.IsFatal(kindOf(err)) {
		f.lastProcessErr.Store(&err)
	}
	return err
}

// RecordProgress resets (true) or advances (false) the stall watchdog
// counter. Returns an error once stallWatchdogLimit consecutive
// no-progress OK returns have been observed and no rt-reschedule is
// pending.
func (f *Filter) RecordProgress(madeProgress bool) error {
	if madeProgress || f.RTRescheduleDeadline() != 0 {
		f.noProgressStreak.Store(0)
		return nil
	}
	if f.noProgressStreak.Add(1) >= stallWatchdogLimit {
		return fserr.New(fserr.ServiceError, f.ID, "filter stalled: no progress in process()")
	}
	return nil
}

func kindOf(err error) fserr.Kind {
	var fe *fserr.Error
	if e, ok := err.(*fserr.Error); ok {
		fe = e
	}
	if fe != nil {
		return fe.Kind
	}
	if k, ok := err.(fserr.Kind); ok {
		return k
	}
	return fserr.ServiceError
}

// LastProcessError returns the most recent fatal error recorded from
// Process, if any.
func (f *Filter) LastProcessError() error {
	v := f.lastProcessErr.Load()
	if v == nil {
		return nil
	}
	return *v
}

// MarkRemoved flags the filter for teardown; the scheduler stops
// scheduling it and begins PID disconnection.
func (f *Filter) MarkRemoved() { f.removed.Store(true) }

// Removed reports whether MarkRemoved has been called.
func (f *Filter) Removed() bool { return f.removed.Load() }
