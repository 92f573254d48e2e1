// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"flowmesh.dev/fsession/fserr"
	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/internal/lfq"
)

// runnableQueueCapacity bounds the scheduler's global submission queue.
const runnableQueueCapacity = 8192

// filterState tracks the scheduler-side bookkeeping a Filter itself does
// not carry: posted-task flags consulted by the runnable predicate (spec
// §4.6).
type filterState struct {
	selfPosted    atomic.Bool
	userTaskDue   atomic.Bool
	configPending atomic.Bool
	eventPending  atomic.Bool
}

// Scheduler is the filter session's task engine (spec §4.6): a shared
// runnable-filter set drained by a worker pool, with regulation and
// cooperative cancellation.
type Scheduler struct {
	mode      Mode
	workers   int
	maxSleep  time.Duration
	regulator *Regulator

	mu      sync.Mutex
	filters []*filter.Filter
	states  map[*filter.Filter]*filterState

	// runnable is the shared runnable-filter set every dispatch pass pulls
	// its candidates from (spec §5): AddFilter and every Post* call enqueue
	// onto it, RunOnce/RunOnceParallel drain it each pass and requeue
	// still-registered candidates for the next one.
	runnable *lfq.MPSC[*filter.Filter]

	aborted     atomic.Bool
	flush       atomic.Int32
	nonBlocking bool
}

// New constructs a Scheduler. workers <= 0 means cooperative/direct
// execution regardless of mode (spec §5 "zero -> direct"); a negative
// value is the caller's responsibility to resolve to cores-minus-one
// before calling New, matching the session layer's config contract.
func New(mode Mode, workers int, maxSleep time.Duration) *Scheduler {
	s := &Scheduler{
		mode:      mode,
		workers:   workers,
		maxSleep:  maxSleep,
		regulator: NewRegulator(1000), // default: at most 1000 idle polls/sec
		states:    make(map[*filter.Filter]*filterState),
		runnable:  lfq.NewMPSC[*filter.Filter](runnableQueueCapacity),
	}
	s.flush.Store(-1)
	if mode == ModeDirect {
		s.workers = 0
	}
	return s
}

// Mode returns the scheduler's queueing/execution mode.
func (s *Scheduler) Mode() Mode { return s.mode }

// SetNonBlocking enables spec §4.6's NON_BLOCKING mode: each Run call
// performs currently due work then returns instead of looping forever.
func (s *Scheduler) SetNonBlocking(v bool) { s.nonBlocking = v }

// SetRegulator replaces the idle-poll rate limiter, e.g. with
// NewRegulator(0) for spec's NO_REGULATION session flag.
func (s *Scheduler) SetRegulator(r *Regulator) { s.regulator = r }

// AddFilter registers f with the scheduler and gives it one initial
// scheduling opportunity, so that source filters with no input PID to
// wait on get to run at least once and, per spec §4.4, re-arm their own
// scheduling from within Process via post_process_task.
func (s *Scheduler) AddFilter(f *filter.Filter) {
	s.mu.Lock()
	s.filters = append(s.filters, f)
	s.states[f] = &filterState{}
	s.mu.Unlock()
	s.PostProcessTask(f)
}

// RemoveFilter unregisters f, typically once PID teardown has completed.
func (s *Scheduler) RemoveFilter(f *filter.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.filters {
		if x == f {
			s.filters = append(s.filters[:i], s.filters[i+1:]...)
			break
		}
	}
	delete(s.states, f)
}

func (s *Scheduler) stateOf(f *filter.Filter) *filterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[f]
}

// PostProcessTask marks f runnable on the scheduler's next pass,
// regardless of its input/output queue state (spec §4.6), and enqueues it
// onto the shared runnable set so the next drainCandidates call picks it
// up even if it had fallen out of rotation.
func (s *Scheduler) PostProcessTask(f *filter.Filter) {
	if st := s.stateOf(f); st != nil {
		st.selfPosted.Store(true)
	}
	_ = s.runnable.Enqueue(&f)
}

// PostUserTask marks a user task due on f and re-queues it.
func (s *Scheduler) PostUserTask(f *filter.Filter) {
	if st := s.stateOf(f); st != nil {
		st.userTaskDue.Store(true)
	}
	_ = s.runnable.Enqueue(&f)
}

// PostConfigurePID and PostEvent mark a pending configure/event callback
// on f, both of which make it runnable independent of queue occupancy,
// and re-queue it.
func (s *Scheduler) PostConfigurePID(f *filter.Filter) {
	if st := s.stateOf(f); st != nil {
		st.configPending.Store(true)
	}
	_ = s.runnable.Enqueue(&f)
}

func (s *Scheduler) PostEvent(f *filter.Filter) {
	if st := s.stateOf(f); st != nil {
		st.eventPending.Store(true)
	}
	_ = s.runnable.Enqueue(&f)
}

// isRunnable reports whether f satisfies spec §4.6's runnable predicate.
func (s *Scheduler) isRunnable(f *filter.Filter) bool {
	if f.Removed() {
		return false
	}
	st := s.stateOf(f)
	if st != nil {
		if st.selfPosted.Load() || st.userTaskDue.Load() || st.configPending.Load() || st.eventPending.Load() {
			return true
		}
	}
	return f.HasInputAvailable() && !f.IsBlocked()
}

// runOne executes one scheduling pass over f: acquires its single-writer
// slot, re-checks the runnable predicate, clears the posted-task flags it
// consumes, runs Process, and feeds the stall watchdog. The flags are
// cleared before Process, so a post made from within Process (e.g.
// Filter.Reschedule) carries over to the next pass.
func (s *Scheduler) runOne(f *filter.Filter) error {
	if !f.TryAcquire() {
		return nil // another worker already holds this filter
	}
	defer f.Release()

	if !s.isRunnable(f) {
		return nil // a duplicate candidate whose flags an earlier run consumed
	}
	st := s.stateOf(f)
	if st != nil {
		st.selfPosted.Store(false)
		st.userTaskDue.Store(false)
		st.configPending.Store(false)
		st.eventPending.Store(false)
	}
	hadInput := f.HasInputAvailable()

	err := f.RunProcess()

	madeProgress := hadInput != f.HasInputAvailable() || len(f.Outputs()) == 0
	if werr := f.RecordProgress(madeProgress); werr != nil {
		return werr
	}

	if err != nil && fserr.IsFatal(kindOf(err)) {
		return err
	}
	return nil
}

// drainCandidates pulls every filter pointer currently queued on the MPSC
// submission queue: this shared runnable-filter set (spec §5 "all workers
// pull from a shared runnable-filter set"), not a scan over every
// registered filter, is what each pass dispatches from. AddFilter and
// every Post* call put a filter into this set; requeueCandidates puts
// still-registered candidates back at the end of the pass so a filter
// that ends up idle this round (no due flag, no input) is still checked
// next round, and one removed mid-pass quietly falls out of rotation.
func (s *Scheduler) drainCandidates() []*filter.Filter {
	var out []*filter.Filter
	for {
		f, err := s.runnable.Dequeue()
		if err != nil {
			return out
		}
		out = append(out, f)
	}
}

func (s *Scheduler) requeueCandidates(candidates []*filter.Filter) {
	for _, f := range candidates {
		if s.stateOf(f) == nil {
			continue // deregistered since this pass started; drop it
		}
		_ = s.runnable.Enqueue(&f)
	}
}

func kindOf(err error) fserr.Kind {
	if e, ok := err.(*fserr.Error); ok {
		return e.Kind
	}
	if k, ok := err.(fserr.Kind); ok {
		return k
	}
	return fserr.ServiceError
}

// RunOnce drains the shared runnable set once, running each candidate that
// is actually runnable, and reports whether any filter was run (used by
// the regulation sleep decision and by NON_BLOCKING mode's single pass).
func (s *Scheduler) RunOnce() (ranAny bool, err error) {
	candidates := s.drainCandidates()
	defer s.requeueCandidates(candidates)

	for _, f := range candidates {
		if s.aborted.Load() {
			return ranAny, fserr.EndOfStream
		}
		if s.stateOf(f) == nil || !s.isRunnable(f) {
			continue
		}
		ranAny = true
		if runErr := s.runOne(f); runErr != nil {
			if err == nil || fserr.Severity(kindOf(runErr)) > fserr.Severity(kindOf(err)) {
				err = runErr
			}
		}
	}
	return ranAny, err
}

// RunOnceParallel is RunOnce's worker-pool counterpart for non-Direct
// modes: runnable filters are dispatched to an errgroup-managed pool
// sized to s.workers.
func (s *Scheduler) RunOnceParallel(ctx context.Context) (ranAny bool, err error) {
	if s.workers <= 0 {
		return s.RunOnce()
	}
	candidates := s.drainCandidates()
	defer s.requeueCandidates(candidates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	var mu sync.Mutex
	var worst error
	var ranFlag atomic.Bool

	for _, f := range candidates {
		f := f
		if s.aborted.Load() {
			break
		}
		if s.stateOf(f) == nil || !s.isRunnable(f) {
			continue
		}
		ranFlag.Store(true)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			if runErr := s.runOne(f); runErr != nil {
				mu.Lock()
				if worst == nil || fserr.Severity(kindOf(runErr)) > fserr.Severity(kindOf(worst)) {
					worst = runErr
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return ranFlag.Load(), worst
}

// Run drives the scheduler until Abort is called, a fatal error is
// observed, or (with SetNonBlocking(true)) one pass of currently due work
// completes (spec §4.6).
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if s.aborted.Load() {
			return fserr.EndOfStream
		}
		ranAny, err := s.RunOnceParallel(ctx)
		if err != nil {
			return err
		}
		if s.nonBlocking {
			return nil
		}
		if !ranAny {
			if sleepErr := s.regulate(ctx); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

// regulate sleeps until the earliest pending rt-reschedule deadline,
// bounded by maxSleep (spec §4.6). With no filters pending a deadline it
// sleeps for maxSleep, rate-limited by the idle-poll Regulator to avoid a
// tight loop when maxSleep is zero.
func (s *Scheduler) regulate(ctx context.Context) error {
	if !s.regulator.Allow() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.regulator.WaitHint()):
			return nil
		}
	}
	d := s.earliestDeadline()
	if s.maxSleep > 0 && (d <= 0 || d > s.maxSleep) {
		d = s.maxSleep
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (s *Scheduler) earliestDeadline() time.Duration {
	s.mu.Lock()
	filters := make([]*filter.Filter, len(s.filters))
	copy(filters, s.filters)
	s.mu.Unlock()

	var best time.Duration = -1
	for _, f := range filters {
		if d := f.RTRescheduleDeadline(); d > 0 {
			du := time.Duration(d) * time.Microsecond
			if best < 0 || du < best {
				best = du
			}
		}
	}
	return best
}

// Abort transitions the session per the requested FlushType (spec
// §4.6). Workers observe it at their next yield point; no new tasks are
// accepted once aborted.
func (s *Scheduler) Abort(flushType FlushType) {
	s.flush.Store(int32(flushType))
	s.aborted.Store(true)
}

// Aborted reports whether Abort has been called.
func (s *Scheduler) Aborted() bool { return s.aborted.Load() }

// FlushType returns the flush mode Abort was called with, or -1 if not
// aborted.
func (s *Scheduler) FlushType() (FlushType, bool) {
	v := s.flush.Load()
	if v < 0 {
		return 0, false
	}
	return FlushType(v), true
}
