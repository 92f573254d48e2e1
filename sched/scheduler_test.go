// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/sched"
)

type countingCallbacks struct {
	calls atomic.Int32
}

func (c *countingCallbacks) Initialize(f *filter.Filter) error { return nil }
func (c *countingCallbacks) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	return nil
}
func (c *countingCallbacks) Process(f *filter.Filter) error {
	c.calls.Add(1)
	return nil
}
func (c *countingCallbacks) ProcessEvent(f *filter.Filter, evt any) bool      { return false }
func (c *countingCallbacks) UpdateArg(f *filter.Filter, name, value string) error { return nil }

func newCountingFilter(id string) (*filter.Filter, *countingCallbacks) {
	cb := &countingCallbacks{}
	reg := &filter.Registry{
		Name: id,
		NewInstance: func() filter.Callbacks {
			return cb
		},
	}
	return filter.New(id, reg, nil), cb
}

func TestPostProcessTaskMakesFilterRunnable(t *testing.T) {
	f, cb := newCountingFilter("f1")
	s := sched.New(sched.ModeDirect, 0, 0)
	s.AddFilter(f)

	s.PostProcessTask(f)
	ranAny, err := s.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !ranAny || cb.calls.Load() != 1 {
		t.Fatalf("expected the posted filter to run exactly once, got calls=%d ranAny=%v", cb.calls.Load(), ranAny)
	}
}

func TestFilterRunsOnceOnRegistrationThenIdles(t *testing.T) {
	f, cb := newCountingFilter("f1")
	f.AddOutput(pid.New("out0")) // no instances connected, no input either

	s := sched.New(sched.ModeDirect, 0, 0)
	s.AddFilter(f) // bootstrap scheduling opportunity for a source-like filter

	if _, err := s.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if cb.calls.Load() != 1 {
		t.Fatalf("expected exactly the bootstrap call, got %d", cb.calls.Load())
	}

	if _, err := s.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if cb.calls.Load() != 1 {
		t.Fatalf("without input or a new post, the filter should not run again, got %d calls", cb.calls.Load())
	}
}

func TestAbortStopsRun(t *testing.T) {
	f, _ := newCountingFilter("f1")
	s := sched.New(sched.ModeDirect, 0, 0)
	s.AddFilter(f)
	s.SetNonBlocking(false)
	s.Abort(sched.FlushFast)

	err := s.Run(context.Background())
	if err == nil {
		t.Fatalf("Run after Abort should return an error (EndOfStream)")
	}
	if ft, ok := s.FlushType(); !ok || ft != sched.FlushFast {
		t.Fatalf("FlushType = %v, %v; want FlushFast, true", ft, ok)
	}
}

func TestNonBlockingRunReturnsAfterOnePass(t *testing.T) {
	f, cb := newCountingFilter("f1")
	s := sched.New(sched.ModeDirect, 0, 0)
	s.AddFilter(f)
	s.SetNonBlocking(true)
	s.PostProcessTask(f)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cb.calls.Load() != 1 {
		t.Fatalf("expected exactly one pass worth of calls, got %d", cb.calls.Load())
	}
}

func TestRegulatorBoundsIdlePollRate(t *testing.T) {
	r := sched.NewRegulator(10)
	allowed := 0
	for i := 0; i < 5; i++ {
		if r.Allow() {
			allowed++
		}
	}
	if allowed == 0 {
		t.Fatalf("expected at least one allowed poll from a fresh regulator")
	}
	if hint := r.WaitHint(); hint <= 0 {
		t.Fatalf("WaitHint should be positive once the burst is exhausted, got %v", hint)
	}
}

func TestRegulatorDisabledAlwaysAllows(t *testing.T) {
	r := sched.NewRegulator(0)
	for i := 0; i < 100; i++ {
		if !r.Allow() {
			t.Fatalf("disabled regulator should always allow")
		}
	}
}

func TestRunOnceParallelRunsRegisteredFilters(t *testing.T) {
	f, cb := newCountingFilter("f1")
	s := sched.New(sched.ModeLockFree, 4, 50*time.Millisecond)
	s.AddFilter(f)
	s.PostProcessTask(f)

	ranAny, err := s.RunOnceParallel(context.Background())
	if err != nil {
		t.Fatalf("RunOnceParallel: %v", err)
	}
	if !ranAny || cb.calls.Load() != 1 {
		t.Fatalf("expected one call via the worker pool, got %d, ranAny=%v", cb.calls.Load(), ranAny)
	}
}
