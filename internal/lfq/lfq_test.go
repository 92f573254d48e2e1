// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"errors"
	"sync"
	"testing"

	"flowmesh.dev/fsession/internal/lfq"
)

func TestSPSCBasic(t *testing.T) {
	q := lfq.NewSPSC[int](3)
	if q.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", q.Cap())
	}
	for i := range 4 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	v := 999
	if err := q.Enqueue(&v); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}
	for i := range 4 {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got != i+100 {
			t.Fatalf("Dequeue(%d): got %d, want %d", i, got, i+100)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

func TestMPSCConcurrentProducers(t *testing.T) {
	q := lfq.NewMPSC[int](4096) // holds all 8*500 items: the consumer starts only after wg.Wait
	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := range perProducer {
				v := base + i
				for q.Enqueue(&v) != nil {
				}
			}
		}(p * perProducer)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for len(seen) < producers*perProducer {
		v, err := q.Dequeue()
		if err != nil {
			continue
		}
		if seen[v] {
			t.Fatalf("duplicate dequeue of %d", v)
		}
		seen[v] = true
	}
}

func TestMPMCDrainAfterProducersFinish(t *testing.T) {
	q := lfq.NewMPMC[int](8)
	for i := range 8 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	q.Drain()
	for i := range 8 {
		v, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d) after Drain: %v", i, err)
		}
		if v != i {
			t.Fatalf("Dequeue(%d): got %d", i, v)
		}
	}
}

func TestMPMCFIFOSingleProducerConsumer(t *testing.T) {
	q := lfq.NewMPMC[string](4)
	words := []string{"a", "b", "c", "d"}
	for i := range words {
		if err := q.Enqueue(&words[i]); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for i := range words {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if got != words[i] {
			t.Fatalf("Dequeue(%d): got %q, want %q", i, got, words[i])
		}
	}
}
