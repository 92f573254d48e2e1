// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"testing"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/pid"
)

type probeNopCallbacks struct{}

func (probeNopCallbacks) Initialize(f *filter.Filter) error { return nil }
func (probeNopCallbacks) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	return nil
}
func (probeNopCallbacks) Process(f *filter.Filter) error                      { return nil }
func (probeNopCallbacks) ProcessEvent(f *filter.Filter, evt any) bool         { return false }
func (probeNopCallbacks) UpdateArg(f *filter.Filter, name, value string) error { return nil }

func newInstance() filter.Callbacks { return probeNopCallbacks{} }

func TestSelectSourceByURLPrefersHigherScore(t *testing.T) {
	low := &filter.Registry{
		Name:        "genericsrc",
		NewInstance: newInstance,
		ProbeURL: func(url, mime string) filter.ProbeScore {
			return filter.ProbeMaybeSupported
		},
	}
	high := &filter.Registry{
		Name:        "mp4src",
		NewInstance: newInstance,
		ProbeURL: func(url, mime string) filter.ProbeScore {
			if url == "in.mp4" {
				return filter.ProbeExtMatch
			}
			return filter.ProbeNotSupported
		},
	}

	reg, ok := selectSourceByURL([]*filter.Registry{low, high}, "in.mp4", "")
	if !ok || reg != high {
		t.Fatalf("expected mp4src to win on ext match, got %v ok=%v", reg, ok)
	}
}

func TestSelectSourceByURLTieBreaksOnLowerPriority(t *testing.T) {
	scoreFn := func(url, mime string) filter.ProbeScore { return filter.ProbeSupported }
	a := &filter.Registry{Name: "a", Priority: 5, NewInstance: newInstance, ProbeURL: scoreFn}
	b := &filter.Registry{Name: "b", Priority: 1, NewInstance: newInstance, ProbeURL: scoreFn}

	reg, ok := selectSourceByURL([]*filter.Registry{a, b}, "x", "")
	if !ok || reg != b {
		t.Fatalf("expected lower-priority registry b to win the tie, got %v ok=%v", reg, ok)
	}
}

func TestSelectSourceByURLNoneAccept(t *testing.T) {
	reg := &filter.Registry{Name: "nosrc", NewInstance: newInstance}
	_, ok := selectSourceByURL([]*filter.Registry{reg}, "x", "")
	if ok {
		t.Fatalf("a registry with no ProbeURL should never be selected")
	}
}

func TestSelectSourceByDataReturnsMime(t *testing.T) {
	reg := &filter.Registry{
		Name:        "sniffsrc",
		NewInstance: newInstance,
		ProbeData: func(sample []byte) (filter.ProbeScore, []string) {
			if len(sample) >= 4 && string(sample[:4]) == "ftyp" {
				return filter.ProbeSupported, []string{"mp4", "video/mp4"}
			}
			return filter.ProbeNotSupported, nil
		},
	}

	got, mime, ok := selectSourceByData([]*filter.Registry{reg}, []byte("ftypisom"))
	if !ok || got != reg {
		t.Fatalf("expected sniffsrc to accept the sample, got %v ok=%v", got, ok)
	}
	if len(mime) != 2 || mime[0] != "mp4" {
		t.Fatalf("mimeOrExt = %v, want [mp4 video/mp4]", mime)
	}
}
