// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session_test

import (
	"testing"

	"flowmesh.dev/fsession/examplefilters"
	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/pid"
	"flowmesh.dev/fsession/prop"
	"flowmesh.dev/fsession/sched"
	"flowmesh.dev/fsession/session"
)

// passthroughCallbacks is a minimal Callbacks implementation used only to
// exercise Connect's topology resolution; it never processes packets.
type passthroughCallbacks struct {
	outKind prop.StreamType
}

func (c *passthroughCallbacks) Initialize(f *filter.Filter) error {
	if c.outKind == prop.StreamUnknown {
		return nil
	}
	opid := f.NewOutputPID("out")
	if opid == nil {
		return nil
	}
	opid.ConfigurePID(func(m *prop.Map) bool {
		return m.Set(prop.FourCCKey(prop.PropStreamType), prop.NewUInt(uint32(c.outKind)))
	})
	return nil
}
func (c *passthroughCallbacks) ConfigurePID(f *filter.Filter, p *pid.PID, isRemove bool) error {
	return nil
}
func (c *passthroughCallbacks) Process(f *filter.Filter) error              { return nil }
func (c *passthroughCallbacks) ProcessEvent(f *filter.Filter, evt any) bool { return false }
func (c *passthroughCallbacks) UpdateArg(f *filter.Filter, name, value string) error {
	return nil
}

func videoSrcRegistry() *filter.Registry {
	return &filter.Registry{
		Name: "videosrc",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamVisual)), Flags: filter.CapOutput},
		},
		NewInstance: func() filter.Callbacks { return &passthroughCallbacks{outKind: prop.StreamVisual} },
	}
}

func videoToAudioAdapterRegistry() *filter.Registry {
	return &filter.Registry{
		Name: "vid2aud",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamVisual)), Flags: filter.CapInput},
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapOutput},
		},
		NewInstance: func() filter.Callbacks { return &passthroughCallbacks{outKind: prop.StreamAudio} },
	}
}

func audioSinkRegistry() *filter.Registry {
	return &filter.Registry{
		Name: "audiosink",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInput},
		},
		NewInstance: func() filter.Callbacks { return &passthroughCallbacks{} },
	}
}

func TestFilterCountStartsAtZero(t *testing.T) {
	s := session.New(0, sched.ModeDirect, 0).Build()
	if got := s.FilterCount(); got != 0 {
		t.Fatalf("FilterCount = %d, want 0", got)
	}
}

func TestTrivialPipeConnectsDirectly(t *testing.T) {
	s := session.New(0, sched.ModeDirect, session.NonBlocking).Build()
	if err := s.RegisterRegistry(examplefilters.NewFrameCounterSinkRegistry()); err != nil {
		t.Fatalf("RegisterRegistry sink: %v", err)
	}
	if err := s.RegisterRegistry(examplefilters.NewRawPCMSourceRegistry()); err != nil {
		t.Fatalf("RegisterRegistry source: %v", err)
	}

	if _, err := s.LoadDestination("framecountersink"); err != nil {
		t.Fatalf("LoadDestination: %v", err)
	}
	if _, err := s.LoadFilter("rawpcmsrc"); err != nil {
		t.Fatalf("LoadFilter: %v", err)
	}
	if err := s.LastConnectError(); err != nil {
		t.Fatalf("direct source->sink connect should resolve with no adapter: %v", err)
	}
	if got := s.FilterCount(); got != 2 {
		t.Fatalf("FilterCount = %d, want 2 (no adapter needed)", got)
	}
	if got := s.Stats().EdgesResolved; got != 1 {
		t.Fatalf("EdgesResolved = %d, want 1", got)
	}
}

func TestAdapterInsertedWhenNoDirectEdgeExists(t *testing.T) {
	s := session.New(0, sched.ModeDirect, session.NonBlocking).Build()
	if err := s.RegisterRegistry(audioSinkRegistry()); err != nil {
		t.Fatalf("RegisterRegistry sink: %v", err)
	}
	if err := s.RegisterRegistry(videoToAudioAdapterRegistry()); err != nil {
		t.Fatalf("RegisterRegistry adapter: %v", err)
	}
	if err := s.RegisterRegistry(videoSrcRegistry()); err != nil {
		t.Fatalf("RegisterRegistry source: %v", err)
	}

	if _, err := s.LoadDestination("audiosink"); err != nil {
		t.Fatalf("LoadDestination: %v", err)
	}
	if _, err := s.LoadFilter("videosrc"); err != nil {
		t.Fatalf("LoadFilter: %v", err)
	}
	if err := s.LastConnectError(); err != nil {
		t.Fatalf("videosrc->vid2aud->audiosink should resolve via the adapter: %v", err)
	}
	if got := s.FilterCount(); got != 3 {
		t.Fatalf("FilterCount = %d, want 3 (source, auto-instantiated adapter, sink)", got)
	}
}

func TestNoImplicitRejectsMultiHopChain(t *testing.T) {
	s := session.New(0, sched.ModeDirect, session.NonBlocking|session.NoImplicit).Build()
	if err := s.RegisterRegistry(audioSinkRegistry()); err != nil {
		t.Fatalf("RegisterRegistry sink: %v", err)
	}
	if err := s.RegisterRegistry(videoToAudioAdapterRegistry()); err != nil {
		t.Fatalf("RegisterRegistry adapter: %v", err)
	}
	if err := s.RegisterRegistry(videoSrcRegistry()); err != nil {
		t.Fatalf("RegisterRegistry source: %v", err)
	}

	if _, err := s.LoadDestination("audiosink"); err != nil {
		t.Fatalf("LoadDestination: %v", err)
	}
	if _, err := s.LoadFilter("videosrc"); err != nil {
		t.Fatalf("LoadFilter: %v", err)
	}
	if err := s.LastConnectError(); err == nil {
		t.Fatalf("NoImplicit should reject a chain requiring adapter insertion")
	}
	if got := s.FilterCount(); got != 2 {
		t.Fatalf("FilterCount = %d, want 2 (adapter never instantiated)", got)
	}
}

func TestMaxChainLengthZeroDisablesResolution(t *testing.T) {
	s := session.New(0, sched.ModeDirect, session.NonBlocking).
		WithMaxChainLength(0).
		Build()
	if err := s.RegisterRegistry(examplefilters.NewFrameCounterSinkRegistry()); err != nil {
		t.Fatalf("RegisterRegistry sink: %v", err)
	}
	if err := s.RegisterRegistry(examplefilters.NewRawPCMSourceRegistry()); err != nil {
		t.Fatalf("RegisterRegistry source: %v", err)
	}

	if _, err := s.LoadDestination("framecountersink"); err != nil {
		t.Fatalf("LoadDestination: %v", err)
	}
	if _, err := s.LoadFilter("rawpcmsrc"); err != nil {
		t.Fatalf("LoadFilter: %v", err)
	}
	if err := s.LastConnectError(); err == nil {
		t.Fatalf("WithMaxChainLength(0) should disable resolution even for a direct edge")
	}
}

func loadedFilterAudioSinkRegistry() *filter.Registry {
	return &filter.Registry{
		Name: "audiosink-loaded",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInputLoadedFilter()},
		},
		NewInstance: func() filter.Callbacks { return &passthroughCallbacks{} },
	}
}

func audioSrcRegistry() *filter.Registry {
	return &filter.Registry{
		Name: "audiosrc",
		Caps: []filter.CapEntry{
			{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapOutput},
		},
		NewInstance: func() filter.Callbacks { return &passthroughCallbacks{outKind: prop.StreamAudio} },
	}
}

func TestLoadedFilterBundleConnectsDirectlyBypassingGraph(t *testing.T) {
	s := session.New(0, sched.ModeDirect, session.NonBlocking|session.NoImplicit).Build()
	if err := s.RegisterRegistry(loadedFilterAudioSinkRegistry()); err != nil {
		t.Fatalf("RegisterRegistry sink: %v", err)
	}
	if err := s.RegisterRegistry(audioSrcRegistry()); err != nil {
		t.Fatalf("RegisterRegistry source: %v", err)
	}

	if _, err := s.LoadDestination("audiosink-loaded"); err != nil {
		t.Fatalf("LoadDestination: %v", err)
	}
	if _, err := s.LoadFilter("audiosrc"); err != nil {
		t.Fatalf("LoadFilter: %v", err)
	}
	if err := s.LastConnectError(); err != nil {
		t.Fatalf("a CapLoadedFilter-only bundle should still connect directly against an already-loaded destination, even under NoImplicit: %v", err)
	}
	if got := s.FilterCount(); got != 2 {
		t.Fatalf("FilterCount = %d, want 2", got)
	}
}

func TestBlacklistRejectsRegistration(t *testing.T) {
	s := session.New(0, sched.ModeDirect, 0).Blacklist("videosrc").Build()
	if err := s.RegisterRegistry(videoSrcRegistry()); err == nil {
		t.Fatalf("registering a blacklisted registry name should fail")
	}
}

func TestLoadFilterUnknownRegistryName(t *testing.T) {
	s := session.New(0, sched.ModeDirect, 0).Build()
	if _, err := s.LoadFilter("doesnotexist"); err == nil {
		t.Fatalf("loading an unregistered registry name should fail")
	}
}
