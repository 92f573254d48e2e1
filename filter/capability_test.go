// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter_test

import (
	"testing"

	"flowmesh.dev/fsession/filter"
	"flowmesh.dev/fsession/prop"
)

func TestCapFlagHelpersComposeExpectedBits(t *testing.T) {
	cases := []struct {
		name string
		got  filter.CapFlag
		want filter.CapFlag
	}{
		{"CapInputFlags", filter.CapInputFlags(), filter.CapInput},
		{"CapInputOpt", filter.CapInputOpt(), filter.CapInput | filter.CapOptional},
		{"CapInputStatic", filter.CapInputStatic(), filter.CapInput | filter.CapStatic},
		{"CapInputStaticOpt", filter.CapInputStaticOpt(), filter.CapInput | filter.CapStatic | filter.CapOptional},
		{"CapInputExcluded", filter.CapInputExcluded(), filter.CapInput | filter.CapExcluded},
		{"CapInputLoadedFilter", filter.CapInputLoadedFilter(), filter.CapInput | filter.CapLoadedFilter},
		{"CapOutputFlags", filter.CapOutputFlags(), filter.CapOutput},
		{"CapOutputOpt", filter.CapOutputOpt(), filter.CapOutput | filter.CapOptional},
		{"CapOutputStatic", filter.CapOutputStatic(), filter.CapOutput | filter.CapStatic},
		{"CapOutputStaticOpt", filter.CapOutputStaticOpt(), filter.CapOutput | filter.CapStatic | filter.CapOptional},
		{"CapOutputExcluded", filter.CapOutputExcluded(), filter.CapOutput | filter.CapExcluded},
		{"CapOutputLoadedFilter", filter.CapOutputLoadedFilter(), filter.CapOutput | filter.CapLoadedFilter},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestBundleRequiresLoadedFilter(t *testing.T) {
	plain := filter.Bundle{Entries: []filter.CapEntry{
		{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInput},
	}}
	if plain.RequiresLoadedFilter() {
		t.Fatalf("a bundle with no CapLoadedFilter entry must not require a loaded filter")
	}

	loaded := filter.Bundle{Entries: []filter.CapEntry{
		{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInputLoadedFilter()},
	}}
	if !loaded.RequiresLoadedFilter() {
		t.Fatalf("a bundle carrying CapLoadedFilter must require a loaded filter")
	}
}

func TestMatchStillAppliesToLoadedFilterBundle(t *testing.T) {
	out := &prop.Map{}
	out.Set(prop.FourCCKey(prop.PropStreamType), prop.NewUInt(uint32(prop.StreamAudio)))

	in := filter.Bundle{Entries: []filter.CapEntry{
		{Key: prop.FourCCKey(prop.PropStreamType), Value: prop.NewUInt(uint32(prop.StreamAudio)), Flags: filter.CapInputLoadedFilter()},
	}}
	matched, ok := filter.Match(out, in)
	if !ok || matched != 1 {
		t.Fatalf("Match(out, in) = (%d, %v), want (1, true): CapLoadedFilter only changes where a bundle is considered, not entry matching", matched, ok)
	}
}
