// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package filter implements Filter, Registry, and the capability bundle
// types a Registry declares (spec §4.4, §6.3).
package filter

import "flowmesh.dev/fsession/prop"

// CapFlag is a bit in a CapEntry's flag set (spec §6.3).
type CapFlag uint32

const (
	// CapInput marks an entry as applying to input bundles.
	CapInput CapFlag = 1 << iota
	// CapOutput marks an entry as applying to output bundles.
	CapOutput
	// CapExcluded requires the matched property to differ, instead of
	// equal, the entry's value.
	CapExcluded
	// CapOptional marks an entry that, if absent on the other side, is
	// ignored rather than causing a match failure.
	CapOptional
	// CapStatic propagates this entry across every bundle of matching
	// direction in the registry (spec §6.3).
	CapStatic
	// CapInBundle continues the current bundle instead of starting a new
	// one at this entry.
	CapInBundle
	// CapLoadedFilter marks an entry that only applies when matching
	// directly against an already-instantiated destination filter, never
	// during CapabilityGraph construction (spec §3's capability bundle
	// flags). A bundle carrying this flag is excluded from
	// graph.Graph.Build's adjacency search and is only ever reachable via
	// a direct producer-to-loaded-destination match.
	CapLoadedFilter
)

// CapEntry is one row of a registry's capability declaration: a
// (property, value) constraint plus direction/matching flags.
type CapEntry struct {
	Key   prop.Key
	Value prop.Value
	Flags CapFlag
}

func (e CapEntry) isInput() bool        { return e.Flags&CapInput != 0 }
func (e CapEntry) isOutput() bool       { return e.Flags&CapOutput != 0 }
func (e CapEntry) isExcluded() bool     { return e.Flags&CapExcluded != 0 }
func (e CapEntry) isOptional() bool     { return e.Flags&CapOptional != 0 }
func (e CapEntry) isStatic() bool       { return e.Flags&CapStatic != 0 }
func (e CapEntry) isLoadedFilter() bool { return e.Flags&CapLoadedFilter != 0 }

// Bundle is a set of capability entries sharing one matching context
// (spec §6.3: "the beginning of each bundle is implicit at the first
// entry and at every entry without CapInBundle").
type Bundle struct {
	Entries []CapEntry
}

func (b Bundle) appliesToInput() bool {
	for _, e := range b.Entries {
		if e.isInput() {
			return true
		}
	}
	return false
}

func (b Bundle) appliesToOutput() bool {
	for _, e := range b.Entries {
		if e.isOutput() {
			return true
		}
	}
	return false
}

// RequiresLoadedFilter reports whether any entry in the bundle is flagged
// CapLoadedFilter: such a bundle is only considered when matching
// directly against an already-instantiated destination filter (spec §3),
// never during CapabilityGraph construction.
func (b Bundle) RequiresLoadedFilter() bool {
	for _, e := range b.Entries {
		if e.isLoadedFilter() {
			return true
		}
	}
	return false
}

// SplitBundles groups a flat capability declaration into bundles per spec
// §6.3, folding CapStatic entries of the matching direction into every
// bundle.
func SplitBundles(decl []CapEntry) []Bundle {
	var bundles []Bundle
	var statics []CapEntry
	var cur []CapEntry
	flush := func() {
		if len(cur) > 0 {
			bundles = append(bundles, Bundle{Entries: cur})
		}
		cur = nil
	}
	for _, e := range decl {
		if e.isStatic() {
			statics = append(statics, e)
			continue
		}
		if len(cur) > 0 && e.Flags&CapInBundle == 0 {
			flush()
		}
		cur = append(cur, e)
	}
	flush()
	for i := range bundles {
		for _, s := range statics {
			dirOK := (s.isInput() && bundles[i].appliesToInput()) ||
				(s.isOutput() && bundles[i].appliesToOutput())
			if dirOK {
				bundles[i].Entries = append(bundles[i].Entries, s)
			}
		}
	}
	return bundles
}

// fileExtMimeAlternate reports whether key is one of the FILE_EXT/MIME
// pair, which spec §4.5 treats as mutually substitutable.
func fileExtMimeAlternate(key prop.Key) bool {
	return key.FourCC == prop.PropFileExt || key.FourCC == prop.PropMIME
}

// Match scores how well an upstream output bundle (out) satisfies a
// downstream input bundle (in) against a concrete source property set
// (spec §4.5). It returns the number of matched entries and whether every
// required (non-optional) entry matched.
func Match(out *prop.Map, in Bundle) (matched int, ok bool) {
	ok = true
	for _, e := range in.Entries {
		if !e.isInput() {
			continue
		}
		v, present := out.Get(e.Key)
		if !present && fileExtMimeAlternate(e.Key) {
			alt := prop.FourCCKey(prop.PropFileExt)
			if e.Key.FourCC == prop.PropFileExt {
				alt = prop.FourCCKey(prop.PropMIME)
			}
			v, present = out.Get(alt)
		}
		if !present {
			if !e.isOptional() {
				ok = false
			}
			continue
		}
		equal := prop.Equal(v, e.Value)
		if e.isExcluded() {
			equal = !equal
		}
		if !equal {
			ok = false
			continue
		}
		matched++
	}
	return matched, ok
}
