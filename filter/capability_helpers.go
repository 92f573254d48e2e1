// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter

import "flowmesh.dev/fsession/prop"

// AsPropMap flattens an output bundle's declared capability values into a
// property map, as if it were a concrete PID's property set. The graph
// resolver uses this to score a downstream input bundle against an
// upstream registry's *declared* (not yet instantiated) output
// capabilities (spec §4.5 graph construction).
func (b Bundle) AsPropMap() *prop.Map {
	m := &prop.Map{}
	for _, e := range b.Entries {
		if !e.isOutput() || e.isExcluded() {
			continue
		}
		m.Set(e.Key, e.Value.Ref())
	}
	return m
}

// The functions below compose the primitive CapFlag bits into the common
// combinations named in spec.md §3 and GPAC's filters.h (GF_CAPS_INPUT,
// GF_CAPS_INPUT_OPT, GF_CAPS_INPUT_STATIC[_OPT], GF_CAPS_INPUT_EXCLUDED,
// GF_CAPS_INPUT_LOADED_FILTER, and their OUTPUT counterparts), so a
// Registry's Caps declaration can be written without spelling out bitwise
// ORs of the primitive flags at every call site.
func CapInputFlags() CapFlag        { return CapInput }
func CapInputOpt() CapFlag          { return CapInput | CapOptional }
func CapInputStatic() CapFlag       { return CapInput | CapStatic }
func CapInputStaticOpt() CapFlag    { return CapInput | CapStatic | CapOptional }
func CapInputExcluded() CapFlag     { return CapInput | CapExcluded }
func CapInputLoadedFilter() CapFlag { return CapInput | CapLoadedFilter }

func CapOutputFlags() CapFlag        { return CapOutput }
func CapOutputOpt() CapFlag          { return CapOutput | CapOptional }
func CapOutputStatic() CapFlag       { return CapOutput | CapStatic }
func CapOutputStaticOpt() CapFlag    { return CapOutput | CapStatic | CapOptional }
func CapOutputExcluded() CapFlag     { return CapOutput | CapExcluded }
func CapOutputLoadedFilter() CapFlag { return CapOutput | CapLoadedFilter }
