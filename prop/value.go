// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop

import "sync/atomic"

// Vec2i is a 2D integer vector.
type Vec2i struct{ X, Y int32 }

// Vec2f is a 2D double-precision vector.
type Vec2f struct{ X, Y float64 }

// Vec3i is a 3D integer vector.
type Vec3i struct{ X, Y, Z int32 }

// Vec4i is a 4D integer vector.
type Vec4i struct{ X, Y, Z, W int32 }

// Fraction is a 32-bit rational, stored unreduced (as-constructed) per
// spec §4.1: equality compares numerator/denominator pairs as stored, not
// the reduced value.
type Fraction struct{ Num, Den int32 }

// Fraction64 is a 64-bit rational, same storage contract as Fraction.
type Fraction64 struct{ Num, Den int64 }

// payload is the heap-allocated, reference-counted tail of a PropertyValue
// for variable-length/pointer kinds (string, data, pointer, lists). Go's
// GC already reclaims memory; the explicit refcount instead answers "how
// many live PropertyValue copies point at this payload", which a
// destructor-bearing borrowed payload (e.g. a decoder handing out a
// pointer into its own ring buffer) needs to know when it is safe to reuse
// the backing storage.
type payload struct {
	refs    atomic.Int32
	str     string
	data    []byte
	ptr     any
	strList []string
	u32List []uint32
	s32List []int32
	v2iList []Vec2i
	fccList []uint32
	onFree  func()
}

func newPayload() *payload {
	p := &payload{}
	p.refs.Store(1)
	return p
}

func (p *payload) ref() *payload {
	if p == nil {
		return nil
	}
	p.refs.Add(1)
	return p
}

func (p *payload) release() {
	if p == nil {
		return
	}
	if p.refs.Add(-1) == 0 && p.onFree != nil {
		p.onFree()
	}
}

// Value is the tagged-union property type (spec §4.1). The zero Value is
// Forbidden and carries no payload.
type Value struct {
	typ    Type
	i      int64
	f      float64
	frac   Fraction
	frac64 Fraction64
	v2i    Vec2i
	v2f    Vec2f
	v3i    Vec3i
	v4i    Vec4i
	pl     *payload
}

// Type reports the value's tag.
func (v Value) Type() Type { return v.typ }

// --- constructors ---

func NewSInt(x int32) Value   { return Value{typ: TSInt, i: int64(x)} }
func NewUInt(x uint32) Value  { return Value{typ: TUInt, i: int64(x)} }
func NewLSInt(x int64) Value  { return Value{typ: TLSInt, i: x} }
func NewLUInt(x uint64) Value { return Value{typ: TLUInt, i: int64(x)} }
func NewBool(x bool) Value {
	v := Value{typ: TBool}
	if x {
		v.i = 1
	}
	return v
}
func NewFraction(num, den int32) Value   { return Value{typ: TFraction, frac: Fraction{num, den}} }
func NewFraction64(num, den int64) Value { return Value{typ: TFraction64, frac64: Fraction64{num, den}} }
func NewFloat(x float32) Value           { return Value{typ: TFloat, f: float64(x)} }
func NewDouble(x float64) Value          { return Value{typ: TDouble, f: x} }
func NewVec2i(x, y int32) Value          { return Value{typ: TVec2i, v2i: Vec2i{x, y}} }
func NewVec2(x, y float64) Value         { return Value{typ: TVec2, v2f: Vec2f{x, y}} }
func NewVec3i(x, y, z int32) Value       { return Value{typ: TVec3i, v3i: Vec3i{x, y, z}} }
func NewVec4i(x, y, z, w int32) Value    { return Value{typ: TVec4i, v4i: Vec4i{x, y, z, w}} }
func NewFourCC(code uint32) Value        { return Value{typ: TFourCC, i: int64(code)} }
func NewPointer(p any) Value {
	pl := newPayload()
	pl.ptr = p
	return Value{typ: TPointer, pl: pl}
}

// NewString builds an owned string property: the provided string is
// copied into a fresh payload (Go strings are immutable, so this is a
// logical copy only).
func NewString(s string) Value {
	pl := newPayload()
	pl.str = s
	return Value{typ: TString, pl: pl}
}

// NewStringBorrowed builds a string property sharing s's backing storage
// without an extra allocation, invoking onFree (if non-nil) once the last
// reference is released.
func NewStringBorrowed(s string, onFree func()) Value {
	pl := newPayload()
	pl.str = s
	pl.onFree = onFree
	return Value{typ: TString, pl: pl}
}

// NewData builds an owned data property, copying b.
func NewData(b []byte) Value {
	pl := newPayload()
	pl.data = append([]byte(nil), b...)
	return Value{typ: TData, pl: pl}
}

// NewDataBorrowed builds a data property sharing b's backing array,
// invoking onFree once the last reference is released.
func NewDataBorrowed(b []byte, onFree func()) Value {
	pl := newPayload()
	pl.data = b
	pl.onFree = onFree
	return Value{typ: TData, pl: pl}
}

func NewStringList(items []string) Value {
	pl := newPayload()
	pl.strList = append([]string(nil), items...)
	return Value{typ: TStringList, pl: pl}
}

func NewUIntList(items []uint32) Value {
	pl := newPayload()
	pl.u32List = append([]uint32(nil), items...)
	return Value{typ: TUIntList, pl: pl}
}

func NewSIntList(items []int32) Value {
	pl := newPayload()
	pl.s32List = append([]int32(nil), items...)
	return Value{typ: TSIntList, pl: pl}
}

func NewVec2iList(items []Vec2i) Value {
	pl := newPayload()
	pl.v2iList = append([]Vec2i(nil), items...)
	return Value{typ: TVec2iList, pl: pl}
}

func NewFourCCList(items []uint32) Value {
	pl := newPayload()
	pl.fccList = append([]uint32(nil), items...)
	return Value{typ: TFourCCList, pl: pl}
}

// NewEnum builds one of the fixed enumeration types (PixelFormat,
// PCMFormat, CICPColorPrimaries, CICPColorTransfer, CICPColorMatrix).
func NewEnum(t Type, code int32) Value {
	return Value{typ: t, i: int64(code)}
}

// --- accessors ---

func (v Value) Int() int32     { return int32(v.i) }
func (v Value) UInt() uint32   { return uint32(v.i) }
func (v Value) Long() int64    { return v.i }
func (v Value) ULong() uint64  { return uint64(v.i) }
func (v Value) Bool() bool     { return v.i != 0 }
func (v Value) Float32() float32 { return float32(v.f) }
func (v Value) Float64() float64 { return v.f }
func (v Value) FracVal() Fraction   { return v.frac }
func (v Value) Frac64Val() Fraction64 { return v.frac64 }
func (v Value) Vec2iVal() Vec2i { return v.v2i }
func (v Value) Vec2Val() Vec2f  { return v.v2f }
func (v Value) Vec3iVal() Vec3i { return v.v3i }
func (v Value) Vec4iVal() Vec4i { return v.v4i }
func (v Value) FourCCVal() uint32 { return uint32(v.i) }
func (v Value) Enum() int32 { return int32(v.i) }

func (v Value) Str() string {
	if v.pl == nil {
		return ""
	}
	return v.pl.str
}

func (v Value) DataBytes() []byte {
	if v.pl == nil {
		return nil
	}
	return v.pl.data
}

func (v Value) Ptr() any {
	if v.pl == nil {
		return nil
	}
	return v.pl.ptr
}

func (v Value) StrList() []string {
	if v.pl == nil {
		return nil
	}
	return v.pl.strList
}

func (v Value) U32List() []uint32 {
	if v.pl == nil {
		return nil
	}
	return v.pl.u32List
}

func (v Value) S32List() []int32 {
	if v.pl == nil {
		return nil
	}
	return v.pl.s32List
}

func (v Value) Vec2iListVal() []Vec2i {
	if v.pl == nil {
		return nil
	}
	return v.pl.v2iList
}

func (v Value) FCCList() []uint32 {
	if v.pl == nil {
		return nil
	}
	return v.pl.fccList
}

// Ref returns a new Value sharing this value's heap payload (if any),
// bumping its refcount. Use when a consumer needs to retain the value past
// the producer's call frame (spec §4.1 "properties are reference-counted
// so a consumer may hold a reference past the setter's context").
func (v Value) Ref() Value {
	if v.pl == nil {
		return v
	}
	return Value{typ: v.typ, i: v.i, f: v.f, frac: v.frac, frac64: v.frac64,
		v2i: v.v2i, v2f: v.v2f, v3i: v.v3i, v4i: v.v4i, pl: v.pl.ref()}
}

// Release drops this value's reference to its heap payload (if any),
// invoking the payload's free callback once the last reference goes away.
func (v Value) Release() {
	v.pl.release()
}

// Equal reports type-aware, deep equality (spec §4.1): types must match,
// and payloads compare deeply for strings/data/lists. Fraction equality
// compares the stored numerator/denominator pair, not the reduced value.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TFraction:
		return a.frac == b.frac
	case TFraction64:
		return a.frac64 == b.frac64
	case TFloat, TDouble:
		return a.f == b.f
	case TVec2i:
		return a.v2i == b.v2i
	case TVec2:
		return a.v2f == b.v2f
	case TVec3i:
		return a.v3i == b.v3i
	case TVec4i:
		return a.v4i == b.v4i
	case TString:
		return a.Str() == b.Str()
	case TData:
		return bytesEqual(a.DataBytes(), b.DataBytes())
	case TPointer:
		return a.Ptr() == b.Ptr()
	case TStringList:
		return stringsEqual(a.StrList(), b.StrList())
	case TUIntList:
		return u32sEqual(a.U32List(), b.U32List())
	case TSIntList:
		return s32sEqual(a.S32List(), b.S32List())
	case TVec2iList:
		al, bl := a.Vec2iListVal(), b.Vec2iListVal()
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i] != bl[i] {
				return false
			}
		}
		return true
	case TFourCCList:
		return u32sEqual(a.FCCList(), b.FCCList())
	default:
		// SInt, UInt, LSInt, LUInt, Bool, FourCC, and every enum type
		// (PixelFormat, PCMFormat, CICP*) are plain integer tags.
		return a.i == b.i
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func u32sEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func s32sEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
