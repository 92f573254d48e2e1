// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prop implements the tagged-union PropertyValue and the
// insertion-ordered PropertyMap used throughout the filter session: PID
// state, packet metadata, and filter argument values all share this type
// (spec §4.1).
package prop

// Type is the tag of a PropertyValue. Values mirror the GF_PROP_* ordering
// of the source format this engine's wire-level property IDs must stay
// stable with (spec §6.4), non-enum types first, enum types from
// TFirstEnum. Constants are prefixed with T to keep the payload struct
// names (Fraction, Vec2i, ...) free for the value types they tag.
type Type int

const (
	TForbidden Type = iota
	TSInt
	TUInt
	TLSInt
	TLUInt
	TBool
	TFraction
	TFraction64
	TFloat
	TDouble
	TVec2i
	TVec2
	TVec3i
	TVec4i
	TString
	TData
	TPointer
	TStringList
	TUIntList
	TSIntList
	TVec2iList
	TFourCC
	TFourCCList
	tLastNonEnum

	// TFirstEnum begins the fixed set of "enumeration" types: pixel
	// format, PCM format, and CICP color primaries/transfer/matrix
	// (spec §3).
	TFirstEnum            Type = 40
	TPixelFormat                = TFirstEnum
	TPCMFormat                  = TFirstEnum + 1
	TCICPColorPrimaries         = TFirstEnum + 2
	TCICPColorTransfer          = TFirstEnum + 3
	TCICPColorMatrix            = TFirstEnum + 4
)

// IsEnum reports whether t is one of the fixed enumeration types.
func (t Type) IsEnum() bool {
	return t >= TFirstEnum
}

// IsList reports whether t carries a list payload.
func (t Type) IsList() bool {
	switch t {
	case TStringList, TUIntList, TSIntList, TVec2iList, TFourCCList:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TForbidden:
		return "forbidden"
	case TSInt:
		return "sint"
	case TUInt:
		return "uint"
	case TLSInt:
		return "lsint"
	case TLUInt:
		return "luint"
	case TBool:
		return "bool"
	case TFraction:
		return "fraction"
	case TFraction64:
		return "fraction64"
	case TFloat:
		return "float"
	case TDouble:
		return "double"
	case TVec2i:
		return "vec2i"
	case TVec2:
		return "vec2"
	case TVec3i:
		return "vec3i"
	case TVec4i:
		return "vec4i"
	case TString:
		return "string"
	case TData:
		return "data"
	case TPointer:
		return "pointer"
	case TStringList:
		return "string_list"
	case TUIntList:
		return "uint_list"
	case TSIntList:
		return "sint_list"
	case TVec2iList:
		return "vec2i_list"
	case TFourCC:
		return "4cc"
	case TFourCCList:
		return "4cc_list"
	case TPixelFormat:
		return "pixfmt"
	case TPCMFormat:
		return "pcmfmt"
	case TCICPColorPrimaries:
		return "cicp_color_primaries"
	case TCICPColorTransfer:
		return "cicp_color_transfer"
	case TCICPColorMatrix:
		return "cicp_color_matrix"
	default:
		return "unknown"
	}
}

// MakeFourCC packs four bytes into a big-endian 4CC, matching the source
// format's GF_4CC macro so built-in property codes stay wire-stable.
func MakeFourCC(a, b, c, d byte) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)
}

// FourCCString renders a 4CC as its four printable characters, or a hex
// fallback if any byte is not printable.
func FourCCString(v uint32) string {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fourCCHex(v)
		}
	}
	return string(b[:])
}

func fourCCHex(v uint32) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 10)
	out[0], out[1] = '0', 'x'
	for i := 0; i < 8; i++ {
		shift := uint(28 - 4*i)
		out[2+i] = hex[(v>>shift)&0xf]
	}
	return string(out)
}
