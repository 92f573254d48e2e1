// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop

import (
	"fmt"
	"strconv"
	"strings"

	"flowmesh.dev/fsession/fserr"
)

// EnumSpec resolves between an enum type's textual names (e.g. "yuv420"
// for a pixel format) and its integer codes, for the fixed set of
// enumeration types (spec §3).
type EnumSpec interface {
	Parse(s string) (int32, bool)
	Name(code int32) string
}

// ParseTyped parses text into a Value of the given type, per spec §4.1.
// listSep splits list types (default "," per §6.1). enumSpec resolves
// enum-type text against a name table; may be nil for non-enum types.
//
// Returns an fserr.BadParam error when text does not match the type's
// grammar (spec §4.1 "Failure").
func ParseTyped(t Type, text string, enumSpec EnumSpec, listSep string) (Value, error) {
	if listSep == "" {
		listSep = ","
	}
	switch t {
	case TSInt:
		n, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewSInt(int32(n)), nil
	case TUInt:
		n, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewUInt(uint32(n)), nil
	case TLSInt:
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewLSInt(n), nil
	case TLUInt:
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewLUInt(n), nil
	case TBool:
		b, ok := parseBool(text)
		if !ok {
			return Value{}, badParam(t, text)
		}
		return NewBool(b), nil
	case TFraction:
		num, den, err := parseFraction32(text)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewFraction(num, den), nil
	case TFraction64:
		num, den, err := parseFraction64(text)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewFraction64(num, den), nil
	case TFloat:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewFloat(float32(f)), nil
	case TDouble:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewDouble(f), nil
	case TVec2i:
		x, y, err := parseIntTuple(text, 2)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewVec2i(int32(x[0]), int32(x[1])), nil
	case TVec2:
		parts := strings.SplitN(text, "x", 2)
		if len(parts) != 2 {
			return Value{}, badParam(t, text)
		}
		x, errx := strconv.ParseFloat(parts[0], 64)
		y, erry := strconv.ParseFloat(parts[1], 64)
		if errx != nil || erry != nil {
			return Value{}, badParam(t, text)
		}
		return NewVec2(x, y), nil
	case TVec3i:
		x, _, err := parseIntTupleN(text, 3)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewVec3i(int32(x[0]), int32(x[1]), int32(x[2])), nil
	case TVec4i:
		x, _, err := parseIntTupleN(text, 4)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewVec4i(int32(x[0]), int32(x[1]), int32(x[2]), int32(x[3])), nil
	case TString:
		return NewString(text), nil
	case TData:
		b, err := parseHexData(text)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewData(b), nil
	case TPointer:
		return Value{}, fserr.New(fserr.BadParam, "", "pointer type cannot be parsed from text")
	case TFourCC:
		code, err := parseFourCCText(text)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewFourCC(code), nil
	case TStringList:
		if text == "" {
			return NewStringList(nil), nil
		}
		return NewStringList(strings.Split(text, listSep)), nil
	case TUIntList:
		items, err := parseUIntList(text, listSep)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewUIntList(items), nil
	case TSIntList:
		items, err := parseSIntList(text, listSep)
		if err != nil {
			return Value{}, badParam(t, text)
		}
		return NewSIntList(items), nil
	case TVec2iList:
		parts := splitNonEmpty(text, listSep)
		items := make([]Vec2i, 0, len(parts))
		for _, p := range parts {
			x, err := parseIntTuple(p, 2)
			if err != nil {
				return Value{}, badParam(t, text)
			}
			items = append(items, Vec2i{int32(x[0]), int32(x[1])})
		}
		return NewVec2iList(items), nil
	case TFourCCList:
		parts := splitNonEmpty(text, listSep)
		items := make([]uint32, 0, len(parts))
		for _, p := range parts {
			code, err := parseFourCCText(p)
			if err != nil {
				return Value{}, badParam(t, text)
			}
			items = append(items, code)
		}
		return NewFourCCList(items), nil
	default:
		if t.IsEnum() {
			if enumSpec == nil {
				return Value{}, badParam(t, text)
			}
			code, ok := enumSpec.Parse(text)
			if !ok {
				return Value{}, badParam(t, text)
			}
			return NewEnum(t, code), nil
		}
		return Value{}, badParam(t, text)
	}
}

func badParam(t Type, text string) error {
	return fserr.New(fserr.BadParam, "", fmt.Sprintf("cannot parse %q as %s", text, t))
}

// Dump renders v in the canonical textual form ParseTyped accepts, so that
// ParseTyped(t, Dump(v), enumSpec) == v for every non-opaque type (spec §8
// round-trip property). Pointer values dump as a fixed placeholder since
// they carry no textual representation.
func Dump(v Value, enumSpec EnumSpec) string {
	switch v.typ {
	case TSInt:
		return strconv.FormatInt(int64(v.Int()), 10)
	case TUInt:
		return strconv.FormatUint(uint64(v.UInt()), 10)
	case TLSInt:
		return strconv.FormatInt(v.Long(), 10)
	case TLUInt:
		return strconv.FormatUint(v.ULong(), 10)
	case TBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TFraction:
		f := v.FracVal()
		return fmt.Sprintf("%d/%d", f.Num, f.Den)
	case TFraction64:
		f := v.Frac64Val()
		return fmt.Sprintf("%d/%d", f.Num, f.Den)
	case TFloat:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32)
	case TDouble:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case TVec2i:
		p := v.Vec2iVal()
		return fmt.Sprintf("%dx%d", p.X, p.Y)
	case TVec2:
		p := v.Vec2Val()
		return fmt.Sprintf("%gx%g", p.X, p.Y)
	case TVec3i:
		p := v.Vec3iVal()
		return fmt.Sprintf("%dx%dx%d", p.X, p.Y, p.Z)
	case TVec4i:
		p := v.Vec4iVal()
		return fmt.Sprintf("%dx%dx%dx%d", p.X, p.Y, p.Z, p.W)
	case TString:
		return v.Str()
	case TData:
		return dumpHexData(v.DataBytes())
	case TPointer:
		return "(pointer)"
	case TFourCC:
		return FourCCString(v.FourCCVal())
	case TStringList:
		return strings.Join(v.StrList(), ",")
	case TUIntList:
		return joinUInt32(v.U32List())
	case TSIntList:
		return joinInt32(v.S32List())
	case TVec2iList:
		items := v.Vec2iListVal()
		parts := make([]string, len(items))
		for i, p := range items {
			parts[i] = fmt.Sprintf("%dx%d", p.X, p.Y)
		}
		return strings.Join(parts, ",")
	case TFourCCList:
		items := v.FCCList()
		parts := make([]string, len(items))
		for i, c := range items {
			parts[i] = FourCCString(c)
		}
		return strings.Join(parts, ",")
	default:
		if v.typ.IsEnum() && enumSpec != nil {
			return enumSpec.Name(v.Enum())
		}
		return ""
	}
}

func parseBool(text string) (bool, bool) {
	switch strings.ToLower(text) {
	case "", "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	default:
		return false, false
	}
}

func parseFraction32(text string) (int32, int32, error) {
	num, den, err := parseFraction64(text)
	return int32(num), int32(den), err
}

func parseFraction64(text string) (int64, int64, error) {
	parts := strings.SplitN(text, "/", 2)
	num, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if len(parts) == 1 {
		return num, 1, nil
	}
	den, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return num, den, nil
}

func parseIntTuple(text string, n int) ([2]int64, error) {
	v, _, err := parseIntTupleN(text, n)
	var out [2]int64
	if err == nil {
		copy(out[:], v[:2])
	}
	return out, err
}

func parseIntTupleN(text string, n int) ([4]int64, int, error) {
	parts := strings.SplitN(text, "x", n)
	var out [4]int64
	if len(parts) != n {
		return out, 0, fmt.Errorf("want %d components", n)
	}
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return out, 0, err
		}
		out[i] = v
	}
	return out, n, nil
}

func parseHexData(text string) ([]byte, error) {
	text = strings.TrimPrefix(text, "0x")
	if len(text)%2 != 0 {
		return nil, fmt.Errorf("odd length hex")
	}
	out := make([]byte, len(text)/2)
	for i := range out {
		var b byte
		if _, err := fmt.Sscanf(text[i*2:i*2+2], "%02x", &b); err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func dumpHexData(b []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hex[c>>4]
		out[2+i*2+1] = hex[c&0xf]
	}
	return string(out)
}

func parseFourCCText(text string) (uint32, error) {
	if strings.HasPrefix(text, "0x") {
		n, err := strconv.ParseUint(text[2:], 16, 32)
		return uint32(n), err
	}
	if len(text) != 4 {
		return 0, fmt.Errorf("4cc must be exactly 4 characters or 0x-prefixed hex")
	}
	return MakeFourCC(text[0], text[1], text[2], text[3]), nil
}

func parseUIntList(text, sep string) ([]uint32, error) {
	parts := splitNonEmpty(text, sep)
	out := make([]uint32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, uint32(n))
	}
	return out, nil
}

func parseSIntList(text, sep string) ([]int32, error) {
	parts := splitNonEmpty(text, sep)
	out := make([]int32, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 0, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, int32(n))
	}
	return out, nil
}

func splitNonEmpty(text, sep string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, sep)
}

func joinUInt32(items []uint32) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}

func joinInt32(items []int32) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}
