// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package prop_test

import (
	"testing"

	"flowmesh.dev/fsession/prop"
)

func TestSetNoOpOnEqualValue(t *testing.T) {
	var m prop.Map
	k := prop.FourCCKey(prop.PropWidth)

	if !m.Set(k, prop.NewUInt(1280)) {
		t.Fatalf("first Set should report change")
	}
	if m.Set(k, prop.NewUInt(1280)) {
		t.Fatalf("Set with equal value must be a no-op (spec §4.1 item 4)")
	}
	if m.Set(k, prop.NewUInt(1920)) != true {
		t.Fatalf("Set with a different value must report change")
	}
	v, ok := m.Get(k)
	if !ok || v.UInt() != 1920 {
		t.Fatalf("Get after Set: got %+v, ok=%v", v, ok)
	}
}

func TestMapInsertionOrderPreserved(t *testing.T) {
	var m prop.Map
	m.Set(prop.NameKey("c"), prop.NewSInt(3))
	m.Set(prop.NameKey("a"), prop.NewSInt(1))
	m.Set(prop.NameKey("b"), prop.NewSInt(2))

	var order []string
	m.Enumerate(func(k prop.Key, v prop.Value) bool {
		order = append(order, k.Name)
		return true
	})
	want := []string{"c", "a", "b"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("order[%d] = %q, want %q (full: %v)", i, order[i], w, order)
		}
	}
}

func TestRemove(t *testing.T) {
	var m prop.Map
	k := prop.NameKey("x")
	m.Set(k, prop.NewBool(true))
	if !m.Remove(k) {
		t.Fatalf("Remove should report the key was present")
	}
	if m.Has(k) {
		t.Fatalf("key should be gone after Remove")
	}
	if m.Remove(k) {
		t.Fatalf("second Remove should report false")
	}
}

func TestEqualTypeAware(t *testing.T) {
	if prop.Equal(prop.NewUInt(1), prop.NewSInt(1)) {
		t.Fatalf("values of different types must not be equal")
	}
	if !prop.Equal(prop.NewString("x"), prop.NewString("x")) {
		t.Fatalf("equal strings must compare equal")
	}
	if prop.Equal(prop.NewData([]byte{1, 2}), prop.NewData([]byte{1, 3})) {
		t.Fatalf("different data must not compare equal")
	}
}

func TestFractionEqualityComparesStoredPair(t *testing.T) {
	// 1/2 and 2/4 are numerically equal but stored differently; spec §4.1
	// requires comparing the stored numerator/denominator pair, not the
	// reduced value.
	a := prop.NewFraction(1, 2)
	b := prop.NewFraction(2, 4)
	if prop.Equal(a, b) {
		t.Fatalf("unreduced fractions with different stored pairs must not be equal")
	}
	c := prop.NewFraction(1, 2)
	if !prop.Equal(a, c) {
		t.Fatalf("identical stored pairs must be equal")
	}
}

func TestParseDumpRoundTrip(t *testing.T) {
	cases := []prop.Value{
		prop.NewSInt(-42),
		prop.NewUInt(42),
		prop.NewLSInt(-1 << 40),
		prop.NewLUInt(1 << 40),
		prop.NewBool(true),
		prop.NewBool(false),
		prop.NewFraction(25, 1),
		prop.NewFraction64(30000, 1001),
		prop.NewVec2i(1920, 1080),
		prop.NewFourCC(prop.MakeFourCC('a', 'v', 'c', '1')),
		prop.NewString("hello world"),
		prop.NewData([]byte{0xde, 0xad, 0xbe, 0xef}),
		prop.NewStringList([]string{"a", "b", "c"}),
		prop.NewUIntList([]uint32{1, 2, 3}),
	}
	for _, v := range cases {
		text := prop.Dump(v, nil)
		got, err := prop.ParseTyped(v.Type(), text, nil, ",")
		if err != nil {
			t.Fatalf("ParseTyped(%s, %q): %v", v.Type(), text, err)
		}
		if !prop.Equal(got, v) {
			t.Fatalf("round trip mismatch for %s: dumped %q, reparsed %+v, want %+v", v.Type(), text, got, v)
		}
	}
}

func TestParseTypedInvalidArg(t *testing.T) {
	if _, err := prop.ParseTyped(prop.TUInt, "not-a-number", nil, ","); err == nil {
		t.Fatalf("expected parse error for malformed uint")
	}
}

func TestFourCCRoundTrip(t *testing.T) {
	code := prop.MakeFourCC('m', 'p', '4', 'a')
	s := prop.FourCCString(code)
	if s != "mp4a" {
		t.Fatalf("FourCCString: got %q, want mp4a", s)
	}
}
