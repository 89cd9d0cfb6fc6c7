package docforge

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shade int

type badge struct{ label string }

func (b badge) String() string { return b.label }

type opaque struct{ n int }

func TestFormat(t *testing.T) {
	m := NewMap().Set("a", Int(1)).Set("b", String("x"))

	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"none", None(), ""},
		{"zero value", Value{}, ""},
		{"true", Bool(true), "Yes"},
		{"false", Bool(false), "No"},
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"float", Float(98.5), "98.5"},
		{"integral float", Float(3), "3.0"},
		{"zero float", Float(0), "0.0"},
		{"large float", Float(1e20), "1e+20"},
		{"tiny float", Float(0.00001), "1e-05"},
		{"nan", Float(math.NaN()), "NaN"},
		{"inf", Float(math.Inf(1)), "Infinity"},
		{"negative inf", Float(math.Inf(-1)), "-Infinity"},
		{"string trimmed", String("  hello \n"), "hello"},
		{"empty sequence", Seq(), ""},
		{"sequence of strings", Seq(String("Apple"), String("Orange"), String("Banana")), "Apple, Orange, Banana"},
		{"sequence skips none", Seq(Int(1), None(), Bool(true)), "1, Yes"},
		{"nested sequence", Seq(Seq(Int(1), Int(2)), Int(3)), "1, 2, 3"},
		{"timestamp", Time(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)), "2024-01-15T10:30:00Z"},
		{"map", MapValue(m), "a: 1, b: x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.value))
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"none", None(), false},
		{"true", Bool(true), true},
		{"false", Bool(false), false},
		{"zero int", Int(0), false},
		{"int", Int(-3), true},
		{"zero float", Float(0), false},
		{"float", Float(0.1), true},
		{"empty string", String(""), false},
		{"blank string", String("   "), false},
		{"string", String("no"), true},
		{"empty sequence", Seq(), false},
		{"sequence", Seq(None()), true},
		{"empty map", MapValue(nil), false},
		{"map", MapValue(NewMap().Set("k", None())), true},
		{"timestamp", Time(time.Time{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestCompare(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name string
		a, b Value
		op   CompareOp
		want bool
	}{
		{"int equal", Int(3), Int(3), OpEq, true},
		{"int float equal", Int(1), Float(1.0), OpEq, true},
		{"int float not equal", Int(1), Float(1.5), OpNe, true},
		{"int less", Int(16), Int(18), OpLt, true},
		{"int greater equal", Int(18), Int(18), OpGe, true},
		{"float less equal", Float(2.5), Int(3), OpLe, true},
		{"string equal", String("active"), String("active"), OpEq, true},
		{"string lexicographic", String("apple"), String("banana"), OpLt, true},
		{"string greater", String("b"), String("a"), OpGt, true},
		{"none equals none", None(), None(), OpEq, true},
		{"none not equal false", None(), Bool(false), OpEq, false},
		{"none not equal zero", None(), Int(0), OpEq, false},
		{"none ne string", None(), String(""), OpNe, true},
		{"bool equal", Bool(true), Bool(true), OpEq, true},
		{"bool not equal int", Bool(true), Int(1), OpEq, false},
		{"string vs number equality", String("1"), Int(1), OpEq, false},
		{"string vs number inequality", String("1"), Int(1), OpNe, true},
		{"string vs number ordering", String("10"), Int(20), OpLt, false},
		{"number vs string ordering", Int(20), String("10"), OpGt, false},
		{"bool ordering", Bool(true), Bool(false), OpGt, false},
		{"none ordering", None(), Int(1), OpLt, false},
		{"sequence ordering", Seq(Int(1)), Seq(Int(2)), OpLt, false},
		{"sequence equality", Seq(Int(1), String("a")), Seq(Float(1), String("a")), OpEq, true},
		{"sequence length mismatch", Seq(Int(1)), Seq(Int(1), Int(2)), OpEq, false},
		{"map equality ignores order", MapValue(NewMap().Set("a", Int(1)).Set("b", Int(2))), MapValue(NewMap().Set("b", Int(2)).Set("a", Int(1))), OpEq, true},
		{"timestamp equal", Time(t1), Time(t1.In(time.FixedZone("X", 3600))), OpEq, true},
		{"timestamp before", Time(t1), Time(t2), OpLt, true},
		{"timestamp vs string", Time(t1), String("2024"), OpGt, false},
		{"nan ordering", Float(math.NaN()), Int(1), OpLt, false},
		{"nan equality", Float(math.NaN()), Float(math.NaN()), OpEq, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b, tt.op))
		})
	}
}

func TestParseCompareOp(t *testing.T) {
	for _, text := range []string{"==", "!=", "<", "<=", ">", ">="} {
		op, ok := ParseCompareOp(text)
		require.True(t, ok, text)
		assert.Equal(t, text, op.String())
	}

	_, ok := ParseCompareOp("=")
	assert.False(t, ok)
	assert.Equal(t, "?", CompareOp(42).String())
}

func TestValueOf(t *testing.T) {
	when := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	var nilPtr *int
	big := uint64(math.MaxInt64) + 1

	tests := []struct {
		name  string
		input any
		kind  Kind
		want  string
	}{
		{"nil", nil, KindNone, ""},
		{"bool", true, KindBool, "Yes"},
		{"int", 7, KindInt, "7"},
		{"int32", int32(-2), KindInt, "-2"},
		{"uint8", uint8(200), KindInt, "200"},
		{"large uint64", big, KindFloat, "9.223372036854776e+18"},
		{"float32", float32(1.5), KindFloat, "1.5"},
		{"json integer", json.Number("12"), KindInt, "12"},
		{"json float", json.Number("1.25"), KindFloat, "1.25"},
		{"string", "text", KindString, "text"},
		{"bytes", []byte("raw"), KindString, "raw"},
		{"time", when, KindTimestamp, "2023-06-01T12:00:00Z"},
		{"time pointer", &when, KindTimestamp, "2023-06-01T12:00:00Z"},
		{"nil pointer", nilPtr, KindNone, ""},
		{"string slice", []string{"a", "b"}, KindSequence, "a, b"},
		{"any slice", []any{1, "x", nil}, KindSequence, "1, x"},
		{"array", [2]int{4, 5}, KindSequence, "4, 5"},
		{"generic map sorted", map[string]any{"b": 2, "a": 1}, KindMap, "a: 1, b: 2"},
		{"typed map sorted", map[string]int{"z": 26, "y": 25}, KindMap, "y: 25, z: 26"},
		{"named int", shade(2), KindInt, "2"},
		{"stringer", badge{label: "gold"}, KindString, "gold"},
		{"struct", opaque{n: 3}, KindString, "{3}"},
		{"value passthrough", Float(2.5), KindFloat, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValueOf(tt.input)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, Format(v))
		})
	}
}

type selfTree map[string]selfTree

func TestValueOfSelfReference(t *testing.T) {
	loop := map[string]any{"name": "loop"}
	loop["self"] = loop

	v := ValueOf(loop)
	m, ok := v.AsMap()
	require.True(t, ok)
	name, _ := m.Get("name")
	assert.Equal(t, "loop", Format(name))
	self, ok := m.Get("self")
	require.True(t, ok)
	assert.True(t, self.IsNone())

	seq := []any{"a", nil}
	seq[1] = seq
	items, ok := ValueOf(seq).AsSeq()
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.True(t, items[1].IsNone())

	var p any
	p = &p
	assert.True(t, ValueOf(p).IsNone())

	root := selfTree{}
	root["child"] = root
	tm, ok := ValueOf(root).AsMap()
	require.True(t, ok)
	child, _ := tm.Get("child")
	assert.True(t, child.IsNone())

	shared := map[string]any{"v": 1}
	both, ok := ValueOf(map[string]any{"a": shared, "b": shared}).AsMap()
	require.True(t, ok)
	a, _ := both.Get("a")
	b, _ := both.Get("b")
	assert.Equal(t, KindMap, a.Kind())
	assert.Equal(t, KindMap, b.Kind())
}

func TestRenderMapSelfReference(t *testing.T) {
	loop := map[string]any{"name": "loop"}
	loop["self"] = loop

	result, err := New(WithLogger(discardLogger())).RenderMap("{{m.name}}|{{m.self.name}}", map[string]any{"m": loop})
	require.NoError(t, err)
	assert.Equal(t, "loop|", result.Output)
	assert.Equal(t, []string{"m.self.name"}, result.Unresolved)
}

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := NewMap().Set("z", Int(1)).Set("a", Int(2)).Set("z", Int(3))

	assert.Equal(t, []string{"z", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	v, ok := m.Get("z")
	require.True(t, ok)
	assert.Equal(t, "3", Format(v))

	var nilMap *Map
	_, ok = nilMap.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, nilMap.Len())
}

func TestValueAccessors(t *testing.T) {
	f, ok := Int(4).AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 4.0, f)

	_, ok = String("4").AsFloat()
	assert.False(t, ok)

	items, ok := Seq(Int(1), Int(2)).AsSeq()
	require.True(t, ok)
	items[0] = Int(99)
	again, _ := Seq(Int(1), Int(2)).AsSeq()
	assert.Equal(t, "1", Format(again[0]))

	assert.Equal(t, "sequence", KindSequence.String())
	assert.Equal(t, "Yes", Bool(true).String())
}
