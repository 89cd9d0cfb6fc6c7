package docforge

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindTimestamp
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindTimestamp:
		return "timestamp"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the runtime representation of every datum flowing through a
// template or condition. The zero Value is None.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	t    time.Time
	m    *Map
}

func None() Value              { return Value{} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value   { return Value{kind: KindTimestamp, t: t} }
func Seq(items ...Value) Value { return Value{kind: KindSequence, seq: append([]Value(nil), items...)} }
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindTimestamp
}
func (v Value) AsMap() (*Map, bool) { return v.m, v.kind == KindMap }

// AsFloat reports the numeric value of an Int or Float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// AsSeq returns a copy of the sequence elements.
func (v Value) AsSeq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return append([]Value(nil), v.seq...), true
}

func (v Value) isNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// String implements fmt.Stringer using Format.
func (v Value) String() string { return Format(v) }

// Map is an insertion-ordered mapping from string keys to Values.
type Map struct {
	keys   []string
	values map[string]Value
}

func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores value under key, keeping the original position of an existing key.
func (m *Map) Set(key string, value Value) *Map {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Map) clone() *Map {
	c := &Map{keys: m.Keys(), values: make(map[string]Value, m.Len())}
	if m != nil {
		for k, v := range m.values {
			c.values[k] = v
		}
	}
	return c
}

// Format converts a Value to its display string. It never fails.
func Format(v Value) string {
	switch v.kind {
	case KindNone:
		return ""
	case KindBool:
		if v.b {
			return "Yes"
		}
		return "No"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return strings.TrimSpace(v.s)
	case KindSequence:
		parts := make([]string, 0, len(v.seq))
		for _, item := range v.seq {
			if item.IsNone() {
				continue
			}
			parts = append(parts, Format(item))
		}
		return strings.Join(parts, ", ")
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case KindMap:
		parts := make([]string, 0, v.m.Len())
		for _, k := range v.m.keys {
			parts = append(parts, k+": "+Format(v.m.values[k]))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Truthy reports whether a Value counts as true in a boolean context.
func Truthy(v Value) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return strings.TrimSpace(v.s) != ""
	case KindSequence:
		return len(v.seq) > 0
	case KindMap:
		return v.m.Len() > 0
	case KindTimestamp:
		return true
	}
	return false
}

// CompareOp is one of the six comparison operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var compareOpText = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (op CompareOp) String() string {
	if op < OpEq || op > OpGe {
		return "?"
	}
	return compareOpText[op]
}

// ParseCompareOp maps operator text to a CompareOp.
func ParseCompareOp(s string) (CompareOp, bool) {
	for i, text := range compareOpText {
		if text == s {
			return CompareOp(i), true
		}
	}
	return 0, false
}

// Compare applies op to a and b. Ordering between incompatible kinds is false.
func Compare(a, b Value, op CompareOp) bool {
	switch op {
	case OpEq:
		return equal(a, b)
	case OpNe:
		return !equal(a, b)
	}

	c, ok := order(a, b)
	if !ok {
		return false
	}
	switch op {
	case OpLt:
		return c < 0
	case OpLe:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGe:
		return c >= 0
	}
	return false
}

func equal(a, b Value) bool {
	if a.isNumeric() && b.isNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindTimestamp:
		return a.t.Equal(b.t)
	case KindSequence:
		if len(a.seq) != len(b.seq) {
			return false
		}
		for i := range a.seq {
			if !equal(a.seq[i], b.seq[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.keys {
			bv, ok := b.m.values[k]
			if !ok || !equal(a.m.values[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// order returns -1, 0 or 1 for comparable pairs.
func order(a, b Value) (int, bool) {
	switch {
	case a.isNumeric() && b.isNumeric():
		if a.kind == KindInt && b.kind == KindInt {
			return cmp3(a.i < b.i, a.i > b.i), true
		}
		af, _ := a.AsFloat()
		bf, _ := b.AsFloat()
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, false
		}
		return cmp3(af < bf, af > bf), true
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.s, b.s), true
	case a.kind == KindTimestamp && b.kind == KindTimestamp:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// ValueOf maps a native Go value into the Value model. Unknown shapes fall
// back to their fmt representation as a String. A map, slice or pointer that
// contains itself converts to None at the point where it repeats.
func ValueOf(x any) Value {
	c := converter{active: make(map[visitKey]bool)}
	return c.value(x)
}

// visitKey identifies a map, slice or pointer currently being converted.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// converter tracks the containers on the current conversion path. Shared
// containers that are not ancestors of themselves convert normally.
type converter struct {
	active map[visitKey]bool
}

// enter marks rv as in progress. It reports false when rv is already on the
// conversion path.
func (c *converter) enter(rv reflect.Value) (visitKey, bool) {
	key := visitKey{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if c.active[key] {
		return key, false
	}
	c.active[key] = true
	return key, true
}

func (c *converter) value(x any) Value {
	switch v := x.(type) {
	case nil:
		return None()
	case Value:
		return v
	case *Map:
		return MapValue(v)
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return uintValue(v)
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		if f, err := v.Float64(); err == nil {
			return Float(f)
		}
		return String(v.String())
	case string:
		return String(v)
	case []byte:
		return String(string(v))
	case time.Time:
		return Time(v)
	case *time.Time:
		if v == nil {
			return None()
		}
		return Time(*v)
	case []any:
		if v == nil {
			return Seq()
		}
		key, ok := c.enter(reflect.ValueOf(v))
		if !ok {
			return None()
		}
		defer delete(c.active, key)
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = c.value(item)
		}
		return Value{kind: KindSequence, seq: items}
	case map[string]any:
		if v == nil {
			return MapValue(NewMap())
		}
		key, ok := c.enter(reflect.ValueOf(v))
		if !ok {
			return None()
		}
		defer delete(c.active, key)
		m := NewMap()
		for _, k := range sortedKeys(v) {
			m.Set(k, c.value(v[k]))
		}
		return MapValue(m)
	}
	return c.reflectValue(x)
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func (c *converter) reflectValue(x any) Value {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return None()
		}
		if rv.Kind() == reflect.Pointer {
			key, ok := c.enter(rv)
			if !ok {
				return None()
			}
			defer delete(c.active, key)
		}
		return c.value(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return Seq()
			}
			key, ok := c.enter(rv)
			if !ok {
				return None()
			}
			defer delete(c.active, key)
		}
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = c.value(rv.Index(i).Interface())
		}
		return Value{kind: KindSequence, seq: items}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return MapValue(NewMap())
		}
		key, ok := c.enter(rv)
		if !ok {
			return None()
		}
		defer delete(c.active, key)
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			m.Set(k, c.value(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()))
		}
		return MapValue(m)
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	}
	if s, ok := x.(fmt.Stringer); ok {
		return String(s.String())
	}
	return String(fmt.Sprint(x))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
