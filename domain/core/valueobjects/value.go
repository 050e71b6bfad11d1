package valueobjects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value union is populated
type Kind uint8

const (
	KindAbsent Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
	KindList
)

// String returns the kind name used in logs and durable records
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindList:
		return "list"
	default:
		return "absent"
	}
}

// ParseKind is the inverse of Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	case "text":
		return KindText, nil
	case "list":
		return KindList, nil
	case "absent", "":
		return KindAbsent, nil
	}
	return KindAbsent, fmt.Errorf("unknown value kind %q", s)
}

// Value is an attribute value. It is immutable; list accessors return copies.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	list []Value
}

func Int(v int64) Value     { return Value{kind: KindInt, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func Text(v string) Value   { return Value{kind: KindText, s: v} }
func Absent() Value         { return Value{} }

// List builds a list value. The elements are copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// FromAny converts loosely typed input (decoded JSON or YAML) into a Value.
func FromAny(v interface{}) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint64:
		return fromUint(t)
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return parseNumber(t.String())
	case []interface{}:
		items := make([]Value, 0, len(t))
		for idx, item := range t {
			iv, err := FromAny(item)
			if err != nil {
				return Absent(), fmt.Errorf("list element %d: %w", idx, err)
			}
			items = append(items, iv)
		}
		return Value{kind: KindList, list: items}, nil
	case []string:
		items := make([]Value, len(t))
		for idx, item := range t {
			items[idx] = Text(item)
		}
		return Value{kind: KindList, list: items}, nil
	}
	return Absent(), fmt.Errorf("unsupported attribute value type %T", v)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Absent(), fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// MustFromAny is FromAny for literals known to be valid
func MustFromAny(v interface{}) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Kind returns the populated member
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether no value is held
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsInt returns the integer member
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float member
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean member
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsText returns the text member
func (v Value) AsText() (string, bool) { return v.s, v.kind == KindText }

// AsList returns a copy of the list member
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp, true
}

func (v Value) numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Equal compares two values. Int and float compare by numeric value; any
// other pair of different kinds is unequal.
func (v Value) Equal(other Value) bool {
	if v.kind == KindInt && other.kind == KindInt {
		return v.i == other.i
	}
	if a, ok := v.numeric(); ok {
		if b, ok := other.numeric(); ok {
			return a == b
		}
		return false
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindBool:
		return v.b == other.b
	case KindText:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders v against other. ok is false when the pair has no natural
// order (mismatched kinds, absent values, lists with incomparable elements).
func (v Value) Compare(other Value) (result int, ok bool) {
	if v.kind == KindInt && other.kind == KindInt {
		return compareInts(v.i, other.i), true
	}
	if a, isNum := v.numeric(); isNum {
		b, otherNum := other.numeric()
		if !otherNum || math.IsNaN(a) || math.IsNaN(b) {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	}
	if v.kind != other.kind {
		return 0, false
	}
	switch v.kind {
	case KindText:
		return strings.Compare(v.s, other.s), true
	case KindBool:
		switch {
		case v.b == other.b:
			return 0, true
		case !v.b:
			return -1, true
		}
		return 1, true
	case KindList:
		for i := 0; i < len(v.list) && i < len(other.list); i++ {
			c, ok := v.list[i].Compare(other.list[i])
			if !ok {
				return 0, false
			}
			if c != 0 {
				return c, true
			}
		}
		return compareInts(int64(len(v.list)), int64(len(other.list))), true
	}
	return 0, false
}

// Contains reports membership of elem in v. Lists test element equality;
// text tests substring presence when elem is text too.
func (v Value) Contains(elem Value) bool {
	switch v.kind {
	case KindList:
		for _, item := range v.list {
			if item.Equal(elem) {
				return true
			}
		}
	case KindText:
		if s, ok := elem.AsText(); ok {
			return strings.Contains(v.s, s)
		}
	}
	return false
}

// Interface returns the value as a plain Go value (int64, float64, bool,
// string, []interface{} or nil).
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindText:
		return v.s
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// String renders the value for logs
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindText:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<absent>"
}

// MarshalJSON writes the natural JSON form. Floats always carry a fraction or
// exponent so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v.f)
		}
		return []byte(formatFloat(v.f)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindText:
		return json.Marshal(v.s)
	case KindList:
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty attribute value")
	}
	switch data[0] {
	case 'n':
		*v = Absent()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		var items []Value
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Value{}
		}
		*v = Value{kind: KindList, list: items}
		return nil
	case '{':
		return fmt.Errorf("objects are not valid attribute values")
	}
	parsed, err := parseNumber(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Absent(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Attributes is an attribute map keyed by attribute name
type Attributes map[string]Value

// Clone returns an independent copy
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AttributesFromMap converts loosely typed input into Attributes
func AttributesFromMap(m map[string]interface{}) (Attributes, error) {
	out := make(Attributes, len(m))
	for k, raw := range m {
		v, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
