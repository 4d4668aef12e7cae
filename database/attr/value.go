package attr

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Errors.
var (
	ErrUnsupportedType = errors.New("attr: unsupported value type")
	ErrNotAnObject     = errors.New("attr: data is not an object")
	ErrInvalidData     = errors.New("attr: invalid data")
)

// Kind is the type of a Value.
type Kind uint8

// Value Kinds.
const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a JSON compatible value. The zero value is null.
// Numbers keep their textual representation.
type Value struct {
	kind Kind
	b    bool
	s    string
	arr  []Value
	obj  *Map
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{}
}

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	return Value{kind: Bool, b: b}
}

// NumberValue returns a number value from its textual representation.
func NumberValue(text json.Number) Value {
	return Value{kind: Number, s: string(text)}
}

// IntValue returns a number value for an integer.
func IntValue(n int64) Value {
	return Value{kind: Number, s: strconv.FormatInt(n, 10)}
}

// UintValue returns a number value for an unsigned integer.
func UintValue(n uint64) Value {
	return Value{kind: Number, s: strconv.FormatUint(n, 10)}
}

// FloatValue returns a number value for a float.
func FloatValue(f float64) Value {
	return Value{kind: Number, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{kind: String, s: s}
}

// ArrayValue returns an array value holding the given items.
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ObjectValue returns an object value. A nil map is stored as an empty one.
func ObjectValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: Object, obj: m}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull returns whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == Null
}

// Bool returns the boolean and whether the value is a boolean.
func (v Value) Bool() (b bool, ok bool) {
	return v.b, v.kind == Bool
}

// Str returns the string and whether the value is a string.
func (v Value) Str() (s string, ok bool) {
	return v.s, v.kind == String
}

// Number returns the number text and whether the value is a number.
func (v Value) Number() (n json.Number, ok bool) {
	return json.Number(v.s), v.kind == Number
}

// Int64 returns the value as an integer.
func (v Value) Int64() (int64, error) {
	if v.kind != Number {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidData, v.kind)
	}
	return strconv.ParseInt(v.s, 10, 64)
}

// Float64 returns the value as a float.
func (v Value) Float64() (float64, error) {
	if v.kind != Number {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidData, v.kind)
	}
	return strconv.ParseFloat(v.s, 64)
}

// Items returns the items of an array value.
func (v Value) Items() []Value {
	return v.arr
}

// Object returns the map of an object value, or nil.
func (v Value) Object() *Map {
	return v.obj
}

// String returns the value as a plain string: strings are returned as is,
// everything else as JSON.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Number:
		return v.s
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return "<" + err.Error() + ">"
		}
		return string(data)
	}
}

// Equal returns whether both values are equal. Numbers are compared by value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}

	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == other.b
	case String:
		return v.s == other.s
	case Number:
		if v.s == other.s {
			return true
		}
		a, errA := v.Int64()
		b, errB := other.Int64()
		if errA == nil && errB == nil {
			return a == b
		}
		fa, errA := v.Float64()
		fb, errB := other.Float64()
		return errA == nil && errB == nil && fa == fb
	case Array:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.obj.Equal(other.obj)
	default:
		return false
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Clone()
		}
		return Value{kind: Array, arr: items}
	case Object:
		return Value{kind: Object, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Interface returns the value as plain Go data: nil, bool, int64, float64,
// string, []interface{} or map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, err := v.Float64()
		if err != nil {
			return v.s
		}
		return f
	case String:
		return v.s
	case Array:
		items := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Interface()
		}
		return items
	case Object:
		return v.obj.Interface()
	default:
		return nil
	}
}

// FromInterface converts plain Go data into a Value.
// Plain maps are converted with their keys sorted.
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return NullValue(), nil
		}
		return *t, nil
	case *Map:
		return ObjectValue(t), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case []byte:
		return StringValue(string(t)), nil
	case json.Number:
		return NumberValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int8:
		return IntValue(int64(t)), nil
	case int16:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint:
		return UintValue(uint64(t)), nil
	case uint8:
		return UintValue(uint64(t)), nil
	case uint16:
		return UintValue(uint64(t)), nil
	case uint32:
		return UintValue(uint64(t)), nil
	case uint64:
		return UintValue(t), nil
	case float32:
		return floatValue(float64(t))
	case float64:
		return floatValue(t)
	case []Value:
		return ArrayValue(t...), nil
	case []string:
		items := make([]Value, 0, len(t))
		for _, s := range t {
			items = append(items, StringValue(s))
		}
		return ArrayValue(items...), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return ArrayValue(items...), nil
	case map[string]interface{}:
		m, err := MapFromInterface(t)
		if err != nil {
			return Value{}, err
		}
		return ObjectValue(m), nil
	case map[string]string:
		m := NewMap()
		keys := maps.Keys(t)
		slices.Sort(keys)
		for _, key := range keys {
			m.Set(key, StringValue(t[key]))
		}
		return ObjectValue(m), nil
	case map[interface{}]interface{}:
		plain := make(map[string]interface{}, len(t))
		for key, val := range t {
			plain[fmt.Sprint(key)] = val
		}
		return FromInterface(plain)
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

func floatValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v is not a valid number", ErrInvalidData, f)
	}
	return FloatValue(f), nil
}

// numberToInterface returns the best fitting plain number for a codec.
func (v Value) numberToInterface() (interface{}, error) {
	if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return n, nil
	}
	if n, err := strconv.ParseUint(v.s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed number %q", ErrInvalidData, v.s)
	}
	return f, nil
}
