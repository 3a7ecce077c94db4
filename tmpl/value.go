package tmpl

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Kind identifies the type held by a [Value].
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "absent"
	}
}

// Value is a scalar field value or the explicit absent sentinel.
// The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  float64
	bit  bool
}

// Absent is the value of a field or path that does not exist.
var Absent Value

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, bit: b} }

// ParseScalar decodes raw as a YAML scalar so that numbers and booleans keep
// their type. Anything else, including YAML collections, is returned as the
// literal text.
func ParseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	switch v.(type) {
	case bool, int, int64, uint64, float64:
		return v
	default:
		return raw
	}
}

// ValueOf converts a Go scalar to a Value. It reports false for types other
// than strings, booleans, integers, floats, nil and Value.
func ValueOf(v any) (Value, bool) {
	switch v := v.(type) {
	case nil:
		return Absent, true
	case Value:
		return v, true
	case string:
		return StringValue(v), true
	case bool:
		return BoolValue(v), true
	case int:
		return NumberValue(float64(v)), true
	case int8:
		return NumberValue(float64(v)), true
	case int16:
		return NumberValue(float64(v)), true
	case int32:
		return NumberValue(float64(v)), true
	case int64:
		return NumberValue(float64(v)), true
	case uint:
		return NumberValue(float64(v)), true
	case uint8:
		return NumberValue(float64(v)), true
	case uint16:
		return NumberValue(float64(v)), true
	case uint32:
		return NumberValue(float64(v)), true
	case uint64:
		return NumberValue(float64(v)), true
	case float32:
		return NumberValue(float64(v)), true
	case float64:
		return NumberValue(v), true
	default:
		return Absent, false
	}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v is the absent sentinel.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Text returns the textual form emitted into CSS. Absent values are empty
// and numbers use the shortest decimal form that round-trips.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.bit)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Text() }

// Float returns the numeric interpretation of v. Strings holding a finite
// decimal number are numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, !math.IsNaN(v.num) && !math.IsInf(v.num, 0)
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// Truthy reports whether v satisfies a bare condition. Absent, "", "0",
// "false", zero and false are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		s := strings.TrimSpace(v.str)

		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.bit
	default:
		return false
	}
}

// Equal reports whether v and o compare equal. Two numeric values compare
// as numbers; anything else compares by text.
func (v Value) Equal(o Value) bool {
	if a, ok := v.Float(); ok {
		if b, ok := o.Float(); ok {
			return a == b
		}
	}

	return v.Text() == o.Text()
}

func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}

	if f == 0 {
		return "0"
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
