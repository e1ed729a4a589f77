// Package value implements the cell value model shared by the query
// engine and the function sandbox: a small tagged union (null, bool,
// number, text, array, object) with the coercion and comparison rules
// both engines agree on.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrReadOnly is returned when a frozen value is mutated through any
	// reference reached from it.
	ErrReadOnly = errors.New("read-only value cannot be modified")

	// ErrFunctionValue is returned when a Go function leaks into value
	// construction. Callables must never be representable as data.
	ErrFunctionValue = errors.New("function values are not allowed")

	// ErrNotIndexable is returned for index access on non-arrays.
	ErrNotIndexable = errors.New("value is not indexable")

	// ErrIndexRange is returned for an out-of-range array index.
	ErrIndexRange = errors.New("array index out of range")
)

// Kind identifies which member of the union a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a single cell value. The zero Value is Null.
//
// Values are cheap to copy; arrays and objects share their backing
// storage, so mutation goes through SetIndex/SetField which honor the
// frozen flag. The frozen flag propagates on every access, making a
// frozen root transitively read-only.
type Value struct {
	kind   Kind
	num    float64
	text   string
	b      bool
	arr    []Value
	obj    *Object
	frozen bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps an IEEE-754 double.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Array wraps a slice of values. The slice is not copied.
func Array(elems ...Value) Value { return Value{kind: KindArray, arr: elems} }

// ObjectValue wraps an ordered object.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind returns the union tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Frozen reports whether the value is read-only.
func (v Value) Frozen() bool { return v.frozen }

// Float returns the numeric payload (0 for non-numbers).
func (v Value) Float() float64 {
	if v.kind == KindNumber {
		return v.num
	}
	return 0
}

// Str returns the text payload ("" for non-text).
func (v Value) Str() string {
	if v.kind == KindText {
		return v.text
	}
	return ""
}

// True returns the boolean payload (false for non-bools).
func (v Value) True() bool { return v.kind == KindBool && v.b }

// Object returns the object payload (nil for non-objects).
func (v Value) Object() *Object {
	if v.kind == KindObject {
		return v.obj
	}
	return nil
}

// Len returns the element count for arrays, the key count for objects
// and the byte length for text; 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	case KindText:
		return len(v.text)
	default:
		return 0
	}
}

// Index returns the i-th array element with the frozen flag carried over.
func (v Value) Index(i int) (Value, error) {
	if v.kind != KindArray {
		return Null(), ErrNotIndexable
	}
	if i < 0 || i >= len(v.arr) {
		return Null(), ErrIndexRange
	}
	e := v.arr[i]
	if v.frozen {
		e.frozen = true
	}
	return e, nil
}

// SetIndex replaces the i-th array element, rejecting frozen arrays.
func (v Value) SetIndex(i int, e Value) error {
	if v.kind != KindArray {
		return ErrNotIndexable
	}
	if v.frozen {
		return ErrReadOnly
	}
	if i < 0 || i >= len(v.arr) {
		return ErrIndexRange
	}
	v.arr[i] = e
	return nil
}

// Elems returns the array elements with the frozen flag carried over.
// The returned slice is freshly allocated when the array is frozen.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	if !v.frozen {
		return v.arr
	}
	out := make([]Value, len(v.arr))
	for i, e := range v.arr {
		e.frozen = true
		out[i] = e
	}
	return out
}

// Field returns the named object field with the frozen flag carried over.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	f, ok := v.obj.Get(name)
	if !ok {
		return Null(), false
	}
	if v.frozen {
		f.frozen = true
	}
	return f, true
}

// SetField sets the named object field, rejecting frozen objects.
func (v Value) SetField(name string, f Value) error {
	if v.kind != KindObject {
		return fmt.Errorf("cannot set field %q on %s", name, v.kind)
	}
	if v.frozen || v.obj.frozen {
		return ErrReadOnly
	}
	v.obj.Set(name, f)
	return nil
}

// Freeze returns a read-only view of the value. The underlying storage
// is shared; the flag propagates lazily through Index/Field/Elems, so
// every nested value reached from the result is read-only too.
func (v Value) Freeze() Value {
	v.frozen = true
	return v
}

// FromGo converts plain Go data (the shapes produced by encoding/json
// plus Go ints) into a Value. Funcs and channels anywhere in the input
// are rejected with ErrFunctionValue.
func FromGo(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case string:
		return Text(x), nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			v, err := FromGo(e)
			if err != nil {
				return Null(), err
			}
			elems[i] = v
		}
		return Array(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			v, err := FromGo(x[k])
			if err != nil {
				return Null(), err
			}
			o.Set(k, v)
		}
		return ObjectValue(o), nil
	case Value:
		return x, nil
	case *Object:
		return ObjectValue(x), nil
	default:
		if rv := reflect.ValueOf(in); rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan {
			return Null(), ErrFunctionValue
		}
		return Null(), fmt.Errorf("unsupported value type %T", in)
	}
}

// ToGo converts a Value back into plain Go data.
func (v Value) ToGo() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToGo()
		}
		return out
	case KindObject:
		return v.obj.ToGo()
	default:
		return nil
	}
}

// Display renders a value the way result grids show it: null as the
// empty string, integral numbers without a fraction, composites as JSON.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.num)
	case KindText:
		return v.text
	default:
		b, err := json.Marshal(v.ToGo())
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// AsNumber reports whether the value coerces to a number: numbers
// directly, text only when the whole string parses as a float.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		s := strings.TrimSpace(v.text)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ParseBoolLiteral recognizes the accepted boolean literal forms,
// case-insensitively: true/false, 1/0, yes/no, on/off, t/f, y/n.
func ParseBoolLiteral(v Value) (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindNumber:
		if v.num == 1 {
			return true, true
		}
		if v.num == 0 {
			return false, true
		}
		return false, false
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.text)) {
		case "true", "1", "yes", "on", "t", "y":
			return true, true
		case "false", "0", "no", "off", "f", "n":
			return false, true
		}
	}
	return false, false
}

// LooseEqual implements the equality used by = and != filters: null
// matches only null, numeric strings compare equal to numbers, and
// string comparison is case-insensitive.
func LooseEqual(a, b Value) bool {
	if a.kind == KindNull || b.kind == KindNull {
		return a.kind == KindNull && b.kind == KindNull
	}
	if fa, ok := a.AsNumber(); ok {
		if fb, ok := b.AsNumber(); ok {
			return fa == fb
		}
	}
	if a.kind == KindBool || b.kind == KindBool {
		ba, oka := ParseBoolLiteral(a)
		bb, okb := ParseBoolLiteral(b)
		if oka && okb {
			return ba == bb
		}
	}
	return strings.EqualFold(a.Display(), b.Display())
}

// Compare orders two values for sorting: null sorts before everything,
// then numbers by IEEE ordering, then everything else by ordinal text.
// Stable across kinds so mixed columns still sort deterministically.
func Compare(a, b Value) int {
	an, bn := a.kind == KindNull, b.kind == KindNull
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if fa, oka := a.AsNumber(); oka {
		if fb, okb := b.AsNumber(); okb {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a.Display(), b.Display())
}

// CompareOrdered implements the strict ordering used by </>/<=/>=
// filters: both operands must coerce to the same comparable kind
// (number or text), otherwise ok is false and the predicate is false.
func CompareOrdered(a, b Value) (cmp int, ok bool) {
	fa, oka := a.AsNumber()
	fb, okb := b.AsNumber()
	if oka && okb {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindText && b.kind == KindText {
		return strings.Compare(a.text, b.text), true
	}
	return 0, false
}

// Truthy reports the value's truthiness inside function bodies: null,
// false, 0 and "" are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindText:
		return v.text != ""
	default:
		return true
	}
}

// Clone returns a deep, unfrozen copy of the value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		elems := make([]Value, len(v.arr))
		for i, e := range v.arr {
			elems[i] = e.Clone()
		}
		return Array(elems...)
	case KindObject:
		return ObjectValue(v.obj.Clone())
	default:
		v.frozen = false
		return v
	}
}
