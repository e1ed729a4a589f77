package sandbox

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/kartikbazzad/gridbase/value"
)

// builtinFn is the shape of every library function. Builtins receive
// the running interpreter so array helpers can charge fuel per element.
type builtinFn func(in *interp, args []value.Value) (value.Value, error)

var builtinConstants = map[string]value.Value{
	"PI": value.Number(math.Pi),
	"E":  value.Number(math.E),
}

// builtins is the complete callable surface of the sandbox. There is no
// lambda support: the collection helpers take a field name instead of a
// callback, which keeps every call's cost proportional to its input.
var builtins = map[string]builtinFn{
	// math
	"abs":    math1(math.Abs),
	"ceil":   math1(math.Ceil),
	"floor":  math1(math.Floor),
	"sqrt":   math1(math.Sqrt),
	"sin":    math1(math.Sin),
	"cos":    math1(math.Cos),
	"tan":    math1(math.Tan),
	"round":  builtinRound,
	"pow":    builtinPow,
	"max":    builtinMax,
	"min":    builtinMin,
	"random": builtinRandom,

	// arrays
	"count":   builtinCount,
	"sum":     builtinSum,
	"avg":     builtinAvg,
	"map":     builtinMap,
	"filter":  builtinFilter,
	"groupBy": builtinGroupBy,
	"unique":  builtinUnique,
	"sortBy":  builtinSortBy,
	"first":   builtinFirst,
	"last":    builtinLast,
	"slice":   builtinSlice,
	"join":    builtinJoin,
	"push":    builtinPush,
	"keys":    builtinKeys,
	"values":  builtinValues,

	// strings
	"toLowerCase": str1(strings.ToLower),
	"toUpperCase": str1(strings.ToUpper),
	"trim":        str1(strings.TrimSpace),
	"split":       builtinSplit,
	"includes":    builtinIncludes,
	"startsWith":  strPred(strings.HasPrefix),
	"endsWith":    strPred(strings.HasSuffix),
	"replace":     builtinReplace,
	"substring":   builtinSubstring,
	"indexOf":     builtinIndexOf,
	"length":      builtinLength,

	// json
	"parse":     builtinParse,
	"stringify": builtinStringify,

	// predicates
	"isNumber":    kindPred(value.KindNumber),
	"isString":    kindPred(value.KindText),
	"isBoolean":   kindPred(value.KindBool),
	"isArray":     kindPred(value.KindArray),
	"isObject":    kindPred(value.KindObject),
	"isNull":      kindPred(value.KindNull),
	"isUndefined": kindPred(value.KindNull),
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null()
}

func math1(f func(float64) float64) builtinFn {
	return func(_ *interp, args []value.Value) (value.Value, error) {
		x, ok := arg(args, 0).AsNumber()
		if !ok {
			return value.Null(), nil
		}
		return value.Number(f(x)), nil
	}
}

func builtinRound(_ *interp, args []value.Value) (value.Value, error) {
	x, ok := arg(args, 0).AsNumber()
	if !ok {
		return value.Null(), nil
	}
	if d, ok := arg(args, 1).AsNumber(); ok && d > 0 {
		scale := math.Pow(10, math.Trunc(d))
		return value.Number(math.Round(x*scale) / scale), nil
	}
	return value.Number(math.Round(x)), nil
}

func builtinPow(_ *interp, args []value.Value) (value.Value, error) {
	x, xok := arg(args, 0).AsNumber()
	y, yok := arg(args, 1).AsNumber()
	if !xok || !yok {
		return value.Null(), nil
	}
	return value.Number(math.Pow(x, y)), nil
}

func builtinMax(_ *interp, args []value.Value) (value.Value, error) {
	return extreme(args, func(a, b float64) bool { return a > b })
}

func builtinMin(_ *interp, args []value.Value) (value.Value, error) {
	return extreme(args, func(a, b float64) bool { return a < b })
}

// extreme handles both calling styles: max(a, b, ...) over scalars and
// max(arr) over an array argument.
func extreme(args []value.Value, better func(a, b float64) bool) (value.Value, error) {
	vals := args
	if len(args) == 1 && args[0].Kind() == value.KindArray {
		vals = args[0].Elems()
	}
	best, found := 0.0, false
	for _, v := range vals {
		f, ok := v.AsNumber()
		if !ok {
			continue
		}
		if !found || better(f, best) {
			best, found = f, true
		}
	}
	if !found {
		return value.Null(), nil
	}
	return value.Number(best), nil
}

func builtinRandom(_ *interp, args []value.Value) (value.Value, error) {
	return value.Number(rand.Float64()), nil
}

func elemsOf(v value.Value) []value.Value {
	if v.Kind() == value.KindArray {
		return v.Elems()
	}
	return nil
}

// pick resolves the per-element operand for the collection helpers: the
// element itself with no field name, otherwise element[field].
func pick(el value.Value, field value.Value) value.Value {
	if field.Kind() != value.KindText || field.Str() == "" {
		return el
	}
	if el.Kind() == value.KindObject {
		f, _ := el.Field(field.Str())
		return f
	}
	return value.Null()
}

func builtinCount(_ *interp, args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindArray, value.KindObject, value.KindText:
		return value.Number(float64(v.Len())), nil
	case value.KindNull:
		return value.Number(0), nil
	default:
		return value.Number(1), nil
	}
}

func builtinSum(in *interp, args []value.Value) (value.Value, error) {
	total := 0.0
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		if f, ok := pick(el, arg(args, 1)).AsNumber(); ok {
			total += f
		}
	}
	return value.Number(total), nil
}

func builtinAvg(in *interp, args []value.Value) (value.Value, error) {
	total, n := 0.0, 0
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		if f, ok := pick(el, arg(args, 1)).AsNumber(); ok {
			total += f
			n++
		}
	}
	if n == 0 {
		return value.Number(0), nil
	}
	return value.Number(total / float64(n)), nil
}

// builtinMap projects a field out of each element: map(rows, "name").
func builtinMap(in *interp, args []value.Value) (value.Value, error) {
	src := elemsOf(arg(args, 0))
	out := make([]value.Value, 0, len(src))
	for _, el := range src {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		out = append(out, pick(el, arg(args, 1)))
	}
	return value.Array(out...), nil
}

// builtinFilter keeps elements whose field is truthy, or equals the
// third argument when one is given: filter(rows, "status", "paid").
func builtinFilter(in *interp, args []value.Value) (value.Value, error) {
	var out []value.Value
	hasWant := len(args) > 2
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		got := pick(el, arg(args, 1))
		keep := got.Truthy()
		if hasWant {
			keep = value.LooseEqual(got, args[2])
		}
		if keep {
			out = append(out, el)
		}
	}
	return value.Array(out...), nil
}

func builtinGroupBy(in *interp, args []value.Value) (value.Value, error) {
	groups := value.NewObject()
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		key := pick(el, arg(args, 1)).Display()
		bucket, ok := groups.Get(key)
		if !ok {
			bucket = value.Array()
		}
		groups.Set(key, value.Array(append(bucket.Elems(), el)...))
	}
	return value.ObjectValue(groups), nil
}

func builtinUnique(in *interp, args []value.Value) (value.Value, error) {
	seen := map[string]bool{}
	var out []value.Value
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		k := pick(el, arg(args, 1)).Display()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, el)
	}
	return value.Array(out...), nil
}

func builtinSortBy(in *interp, args []value.Value) (value.Value, error) {
	src := elemsOf(arg(args, 0))
	out := make([]value.Value, len(src))
	copy(out, src)
	field := arg(args, 1)
	desc := strings.EqualFold(arg(args, 2).Str(), "desc")
	sort.SliceStable(out, func(i, j int) bool {
		c := value.Compare(pick(out[i], field), pick(out[j], field))
		if desc {
			return c > 0
		}
		return c < 0
	})
	if err := in.charge(len(out)); err != nil {
		return value.Null(), err
	}
	return value.Array(out...), nil
}

func builtinFirst(_ *interp, args []value.Value) (value.Value, error) {
	els := elemsOf(arg(args, 0))
	if len(els) == 0 {
		return value.Null(), nil
	}
	return els[0], nil
}

func builtinLast(_ *interp, args []value.Value) (value.Value, error) {
	els := elemsOf(arg(args, 0))
	if len(els) == 0 {
		return value.Null(), nil
	}
	return els[len(els)-1], nil
}

func builtinSlice(_ *interp, args []value.Value) (value.Value, error) {
	els := elemsOf(arg(args, 0))
	start, _ := arg(args, 1).AsNumber()
	end := float64(len(els))
	if f, ok := arg(args, 2).AsNumber(); ok {
		end = f
	}
	s, e := clampIndex(int(start), len(els)), clampIndex(int(end), len(els))
	if s > e {
		s = e
	}
	out := make([]value.Value, e-s)
	copy(out, els[s:e])
	return value.Array(out...), nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func builtinJoin(in *interp, args []value.Value) (value.Value, error) {
	sep := ","
	if s := arg(args, 1); s.Kind() == value.KindText {
		sep = s.Str()
	}
	var parts []string
	for _, el := range elemsOf(arg(args, 0)) {
		if err := in.step(); err != nil {
			return value.Null(), err
		}
		parts = append(parts, el.Display())
	}
	return value.Text(strings.Join(parts, sep)), nil
}

// builtinPush returns a new array; the source is never mutated, so
// frozen inputs work the same as fresh ones.
func builtinPush(_ *interp, args []value.Value) (value.Value, error) {
	els := elemsOf(arg(args, 0))
	out := make([]value.Value, len(els), len(els)+len(args)-1)
	copy(out, els)
	for _, v := range args[1:] {
		out = append(out, v)
	}
	return value.Array(out...), nil
}

func builtinKeys(_ *interp, args []value.Value) (value.Value, error) {
	o := arg(args, 0).Object()
	if o == nil {
		return value.Array(), nil
	}
	keys := o.Keys()
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.Text(k)
	}
	return value.Array(out...), nil
}

func builtinValues(_ *interp, args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	o := v.Object()
	if o == nil {
		return value.Array(), nil
	}
	var out []value.Value
	for _, k := range o.Keys() {
		f, _ := v.Field(k)
		out = append(out, f)
	}
	return value.Array(out...), nil
}

func str1(f func(string) string) builtinFn {
	return func(_ *interp, args []value.Value) (value.Value, error) {
		return value.Text(f(arg(args, 0).Display())), nil
	}
}

func strPred(f func(s, sub string) bool) builtinFn {
	return func(_ *interp, args []value.Value) (value.Value, error) {
		return value.Bool(f(arg(args, 0).Display(), arg(args, 1).Display())), nil
	}
}

func builtinSplit(_ *interp, args []value.Value) (value.Value, error) {
	parts := strings.Split(arg(args, 0).Display(), arg(args, 1).Display())
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.Text(p)
	}
	return value.Array(out...), nil
}

// builtinIncludes works on both text and arrays.
func builtinIncludes(in *interp, args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.Kind() == value.KindArray {
		for _, el := range v.Elems() {
			if err := in.step(); err != nil {
				return value.Null(), err
			}
			if value.LooseEqual(el, arg(args, 1)) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	}
	return value.Bool(strings.Contains(v.Display(), arg(args, 1).Display())), nil
}

func builtinReplace(_ *interp, args []value.Value) (value.Value, error) {
	return value.Text(strings.ReplaceAll(
		arg(args, 0).Display(), arg(args, 1).Display(), arg(args, 2).Display())), nil
}

func builtinSubstring(_ *interp, args []value.Value) (value.Value, error) {
	s := []rune(arg(args, 0).Display())
	start, _ := arg(args, 1).AsNumber()
	end := float64(len(s))
	if f, ok := arg(args, 2).AsNumber(); ok {
		end = f
	}
	a, b := clampIndex(int(start), len(s)), clampIndex(int(end), len(s))
	if a > b {
		a, b = b, a
	}
	return value.Text(string(s[a:b])), nil
}

func builtinIndexOf(_ *interp, args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.Kind() == value.KindArray {
		for i, el := range v.Elems() {
			if value.LooseEqual(el, arg(args, 1)) {
				return value.Number(float64(i)), nil
			}
		}
		return value.Number(-1), nil
	}
	return value.Number(float64(strings.Index(v.Display(), arg(args, 1).Display()))), nil
}

func builtinLength(_ *interp, args []value.Value) (value.Value, error) {
	return value.Number(float64(arg(args, 0).Len())), nil
}

// builtinParse decodes JSON text. Malformed input yields null rather
// than an error so bodies can probe optional payloads.
func builtinParse(_ *interp, args []value.Value) (value.Value, error) {
	var data any
	if err := json.Unmarshal([]byte(arg(args, 0).Display()), &data); err != nil {
		return value.Null(), nil
	}
	v, err := value.FromGo(data)
	if err != nil {
		return value.Null(), nil
	}
	return v, nil
}

func builtinStringify(_ *interp, args []value.Value) (value.Value, error) {
	b, err := json.Marshal(arg(args, 0).ToGo())
	if err != nil {
		return value.Null(), nil
	}
	return value.Text(string(b)), nil
}

func kindPred(k value.Kind) builtinFn {
	return func(_ *interp, args []value.Value) (value.Value, error) {
		return value.Bool(arg(args, 0).Kind() == k), nil
	}
}
