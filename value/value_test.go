package value

import (
	"errors"
	"testing"
)

func TestCompareNullFirst(t *testing.T) {
	if Compare(Null(), Number(-1e308)) != -1 {
		t.Error("null should sort before any number")
	}
	if Compare(Text(""), Null()) != 1 {
		t.Error("empty text should sort after null")
	}
	if Compare(Null(), Null()) != 0 {
		t.Error("null should equal null")
	}
}

func TestCompareNumeric(t *testing.T) {
	if Compare(Number(2), Number(10)) != -1 {
		t.Error("2 < 10")
	}
	// Numeric strings compare as numbers, not text.
	if Compare(Text("2"), Text("10")) != -1 {
		t.Error("numeric strings should compare numerically")
	}
	if Compare(Text("b"), Text("a")) != 1 {
		t.Error("text compares ordinally")
	}
}

func TestLooseEqual(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{Number(100), Text("100"), true},
		{Text("100.0"), Number(100), true},
		{Text("Paid"), Text("paid"), true},
		{Bool(true), Text("1"), true},
		{Bool(false), Text("no"), true},
		{Null(), Null(), true},
		{Null(), Number(0), false},
		{Number(1), Number(2), false},
	}
	for _, c := range cases {
		if got := LooseEqual(c.a, c.b); got != c.want {
			t.Errorf("LooseEqual(%v, %v) = %v, want %v", c.a.Display(), c.b.Display(), got, c.want)
		}
	}
}

func TestParseBoolLiteral(t *testing.T) {
	truthy := []string{"true", "TRUE", "1", "yes", "Yes", "on", "t", "Y"}
	falsy := []string{"false", "0", "no", "off", "F", "n"}
	for _, s := range truthy {
		b, ok := ParseBoolLiteral(Text(s))
		if !ok || !b {
			t.Errorf("%q should parse as true", s)
		}
	}
	for _, s := range falsy {
		b, ok := ParseBoolLiteral(Text(s))
		if !ok || b {
			t.Errorf("%q should parse as false", s)
		}
	}
	if _, ok := ParseBoolLiteral(Text("maybe")); ok {
		t.Error("\"maybe\" is not a boolean literal")
	}
}

func TestCompareOrderedMixedKinds(t *testing.T) {
	if _, ok := CompareOrdered(Text("abc"), Number(5)); ok {
		t.Error("text vs number ordering should not be comparable")
	}
	cmp, ok := CompareOrdered(Text("42"), Number(5))
	if !ok || cmp != 1 {
		t.Error("numeric string vs number should compare numerically")
	}
}

func TestFreezePropagation(t *testing.T) {
	inner := NewObject()
	inner.Set("amount", Number(10))
	row := NewObject()
	row.Set("nested", ObjectValue(inner))
	row.Set("tags", Array(Text("a"), Text("b")))

	frozen := ObjectValue(row).Freeze()

	nested, _ := frozen.Field("nested")
	if err := nested.SetField("amount", Number(99)); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("nested object mutation should fail with ErrReadOnly, got %v", err)
	}
	tags, _ := frozen.Field("tags")
	if err := tags.SetIndex(0, Text("x")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("nested array mutation should fail with ErrReadOnly, got %v", err)
	}

	// The owner's handle stays writable.
	if err := ObjectValue(row).SetField("nested", Null()); err != nil {
		t.Fatalf("owner mutation should succeed, got %v", err)
	}
}

func TestFreezeViewSharesStorage(t *testing.T) {
	o := NewObject()
	o.Set("a", Number(1))
	v := o.FreezeView()
	if err := v.Delete("a"); !errors.Is(err, ErrReadOnly) {
		t.Fatal("delete on frozen view should fail")
	}
	o.Set("b", Number(2))
	if got, ok := v.Get("b"); !ok || got.Float() != 2 {
		t.Error("frozen view should see owner writes (shared storage)")
	}
	got, _ := v.Get("a")
	if !got.Frozen() {
		t.Error("reads through a frozen view should be frozen")
	}
}

func TestFromGoRejectsFunctions(t *testing.T) {
	_, err := FromGo(map[string]any{"cb": func() {}})
	if !errors.Is(err, ErrFunctionValue) {
		t.Fatalf("expected ErrFunctionValue, got %v", err)
	}
}

func TestDisplay(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Number(42), "42"},
		{Number(1.5), "1.5"},
		{Bool(true), "true"},
		{Text("hi"), "hi"},
		{Array(Number(1), Number(2)), "[1,2]"},
	}
	for _, c := range cases {
		if got := c.v.Display(); got != c.want {
			t.Errorf("Display(%v) = %q, want %q", c.v.Kind(), got, c.want)
		}
	}
}

func TestObjectOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Number(1))
	o.Set("a", Number(2))
	o.Set("z", Number(3)) // rewrite keeps position
	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Errorf("unexpected key order %v", keys)
	}
	b, err := ObjectValue(o).Clone().Object().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"z":3,"a":2}` {
		t.Errorf("unexpected JSON %s", b)
	}
}
