package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/internal/config"
	"github.com/kartikbazzad/gridbase/value"
)

func testSandbox(t *testing.T) *Sandbox {
	t.Helper()
	return New(config.SandboxConfig{
		Budget:       5 * time.Second,
		Fuel:         1_000_000,
		CacheSize:    16,
		MaxCallDepth: 32,
	}, nil)
}

func testCatalog(t *testing.T, fns ...*catalog.FunctionDefinition) *catalog.Catalog {
	t.Helper()
	orders := &catalog.Table{
		Name: "Orders",
		Columns: []catalog.Column{
			{Name: "id", Type: catalog.TypeNumber},
			{Name: "amount", Type: catalog.TypeNumber},
			{Name: "status", Type: catalog.TypeString},
		},
		Rows: []*value.Object{
			value.ObjectFromPairs("id", 1, "amount", 100, "status", "paid"),
			value.ObjectFromPairs("id", 2, "amount", 50, "status", "open"),
			value.ObjectFromPairs("id", 3, "amount", 75, "status", "paid"),
		},
	}
	cat, err := catalog.New([]*catalog.Table{orders}, nil, fns)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func run(t *testing.T, s *Sandbox, def *catalog.FunctionDefinition, args ...any) value.Value {
	t.Helper()
	v, err := s.Execute(context.Background(), def, args, testCatalog(t), 0)
	if err != nil {
		t.Fatalf("Execute(%s): %v", def.Name, err)
	}
	return v
}

func TestExecuteSimpleReturn(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "double",
		Params: []catalog.Param{{Name: "x", Type: "number"}},
		Body:   `return x * 2`,
	}
	v := run(t, s, def, 21)
	if v.Float() != 42 {
		t.Fatalf("expected 42, got %v", v.Display())
	}
}

func TestExecuteImplicitLastExpression(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "add",
		Params: []catalog.Param{{Name: "a", Type: "number"}, {Name: "b", Type: "number"}},
		Body:   `a + b`,
	}
	v := run(t, s, def, 2, 3)
	if v.Float() != 5 {
		t.Fatalf("expected 5, got %v", v.Display())
	}
}

func TestExecuteControlFlow(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "sumto",
		Params: []catalog.Param{{Name: "n", Type: "number"}},
		Body: `
			let total = 0
			let i = 1
			while (i <= n) {
				total = total + i
				i = i + 1
			}
			return total
		`,
	}
	if v := run(t, s, def, 10); v.Float() != 55 {
		t.Fatalf("expected 55, got %v", v.Display())
	}
}

func TestExecuteScoping(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name: "shadow",
		Body: `
			let x = 1
			if (true) {
				let x = 2
			}
			return x
		`,
	}
	if v := run(t, s, def); v.Float() != 1 {
		t.Fatalf("block let should not leak, got %v", v.Display())
	}
}

func TestExecuteMissingArgumentsBindNull(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "probe",
		Params: []catalog.Param{{Name: "x", Type: "number"}},
		Body:   `return isNull(x)`,
	}
	if v := run(t, s, def); !v.True() {
		t.Fatalf("missing argument should bind null")
	}
}

func TestExecuteTimeout(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name: "spin",
		Body: `while (true) { }`,
	}
	start := time.Now()
	_, err := s.Execute(context.Background(), def, nil, nil, 50*time.Millisecond)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("expected ErrExecutionTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestExecuteFuelExhaustion(t *testing.T) {
	s := New(config.SandboxConfig{Budget: time.Minute, Fuel: 500, CacheSize: 4, MaxCallDepth: 8}, nil)
	def := &catalog.FunctionDefinition{
		Name: "grind",
		Body: `
			let i = 0
			while (i < 1000000) { i = i + 1 }
			return i
		`,
	}
	_, err := s.Execute(context.Background(), def, nil, nil, 0)
	if !errors.Is(err, ErrFuelExhausted) {
		t.Fatalf("expected ErrFuelExhausted, got %v", err)
	}
	// Both overruns present as one condition to callers.
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("fuel exhaustion should satisfy ErrExecutionTimeout: %v", err)
	}
}

func TestExecuteTimeoutLeavesOtherCallsAlone(t *testing.T) {
	s := testSandbox(t)
	spin := &catalog.FunctionDefinition{Name: "spin", Body: `while (true) { }`}
	ok := &catalog.FunctionDefinition{Name: "ok", Body: `return 7`}

	if _, err := s.Execute(context.Background(), spin, nil, nil, 20*time.Millisecond); !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	v, err := s.Execute(context.Background(), ok, nil, nil, 0)
	if err != nil || v.Float() != 7 {
		t.Fatalf("follow-up call failed: %v %v", v.Display(), err)
	}
}

func TestTableParameterIsReadOnly(t *testing.T) {
	s := testSandbox(t)
	cases := []struct {
		name string
		body string
	}{
		{"member assign", `t.name = "hacked"`},
		{"row field assign", `t.rows[0].amount = 0`},
		{"index assign", `t["rows"] = []`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := &catalog.FunctionDefinition{
				Name:   "mutate",
				Params: []catalog.Param{{Name: "t", Type: "table"}},
				Body:   tc.body,
			}
			_, err := s.Execute(context.Background(), def, []any{"Orders"}, testCatalog(t), 0)
			if !errors.Is(err, ErrReadOnlyViolation) {
				t.Fatalf("expected ErrReadOnlyViolation, got %v", err)
			}
		})
	}
}

func TestTableParameterReads(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "total",
		Params: []catalog.Param{{Name: "t", Type: "table"}},
		Body:   `return sum(t.rows, "amount")`,
	}
	v := run(t, s, def, "Orders")
	if v.Float() != 225 {
		t.Fatalf("expected 225, got %v", v.Display())
	}
}

func TestTableParameterUnknownBindsNull(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "probe",
		Params: []catalog.Param{{Name: "t", Type: "table"}},
		Body:   `return isNull(t)`,
	}
	v := run(t, s, def, "NoSuchTable")
	if !v.True() {
		t.Fatalf("unknown table should bind null")
	}
}

func TestRowsParameterUnwrapping(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "n",
		Params: []catalog.Param{{Name: "rows", Type: "rows"}},
		Body:   `return count(rows)`,
	}
	wrapped := map[string]any{"rows": []any{
		map[string]any{"id": 1.0},
		map[string]any{"id": 2.0},
	}}
	if v := run(t, s, def, wrapped); v.Float() != 2 {
		t.Fatalf("wrapped rows: expected 2, got %v", v.Display())
	}
	if v := run(t, s, def, []any{1.0, 2.0, 3.0}); v.Float() != 3 {
		t.Fatalf("bare array: expected 3, got %v", v.Display())
	}
	if v := run(t, s, def, "nonsense"); v.Float() != 0 {
		t.Fatalf("bad shape should bind empty array, got %v", v.Display())
	}
}

func TestScalarCoercion(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name: "kinds",
		Params: []catalog.Param{
			{Name: "n", Type: "number"},
			{Name: "b", Type: "boolean"},
			{Name: "s", Type: "string"},
		},
		Body: `return [isNumber(n), isBoolean(b), isString(s), n, b, s]`,
	}
	v := run(t, s, def, "42", "yes", 7)
	els := v.Elems()
	if len(els) != 6 {
		t.Fatalf("expected 6 results, got %d", len(els))
	}
	for i := 0; i < 3; i++ {
		if !els[i].True() {
			t.Fatalf("coercion predicate %d failed", i)
		}
	}
	if els[3].Float() != 42 || !els[4].True() || els[5].Str() != "7" {
		t.Fatalf("coerced values wrong: %v", v.Display())
	}
}

func TestFunctionValueArgumentRejected(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "f",
		Params: []catalog.Param{{Name: "x", Type: "json"}},
		Body:   `return x`,
	}
	_, err := s.Execute(context.Background(), def, []any{func() {}}, nil, 0)
	if !errors.Is(err, ErrFunctionValueNotAllowed) {
		t.Fatalf("expected ErrFunctionValueNotAllowed, got %v", err)
	}
}

func TestRuntimeErrors(t *testing.T) {
	s := testSandbox(t)
	cases := []struct {
		name string
		body string
	}{
		{"undefined variable", `return nope`},
		{"unknown builtin", `return frobnicate(1)`},
		{"bad arithmetic", `return [1] - 2`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := &catalog.FunctionDefinition{Name: "bad", Body: tc.body}
			_, err := s.Execute(context.Background(), def, nil, nil, 0)
			var re *RuntimeError
			if !errors.As(err, &re) {
				t.Fatalf("expected RuntimeError, got %v", err)
			}
		})
	}
}

func TestCacheRecompilesOnBodyChange(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{Name: "f", Body: `return 1`}
	if v := run(t, s, def); v.Float() != 1 {
		t.Fatalf("first body: got %v", v.Display())
	}

	def.Body = `return 2`
	if v := run(t, s, def); v.Float() != 2 {
		t.Fatalf("edited body should recompile, got %v", v.Display())
	}

	def.Body = `return (`
	if _, err := s.Execute(context.Background(), def, nil, nil, 0); err == nil {
		t.Fatalf("broken body should fail compile, not hit the cache")
	}
}

func TestLooseSemantics(t *testing.T) {
	s := testSandbox(t)
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string concat", `return "n=" + 5`, "n=5"},
		{"loose equality", `return "5" == 5`, "true"},
		{"and returns operand", `return 0 && 9`, "0"},
		{"or returns operand", `return 0 || 9`, "9"},
		{"mixed comparison false", `return "abc" < 5`, "false"},
		{"missing member is null", `let o = {a: 1} return isNull(o.b)`, "true"},
		{"array length", `return [1, 2, 3].length`, "3"},
		{"modulo by zero", `return 7 % 0`, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := &catalog.FunctionDefinition{Name: "expr", Body: tc.body}
			v, err := s.Execute(context.Background(), def, nil, nil, 0)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if v.Display() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, v.Display())
			}
		})
	}
}
