package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/kartikbazzad/gridbase/catalog"
)

func TestIsCallExpression(t *testing.T) {
	if !IsCallExpression("=sum([1, 2])") {
		t.Fatalf("=sum should be a call expression")
	}
	if !IsCallExpression("  =round(1.5)") {
		t.Fatalf("leading whitespace should be tolerated")
	}
	if IsCallExpression("SELECT * FROM t") {
		t.Fatalf("queries are not call expressions")
	}
}

func TestEvalCallBuiltin(t *testing.T) {
	s := testSandbox(t)
	v, err := s.EvalCall(context.Background(), `=sum([1, 2, 3])`, nil, 0)
	if err != nil {
		t.Fatalf("EvalCall: %v", err)
	}
	if v.Float() != 6 {
		t.Fatalf("expected 6, got %v", v.Display())
	}
}

func TestEvalCallTablePathArgument(t *testing.T) {
	s := testSandbox(t)
	cat := testCatalog(t)
	v, err := s.EvalCall(context.Background(), `=sum(Orders.rows, "amount")`, cat, 0)
	if err != nil {
		t.Fatalf("EvalCall: %v", err)
	}
	if v.Float() != 225 {
		t.Fatalf("expected 225, got %v", v.Display())
	}
}

func TestEvalCallUserFunction(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{
		Name:   "orderTotal",
		Params: []catalog.Param{{Name: "t", Type: "table"}},
		Body:   `return sum(t.rows, "amount")`,
	}
	cat := testCatalog(t, def)
	// A bare identifier argument is the table's name.
	v, err := s.EvalCall(context.Background(), `=orderTotal(Orders)`, cat, 0)
	if err != nil {
		t.Fatalf("EvalCall: %v", err)
	}
	if v.Float() != 225 {
		t.Fatalf("expected 225, got %v", v.Display())
	}
}

func TestEvalCallUnknownFunction(t *testing.T) {
	s := testSandbox(t)
	def := &catalog.FunctionDefinition{Name: "known", Body: `return 1`}
	cat := testCatalog(t, def)
	_, err := s.EvalCall(context.Background(), `=missing(1)`, cat, 0)
	var ufe *catalog.UnknownFunctionError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnknownFunctionError, got %v", err)
	}
	if ufe.Name != "missing" || len(ufe.Available) != 1 || ufe.Available[0] != "known" {
		t.Fatalf("unexpected error payload: %+v", ufe)
	}
}

func TestEvalCallRejectsNonCalls(t *testing.T) {
	s := testSandbox(t)
	for _, input := range []string{`=1 + 2`, `=sum([1]) extra`, `=`} {
		if _, err := s.EvalCall(context.Background(), input, nil, 0); err == nil {
			t.Errorf("%q should not evaluate", input)
		}
	}
}
