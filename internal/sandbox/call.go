package sandbox

import (
	"context"
	"strings"
	"time"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/value"
)

// IsCallExpression reports whether the input is a standalone call
// expression, written as "=name(...)".
func IsCallExpression(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "=")
}

// EvalCall evaluates a standalone "=name(arg, ...)" expression.
// Builtin names dispatch directly into the library; anything else
// resolves through the catalog and runs under the sandbox budget.
// Bare identifier arguments are taken as names: a plain identifier
// becomes text, and a dotted path starting with a table or view name
// resolves into that table's value.
func (s *Sandbox) EvalCall(ctx context.Context, input string, cat *catalog.Catalog, budget time.Duration) (value.Value, error) {
	src := strings.TrimSpace(input)
	src = strings.TrimPrefix(src, "=")

	toks, err := lex(src)
	if err != nil {
		return value.Null(), err
	}
	p := &bodyParser{toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return value.Null(), err
	}
	if p.cur().kind != tEOF {
		return value.Null(), &CompileError{Line: p.cur().line, Message: "unexpected trailing input after call"}
	}
	call, ok := expr.(*CallExpr)
	if !ok {
		return value.Null(), &CompileError{Line: 1, Message: "expected a call expression"}
	}

	if budget <= 0 {
		budget = s.budget
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	args := make([]value.Value, len(call.Args))
	in := newInterp(runCtx, s.fuel, s.maxDepth, nil)
	for i, a := range call.Args {
		v, err := evalCallArg(in, a, cat)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}

	if fn, ok := builtins[call.Name]; ok {
		return fn(in, args)
	}

	if cat != nil {
		if def, ok := cat.Function(call.Name); ok {
			raw := make([]any, len(args))
			for i, v := range args {
				raw[i] = v
			}
			return s.Execute(ctx, def, raw, cat, budget)
		}
	}
	var available []string
	if cat != nil {
		available = cat.FunctionNames()
	}
	return value.Null(), &catalog.UnknownFunctionError{Name: call.Name, Available: available}
}

// evalCallArg gives call-site arguments name semantics: a bare
// identifier is the name itself, and a member path rooted at a table or
// view drills into that table's catalog value. Everything else is a
// normal expression.
func evalCallArg(in *interp, e Expr, cat *catalog.Catalog) (value.Value, error) {
	switch x := e.(type) {
	case *Ident:
		return value.Text(x.Name), nil
	case *MemberExpr:
		if root, path, ok := memberPath(x); ok && cat != nil {
			if t, found := cat.Table(root); found {
				return walkPath(catalog.TableValue(t), path), nil
			}
			if t, found := cat.View(root); found {
				return walkPath(catalog.TableValue(t), path), nil
			}
		}
	}
	return in.eval(e)
}

// memberPath flattens a.b.c into its root identifier and field chain.
func memberPath(e Expr) (root string, path []string, ok bool) {
	switch x := e.(type) {
	case *Ident:
		return x.Name, nil, true
	case *MemberExpr:
		root, path, ok = memberPath(x.X)
		if !ok {
			return "", nil, false
		}
		return root, append(path, x.Name), true
	default:
		return "", nil, false
	}
}

func walkPath(v value.Value, path []string) value.Value {
	for _, name := range path {
		v = memberOf(v, name)
	}
	return v
}
