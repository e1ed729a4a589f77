package sandbox

import (
	"context"
	"errors"

	"github.com/kartikbazzad/gridbase/value"
)

// fuelCheckInterval is how many interpreter steps pass between context
// deadline checks. Every statement and expression node costs one step,
// so a runaway loop is observed promptly without a per-node clock read.
const fuelCheckInterval = 256

type interp struct {
	ctx        context.Context
	fuel       int64
	sinceCheck int
	scopes     []map[string]value.Value
	depth      int
	maxDepth   int
}

func newInterp(ctx context.Context, fuel int64, maxDepth int, bindings map[string]value.Value) *interp {
	base := make(map[string]value.Value, len(bindings)+2)
	for k, v := range bindings {
		base[k] = v
	}
	for k, v := range builtinConstants {
		if _, shadowed := base[k]; !shadowed {
			base[k] = v
		}
	}
	if maxDepth <= 0 {
		maxDepth = 64
	}
	return &interp{
		ctx:      ctx,
		fuel:     fuel,
		scopes:   []map[string]value.Value{base},
		maxDepth: maxDepth,
	}
}

// run executes the program. With no explicit return the value of the
// last expression statement is returned, so one-liner bodies behave
// like expressions.
func (in *interp) run(prog *Program) (value.Value, error) {
	last := value.Null()
	for _, s := range prog.Stmts {
		v, ret, err := in.execStmt(s)
		if err != nil {
			return value.Null(), err
		}
		if ret {
			return v, nil
		}
		if _, ok := s.(*ExprStmt); ok {
			last = v
		}
	}
	return last, nil
}

func (in *interp) step() error {
	in.fuel--
	if in.fuel <= 0 {
		return ErrFuelExhausted
	}
	in.sinceCheck++
	if in.sinceCheck >= fuelCheckInterval {
		in.sinceCheck = 0
		if in.ctx.Err() != nil {
			return ErrExecutionTimeout
		}
	}
	return nil
}

// charge bills n units of fuel at once, for builtins whose cost is
// proportional to input size but which loop outside eval.
func (in *interp) charge(n int) error {
	in.fuel -= int64(n)
	if in.fuel <= 0 {
		return ErrFuelExhausted
	}
	if in.ctx.Err() != nil {
		return ErrExecutionTimeout
	}
	return nil
}

func (in *interp) execStmts(stmts []Stmt) (value.Value, bool, error) {
	for _, s := range stmts {
		v, ret, err := in.execStmt(s)
		if err != nil || ret {
			return v, ret, err
		}
	}
	return value.Null(), false, nil
}

func (in *interp) execStmt(s Stmt) (value.Value, bool, error) {
	if err := in.step(); err != nil {
		return value.Null(), false, err
	}
	switch st := s.(type) {
	case *LetStmt:
		v, err := in.eval(st.Value)
		if err != nil {
			return value.Null(), false, err
		}
		in.scopes[len(in.scopes)-1][st.Name] = v
		return value.Null(), false, nil

	case *AssignStmt:
		v, err := in.eval(st.Value)
		if err != nil {
			return value.Null(), false, err
		}
		if err := in.assign(st.Target, v); err != nil {
			return value.Null(), false, err
		}
		return value.Null(), false, nil

	case *IfStmt:
		cond, err := in.eval(st.Cond)
		if err != nil {
			return value.Null(), false, err
		}
		if cond.Truthy() {
			return in.execBlock(st.Then)
		}
		if st.Else != nil {
			return in.execBlock(st.Else)
		}
		return value.Null(), false, nil

	case *WhileStmt:
		for {
			cond, err := in.eval(st.Cond)
			if err != nil {
				return value.Null(), false, err
			}
			if !cond.Truthy() {
				return value.Null(), false, nil
			}
			v, ret, err := in.execBlock(st.Body)
			if err != nil || ret {
				return v, ret, err
			}
		}

	case *ReturnStmt:
		if st.Value == nil {
			return value.Null(), true, nil
		}
		v, err := in.eval(st.Value)
		if err != nil {
			return value.Null(), false, err
		}
		return v, true, nil

	case *ExprStmt:
		v, err := in.eval(st.X)
		return v, false, err

	default:
		return value.Null(), false, runtimeErrf("unsupported statement")
	}
}

func (in *interp) execBlock(stmts []Stmt) (value.Value, bool, error) {
	in.scopes = append(in.scopes, make(map[string]value.Value))
	v, ret, err := in.execStmts(stmts)
	in.scopes = in.scopes[:len(in.scopes)-1]
	return v, ret, err
}

func (in *interp) assign(target Expr, v value.Value) error {
	switch t := target.(type) {
	case *Ident:
		for i := len(in.scopes) - 1; i >= 0; i-- {
			if _, ok := in.scopes[i][t.Name]; ok {
				in.scopes[i][t.Name] = v
				return nil
			}
		}
		in.scopes[len(in.scopes)-1][t.Name] = v
		return nil

	case *MemberExpr:
		x, err := in.eval(t.X)
		if err != nil {
			return err
		}
		if err := x.SetField(t.Name, v); err != nil {
			return wrapMutationError(err)
		}
		return nil

	case *IndexExpr:
		x, err := in.eval(t.X)
		if err != nil {
			return err
		}
		idx, err := in.eval(t.Index)
		if err != nil {
			return err
		}
		if x.Kind() == value.KindObject {
			if err := x.SetField(idx.Display(), v); err != nil {
				return wrapMutationError(err)
			}
			return nil
		}
		f, ok := idx.AsNumber()
		if !ok {
			return runtimeErrf("array index must be a number")
		}
		if err := x.SetIndex(int(f), v); err != nil {
			return wrapMutationError(err)
		}
		return nil

	default:
		return runtimeErrf("invalid assignment target")
	}
}

func wrapMutationError(err error) error {
	if errors.Is(err, value.ErrReadOnly) {
		return ErrReadOnlyViolation
	}
	return err
}

func (in *interp) eval(e Expr) (value.Value, error) {
	if err := in.step(); err != nil {
		return value.Null(), err
	}
	switch x := e.(type) {
	case *NumberLit:
		return value.Number(x.Value), nil
	case *StringLit:
		return value.Text(x.Value), nil
	case *BoolLit:
		return value.Bool(x.Value), nil
	case *NullLit:
		return value.Null(), nil

	case *ArrayLit:
		elems := make([]value.Value, len(x.Elems))
		for i, el := range x.Elems {
			v, err := in.eval(el)
			if err != nil {
				return value.Null(), err
			}
			elems[i] = v
		}
		return value.Array(elems...), nil

	case *ObjectLit:
		o := value.NewObject()
		for i, k := range x.Keys {
			v, err := in.eval(x.Values[i])
			if err != nil {
				return value.Null(), err
			}
			o.Set(k, v)
		}
		return value.ObjectValue(o), nil

	case *Ident:
		for i := len(in.scopes) - 1; i >= 0; i-- {
			if v, ok := in.scopes[i][x.Name]; ok {
				return v, nil
			}
		}
		return value.Null(), runtimeErrf("undefined variable %q", x.Name)

	case *MemberExpr:
		v, err := in.eval(x.X)
		if err != nil {
			return value.Null(), err
		}
		return memberOf(v, x.Name), nil

	case *IndexExpr:
		v, err := in.eval(x.X)
		if err != nil {
			return value.Null(), err
		}
		idx, err := in.eval(x.Index)
		if err != nil {
			return value.Null(), err
		}
		if v.Kind() == value.KindObject {
			return memberOf(v, idx.Display()), nil
		}
		f, ok := idx.AsNumber()
		if !ok {
			return value.Null(), nil
		}
		el, err := v.Index(int(f))
		if err != nil {
			return value.Null(), nil
		}
		return el, nil

	case *CallExpr:
		fn, ok := builtins[x.Name]
		if !ok {
			return value.Null(), runtimeErrf("unknown builtin %q", x.Name)
		}
		if in.depth >= in.maxDepth {
			return value.Null(), runtimeErrf("call nesting too deep")
		}
		args := make([]value.Value, len(x.Args))
		for i, a := range x.Args {
			v, err := in.eval(a)
			if err != nil {
				return value.Null(), err
			}
			args[i] = v
		}
		in.depth++
		v, err := fn(in, args)
		in.depth--
		return v, err

	case *UnaryExpr:
		v, err := in.eval(x.X)
		if err != nil {
			return value.Null(), err
		}
		switch x.Op {
		case "-":
			f, ok := v.AsNumber()
			if !ok {
				return value.Null(), runtimeErrf("cannot negate %s", v.Kind())
			}
			return value.Number(-f), nil
		case "!":
			return value.Bool(!v.Truthy()), nil
		}
		return value.Null(), runtimeErrf("unsupported unary operator %q", x.Op)

	case *BinaryExpr:
		return in.evalBinary(x)

	default:
		return value.Null(), runtimeErrf("unsupported expression")
	}
}

// memberOf resolves property access: object fields, plus the length
// pseudo-property on arrays and text. Missing members are null.
func memberOf(v value.Value, name string) value.Value {
	if name == "length" && (v.Kind() == value.KindArray || v.Kind() == value.KindText) {
		return value.Number(float64(v.Len()))
	}
	if v.Kind() == value.KindObject {
		f, _ := v.Field(name)
		return f
	}
	return value.Null()
}

func (in *interp) evalBinary(x *BinaryExpr) (value.Value, error) {
	// Short-circuiting operators evaluate like their JS counterparts:
	// the result is one of the operands, not a forced boolean.
	if x.Op == "&&" || x.Op == "||" {
		l, err := in.eval(x.L)
		if err != nil {
			return value.Null(), err
		}
		if x.Op == "&&" {
			if !l.Truthy() {
				return l, nil
			}
			return in.eval(x.R)
		}
		if l.Truthy() {
			return l, nil
		}
		return in.eval(x.R)
	}

	l, err := in.eval(x.L)
	if err != nil {
		return value.Null(), err
	}
	r, err := in.eval(x.R)
	if err != nil {
		return value.Null(), err
	}

	switch x.Op {
	case "+":
		if l.Kind() == value.KindText || r.Kind() == value.KindText {
			return value.Text(l.Display() + r.Display()), nil
		}
		lf, lok := l.AsNumber()
		rf, rok := r.AsNumber()
		if lok && rok {
			return value.Number(lf + rf), nil
		}
		return value.Text(l.Display() + r.Display()), nil
	case "-", "*", "/", "%":
		lf, lok := l.AsNumber()
		rf, rok := r.AsNumber()
		if !lok || !rok {
			return value.Null(), runtimeErrf("cannot apply %q to %s and %s", x.Op, l.Kind(), r.Kind())
		}
		switch x.Op {
		case "-":
			return value.Number(lf - rf), nil
		case "*":
			return value.Number(lf * rf), nil
		case "/":
			return value.Number(lf / rf), nil
		default:
			return value.Number(modulo(lf, rf)), nil
		}
	case "==":
		return value.Bool(value.LooseEqual(l, r)), nil
	case "!=":
		return value.Bool(!value.LooseEqual(l, r)), nil
	case "<", ">", "<=", ">=":
		cmp, ok := value.CompareOrdered(l, r)
		if !ok {
			return value.Bool(false), nil
		}
		switch x.Op {
		case "<":
			return value.Bool(cmp < 0), nil
		case ">":
			return value.Bool(cmp > 0), nil
		case "<=":
			return value.Bool(cmp <= 0), nil
		default:
			return value.Bool(cmp >= 0), nil
		}
	}
	return value.Null(), runtimeErrf("unsupported operator %q", x.Op)
}

func modulo(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return float64(int64(a) % int64(b))
}
