package query

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/internal/metrics"
	"github.com/kartikbazzad/gridbase/internal/pool"
	"github.com/kartikbazzad/gridbase/value"
)

// FunctionInvoker runs one user function call on behalf of the
// executor. Implementations must be safe for concurrent use: FN
// projections over large row sets run on a goroutine pool.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error)
}

// InvokerFunc adapts a function to the FunctionInvoker interface.
type InvokerFunc func(ctx context.Context, name string, args []value.Value) (value.Value, error)

func (f InvokerFunc) Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	return f(ctx, name, args)
}

// Executor evaluates plans. One executor is safe for concurrent use;
// all per-query state lives on the stack of Execute.
type Executor struct {
	log     *slog.Logger
	invoker *pool.Invoker
}

// NewExecutor creates an executor. The pool invoker may be nil, in
// which case FN projections run sequentially.
func NewExecutor(log *slog.Logger, invoker *pool.Invoker) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{log: log, invoker: invoker}
}

// Execute walks the plan through the fixed pipeline: scan, join,
// filter, project/aggregate, order, limit.
func (e *Executor) Execute(ctx context.Context, plan *Plan, cat *catalog.Catalog, fns FunctionInvoker) (*Result, error) {
	table, ok := cat.Table(plan.From)
	if !ok {
		return nil, &UnknownTableError{Name: plan.From, Available: cat.TableNames()}
	}

	// FN names resolve once, before any row work. An unresolvable name
	// aborts the query; per-row nulling is only for resolved functions
	// whose invocation fails.
	for _, pc := range plan.Select {
		if pc.Kind == ColFunction {
			if _, ok := cat.Function(pc.Fn); !ok {
				return nil, &catalog.UnknownFunctionError{Name: pc.Fn, Available: cat.FunctionNames()}
			}
		}
	}

	rows := table.Rows
	declared := [][]catalog.Column{table.Columns}

	if plan.Join != nil {
		joined, ok := cat.Table(plan.Join.Table)
		if !ok {
			return nil, &UnknownTableError{Name: plan.Join.Table, Available: cat.TableNames()}
		}
		rows = joinRows(rows, joined.Rows, plan.Join)
		declared = append(declared, joined.Columns)
	}

	if len(plan.Where) > 0 {
		rows = e.filterRows(rows, plan.Where, declared)
	}

	var result *Result
	var err error
	if plan.HasAggregate() {
		result, err = e.aggregate(ctx, plan, rows, fns)
	} else {
		result, err = e.project(ctx, plan, rows, declared, fns)
	}
	if err != nil {
		return nil, err
	}

	if !plan.HasAggregate() {
		orderRows(result, rows, plan.OrderBy)
	}
	if plan.HasLimit && len(result.Rows) > plan.Limit {
		result.Rows = result.Rows[:plan.Limit]
	}
	return result, nil
}

// joinRows is a nested-loop inner join on loose key equality. Merged
// rows carry the left fields first; same-named right fields overwrite.
func joinRows(left, right []*value.Object, spec *JoinSpec) []*value.Object {
	out := make([]*value.Object, 0, len(left))
	for _, l := range left {
		lv := l.GetOr(spec.LeftKey)
		for _, r := range right {
			if !value.LooseEqual(lv, r.GetOr(spec.RightKey)) {
				continue
			}
			merged := value.NewObject()
			for _, k := range l.Keys() {
				merged.Set(k, l.GetOr(k))
			}
			for _, k := range r.Keys() {
				merged.Set(k, r.GetOr(k))
			}
			out = append(out, merged)
		}
	}
	return out
}

// filterRows applies the condition chain left to right: each
// condition's trailing connector governs how it combines with the next.
func (e *Executor) filterRows(rows []*value.Object, conds []Condition, declared [][]catalog.Column) []*value.Object {
	out := make([]*value.Object, 0, len(rows))
	for _, row := range rows {
		keep := evalCondition(row, conds[0], declared)
		for i := 1; i < len(conds); i++ {
			next := evalCondition(row, conds[i], declared)
			if conds[i-1].Connector == "OR" {
				keep = keep || next
			} else {
				keep = keep && next
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

// evalCondition evaluates one predicate. Any runtime fault (such as a
// malformed LIKE pattern) degrades the predicate to false instead of
// aborting the query.
func evalCondition(row *value.Object, cond Condition, declared [][]catalog.Column) bool {
	rv := row.GetOr(cond.Field)

	if isBooleanColumn(cond.Field, declared) && (cond.Op == "=" || cond.Op == "!=") {
		rb, rok := value.ParseBoolLiteral(rv)
		cb, cok := value.ParseBoolLiteral(cond.Value)
		if rok && cok {
			if cond.Op == "=" {
				return rb == cb
			}
			return rb != cb
		}
	}

	switch cond.Op {
	case "=":
		return value.LooseEqual(rv, cond.Value)
	case "!=":
		return !value.LooseEqual(rv, cond.Value)
	case "<", ">", "<=", ">=":
		cmp, ok := value.CompareOrdered(rv, cond.Value)
		if !ok {
			return false
		}
		switch cond.Op {
		case "<":
			return cmp < 0
		case ">":
			return cmp > 0
		case "<=":
			return cmp <= 0
		default:
			return cmp >= 0
		}
	case "LIKE":
		re, err := likePattern(cond.Value.Display())
		if err != nil {
			return false
		}
		return re.MatchString(rv.Display())
	default:
		return false
	}
}

func isBooleanColumn(field string, declared [][]catalog.Column) bool {
	for _, cols := range declared {
		for _, c := range cols {
			if strings.EqualFold(c.Name, field) {
				return c.Type == catalog.TypeBoolean
			}
		}
	}
	return false
}

// likePattern translates a LIKE pattern (% as multi-character wildcard)
// into a case-insensitive anchored regular expression.
func likePattern(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, "%", ".*")
	return regexp.Compile("(?is)^" + quoted + "$")
}

// project maps surviving rows to the declared output columns, calling
// the function invoker once per row for each FN projection. A failed
// invocation nulls that one cell; the query still succeeds.
func (e *Executor) project(ctx context.Context, plan *Plan, rows []*value.Object, declared [][]catalog.Column, fns FunctionInvoker) (*Result, error) {
	columns := outputColumns(plan, rows, declared)

	out := make([]*value.Object, len(rows))
	for i, row := range rows {
		o := value.NewObject()
		for _, pc := range plan.Select {
			switch pc.Kind {
			case ColStar:
				for _, name := range starColumns(rows, declared) {
					o.Set(name, row.GetOr(name))
				}
			case ColField:
				o.Set(pc.OutputName(), row.GetOr(pc.Field))
			}
		}
		out[i] = o
	}

	for _, pc := range plan.Select {
		if pc.Kind != ColFunction {
			continue
		}
		pc := pc
		name := pc.OutputName()
		cells := make([]value.Value, len(rows))
		e.invoker.Map(ctx, len(rows), func(i int) {
			args := resolveArgs(pc.Args, rows[i])
			v, err := fns.Invoke(ctx, pc.Fn, args)
			if err != nil {
				e.log.Warn("function projection failed, cell set to null",
					"function", pc.Fn, "row", i, "error", err)
				metrics.IncCellNulled()
				v = value.Null()
			}
			cells[i] = v
		})
		for i := range out {
			out[i].Set(name, cells[i])
		}
	}

	return &Result{Columns: columns, Rows: out}, nil
}

// resolveArgs turns raw call-site arguments into values against the
// current row: quoted strings and numeric/boolean/null literals stay
// literal, anything else is a column reference (missing column: null).
func resolveArgs(args []Arg, row *value.Object) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = resolveArg(a, row)
	}
	return out
}

func resolveArg(a Arg, row *value.Object) value.Value {
	if a.Quoted {
		return value.Text(a.Text)
	}
	if f, err := strconv.ParseFloat(a.Text, 64); err == nil {
		return value.Number(f)
	}
	switch strings.ToLower(a.Text) {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null":
		return value.Null()
	}
	return row.GetOr(a.Text)
}

// outputColumns fixes the output column ordering from the select list.
func outputColumns(plan *Plan, rows []*value.Object, declared [][]catalog.Column) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, pc := range plan.Select {
		if pc.Kind == ColStar {
			for _, name := range starColumns(rows, declared) {
				if !seen[name] {
					seen[name] = true
					columns = append(columns, name)
				}
			}
			continue
		}
		name := pc.OutputName()
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}
	return columns
}

// starColumns expands * to the declared columns plus any extra keys the
// rows carry, in first-seen order.
func starColumns(rows []*value.Object, declared [][]catalog.Column) []string {
	var names []string
	seen := make(map[string]bool)
	for _, cols := range declared {
		for _, c := range cols {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

// orderRows stable-sorts the projected rows by the source rows' order
// keys, so ordering works even on columns the projection dropped.
// Nulls sort first ascending, last descending.
func orderRows(result *Result, source []*value.Object, keys []OrderKey) {
	if len(keys) == 0 || len(result.Rows) != len(source) {
		return
	}
	idx := make([]int, len(source))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for _, key := range keys {
			va := source[idx[a]].GetOr(key.Field)
			vb := source[idx[b]].GetOr(key.Field)
			cmp := orderCompare(va, vb, key.Desc)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	reordered := make([]*value.Object, len(result.Rows))
	for i, j := range idx {
		reordered[i] = result.Rows[j]
	}
	result.Rows = reordered
}

func orderCompare(a, b value.Value, desc bool) int {
	if !desc {
		return value.Compare(a, b)
	}
	// Descending still places nulls at the end.
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	return -value.Compare(a, b)
}
