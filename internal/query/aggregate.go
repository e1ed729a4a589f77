package query

import (
	"context"

	"github.com/kartikbazzad/gridbase/value"
)

var aggregateNames = []string{"COUNT", "SUM", "AVG", "MIN", "MAX"}

func knownAggregate(name string) bool {
	for _, a := range aggregateNames {
		if a == name {
			return true
		}
	}
	return false
}

// aggregate collapses the filtered set into a single row. There is no
// GROUP BY: every aggregate runs over the whole set. An empty set is
// not an error: COUNT/SUM/AVG yield 0, MIN/MAX yield null.
func (e *Executor) aggregate(ctx context.Context, plan *Plan, rows []*value.Object, fns FunctionInvoker) (*Result, error) {
	out := value.NewObject()
	var columns []string

	for _, pc := range plan.Select {
		switch pc.Kind {
		case ColStar:
			// * contributes nothing once the result collapses.
			continue
		case ColField:
			v := value.Null()
			if len(rows) > 0 {
				v = rows[0].GetOr(pc.Field)
			}
			out.Set(pc.OutputName(), v)
		case ColAggregate:
			if !knownAggregate(pc.Agg) {
				return nil, &UnknownAggregateError{Name: pc.Agg}
			}
			out.Set(pc.OutputName(), computeAggregate(pc.Agg, pc.Field, rows))
		case ColFunction:
			var row *value.Object
			if len(rows) > 0 {
				row = rows[0]
			} else {
				row = value.NewObject()
			}
			v, err := fns.Invoke(ctx, pc.Fn, resolveArgs(pc.Args, row))
			if err != nil {
				v = value.Null()
			}
			out.Set(pc.OutputName(), v)
		}
		columns = append(columns, pc.OutputName())
	}

	return &Result{Columns: columns, Rows: []*value.Object{out}}, nil
}

func computeAggregate(agg, field string, rows []*value.Object) value.Value {
	switch agg {
	case "COUNT":
		if field == "*" {
			return value.Number(float64(len(rows)))
		}
		n := 0
		for _, r := range rows {
			if !r.GetOr(field).IsNull() {
				n++
			}
		}
		return value.Number(float64(n))
	case "SUM", "AVG":
		sum, n := 0.0, 0
		for _, r := range rows {
			if f, ok := r.GetOr(field).AsNumber(); ok {
				sum += f
				n++
			}
		}
		if agg == "SUM" {
			return value.Number(sum)
		}
		if n == 0 {
			return value.Number(0)
		}
		return value.Number(sum / float64(n))
	case "MIN", "MAX":
		best := value.Null()
		for _, r := range rows {
			v := r.GetOr(field)
			if v.IsNull() {
				continue
			}
			if best.IsNull() {
				best = v
				continue
			}
			cmp := value.Compare(v, best)
			if (agg == "MIN" && cmp < 0) || (agg == "MAX" && cmp > 0) {
				best = v
			}
		}
		return best
	default:
		return value.Null()
	}
}
