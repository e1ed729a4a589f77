// Package query implements the relational dialect: a tokenizer and
// parser producing a Plan, and an executor evaluating the plan as a
// fixed operator pipeline against a catalog snapshot.
package query

import "github.com/kartikbazzad/gridbase/value"

// ColumnKind discriminates select-list entries.
type ColumnKind uint8

const (
	ColStar ColumnKind = iota
	ColField
	ColAggregate
	ColFunction
)

// Arg is one raw call-site argument of an FN projection. Quoted args
// are string literals; bare args are numbers, booleans, null or column
// references resolved per row at execution time.
type Arg struct {
	Text   string
	Quoted bool
}

// ProjectedColumn is one select-list entry.
type ProjectedColumn struct {
	Kind  ColumnKind
	Field string // column name, or aggregate argument ("*" allowed)
	Agg   string // upper-cased aggregate name
	Fn    string // function name for FN. projections
	Args  []Arg  // FN call arguments
	Alias string
	Label string // source-derived output name when no alias is given
}

// OutputName returns the column name this entry produces.
func (pc ProjectedColumn) OutputName() string {
	if pc.Alias != "" {
		return pc.Alias
	}
	if pc.Label != "" {
		return pc.Label
	}
	return pc.Field
}

// JoinSpec describes the optional inner join.
type JoinSpec struct {
	Table    string
	LeftKey  string
	RightKey string
}

// Condition is one WHERE predicate. Connector names how it combines
// with the next condition ("AND", "OR", empty for the last); the chain
// evaluates left to right without precedence grouping.
type Condition struct {
	Field     string
	Op        string // =, !=, <, >, <=, >=, LIKE
	Value     value.Value
	Connector string
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Field string
	Desc  bool
}

// Plan is the parsed, structured representation of a query. A plan is
// built fresh per execution and discarded after use.
type Plan struct {
	Select   []ProjectedColumn
	From     string
	Join     *JoinSpec
	Where    []Condition
	OrderBy  []OrderKey
	Limit    int
	HasLimit bool // LIMIT 0 is valid and returns no rows
}

// HasAggregate reports whether any select entry is an aggregate, which
// collapses the whole result to a single row.
func (p *Plan) HasAggregate() bool {
	for _, pc := range p.Select {
		if pc.Kind == ColAggregate {
			return true
		}
	}
	return false
}

// Result is an executed query: ordered column names plus ordered rows.
type Result struct {
	Columns []string
	Rows    []*value.Object
}
