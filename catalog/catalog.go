// Package catalog defines the table and function records visible to one
// engine invocation. A Catalog is an immutable snapshot built per call;
// the engines never mutate the tables handed to them.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kartikbazzad/gridbase/value"
)

var (
	ErrDuplicateTable    = errors.New("duplicate table name")
	ErrDuplicateFunction = errors.New("duplicate function name")
)

// UnknownFunctionError is returned when a function name does not
// resolve in the catalog. It carries the known names for the caller.
type UnknownFunctionError struct {
	Name      string
	Available []string
}

func (e *UnknownFunctionError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown function %q (no functions in catalog)", e.Name)
	}
	return fmt.Sprintf("unknown function %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ColumnType is the advisory declared type of a column. Values are
// coerced at comparison/sort time, never rejected at write time.
type ColumnType string

const (
	TypeString   ColumnType = "string"
	TypeNumber   ColumnType = "number"
	TypeBoolean  ColumnType = "boolean"
	TypeDate     ColumnType = "date"
	TypeDatetime ColumnType = "datetime"
	TypeJSON     ColumnType = "json"
	TypeNull     ColumnType = "null"
)

// Column describes one declared column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an in-memory table. Rows may carry keys beyond the declared
// columns; such keys are preserved and only surfaced when selected.
type Table struct {
	Name    string
	Columns []Column
	Rows    []*value.Object
}

// ColumnType returns the declared type of a column, TypeNull if the
// column is not declared.
func (t *Table) ColumnType(name string) ColumnType {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.Type
		}
	}
	return TypeNull
}

// Snapshot returns a read-only view of the table: same backing rows,
// every access through them frozen.
func (t *Table) Snapshot() *Table {
	rows := make([]*value.Object, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.FreezeView()
	}
	return &Table{Name: t.Name, Columns: t.Columns, Rows: rows}
}

// Param is one declared function parameter. Type selects how a raw
// call-site argument is coerced or wrapped before the body runs.
type Param struct {
	Name string
	Type string // number, string, boolean, table, view, rows, columns, json
}

// FunctionDefinition is a user-authored function: declared parameters
// plus a body in the sandbox scripting language.
type FunctionDefinition struct {
	Name       string
	Params     []Param
	ReturnType string
	Body       string
}

// Catalog is the set of tables, views and functions visible to one
// query or function execution. Lookup is case-insensitive.
type Catalog struct {
	tables    map[string]*Table
	views     map[string]*Table
	functions map[string]*FunctionDefinition

	tableNames []string
	viewNames  []string
	fnNames    []string
}

// New builds a catalog snapshot. Later duplicates (case-insensitive)
// are rejected so one name never resolves ambiguously inside a call.
func New(tables []*Table, views []*Table, functions []*FunctionDefinition) (*Catalog, error) {
	c := &Catalog{
		tables:    make(map[string]*Table, len(tables)),
		views:     make(map[string]*Table, len(views)),
		functions: make(map[string]*FunctionDefinition, len(functions)),
	}
	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if _, ok := c.tables[key]; ok {
			return nil, ErrDuplicateTable
		}
		c.tables[key] = t
		c.tableNames = append(c.tableNames, t.Name)
	}
	for _, v := range views {
		key := strings.ToLower(v.Name)
		if _, ok := c.views[key]; ok {
			return nil, ErrDuplicateTable
		}
		c.views[key] = v
		c.viewNames = append(c.viewNames, v.Name)
	}
	for _, f := range functions {
		key := strings.ToLower(f.Name)
		if _, ok := c.functions[key]; ok {
			return nil, ErrDuplicateFunction
		}
		c.functions[key] = f
		c.fnNames = append(c.fnNames, f.Name)
	}
	return c, nil
}

// Table resolves a table by name, case-insensitively.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[strings.ToLower(name)]
	return t, ok
}

// View resolves a view by name, case-insensitively.
func (c *Catalog) View(name string) (*Table, bool) {
	v, ok := c.views[strings.ToLower(name)]
	return v, ok
}

// Function resolves a function by name, case-insensitively.
func (c *Catalog) Function(name string) (*FunctionDefinition, bool) {
	f, ok := c.functions[strings.ToLower(name)]
	return f, ok
}

// TableNames lists table names in registration order, for error messages.
func (c *Catalog) TableNames() []string { return append([]string(nil), c.tableNames...) }

// ViewNames lists view names in registration order.
func (c *Catalog) ViewNames() []string { return append([]string(nil), c.viewNames...) }

// FunctionNames lists function names in registration order.
func (c *Catalog) FunctionNames() []string { return append([]string(nil), c.fnNames...) }

// TableValue renders a table as a frozen object value with the shape
// sandboxed code sees: {name, columns: [{name, type}], rows: [...]}.
func TableValue(t *Table) value.Value {
	cols := make([]value.Value, len(t.Columns))
	for i, c := range t.Columns {
		co := value.NewObject()
		co.Set("name", value.Text(c.Name))
		co.Set("type", value.Text(string(c.Type)))
		cols[i] = value.ObjectValue(co)
	}
	rows := make([]value.Value, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = value.ObjectValue(r)
	}
	o := value.NewObject()
	o.Set("name", value.Text(t.Name))
	o.Set("columns", value.Array(cols...))
	o.Set("rows", value.Array(rows...))
	return value.ObjectValue(o).Freeze()
}
