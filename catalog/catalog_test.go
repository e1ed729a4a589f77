package catalog

import (
	"errors"
	"testing"

	"github.com/kartikbazzad/gridbase/value"
)

func testTable() *Table {
	return &Table{
		Name: "Orders",
		Columns: []Column{
			{Name: "id", Type: TypeNumber},
			{Name: "status", Type: TypeString},
		},
		Rows: []*value.Object{
			value.ObjectFromPairs("id", 1, "status", "paid"),
			value.ObjectFromPairs("id", 2, "status", "pending"),
		},
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	c, err := New([]*Table{testTable()}, nil, []*FunctionDefinition{{Name: "Double", Body: "return x * 2"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Table("ORDERS"); !ok {
		t.Error("table lookup should be case-insensitive")
	}
	if _, ok := c.Function("double"); !ok {
		t.Error("function lookup should be case-insensitive")
	}
	if _, ok := c.Table("customers"); ok {
		t.Error("unknown table should not resolve")
	}
}

func TestDuplicateNamesRejected(t *testing.T) {
	_, err := New([]*Table{{Name: "t"}, {Name: "T"}}, nil, nil)
	if !errors.Is(err, ErrDuplicateTable) {
		t.Fatalf("expected ErrDuplicateTable, got %v", err)
	}
}

func TestSnapshotIsReadOnly(t *testing.T) {
	tbl := testTable()
	snap := tbl.Snapshot()
	if err := snap.Rows[0].Delete("id"); !errors.Is(err, value.ErrReadOnly) {
		t.Fatalf("snapshot rows should be frozen, got %v", err)
	}
	// Owner keeps a writable handle.
	tbl.Rows[0].Set("id", value.Number(99))
	if got, _ := snap.Rows[0].Get("id"); got.Float() != 99 {
		t.Error("snapshot shares storage with the owner")
	}
}

func TestTableValueShape(t *testing.T) {
	tv := TableValue(testTable())
	if !tv.Frozen() {
		t.Fatal("table value must be frozen")
	}
	rows, ok := tv.Field("rows")
	if !ok || rows.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", rows.Len())
	}
	first, err := rows.Index(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.SetField("id", value.Number(0)); !errors.Is(err, value.ErrReadOnly) {
		t.Fatalf("row reached through table value should be frozen, got %v", err)
	}
}

func TestColumnType(t *testing.T) {
	tbl := testTable()
	if tbl.ColumnType("STATUS") != TypeString {
		t.Error("column type lookup should be case-insensitive")
	}
	if tbl.ColumnType("missing") != TypeNull {
		t.Error("undeclared column should report null type")
	}
}
