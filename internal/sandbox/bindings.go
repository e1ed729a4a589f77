package sandbox

import (
	"errors"
	"strings"

	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/value"
)

// PrepareArguments binds raw call-site arguments to a function's
// declared parameters. Table and view parameters resolve names against
// the catalog into frozen catalog views; scalar parameters coerce.
// Missing arguments bind to null.
func PrepareArguments(def *catalog.FunctionDefinition, args []any, cat *catalog.Catalog) (map[string]value.Value, error) {
	bound := make(map[string]value.Value, len(def.Params))
	for i, p := range def.Params {
		var raw any
		if i < len(args) {
			raw = args[i]
		}
		v, err := bindParam(p, raw, cat)
		if err != nil {
			return nil, err
		}
		bound[p.Name] = v
	}
	return bound, nil
}

func bindParam(p catalog.Param, raw any, cat *catalog.Catalog) (value.Value, error) {
	v, err := value.FromGo(raw)
	if err != nil {
		if errors.Is(err, value.ErrFunctionValue) {
			return value.Null(), ErrFunctionValueNotAllowed
		}
		return value.Null(), err
	}

	switch strings.ToLower(p.Type) {
	case "table":
		return bindCatalogTable(v, cat, false), nil
	case "view":
		return bindCatalogTable(v, cat, true), nil
	case "rows":
		return unwrapArray(v, "rows"), nil
	case "columns":
		return unwrapArray(v, "columns"), nil
	case "number":
		if f, ok := v.AsNumber(); ok {
			return value.Number(f), nil
		}
		return value.Null(), nil
	case "boolean":
		if b, ok := value.ParseBoolLiteral(v); ok {
			return value.Bool(b), nil
		}
		return value.Null(), nil
	case "string":
		if v.IsNull() {
			return value.Null(), nil
		}
		return value.Text(v.Display()), nil
	default:
		// json and undeclared types pass through as-is.
		return v, nil
	}
}

// bindCatalogTable resolves a table or view parameter. Text arguments
// are looked up by name; a failed lookup binds null so the body can
// detect it. Non-text arguments that already look like a table value
// pass through frozen.
func bindCatalogTable(v value.Value, cat *catalog.Catalog, viewFirst bool) value.Value {
	if v.Kind() == value.KindText {
		if cat == nil {
			return value.Null()
		}
		name := v.Str()
		if viewFirst {
			if t, ok := cat.View(name); ok {
				return catalog.TableValue(t)
			}
			if t, ok := cat.Table(name); ok {
				return catalog.TableValue(t)
			}
			return value.Null()
		}
		if t, ok := cat.Table(name); ok {
			return catalog.TableValue(t)
		}
		if t, ok := cat.View(name); ok {
			return catalog.TableValue(t)
		}
		return value.Null()
	}
	if v.Kind() == value.KindObject {
		return v.Freeze()
	}
	return value.Null()
}

// unwrapArray extracts the named array from a {rows: [...]} or
// {columns: [...]} wrapper, accepts a bare array, and binds an empty
// array for anything else.
func unwrapArray(v value.Value, field string) value.Value {
	switch v.Kind() {
	case value.KindArray:
		return v
	case value.KindObject:
		if f, ok := v.Field(field); ok && f.Kind() == value.KindArray {
			return f
		}
	}
	return value.Array()
}
