package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kartikbazzad/gridbase"
	"github.com/kartikbazzad/gridbase/catalog"
	"github.com/kartikbazzad/gridbase/value"
)

// projectSchema validates project files before loading, so a typo in a
// hand-edited file fails with a pointed message instead of a zero-value
// catalog.
const projectSchema = `{
	"type": "object",
	"properties": {
		"tables": {"type": "array", "items": {"$ref": "#/definitions/table"}},
		"views": {"type": "array", "items": {"$ref": "#/definitions/table"}},
		"functions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "body"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"returnType": {"type": "string"},
					"body": {"type": "string"},
					"params": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["name"],
							"properties": {
								"name": {"type": "string", "minLength": 1},
								"type": {"type": "string"}
							}
						}
					}
				}
			}
		}
	},
	"definitions": {
		"table": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"columns": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["name"],
						"properties": {
							"name": {"type": "string", "minLength": 1},
							"type": {"type": "string"}
						}
					}
				},
				"rows": {"type": "array", "items": {"type": "object"}}
			}
		}
	}
}`

type projectFile struct {
	Tables    []tableFile    `json:"tables"`
	Views     []tableFile    `json:"views"`
	Functions []functionFile `json:"functions"`
}

type tableFile struct {
	Name    string           `json:"name"`
	Columns []columnFile     `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

type columnFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type functionFile struct {
	Name       string      `json:"name"`
	Params     []paramFile `json:"params"`
	ReturnType string      `json:"returnType"`
	Body       string      `json:"body"`
}

type paramFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// loadProject reads, validates and converts a project file into a
// request the engine can serve.
func loadProject(path string) (gridbase.Request, error) {
	var req gridbase.Request

	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(projectSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return req, fmt.Errorf("validating %s: %w", path, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return req, fmt.Errorf("invalid project file %s:\n  %s", path, strings.Join(problems, "\n  "))
	}

	var pf projectFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return req, fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, t := range pf.Tables {
		tbl, err := buildTable(t)
		if err != nil {
			return req, err
		}
		req.Tables = append(req.Tables, tbl)
	}
	for _, v := range pf.Views {
		tbl, err := buildTable(v)
		if err != nil {
			return req, err
		}
		req.Views = append(req.Views, tbl)
	}
	for _, f := range pf.Functions {
		def := &catalog.FunctionDefinition{
			Name:       f.Name,
			ReturnType: f.ReturnType,
			Body:       f.Body,
		}
		for _, p := range f.Params {
			def.Params = append(def.Params, catalog.Param{Name: p.Name, Type: p.Type})
		}
		req.Functions = append(req.Functions, def)
	}
	return req, nil
}

func buildTable(t tableFile) (*catalog.Table, error) {
	tbl := &catalog.Table{Name: t.Name}
	for _, c := range t.Columns {
		tbl.Columns = append(tbl.Columns, catalog.Column{
			Name: c.Name,
			Type: catalog.ColumnType(c.Type),
		})
	}
	for i, raw := range t.Rows {
		row := value.NewObject()
		// Declared columns first so row rendering order is stable.
		for _, c := range t.Columns {
			if cell, ok := raw[c.Name]; ok {
				v, err := value.FromGo(cell)
				if err != nil {
					return nil, fmt.Errorf("table %s row %d column %s: %w", t.Name, i, c.Name, err)
				}
				row.Set(c.Name, v)
			}
		}
		extras := make([]string, 0, len(raw))
		for k := range raw {
			if _, ok := row.Get(k); !ok {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			v, err := value.FromGo(raw[k])
			if err != nil {
				return nil, fmt.Errorf("table %s row %d column %s: %w", t.Name, i, k, err)
			}
			row.Set(k, v)
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}
