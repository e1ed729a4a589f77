// gridbase-dev is an interactive shell for trying queries and sandboxed
// functions against a project file of tables, views and functions.
//
//	gridbase-dev [-metrics :9100] [project.json]
//
// Inside the shell, SELECT statements and =fn(...) call expressions
// evaluate against the loaded project; dot commands manage the session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"

	"github.com/kartikbazzad/gridbase"
	"github.com/kartikbazzad/gridbase/catalog"
)

func main() {
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address")
	flag.Parse()

	engine, err := gridbase.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer engine.Close()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", gridbase.MetricsHandler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				fmt.Fprintln(os.Stderr, "metrics server:", err)
			}
		}()
	}

	var req gridbase.Request
	if path := flag.Arg(0); path != "" {
		req, err = loadProject(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Printf("loaded %d table(s), %d view(s), %d function(s) from %s\n",
			len(req.Tables), len(req.Views), len(req.Functions), path)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("gridbase dev shell. Type .help for commands, .exit to quit.")
	for {
		input, err := line.Prompt("gridbase> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ".") {
			if quit := dotCommand(input, &req); quit {
				return
			}
			continue
		}

		res, err := engine.Eval(context.Background(), req, input)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		render(res)
	}
}

func dotCommand(input string, req *gridbase.Request) (quit bool) {
	fields := strings.Fields(input)
	switch fields[0] {
	case ".exit", ".quit":
		return true
	case ".help":
		fmt.Println(`Commands:
  .load <file>   load a project file (replaces the current session)
  .tables        list loaded tables and views
  .functions     list loaded functions
  .exit          quit

Anything else evaluates as a query or an =fn(...) call expression.`)
	case ".load":
		if len(fields) < 2 {
			fmt.Println("usage: .load <file>")
			return false
		}
		loaded, err := loadProject(fields[1])
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		*req = loaded
		fmt.Printf("loaded %d table(s), %d view(s), %d function(s)\n",
			len(req.Tables), len(req.Views), len(req.Functions))
	case ".tables":
		for _, t := range req.Tables {
			fmt.Printf("  %s (%d rows, %d columns)\n", t.Name, len(t.Rows), len(t.Columns))
		}
		for _, v := range req.Views {
			fmt.Printf("  %s (view, %d rows)\n", v.Name, len(v.Rows))
		}
		if len(req.Tables)+len(req.Views) == 0 {
			fmt.Println("  (none)")
		}
	case ".functions":
		for _, f := range req.Functions {
			fmt.Printf("  %s(%s)\n", f.Name, paramList(f))
		}
		if len(req.Functions) == 0 {
			fmt.Println("  (none)")
		}
	default:
		fmt.Println("unknown command:", fields[0])
	}
	return false
}

func paramList(f *catalog.FunctionDefinition) string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p.Type != "" {
			parts[i] = p.Name + " " + p.Type
		} else {
			parts[i] = p.Name
		}
	}
	return strings.Join(parts, ", ")
}

func render(res *gridbase.Result) {
	if len(res.Rows) == 0 {
		fmt.Println("(no rows)")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	for _, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cells[i] = row.GetOr(col).Display()
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Printf("(%d row(s))\n", len(res.Rows))
}
