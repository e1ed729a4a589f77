package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kartikbazzad/gridbase/value"
)

// Parse parses a single SELECT statement into a Plan. Keywords are
// case-insensitive; no trailing semicolon. Unknown aggregate and
// function names are not parse errors: they surface at execution time
// so the message can list the known symbols.
func Parse(text string) (*Plan, error) {
	q := strings.TrimSpace(text)
	q = strings.TrimSuffix(q, ";")
	if q == "" {
		return nil, &ParseError{Clause: "SELECT", Message: "empty query"}
	}

	toks, err := tokenize(q)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	if !p.cur().keyword("SELECT") {
		return nil, &ParseError{Clause: "SELECT", Message: "SELECT clause is required"}
	}
	p.next()

	plan := &Plan{}
	if err := p.parseSelectList(plan); err != nil {
		return nil, err
	}

	if !p.cur().keyword("FROM") {
		return nil, &ParseError{Clause: "FROM", Message: "FROM clause is required"}
	}
	p.next()
	from := p.cur()
	if !from.nameLike() {
		return nil, &ParseError{Clause: "FROM", Message: "FROM expects a table name"}
	}
	plan.From = from.text
	p.next()

	if p.cur().keyword("JOIN") {
		p.next()
		if err := p.parseJoin(plan); err != nil {
			return nil, err
		}
	}

	if p.cur().keyword("WHERE") {
		p.next()
		if err := p.parseWhere(plan); err != nil {
			return nil, err
		}
	}

	if p.cur().keyword("ORDER") {
		p.next()
		if err := p.parseOrderBy(plan); err != nil {
			return nil, err
		}
	}

	if p.cur().keyword("LIMIT") {
		p.next()
		t := p.cur()
		n, err := strconv.Atoi(t.text)
		if t.kind != tokNumber || err != nil || n < 0 {
			return nil, &ParseError{Clause: "LIMIT", Message: "LIMIT expects a non-negative integer"}
		}
		plan.Limit = n
		plan.HasLimit = true
		p.next()
	}

	if p.cur().kind != tokEOF {
		return nil, &ParseError{Clause: "query", Message: fmt.Sprintf("unexpected %q after end of query", p.cur().text)}
	}
	return plan, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) parseSelectList(plan *Plan) error {
	for {
		pc, err := p.parseSelectItem()
		if err != nil {
			return err
		}
		plan.Select = append(plan.Select, pc)
		if p.cur().kind == tokComma {
			p.next()
			continue
		}
		return nil
	}
}

func (p *parser) parseSelectItem() (ProjectedColumn, error) {
	t := p.cur()
	var pc ProjectedColumn

	switch {
	case t.kind == tokStar:
		p.next()
		pc = ProjectedColumn{Kind: ColStar, Label: "*"}
		return pc, nil // no alias on *
	case t.nameLike():
		name := t.text
		p.next()
		if p.cur().kind == tokLParen && t.kind == tokIdent {
			p.next()
			if len(name) > 3 && strings.EqualFold(name[:3], "FN.") {
				fn := name[3:]
				args, err := p.parseCallArgs()
				if err != nil {
					return pc, err
				}
				pc = ProjectedColumn{Kind: ColFunction, Fn: fn, Args: args, Label: "FN." + fn}
			} else {
				var err error
				pc, err = p.parseAggregate(name)
				if err != nil {
					return pc, err
				}
			}
		} else {
			pc = ProjectedColumn{Kind: ColField, Field: name, Label: name}
		}
	default:
		return pc, &ParseError{Clause: "SELECT", Message: fmt.Sprintf("select list has an unexpected token %q", t.text)}
	}

	if p.cur().keyword("AS") {
		p.next()
		a := p.cur()
		if !a.nameLike() {
			return pc, &ParseError{Clause: "SELECT", Message: "AS expects an alias name"}
		}
		pc.Alias = a.text
		p.next()
	}
	return pc, nil
}

func (p *parser) parseAggregate(name string) (ProjectedColumn, error) {
	var field string
	t := p.cur()
	switch {
	case t.kind == tokStar:
		field = "*"
		p.next()
	case t.nameLike():
		field = t.text
		p.next()
	default:
		return ProjectedColumn{}, &ParseError{Clause: "SELECT", Message: fmt.Sprintf("%s expects a column name or *", strings.ToUpper(name))}
	}
	if p.cur().kind != tokRParen {
		return ProjectedColumn{}, &ParseError{Clause: "SELECT", Message: fmt.Sprintf("%s is missing a closing parenthesis", strings.ToUpper(name))}
	}
	p.next()
	agg := strings.ToUpper(name)
	return ProjectedColumn{Kind: ColAggregate, Agg: agg, Field: field, Label: agg + "(" + field + ")"}, nil
}

func (p *parser) parseCallArgs() ([]Arg, error) {
	var args []Arg
	if p.cur().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		t := p.cur()
		switch t.kind {
		case tokString:
			args = append(args, Arg{Text: t.text, Quoted: true})
		case tokNumber, tokIdent:
			args = append(args, Arg{Text: t.text})
		default:
			return nil, &ParseError{Clause: "SELECT", Message: fmt.Sprintf("function call has an unexpected argument %q", t.text)}
		}
		p.next()
		if p.cur().kind == tokComma {
			p.next()
			continue
		}
		if p.cur().kind != tokRParen {
			return nil, &ParseError{Clause: "SELECT", Message: "function call is missing a closing parenthesis"}
		}
		p.next()
		return args, nil
	}
}

func (p *parser) parseJoin(plan *Plan) error {
	t := p.cur()
	if !t.nameLike() {
		return &ParseError{Clause: "JOIN", Message: "JOIN expects a table name"}
	}
	join := &JoinSpec{Table: t.text}
	p.next()

	if !p.cur().keyword("ON") {
		return &ParseError{Clause: "JOIN", Message: "JOIN requires an ON condition"}
	}
	p.next()

	left := p.cur()
	if !left.nameLike() {
		return &ParseError{Clause: "JOIN", Message: "ON expects a column reference"}
	}
	p.next()
	if !(p.cur().kind == tokOp && p.cur().text == "=") {
		return &ParseError{Clause: "JOIN", Message: "ON condition must use ="}
	}
	p.next()
	right := p.cur()
	if !right.nameLike() {
		return &ParseError{Clause: "JOIN", Message: "ON expects a column reference after ="}
	}
	p.next()

	lk, rk := left.text, right.text
	// Qualified references may appear in either order; match them to
	// their tables by prefix before stripping the qualifier.
	if qualifierMatches(lk, join.Table) || qualifierMatches(rk, plan.From) {
		lk, rk = rk, lk
	}
	join.LeftKey = stripQualifier(lk)
	join.RightKey = stripQualifier(rk)
	plan.Join = join
	return nil
}

func qualifierMatches(col, table string) bool {
	i := strings.LastIndex(col, ".")
	if i < 0 {
		return false
	}
	return strings.EqualFold(col[:i], table)
}

func stripQualifier(col string) string {
	if i := strings.LastIndex(col, "."); i >= 0 {
		return col[i+1:]
	}
	return col
}

func (p *parser) parseWhere(plan *Plan) error {
	for {
		field := p.cur()
		if !field.nameLike() {
			return &ParseError{Clause: "WHERE", Message: "WHERE expects a column name"}
		}
		p.next()

		var op string
		t := p.cur()
		switch {
		case t.kind == tokOp:
			op = t.text
		case t.keyword("LIKE"):
			op = "LIKE"
		default:
			return &ParseError{Clause: "WHERE", Message: fmt.Sprintf("WHERE condition has an unsupported operator %q", t.text)}
		}
		p.next()

		val, err := p.parseConditionValue()
		if err != nil {
			return err
		}

		cond := Condition{Field: field.text, Op: op, Value: val}

		t = p.cur()
		switch {
		case t.keyword("AND"):
			cond.Connector = "AND"
			p.next()
		case t.keyword("OR"):
			cond.Connector = "OR"
			p.next()
		default:
			plan.Where = append(plan.Where, cond)
			return nil
		}
		plan.Where = append(plan.Where, cond)
	}
}

func (p *parser) parseConditionValue() (value.Value, error) {
	t := p.cur()
	switch {
	case t.kind == tokString:
		p.next()
		return value.Text(t.text), nil
	case t.kind == tokNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return value.Null(), &ParseError{Clause: "WHERE", Message: fmt.Sprintf("WHERE condition has a malformed number %q", t.text)}
		}
		p.next()
		return value.Number(f), nil
	case t.keyword("true"):
		p.next()
		return value.Bool(true), nil
	case t.keyword("false"):
		p.next()
		return value.Bool(false), nil
	case t.keyword("null"):
		p.next()
		return value.Null(), nil
	default:
		return value.Null(), &ParseError{Clause: "WHERE", Message: fmt.Sprintf("WHERE condition has a malformed value %q", t.text)}
	}
}

func (p *parser) parseOrderBy(plan *Plan) error {
	if !p.cur().keyword("BY") {
		return &ParseError{Clause: "ORDER BY", Message: "ORDER must be followed by BY"}
	}
	p.next()
	for {
		t := p.cur()
		if !t.nameLike() {
			return &ParseError{Clause: "ORDER BY", Message: "ORDER BY expects a column name"}
		}
		key := OrderKey{Field: t.text}
		p.next()

		switch {
		case p.cur().keyword("ASC"):
			p.next()
		case p.cur().keyword("DESC"):
			key.Desc = true
			p.next()
		}
		plan.OrderBy = append(plan.OrderBy, key)

		if p.cur().kind == tokComma {
			p.next()
			continue
		}
		return nil
	}
}
