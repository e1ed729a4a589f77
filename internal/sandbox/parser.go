package sandbox

import (
	"fmt"
	"strconv"
)

// Compile parses a function body into a Program.
func Compile(body string) (*Program, error) {
	toks, err := lex(body)
	if err != nil {
		return nil, err
	}
	p := &bodyParser{toks: toks}
	stmts, err := p.parseStmts(tEOF, "")
	if err != nil {
		return nil, err
	}
	return &Program{Stmts: stmts}, nil
}

type bodyParser struct {
	toks []tok
	pos  int
}

func (p *bodyParser) cur() tok { return p.toks[p.pos] }

func (p *bodyParser) advance() tok {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *bodyParser) expect(punct string) error {
	if !p.cur().is(punct) {
		return p.errf("expected %q, found %q", punct, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *bodyParser) errf(format string, args ...any) error {
	return &CompileError{Line: p.cur().line, Message: fmt.Sprintf(format, args...)}
}

// parseStmts parses until the terminator: tEOF for the top level, or a
// closing brace for blocks.
func (p *bodyParser) parseStmts(end tokKind, endPunct string) ([]Stmt, error) {
	var stmts []Stmt
	for {
		for p.cur().is(";") {
			p.advance()
		}
		if p.cur().kind == end && (endPunct == "" || p.cur().text == endPunct) {
			return stmts, nil
		}
		if p.cur().kind == tEOF {
			if endPunct != "" {
				return nil, p.errf("missing closing %q", endPunct)
			}
			return stmts, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

func (p *bodyParser) parseStmt() (Stmt, error) {
	t := p.cur()
	switch {
	case t.word("let"), t.word("var"), t.word("const"):
		p.advance()
		name := p.cur()
		if name.kind != tIdent {
			return nil, p.errf("%s expects a variable name", t.text)
		}
		p.advance()
		if err := p.expect("="); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &LetStmt{Name: name.text, Value: v}, nil

	case t.word("if"):
		return p.parseIf()

	case t.word("while"):
		p.advance()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil

	case t.word("return"):
		p.advance()
		if p.cur().is(";") || p.cur().is("}") || p.cur().kind == tEOF {
			return &ReturnStmt{}, nil
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: v}, nil

	default:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().is("=") {
			switch x.(type) {
			case *Ident, *MemberExpr, *IndexExpr:
			default:
				return nil, p.errf("invalid assignment target")
			}
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{Target: x, Value: v}, nil
		}
		return &ExprStmt{X: x}, nil
	}
}

func (p *bodyParser) parseIf() (Stmt, error) {
	p.advance() // if
	if err := p.expect("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then}
	if p.cur().word("else") {
		p.advance()
		if p.cur().word("if") {
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = []Stmt{nested}
		} else {
			els, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = els
		}
	}
	return stmt, nil
}

func (p *bodyParser) parseBlock() ([]Stmt, error) {
	if !p.cur().is("{") {
		// Single-statement bodies are allowed.
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	p.advance()
	stmts, err := p.parseStmts(tPunct, "}")
	if err != nil {
		return nil, err
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *bodyParser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *bodyParser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().is("||") {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: "||", L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseAnd() (Expr, error) {
	l, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur().is("&&") {
		p.advance()
		r, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: "&&", L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseEquality() (Expr, error) {
	l, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur().is("==") || p.cur().is("!=") {
		op := p.advance().text
		r, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseRelational() (Expr, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().is("<") || p.cur().is(">") || p.cur().is("<=") || p.cur().is(">=") {
		op := p.advance().text
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseAdditive() (Expr, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().is("+") || p.cur().is("-") {
		op := p.advance().text
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseMultiplicative() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().is("*") || p.cur().is("/") || p.cur().is("%") {
		op := p.advance().text
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &BinaryExpr{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *bodyParser) parseUnary() (Expr, error) {
	if p.cur().is("-") || p.cur().is("!") {
		op := p.advance().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *bodyParser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.cur().is("."):
			p.advance()
			name := p.cur()
			if name.kind != tIdent {
				return nil, p.errf("expected a property name after '.'")
			}
			p.advance()
			x = &MemberExpr{X: x, Name: name.text}
		case p.cur().is("["):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &IndexExpr{X: x, Index: idx}
		case p.cur().is("("):
			id, ok := x.(*Ident)
			if !ok {
				return nil, p.errf("only named builtin calls are allowed")
			}
			p.advance()
			var args []Expr
			for !p.cur().is(")") {
				if p.cur().kind == tEOF {
					return nil, p.errf("missing closing parenthesis in call to %s", id.Name)
				}
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.cur().is(",") {
					p.advance()
				}
			}
			p.advance()
			x = &CallExpr{Name: id.Name, Args: args}
		default:
			return x, nil
		}
	}
}

func (p *bodyParser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch {
	case t.kind == tNumber:
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf("malformed number %q", t.text)
		}
		p.advance()
		return &NumberLit{Value: f}, nil
	case t.kind == tString:
		p.advance()
		return &StringLit{Value: t.text}, nil
	case t.word("true"):
		p.advance()
		return &BoolLit{Value: true}, nil
	case t.word("false"):
		p.advance()
		return &BoolLit{Value: false}, nil
	case t.word("null"), t.word("undefined"):
		p.advance()
		return &NullLit{}, nil
	case t.kind == tIdent:
		p.advance()
		return &Ident{Name: t.text}, nil
	case t.is("("):
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil
	case t.is("["):
		p.advance()
		var elems []Expr
		for !p.cur().is("]") {
			if p.cur().kind == tEOF {
				return nil, p.errf("missing closing ']'")
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur().is(",") {
				p.advance()
			}
		}
		p.advance()
		return &ArrayLit{Elems: elems}, nil
	case t.is("{"):
		p.advance()
		lit := &ObjectLit{}
		for !p.cur().is("}") {
			if p.cur().kind == tEOF {
				return nil, p.errf("missing closing '}'")
			}
			key := p.cur()
			if key.kind != tIdent && key.kind != tString {
				return nil, p.errf("object literal expects a key, found %q", key.text)
			}
			p.advance()
			if err := p.expect(":"); err != nil {
				return nil, err
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lit.Keys = append(lit.Keys, key.text)
			lit.Values = append(lit.Values, v)
			if p.cur().is(",") {
				p.advance()
			}
		}
		p.advance()
		return lit, nil
	default:
		return nil, p.errf("unexpected token %q", t.text)
	}
}
