package query

import (
	"fmt"
	"strings"
	"unicode"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString // quoted run; the parser decides identifier vs literal by position
	tokStar
	tokComma
	tokLParen
	tokRParen
	tokOp // =, !=, <>, <, >, <=, >=
)

type token struct {
	kind  tokKind
	text  string
	quote byte // quoting character for tokString, 0 otherwise
}

// keyword reports whether the token is the given bare keyword,
// case-insensitively. Quoted identifiers never match keywords.
func (t token) keyword(kw string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

// nameLike reports whether the token can serve as an identifier
// (bare or quoted).
func (t token) nameLike() bool {
	return t.kind == tokIdent || t.kind == tokString
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$'
}

func isIdentPart(r rune) bool {
	// Dots stay inside identifiers so FN.name and table.column parse as
	// single tokens.
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '.'
}

// tokenize splits a query string into tokens. The only failure mode is
// an unterminated quoted run.
func tokenize(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0
	n := len(runes)

	for i < n {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '`' || r == '"' || r == '\'':
			quote := r
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < n {
				if runes[j] == quote {
					// Doubled quote escapes itself.
					if j+1 < n && runes[j+1] == quote {
						sb.WriteRune(quote)
						j += 2
						continue
					}
					closed = true
					j++
					break
				}
				sb.WriteRune(runes[j])
				j++
			}
			if !closed {
				return nil, &ParseError{Clause: "literal", Message: fmt.Sprintf("unbalanced quoting: missing closing %c", quote)}
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), quote: byte(quote)})
			i = j
		case r == '*':
			toks = append(toks, token{kind: tokStar, text: "*"})
			i++
		case r == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case r == '=':
			toks = append(toks, token{kind: tokOp, text: "="})
			i++
		case r == '!':
			if i+1 < n && runes[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: "!="})
				i += 2
			} else {
				return nil, &ParseError{Clause: "operator", Message: "unexpected '!'"}
			}
		case r == '<':
			switch {
			case i+1 < n && runes[i+1] == '=':
				toks = append(toks, token{kind: tokOp, text: "<="})
				i += 2
			case i+1 < n && runes[i+1] == '>':
				toks = append(toks, token{kind: tokOp, text: "!="})
				i += 2
			default:
				toks = append(toks, token{kind: tokOp, text: "<"})
				i++
			}
		case r == '>':
			if i+1 < n && runes[i+1] == '=' {
				toks = append(toks, token{kind: tokOp, text: ">="})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: ">"})
				i++
			}
		case unicode.IsDigit(r) || (r == '-' && i+1 < n && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < n && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[i:j])})
			i = j
		case isIdentStart(r):
			j := i + 1
			for j < n && isIdentPart(runes[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[i:j])})
			i = j
		default:
			return nil, &ParseError{Clause: "token", Message: fmt.Sprintf("unexpected character %q", string(r))}
		}
	}

	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}
