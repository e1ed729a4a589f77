// Package sandbox compiles and runs user-authored function bodies in a
// deliberately restricted scripting language: arithmetic, comparisons,
// array/object literals, let/if/while/return, and calls into a fixed
// builtin library. Nothing outside the binding set is reachable, which
// keeps forced cancellation at the execution budget tractable.
package sandbox

import (
	"fmt"
	"strings"
	"unicode"
)

type tokKind uint8

const (
	tEOF tokKind = iota
	tIdent
	tNumber
	tString
	tPunct
)

type tok struct {
	kind tokKind
	text string
	line int
}

func (t tok) is(punct string) bool {
	return t.kind == tPunct && t.text == punct
}

func (t tok) word(kw string) bool {
	return t.kind == tIdent && t.text == kw
}

var punctuation = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "=", "!",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", ".",
}

// lex tokenizes a function body. Line comments (//) are skipped.
func lex(src string) ([]tok, error) {
	var toks []tok
	runes := []rune(src)
	i, n, line := 0, len(runes), 1

	for i < n {
		r := runes[i]
		switch {
		case r == '\n':
			line++
			i++
		case unicode.IsSpace(r):
			i++
		case r == '/' && i+1 < n && runes[i+1] == '/':
			for i < n && runes[i] != '\n' {
				i++
			}
		case r == '"' || r == '\'':
			quote := r
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < n {
				c := runes[j]
				if c == '\\' && j+1 < n {
					switch runes[j+1] {
					case 'n':
						sb.WriteRune('\n')
					case 't':
						sb.WriteRune('\t')
					case '\\', '\'', '"':
						sb.WriteRune(runes[j+1])
					default:
						sb.WriteRune(runes[j+1])
					}
					j += 2
					continue
				}
				if c == quote {
					closed = true
					j++
					break
				}
				if c == '\n' {
					break
				}
				sb.WriteRune(c)
				j++
			}
			if !closed {
				return nil, &CompileError{Line: line, Message: "unterminated string literal"}
			}
			toks = append(toks, tok{kind: tString, text: sb.String(), line: line})
			i = j
		case unicode.IsDigit(r):
			j := i + 1
			for j < n && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, tok{kind: tNumber, text: string(runes[i:j]), line: line})
			i = j
		case unicode.IsLetter(r) || r == '_' || r == '$':
			j := i + 1
			for j < n && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '$') {
				j++
			}
			toks = append(toks, tok{kind: tIdent, text: string(runes[i:j]), line: line})
			i = j
		default:
			matched := false
			rest := string(runes[i:])
			for _, p := range punctuation {
				if strings.HasPrefix(rest, p) {
					toks = append(toks, tok{kind: tPunct, text: p, line: line})
					i += len([]rune(p))
					matched = true
					break
				}
			}
			if !matched {
				return nil, &CompileError{Line: line, Message: fmt.Sprintf("unexpected character %q", string(r))}
			}
		}
	}

	toks = append(toks, tok{kind: tEOF, line: line})
	return toks, nil
}
