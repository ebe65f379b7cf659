// Package lexer turns a penguin source buffer into a token stream.
//
// Unlike the teacher's jack/vm/asm parsers, which delegate tokenizing to the
// goparsec combinator library, the penguin lexer is hand-rolled: the spec's
// testable properties require byte-exact spans on every token and a single
// fixed resynchronization rule on an unrecognized byte, neither of which
// goparsec exposes a supported way to obtain (see DESIGN.md).
package lexer

import (
	"strings"

	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/token"
)

// Lexer scans src one byte at a time, tracking line/column for span
// reporting. It is restartable-by-index: All() drives it to completion and
// returns every token plus an implicit trailing EOF.
type Lexer struct {
	src  []byte
	pos  int // byte offset of the next unread byte
	line int
	col  int
	sink *diag.Sink
}

// New returns a Lexer over src that reports unrecognized bytes to sink.
func New(src []byte, sink *diag.Sink) *Lexer {
	return &Lexer{src: src, pos: 0, line: 1, col: 1, sink: sink}
}

// All drives the lexer to completion, returning every token including a
// final token.EOF. Lexical errors are reported to the sink; scanning always
// reaches EOF, resynchronizing by one byte on any unrecognized input.
func (l *Lexer) All() []token.Token {
	var toks []token.Token
	for {
		t := l.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) here() (line, col int) { return l.line, l.col }

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool  { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isAlnum(c byte) bool  { return isAlpha(c) || isDigit(c) }
func isHexDig(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }

func (l *Lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// Next scans and returns the single next token, advancing the lexer.
func (l *Lexer) Next() token.Token {
	l.skipTrivia()

	startLine, startCol := l.here()
	startByte := l.pos

	if l.pos >= len(l.src) {
		return l.tok(token.EOF, "", startByte, startLine, startCol)
	}

	c := l.peek()
	switch {
	case isAlpha(c):
		return l.lexIdent(startByte, startLine, startCol)
	case isDigit(c):
		return l.lexNumber(startByte, startLine, startCol)
	case c == '"':
		return l.lexString(startByte, startLine, startCol)
	}

	// Two-byte operators must be tried before their one-byte prefixes.
	two := map[string]token.Kind{
		"<<": token.Shl, ">>": token.Shr, "<=": token.Le, ">=": token.Ge,
		"==": token.EqEq, "!=": token.NotEq,
	}
	if l.pos+1 < len(l.src) {
		cand := string(l.src[l.pos : l.pos+2])
		if kind, ok := two[cand]; ok {
			l.advance()
			l.advance()
			return l.tok(kind, cand, startByte, startLine, startCol)
		}
	}

	one := map[byte]token.Kind{
		'(': token.LParen, ')': token.RParen, '{': token.LBrace, '}': token.RBrace,
		'[': token.LBracket, ']': token.RBracket, ',': token.Comma, ';': token.Semi,
		'.': token.Dot, '=': token.Assign, '+': token.Plus, '-': token.Minus,
		'*': token.Star, '/': token.Slash, '&': token.Amp, '|': token.Pipe,
		'^': token.Caret, '~': token.Tilde, '<': token.Lt, '>': token.Gt,
	}
	if kind, ok := one[c]; ok {
		l.advance()
		return l.tok(kind, string(c), startByte, startLine, startCol)
	}

	// Unrecognized byte: report and resynchronize by consuming exactly one
	// byte, per the spec's lexer resync invariant.
	l.advance()
	span := l.spanFrom(startByte, startLine, startCol)
	l.sink.Errorf(diag.LexError, span, "unrecognized byte %q", c)
	return token.Token{Kind: token.Invalid, Lexeme: string(c), Span: span}
}

func (l *Lexer) lexIdent(startByte, startLine, startCol int) token.Token {
	for l.pos < len(l.src) && isAlnum(l.peek()) {
		l.advance()
	}
	text := string(l.src[startByte:l.pos])
	if kind, ok := token.Lookup(text); ok {
		return l.tok(kind, text, startByte, startLine, startCol)
	}
	return l.tok(token.Ident, text, startByte, startLine, startCol)
}

func (l *Lexer) lexNumber(startByte, startLine, startCol int) token.Token {
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDig(l.peek()) {
			l.advance()
		}
		text := string(l.src[startByte:l.pos])
		return l.tok(token.IntLiteral, text, startByte, startLine, startCol)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && (l.peek() == '0' || l.peek() == '1') {
			l.advance()
		}
		text := string(l.src[startByte:l.pos])
		return l.tok(token.IntLiteral, text, startByte, startLine, startCol)
	}
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	text := string(l.src[startByte:l.pos])
	return l.tok(token.IntLiteral, text, startByte, startLine, startCol)
}

func (l *Lexer) lexString(startByte, startLine, startCol int) token.Token {
	l.advance() // opening quote
	var sb strings.Builder
	for l.pos < len(l.src) && l.peek() != '"' && l.peek() != '\n' {
		sb.WriteByte(l.advance())
	}
	if l.pos >= len(l.src) || l.peek() != '"' {
		span := l.spanFrom(startByte, startLine, startCol)
		l.sink.Errorf(diag.LexError, span, "unterminated string literal")
		return token.Token{Kind: token.StringLiteral, Lexeme: sb.String(), Span: span}
	}
	l.advance() // closing quote
	return l.tok(token.StringLiteral, sb.String(), startByte, startLine, startCol)
}

func (l *Lexer) spanFrom(startByte, startLine, startCol int) diag.Span {
	return diag.Span{Start: startByte, End: l.pos, Line: startLine, Col: startCol, EndLine: l.line, EndCol: l.col}
}

func (l *Lexer) tok(kind token.Kind, lexeme string, startByte, startLine, startCol int) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.spanFrom(startByte, startLine, startCol)}
}
