// Package parser implements a top-down recursive-descent parser over the
// penguin grammar, producing an *ast.Program. Like pkg/lexer, this is a
// hand-rolled replacement for the teacher's goparsec-based parsers; see
// DESIGN.md for why the combinator library was dropped.
package parser

import (
	"github.com/penguin-lang/penguinc/pkg/ast"
	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/lexer"
	"github.com/penguin-lang/penguinc/pkg/token"
)

// Parser consumes a flat token slice (produced eagerly by the lexer) and
// builds an AST, reporting errors to a shared diag.Sink. It never aborts on
// the first error: statement boundaries (`;`, `}`, or a new statement
// keyword) are synchronization points it recovers at.
type Parser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink
}

// New returns a Parser over src, lexing it fully up front.
func New(src []byte, sink *diag.Sink) *Parser {
	toks := lexer.New(src, sink).All()
	return &Parser{toks: toks, sink: sink}
}

// Parse consumes the whole token stream and returns the resulting Program.
// An empty program (no statements at all) is rejected with a parse-error,
// per the spec's edge cases.
func (p *Parser) Parse() *ast.Program {
	startSpan := p.cur().Span
	var out []ast.Statement
	for !p.atEnd() {
		if s := p.parseStatement(); s != nil {
			out = append(out, s)
		}
	}
	end := p.prevEndSpan(startSpan)
	if len(out) == 0 {
		p.sink.Errorf(diag.ParseError, startSpan, "empty program: expected at least one statement")
	}
	return &ast.Program{Statements: out, Span: diag.Span{Start: startSpan.Start, End: end.End, Line: startSpan.Line, Col: startSpan.Col, EndLine: end.EndLine, EndCol: end.EndCol}}
}

func (p *Parser) prevEndSpan(fallback diag.Span) diag.Span {
	if p.pos == 0 {
		return fallback
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *Parser) atEnd() bool { return p.cur().Kind == token.EOF }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// expect consumes a token of kind k, or reports a parse-error and leaves the
// cursor in place (letting the caller's recovery logic take over).
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	p.sink.Errorf(diag.ParseError, p.cur().Span, "expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	return token.Token{}, false
}

// synchronize skips tokens until a statement boundary: a semicolon (which it
// also consumes), a closing brace, EOF, or the first token of a new
// statement keyword.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.cur().Kind == token.Semi {
			p.advance()
			return
		}
		if p.cur().Kind == token.RBrace {
			return
		}
		switch p.cur().Kind {
		case token.KwIf, token.KwElse, token.KwLoop, token.KwProcedure, token.KwReturn,
			token.KwList, token.KwInt, token.KwSprite, token.KwTileset, token.KwTilemap:
			return
		}
		p.advance()
	}
}

func isTypeKeyword(k token.Kind) bool {
	switch k {
	case token.KwInt, token.KwSprite, token.KwTileset, token.KwTilemap:
		return true
	}
	return false
}

func typeNameOf(k token.Kind) ast.TypeName {
	switch k {
	case token.KwInt:
		return ast.TypeInt
	case token.KwSprite:
		return ast.TypeSprite
	case token.KwTileset:
		return ast.TypeTileset
	case token.KwTilemap:
		return ast.TypeTilemap
	}
	return ast.TypeName(k.String())
}

// parseStatement parses one top-level-or-nested statement, recovering to
// the next statement boundary on error so that a single mistake does not
// abort the whole parse.
func (p *Parser) parseStatement() ast.Statement {
	start := p.cur()

	switch {
	case isTypeKeyword(start.Kind):
		return p.parseDeclOrInit()
	case start.Kind == token.KwList:
		return p.parseListInit()
	case start.Kind == token.KwIf:
		return p.parseIf()
	case start.Kind == token.KwLoop:
		return p.parseLoop()
	case start.Kind == token.KwProcedure:
		return p.parseProcDecl()
	case start.Kind == token.KwReturn:
		return p.parseReturn()
	default:
		return p.parseAssignmentOrCall()
	}
}

func (p *Parser) parseBlock() []ast.Statement {
	if _, ok := p.expect(token.LBrace); !ok {
		p.synchronize()
		return nil
	}
	var stmts []ast.Statement
	for !p.check(token.RBrace) && !p.atEnd() {
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(token.RBrace)
	return stmts
}

func (p *Parser) parseDeclOrInit() ast.Statement {
	start := p.advance() // the type keyword
	typ := typeNameOf(start.Kind)
	name, ok := p.expect(token.Ident)
	if !ok {
		p.synchronize()
		return nil
	}
	if p.match(token.Assign) {
		expr := p.parseExpression()
		semi, _ := p.expect(token.Semi)
		end := semi.Span
		if end.Zero() {
			end = p.cur().Span
		}
		return &ast.Initialization{Type: typ, Name: name.Lexeme, Expr: expr, Span: span(start.Span, end)}
	}
	semi, _ := p.expect(token.Semi)
	end := semi.Span
	if end.Zero() {
		end = name.Span
	}
	return &ast.Declaration{Type: typ, Name: name.Lexeme, Span: span(start.Span, end)}
}

func (p *Parser) parseListInit() ast.Statement {
	start := p.advance() // 'list'
	name, ok := p.expect(token.Ident)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.Assign); !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.LBracket); !ok {
		p.synchronize()
		return nil
	}
	var exprs []ast.Expression
	if !p.check(token.RBracket) {
		exprs = append(exprs, p.parseExpression())
		for p.match(token.Comma) {
			exprs = append(exprs, p.parseExpression())
		}
	}
	p.expect(token.RBracket)
	semi, _ := p.expect(token.Semi)
	return &ast.ListInit{Name: name.Lexeme, Exprs: exprs, Span: span(start.Span, semi.Span)}
}

func (p *Parser) parseIf() ast.Statement {
	start := p.advance() // 'if'
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	thenBlock := p.parseBlock()
	var elseBlock []ast.Statement
	end := p.prevEndSpan(start.Span)
	if p.match(token.KwElse) {
		elseBlock = p.parseBlock()
		end = p.prevEndSpan(start.Span)
	}
	return &ast.If{Cond: cond, Then: thenBlock, Else: elseBlock, Span: span(start.Span, end)}
}

func (p *Parser) parseLoop() ast.Statement {
	start := p.advance() // 'loop'
	p.expect(token.LParen)
	cond := p.parseExpression()
	p.expect(token.RParen)
	body := p.parseBlock()
	end := p.prevEndSpan(start.Span)
	return &ast.Loop{Cond: cond, Body: body, Span: span(start.Span, end)}
}

func (p *Parser) parseProcDecl() ast.Statement {
	start := p.advance() // 'procedure'
	var retType *ast.TypeName
	if isTypeKeyword(p.cur().Kind) {
		t := typeNameOf(p.advance().Kind)
		retType = &t
	}
	name, ok := p.expect(token.Ident)
	if !ok {
		p.synchronize()
		return nil
	}
	p.expect(token.LParen)
	var params []ast.Param
	if !p.check(token.RParen) {
		params = append(params, p.parseParam())
		for p.match(token.Comma) {
			params = append(params, p.parseParam())
		}
	}
	p.expect(token.RParen)
	body := p.parseBlock()
	end := p.prevEndSpan(start.Span)
	return &ast.ProcDecl{ReturnType: retType, Name: name.Lexeme, Params: params, Body: body, Span: span(start.Span, end)}
}

func (p *Parser) parseParam() ast.Param {
	if !isTypeKeyword(p.cur().Kind) {
		p.sink.Errorf(diag.ParseError, p.cur().Span, "expected parameter type, got %s %q", p.cur().Kind, p.cur().Lexeme)
		return ast.Param{}
	}
	t := typeNameOf(p.advance().Kind)
	name, _ := p.expect(token.Ident)
	return ast.Param{Type: t, Name: name.Lexeme}
}

func (p *Parser) parseReturn() ast.Statement {
	start := p.advance() // 'return'
	if p.check(token.Semi) {
		semi := p.advance()
		return &ast.Return{Expr: nil, Span: span(start.Span, semi.Span)}
	}
	expr := p.parseExpression()
	semi, _ := p.expect(token.Semi)
	return &ast.Return{Expr: expr, Span: span(start.Span, semi.Span)}
}

// parseAssignmentOrCall disambiguates `lvalue = expr;` and `call(...);` (the
// grammar's `call ;` form) by parsing a full expression first and then
// checking for '='. A bare name followed by ';' is not a call and is
// reported as an invalid statement.
func (p *Parser) parseAssignmentOrCall() ast.Statement {
	start := p.cur()
	lhs := p.parseExpression()
	if lhs == nil {
		p.synchronize()
		return nil
	}
	if p.match(token.Assign) {
		rhs := p.parseExpression()
		semi, _ := p.expect(token.Semi)
		return &ast.Assignment{Lvalue: lhs, Expr: rhs, Span: span(start.Span, semi.Span)}
	}
	semi, _ := p.expect(token.Semi)
	if call, ok := lhs.(*ast.ProcCall); ok {
		return &ast.ProcCallStmt{Call: call, Span: span(start.Span, semi.Span)}
	}
	// An expression-statement that is neither a call nor an assignment is
	// not part of the grammar; report but keep going.
	p.sink.Errorf(diag.ParseError, start.Span, "expression is not a valid statement")
	return nil
}

func span(start, end diag.Span) diag.Span {
	if end.Zero() {
		return start
	}
	return diag.Span{Start: start.Start, End: end.End, Line: start.Line, Col: start.Col, EndLine: end.EndLine, EndCol: end.EndCol}
}

// --- expression parsing: precedence climbing ----------------------------
//
// Tightest to loosest, per §4.2: unary, '*', additive, shifts, relational,
// equality, '&', '^', '|', 'and', 'or', 'xor'. All binary operators are
// left-associative. This fixes the grammar's documented ambiguity between a
// combined `expr op expr` production and per-operator alternatives: only
// this table is implemented (see spec.md §9).

func (p *Parser) parseExpression() ast.Expression {
	return p.parseLogicalXor()
}

func (p *Parser) parseLogicalXor() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.KwXor: ast.BinLogicalXor}, (*Parser).parseLogicalOr)
}

func (p *Parser) parseLogicalOr() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.KwOr: ast.BinLogicalOr}, (*Parser).parseLogicalAnd)
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.KwAnd: ast.BinLogicalAnd}, (*Parser).parseBitOr)
}

func (p *Parser) parseBitOr() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Pipe: ast.BinBitOr}, (*Parser).parseBitXor)
}

func (p *Parser) parseBitXor() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Caret: ast.BinBitXor}, (*Parser).parseBitAnd)
}

func (p *Parser) parseBitAnd() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Amp: ast.BinBitAnd}, (*Parser).parseEquality)
}

func (p *Parser) parseEquality() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.EqEq: ast.BinEq, token.NotEq: ast.BinNeq}, (*Parser).parseRelational)
}

func (p *Parser) parseRelational() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{
		token.Lt: ast.BinLt, token.Gt: ast.BinGt, token.Le: ast.BinLe, token.Ge: ast.BinGe,
	}, (*Parser).parseShift)
}

func (p *Parser) parseShift() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Shl: ast.BinShl, token.Shr: ast.BinShr}, (*Parser).parseAdditive)
}

func (p *Parser) parseAdditive() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Plus: ast.BinAdd, token.Minus: ast.BinSub}, (*Parser).parseMul)
}

func (p *Parser) parseMul() ast.Expression {
	return p.parseLeftAssoc(map[token.Kind]ast.BinaryOp{token.Star: ast.BinMul}, (*Parser).parseUnary)
}

func (p *Parser) parseLeftAssoc(ops map[token.Kind]ast.BinaryOp, next func(*Parser) ast.Expression) ast.Expression {
	lhs := next(p)
	for {
		op, ok := ops[p.cur().Kind]
		if !ok {
			return lhs
		}
		p.advance()
		rhs := next(p)
		lhs = &ast.Binary{Op: op, Lhs: lhs, Rhs: rhs, Span: span(lhs.SpanOf(), rhs.SpanOf())}
	}
}

func (p *Parser) parseUnary() ast.Expression {
	start := p.cur()
	var op ast.UnaryOp
	switch start.Kind {
	case token.Minus:
		op = ast.UnaryNeg
	case token.Plus:
		op = ast.UnaryPos
	case token.Tilde:
		op = ast.UnaryBitNot
	case token.KwNot:
		op = ast.UnaryLogicalNot
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand := p.parseUnary()
	return &ast.Unary{Op: op, Expr: operand, Span: span(start.Span, operand.SpanOf())}
}

func (p *Parser) parsePostfix() ast.Expression {
	base := p.parsePrimary()
	for {
		switch {
		case p.check(token.LBracket):
			base = p.continueListAccess(base)
		case p.check(token.Dot):
			base = p.continueAttrAccess(base)
		default:
			return base
		}
	}
}

func (p *Parser) continueListAccess(base ast.Expression) ast.Expression {
	name, ok := base.(*ast.Name)
	start := base.SpanOf()
	var baseName string
	if ok && len(name.Path) == 1 {
		baseName = name.Path[0]
	}
	var indices []ast.Expression
	for p.match(token.LBracket) {
		indices = append(indices, p.parseExpression())
		p.expect(token.RBracket)
	}
	end := p.prevEndSpan(start)
	if baseName != "" {
		return &ast.ListAccess{Name: baseName, Indices: indices, Span: span(start, end)}
	}
	// Indexing something other than a bare name (e.g. `display.oam[i]`) is
	// represented as a ListAccess over the flattened dotted-path name, which
	// sema resolves against the builtin table.
	return &ast.ListAccess{Name: flattenName(base), Indices: indices, Span: span(start, end)}
}

func (p *Parser) continueAttrAccess(base ast.Expression) ast.Expression {
	start := base.SpanOf()
	p.advance() // '.'
	attrTok, ok := p.expect(token.Ident)
	if !ok {
		return base
	}
	// `a.b.c()` is a procedure call on a dotted path (e.g. control.LCDon()).
	if p.check(token.LParen) {
		call := p.finishCall(flattenName(base) + "." + attrTok.Lexeme, start)
		return call
	}
	return &ast.AttrAccess{Base: base, Attr: attrTok.Lexeme, Span: span(start, attrTok.Span)}
}

func flattenName(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.Name:
		out := n.Path[0]
		for _, p := range n.Path[1:] {
			out += "." + p
		}
		return out
	case *ast.AttrAccess:
		return flattenName(n.Base) + "." + n.Attr
	default:
		return ""
	}
}

func (p *Parser) finishCall(name string, start diag.Span) ast.Expression {
	p.expect(token.LParen)
	var args []ast.Expression
	if !p.check(token.RParen) {
		args = append(args, p.parseExpression())
		for p.match(token.Comma) {
			args = append(args, p.parseExpression())
		}
	}
	closeTok, _ := p.expect(token.RParen)
	return &ast.ProcCall{Name: name, Args: args, Span: span(start, closeTok.Span)}
}

func (p *Parser) parsePrimary() ast.Expression {
	start := p.cur()
	switch start.Kind {
	case token.IntLiteral:
		p.advance()
		kind := ast.DecimalLiteral
		switch {
		case len(start.Lexeme) > 1 && (start.Lexeme[1] == 'x' || start.Lexeme[1] == 'X'):
			kind = ast.HexLiteral
		case len(start.Lexeme) > 1 && (start.Lexeme[1] == 'b' || start.Lexeme[1] == 'B'):
			kind = ast.BinaryLiteral
		}
		return &ast.Literal{Kind: kind, Value: start.Lexeme, Span: start.Span}
	case token.StringLiteral:
		p.advance()
		return &ast.Literal{Kind: ast.StringLit, Value: start.Lexeme, Span: start.Span}
	case token.Ident:
		p.advance()
		if p.check(token.LParen) {
			return p.finishCall(start.Lexeme, start.Span)
		}
		return &ast.Name{Path: []string{start.Lexeme}, Span: start.Span}
	case token.LParen:
		p.advance()
		inner := p.parseExpression()
		closeTok, _ := p.expect(token.RParen)
		return &ast.Paren{Inner: inner, Span: span(start.Span, closeTok.Span)}
	default:
		p.sink.Errorf(diag.ParseError, start.Span, "unexpected token %s %q in expression", start.Kind, start.Lexeme)
		// Return a placeholder literal so callers can keep building a
		// (partially wrong) tree instead of a nil panic; sema will mark its
		// type Error and suppress cascades.
		return &ast.Literal{Kind: ast.DecimalLiteral, Value: "0", Span: start.Span}
	}
}
