package ast

import (
	"fmt"
	"strings"
)

// Print renders a Program back to penguin source text. It is the
// pretty-printer half of the round-trip property: Parse(Print(Parse(src)))
// must reproduce the same AST (up to span information, which Print cannot
// recover and re-parsing recomputes from scratch).
func Print(p *Program) string {
	var b strings.Builder
	for _, s := range p.Statements {
		printStmt(&b, s, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("    ")
	}
}

func printBlock(b *strings.Builder, stmts []Statement, depth int) {
	b.WriteString("{\n")
	for _, s := range stmts {
		printStmt(b, s, depth+1)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

func printStmt(b *strings.Builder, s Statement, depth int) {
	indent(b, depth)
	switch n := s.(type) {
	case *Declaration:
		fmt.Fprintf(b, "%s %s;\n", n.Type, n.Name)
	case *Initialization:
		fmt.Fprintf(b, "%s %s = %s;\n", n.Type, n.Name, printExpr(n.Expr))
	case *ListInit:
		parts := make([]string, len(n.Exprs))
		for i, e := range n.Exprs {
			parts[i] = printExpr(e)
		}
		fmt.Fprintf(b, "list %s = [%s];\n", n.Name, strings.Join(parts, ", "))
	case *Assignment:
		fmt.Fprintf(b, "%s = %s;\n", printExpr(n.Lvalue), printExpr(n.Expr))
	case *If:
		fmt.Fprintf(b, "if (%s) ", printExpr(n.Cond))
		printBlock(b, n.Then, depth)
		if n.Else != nil {
			indent(b, depth)
			b.WriteString("else ")
			printBlock(b, n.Else, depth)
		}
	case *Loop:
		fmt.Fprintf(b, "loop (%s) ", printExpr(n.Cond))
		printBlock(b, n.Body, depth)
	case *ProcDecl:
		rt := ""
		if n.ReturnType != nil {
			rt = string(*n.ReturnType) + " "
		}
		params := make([]string, len(n.Params))
		for i, p := range n.Params {
			params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
		}
		fmt.Fprintf(b, "procedure %s%s(%s) ", rt, n.Name, strings.Join(params, ", "))
		printBlock(b, n.Body, depth)
	case *Return:
		if n.Expr != nil {
			fmt.Fprintf(b, "return %s;\n", printExpr(n.Expr))
		} else {
			b.WriteString("return;\n")
		}
	case *ProcCallStmt:
		fmt.Fprintf(b, "%s;\n", printExpr(n.Call))
	default:
		fmt.Fprintf(b, "/* unknown statement %T */\n", n)
	}
}

var binaryOpText = map[BinaryOp]string{
	BinMul: "*", BinAdd: "+", BinSub: "-", BinShl: "<<", BinShr: ">>",
	BinLt: "<", BinGt: ">", BinLe: "<=", BinGe: ">=", BinEq: "==", BinNeq: "!=",
	BinBitAnd: "&", BinBitXor: "^", BinBitOr: "|",
	BinLogicalAnd: "and", BinLogicalOr: "or", BinLogicalXor: "xor",
}

var unaryOpText = map[UnaryOp]string{
	UnaryNeg: "-", UnaryPos: "+", UnaryBitNot: "~", UnaryLogicalNot: "not ",
}

func printExpr(e Expression) string {
	switch n := e.(type) {
	case *Literal:
		switch n.Kind {
		case StringLit:
			return "\"" + n.Value + "\""
		default:
			return n.Value
		}
	case *Name:
		return strings.Join(n.Path, ".")
	case *ListAccess:
		var b strings.Builder
		b.WriteString(n.Name)
		for _, idx := range n.Indices {
			fmt.Fprintf(&b, "[%s]", printExpr(idx))
		}
		return b.String()
	case *AttrAccess:
		return fmt.Sprintf("%s.%s", printExpr(n.Base), n.Attr)
	case *ProcCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = printExpr(a)
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))
	case *Unary:
		return fmt.Sprintf("%s%s", unaryOpText[n.Op], printExpr(n.Expr))
	case *Binary:
		return fmt.Sprintf("%s %s %s", printExpr(n.Lhs), binaryOpText[n.Op], printExpr(n.Rhs))
	case *Paren:
		return fmt.Sprintf("(%s)", printExpr(n.Inner))
	default:
		return fmt.Sprintf("/* unknown expr %T */", n)
	}
}
