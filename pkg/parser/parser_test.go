package parser_test

import (
	"testing"

	"github.com/penguin-lang/penguinc/pkg/ast"
	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/parser"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	prog := parser.New([]byte(src), sink).Parse()
	return prog, sink
}

func TestSimpleDeclarationAndInitialization(t *testing.T) {
	prog, sink := parse(t, "int a = 5; int b = a + 3;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	init, ok := prog.Statements[1].(*ast.Initialization)
	if !ok {
		t.Fatalf("expected *ast.Initialization, got %T", prog.Statements[1])
	}
	bin, ok := init.Expr.(*ast.Binary)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("expected a + 3 binary add, got %#v", init.Expr)
	}
}

func TestPrecedenceTable(t *testing.T) {
	// '*' binds tighter than '+', which binds tighter than 'and'.
	prog, sink := parse(t, "int x = 1 + 2 * 3 and 4;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	init := prog.Statements[0].(*ast.Initialization)
	top, ok := init.Expr.(*ast.Binary)
	if !ok || top.Op != ast.BinLogicalAnd {
		t.Fatalf("expected top-level 'and', got %#v", init.Expr)
	}
	add, ok := top.Lhs.(*ast.Binary)
	if !ok || add.Op != ast.BinAdd {
		t.Fatalf("expected '+' under 'and', got %#v", top.Lhs)
	}
	mul, ok := add.Rhs.(*ast.Binary)
	if !ok || mul.Op != ast.BinMul {
		t.Fatalf("expected '*' nested under '+', got %#v", add.Rhs)
	}
}

func TestLeftAssociativity(t *testing.T) {
	prog, _ := parse(t, "int x = 10 - 3 - 2;")
	init := prog.Statements[0].(*ast.Initialization)
	top := init.Expr.(*ast.Binary)
	// (10 - 3) - 2, not 10 - (3 - 2)
	if _, ok := top.Lhs.(*ast.Binary); !ok {
		t.Fatalf("expected left-nested subtraction, got %#v", top.Lhs)
	}
	if lit, ok := top.Rhs.(*ast.Literal); !ok || lit.Value != "2" {
		t.Fatalf("expected rhs literal 2, got %#v", top.Rhs)
	}
}

func TestIfElseAndLoop(t *testing.T) {
	src := `
	int n = 0;
	loop (n < 4) {
		n = n + 1;
	}
	if (n == 4) {
		n = 0;
	} else {
		n = 1;
	}`
	prog, sink := parse(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 top-level statements, got %d", len(prog.Statements))
	}
	loop, ok := prog.Statements[1].(*ast.Loop)
	if !ok || len(loop.Body) != 1 {
		t.Fatalf("expected loop with one body statement, got %#v", prog.Statements[1])
	}
	ifStmt, ok := prog.Statements[2].(*ast.If)
	if !ok || ifStmt.Else == nil {
		t.Fatalf("expected if/else, got %#v", prog.Statements[2])
	}
}

func TestProcDeclAndCallAndReturn(t *testing.T) {
	src := `procedure int sq(int x) { return x * x; } int r = sq(7);`
	prog, sink := parse(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	proc, ok := prog.Statements[0].(*ast.ProcDecl)
	if !ok || proc.Name != "sq" || len(proc.Params) != 1 {
		t.Fatalf("unexpected proc decl: %#v", prog.Statements[0])
	}
	ret, ok := proc.Body[0].(*ast.Return)
	if !ok || ret.Expr == nil {
		t.Fatalf("expected return expr, got %#v", proc.Body[0])
	}
	init := prog.Statements[1].(*ast.Initialization)
	call, ok := init.Expr.(*ast.ProcCall)
	if !ok || call.Name != "sq" || len(call.Args) != 1 {
		t.Fatalf("expected call to sq(7), got %#v", init.Expr)
	}
}

func TestEmptyProcedureBodyAccepted(t *testing.T) {
	_, sink := parse(t, "procedure noop() { }")
	if sink.HasErrors() {
		t.Fatalf("empty procedure body should be accepted, got: %v", sink.All())
	}
}

func TestEmptyProgramRejected(t *testing.T) {
	_, sink := parse(t, "")
	if !sink.HasErrors() {
		t.Fatal("expected empty program to be rejected as parse-error")
	}
	if sink.All()[0].Kind != diag.ParseError {
		t.Fatalf("expected parse-error kind, got %s", sink.All()[0].Kind)
	}
}

func TestSingleTokenRecoveryAtStatementBoundary(t *testing.T) {
	// The first statement is malformed (missing ';'), but the second,
	// unrelated statement should still be recovered after resync.
	src := "int a = 5 int b = 6;"
	prog, sink := parse(t, src)
	if !sink.HasErrors() {
		t.Fatal("expected a parse-error for the missing semicolon")
	}
	var foundB bool
	for _, s := range prog.Statements {
		if init, ok := s.(*ast.Initialization); ok && init.Name == "b" {
			foundB = true
		}
	}
	if !foundB {
		t.Fatalf("expected recovery to still parse 'int b = 6;', got %#v", prog.Statements)
	}
}

func TestOamAndDisplayAttrAccessPaths(t *testing.T) {
	src := `display.oam[0].x = 16;`
	prog, sink := parse(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
	assign, ok := prog.Statements[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("expected assignment, got %#v", prog.Statements[0])
	}
	attr, ok := assign.Lvalue.(*ast.AttrAccess)
	if !ok || attr.Attr != "x" {
		t.Fatalf("expected AttrAccess on .x, got %#v", assign.Lvalue)
	}
	listAccess, ok := attr.Base.(*ast.ListAccess)
	if !ok || listAccess.Name != "display.oam" {
		t.Fatalf("expected ListAccess on display.oam, got %#v", attr.Base)
	}
}

func TestRoundTripPrintThenParse(t *testing.T) {
	src := "int a = 5;\nint b = a + 3;\n"
	prog1, sink1 := parse(t, src)
	if sink1.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink1.All())
	}
	printed := ast.Print(prog1)
	prog2, sink2 := parse(t, printed)
	if sink2.HasErrors() {
		t.Fatalf("unexpected errors re-parsing printed source: %v", sink2.All())
	}
	if len(prog1.Statements) != len(prog2.Statements) {
		t.Fatalf("round-trip statement count mismatch: %d vs %d", len(prog1.Statements), len(prog2.Statements))
	}
}
