package sema_test

import (
	"testing"

	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/parser"
	"github.com/penguin-lang/penguinc/pkg/sema"
)

func analyze(t *testing.T, src string) (*sema.Info, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink()
	prog := parser.New([]byte(src), sink).Parse()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.All())
	}
	info := sema.NewAnalyzer(sink, "").Analyze(prog)
	return info, sink
}

func TestSimpleArithmeticTypes(t *testing.T) {
	_, sink := analyze(t, "int a = 5; int b = a + 3;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
}

func TestRedeclarationInSameScopeRejected(t *testing.T) {
	_, sink := analyze(t, "int a = 1; int a = 2;")
	if !sink.HasErrors() {
		t.Fatal("expected redeclaration error")
	}
	if sink.All()[0].Kind != diag.Redeclaration {
		t.Fatalf("expected redeclaration kind, got %s", sink.All()[0].Kind)
	}
}

func TestShadowingInInnerScopePermitted(t *testing.T) {
	_, sink := analyze(t, "int a = 1; if (a) { int a = 2; }")
	if sink.HasErrors() {
		t.Fatalf("shadowing should be permitted, got: %v", sink.All())
	}
}

func TestUnknownNameRejected(t *testing.T) {
	_, sink := analyze(t, "int a = b;")
	if !sink.HasErrors() || sink.All()[0].Kind != diag.UnknownName {
		t.Fatalf("expected unknown-name error, got %v", sink.All())
	}
}

func TestStringInitializerOfIntRejected(t *testing.T) {
	_, sink := analyze(t, `int x = "hello";`)
	if !sink.HasErrors() {
		t.Fatal("expected type-mismatch error")
	}
	if sink.All()[0].Kind != diag.TypeMismatch {
		t.Fatalf("expected type-mismatch kind, got %s", sink.All()[0].Kind)
	}
}

func TestArityMismatchRejected(t *testing.T) {
	_, sink := analyze(t, "procedure foo(int a) { return a; } foo();")
	if !sink.HasErrors() {
		t.Fatal("expected arity-mismatch error")
	}
	found := false
	for _, d := range sink.All() {
		if d.Kind == diag.ArityMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected arity-mismatch among diagnostics, got %v", sink.All())
	}
}

func TestForwardReferenceToProcedureResolves(t *testing.T) {
	_, sink := analyze(t, "int r = sq(7); procedure int sq(int x) { return x * x; }")
	if sink.HasErrors() {
		t.Fatalf("forward reference should resolve via the collection pass, got: %v", sink.All())
	}
}

func TestReturnOutsideProcedureRejected(t *testing.T) {
	_, sink := analyze(t, "return 5;")
	if !sink.HasErrors() || sink.All()[0].Kind != diag.ReturnOutsideProcedure {
		t.Fatalf("expected return-outside-procedure, got %v", sink.All())
	}
}

func TestUnreachableStatementAfterReturnWarns(t *testing.T) {
	_, sink := analyze(t, "procedure int f() { return 0; int a = 1; } int r = f();")
	if sink.HasErrors() {
		t.Fatalf("unreachable code is a warning, not an error, by default: %v", sink.All())
	}
	found := false
	for _, d := range sink.All() {
		if d.Kind == diag.UnreachableCode && d.Severity == diag.Warning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unreachable-code warning, got %v", sink.All())
	}
}

func TestOutOfRangeIntegerLiteralRejected(t *testing.T) {
	_, sink := analyze(t, "int a = 65536;")
	if !sink.HasErrors() || sink.All()[0].Kind != diag.TypeMismatch {
		t.Fatalf("expected type-mismatch for out-of-range literal, got %v", sink.All())
	}
}

func TestReservedNamespaceRootNotRedeclarable(t *testing.T) {
	_, sink := analyze(t, "int display = 5;")
	if !sink.HasErrors() || sink.All()[0].Kind != diag.Redeclaration {
		t.Fatalf("expected redeclaration for reserved root, got %v", sink.All())
	}
}

func TestOamFieldAssignment(t *testing.T) {
	_, sink := analyze(t, "display.oam[0].x = 16;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
}

func TestInputButtonReadableInt(t *testing.T) {
	_, sink := analyze(t, "int pressed = input.Right;")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.All())
	}
}
