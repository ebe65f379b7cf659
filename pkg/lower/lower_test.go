package lower_test

import (
	"testing"

	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/ir"
	"github.com/penguin-lang/penguinc/pkg/lower"
	"github.com/penguin-lang/penguinc/pkg/parser"
	"github.com/penguin-lang/penguinc/pkg/sema"
)

func compileToIR(t *testing.T, src string) *ir.Program {
	t.Helper()
	sink := diag.NewSink()
	prog := parser.New([]byte(src), sink).Parse()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.All())
	}
	info := sema.NewAnalyzer(sink, "").Analyze(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected semantic errors: %v", sink.All())
	}
	return lower.New(info, sink).Lower()
}

func findProc(t *testing.T, prog *ir.Program, name string) ir.Procedure {
	t.Helper()
	for _, p := range prog.Procedures {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no procedure named %s, have: %v", name, prog.Procedures)
	return ir.Procedure{}
}

func countOp(body []ir.Instruction, op ir.Op) int {
	n := 0
	for _, i := range body {
		if i.Op == op {
			n++
		}
	}
	return n
}

func TestSimpleArithmeticLowersToStoreAndBinOp(t *testing.T) {
	prog := compileToIR(t, "int a = 5; int b = a + 3;")
	entry := findProc(t, prog, "__entry")
	if countOp(entry.Body, ir.OpStore) != 2 {
		t.Fatalf("expected two stores, got body: %v", entry.Body)
	}
	if countOp(entry.Body, ir.OpBinOp) != 1 {
		t.Fatalf("expected one binop, got body: %v", entry.Body)
	}
	last := entry.Body[len(entry.Body)-1]
	if !last.Op.IsTerminator() {
		t.Fatalf("procedure body must end in a terminator, got %v", last)
	}
}

func TestLoopLowersToLabeledBranchStructure(t *testing.T) {
	prog := compileToIR(t, "int n = 0; loop (n < 4) { n = n + 1; }")
	entry := findProc(t, prog, "__entry")
	if countOp(entry.Body, ir.OpLabel) != 2 {
		t.Fatalf("expected head+exit labels, got body: %v", entry.Body)
	}
	if countOp(entry.Body, ir.OpBranchIfZero) != 1 {
		t.Fatalf("expected one conditional branch, got body: %v", entry.Body)
	}
	if countOp(entry.Body, ir.OpJump) != 1 {
		t.Fatalf("expected one unconditional jump back to loop head, got body: %v", entry.Body)
	}
}

func TestIfElseLowersToTwoBranchTargets(t *testing.T) {
	prog := compileToIR(t, "int a = 1; if (a) { a = 2; } else { a = 3; }")
	entry := findProc(t, prog, "__entry")
	if countOp(entry.Body, ir.OpLabel) != 2 {
		t.Fatalf("expected else+end labels, got body: %v", entry.Body)
	}
}

func TestProcedureCallLowersArgsIntoParamSlotsAndReturns(t *testing.T) {
	prog := compileToIR(t, "procedure int sq(int x) { return x * x; } int r = sq(7);")
	sq := findProc(t, prog, "proc_sq")
	if len(sq.ParamAddrs) != 1 {
		t.Fatalf("expected one parameter address, got %v", sq.ParamAddrs)
	}
	if !sq.Returns {
		t.Fatal("sq should be marked as returning a value")
	}
	foundMulCall := false
	for _, i := range sq.Body {
		if i.Op == ir.OpCall && i.Target == "__mul_u16" {
			foundMulCall = true
		}
	}
	if !foundMulCall {
		t.Fatalf("expected x * x to lower through __mul_u16, got body: %v", sq.Body)
	}

	entry := findProc(t, prog, "__entry")
	foundCall := false
	for _, i := range entry.Body {
		if i.Op == ir.OpCall && i.Target == "proc_sq" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Fatalf("expected a call to proc_sq in entry, got body: %v", entry.Body)
	}
}

func TestOamFieldStoreLowersToIndirectStoreWithStrideFour(t *testing.T) {
	prog := compileToIR(t, "display.oam[0].x = 16;")
	entry := findProc(t, prog, "__entry")
	found := false
	for _, i := range entry.Body {
		if i.Op == ir.OpStoreIndirect {
			found = true
			if i.Stride != 4 {
				t.Fatalf("expected OAM field store stride 4, got %d", i.Stride)
			}
		}
	}
	if !found {
		t.Fatalf("expected a StoreIndirect instruction, got body: %v", entry.Body)
	}
}

func TestListElementStoreLowersToIndirectStoreWithStrideTwo(t *testing.T) {
	prog := compileToIR(t, "list scores = [1, 2, 3]; scores[1] = 9;")
	entry := findProc(t, prog, "__entry")
	found := false
	for _, i := range entry.Body {
		if i.Op == ir.OpStoreIndirect {
			found = true
			if i.Stride != 2 {
				t.Fatalf("expected list element store stride 2, got %d", i.Stride)
			}
		}
	}
	if !found {
		t.Fatalf("expected a StoreIndirect instruction, got body: %v", entry.Body)
	}
}

func TestLogicalAndNormalizesOperandsBeforeBitwiseAnd(t *testing.T) {
	prog := compileToIR(t, "int a = 2; int b = 0; int c = a and b;")
	entry := findProc(t, prog, "__entry")
	// normalization of each operand plus the final and emits at least two
	// Neq comparisons against zero (one per operand) and one BitAnd.
	neq := 0
	and := 0
	for _, i := range entry.Body {
		if i.Op == ir.OpBinOp && i.BinKind == ir.Neq {
			neq++
		}
		if i.Op == ir.OpBinOp && i.BinKind == ir.BitAnd {
			and++
		}
	}
	if neq < 2 {
		t.Fatalf("expected at least two 0/1 normalizations, got body: %v", entry.Body)
	}
	if and != 1 {
		t.Fatalf("expected exactly one BitAnd, got body: %v", entry.Body)
	}
}
