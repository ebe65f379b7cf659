package codegen_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/penguin-lang/penguinc/pkg/codegen"
	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/lower"
	"github.com/penguin-lang/penguinc/pkg/parser"
	"github.com/penguin-lang/penguinc/pkg/sema"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	return generateInDir(t, "", src)
}

func generateInDir(t *testing.T, sourceDir, src string) string {
	t.Helper()
	sink := diag.NewSink()
	prog := parser.New([]byte(src), sink).Parse()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.All())
	}
	info := sema.NewAnalyzer(sink, sourceDir).Analyze(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected semantic errors: %v", sink.All())
	}
	irProg := lower.New(info, sink).Lower()
	if sink.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", sink.All())
	}
	out := codegen.New(irProg, info.NextWRAM, sink).Generate()
	if sink.HasErrors() {
		t.Fatalf("unexpected codegen errors: %v", sink.All())
	}
	return out
}

func TestHeaderStartupAndEntrySectionsAreEmitted(t *testing.T) {
	out := generate(t, "int a = 5;")
	for _, want := range []string{
		`SECTION "Header", ROM0[$0100]`,
		"jp __startup",
		"__startup:",
		"call __entry",
		"__mul_u16:",
		"SECTION \"__entry\", ROM0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestProcedureCallEmitsCallToMulHelper(t *testing.T) {
	out := generate(t, "procedure int sq(int x) { return x * x; } int r = sq(7);")
	if !strings.Contains(out, "call __mul_u16") {
		t.Fatalf("expected a call to __mul_u16, got:\n%s", out)
	}
	if !strings.Contains(out, "call proc_sq") {
		t.Fatalf("expected a call to proc_sq, got:\n%s", out)
	}
}

func TestOamFieldStoreTargetsComputedAddress(t *testing.T) {
	out := generate(t, "display.oam[0].x = 16;")
	if !strings.Contains(out, "ld [hl], a") {
		t.Fatalf("expected an indirect store through hl, got:\n%s", out)
	}
}

func TestMultipleComparisonsDoNotCollideOnLabels(t *testing.T) {
	out := generate(t, `
	int n = 0;
	loop (n < 4) {
		n = n + 1;
	}
	if (n == 4) {
		n = 0;
	} else {
		n = 1;
	}`)
	for _, illegal := range []string{"sbc hl, bc", "hl, [$", "bc, [$", "de, [$", "], hl"} {
		if strings.Contains(out, illegal) {
			t.Fatalf("expected no illegal 16-bit memory access %q, got:\n%s", illegal, out)
		}
	}
	falseLabels := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "__cmp_false_") && strings.HasSuffix(line, ":") {
			if falseLabels[line] {
				t.Fatalf("duplicate label %q emitted, RGBDS would reject this as a redefinition:\n%s", line, out)
			}
			falseLabels[line] = true
		}
	}
	if len(falseLabels) != 2 {
		t.Fatalf("expected exactly 2 distinct __cmp_false labels (one per comparison), got %d:\n%s", len(falseLabels), out)
	}
}

func TestAssetsSectionEmitsIncbin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "player.2bpp"), []byte{0}, 0o644); err != nil {
		t.Fatalf("failed to write fixture asset: %v", err)
	}
	out := generateInDir(t, dir, `sprite s = "player.2bpp";`)
	if !strings.Contains(out, "SECTION \"Assets\", ROMX") {
		t.Fatalf("expected an assets section, got:\n%s", out)
	}
	if !strings.Contains(out, `INCBIN "player.2bpp"`) {
		t.Fatalf("expected an INCBIN directive, got:\n%s", out)
	}
}
