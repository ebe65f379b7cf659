package compiler_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/penguin-lang/penguinc/pkg/compiler"
	"github.com/penguin-lang/penguinc/pkg/config"
)

func writeSource(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write fixture source: %v", err)
	}
	return path
}

func TestCompileFileProducesAssemblyOnSuccess(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.penguin", "int a = 5; int b = a + 3;")
	out := compiler.OutputPathFor(src, ".asm")

	result := compiler.New(nil, nil).CompileFile(src, out)
	if result.Failed {
		t.Fatalf("unexpected failure: %v", result.Diagnostics)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if !strings.Contains(string(content), "__entry:") {
		t.Fatalf("expected generated assembly to contain __entry label, got:\n%s", content)
	}
}

func TestCompileFileFailsWithoutWritingOutputOnParseError(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "broken.penguin", "int a = ;")
	out := compiler.OutputPathFor(src, ".asm")

	result := compiler.New(nil, nil).CompileFile(src, out)
	if !result.Failed {
		t.Fatal("expected failure for malformed source")
	}
	if _, err := os.Stat(out); err == nil {
		t.Fatal("expected no output file to be written on failure")
	}
}

func TestCompileFileHonorsConfiguredWarningsAsErrors(t *testing.T) {
	dir := t.TempDir()
	// The statement after `return` is only ever a Warnf (unreachable-code);
	// with the policy flipped on it must halt the pipeline like a hard error.
	src := writeSource(t, dir, "main.penguin", "procedure int f() { return 0; int a = 1; } int r = f();")
	out := compiler.OutputPathFor(src, ".asm")

	lenient := compiler.New(nil, config.Default()).CompileFile(src, out)
	if lenient.Failed {
		t.Fatalf("expected unreachable-code warning to be non-fatal by default: %v", lenient.Diagnostics)
	}

	cfg := config.Default()
	cfg.Diagnostics.WarningsAsErrors = true
	strict := compiler.New(nil, cfg).CompileFile(src, out)
	if !strict.Failed {
		t.Fatal("expected warnings_as_errors to promote the unreachable-code warning to a hard failure")
	}
}

func TestCompileFileHonorsConfiguredWRAMRange(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.penguin", "int a = 1; int b = 2;")
	out := compiler.OutputPathFor(src, ".asm")

	cfg := config.Default()
	cfg.Memory.WRAMStart = 0xC100
	cfg.Memory.WRAMEnd = 0xC100
	result := compiler.New(nil, cfg).CompileFile(src, out)
	if !result.Failed {
		t.Fatal("expected the second variable to exhaust a single-word WRAM window")
	}
}

func TestOutputPathForAppliesDefaultExtension(t *testing.T) {
	if got := compiler.OutputPathFor("/tmp/game.penguin", ".asm"); got != "/tmp/game.asm" {
		t.Fatalf("unexpected output path: %s", got)
	}
}
