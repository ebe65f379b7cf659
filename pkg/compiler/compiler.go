// Package compiler wires the lexer, parser, semantic analyzer, IR lowerer
// and code generator into the single pipeline the CLI drives, owning the
// diagnostics sink and a structured logger, following the same
// read-parse-lower-generate-write shape as the teacher's cmd/jack_compiler
// Handler — generalized into a reusable driver instead of one inline
// CLI action, and with zap logging in place of the teacher's bare
// fmt.Printf status lines.
package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/penguin-lang/penguinc/pkg/codegen"
	"github.com/penguin-lang/penguinc/pkg/config"
	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/lower"
	"github.com/penguin-lang/penguinc/pkg/parser"
	"github.com/penguin-lang/penguinc/pkg/sema"
)

// Result reports what happened in one Compile call, for the CLI layer to
// translate into an exit code.
type Result struct {
	Diagnostics []diag.Diagnostic
	// Failed is true once any phase reported an error-severity diagnostic;
	// the driver short-circuits between phases on this (spec.md §7).
	Failed bool
	// ICE is true when compilation aborted on an internal-consistency
	// violation rather than a user-visible source mistake.
	ICE bool
}

// Compiler runs the full pipeline over one source file, writing RGBDS
// assembly text to outputPath on success.
type Compiler struct {
	log *zap.Logger
	cfg *config.Config
}

// New returns a Compiler logging through log and honoring cfg's memory and
// diagnostics tunables. A nil log falls back to a no-op logger so callers
// that don't care about structured output (tests) don't need to construct
// one; a nil cfg falls back to config.Default().
func New(log *zap.Logger, cfg *config.Config) *Compiler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return &Compiler{log: log, cfg: cfg}
}

// CompileFile reads sourcePath, runs every phase, and writes the generated
// assembly to outputPath. The output file is only ever opened after
// semantic analysis succeeds, and any write failure truncates and removes
// it, so the downstream assembler never observes a half-written file
// (spec.md §5, §7).
func (c *Compiler) CompileFile(sourcePath, outputPath string) Result {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		c.log.Error("failed to read source file", zap.String("path", sourcePath), zap.Error(err))
		return Result{Failed: true}
	}

	sink := diag.NewSinkWithPolicy(c.cfg.Diagnostics.WarningsAsErrors)
	sourceDir := filepath.Dir(sourcePath)

	start := time.Now()
	prog := parser.New(src, sink).Parse()
	c.log.Info("parse phase complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("diagnostics", sink.Count(diag.Note)))
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	start = time.Now()
	info := sema.NewAnalyzerWithWRAM(sink, sourceDir, c.cfg.Memory.WRAMStart, c.cfg.Memory.WRAMEnd).Analyze(prog)
	c.log.Info("semantic analysis phase complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("procedures", len(info.Procs)),
		zap.Int("diagnostics", sink.Count(diag.Note)))
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	start = time.Now()
	irProg := lower.New(info, sink).Lower()
	c.log.Info("lowering phase complete", zap.Duration("elapsed", time.Since(start)))
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true, ICE: true}
	}

	start = time.Now()
	asm := codegen.New(irProg, info.NextWRAM, sink).Generate()
	c.log.Info("codegen phase complete", zap.Duration("elapsed", time.Since(start)))
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true, ICE: true}
	}

	if err := writeOutput(outputPath, asm); err != nil {
		c.log.Error("failed to write output file", zap.String("path", outputPath), zap.Error(err))
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	return Result{Diagnostics: sink.All()}
}

// writeOutput truncates and removes the output file on any failure midway
// through the write, so a partially-written file is never left behind for
// the downstream assembler to trip over.
func writeOutput(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing output file: %w", err)
	}
	return f.Close()
}

// OutputPathFor derives the default `.asm` output path for a given input
// path, per spec.md §6 ("default: input basename with .asm extension").
func OutputPathFor(sourcePath, extension string) string {
	ext := filepath.Ext(sourcePath)
	base := sourcePath[:len(sourcePath)-len(ext)]
	return base + extension
}
