// Command penguinc compiles a single penguin source file to RGBDS-dialect
// Game Boy assembly. Its CLI surface (teris-io/cli, one positional argument
// plus named options, a Handler closure wired via WithAction) mirrors the
// teacher's cmd/jack_compiler, adapted to penguinc's exit-code contract
// (0/1/2/70) and single-file-in, single-file-out shape.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"go.uber.org/zap"

	"github.com/penguin-lang/penguinc/pkg/compiler"
	"github.com/penguin-lang/penguinc/pkg/config"
)

const (
	exitSuccess       = 0
	exitCompileError  = 1
	exitInvocationErr = 2
	exitInternalError = 70
)

var description = strings.ReplaceAll(`
penguinc compiles penguin source files into RGBDS-dialect assembly targeting
the original Game Boy. Pass a single .penguin source file; the generated
.asm file is written next to it unless -o overrides the destination.
`, "\n", " ")

var app = cli.New(description).
	WithArg(cli.NewArg("input", "The penguin source file to compile").WithType(cli.TypeString)).
	WithOption(cli.NewOption("o", "Output assembly file path (default: input basename with .asm)").WithType(cli.TypeString)).
	WithOption(cli.NewOption("config", "Path to a penguinc.toml configuration file").WithType(cli.TypeString)).
	WithAction(handle)

func handle(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "penguinc: missing required input file argument")
		return exitInvocationErr
	}
	input := args[0]
	if _, err := os.Stat(input); err != nil {
		fmt.Fprintf(os.Stderr, "penguinc: cannot open input file: %s\n", err)
		return exitInvocationErr
	}

	cfg, err := config.LoadFrom(options["config"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "penguinc: %s\n", err)
		return exitInvocationErr
	}

	output := options["o"]
	if output == "" {
		output = compiler.OutputPathFor(input, cfg.Output.Extension)
	}

	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()

	result := compiler.New(log, cfg).CompileFile(input, output)
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}

	switch {
	case result.ICE:
		return exitInternalError
	case result.Failed:
		return exitCompileError
	default:
		return exitSuccess
	}
}

func main() { os.Exit(app.Run(os.Args, os.Stdout)) }
