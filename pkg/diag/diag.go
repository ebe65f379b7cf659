// Package diag implements the compiler's accumulating diagnostics sink.
//
// Every phase of the pipeline (lexer, parser, semantic analyzer, lowering,
// code generator) reports problems through a shared *Sink instead of
// returning an error on the first mistake: this lets a single invocation
// surface every lexical error in a file, every undeclared name, every type
// mismatch, in one pass instead of one-at-a-time.
package diag

import "fmt"

// Severity ranks how serious a Diagnostic is. Only Error severity causes the
// driver to halt the pipeline between phases.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind identifies the category of a Diagnostic, matching the fixed set of
// diagnostic kinds the pipeline is allowed to emit.
type Kind string

const (
	LexError               Kind = "lex-error"
	ParseError              Kind = "parse-error"
	Redeclaration           Kind = "redeclaration"
	UnknownName             Kind = "unknown-name"
	TypeMismatch            Kind = "type-mismatch"
	ArityMismatch           Kind = "arity-mismatch"
	NotAssignable           Kind = "not-assignable"
	ReturnOutsideProcedure  Kind = "return-outside-procedure"
	ReturnTypeMismatch      Kind = "return-type-mismatch"
	AssetNotFound           Kind = "asset-not-found"
	UnreachableCode         Kind = "unreachable-code"
	ICE                     Kind = "ice"
)

// Span locates a diagnostic (or an AST/token) within the original source
// buffer, expressed both as byte offsets and as 1-based line/column so a
// human-facing message can point at exact source text.
type Span struct {
	Start, End  int // byte offsets, [Start, End)
	Line, Col   int // 1-based, of Start
	EndLine     int // 1-based, of End
	EndCol      int
}

// Zero reports whether s is the uninitialized Span (used by nodes that never
// carry meaningful source, e.g. compiler-synthesized procedures).
func (s Span) Zero() bool { return s == Span{} }

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Primary  Span
	// Secondary is present only for diagnostics that reference a second
	// location (e.g. redeclaration pointing back at the original).
	Secondary *Span
	Message   string
}

func (d Diagnostic) String() string {
	loc := fmt.Sprintf("%d:%d", d.Primary.Line, d.Primary.Col)
	if d.Secondary != nil {
		return fmt.Sprintf("%s: %s: %s (%s) [previous: %d:%d]", loc, d.Severity, d.Message, d.Kind, d.Secondary.Line, d.Secondary.Col)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", loc, d.Severity, d.Message, d.Kind)
}

// Sink is an append-only, single-writer collector of diagnostics, threaded
// by reference through every phase. It is never read until the driver
// decides whether to proceed past the current phase.
type Sink struct {
	entries          []Diagnostic
	warningsAsErrors bool
}

// NewSink returns an empty Sink that reports warnings at Warning severity.
func NewSink() *Sink { return &Sink{} }

// NewSinkWithPolicy returns an empty Sink. When warningsAsErrors is set
// (config.toml's diagnostics.warnings_as_errors), every diagnostic Warnf
// reports is promoted to Error severity, so it halts the pipeline between
// phases the same way a hard error does.
func NewSinkWithPolicy(warningsAsErrors bool) *Sink {
	return &Sink{warningsAsErrors: warningsAsErrors}
}

// Report appends a Diagnostic to the sink.
func (s *Sink) Report(d Diagnostic) { s.entries = append(s.entries, d) }

// Errorf reports an Error-severity diagnostic of the given kind at span.
func (s *Sink) Errorf(kind Kind, span Span, format string, args ...any) {
	s.Report(Diagnostic{Kind: kind, Severity: Error, Primary: span, Message: fmt.Sprintf(format, args...)})
}

// Warnf reports a Warning-severity diagnostic of the given kind at span,
// promoted to Error if the sink's warnings-as-errors policy is set.
func (s *Sink) Warnf(kind Kind, span Span, format string, args ...any) {
	severity := Warning
	if s.warningsAsErrors {
		severity = Error
	}
	s.Report(Diagnostic{Kind: kind, Severity: severity, Primary: span, Message: fmt.Sprintf(format, args...)})
}

// All returns every diagnostic reported so far, in report order.
func (s *Sink) All() []Diagnostic { return s.entries }

// HasErrors reports whether any Error-severity diagnostic has been reported.
func (s *Sink) HasErrors() bool {
	for _, d := range s.entries {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics at or above the given severity.
func (s *Sink) Count(min Severity) int {
	n := 0
	for _, d := range s.entries {
		if d.Severity >= min {
			n++
		}
	}
	return n
}
