package sm83

import "fmt"

// Emitter accumulates RGBDS assembly-text lines, mirroring the teacher's
// hack.CodeGenerator.Generate() output shape ([]string, one line per
// instruction) but building text mnemonics directly instead of Hack's
// fixed-width binary encoding, since RGBDS assembles from source text.
type Emitter struct {
	lines []string
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter { return &Emitter{} }

// Label appends a `name:` line.
func (e *Emitter) Label(name string) { e.lines = append(e.lines, name+":") }

// Section appends an RGBDS SECTION directive line.
func (e *Emitter) Section(name, region string) {
	e.lines = append(e.lines, fmt.Sprintf("SECTION \"%s\", %s", name, region))
}

// Inst appends one indented instruction line, formatted like fmt.Sprintf.
func (e *Emitter) Inst(format string, args ...any) {
	e.lines = append(e.lines, "\t"+fmt.Sprintf(format, args...))
}

// Comment appends an indented `;` comment line.
func (e *Emitter) Comment(text string) { e.lines = append(e.lines, "\t; "+text) }

// Blank appends an empty line, used between sections and runtime helpers
// for readability.
func (e *Emitter) Blank() { e.lines = append(e.lines, "") }

// Raw appends a pre-formatted line verbatim (e.g. an RGBDS directive that
// isn't a plain instruction, such as DB/DW/INCBIN).
func (e *Emitter) Raw(line string) { e.lines = append(e.lines, line) }

// Lines returns every line accumulated so far, in emission order.
func (e *Emitter) Lines() []string { return e.lines }

// String joins every line with newlines, terminated by a trailing newline.
func (e *Emitter) String() string {
	out := ""
	for _, l := range e.lines {
		out += l + "\n"
	}
	return out
}
