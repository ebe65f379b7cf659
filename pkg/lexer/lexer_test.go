package lexer_test

import (
	"testing"

	"github.com/penguin-lang/penguinc/pkg/diag"
	"github.com/penguin-lang/penguinc/pkg/lexer"
	"github.com/penguin-lang/penguinc/pkg/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestKeywordsAndIdents(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte("int a = 5; loop_count"), sink).All()

	test := func(got []token.Kind, want []token.Kind) {
		if len(got) != len(want) {
			t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
			}
		}
	}

	test(kinds(toks), []token.Kind{
		token.KwInt, token.Ident, token.Assign, token.IntLiteral, token.Semi, token.Ident, token.EOF,
	})
	if sink.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", sink.All())
	}
}

func TestLiteralForms(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte(`10 0x1F 0b101 "hi"`), sink).All()

	want := []string{"10", "0x1F", "0b101", "hi"}
	if len(toks) != 5 { // 4 literals + EOF
		t.Fatalf("got %d tokens", len(toks))
	}
	for i, w := range want {
		if toks[i].Lexeme != w {
			t.Fatalf("literal %d: got %q, want %q", i, toks[i].Lexeme, w)
		}
	}
}

func TestTwoByteOperatorsPreferredOverPrefix(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte("<= < << <<="), sink).All()
	want := []token.Kind{token.Le, token.Lt, token.Shl, token.Shl, token.Assign, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i := range want {
		if toks[i].Kind != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, toks[i].Kind, want[i])
		}
	}
}

func TestUnrecognizedByteResynchronizesByOne(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte("int a @ int b"), sink).All()

	if !sink.HasErrors() {
		t.Fatal("expected a lex-error diagnostic for '@'")
	}
	if sink.All()[0].Kind != diag.LexError {
		t.Fatalf("got diagnostic kind %s, want lex-error", sink.All()[0].Kind)
	}
	// lexing must continue past the bad byte and recover both halves
	var idents int
	for _, tk := range toks {
		if tk.Kind == token.Ident {
			idents++
		}
	}
	if idents != 2 {
		t.Fatalf("expected 2 identifiers recovered around the bad byte, got %d", idents)
	}
}

func TestCommentsAndWhitespaceSkipped(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte("int a; // trailing comment\nint b;"), sink).All()
	var semis int
	for _, tk := range toks {
		if tk.Kind == token.Semi {
			semis++
		}
	}
	if semis != 2 {
		t.Fatalf("expected 2 semicolons, got %d", semis)
	}
}

func TestSpanByteOffsetsAreExact(t *testing.T) {
	sink := diag.NewSink()
	toks := lexer.New([]byte("int ab"), sink).All()
	// "int" -> [0,3) ; "ab" -> [4,6)
	if toks[0].Span.Start != 0 || toks[0].Span.End != 3 {
		t.Fatalf("int span = %+v", toks[0].Span)
	}
	if toks[1].Span.Start != 4 || toks[1].Span.End != 6 {
		t.Fatalf("ident span = %+v", toks[1].Span)
	}
}
