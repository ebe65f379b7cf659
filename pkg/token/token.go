// Package token defines the lexical tokens of the penguin language.
package token

import "github.com/penguin-lang/penguinc/pkg/diag"

// Kind identifies the category of a Token.
type Kind int

const (
	Invalid Kind = iota
	EOF

	Ident
	IntLiteral
	StringLiteral

	// Keywords
	KwIf
	KwElse
	KwLoop
	KwProcedure
	KwReturn
	KwList
	KwNot
	KwAnd
	KwOr
	KwXor
	KwInt
	KwSprite
	KwTileset
	KwTilemap

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Dot
	Assign

	// Operators
	Plus
	Minus
	Star
	Slash
	Amp
	Pipe
	Caret
	Tilde
	Shl
	Shr
	Lt
	Gt
	Le
	Ge
	EqEq
	NotEq
)

var keywords = map[string]Kind{
	"if":        KwIf,
	"else":      KwElse,
	"loop":      KwLoop,
	"procedure": KwProcedure,
	"return":    KwReturn,
	"list":      KwList,
	"not":       KwNot,
	"and":       KwAnd,
	"or":        KwOr,
	"xor":       KwXor,
	"int":       KwInt,
	"sprite":    KwSprite,
	"tileset":   KwTileset,
	"tilemap":   KwTilemap,
}

// Lookup returns the keyword Kind for ident, or (Invalid, false) if ident is
// not a reserved word.
func Lookup(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case EOF:
		return "eof"
	case Ident:
		return "identifier"
	case IntLiteral:
		return "int-literal"
	case StringLiteral:
		return "string-literal"
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBrace:
		return "{"
	case RBrace:
		return "}"
	case LBracket:
		return "["
	case RBracket:
		return "]"
	case Comma:
		return ","
	case Semi:
		return ";"
	case Dot:
		return "."
	case Assign:
		return "="
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case Amp:
		return "&"
	case Pipe:
		return "|"
	case Caret:
		return "^"
	case Tilde:
		return "~"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	case Lt:
		return "<"
	case Gt:
		return ">"
	case Le:
		return "<="
	case Ge:
		return ">="
	case EqEq:
		return "=="
	case NotEq:
		return "!="
	default:
		for lexeme, kind := range keywords {
			if kind == k {
				return lexeme
			}
		}
		return "unknown"
	}
}

// Token is a single lexeme produced by the lexer. Tokens are immutable and
// only live through parsing.
type Token struct {
	Kind   Kind
	Lexeme string
	Span   diag.Span
}

func (t Token) String() string { return t.Lexeme }
