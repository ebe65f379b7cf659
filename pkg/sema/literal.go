package sema

import (
	"strconv"

	"github.com/penguin-lang/penguinc/pkg/ast"
)

// parseIntLiteral resolves a literal's raw lexeme to its numeric value,
// dispatching on the surface form it was written in.
func parseIntLiteral(kind ast.LiteralKind, raw string) (uint64, error) {
	switch kind {
	case ast.HexLiteral:
		return strconv.ParseUint(raw[2:], 16, 64)
	case ast.BinaryLiteral:
		return strconv.ParseUint(raw[2:], 2, 64)
	default:
		return strconv.ParseUint(raw, 10, 64)
	}
}
