// Package token defines the lexical tokens produced by pkg/lexer and consumed by pkg/parser.
package token

type Type int

const (
	EOF Type = iota
	Ident
	Number

	Def
	Extern
	If
	Then
	Else
	For
	In
	Var
	Binary
	Unary

	LParen
	RParen
	Comma
	Semi

	// Op carries any single-character operator symbol (+ - * / < > = | & etc, including
	// ones introduced by a user-defined `binary<op>`/`unary<op>` declaration). The parser
	// resolves precedence for these via its mutable operator-precedence table.
	Op
)

var Keywords = map[string]Type{
	"def":    Def,
	"extern": Extern,
	"if":     If,
	"then":   Then,
	"else":   Else,
	"for":    For,
	"in":     In,
	"var":    Var,
	"binary": Binary,
	"unary":  Unary,
}

type Token struct {
	Type   Type
	Value  string  // identifier text, or the operator symbol for Op tokens
	Num    float64 // populated for Number
	Line   int
	Column int
}

func (t Token) String() string {
	switch t.Type {
	case Ident:
		return t.Value
	case Number:
		return t.Value
	case Op:
		return t.Value
	default:
		for s, ty := range Keywords {
			if ty == t.Type {
				return s
			}
		}
		return t.Value
	}
}
