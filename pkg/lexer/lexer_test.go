package lexer

import (
	"testing"

	"github.com/kscope-lang/kscope/pkg/token"
	"github.com/kscope-lang/kscope/pkg/util"
)

func collect(src string) []token.Token {
	l := NewLexer(src)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks := collect("def extern if then else for in var binary unary foo")
	wantTypes := []token.Type{token.Def, token.Extern, token.If, token.Then, token.Else, token.For, token.In, token.Var, token.Binary, token.Unary, token.Ident, token.EOF}
	if len(toks) != len(wantTypes) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(wantTypes), toks)
	}
	for i, want := range wantTypes {
		if toks[i].Type != want {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].Type, want)
		}
	}
}

func TestLexNumberLiteral(t *testing.T) {
	toks := collect("3.14")
	if toks[0].Type != token.Number || toks[0].Num != 3.14 {
		t.Fatalf("unexpected number token: %+v", toks[0])
	}
}

func TestLexSkipsComments(t *testing.T) {
	toks := collect("1 # this is a comment\n+ 2")
	var types []token.Type
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []token.Type{token.Number, token.Op, token.Number, token.EOF}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
}

func TestLexUnexpectedCharacterIsReported(t *testing.T) {
	util.Reset()
	collect("1 $ 2")
	if !util.HadErrors() {
		t.Fatalf("expected a diagnostic for the unexpected '$'")
	}
}
