package lexer

import (
	"testing"
)

func collect(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := collect(t, "func main if elsewhere")
	want := []Kind{KwFunc, IDENT, KwIf, IDENT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[1].Lexeme != "main" {
		t.Errorf("expected 'main' to lex as plain identifier, got %q kind %v", toks[1].Lexeme, toks[1].Kind)
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := collect(t, "42 3.14 .5")
	if toks[0].Kind != NUMBER || toks[0].Number != 42 {
		t.Errorf("got %+v", toks[0])
	}
	if toks[1].Kind != NUMBER || toks[1].Number != 3.14 {
		t.Errorf("got %+v", toks[1])
	}
	if toks[2].Kind != NUMBER || toks[2].Number != 0.5 {
		t.Errorf("got %+v", toks[2])
	}
}

func TestMalformedNumberIsFatal(t *testing.T) {
	l := New("1.2.3")
	for {
		_, err := l.Next()
		if err != nil {
			return
		}
	}
}

func TestRangeOperatorNotConfusedWithDecimal(t *testing.T) {
	toks := collect(t, "1..5")
	if toks[0].Kind != NUMBER || toks[0].Number != 1 {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != DotDot {
		t.Fatalf("got %+v, want DotDot", toks[1])
	}
	if toks[2].Kind != NUMBER || toks[2].Number != 5 {
		t.Fatalf("got %+v", toks[2])
	}
}

func TestStringLiteral(t *testing.T) {
	toks := collect(t, `"hello world"`)
	if toks[0].Kind != STRING || toks[0].Str != "hello world" {
		t.Errorf("got %+v", toks[0])
	}
}

func TestUnterminatedStringIsFatal(t *testing.T) {
	l := New(`"hello`)
	_, err := l.Next()
	if err == nil {
		t.Fatal("expected fatal lex error for unterminated string")
	}
}

func TestTwoByteOperators(t *testing.T) {
	toks := collect(t, "-> => == != >= <= >> ## ..")
	want := []Kind{Arrow, FatArrow, Eq, Ne, Ge, Le, Shr, HashHash, DotDot, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := collect(t, "a // line comment\nb /* block\ncomment */ c")
	want := []string{"a", "b", "c"}
	var got []string
	for _, tok := range toks {
		if tok.Kind == IDENT {
			got = append(got, tok.Lexeme)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("identifier %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

// TestSaveRestoreReproducesTokenSequence verifies the deterministic
// lookahead property the parser's speculative lambda detection relies
// on: saving, consuming more tokens, then restoring must reproduce the
// exact same subsequent token sequence as if the extra consumption had
// never happened.
func TestSaveRestoreReproducesTokenSequence(t *testing.T) {
	l := New("x , y -> x + y")

	state := l.Save()

	var first []Token
	for i := 0; i < 5; i++ {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first = append(first, tok)
	}

	l.Restore(state)

	var second []Token
	for i := 0; i < 5; i++ {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second = append(second, tok)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("token %d diverged after restore: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks := collect(t, "a\nbb\nccc")
	// index: 0='a' 1=Newline 2='bb' 3=Newline 4='ccc' 5=EOF
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("got %+v", toks[0])
	}
	if toks[1].Kind != Newline {
		t.Fatalf("got %+v, want Newline", toks[1])
	}
	if toks[2].Line != 2 || toks[2].Column != 1 {
		t.Errorf("got %+v", toks[2])
	}
	if toks[4].Line != 3 || toks[4].Column != 1 {
		t.Errorf("got %+v", toks[4])
	}
}

func TestNewlineIsSignificantSeparator(t *testing.T) {
	toks := collect(t, "a\nb")
	if len(toks) != 4 { // a, \n, b, EOF
		t.Fatalf("got %d tokens, want 4: %+v", len(toks), toks)
	}
	if toks[1].Kind != Newline {
		t.Errorf("got %+v, want Newline", toks[1])
	}
}

func TestKeywordSet(t *testing.T) {
	for _, kw := range []string{"not", "null", "ui", "css", "register_event", "export", "range"} {
		if !IsKeyword(kw) {
			t.Errorf("expected %q to be a keyword", kw)
		}
	}
	if IsKeyword("main") {
		t.Error("\"main\" must not be a reserved keyword")
	}
}
