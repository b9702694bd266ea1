package builder

import (
	"github.com/th13vn/lync/internal/lexer"
)

func (b *Builder) peek() lexer.Token { return b.cur }

func (b *Builder) advance() lexer.Token {
	prev := b.cur
	if prev.Kind != lexer.EOF {
		tok, err := b.lx.Next()
		if err != nil {
			if le, ok := err.(*lexer.Error); ok {
				b.fatal("%s", le.Message)
			} else {
				b.fatal("%s", err.Error())
			}
			b.cur = lexer.Token{Kind: lexer.EOF}
			return prev
		}
		b.cur = tok
	}
	return prev
}

func (b *Builder) isAtEnd() bool { return b.cur.Kind == lexer.EOF }

func (b *Builder) check(k lexer.Kind) bool { return b.cur.Kind == k }

func (b *Builder) checkAny(kinds ...lexer.Kind) bool {
	for _, k := range kinds {
		if b.cur.Kind == k {
			return true
		}
	}
	return false
}

func (b *Builder) expect(k lexer.Kind) lexer.Token {
	if b.check(k) {
		return b.advance()
	}
	b.fatal("expected %s, got %s %q", k, b.peek().Kind, b.peek().Lexeme)
	if !b.options.Tolerant {
		return b.peek()
	}
	b.synchronize()
	return b.peek()
}

// skipSeparators consumes any run of Newline/Semi tokens, the
// statement separators the grammar treats as insignificant between
// statements (spec §4.P).
func (b *Builder) skipSeparators() {
	for b.checkAny(lexer.Newline, lexer.Semi) {
		b.advance()
	}
}

func (b *Builder) save() bstate {
	return bstate{lx: b.lx.Save(), cur: b.cur}
}

func (b *Builder) restore(s bstate) {
	b.lx.Restore(s.lx)
	b.cur = s.cur
}

// statementStartKinds is the set of tokens that can legally begin a
// new statement — used by synchronize to find a safe resumption point
// after a parse error in tolerant mode.
var statementStartKinds = map[lexer.Kind]bool{
	lexer.KwFunc: true, lexer.KwReturn: true, lexer.KwPrint: true, lexer.KwIf: true,
	lexer.KwFor: true, lexer.KwWhile: true, lexer.KwDo: true, lexer.KwSwitch: true,
	lexer.KwBreak: true, lexer.KwTry: true, lexer.KwThrow: true, lexer.KwFrom: true,
	lexer.KwImport: true, lexer.KwClass: true, lexer.KwModule: true, lexer.KwMatch: true,
	lexer.KwAspect: true, lexer.KwUI: true, lexer.KwCSS: true, lexer.KwRegisterEvent: true,
	lexer.KwEnd: true,
}

func (b *Builder) synchronize() {
	b.advance()
	for !b.isAtEnd() {
		if statementStartKinds[b.peek().Kind] {
			return
		}
		b.advance()
	}
}
