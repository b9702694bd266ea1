// Package builder implements the recursive-descent parser that turns
// a Lyn token stream into a Program AST.
package builder

import (
	"fmt"

	"github.com/th13vn/lync/internal/lexer"
	"github.com/th13vn/lync/internal/report"
	"github.com/th13vn/lync/pkg/ast"
)

// Options configures parser behavior.
type Options struct {
	// Tolerant collects errors via synchronize-and-continue instead of
	// aborting on the first mismatch. The language's own error-recovery
	// contract (spec §4.P) is non-recovering; Tolerant exists only for
	// tooling (e.g. an editor's live-diagnostics pass) that wants a
	// best-effort partial AST instead of a single fatal stop.
	Tolerant bool
}

// Builder drives token-by-token construction of the AST.
type Builder struct {
	lx      *lexer.Lexer
	cur     lexer.Token
	options *Options
	rep     report.Reporter

	// varClass is a best-effort, parser-local map from variable name to
	// the class name of the value it was last assigned via `new
	// ClassName(...)`. It powers the receiver-threading rewrite of
	// `obj.method(args)` into FunctionCall("Class.method", ...) — the
	// parser has no type inference available yet, so this is a
	// syntactic heuristic grounded in the one case the language
	// actually requires (a `new` expression immediately bound to a
	// name before the method call).
	varClass map[string]string
	// currentClass is the name of the ClassDef currently being parsed,
	// used to resolve `this.method(args)` the same way.
	currentClass string
}

type bstate struct {
	lx  lexer.State
	cur lexer.Token
}

// New creates a Builder over input, ready to call Build.
func New(input string, opts *Options, rep report.Reporter) *Builder {
	if opts == nil {
		opts = &Options{}
	}
	b := &Builder{
		lx:       lexer.New(input),
		options:  opts,
		rep:      rep,
		varClass: make(map[string]string),
		cur:      lexer.Token{Kind: lexer.INVALID},
	}
	b.advance()
	return b
}

// Build parses the full token stream into a Program.
func (b *Builder) Build() (*ast.Program, error) {
	prog := &ast.Program{}
	prog.Kind = ast.KindProgram
	ast.SetPos(prog, 1, 1)

	seenMain := false
	seenEnd := false

	for !b.isAtEnd() {
		b.skipSeparators()
		if b.isAtEnd() {
			break
		}

		if b.peek().Kind == lexer.IDENT && b.peek().Lexeme == "main" {
			if seenMain {
				b.fatal("unexpected second 'main' marker")
				if !b.options.Tolerant {
					return nil, b.fatalError()
				}
			}
			seenMain = true
			b.advance()
			continue
		}

		if b.peek().Kind == lexer.KwEnd {
			b.advance()
			seenEnd = true
			break
		}

		stmt := b.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		if b.rep != nil && b.rep.HasFatal() && !b.options.Tolerant {
			return nil, b.fatalError()
		}
	}

	if seenEnd {
		b.skipSeparators()
		if b.check(lexer.KwEnd) {
			b.fatal("unexpected 'end' after the program's closing 'end'")
			if !b.options.Tolerant {
				return nil, b.fatalError()
			}
		}
	}

	if !seenEnd && !b.options.Tolerant {
		b.fatal("unexpected end of input: program is not terminated by 'end'")
		return nil, b.fatalError()
	}

	if b.rep != nil && b.rep.HasFatal() {
		return prog, b.fatalError()
	}
	return prog, nil
}

func (b *Builder) fatalError() error {
	if tr, ok := b.rep.(*report.TextReporter); ok {
		return tr.FatalError()
	}
	errs := b.rep.Errors()
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

func (b *Builder) fatal(msg string, args ...interface{}) {
	if b.rep == nil {
		return
	}
	line, col := b.peek().Line, b.peek().Column
	b.rep.Report(&report.Error{
		Line: line, Column: col, Kind: report.KindSyntax,
		Message: fmt.Sprintf(msg, args...),
	})
}

func (b *Builder) warn(msg string, args ...interface{}) {
	if b.rep == nil {
		return
	}
	line, col := b.peek().Line, b.peek().Column
	b.rep.Warn(&report.Error{
		Line: line, Column: col, Kind: report.KindSemantic,
		Message: fmt.Sprintf(msg, args...),
	})
}
