package builder

import (
	"github.com/th13vn/lync/internal/lexer"
	"github.com/th13vn/lync/pkg/ast"
)

// parseStatementList parses statements until the current token is one
// of stop, or EOF. It is the shared body-parsing routine for every
// block-like construct (function/class/module/aspect bodies, if/else
// branches, loop bodies, try/catch/finally, case/when bodies).
func (b *Builder) parseStatementList(stop ...lexer.Kind) []ast.Node {
	var out []ast.Node
	for {
		b.skipSeparators()
		if b.isAtEnd() || b.checkAny(stop...) {
			return out
		}
		stmt := b.parseStatement()
		if stmt != nil {
			out = append(out, stmt)
		}
		if b.rep != nil && b.rep.HasFatal() && !b.options.Tolerant {
			return out
		}
	}
}

func (b *Builder) parseStatement() ast.Node {
	tok := b.peek()
	switch tok.Kind {
	case lexer.KwFunc:
		return b.parseFunctionDef(false)
	case lexer.KwExport:
		b.advance()
		switch b.peek().Kind {
		case lexer.KwFunc:
			return b.parseFunctionDef(true)
		case lexer.KwClass:
			return b.parseClassDef(true)
		default:
			b.fatal("expected 'func' or 'class' after 'export', got %s", b.peek().Kind)
			return nil
		}
	case lexer.KwClass:
		return b.parseClassDef(false)
	case lexer.KwModule:
		return b.parseModuleDecl()
	case lexer.KwImport, lexer.KwFrom:
		return b.parseImport()
	case lexer.KwAspect:
		return b.parseAspectDef()
	case lexer.KwReturn:
		return b.parseReturn()
	case lexer.KwPrint:
		return b.parsePrint()
	case lexer.KwIf:
		return b.parseIf()
	case lexer.KwFor:
		return b.parseFor()
	case lexer.KwWhile:
		return b.parseWhile()
	case lexer.KwDo:
		return b.parseDoWhile()
	case lexer.KwSwitch:
		return b.parseSwitch()
	case lexer.KwBreak:
		line, col := tok.Line, tok.Column
		b.advance()
		n := &ast.Break{}
		n.Kind = ast.KindBreak
		ast.SetPos(n, line, col)
		return n
	case lexer.KwTry:
		return b.parseTry()
	case lexer.KwThrow:
		return b.parseThrow()
	case lexer.KwMatch:
		return b.parseMatch()
	case lexer.KwUI, lexer.KwCSS, lexer.KwRegisterEvent:
		return b.parseKeywordCall()
	case lexer.IDENT:
		return b.parseIdentifierLed()
	default:
		return b.parseExpression()
	}
}

func (b *Builder) parseBody(stop ...lexer.Kind) []ast.Node {
	return b.parseStatementList(stop...)
}

func (b *Builder) parseFunctionDef(exported bool) *ast.FunctionDef {
	startTok := b.advance() // func
	nameTok := b.expect(lexer.IDENT)

	n := &ast.FunctionDef{Name: nameTok.Lexeme, Exported: exported}
	n.Kind = ast.KindFunctionDef
	ast.SetPos(n, startTok.Line, startTok.Column)

	n.Params = b.parseParamList()

	if b.check(lexer.Arrow) {
		b.advance()
		retTok := b.expect(lexer.IDENT)
		n.ReturnType = retTok.Lexeme
	}

	n.Body = b.parseBody(lexer.KwEnd)
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseParamList() []*ast.Param {
	b.expect(lexer.LParen)
	var params []*ast.Param
	for !b.check(lexer.RParen) && !b.isAtEnd() {
		nameTok := b.expect(lexer.IDENT)
		p := &ast.Param{Name: nameTok.Lexeme}
		if b.check(lexer.Colon) {
			b.advance()
			typeTok := b.expect(lexer.IDENT)
			p.TypeName = typeTok.Lexeme
		}
		params = append(params, p)
		if !b.check(lexer.RParen) {
			b.expect(lexer.Comma)
		}
	}
	b.expect(lexer.RParen)
	return params
}

func (b *Builder) parseClassDef(exported bool) *ast.ClassDef {
	startTok := b.advance() // class
	nameTok := b.expect(lexer.IDENT)

	n := &ast.ClassDef{Name: nameTok.Lexeme, Exported: exported}
	n.Kind = ast.KindClassDef
	ast.SetPos(n, startTok.Line, startTok.Column)

	// `class Dog from Animal` — base-class clause. The `from` keyword
	// is overloaded here rather than introducing a new keyword, since
	// the language reference names no dedicated inheritance token.
	if b.check(lexer.KwFrom) {
		b.advance()
		baseTok := b.expect(lexer.IDENT)
		n.BaseClass = baseTok.Lexeme
	}

	prevClass := b.currentClass
	b.currentClass = n.Name
	for {
		b.skipSeparators()
		if b.isAtEnd() || b.check(lexer.KwEnd) {
			break
		}
		if b.check(lexer.KwFunc) {
			method := b.parseFunctionDef(false)
			n.Members = append(n.Members, &ast.ClassMember{Method: method})
			continue
		}
		if b.check(lexer.IDENT) {
			field := b.parseVarDecl()
			n.Members = append(n.Members, &ast.ClassMember{Field: field})
			continue
		}
		b.fatal("expected class member, got %s %q", b.peek().Kind, b.peek().Lexeme)
		if !b.options.Tolerant {
			break
		}
		b.synchronize()
	}
	b.currentClass = prevClass
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseModuleDecl() *ast.ModuleDecl {
	startTok := b.advance() // module
	nameTok := b.expect(lexer.IDENT)
	n := &ast.ModuleDecl{Name: nameTok.Lexeme}
	n.Kind = ast.KindModuleDecl
	ast.SetPos(n, startTok.Line, startTok.Column)
	n.Declarations = b.parseBody(lexer.KwEnd)
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseImport() *ast.Import {
	startTok := b.peek()

	if b.check(lexer.KwFrom) {
		b.advance()
		moduleTok := b.expect(lexer.IDENT)
		b.expect(lexer.KwImport)

		n := &ast.Import{ModuleName: moduleTok.Lexeme}
		n.Kind = ast.KindImport
		ast.SetPos(n, startTok.Line, startTok.Column)

		for {
			symTok := b.expect(lexer.IDENT)
			sym := &ast.ImportSymbol{Symbol: symTok.Lexeme}
			if b.check(lexer.KwAs) {
				b.advance()
				aliasTok := b.expect(lexer.IDENT)
				sym.Alias = aliasTok.Lexeme
			}
			n.Symbols = append(n.Symbols, sym)
			if !b.check(lexer.Comma) {
				break
			}
			b.advance()
		}
		return n
	}

	b.expect(lexer.KwImport)
	moduleTok := b.expect(lexer.IDENT)
	n := &ast.Import{ModuleName: moduleTok.Lexeme}
	n.Kind = ast.KindImport
	ast.SetPos(n, startTok.Line, startTok.Column)

	if b.check(lexer.KwAs) {
		b.advance()
		aliasTok := b.expect(lexer.IDENT)
		n.Alias = aliasTok.Lexeme
	}
	return n
}

func (b *Builder) parseAspectDef() *ast.AspectDef {
	startTok := b.advance() // aspect
	nameTok := b.expect(lexer.IDENT)
	n := &ast.AspectDef{Name: nameTok.Lexeme}
	n.Kind = ast.KindAspectDef
	ast.SetPos(n, startTok.Line, startTok.Column)

	for {
		b.skipSeparators()
		if b.isAtEnd() || b.check(lexer.KwEnd) {
			break
		}
		switch b.peek().Kind {
		case lexer.KwPointcut:
			pcTok := b.advance()
			pcNameTok := b.expect(lexer.IDENT)
			patTok := b.expect(lexer.STRING)
			pc := &ast.Pointcut{Name: pcNameTok.Lexeme, Pattern: patTok.Str}
			pc.Kind = ast.KindPointcut
			ast.SetPos(pc, pcTok.Line, pcTok.Column)
			n.Pointcuts = append(n.Pointcuts, pc)
		case lexer.KwAdvice:
			advTok := b.advance()
			var kind ast.AdviceKind
			switch b.peek().Kind {
			case lexer.KwBefore:
				kind = ast.AdviceBefore
			case lexer.KwAfter:
				kind = ast.AdviceAfter
			case lexer.KwAround:
				kind = ast.AdviceAround
			default:
				b.fatal("expected 'before', 'after', or 'around', got %s", b.peek().Kind)
			}
			b.advance()
			pcNameTok := b.expect(lexer.IDENT)
			adv := &ast.Advice{Kind: kind, PointcutName: pcNameTok.Lexeme}
			adv.Base.Kind = ast.KindAdvice
			ast.SetPos(adv, advTok.Line, advTok.Column)
			adv.Body = b.parseBody(lexer.KwEnd)
			b.expect(lexer.KwEnd)
			n.Advice = append(n.Advice, adv)
		default:
			b.fatal("expected 'pointcut' or 'advice', got %s", b.peek().Kind)
			if !b.options.Tolerant {
				b.expect(lexer.KwEnd)
				return n
			}
			b.synchronize()
		}
	}
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseReturn() *ast.Return {
	startTok := b.advance() // return
	n := &ast.Return{}
	n.Kind = ast.KindReturn
	ast.SetPos(n, startTok.Line, startTok.Column)

	if !b.checkAny(lexer.Newline, lexer.Semi, lexer.KwEnd, lexer.KwElse) && !b.isAtEnd() {
		n.Expression = b.parseExpression()
	}
	return n
}

func (b *Builder) parsePrint() *ast.Print {
	startTok := b.advance() // print
	b.expect(lexer.LParen)
	expr := b.parseExpression()
	b.expect(lexer.RParen)
	n := &ast.Print{Expression: expr}
	n.Kind = ast.KindPrint
	ast.SetPos(n, startTok.Line, startTok.Column)
	return n
}

func (b *Builder) parseIf() *ast.If {
	startTok := b.advance() // if
	cond := b.parseParenOrExpression()
	n := &ast.If{Condition: cond}
	n.Kind = ast.KindIf
	ast.SetPos(n, startTok.Line, startTok.Column)

	n.Then = b.parseBody(lexer.KwElse, lexer.KwEnd)
	if b.check(lexer.KwElse) {
		b.advance()
		n.Else = b.parseBody(lexer.KwEnd)
	}
	b.expect(lexer.KwEnd)
	return n
}

// parseParenOrExpression allows conditions written either as `expr`
// or `(expr)` (S5 writes `if (a)`).
func (b *Builder) parseParenOrExpression() ast.Node {
	if b.check(lexer.LParen) {
		b.advance()
		expr := b.parseExpression()
		b.expect(lexer.RParen)
		return expr
	}
	return b.parseExpression()
}

func (b *Builder) parseWhile() *ast.While {
	startTok := b.advance() // while
	cond := b.parseParenOrExpression()
	n := &ast.While{Condition: cond}
	n.Kind = ast.KindWhile
	ast.SetPos(n, startTok.Line, startTok.Column)
	n.Body = b.parseBody(lexer.KwEnd)
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseDoWhile() *ast.DoWhile {
	startTok := b.advance() // do
	n := &ast.DoWhile{}
	n.Kind = ast.KindDoWhile
	ast.SetPos(n, startTok.Line, startTok.Column)
	n.Body = b.parseBody(lexer.KwWhile)
	b.expect(lexer.KwWhile)
	n.Condition = b.parseParenOrExpression()
	return n
}

// parseFor covers all three flavors named in the data model: range
// (`for x in a..b [step n]`), collection (`for x in coll`), and
// C-style (`for init; cond; update`).
func (b *Builder) parseFor() *ast.For {
	startTok := b.advance() // for
	n := &ast.For{}
	n.Kind = ast.KindFor
	ast.SetPos(n, startTok.Line, startTok.Column)

	if b.check(lexer.IDENT) {
		save := b.save()
		varTok := b.advance()
		if b.check(lexer.KwIn) {
			b.advance()
			from := b.parseBinaryLevel2()
			if b.check(lexer.DotDot) {
				b.advance()
				to := b.parseBinaryLevel2()
				n.ForKind = ast.ForRange
				n.RangeVar = varTok.Lexeme
				n.RangeFrom = from
				n.RangeTo = to
				if b.check(lexer.IDENT) && b.peek().Lexeme == "step" {
					b.advance()
					n.RangeStep = b.parseBinaryLevel2()
				}
			} else {
				n.ForKind = ast.ForCollection
				n.CollVar = varTok.Lexeme
				n.CollectionExpr = from
			}
			n.Body = b.parseBody(lexer.KwEnd)
			b.expect(lexer.KwEnd)
			return n
		}
		b.restore(save)
	}

	n.ForKind = ast.ForCStyle
	if !b.check(lexer.Semi) {
		n.Init = b.parseStatement()
	}
	b.expect(lexer.Semi)
	if !b.check(lexer.Semi) {
		n.Cond = b.parseExpression()
	}
	b.expect(lexer.Semi)
	if !b.check(lexer.KwEnd) {
		n.Update = b.parseStatement()
	}
	n.Body = b.parseBody(lexer.KwEnd)
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseSwitch() *ast.Switch {
	startTok := b.advance() // switch
	scrutinee := b.parseParenOrExpression()
	n := &ast.Switch{Scrutinee: scrutinee}
	n.Kind = ast.KindSwitch
	ast.SetPos(n, startTok.Line, startTok.Column)

	for {
		b.skipSeparators()
		if b.check(lexer.KwCase) {
			caseTok := b.advance()
			val := b.parseExpression()
			c := &ast.Case{Value: val}
			c.Kind = ast.KindCase
			ast.SetPos(c, caseTok.Line, caseTok.Column)
			c.Body = b.parseBody(lexer.KwCase, lexer.KwDefault, lexer.KwEnd)
			n.Cases = append(n.Cases, c)
			continue
		}
		if b.check(lexer.KwDefault) {
			b.advance()
			n.Default = b.parseBody(lexer.KwEnd)
			continue
		}
		break
	}
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseTry() *ast.TryCatch {
	startTok := b.advance() // try
	n := &ast.TryCatch{}
	n.Kind = ast.KindTryCatch
	ast.SetPos(n, startTok.Line, startTok.Column)

	n.Try = b.parseBody(lexer.KwCatch, lexer.KwFinally, lexer.KwEnd)

	if b.check(lexer.KwCatch) {
		b.advance()
		if b.check(lexer.LParen) {
			b.advance()
			typeTok := b.expect(lexer.IDENT)
			n.ErrorType = typeTok.Lexeme
			if b.check(lexer.IDENT) {
				bindTok := b.advance()
				n.ErrorBinding = bindTok.Lexeme
			}
			b.expect(lexer.RParen)
		} else if b.check(lexer.IDENT) {
			bindTok := b.advance()
			n.ErrorBinding = bindTok.Lexeme
		}
		n.Catch = b.parseBody(lexer.KwFinally, lexer.KwEnd)
	}
	if b.check(lexer.KwFinally) {
		b.advance()
		n.Finally = b.parseBody(lexer.KwEnd)
	}
	b.expect(lexer.KwEnd)
	return n
}

func (b *Builder) parseThrow() *ast.Throw {
	startTok := b.advance() // throw
	expr := b.parseExpression()
	n := &ast.Throw{Expression: expr}
	n.Kind = ast.KindThrow
	ast.SetPos(n, startTok.Line, startTok.Column)
	return n
}

// parseMatch implements `match expr when pattern => body… when …
// otherwise => body… end`.
func (b *Builder) parseMatch() *ast.PatternMatch {
	startTok := b.advance() // match
	scrutinee := b.parseExpression()
	n := &ast.PatternMatch{Scrutinee: scrutinee}
	n.Kind = ast.KindPatternMatch
	ast.SetPos(n, startTok.Line, startTok.Column)

	for {
		b.skipSeparators()
		if b.check(lexer.KwWhen) {
			whenTok := b.advance()
			pattern := b.parseExpression()
			b.expect(lexer.FatArrow)
			pc := &ast.PatternCase{Pattern: pattern}
			pc.Kind = ast.KindPatternCase
			ast.SetPos(pc, whenTok.Line, whenTok.Column)
			pc.Body = b.parseBody(lexer.KwWhen, lexer.KwOtherwise, lexer.KwEnd)
			n.Cases = append(n.Cases, pc)
			continue
		}
		if b.check(lexer.KwOtherwise) {
			b.advance()
			b.expect(lexer.FatArrow)
			n.Otherwise = b.parseBody(lexer.KwEnd)
			continue
		}
		break
	}
	b.expect(lexer.KwEnd)
	return n
}

// parseKeywordCall routes the ui/css/register_event statement-dispatch
// keywords (spec §4.P) to ordinary FunctionCall nodes, since the
// closed AST set (spec §3) has no dedicated variant for them.
func (b *Builder) parseKeywordCall() ast.Node {
	tok := b.advance()
	args := b.parseArgList()
	n := &ast.FunctionCall{Name: tok.Lexeme, Args: args}
	n.Kind = ast.KindFunctionCall
	ast.SetPos(n, tok.Line, tok.Column)
	return n
}

// parseVarDecl parses `name : TypeName [= expr]`, used both as a
// standalone statement and for class field declarations.
func (b *Builder) parseVarDecl() *ast.VarDecl {
	nameTok := b.advance()
	b.expect(lexer.Colon)
	var typeTok lexer.Token
	if b.checkAny(lexer.KwInt, lexer.KwFloat) {
		typeTok = b.advance()
	} else {
		typeTok = b.expect(lexer.IDENT)
	}
	n := &ast.VarDecl{Name: nameTok.Lexeme, TypeName: typeTok.Lexeme}
	n.Kind = ast.KindVarDecl
	ast.SetPos(n, nameTok.Line, nameTok.Column)
	if b.check(lexer.Assign) {
		b.advance()
		n.Initializer = b.parseExpression()
		b.trackClassBinding(n.Name, n.Initializer)
	}
	return n
}

// trackClassBinding records name -> class in varClass when expr is a
// `new ClassName(...)` expression, so a later `.method(...)` postfix
// on that name can thread the receiver and qualify the call name
// (spec §8 S3).
func (b *Builder) trackClassBinding(name string, expr ast.Node) {
	if ne, ok := expr.(*ast.NewExpr); ok {
		b.varClass[name] = ne.ClassName
	}
}

// parseIdentifierLed disambiguates an identifier-first statement by
// its second token, per spec §4.P.
func (b *Builder) parseIdentifierLed() ast.Node {
	save := b.save()
	nameTok := b.advance()

	switch b.peek().Kind {
	case lexer.Colon:
		b.restore(save)
		return b.parseVarDecl()

	case lexer.Assign:
		b.advance()
		expr := b.parseExpression()
		n := &ast.VarAssign{Name: nameTok.Lexeme, Initializer: expr}
		n.Kind = ast.KindVarAssign
		ast.SetPos(n, nameTok.Line, nameTok.Column)
		b.trackClassBinding(n.Name, n.Initializer)
		return n

	case lexer.Dot:
		if path, isAssign := b.tryDottedAssignTarget(nameTok.Lexeme); isAssign {
			b.advance() // =
			expr := b.parseExpression()
			n := &ast.VarAssign{Name: path, Initializer: expr}
			n.Kind = ast.KindVarAssign
			ast.SetPos(n, nameTok.Line, nameTok.Column)
			return n
		}
		b.restore(save)
		return b.parseExpression()

	default:
		b.restore(save)
		return b.parseExpression()
	}
}

// tryDottedAssignTarget speculatively scans a `.ident` chain starting
// after name to see whether it terminates in `=` (a dotted assignment
// target like `self.x = x`, required by spec §8 S3) rather than a
// method call or a bare member-access expression. It leaves the
// builder positioned exactly after the final `.ident` segment when it
// returns true, and restores the incoming position when it returns
// false.
func (b *Builder) tryDottedAssignTarget(base string) (string, bool) {
	save := b.save()
	path := base
	for b.check(lexer.Dot) {
		b.advance()
		if !b.check(lexer.IDENT) {
			b.restore(save)
			return "", false
		}
		memberTok := b.advance()
		path += "." + memberTok.Lexeme
		if b.check(lexer.LParen) {
			b.restore(save)
			return "", false
		}
	}
	if b.check(lexer.Assign) {
		return path, true
	}
	b.restore(save)
	return "", false
}
