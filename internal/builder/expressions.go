package builder

import (
	"github.com/th13vn/lync/internal/lexer"
	"github.com/th13vn/lync/pkg/ast"
)

// Expression precedence (lowest to highest), per spec §4.P:
//  1. function composition (>>)
//  2. additive/comparison/logical, all one tier: + - > < >= <= == != and or
//  3. multiplicative: * /
//  4. unary: not, -
//  5. postfix chain: . ident | ( args ) | [ expr ]
//  6. primary

func (b *Builder) parseExpression() ast.Node {
	return b.parseCompose()
}

func (b *Builder) parseCompose() ast.Node {
	left := b.parseBinaryLevel2()
	for b.check(lexer.Shr) {
		tok := b.advance()
		right := b.parseBinaryLevel2()
		n := &ast.FunctionCompose{Left: left, Right: right}
		n.Kind = ast.KindFunctionCompose
		ast.SetPos(n, tok.Line, tok.Column)
		left = n
	}
	return left
}

var level2Ops = map[lexer.Kind]ast.BinOp{
	lexer.Plus: ast.OpAdd, lexer.Minus: ast.OpSub,
	lexer.Gt: ast.OpGt, lexer.Lt: ast.OpLt,
	lexer.Ge: ast.OpGe, lexer.Le: ast.OpLe,
	lexer.Eq: ast.OpEq, lexer.Ne: ast.OpNe,
	lexer.KwAnd: ast.OpAnd, lexer.KwOr: ast.OpOr,
}

func (b *Builder) parseBinaryLevel2() ast.Node {
	left := b.parseBinaryLevel3()
	for {
		op, ok := level2Ops[b.peek().Kind]
		if !ok {
			return left
		}
		tok := b.advance()
		right := b.parseBinaryLevel3()
		n := &ast.BinaryOp{Op: op, Left: left, Right: right}
		n.Kind = ast.KindBinaryOp
		ast.SetPos(n, tok.Line, tok.Column)
		left = n
	}
}

func (b *Builder) parseBinaryLevel3() ast.Node {
	left := b.parseUnary()
	for b.checkAny(lexer.Star, lexer.Slash) {
		tok := b.advance()
		op := ast.OpMul
		if tok.Kind == lexer.Slash {
			op = ast.OpDiv
		}
		right := b.parseUnary()
		n := &ast.BinaryOp{Op: op, Left: left, Right: right}
		n.Kind = ast.KindBinaryOp
		ast.SetPos(n, tok.Line, tok.Column)
		left = n
	}
	return left
}

func (b *Builder) parseUnary() ast.Node {
	if b.check(lexer.KwNot) {
		tok := b.advance()
		operand := b.parseUnary()
		n := &ast.UnaryOp{Op: ast.UnaryNot, Operand: operand}
		n.Kind = ast.KindUnaryOp
		ast.SetPos(n, tok.Line, tok.Column)
		return n
	}
	if b.check(lexer.Minus) {
		tok := b.advance()
		operand := b.parseUnary()
		n := &ast.UnaryOp{Op: ast.UnaryNeg, Operand: operand}
		n.Kind = ast.KindUnaryOp
		ast.SetPos(n, tok.Line, tok.Column)
		return n
	}
	return b.parsePostfix()
}

func (b *Builder) parsePostfix() ast.Node {
	expr := b.parsePrimary()
	for {
		switch b.peek().Kind {
		case lexer.Dot:
			dotTok := b.advance()
			memberTok := b.expect(lexer.IDENT)
			if b.check(lexer.LParen) {
				args := b.parseArgList()
				className := b.classNameOf(expr)
				name := memberTok.Lexeme
				if className != "" {
					name = className + "." + memberTok.Lexeme
				}
				call := &ast.FunctionCall{Name: name, Args: append([]ast.Node{expr}, args...)}
				call.Kind = ast.KindFunctionCall
				ast.SetPos(call, dotTok.Line, dotTok.Column)
				expr = call
				continue
			}
			ma := &ast.MemberAccess{Object: expr, Member: memberTok.Lexeme}
			ma.Kind = ast.KindMemberAccess
			ast.SetPos(ma, dotTok.Line, dotTok.Column)
			expr = ma

		case lexer.LBrack:
			brackTok := b.advance()
			idx := b.parseExpression()
			b.expect(lexer.RBrack)
			n := &ast.ArrayAccess{Array: expr, Index: idx}
			n.Kind = ast.KindArrayAccess
			ast.SetPos(n, brackTok.Line, brackTok.Column)
			expr = n

		case lexer.LParen:
			parenTok := b.peek()
			args := b.parseArgList()
			switch prev := expr.(type) {
			case *ast.Identifier:
				call := &ast.FunctionCall{Name: prev.Name, Args: args}
				call.Kind = ast.KindFunctionCall
				ast.SetPos(call, parenTok.Line, parenTok.Column)
				expr = call
			case *ast.FunctionCall:
				curry := &ast.CurryExpr{BaseFunc: prev, AppliedArgs: args, TotalArgCount: len(prev.Args) + len(args)}
				curry.Kind = ast.KindCurryExpr
				ast.SetPos(curry, parenTok.Line, parenTok.Column)
				expr = curry
			case *ast.CurryExpr:
				curry := &ast.CurryExpr{BaseFunc: prev, AppliedArgs: args, TotalArgCount: prev.TotalArgCount + len(args)}
				curry.Kind = ast.KindCurryExpr
				ast.SetPos(curry, parenTok.Line, parenTok.Column)
				expr = curry
			default:
				curry := &ast.CurryExpr{BaseFunc: expr, AppliedArgs: args, TotalArgCount: len(args)}
				curry.Kind = ast.KindCurryExpr
				ast.SetPos(curry, parenTok.Line, parenTok.Column)
				expr = curry
			}

		default:
			return expr
		}
	}
}

func (b *Builder) classNameOf(expr ast.Node) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return b.varClass[e.Name]
	case *ast.ThisExpr:
		return b.currentClass
	default:
		return ""
	}
}

func (b *Builder) parseArgList() []ast.Node {
	b.expect(lexer.LParen)
	var args []ast.Node
	for !b.check(lexer.RParen) && !b.isAtEnd() {
		args = append(args, b.parseExpression())
		if !b.check(lexer.RParen) {
			b.expect(lexer.Comma)
		}
	}
	b.expect(lexer.RParen)
	return args
}

func (b *Builder) parsePrimary() ast.Node {
	tok := b.peek()

	switch tok.Kind {
	case lexer.IDENT:
		b.advance()
		n := &ast.Identifier{Name: tok.Lexeme}
		n.Kind = ast.KindIdentifier
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.NUMBER:
		b.advance()
		n := &ast.NumberLiteral{Value: tok.Number}
		n.Kind = ast.KindNumberLiteral
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.STRING:
		b.advance()
		n := &ast.StringLiteral{Value: tok.Str}
		n.Kind = ast.KindStringLiteral
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.KwTrue, lexer.KwFalse:
		b.advance()
		n := &ast.BooleanLiteral{Value: tok.Kind == lexer.KwTrue}
		n.Kind = ast.KindBooleanLiteral
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.KwNull:
		b.advance()
		n := &ast.NullLiteral{}
		n.Kind = ast.KindNullLiteral
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.KwThis:
		b.advance()
		n := &ast.ThisExpr{}
		n.Kind = ast.KindThisExpr
		ast.SetPos(n, tok.Line, tok.Column)
		return n

	case lexer.KwNew:
		return b.parseNewExpr()

	case lexer.LBrack:
		return b.parseArrayLiteral()

	case lexer.LParen:
		if lambda, ok := b.tryParseLambda(); ok {
			return lambda
		}
		b.advance() // (
		expr := b.parseExpression()
		b.expect(lexer.RParen)
		return expr

	default:
		b.fatal("expected expression, got %s %q", tok.Kind, tok.Lexeme)
		b.advance()
		n := &ast.NullLiteral{}
		n.Kind = ast.KindNullLiteral
		ast.SetPos(n, tok.Line, tok.Column)
		return n
	}
}

func (b *Builder) parseNewExpr() *ast.NewExpr {
	tok := b.advance() // new
	classTok := b.expect(lexer.IDENT)
	args := b.parseArgList()
	n := &ast.NewExpr{ClassName: classTok.Lexeme, Args: args}
	n.Kind = ast.KindNewExpr
	ast.SetPos(n, tok.Line, tok.Column)
	return n
}

func (b *Builder) parseArrayLiteral() *ast.ArrayLiteral {
	tok := b.advance() // [
	n := &ast.ArrayLiteral{}
	n.Kind = ast.KindArrayLiteral
	ast.SetPos(n, tok.Line, tok.Column)
	for !b.check(lexer.RBrack) && !b.isAtEnd() {
		n.Elements = append(n.Elements, b.parseExpression())
		if !b.check(lexer.RBrack) {
			b.expect(lexer.Comma)
		}
	}
	b.expect(lexer.RBrack)
	return n
}

// tryParseLambda speculatively scans a `( name [: type] , … ) -> type
// =>` signature using save/restore, per spec §4.P. On a full match it
// commits and parses the body expression; on any mismatch it restores
// the builder to the incoming position and reports no lambda, letting
// the caller fall back to a parenthesized expression.
func (b *Builder) tryParseLambda() (*ast.Lambda, bool) {
	save := b.save()
	startTok := b.peek()

	if !b.check(lexer.LParen) {
		return nil, false
	}
	b.advance()

	var params []*ast.Param
	for !b.check(lexer.RParen) {
		if !b.check(lexer.IDENT) {
			b.restore(save)
			return nil, false
		}
		nameTok := b.advance()
		p := &ast.Param{Name: nameTok.Lexeme}
		if b.check(lexer.Colon) {
			b.advance()
			if !b.checkAny(lexer.IDENT, lexer.KwInt, lexer.KwFloat) {
				b.restore(save)
				return nil, false
			}
			p.TypeName = b.advance().Lexeme
		}
		params = append(params, p)
		if b.check(lexer.Comma) {
			b.advance()
			continue
		}
		break
	}
	if !b.check(lexer.RParen) {
		b.restore(save)
		return nil, false
	}
	b.advance() // )

	if !b.check(lexer.Arrow) {
		b.restore(save)
		return nil, false
	}
	b.advance()

	if !b.checkAny(lexer.IDENT, lexer.KwInt, lexer.KwFloat) {
		b.restore(save)
		return nil, false
	}
	retType := b.advance().Lexeme

	if !b.check(lexer.FatArrow) {
		b.restore(save)
		return nil, false
	}
	b.advance()

	body := b.parseExpression()
	n := &ast.Lambda{Params: params, ReturnType: retType, Body: body}
	n.Kind = ast.KindLambda
	ast.SetPos(n, startTok.Line, startTok.Column)
	return n, true
}
