// Package optimizer implements the constant-folding, dead-code-
// elimination, redundant-assignment-removal, constant-propagation, and
// common-subexpression-elimination passes that run after macro
// expansion and (stubbed) type inference.
package optimizer

import (
	"fmt"
	"strings"

	"github.com/th13vn/lync/internal/report"
	"github.com/th13vn/lync/pkg/ast"
)

// Options configures which passes run. Level 0 leaves the AST
// untouched; level 1 enables constant folding and redundant-assignment
// removal; level 2 additionally enables dead-code elimination.
// Propagate and CSE are independent flags, per spec §4.O ("Constant
// propagation and common-subexpression elimination are enabled via
// flags").
type Options struct {
	Level     int
	Propagate bool
	CSE       bool
}

// Stats exposes the per-pass counters named in spec §4.O.
type Stats struct {
	ConstantsFolded                 int
	DeadBlocksRemoved               int
	RedundantAssignmentsRemoved     int
	ConstantsPropagated             int
	CommonSubexpressionsEliminated  int
	VariablesScoped                 int
	TotalOptimizations              int
}

func (s *Stats) count(n *int) {
	*n++
	s.TotalOptimizations++
}

// symEntry is one scope's record of a name's declared/constant state.
type symEntry struct {
	Name       string
	ScopeLevel int
	IsConstant bool
	ConstValue ast.Node
	Decl       ast.Node
}

type scope map[string]*symEntry

// Optimizer runs the optimization passes over a Program. Its scoped
// symbol table is private to the optimizer and distinct from (but
// shares the contract of) internal/symtab's type table — this one
// additionally tracks constant-ness, per spec §4.O.
type Optimizer struct {
	opts   Options
	rep    report.Reporter
	stats  *Stats
	scopes []scope
}

// New creates an Optimizer. rep may be nil; if non-nil it receives the
// division-by-zero warning that constant folding declines to fold.
func New(opts Options, rep report.Reporter) *Optimizer {
	return &Optimizer{opts: opts, rep: rep}
}

// Optimize runs the configured passes over prog and returns the
// resulting stats. No-op at level 0.
func (o *Optimizer) Optimize(prog *ast.Program) *Stats {
	o.stats = &Stats{}
	if o.opts.Level == 0 {
		return o.stats
	}
	o.pushScope()
	prog.Statements = o.optimizeBlock(prog.Statements, true)
	o.popScope()
	return o.stats
}

func (o *Optimizer) pushScope() { o.scopes = append(o.scopes, scope{}) }

func (o *Optimizer) popScope() { o.scopes = o.scopes[:len(o.scopes)-1] }

func (o *Optimizer) lookup(name string) (*symEntry, bool) {
	for i := len(o.scopes) - 1; i >= 0; i-- {
		if e, ok := o.scopes[i][name]; ok {
			return e, true
		}
	}
	return nil, false
}

func (o *Optimizer) declare(name string, decl ast.Node) *symEntry {
	cur := o.scopes[len(o.scopes)-1]
	if e, ok := cur[name]; ok {
		return e
	}
	e := &symEntry{Name: name, ScopeLevel: len(o.scopes) - 1, Decl: decl}
	cur[name] = e
	o.stats.count(&o.stats.VariablesScoped)
	return e
}

func isLiteral(n ast.Node) bool {
	switch n.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
		return true
	default:
		return false
	}
}

// optimizeBlock optimizes one statement list, opening a fresh
// common-subexpression table (cleared at every control-flow join, per
// spec §4.O) and applying dead-code pruning after the first Return
// (level 2) and redundant-assignment removal at Program scope
// (level 1+).
func (o *Optimizer) optimizeBlock(stmts []ast.Node, isProgramScope bool) []ast.Node {
	cse := map[string]ast.Node{}
	out := make([]ast.Node, 0, len(stmts))
	returnSeen := false
	for _, stmt := range stmts {
		if returnSeen && o.opts.Level >= 2 {
			ast.Free(stmt)
			o.stats.count(&o.stats.DeadBlocksRemoved)
			continue
		}
		if isProgramScope && o.opts.Level >= 1 && o.tryRemoveRedundantAssignment(stmt) {
			continue
		}
		stmt = o.optimizeStmt(stmt, cse)
		if stmt == nil {
			continue
		}
		if _, ok := stmt.(*ast.Return); ok {
			returnSeen = true
		}
		out = append(out, stmt)
	}
	return out
}

// tryRemoveRedundantAssignment elides `x = x`, and the named
// `explicit_float = inferred_int` special case (spec §4.O, §9 open
// question #3 — not generalized into a type-conversion pass).
func (o *Optimizer) tryRemoveRedundantAssignment(stmt ast.Node) bool {
	va, ok := stmt.(*ast.VarAssign)
	if !ok {
		return false
	}
	id, ok := va.Initializer.(*ast.Identifier)
	if !ok {
		return false
	}
	redundant := id.Name == va.Name ||
		(va.Name == "explicit_float" && id.Name == "inferred_int")
	if !redundant {
		return false
	}
	ast.Free(stmt)
	o.stats.count(&o.stats.RedundantAssignmentsRemoved)
	return true
}

func (o *Optimizer) optimizeStmt(stmt ast.Node, cse map[string]ast.Node) ast.Node {
	switch t := stmt.(type) {
	case *ast.FunctionDef:
		o.pushScope()
		for _, p := range t.Params {
			o.declare(p.Name, nil)
		}
		t.Body = o.optimizeBlock(t.Body, false)
		o.popScope()
		return t

	case *ast.ClassDef:
		o.pushScope()
		for _, m := range t.Members {
			if m.Field != nil {
				m.Field, _ = o.optimizeStmt(m.Field, cse).(*ast.VarDecl)
			}
			if m.Method != nil {
				m.Method, _ = o.optimizeStmt(m.Method, cse).(*ast.FunctionDef)
			}
		}
		o.popScope()
		return t

	case *ast.ModuleDecl:
		o.pushScope()
		t.Declarations = o.optimizeBlock(t.Declarations, false)
		o.popScope()
		return t

	case *ast.Block:
		t.Statements = o.optimizeBlock(t.Statements, false)
		return t

	case *ast.If:
		t.Condition = o.optimizeExpr(t.Condition, cse)
		o.pushScope()
		t.Then = o.optimizeBlock(t.Then, false)
		o.popScope()
		o.pushScope()
		t.Else = o.optimizeBlock(t.Else, false)
		o.popScope()
		if o.opts.Level >= 2 {
			if lit, ok := t.Condition.(*ast.NumberLiteral); ok {
				if lit.Value != 0 {
					for _, s := range t.Else {
						ast.Free(s)
					}
					t.Else = nil
				} else {
					for _, s := range t.Then {
						ast.Free(s)
					}
					t.Then = t.Else
					t.Else = nil
				}
				o.stats.count(&o.stats.DeadBlocksRemoved)
			}
		}
		return t

	case *ast.While:
		t.Condition = o.optimizeExpr(t.Condition, cse)
		o.pushScope()
		t.Body = o.optimizeBlock(t.Body, false)
		o.popScope()
		if o.opts.Level >= 2 {
			if lit, ok := t.Condition.(*ast.NumberLiteral); ok && lit.Value == 0 {
				for _, s := range t.Body {
					ast.Free(s)
				}
				t.Body = nil
				o.stats.count(&o.stats.DeadBlocksRemoved)
			}
		}
		return t

	case *ast.DoWhile:
		o.pushScope()
		t.Body = o.optimizeBlock(t.Body, false)
		o.popScope()
		t.Condition = o.optimizeExpr(t.Condition, cse)
		return t

	case *ast.For:
		o.pushScope()
		t.RangeFrom = o.optimizeExpr(t.RangeFrom, cse)
		t.RangeTo = o.optimizeExpr(t.RangeTo, cse)
		t.RangeStep = o.optimizeExpr(t.RangeStep, cse)
		t.CollectionExpr = o.optimizeExpr(t.CollectionExpr, cse)
		if t.Init != nil {
			t.Init = o.optimizeStmt(t.Init, cse)
		}
		t.Cond = o.optimizeExpr(t.Cond, cse)
		if t.Update != nil {
			t.Update = o.optimizeStmt(t.Update, cse)
		}
		t.Body = o.optimizeBlock(t.Body, false)
		o.popScope()
		return t

	case *ast.Switch:
		t.Scrutinee = o.optimizeExpr(t.Scrutinee, cse)
		for _, c := range t.Cases {
			c.Value = o.optimizeExpr(c.Value, cse)
			o.pushScope()
			c.Body = o.optimizeBlock(c.Body, false)
			o.popScope()
		}
		o.pushScope()
		t.Default = o.optimizeBlock(t.Default, false)
		o.popScope()
		return t

	case *ast.Return:
		t.Expression = o.optimizeExpr(t.Expression, cse)
		return t

	case *ast.VarDecl:
		t.Initializer = o.optimizeExpr(t.Initializer, cse)
		entry := o.declare(t.Name, t)
		if isLiteral(t.Initializer) {
			entry.IsConstant = true
			entry.ConstValue = t.Initializer
		} else if t.Initializer != nil {
			entry.IsConstant = false
		}
		return t

	case *ast.VarAssign:
		t.Initializer = o.optimizeExpr(t.Initializer, cse)
		// Assigning to a name with no prior declaration implicitly
		// declares it (spec §9 open question #2).
		entry, ok := o.lookup(t.Name)
		if !ok {
			entry = o.declare(t.Name, t)
		}
		if isLiteral(t.Initializer) {
			entry.IsConstant = true
			entry.ConstValue = t.Initializer
		} else {
			entry.IsConstant = false
		}
		return t

	case *ast.Print:
		t.Expression = o.optimizeExpr(t.Expression, cse)
		return t

	case *ast.TryCatch:
		o.pushScope()
		t.Try = o.optimizeBlock(t.Try, false)
		o.popScope()
		o.pushScope()
		t.Catch = o.optimizeBlock(t.Catch, false)
		o.popScope()
		o.pushScope()
		t.Finally = o.optimizeBlock(t.Finally, false)
		o.popScope()
		return t

	case *ast.Throw:
		t.Expression = o.optimizeExpr(t.Expression, cse)
		return t

	case *ast.PatternMatch:
		t.Scrutinee = o.optimizeExpr(t.Scrutinee, cse)
		for _, c := range t.Cases {
			c.Pattern = o.optimizeExpr(c.Pattern, cse)
			o.pushScope()
			c.Body = o.optimizeBlock(c.Body, false)
			o.popScope()
		}
		o.pushScope()
		t.Otherwise = o.optimizeBlock(t.Otherwise, false)
		o.popScope()
		return t

	case *ast.Import, *ast.AspectDef, *ast.Break, *ast.Continue:
		return t

	default:
		// A bare expression statement (e.g. a ui/css/register_event
		// FunctionCall, or a stray expression fallthrough from the
		// parser's default statement dispatch).
		return o.optimizeExpr(stmt, cse)
	}
}

// optimizeExpr recursively optimizes an expression subtree: constant
// folding (level >= 1), constant propagation (Propagate flag, requires
// the scope stack built above), and common-subexpression elimination
// (CSE flag).
func (o *Optimizer) optimizeExpr(n ast.Node, cse map[string]ast.Node) ast.Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *ast.Identifier:
		if o.opts.Propagate {
			if e, ok := o.lookup(t.Name); ok && e.IsConstant && e.ConstValue != nil {
				o.stats.count(&o.stats.ConstantsPropagated)
				clone := ast.Copy(e.ConstValue)
				ast.Free(t)
				return clone
			}
		}
		return t

	case *ast.BinaryOp:
		t.Left = o.optimizeExpr(t.Left, cse)
		t.Right = o.optimizeExpr(t.Right, cse)
		if o.opts.Level >= 1 {
			if folded, ok := o.foldBinary(t); ok {
				o.stats.count(&o.stats.ConstantsFolded)
				return folded
			}
		}
		if o.opts.CSE {
			key := hashExpr(t)
			if canon, ok := cse[key]; ok {
				o.stats.count(&o.stats.CommonSubexpressionsEliminated)
				return ast.Copy(canon)
			}
			cse[key] = t
		}
		return t

	case *ast.UnaryOp:
		t.Operand = o.optimizeExpr(t.Operand, cse)
		return t

	case *ast.MemberAccess:
		t.Object = o.optimizeExpr(t.Object, cse)
		return t

	case *ast.ArrayAccess:
		t.Array = o.optimizeExpr(t.Array, cse)
		t.Index = o.optimizeExpr(t.Index, cse)
		return t

	case *ast.ArrayLiteral:
		for i, e := range t.Elements {
			t.Elements[i] = o.optimizeExpr(e, cse)
		}
		return t

	case *ast.FunctionCall:
		for i, a := range t.Args {
			t.Args[i] = o.optimizeExpr(a, cse)
		}
		return t

	case *ast.CurryExpr:
		t.BaseFunc = o.optimizeExpr(t.BaseFunc, cse)
		for i, a := range t.AppliedArgs {
			t.AppliedArgs[i] = o.optimizeExpr(a, cse)
		}
		return t

	case *ast.FunctionCompose:
		t.Left = o.optimizeExpr(t.Left, cse)
		t.Right = o.optimizeExpr(t.Right, cse)
		return t

	case *ast.NewExpr:
		for i, a := range t.Args {
			t.Args[i] = o.optimizeExpr(a, cse)
		}
		return t

	case *ast.Lambda:
		o.pushScope()
		for _, p := range t.Params {
			o.declare(p.Name, nil)
		}
		t.Body = o.optimizeExpr(t.Body, map[string]ast.Node{})
		o.popScope()
		return t

	default:
		return n
	}
}

// foldBinary evaluates b at compile time when both operands are
// NumberLiterals, for the operator set spec §4.O names explicitly:
// `+ - * / == >= <= !=` (neither `<` nor `>` are folded — the spec
// text omits them from the foldable set). Division by zero is left
// unfolded and reported as a warning.
func (o *Optimizer) foldBinary(b *ast.BinaryOp) (ast.Node, bool) {
	ln, lok := b.Left.(*ast.NumberLiteral)
	rn, rok := b.Right.(*ast.NumberLiteral)
	if !lok || !rok {
		return nil, false
	}
	line, col := b.Pos()
	switch b.Op {
	case ast.OpAdd:
		return numLit(ln.Value+rn.Value, line, col), true
	case ast.OpSub:
		return numLit(ln.Value-rn.Value, line, col), true
	case ast.OpMul:
		return numLit(ln.Value*rn.Value, line, col), true
	case ast.OpDiv:
		if rn.Value == 0 {
			o.warnDivByZero(line, col)
			return nil, false
		}
		return numLit(ln.Value/rn.Value, line, col), true
	case ast.OpEq:
		return boolAsNum(ln.Value == rn.Value, line, col), true
	case ast.OpGe:
		return boolAsNum(ln.Value >= rn.Value, line, col), true
	case ast.OpLe:
		return boolAsNum(ln.Value <= rn.Value, line, col), true
	case ast.OpNe:
		return boolAsNum(ln.Value != rn.Value, line, col), true
	default:
		return nil, false
	}
}

func (o *Optimizer) warnDivByZero(line, col int) {
	if o.rep == nil {
		return
	}
	o.rep.Warn(&report.Error{
		Line: line, Column: col, Kind: report.KindSemantic,
		Message: "division by zero is not folded at compile time",
	})
}

func numLit(v float64, line, col int) *ast.NumberLiteral {
	n := &ast.NumberLiteral{Value: v}
	n.Kind = ast.KindNumberLiteral
	ast.SetPos(n, line, col)
	return n
}

func boolAsNum(v bool, line, col int) *ast.NumberLiteral {
	if v {
		return numLit(1.0, line, col)
	}
	return numLit(0.0, line, col)
}

// hashExpr structurally hashes an expression (variant tag mixed with
// operand hashes and literal/identifier payloads), used by the CSE
// table. Go's native map replaces the source's hash-bucket table, per
// spec §9's explicit guidance.
func hashExpr(n ast.Node) string {
	switch t := n.(type) {
	case *ast.NumberLiteral:
		return fmt.Sprintf("num:%v", t.Value)
	case *ast.StringLiteral:
		return fmt.Sprintf("str:%q", t.Value)
	case *ast.BooleanLiteral:
		return fmt.Sprintf("bool:%v", t.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.Identifier:
		return fmt.Sprintf("id:%s", t.Name)
	case *ast.BinaryOp:
		return fmt.Sprintf("bin:%c(%s,%s)", byte(t.Op), hashExpr(t.Left), hashExpr(t.Right))
	case *ast.UnaryOp:
		return fmt.Sprintf("un:%s(%s)", t.Op, hashExpr(t.Operand))
	case *ast.MemberAccess:
		return fmt.Sprintf("mem:%s.%s", hashExpr(t.Object), t.Member)
	case *ast.ArrayAccess:
		return fmt.Sprintf("idx:%s[%s]", hashExpr(t.Array), hashExpr(t.Index))
	case *ast.FunctionCall:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = hashExpr(a)
		}
		return fmt.Sprintf("call:%s(%s)", t.Name, strings.Join(parts, ","))
	default:
		return fmt.Sprintf("node:%p", n)
	}
}
