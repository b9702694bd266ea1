package ast

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
)

// Stats tracks per-process node bookkeeping for diagnostics, per spec
// §4.A ("Track per-process statistics: nodes created, nodes freed, max
// tree depth, bytes used"). Counters are atomic so the optional
// fixed-block memory pool described in spec §5 can share them safely
// if the pipeline is ever run concurrently.
type Stats struct {
	Created  atomic.Int64
	Freed    atomic.Int64
	MaxDepth atomic.Int64
	Bytes    atomic.Int64
}

// globalStats is the process-wide counter set. Tests reset it via
// ResetStats to keep assertions independent across cases.
var globalStats Stats

// StatsSnapshot returns the current counter values.
func StatsSnapshot() Stats {
	var s Stats
	s.Created.Store(globalStats.Created.Load())
	s.Freed.Store(globalStats.Freed.Load())
	s.MaxDepth.Store(globalStats.MaxDepth.Load())
	s.Bytes.Store(globalStats.Bytes.Load())
	return s
}

// ResetStats zeroes the process-wide counters.
func ResetStats() {
	globalStats.Created.Store(0)
	globalStats.Freed.Store(0)
	globalStats.MaxDepth.Store(0)
	globalStats.Bytes.Store(0)
}

func recordCreated(sizeBytes int64) {
	globalStats.Created.Add(1)
	globalStats.Bytes.Add(sizeBytes)
}

// freedNodes marks which node pointers have already been released, so
// Free can reject a double-free (spec §4.A: "freeing none or an
// already-freed root is a fatal programmer error"). Go's GC means
// there is no real address to sanity-check (spec §9's "alignment,
// low-address, known-bad patterns" has no Go analogue), so the
// defensive check below is a nil check plus this owner-tracking set,
// which is the idiomatic replacement spec §9 calls for ("exactly one
// owner per node" via an explicit invariant rather than raw pointer
// inspection).
var freedNodes = map[uintptr]bool{}

// identity returns the node's underlying pointer value, used as a
// stable identity for double-free tracking (every concrete variant is
// a pointer type, so reflect.Value.Pointer is exact and allocation-free
// in practice).
func identity(n Node) uintptr {
	return reflect.ValueOf(n).Pointer()
}

// Make constructs a zero-initialized node of the given kind with
// inferred_type = none (invariant I5). Variant-specific fields are
// left at their zero values; callers fill them in. This mirrors the
// teacher's `make(variant)` contract from spec §4.A, generalized to
// Lyn's node set via a type switch instead of the teacher's
// one-constructor-per-struct style, since Make must return a single
// Node value whose concrete kind varies at runtime.
func Make(kind Kind) Node {
	var n Node
	switch kind {
	case KindProgram:
		n = &Program{Base: Base{Kind: kind}}
	case KindFunctionDef:
		n = &FunctionDef{Base: Base{Kind: kind}}
	case KindClassDef:
		n = &ClassDef{Base: Base{Kind: kind}}
	case KindModuleDecl:
		n = &ModuleDecl{Base: Base{Kind: kind}}
	case KindImport:
		n = &Import{Base: Base{Kind: kind}}
	case KindAspectDef:
		n = &AspectDef{Base: Base{Kind: kind}}
	case KindBlock:
		n = &Block{Base: Base{Kind: kind}}
	case KindIf:
		n = &If{Base: Base{Kind: kind}}
	case KindWhile:
		n = &While{Base: Base{Kind: kind}}
	case KindDoWhile:
		n = &DoWhile{Base: Base{Kind: kind}}
	case KindFor:
		n = &For{Base: Base{Kind: kind}}
	case KindSwitch:
		n = &Switch{Base: Base{Kind: kind}}
	case KindCase:
		n = &Case{Base: Base{Kind: kind}}
	case KindReturn:
		n = &Return{Base: Base{Kind: kind}}
	case KindVarDecl:
		n = &VarDecl{Base: Base{Kind: kind}}
	case KindVarAssign:
		n = &VarAssign{Base: Base{Kind: kind}}
	case KindPrint:
		n = &Print{Base: Base{Kind: kind}}
	case KindBreak:
		n = &Break{Base: Base{Kind: kind}}
	case KindContinue:
		n = &Continue{Base: Base{Kind: kind}}
	case KindTryCatch:
		n = &TryCatch{Base: Base{Kind: kind}}
	case KindThrow:
		n = &Throw{Base: Base{Kind: kind}}
	case KindNumberLiteral:
		n = &NumberLiteral{Base: Base{Kind: kind}}
	case KindStringLiteral:
		n = &StringLiteral{Base: Base{Kind: kind}}
	case KindBooleanLiteral:
		n = &BooleanLiteral{Base: Base{Kind: kind}}
	case KindNullLiteral:
		n = &NullLiteral{Base: Base{Kind: kind}}
	case KindIdentifier:
		n = &Identifier{Base: Base{Kind: kind}}
	case KindBinaryOp:
		n = &BinaryOp{Base: Base{Kind: kind}}
	case KindUnaryOp:
		n = &UnaryOp{Base: Base{Kind: kind}}
	case KindMemberAccess:
		n = &MemberAccess{Base: Base{Kind: kind}}
	case KindArrayAccess:
		n = &ArrayAccess{Base: Base{Kind: kind}}
	case KindArrayLiteral:
		n = &ArrayLiteral{Base: Base{Kind: kind}}
	case KindFunctionCall:
		n = &FunctionCall{Base: Base{Kind: kind}}
	case KindLambda:
		n = &Lambda{Base: Base{Kind: kind}}
	case KindFunctionCompose:
		n = &FunctionCompose{Base: Base{Kind: kind}}
	case KindCurryExpr:
		n = &CurryExpr{Base: Base{Kind: kind}}
	case KindNewExpr:
		n = &NewExpr{Base: Base{Kind: kind}}
	case KindThisExpr:
		n = &ThisExpr{Base: Base{Kind: kind}}
	case KindPointcut:
		n = &Pointcut{Base: Base{Kind: kind}}
	case KindAdvice:
		n = &Advice{Base: Base{Kind: kind}}
	case KindPatternMatch:
		n = &PatternMatch{Base: Base{Kind: kind}}
	case KindPatternCase:
		n = &PatternCase{Base: Base{Kind: kind}}
	default:
		panic(fmt.Sprintf("ast.Make: unknown kind %q", kind))
	}
	recordCreated(64)
	return n
}

// Copy produces a disjoint deep copy of n: no mutable storage is
// shared between the original and the copy (property P4). Copy is
// itself how the weaver clones advice bodies and the macro evaluator
// clones macro bodies before splicing them into the tree, which is
// how exclusive tree ownership (spec §3) is preserved across passes.
func Copy(n Node) Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *Program:
		c := *t
		c.Statements = copySlice(t.Statements)
		recordCreated(64)
		return &c
	case *FunctionDef:
		c := *t
		c.Params = copyParams(t.Params)
		c.Body = copySlice(t.Body)
		recordCreated(64)
		return &c
	case *ClassDef:
		c := *t
		c.Members = make([]*ClassMember, len(t.Members))
		for i, m := range t.Members {
			cm := &ClassMember{}
			if m.Field != nil {
				cm.Field = Copy(m.Field).(*VarDecl)
			}
			if m.Method != nil {
				cm.Method = Copy(m.Method).(*FunctionDef)
			}
			c.Members[i] = cm
		}
		recordCreated(64)
		return &c
	case *ModuleDecl:
		c := *t
		c.Declarations = copySlice(t.Declarations)
		recordCreated(64)
		return &c
	case *Import:
		c := *t
		if t.Symbols != nil {
			c.Symbols = make([]*ImportSymbol, len(t.Symbols))
			for i, s := range t.Symbols {
				sc := *s
				c.Symbols[i] = &sc
			}
		}
		recordCreated(64)
		return &c
	case *AspectDef:
		c := *t
		c.Pointcuts = make([]*Pointcut, len(t.Pointcuts))
		for i, p := range t.Pointcuts {
			c.Pointcuts[i] = Copy(p).(*Pointcut)
		}
		c.Advice = make([]*Advice, len(t.Advice))
		for i, a := range t.Advice {
			c.Advice[i] = Copy(a).(*Advice)
		}
		recordCreated(64)
		return &c
	case *Block:
		c := *t
		c.Statements = copySlice(t.Statements)
		recordCreated(64)
		return &c
	case *If:
		c := *t
		c.Condition = Copy(t.Condition)
		c.Then = copySlice(t.Then)
		c.Else = copySlice(t.Else)
		recordCreated(64)
		return &c
	case *While:
		c := *t
		c.Condition = Copy(t.Condition)
		c.Body = copySlice(t.Body)
		recordCreated(64)
		return &c
	case *DoWhile:
		c := *t
		c.Condition = Copy(t.Condition)
		c.Body = copySlice(t.Body)
		recordCreated(64)
		return &c
	case *For:
		c := *t
		c.RangeFrom = Copy(t.RangeFrom)
		c.RangeTo = Copy(t.RangeTo)
		c.RangeStep = Copy(t.RangeStep)
		c.CollectionExpr = Copy(t.CollectionExpr)
		c.Init = Copy(t.Init)
		c.Cond = Copy(t.Cond)
		c.Update = Copy(t.Update)
		c.Body = copySlice(t.Body)
		recordCreated(64)
		return &c
	case *Case:
		c := *t
		c.Value = Copy(t.Value)
		c.Body = copySlice(t.Body)
		recordCreated(64)
		return &c
	case *Switch:
		c := *t
		c.Scrutinee = Copy(t.Scrutinee)
		c.Cases = make([]*Case, len(t.Cases))
		for i, cs := range t.Cases {
			c.Cases[i] = Copy(cs).(*Case)
		}
		c.Default = copySlice(t.Default)
		recordCreated(64)
		return &c
	case *Return:
		c := *t
		c.Expression = Copy(t.Expression)
		recordCreated(64)
		return &c
	case *VarDecl:
		c := *t
		c.Initializer = Copy(t.Initializer)
		recordCreated(64)
		return &c
	case *VarAssign:
		c := *t
		c.Initializer = Copy(t.Initializer)
		recordCreated(64)
		return &c
	case *Print:
		c := *t
		c.Expression = Copy(t.Expression)
		recordCreated(64)
		return &c
	case *Break:
		c := *t
		recordCreated(64)
		return &c
	case *Continue:
		c := *t
		recordCreated(64)
		return &c
	case *TryCatch:
		c := *t
		c.Try = copySlice(t.Try)
		c.Catch = copySlice(t.Catch)
		c.Finally = copySlice(t.Finally)
		recordCreated(64)
		return &c
	case *Throw:
		c := *t
		c.Expression = Copy(t.Expression)
		recordCreated(64)
		return &c
	case *NumberLiteral:
		c := *t
		recordCreated(32)
		return &c
	case *StringLiteral:
		c := *t
		recordCreated(32)
		return &c
	case *BooleanLiteral:
		c := *t
		recordCreated(32)
		return &c
	case *NullLiteral:
		c := *t
		recordCreated(32)
		return &c
	case *Identifier:
		c := *t
		recordCreated(32)
		return &c
	case *BinaryOp:
		c := *t
		c.Left = Copy(t.Left)
		c.Right = Copy(t.Right)
		recordCreated(48)
		return &c
	case *UnaryOp:
		c := *t
		c.Operand = Copy(t.Operand)
		recordCreated(48)
		return &c
	case *MemberAccess:
		c := *t
		c.Object = Copy(t.Object)
		recordCreated(48)
		return &c
	case *ArrayAccess:
		c := *t
		c.Array = Copy(t.Array)
		c.Index = Copy(t.Index)
		recordCreated(48)
		return &c
	case *ArrayLiteral:
		c := *t
		c.Elements = copySlice(t.Elements)
		recordCreated(48)
		return &c
	case *FunctionCall:
		c := *t
		c.Args = copySlice(t.Args)
		recordCreated(48)
		return &c
	case *Lambda:
		c := *t
		c.Params = copyParams(t.Params)
		c.Body = Copy(t.Body)
		recordCreated(48)
		return &c
	case *FunctionCompose:
		c := *t
		c.Left = Copy(t.Left)
		c.Right = Copy(t.Right)
		recordCreated(48)
		return &c
	case *CurryExpr:
		c := *t
		c.BaseFunc = Copy(t.BaseFunc)
		c.AppliedArgs = copySlice(t.AppliedArgs)
		recordCreated(48)
		return &c
	case *NewExpr:
		c := *t
		c.Args = copySlice(t.Args)
		recordCreated(48)
		return &c
	case *ThisExpr:
		c := *t
		recordCreated(32)
		return &c
	case *Pointcut:
		c := *t
		recordCreated(32)
		return &c
	case *Advice:
		c := *t
		c.Body = copySlice(t.Body)
		recordCreated(48)
		return &c
	case *PatternMatch:
		c := *t
		c.Scrutinee = Copy(t.Scrutinee)
		c.Cases = make([]*PatternCase, len(t.Cases))
		for i, pc := range t.Cases {
			c.Cases[i] = Copy(pc).(*PatternCase)
		}
		c.Otherwise = copySlice(t.Otherwise)
		recordCreated(48)
		return &c
	case *PatternCase:
		c := *t
		c.Pattern = Copy(t.Pattern)
		c.Body = copySlice(t.Body)
		recordCreated(48)
		return &c
	default:
		panic(fmt.Sprintf("ast.Copy: unhandled kind %T", n))
	}
}

func copySlice(ns []Node) []Node {
	if ns == nil {
		return nil
	}
	out := make([]Node, len(ns))
	for i, c := range ns {
		out[i] = Copy(c)
	}
	return out
}

func copyParams(ps []*Param) []*Param {
	if ps == nil {
		return nil
	}
	out := make([]*Param, len(ps))
	for i, p := range ps {
		pc := *p
		out[i] = &pc
	}
	return out
}

// ResetFreedSet clears the double-free tracking set. Tests that build
// and free independent trees call this between cases so that an
// address reused by the allocator for an unrelated tree is never
// mistaken for a double free.
func ResetFreedSet() {
	freedNodes = map[uintptr]bool{}
}

// Free transitively releases the subtree rooted at n in post-order
// (spec §3 "Lifecycle", §5 "Ordering guarantees"). Freeing nil or an
// already-freed root panics, per spec §4.A's "fatal programmer error".
func Free(n Node) {
	if n == nil {
		panic("ast.Free: nil node")
	}
	id := identity(n)
	if freedNodes[id] {
		panic("ast.Free: double free")
	}
	for _, c := range n.children() {
		if c == nil {
			continue
		}
		cid := identity(c)
		if !freedNodes[cid] {
			Free(c)
		}
	}
	freedNodes[id] = true
	globalStats.Freed.Add(1)
}

// Print walks n and writes one line per node, indented by depth,
// naming the variant and its salient fields, mirroring the teacher's
// Print(node, indent) contract from spec §4.A.
func Print(n Node, w *strings.Builder) {
	printNode(n, w, 0)
}

// Sprint renders Print's output to a string.
func Sprint(n Node) string {
	var b strings.Builder
	Print(n, &b)
	return b.String()
}

func indent(w *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString("  ")
	}
}

func printNode(n Node, w *strings.Builder, depth int) {
	if n == nil {
		indent(w, depth)
		w.WriteString("<nil>\n")
		return
	}
	line, col := n.Pos()
	indent(w, depth)
	fmt.Fprintf(w, "%s", n.NodeKind())
	switch t := n.(type) {
	case *Identifier:
		fmt.Fprintf(w, " name=%s", t.Name)
	case *NumberLiteral:
		fmt.Fprintf(w, " value=%s", strconv.FormatFloat(t.Value, 'g', -1, 64))
	case *StringLiteral:
		fmt.Fprintf(w, " value=%q", t.Value)
	case *BooleanLiteral:
		fmt.Fprintf(w, " value=%v", t.Value)
	case *BinaryOp:
		fmt.Fprintf(w, " op=%c", byte(t.Op))
	case *UnaryOp:
		fmt.Fprintf(w, " op=%s", t.Op)
	case *FunctionDef:
		fmt.Fprintf(w, " name=%s", t.Name)
	case *FunctionCall:
		fmt.Fprintf(w, " name=%s", t.Name)
	case *VarDecl:
		fmt.Fprintf(w, " name=%s type=%s", t.Name, t.TypeName)
	case *VarAssign:
		fmt.Fprintf(w, " name=%s", t.Name)
	case *MemberAccess:
		fmt.Fprintf(w, " member=%s", t.Member)
	case *ClassDef:
		fmt.Fprintf(w, " name=%s", t.Name)
	case *Pointcut:
		fmt.Fprintf(w, " name=%s pattern=%s", t.Name, t.Pattern)
	case *Advice:
		fmt.Fprintf(w, " kind=%s pointcut=%s", t.Kind, t.PointcutName)
	}
	fmt.Fprintf(w, " (%d:%d)\n", line, col)
	for _, c := range n.children() {
		printNode(c, w, depth+1)
	}
}
