// Package weaver implements the aspect weaver: it matches FunctionDef
// names against pointcut glob patterns collected from AspectDefs and
// splices cloned advice bodies into the matched functions' bodies.
package weaver

import (
	"fmt"

	"github.com/th13vn/lync/pkg/ast"
)

// Stats reports weaving outcomes for a single Weave call, mirroring
// the teacher's per-pass counters idiom.
type Stats struct {
	JoinpointsFound int
	AdviceApplied   int
	Errors          []string
}

// Ok reports whether weaving completed without recording an error.
func (s *Stats) Ok() bool { return len(s.Errors) == 0 }

type applyKey struct {
	fn     *ast.FunctionDef
	advice *ast.Advice
}

// Weaver holds the aspect list collected from a Program and the set of
// (function, advice) pairs already spliced. Reusing the same Weaver
// across repeated Weave calls on the same (possibly already-woven)
// Program is what makes weaving idempotent (property P5): a pairing
// recorded in applied is never spliced a second time, even though
// collect will find the same AspectDefs again (they are never removed
// from the tree — only FunctionDef bodies are mutated).
type Weaver struct {
	aspects []*ast.AspectDef
	applied map[applyKey]bool
}

// New creates an empty Weaver.
func New() *Weaver {
	return &Weaver{applied: make(map[applyKey]bool)}
}

// Weave runs the two-pass collect/apply algorithm over prog and
// returns the resulting stats. Safe to call repeatedly on the same
// Weaver and Program: a second call is a no-op against what the first
// call already spliced.
func (w *Weaver) Weave(prog *ast.Program) *Stats {
	w.collect(prog)
	stats := &Stats{}
	w.apply(prog, stats)
	return stats
}

// collect traverses prog pre-order and records every AspectDef
// encountered, resetting the list first so repeated calls don't
// accumulate duplicates.
func (w *Weaver) collect(prog *ast.Program) {
	w.aspects = w.aspects[:0]
	c := &collector{aspects: &w.aspects}
	ast.Walk(prog, c)
}

type collector struct {
	ast.BaseVisitor
	aspects *[]*ast.AspectDef
}

func (c *collector) VisitAspectDef(n *ast.AspectDef) bool {
	*c.aspects = append(*c.aspects, n)
	return true
}

// apply traverses prog pre-order again; at every FunctionDef it tests
// the name against every collected pointcut and splices matching
// advice.
func (w *Weaver) apply(prog *ast.Program, stats *Stats) {
	a := &applier{w: w, stats: stats}
	ast.Walk(prog, a)
}

type applier struct {
	ast.BaseVisitor
	w     *Weaver
	stats *Stats
}

func (a *applier) VisitFunctionDef(fn *ast.FunctionDef) bool {
	for _, aspect := range a.w.aspects {
		for _, pc := range aspect.Pointcuts {
			if pc.Pattern == "" {
				a.stats.Errors = append(a.stats.Errors, fmt.Sprintf(
					"pointcut %q in aspect %q has an empty pattern", pc.Name, aspect.Name))
				continue
			}
			if !matchGlob(pc.Pattern, fn.Name) {
				continue
			}
			a.stats.JoinpointsFound++
			for _, adv := range aspect.Advice {
				if adv.PointcutName != pc.Name {
					continue
				}
				key := applyKey{fn: fn, advice: adv}
				if a.w.applied[key] {
					continue
				}
				a.w.applied[key] = true
				spliceAdvice(fn, adv)
				a.stats.AdviceApplied++
			}
		}
	}
	return true
}

// spliceAdvice deep-copies adv's body into a fresh Block and inserts
// it at the position dictated by adv.Kind. `around` is applied
// identically to `before` — the source's own behavior for an
// unimplemented true around-advice continuation (see DESIGN.md).
func spliceAdvice(fn *ast.FunctionDef, adv *ast.Advice) {
	blk := cloneAdviceBlock(adv)
	switch adv.Kind {
	case ast.AdviceBefore, ast.AdviceAround:
		fn.Body = append([]ast.Node{blk}, fn.Body...)
	case ast.AdviceAfter:
		fn.Body = append(fn.Body, blk)
	}
}

func cloneAdviceBlock(adv *ast.Advice) *ast.Block {
	statements := make([]ast.Node, len(adv.Body))
	for i, s := range adv.Body {
		statements[i] = ast.Copy(s)
	}
	blk := &ast.Block{Statements: statements}
	blk.Kind = ast.KindBlock
	line, col := adv.Pos()
	ast.SetPos(blk, line, col)
	return blk
}

// matchGlob implements the single-wildcard glob language from spec §6:
// literal characters match themselves, `*` matches zero or more
// characters anywhere in the pattern (including a bare trailing `*`
// for prefix matching, and no `*` at all for an exact match — both are
// just specializations of the general recursive match below).
func matchGlob(pattern, name string) bool {
	if pattern == "" {
		return name == ""
	}
	if pattern[0] == '*' {
		for i := 0; i <= len(name); i++ {
			if matchGlob(pattern[1:], name[i:]) {
				return true
			}
		}
		return false
	}
	if name == "" || pattern[0] != name[0] {
		return false
	}
	return matchGlob(pattern[1:], name[1:])
}
