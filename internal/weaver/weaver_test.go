package weaver

import (
	"testing"

	"github.com/th13vn/lync/pkg/ast"
)

func numLit(v float64) *ast.NumberLiteral {
	n := &ast.NumberLiteral{Value: v}
	n.Kind = ast.KindNumberLiteral
	return n
}

func printStmt(v float64) *ast.Print {
	p := &ast.Print{Expression: numLit(v)}
	p.Kind = ast.KindPrint
	return p
}

func fnDef(name string, body ...ast.Node) *ast.FunctionDef {
	fn := &ast.FunctionDef{Name: name, Body: body}
	fn.Kind = ast.KindFunctionDef
	return fn
}

func tracingAspect() *ast.AspectDef {
	pc := &ast.Pointcut{Name: "trace", Pattern: "test_*"}
	pc.Kind = ast.KindPointcut
	adv := &ast.Advice{Kind: ast.AdviceBefore, PointcutName: "trace", Body: []ast.Node{printStmt(0)}}
	adv.Base.Kind = ast.KindAdvice
	aspect := &ast.AspectDef{Name: "Tracing", Pointcuts: []*ast.Pointcut{pc}, Advice: []*ast.Advice{adv}}
	aspect.Kind = ast.KindAspectDef
	return aspect
}

// S4 — aspect weaving with prefix glob.
func TestWeaveAppliesBeforeAdviceOnMatchingFunctions(t *testing.T) {
	aspect := tracingAspect()
	testOne := fnDef("test_one", printStmt(1))
	helper := fnDef("helper", printStmt(2))
	prog := &ast.Program{Statements: []ast.Node{aspect, testOne, helper}}
	prog.Kind = ast.KindProgram

	stats := New().Weave(prog)

	if stats.JoinpointsFound != 1 {
		t.Errorf("got JoinpointsFound=%d, want 1", stats.JoinpointsFound)
	}
	if stats.AdviceApplied != 1 {
		t.Errorf("got AdviceApplied=%d, want 1", stats.AdviceApplied)
	}
	if len(testOne.Body) != 2 {
		t.Fatalf("got %d statements in test_one, want 2", len(testOne.Body))
	}
	blk, ok := testOne.Body[0].(*ast.Block)
	if !ok {
		t.Fatalf("got %T, want *ast.Block", testOne.Body[0])
	}
	if len(blk.Statements) != 1 {
		t.Fatalf("got %d statements in advice block, want 1", len(blk.Statements))
	}
	if len(helper.Body) != 1 {
		t.Errorf("helper body mutated: got %d statements, want 1", len(helper.Body))
	}
}

func TestWeaveAfterAdviceAppendsAtEnd(t *testing.T) {
	pc := &ast.Pointcut{Name: "log", Pattern: "run"}
	pc.Kind = ast.KindPointcut
	adv := &ast.Advice{Kind: ast.AdviceAfter, PointcutName: "log", Body: []ast.Node{printStmt(9)}}
	adv.Base.Kind = ast.KindAdvice
	aspect := &ast.AspectDef{Name: "Logging", Pointcuts: []*ast.Pointcut{pc}, Advice: []*ast.Advice{adv}}
	aspect.Kind = ast.KindAspectDef
	fn := fnDef("run", printStmt(1))
	prog := &ast.Program{Statements: []ast.Node{aspect, fn}}
	prog.Kind = ast.KindProgram

	New().Weave(prog)

	if len(fn.Body) != 2 {
		t.Fatalf("got %d statements, want 2", len(fn.Body))
	}
	if _, ok := fn.Body[1].(*ast.Block); !ok {
		t.Fatalf("got %T at end, want *ast.Block", fn.Body[1])
	}
}

func TestAroundAdviceBehavesAsBefore(t *testing.T) {
	pc := &ast.Pointcut{Name: "p", Pattern: "go"}
	pc.Kind = ast.KindPointcut
	adv := &ast.Advice{Kind: ast.AdviceAround, PointcutName: "p", Body: []ast.Node{printStmt(1)}}
	adv.Base.Kind = ast.KindAdvice
	aspect := &ast.AspectDef{Name: "A", Pointcuts: []*ast.Pointcut{pc}, Advice: []*ast.Advice{adv}}
	aspect.Kind = ast.KindAspectDef
	fn := fnDef("go", printStmt(2))
	prog := &ast.Program{Statements: []ast.Node{aspect, fn}}
	prog.Kind = ast.KindProgram

	New().Weave(prog)

	if len(fn.Body) != 2 {
		t.Fatalf("got %d statements, want 2", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.Block); !ok {
		t.Fatalf("around advice inserted at %T, want Block at position 0", fn.Body[0])
	}
}

// P5 — running the weaver twice on the same Weaver/Program is
// equivalent to running it once.
func TestWeaveIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	aspect := tracingAspect()
	fn := fnDef("test_one", printStmt(1))
	prog := &ast.Program{Statements: []ast.Node{aspect, fn}}
	prog.Kind = ast.KindProgram

	w := New()
	first := w.Weave(prog)
	bodyLenAfterFirst := len(fn.Body)

	second := w.Weave(prog)

	if len(fn.Body) != bodyLenAfterFirst {
		t.Fatalf("second weave changed body length: got %d, want %d", len(fn.Body), bodyLenAfterFirst)
	}
	if second.AdviceApplied != 0 {
		t.Errorf("got AdviceApplied=%d on second pass, want 0", second.AdviceApplied)
	}
	if second.JoinpointsFound != first.JoinpointsFound {
		t.Errorf("got JoinpointsFound=%d on second pass, want %d (the joinpoint is still found; only splicing is suppressed)", second.JoinpointsFound, first.JoinpointsFound)
	}
}

func TestCollectDescendsIntoNestedScopes(t *testing.T) {
	aspect := tracingAspect()
	nested := &ast.If{
		Condition: numLit(1),
		Then:      []ast.Node{aspect},
	}
	nested.Kind = ast.KindIf
	fn := fnDef("test_one", nested, printStmt(1))
	prog := &ast.Program{Statements: []ast.Node{fn}}
	prog.Kind = ast.KindProgram

	stats := New().Weave(prog)

	if stats.JoinpointsFound != 1 {
		t.Errorf("got JoinpointsFound=%d, want 1 (aspect nested inside an If body)", stats.JoinpointsFound)
	}
}

func TestMatchGlobPrefixExactAndMiddleWildcard(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"test_*", "test_one", true},
		{"test_*", "other", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"*", "anything", true},
	}
	for _, c := range cases {
		if got := matchGlob(c.pattern, c.name); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}
