package macro

import (
	"testing"

	"github.com/th13vn/lync/pkg/ast"
)

func ident(name string) *ast.Identifier {
	n := &ast.Identifier{Name: name}
	n.Kind = ast.KindIdentifier
	return n
}

func call(name string, args ...ast.Node) *ast.FunctionCall {
	n := &ast.FunctionCall{Name: name, Args: args}
	n.Kind = ast.KindFunctionCall
	return n
}

func param(name string) *ast.Param {
	return &ast.Param{Name: name}
}

func macroDef(name string, params []string, body ...ast.Node) *ast.FunctionDef {
	ps := make([]*ast.Param, len(params))
	for i, p := range params {
		ps[i] = param(p)
	}
	fn := &ast.FunctionDef{Name: name, Params: ps, Body: body}
	fn.Kind = ast.KindFunctionDef
	return fn
}

func printOf(expr ast.Node) *ast.Print {
	p := &ast.Print{Expression: expr}
	p.Kind = ast.KindPrint
	return p
}

func TestIsMacroName(t *testing.T) {
	if !IsMacroName("macro_double") {
		t.Error("macro_double should be recognized as a macro name")
	}
	if IsMacroName("macro_") {
		t.Error("bare prefix with no suffix should not count")
	}
	if IsMacroName("double") {
		t.Error("double should not be recognized as a macro name")
	}
}

func TestRegisterFromProgramRemovesMacroDefs(t *testing.T) {
	m := macroDef("macro_twice", []string{"x"}, printOf(ident("x")))
	ordinary := macroDef("helper", nil, printOf(ident("y")))
	prog := &ast.Program{Statements: []ast.Node{m, ordinary}}
	prog.Kind = ast.KindProgram

	table := NewTable(0)
	removed := table.RegisterFromProgram(prog)

	if removed != 1 {
		t.Fatalf("got removed=%d, want 1", removed)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements remaining, want 1", len(prog.Statements))
	}
	if prog.Statements[0] != ordinary {
		t.Errorf("got %+v remaining, want the ordinary function", prog.Statements[0])
	}
	if _, ok := table.Lookup("macro_twice"); !ok {
		t.Error("macro_twice should be registered")
	}
}

func TestExpandSubstitutesMatchingCallSite(t *testing.T) {
	m := macroDef("macro_log", []string{"msg"}, printOf(ident("msg")))
	prog := &ast.Program{Statements: []ast.Node{
		m,
		call("macro_log", ident("greeting")),
	}}
	prog.Kind = ast.KindProgram

	table := NewTable(0)
	table.RegisterFromProgram(prog)
	stats := NewExpander(table).Expand(prog)

	if stats.Expanded != 1 {
		t.Fatalf("got Expanded=%d, want 1", stats.Expanded)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	p, ok := prog.Statements[0].(*ast.Print)
	if !ok {
		t.Fatalf("got %T, want *ast.Print", prog.Statements[0])
	}
	if id, ok := p.Expression.(*ast.Identifier); !ok || id.Name != "msg" {
		t.Errorf("got %+v, want Identifier(msg) (macro body copied verbatim)", p.Expression)
	}
}

func TestExpandArityMismatchLeavesCallInPlace(t *testing.T) {
	m := macroDef("macro_add", []string{"a", "b"}, printOf(ident("a")))
	badCall := call("macro_add", ident("x"))
	prog := &ast.Program{Statements: []ast.Node{m, badCall}}
	prog.Kind = ast.KindProgram

	table := NewTable(0)
	table.RegisterFromProgram(prog)
	stats := NewExpander(table).Expand(prog)

	if stats.ArityMismatches != 1 {
		t.Fatalf("got ArityMismatches=%d, want 1", stats.ArityMismatches)
	}
	if len(prog.Statements) != 1 || prog.Statements[0] != badCall {
		t.Fatalf("got %+v, want the original call left in place", prog.Statements)
	}
	if len(table.Warnings()) != 1 {
		t.Errorf("got %d warnings, want 1", len(table.Warnings()))
	}
}

func TestExpandDescendsIntoNestedBodies(t *testing.T) {
	m := macroDef("macro_log", nil, printOf(ident("inside")))
	fn := macroDef("outer", nil, call("macro_log"))
	prog := &ast.Program{Statements: []ast.Node{m, fn}}
	prog.Kind = ast.KindProgram

	table := NewTable(0)
	table.RegisterFromProgram(prog)
	NewExpander(table).Expand(prog)

	outer := prog.Statements[0].(*ast.FunctionDef)
	if len(outer.Body) != 1 {
		t.Fatalf("got %d statements in outer body, want 1", len(outer.Body))
	}
	if _, ok := outer.Body[0].(*ast.Print); !ok {
		t.Fatalf("got %T, want *ast.Print (expanded macro body)", outer.Body[0])
	}
}

func TestStringifyAndConcat(t *testing.T) {
	if got := Stringify(&ast.NumberLiteral{Value: 3.5}); got != "3.5" {
		t.Errorf("got %q, want %q", got, "3.5")
	}
	if got := Stringify(ident("foo")); got != "foo" {
		t.Errorf("got %q, want %q", got, "foo")
	}
	if got := Stringify(&ast.ArrayLiteral{}); got != "<<unprintable>>" {
		t.Errorf("got %q, want %q", got, "<<unprintable>>")
	}
	if got := Concat("ab", "cd"); got != "abcd" {
		t.Errorf("got %q, want %q", got, "abcd")
	}
}
