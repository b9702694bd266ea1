package emit

import (
	"strings"
	"testing"

	"github.com/th13vn/lync/pkg/ast"
)

func num(v float64) *ast.NumberLiteral {
	n := &ast.NumberLiteral{Value: v}
	n.Kind = ast.KindNumberLiteral
	return n
}

func ident(name string) *ast.Identifier {
	n := &ast.Identifier{Name: name}
	n.Kind = ast.KindIdentifier
	return n
}

func bin(op ast.BinOp, l, r ast.Node) *ast.BinaryOp {
	n := &ast.BinaryOp{Op: op, Left: l, Right: r}
	n.Kind = ast.KindBinaryOp
	return n
}

func printOf(e ast.Node) *ast.Print {
	p := &ast.Print{Expression: e}
	p.Kind = ast.KindPrint
	return p
}

func prog(stmts ...ast.Node) *ast.Program {
	p := &ast.Program{Statements: stmts}
	p.Kind = ast.KindProgram
	return p
}

// S1 — after level-1 optimization, print(15) / print(6.28) is emitted
// as a literal printf call.
func TestEmitPrintLiteral(t *testing.T) {
	p := prog(printOf(num(15)))
	out, err := New().Emit(p)
	if err != nil {
		t.Fatalf("Emit returned %v", err)
	}
	if !strings.Contains(out, `printf("%g\n", 15)`) {
		t.Fatalf("got %q, want a printf of 15", out)
	}
	if !strings.Contains(out, "int main(void) {") {
		t.Fatalf("got %q, want a main function", out)
	}
}

func TestEmitVarDeclAndAssign(t *testing.T) {
	p := prog(
		&ast.VarDecl{Name: "x", Initializer: num(1)},
		&ast.VarAssign{Name: "x", Initializer: bin(ast.OpAdd, ident("x"), num(1))},
	)
	p.Statements[0].(*ast.VarDecl).Kind = ast.KindVarDecl
	p.Statements[1].(*ast.VarAssign).Kind = ast.KindVarAssign

	out, err := New().Emit(p)
	if err != nil {
		t.Fatalf("Emit returned %v", err)
	}
	if !strings.Contains(out, "double x = 1;") {
		t.Fatalf("got %q, want a declaration of x", out)
	}
	if !strings.Contains(out, "x = (x + 1);") {
		t.Fatalf("got %q, want an assignment to x", out)
	}
}

func TestEmitIfWithElse(t *testing.T) {
	ifStmt := &ast.If{
		Condition: ident("flag"),
		Then:      []ast.Node{printOf(num(1))},
		Else:      []ast.Node{printOf(num(2))},
	}
	ifStmt.Kind = ast.KindIf
	out, err := New().Emit(prog(ifStmt))
	if err != nil {
		t.Fatalf("Emit returned %v", err)
	}
	if !strings.Contains(out, "if (flag) {") || !strings.Contains(out, "} else {") {
		t.Fatalf("got %q, want an if/else", out)
	}
}

func TestEmitFunctionDefAndCall(t *testing.T) {
	fn := &ast.FunctionDef{Name: "square", Params: []*ast.Param{{Name: "x"}}, Body: []ast.Node{
		&ast.Return{Expression: bin(ast.OpMul, ident("x"), ident("x"))},
	}}
	fn.Kind = ast.KindFunctionDef
	fn.Body[0].(*ast.Return).Kind = ast.KindReturn
	call := &ast.FunctionCall{Name: "square", Args: []ast.Node{num(3)}}
	call.Kind = ast.KindFunctionCall

	out, err := New().Emit(prog(fn, printOf(call)))
	if err != nil {
		t.Fatalf("Emit returned %v", err)
	}
	if !strings.Contains(out, "double square(double x) {") {
		t.Fatalf("got %q, want a square function", out)
	}
	if !strings.Contains(out, "square(3)") {
		t.Fatalf("got %q, want a call to square", out)
	}
}

func TestEmitRejectsUnwovenAspect(t *testing.T) {
	aspect := &ast.AspectDef{Name: "Leftover"}
	aspect.Kind = ast.KindAspectDef
	_, err := New().Emit(prog(aspect))
	if err == nil {
		t.Fatal("expected an error when an AspectDef reaches the emitter")
	}
}

func TestEmitRejectsUnexpandedMacroCall(t *testing.T) {
	call := &ast.FunctionCall{Name: "macro_log"}
	call.Kind = ast.KindFunctionCall
	_, err := New().Emit(prog(call))
	if err == nil {
		t.Fatal("expected an error when a macro_ call reaches the emitter")
	}
}

func TestEmitClassWithMethod(t *testing.T) {
	method := &ast.FunctionDef{Name: "Point.distance", Params: []*ast.Param{{Name: "p"}}, Body: []ast.Node{
		&ast.Return{Expression: num(0)},
	}}
	method.Kind = ast.KindFunctionDef
	method.Body[0].(*ast.Return).Kind = ast.KindReturn
	cls := &ast.ClassDef{Name: "Point", Members: []*ast.ClassMember{
		{Field: &ast.VarDecl{Name: "x"}},
		{Method: method},
	}}
	cls.Kind = ast.KindClassDef
	cls.Members[0].Field.Kind = ast.KindVarDecl

	out, err := New().Emit(prog(cls))
	if err != nil {
		t.Fatalf("Emit returned %v", err)
	}
	if !strings.Contains(out, "struct Point {") {
		t.Fatalf("got %q, want a Point struct", out)
	}
	if !strings.Contains(out, "double Point_distance(struct Point *self, double p) {") {
		t.Fatalf("got %q, want a sanitized method name with a receiver param", out)
	}
}
