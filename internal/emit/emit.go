// Package emit implements a deliberately minimal C backend: just
// enough of the AST shapes the end-to-end scenarios exercise (print,
// var decl/assign, arithmetic, if/while, function def/call) to make
// internal/driver runnable, not a complete Lyn-to-C compiler. Spec §6
// describes the emitter's contract against the AST (I1–I6, no leftover
// macro/aspect definitions); anything outside that minimal shape
// returns an error naming the unsupported construct rather than
// guessing at a C translation.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/th13vn/lync/pkg/ast"
)

// Emitter turns an optimized, woven, macro-free Program into portable
// C source text.
type Emitter interface {
	Emit(prog *ast.Program) (string, error)
}

// CEmitter is the one concrete Emitter in this package.
type CEmitter struct{}

// New creates a CEmitter.
func New() *CEmitter { return &CEmitter{} }

// Emit renders prog as a single C translation unit: top-level
// FunctionDefs become C functions, top-level ClassDefs become a struct
// plus its methods as C functions taking an explicit receiver pointer,
// and every other top-level statement becomes a line in `main`.
func (e *CEmitter) Emit(prog *ast.Program) (string, error) {
	var decls, body strings.Builder

	for _, stmt := range prog.Statements {
		switch n := stmt.(type) {
		case *ast.FunctionDef:
			if err := emitFunction(&decls, n, ""); err != nil {
				return "", err
			}
		case *ast.ClassDef:
			if err := emitClass(&decls, n); err != nil {
				return "", err
			}
		case *ast.Import, *ast.ModuleDecl:
			// No module/linking model at this minimal emission level;
			// imports are resolved ahead of emission (or ignored).
			continue
		case *ast.AspectDef:
			return "", fmt.Errorf("emit: AspectDef %q reached the emitter; aspects must be woven away first (I6)", n.Name)
		default:
			if isMacroCall(stmt) {
				return "", fmt.Errorf("emit: unexpanded macro call reached the emitter (I6)")
			}
			if err := emitStmt(&body, stmt, 1); err != nil {
				return "", err
			}
		}
	}

	var out strings.Builder
	out.WriteString("#include <stdio.h>\n")
	out.WriteString("#include <stdlib.h>\n")
	out.WriteString("#include <string.h>\n\n")
	out.WriteString(decls.String())
	out.WriteString("int main(void) {\n")
	out.WriteString(body.String())
	out.WriteString("  return 0;\n}\n")
	return out.String(), nil
}

func isMacroCall(n ast.Node) bool {
	call, ok := n.(*ast.FunctionCall)
	return ok && strings.HasPrefix(call.Name, "macro_")
}

func indent(lvl int) string { return strings.Repeat("  ", lvl) }

func emitFunction(w *strings.Builder, fn *ast.FunctionDef, receiver string) error {
	params := make([]string, 0, len(fn.Params)+1)
	if receiver != "" {
		params = append(params, fmt.Sprintf("struct %s *self", receiver))
	}
	for _, p := range fn.Params {
		params = append(params, fmt.Sprintf("double %s", sanitize(p.Name)))
	}
	if len(params) == 0 {
		params = append(params, "void")
	}
	name := sanitize(fn.Name)
	fmt.Fprintf(w, "double %s(%s) {\n", name, strings.Join(params, ", "))
	for _, s := range fn.Body {
		if err := emitStmt(w, s, 1); err != nil {
			return err
		}
	}
	w.WriteString("  return 0;\n}\n\n")
	return nil
}

func emitClass(w *strings.Builder, cls *ast.ClassDef) error {
	fmt.Fprintf(w, "struct %s {\n", sanitize(cls.Name))
	for _, m := range cls.Members {
		if m.Field != nil {
			fmt.Fprintf(w, "  double %s;\n", sanitize(m.Field.Name))
		}
	}
	w.WriteString("};\n\n")
	for _, m := range cls.Members {
		if m.Method != nil {
			if err := emitFunction(w, m.Method, cls.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// sanitize maps a Lyn name (which may contain `.` from receiver
// threading, e.g. "Point.distance") to a legal C identifier.
func sanitize(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func emitStmt(w *strings.Builder, stmt ast.Node, lvl int) error {
	pad := indent(lvl)
	switch n := stmt.(type) {
	case *ast.Print:
		expr, err := emitExpr(n.Expression)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%sprintf(%s, %s);\n", pad, printfFormat(n.Expression), expr)
	case *ast.VarDecl:
		if n.Initializer == nil {
			fmt.Fprintf(w, "%sdouble %s;\n", pad, sanitize(n.Name))
			return nil
		}
		expr, err := emitExpr(n.Initializer)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%sdouble %s = %s;\n", pad, sanitize(n.Name), expr)
	case *ast.VarAssign:
		expr, err := emitExpr(n.Initializer)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s = %s;\n", pad, sanitize(n.Name), expr)
	case *ast.If:
		cond, err := emitExpr(n.Condition)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%sif (%s) {\n", pad, cond)
		for _, s := range n.Then {
			if err := emitStmt(w, s, lvl+1); err != nil {
				return err
			}
		}
		if len(n.Else) > 0 {
			fmt.Fprintf(w, "%s} else {\n", pad)
			for _, s := range n.Else {
				if err := emitStmt(w, s, lvl+1); err != nil {
					return err
				}
			}
		}
		fmt.Fprintf(w, "%s}\n", pad)
	case *ast.While:
		cond, err := emitExpr(n.Condition)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%swhile (%s) {\n", pad, cond)
		for _, s := range n.Body {
			if err := emitStmt(w, s, lvl+1); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s}\n", pad)
	case *ast.Return:
		if n.Expression == nil {
			fmt.Fprintf(w, "%sreturn 0;\n", pad)
			return nil
		}
		expr, err := emitExpr(n.Expression)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%sreturn %s;\n", pad, expr)
	case *ast.Break:
		fmt.Fprintf(w, "%sbreak;\n", pad)
	case *ast.Continue:
		fmt.Fprintf(w, "%scontinue;\n", pad)
	case *ast.FunctionCall:
		expr, err := emitExpr(n)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s;\n", pad, expr)
	default:
		return fmt.Errorf("emit: statement kind %s is outside the minimal emitter's supported shape", stmt.NodeKind())
	}
	return nil
}

func emitExpr(n ast.Node) (string, error) {
	switch e := n.(type) {
	case *ast.NumberLiteral:
		return strconv.FormatFloat(e.Value, 'g', -1, 64), nil
	case *ast.StringLiteral:
		return strconv.Quote(e.Value), nil
	case *ast.BooleanLiteral:
		if e.Value {
			return "1", nil
		}
		return "0", nil
	case *ast.Identifier:
		return sanitize(e.Name), nil
	case *ast.BinaryOp:
		l, err := emitExpr(e.Left)
		if err != nil {
			return "", err
		}
		r, err := emitExpr(e.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, cOperator(e.Op), r), nil
	case *ast.UnaryOp:
		operand, err := emitExpr(e.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s%s)", cUnaryOperator(e.Op), operand), nil
	case *ast.FunctionCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			arg, err := emitExpr(a)
			if err != nil {
				return "", err
			}
			args[i] = arg
		}
		return fmt.Sprintf("%s(%s)", sanitize(e.Name), strings.Join(args, ", ")), nil
	case *ast.MemberAccess:
		obj, err := emitExpr(e.Object)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s->%s", obj, sanitize(e.Member)), nil
	default:
		return "", fmt.Errorf("emit: expression kind %s is outside the minimal emitter's supported shape", n.NodeKind())
	}
}

// cOperator maps the one-byte BinOp tag to its C spelling. Comparisons
// that folded to a NumberLiteral never reach here; this only runs for
// operands the optimizer left symbolic.
func cOperator(op ast.BinOp) string {
	switch op {
	case ast.OpAdd:
		return "+"
	case ast.OpSub:
		return "-"
	case ast.OpMul:
		return "*"
	case ast.OpDiv:
		return "/"
	case ast.OpEq:
		return "=="
	case ast.OpNe:
		return "!="
	case ast.OpGe:
		return ">="
	case ast.OpLe:
		return "<="
	default:
		return string(rune(op))
	}
}

// cUnaryOperator maps the lexeme-valued UnaryOp ("not", "-") to its C
// spelling.
func cUnaryOperator(op ast.UnaryOp) string {
	switch op {
	case ast.UnaryNot:
		return "!"
	case ast.UnaryNeg:
		return "-"
	default:
		return string(op)
	}
}

// printfFormat picks a best-effort printf conversion for expr. Full
// type-directed formatting depends on type inference, which is
// out of scope here (spec §1); this falls back to a literal-kind
// heuristic sufficient for the end-to-end scenarios.
func printfFormat(expr ast.Node) string {
	if t := expr.InferredType(); t != nil {
		switch t.Name {
		case "string":
			return `"%s\n"`
		case "bool":
			return `"%d\n"`
		}
		return `"%g\n"`
	}
	switch expr.(type) {
	case *ast.StringLiteral:
		return `"%s\n"`
	case *ast.BooleanLiteral:
		return `"%d\n"`
	default:
		return `"%g\n"`
	}
}
