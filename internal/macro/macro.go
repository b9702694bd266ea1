// Package macro implements the macro evaluator: it registers
// `macro_`-prefixed function definitions and substitutes their bodies
// at matching call sites.
package macro

import (
	"fmt"
	"strconv"

	"github.com/th13vn/lync/pkg/ast"
)

// DefaultMaxMacros bounds the macro table, mirroring the source's
// fixed-capacity process-wide table (spec §4.M).
const DefaultMaxMacros = 256

// macroPrefix is the naming convention that marks a FunctionDef as a
// macro definition rather than an ordinary function.
const macroPrefix = "macro_"

// Macro is a registered macro: its parameter names and a body held by
// deep copy, severed from the AST it was read out of (spec §9's
// exclusive-ownership requirement — the source holds macro bodies by
// reference into a tree that later mutates out from under them).
type Macro struct {
	Name   string
	Params []string
	Body   []ast.Node
}

// Table is the process-wide macro table, capped at Max entries.
type Table struct {
	Max      int
	macros   map[string]*Macro
	warnings []string
}

// NewTable creates an empty table capped at max entries (DefaultMaxMacros
// if max <= 0).
func NewTable(max int) *Table {
	if max <= 0 {
		max = DefaultMaxMacros
	}
	return &Table{Max: max, macros: make(map[string]*Macro)}
}

// Warnings returns the non-fatal diagnostics accumulated by Register
// and Expand calls (arity mismatches, capacity overflow).
func (t *Table) Warnings() []string { return t.warnings }

func (t *Table) warn(format string, args ...interface{}) {
	t.warnings = append(t.warnings, fmt.Sprintf(format, args...))
}

// IsMacroName reports whether name begins with the macro_ prefix.
func IsMacroName(name string) bool {
	return len(name) > len(macroPrefix) && name[:len(macroPrefix)] == macroPrefix
}

// RegisterFromProgram removes every top-level FunctionDef whose name
// begins with macro_ from prog.Statements, registers it in t, and
// returns the count removed. Must run before expansion so call sites
// see a macro-free function namespace.
func (t *Table) RegisterFromProgram(prog *ast.Program) int {
	kept := prog.Statements[:0:0]
	removed := 0
	for _, stmt := range prog.Statements {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok || !IsMacroName(fn.Name) {
			kept = append(kept, stmt)
			continue
		}
		t.register(fn)
		removed++
	}
	prog.Statements = kept
	return removed
}

func (t *Table) register(fn *ast.FunctionDef) {
	if len(t.macros) >= t.Max {
		t.warn("macro table full (max %d): dropping macro %q", t.Max, fn.Name)
		return
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
	}
	body := make([]ast.Node, len(fn.Body))
	for i, s := range fn.Body {
		body[i] = ast.Copy(s)
	}
	t.macros[fn.Name] = &Macro{Name: fn.Name, Params: params, Body: body}
}

// Lookup returns the registered macro for name, if any.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// Expander walks an AST and replaces FunctionCall statements that
// match a registered macro with a Program node of deep-copied body
// statements (spec §4.M). It is a statement-level rewrite: expansion
// only replaces call nodes that appear directly in a statement-list
// position, since a Program node (the expansion's return shape) cannot
// be spliced in place of a sub-expression.
type Expander struct {
	table *Table
	stats *Stats
}

// Stats reports expansion outcomes.
type Stats struct {
	Expanded       int
	ArityMismatches int
}

// NewExpander creates an Expander bound to table.
func NewExpander(table *Table) *Expander {
	return &Expander{table: table, stats: &Stats{}}
}

// Expand rewrites prog.Statements in place, replacing any
// FunctionCall statement whose name matches a registered macro. It
// recurses into every nested statement list (function/class bodies,
// if/while/for/switch/try/match bodies) so macro calls anywhere in the
// program are expanded, not only at top level.
func (e *Expander) Expand(prog *ast.Program) *Stats {
	prog.Statements = e.expandList(prog.Statements)
	return e.stats
}

func (e *Expander) expandList(stmts []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(stmts))
	for _, stmt := range stmts {
		e.descend(stmt)
		if call, ok := asMacroCall(stmt); ok {
			if expanded, ok := e.tryExpand(call); ok {
				out = append(out, expanded.Statements...)
				continue
			}
		}
		out = append(out, stmt)
	}
	return out
}

// descend recurses into stmt's nested statement-list fields so macro
// calls nested in control-flow bodies are also expanded.
func (e *Expander) descend(stmt ast.Node) {
	switch n := stmt.(type) {
	case *ast.FunctionDef:
		n.Body = e.expandList(n.Body)
	case *ast.If:
		n.Then = e.expandList(n.Then)
		n.Else = e.expandList(n.Else)
	case *ast.While:
		n.Body = e.expandList(n.Body)
	case *ast.DoWhile:
		n.Body = e.expandList(n.Body)
	case *ast.For:
		n.Body = e.expandList(n.Body)
	case *ast.Switch:
		for _, c := range n.Cases {
			c.Body = e.expandList(c.Body)
		}
		n.Default = e.expandList(n.Default)
	case *ast.TryCatch:
		n.Try = e.expandList(n.Try)
		n.Catch = e.expandList(n.Catch)
		n.Finally = e.expandList(n.Finally)
	case *ast.PatternMatch:
		for _, c := range n.Cases {
			c.Body = e.expandList(c.Body)
		}
		n.Otherwise = e.expandList(n.Otherwise)
	case *ast.ClassDef:
		for _, m := range n.Members {
			if m.Method != nil {
				m.Method.Body = e.expandList(m.Method.Body)
			}
		}
	case *ast.ModuleDecl:
		n.Declarations = e.expandList(n.Declarations)
	}
}

// asMacroCall reports whether stmt is a bare FunctionCall statement
// naming a macro.
func asMacroCall(stmt ast.Node) (*ast.FunctionCall, bool) {
	call, ok := stmt.(*ast.FunctionCall)
	if !ok || !IsMacroName(call.Name) {
		return nil, false
	}
	return call, true
}

func (e *Expander) tryExpand(call *ast.FunctionCall) (*ast.Program, bool) {
	m, ok := e.table.Lookup(call.Name)
	if !ok {
		return nil, false
	}
	if len(call.Args) != len(m.Params) {
		e.table.warn("macro %q called with %d args, expected %d", call.Name, len(call.Args), len(m.Params))
		e.stats.ArityMismatches++
		return nil, false
	}
	body := make([]ast.Node, len(m.Body))
	for i, s := range m.Body {
		body[i] = ast.Copy(s)
	}
	prog := &ast.Program{Statements: body}
	prog.Kind = ast.KindProgram
	e.stats.Expanded++
	return prog, true
}

// Stringify returns the textual form of a literal-ish node, per spec
// §4.M; unsupported kinds return "<<unprintable>>".
func Stringify(n ast.Node) string {
	switch t := n.(type) {
	case *ast.NumberLiteral:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case *ast.StringLiteral:
		return t.Value
	case *ast.Identifier:
		return t.Name
	case *ast.BooleanLiteral:
		return strconv.FormatBool(t.Value)
	default:
		return "<<unprintable>>"
	}
}

// Concat returns the concatenation of s1 and s2, matching the
// source's `concat(s1, s2)` helper.
func Concat(s1, s2 string) string {
	return s1 + s2
}
