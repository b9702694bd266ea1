// Package parser is the public entry point for turning Lyn source
// text into a Program AST.
package parser

import (
	"io"

	"github.com/th13vn/lync/internal/builder"
	"github.com/th13vn/lync/internal/report"
	"github.com/th13vn/lync/pkg/ast"

	"github.com/hashicorp/go-hclog"
)

// Options configures parsing behavior.
type Options struct {
	// Tolerant collects errors instead of stopping on the first one
	// (see builder.Options.Tolerant for the tradeoffs this implies).
	Tolerant bool
	// File is the source file name used in reported errors; empty for
	// anonymous/stdin input.
	File string
	// Log receives structured diagnostics during parsing. Defaults to
	// a null logger when nil.
	Log hclog.Logger
}

// Parse parses Lyn source text into a Program. The returned error, if
// any, is the aggregated *multierror.Error from the parse's reporter
// and can be inspected with errors.As for individual *report.Error
// entries.
func Parse(input string, opts *Options) (*ast.Program, error) {
	if opts == nil {
		opts = &Options{}
	}

	rep := report.NewTextReporter(opts.File, input, opts.Log)
	b := builder.New(input, &builder.Options{Tolerant: opts.Tolerant}, rep)

	prog, err := b.Build()
	if err != nil && !opts.Tolerant {
		return nil, err
	}
	return prog, err
}

// ParseReader reads all of r and parses it as Lyn source.
func ParseReader(r io.Reader, opts *Options) (*ast.Program, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(string(content), opts)
}

// Visit walks the AST and calls the appropriate visitor method for
// each node.
func Visit(node ast.Node, visitor ast.Visitor) {
	ast.Walk(node, visitor)
}

// Visitor is an alias for ast.Visitor.
type Visitor = ast.Visitor

// BaseVisitor is an alias for ast.BaseVisitor.
type BaseVisitor = ast.BaseVisitor
