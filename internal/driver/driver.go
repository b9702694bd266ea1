// Package driver wires the full compilation pipeline — lex (inside
// the parser), parse, aspect-weave, macro-expand, (stub) type infer,
// optimize, emit — and decides whether a given failure aborts the
// pipeline or is recorded as a warning the later stages run past
// (spec §7). Grounded on the teacher's cmd/solast/main.go
// runParse/runValidate orchestration: read input, call the parser,
// distinguish tolerant from strict failure, report.
package driver

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/th13vn/lync/internal/emit"
	"github.com/th13vn/lync/internal/macro"
	"github.com/th13vn/lync/internal/optimizer"
	"github.com/th13vn/lync/internal/report"
	"github.com/th13vn/lync/internal/weaver"
	"github.com/th13vn/lync/pkg/ast"
	"github.com/th13vn/lync/pkg/parser"
)

// Options configures one Compile call.
type Options struct {
	// File names the source for error messages; "" for stdin/anonymous
	// input.
	File string
	// Tolerant requests a best-effort partial AST on parse errors
	// instead of aborting at the first one (see builder.Options).
	Tolerant bool
	// DebugLevel is the CLI's -d flag (0..3), mapped to an hclog level:
	// 0 = off, 1 = error, 2 = warn, 3 = debug.
	DebugLevel int
	// OptLevel is the CLI's -o flag (0..2), passed straight through to
	// the optimizer. Constant propagation and CSE — independent flags
	// in spec §4.O — are turned on starting at level 1 and level 2
	// respectively, since the CLI surface (spec §6) exposes only the
	// single -o knob and not per-pass toggles.
	OptLevel int
	// Log receives structured stage-transition and warning output.
	// Defaults to a logger derived from DebugLevel when nil.
	Log hclog.Logger
}

// Result collects the pipeline's output and per-stage statistics.
type Result struct {
	Program    *ast.Program
	C          string
	WeaveStats *weaver.Stats
	MacroStats *macro.Stats
	OptStats   *optimizer.Stats
	Warnings   []*report.Error
	// Errors holds any fatal parse errors collected in tolerant mode
	// (Compile still returns a nil error in that case, since tolerant
	// mode's whole purpose is to keep going past them).
	Errors []*report.Error
}

func debugHclogLevel(d int) hclog.Level {
	switch {
	case d <= 0:
		return hclog.Off
	case d == 1:
		return hclog.Error
	case d == 2:
		return hclog.Warn
	default:
		return hclog.Debug
	}
}

func optimizerOptions(level int) optimizer.Options {
	return optimizer.Options{
		Level:     level,
		Propagate: level >= 1,
		CSE:       level >= 2,
	}
}

// Compile runs the full pipeline over source and returns the resulting
// Result. The returned error is non-nil only for a fatal failure
// (lexical/parse syntax errors in non-tolerant mode, or an emit
// failure) — weaving/macro/semantic issues are recorded in
// Result.Warnings and do not stop the pipeline, per spec §7's
// fatal/non-fatal taxonomy.
func Compile(source string, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = hclog.New(&hclog.LoggerOptions{
			Name:  "lync",
			Level: debugHclogLevel(opts.DebugLevel),
		})
	}

	rep := report.NewTextReporter(opts.File, source, log)

	log.Debug("stage: parse")
	prog, err := parser.Parse(source, &parser.Options{
		Tolerant: opts.Tolerant,
		File:     opts.File,
		Log:      log,
	})
	if err != nil && !opts.Tolerant {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if prog == nil {
		return nil, fmt.Errorf("parse: no program produced")
	}

	log.Debug("stage: weave", "statements", len(prog.Statements))
	wstats := weaver.New().Weave(prog)
	for _, e := range wstats.Errors {
		rep.Warn(&report.Error{Kind: report.KindSemantic, Message: e})
	}

	log.Debug("stage: macro-expand")
	mtable := macro.NewTable(0)
	mtable.RegisterFromProgram(prog)
	mstats := macro.NewExpander(mtable).Expand(prog)
	for _, w := range mtable.Warnings() {
		rep.Warn(&report.Error{Kind: report.KindSemantic, Message: w})
	}

	log.Debug("stage: type-infer (stub, not implemented)")

	log.Debug("stage: optimize", "level", opts.OptLevel)
	ostats := optimizer.New(optimizerOptions(opts.OptLevel), rep).Optimize(prog)

	log.Debug("stage: emit")
	cSrc, err := emit.New().Emit(prog)
	if err != nil {
		rep.Report(&report.Error{Kind: report.KindRuntime, Message: err.Error()})
		return nil, fmt.Errorf("emit: %w", err)
	}

	return &Result{
		Program:    prog,
		C:          cSrc,
		WeaveStats: wstats,
		MacroStats: mstats,
		OptStats:   ostats,
		Warnings:   rep.Warnings(),
		Errors:     rep.Errors(),
	}, nil
}
