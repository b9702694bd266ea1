// Package report provides the uniform error/context reporter and
// structured logging side-channel shared by every compiler pass.
package report

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Kind enumerates the error taxonomy every pass classifies its
// failures into.
type Kind string

const (
	KindNone      Kind = "none"
	KindSyntax    Kind = "syntax"
	KindSemantic  Kind = "semantic"
	KindType      Kind = "type"
	KindName      Kind = "name"
	KindMemory    Kind = "memory"
	KindIO        Kind = "io"
	KindLimit     Kind = "limit"
	KindUndefined Kind = "undefined"
	KindRuntime   Kind = "runtime"
)

// Error is the uniform error value every pass reports through.
type Error struct {
	File        string
	Line        int
	Column      int
	Kind        Kind
	Message     string
	Context     string // the source line the error occurred on, if known
	CaretColumn int     // column at which to draw the '^' indicator within Context
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Message)
}

// Caret renders the error's source context with a '^' under the
// failing column, mirroring the reporter's print_current contract.
func (e *Error) Caret() string {
	if e.Context == "" {
		return e.Error()
	}
	col := e.CaretColumn
	if col < 1 {
		col = 1
	}
	pad := strings.Repeat(" ", col-1)
	return fmt.Sprintf("%s\n%s\n%s^", e.Error(), e.Context, pad)
}

// Frame is one entry of the debug frame stack used for postmortem
// reconstruction of a pass's call path at the point of failure.
type Frame struct {
	Function string
	File     string
	Line     int
	Address  uintptr
}

// Reporter collects errors and warnings from every pass and exposes a
// debug frame stack. Fatal errors (syntax, memory, io) abort the
// compilation; semantic/weaving/macro issues are non-fatal warnings
// the driver may continue past.
type Reporter interface {
	Report(err *Error)
	Warn(err *Error)
	Errors() []*Error
	Warnings() []*Error
	HasFatal() bool
	PushFrame(f Frame)
	PopFrame()
	Frames() []Frame
}

// TextReporter is the concrete Reporter used by the CLI driver: it
// aggregates errors with go-multierror and mirrors every report
// through a go-hclog logger.
type TextReporter struct {
	file   string
	source []string
	log    hclog.Logger

	fatal    *multierror.Error
	warnings []*Error
	frames   []Frame
}

// NewTextReporter creates a reporter bound to a source file's text
// (used to extract caret context) and a structured logger.
func NewTextReporter(file, source string, log hclog.Logger) *TextReporter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &TextReporter{
		file:   file,
		source: strings.Split(source, "\n"),
		log:    log,
	}
}

func (r *TextReporter) lineContext(line int) string {
	if line < 1 || line > len(r.source) {
		return ""
	}
	return r.source[line-1]
}

func isFatalKind(k Kind) bool {
	switch k {
	case KindSyntax, KindMemory, KindIO:
		return true
	default:
		return false
	}
}

// Report records a fatal error (or one the caller has already
// classified as fatal) and logs it at error level.
func (r *TextReporter) Report(err *Error) {
	if err.File == "" {
		err.File = r.file
	}
	if err.Context == "" {
		err.Context = r.lineContext(err.Line)
		err.CaretColumn = err.Column
	}
	r.fatal = multierror.Append(r.fatal, err)
	r.log.Error(err.Message, "kind", err.Kind, "line", err.Line, "column", err.Column)
}

// Warn records a non-fatal warning and logs it at warn level. The
// driver inspects Warnings() to decide whether to continue.
func (r *TextReporter) Warn(err *Error) {
	if err.File == "" {
		err.File = r.file
	}
	if err.Context == "" {
		err.Context = r.lineContext(err.Line)
		err.CaretColumn = err.Column
	}
	r.warnings = append(r.warnings, err)
	r.log.Warn(err.Message, "kind", err.Kind, "line", err.Line, "column", err.Column)
}

func (r *TextReporter) Errors() []*Error {
	if r.fatal == nil {
		return nil
	}
	out := make([]*Error, 0, len(r.fatal.Errors))
	for _, e := range r.fatal.Errors {
		if ae, ok := e.(*Error); ok {
			out = append(out, ae)
		}
	}
	return out
}

func (r *TextReporter) Warnings() []*Error { return r.warnings }

func (r *TextReporter) HasFatal() bool {
	return r.fatal != nil && r.fatal.Len() > 0
}

func (r *TextReporter) PushFrame(f Frame) { r.frames = append(r.frames, f) }

func (r *TextReporter) PopFrame() {
	if len(r.frames) == 0 {
		return
	}
	r.frames = r.frames[:len(r.frames)-1]
}

func (r *TextReporter) Frames() []Frame { return r.frames }

// FatalError returns the aggregated multierror.Error for the fatal
// set, or nil if empty — suitable for returning directly as an error.
func (r *TextReporter) FatalError() error {
	if r.fatal == nil || r.fatal.Len() == 0 {
		return nil
	}
	return r.fatal
}
