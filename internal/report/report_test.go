package report

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

func TestReportCollectsFatalErrors(t *testing.T) {
	r := NewTextReporter("test.lyn", "main\n  a = \nend", hclog.NewNullLogger())

	r.Report(&Error{Line: 2, Column: 7, Kind: KindSyntax, Message: "expected expression, got end"})

	if !r.HasFatal() {
		t.Fatal("expected HasFatal to be true after Report")
	}
	errs := r.Errors()
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].Context != "  a = " {
		t.Errorf("got context %q", errs[0].Context)
	}
}

func TestWarnDoesNotSetFatal(t *testing.T) {
	r := NewTextReporter("test.lyn", "main\nend", hclog.NewNullLogger())
	r.Warn(&Error{Line: 1, Column: 1, Kind: KindSemantic, Message: "unknown type on optional path"})

	if r.HasFatal() {
		t.Fatal("Warn must not set HasFatal")
	}
	if len(r.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1", len(r.Warnings()))
	}
}

func TestFrameStackIsLIFO(t *testing.T) {
	r := NewTextReporter("test.lyn", "", hclog.NewNullLogger())
	r.PushFrame(Frame{Function: "parseProgram"})
	r.PushFrame(Frame{Function: "parseStatement"})

	if len(r.Frames()) != 2 {
		t.Fatalf("got %d frames, want 2", len(r.Frames()))
	}
	r.PopFrame()
	frames := r.Frames()
	if len(frames) != 1 || frames[0].Function != "parseProgram" {
		t.Fatalf("got %+v after pop", frames)
	}
}

func TestCaretFormatting(t *testing.T) {
	err := &Error{
		File: "test.lyn", Line: 3, Column: 5, Kind: KindSyntax,
		Message: "expected ')', got 'end'", Context: "  foo(1, 2", CaretColumn: 5,
	}
	out := err.Caret()
	if !strings.Contains(out, "^") {
		t.Fatalf("expected caret in output, got %q", out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
}

func TestFatalErrorAggregatesMultiple(t *testing.T) {
	r := NewTextReporter("test.lyn", "main\nend", hclog.NewNullLogger())
	r.Report(&Error{Line: 1, Column: 1, Kind: KindSyntax, Message: "first"})
	r.Report(&Error{Line: 2, Column: 1, Kind: KindSyntax, Message: "second"})

	err := r.FatalError()
	if err == nil {
		t.Fatal("expected non-nil aggregated error")
	}
	if !strings.Contains(err.Error(), "first") || !strings.Contains(err.Error(), "second") {
		t.Errorf("expected both messages in aggregated error, got %q", err.Error())
	}
}
