package view

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/local/pagepicker/internal/backend"
	"github.com/local/pagepicker/internal/controller"
	"github.com/local/pagepicker/internal/workflow"
)

func TestStepLineMarksActiveStep(t *testing.T) {
	got := StepLine(controller.Snapshot{Step: workflow.Preview, TotalPages: 4, Selected: []int{0, 3}})
	want := "1 upload > [2 preview] > 3 processing > 4 result  |  2/4 pages selected"
	if got != want {
		t.Fatalf("StepLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestStepLineBusy(t *testing.T) {
	got := StepLine(controller.Snapshot{Step: workflow.Upload, Busy: true})
	if !strings.HasPrefix(got, "[1 upload]") || !strings.HasSuffix(got, "busy") {
		t.Fatalf("StepLine = %q", got)
	}
}

func TestPageTableMarksSelection(t *testing.T) {
	out := PageTable(controller.Snapshot{
		Step:       workflow.Preview,
		TotalPages: 3,
		Selected:   []int{1},
		Thumbnails: []string{"/t/a.png", "/t/b.png", "/t/c.png"},
	})
	lines := strings.Split(out, "\n")
	var rows []string
	for _, l := range lines {
		if strings.Contains(l, "/t/") {
			rows = append(rows, l)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 page rows, got %d:\n%s", len(rows), out)
	}
	if strings.Contains(rows[0], "x") || !strings.Contains(rows[1], " x ") || strings.Contains(rows[2], " x ") {
		t.Fatalf("selection marks wrong:\n%s", out)
	}
	if !strings.Contains(rows[0], " 1 ") || !strings.Contains(rows[2], " 3 ") {
		t.Fatalf("page numbers should be 1-based:\n%s", out)
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if IsTerminal(io.Discard) || IsTerminal(&bytes.Buffer{}) {
		t.Fatalf("expected non-file writers to be non-interactive")
	}
}

func TestTerminalRendersTransitions(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Render(controller.Snapshot{Step: workflow.Upload})
	term.Render(controller.Snapshot{Step: workflow.Preview, TotalPages: 2, Selected: []int{0, 1}, FileName: "doc.pdf"})
	term.Render(controller.Snapshot{Step: workflow.Processing, TotalPages: 2, Selected: []int{0, 1}, Busy: true})
	term.Progress(40)
	term.Render(controller.Snapshot{Step: workflow.Result, TotalPages: 2, Selected: []int{0, 1}, ResultRef: "/download/out.pdf", ResultMessage: "PDF processed"})
	term.Notify(errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"document doc.pdf, 2 pages", "processing...", "PDF processed", "result ready: /download/out.pdf", "error: boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTerminalSkipsUnchangedRender(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	snap := controller.Snapshot{Step: workflow.Preview, TotalPages: 1, Selected: []int{0}}
	term.Render(snap)
	n := buf.Len()
	term.Render(snap)
	if buf.Len() != n {
		t.Fatalf("identical snapshot rendered twice:\n%s", buf.String())
	}
}

func TestNotifyMarksRetryable(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Notify(fmt.Errorf("%w: %w", controller.ErrProcessFailed, &backend.HTTPError{Endpoint: "process", StatusCode: 502, Body: "bad gateway"}))
	if !strings.Contains(buf.String(), "(temporary, try again)") {
		t.Fatalf("output = %q", buf.String())
	}
	buf.Reset()
	term.Notify(controller.ErrEmptySelection)
	if strings.Contains(buf.String(), "temporary") {
		t.Fatalf("output = %q", buf.String())
	}
}
