// Package view renders controller state to a terminal.
package view

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/local/pagepicker/internal/backend"
	"github.com/local/pagepicker/internal/controller"
	"github.com/local/pagepicker/internal/workflow"
)

// Terminal is a controller.View that prints the step indicator, the page
// table, a progress bar and error notifications.
type Terminal struct {
	out         io.Writer
	interactive bool

	mu       sync.Mutex
	last     *controller.Snapshot
	bar      *progressbar.ProgressBar
	barValue int
}

// NewTerminal writes to out. A progress bar is drawn only when out is a TTY.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, interactive: IsTerminal(out)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (t *Terminal) Render(snap controller.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.last
	t.last = &snap

	stepChanged := prev == nil || prev.Step != snap.Step
	if stepChanged && prev != nil && prev.Step == workflow.Processing {
		t.finishBarLocked(snap.Step == workflow.Result)
	}
	if prev != nil && !stepChanged && sameSelection(*prev, snap) && prev.Busy == snap.Busy {
		return
	}

	fmt.Fprintln(t.out, StepLine(snap))
	if !stepChanged {
		return
	}
	switch snap.Step {
	case workflow.Preview:
		if snap.FileName != "" {
			fmt.Fprintf(t.out, "document %s, %d pages\n", snap.FileName, snap.TotalPages)
		}
		fmt.Fprintln(t.out, PageTable(snap))
	case workflow.Processing:
		t.startBarLocked()
	case workflow.Result:
		if snap.ResultMessage != "" {
			fmt.Fprintln(t.out, snap.ResultMessage)
		}
		fmt.Fprintf(t.out, "result ready: %s\n", snap.ResultRef)
	}
}

func (t *Terminal) Progress(percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar == nil {
		return
	}
	v := int(percent)
	if v <= t.barValue {
		return
	}
	t.barValue = v
	_ = t.bar.Set(v)
}

func (t *Terminal) Notify(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar != nil {
		_ = t.bar.Clear()
	}
	if backend.Retryable(err) {
		fmt.Fprintf(t.out, "error: %v (temporary, try again)\n", err)
		return
	}
	fmt.Fprintf(t.out, "error: %v\n", err)
}

func (t *Terminal) startBarLocked() {
	t.barValue = 0
	if !t.interactive {
		fmt.Fprintln(t.out, "processing...")
		return
	}
	t.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetDescription("processing"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (t *Terminal) finishBarLocked(success bool) {
	if t.bar == nil {
		return
	}
	if success {
		_ = t.bar.Set(100)
		_ = t.bar.Finish()
	} else {
		_ = t.bar.Clear()
	}
	t.bar = nil
	t.barValue = 0
}

func sameSelection(a, b controller.Snapshot) bool {
	if a.TotalPages != b.TotalPages || len(a.Selected) != len(b.Selected) {
		return false
	}
	for i := range a.Selected {
		if a.Selected[i] != b.Selected[i] {
			return false
		}
	}
	return true
}

// StepLine renders the four-step indicator with the active step bracketed,
// followed by the selection count.
func StepLine(snap controller.Snapshot) string {
	parts := make([]string, 0, 4)
	for _, s := range workflow.Steps() {
		label := fmt.Sprintf("%d %s", s.Number(), s)
		if s == snap.Step {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	line := strings.Join(parts, " > ")
	if snap.TotalPages > 0 {
		line += fmt.Sprintf("  |  %d/%d pages selected", len(snap.Selected), snap.TotalPages)
	}
	if snap.Busy {
		line += "  |  busy"
	}
	return line
}

// PageTable renders one row per page card. Page numbers are 1-based.
func PageTable(snap controller.Snapshot) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Page", "Selected", "Thumbnail"})
	selected := make(map[int]bool, len(snap.Selected))
	for _, p := range snap.Selected {
		selected[p] = true
	}
	for i := 0; i < snap.TotalPages; i++ {
		mark := ""
		if selected[i] {
			mark = "x"
		}
		thumb := ""
		if i < len(snap.Thumbnails) {
			thumb = snap.Thumbnails[i]
		}
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), mark, thumb})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
