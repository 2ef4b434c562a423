package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// parseProgressReporter draws a one-line spinner while files are parsed.
// It stays silent unless w is a terminal and JSON output is off.
type parseProgressReporter struct {
	w       io.Writer
	enabled bool
	label   string
	total   int
	start   time.Time
	spinner int
	lastLen int
}

func newParseProgressReporter(w io.Writer, label string, total int, asJSON bool) *parseProgressReporter {
	return &parseProgressReporter{
		w:       w,
		enabled: !asJSON && isTerminal(w),
		label:   label,
		total:   total,
		start:   time.Now(),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (r *parseProgressReporter) Update(file string, count int) {
	if !r.enabled {
		return
	}
	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	file = strings.TrimSpace(file)
	if len(file) > 88 {
		file = "..." + file[len(file)-85:]
	}

	status := fmt.Sprintf("%s %s %d parsing %s", frame, r.label, count, file)
	if r.total > 0 {
		status = fmt.Sprintf("%s %s %d/%d parsing %s", frame, r.label, count, r.total, file)
	}
	r.printStatus(status)
}

func (r *parseProgressReporter) Done(count int) {
	if !r.enabled || count == 0 {
		return
	}
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("%s parsed %d files in %s", r.label, count, elapsed))
	fmt.Fprintln(r.w)
}

func (r *parseProgressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status += strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(r.w, "\r%s", status)
}
