// Package picker presents a hierarchy.Session and returns the user's choice:
// an interactive terminal list, a plain text listing, or a non-interactive
// answer for scripts.
package picker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/skelly-dev/typenav/internal/hierarchy"
)

type Options struct {
	// First accepts the first selectable row without asking.
	First bool
	In    io.Reader
	// Out receives the plain listing when no terminal is attached.
	Out io.Writer
	// TUI is where the interactive picker draws. It keeps stdout free for
	// the chosen location.
	TUI io.Writer
}

// Choose picks the interactive picker only when both ends are terminals.
func Choose(opts Options) hierarchy.Picker {
	if opts.First {
		return First{}
	}
	if isTerminal(opts.In) && isTerminal(opts.TUI) {
		return &Interactive{In: opts.In, Out: opts.TUI}
	}
	return &List{Out: opts.Out}
}

func isTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// First accepts the first selectable row.
type First struct{}

func (First) Pick(_ context.Context, session *hierarchy.Session) (hierarchy.Selection, error) {
	return session.Accept(), nil
}

// List prints the grouped candidates and cancels.
type List struct {
	Out io.Writer
}

func (l *List) Pick(_ context.Context, session *hierarchy.Session) (hierarchy.Selection, error) {
	if _, err := io.WriteString(l.Out, Render(session)); err != nil {
		return hierarchy.Selection{}, err
	}
	return session.Cancel(), nil
}

// Snapshot records what a picker would have shown, for JSON output. It
// cancels unless First is set.
type Snapshot struct {
	First bool

	Shown   bool
	Header  string
	Warning string
	Entries []hierarchy.Entry
}

func (s *Snapshot) Pick(_ context.Context, session *hierarchy.Session) (hierarchy.Selection, error) {
	s.Shown = true
	s.Header = session.Header()
	s.Warning = session.Warning()
	s.Entries = session.Entries()
	if s.First {
		return session.Accept(), nil
	}
	return session.Cancel(), nil
}

// Render formats a session as plain text, one entry per line.
func Render(session *hierarchy.Session) string {
	var b strings.Builder
	b.WriteString(session.Header())
	b.WriteByte('\n')
	if warning := session.Warning(); warning != "" {
		b.WriteString(warning)
		b.WriteByte('\n')
	}
	for _, entry := range session.Entries() {
		switch e := entry.(type) {
		case hierarchy.GroupHeader:
			b.WriteString(e.Title)
		case hierarchy.SymbolRow:
			fmt.Fprintf(&b, "%s%s %s  %s  %s", rowIndent(e), e.Glyph, e.DisplayName, e.Details, firstLocation(e))
		}
		b.WriteByte('\n')
	}
	if status := session.Status(); status != "" {
		b.WriteString(status)
		b.WriteByte('\n')
	}
	return b.String()
}

func rowIndent(row hierarchy.SymbolRow) string {
	return strings.Repeat("  ", 1+row.Indent)
}

func firstLocation(row hierarchy.SymbolRow) string {
	locations := row.Entity.Type.Locations()
	if len(locations) == 0 {
		return "(external)"
	}
	return locations[0].String()
}
