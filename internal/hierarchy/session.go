package hierarchy

import (
	"fmt"
	"strings"
)

// Status texts shown when a session has nothing selectable.
const (
	StatusTextNoResults         = "No results."
	StatusTextNoFilteredResults = "No results (after filtering)."
)

// Session is the state of one open picker: the unfiltered closure, the
// current query, and the entries derived from both. Every query change
// reclassifies from the unfiltered closure.
//
// A Session is not safe for concurrent use; pickers drive it from a single
// goroutine.
type Session struct {
	origin            TypeDescriptor
	direction         Direction
	originIsInterface bool
	closure           Closure
	warning           string

	query    string
	entries  []Entry
	selected int
}

// NewSession opens a session over closure. warning is an optional advisory
// line shown above the list.
func NewSession(origin TypeDescriptor, direction Direction, closure Closure, warning string) *Session {
	s := &Session{
		origin:    origin,
		direction: direction,
		closure:   closure,
		warning:   warning,
	}
	if origin != nil {
		s.originIsInterface = origin.Kind() == KindInterface
	}
	s.rebuild()
	return s
}

// Header names the navigation, e.g. "Find derived types of IRepository".
func (s *Session) Header() string {
	name := ""
	if s.origin != nil {
		name = s.origin.DisplayName()
	}
	if s.direction == DirectionDerived {
		return fmt.Sprintf("Find derived types of %s", name)
	}
	return fmt.Sprintf("Find base types of %s", name)
}

func (s *Session) Direction() Direction {
	return s.direction
}

func (s *Session) Origin() TypeDescriptor {
	return s.origin
}

func (s *Session) Warning() string {
	return s.warning
}

func (s *Session) Query() string {
	return s.query
}

// SetQuery replaces the filter text and recomputes entries.
func (s *Session) SetQuery(query string) {
	s.query = query
	s.rebuild()
}

func (s *Session) Entries() []Entry {
	return s.entries
}

// SelectedIndex is the index into Entries of the selected row, or -1.
func (s *Session) SelectedIndex() int {
	return s.selected
}

// Selected returns the selected row.
func (s *Session) Selected() (SymbolRow, bool) {
	if s.selected < 0 || s.selected >= len(s.entries) {
		return SymbolRow{}, false
	}
	row, ok := s.entries[s.selected].(SymbolRow)
	return row, ok
}

// Status is empty while there are rows to choose from. Otherwise it tells
// an empty closure apart from one the filter emptied.
func (s *Session) Status() string {
	if s.selected >= 0 {
		return ""
	}
	if len(s.closure) == 0 {
		return StatusTextNoResults
	}
	return StatusTextNoFilteredResults
}

// Select moves the selection to entries[index] if that entry is selectable.
func (s *Session) Select(index int) bool {
	if index < 0 || index >= len(s.entries) || !s.entries[index].Selectable() {
		return false
	}
	s.selected = index
	return true
}

// MoveSelection steps delta selectable rows up (negative) or down, clamping
// at both ends. Headers are skipped.
func (s *Session) MoveSelection(delta int) {
	rows := s.selectableIndexes()
	if len(rows) == 0 {
		s.selected = -1
		return
	}

	pos := 0
	for i, idx := range rows {
		if idx == s.selected {
			pos = i
			break
		}
	}
	pos = min(max(pos+delta, 0), len(rows)-1)
	s.selected = rows[pos]
}

// Accept confirms the selected row. With nothing selected it cancels.
func (s *Session) Accept() Selection {
	row, ok := s.Selected()
	if !ok {
		return Selection{}
	}
	return Selection{Confirmed: true, Selected: row.Entity.Type}
}

// Cancel closes the session without a choice.
func (s *Session) Cancel() Selection {
	return Selection{}
}

// Rows returns only the selectable entries, in display order.
func (s *Session) Rows() []SymbolRow {
	rows := make([]SymbolRow, 0, len(s.entries))
	for _, entry := range s.entries {
		if row, ok := entry.(SymbolRow); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func (s *Session) rebuild() {
	s.entries = Classify(s.closure, s.direction, s.originIsInterface, strings.TrimSpace(s.query))
	s.selected = -1
	for i, entry := range s.entries {
		if entry.Selectable() {
			s.selected = i
			break
		}
	}
}

func (s *Session) selectableIndexes() []int {
	var out []int
	for i, entry := range s.entries {
		if entry.Selectable() {
			out = append(out, i)
		}
	}
	return out
}
