package hierarchy

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Group titles, in the order they are emitted.
const (
	GroupBaseClassChain            = "Base class chain"
	GroupInterfaces                = "Interfaces"
	GroupDerivedInterfacesDirect   = "Derived interfaces · Direct"
	GroupDerivedInterfacesIndirect = "Derived interfaces · Indirect"
	GroupImplementationsDirect     = "Implementations · Direct"
	GroupImplementationsIndirect   = "Implementations · Indirect"
	GroupDerivedTypesDirect        = "Derived types · Direct"
	GroupDerivedTypesIndirect      = "Derived types · Indirect"
)

// Kind glyphs.
const (
	GlyphInterface = "I"
	GlyphStruct    = "S"
	GlyphEnum      = "E"
	GlyphRecord    = "R"
	GlyphAbstract  = "A"
	GlyphClass     = "C"
)

// Entry is one line of picker content.
type Entry interface {
	Selectable() bool
}

// GroupHeader titles a non-empty group of rows.
type GroupHeader struct {
	Title string
}

func (GroupHeader) Selectable() bool { return false }

// SymbolRow is a selectable candidate.
type SymbolRow struct {
	Entity      LeveledEntity
	DisplayName string
	Glyph       string
	Indent      int
	Details     string
}

func (SymbolRow) Selectable() bool { return true }

// Glyph picks the kind glyph for t. The first matching predicate wins:
// interface, struct, enum, record, abstract, then plain class.
func Glyph(t TypeDescriptor) string {
	switch {
	case t.Kind() == KindInterface:
		return GlyphInterface
	case t.Kind() == KindStruct:
		return GlyphStruct
	case t.Kind() == KindEnum:
		return GlyphEnum
	case t.IsRecord():
		return GlyphRecord
	case t.IsAbstract():
		return GlyphAbstract
	default:
		return GlyphClass
	}
}

// NewSymbolRow builds the row for entity.
func NewSymbolRow(entity LeveledEntity) SymbolRow {
	return SymbolRow{
		Entity:      entity,
		DisplayName: entity.Type.DisplayName(),
		Glyph:       Glyph(entity.Type),
		Indent:      max(entity.Level-1, 0),
		Details:     fmt.Sprintf("L%d", entity.Level),
	}
}

// group is one titled bucket. Rows in a byLevel group sort by level before
// name; direct groups only ever hold level 1.
type group struct {
	title   string
	keep    func(LeveledEntity) bool
	byLevel bool
}

// Classify filters closure by filter and groups the survivors for display.
// Empty groups are omitted, and every surviving entity lands in exactly one
// group.
func Classify(closure Closure, direction Direction, originIsInterface bool, filter string) []Entry {
	filtered := Filter(closure, filter)
	if len(filtered) == 0 {
		return nil
	}

	var entries []Entry
	for _, g := range groupsFor(direction, originIsInterface) {
		var rows []SymbolRow
		for _, entity := range filtered {
			if g.keep(entity) {
				rows = append(rows, NewSymbolRow(entity))
			}
		}
		if len(rows) == 0 {
			continue
		}
		sortRows(rows, g.byLevel)

		entries = append(entries, GroupHeader{Title: g.title})
		for _, row := range rows {
			entries = append(entries, row)
		}
	}
	return entries
}

// Filter keeps entities whose display name or simple name contains query,
// ignoring case. A blank query keeps everything.
func Filter(closure Closure, query string) Closure {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return closure
	}
	out := make(Closure, 0, len(closure))
	for _, entity := range closure {
		if strings.Contains(strings.ToLower(entity.Type.DisplayName()), needle) ||
			strings.Contains(strings.ToLower(entity.Type.Name()), needle) {
			out = append(out, entity)
		}
	}
	return out
}

func groupsFor(direction Direction, originIsInterface bool) []group {
	isInterface := func(e LeveledEntity) bool { return e.Type.Kind() == KindInterface }
	direct := func(e LeveledEntity) bool { return e.Level == 1 }

	if direction == DirectionBase {
		return []group{
			{title: GroupBaseClassChain, keep: func(e LeveledEntity) bool { return !isInterface(e) }, byLevel: true},
			{title: GroupInterfaces, keep: isInterface, byLevel: true},
		}
	}

	if originIsInterface {
		return []group{
			{title: GroupDerivedInterfacesDirect, keep: func(e LeveledEntity) bool { return isInterface(e) && direct(e) }},
			{title: GroupDerivedInterfacesIndirect, keep: func(e LeveledEntity) bool { return isInterface(e) && !direct(e) }, byLevel: true},
			{title: GroupImplementationsDirect, keep: func(e LeveledEntity) bool { return !isInterface(e) && direct(e) }},
			{title: GroupImplementationsIndirect, keep: func(e LeveledEntity) bool { return !isInterface(e) && !direct(e) }, byLevel: true},
		}
	}

	return []group{
		{title: GroupDerivedTypesDirect, keep: direct},
		{title: GroupDerivedTypesIndirect, keep: func(e LeveledEntity) bool { return !direct(e) }, byLevel: true},
	}
}

func sortRows(rows []SymbolRow, byLevel bool) {
	slices.SortStableFunc(rows, func(a, b SymbolRow) int {
		if byLevel {
			if c := cmp.Compare(a.Entity.Level, b.Entity.Level); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return cmp.Compare(a.Entity.Type.ID(), b.Entity.Type.ID())
	})
}
