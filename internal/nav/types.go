package nav

import (
	"github.com/skelly-dev/typenav/internal/graph"
	"github.com/skelly-dev/typenav/internal/hierarchy"
)

type TypeRecord struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Display   string               `json:"display"`
	Qualified string               `json:"qualified,omitempty"`
	Kind      string               `json:"kind"`
	Language  string               `json:"language,omitempty"`
	Abstract  bool                 `json:"abstract,omitempty"`
	Record    bool                 `json:"record,omitempty"`
	External  bool                 `json:"external,omitempty"`
	Locations []hierarchy.Location `json:"locations,omitempty"`
}

type RowRecord struct {
	Type   TypeRecord `json:"type"`
	Glyph  string     `json:"glyph"`
	Level  int        `json:"level"`
	Indent int        `json:"indent"`
}

type GroupRecord struct {
	Title string      `json:"title"`
	Rows  []RowRecord `json:"rows"`
}

// NavigationRecord is the --json output of base and derived.
type NavigationRecord struct {
	Query       string              `json:"query"`
	Direction   string              `json:"direction"`
	Status      string              `json:"status"`
	Origin      *TypeRecord         `json:"origin,omitempty"`
	ClosureSize int                 `json:"closure_size"`
	Header      string              `json:"header,omitempty"`
	Warning     string              `json:"warning,omitempty"`
	Groups      []GroupRecord       `json:"groups,omitempty"`
	Target      *TypeRecord         `json:"target,omitempty"`
	Location    *hierarchy.Location `json:"location,omitempty"`
	Error       string              `json:"error,omitempty"`
}

func TypeRecordFrom(t hierarchy.TypeDescriptor) TypeRecord {
	record := TypeRecord{
		ID:        t.ID(),
		Name:      t.Name(),
		Display:   t.DisplayName(),
		Kind:      t.Kind().String(),
		Abstract:  t.IsAbstract(),
		Record:    t.IsRecord(),
		Locations: t.Locations(),
	}
	if typ, ok := t.(graph.Type); ok {
		node := typ.Node()
		record.Qualified = node.QualifiedName()
		record.Language = node.Language
		record.External = node.External
	}
	return record
}

// GroupRecords folds classified entries back into titled groups.
func GroupRecords(entries []hierarchy.Entry) []GroupRecord {
	var groups []GroupRecord
	for _, entry := range entries {
		switch e := entry.(type) {
		case hierarchy.GroupHeader:
			groups = append(groups, GroupRecord{Title: e.Title})
		case hierarchy.SymbolRow:
			if len(groups) == 0 {
				groups = append(groups, GroupRecord{})
			}
			last := &groups[len(groups)-1]
			last.Rows = append(last.Rows, RowRecord{
				Type:   TypeRecordFrom(e.Entity.Type),
				Glyph:  e.Glyph,
				Level:  e.Entity.Level,
				Indent: e.Indent,
			})
		}
	}
	return groups
}

func typeRecordPtr(t hierarchy.TypeDescriptor) *TypeRecord {
	if t == nil {
		return nil
	}
	record := TypeRecordFrom(t)
	return &record
}
