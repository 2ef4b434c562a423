package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/parser"
)

// Type is the hierarchy.TypeDescriptor view of a node.
type Type struct {
	node *Node
}

var _ hierarchy.TypeDescriptor = Type{}

func (t Type) ID() string          { return t.node.ID }
func (t Type) Name() string        { return t.node.Name }
func (t Type) DisplayName() string { return t.node.Display }
func (t Type) IsAbstract() bool    { return t.node.Abstract }
func (t Type) IsRecord() bool      { return t.node.Record }

func (t Type) Locations() []hierarchy.Location { return t.node.Locations() }

func (t Type) Kind() hierarchy.Kind {
	switch t.node.Kind {
	case parser.KindInterface:
		return hierarchy.KindInterface
	case parser.KindStruct:
		return hierarchy.KindStruct
	case parser.KindEnum:
		return hierarchy.KindEnum
	default:
		return hierarchy.KindClass
	}
}

// Node exposes the underlying graph node.
func (t Type) Node() *Node {
	return t.node
}

var (
	_ hierarchy.AncestorIndex = (*Workspace)(nil)
	_ hierarchy.DerivedIndex  = (*Workspace)(nil)
)

// Descriptor returns the descriptor for a node ID.
func (w *Workspace) Descriptor(id string) (Type, bool) {
	node, ok := w.Nodes[id]
	if !ok {
		return Type{}, false
	}
	return Type{node: node}, true
}

// Superclass implements hierarchy.AncestorIndex. A dangling edge reads as no
// superclass.
func (w *Workspace) Superclass(t hierarchy.TypeDescriptor) hierarchy.TypeDescriptor {
	node, ok := w.Nodes[t.ID()]
	if !ok || node.Superclass == "" {
		return nil
	}
	parent, ok := w.Descriptor(node.Superclass)
	if !ok {
		w.logger.Warn("dangling superclass edge", "type", node.ID, "superclass", node.Superclass)
		return nil
	}
	return parent
}

func (w *Workspace) DeclaredInterfaces(t hierarchy.TypeDescriptor) []hierarchy.TypeDescriptor {
	node, ok := w.Nodes[t.ID()]
	if !ok {
		return nil
	}
	out := make([]hierarchy.TypeDescriptor, 0, len(node.Interfaces))
	for _, id := range node.Interfaces {
		iface, ok := w.Descriptor(id)
		if !ok {
			w.logger.Warn("dangling interface edge", "type", node.ID, "interface", id)
			continue
		}
		out = append(out, iface)
	}
	return out
}

func (w *Workspace) IsUniversalRoot(t hierarchy.TypeDescriptor) bool {
	node, ok := w.Nodes[t.ID()]
	return ok && node.Root
}

func (w *Workspace) DirectDerivedClasses(ctx context.Context, t hierarchy.TypeDescriptor) ([]hierarchy.TypeDescriptor, error) {
	return w.reverse(ctx, t, func(n *Node) []string { return n.DerivedClasses })
}

func (w *Workspace) DirectDerivedInterfaces(ctx context.Context, t hierarchy.TypeDescriptor) ([]hierarchy.TypeDescriptor, error) {
	return w.reverse(ctx, t, func(n *Node) []string { return n.DerivedInterfaces })
}

func (w *Workspace) DirectImplementations(ctx context.Context, t hierarchy.TypeDescriptor) ([]hierarchy.TypeDescriptor, error) {
	return w.reverse(ctx, t, func(n *Node) []string { return n.Implementations })
}

func (w *Workspace) reverse(ctx context.Context, t hierarchy.TypeDescriptor, edges func(*Node) []string) ([]hierarchy.TypeDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := w.Nodes[t.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, t.ID())
	}

	ids := edges(node)
	out := make([]hierarchy.TypeDescriptor, 0, len(ids))
	for _, id := range ids {
		child, ok := w.Descriptor(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s (derived from %s)", ErrNodeNotFound, id, node.ID)
		}
		out = append(out, child)
	}
	return out, nil
}

// NodeForDecl maps a stable declaration ID to its merged node.
func (w *Workspace) NodeForDecl(declID string) (*Node, bool) {
	id, ok := w.byDecl[declID]
	if !ok {
		return nil, false
	}
	node, ok := w.Nodes[id]
	return node, ok
}

// TypeAt returns the innermost type whose declaration encloses line in
// file. Declarations without an end line only match their first line.
func (w *Workspace) TypeAt(file string, line int) (*Node, bool) {
	var (
		best     *Node
		bestSpan int
	)
	for _, id := range w.byFile[file] {
		node := w.Nodes[id]
		for _, decl := range node.Decls {
			if decl.File != file {
				continue
			}
			end := max(decl.EndLine, decl.Line)
			if line < decl.Line || line > end {
				continue
			}
			span := end - decl.Line
			if best == nil || span < bestSpan {
				best, bestSpan = node, span
			}
		}
	}
	return best, best != nil
}

// NearestAbove returns the type whose declaration starts closest at or above
// line in file. Ties go to the lowest ID.
func (w *Workspace) NearestAbove(file string, line int) (*Node, bool) {
	var (
		best     *Node
		bestLine int
	)
	for _, id := range w.byFile[file] {
		node := w.Nodes[id]
		for _, decl := range node.Decls {
			if decl.File != file || decl.Line > line {
				continue
			}
			if best == nil || decl.Line > bestLine {
				best, bestLine = node, decl.Line
			}
		}
	}
	return best, best != nil
}

// FindByName returns declared types whose simple, nested, display, or
// qualified name equals name. Matching is case-sensitive unless nothing
// matches exactly. Results are sorted by ID.
func (w *Workspace) FindByName(name string) []*Node {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	match := func(fold bool) []*Node {
		equal := func(a string) bool {
			if fold {
				return strings.EqualFold(a, name)
			}
			return a == name
		}
		var out []*Node
		for _, id := range w.sortedIDs() {
			node := w.Nodes[id]
			if node.External {
				continue
			}
			if equal(node.Name) || equal(node.NestedName()) || equal(node.Display) || equal(node.QualifiedName()) {
				out = append(out, node)
			}
		}
		return out
	}

	if exact := match(false); len(exact) > 0 {
		return exact
	}
	return match(true)
}

// Declared returns every non-external node sorted by ID.
func (w *Workspace) Declared() []*Node {
	var out []*Node
	for _, id := range w.sortedIDs() {
		if node := w.Nodes[id]; !node.External {
			out = append(out, node)
		}
	}
	return out
}
