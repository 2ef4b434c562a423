package graph

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/skelly-dev/typenav/internal/hierarchy"
	"github.com/skelly-dev/typenav/internal/parser"
)

// DeclSite is one source declaration that contributed to a node. Partial
// types have several.
type DeclSite struct {
	ID      string `json:"id"` // stable declaration ID (file|line|kind|name)
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column,omitempty"`
	EndLine int    `json:"end_line,omitempty"`
}

// Node is one type in the workspace graph.
type Node struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Namespace  string          `json:"namespace,omitempty"`
	Container  string          `json:"container,omitempty"`
	Language   string          `json:"language"`
	Kind       parser.TypeKind `json:"kind"`
	Abstract   bool            `json:"abstract,omitempty"`
	Record     bool            `json:"record,omitempty"`
	External   bool            `json:"external,omitempty"`
	Root       bool            `json:"root,omitempty"` // universal root type (object)
	TypeParams []string        `json:"type_params,omitempty"`
	Arity      int             `json:"arity,omitempty"`
	Display    string          `json:"display"`
	Decls      []DeclSite      `json:"decls,omitempty"`

	Superclass        string   `json:"superclass,omitempty"`
	Interfaces        []string `json:"interfaces,omitempty"`
	DerivedClasses    []string `json:"derived_classes,omitempty"`
	DerivedInterfaces []string `json:"derived_interfaces,omitempty"`
	Implementations   []string `json:"implementations,omitempty"`
}

// NestedName is the name including enclosing types.
func (n *Node) NestedName() string {
	return parser.JoinQualified(n.Container, n.Name)
}

// QualifiedName is the namespace-qualified nested name.
func (n *Node) QualifiedName() string {
	return parser.JoinQualified(n.Namespace, n.Container, n.Name)
}

// Locations lists declaration sites in file/line order.
func (n *Node) Locations() []hierarchy.Location {
	out := make([]hierarchy.Location, 0, len(n.Decls))
	for _, decl := range n.Decls {
		out = append(out, hierarchy.Location{File: decl.File, Line: decl.Line, Column: decl.Column})
	}
	return out
}

// Workspace is the type graph of one indexed source tree. It is read-only
// once built.
type Workspace struct {
	Nodes map[string]*Node

	byDecl map[string]string   // declaration ID -> node ID
	byFile map[string][]string // file -> node IDs declared there
	logger *slog.Logger
}

func newWorkspace(logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		Nodes:  make(map[string]*Node),
		byDecl: make(map[string]string),
		byFile: make(map[string][]string),
		logger: logger,
	}
}

// Build constructs the workspace graph from parsed files
func Build(result *parser.ParseResult, logger *slog.Logger) *Workspace {
	w := newWorkspace(logger)

	// First pass: one node per merged type identity
	for _, file := range result.Files {
		for _, decl := range file.Types {
			w.addDecl(file, decl)
		}
	}

	// Second pass: resolve base lists into supertype edges
	lookups := buildTypeLookup(w, result)
	for _, file := range result.Files {
		for _, decl := range file.Types {
			node := w.Nodes[nodeKey(file.Language, decl)]
			w.linkBases(node, file, decl, lookups)
		}
	}

	w.linkReverseEdges()
	w.assignDisplayNames()
	w.sortReverseEdges()
	w.reindex()

	return w
}

func (w *Workspace) addDecl(file parser.FileTypes, decl parser.TypeDecl) {
	key := nodeKey(file.Language, decl)
	node, exists := w.Nodes[key]
	if !exists {
		node = &Node{
			ID:         key,
			Name:       decl.Name,
			Namespace:  decl.Namespace,
			Container:  decl.Container,
			Language:   languageFamily(file.Language),
			Kind:       decl.Kind,
			Record:     decl.Record,
			TypeParams: decl.TypeParams,
			Arity:      decl.Arity(),
		}
		w.Nodes[key] = node
	}
	node.Abstract = node.Abstract || decl.Abstract
	node.Record = node.Record || decl.Record
	node.Decls = append(node.Decls, DeclSite{
		ID:      decl.ID,
		File:    file.Path,
		Line:    decl.Line,
		Column:  decl.Column,
		EndLine: decl.EndLine,
	})
}

// linkBases turns one declaration's base list into edges on node. Partial
// declarations each contribute; the first superclass seen wins.
func (w *Workspace) linkBases(node *Node, file parser.FileTypes, decl parser.TypeDecl, lookups typeLookups) {
	for i, base := range decl.Bases {
		target := lookups.resolve(file, decl, base)
		if target == nil {
			target = w.externalNode(languageFamily(file.Language), base)
			w.logger.Debug("unresolved base type",
				"type", decl.QualifiedName(),
				"base", base.Raw,
				"file", file.Path,
			)
		}
		if target.ID == node.ID {
			continue
		}

		if w.isSuperclass(node, target, base, i) {
			if node.Superclass == "" {
				node.Superclass = target.ID
			}
			continue
		}
		node.Interfaces = appendUnique(node.Interfaces, target.ID)
	}
}

// isSuperclass decides the role of a base entry. Interfaces, structs and
// enums have no superclass. Where the grammar does not say (C#), only the
// first entry can be the base class and only if it is not an interface.
func (w *Workspace) isSuperclass(node, target *Node, base parser.BaseRef, position int) bool {
	if node.Kind != parser.KindClass {
		return false
	}
	switch base.Role {
	case parser.RoleSuperclass:
		return true
	case parser.RoleInterface:
		return false
	default:
		return position == 0 && target.Kind != parser.KindInterface
	}
}

// externalNode returns the placeholder node for a base type declared outside
// the workspace. Its kind comes from the base role, else from the I-prefix
// naming convention.
func (w *Workspace) externalNode(language string, base parser.BaseRef) *Node {
	qualified := parser.JoinQualified(base.Qualifier, base.Name)
	key := language + ":external:" + qualified
	if base.Arity > 0 {
		key += "`" + strconv.Itoa(base.Arity)
	}
	if node, ok := w.Nodes[key]; ok {
		return node
	}

	kind := parser.KindClass
	switch base.Role {
	case parser.RoleInterface:
		kind = parser.KindInterface
	case parser.RoleSuperclass:
	default:
		if looksLikeInterfaceName(base.Name) {
			kind = parser.KindInterface
		}
	}

	node := &Node{
		ID:        key,
		Name:      base.Name,
		Namespace: base.Qualifier,
		Language:  language,
		Kind:      kind,
		External:  true,
		Root:      isUniversalRootName(base),
		Arity:     base.Arity,
	}
	for i := 0; i < base.Arity; i++ {
		node.TypeParams = append(node.TypeParams, "T"+strconv.Itoa(i+1))
	}
	if base.Arity == 1 {
		node.TypeParams = []string{"T"}
	}
	w.Nodes[key] = node
	return node
}

func (w *Workspace) linkReverseEdges() {
	for _, id := range w.sortedIDs() {
		node := w.Nodes[id]
		if parent, ok := w.Nodes[node.Superclass]; ok {
			parent.DerivedClasses = appendUnique(parent.DerivedClasses, node.ID)
		}
		for _, ifaceID := range node.Interfaces {
			parent, ok := w.Nodes[ifaceID]
			if !ok {
				continue
			}
			switch {
			case parent.Kind != parser.KindInterface:
				parent.DerivedClasses = appendUnique(parent.DerivedClasses, node.ID)
			case node.Kind == parser.KindInterface:
				parent.DerivedInterfaces = appendUnique(parent.DerivedInterfaces, node.ID)
			default:
				parent.Implementations = appendUnique(parent.Implementations, node.ID)
			}
		}
	}
}

// sortReverseEdges applies the child-ordering rule: display name, then ID.
func (w *Workspace) sortReverseEdges() {
	for _, node := range w.Nodes {
		w.sortByDisplay(node.DerivedClasses)
		w.sortByDisplay(node.DerivedInterfaces)
		w.sortByDisplay(node.Implementations)
	}
}

func (w *Workspace) sortByDisplay(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := w.Nodes[ids[i]], w.Nodes[ids[j]]
		if a == nil || b == nil {
			return ids[i] < ids[j]
		}
		if a.Display != b.Display {
			return a.Display < b.Display
		}
		return a.ID < b.ID
	})
}

// reindex rebuilds the lookup maps that are not persisted.
func (w *Workspace) reindex() {
	w.byDecl = make(map[string]string)
	w.byFile = make(map[string][]string)
	for _, id := range w.sortedIDs() {
		node := w.Nodes[id]
		for _, decl := range node.Decls {
			if decl.ID != "" {
				w.byDecl[decl.ID] = node.ID
			}
			w.byFile[decl.File] = appendUnique(w.byFile[decl.File], node.ID)
		}
	}
}

func (w *Workspace) sortedIDs() []string {
	ids := make([]string, 0, len(w.Nodes))
	for id := range w.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats summarizes the graph.
type Stats struct {
	Types     int `json:"types"`
	External  int `json:"external"`
	Files     int `json:"files"`
	Supertype int `json:"supertype_edges"`
}

func (w *Workspace) Stats() Stats {
	s := Stats{Files: len(w.byFile)}
	for _, node := range w.Nodes {
		if node.External {
			s.External++
		} else {
			s.Types++
		}
		if node.Superclass != "" {
			s.Supertype++
		}
		s.Supertype += len(node.Interfaces)
	}
	return s
}

// nodeKey is the merged identity of a declaration: partial declarations of
// the same type share it.
func nodeKey(language string, decl parser.TypeDecl) string {
	key := languageFamily(language) + ":" + decl.QualifiedName()
	if decl.Arity() > 0 {
		key += "`" + strconv.Itoa(decl.Arity())
	}
	return key
}

// languageFamily folds languages whose types can reference each other.
func languageFamily(language string) string {
	if language == "javascript" {
		return "typescript"
	}
	return language
}

func looksLikeInterfaceName(name string) bool {
	if len(name) < 2 || name[0] != 'I' {
		return false
	}
	second := name[1]
	return second >= 'A' && second <= 'Z'
}

func isUniversalRootName(base parser.BaseRef) bool {
	if base.Arity != 0 {
		return false
	}
	switch base.Name {
	case "object", "Object":
		switch base.Qualifier {
		case "", "System", "java.lang":
			return true
		}
	}
	return false
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func dedupeAndSort(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

// FileDependencies maps each file to the other files declaring a direct
// supertype of one of its types.
func (w *Workspace) FileDependencies() map[string][]string {
	deps := make(map[string][]string)
	for _, id := range w.sortedIDs() {
		node := w.Nodes[id]
		if node.External {
			continue
		}
		targets := append([]string{node.Superclass}, node.Interfaces...)
		for _, decl := range node.Decls {
			var files []string
			for _, targetID := range targets {
				target, ok := w.Nodes[targetID]
				if !ok {
					continue
				}
				for _, site := range target.Decls {
					if site.File != decl.File {
						files = append(files, site.File)
					}
				}
			}
			deps[decl.File] = dedupeAndSort(append(deps[decl.File], files...))
		}
	}
	return deps
}
