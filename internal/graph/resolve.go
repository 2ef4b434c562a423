package graph

import (
	"strconv"
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
)

// typeLookups resolves base type references to workspace nodes using the
// scoping rules shared by the supported languages: enclosing types and
// namespaces first, then the file, then imports, then a unique global match.
type typeLookups struct {
	w      *Workspace
	byName map[string][]string            // family:name`arity -> node IDs
	byFile map[string]map[string][]string // file -> name`arity -> node IDs
}

func buildTypeLookup(w *Workspace, result *parser.ParseResult) typeLookups {
	lookups := typeLookups{
		w:      w,
		byName: make(map[string][]string),
		byFile: make(map[string]map[string][]string),
	}

	for _, file := range result.Files {
		family := languageFamily(file.Language)
		perFile := make(map[string][]string)
		for _, decl := range file.Types {
			id := nodeKey(file.Language, decl)
			key := arityKey(decl.Name, decl.Arity())
			perFile[key] = appendUnique(perFile[key], id)
			lookups.byName[family+":"+key] = appendUnique(lookups.byName[family+":"+key], id)
		}
		lookups.byFile[file.Path] = perFile
	}

	return lookups
}

func (l typeLookups) resolve(file parser.FileTypes, decl parser.TypeDecl, base parser.BaseRef) *Node {
	family := languageFamily(file.Language)
	name := base.Name
	qualifier := strings.TrimPrefix(base.Qualifier, "global::")

	if qualifier == "" {
		if target, ok := file.ImportAliases[name]; ok && target != "" {
			if node := l.find(family, target, base.Arity); node != nil {
				return node
			}
			if !strings.Contains(target, ".") {
				// Renamed named import: look the exported name up instead.
				name = target
			}
		}
	} else if head, rest, _ := strings.Cut(qualifier, "."); file.ImportAliases[head] != "" && file.ImportAliases[head] != head {
		qualifier = parser.JoinQualified(file.ImportAliases[head], rest)
	}

	relative := parser.JoinQualified(qualifier, name)

	for _, scope := range enclosingScopes(decl) {
		if node := l.find(family, parser.JoinQualified(scope, relative), base.Arity); node != nil {
			return node
		}
	}

	if qualifier == "" {
		if node := l.chooseUnique(l.byFile[file.Path][arityKey(name, base.Arity)]); node != nil {
			return node
		}
	}

	var imported []string
	for _, imp := range file.Imports {
		if node := l.find(family, parser.JoinQualified(imp, relative), base.Arity); node != nil {
			imported = appendUnique(imported, node.ID)
		}
	}
	if node := l.chooseUnique(imported); node != nil {
		return node
	}
	if len(imported) > 1 {
		l.w.logger.Debug("ambiguous base type", "base", base.Raw, "file", file.Path, "candidates", imported)
		return nil
	}

	// A qualifier that names a module import (TypeScript `ns.Base`) or no
	// qualifier at all falls back to a workspace-wide unique name.
	head, _, _ := strings.Cut(qualifier, ".")
	if qualifier == "" || file.ImportAliases[head] == head {
		candidates := l.byName[family+":"+arityKey(name, base.Arity)]
		if node := l.chooseUnique(candidates); node != nil {
			return node
		}
		if len(candidates) > 1 {
			l.w.logger.Debug("ambiguous base type", "base", base.Raw, "file", file.Path, "candidates", candidates)
		}
	}

	return nil
}

// find looks up a declared (non-external) type by its qualified name.
func (l typeLookups) find(family, qualified string, arity int) *Node {
	node, ok := l.w.Nodes[family+":"+arityKey(qualified, arity)]
	if !ok || node.External {
		return nil
	}
	return node
}

func (l typeLookups) chooseUnique(ids []string) *Node {
	ids = dedupeAndSort(append([]string(nil), ids...))
	if len(ids) != 1 {
		return nil
	}
	return l.w.Nodes[ids[0]]
}

// enclosingScopes lists the scopes visible from decl, innermost first,
// ending with the global scope.
func enclosingScopes(decl parser.TypeDecl) []string {
	scope := parser.JoinQualified(decl.Namespace, decl.Container)
	scopes := make([]string, 0, strings.Count(scope, ".")+2)
	for scope != "" {
		scopes = append(scopes, scope)
		idx := strings.LastIndex(scope, ".")
		if idx == -1 {
			break
		}
		scope = scope[:idx]
	}
	return append(scopes, "")
}

func arityKey(name string, arity int) string {
	if arity > 0 {
		return name + "`" + strconv.Itoa(arity)
	}
	return name
}
