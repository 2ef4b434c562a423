package languages

import (
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

func splitQualifiedName(raw string) (qualifier, name string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if idx := strings.LastIndex(raw, "."); idx != -1 {
		qualifier = strings.TrimSpace(raw[:idx])
		name = strings.TrimSpace(raw[idx+1:])
		return qualifier, name
	}
	return "", raw
}

func splitAliasByAs(raw string) (base string, alias string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	parts := strings.Split(raw, " as ")
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), ""
	}
	base = strings.TrimSpace(strings.Join(parts[:len(parts)-1], " as "))
	alias = strings.TrimSpace(parts[len(parts)-1])
	return base, alias
}

// splitTopLevel splits raw on sep, ignoring separators nested in brackets.
func splitTopLevel(raw string, sep rune) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := make([]string, 0)
	depth := 0
	start := 0
	for i, ch := range raw {
		switch ch {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(raw[start:]))
	return parts
}

// stripTypeArguments returns raw without its outermost <...> groups and the
// number of top-level arguments in the first group.
func stripTypeArguments(raw string) (string, int) {
	var b strings.Builder
	depth := 0
	arity := 0
	first := true
	for _, ch := range raw {
		switch {
		case ch == '<':
			if depth == 0 && first {
				arity = 1
			}
			depth++
		case ch == '>':
			if depth > 0 {
				depth--
				if depth == 0 {
					first = false
				}
			}
		case ch == ',' && depth == 1 && first:
			arity++
		case depth == 0:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String()), arity
}

// parseTypeRef turns source text such as "Data.Repository<T, int>" into a
// BaseRef. Arrays, nullability and global:: prefixes are dropped.
func parseTypeRef(raw string, role parser.BaseRole) (parser.BaseRef, bool) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "global::")
	if text == "" {
		return parser.BaseRef{}, false
	}

	stripped, arity := stripTypeArguments(text)
	stripped = strings.TrimRight(stripped, "?[] ")
	stripped = strings.ReplaceAll(stripped, "::", ".")
	stripped = strings.Join(strings.Fields(stripped), "")

	qualifier, name := splitQualifiedName(stripped)
	if name == "" || !isIdentifier(name) {
		return parser.BaseRef{}, false
	}
	return parser.BaseRef{
		Name:      name,
		Qualifier: qualifier,
		Arity:     arity,
		Role:      role,
		Raw:       text,
	}, true
}

// parseTypeList parses a comma separated list of base types after keyword.
func parseTypeList(raw, keyword string, role parser.BaseRole) []parser.BaseRef {
	raw = strings.TrimSpace(raw)
	if keyword != "" {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, keyword))
	}
	refs := make([]parser.BaseRef, 0)
	for _, part := range splitTopLevel(raw, ',') {
		if ref, ok := parseTypeRef(part, role); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// parseTypeParameters turns "<in T, out U>" or "<T extends Base>" into
// parameter names.
func parseTypeParameters(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimSuffix(raw, ">")
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	params := make([]string, 0)
	for _, part := range splitTopLevel(raw, ',') {
		fields := strings.Fields(part)
		for _, field := range fields {
			if strings.HasPrefix(field, "[") || field == "in" || field == "out" || field == "const" {
				continue
			}
			name := field
			if idx := strings.IndexAny(name, "=:"); idx != -1 {
				name = name[:idx]
			}
			if name != "" {
				params = append(params, name)
			}
			break
		}
	}
	return params
}

func isIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for i, ch := range value {
		switch {
		case ch == '_' || ch == '$' || ch == '@':
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		case ch > 127:
		default:
			return false
		}
	}
	return true
}

func childrenOfType(node *sitter.Node, types ...string) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		for _, t := range types {
			if child.Type() == t {
				out = append(out, child)
				break
			}
		}
	}
	return out
}

func firstChildOfType(node *sitter.Node, types ...string) *sitter.Node {
	children := childrenOfType(node, types...)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func hasChildOfType(node *sitter.Node, t string) bool {
	return firstChildOfType(node, t) != nil
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Content(content))
}

// placeDecl copies the node's position into decl.
func placeDecl(decl *parser.TypeDecl, node *sitter.Node) {
	decl.Line = int(node.StartPoint().Row) + 1
	decl.Column = int(node.StartPoint().Column) + 1
	decl.EndLine = int(node.EndPoint().Row) + 1
}

func newFileTypes(filename, language string) *parser.FileTypes {
	return &parser.FileTypes{
		Path:          filename,
		Language:      language,
		Types:         make([]parser.TypeDecl, 0),
		Imports:       make([]string, 0),
		ImportAliases: make(map[string]string),
	}
}
