package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptParser implements parsing for TypeScript/JavaScript source files
type TypeScriptParser struct {
	tsParser *sitter.Parser
	jsParser *sitter.Parser
}

// NewTypeScriptParser creates a new TypeScript/JavaScript parser
func NewTypeScriptParser() *TypeScriptParser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &TypeScriptParser{
		tsParser: ts,
		jsParser: js,
	}
}

func (t *TypeScriptParser) Language() string {
	return "typescript"
}

func (t *TypeScriptParser) Extensions() []string {
	return []string{".ts", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
}

func (t *TypeScriptParser) Parse(filename string, content []byte) (*parser.FileTypes, error) {
	// Choose parser based on extension
	var p *sitter.Parser
	lang := "typescript"
	if strings.HasSuffix(filename, ".js") || strings.HasSuffix(filename, ".jsx") ||
		strings.HasSuffix(filename, ".mjs") || strings.HasSuffix(filename, ".cjs") {
		p = t.jsParser
		lang = "javascript"
	} else {
		p = t.tsParser
	}

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := newFileTypes(filename, lang)
	root := tree.RootNode()
	result.SyntaxErrors = root.HasError()
	t.walk(root, content, result, "")

	return result, nil
}

func (t *TypeScriptParser) walk(node *sitter.Node, content []byte, result *parser.FileTypes, namespace string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_declaration", "abstract_class_declaration", "class":
			t.extractClass(child, content, result, namespace)

		case "interface_declaration":
			t.extractInterface(child, content, result, namespace)

		case "enum_declaration":
			t.extractEnum(child, content, result, namespace)

		case "internal_module", "module":
			nested := parser.JoinQualified(namespace, strings.Trim(nodeText(child.ChildByFieldName("name"), content), `"'`))
			if body := child.ChildByFieldName("body"); body != nil {
				t.walk(body, content, result, nested)
			}

		case "import_statement":
			t.extractImports(child, content, result)

		case "export_statement", "ambient_declaration", "expression_statement", "statement_block", "ERROR":
			t.walk(child, content, result, namespace)
		}
	}
}

func (t *TypeScriptParser) extractClass(node *sitter.Node, content []byte, result *parser.FileTypes, namespace string) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return
	}

	decl := parser.TypeDecl{
		Name:      name,
		Namespace: namespace,
		Kind:      parser.KindClass,
		Abstract:  node.Type() == "abstract_class_declaration",
	}
	placeDecl(&decl, node)
	decl.TypeParams = parseTypeParameters(nodeText(node.ChildByFieldName("type_parameters"), content))

	if heritage := firstChildOfType(node, "class_heritage"); heritage != nil {
		extends := firstChildOfType(heritage, "extends_clause")
		implements := firstChildOfType(heritage, "implements_clause")
		if extends == nil && implements == nil {
			// JavaScript: class_heritage is "extends <expression>".
			decl.Bases = append(decl.Bases, parseTypeList(nodeText(heritage, content), "extends", parser.RoleSuperclass)...)
		}
		if extends != nil {
			decl.Bases = append(decl.Bases, parseTypeList(nodeText(extends, content), "extends", parser.RoleSuperclass)...)
		}
		if implements != nil {
			decl.Bases = append(decl.Bases, parseTypeList(nodeText(implements, content), "implements", parser.RoleInterface)...)
		}
	}

	result.Types = append(result.Types, decl)
}

func (t *TypeScriptParser) extractInterface(node *sitter.Node, content []byte, result *parser.FileTypes, namespace string) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return
	}

	decl := parser.TypeDecl{
		Name:      name,
		Namespace: namespace,
		Kind:      parser.KindInterface,
	}
	placeDecl(&decl, node)
	decl.TypeParams = parseTypeParameters(nodeText(node.ChildByFieldName("type_parameters"), content))

	if extends := firstChildOfType(node, "extends_type_clause", "extends_clause"); extends != nil {
		decl.Bases = parseTypeList(nodeText(extends, content), "extends", parser.RoleInterface)
	}

	result.Types = append(result.Types, decl)
}

func (t *TypeScriptParser) extractEnum(node *sitter.Node, content []byte, result *parser.FileTypes, namespace string) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return
	}

	decl := parser.TypeDecl{
		Name:      name,
		Namespace: namespace,
		Kind:      parser.KindEnum,
	}
	placeDecl(&decl, node)
	result.Types = append(result.Types, decl)
}

// extractImports records the module path and, for named imports, an alias
// from the local name to the exported name.
func (t *TypeScriptParser) extractImports(node *sitter.Node, content []byte, result *parser.FileTypes) {
	source := node.ChildByFieldName("source")
	if source == nil {
		source = firstChildOfType(node, "string")
	}
	module := strings.Trim(nodeText(source, content), "\"'`")
	if module == "" {
		return
	}
	result.Imports = append(result.Imports, module)

	for local, exported := range parseJSImportAliases(nodeText(node, content)) {
		result.ImportAliases[local] = exported
	}
}

// parseJSImportAliases maps local names to exported names for
// `import { A, B as C } from "..."`. Namespace and default imports map the
// local name to itself.
func parseJSImportAliases(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "import ") {
		return nil
	}

	fromIdx := strings.Index(raw, " from ")
	if fromIdx == -1 {
		return nil
	}
	spec := strings.TrimSpace(strings.TrimPrefix(raw[:fromIdx], "import "))
	spec = strings.TrimSpace(strings.TrimPrefix(spec, "type "))
	if spec == "" {
		return nil
	}

	aliases := make(map[string]string)
	for _, part := range splitTopLevel(spec, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			for _, member := range splitTopLevel(strings.Trim(part, "{} "), ',') {
				member = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(member), "type "))
				if member == "" {
					continue
				}
				exported, local := splitAliasByAs(member)
				if local == "" {
					local = exported
				}
				if local != "" && exported != "" {
					aliases[local] = exported
				}
			}
			continue
		}

		if alias, ok := strings.CutPrefix(part, "* as "); ok {
			alias = strings.TrimSpace(alias)
			if alias != "" {
				aliases[alias] = alias
			}
			continue
		}

		aliases[part] = part
	}
	return aliases
}
