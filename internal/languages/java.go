package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParser implements parsing for Java source files
type JavaParser struct {
	parser *sitter.Parser
}

// NewJavaParser creates a new Java parser
func NewJavaParser() *JavaParser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &JavaParser{parser: p}
}

func (j *JavaParser) Language() string {
	return "java"
}

func (j *JavaParser) Extensions() []string {
	return []string{".java"}
}

func (j *JavaParser) Parse(filename string, content []byte) (*parser.FileTypes, error) {
	tree, err := j.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := newFileTypes(filename, j.Language())
	root := tree.RootNode()
	result.SyntaxErrors = root.HasError()

	pkg := ""
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_declaration":
			text := strings.TrimSuffix(nodeText(child, content), ";")
			pkg = strings.TrimSpace(strings.TrimPrefix(text, "package"))
		case "import_declaration":
			j.extractImport(child, content, result)
		}
	}

	j.walkMembers(root, content, result, pkg, "")
	return result, nil
}

func (j *JavaParser) walkMembers(node *sitter.Node, content []byte, result *parser.FileTypes, pkg, container string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			j.extractType(child, content, result, pkg, container)
		case "enum_body_declarations", "ERROR":
			j.walkMembers(child, content, result, pkg, container)
		}
	}
}

func (j *JavaParser) extractType(node *sitter.Node, content []byte, result *parser.FileTypes, pkg, container string) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return
	}

	decl := parser.TypeDecl{
		Name:      name,
		Container: container,
		Namespace: pkg,
	}
	placeDecl(&decl, node)

	switch node.Type() {
	case "class_declaration":
		decl.Kind = parser.KindClass
	case "interface_declaration":
		decl.Kind = parser.KindInterface
	case "enum_declaration":
		decl.Kind = parser.KindEnum
	case "record_declaration":
		decl.Kind = parser.KindClass
		decl.Record = true
	}

	if modifiers := firstChildOfType(node, "modifiers"); modifiers != nil {
		for _, word := range strings.Fields(nodeText(modifiers, content)) {
			if word == "abstract" {
				decl.Abstract = true
			}
		}
	}

	decl.TypeParams = parseTypeParameters(nodeText(node.ChildByFieldName("type_parameters"), content))

	if superclass := firstChildOfType(node, "superclass"); superclass != nil {
		decl.Bases = append(decl.Bases, parseTypeList(nodeText(superclass, content), "extends", parser.RoleSuperclass)...)
	}
	if interfaces := firstChildOfType(node, "super_interfaces"); interfaces != nil {
		decl.Bases = append(decl.Bases, parseTypeList(nodeText(interfaces, content), "implements", parser.RoleInterface)...)
	}
	if extends := firstChildOfType(node, "extends_interfaces"); extends != nil {
		decl.Bases = append(decl.Bases, parseTypeList(nodeText(extends, content), "extends", parser.RoleInterface)...)
	}

	result.Types = append(result.Types, decl)

	if body := node.ChildByFieldName("body"); body != nil {
		j.walkMembers(body, content, result, pkg, parser.JoinQualified(container, name))
	}
}

// extractImport keeps single-type imports as aliases (simple name -> qualified
// name) and on-demand imports as packages.
func (j *JavaParser) extractImport(node *sitter.Node, content []byte, result *parser.FileTypes) {
	text := strings.TrimSuffix(nodeText(node, content), ";")
	text = strings.TrimSpace(strings.TrimPrefix(text, "import"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "static "))
	text = strings.Join(strings.Fields(text), "")
	if text == "" {
		return
	}

	if pkg, ok := strings.CutSuffix(text, ".*"); ok {
		result.Imports = append(result.Imports, pkg)
		return
	}
	if _, name := splitQualifiedName(text); name != "" {
		result.ImportAliases[name] = text
	}
}
