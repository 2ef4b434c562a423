package languages

import (
	"context"
	"strings"

	"github.com/skelly-dev/typenav/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// CSharpParser extracts class, interface, struct, enum and record
// declarations from C# source files
type CSharpParser struct {
	parser *sitter.Parser
}

// NewCSharpParser creates a new C# parser
func NewCSharpParser() *CSharpParser {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	return &CSharpParser{parser: p}
}

func (c *CSharpParser) Language() string {
	return "csharp"
}

func (c *CSharpParser) Extensions() []string {
	return []string{".cs"}
}

func (c *CSharpParser) Parse(filename string, content []byte) (*parser.FileTypes, error) {
	tree, err := c.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := newFileTypes(filename, c.Language())
	root := tree.RootNode()
	result.SyntaxErrors = root.HasError()
	c.walkMembers(root, content, result, "", "")

	return result, nil
}

// walkMembers visits a compilation unit, namespace body or type body.
// A file-scoped namespace applies to every following sibling.
func (c *CSharpParser) walkMembers(node *sitter.Node, content []byte, result *parser.FileTypes, namespace, container string) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "using_directive":
			c.extractUsing(child, content, result)

		case "file_scoped_namespace_declaration":
			namespace = parser.JoinQualified(namespace, nodeText(child.ChildByFieldName("name"), content))
			// Older grammars nest the members inside the declaration.
			c.walkMembers(child, content, result, namespace, container)

		case "namespace_declaration":
			nested := parser.JoinQualified(namespace, nodeText(child.ChildByFieldName("name"), content))
			if body := child.ChildByFieldName("body"); body != nil {
				c.walkMembers(body, content, result, nested, container)
			}

		case "class_declaration", "interface_declaration", "struct_declaration",
			"enum_declaration", "record_declaration", "record_struct_declaration":
			c.extractType(child, content, result, namespace, container)

		case "declaration_list", "ERROR":
			// Declarations inside a broken region are still indexed.
			c.walkMembers(child, content, result, namespace, container)
		}
	}
}

func (c *CSharpParser) extractType(node *sitter.Node, content []byte, result *parser.FileTypes, namespace, container string) {
	name := nodeText(node.ChildByFieldName("name"), content)
	if name == "" {
		return
	}

	decl := parser.TypeDecl{
		Name:      name,
		Container: container,
		Namespace: namespace,
	}
	placeDecl(&decl, node)

	switch node.Type() {
	case "class_declaration":
		decl.Kind = parser.KindClass
	case "interface_declaration":
		decl.Kind = parser.KindInterface
	case "struct_declaration":
		decl.Kind = parser.KindStruct
	case "enum_declaration":
		decl.Kind = parser.KindEnum
	case "record_struct_declaration":
		decl.Kind = parser.KindStruct
		decl.Record = true
	case "record_declaration":
		decl.Kind = parser.KindClass
		decl.Record = true
		if hasChildOfType(node, "struct") {
			decl.Kind = parser.KindStruct
		}
	}

	for _, modifier := range c.modifiers(node, content) {
		switch modifier {
		case "abstract":
			decl.Abstract = true
		case "partial":
			decl.Partial = true
		}
	}

	typeParams := node.ChildByFieldName("type_parameters")
	if typeParams == nil {
		typeParams = firstChildOfType(node, "type_parameter_list")
	}
	decl.TypeParams = parseTypeParameters(nodeText(typeParams, content))

	if decl.Kind != parser.KindEnum {
		decl.Bases = c.extractBases(node, content)
	}

	result.Types = append(result.Types, decl)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = firstChildOfType(node, "declaration_list")
	}
	if body != nil {
		c.walkMembers(body, content, result, namespace, parser.JoinQualified(container, name))
	}
}

func (c *CSharpParser) modifiers(node *sitter.Node, content []byte) []string {
	out := make([]string, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifier":
			out = append(out, nodeText(child, content))
		case "abstract", "partial", "static", "sealed":
			out = append(out, child.Type())
		}
	}
	return out
}

// extractBases reads the base list. C# does not mark which entry is the base
// class, so every ref gets RoleUnknown and the graph decides.
func (c *CSharpParser) extractBases(node *sitter.Node, content []byte) []parser.BaseRef {
	baseList := node.ChildByFieldName("bases")
	if baseList == nil {
		baseList = firstChildOfType(node, "base_list")
	}
	if baseList == nil {
		return nil
	}

	refs := make([]parser.BaseRef, 0)
	for i := 0; i < int(baseList.NamedChildCount()); i++ {
		child := baseList.NamedChild(i)
		if child.Type() == "primary_constructor_base_type" && child.NamedChildCount() > 0 {
			// record R(int X) : Base(X)
			child = child.NamedChild(0)
		}
		if child.Type() == "argument_list" || child.Type() == "comment" {
			continue
		}
		if ref, ok := parseTypeRef(nodeText(child, content), parser.RoleUnknown); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// extractUsing records "using A.B;" as an import and "using X = A.B.C;" as
// an alias. "using static" imports the type's nested types, so it is kept
// as a namespace-like import.
func (c *CSharpParser) extractUsing(node *sitter.Node, content []byte, result *parser.FileTypes) {
	text := nodeText(node, content)
	text = strings.TrimSuffix(text, ";")
	text = strings.TrimSpace(strings.TrimPrefix(text, "global "))
	text = strings.TrimSpace(strings.TrimPrefix(text, "using"))
	text = strings.TrimSpace(strings.TrimPrefix(text, "static "))
	if text == "" {
		return
	}

	if alias, target, ok := strings.Cut(text, "="); ok {
		alias = strings.TrimSpace(alias)
		target = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(target), "global::"))
		if alias != "" && target != "" {
			result.ImportAliases[alias] = target
		}
		return
	}
	result.Imports = append(result.Imports, strings.TrimPrefix(text, "global::"))
}
