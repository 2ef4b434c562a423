package parser

import (
	"fmt"
	"strings"
)

// TypeKind represents the structural kind of a declared type
type TypeKind int

const (
	KindClass TypeKind = iota
	KindInterface
	KindStruct
	KindEnum
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// MarshalText writes the kind as its name so persisted state stays readable.
func (k TypeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TypeKind) UnmarshalText(data []byte) error {
	switch string(data) {
	case "class":
		*k = KindClass
	case "interface":
		*k = KindInterface
	case "struct":
		*k = KindStruct
	case "enum":
		*k = KindEnum
	default:
		return fmt.Errorf("unknown type kind %q", string(data))
	}
	return nil
}

// BaseRole says what a base-list entry is known to be.
type BaseRole string

const (
	RoleSuperclass BaseRole = "superclass"
	RoleInterface  BaseRole = "interface"
	// RoleUnknown is used where the grammar does not separate the two (C#).
	RoleUnknown BaseRole = "unknown"
)

// BaseRef is one entry of a type's base list, as written in source.
type BaseRef struct {
	Name      string   `json:"name"`                // simple name without type arguments
	Qualifier string   `json:"qualifier,omitempty"` // namespace/package or outer type prefix
	Arity     int      `json:"arity,omitempty"`     // number of type arguments
	Role      BaseRole `json:"role"`
	Raw       string   `json:"raw,omitempty"`
}

// TypeDecl is one declaration of a type. A partial type declared in several
// places produces several TypeDecls.
type TypeDecl struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Container  string    `json:"container,omitempty"` // enclosing types, "Outer.Inner"
	Namespace  string    `json:"namespace,omitempty"`
	Kind       TypeKind  `json:"kind"`
	Abstract   bool      `json:"abstract,omitempty"`
	Record     bool      `json:"record,omitempty"`
	Partial    bool      `json:"partial,omitempty"`
	TypeParams []string  `json:"type_params,omitempty"`
	Bases      []BaseRef `json:"bases,omitempty"`
	Line       int       `json:"line"`
	Column     int       `json:"column,omitempty"`
	EndLine    int       `json:"end_line,omitempty"`
}

// Arity is the number of generic type parameters.
func (d TypeDecl) Arity() int {
	return len(d.TypeParams)
}

// NestedName is the name including enclosing types, "Outer.Inner".
func (d TypeDecl) NestedName() string {
	if d.Container == "" {
		return d.Name
	}
	return d.Container + "." + d.Name
}

// QualifiedName is the namespace-qualified nested name.
func (d TypeDecl) QualifiedName() string {
	if d.Namespace == "" {
		return d.NestedName()
	}
	return d.Namespace + "." + d.NestedName()
}

// Encloses reports whether line falls inside the declaration.
func (d TypeDecl) Encloses(line int) bool {
	end := d.EndLine
	if end < d.Line {
		end = d.Line
	}
	return line >= d.Line && line <= end
}

// FileTypes holds all type declarations extracted from a single file
type FileTypes struct {
	Path          string            `json:"path"`
	Language      string            `json:"language"`
	Types         []TypeDecl        `json:"types"`
	Imports       []string          `json:"imports,omitempty"`        // using/import namespaces
	ImportAliases map[string]string `json:"import_aliases,omitempty"` // alias -> namespace or qualified type
	Hash          string            `json:"hash"`                     // file content hash for incremental updates
	SyntaxErrors  bool              `json:"syntax_errors,omitempty"`
}

// ParseIssue captures non-fatal parser warnings/errors encountered while scanning files.
type ParseIssue struct {
	File     string `json:"file"`
	Language string `json:"language,omitempty"`
	Severity string `json:"severity"` // warning | error
	Message  string `json:"message"`
}

// ParseResult holds the complete parse result for a codebase
type ParseResult struct {
	Files    []FileTypes
	RootPath string
	Issues   []ParseIssue
}

// TypeCount returns the number of declarations across all files.
func (r *ParseResult) TypeCount() int {
	n := 0
	for _, file := range r.Files {
		n += len(file.Types)
	}
	return n
}

// JoinQualified joins non-empty name parts with dots.
func JoinQualified(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ".")
}
