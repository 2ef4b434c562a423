package parser

import "fmt"

// StableTypeID returns a deterministic ID for a type declaration.
// Format: file|line|kind|qualified-name, with a `N arity suffix for generic
// types so Foo and Foo<T> never collide.
func StableTypeID(file string, decl TypeDecl) string {
	base := fmt.Sprintf("%s|%d|%s|%s", file, decl.Line, decl.Kind.String(), decl.QualifiedName())

	if decl.Arity() == 0 {
		return base
	}
	return fmt.Sprintf("%s`%d", base, decl.Arity())
}
