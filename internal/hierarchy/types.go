// Package hierarchy computes ancestor and descendant closures of a type,
// groups them for display, and drives the navigate-or-pick decision.
//
// The package owns no knowledge of source code. Types reach it as opaque
// TypeDescriptor handles supplied by an index (see AncestorIndex and
// DerivedIndex); identity is the descriptor's ID, never its display name.
//
// Every value created here lives for one navigation request. Nothing is
// cached across requests.
package hierarchy

import "fmt"

// Kind is the structural kind of a type.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
	KindStruct
	KindEnum
)

func (k Kind) String() string {
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

// ParseKind maps the string form back to a Kind.
func ParseKind(value string) (Kind, bool) {
	switch value {
	case "class":
		return KindClass, true
	case "interface":
		return KindInterface, true
	case "struct":
		return KindStruct, true
	case "enum":
		return KindEnum, true
	default:
		return KindClass, false
	}
}

// Direction selects which side of the hierarchy to walk.
type Direction int

const (
	DirectionBase Direction = iota
	DirectionDerived
)

func (d Direction) String() string {
	if d == DirectionDerived {
		return "derived"
	}
	return "base"
}

// Description is the user-facing title for the direction. It is used as the
// title of a reported failure.
func (d Direction) Description() string {
	if d == DirectionDerived {
		return "Navigate to derived class"
	}
	return "Navigate to base class"
}

// ParseDirection accepts "base" or "derived".
func ParseDirection(value string) (Direction, error) {
	switch value {
	case "base":
		return DirectionBase, nil
	case "derived":
		return DirectionDerived, nil
	default:
		return DirectionBase, fmt.Errorf("unknown direction %q (expected base or derived)", value)
	}
}

// Location is one place a type is declared.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

func (l Location) String() string {
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// TypeDescriptor is an identity-comparable handle to a type.
//
// ID must be unique per type within one index. DisplayName is the minimally
// qualified form (the shortest name that is unambiguous in scope); Name is
// the simple name.
type TypeDescriptor interface {
	ID() string
	Name() string
	DisplayName() string
	Kind() Kind
	IsAbstract() bool
	IsRecord() bool
	// Locations lists declaration sites. Partial types have several;
	// types outside the workspace have none.
	Locations() []Location
}

// LeveledEntity is a descriptor stamped with its discovery distance from the
// origin. Level is always >= 1.
type LeveledEntity struct {
	Type  TypeDescriptor
	Level int
}

// Closure is the ordered, duplicate-free result of one walk, in discovery
// order.
type Closure []LeveledEntity

// Len reports the number of entities.
func (c Closure) Len() int {
	return len(c)
}

// Contains reports whether a descriptor with the given ID is present.
func (c Closure) Contains(id string) bool {
	for _, entity := range c {
		if entity.Type.ID() == id {
			return true
		}
	}
	return false
}

// Position identifies where the user invoked navigation. Query carries a
// free-form lookup (name, stable ID, or file:line[:col]); File/Line/Column
// carry a parsed caret position when one is available.
type Position struct {
	Query  string
	File   string
	Line   int
	Column int
}

// Request is the unit of work for one navigation.
type Request struct {
	Position  Position
	Direction Direction
}

// closureBuilder owns the visited set and result of a single computation.
type closureBuilder struct {
	visited map[string]bool
	result  Closure
}

func newClosureBuilder() *closureBuilder {
	return &closureBuilder{visited: make(map[string]bool)}
}

// add records the descriptor at level and reports whether it was new.
func (b *closureBuilder) add(t TypeDescriptor, level int) bool {
	id := t.ID()
	if b.visited[id] {
		return false
	}
	b.visited[id] = true
	b.result = append(b.result, LeveledEntity{Type: t, Level: level})
	return true
}

// seen marks a descriptor visited without emitting it (used for the origin).
func (b *closureBuilder) seen(t TypeDescriptor) {
	b.visited[t.ID()] = true
}
