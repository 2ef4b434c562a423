package hierarchy

import "context"

// AncestorIndex answers structural questions about a single type. Calls are
// local and never block.
type AncestorIndex interface {
	// Superclass returns the direct base class, or nil when there is none.
	Superclass(t TypeDescriptor) TypeDescriptor
	// DeclaredInterfaces returns directly declared interfaces in declaration
	// order. For an interface these are its super-interfaces.
	DeclaredInterfaces(t TypeDescriptor) []TypeDescriptor
	// IsUniversalRoot reports whether t is the implicit root of every class
	// hierarchy (object, java.lang.Object).
	IsUniversalRoot(t TypeDescriptor) bool
}

// DerivedIndex answers workspace-wide "who derives from this type" questions.
// All queries are direct (non-transitive), may be slow, and must honour ctx.
type DerivedIndex interface {
	DirectDerivedClasses(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error)
	DirectDerivedInterfaces(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error)
	DirectImplementations(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error)
}

// OriginResolver locates the type the user is pointing at. A nil descriptor
// with a nil error means "no type here".
type OriginResolver interface {
	Locate(ctx context.Context, pos Position) (TypeDescriptor, error)
}

// NavigationSink jumps to one declaration site of a type and reports whether
// it succeeded.
type NavigationSink interface {
	GoTo(ctx context.Context, target TypeDescriptor, loc Location) bool
}

// Selection is the picker's answer.
type Selection struct {
	Confirmed bool
	Selected  TypeDescriptor
}

// Picker presents a session and returns the user's choice. Filtering inside
// the picker goes through Session.SetQuery.
type Picker interface {
	Pick(ctx context.Context, session *Session) (Selection, error)
}

// Reporter surfaces a failed navigation to the user, once.
type Reporter interface {
	ReportError(title string, err error)
}

// CompletenessProbe returns an advisory warning when the workspace model may
// be incomplete, or "" when it looks complete.
type CompletenessProbe func(ctx context.Context) string

// Recorder receives counters for a navigation. Implementations must be safe
// for concurrent use since descendant queries may run in parallel.
type Recorder interface {
	IndexQuery(query string)
	ClosureComputed(direction Direction, size int)
	NavigationFinished(direction Direction, status Status)
}

type nopRecorder struct{}

func (nopRecorder) IndexQuery(string) {}

func (nopRecorder) ClosureComputed(Direction, int) {}

func (nopRecorder) NavigationFinished(Direction, Status) {}
