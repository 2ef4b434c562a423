package hierarchy

import (
	"context"
	"strconv"
	"sync"
)

type fakeType struct {
	id       string
	name     string
	display  string
	kind     Kind
	abstract bool
	record   bool
	locs     []Location
}

func (t *fakeType) ID() string   { return t.id }
func (t *fakeType) Name() string { return t.name }
func (t *fakeType) DisplayName() string {
	if t.display != "" {
		return t.display
	}
	return t.name
}
func (t *fakeType) Kind() Kind            { return t.kind }
func (t *fakeType) IsAbstract() bool      { return t.abstract }
func (t *fakeType) IsRecord() bool        { return t.record }
func (t *fakeType) Locations() []Location { return t.locs }

func newType(name string, kind Kind) *fakeType {
	return &fakeType{
		id:   "id:" + name,
		name: name,
		kind: kind,
		locs: []Location{{File: name + ".cs", Line: 1, Column: 1}},
	}
}

func class(name string) *fakeType { return newType(name, KindClass) }
func iface(name string) *fakeType { return newType(name, KindInterface) }

// fakeGraph is an in-memory type index. Reverse edges are returned in the
// order they were declared.
type fakeGraph struct {
	types map[string]*fakeType
	root  string

	super             map[string]string
	interfaces        map[string][]string
	derivedClasses    map[string][]string
	derivedInterfaces map[string][]string
	implementations   map[string][]string

	// fail maps "Op:Name" to the error that query returns.
	fail map[string]error
	// block makes every derived query wait for its context.
	block bool
	// onQuery runs before every derived query.
	onQuery func(op string, t TypeDescriptor)

	mu    sync.Mutex
	calls []string
}

func newFakeGraph(types ...*fakeType) *fakeGraph {
	g := &fakeGraph{
		types:             make(map[string]*fakeType),
		super:             make(map[string]string),
		interfaces:        make(map[string][]string),
		derivedClasses:    make(map[string][]string),
		derivedInterfaces: make(map[string][]string),
		implementations:   make(map[string][]string),
		fail:              make(map[string]error),
	}
	g.add(types...)
	return g
}

func (g *fakeGraph) add(types ...*fakeType) {
	for _, t := range types {
		g.types[t.name] = t
	}
}

func (g *fakeGraph) get(name string) *fakeType {
	t, ok := g.types[name]
	if !ok {
		panic("unknown fake type " + name)
	}
	return t
}

// extends records child : parent where both are classes.
func (g *fakeGraph) extends(child, parent string) {
	g.super[child] = parent
	g.derivedClasses[parent] = append(g.derivedClasses[parent], child)
}

// implements records child : parentInterface. An interface child becomes a
// derived interface, anything else an implementation.
func (g *fakeGraph) implements(child, parent string) {
	g.interfaces[child] = append(g.interfaces[child], parent)
	if g.get(child).kind == KindInterface {
		g.derivedInterfaces[parent] = append(g.derivedInterfaces[parent], child)
		return
	}
	g.implementations[parent] = append(g.implementations[parent], child)
}

func (g *fakeGraph) lookup(names []string) []TypeDescriptor {
	out := make([]TypeDescriptor, 0, len(names))
	for _, name := range names {
		out = append(out, g.get(name))
	}
	return out
}

func (g *fakeGraph) Superclass(t TypeDescriptor) TypeDescriptor {
	name, ok := g.super[t.Name()]
	if !ok {
		return nil
	}
	return g.get(name)
}

func (g *fakeGraph) DeclaredInterfaces(t TypeDescriptor) []TypeDescriptor {
	return g.lookup(g.interfaces[t.Name()])
}

func (g *fakeGraph) IsUniversalRoot(t TypeDescriptor) bool {
	return g.root != "" && t.Name() == g.root
}

func (g *fakeGraph) query(ctx context.Context, op string, t TypeDescriptor, edges map[string][]string) ([]TypeDescriptor, error) {
	g.mu.Lock()
	g.calls = append(g.calls, op+":"+t.Name())
	hook := g.onQuery
	g.mu.Unlock()

	if hook != nil {
		hook(op, t)
	}
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := g.fail[op+":"+t.Name()]; ok {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.lookup(edges[t.Name()]), nil
}

func (g *fakeGraph) DirectDerivedClasses(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error) {
	return g.query(ctx, queryDerivedClasses, t, g.derivedClasses)
}

func (g *fakeGraph) DirectDerivedInterfaces(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error) {
	return g.query(ctx, queryDerivedInterfaces, t, g.derivedInterfaces)
}

func (g *fakeGraph) DirectImplementations(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error) {
	return g.query(ctx, queryImplementations, t, g.implementations)
}

func (g *fakeGraph) callCount(call string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == call {
			n++
		}
	}
	return n
}

// leveled flattens a closure to "Name@level" for compact assertions.
func leveled(c Closure) []string {
	out := make([]string, 0, len(c))
	for _, e := range c {
		out = append(out, e.Type.Name()+"@"+strconv.Itoa(e.Level))
	}
	return out
}

// groups flattens entries to title -> row names.
func groups(entries []Entry) ([]string, map[string][]string) {
	var order []string
	rows := make(map[string][]string)
	current := ""
	for _, entry := range entries {
		switch e := entry.(type) {
		case GroupHeader:
			current = e.Title
			order = append(order, current)
		case SymbolRow:
			rows[current] = append(rows[current], e.DisplayName)
		}
	}
	return order, rows
}

type stubResolver struct {
	origin TypeDescriptor
	err    error
}

func (r stubResolver) Locate(context.Context, Position) (TypeDescriptor, error) {
	return r.origin, r.err
}

type recordingSink struct {
	accept map[Location]bool
	tried  []Location
}

func (s *recordingSink) GoTo(_ context.Context, _ TypeDescriptor, loc Location) bool {
	s.tried = append(s.tried, loc)
	if s.accept == nil {
		return true
	}
	return s.accept[loc]
}

type scriptedPicker struct {
	calls   int
	session *Session
	choose  func(*Session) Selection
	err     error
}

func (p *scriptedPicker) Pick(_ context.Context, s *Session) (Selection, error) {
	p.calls++
	p.session = s
	if p.err != nil {
		return Selection{}, p.err
	}
	if p.choose == nil {
		return s.Accept(), nil
	}
	return p.choose(s), nil
}

type reported struct {
	title string
	err   error
}

type recordingReporter struct {
	reports []reported
}

func (r *recordingReporter) ReportError(title string, err error) {
	r.reports = append(r.reports, reported{title: title, err: err})
}

type countingRecorder struct {
	mu       sync.Mutex
	queries  int
	sizes    []int
	statuses []Status
}

func (r *countingRecorder) IndexQuery(string) {
	r.mu.Lock()
	r.queries++
	r.mu.Unlock()
}

func (r *countingRecorder) ClosureComputed(_ Direction, size int) {
	r.sizes = append(r.sizes, size)
}

func (r *countingRecorder) NavigationFinished(_ Direction, status Status) {
	r.statuses = append(r.statuses, status)
}
