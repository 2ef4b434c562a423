package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	queryDerivedClasses    = "DirectDerivedClasses"
	queryDerivedInterfaces = "DirectDerivedInterfaces"
	queryImplementations   = "DirectImplementations"
)

type queryFunc func(ctx context.Context, t TypeDescriptor) ([]TypeDescriptor, error)

// DescendantComputer collects derived types depth-first against a
// DerivedIndex.
type DescendantComputer struct {
	index        DerivedIndex
	parallelism  int
	queryTimeout time.Duration
	logger       *slog.Logger
	recorder     Recorder
}

// DescendantOption configures a DescendantComputer.
type DescendantOption func(*DescendantComputer)

// WithParallelism lets up to n sibling queries run ahead of the walk.
// Values below 2 keep every query on demand. The closure is the same either
// way.
func WithParallelism(n int) DescendantOption {
	return func(c *DescendantComputer) {
		c.parallelism = n
	}
}

// WithQueryTimeout bounds each individual index query. A query that runs out
// of time fails the computation; it is not treated as a cancellation.
func WithQueryTimeout(d time.Duration) DescendantOption {
	return func(c *DescendantComputer) {
		c.queryTimeout = d
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) DescendantOption {
	return func(c *DescendantComputer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) DescendantOption {
	return func(c *DescendantComputer) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// NewDescendantComputer creates a computer over index.
func NewDescendantComputer(index DerivedIndex, opts ...DescendantOption) *DescendantComputer {
	c := &DescendantComputer{
		index:    index,
		logger:   slog.New(slog.DiscardHandler),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute returns every type deriving from or implementing origin.
//
// The walk is depth-first. An interface is queried for its derived
// interfaces and then its implementations; any other kind is queried for its
// derived classes. Each child not yet visited is stamped with its parent's
// level plus one, appended, and expanded before the next sibling is
// considered. A type reached again through another path keeps the level of
// its first discovery, even when the later path is shorter.
//
// If ctx ends, Compute returns ErrCancelled and no closure. If a query fails,
// Compute returns a *QueryError and no closure.
func (c *DescendantComputer) Compute(ctx context.Context, origin TypeDescriptor) (Closure, error) {
	if c.index == nil {
		return nil, ErrNoIndex
	}
	if origin == nil {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "hierarchy.DescendantComputer.Compute",
		trace.WithAttributes(
			attribute.String("origin", origin.DisplayName()),
			attribute.String("origin.kind", origin.Kind().String()),
			attribute.Int("parallelism", c.parallelism),
		),
	)
	defer span.End()

	closure, err := c.compute(ctx, origin)
	if err != nil {
		if IsCancelled(err) {
			span.SetAttributes(attribute.Bool("cancelled", true))
			c.logger.Debug("descendant computation cancelled", "origin", origin.DisplayName())
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("closure.size", len(closure)))
	return closure, nil
}

func (c *DescendantComputer) compute(ctx context.Context, origin TypeDescriptor) (Closure, error) {
	w := &descendantWalk{
		computer: c,
		builder:  newClosureBuilder(),
	}
	w.builder.seen(origin)

	if c.parallelism > 1 {
		prefetchCtx, cancel := context.WithCancel(ctx)
		w.prefetchCtx = prefetchCtx
		w.pending = make(map[string]*pendingQuery)
		w.workers.SetLimit(c.parallelism)
		defer func() {
			cancel()
			_ = w.workers.Wait()
		}()
	}

	if err := w.visit(ctx, origin, 0); err != nil {
		return nil, err
	}

	// A computation whose context ended while the last answers arrived is
	// still cancelled.
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	c.logger.Debug("descendants collected",
		"origin", origin.DisplayName(),
		"discovered", len(w.builder.result),
	)
	return w.builder.result, nil
}

// descendantWalk is the state of one Compute call. Only the walking
// goroutine touches builder and pending; prefetch workers write into their
// own pendingQuery and close done.
type descendantWalk struct {
	computer *DescendantComputer
	builder  *closureBuilder

	prefetchCtx context.Context
	pending     map[string]*pendingQuery
	workers     errgroup.Group
}

type pendingQuery struct {
	done     chan struct{}
	children []TypeDescriptor
	err      error
}

type derivedStep struct {
	op string
	fn queryFunc
}

func (c *DescendantComputer) steps(node TypeDescriptor) []derivedStep {
	if node.Kind() != KindInterface {
		return []derivedStep{{op: queryDerivedClasses, fn: c.index.DirectDerivedClasses}}
	}
	return []derivedStep{
		{op: queryDerivedInterfaces, fn: c.index.DirectDerivedInterfaces},
		{op: queryImplementations, fn: c.index.DirectImplementations},
	}
}

func (w *descendantWalk) visit(ctx context.Context, node TypeDescriptor, level int) error {
	for _, step := range w.computer.steps(node) {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		children, err := w.children(ctx, step, node)
		if err != nil {
			return err
		}
		w.prefetch(children)

		for _, child := range children {
			if child == nil || !w.builder.add(child, level+1) {
				continue
			}
			if err := w.visit(ctx, child, level+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// children answers one query, from a finished or running prefetch when
// there is one.
func (w *descendantWalk) children(ctx context.Context, step derivedStep, node TypeDescriptor) ([]TypeDescriptor, error) {
	if p, ok := w.pending[pendingKey(step.op, node)]; ok {
		select {
		case <-p.done:
			return p.children, p.err
		case <-ctx.Done():
			return nil, cancelled(ctx.Err())
		}
	}
	return w.computer.query(ctx, step.op, node, step.fn)
}

// prefetch starts the queries of unvisited siblings while the walk descends
// into the first of them. It never blocks: when every worker is busy the
// query is left to run on demand. A prefetched answer that the walk never
// consumes, including its error, is discarded.
func (w *descendantWalk) prefetch(children []TypeDescriptor) {
	if w.pending == nil {
		return
	}
	for _, child := range children {
		if child == nil || w.builder.visited[child.ID()] {
			continue
		}
		for _, step := range w.computer.steps(child) {
			key := pendingKey(step.op, child)
			if _, ok := w.pending[key]; ok {
				continue
			}
			p := &pendingQuery{done: make(chan struct{})}
			started := w.workers.TryGo(func() error {
				defer close(p.done)
				p.children, p.err = w.computer.query(w.prefetchCtx, step.op, child, step.fn)
				return nil
			})
			if !started {
				return
			}
			w.pending[key] = p
		}
	}
}

func pendingKey(op string, node TypeDescriptor) string {
	return op + ":" + node.ID()
}

func (c *DescendantComputer) query(ctx context.Context, op string, node TypeDescriptor, fn queryFunc) ([]TypeDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	c.recorder.IndexQuery(op)

	queryCtx := ctx
	if c.queryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, c.queryTimeout)
		defer cancel()
	}

	children, err := fn(queryCtx, node)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, &QueryError{Op: op, Type: node.DisplayName(), Err: err}
	}
	return children, nil
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}
