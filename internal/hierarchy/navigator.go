package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("typenav.hierarchy")

// DefaultProbeWait is how long an opening picker waits for the completeness
// probe before it is shown without a warning.
const DefaultProbeWait = 250 * time.Millisecond

// Status is how a navigation ended.
type Status int

const (
	// StatusNoOrigin: nothing to navigate from, or no index. Silent.
	StatusNoOrigin Status = iota
	// StatusEmpty: the closure was empty. Silent.
	StatusEmpty
	StatusNavigated
	// StatusNavigationFailed: a target was chosen but no declaration site
	// could be opened. Logged, not reported.
	StatusNavigationFailed
	StatusCancelled
	// StatusFailed: the closure computation failed and was reported.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNoOrigin:
		return "no_origin"
	case StatusEmpty:
		return "empty"
	case StatusNavigated:
		return "navigated"
	case StatusNavigationFailed:
		return "navigation_failed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes one finished navigation.
type Outcome struct {
	Status    Status
	Direction Direction
	Origin    TypeDescriptor
	Closure   Closure
	// Target and Location are set when a target was chosen.
	Target   TypeDescriptor
	Location Location
	// PickerShown reports whether the picker was opened.
	PickerShown bool
	// Err is the resolution error for StatusNoOrigin or the reported error
	// for StatusFailed.
	Err error
}

// NavigatorConfig wires the collaborators of a Navigator. Resolver, Picker
// and Sink are required for a navigation to get anywhere; the rest are
// optional.
type NavigatorConfig struct {
	Resolver  OriginResolver
	Ancestors AncestorIndex
	Derived   DerivedIndex
	Picker    Picker
	Sink      NavigationSink
	Reporter  Reporter
	Probe     CompletenessProbe
	Logger    *slog.Logger
	Recorder  Recorder

	// ProbeWait bounds the wait for the probe once the picker is about to
	// open. Zero means DefaultProbeWait.
	ProbeWait time.Duration

	// DescendantOptions are applied to every descendant computation.
	DescendantOptions []DescendantOption
}

// Navigator resolves an origin, computes its closure and decides whether to
// jump directly, show nothing, or ask the picker.
type Navigator struct {
	cfg      NavigatorConfig
	logger   *slog.Logger
	recorder Recorder
}

// NewNavigator creates a Navigator.
func NewNavigator(cfg NavigatorConfig) *Navigator {
	n := &Navigator{
		cfg:      cfg,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}
	if n.recorder == nil {
		n.recorder = nopRecorder{}
	}
	return n
}

// Navigate runs one request to completion. Failures of the closure
// computation are reported once through the Reporter, titled with the
// direction description; every other outcome is silent.
func (n *Navigator) Navigate(ctx context.Context, req Request) (outcome Outcome) {
	ctx, span := tracer.Start(ctx, "hierarchy.Navigator.Navigate",
		trace.WithAttributes(attribute.String("direction", req.Direction.String())),
	)
	defer func() {
		span.SetAttributes(
			attribute.String("outcome", outcome.Status.String()),
			attribute.Int("closure.size", len(outcome.Closure)),
		)
		span.End()
		n.recorder.NavigationFinished(req.Direction, outcome.Status)
	}()

	outcome = Outcome{Status: StatusNoOrigin, Direction: req.Direction}

	if n.cfg.Resolver == nil {
		n.logger.Debug("no origin resolver configured")
		return outcome
	}
	origin, err := n.cfg.Resolver.Locate(ctx, req.Position)
	if err != nil {
		n.logger.Debug("origin resolution failed", "query", req.Position.Query, "error", err)
		outcome.Err = err
		return outcome
	}
	if origin == nil {
		n.logger.Debug("no type at position", "query", req.Position.Query)
		return outcome
	}
	outcome.Origin = origin
	span.SetAttributes(attribute.String("origin", origin.DisplayName()))

	// The probe never gates the computation; its answer is only read if a
	// picker opens.
	probeCtx, stopProbe := context.WithCancel(ctx)
	defer stopProbe()
	warning := n.startProbe(probeCtx)

	closure, err := n.computeClosure(ctx, origin, req.Direction)
	switch {
	case err == nil:
	case IsCancelled(err):
		outcome.Status = StatusCancelled
		return outcome
	case errors.Is(err, ErrNoIndex):
		n.logger.Debug("no type index available", "direction", req.Direction.String())
		return outcome
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logger.Debug("closure computation failed", "origin", origin.DisplayName(), "error", err)
		if n.cfg.Reporter != nil {
			n.cfg.Reporter.ReportError(req.Direction.Description(), err)
		}
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Closure = closure
	n.recorder.ClosureComputed(req.Direction, len(closure))
	n.logger.Debug("closure computed",
		"origin", origin.DisplayName(),
		"direction", req.Direction.String(),
		"size", len(closure),
	)

	switch len(closure) {
	case 0:
		outcome.Status = StatusEmpty
		return outcome
	case 1:
		return n.goTo(ctx, outcome, closure[0].Type)
	}

	if n.cfg.Picker == nil {
		n.logger.Debug("no picker configured")
		outcome.Status = StatusCancelled
		return outcome
	}

	session := NewSession(origin, req.Direction, closure, n.awaitWarning(ctx, warning))
	outcome.PickerShown = true
	selection, err := n.cfg.Picker.Pick(ctx, session)
	if err != nil {
		if ctx.Err() == nil {
			n.logger.Warn("picker failed", "error", err)
		}
		outcome.Status = StatusCancelled
		return outcome
	}
	if !selection.Confirmed || selection.Selected == nil {
		outcome.Status = StatusCancelled
		return outcome
	}
	return n.goTo(ctx, outcome, selection.Selected)
}

func (n *Navigator) computeClosure(ctx context.Context, origin TypeDescriptor, direction Direction) (Closure, error) {
	if direction == DirectionDerived {
		if n.cfg.Derived == nil {
			return nil, ErrNoIndex
		}
		opts := append([]DescendantOption{WithLogger(n.logger), WithRecorder(n.recorder)}, n.cfg.DescendantOptions...)
		return NewDescendantComputer(n.cfg.Derived, opts...).Compute(ctx, origin)
	}

	if n.cfg.Ancestors == nil {
		return nil, ErrNoIndex
	}
	_, span := tracer.Start(ctx, "hierarchy.AncestorComputer.Compute",
		trace.WithAttributes(attribute.String("origin", origin.DisplayName())),
	)
	closure := NewAncestorComputer(n.cfg.Ancestors).Compute(origin)
	span.SetAttributes(attribute.Int("closure.size", len(closure)))
	span.End()
	return closure, nil
}

// startProbe runs the completeness probe alongside the closure computation.
func (n *Navigator) startProbe(ctx context.Context) <-chan string {
	out := make(chan string, 1)
	if n.cfg.Probe == nil {
		out <- ""
		return out
	}
	go func() {
		out <- n.cfg.Probe(ctx)
	}()
	return out
}

// awaitWarning returns the probe's answer, or no warning when the probe has
// not finished within ProbeWait.
func (n *Navigator) awaitWarning(ctx context.Context, warning <-chan string) string {
	wait := n.cfg.ProbeWait
	if wait <= 0 {
		wait = DefaultProbeWait
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case message := <-warning:
		return message
	case <-timer.C:
		n.logger.Debug("completeness probe still running; opening picker without warning", "waited", wait)
		return ""
	case <-ctx.Done():
		return ""
	}
}

// goTo tries each declaration site of target until the sink accepts one.
func (n *Navigator) goTo(ctx context.Context, outcome Outcome, target TypeDescriptor) Outcome {
	outcome.Target = target
	if n.cfg.Sink != nil {
		for _, loc := range target.Locations() {
			if n.cfg.Sink.GoTo(ctx, target, loc) {
				outcome.Status = StatusNavigated
				outcome.Location = loc
				return outcome
			}
		}
	}
	n.logger.Warn("could not navigate to type",
		"type", target.DisplayName(),
		"locations", len(target.Locations()),
	)
	outcome.Status = StatusNavigationFailed
	return outcome
}
