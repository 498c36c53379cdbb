package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// Options configures a single action call.
type Options struct {
	// Timeout overrides the session default deadline. A nil value means "use
	// the default"; an explicit 0 disables the bound entirely and polls until
	// the action succeeds, the caller cancels, or the connection closes. The
	// zero-disables behavior is a documented escape hatch.
	Timeout *time.Duration

	// Force skips every actionability check except attached.
	Force bool

	// NoWaitAfter skips the post-action navigation settle.
	NoWaitAfter bool

	// Position is an offset within the target's bounding box; default is the
	// box center.
	Position *core.Point

	// Modifiers are held during pointer actions.
	Modifiers []core.Modifier
}

// Timeout returns an Options overriding only the deadline.
func Timeout(d time.Duration) Options {
	return Options{Timeout: &d}
}

func firstOpts(opts []Options) Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return Options{}
}

// Interval between the two bounding-box samples of the stability check,
// approximating one animation frame.
const frameInterval = 16 * time.Millisecond

// Engine states. Every transient failure re-enters stateResolving; the retry
// loop in run owns the deadline.
type engineState int

const (
	stateResolving engineState = iota
	stateGating
	stateActing
	stateSettling
	stateDone
)

// gateNeeds selects which actionability predicates apply to an action.
// Attached is always required and is the only predicate Force keeps.
type gateNeeds struct {
	visible  bool
	stable   bool
	enabled  bool
	editable bool
}

// action describes one action kind for the engine.
type action struct {
	name    string
	needs   gateNeeds
	pointer bool // scrolls into view, computes a point, checks the hit target
	perform func(ctx context.Context, elementID string, point core.Point) error
}

// Transient conditions. These re-enter resolving rather than failing the call.
var errNoCandidates = errors.New("waiting for selector to resolve")

type tooManyError struct {
	count int
}

func (e *tooManyError) Error() string {
	return fmt.Sprintf("selector resolved to %d elements", e.count)
}

type predicateError struct {
	name string
}

func (e *predicateError) Error() string {
	return "element is not " + e.name
}

// isTransient reports whether the attempt should be retried. Connection loss
// and navigation interruption are deliberately not here: they surface
// immediately.
func isTransient(err error) bool {
	var tooMany *tooManyError
	var pred *predicateError
	switch {
	case errors.Is(err, errNoCandidates):
		return true
	case errors.As(err, &tooMany):
		return true
	case errors.As(err, &pred):
		return true
	case errors.Is(err, core.ErrDetached):
		return true
	case errors.Is(err, core.ErrNotFound):
		// A stale element id answered between resolve and act.
		return true
	default:
		return false
	}
}

// run drives the resolve -> gate -> act -> settle loop for one action call
// until success, a permanent failure, or the deadline.
func (l *Locator) run(ctx context.Context, opts Options, act action) error {
	return l.poll(ctx, opts, act.name, func(ctx context.Context) error {
		return l.attempt(ctx, opts, act)
	})
}

// poll retries attempt on transient failures until success, a permanent
// failure, or the deadline. It is shared by the action engine and WaitFor.
func (l *Locator) poll(ctx context.Context, opts Options, name string, attempt func(ctx context.Context) error) error {
	d := l.target.Defaults()

	timeout := d.ActionTimeout
	if opts.Timeout != nil {
		timeout = *opts.Timeout
	}

	interval := d.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	start := time.Now()
	actCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bo := backoff.NewConstantBackOff(interval)
	var last error
	for {
		err := attempt(actCtx)
		if err == nil {
			return nil
		}

		// The deadline may have expired mid-attempt; classify off the last
		// observation rather than surfacing a bare context error.
		if actCtx.Err() != nil && ctx.Err() == nil {
			if isTransient(err) {
				last = err
			}
			return l.deadlineError(name, last, time.Since(start))
		}
		if ctx.Err() != nil {
			// The caller cancelled explicitly.
			return ctx.Err()
		}

		if !isTransient(err) {
			return l.annotate(name, err, time.Since(start))
		}
		last = err
		logger.WithFields("action", name, "selector", l.Description(), "cause", err.Error()).
			Debug("locator: retrying")

		timer := time.NewTimer(bo.NextBackOff())
		select {
		case <-actCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return l.deadlineError(name, last, time.Since(start))
		case <-timer.C:
		}
	}
}

// attempt performs one pass of the explicit state machine. Any transient
// return re-enters resolving via run.
func (l *Locator) attempt(ctx context.Context, opts Options, act action) error {
	var (
		st      = stateResolving
		element string
		point   core.Point
	)
	for {
		switch st {
		case stateResolving:
			ids, err := l.resolve(ctx)
			if err != nil {
				return err
			}
			// Zero candidates is a wait condition, not an error; so is an
			// ambiguous set, which may narrow as the remote state settles.
			if len(ids) == 0 {
				return errNoCandidates
			}
			if len(ids) > 1 {
				return &tooManyError{count: len(ids)}
			}
			element = ids[0]
			st = stateGating

		case stateGating:
			p, err := l.gate(ctx, element, opts, act)
			if err != nil {
				return err
			}
			point = p
			st = stateActing

		case stateActing:
			if err := act.perform(ctx, element, point); err != nil {
				return err
			}
			st = stateSettling

		case stateSettling:
			if !opts.NoWaitAfter {
				if err := l.settle(ctx); err != nil {
					return err
				}
			}
			st = stateDone

		case stateDone:
			return nil
		}
	}
}

// gate evaluates the applicable actionability predicates on the single
// resolved candidate and returns the action point. Each failing predicate is
// transient.
func (l *Locator) gate(ctx context.Context, element string, opts Options, act action) (core.Point, error) {
	snap, err := l.describe(ctx, element)
	if err != nil {
		return core.Point{}, err
	}
	if !snap.Attached {
		return core.Point{}, core.ErrDetached
	}

	needsPoint := act.pointer || opts.Position != nil

	if opts.Force {
		if !needsPoint {
			return core.Point{}, nil
		}
		box, err := l.boundingBox(ctx, element)
		if err != nil {
			return core.Point{}, err
		}
		if box == nil {
			return core.Point{}, core.ErrDetached
		}
		return actionPoint(*box, opts.Position), nil
	}

	if act.needs.visible && !snap.Visible {
		return core.Point{}, &predicateError{name: "visible"}
	}
	if act.needs.enabled && !snap.Enabled {
		return core.Point{}, &predicateError{name: "enabled"}
	}
	if act.needs.editable && !snap.Editable {
		return core.Point{}, &predicateError{name: "editable"}
	}

	if act.pointer {
		// Scroll first; a stable off-screen box would otherwise pass the
		// checks while the point lands outside the viewport.
		if err := l.target.Call(ctx, wire.MethodDOMScroll, wire.ElementParams{
			PageID:    l.target.PageID(),
			ElementID: element,
		}, nil); err != nil {
			return core.Point{}, err
		}
	}

	var box *core.Rect
	if act.needs.stable {
		first, err := l.boundingBox(ctx, element)
		if err != nil {
			return core.Point{}, err
		}
		if first == nil || first.Empty() {
			return core.Point{}, &predicateError{name: "visible"}
		}

		timer := time.NewTimer(frameInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return core.Point{}, ctx.Err()
		case <-timer.C:
		}

		second, err := l.boundingBox(ctx, element)
		if err != nil {
			return core.Point{}, err
		}
		if second == nil || second.Empty() {
			return core.Point{}, &predicateError{name: "visible"}
		}
		if *first != *second {
			return core.Point{}, &predicateError{name: "stable"}
		}
		box = second
	} else if needsPoint {
		b, err := l.boundingBox(ctx, element)
		if err != nil {
			return core.Point{}, err
		}
		if b == nil || b.Empty() {
			return core.Point{}, &predicateError{name: "visible"}
		}
		box = b
	}

	if !needsPoint {
		return core.Point{}, nil
	}

	point := actionPoint(*box, opts.Position)
	if act.pointer {
		var hit wire.HitTestResult
		if err := l.target.Call(ctx, wire.MethodDOMHitTest, wire.HitTestParams{
			PageID:    l.target.PageID(),
			ElementID: element,
			Point:     point,
		}, &hit); err != nil {
			return core.Point{}, err
		}
		if !hit.Hit {
			return core.Point{}, &predicateError{name: "receiving pointer events"}
		}
	}
	return point, nil
}

func actionPoint(box core.Rect, position *core.Point) core.Point {
	if position != nil {
		return core.Point{X: box.X + position.X, Y: box.Y + position.Y}
	}
	return box.Center()
}

// settle waits for a navigation triggered by the action to either complete or
// definitively not occur within the grace window.
func (l *Locator) settle(ctx context.Context) error {
	grace := l.target.Defaults().SettleGrace
	if grace <= 0 {
		grace = 500 * time.Millisecond
	}
	deadline := time.Now().Add(grace)

	sawPending := false
	for {
		var nav wire.NavStateResult
		err := l.target.Call(ctx, wire.MethodPageNavState, wire.PageParams{
			PageID: l.target.PageID(),
		}, &nav)
		if err != nil {
			return err
		}

		switch nav.State {
		case wire.NavStateComplete:
			return nil
		case wire.NavStatePending:
			sawPending = true
		default:
			// Once a navigation was observed it must finish; otherwise the
			// grace window expiring means none is coming.
			if !sawPending && time.Now().After(deadline) {
				return nil
			}
		}

		timer := time.NewTimer(25 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locator) describe(ctx context.Context, element string) (core.ElementSnapshot, error) {
	var res wire.DescribeResult
	err := l.target.Call(ctx, wire.MethodDOMDescribe, wire.ElementParams{
		PageID:    l.target.PageID(),
		ElementID: element,
	}, &res)
	if err != nil {
		return core.ElementSnapshot{}, err
	}
	return res.Snapshot, nil
}

func (l *Locator) boundingBox(ctx context.Context, element string) (*core.Rect, error) {
	var res wire.BoundingBoxResult
	err := l.target.Call(ctx, wire.MethodDOMBoundingBox, wire.ElementParams{
		PageID:    l.target.PageID(),
		ElementID: element,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Box, nil
}

// deadlineError classifies the failure once the deadline elapses: the last
// observation decides between ambiguity, a persistent detach, and a plain
// timeout.
func (l *Locator) deadlineError(name string, last error, elapsed time.Duration) error {
	details := map[string]interface{}{
		"action":   name,
		"selector": l.Description(),
		"elapsed":  elapsed.Round(time.Millisecond).String(),
	}

	var tooMany *tooManyError
	switch {
	case errors.As(last, &tooMany):
		details["matches"] = tooMany.count
		return core.ErrAmbiguousMatch.WithDetails(details)
	case errors.Is(last, core.ErrDetached):
		return core.ErrDetached.WithDetails(details)
	default:
		if last != nil {
			details["lastCheck"] = last.Error()
		}
		return core.ErrTimeout.WithDetails(details)
	}
}

// annotate attaches action context to a permanent failure.
func (l *Locator) annotate(name string, err error, elapsed time.Duration) error {
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.WithDetails(map[string]interface{}{
			"action":   name,
			"selector": l.Description(),
			"elapsed":  elapsed.Round(time.Millisecond).String(),
		})
	}
	return fmt.Errorf("%s %q: %w", name, l.Description(), err)
}
