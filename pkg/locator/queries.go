package locator

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// Queries read the current snapshot without waiting: an absent element yields
// a zero result, never an error, and the actionability gate is bypassed
// entirely. The strictness invariant still applies at the moment of the call:
// more than one candidate fails with ErrAmbiguousMatch immediately, since
// there is no retry window to let the set narrow.

// resolveSingleNow resolves the chain once and enforces strictness without
// waiting. ok is false when no element matches.
func (l *Locator) resolveSingleNow(ctx context.Context) (element string, ok bool, err error) {
	ids, err := l.resolve(ctx)
	if err != nil {
		return "", false, err
	}
	switch len(ids) {
	case 0:
		return "", false, nil
	case 1:
		return ids[0], true, nil
	default:
		return "", false, core.ErrAmbiguousMatch.WithDetails(map[string]interface{}{
			"selector": l.Description(),
			"matches":  len(ids),
		})
	}
}

// snapshotNow returns the current element snapshot, or ok=false when absent.
// An element vanishing between resolve and describe counts as absent.
func (l *Locator) snapshotNow(ctx context.Context) (core.ElementSnapshot, bool, error) {
	element, ok, err := l.resolveSingleNow(ctx)
	if err != nil || !ok {
		return core.ElementSnapshot{}, false, err
	}
	snap, err := l.describe(ctx, element)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrDetached) {
			return core.ElementSnapshot{}, false, nil
		}
		return core.ElementSnapshot{}, false, err
	}
	return snap, true, nil
}

func (l *Locator) textQuery(ctx context.Context, method string) (string, error) {
	element, ok, err := l.resolveSingleNow(ctx)
	if err != nil || !ok {
		return "", err
	}
	var res wire.TextResult
	err = l.target.Call(ctx, method, wire.ElementParams{
		PageID:    l.target.PageID(),
		ElementID: element,
	}, &res)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrDetached) {
			return "", nil
		}
		return "", err
	}
	return res.Value, nil
}

// InnerHTML returns the element's inner markup, or "" when absent.
func (l *Locator) InnerHTML(ctx context.Context) (string, error) {
	return l.textQuery(ctx, wire.MethodDOMInnerHTML)
}

// InnerText returns the element's rendered text, or "" when absent.
func (l *Locator) InnerText(ctx context.Context) (string, error) {
	return l.textQuery(ctx, wire.MethodDOMInnerText)
}

// TextContent returns the element's text content, or "" when absent.
func (l *Locator) TextContent(ctx context.Context) (string, error) {
	return l.textQuery(ctx, wire.MethodDOMTextContent)
}

// InputValue returns the element's input value, or "" when absent.
func (l *Locator) InputValue(ctx context.Context) (string, error) {
	return l.textQuery(ctx, wire.MethodDOMInputValue)
}

// GetAttribute returns the attribute value. ok is false when the element is
// absent or the attribute is not set.
func (l *Locator) GetAttribute(ctx context.Context, name string) (value string, ok bool, err error) {
	element, found, err := l.resolveSingleNow(ctx)
	if err != nil || !found {
		return "", false, err
	}
	var res wire.AttributeResult
	err = l.target.Call(ctx, wire.MethodDOMAttribute, wire.AttributeParams{
		PageID:    l.target.PageID(),
		ElementID: element,
		Name:      name,
	}, &res)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrDetached) {
			return "", false, nil
		}
		return "", false, err
	}
	if res.Value == nil {
		return "", false, nil
	}
	return *res.Value, true, nil
}

// BoundingBox returns the element's box, or nil when the element is absent or
// not visible. It is the one query whose empty result depends on visibility.
func (l *Locator) BoundingBox(ctx context.Context) (*core.Rect, error) {
	element, ok, err := l.resolveSingleNow(ctx)
	if err != nil || !ok {
		return nil, err
	}
	box, err := l.boundingBox(ctx, element)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrDetached) {
			return nil, nil
		}
		return nil, err
	}
	return box, nil
}

// IsVisible reports the current visibility; an absent element is not visible.
func (l *Locator) IsVisible(ctx context.Context) (bool, error) {
	snap, ok, err := l.snapshotNow(ctx)
	if err != nil || !ok {
		return false, err
	}
	return snap.Attached && snap.Visible, nil
}

// IsHidden is the complement of IsVisible; an absent element is hidden.
func (l *Locator) IsHidden(ctx context.Context) (bool, error) {
	visible, err := l.IsVisible(ctx)
	return !visible && err == nil, err
}

// IsChecked reports the current checked state; false when absent.
func (l *Locator) IsChecked(ctx context.Context) (bool, error) {
	snap, ok, err := l.snapshotNow(ctx)
	if err != nil || !ok {
		return false, err
	}
	return snap.Checked, nil
}

// IsEnabled reports the current enabled state; false when absent.
func (l *Locator) IsEnabled(ctx context.Context) (bool, error) {
	snap, ok, err := l.snapshotNow(ctx)
	if err != nil || !ok {
		return false, err
	}
	return snap.Enabled, nil
}

// IsDisabled reports whether the element exists and is disabled.
func (l *Locator) IsDisabled(ctx context.Context) (bool, error) {
	snap, ok, err := l.snapshotNow(ctx)
	if err != nil || !ok {
		return false, err
	}
	return !snap.Enabled, nil
}

// IsEditable reports the current editable state; false when absent.
func (l *Locator) IsEditable(ctx context.Context) (bool, error) {
	snap, ok, err := l.snapshotNow(ctx)
	if err != nil || !ok {
		return false, err
	}
	return snap.Editable, nil
}

// Handle is an opaque reference to one resolved element identity. Unlike a
// Locator it does not re-resolve: it names the element the resolution saw and
// goes stale if that element detaches.
type Handle struct {
	target Target
	id     string
}

// ObjectID returns the remote element id.
func (h *Handle) ObjectID() string {
	return h.id
}

// Describe returns the element's current snapshot.
func (h *Handle) Describe(ctx context.Context) (core.ElementSnapshot, error) {
	var res wire.DescribeResult
	err := h.target.Call(ctx, wire.MethodDOMDescribe, wire.ElementParams{
		PageID:    h.target.PageID(),
		ElementID: h.id,
	}, &res)
	if err != nil {
		return core.ElementSnapshot{}, err
	}
	return res.Snapshot, nil
}

// ElementHandle resolves to the single matching element's identity, or nil
// when none matches.
func (l *Locator) ElementHandle(ctx context.Context) (*Handle, error) {
	element, ok, err := l.resolveSingleNow(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &Handle{target: l.target, id: element}, nil
}

// ElementHandles resolves to all matching element identities at this instant.
func (l *Locator) ElementHandles(ctx context.Context) ([]*Handle, error) {
	ids, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]*Handle, len(ids))
	for i, id := range ids {
		handles[i] = &Handle{target: l.target, id: id}
	}
	return handles, nil
}

// WaitForState names the condition WaitFor blocks on.
type WaitForState string

// WaitForState values
const (
	WaitForAttached WaitForState = "attached"
	WaitForDetached WaitForState = "detached"
	WaitForVisible  WaitForState = "visible"
	WaitForHidden   WaitForState = "hidden"
)

// WaitFor blocks until the chosen state holds, subject to the usual deadline
// and strictness rules. Hidden and detached are satisfied by an empty
// candidate set.
func (l *Locator) WaitFor(ctx context.Context, state WaitForState, opts ...Options) error {
	name := "waitFor " + string(state)
	attempt := func(ctx context.Context) error {
		ids, err := l.resolve(ctx)
		if err != nil {
			return err
		}

		switch state {
		case WaitForDetached, WaitForHidden:
			if len(ids) == 0 {
				return nil
			}
		default:
			if len(ids) == 0 {
				return errNoCandidates
			}
		}
		if len(ids) > 1 {
			return &tooManyError{count: len(ids)}
		}

		snap, err := l.describe(ctx, ids[0])
		if err != nil {
			if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrDetached) {
				// The element vanished under us; that satisfies the
				// negative states.
				if state == WaitForDetached || state == WaitForHidden {
					return nil
				}
			}
			return err
		}

		switch state {
		case WaitForAttached:
			if snap.Attached {
				return nil
			}
			return &predicateError{name: "attached"}
		case WaitForDetached:
			if !snap.Attached {
				return nil
			}
			return &predicateError{name: "detached"}
		case WaitForVisible:
			if snap.Attached && snap.Visible {
				return nil
			}
			return &predicateError{name: "visible"}
		case WaitForHidden:
			if !snap.Attached || !snap.Visible {
				return nil
			}
			return &predicateError{name: "hidden"}
		default:
			return fmt.Errorf("unknown wait state %q", state)
		}
	}
	return l.poll(ctx, firstOpts(opts), name, attempt)
}
