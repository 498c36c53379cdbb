// Package locator implements lazy element references and the actionability
// retry engine that drives every element action.
//
// A Locator is a recipe for finding elements, not a handle to one: it stores a
// chain of selector segments and re-resolves the whole chain on every use, so
// a reference created before a DOM mutation always reflects current state when
// used after it.
package locator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// Defaults carries the session-wide engine settings a target provides.
type Defaults struct {
	ActionTimeout time.Duration // Per-action deadline; 0 means no bound
	PollInterval  time.Duration // Backoff between actionability polls
	SettleGrace   time.Duration // Post-action navigation grace window
}

// Target is the page-scoped command channel a Locator resolves against.
// Implemented by browser.Page.
type Target interface {
	// Call dispatches one protocol command for this page.
	Call(ctx context.Context, method string, params, result interface{}) error
	// PageID identifies the page on the wire.
	PageID() string
	// Defaults returns the session-wide engine settings.
	Defaults() Defaults
}

// segmentKind tags a chain segment.
type segmentKind int

const (
	segSelector segmentKind = iota // a base selector scoped to the parent set
	segNth                         // ordinal filter on the parent candidate set
	segText                        // exact text filter
	segTextPattern                 // regexp text filter
)

type segment struct {
	kind    segmentKind
	sel     string
	index   int
	pattern string
}

func (s segment) String() string {
	switch s.kind {
	case segNth:
		return "nth=" + strconv.Itoa(s.index)
	case segText:
		return "text=" + strconv.Quote(s.sel)
	case segTextPattern:
		return "text=/" + s.pattern + "/"
	default:
		return s.sel
	}
}

// Locator is an immutable (container scope, selector) chain. Composition
// copies the chain; nothing is resolved until a call needs candidates.
type Locator struct {
	target Target
	chain  []segment
}

// New creates a root-scoped locator for selector on target.
func New(target Target, selector string) *Locator {
	return &Locator{
		target: target,
		chain:  []segment{{kind: segSelector, sel: selector}},
	}
}

// extend returns a new locator with seg appended; the receiver is unchanged.
func (l *Locator) extend(seg segment) *Locator {
	chain := make([]segment, len(l.chain), len(l.chain)+1)
	copy(chain, l.chain)
	return &Locator{target: l.target, chain: append(chain, seg)}
}

// Locator composes a child scope: the new reference resolves selector within
// each of the receiver's current candidates, re-resolving the parent on every
// attempt.
func (l *Locator) Locator(selector string) *Locator {
	return l.extend(segment{kind: segSelector, sel: selector})
}

// First composes an ordinal filter selecting the first candidate.
func (l *Locator) First() *Locator {
	return l.Nth(0)
}

// Last composes an ordinal filter selecting the last candidate.
func (l *Locator) Last() *Locator {
	return l.Nth(-1)
}

// Nth composes an ordinal filter; negative indices count from the end.
func (l *Locator) Nth(i int) *Locator {
	return l.extend(segment{kind: segNth, index: i})
}

// WithText composes a content filter keeping candidates whose text contains
// text.
func (l *Locator) WithText(text string) *Locator {
	return l.extend(segment{kind: segText, sel: text})
}

// WithTextPattern composes a content filter keeping candidates whose text
// matches re.
func (l *Locator) WithTextPattern(re *regexp.Regexp) *Locator {
	return l.extend(segment{kind: segTextPattern, pattern: re.String()})
}

// Description returns the serialized chain, used in error context.
func (l *Locator) Description() string {
	parts := make([]string, len(l.chain))
	for i, s := range l.chain {
		parts[i] = s.String()
	}
	return strings.Join(parts, " >> ")
}

// String implements fmt.Stringer.
func (l *Locator) String() string {
	return fmt.Sprintf("Locator(%q)", l.Description())
}

// resolve queries the full chain and returns the ordered candidate set for
// this instant. Results are never cached across attempts.
func (l *Locator) resolve(ctx context.Context) ([]string, error) {
	var res wire.QueryResult
	err := l.target.Call(ctx, wire.MethodDOMQuery, wire.QueryParams{
		PageID:   l.target.PageID(),
		Selector: l.Description(),
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Elements, nil
}

// Count resolves the reference and returns the current cardinality. It is the
// one operation exempt from strict mode: any count, including zero, is a valid
// answer and never waits.
func (l *Locator) Count(ctx context.Context) (int, error) {
	ids, err := l.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
