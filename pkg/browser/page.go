package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/locator"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// Page scopes commands to one remote page and is the locator.Target every
// locator on it resolves against.
type Page struct {
	browser *Browser
	id      string
	paced   sync.Once
}

// PageID identifies the page on the wire.
func (p *Page) PageID() string {
	return p.id
}

// Defaults returns the engine settings this page's browser was connected with.
func (p *Page) Defaults() locator.Defaults {
	return p.browser.defaults
}

// Call dispatches one command for this page. The browser's SlowMo pause is
// applied once, before the page's first command.
func (p *Page) Call(ctx context.Context, method string, params, result interface{}) error {
	var pauseErr error
	p.paced.Do(func() {
		d := p.browser.slowMo
		if d <= 0 {
			return
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			pauseErr = ctx.Err()
		case <-timer.C:
		}
	})
	if pauseErr != nil {
		return pauseErr
	}
	return p.browser.session.Call(ctx, method, params, result)
}

// Locator creates a lazy reference to the elements matching selector. Nothing
// is resolved until the reference is used.
func (p *Page) Locator(selector string) *locator.Locator {
	return locator.New(p, selector)
}

// Navigate loads url and blocks until the navigation completes or the
// browser's action timeout elapses.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if timeout := p.browser.defaults.ActionTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := p.Call(ctx, wire.MethodPageNavigate, wire.NavigateParams{
		PageID: p.id,
		URL:    url,
	}, nil)
	if err != nil {
		return err
	}

	for {
		state, err := p.NavigationState(ctx)
		if err != nil {
			return err
		}
		if state == wire.NavStateComplete {
			return nil
		}

		timer := time.NewTimer(25 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return core.ErrTimeout.WithDetails(map[string]interface{}{
				"action": "navigate",
				"url":    url,
			})
		case <-timer.C:
		}
	}
}

// NavigationState returns the page's current navigation state.
func (p *Page) NavigationState(ctx context.Context) (string, error) {
	var res wire.NavStateResult
	err := p.Call(ctx, wire.MethodPageNavState, wire.PageParams{PageID: p.id}, &res)
	if err != nil {
		return "", err
	}
	return res.State, nil
}

// Close disposes the remote page. Locators created from it keep failing their
// resolutions afterwards.
func (p *Page) Close(ctx context.Context) error {
	return p.Call(ctx, wire.MethodPageClose, wire.PageParams{PageID: p.id}, nil)
}
