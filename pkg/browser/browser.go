// Package browser exposes the top-level client objects: a Browser owns one
// wire session, a Page scopes commands and locators to one remote page.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/locator"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// ConnectOptions configures Connect. Zero values fall back to the package
// defaults.
type ConnectOptions struct {
	// Timeout bounds the connection handshake.
	Timeout time.Duration
	// SlowMo inserts a pause before each page's first command, for watching
	// a run at human speed.
	SlowMo time.Duration
	// Headers are extra handshake headers, e.g. for authenticating proxies.
	Headers map[string]string

	// Engine defaults applied to every locator created from this browser.
	// A negative ActionTimeout means actions poll without a deadline.
	ActionTimeout time.Duration
	PollInterval  time.Duration
	SettleGrace   time.Duration
}

// Browser is a connected client. All pages created from it share one session;
// when the session closes, every in-flight and future call on any of them
// fails with ErrConnectionClosed.
type Browser struct {
	session  *wire.Session
	slowMo   time.Duration
	defaults locator.Defaults

	mu      sync.Mutex
	pages   []*Page
	pageSeq int
}

// Connect dials a running browser server. The returned Browser is tracked by
// the package registry until it disconnects.
func Connect(ctx context.Context, endpoint string, opts ConnectOptions) (*Browser, error) {
	session, err := wire.Dial(ctx, endpoint, wire.DialOptions{
		Timeout: opts.Timeout,
		Headers: opts.Headers,
	})
	if err != nil {
		return nil, err
	}

	defaults := locator.Defaults{
		ActionTimeout: opts.ActionTimeout,
		PollInterval:  opts.PollInterval,
		SettleGrace:   opts.SettleGrace,
	}
	if defaults.ActionTimeout == 0 {
		defaults.ActionTimeout = 30 * time.Second
	} else if defaults.ActionTimeout < 0 {
		defaults.ActionTimeout = 0
	}
	if defaults.PollInterval == 0 {
		defaults.PollInterval = 100 * time.Millisecond
	}
	if defaults.SettleGrace == 0 {
		defaults.SettleGrace = 500 * time.Millisecond
	}

	b := &Browser{
		session:  session,
		slowMo:   opts.SlowMo,
		defaults: defaults,
	}
	session.OnClose(func() {
		defaultRegistry.remove(b)
		logger.Info("browser: disconnected from %s", endpoint)
	})
	defaultRegistry.add(b)

	logger.Info("browser: connected to %s", endpoint)
	return b, nil
}

// IsConnected reports whether the underlying session is still open.
func (b *Browser) IsConnected() bool {
	return b.session.IsOpen()
}

// OnDisconnected registers fn to run exactly once when the session closes,
// whether by Close, a server shutdown, or transport loss. If the browser is
// already disconnected fn runs immediately.
func (b *Browser) OnDisconnected(fn func()) {
	b.session.OnClose(fn)
}

// Disconnected returns a channel closed when the session reaches its terminal
// state.
func (b *Browser) Disconnected() <-chan struct{} {
	return b.session.Done()
}

// Endpoint returns the address this browser was connected to.
func (b *Browser) Endpoint() string {
	return b.session.Endpoint()
}

// NewPage creates a fresh remote page.
func (b *Browser) NewPage(ctx context.Context) (*Page, error) {
	var res wire.PageCreateResult
	if err := b.session.Call(ctx, wire.MethodPageCreate, nil, &res); err != nil {
		return nil, err
	}

	p := &Page{browser: b, id: res.PageID}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p, nil
}

// Pages returns the pages created on this browser, in creation order.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Page, len(b.pages))
	copy(out, b.pages)
	return out
}

// Close asks the server to shut the browser down, then tears the session down
// locally. Closing an already-closed browser is a no-op.
func (b *Browser) Close() error {
	if b.session.IsOpen() {
		// Best effort; the local teardown is what guarantees propagation.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = b.session.Call(ctx, wire.MethodBrowserClose, nil, nil)
		cancel()
	}
	return b.session.Close()
}
