package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/mockdom"
)

func formPage(p *mockdom.Page) {
	p.Add(&mockdom.Element{
		ID: "btn", Tag: "button", Text: "Save",
		Attrs:   map[string]string{"id": "save"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 0, Y: 0, Width: 100, Height: 40},
	})
	p.Add(&mockdom.Element{
		ID: "name", Tag: "input",
		Attrs:   map[string]string{"id": "name"},
		Visible: true, Enabled: true, Editable: true,
		Box: core.Rect{X: 0, Y: 50, Width: 200, Height: 30},
	})
	p.Add(&mockdom.Element{
		ID: "agree", Tag: "input", TogglesOnClick: true,
		Attrs:   map[string]string{"id": "agree"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 0, Y: 90, Width: 20, Height: 20},
	})
}

func startServer(t *testing.T, onPage func(*mockdom.Page)) (*mockdom.Server, string) {
	t.Helper()
	srv := mockdom.NewServer()
	srv.OnPage = onPage
	return srv, startAt(t, srv)
}

func startAt(t *testing.T, srv *mockdom.Server) string {
	t.Helper()
	endpoint, err := srv.Start()
	if err != nil {
		t.Fatalf("mockdom start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return endpoint
}

func connect(t *testing.T, endpoint string) *Browser {
	t.Helper()
	b, err := Connect(context.Background(), endpoint, ConnectOptions{
		Timeout:       5 * time.Second,
		ActionTimeout: 2 * time.Second,
		PollInterval:  10 * time.Millisecond,
		SettleGrace:   30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestClickThroughFullStack(t *testing.T) {
	srv, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	if err := page.Locator("#save").Click(context.Background()); err != nil {
		t.Fatalf("Click() error: %v", err)
	}

	srv.WithPage(page.PageID(), func(p *mockdom.Page) {
		if len(p.Clicks) != 1 {
			t.Fatalf("clicks = %d, want 1", len(p.Clicks))
		}
		if want := (core.Point{X: 50, Y: 20}); p.Clicks[0].Point != want {
			t.Errorf("point = %v, want %v", p.Clicks[0].Point, want)
		}
	})
}

func TestFillAndReadBack(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}
	ctx := context.Background()

	name := page.Locator("#name")
	if err := name.Fill(ctx, "Ada Lovelace"); err != nil {
		t.Fatalf("Fill() error: %v", err)
	}
	value, err := name.InputValue(ctx)
	if err != nil {
		t.Fatalf("InputValue() error: %v", err)
	}
	if value != "Ada Lovelace" {
		t.Errorf("InputValue() = %q", value)
	}
}

func TestCheckThroughFullStack(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}
	ctx := context.Background()

	agree := page.Locator("#agree")
	if err := agree.Check(ctx); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	checked, err := agree.IsChecked(ctx)
	if err != nil {
		t.Fatalf("IsChecked() error: %v", err)
	}
	if !checked {
		t.Error("IsChecked() = false after Check()")
	}
}

func TestClickWaitsForLateElement(t *testing.T) {
	srv := mockdom.NewServer()
	srv.OnPage = func(p *mockdom.Page) {
		formPage(p)
		p.Get("btn").Visible = false
	}
	endpoint := startAt(t, srv)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		srv.WithPage(page.PageID(), func(p *mockdom.Page) {
			p.Get("btn").Visible = true
		})
	}()

	if err := page.Locator("#save").Click(context.Background()); err != nil {
		t.Fatalf("Click() error: %v", err)
	}
}

func TestNavigate(t *testing.T) {
	srv := mockdom.NewServer()
	srv.OnPage = formPage
	srv.NavDelay = 50 * time.Millisecond
	endpoint := startAt(t, srv)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	if err := page.Navigate(context.Background(), "https://example.test/login"); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}

	srv.WithPage(page.PageID(), func(p *mockdom.Page) {
		if p.URL != "https://example.test/login" {
			t.Errorf("URL = %q", p.URL)
		}
	})
}

func TestDisconnectPropagation(t *testing.T) {
	srv, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	notified := make(chan struct{})
	b.OnDisconnected(func() { close(notified) })

	srv.DropSessions()

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnected not fired after transport loss")
	}
	if b.IsConnected() {
		t.Error("IsConnected() = true after transport loss")
	}

	err = page.Locator("#save").Click(context.Background())
	if !errors.Is(err, core.ErrConnectionClosed) {
		t.Fatalf("Click() = %v, want ErrConnectionClosed", err)
	}
	var execErr *core.ExecutionError
	if !errors.As(err, &execErr) || execErr.Message != "Browser closed" {
		t.Errorf("error = %v, want message %q", err, "Browser closed")
	}
}

func TestCloseFailsFutureCalls(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	start := time.Now()
	err = page.Locator("#save").Click(context.Background())
	if !errors.Is(err, core.ErrConnectionClosed) {
		t.Fatalf("Click() = %v, want ErrConnectionClosed", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("took %v, closed-session calls must fail without waiting", elapsed)
	}
}

func TestOnDisconnectedAfterCloseRunsImmediately(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	b := connect(t, endpoint)
	_ = b.Close()

	fired := false
	b.OnDisconnected(func() { fired = true })
	if !fired {
		t.Error("OnDisconnected must run immediately on a closed browser")
	}
}

func TestRegistryTracksLifecycle(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	before := len(Open())
	b := connect(t, endpoint)
	if got := len(Open()); got != before+1 {
		t.Errorf("Open() = %d browsers, want %d", got, before+1)
	}

	_ = b.Close()
	if got := len(Open()); got != before {
		t.Errorf("Open() = %d browsers after close, want %d", got, before)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	a := connect(t, endpoint)
	b := connect(t, endpoint)

	_ = a.Close()

	if !b.IsConnected() {
		t.Fatal("closing browser A disconnected browser B")
	}
	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() on B error: %v", err)
	}
	if err := page.Locator("#save").Click(context.Background()); err != nil {
		t.Errorf("Click() on B error: %v", err)
	}
}

func TestSlowMoPausesOncePerPage(t *testing.T) {
	_, endpoint := startServer(t, formPage)

	b, err := Connect(context.Background(), endpoint, ConnectOptions{
		SlowMo:        80 * time.Millisecond,
		ActionTimeout: 2 * time.Second,
		PollInterval:  10 * time.Millisecond,
		SettleGrace:   30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	start := time.Now()
	if _, err := page.NavigationState(context.Background()); err != nil {
		t.Fatalf("NavigationState() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("first command took %v, want the pause applied", elapsed)
	}

	start = time.Now()
	if _, err := page.NavigationState(context.Background()); err != nil {
		t.Fatalf("NavigationState() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 60*time.Millisecond {
		t.Errorf("second command took %v, pause must not repeat", elapsed)
	}
}
