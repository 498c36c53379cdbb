package wire

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pilotlab-dev/webpilot/pkg/core"
)

var upgrader = websocket.Upgrader{}

// testServer runs handler for every inbound call. Returning nil sends no
// reply. The handler runs on the read goroutine, so replies are ordered
// unless the handler spawns its own goroutines.
type testServer struct {
	*httptest.Server
	handle func(conn *websocket.Conn, msg callMessage)
}

func newTestServer(t *testing.T, handle func(conn *websocket.Conn, msg callMessage)) *testServer {
	t.Helper()
	ts := &testServer{handle: handle}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var msg callMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ts.handle(conn, msg)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func reply(conn *websocket.Conn, id int64, result interface{}) {
	_ = conn.WriteJSON(map[string]interface{}{"id": id, "result": result})
}

func replyError(conn *websocket.Conn, id int64, code, message string) {
	_ = conn.WriteJSON(map[string]interface{}{
		"id":    id,
		"error": map[string]string{"code": code, "message": message},
	})
}

func dialTest(t *testing.T, ts *testServer) *Session {
	t.Helper()
	s, err := Dial(context.Background(), ts.wsURL(), DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDialInvalidScheme(t *testing.T) {
	for _, endpoint := range []string{"http://localhost:1234", "tcp://host", "localhost:9222", ""} {
		_, err := Dial(context.Background(), endpoint, DialOptions{})
		if !errors.Is(err, core.ErrInvalidEndpoint) {
			t.Errorf("Dial(%q) = %v, want ErrInvalidEndpoint", endpoint, err)
		}
	}
}

func TestDialUnreachable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1", DialOptions{Timeout: 500 * time.Millisecond})
	if !errors.Is(err, core.ErrConnectionFailed) {
		t.Errorf("Dial() = %v, want ErrConnectionFailed", err)
	}
}

func TestCallRoundTrip(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		if msg.Method != MethodDOMQuery {
			replyError(conn, msg.ID, RemoteCodeBadRequest, "unexpected method "+msg.Method)
			return
		}
		reply(conn, msg.ID, QueryResult{Elements: []string{"e1", "e2"}})
	})
	s := dialTest(t, ts)

	var res QueryResult
	err := s.Call(context.Background(), MethodDOMQuery, QueryParams{PageID: "p1", Selector: "#a"}, &res)
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if len(res.Elements) != 2 || res.Elements[0] != "e1" {
		t.Errorf("result = %+v", res)
	}
	if s.State() != StateOpen {
		t.Errorf("state = %v, want open", s.State())
	}
}

func TestCallOutOfOrderReplies(t *testing.T) {
	// The server answers the second call first; correlation is by id only.
	var first atomic.Int64
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		if first.CompareAndSwap(0, msg.ID) {
			return // hold the first call
		}
		reply(conn, msg.ID, TextResult{Value: "second"})
		reply(conn, first.Load(), TextResult{Value: "first"})
	})
	s := dialTest(t, ts)

	firstErr := make(chan error, 1)
	firstRes := &TextResult{}
	go func() {
		firstErr <- s.Call(context.Background(), MethodDOMInnerText, nil, firstRes)
	}()

	// Make sure the first call is registered before issuing the second.
	deadline := time.Now().Add(2 * time.Second)
	for first.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	var secondRes TextResult
	if err := s.Call(context.Background(), MethodDOMInnerText, nil, &secondRes); err != nil {
		t.Fatalf("second Call() error: %v", err)
	}
	if err := <-firstErr; err != nil {
		t.Fatalf("first Call() error: %v", err)
	}
	if firstRes.Value != "first" || secondRes.Value != "second" {
		t.Errorf("results = %q, %q", firstRes.Value, secondRes.Value)
	}
}

func TestCallRemoteErrorMapping(t *testing.T) {
	tests := []struct {
		code string
		want *core.ExecutionError
	}{
		{RemoteCodeDetached, core.ErrDetached},
		{RemoteCodeNotFound, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
				replyError(conn, msg.ID, tt.code, "element gone")
			})
			s := dialTest(t, ts)

			err := s.Call(context.Background(), MethodDOMDescribe, nil, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Call() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCallRemoteErrorVerbatim(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		replyError(conn, msg.ID, "", "select is not multiple")
	})
	s := dialTest(t, ts)

	err := s.Call(context.Background(), MethodDOMSelectOption, nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call() = %T, want *RemoteError", err)
	}
	if remote.Message != "select is not multiple" {
		t.Errorf("message = %q", remote.Message)
	}
}

func TestCallAfterCloseFailsImmediately(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		reply(conn, msg.ID, nil)
	})
	s := dialTest(t, ts)
	s.Close()

	start := time.Now()
	err := s.Call(context.Background(), MethodDOMQuery, nil, nil)
	if !errors.Is(err, core.ErrConnectionClosed) {
		t.Fatalf("Call() = %v, want ErrConnectionClosed", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("post-close call took %v, should not hit the network", elapsed)
	}
	if err.Error() != "Browser closed" {
		t.Errorf("message = %q, want %q", err.Error(), "Browser closed")
	}
}

func TestPendingCallFailsOnTransportLoss(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		conn.Close() // drop the connection instead of replying
	})
	s := dialTest(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := s.Call(ctx, MethodDOMQuery, nil, nil)
	if !errors.Is(err, core.ErrConnectionClosed) {
		t.Fatalf("Call() = %v, want ErrConnectionClosed", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("pending call failed after %v, want well under the 5s deadline", elapsed)
	}
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestCallContextCancellation(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		// Never reply to dom.query; record cancels.
	})
	s := dialTest(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Call(ctx, MethodDOMQuery, nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() = %v, want DeadlineExceeded", err)
	}
	if s.State() != StateOpen {
		t.Errorf("cancellation must not close the session, state = %v", s.State())
	}
}

func TestOnCloseFiredExactlyOnce(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {})
	s := dialTest(t, ts)

	var fired atomic.Int32
	s.OnClose(func() { fired.Add(1) })

	s.Close()
	s.Close() // second close is a no-op

	if got := fired.Load(); got != 1 {
		t.Errorf("OnClose fired %d times, want 1", got)
	}
}

func TestOnCloseAfterClosedRunsImmediately(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {})
	s := dialTest(t, ts)
	s.Close()

	var fired atomic.Int32
	s.OnClose(func() { fired.Add(1) })

	if got := fired.Load(); got != 1 {
		t.Errorf("OnClose fired %d times, want 1", got)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {
		reply(conn, msg.ID, TextResult{Value: "ok"})
	})

	a := dialTest(t, ts)
	b := dialTest(t, ts)

	a.Close()

	if b.State() != StateOpen {
		t.Fatalf("closing session A closed session B")
	}
	var res TextResult
	if err := b.Call(context.Background(), MethodDOMInnerText, nil, &res); err != nil {
		t.Fatalf("Call() on B after closing A: %v", err)
	}
	if res.Value != "ok" {
		t.Errorf("result = %q", res.Value)
	}
}

func TestDoneChannel(t *testing.T) {
	ts := newTestServer(t, func(conn *websocket.Conn, msg callMessage) {})
	s := dialTest(t, ts)

	select {
	case <-s.Done():
		t.Fatal("Done() closed while open")
	default:
	}

	s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Close()")
	}
}
