// Package wire implements the websocket transport session to a browser server.
//
// One Session owns one logical connection. Calls are matched to replies solely
// by call id, so many callers can have calls in flight concurrently and replies
// may arrive out of order. The lifecycle is Connecting -> Open -> Closed;
// Closed is terminal and a new connection always means a new Session.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
)

// State is the connection state of a Session.
type State int32

// Session states. There is no transition out of StateClosed.
const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DialOptions configures Dial.
type DialOptions struct {
	Timeout time.Duration     // Handshake deadline; zero means 30s
	Headers map[string]string // Extra handshake headers
}

type pendingCall struct {
	ch chan replyMessage
}

// Session is one logical connection to a remote browser endpoint.
type Session struct {
	guid     string
	endpoint string
	conn     *websocket.Conn

	state  atomic.Int32
	nextID atomic.Int64

	// pending is the only structure touched by both callers and the reply
	// dispatch loop; mu guards it.
	mu      sync.Mutex
	pending map[int64]pendingCall

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once

	// onClose subscribers run synchronously, exactly once, on the
	// Open -> Closed transition.
	subMu   sync.Mutex
	onClose []func()
}

// Dial connects to a running browser server at endpoint. The endpoint must be
// a ws:// or wss:// address; any other scheme fails with ErrInvalidEndpoint
// without attempting a connection.
func Dial(ctx context.Context, endpoint string, opts DialOptions) (*Session, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return nil, core.ErrInvalidEndpoint.WithDetails(map[string]interface{}{
			"endpoint": endpoint,
		})
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	s := &Session{
		guid:     uuid.NewString(),
		endpoint: endpoint,
		pending:  make(map[int64]pendingCall),
		closed:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	header := http.Header{}
	header.Set("X-Webpilot-Session", s.guid)
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:bodyclose // websocket upgrade; body handled by gorilla
	conn, _, err := dialer.DialContext(dialCtx, endpoint, header)
	if err != nil {
		return nil, core.ErrConnectionFailed.WithCause(err).WithDetails(map[string]interface{}{
			"endpoint": endpoint,
		})
	}

	s.conn = conn
	s.state.Store(int32(StateOpen))
	logger.Debug("wire: session %s open to %s", s.guid, endpoint)

	go s.readLoop()
	return s, nil
}

// GUID returns the client-generated session identifier.
func (s *Session) GUID() string {
	return s.guid
}

// Endpoint returns the address this session was dialed against.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// State returns the current connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsOpen reports whether calls can still be dispatched.
func (s *Session) IsOpen() bool {
	return s.State() == StateOpen
}

// Done returns a channel closed when the session reaches StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// OnClose registers fn to run on the Open -> Closed transition. If the session
// is already closed fn runs immediately, preserving exactly-once delivery.
func (s *Session) OnClose(fn func()) {
	s.subMu.Lock()
	if s.State() == StateClosed {
		s.subMu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.subMu.Unlock()
}

// Call sends method with params and decodes the reply into result (which may
// be nil for void replies). It returns immediately with ErrConnectionClosed if
// the session is closed, and cancels best-effort when ctx expires.
func (s *Session) Call(ctx context.Context, method string, params, result interface{}) error {
	if s.State() != StateOpen {
		return core.ErrConnectionClosed
	}

	id := s.nextID.Add(1)
	call := pendingCall{ch: make(chan replyMessage, 1)}

	s.mu.Lock()
	// Re-check under the lock: teardown drains the table exactly once, so an
	// entry must never be added after that.
	if s.State() != StateOpen {
		s.mu.Unlock()
		return core.ErrConnectionClosed
	}
	s.pending[id] = call
	s.mu.Unlock()

	start := time.Now()
	if err := s.write(callMessage{ID: id, Method: method, Params: params}); err != nil {
		s.forget(id)
		// A failed write means the transport is gone.
		s.teardown(err)
		return core.ErrConnectionClosed
	}

	select {
	case <-ctx.Done():
		s.forget(id)
		// Best-effort remote cancellation; no reply expected.
		_ = s.write(callMessage{Method: MethodCallCancel, Params: CancelParams{CallID: id}})
		return ctx.Err()

	case <-s.closed:
		return core.ErrConnectionClosed

	case reply := <-call.ch:
		elapsed := time.Since(start)
		if reply.Error != nil {
			logger.WithFields("method", method, "elapsed", elapsed, "code", reply.Error.Code).
				Debug("wire: call failed")
			return asCoreError(reply.Error)
		}
		logger.WithFields("method", method, "elapsed", elapsed).Debug("wire: call done")
		if result == nil || len(reply.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(reply.Result, result); err != nil {
			return fmt.Errorf("decode %s reply: %w", method, err)
		}
		return nil
	}
}

// Close tears the session down locally and closes the underlying connection.
// Pending calls fail with ErrConnectionClosed.
func (s *Session) Close() error {
	s.teardown(nil)
	return nil
}

func (s *Session) write(msg callMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *Session) forget(id int64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// readLoop is the single reply-dispatch path. Any read error means the
// transport is gone and triggers teardown.
func (s *Session) readLoop() {
	for {
		var reply replyMessage
		if err := s.conn.ReadJSON(&reply); err != nil {
			s.teardown(err)
			return
		}

		s.mu.Lock()
		call, ok := s.pending[reply.ID]
		if ok {
			delete(s.pending, reply.ID)
		}
		s.mu.Unlock()

		if ok {
			call.ch <- reply
		}
		// Replies for forgotten ids (cancelled calls) are dropped.
	}
}

// teardown performs the Open -> Closed transition exactly once: marks the
// state, fails every pending call, notifies subscribers synchronously, and
// closes the socket.
func (s *Session) teardown(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))

		if cause != nil {
			logger.Debug("wire: session %s closed: %v", s.guid, cause)
		} else {
			logger.Debug("wire: session %s closed", s.guid)
		}

		s.mu.Lock()
		s.pending = make(map[int64]pendingCall)
		s.mu.Unlock()

		// Every waiter unblocks via this channel and reports
		// ErrConnectionClosed, regardless of its own deadline.
		close(s.closed)

		s.subMu.Lock()
		subs := s.onClose
		s.onClose = nil
		s.subMu.Unlock()
		for _, fn := range subs {
			fn()
		}

		if s.conn != nil {
			s.writeMu.Lock()
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.writeMu.Unlock()
			_ = s.conn.Close()
		}
	})
}
