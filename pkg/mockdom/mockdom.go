// Package mockdom runs an in-memory browser server speaking the webpilot wire
// protocol. It backs the package tests and the `webpilot demo` command with
// deterministic, scriptable page behavior: elements are plain records, and the
// scenarios that are awkward to reproduce against a real browser (late
// appearance, box jitter, blocked hit targets, slow navigations) are one field
// flip away.
package mockdom

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
	"github.com/pilotlab-dev/webpilot/pkg/wire"
)

// Element is one node of a mock page. The zero value is detached and inert;
// populate the state fields to make it actionable.
type Element struct {
	ID       string
	Tag      string
	Text     string
	ParentID string

	Visible  bool
	Enabled  bool
	Editable bool
	Checked  bool
	Detached bool

	Box core.Rect
	// JitterLeft makes the next N bounding-box reads return a shifted box,
	// simulating an in-flight animation.
	JitterLeft int
	// HitBlocked makes hit tests at this element's point miss, as if an
	// overlay were covering it.
	HitBlocked bool
	// TogglesOnClick flips Checked when a click lands on the element.
	TogglesOnClick bool
	// NavigatesOnClick starts a pending navigation when a click lands on the
	// element.
	NavigatesOnClick bool

	Value   string
	Options []string
	Attrs   map[string]string
	HTML    string
}

// Page is the mutable state of one mock page. All access happens under the
// owning server's lock; test hooks receive it already locked.
type Page struct {
	ID       string
	URL      string
	NavState string

	elements []*Element
	byID     map[string]*Element

	// Records of everything the page received.
	Clicks     []wire.ClickParams
	Moves      []wire.MoveParams
	Taps       []wire.TapParams
	Presses    []wire.PressParams
	Typed      []wire.TypeParams
	Drags      []wire.DragParams
	Dispatches []wire.DispatchParams
	Files      []wire.SetFilesParams
	Scrolled   []string
	Focused    []string
}

// Add registers an element on the page. Document order is insertion order.
func (p *Page) Add(el *Element) *Element {
	if el.Attrs == nil {
		el.Attrs = map[string]string{}
	}
	p.elements = append(p.elements, el)
	p.byID[el.ID] = el
	return el
}

// Get returns the element with the given id, or nil.
func (p *Page) Get(id string) *Element {
	return p.byID[id]
}

// Server is the mock browser. One Server accepts any number of websocket
// sessions; each session gets its own isolated page set built by the OnPage
// hook.
type Server struct {
	// OnPage populates a freshly created page. Called under the server lock.
	OnPage func(p *Page)

	// NavDelay is how long a pending navigation stays pending before
	// completing on its own. Zero means navigations complete immediately.
	NavDelay time.Duration

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	conns    map[*websocket.Conn]struct{}
	pages    map[string]*Page
	pageSeq  int
}

// NewServer returns an unstarted server.
func NewServer() *Server {
	return &Server{
		conns: map[*websocket.Conn]struct{}{},
		pages: map[string]*Page{},
	}
}

// Start listens on a loopback port and returns the ws:// endpoint.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.listener = ln
	s.httpSrv = &http.Server{Handler: http.HandlerFunc(s.serveWS)}
	go func() {
		_ = s.httpSrv.Serve(ln)
	}()
	return "ws://" + ln.Addr().String(), nil
}

// Stop closes the listener and every live session.
func (s *Server) Stop() {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = map[*websocket.Conn]struct{}{}
	s.mu.Unlock()
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
	}
}

// DropSessions severs every live session without stopping the listener,
// simulating a browser crash.
func (s *Server) DropSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = map[*websocket.Conn]struct{}{}
}

// WithPage runs fn with the page locked. It panics on an unknown id; a test
// that manipulates a page it never created is broken.
func (s *Server) WithPage(id string, fn func(p *Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		panic("mockdom: unknown page " + id)
	}
	fn(p)
}

// CompleteNavigation moves a pending navigation to complete.
func (s *Server) CompleteNavigation(pageID string) {
	s.WithPage(pageID, func(p *Page) {
		if p.NavState == wire.NavStatePending {
			p.NavState = wire.NavStateComplete
		}
	})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	var writeMu sync.Mutex
	for {
		var msg struct {
			ID     int64           `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		result, callErr := s.dispatch(msg.Method, msg.Params)
		if msg.Method == wire.MethodCallCancel {
			continue // fire and forget
		}

		reply := map[string]interface{}{"id": msg.ID}
		if callErr != nil {
			reply["error"] = callErr
		} else {
			reply["result"] = result
		}
		writeMu.Lock()
		err = conn.WriteJSON(reply)
		writeMu.Unlock()
		if err != nil {
			return
		}
		if msg.Method == wire.MethodBrowserClose {
			return
		}
	}
}

type callError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func badRequest(format string, args ...interface{}) *callError {
	return &callError{Code: wire.RemoteCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(id string) *callError {
	return &callError{Code: wire.RemoteCodeNotFound, Message: "no element " + id}
}

func detachedErr(id string) *callError {
	return &callError{Code: wire.RemoteCodeDetached, Message: "element " + id + " is detached"}
}

func (s *Server) dispatch(method string, raw json.RawMessage) (interface{}, *callError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.WithFields("method", method).Debug("mockdom: call")

	switch method {
	case wire.MethodPageCreate:
		s.pageSeq++
		p := &Page{
			ID:       fmt.Sprintf("page-%d", s.pageSeq),
			NavState: wire.NavStateNone,
			byID:     map[string]*Element{},
		}
		s.pages[p.ID] = p
		if s.OnPage != nil {
			s.OnPage(p)
		}
		return wire.PageCreateResult{PageID: p.ID}, nil

	case wire.MethodPageClose:
		var params wire.PageParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		delete(s.pages, params.PageID)
		return nil, nil

	case wire.MethodPageNavigate:
		var params wire.NavigateParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		p.URL = params.URL
		s.startNavigation(p)
		return nil, nil

	case wire.MethodPageNavState:
		var params wire.PageParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		return wire.NavStateResult{State: p.NavState}, nil

	case wire.MethodBrowserClose:
		return nil, nil

	case wire.MethodCallCancel:
		return nil, nil

	case wire.MethodDOMQuery:
		var params wire.QueryParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badRequest("bad params: %v", err)
		}
		p, cerr := s.page(params.PageID)
		if cerr != nil {
			return nil, cerr
		}
		ids, err := p.query(params.Selector)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		return wire.QueryResult{Elements: ids}, nil

	default:
		return s.dispatchElement(method, raw)
	}
}

func (s *Server) page(id string) (*Page, *callError) {
	p, ok := s.pages[id]
	if !ok {
		return nil, badRequest("no page %s", id)
	}
	return p, nil
}

// liveElement resolves a page and a live element for the element-scoped
// methods.
func (s *Server) liveElement(pageID, elementID string) (*Page, *Element, *callError) {
	p, cerr := s.page(pageID)
	if cerr != nil {
		return nil, nil, cerr
	}
	el := p.Get(elementID)
	if el == nil {
		return nil, nil, notFound(elementID)
	}
	if el.Detached {
		return nil, nil, detachedErr(elementID)
	}
	return p, el, nil
}

// startNavigation marks the page pending and schedules completion per
// NavDelay. With no delay the navigation completes synchronously.
func (s *Server) startNavigation(p *Page) {
	if s.NavDelay <= 0 {
		p.NavState = wire.NavStateComplete
		return
	}
	p.NavState = wire.NavStatePending
	pageID := p.ID
	time.AfterFunc(s.NavDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if pg, ok := s.pages[pageID]; ok && pg.NavState == wire.NavStatePending {
			pg.NavState = wire.NavStateComplete
		}
	})
}

// query interprets a serialized selector chain against the page. The first
// base selector is scoped to the document; later ones to the current
// candidates' subtrees; ordinal and text segments filter the candidate list.
func (p *Page) query(selector string) ([]string, error) {
	var candidates []*Element
	scoped := false

	for _, seg := range strings.Split(selector, " >> ") {
		seg = strings.TrimSpace(seg)
		if isBaseSelector(seg) {
			var scopes []*Element
			if scoped {
				scopes = candidates
			}
			candidates = p.matchBase(scopes, seg)
			scoped = true
			continue
		}
		if !scoped {
			candidates = p.liveElements()
			scoped = true
		}
		var err error
		candidates, err = p.applyFilter(candidates, seg)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	ids := make([]string, len(candidates))
	for i, el := range candidates {
		ids[i] = el.ID
	}
	return ids, nil
}

func isBaseSelector(seg string) bool {
	return !strings.HasPrefix(seg, "nth=") && !strings.HasPrefix(seg, "text=")
}

func (p *Page) applyFilter(in []*Element, seg string) ([]*Element, error) {
	switch {
	case strings.HasPrefix(seg, "nth="):
		i, err := strconv.Atoi(strings.TrimPrefix(seg, "nth="))
		if err != nil {
			return nil, fmt.Errorf("bad ordinal %q", seg)
		}
		if i < 0 {
			i += len(in)
		}
		if i < 0 || i >= len(in) {
			return nil, nil
		}
		return in[i : i+1], nil

	case strings.HasPrefix(seg, "text=/") && strings.HasSuffix(seg, "/"):
		re, err := regexp.Compile(seg[len("text=/") : len(seg)-1])
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %v", seg, err)
		}
		return filter(in, func(el *Element) bool { return re.MatchString(el.Text) }), nil

	case strings.HasPrefix(seg, "text="):
		text, err := strconv.Unquote(strings.TrimPrefix(seg, "text="))
		if err != nil {
			return nil, fmt.Errorf("bad text filter %q", seg)
		}
		return filter(in, func(el *Element) bool { return strings.Contains(el.Text, text) }), nil

	default:
		return nil, fmt.Errorf("unknown filter %q", seg)
	}
}

// matchBase matches a base selector within the scope elements' subtrees; a
// nil scope set means the whole document. The supported grammar is what the
// tests and the demo need: #id, .class, tag, and tag.class.
func (p *Page) matchBase(scopes []*Element, seg string) []*Element {
	match := func(el *Element) bool {
		switch {
		case strings.HasPrefix(seg, "#"):
			return el.Attrs["id"] == seg[1:]
		case strings.HasPrefix(seg, "."):
			return hasClass(el, seg[1:])
		case strings.Contains(seg, "."):
			parts := strings.SplitN(seg, ".", 2)
			return el.Tag == parts[0] && hasClass(el, parts[1])
		default:
			return el.Tag == seg
		}
	}

	var out []*Element
	for _, el := range p.elements {
		if el.Detached || !match(el) {
			continue
		}
		if scopes == nil || p.inAnyScope(el, scopes) {
			out = append(out, el)
		}
	}
	return out
}

// inAnyScope reports whether el is a strict descendant of any scope element.
func (p *Page) inAnyScope(el *Element, scopes []*Element) bool {
	for _, scope := range scopes {
		for cur := el; cur != nil; {
			parent := p.byID[cur.ParentID]
			if parent == scope {
				return true
			}
			cur = parent
		}
	}
	return false
}

func (p *Page) liveElements() []*Element {
	out := make([]*Element, 0, len(p.elements))
	for _, el := range p.elements {
		if !el.Detached {
			out = append(out, el)
		}
	}
	return out
}

func filter(in []*Element, keep func(*Element) bool) []*Element {
	var out []*Element
	for _, el := range in {
		if keep(el) {
			out = append(out, el)
		}
	}
	return out
}

func hasClass(el *Element, class string) bool {
	for _, c := range strings.Fields(el.Attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

func snapshot(el *Element) core.ElementSnapshot {
	box := el.Box
	return core.ElementSnapshot{
		ObjectID: el.ID,
		Tag:      el.Tag,
		Text:     el.Text,
		Attached: !el.Detached,
		Visible:  el.Visible,
		Enabled:  el.Enabled,
		Editable: el.Editable,
		Checked:  el.Checked,
		Box:      &box,
		Attrs:    el.Attrs,
	}
}

// elementAt returns the topmost visible element whose box contains the point,
// honoring HitBlocked overlays.
func (p *Page) elementAt(pt core.Point) *Element {
	for i := len(p.elements) - 1; i >= 0; i-- {
		el := p.elements[i]
		if el.Detached || !el.Visible {
			continue
		}
		if el.Box.Contains(pt) {
			return el
		}
	}
	return nil
}
