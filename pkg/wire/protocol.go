package wire

import "github.com/pilotlab-dev/webpilot/pkg/core"

// Method names understood by the browser server. The client treats these as
// opaque strings; pkg/mockdom implements the same vocabulary for tests.
const (
	MethodPageCreate      = "page.create"
	MethodPageClose       = "page.close"
	MethodPageNavigate    = "page.navigate"
	MethodPageNavState    = "page.navigationState"
	MethodBrowserClose    = "browser.close"
	MethodCallCancel      = "call.cancel"
	MethodDOMQuery        = "dom.query"
	MethodDOMDescribe     = "dom.describe"
	MethodDOMBoundingBox  = "dom.boundingBox"
	MethodDOMHitTest      = "dom.hitTest"
	MethodDOMScroll       = "dom.scrollIntoView"
	MethodDOMFill         = "dom.fill"
	MethodDOMSelectOption = "dom.selectOption"
	MethodDOMSelectText   = "dom.selectText"
	MethodDOMSetFiles     = "dom.setInputFiles"
	MethodDOMDispatch     = "dom.dispatchEvent"
	MethodDOMFocus        = "dom.focus"
	MethodDOMAttribute    = "dom.getAttribute"
	MethodDOMInnerHTML    = "dom.innerHTML"
	MethodDOMInnerText    = "dom.innerText"
	MethodDOMTextContent  = "dom.textContent"
	MethodDOMInputValue   = "dom.inputValue"
	MethodDOMScreenshot   = "dom.screenshot"
	MethodInputClick      = "input.click"
	MethodInputMove       = "input.move"
	MethodInputTap        = "input.tap"
	MethodInputPress      = "input.press"
	MethodInputType       = "input.type"
	MethodInputDrag       = "input.drag"
)

// Navigation states reported by page.navigationState.
const (
	NavStateNone     = "none"
	NavStatePending  = "pending"
	NavStateComplete = "complete"
)

// PageCreateResult is the reply to page.create.
type PageCreateResult struct {
	PageID string `json:"pageId"`
}

// PageParams addresses a page-scoped method.
type PageParams struct {
	PageID string `json:"pageId"`
}

// NavigateParams requests a navigation.
type NavigateParams struct {
	PageID string `json:"pageId"`
	URL    string `json:"url"`
}

// NavStateResult is the reply to page.navigationState.
type NavStateResult struct {
	State string `json:"state"`
}

// QueryParams resolves a serialized selector chain within a page.
type QueryParams struct {
	PageID   string `json:"pageId"`
	Selector string `json:"selector"`
}

// QueryResult carries the ordered candidate ids matching the selector at this
// instant.
type QueryResult struct {
	Elements []string `json:"elements"`
}

// ElementParams addresses a single resolved element.
type ElementParams struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
}

// DescribeResult is the reply to dom.describe.
type DescribeResult struct {
	Snapshot core.ElementSnapshot `json:"snapshot"`
}

// BoundingBoxResult is the reply to dom.boundingBox. Box is null when the
// element has no rendered box.
type BoundingBoxResult struct {
	Box *core.Rect `json:"box"`
}

// HitTestParams asks whether the element is the hit target at a point.
type HitTestParams struct {
	PageID    string     `json:"pageId"`
	ElementID string     `json:"elementId"`
	Point     core.Point `json:"point"`
}

// HitTestResult is the reply to dom.hitTest.
type HitTestResult struct {
	Hit bool `json:"hit"`
}

// FillParams sets an input's value wholesale.
type FillParams struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
	Value     string `json:"value"`
}

// SelectOptionParams selects options of a <select> element.
type SelectOptionParams struct {
	PageID    string   `json:"pageId"`
	ElementID string   `json:"elementId"`
	Values    []string `json:"values"`
}

// SelectOptionResult lists the values actually selected.
type SelectOptionResult struct {
	Selected []string `json:"selected"`
}

// FilePayload is one file for dom.setInputFiles.
type FilePayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Buffer   []byte `json:"buffer"`
}

// SetFilesParams attaches files to an input[type=file].
type SetFilesParams struct {
	PageID    string        `json:"pageId"`
	ElementID string        `json:"elementId"`
	Files     []FilePayload `json:"files"`
}

// DispatchParams fires a DOM event on the element.
type DispatchParams struct {
	PageID    string      `json:"pageId"`
	ElementID string      `json:"elementId"`
	Type      string      `json:"type"`
	Detail    interface{} `json:"detail,omitempty"`
}

// AttributeParams reads one attribute.
type AttributeParams struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
	Name      string `json:"name"`
}

// AttributeResult is the reply to dom.getAttribute. Value is null when the
// attribute is absent.
type AttributeResult struct {
	Value *string `json:"value"`
}

// TextResult is the reply to the text/markup/value readers.
type TextResult struct {
	Value string `json:"value"`
}

// ScreenshotResult is the reply to dom.screenshot.
type ScreenshotResult struct {
	Data []byte `json:"data"`
}

// ClickParams performs a pointer click sequence at a point.
type ClickParams struct {
	PageID     string           `json:"pageId"`
	Point      core.Point       `json:"point"`
	Button     core.MouseButton `json:"button"`
	ClickCount int              `json:"clickCount"`
	Modifiers  []core.Modifier  `json:"modifiers,omitempty"`
}

// MoveParams moves the pointer to a point.
type MoveParams struct {
	PageID string     `json:"pageId"`
	Point  core.Point `json:"point"`
}

// TapParams performs a touch tap at a point.
type TapParams struct {
	PageID    string          `json:"pageId"`
	Point     core.Point      `json:"point"`
	Modifiers []core.Modifier `json:"modifiers,omitempty"`
}

// PressParams presses a single key or chord.
type PressParams struct {
	PageID    string          `json:"pageId"`
	ElementID string          `json:"elementId,omitempty"`
	Key       string          `json:"key"`
	Modifiers []core.Modifier `json:"modifiers,omitempty"`
}

// TypeParams types text character by character into the element.
type TypeParams struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
	Text      string `json:"text"`
	DelayMs   int    `json:"delayMs,omitempty"`
}

// DragParams performs a pointer drag between two points.
type DragParams struct {
	PageID    string          `json:"pageId"`
	From      core.Point      `json:"from"`
	To        core.Point      `json:"to"`
	Modifiers []core.Modifier `json:"modifiers,omitempty"`
}

// CancelParams asks the server to abandon an in-flight call. Best effort; no
// reply is expected.
type CancelParams struct {
	CallID int64 `json:"callId"`
}
