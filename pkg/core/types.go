// Package core provides the shared execution model types for webpilot.
package core

// Point is a position in page coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an element's bounding box in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rect
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains checks if a point is within the rect
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Empty reports whether the rect has no rendered area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ElementSnapshot is a point-in-time description of a remote element.
// It is produced fresh by every describe round trip and never cached.
type ElementSnapshot struct {
	ObjectID string            `json:"objectId"`
	Tag      string            `json:"tag,omitempty"`
	Text     string            `json:"text,omitempty"`
	Attached bool              `json:"attached"`
	Visible  bool              `json:"visible"`
	Enabled  bool              `json:"enabled"`
	Editable bool              `json:"editable"`
	Checked  bool              `json:"checked,omitempty"`
	Box      *Rect             `json:"box,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Modifier is a keyboard modifier held during pointer actions.
type Modifier string

// Modifier values
const (
	ModifierAlt     Modifier = "Alt"
	ModifierControl Modifier = "Control"
	ModifierMeta    Modifier = "Meta"
	ModifierShift   Modifier = "Shift"
)

// MouseButton identifies the button of a pointer action.
type MouseButton string

// MouseButton values
const (
	ButtonLeft   MouseButton = "left"
	ButtonMiddle MouseButton = "middle"
	ButtonRight  MouseButton = "right"
)
