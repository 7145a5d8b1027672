package domain

import "time"

type Badge string

const (
	BadgeNote    Badge = "note"
	BadgeGroup   Badge = "group"
	BadgeWebview Badge = "webview"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// CanvasItem is a card on the board. Geometry is in canvas space.
type CanvasItem struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	Badge     Badge     `json:"badge"`
	Color     string    `json:"color,omitempty"`
	URL       string    `json:"url,omitempty"` // only meaningful for webview items
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Rect returns the item's bounding box in canvas space.
func (it CanvasItem) Rect() Rect {
	return Rect{X: it.X, Y: it.Y, Width: it.Width, Height: it.Height}
}

// IsWebview reports whether the item is backed by a native view.
func (it CanvasItem) IsWebview() bool {
	return it.Badge == BadgeWebview
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. Width and Height are expected to be >= 0.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Intersects reports whether a and b overlap. Touching edges count as overlap
// so a zero-area marquee over an item still hits it.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && r.Right() >= o.X &&
		r.Y <= o.Bottom() && r.Bottom() >= o.Y
}

// SelectionRect is the transient rubber-band rectangle, in canvas space.
type SelectionRect struct {
	StartX float64 `json:"startX"`
	StartY float64 `json:"startY"`
	EndX   float64 `json:"endX"`
	EndY   float64 `json:"endY"`
}

// Normalize converts the drag endpoints to a rectangle with non-negative size.
func (s SelectionRect) Normalize() Rect {
	x0, x1 := s.StartX, s.EndX
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	y0, y1 := s.StartY, s.EndY
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Empty reports whether the gesture never moved.
func (s SelectionRect) Empty() bool {
	return s.StartX == s.EndX && s.StartY == s.EndY
}
