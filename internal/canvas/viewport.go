// Package canvas holds the authoritative board state: the viewport
// transform, the item store and the undo history.
package canvas

import (
	"math"

	"workspace/internal/domain"
)

const (
	MinScale = 0.05
	MaxScale = 10.0
)

// Viewport converts between canvas space and screen space.
//
//	screen = canvas*Scale + (X, Y)
//	canvas = (screen - (X, Y)) / Scale
type Viewport struct {
	X     float64
	Y     float64
	Scale float64
}

// NewViewport returns the identity viewport.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// FromDomain restores a persisted viewport, repairing a zero or
// out-of-range scale.
func FromDomain(v domain.Viewport) Viewport {
	return Viewport{X: v.X, Y: v.Y, Scale: ClampScale(v.Scale)}
}

// Domain returns the persisted form.
func (v Viewport) Domain() domain.Viewport {
	return domain.Viewport{X: v.X, Y: v.Y, Scale: v.Scale}
}

// ClampScale bounds s to [MinScale, MaxScale]. NaN and non-positive values
// fall back to 1.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, s))
}

// Pan translates the canvas origin by (dx, dy) screen pixels.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.X += dx
	v.Y += dy
	return v
}

// Zoom rescales around the screen point (ax, ay): the canvas point under
// the anchor before the call is still under it afterwards.
func (v Viewport) Zoom(newScale, ax, ay float64) Viewport {
	old := ClampScale(v.Scale)
	s := ClampScale(newScale)
	ratio := s / old
	v.X = ax - (ax-v.X)*ratio
	v.Y = ay - (ay-v.Y)*ratio
	v.Scale = s
	return v
}

// ZoomBy multiplies the current scale by factor, anchored at (ax, ay).
// Used for wheel input.
func (v Viewport) ZoomBy(factor, ax, ay float64) Viewport {
	return v.Zoom(ClampScale(v.Scale)*factor, ax, ay)
}

// ToScreen maps a canvas point to screen space.
func (v Viewport) ToScreen(p domain.Point) domain.Point {
	s := ClampScale(v.Scale)
	return domain.Point{X: p.X*s + v.X, Y: p.Y*s + v.Y}
}

// ToCanvas maps a screen point to canvas space.
func (v Viewport) ToCanvas(p domain.Point) domain.Point {
	s := ClampScale(v.Scale)
	return domain.Point{X: (p.X - v.X) / s, Y: (p.Y - v.Y) / s}
}

// RectToScreen maps a canvas rectangle to screen space.
func (v Viewport) RectToScreen(r domain.Rect) domain.Rect {
	s := ClampScale(v.Scale)
	o := v.ToScreen(domain.Point{X: r.X, Y: r.Y})
	return domain.Rect{X: o.X, Y: o.Y, Width: r.Width * s, Height: r.Height * s}
}

// DeltaToCanvas converts a screen-space pointer delta to canvas units.
func (v Viewport) DeltaToCanvas(dx, dy float64) (float64, float64) {
	s := ClampScale(v.Scale)
	return dx / s, dy / s
}
