// Package layout places generated cards on the canvas without overlapping
// existing ones.
package layout

import (
	"math"

	"workspace/internal/domain"
)

const (
	GridSize = 20.0 // matches the frontend grid
	Padding  = 40.0 // 2 grid cells between cards
	MaxRowW  = 1800.0
)

// Engine handles automatic placement of items.
type Engine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

func NewEngine() *Engine {
	return &Engine{
		gridSize: GridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// WithGrid returns a copy snapping to size instead of GridSize.
func (le *Engine) WithGrid(size float64) *Engine {
	if size <= 0 {
		return le
	}
	cp := *le
	cp.gridSize = size
	cp.padding = size * 2
	return &cp
}

// snap rounds v to the nearest grid point.
func (le *Engine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// overlaps is strict, unlike domain.Rect.Intersects: cards that merely
// touch the padded margin do not collide.
func overlaps(a, b domain.Rect) bool {
	return a.X < b.Right() && a.Right() > b.X &&
		a.Y < b.Bottom() && a.Bottom() > b.Y
}

// NextPosition finds the first free grid position, scanning rows top to
// bottom, for an item of size (w, h).
func (le *Engine) NextPosition(existing []domain.CanvasItem, w, h float64) (float64, float64) {
	if len(existing) == 0 {
		return 0, 0
	}

	occupied := make([]domain.Rect, len(existing))
	for i, it := range existing {
		occupied[i] = domain.Rect{
			X:      it.X - le.padding,
			Y:      it.Y - le.padding,
			Width:  it.Width + le.padding*2,
			Height: it.Height + le.padding*2,
		}
	}

	candidate := domain.Rect{Width: w, Height: h}
	for y := 0.0; y < 100000; y += le.gridSize {
		for x := 0.0; x < le.maxRowW; x += le.gridSize {
			candidate.X = le.snap(x)
			candidate.Y = le.snap(y)

			free := true
			for _, occ := range occupied {
				if overlaps(candidate, occ) {
					free = false
					break
				}
			}
			if free {
				return candidate.X, candidate.Y
			}
		}
	}

	// Fallback: below everything
	maxY := 0.0
	for _, it := range existing {
		maxY = math.Max(maxY, it.Y+it.Height)
	}
	return 0, le.snap(maxY + le.padding)
}

// Place assigns free positions to each of items in order, treating every
// placed item as occupied for the next one.
func (le *Engine) Place(existing, items []domain.CanvasItem) []domain.CanvasItem {
	occupied := append([]domain.CanvasItem(nil), existing...)
	for i := range items {
		items[i].X, items[i].Y = le.NextPosition(occupied, items[i].Width, items[i].Height)
		occupied = append(occupied, items[i])
	}
	return items
}

// ArrangeGroup lays items out in rows starting at (startX, startY),
// wrapping at the maximum row width. Positions are modified in place.
func (le *Engine) ArrangeGroup(items []domain.CanvasItem, startX, startY float64) []domain.CanvasItem {
	x := le.snap(startX)
	y := le.snap(startY)
	rowHeight := 0.0

	for i := range items {
		if x > le.snap(startX) && x+items[i].Width > le.snap(startX)+le.maxRowW {
			x = le.snap(startX)
			y += le.snap(rowHeight + le.padding)
			rowHeight = 0
		}
		items[i].X = x
		items[i].Y = y
		rowHeight = math.Max(rowHeight, items[i].Height)
		x += le.snap(items[i].Width + le.padding)
	}
	return items
}

// statusOrder is the column order for ArrangeByStatus.
var statusOrder = []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusDone}

// ArrangeByStatus stacks items into one column per status, left to right
// in todo, in-progress, done order. Unknown statuses go in a last column.
func (le *Engine) ArrangeByStatus(items []domain.CanvasItem, startX, startY float64) []domain.CanvasItem {
	column := func(s domain.Status) int {
		for i, o := range statusOrder {
			if o == s {
				return i
			}
		}
		return len(statusOrder)
	}

	widths := make([]float64, len(statusOrder)+1)
	for _, it := range items {
		c := column(it.Status)
		widths[c] = math.Max(widths[c], it.Width)
	}
	xs := make([]float64, len(widths))
	x := le.snap(startX)
	for c, w := range widths {
		xs[c] = x
		if w > 0 {
			x += le.snap(w + le.padding)
		}
	}

	ys := make([]float64, len(widths))
	for c := range ys {
		ys[c] = le.snap(startY)
	}
	for i := range items {
		c := column(items[i].Status)
		items[i].X = xs[c]
		items[i].Y = ys[c]
		ys[c] += le.snap(items[i].Height + le.padding)
	}
	return items
}
