package interact

import (
	"sync"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

// Marquee is the rubber-band selection gesture on empty canvas.
type Marquee struct {
	store *canvas.Store
	view  func() canvas.Viewport

	mu     sync.Mutex
	active bool
	rect   domain.SelectionRect
}

func newMarquee(store *canvas.Store, view func() canvas.Viewport) *Marquee {
	return &Marquee{store: store, view: view}
}

// Begin anchors the rectangle at the canvas point under pointer.
func (m *Marquee) Begin(pointer domain.Point) {
	p := m.view().ToCanvas(pointer)
	m.mu.Lock()
	m.active = true
	m.rect = domain.SelectionRect{StartX: p.X, StartY: p.Y, EndX: p.X, EndY: p.Y}
	m.mu.Unlock()
}

// Move updates the rectangle's end point.
func (m *Marquee) Move(pointer domain.Point) {
	p := m.view().ToCanvas(pointer)
	m.mu.Lock()
	if m.active {
		m.rect.EndX, m.rect.EndY = p.X, p.Y
	}
	m.mu.Unlock()
}

// Rect returns the current rectangle while the gesture is active.
func (m *Marquee) Rect() (domain.SelectionRect, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rect, m.active
}

// End replaces the selection with every item intersecting the rectangle.
// A drag that never moved selects nothing, which clears the selection.
func (m *Marquee) End(pointer domain.Point) []string {
	m.Move(pointer)
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return nil
	}
	sel := m.rect
	m.active = false
	m.rect = domain.SelectionRect{}
	m.mu.Unlock()

	if sel.Empty() {
		m.store.ClearSelection()
		return nil
	}
	ids := Intersecting(m.store.Items(), sel.Normalize())
	if len(ids) == 0 {
		m.store.ClearSelection()
		return nil
	}
	m.store.Select(ids...)
	return ids
}

// Intersecting returns the ids of items whose bounding box overlaps r.
func Intersecting(items []domain.CanvasItem, r domain.Rect) []string {
	var ids []string
	for _, it := range items {
		if r.Intersects(it.Rect()) {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
