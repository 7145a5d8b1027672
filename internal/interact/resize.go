package interact

import (
	"math"
	"sync"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

const (
	MinItemWidth  = 100.0
	MinItemHeight = 50.0
)

// Resize changes the size of a single item from its bottom-right handle.
type Resize struct {
	store   *canvas.Store
	history *canvas.History
	view    func() canvas.Viewport
	grid    func() GridPolicy
	samples *Slot[domain.Point]

	mu     sync.Mutex
	active bool
	itemID string
	start  domain.Point
	width  float64
	height float64

	before    domain.Snapshot
	committed bool
}

func newResize(store *canvas.Store, history *canvas.History, view func() canvas.Viewport, grid func() GridPolicy) *Resize {
	return &Resize{
		store:   store,
		history: history,
		view:    view,
		grid:    grid,
		samples: NewSlot[domain.Point](),
	}
}

// Begin starts resizing itemID.
func (r *Resize) Begin(itemID string, pointer domain.Point) bool {
	it, ok := r.store.Get(itemID)
	if !ok {
		return false
	}
	before := r.store.Snapshot("resize")
	r.mu.Lock()
	r.active = true
	r.before = before
	r.committed = false
	r.itemID = itemID
	r.start = pointer
	r.width = it.Width
	r.height = it.Height
	r.mu.Unlock()
	r.samples.Clear()
	return true
}

// Active reports whether a resize gesture is in progress.
func (r *Resize) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Move records the latest pointer sample.
func (r *Resize) Move(pointer domain.Point) {
	if r.Active() {
		r.samples.Offer(pointer)
	}
}

// Flush applies the latest sample, flooring the size at the minimum.
func (r *Resize) Flush() bool {
	p, ok := r.samples.Take()
	if !ok {
		return false
	}
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return false
	}
	id, start, w0, h0 := r.itemID, r.start, r.width, r.height
	r.mu.Unlock()

	dx, dy := r.view().DeltaToCanvas(p.X-start.X, p.Y-start.Y)
	w, h := w0, h0
	if dx != 0 || dy != 0 {
		grid := r.grid()
		w = math.Max(MinItemWidth, grid.Snap(w0+dx))
		h = math.Max(MinItemHeight, grid.Snap(h0+dy))
	}
	cur, ok := r.store.Get(id)
	if !ok {
		return false
	}
	if cur.Width == w && cur.Height == h {
		return true
	}
	if r.store.Update(id, func(it *domain.CanvasItem) {
		it.Width, it.Height = w, h
	}) {
		r.commit()
	}
	return true
}

func (r *Resize) commit() {
	r.mu.Lock()
	if r.committed {
		r.mu.Unlock()
		return
	}
	r.committed = true
	snap := r.before
	r.before = domain.Snapshot{}
	r.mu.Unlock()
	if r.history != nil {
		r.history.PushSnapshot(snap)
	}
}

// End applies the final pointer position and clears the gesture. It
// reports whether the gesture added a history entry.
func (r *Resize) End(pointer domain.Point) bool {
	if !r.Active() {
		return false
	}
	r.samples.Offer(pointer)
	r.Flush()

	r.mu.Lock()
	committed := r.committed
	r.active = false
	r.itemID = ""
	r.before = domain.Snapshot{}
	r.mu.Unlock()
	return committed
}
