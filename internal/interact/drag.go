package interact

import (
	"sync"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

// Drag moves the effective selection with the pointer.
type Drag struct {
	store   *canvas.Store
	history *canvas.History
	view    func() canvas.Viewport
	grid    func() GridPolicy
	samples *Slot[domain.Point]

	mu      sync.Mutex
	active  bool
	start   domain.Point
	origins map[string]domain.Point
	// before is pushed to history on the first write of the gesture.
	before    domain.Snapshot
	committed bool
}

func newDrag(store *canvas.Store, history *canvas.History, view func() canvas.Viewport, grid func() GridPolicy) *Drag {
	return &Drag{
		store:   store,
		history: history,
		view:    view,
		grid:    grid,
		samples: NewSlot[domain.Point](),
	}
}

// Begin starts a drag on itemID at the screen point pointer. Clicking an
// item that is already selected keeps the multi-selection; otherwise the
// item replaces the selection, or joins it when multi is set.
func (d *Drag) Begin(itemID string, pointer domain.Point, multi bool) bool {
	if _, ok := d.store.Get(itemID); !ok {
		return false
	}
	switch {
	case d.store.IsSelected(itemID):
	case multi:
		d.store.Extend(itemID)
	default:
		d.store.Select(itemID)
	}

	origins := make(map[string]domain.Point)
	for _, id := range d.store.Selected() {
		if it, ok := d.store.Get(id); ok {
			origins[id] = domain.Point{X: it.X, Y: it.Y}
		}
	}
	before := d.store.Snapshot("move")

	d.mu.Lock()
	d.active = true
	d.start = pointer
	d.origins = origins
	d.before = before
	d.committed = false
	d.mu.Unlock()
	d.samples.Clear()
	return true
}

// Active reports whether a drag gesture is in progress.
func (d *Drag) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Move records the latest pointer sample. Nothing is written until Flush.
func (d *Drag) Move(pointer domain.Point) {
	if d.Active() {
		d.samples.Offer(pointer)
	}
}

// Flush applies the latest pending sample, if any, in a single store write.
func (d *Drag) Flush() bool {
	p, ok := d.samples.Take()
	if !ok {
		return false
	}
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return false
	}
	start := d.start
	origins := d.origins
	d.mu.Unlock()

	dx, dy := d.view().DeltaToCanvas(p.X-start.X, p.Y-start.Y)
	pos := make(map[string]domain.Point, len(origins))
	grid := d.grid()
	for id, o := range origins {
		if dx == 0 && dy == 0 {
			pos[id] = o
			continue
		}
		pos[id] = domain.Point{X: grid.Snap(o.X + dx), Y: grid.Snap(o.Y + dy)}
	}
	if d.store.SetPositions(pos) > 0 {
		d.commit()
	}
	return true
}

func (d *Drag) commit() {
	d.mu.Lock()
	if d.committed {
		d.mu.Unlock()
		return
	}
	d.committed = true
	snap := d.before
	d.before = domain.Snapshot{}
	d.mu.Unlock()
	if d.history != nil {
		d.history.PushSnapshot(snap)
	}
}

// End applies the final pointer position and clears the gesture. It
// reports whether the gesture added a history entry.
func (d *Drag) End(pointer domain.Point) bool {
	if !d.Active() {
		return false
	}
	d.samples.Offer(pointer)
	d.Flush()

	d.mu.Lock()
	committed := d.committed
	d.active = false
	d.origins = nil
	d.before = domain.Snapshot{}
	d.mu.Unlock()
	return committed
}
