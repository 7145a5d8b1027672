package interact

import (
	"context"
	"sync"
	"time"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

// DefaultFrameInterval is roughly one display frame at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Pointer is a pointer event in screen coordinates. ItemID names the card
// under the pointer as hit-tested by the frontend; empty means bare canvas.
type Pointer struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	ItemID string  `json:"itemId"`
	Handle string  `json:"handle"` // "resize" for the bottom-right handle
	Multi  bool    `json:"multi"`
}

func (p Pointer) point() domain.Point { return domain.Point{X: p.X, Y: p.Y} }

// Engine owns the viewport and routes pointer input to the gesture
// controllers. Store writes happen only in Tick.
type Engine struct {
	store   *canvas.Store
	history *canvas.History

	Drag    *Drag
	Resize  *Resize
	Marquee *Marquee

	mu         sync.Mutex
	vp         canvas.Viewport
	grid       GridPolicy
	viewDirty  bool
	onViewport []func(canvas.Viewport)
	onHistory  []func()
}

// NewEngine wires controllers over store and history.
func NewEngine(store *canvas.Store, history *canvas.History) *Engine {
	e := &Engine{
		store:   store,
		history: history,
		vp:      canvas.NewViewport(),
		grid:    GridPolicy{Size: DefaultGridSize},
	}
	e.Drag = newDrag(store, history, e.Viewport, e.Grid)
	e.Resize = newResize(store, history, e.Viewport, e.Grid)
	e.Marquee = newMarquee(store, e.Viewport)
	return e
}

// OnViewportChange registers fn to run at most once per tick after the
// viewport moved.
func (e *Engine) OnViewportChange(fn func(canvas.Viewport)) {
	e.mu.Lock()
	e.onViewport = append(e.onViewport, fn)
	e.mu.Unlock()
}

// OnHistoryChange registers fn to run when a drag or resize gesture ends
// having added a history entry.
func (e *Engine) OnHistoryChange(fn func()) {
	e.mu.Lock()
	e.onHistory = append(e.onHistory, fn)
	e.mu.Unlock()
}

func (e *Engine) Viewport() canvas.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vp
}

func (e *Engine) Grid() GridPolicy {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid
}

func (e *Engine) SetGrid(g GridPolicy) {
	e.mu.Lock()
	e.grid = g
	e.mu.Unlock()
}

// SetViewport replaces the viewport, e.g. when a board is loaded.
func (e *Engine) SetViewport(v canvas.Viewport) {
	e.mu.Lock()
	e.vp = canvas.Viewport{X: v.X, Y: v.Y, Scale: canvas.ClampScale(v.Scale)}
	e.viewDirty = true
	e.mu.Unlock()
}

// Pan shifts the viewport by a screen-space delta.
func (e *Engine) Pan(dx, dy float64) canvas.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vp = e.vp.Pan(dx, dy)
	e.viewDirty = true
	return e.vp
}

// Zoom sets the scale keeping the screen anchor fixed.
func (e *Engine) Zoom(scale, ax, ay float64) canvas.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vp = e.vp.Zoom(scale, ax, ay)
	e.viewDirty = true
	return e.vp
}

// ZoomBy multiplies the scale by factor around the anchor.
func (e *Engine) ZoomBy(factor, ax, ay float64) canvas.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vp = e.vp.ZoomBy(factor, ax, ay)
	e.viewDirty = true
	return e.vp
}

// PointerDown starts the gesture matching the pointer target.
func (e *Engine) PointerDown(p Pointer) {
	switch {
	case p.ItemID == "":
		if !p.Multi {
			e.store.ClearSelection()
		}
		e.Marquee.Begin(p.point())
	case p.Handle == "resize":
		e.Resize.Begin(p.ItemID, p.point())
	default:
		e.Drag.Begin(p.ItemID, p.point(), p.Multi)
	}
}

// PointerMove feeds the active gesture. Only the latest sample survives
// until the next tick.
func (e *Engine) PointerMove(p Pointer) {
	switch {
	case e.Drag.Active():
		e.Drag.Move(p.point())
	case e.Resize.Active():
		e.Resize.Move(p.point())
	default:
		e.Marquee.Move(p.point())
	}
}

// PointerUp finishes the active gesture and returns the marquee selection,
// if one was made.
func (e *Engine) PointerUp(p Pointer) []string {
	var pushed bool
	switch {
	case e.Drag.Active():
		pushed = e.Drag.End(p.point())
	case e.Resize.Active():
		pushed = e.Resize.End(p.point())
	default:
		if _, ok := e.Marquee.Rect(); ok {
			return e.Marquee.End(p.point())
		}
	}
	if pushed {
		e.mu.Lock()
		fns := append([]func(){}, e.onHistory...)
		e.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	return nil
}

// Tick flushes pending gesture samples and viewport notifications. It
// reports whether anything was written.
func (e *Engine) Tick() bool {
	wrote := e.Drag.Flush()
	if e.Resize.Flush() {
		wrote = true
	}

	e.mu.Lock()
	dirty := e.viewDirty
	e.viewDirty = false
	vp := e.vp
	fns := append([]func(canvas.Viewport){}, e.onViewport...)
	e.mu.Unlock()

	if dirty {
		for _, fn := range fns {
			fn(vp)
		}
		wrote = true
	}
	return wrote
}

// Run ticks every interval until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Tick()
		}
	}
}
