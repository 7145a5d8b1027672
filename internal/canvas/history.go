package canvas

import (
	"sync"

	"workspace/internal/domain"
)

// DefaultHistoryCapacity bounds the number of pushed snapshots kept.
const DefaultHistoryCapacity = 50

// Snapshotter is the state the history manager captures and restores.
type Snapshotter interface {
	Snapshot(label string) domain.Snapshot
	Restore(snap domain.Snapshot)
}

// History is a bounded snapshot history.
//
// entries[0..cursor] are states captured before destructive actions; undo
// restores entries[cursor]. The first undo after a push appends the live
// state so redo can return to it; from then on entries[cursor+1] is always
// the live state and redo restores entries[cursor+2].
type History struct {
	mu       sync.Mutex
	target   Snapshotter
	capacity int
	entries  []domain.Snapshot
	cursor   int
	// headPending is true while the live state has not been appended yet.
	headPending bool
}

// NewHistory creates a history over target. capacity <= 0 uses the default.
func NewHistory(target Snapshotter, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{target: target, capacity: capacity, cursor: -1}
}

// Push captures the current state before a destructive action. Any redo
// branch beyond the cursor is discarded.
func (h *History) Push(label string) {
	h.PushSnapshot(h.target.Snapshot(label))
}

// PushSnapshot records a state captured earlier, e.g. at the start of a
// gesture that only turned out to be destructive once it wrote.
func (h *History) PushSnapshot(snap domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.cursor+1], snap)
	h.cursor = len(h.entries) - 1
	for len(h.entries) > h.capacity {
		h.entries[0] = domain.Snapshot{}
		h.entries = h.entries[1:]
		h.cursor--
	}
	h.headPending = true
}

// Undo restores the state before the most recent action. It reports
// whether anything was restored.
func (h *History) Undo() bool {
	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return false
	}
	if h.headPending {
		h.entries = append(h.entries[:h.cursor+1], h.target.Snapshot("current"))
		h.headPending = false
	}
	snap := h.entries[h.cursor]
	h.cursor--
	h.mu.Unlock()

	h.target.Restore(snap)
	return true
}

// Redo re-applies the most recently undone action.
func (h *History) Redo() bool {
	h.mu.Lock()
	if h.headPending || h.cursor+2 > len(h.entries)-1 {
		h.mu.Unlock()
		return false
	}
	snap := h.entries[h.cursor+2]
	h.cursor++
	h.mu.Unlock()

	h.target.Restore(snap)
	return true
}

// CanUndo reports whether Undo would restore something.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}

// CanRedo reports whether Redo would restore something.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.headPending && h.cursor+2 <= len(h.entries)-1
}

// Len is the number of undoable steps.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor + 1
}

// Labels returns the labels of the undoable actions, oldest first.
func (h *History) Labels() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, h.cursor+1)
	for i := 0; i <= h.cursor; i++ {
		out = append(out, h.entries[i].Label)
	}
	return out
}

// Clear drops all history, e.g. after a board switch.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.cursor = -1
	h.headPending = false
	h.mu.Unlock()
}
