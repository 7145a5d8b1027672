package canvas

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"workspace/internal/domain"
)

var (
	ErrSelfConnection      = errors.New("connection endpoints must differ")
	ErrDuplicateConnection = errors.New("items are already connected")
	ErrUnknownItem         = errors.New("unknown item")
)

// Observer is notified after store mutations, outside the store lock.
type Observer interface {
	// ItemsChanged receives the post-mutation copies of every touched item.
	ItemsChanged(items []domain.CanvasItem)
	// ItemRemoved is called once per removed item.
	ItemRemoved(id string)
	// Reset is called when the whole content is replaced (board switch).
	Reset()
}

// ConnectionObserver is implemented by observers that also track
// connections. ConnectionsChanged receives the full post-mutation list.
type ConnectionObserver interface {
	ConnectionsChanged(conns []domain.Connection)
}

// Store is the single source of truth for items, connections and the
// selection. Callers refer to items by id and read copies.
type Store struct {
	mu        sync.RWMutex
	items     map[string]domain.CanvasItem
	conns     map[string]domain.Connection
	selected  map[string]struct{}
	observers []Observer

	now   func() time.Time
	newID func() string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		items:    make(map[string]domain.CanvasItem),
		conns:    make(map[string]domain.Connection),
		selected: make(map[string]struct{}),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Subscribe registers o for change notifications.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

func (s *Store) observerList() []Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Observer(nil), s.observers...)
}

func (s *Store) notifyChanged(items []domain.CanvasItem) {
	if len(items) == 0 {
		return
	}
	for _, o := range s.observerList() {
		o.ItemsChanged(items)
	}
}

func (s *Store) notifyConnections() {
	var conns []domain.Connection
	for _, o := range s.observerList() {
		co, ok := o.(ConnectionObserver)
		if !ok {
			continue
		}
		if conns == nil {
			conns = s.Connections()
		}
		co.ConnectionsChanged(conns)
	}
}

func (s *Store) notifyRemoved(ids []string) {
	obs := s.observerList()
	for _, id := range ids {
		for _, o := range obs {
			o.ItemRemoved(id)
		}
	}
}

// ── Items ──────────────────────────────────────────────────

// Add inserts item. An empty ID gets a fresh one; an ID already present is
// left untouched and reported with ok=false.
func (s *Store) Add(item domain.CanvasItem) (domain.CanvasItem, bool) {
	s.mu.Lock()
	if item.ID == "" {
		item.ID = s.newID()
	}
	if existing, ok := s.items[item.ID]; ok {
		s.mu.Unlock()
		return existing, false
	}
	if item.Badge == "" {
		item.Badge = domain.BadgeNote
	}
	if item.Status == "" {
		item.Status = domain.StatusTodo
	}
	item.Width = nonNegative(item.Width)
	item.Height = nonNegative(item.Height)
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	s.items[item.ID] = item
	s.mu.Unlock()

	s.notifyChanged([]domain.CanvasItem{item})
	return item, true
}

// Get returns a copy of the item.
func (s *Store) Get(id string) (domain.CanvasItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns all items ordered by creation time.
func (s *Store) Items() []domain.CanvasItem {
	s.mu.RLock()
	out := make([]domain.CanvasItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	s.mu.RUnlock()
	sortItems(out)
	return out
}

// Update applies fn to a copy of the item and stores the result. The ID
// cannot be changed. Unknown ids are a no-op.
func (s *Store) Update(id string, fn func(*domain.CanvasItem)) bool {
	s.mu.Lock()
	it, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	fn(&it)
	it.ID = id
	it.Width = nonNegative(it.Width)
	it.Height = nonNegative(it.Height)
	it.UpdatedAt = s.now()
	s.items[id] = it
	s.mu.Unlock()

	s.notifyChanged([]domain.CanvasItem{it})
	return true
}

// SetGeometry replaces the item's rectangle.
func (s *Store) SetGeometry(id string, r domain.Rect) bool {
	return s.Update(id, func(it *domain.CanvasItem) {
		it.X, it.Y, it.Width, it.Height = r.X, r.Y, r.Width, r.Height
	})
}

// SetPositions moves several items in one write. Items whose position is
// already equal are left untouched, including their UpdatedAt. Returns the
// number of items that moved.
func (s *Store) SetPositions(pos map[string]domain.Point) int {
	s.mu.Lock()
	now := s.now()
	var changed []domain.CanvasItem
	for id, p := range pos {
		it, ok := s.items[id]
		if !ok || (it.X == p.X && it.Y == p.Y) {
			continue
		}
		it.X, it.Y = p.X, p.Y
		it.UpdatedAt = now
		s.items[id] = it
		changed = append(changed, it)
	}
	s.mu.Unlock()

	s.notifyChanged(changed)
	return len(changed)
}

// Remove deletes the item, every connection touching it and its selection
// entry. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) bool {
	return s.RemoveMany([]string{id}) > 0
}

// RemoveMany deletes several items in one write.
func (s *Store) RemoveMany(ids []string) int {
	s.mu.Lock()
	var removed []string
	cascaded := false
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			continue
		}
		delete(s.items, id)
		delete(s.selected, id)
		for cid, c := range s.conns {
			if c.Touches(id) {
				delete(s.conns, cid)
				cascaded = true
			}
		}
		removed = append(removed, id)
	}
	s.mu.Unlock()

	s.notifyRemoved(removed)
	if cascaded {
		s.notifyConnections()
	}
	return len(removed)
}

// ── Connections ────────────────────────────────────────────

// CanConnect reports why Connect would fail, or nil.
func (s *Store) CanConnect(fromID, toID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkConnect(fromID, toID)
}

func (s *Store) checkConnect(fromID, toID string) error {
	if fromID == toID {
		return ErrSelfConnection
	}
	if _, ok := s.items[fromID]; !ok {
		return ErrUnknownItem
	}
	if _, ok := s.items[toID]; !ok {
		return ErrUnknownItem
	}
	for _, c := range s.conns {
		if c.Joins(fromID, toID) {
			return ErrDuplicateConnection
		}
	}
	return nil
}

// Connect links two existing items.
func (s *Store) Connect(fromID, toID, label string) (domain.Connection, error) {
	s.mu.Lock()
	if err := s.checkConnect(fromID, toID); err != nil {
		s.mu.Unlock()
		return domain.Connection{}, err
	}
	c := domain.Connection{
		ID:        s.newID(),
		FromID:    fromID,
		ToID:      toID,
		Label:     label,
		CreatedAt: s.now(),
	}
	s.conns[c.ID] = c
	s.mu.Unlock()

	s.notifyConnections()
	return c, nil
}

// Disconnect removes a connection. Unknown ids are a no-op.
func (s *Store) Disconnect(id string) bool {
	s.mu.Lock()
	if _, ok := s.conns[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.conns, id)
	s.mu.Unlock()

	s.notifyConnections()
	return true
}

func (s *Store) HasConnection(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conns[id]
	return ok
}

// Connections returns all connections ordered by creation time.
func (s *Store) Connections() []domain.Connection {
	s.mu.RLock()
	out := make([]domain.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ── Selection ──────────────────────────────────────────────

// Select replaces the selection. Unknown ids are dropped.
func (s *Store) Select(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

// Extend adds ids to the selection.
func (s *Store) Extend(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

// Toggle flips the selection state of id.
func (s *Store) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return
	}
	if _, ok := s.items[id]; ok {
		s.selected[id] = struct{}{}
	}
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = make(map[string]struct{})
	s.mu.Unlock()
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected ids in sorted order.
func (s *Store) Selected() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// MoveSelected translates every selected item by (dx, dy) canvas units.
// Origins are read and written under one lock so concurrent moves add up.
func (s *Store) MoveSelected(dx, dy float64) int {
	s.mu.Lock()
	var changed []domain.CanvasItem
	if dx != 0 || dy != 0 {
		now := s.now()
		for id := range s.selected {
			it, ok := s.items[id]
			if !ok {
				continue
			}
			it.X += dx
			it.Y += dy
			it.UpdatedAt = now
			s.items[id] = it
			changed = append(changed, it)
		}
	}
	s.mu.Unlock()

	sortItems(changed)
	s.notifyChanged(changed)
	return len(changed)
}

// ── Snapshots ──────────────────────────────────────────────

// Snapshot copies the item and connection maps.
func (s *Store) Snapshot(label string) domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.Snapshot{
		Items:       make(map[string]domain.CanvasItem, len(s.items)),
		Connections: make(map[string]domain.Connection, len(s.conns)),
		Timestamp:   s.now(),
		Label:       label,
	}
	for id, it := range s.items {
		snap.Items[id] = it
	}
	for id, c := range s.conns {
		snap.Connections[id] = c
	}
	return snap
}

// Restore replaces the content with snap. Observers see removals for items
// missing from snap and changes for items that differ.
func (s *Store) Restore(snap domain.Snapshot) {
	s.mu.Lock()
	var removed []string
	for id := range s.items {
		if _, ok := snap.Items[id]; !ok {
			removed = append(removed, id)
			delete(s.selected, id)
		}
	}
	var changed []domain.CanvasItem
	items := make(map[string]domain.CanvasItem, len(snap.Items))
	for id, it := range snap.Items {
		items[id] = it
		if cur, ok := s.items[id]; !ok || cur != it {
			changed = append(changed, it)
		}
	}
	conns := make(map[string]domain.Connection, len(snap.Connections))
	connsDiffer := len(snap.Connections) != len(s.conns)
	for id, c := range snap.Connections {
		conns[id] = c
		if cur, ok := s.conns[id]; !ok || cur != c {
			connsDiffer = true
		}
	}
	s.items = items
	s.conns = conns
	s.mu.Unlock()

	sort.Strings(removed)
	sortItems(changed)
	s.notifyRemoved(removed)
	s.notifyChanged(changed)
	if connsDiffer {
		s.notifyConnections()
	}
}

// Replace loads a whole board. Observers get Reset followed by every item.
func (s *Store) Replace(items []domain.CanvasItem, conns []domain.Connection) {
	s.mu.Lock()
	s.items = make(map[string]domain.CanvasItem, len(items))
	s.conns = make(map[string]domain.Connection, len(conns))
	s.selected = make(map[string]struct{})
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		s.items[it.ID] = it
	}
	for _, c := range conns {
		_, okFrom := s.items[c.FromID]
		_, okTo := s.items[c.ToID]
		if c.ID == "" || c.FromID == c.ToID || !okFrom || !okTo {
			continue
		}
		s.conns[c.ID] = c
	}
	s.mu.Unlock()

	for _, o := range s.observerList() {
		o.Reset()
	}
	s.notifyChanged(s.Items())
}

func sortItems(items []domain.CanvasItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
