package webtab

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

// DefaultHostTimeout bounds a single bridge call.
const DefaultHostTimeout = 5 * time.Second

// Options configures a Synchronizer.
type Options struct {
	Projector   Projector
	HostTimeout time.Duration
	Logger      logger.Logger
	// OnChange is called outside the lock whenever a tab's local state
	// changes, e.g. to mirror it to the frontend.
	OnChange func(tab domain.WebTab, phase Phase)
}

type entry struct {
	tab   domain.WebTab
	phase Phase
	rect  domain.Rect
	// shown is the visibility flag owned by the focus-zone feature.
	shown bool
	// host-side state as last sent
	lastKey     string
	hostVisible bool
	queued      bool
}

// lane serializes host calls for one tab id so that a close and a
// following create for the same id reach the host in order.
type lane struct {
	ops     []func()
	running bool
}

// Synchronizer owns one lifecycle state machine per webview item and
// drives the Bridge from it. All host calls run on background goroutines;
// failures are logged and never reach the caller.
type Synchronizer struct {
	bridge   Bridge
	guard    *Guard
	log      logger.Logger
	proj     Projector
	timeout  time.Duration
	onChange func(domain.WebTab, Phase)

	mu       sync.Mutex
	tabs     map[string]*entry // by item id
	deferred map[string]domain.CanvasItem
	lanes    map[string]*lane
	barrier  chan struct{}
	vp       canvas.Viewport
	windowW  int
	windowH  int
	wg       sync.WaitGroup
}

// NewSynchronizer creates a synchronizer. guard may be shared across
// synchronizers that drive the same host; nil creates a private one.
func NewSynchronizer(bridge Bridge, guard *Guard, opts Options) *Synchronizer {
	if guard == nil {
		guard = NewGuard()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDefaultLogger()
	}
	if opts.HostTimeout <= 0 {
		opts.HostTimeout = DefaultHostTimeout
	}
	closed := make(chan struct{})
	close(closed)
	return &Synchronizer{
		bridge:   bridge,
		guard:    guard,
		log:      opts.Logger,
		proj:     opts.Projector,
		timeout:  opts.HostTimeout,
		onChange: opts.OnChange,
		tabs:     make(map[string]*entry),
		deferred: make(map[string]domain.CanvasItem),
		lanes:    make(map[string]*lane),
		barrier:  closed,
		vp:       canvas.NewViewport(),
	}
}

// ── Dispatch ───────────────────────────────────────────────

// Sync is the single dispatch point: it evaluates the transition table for
// item and applies the resulting action.
func (s *Synchronizer) Sync(item domain.CanvasItem) {
	s.mu.Lock()
	var changed []*entry
	s.syncLocked(item, &changed)
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

func (s *Synchronizer) syncLocked(item domain.CanvasItem, changed *[]*entry) {
	hasURL := item.IsWebview() && item.URL != ""
	e := s.tabs[item.ID]
	hasTab := e != nil
	urlMatches := hasTab && e.tab.URL == item.URL

	switch Decide(hasURL, hasTab, urlMatches) {
	case ActionNone:
		delete(s.deferred, item.ID)
	case ActionCreate:
		s.beginCreateLocked(item, false, changed)
	case ActionUpdate:
		e.rect = item.Rect()
		if s.refreshLocked(e) {
			*changed = append(*changed, e)
		}
	case ActionRecreate:
		if e.phase == PhaseCreating {
			// the in-flight creation closes its own view on completion
			delete(s.tabs, item.ID)
			s.deferred[item.ID] = item
			return
		}
		closeFirst := e.phase != PhaseClosed
		delete(s.tabs, item.ID)
		s.beginCreateLocked(item, closeFirst, changed)
	case ActionClose:
		s.closeLocked(e)
		e.phase = PhaseClosed
		*changed = append(*changed, e)
	}
}

func (s *Synchronizer) beginCreateLocked(item domain.CanvasItem, closeFirst bool, changed *[]*entry) {
	id := domain.WebTabID(item.ID)
	if !s.guard.TryLock(id) {
		if closeFirst {
			s.enqueueLocked(id, func() {
				s.call("close view", id, func(ctx context.Context) error {
					return s.bridge.CloseView(ctx, id)
				})
			})
		}
		s.deferred[item.ID] = item
		return
	}
	delete(s.deferred, item.ID)
	e := &entry{
		tab: domain.WebTab{
			ID:     id,
			ItemID: item.ID,
			URL:    item.URL,
		},
		phase: PhaseCreating,
		rect:  item.Rect(),
		shown: true,
	}
	s.refreshLocked(e)
	s.tabs[item.ID] = e
	*changed = append(*changed, e)

	tab := e.tab
	s.enqueueLocked(id, func() {
		if closeFirst {
			s.call("close view", id, func(ctx context.Context) error {
				return s.bridge.CloseView(ctx, id)
			})
		}
		s.finishCreate(tab, s.call("create view", id, func(ctx context.Context) error {
			return s.bridge.CreateView(ctx, tab)
		}))
	})
}

// finishCreate runs on the tab's lane after CreateView returned.
func (s *Synchronizer) finishCreate(tab domain.WebTab, err error) {
	s.mu.Lock()
	e := s.tabs[tab.ItemID]
	current := e != nil && e.phase == PhaseCreating && e.tab.URL == tab.URL
	var changed []*entry
	switch {
	case err != nil && current:
		delete(s.tabs, tab.ItemID)
	case err == nil && current:
		e.phase = PhaseActive
		e.lastKey = tab.Bounds.Key()
		e.hostVisible = true
		s.refreshLocked(e)
		changed = append(changed, e)
	}
	retry, hasRetry := s.deferred[tab.ItemID]
	delete(s.deferred, tab.ItemID)
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()

	s.guard.Unlock(tab.ID)
	if err == nil && !current {
		// removed, retargeted or reset while creating
		s.log.Debug(fmt.Sprintf("[WebTab] closing superseded view %s", tab.ID))
		s.call("close view", tab.ID, func(ctx context.Context) error {
			return s.bridge.CloseView(ctx, tab.ID)
		})
	}
	s.notify(notes)
	if hasRetry {
		s.Sync(retry)
	}
}

// closeLocked removes e and releases its host view. A view still being
// created is closed by finishCreate instead.
func (s *Synchronizer) closeLocked(e *entry) {
	delete(s.tabs, e.tab.ItemID)
	delete(s.deferred, e.tab.ItemID)
	if e.phase == PhaseCreating || e.phase == PhaseClosed {
		return
	}
	id := e.tab.ID
	s.enqueueLocked(id, func() {
		s.call("close view", id, func(ctx context.Context) error {
			return s.bridge.CloseView(ctx, id)
		})
	})
}

// ── Bounds and visibility ──────────────────────────────────

// refreshLocked recomputes bounds and visibility for e and schedules a
// reconcile when the host is behind. Reports whether local state changed.
func (s *Synchronizer) refreshLocked(e *entry) bool {
	b := s.proj.Project(s.vp, e.rect)
	visible := e.shown && OnScreen(b, s.windowW, s.windowH)
	changed := b != e.tab.Bounds || visible != e.tab.IsVisible
	e.tab.Bounds = b
	e.tab.IsVisible = visible

	if e.phase != PhaseActive || e.queued {
		return changed
	}
	if b.Key() == e.lastKey && visible == e.hostVisible {
		return changed
	}
	e.queued = true
	itemID := e.tab.ItemID
	s.enqueueLocked(e.tab.ID, func() { s.reconcile(itemID, e) })
	return changed
}

// reconcile pushes the latest bounds and visibility. It reads state at run
// time, so any number of refreshes between two runs cost one push.
func (s *Synchronizer) reconcile(itemID string, e *entry) {
	for {
		s.mu.Lock()
		if s.tabs[itemID] != e || e.phase != PhaseActive {
			e.queued = false
			s.mu.Unlock()
			return
		}
		id := e.tab.ID
		if key := e.tab.Bounds.Key(); key != e.lastKey {
			b := e.tab.Bounds
			e.lastKey = key
			s.mu.Unlock()
			err := s.call("update bounds", id, func(ctx context.Context) error {
				return s.bridge.UpdateViewBounds(ctx, id, b)
			})
			if err != nil {
				s.mu.Lock()
				if e.lastKey == key {
					e.lastKey = ""
				}
				e.queued = false
				s.mu.Unlock()
				return
			}
			continue
		}
		if v := e.tab.IsVisible; v != e.hostVisible {
			e.hostVisible = v
			s.mu.Unlock()
			err := s.call("set visible", id, func(ctx context.Context) error {
				return s.bridge.SetViewVisible(ctx, id, v)
			})
			if err != nil {
				s.mu.Lock()
				if e.hostVisible == v {
					e.hostVisible = !v
				}
				e.queued = false
				s.mu.Unlock()
				return
			}
			continue
		}
		e.queued = false
		s.mu.Unlock()
		return
	}
}

// SetViewport reprojects every tab under vp.
func (s *Synchronizer) SetViewport(vp canvas.Viewport) {
	s.mu.Lock()
	s.vp = vp
	notes := s.refreshAllLocked()
	s.mu.Unlock()
	s.notify(notes)
}

// SetWindowSize records the host window size used for on-screen tests.
func (s *Synchronizer) SetWindowSize(w, h int) {
	s.mu.Lock()
	s.windowW, s.windowH = w, h
	notes := s.refreshAllLocked()
	s.mu.Unlock()
	s.notify(notes)
}

// SetChromeOffset changes the webview-to-window offset.
func (s *Synchronizer) SetChromeOffset(x, y float64) {
	s.mu.Lock()
	s.proj.ChromeX, s.proj.ChromeY = x, y
	notes := s.refreshAllLocked()
	s.mu.Unlock()
	s.notify(notes)
}

// SetVisible sets the externally owned visibility flag of a tab. The
// effective visibility also requires the card to be on screen.
func (s *Synchronizer) SetVisible(itemID string, visible bool) {
	s.mu.Lock()
	var changed []*entry
	if e := s.tabs[itemID]; e != nil && e.shown != visible {
		e.shown = visible
		if s.refreshLocked(e) {
			changed = append(changed, e)
		}
	}
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

func (s *Synchronizer) refreshAllLocked() []tabNote {
	var changed []*entry
	for _, e := range s.tabs {
		if s.refreshLocked(e) {
			changed = append(changed, e)
		}
	}
	return s.snapshotLocked(changed)
}

// ── Teardown ───────────────────────────────────────────────

// Remove closes the tab of a deleted item. It runs regardless of the tab's
// phase; a creation still in flight is closed when it completes.
func (s *Synchronizer) Remove(itemID string) {
	s.mu.Lock()
	delete(s.deferred, itemID)
	e := s.tabs[itemID]
	if e == nil {
		s.mu.Unlock()
		return
	}
	s.closeLocked(e)
	e.phase = PhaseClosed
	notes := s.snapshotLocked([]*entry{e})
	s.mu.Unlock()
	s.notify(notes)
}

// Reset closes every view, e.g. on board switch. Queued host calls for
// any tab wait until the host has closed all views.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	var changed []*entry
	for _, e := range s.tabs {
		e.phase = PhaseClosed
		changed = append(changed, e)
	}
	s.tabs = make(map[string]*entry)
	s.deferred = make(map[string]domain.CanvasItem)
	barrier := make(chan struct{})
	s.barrier = barrier
	notes := s.snapshotLocked(changed)
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(barrier)
		s.call("close all views", "*", func(ctx context.Context) error {
			return s.bridge.CloseAllViews(ctx)
		})
	}()
	s.notify(notes)
}

// SweepOrphans asks the host to close every web tab view it still has that
// this synchronizer does not know about.
func (s *Synchronizer) SweepOrphans(ctx context.Context) (int, error) {
	s.mu.Lock()
	keep := make([]string, 0, len(s.tabs))
	for _, e := range s.tabs {
		if e.phase != PhaseClosed {
			keep = append(keep, e.tab.ID)
		}
	}
	s.mu.Unlock()
	for id := range s.creatingIDs() {
		keep = append(keep, id)
	}
	sort.Strings(keep)

	n, err := s.bridge.CloseOrphanedViews(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("close orphaned views: %w", err)
	}
	if n > 0 {
		s.log.Info(fmt.Sprintf("[WebTab] closed %d orphaned views", n))
	}
	return n, nil
}

// creatingIDs returns tab ids whose creation is in flight but whose entry
// was already dropped; their views are closed by finishCreate.
func (s *Synchronizer) creatingIDs() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for id := range s.lanes {
		if s.guard.Held(id) {
			if _, ok := s.tabs[strings.TrimPrefix(id, domain.WebTabPrefix)]; !ok {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

// Drain waits for in-flight creations, then for every queued host call,
// or for ctx to end. Closes of views superseded while creating are queued
// when their creation finishes, so the guard is awaited first.
func (s *Synchronizer) Drain(ctx context.Context) error {
	if err := s.guard.WaitAll(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Commands ───────────────────────────────────────────────

// Focus gives keyboard focus to the view of itemID. Local focus state is
// updated by the host's focus notification.
func (s *Synchronizer) Focus(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.tabs[itemID]
	if e == nil || (e.phase != PhaseActive && e.phase != PhaseFullscreen) {
		return
	}
	id := e.tab.ID
	s.enqueueLocked(id, func() {
		s.call("focus view", id, func(ctx context.Context) error {
			return s.bridge.FocusView(ctx, id)
		})
	})
}

// Unfocus returns keyboard focus to the canvas.
func (s *Synchronizer) Unfocus() {
	s.mu.Lock()
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		s.call("unfocus views", "*", s.bridge.UnfocusViews)
	}()
}

// SetFullscreen enters or leaves fullscreen for the view of itemID. Bounds
// sync is suspended while fullscreen.
func (s *Synchronizer) SetFullscreen(itemID string, on bool) {
	s.mu.Lock()
	e := s.tabs[itemID]
	if e == nil || (on && e.phase != PhaseActive) || (!on && e.phase != PhaseFullscreen) {
		s.mu.Unlock()
		return
	}
	prev := e.phase
	id := e.tab.ID
	// queued ahead of the bounds push that leaving fullscreen triggers
	s.enqueueLocked(id, func() {
		err := s.call("set fullscreen", id, func(ctx context.Context) error {
			return s.bridge.SetViewFullscreen(ctx, id, on)
		})
		if err == nil {
			return
		}
		s.mu.Lock()
		var notes []tabNote
		if s.tabs[itemID] == e && e.tab.IsFullscreen == on {
			s.setFullscreenLocked(e, prev == PhaseFullscreen)
			notes = s.snapshotLocked([]*entry{e})
		}
		s.mu.Unlock()
		s.notify(notes)
	})
	s.setFullscreenLocked(e, on)
	notes := s.snapshotLocked([]*entry{e})
	s.mu.Unlock()
	s.notify(notes)
}

func (s *Synchronizer) setFullscreenLocked(e *entry, on bool) {
	e.tab.IsFullscreen = on
	if on {
		e.phase = PhaseFullscreen
		return
	}
	e.phase = PhaseActive
	// the host moved the view; force the next push
	e.lastKey = ""
	s.refreshLocked(e)
}

// Reload drops a tab the host closed on its own and creates it again.
func (s *Synchronizer) Reload(item domain.CanvasItem) {
	s.mu.Lock()
	if e := s.tabs[item.ID]; e != nil && e.phase == PhaseClosed {
		delete(s.tabs, item.ID)
	}
	s.mu.Unlock()
	s.Sync(item)
}

// ── Inbound host notifications ─────────────────────────────
// These update local state only and never issue the command that caused
// them. Unknown ids are ignored.

func (s *Synchronizer) entryForTab(tabID string) *entry {
	if !strings.HasPrefix(tabID, domain.WebTabPrefix) {
		return nil
	}
	e := s.tabs[strings.TrimPrefix(tabID, domain.WebTabPrefix)]
	if e == nil || e.tab.ID != tabID {
		return nil
	}
	return e
}

// OnFocusChanged applies a host focus change.
func (s *Synchronizer) OnFocusChanged(tabID string, focused bool) {
	s.mu.Lock()
	var changed []*entry
	if e := s.entryForTab(tabID); e != nil && e.tab.IsFocused != focused {
		if focused {
			for _, other := range s.tabs {
				if other != e && other.tab.IsFocused {
					other.tab.IsFocused = false
					changed = append(changed, other)
				}
			}
		}
		e.tab.IsFocused = focused
		changed = append(changed, e)
	}
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

// OnFullscreenChanged applies a host fullscreen change.
func (s *Synchronizer) OnFullscreenChanged(tabID string, fullscreen bool) {
	s.mu.Lock()
	var changed []*entry
	if e := s.entryForTab(tabID); e != nil {
		switch {
		case fullscreen && e.phase == PhaseActive, !fullscreen && e.phase == PhaseFullscreen:
			s.setFullscreenLocked(e, fullscreen)
			changed = append(changed, e)
		}
	}
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

// OnViewClosed marks a tab closed by the host. The entry stays so the same
// URL is not immediately recreated; a URL change or Reload creates it anew.
func (s *Synchronizer) OnViewClosed(tabID string) {
	s.mu.Lock()
	var changed []*entry
	if e := s.entryForTab(tabID); e != nil && e.phase != PhaseClosed && e.phase != PhaseCreating {
		e.phase = PhaseClosed
		e.tab.IsFocused = false
		e.tab.IsFullscreen = false
		changed = append(changed, e)
	}
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

// ── canvas.Observer ────────────────────────────────────────

func (s *Synchronizer) ItemsChanged(items []domain.CanvasItem) {
	s.mu.Lock()
	var changed []*entry
	for _, it := range items {
		s.syncLocked(it, &changed)
	}
	notes := s.snapshotLocked(changed)
	s.mu.Unlock()
	s.notify(notes)
}

func (s *Synchronizer) ItemRemoved(id string) { s.Remove(id) }

// ── Queries ────────────────────────────────────────────────

// Tab returns the local state of the tab owned by itemID.
func (s *Synchronizer) Tab(itemID string) (domain.WebTab, Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.tabs[itemID]
	if e == nil {
		return domain.WebTab{}, PhaseUninitialized, false
	}
	return e.tab, e.phase, true
}

// Tabs lists every known tab sorted by id.
func (s *Synchronizer) Tabs() []domain.WebTab {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WebTab, 0, len(s.tabs))
	for _, e := range s.tabs {
		out = append(out, e.tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ── Plumbing ───────────────────────────────────────────────

func (s *Synchronizer) enqueueLocked(tabID string, op func()) {
	l := s.lanes[tabID]
	if l == nil {
		l = &lane{}
		s.lanes[tabID] = l
	}
	l.ops = append(l.ops, op)
	if l.running {
		return
	}
	l.running = true
	s.wg.Add(1)
	go s.runLane(tabID, l)
}

func (s *Synchronizer) runLane(tabID string, l *lane) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(l.ops) == 0 {
			l.running = false
			delete(s.lanes, tabID)
			s.mu.Unlock()
			return
		}
		op := l.ops[0]
		l.ops = l.ops[1:]
		barrier := s.barrier
		s.mu.Unlock()

		<-barrier
		op()
	}
}

// call runs one bridge call with the host timeout and logs its failure.
func (s *Synchronizer) call(what, tabID string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error(fmt.Sprintf("[WebTab] %s %s: %v", what, tabID, err))
		return err
	}
	return nil
}

type tabNote struct {
	tab   domain.WebTab
	phase Phase
}

func (s *Synchronizer) snapshotLocked(changed []*entry) []tabNote {
	if s.onChange == nil || len(changed) == 0 {
		return nil
	}
	notes := make([]tabNote, 0, len(changed))
	for _, e := range changed {
		notes = append(notes, tabNote{tab: e.tab, phase: e.phase})
	}
	return notes
}

func (s *Synchronizer) notify(notes []tabNote) {
	for _, n := range notes {
		s.onChange(n.tab, n.phase)
	}
}
