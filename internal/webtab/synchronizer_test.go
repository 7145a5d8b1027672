package webtab_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"workspace/internal/canvas"
	"workspace/internal/domain"
	"workspace/internal/webtab"
)

func TestSynchronizer_CreatesOnURL(t *testing.T) {
	s, host, _ := newSync(t)

	s.Sync(webview("a", "https://example.com", 100, 100))
	drain(t, s)

	want := []string{"create webtab-a https://example.com 100,100,200,100"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	tab, phase, ok := s.Tab("a")
	if !ok || phase != webtab.PhaseActive {
		t.Fatalf("tab = %+v, %v, %v; want active", tab, phase, ok)
	}
	if tab.ID != "webtab-a" || !tab.IsVisible {
		t.Errorf("tab = %+v", tab)
	}
}

func TestSynchronizer_IgnoresItemsWithoutURL(t *testing.T) {
	s, host, _ := newSync(t)

	s.Sync(webview("a", "", 0, 0))
	s.Sync(domain.CanvasItem{ID: "n", URL: "https://example.com", Badge: domain.BadgeNote})
	drain(t, s)

	if got := host.Calls(); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestSynchronizer_IdempotentBoundsPush(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 100, 100))
	drain(t, s)
	host.reset()

	moved := webview("a", "https://example.com", 140, 100)
	s.Sync(moved)
	s.Sync(moved)
	drain(t, s)
	s.Sync(moved)
	drain(t, s)

	want := []string{"bounds webtab-a 140,100,200,100"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestSynchronizer_LatestBoundsWin(t *testing.T) {
	s, host, _ := newSync(t)
	host.gate = make(chan struct{})

	for x := 0; x <= 100; x += 10 {
		s.Sync(webview("a", "https://example.com", float64(x), 0))
	}
	close(host.gate)
	drain(t, s)

	calls := host.Calls()
	last := calls[len(calls)-1]
	if last != "bounds webtab-a 100,0,200,100" {
		t.Errorf("last call = %q, want final bounds; calls %v", last, calls)
	}
	if n := host.count("bounds"); n != 1 {
		t.Errorf("bounds pushes = %d, want 1", n)
	}
}

func TestSynchronizer_DeleteWhileCreatingLeavesNoOrphan(t *testing.T) {
	s, host, _ := newSync(t)
	host.gate = make(chan struct{})

	s.Sync(webview("a", "https://example.com", 0, 0))
	s.Remove("a")
	close(host.gate)
	drain(t, s)

	if open := host.Open(); len(open) != 0 {
		t.Errorf("open views = %v, want none", open)
	}
	if _, _, ok := s.Tab("a"); ok {
		t.Error("tab still tracked after remove")
	}

	n, err := s.SweepOrphans(context.Background())
	if err != nil || n != 0 {
		t.Errorf("sweep = %d, %v", n, err)
	}
}

func TestSynchronizer_DrainWaitsForCreation(t *testing.T) {
	s, host, _ := newSync(t)
	host.gate = make(chan struct{})
	s.Sync(webview("a", "https://example.com", 0, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("drain during creation = %v, want deadline exceeded", err)
	}

	close(host.gate)
	drain(t, s)
	if _, phase, ok := s.Tab("a"); !ok || phase != webtab.PhaseActive {
		t.Errorf("tab a phase = %v (tracked %v), want active", phase, ok)
	}
}

func TestSynchronizer_ResetWhileCreatingLeavesNoOrphan(t *testing.T) {
	s, host, _ := newSync(t)
	host.gate = make(chan struct{})

	s.Sync(webview("a", "https://example.com", 0, 0))
	s.Sync(webview("b", "https://example.org", 0, 0))
	s.Reset()
	close(host.gate)
	drain(t, s)

	if open := host.Open(); len(open) != 0 {
		t.Errorf("open views = %v, want none", open)
	}
	if host.count("closeAll") != 1 {
		t.Errorf("calls = %v, want one closeAll", host.Calls())
	}
	if tabs := s.Tabs(); len(tabs) != 0 {
		t.Errorf("tabs = %v, want none", tabs)
	}
}

func TestSynchronizer_ResetThenRecreateOrdersCloseAllFirst(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	host.reset()

	s.Reset()
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)

	want := []string{"closeAll", "create webtab-a https://example.com 0,0,200,100"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if open := host.Open(); !reflect.DeepEqual(open, []string{"webtab-a"}) {
		t.Errorf("open = %v", open)
	}
}

func TestSynchronizer_DuplicateTriggersCreateOnce(t *testing.T) {
	s, host, _ := newSync(t)
	host.gate = make(chan struct{})

	item := webview("a", "https://example.com", 0, 0)
	s.Sync(item)
	s.ItemsChanged([]domain.CanvasItem{item})
	s.Sync(item)
	close(host.gate)
	drain(t, s)

	if n := host.count("create"); n != 1 {
		t.Errorf("creates = %d, want 1", n)
	}
}

func TestSynchronizer_CreateFailureRetriesOnNextTrigger(t *testing.T) {
	s, host, log := newSync(t)
	host.failCreates = 1
	item := webview("a", "https://example.com", 0, 0)

	s.Sync(item)
	drain(t, s)
	if _, _, ok := s.Tab("a"); ok {
		t.Fatal("failed creation should leave the item uncreated")
	}
	if len(log.Errors()) != 1 {
		t.Errorf("logged errors = %v, want 1", log.Errors())
	}

	s.Sync(item)
	drain(t, s)
	if _, phase, ok := s.Tab("a"); !ok || phase != webtab.PhaseActive {
		t.Errorf("retry phase = %v, %v; want active", phase, ok)
	}
	if open := host.Open(); !reflect.DeepEqual(open, []string{"webtab-a"}) {
		t.Errorf("open = %v", open)
	}
}

func TestSynchronizer_BoundsFailureRetriesOnNextTrigger(t *testing.T) {
	s, host, log := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	host.reset()
	host.failBounds = 1

	moved := webview("a", "https://example.com", 50, 0)
	s.Sync(moved)
	drain(t, s)
	s.Sync(moved)
	drain(t, s)

	if n := host.count("bounds webtab-a 50,0"); n != 2 {
		t.Errorf("calls = %v, want the failed push retried", host.Calls())
	}
	if len(log.Errors()) != 1 {
		t.Errorf("logged errors = %v", log.Errors())
	}
	if tab, _, _ := s.Tab("a"); tab.Bounds.X != 50 {
		t.Errorf("local bounds rolled back: %+v", tab.Bounds)
	}
}

func TestSynchronizer_URLChangeRecreates(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	host.reset()

	s.Sync(webview("a", "https://example.org", 0, 0))
	drain(t, s)

	want := []string{"close webtab-a", "create webtab-a https://example.org 0,0,200,100"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if tab, _, _ := s.Tab("a"); tab.URL != "https://example.org" {
		t.Errorf("url = %q", tab.URL)
	}
}

func TestSynchronizer_URLClearedCloses(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)

	s.Sync(webview("a", "", 0, 0))
	drain(t, s)

	if open := host.Open(); len(open) != 0 {
		t.Errorf("open = %v", open)
	}
	if _, _, ok := s.Tab("a"); ok {
		t.Error("tab still tracked")
	}
}

func TestSynchronizer_FullscreenSuppressesBoundsSync(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	host.reset()

	s.SetFullscreen("a", true)
	s.Sync(webview("a", "https://example.com", 70, 0))
	s.SetViewport(canvas.NewViewport().Pan(10, 10))
	drain(t, s)
	if n := host.count("bounds"); n != 0 {
		t.Fatalf("bounds pushed while fullscreen: %v", host.Calls())
	}

	s.SetFullscreen("a", false)
	drain(t, s)

	want := []string{
		"fullscreen webtab-a true",
		"fullscreen webtab-a false",
		"bounds webtab-a 80,10,200,100",
	}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestSynchronizer_InboundEventsAreNotEchoed(t *testing.T) {
	s, host, _ := newSync(t)
	s.Sync(webview("a", "https://example.com", 0, 0))
	s.Sync(webview("b", "https://example.org", 0, 0))
	drain(t, s)
	host.reset()

	s.OnFocusChanged("webtab-a", true)
	s.OnFocusChanged("webtab-b", true)
	s.OnFullscreenChanged("webtab-a", true)
	s.OnFullscreenChanged("webtab-a", false)
	s.OnViewClosed("webtab-b")
	s.OnViewClosed("webtab-unknown")
	s.OnFocusChanged("not-a-tab", true)
	drain(t, s)

	for _, c := range host.Calls() {
		if c != "bounds webtab-a 0,0,200,100" {
			t.Errorf("unexpected host call %q", c)
		}
	}
	a, phaseA, _ := s.Tab("a")
	if phaseA != webtab.PhaseActive || a.IsFocused {
		t.Errorf("a = %+v %v; want active, unfocused", a, phaseA)
	}
	if _, phaseB, _ := s.Tab("b"); phaseB != webtab.PhaseClosed {
		t.Errorf("b phase = %v, want closed", phaseB)
	}

	s.Sync(webview("b", "https://example.org", 30, 0))
	drain(t, s)
	if n := host.count("create"); n != 0 {
		t.Errorf("closed tab recreated: %v", host.Calls())
	}

	s.Reload(webview("b", "https://example.org", 30, 0))
	drain(t, s)
	if n := host.count("create webtab-b"); n != 1 {
		t.Errorf("reload: %v", host.Calls())
	}
}

func TestSynchronizer_Visibility(t *testing.T) {
	s, host, _ := newSync(t)
	s.SetWindowSize(800, 600)
	s.Sync(webview("a", "https://example.com", 100, 100))
	drain(t, s)
	host.reset()

	s.SetViewport(canvas.NewViewport().Pan(-2000, 0))
	drain(t, s)
	if tab, _, _ := s.Tab("a"); tab.IsVisible {
		t.Error("off-screen tab should be hidden")
	}

	s.SetViewport(canvas.NewViewport())
	drain(t, s)
	s.SetVisible("a", false)
	drain(t, s)

	want := []string{
		"bounds webtab-a -1900,100,200,100",
		"visible webtab-a false",
		"bounds webtab-a 100,100,200,100",
		"visible webtab-a true",
		"visible webtab-a false",
	}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestSynchronizer_ProjectionUsesHeaderAndChrome(t *testing.T) {
	host := newFakeHost()
	s := webtab.NewSynchronizer(host, nil, webtab.Options{
		Projector: webtab.Projector{HeaderHeight: 30},
		Logger:    &recordingLogger{},
	})
	s.SetChromeOffset(0, 28)
	s.SetViewport(canvas.NewViewport().Pan(50, -20))
	s.Sync(webview("a", "https://example.com", 100, 100))
	drain(t, s)

	want := []string{"create webtab-a https://example.com 150,138,200,70"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestSynchronizer_StoreObserver(t *testing.T) {
	s, host, _ := newSync(t)
	store := canvas.NewStore()
	store.Subscribe(s)

	store.Add(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	store.SetPositions(map[string]domain.Point{"a": {X: 20, Y: 0}})
	drain(t, s)
	store.Remove("a")
	drain(t, s)

	want := []string{
		"create webtab-a https://example.com 0,0,200,100",
		"bounds webtab-a 20,0,200,100",
		"close webtab-a",
	}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestSynchronizer_FocusAndSweep(t *testing.T) {
	s, host, _ := newSync(t)
	host.orphans = 2
	s.Sync(webview("b", "https://example.org", 0, 0))
	s.Sync(webview("a", "https://example.com", 0, 0))
	drain(t, s)
	host.reset()

	s.Focus("a")
	s.Focus("missing")
	drain(t, s)
	s.Unfocus()
	drain(t, s)

	n, err := s.SweepOrphans(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("sweep = %d, %v", n, err)
	}
	want := []string{"focus webtab-a", "unfocus", "sweep webtab-a,webtab-b"}
	if got := host.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}
