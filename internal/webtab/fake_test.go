package webtab_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"workspace/internal/domain"
	"workspace/internal/webtab"
)

var errHost = errors.New("host unavailable")

// fakeHost is an in-memory Bridge that tracks which views are open.
type fakeHost struct {
	mu    sync.Mutex
	calls []string
	open  map[string]string // tab id -> url
	// gate, when set, blocks CreateView until closed
	gate        chan struct{}
	failCreates int
	failBounds  int
	orphans     int
	kept        []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{open: make(map[string]string)}
}

func (f *fakeHost) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeHost) CreateView(_ context.Context, tab domain.WebTab) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create %s %s %s", tab.ID, tab.URL, tab.Bounds.Key())
	if f.failCreates > 0 {
		f.failCreates--
		return errHost
	}
	f.open[tab.ID] = tab.URL
	return nil
}

func (f *fakeHost) UpdateViewBounds(_ context.Context, id string, b domain.Bounds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("bounds %s %s", id, b.Key())
	if f.failBounds > 0 {
		f.failBounds--
		return errHost
	}
	return nil
}

func (f *fakeHost) SetViewFullscreen(_ context.Context, id string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fullscreen %s %v", id, on)
	return nil
}

func (f *fakeHost) SetViewVisible(_ context.Context, id string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("visible %s %v", id, on)
	return nil
}

func (f *fakeHost) FocusView(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("focus %s", id)
	return nil
}

func (f *fakeHost) UnfocusViews(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unfocus")
	return nil
}

func (f *fakeHost) CloseView(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close %s", id)
	delete(f.open, id)
	return nil
}

func (f *fakeHost) CloseAllViews(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("closeAll")
	f.open = make(map[string]string)
	return nil
}

func (f *fakeHost) CloseOrphanedViews(_ context.Context, keep []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("sweep %s", strings.Join(keep, ","))
	f.kept = keep
	return f.orphans, nil
}

func (f *fakeHost) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHost) Open() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeHost) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeHost) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// recordingLogger satisfies the Wails logger.Logger interface.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Print(string)   {}
func (l *recordingLogger) Trace(string)   {}
func (l *recordingLogger) Debug(string)   {}
func (l *recordingLogger) Info(string)    {}
func (l *recordingLogger) Warning(string) {}
func (l *recordingLogger) Fatal(string)   {}
func (l *recordingLogger) Error(msg string) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func newSync(t *testing.T) (*webtab.Synchronizer, *fakeHost, *recordingLogger) {
	t.Helper()
	host := newFakeHost()
	log := &recordingLogger{}
	s := webtab.NewSynchronizer(host, webtab.NewGuard(), webtab.Options{Logger: log})
	return s, host, log
}

func drain(t *testing.T, s *webtab.Synchronizer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func webview(id, url string, x, y float64) domain.CanvasItem {
	return domain.CanvasItem{ID: id, X: x, Y: y, Width: 200, Height: 100, Badge: domain.BadgeWebview, URL: url}
}
