package webtab

import (
	"context"
	"sync"
)

// Guard is the set of tab ids with a creation call in flight. A second
// TryLock for the same id fails until Unlock, which must run on both the
// success and failure paths.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// TryLock marks tabID as creating. Returns false if it already is.
func (g *Guard) TryLock(tabID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == nil {
		g.inflight = make(map[string]struct{})
	}
	if _, ok := g.inflight[tabID]; ok {
		return false
	}
	g.inflight[tabID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases tabID. Unlocking an id that is not held is a no-op.
func (g *Guard) Unlock(tabID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[tabID]; !ok {
		return
	}
	delete(g.inflight, tabID)
	g.wg.Done()
}

// Held reports whether tabID has a creation in flight.
func (g *Guard) Held(tabID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[tabID]
	return ok
}

// WaitAll blocks until every in-flight creation is released or ctx is done.
func (g *Guard) WaitAll(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
