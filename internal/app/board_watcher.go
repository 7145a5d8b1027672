package app

import (
	"context"
	"log"
	"sync"
	"time"
)

const boardPollInterval = 2 * time.Second

// externalChecker reloads the open board when another process saved it.
// *service.BoardService implements it.
type externalChecker interface {
	CheckExternal(ctx context.Context) (bool, error)
}

// boardWatcher polls storage for changes to the open board made outside
// this process (e.g. by the standalone MCP server) so the canvas and its
// web tabs follow them.
type boardWatcher struct {
	ctx      context.Context
	boards   externalChecker
	interval time.Duration
	onReload func()

	mu     sync.Mutex
	stopCh chan struct{}
}

func newBoardWatcher(ctx context.Context, boards externalChecker, onReload func()) *boardWatcher {
	return &boardWatcher{ctx: ctx, boards: boards, interval: boardPollInterval, onReload: onReload}
}

// Start begins the polling loop. Calling it twice is a no-op.
func (w *boardWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop.
func (w *boardWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *boardWatcher) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *boardWatcher) check() {
	reloaded, err := w.boards.CheckExternal(w.ctx)
	if err != nil {
		log.Printf("board watcher: %v", err)
		return
	}
	if reloaded && w.onReload != nil {
		w.onReload()
	}
}
