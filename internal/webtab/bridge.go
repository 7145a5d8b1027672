// Package webtab keeps host-rendered web views aligned with the canvas
// cards that own them.
package webtab

import (
	"context"

	"workspace/internal/domain"
)

// Bridge is the command channel to the host process that renders the
// native views. Every call may fail or time out; callers log and move on.
type Bridge interface {
	CreateView(ctx context.Context, tab domain.WebTab) error
	UpdateViewBounds(ctx context.Context, tabID string, b domain.Bounds) error
	SetViewFullscreen(ctx context.Context, tabID string, fullscreen bool) error
	SetViewVisible(ctx context.Context, tabID string, visible bool) error
	FocusView(ctx context.Context, tabID string) error
	UnfocusViews(ctx context.Context) error
	CloseView(ctx context.Context, tabID string) error
	CloseAllViews(ctx context.Context) error
	// CloseOrphanedViews closes every host view carrying the web tab
	// prefix whose id is not in keep, returning how many were closed.
	CloseOrphanedViews(ctx context.Context, keep []string) (int, error)
}

// ItemSource resolves an item by id. *canvas.Store satisfies it.
type ItemSource interface {
	Get(id string) (domain.CanvasItem, bool)
}
