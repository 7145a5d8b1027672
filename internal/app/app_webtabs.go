package app

import (
	"context"
	"fmt"
)

// ============================================================
// Native web tabs
// ============================================================

// SetWindowSize is called by the frontend on resize. Cards outside the
// window have their views hidden.
func (a *App) SetWindowSize(width, height int) {
	a.mu.Lock()
	a.windowW, a.windowH = width, height
	a.mu.Unlock()
	a.tabs.SetWindowSize(width, height)
}

// SetChromeOffset reports where the webview content starts inside the host
// window.
func (a *App) SetChromeOffset(x, y float64) {
	a.tabs.SetChromeOffset(x, y)
}

// SetWebTabVisible shows or hides a card's view, e.g. when a focus zone
// covers it.
func (a *App) SetWebTabVisible(itemID string, visible bool) {
	a.tabs.SetVisible(itemID, visible)
}

func (a *App) SetWebTabFullscreen(itemID string, fullscreen bool) {
	a.tabs.SetFullscreen(itemID, fullscreen)
}

func (a *App) FocusWebTab(itemID string) {
	a.tabs.Focus(itemID)
}

func (a *App) UnfocusWebTabs() {
	a.tabs.Unfocus()
}

// ReloadWebTab recreates the view of a webview card.
func (a *App) ReloadWebTab(itemID string) error {
	item, ok := a.items.Get(itemID)
	if !ok {
		return fmt.Errorf("item %s not found", itemID)
	}
	a.tabs.Reload(item)
	return nil
}

func (a *App) ListWebTabs() []WebTabView {
	tabs := a.tabs.Tabs()
	out := make([]WebTabView, 0, len(tabs))
	for _, t := range tabs {
		_, phase, ok := a.tabs.Tab(t.ItemID)
		if !ok {
			continue
		}
		out = append(out, newWebTabView(t, phase))
	}
	return out
}

// SweepWebTabs closes host views no card owns and returns how many.
func (a *App) SweepWebTabs() (int, error) {
	a.mu.Lock()
	timeout := a.cfg.HostTimeout()
	a.mu.Unlock()
	ctx, cancel := context.WithTimeout(a.ctx, timeout)
	defer cancel()
	return a.tabs.SweepOrphans(ctx)
}
