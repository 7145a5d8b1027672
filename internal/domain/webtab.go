package domain

import "fmt"

// WebTabPrefix marks host views owned by this app. The host's orphan sweep
// only touches views carrying it.
const WebTabPrefix = "webtab-"

// WebTabID derives the tab id for an item. Deterministic so a repeated
// creation attempt for the same item is recognizable as a duplicate.
func WebTabID(itemID string) string {
	return WebTabPrefix + itemID
}

// Bounds is a screen-space rectangle in whole pixels, relative to the
// main window's content area.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Key is the serialized form compared by the push idempotence check.
func (b Bounds) Key() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.X, b.Y, b.Width, b.Height)
}

// WebTab is the local mirror of a host-rendered native view.
type WebTab struct {
	ID           string `json:"id"`
	ItemID       string `json:"itemId"`
	URL          string `json:"url"`
	IsFullscreen bool   `json:"isFullscreen"`
	IsFocused    bool   `json:"isFocused"`
	IsVisible    bool   `json:"isVisible"`
	Bounds       Bounds `json:"bounds"`
}
