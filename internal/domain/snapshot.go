package domain

import "time"

// Snapshot is an immutable copy of the item and connection maps, taken
// by the history manager before a destructive action.
type Snapshot struct {
	Items       map[string]CanvasItem `json:"items"`
	Connections map[string]Connection `json:"connections"`
	Timestamp   time.Time             `json:"timestamp"`
	Label       string                `json:"label,omitempty"`
}

// BoardState is what the frontend needs to render the current board.
type BoardState struct {
	BoardID     string       `json:"boardId"`
	Name        string       `json:"name"`
	Items       []CanvasItem `json:"items"`
	Connections []Connection `json:"connections"`
	Selected    []string     `json:"selected"`
	Viewport    Viewport     `json:"viewport"`
	CanUndo     bool         `json:"canUndo"`
	CanRedo     bool         `json:"canRedo"`
}
