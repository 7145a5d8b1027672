package domain

import (
	"context"
	"time"
)

// Viewport is the pan/zoom state of a board.
type Viewport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Board is the persisted form of a workspace.
type Board struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Items       []CanvasItem `json:"items"`
	Connections []Connection `json:"connections"`
	Viewport    Viewport     `json:"viewport"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// BoardSummary is the list view of a board, without its contents.
type BoardSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ItemCount int       `json:"itemCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardStore persists boards. The engine treats a board as an opaque
// snapshot of its own state.
type BoardStore interface {
	// LoadCurrentBoard returns nil, nil when no board has been saved yet.
	LoadCurrentBoard(ctx context.Context) (*Board, error)
	SaveBoard(ctx context.Context, id, name string, items []CanvasItem, conns []Connection, vp Viewport) (*Board, error)
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListBoards(ctx context.Context) ([]BoardSummary, error)
	DeleteBoard(ctx context.Context, id string) error
	SetCurrentBoard(ctx context.Context, id string) error
	Close() error
}
