package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workspace/internal/canvas"
	"workspace/internal/domain"
	"workspace/internal/layout"
)

// ─────────────────────────────────────────────────────────────
// Item Service: destructive item operations with history
// ─────────────────────────────────────────────────────────────

// Default card sizes by badge.
const (
	DefaultNoteWidth     = 240.0
	DefaultNoteHeight    = 160.0
	DefaultWebviewWidth  = 640.0
	DefaultWebviewHeight = 480.0
	DefaultGroupWidth    = 600.0
	DefaultGroupHeight   = 400.0
)

var ErrInvalidURL = errors.New("url must start with http:// or https://")

// ItemService wraps the canvas store so every destructive action pushes a
// history snapshot first.
type ItemService struct {
	items   *canvas.Store
	history *canvas.History
	layout  *layout.Engine
	emitter EventEmitter
}

func NewItemService(items *canvas.Store, history *canvas.History, le *layout.Engine, emitter EventEmitter) *ItemService {
	if le == nil {
		le = layout.NewEngine()
	}
	return &ItemService{items: items, history: history, layout: le, emitter: emitter}
}

// CreateItemRequest is the frontend's payload for a new card. A nil
// position asks for automatic placement.
type CreateItemRequest struct {
	X       *float64      `json:"x,omitempty"`
	Y       *float64      `json:"y,omitempty"`
	Width   float64       `json:"width"`
	Height  float64       `json:"height"`
	Content string        `json:"content"`
	Status  domain.Status `json:"status"`
	Badge   domain.Badge  `json:"badge"`
	Color   string        `json:"color"`
	URL     string        `json:"url"`
}

// newItem applies size defaults and validates the URL.
func newItem(req CreateItemRequest) (domain.CanvasItem, error) {
	it := domain.CanvasItem{
		Width:   req.Width,
		Height:  req.Height,
		Content: req.Content,
		Status:  req.Status,
		Badge:   req.Badge,
		Color:   req.Color,
		URL:     strings.TrimSpace(req.URL),
	}
	if it.Badge == "" {
		it.Badge = domain.BadgeNote
	}
	if it.URL != "" && !validURL(it.URL) {
		return it, fmt.Errorf("create item: %w", ErrInvalidURL)
	}
	if it.Width <= 0 || it.Height <= 0 {
		w, h := defaultSize(it.Badge)
		if it.Width <= 0 {
			it.Width = w
		}
		if it.Height <= 0 {
			it.Height = h
		}
	}
	return it, nil
}

func defaultSize(b domain.Badge) (float64, float64) {
	switch b {
	case domain.BadgeWebview:
		return DefaultWebviewWidth, DefaultWebviewHeight
	case domain.BadgeGroup:
		return DefaultGroupWidth, DefaultGroupHeight
	default:
		return DefaultNoteWidth, DefaultNoteHeight
	}
}

func validURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// CreateItem adds a card.
func (s *ItemService) CreateItem(ctx context.Context, req CreateItemRequest) (domain.CanvasItem, error) {
	it, err := newItem(req)
	if err != nil {
		return domain.CanvasItem{}, err
	}
	if req.X != nil && req.Y != nil {
		it.X, it.Y = *req.X, *req.Y
	} else {
		it.X, it.Y = s.layout.NextPosition(s.items.Items(), it.Width, it.Height)
	}

	s.history.Push("add")
	it, _ = s.items.Add(it)
	s.changed(ctx)
	return it, nil
}

// UpdateContent edits the text of a card. Edits are not undoable steps.
func (s *ItemService) UpdateContent(ctx context.Context, id, content string) bool {
	ok := s.items.Update(id, func(it *domain.CanvasItem) { it.Content = content })
	if ok {
		s.changed(ctx)
	}
	return ok
}

// SetStatus moves a card between todo, in-progress and done.
func (s *ItemService) SetStatus(ctx context.Context, id string, status domain.Status) bool {
	ok := s.items.Update(id, func(it *domain.CanvasItem) { it.Status = status })
	if ok {
		s.changed(ctx)
	}
	return ok
}

// SetColor changes the card accent color.
func (s *ItemService) SetColor(ctx context.Context, id, color string) bool {
	ok := s.items.Update(id, func(it *domain.CanvasItem) { it.Color = color })
	if ok {
		s.changed(ctx)
	}
	return ok
}

// SetURL points a webview card at a new page. The synchronizer replaces the
// native view in response.
func (s *ItemService) SetURL(ctx context.Context, id, url string) error {
	url = strings.TrimSpace(url)
	if url != "" && !validURL(url) {
		return fmt.Errorf("set url: %w", ErrInvalidURL)
	}
	if _, ok := s.items.Get(id); !ok {
		return nil
	}
	s.history.Push("navigate")
	s.items.Update(id, func(it *domain.CanvasItem) { it.URL = url })
	s.changed(ctx)
	return nil
}

// DeleteItems removes cards and their connections. Unknown ids are skipped.
func (s *ItemService) DeleteItems(ctx context.Context, ids []string) int {
	var known []string
	for _, id := range ids {
		if _, ok := s.items.Get(id); ok {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		return 0
	}
	s.history.Push("remove")
	n := s.items.RemoveMany(known)
	s.changed(ctx)
	return n
}

// DeleteSelected removes the current selection.
func (s *ItemService) DeleteSelected(ctx context.Context) int {
	return s.DeleteItems(ctx, s.items.Selected())
}

// Connect links two cards.
func (s *ItemService) Connect(ctx context.Context, fromID, toID, label string) (domain.Connection, error) {
	if err := s.items.CanConnect(fromID, toID); err != nil {
		return domain.Connection{}, fmt.Errorf("connect items: %w", err)
	}
	s.history.Push("connect")
	c, err := s.items.Connect(fromID, toID, label)
	if err != nil {
		return domain.Connection{}, fmt.Errorf("connect items: %w", err)
	}
	s.changed(ctx)
	return c, nil
}

// Disconnect removes a connection.
func (s *ItemService) Disconnect(ctx context.Context, id string) bool {
	if !s.items.HasConnection(id) {
		return false
	}
	s.history.Push("disconnect")
	ok := s.items.Disconnect(id)
	s.changed(ctx)
	return ok
}

// Nudge moves the selection by a canvas-space delta, e.g. from arrow keys.
func (s *ItemService) Nudge(ctx context.Context, dx, dy float64) int {
	if len(s.items.Selected()) == 0 {
		return 0
	}
	s.history.Push("move")
	n := s.items.MoveSelected(dx, dy)
	s.changed(ctx)
	return n
}

func (s *ItemService) Undo(ctx context.Context) bool {
	ok := s.history.Undo()
	if ok {
		s.changed(ctx)
	}
	return ok
}

func (s *ItemService) Redo(ctx context.Context) bool {
	ok := s.history.Redo()
	if ok {
		s.changed(ctx)
	}
	return ok
}

func (s *ItemService) changed(ctx context.Context) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, EventHistoryChanged, map[string]bool{
		"canUndo": s.history.CanUndo(),
		"canRedo": s.history.CanRedo(),
	})
}
