package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"workspace/internal/canvas"
	"workspace/internal/domain"
	"workspace/internal/interact"
)

// ─────────────────────────────────────────────────────────────
// Board Service: load, save, switch and autosave boards
// ─────────────────────────────────────────────────────────────

const DefaultBoardName = "Untitled"

var (
	ErrDeleteCurrentBoard = errors.New("cannot delete the open board")
	ErrEmptyBoardName     = errors.New("board name is required")
)

// BoardService owns the identity of the open board and moves whole boards
// between the canvas store and persistence. It subscribes to the store to
// track unsaved changes.
type BoardService struct {
	store   domain.BoardStore
	items   *canvas.Store
	history *canvas.History
	engine  *interact.Engine
	emitter EventEmitter

	mu      sync.Mutex
	id      string
	name    string
	dirty   bool
	loading bool
	savedVP canvas.Viewport
	savedAt time.Time // UpdatedAt of the version last loaded or saved
}

func NewBoardService(store domain.BoardStore, items *canvas.Store, history *canvas.History, engine *interact.Engine, emitter EventEmitter) *BoardService {
	s := &BoardService{
		store:   store,
		items:   items,
		history: history,
		engine:  engine,
		emitter: emitter,
		savedVP: canvas.NewViewport(),
	}
	items.Subscribe(s)
	engine.OnViewportChange(s.viewportChanged)
	engine.OnHistoryChange(s.historyChanged)
	return s
}

// ── canvas.Observer ────────────────────────────────────────

func (s *BoardService) ItemsChanged(items []domain.CanvasItem) {
	if len(items) == 0 {
		return
	}
	s.markDirty()
	s.emit(context.Background(), EventItemsChanged, items)
}

func (s *BoardService) ItemRemoved(id string) {
	s.markDirty()
	s.emit(context.Background(), EventItemsChanged, map[string]string{"removed": id})
}

func (s *BoardService) Reset() {}

func (s *BoardService) ConnectionsChanged(conns []domain.Connection) {
	s.markDirty()
	s.emit(context.Background(), EventConnectionsChanged, conns)
}

// historyChanged covers gestures, which push history outside the item
// service.
func (s *BoardService) historyChanged() {
	s.emit(context.Background(), EventHistoryChanged, map[string]bool{
		"canUndo": s.history.CanUndo(),
		"canRedo": s.history.CanRedo(),
	})
}

func (s *BoardService) markDirty() {
	s.mu.Lock()
	if !s.loading {
		s.dirty = true
	}
	s.mu.Unlock()
}

func (s *BoardService) viewportChanged(vp canvas.Viewport) {
	s.mu.Lock()
	if !s.loading && vp != s.savedVP {
		s.dirty = true
	}
	s.mu.Unlock()
}

// ── Lifecycle ──────────────────────────────────────────────

// Load opens the current board, creating an empty one on first run.
func (s *BoardService) Load(ctx context.Context) error {
	board, err := s.store.LoadCurrentBoard(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if board == nil {
		board, err = s.store.SaveBoard(ctx, "", DefaultBoardName, nil, nil, canvas.NewViewport().Domain())
		if err != nil {
			return fmt.Errorf("create board: %w", err)
		}
	}
	s.apply(ctx, board)
	return nil
}

// Save writes the open board.
func (s *BoardService) Save(ctx context.Context) (*domain.Board, error) {
	s.mu.Lock()
	id, name := s.id, s.name
	s.mu.Unlock()
	if id == "" {
		return nil, errors.New("save board: no board loaded")
	}

	vp := s.engine.Viewport()
	board, err := s.store.SaveBoard(ctx, id, name, s.items.Items(), s.items.Connections(), vp.Domain())
	if err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.savedVP = vp
	s.savedAt = board.UpdatedAt
	s.mu.Unlock()

	s.emit(ctx, EventBoardSaved, domain.BoardSummary{
		ID:        board.ID,
		Name:      board.Name,
		ItemCount: len(board.Items),
		UpdatedAt: board.UpdatedAt,
	})
	return board, nil
}

// Autosave saves only when something changed since the last save or load.
func (s *BoardService) Autosave(ctx context.Context) (bool, error) {
	if !s.Dirty() {
		return false, nil
	}
	if _, err := s.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *BoardService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// CheckExternal reloads the open board when another process (the
// standalone MCP server) saved a newer version. Local unsaved edits win:
// the board is left alone and EventBoardConflict is emitted.
func (s *BoardService) CheckExternal(ctx context.Context) (bool, error) {
	s.mu.Lock()
	id, savedAt := s.id, s.savedAt
	s.mu.Unlock()
	if id == "" {
		return false, nil
	}

	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return false, fmt.Errorf("check board: %w", err)
	}
	var remote *domain.BoardSummary
	for i := range boards {
		if boards[i].ID == id {
			remote = &boards[i]
			break
		}
	}
	if remote == nil || !remote.UpdatedAt.After(savedAt) {
		return false, nil
	}
	if s.Dirty() {
		s.emit(ctx, EventBoardConflict, *remote)
		return false, nil
	}

	board, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return false, fmt.Errorf("reload board: %w", err)
	}
	s.apply(ctx, board)
	return true, nil
}

// SwitchBoard saves pending changes and opens another board.
func (s *BoardService) SwitchBoard(ctx context.Context, id string) error {
	if id == s.CurrentID() {
		return nil
	}
	board, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return fmt.Errorf("switch board: %w", err)
	}
	if _, err := s.Autosave(ctx); err != nil {
		return err
	}
	if err := s.store.SetCurrentBoard(ctx, id); err != nil {
		return fmt.Errorf("switch board: %w", err)
	}
	s.apply(ctx, board)
	return nil
}

// CreateBoard saves pending changes and opens a new empty board.
func (s *BoardService) CreateBoard(ctx context.Context, name string) (*domain.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultBoardName
	}
	if _, err := s.Autosave(ctx); err != nil {
		return nil, err
	}
	board, err := s.store.SaveBoard(ctx, "", name, nil, nil, canvas.NewViewport().Domain())
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	s.apply(ctx, board)
	return board, nil
}

// RenameBoard renames the open board and saves it.
func (s *BoardService) RenameBoard(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("rename board: %w", ErrEmptyBoardName)
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	_, err := s.Save(ctx)
	return err
}

// DeleteBoard removes a board other than the open one.
func (s *BoardService) DeleteBoard(ctx context.Context, id string) error {
	if id == s.CurrentID() {
		return fmt.Errorf("delete board: %w", ErrDeleteCurrentBoard)
	}
	if err := s.store.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return nil
}

func (s *BoardService) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *BoardService) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State is everything the frontend needs to render the open board.
func (s *BoardService) State() domain.BoardState {
	s.mu.Lock()
	id, name := s.id, s.name
	s.mu.Unlock()
	return domain.BoardState{
		BoardID:     id,
		Name:        name,
		Items:       s.items.Items(),
		Connections: s.items.Connections(),
		Selected:    s.items.Selected(),
		Viewport:    s.engine.Viewport().Domain(),
		CanUndo:     s.history.CanUndo(),
		CanRedo:     s.history.CanRedo(),
	}
}

// apply replaces the canvas with board. Observers see a Reset, so the web
// tab synchronizer closes every native view of the previous board first.
func (s *BoardService) apply(ctx context.Context, board *domain.Board) {
	vp := canvas.FromDomain(board.Viewport)

	s.mu.Lock()
	s.loading = true
	s.id = board.ID
	s.name = board.Name
	s.mu.Unlock()

	s.items.Replace(board.Items, board.Connections)
	s.history.Clear()
	s.engine.SetViewport(vp)

	s.mu.Lock()
	s.loading = false
	s.dirty = false
	s.savedVP = vp
	s.savedAt = board.UpdatedAt
	s.mu.Unlock()

	s.emit(ctx, EventBoardLoaded, s.State())
}

func (s *BoardService) emit(ctx context.Context, event string, data any) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, event, data)
	}
}
