package app

import (
	"fmt"

	"workspace/internal/domain"
	"workspace/internal/interact"
	"workspace/internal/service"
)

// ============================================================
// Canvas state and pointer input
// ============================================================

func (a *App) GetBoardState() domain.BoardState {
	return a.boards.State()
}

// PointerDown starts a drag, resize or marquee depending on what is under
// the pointer.
func (a *App) PointerDown(p interact.Pointer) {
	a.engine.PointerDown(p)
}

// PointerMove is coalesced; the engine applies the latest position once
// per frame.
func (a *App) PointerMove(p interact.Pointer) {
	a.engine.PointerMove(p)
}

// PointerUp ends the gesture and returns the resulting selection.
func (a *App) PointerUp(p interact.Pointer) []string {
	return a.engine.PointerUp(p)
}

func (a *App) Pan(dx, dy float64) domain.Viewport {
	return a.engine.Pan(dx, dy).Domain()
}

func (a *App) Zoom(scale, anchorX, anchorY float64) domain.Viewport {
	return a.engine.Zoom(scale, anchorX, anchorY).Domain()
}

func (a *App) ZoomBy(factor, anchorX, anchorY float64) domain.Viewport {
	return a.engine.ZoomBy(factor, anchorX, anchorY).Domain()
}

func (a *App) SetSnapToGrid(enabled bool) {
	g := a.engine.Grid()
	g.Enabled = enabled
	a.engine.SetGrid(g)
}

// ── Selection ──────────────────────────────────────────────

func (a *App) SelectItems(ids []string, extend bool) []string {
	if extend {
		a.items.Extend(ids...)
	} else {
		a.items.Select(ids...)
	}
	return a.items.Selected()
}

func (a *App) ToggleSelection(id string) []string {
	a.items.Toggle(id)
	return a.items.Selected()
}

func (a *App) ClearSelection() {
	a.items.ClearSelection()
}

// ============================================================
// Items
// ============================================================

func (a *App) CreateItem(req service.CreateItemRequest) (domain.CanvasItem, error) {
	return a.edits.CreateItem(a.ctx, req)
}

func (a *App) UpdateItemContent(id, content string) error {
	if !a.edits.UpdateContent(a.ctx, id, content) {
		return fmt.Errorf("item %s not found", id)
	}
	return nil
}

func (a *App) SetItemStatus(id, status string) error {
	s := domain.Status(status)
	if !s.Valid() {
		return fmt.Errorf("unknown status %q", status)
	}
	if !a.edits.SetStatus(a.ctx, id, s) {
		return fmt.Errorf("item %s not found", id)
	}
	return nil
}

func (a *App) SetItemColor(id, color string) error {
	if !a.edits.SetColor(a.ctx, id, color) {
		return fmt.Errorf("item %s not found", id)
	}
	return nil
}

// SetItemURL navigates a webview card. Its native view is recreated.
func (a *App) SetItemURL(id, url string) error {
	return a.edits.SetURL(a.ctx, id, url)
}

func (a *App) DeleteItems(ids []string) int {
	return a.edits.DeleteItems(a.ctx, ids)
}

func (a *App) DeleteSelected() int {
	return a.edits.DeleteSelected(a.ctx)
}

func (a *App) Nudge(dx, dy float64) int {
	return a.edits.Nudge(a.ctx, dx, dy)
}

// ── Connections ────────────────────────────────────────────

func (a *App) ConnectItems(fromID, toID, label string) (domain.Connection, error) {
	return a.edits.Connect(a.ctx, fromID, toID, label)
}

func (a *App) DisconnectItems(connectionID string) bool {
	return a.edits.Disconnect(a.ctx, connectionID)
}

// ── Undo / Redo ────────────────────────────────────────────

func (a *App) Undo() bool {
	return a.edits.Undo(a.ctx)
}

func (a *App) Redo() bool {
	return a.edits.Redo(a.ctx)
}

// ============================================================
// Generated content
// ============================================================

// ProposeTasks adds a batch of proposed cards as one undoable step.
func (a *App) ProposeTasks(proposals []service.Proposal) ([]domain.CanvasItem, error) {
	return a.intake.ApplyProposals(a.ctx, proposals)
}

func (a *App) ApplyLayout(placements []service.Placement) int {
	return a.intake.ApplyLayout(a.ctx, placements)
}

// ArrangeItems tidies ids (every card when empty) using "grid" or "status".
func (a *App) ArrangeItems(strategy string, ids []string) (int, error) {
	return a.intake.Arrange(a.ctx, strategy, ids)
}
