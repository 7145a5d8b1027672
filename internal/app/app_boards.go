package app

import (
	"workspace/internal/domain"
)

// ============================================================
// Boards
// ============================================================

func (a *App) ListBoards() ([]domain.BoardSummary, error) {
	return a.boards.ListBoards(a.ctx)
}

// SwitchBoard saves pending changes and opens another board. The native
// views of the old board are closed before any of the new board's open.
func (a *App) SwitchBoard(id string) (domain.BoardState, error) {
	if err := a.boards.SwitchBoard(a.ctx, id); err != nil {
		return domain.BoardState{}, err
	}
	return a.boards.State(), nil
}

func (a *App) CreateBoard(name string) (domain.BoardState, error) {
	if _, err := a.boards.CreateBoard(a.ctx, name); err != nil {
		return domain.BoardState{}, err
	}
	return a.boards.State(), nil
}

func (a *App) RenameBoard(name string) error {
	return a.boards.RenameBoard(a.ctx, name)
}

func (a *App) DeleteBoard(id string) error {
	return a.boards.DeleteBoard(a.ctx, id)
}

func (a *App) SaveBoard() error {
	_, err := a.boards.Save(a.ctx)
	return err
}
