package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"workspace/internal/domain"
)

const currentBoardSetting = "current_board"

// ErrBoardNotFound is returned for lookups of an unknown board id.
var ErrBoardNotFound = errors.New("board not found")

var (
	_ domain.BoardStore = (*SQLBoardStore)(nil)
	_ domain.BoardStore = (*MongoBoardStore)(nil)
)

// SQLBoardStore implements domain.BoardStore on any DB dialect.
type SQLBoardStore struct {
	db  *DB
	now func() time.Time
}

func NewSQLBoardStore(db *DB) *SQLBoardStore {
	return &SQLBoardStore{db: db, now: time.Now}
}

func (s *SQLBoardStore) Close() error {
	return s.db.Close()
}

func (s *SQLBoardStore) q(query string) string {
	return s.db.rebind(query)
}

// LoadCurrentBoard returns the board marked current, falling back to the
// most recently updated one. Returns nil, nil on an empty database.
func (s *SQLBoardStore) LoadCurrentBoard(ctx context.Context) (*domain.Board, error) {
	var id string
	err := s.db.conn.QueryRowContext(ctx,
		s.q(`SELECT setting_value FROM app_state WHERE setting = ?`), currentBoardSetting,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = s.db.conn.QueryRowContext(ctx,
			`SELECT id FROM boards ORDER BY updated_at DESC LIMIT 1`,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find latest board: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read current board: %w", err)
	}

	b, err := s.GetBoard(ctx, id)
	if errors.Is(err, ErrBoardNotFound) {
		return nil, nil
	}
	return b, err
}

// SaveBoard replaces the stored contents of board id, creating it when id
// is empty or unknown, and marks it current.
func (s *SQLBoardStore) SaveBoard(ctx context.Context, id, name string, items []domain.CanvasItem, conns []domain.Connection, vp domain.Viewport) (*domain.Board, error) {
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()
	board := &domain.Board{
		ID:          id,
		Name:        name,
		Items:       items,
		Connections: conns,
		Viewport:    vp,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var created time.Time
	err = tx.QueryRowContext(ctx, s.q(`SELECT created_at FROM boards WHERE id = ?`), id).Scan(&created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			s.q(`INSERT INTO boards (id, name, viewport_x, viewport_y, viewport_scale, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			id, name, vp.X, vp.Y, vp.Scale, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert board: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup board: %w", err)
	default:
		board.CreatedAt = created
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE boards SET name = ?, viewport_x = ?, viewport_y = ?, viewport_scale = ?, updated_at = ? WHERE id = ?`),
			name, vp.X, vp.Y, vp.Scale, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update board: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM items WHERE board_id = ?`), id); err != nil {
		return nil, fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM connections WHERE board_id = ?`), id); err != nil {
		return nil, fmt.Errorf("delete connections: %w", err)
	}
	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO items (board_id, id, x, y, width, height, content, status, badge, color, url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			id, it.ID, it.X, it.Y, it.Width, it.Height, it.Content, string(it.Status), string(it.Badge), it.Color, it.URL, orNow(it.CreatedAt, now), orNow(it.UpdatedAt, now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	for _, c := range conns {
		_, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO connections (board_id, id, from_id, to_id, label, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
			id, c.ID, c.FromID, c.ToID, c.Label, orNow(c.CreatedAt, now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert connection %s: %w", c.ID, err)
		}
	}
	if err := s.setCurrent(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return board, nil
}

// GetBoard loads a board with its items and connections.
func (s *SQLBoardStore) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	b := &domain.Board{ID: id}
	err := s.db.conn.QueryRowContext(ctx,
		s.q(`SELECT name, viewport_x, viewport_y, viewport_scale, created_at, updated_at FROM boards WHERE id = ?`), id,
	).Scan(&b.Name, &b.Viewport.X, &b.Viewport.Y, &b.Viewport.Scale, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get board %s: %w", id, ErrBoardNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}

	if b.Items, err = s.listItems(ctx, id); err != nil {
		return nil, err
	}
	if b.Connections, err = s.listConnections(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *SQLBoardStore) listItems(ctx context.Context, boardID string) ([]domain.CanvasItem, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		s.q(`SELECT id, x, y, width, height, content, status, badge, color, url, created_at, updated_at FROM items WHERE board_id = ? ORDER BY created_at ASC, id ASC`),
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []domain.CanvasItem{}
	for rows.Next() {
		var it domain.CanvasItem
		var status, badge string
		if err := rows.Scan(&it.ID, &it.X, &it.Y, &it.Width, &it.Height, &it.Content, &status, &badge, &it.Color, &it.URL, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Status = domain.Status(status)
		it.Badge = domain.Badge(badge)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLBoardStore) listConnections(ctx context.Context, boardID string) ([]domain.Connection, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		s.q(`SELECT id, from_id, to_id, label, created_at FROM connections WHERE board_id = ? ORDER BY created_at ASC, id ASC`),
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	conns := []domain.Connection{}
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.ID, &c.FromID, &c.ToID, &c.Label, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// ListBoards returns every board, most recently updated first.
func (s *SQLBoardStore) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT b.id, b.name, b.updated_at, (SELECT COUNT(*) FROM items i WHERE i.board_id = b.id) FROM boards b ORDER BY b.updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var out []domain.BoardSummary
	for rows.Next() {
		var b domain.BoardSummary
		if err := rows.Scan(&b.ID, &b.Name, &b.UpdatedAt, &b.ItemCount); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBoard removes a board and everything on it.
func (s *SQLBoardStore) DeleteBoard(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM items WHERE board_id = ?`,
		`DELETE FROM connections WHERE board_id = ?`,
		`DELETE FROM boards WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`DELETE FROM app_state WHERE setting = ? AND setting_value = ?`), currentBoardSetting, id,
	); err != nil {
		return fmt.Errorf("clear current board: %w", err)
	}
	return tx.Commit()
}

// SetCurrentBoard marks id as the board to open on next start.
func (s *SQLBoardStore) SetCurrentBoard(ctx context.Context, id string) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM boards WHERE id = ?`), id).Scan(&n); err != nil {
		return fmt.Errorf("lookup board: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set current board %s: %w", id, ErrBoardNotFound)
	}
	if err := s.setCurrent(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLBoardStore) setCurrent(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM app_state WHERE setting = ?`), currentBoardSetting); err != nil {
		return fmt.Errorf("clear current board: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO app_state (setting, setting_value) VALUES (?, ?)`), currentBoardSetting, id,
	); err != nil {
		return fmt.Errorf("set current board: %w", err)
	}
	return nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
