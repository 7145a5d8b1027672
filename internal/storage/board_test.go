package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"workspace/internal/domain"
	"workspace/internal/storage"
)

func newSQLiteStore(t *testing.T) *storage.SQLBoardStore {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "workspace.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s := storage.NewSQLBoardStore(db)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	return s
}

func sampleItems() ([]domain.CanvasItem, []domain.Connection) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.CanvasItem{
		{ID: "a", X: 10, Y: 20, Width: 200, Height: 100, Content: "first", Status: domain.StatusTodo, Badge: domain.BadgeNote, CreatedAt: t0, UpdatedAt: t0},
		{ID: "b", X: 300, Y: 20, Width: 400, Height: 300, Badge: domain.BadgeWebview, URL: "https://example.com", Status: domain.StatusDone, CreatedAt: t0.Add(time.Minute), UpdatedAt: t0.Add(time.Minute)},
	}
	conns := []domain.Connection{{ID: "c1", FromID: "a", ToID: "b", Label: "opens", CreatedAt: t0}}
	return items, conns
}

func TestSQLBoardStore_EmptyDatabase(t *testing.T) {
	s := newSQLiteStore(t)
	b, err := s.LoadCurrentBoard(context.Background())
	if err != nil || b != nil {
		t.Fatalf("LoadCurrentBoard = %v, %v; want nil, nil", b, err)
	}
}

func TestSQLBoardStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	items, conns := sampleItems()

	saved, err := s.SaveBoard(ctx, "", "Research", items, conns, domain.Viewport{X: 5, Y: -7, Scale: 1.5})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("save did not assign an id")
	}

	got, err := s.LoadCurrentBoard(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != saved.ID || got.Name != "Research" {
		t.Errorf("board = %s %q", got.ID, got.Name)
	}
	if got.Viewport != (domain.Viewport{X: 5, Y: -7, Scale: 1.5}) {
		t.Errorf("viewport = %+v", got.Viewport)
	}
	if len(got.Items) != 2 || got.Items[0].ID != "a" || got.Items[1].ID != "b" {
		t.Fatalf("items = %+v", got.Items)
	}
	b := got.Items[1]
	if b.URL != "https://example.com" || b.Badge != domain.BadgeWebview || b.Status != domain.StatusDone || b.Width != 400 {
		t.Errorf("item b = %+v", b)
	}
	if !b.CreatedAt.Equal(items[1].CreatedAt) {
		t.Errorf("createdAt = %v, want %v", b.CreatedAt, items[1].CreatedAt)
	}
	if len(got.Connections) != 1 || got.Connections[0].Label != "opens" {
		t.Errorf("connections = %+v", got.Connections)
	}
}

func TestSQLBoardStore_ResaveReplacesContents(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	items, conns := sampleItems()

	first, err := s.SaveBoard(ctx, "b1", "One", items, conns, domain.Viewport{Scale: 1})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := s.SaveBoard(ctx, "b1", "One renamed", items[:1], nil, domain.Viewport{Scale: 2})
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("createdAt changed on resave: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	got, err := s.GetBoard(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "One renamed" || len(got.Items) != 1 || len(got.Connections) != 0 || got.Viewport.Scale != 2 {
		t.Errorf("board = %+v", got)
	}
}

func TestSQLBoardStore_CurrentBoardAndList(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	items, conns := sampleItems()

	if _, err := s.SaveBoard(ctx, "b1", "One", items, conns, domain.Viewport{Scale: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveBoard(ctx, "b2", "Two", nil, nil, domain.Viewport{Scale: 1}); err != nil {
		t.Fatal(err)
	}
	if cur, _ := s.LoadCurrentBoard(ctx); cur.ID != "b2" {
		t.Errorf("current = %s, want b2", cur.ID)
	}

	if err := s.SetCurrentBoard(ctx, "b1"); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if cur, _ := s.LoadCurrentBoard(ctx); cur.ID != "b1" {
		t.Errorf("current = %s, want b1", cur.ID)
	}
	if err := s.SetCurrentBoard(ctx, "missing"); !errors.Is(err, storage.ErrBoardNotFound) {
		t.Errorf("set missing = %v, want ErrBoardNotFound", err)
	}

	list, err := s.ListBoards(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b2" || list[1].ID != "b1" || list[1].ItemCount != 2 {
		t.Errorf("list = %+v", list)
	}

	if err := s.DeleteBoard(ctx, "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetBoard(ctx, "b1"); !errors.Is(err, storage.ErrBoardNotFound) {
		t.Errorf("get deleted = %v", err)
	}
	if cur, _ := s.LoadCurrentBoard(ctx); cur == nil || cur.ID != "b2" {
		t.Errorf("current after delete = %+v, want fallback to b2", cur)
	}
}

func expectMigrations(mock sqlmock.Sqlmock) {
	for _, table := range []string{"boards", "items", "connections", "app_state"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
}

func TestSQLBoardStore_InsertFailureRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	expectMigrations(mock)
	db, err := storage.NewWithConn(conn, storage.DialectPostgres)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := storage.NewSQLBoardStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT created_at FROM boards WHERE id = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO boards`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = s.SaveBoard(context.Background(), "b1", "One", nil, nil, domain.Viewport{Scale: 1})
	if err == nil || !strings.Contains(err.Error(), "insert board") {
		t.Fatalf("save err = %v, want insert board failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLBoardStore_MigrationFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS boards").WillReturnError(errors.New("permission denied"))
	mock.ExpectClose()

	if _, err := storage.NewWithConn(conn, storage.DialectMySQL); err == nil {
		t.Fatal("expected migration error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLBoardStore_LoadReadError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	expectMigrations(mock)
	db, err := storage.NewWithConn(conn, storage.DialectSQLite)
	if err != nil {
		t.Fatal(err)
	}
	s := storage.NewSQLBoardStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT setting_value FROM app_state WHERE setting = ?`)).
		WithArgs("current_board").
		WillReturnError(errors.New("connection reset"))

	if _, err := s.LoadCurrentBoard(context.Background()); err == nil || !strings.Contains(err.Error(), "read current board") {
		t.Errorf("load err = %v", err)
	}
}

func TestParseDialect(t *testing.T) {
	tests := map[string]storage.Dialect{
		"":           storage.DialectSQLite,
		"sqlite":     storage.DialectSQLite,
		"PostgreSQL": storage.DialectPostgres,
		"mariadb":    storage.DialectMySQL,
	}
	for in, want := range tests {
		got, err := storage.ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := storage.ParseDialect("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMongoDatabaseName(t *testing.T) {
	tests := map[string]string{
		"mongodb://localhost:27017":                           "workspace",
		"mongodb://localhost:27017/boards":                    "boards",
		"mongodb+srv://u:p@cluster.example.net/prod?retry=1": "prod",
		"mongodb://u:p@host/":                                 "workspace",
	}
	for uri, want := range tests {
		if got := storage.MongoDatabaseName(uri); got != want {
			t.Errorf("MongoDatabaseName(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestDB_Settings(t *testing.T) {
	ctx := context.Background()
	db, err := storage.New(filepath.Join(t.TempDir(), "workspace.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, ok, err := db.Setting(ctx, "window_width"); ok || err != nil {
		t.Fatalf("missing setting = %v, %v", ok, err)
	}
	for _, v := range []string{"1024", "1440"} {
		if err := db.SetSetting(ctx, "window_width", v); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	v, ok, err := db.Setting(ctx, "window_width")
	if err != nil || !ok || v != "1440" {
		t.Errorf("setting = %q, %v, %v; want 1440", v, ok, err)
	}
}
