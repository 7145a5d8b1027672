package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"workspace/internal/canvas"
	"workspace/internal/interact"
	"workspace/internal/service"
	"workspace/internal/storage"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	data   []any
}

func (r *recordingEmitter) Emit(_ context.Context, event string, data any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.data = append(r.data, data)
	r.mu.Unlock()
}

func (r *recordingEmitter) last(event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i] == event {
			return r.data[i], true
		}
	}
	return nil, false
}

type harness struct {
	srv     *Server
	items   *canvas.Store
	emitter *recordingEmitter
	saves   int
}

func newHarness(t *testing.T, autoApprove bool) *harness {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "workspace.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	items := canvas.NewStore()
	history := canvas.NewHistory(items, 0)
	engine := interact.NewEngine(items, history)
	emitter := &recordingEmitter{}
	boards := service.NewBoardService(storage.NewSQLBoardStore(db), items, history, engine, emitter)
	if err := boards.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	h := &harness{items: items, emitter: emitter}
	h.srv = New(context.Background(), Deps{
		Emitter: emitter,
		Items:   items,
		Boards:  boards,
		Edits:   service.NewItemService(items, history, nil, emitter),
		Intake:  service.NewContentIntake(items, history, nil, emitter),
		Persist: func(ctx context.Context) error {
			h.saves++
			_, err := boards.Save(ctx)
			return err
		},
		AutoApprove: autoApprove,
	})
	return h
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestProposeTasks_CreatesConnectedCards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	res, err := h.srv.handleProposeTasks(ctx, call(map[string]any{
		"tasks": `[{"content":"design"},{"content":"build","dependsOn":[0]}]`,
	}))
	if err != nil {
		t.Fatalf("propose_tasks: %v", err)
	}
	var created []itemSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &created); err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 || h.items.Len() != 2 {
		t.Fatalf("created %d cards, store has %d", len(created), h.items.Len())
	}
	if len(h.items.Connections()) != 1 {
		t.Errorf("connections = %d, want 1", len(h.items.Connections()))
	}
	if h.saves != 1 {
		t.Errorf("persisted %d times, want 1", h.saves)
	}
	if _, ok := h.emitter.last(EventItemsChanged); !ok {
		t.Error("frontend was not notified")
	}
}

func TestProposeTasks_BadJSON(t *testing.T) {
	h := newHarness(t, true)
	if _, err := h.srv.handleProposeTasks(context.Background(), call(map[string]any{"tasks": "{"})); err == nil {
		t.Error("expected parse error")
	}
	if h.saves != 0 {
		t.Error("failed call should not persist")
	}
}

func TestListItems_Filters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	if _, err := h.srv.handleProposeTasks(ctx, call(map[string]any{
		"tasks": `[{"content":"Write docs"},{"content":"Ship release","status":"done"}]`,
	})); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		args map[string]any
		want int
	}{
		{map[string]any{}, 2},
		{map[string]any{"status": "done"}, 1},
		{map[string]any{"query": "DOCS"}, 1},
		{map[string]any{"badge": "webview"}, 0},
	}
	for _, tc := range cases {
		res, err := h.srv.handleListItems(ctx, call(tc.args))
		if err != nil {
			t.Fatal(err)
		}
		var got []itemSummary
		if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != tc.want {
			t.Errorf("list_items %v = %d, want %d", tc.args, len(got), tc.want)
		}
	}
}

func TestApplyLayoutAndConnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.srv.handleProposeTasks(ctx, call(map[string]any{"tasks": `[{"content":"a"},{"content":"b"}]`}))
	items := h.items.Items()
	a, b := items[0], items[1]

	res, err := h.srv.handleApplyLayout(ctx, call(map[string]any{
		"placements": `[{"itemId":"` + a.ID + `","x":1000,"y":500},{"itemId":"nope","x":0,"y":0}]`,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "Moved 1 of 2 cards" {
		t.Errorf("apply_layout = %q", got)
	}
	if moved, _ := h.items.Get(a.ID); moved.X != 1000 || moved.Y != 500 {
		t.Errorf("a at (%v,%v)", moved.X, moved.Y)
	}

	if _, err := h.srv.handleConnectItems(ctx, call(map[string]any{"fromId": a.ID, "toId": b.ID, "label": "then"})); err != nil {
		t.Fatalf("connect_items: %v", err)
	}
	if _, err := h.srv.handleConnectItems(ctx, call(map[string]any{"fromId": b.ID, "toId": a.ID})); err == nil {
		t.Error("reverse duplicate connection should fail")
	}
}

func TestSetStatus_Validates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.srv.handleProposeTasks(ctx, call(map[string]any{"tasks": `[{"content":"a"}]`}))
	id := h.items.Items()[0].ID

	if _, err := h.srv.handleSetStatus(ctx, call(map[string]any{"itemId": id, "status": "blocked"})); err == nil {
		t.Error("unknown status accepted")
	}
	if _, err := h.srv.handleSetStatus(ctx, call(map[string]any{"itemId": id, "status": "done"})); err != nil {
		t.Fatal(err)
	}
	if it, _ := h.items.Get(id); it.Status != "done" {
		t.Errorf("status = %q", it.Status)
	}
}

func TestDeleteItems_WaitsForApproval(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	h.srv.handleProposeTasks(ctx, call(map[string]any{"tasks": `[{"content":"a"},{"content":"b"}]`}))
	ids := []string{h.items.Items()[0].ID}

	done := make(chan string, 1)
	go func() {
		res, err := h.srv.handleDeleteItems(ctx, call(map[string]any{"itemIds": ids[0]}))
		if err != nil {
			done <- err.Error()
			return
		}
		done <- res.Content[0].(mcp.TextContent).Text
	}()

	var pending []string
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); time.Sleep(5 * time.Millisecond) {
		_, emitted := h.emitter.last(EventApprovalRequired)
		if pending = h.srv.approval.Pending(); emitted && len(pending) == 1 {
			break
		}
	}
	if len(pending) != 1 {
		t.Fatal("approval was never requested")
	}
	data, _ := h.emitter.last(EventApprovalRequired)
	if pa, ok := data.(PendingAction); !ok || pa.ItemIDs[0] != ids[0] {
		t.Errorf("approval payload = %+v", data)
	}
	if h.items.Len() != 2 {
		t.Fatal("deleted before approval")
	}

	h.srv.Approve(pending[0])
	if got := <-done; !strings.HasPrefix(got, "Deleted 1") {
		t.Errorf("delete_items = %q", got)
	}
	if h.items.Len() != 1 {
		t.Errorf("store has %d items, want 1", h.items.Len())
	}
}

func TestDeleteItems_Rejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	h.srv.handleProposeTasks(ctx, call(map[string]any{"tasks": `[{"content":"a"}]`}))
	id := h.items.Items()[0].ID

	go func() {
		for {
			if p := h.srv.approval.Pending(); len(p) > 0 {
				h.srv.Reject(p[0])
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	res, err := h.srv.handleDeleteItems(ctx, call(map[string]any{"itemIds": `["` + id + `"]`}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "Action rejected by user" {
		t.Errorf("result = %q", got)
	}
	if h.items.Len() != 1 {
		t.Error("rejected delete removed the card")
	}
}

func TestResources(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.srv.handleProposeTasks(ctx, call(map[string]any{"tasks": `[{"content":"a"}]`}))
	id := h.items.Items()[0].ID

	var req mcp.ReadResourceRequest
	req.Params.URI = boardURI
	contents, err := h.srv.handleBoardResource(ctx, req)
	if err != nil || len(contents) != 1 {
		t.Fatalf("board resource = %v, %v", contents, err)
	}
	if text := contents[0].(mcp.TextResourceContents).Text; !strings.Contains(text, id) {
		t.Error("board resource does not list the card")
	}

	req.Params.URI = itemURIPrefix + id
	if _, err := h.srv.handleItemResource(ctx, req); err != nil {
		t.Errorf("item resource: %v", err)
	}
	req.Params.URI = itemURIPrefix + "missing"
	if _, err := h.srv.handleItemResource(ctx, req); err == nil {
		t.Error("missing item should fail")
	}
}

func TestSplitIDs(t *testing.T) {
	cases := map[string][]string{
		"":           nil,
		"a, b,,c":    {"a", "b", "c"},
		`["x","y"]`:  {"x", "y"},
		"  single  ": {"single"},
	}
	for in, want := range cases {
		got, err := splitIDs(in)
		if err != nil {
			t.Fatalf("splitIDs(%q): %v", in, err)
		}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("splitIDs(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := splitIDs("[broken"); err == nil {
		t.Error("expected error for broken JSON")
	}
}
