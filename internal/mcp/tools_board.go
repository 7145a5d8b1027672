package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"workspace/internal/domain"
)

func (s *Server) registerBoardTools() {
	// ── get_board ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_board",
		mcp.WithDescription("Get the open board: items, connections, selection and viewport"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetBoard)

	// ── list_items ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List cards on the open board, optionally filtered"),
		mcp.WithString("status", mcp.Description("Filter by status: todo, in_progress, done (optional)")),
		mcp.WithString("badge", mcp.Description("Filter by badge: note, group, webview (optional)")),
		mcp.WithString("query", mcp.Description("Case-insensitive text the content must contain (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListItems)

	// ── list_boards ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List all saved boards"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListBoards)
}

// itemSummary is the compact form returned to agents.
type itemSummary struct {
	ID      string        `json:"id"`
	Badge   domain.Badge  `json:"badge"`
	Status  domain.Status `json:"status"`
	Content string        `json:"content"`
	URL     string        `json:"url,omitempty"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Width   float64       `json:"width"`
	Height  float64       `json:"height"`
}

func summarizeItem(it domain.CanvasItem) itemSummary {
	content := it.Content
	if r := []rune(content); len(r) > 200 {
		content = string(r[:200]) + "..."
	}
	return itemSummary{
		ID:      it.ID,
		Badge:   it.Badge,
		Status:  it.Status,
		Content: content,
		URL:     it.URL,
		X:       it.X,
		Y:       it.Y,
		Width:   it.Width,
		Height:  it.Height,
	}
}

func (s *Server) handleGetBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.boards.State())
}

func (s *Server) handleListItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := domain.Status(req.GetString("status", ""))
	badge := domain.Badge(req.GetString("badge", ""))
	query := strings.ToLower(req.GetString("query", ""))

	out := []itemSummary{}
	for _, it := range s.items.Items() {
		if status != "" && it.Status != status {
			continue
		}
		if badge != "" && it.Badge != badge {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Content), query) {
			continue
		}
		out = append(out, summarizeItem(it))
	}
	return jsonResult(out)
}

func (s *Server) handleListBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := s.boards.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return jsonResult(boards)
}
