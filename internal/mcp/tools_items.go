package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"workspace/internal/domain"
	"workspace/internal/service"
)

func (s *Server) registerItemTools() {
	// ── propose_tasks ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("propose_tasks",
		mcp.WithDescription("Add generated task cards to the board. Cards are placed automatically without overlapping; the whole batch is one undo step."),
		mcp.WithString("tasks",
			mcp.Description(`JSON array of {content, status?, badge?, color?, url?, width?, height?, dependsOn?}. dependsOn lists indexes of earlier tasks in the array and creates connections.`),
			mcp.Required(),
		),
	), s.handleProposeTasks)

	// ── apply_layout ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("apply_layout",
		mcp.WithDescription("Move existing cards. Unknown ids are ignored."),
		mcp.WithString("placements",
			mcp.Description("JSON array of {itemId, x, y} in canvas coordinates"),
			mcp.Required(),
		),
	), s.handleApplyLayout)

	// ── arrange_items ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_items",
		mcp.WithDescription("Tidy cards into a grid, or into one column per status"),
		mcp.WithString("strategy", mcp.Description("grid (default) or status")),
		mcp.WithString("itemIds", mcp.Description("Comma-separated or JSON array of ids (optional, defaults to all cards)")),
	), s.handleArrangeItems)

	// ── connect_items ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("connect_items",
		mcp.WithDescription("Draw a connection between two cards"),
		mcp.WithString("fromId", mcp.Description("Source card ID"), mcp.Required()),
		mcp.WithString("toId", mcp.Description("Target card ID"), mcp.Required()),
		mcp.WithString("label", mcp.Description("Connection label (optional)")),
	), s.handleConnectItems)

	// ── set_status ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_status",
		mcp.WithDescription("Change the status of a card"),
		mcp.WithString("itemId", mcp.Description("Card ID"), mcp.Required()),
		mcp.WithString("status", mcp.Description("todo, in_progress or done"), mcp.Required()),
	), s.handleSetStatus)

	// ── delete_items (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_items",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete cards and their connections. Requires user approval."),
		mcp.WithString("itemIds", mcp.Description("Comma-separated or JSON array of ids"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteItems)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleProposeTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("tasks", "")
	if raw == "" {
		return nil, fmt.Errorf("tasks is required")
	}
	var proposals []service.Proposal
	if err := parseJSON(raw, &proposals); err != nil {
		return nil, fmt.Errorf("parse tasks JSON: %w", err)
	}

	created, err := s.intake.ApplyProposals(ctx, proposals)
	if err != nil {
		return nil, fmt.Errorf("propose tasks: %w", err)
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}

	out := make([]itemSummary, len(created))
	for i, it := range created {
		out[i] = summarizeItem(it)
	}
	return jsonResult(out)
}

func (s *Server) handleApplyLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("placements", "")
	if raw == "" {
		return nil, fmt.Errorf("placements is required")
	}
	var placements []service.Placement
	if err := parseJSON(raw, &placements); err != nil {
		return nil, fmt.Errorf("parse placements JSON: %w", err)
	}

	moved := s.intake.ApplyLayout(ctx, placements)
	if moved > 0 {
		if err := s.afterWrite(ctx); err != nil {
			return nil, fmt.Errorf("save board: %w", err)
		}
	}
	return textResult(fmt.Sprintf("Moved %d of %d cards", moved, len(placements))), nil
}

func (s *Server) handleArrangeItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := splitIDs(req.GetString("itemIds", ""))
	if err != nil {
		return nil, err
	}
	moved, err := s.intake.Arrange(ctx, req.GetString("strategy", service.ArrangeGrid), ids)
	if err != nil {
		return nil, err
	}
	if moved > 0 {
		if err := s.afterWrite(ctx); err != nil {
			return nil, fmt.Errorf("save board: %w", err)
		}
	}
	return textResult(fmt.Sprintf("Arranged %d cards", moved)), nil
}

func (s *Server) handleConnectItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fromID := req.GetString("fromId", "")
	toID := req.GetString("toId", "")
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("fromId and toId are required")
	}
	conn, err := s.edits.Connect(ctx, fromID, toID, req.GetString("label", ""))
	if err != nil {
		return nil, err
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return jsonResult(conn)
}

func (s *Server) handleSetStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("itemId", "")
	status := domain.Status(req.GetString("status", ""))
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	if !s.edits.SetStatus(ctx, id, status) {
		return nil, fmt.Errorf("item %s not found", id)
	}
	if err := s.afterWrite(ctx); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return textResult(fmt.Sprintf("Item %s is now %s", id, status)), nil
}

func (s *Server) handleDeleteItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := splitIDs(req.GetString("itemIds", ""))
	if err != nil {
		return nil, err
	}
	var known []string
	for _, id := range ids {
		if _, ok := s.items.Get(id); ok {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		return nil, errors.New("no matching items")
	}

	approved, err := s.approval.Request("delete_items",
		fmt.Sprintf("Delete %d card(s)", len(known)), known)
	if err != nil || !approved {
		return textResult("Action rejected by user"), nil
	}

	n := s.edits.DeleteItems(ctx, known)
	if err := s.afterWrite(ctx); err != nil {
		return nil, fmt.Errorf("save board: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted %d card(s)", n)), nil
}
