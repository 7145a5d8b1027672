package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	boardURI      = "workspace://board"
	itemURIPrefix = "workspace://item/"
)

func (s *Server) registerResources() {
	// ── workspace://board ──────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		boardURI,
		"Open Board",
		mcp.WithResourceDescription("Items, connections and viewport of the board open in the workspace"),
		mcp.WithMIMEType("application/json"),
	), s.handleBoardResource)

	// ── workspace://item/{itemId} ──────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			itemURIPrefix+"{itemId}",
			"Card",
		),
		s.handleItemResource,
	)
}

func (s *Server) handleBoardResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(s.boards.State(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal board: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleItemResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := itemIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract itemId from URI: %s", uri)
	}
	it, ok := s.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("item %s not found", id)
	}
	data, err := json.MarshalIndent(it, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// itemIDFromURI extracts the id from "workspace://item/{id}".
func itemIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, itemURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
