package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("plan_project",
		mcp.WithPromptDescription("Break a goal into task cards with dependencies on the open board"),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What the project should achieve"),
			mcp.RequiredArgument(),
		),
	), s.handlePlanProjectPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("triage_board",
		mcp.WithPromptDescription("Review the cards on the board, update their status and tidy the layout"),
	), s.handleTriageBoardPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("research_links",
		mcp.WithPromptDescription("Collect reference pages for a topic as live web cards"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic to research"),
			mcp.RequiredArgument(),
		),
	), s.handleResearchLinksPrompt)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.TextContent{Type: "text", Text: text},
			},
		},
	}
}

func (s *Server) handlePlanProjectPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	goal := req.Params.Arguments["goal"]
	return userPrompt(fmt.Sprintf("Plan: %s", goal), fmt.Sprintf(`Plan the project "%s" on the open board. Follow these steps:

1. Read workspace://board (or call get_board) to see what already exists
2. Break the goal into 5 to 12 concrete tasks
3. Call propose_tasks once with all of them; use dependsOn to link each task to the tasks it needs first
4. Call arrange_items with strategy "status" so the plan reads left to right

Keep each card's content short: a title line, then one or two lines of detail.`, goal)), nil
}

func (s *Server) handleTriageBoardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt("Triage the board", `Triage the open board. Follow these steps:

1. Call list_items to read every card
2. Use set_status to move cards whose content says they are finished to done
3. Suggest duplicates to remove, but only call delete_items after listing them; the user must approve
4. Call arrange_items with strategy "status" to tidy the board`), nil
}

func (s *Server) handleResearchLinksPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return userPrompt(fmt.Sprintf("Research: %s", topic), fmt.Sprintf(`Collect reference pages about "%s". Follow these steps:

1. Pick 3 to 6 authoritative https pages
2. Call propose_tasks with one entry per page: badge "webview", url set to the page, content set to a one-line summary
3. Add a note card summarizing how the pages relate, with dependsOn pointing at each page`, topic)), nil
}
