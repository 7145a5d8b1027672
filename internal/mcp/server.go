package mcpserver

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"workspace/internal/canvas"
	"workspace/internal/service"
)

// EventItemsChanged tells the frontend that an agent edited the board.
const EventItemsChanged = "mcp:items-changed"

// Server is the MCP server for the workspace.
// It exposes tools, resources, and prompts so agents can read the board and
// deliver generated tasks and layouts as ordinary item operations.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	items  *canvas.Store
	boards *service.BoardService
	edits  *service.ItemService
	intake *service.ContentIntake

	persist func(ctx context.Context) error
	refresh func(ctx context.Context) error
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Items   *canvas.Store
	Boards  *service.BoardService
	Edits   *service.ItemService
	Intake  *service.ContentIntake

	// Persist runs after every write. The standalone server saves the board
	// here since no GUI autosave is running.
	Persist func(ctx context.Context) error

	// Refresh runs before every tool call and resource read, e.g. to pick
	// up edits another process saved.
	Refresh func(ctx context.Context) error

	// AutoApprove skips the approval prompt for destructive tools. Used when
	// there is no frontend to ask.
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = noopEmitter{}
	}
	approval := NewApprovalQueue(ctx, emitter)
	approval.autoApprove = deps.AutoApprove

	s := &Server{
		emitter:  emitter,
		approval: approval,
		items:    deps.Items,
		boards:   deps.Boards,
		edits:    deps.Edits,
		intake:   deps.Intake,
		persist:  deps.Persist,
		refresh:  deps.Refresh,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	}
	if s.refresh != nil {
		hooks := &server.Hooks{}
		hooks.AddBeforeCallTool(func(ctx context.Context, _ any, _ *mcp.CallToolRequest) {
			s.runRefresh(ctx)
		})
		hooks.AddBeforeReadResource(func(ctx context.Context, _ any, _ *mcp.ReadResourceRequest) {
			s.runRefresh(ctx)
		})
		opts = append(opts, server.WithHooks(hooks))
	}
	s.mcp = server.NewMCPServer("workspace-mcp", "1.0.0", opts...)

	s.registerBoardTools()
	s.registerItemTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCP exposes the underlying server, e.g. for in-process clients in tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ListenHTTP serves the MCP server over streamable HTTP at addr in the
// background. Stop it with Shutdown on the returned server.
func (s *Server) ListenHTTP(addr string) *server.StreamableHTTPServer {
	httpSrv := server.NewStreamableHTTPServer(s.mcp)
	go func() {
		log.Printf("[MCP] Listening on http://%s/mcp", addr)
		if err := httpSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[MCP] HTTP server error: %v", err)
		}
	}()
	return httpSrv
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// afterWrite notifies the frontend and persists the board.
func (s *Server) afterWrite(ctx context.Context) error {
	s.emitter.Emit(ctx, EventItemsChanged, map[string]int{"count": s.items.Len()})
	if s.persist == nil {
		return nil
	}
	return s.persist(ctx)
}

func (s *Server) runRefresh(ctx context.Context) {
	if err := s.refresh(ctx); err != nil {
		log.Printf("[MCP] refresh board: %v", err)
	}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, string, any) {}
