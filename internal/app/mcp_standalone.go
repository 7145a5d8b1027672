package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"workspace/internal/canvas"
	"workspace/internal/config"
	"workspace/internal/interact"
	"workspace/internal/layout"
	mcpserver "workspace/internal/mcp"
	"workspace/internal/secret"
	"workspace/internal/service"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It opens the same storage as the GUI and saves the board after every
// write; a running GUI picks the change up through its board watcher.
func ServeMCP(cfgPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	stores, err := openStores(ctx, cfg, secret.Default())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	items := canvas.NewStore()
	history := canvas.NewHistory(items, cfg.Canvas.HistoryCapacity)
	engine := interact.NewEngine(items, history)
	placer := layout.NewEngine().WithGrid(cfg.Canvas.GridSize)

	boards := service.NewBoardService(stores.boards, items, history, engine, nil)
	if err := boards.Load(ctx); err != nil {
		return err
	}

	srv := mcpserver.New(ctx, mcpserver.Deps{
		Items:  items,
		Boards: boards,
		Edits:  service.NewItemService(items, history, placer, nil),
		Intake: service.NewContentIntake(items, history, placer, nil),
		Persist: func(ctx context.Context) error {
			_, err := boards.Save(ctx)
			return err
		},
		Refresh: func(ctx context.Context) error {
			_, err := boards.CheckExternal(ctx)
			return err
		},
		// No frontend to ask.
		AutoApprove: true,
	})

	log.Printf("[MCP] Serving board %s", boards.CurrentID())
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
