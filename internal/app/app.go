package app

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"workspace/internal/canvas"
	"workspace/internal/config"
	"workspace/internal/domain"
	"workspace/internal/interact"
	"workspace/internal/layout"
	mcpserver "workspace/internal/mcp"
	"workspace/internal/secret"
	"workspace/internal/service"
	"workspace/internal/webtab"
)

const shutdownTimeout = 5 * time.Second

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfgPath string

	mu      sync.Mutex
	cfg     config.Config
	windowW int
	windowH int

	watcher *config.Watcher
	stores  persistence

	items   *canvas.Store
	history *canvas.History
	engine  *interact.Engine
	bridge  *eventBridge
	tabs    *webtab.Synchronizer

	boards *service.BoardService
	edits  *service.ItemService
	intake *service.ContentIntake
	window *service.WindowSettingsService

	mcp     *mcpserver.Server
	mcpHTTP *server.StreamableHTTPServer

	sched      scheduler
	boardWatch *boardWatcher
}

// New creates a new App reading its settings from cfgPath (the default
// location when empty).
func New(cfgPath string) *App {
	return &App{cfgPath: cfgPath}
}

// frontendEmitter implements service.EventEmitter over Wails events.
type frontendEmitter struct {
	ctx context.Context
}

func (e frontendEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "[Config] %v; using defaults", err)
		cfg = config.Default()
	}
	a.cfg = cfg

	stores, err := openStores(ctx, cfg, secret.Default())
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open storage: %v", err)
		return
	}
	a.stores = stores

	emitter := frontendEmitter{ctx: ctx}

	// Canvas core
	a.items = canvas.NewStore()
	a.history = canvas.NewHistory(a.items, cfg.Canvas.HistoryCapacity)
	a.engine = interact.NewEngine(a.items, a.history)
	a.engine.SetGrid(interact.GridPolicy{Enabled: cfg.Canvas.SnapToGrid, Size: cfg.Canvas.GridSize})

	// Native web tabs: host commands go out as events, acks and
	// view-initiated changes come back the same way.
	a.bridge = newEventBridge(wailsBus{ctx: ctx})
	a.tabs = webtab.NewSynchronizer(a.bridge, nil, webtab.Options{
		Projector: webtab.Projector{
			HeaderHeight: cfg.WebTab.HeaderHeight,
			ChromeX:      cfg.WebTab.ChromeOffsetX,
			ChromeY:      cfg.WebTab.ChromeOffsetY,
		},
		HostTimeout: cfg.HostTimeout(),
		Logger:      runtimeLogger{ctx: ctx},
		OnChange: func(tab domain.WebTab, phase webtab.Phase) {
			emitter.Emit(ctx, service.EventWebTabState, newWebTabView(tab, phase))
		},
	})
	a.bridge.Route(a.tabs)
	a.items.Subscribe(a.tabs)
	a.engine.OnViewportChange(func(vp canvas.Viewport) {
		a.tabs.SetViewport(vp)
		emitter.Emit(ctx, eventViewportChanged, vp.Domain())
	})

	// Services
	placer := layout.NewEngine().WithGrid(cfg.Canvas.GridSize)
	a.boards = service.NewBoardService(stores.boards, a.items, a.history, a.engine, emitter)
	a.edits = service.NewItemService(a.items, a.history, placer, emitter)
	a.intake = service.NewContentIntake(a.items, a.history, placer, emitter)
	a.window = service.NewWindowSettingsService(stores.settings)

	size := a.window.LoadWindowSize(ctx)
	a.windowW, a.windowH = size.Width, size.Height
	a.tabs.SetWindowSize(size.Width, size.Height)
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	if err := a.boards.Load(ctx); err != nil {
		wailsRuntime.LogErrorf(ctx, "[Board] %v", err)
	}

	go a.engine.Run(runCtx, cfg.FrameInterval())

	// Agents reach the open board through the in-process MCP server, so
	// destructive tools prompt the user via the approval events.
	a.mcp = mcpserver.New(runCtx, mcpserver.Deps{
		Emitter: emitter,
		Items:   a.items,
		Boards:  a.boards,
		Edits:   a.edits,
		Intake:  a.intake,
	})
	if cfg.MCP.Listen != "" {
		a.mcpHTTP = a.mcp.ListenHTTP(cfg.MCP.Listen)
	}

	a.restartSchedule(runCtx, cfg)

	a.boardWatch = newBoardWatcher(runCtx, a.boards, func() {
		wailsRuntime.LogInfof(ctx, "[Board] reloaded after external change")
	})
	a.boardWatch.Start()

	if path, err := config.ResolvePath(a.cfgPath); err == nil {
		w, err := config.Watch(path, func(next config.Config) { a.applyConfig(runCtx, next) })
		if err != nil {
			wailsRuntime.LogErrorf(ctx, "[Config] watch %s: %v", path, err)
		} else {
			a.watcher = w
		}
	}
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.boardWatch != nil {
		a.boardWatch.Stop()
	}
	a.sched.Stop()

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if a.mcpHTTP != nil {
		if err := a.mcpHTTP.Shutdown(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "[MCP] shutdown: %v", err)
		}
	}
	if a.boards != nil {
		if _, err := a.boards.Autosave(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "[Board] final save: %v", err)
		}
	}
	if a.window != nil {
		a.mu.Lock()
		w, h := a.windowW, a.windowH
		a.mu.Unlock()
		if w > 0 && h > 0 {
			if err := a.window.SaveWindowSize(ctx, w, h); err != nil {
				wailsRuntime.LogErrorf(ctx, "[Window] %v", err)
			}
		}
	}
	if a.tabs != nil {
		if err := a.tabs.Drain(ctx); err != nil {
			wailsRuntime.LogErrorf(ctx, "[WebTab] drain: %v", err)
		}
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	if err := a.stores.Close(); err != nil {
		wailsRuntime.LogErrorf(ctx, "[Storage] close: %v", err)
	}
}

// ── Config ─────────────────────────────────────────────────

// applyConfig takes the settings that can change while running. Storage,
// history capacity and the MCP listen address need a restart.
func (a *App) applyConfig(ctx context.Context, cfg config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.engine.SetGrid(interact.GridPolicy{Enabled: cfg.Canvas.SnapToGrid, Size: cfg.Canvas.GridSize})
	a.tabs.SetChromeOffset(cfg.WebTab.ChromeOffsetX, cfg.WebTab.ChromeOffsetY)
	a.restartSchedule(ctx, cfg)

	wailsRuntime.LogInfof(a.ctx, "[Config] reloaded")
	wailsRuntime.EventsEmit(a.ctx, eventConfigReloaded, a.settingsView(cfg))
}

func (a *App) restartSchedule(ctx context.Context, cfg config.Config) {
	a.sched.Restart(ctx, []scheduledJob{
		{
			name: "autosave",
			spec: cfg.Schedule.Autosave,
			run: func(ctx context.Context) error {
				_, err := a.boards.Autosave(ctx)
				return err
			},
		},
		{
			name: "orphan sweep",
			spec: cfg.Schedule.OrphanSweep,
			run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.HostTimeout())
				defer cancel()
				_, err := a.tabs.SweepOrphans(ctx)
				return err
			},
		},
	})
}

func (a *App) settingsView(cfg config.Config) SettingsView {
	return SettingsView{
		GridSize:     cfg.Canvas.GridSize,
		SnapToGrid:   cfg.Canvas.SnapToGrid,
		HeaderHeight: cfg.WebTab.HeaderHeight,
		MCPListen:    cfg.MCP.Listen,
	}
}

// GetSettings returns the settings the frontend renders with.
func (a *App) GetSettings() SettingsView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settingsView(a.cfg)
}

// ============================================================
// MCP approvals
// ============================================================

func (a *App) ApproveAction(actionID string) {
	a.mcp.Approve(actionID)
}

func (a *App) RejectAction(actionID string) {
	a.mcp.Reject(actionID)
}
