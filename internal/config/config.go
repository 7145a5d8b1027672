// Package config loads the workspace settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"workspace/internal/storage"
)

const (
	DefaultPath    = "~/.config/workspace/config.toml"
	defaultDataDir = "~/.local/share/workspace"
)

type Config struct {
	DataDir  string   `toml:"data_dir"`
	Storage  Storage  `toml:"storage"`
	Canvas   Canvas   `toml:"canvas"`
	WebTab   WebTab   `toml:"webtab"`
	Schedule Schedule `toml:"schedule"`
	MCP      MCP      `toml:"mcp"`
}

type Storage struct {
	Driver   string `toml:"driver"` // sqlite, postgres, mysql or mongo
	DSN      string `toml:"dsn"`
	MongoURI string `toml:"mongo_uri"`
}

type Canvas struct {
	GridSize        float64 `toml:"grid_size"`
	SnapToGrid      bool    `toml:"snap_to_grid"`
	HistoryCapacity int     `toml:"history_capacity"`
	FrameIntervalMS int     `toml:"frame_interval_ms"`
}

type WebTab struct {
	HeaderHeight  float64 `toml:"header_height"`
	ChromeOffsetX float64 `toml:"chrome_offset_x"`
	ChromeOffsetY float64 `toml:"chrome_offset_y"`
	HostTimeoutMS int     `toml:"host_timeout_ms"`
}

// Schedule holds cron specs. An empty spec disables the job.
type Schedule struct {
	Autosave    string `toml:"autosave"`
	OrphanSweep string `toml:"orphan_sweep"`
}

// MCP configures the agent server run inside the GUI. An empty Listen
// address disables it; the standalone stdio server ignores it.
type MCP struct {
	Listen string `toml:"listen"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	return Config{
		DataDir: mustExpand(defaultDataDir),
		Storage: Storage{Driver: string(storage.DialectSQLite)},
		Canvas: Canvas{
			GridSize:        20,
			SnapToGrid:      false,
			HistoryCapacity: 50,
			FrameIntervalMS: 16,
		},
		WebTab: WebTab{
			HeaderHeight:  32,
			HostTimeoutMS: 5000,
		},
		Schedule: Schedule{
			Autosave:    "@every 30s",
			OrphanSweep: "@every 5m",
		},
		MCP: MCP{Listen: "127.0.0.1:7717"},
	}
}

// Load reads the file at path (DefaultPath when empty). A missing file
// yields the defaults; keys absent from the file keep their default value.
func Load(path string) (Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	def := Default()

	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	expanded, err := expandPath(c.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	c.DataDir = expanded

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = def.Storage.Driver
	case "mongo", "mongodb":
		c.Storage.Driver = "mongo"
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo driver")
		}
	default:
		if _, err := storage.ParseDialect(c.Storage.Driver); err != nil {
			return fmt.Errorf("storage.driver: %w", err)
		}
	}

	if c.Canvas.GridSize <= 0 {
		c.Canvas.GridSize = def.Canvas.GridSize
	}
	if c.Canvas.HistoryCapacity <= 0 {
		c.Canvas.HistoryCapacity = def.Canvas.HistoryCapacity
	}
	if c.Canvas.FrameIntervalMS <= 0 {
		c.Canvas.FrameIntervalMS = def.Canvas.FrameIntervalMS
	}
	if c.WebTab.HeaderHeight < 0 {
		c.WebTab.HeaderHeight = 0
	}
	c.MCP.Listen = strings.TrimSpace(c.MCP.Listen)
	if c.WebTab.HostTimeoutMS <= 0 {
		c.WebTab.HostTimeoutMS = def.WebTab.HostTimeoutMS
	}
	return nil
}

// DatabasePath is the sqlite file used when Storage.DSN is empty.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "workspace.db")
}

func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.Canvas.FrameIntervalMS) * time.Millisecond
}

func (c Config) HostTimeout() time.Duration {
	return time.Duration(c.WebTab.HostTimeoutMS) * time.Millisecond
}

// ResolvePath expands ~ and makes path absolute, defaulting to DefaultPath.
func ResolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
