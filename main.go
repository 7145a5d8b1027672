package main

import (
	"bufio"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"golang.org/x/term"

	workspaceApp "workspace/internal/app"
	"workspace/internal/config"
	"workspace/internal/secret"
)

//go:embed all:frontend/dist
var assets embed.FS

var configPath string

var rootCmd = &cobra.Command{
	Use:          "workspace",
	Short:        "Infinite canvas of notes, tasks and live web pages",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGUI(configPath)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the current board to agents over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workspaceApp.ServeMCP(configPath)
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials referenced as ${secret:key} in the config file",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store a secret read from stdin in the system keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := readSecret(cmd)
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("secret %s is empty", args[0])
		}
		return secret.NewKeychainStore().Set(cmd.Context(), args[0], []byte(value))
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a secret from the system keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return secret.NewKeychainStore().Delete(cmd.Context(), args[0])
	},
}

// readSecret prompts without echo on a terminal, otherwise reads one line
// from stdin.
func readSecret(cmd *cobra.Command) (string, error) {
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Value: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the config file")
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
	rootCmd.AddCommand(mcpCmd, secretCmd)
}

func runGUI(cfgPath string) error {
	app := workspaceApp.New(cfgPath)

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	return wails.Run(&options.App{
		Title:     "Workspace",
		Width:     1280,
		Height:    800,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			WebviewIsTransparent: false,
			WindowIsTranslucent:  false,
			About: &mac.AboutInfo{
				Title:   "Workspace",
				Message: "Canvas workspace with live web cards",
			},
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
