package app

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/logger"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// runtimeLogger routes logger.Logger calls into the Wails runtime log so
// lower packages log through the same sink as the app layer.
type runtimeLogger struct {
	ctx context.Context
}

var _ logger.Logger = runtimeLogger{}

func (l runtimeLogger) Print(message string)   { wailsRuntime.LogPrint(l.ctx, message) }
func (l runtimeLogger) Trace(message string)   { wailsRuntime.LogTrace(l.ctx, message) }
func (l runtimeLogger) Debug(message string)   { wailsRuntime.LogDebug(l.ctx, message) }
func (l runtimeLogger) Info(message string)    { wailsRuntime.LogInfo(l.ctx, message) }
func (l runtimeLogger) Warning(message string) { wailsRuntime.LogWarning(l.ctx, message) }
func (l runtimeLogger) Error(message string)   { wailsRuntime.LogError(l.ctx, message) }
func (l runtimeLogger) Fatal(message string)   { wailsRuntime.LogFatal(l.ctx, message) }
