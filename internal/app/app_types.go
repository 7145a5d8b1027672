package app

import (
	"workspace/internal/domain"
	"workspace/internal/webtab"
)

// Events emitted by the app layer itself.
const (
	eventViewportChanged = "viewport:changed"
	eventConfigReloaded  = "config:reloaded"
)

// WebTabView is the frontend view of a native web tab and its lifecycle
// phase.
type WebTabView struct {
	domain.WebTab
	Phase string `json:"phase"`
}

func newWebTabView(tab domain.WebTab, phase webtab.Phase) WebTabView {
	return WebTabView{WebTab: tab, Phase: phase.String()}
}

// SettingsView is the subset of the config file the frontend renders with.
type SettingsView struct {
	GridSize     float64 `json:"gridSize"`
	SnapToGrid   bool    `json:"snapToGrid"`
	HeaderHeight float64 `json:"headerHeight"`
	MCPListen    string  `json:"mcpListen"`
}
