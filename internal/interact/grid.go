package interact

import "math"

// DefaultGridSize matches the frontend grid.
const DefaultGridSize = 20.0

// GridPolicy controls rounding of interactively placed geometry.
type GridPolicy struct {
	Enabled bool
	Size    float64
}

// Snap rounds v to the nearest grid unit when snapping is enabled.
func (g GridPolicy) Snap(v float64) float64 {
	if !g.Enabled || g.Size <= 0 {
		return v
	}
	return math.Round(v/g.Size) * g.Size
}
