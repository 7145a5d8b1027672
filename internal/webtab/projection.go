package webtab

import (
	"math"

	"workspace/internal/canvas"
	"workspace/internal/domain"
)

// Projector maps a card's canvas rectangle to the host-window pixel
// rectangle of its native view. HeaderHeight is the card header in canvas
// units, which the view must not cover. Chrome offsets shift the result
// from webview coordinates to host-window coordinates.
type Projector struct {
	HeaderHeight float64
	ChromeX      float64
	ChromeY      float64
}

// Project converts r under viewport vp. Sizes never go negative.
func (p Projector) Project(vp canvas.Viewport, r domain.Rect) domain.Bounds {
	s := vp.RectToScreen(r)
	header := p.HeaderHeight * vp.Scale
	return domain.Bounds{
		X:      int(math.Round(s.X + p.ChromeX)),
		Y:      int(math.Round(s.Y + header + p.ChromeY)),
		Width:  nonNegative(int(math.Round(s.Width))),
		Height: nonNegative(int(math.Round(s.Height - header))),
	}
}

// OnScreen reports whether b overlaps a window of the given size. An
// unknown window size counts as everything being on screen.
func OnScreen(b domain.Bounds, windowW, windowH int) bool {
	if b.Width <= 0 || b.Height <= 0 {
		return false
	}
	if windowW <= 0 || windowH <= 0 {
		return true
	}
	return b.X < windowW && b.X+b.Width > 0 && b.Y < windowH && b.Y+b.Height > 0
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
