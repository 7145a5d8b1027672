package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workspace/internal/canvas"
	"workspace/internal/domain"
	"workspace/internal/layout"
)

// ─────────────────────────────────────────────────────────────
// Content Intake: generated tasks and layouts become item ops
// ─────────────────────────────────────────────────────────────

var ErrEmptyProposal = errors.New("proposal has no content")

// Proposal is one generated card. DependsOn holds indexes of earlier
// proposals in the same batch; each becomes a connection.
type Proposal struct {
	Content   string        `json:"content"`
	Status    domain.Status `json:"status,omitempty"`
	Badge     domain.Badge  `json:"badge,omitempty"`
	Color     string        `json:"color,omitempty"`
	URL       string        `json:"url,omitempty"`
	Width     float64       `json:"width,omitempty"`
	Height    float64       `json:"height,omitempty"`
	DependsOn []int         `json:"dependsOn,omitempty"`
}

// Placement moves an existing item.
type Placement struct {
	ItemID string  `json:"itemId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Arrangement strategies for Arrange.
const (
	ArrangeGrid   = "grid"
	ArrangeStatus = "status"
)

// ContentIntake applies generated content to the canvas as ordinary item
// operations. Each call is one undoable step.
type ContentIntake struct {
	items   *canvas.Store
	history *canvas.History
	layout  *layout.Engine
	emitter EventEmitter
}

func NewContentIntake(items *canvas.Store, history *canvas.History, le *layout.Engine, emitter EventEmitter) *ContentIntake {
	if le == nil {
		le = layout.NewEngine()
	}
	return &ContentIntake{items: items, history: history, layout: le, emitter: emitter}
}

// ApplyProposals validates the whole batch, then adds every card at a free
// position and links declared dependencies.
func (c *ContentIntake) ApplyProposals(ctx context.Context, proposals []Proposal) ([]domain.CanvasItem, error) {
	if len(proposals) == 0 {
		return nil, nil
	}

	pending := make([]domain.CanvasItem, len(proposals))
	for i, p := range proposals {
		if strings.TrimSpace(p.Content) == "" && p.URL == "" {
			return nil, fmt.Errorf("proposal %d: %w", i, ErrEmptyProposal)
		}
		for _, dep := range p.DependsOn {
			if dep < 0 || dep >= i {
				return nil, fmt.Errorf("proposal %d: dependency %d must reference an earlier proposal", i, dep)
			}
		}
		status := p.Status
		if status == "" {
			status = domain.StatusTodo
		}
		it, err := newItem(CreateItemRequest{
			Width:   p.Width,
			Height:  p.Height,
			Content: p.Content,
			Status:  status,
			Badge:   p.Badge,
			Color:   p.Color,
			URL:     p.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("proposal %d: %w", i, err)
		}
		pending[i] = it
	}
	c.layout.Place(c.items.Items(), pending)

	c.history.Push("generate")
	created := make([]domain.CanvasItem, 0, len(pending))
	for _, it := range pending {
		added, _ := c.items.Add(it)
		created = append(created, added)
	}
	for i, p := range proposals {
		for _, dep := range p.DependsOn {
			if _, err := c.items.Connect(created[dep].ID, created[i].ID, ""); err != nil && !errors.Is(err, canvas.ErrDuplicateConnection) {
				return created, fmt.Errorf("connect proposal %d: %w", i, err)
			}
		}
	}
	c.emit(ctx)
	return created, nil
}

// ApplyLayout moves existing items. Unknown ids are ignored; it returns
// the number of items moved.
func (c *ContentIntake) ApplyLayout(ctx context.Context, placements []Placement) int {
	pos := make(map[string]domain.Point, len(placements))
	for _, p := range placements {
		it, ok := c.items.Get(p.ItemID)
		if ok && (it.X != p.X || it.Y != p.Y) {
			pos[p.ItemID] = domain.Point{X: p.X, Y: p.Y}
		}
	}
	if len(pos) == 0 {
		return 0
	}
	c.history.Push("layout")
	n := c.items.SetPositions(pos)
	c.emit(ctx)
	return n
}

// Arrange lays out ids (all items when empty) with the named strategy,
// starting at the top-left corner of the current bounding box.
func (c *ContentIntake) Arrange(ctx context.Context, strategy string, ids []string) (int, error) {
	var targets []domain.CanvasItem
	if len(ids) == 0 {
		targets = c.items.Items()
	} else {
		for _, id := range ids {
			if it, ok := c.items.Get(id); ok {
				targets = append(targets, it)
			}
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}

	x0, y0 := targets[0].X, targets[0].Y
	for _, it := range targets[1:] {
		x0 = min(x0, it.X)
		y0 = min(y0, it.Y)
	}
	switch strategy {
	case ArrangeGrid, "":
		c.layout.ArrangeGroup(targets, x0, y0)
	case ArrangeStatus:
		c.layout.ArrangeByStatus(targets, x0, y0)
	default:
		return 0, fmt.Errorf("arrange items: unknown strategy %q", strategy)
	}

	placements := make([]Placement, len(targets))
	for i, it := range targets {
		placements[i] = Placement{ItemID: it.ID, X: it.X, Y: it.Y}
	}
	return c.ApplyLayout(ctx, placements), nil
}

func (c *ContentIntake) emit(ctx context.Context) {
	if c.emitter == nil {
		return
	}
	c.emitter.Emit(ctx, EventHistoryChanged, map[string]bool{
		"canUndo": c.history.CanUndo(),
		"canRedo": c.history.CanRedo(),
	})
}
