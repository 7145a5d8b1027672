package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"workspace/internal/domain"
	"workspace/internal/webtab"
)

// ============================================================
// Web tab host bridge
// ============================================================
//
// The native views are owned by the host shell. Commands go out as Wails
// events carrying a request id; the shell answers each one with webtab:ack.
// View-initiated changes (focus, fullscreen, closed by the page) come back
// as separate events and are routed to the synchronizer.

// Outbound commands.
const (
	eventTabCreate       = "webtab:create"
	eventTabBounds       = "webtab:bounds"
	eventTabSetFull      = "webtab:set-fullscreen"
	eventTabSetVisible   = "webtab:set-visible"
	eventTabSetFocus     = "webtab:set-focus"
	eventTabUnfocus      = "webtab:unfocus"
	eventTabClose        = "webtab:close"
	eventTabCloseAll     = "webtab:close-all"
	eventTabCloseOrphans = "webtab:close-orphans"
)

// Inbound events.
const (
	eventTabAck        = "webtab:ack"
	eventTabFocus      = "webtab:focus"
	eventTabFullscreen = "webtab:fullscreen"
	eventTabClosed     = "webtab:closed"
)

var ErrHostRejected = errors.New("host rejected web tab request")

// eventBus is the subset of the Wails event runtime the bridge needs.
type eventBus interface {
	Emit(event string, data ...any)
	On(event string, fn func(data ...any)) func()
}

type wailsBus struct {
	ctx context.Context
}

func (b wailsBus) Emit(event string, data ...any) {
	wailsRuntime.EventsEmit(b.ctx, event, data...)
}

func (b wailsBus) On(event string, fn func(data ...any)) func() {
	return wailsRuntime.EventsOn(b.ctx, event, fn)
}

type hostRequest struct {
	RequestID string         `json:"requestId"`
	TabID     string         `json:"tabId,omitempty"`
	Tab       *domain.WebTab `json:"tab,omitempty"`
	Bounds    *domain.Bounds `json:"bounds,omitempty"`
	Value     *bool          `json:"value,omitempty"`
	Keep      []string       `json:"keep,omitempty"`
	Prefix    string         `json:"prefix,omitempty"`
}

type hostAck struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error,omitempty"`
	Closed    int    `json:"closed,omitempty"`
}

type tabEvent struct {
	TabID      string `json:"tabId"`
	Focused    bool   `json:"focused"`
	Fullscreen bool   `json:"fullscreen"`
}

// inboundHandler receives view-initiated changes. *webtab.Synchronizer
// implements it.
type inboundHandler interface {
	OnFocusChanged(tabID string, focused bool)
	OnFullscreenChanged(tabID string, fullscreen bool)
	OnViewClosed(tabID string)
}

// eventBridge implements webtab.Bridge over the Wails event bus.
type eventBridge struct {
	bus eventBus

	mu      sync.Mutex
	pending map[string]chan hostAck
	off     []func()
}

var _ webtab.Bridge = (*eventBridge)(nil)

func newEventBridge(bus eventBus) *eventBridge {
	b := &eventBridge{
		bus:     bus,
		pending: make(map[string]chan hostAck),
	}
	b.off = append(b.off, bus.On(eventTabAck, b.onAck))
	return b
}

// Route forwards inbound view events to h.
func (b *eventBridge) Route(h inboundHandler) {
	offFocus := b.bus.On(eventTabFocus, func(data ...any) {
		var ev tabEvent
		if decodePayload(data, &ev) == nil && ev.TabID != "" {
			h.OnFocusChanged(ev.TabID, ev.Focused)
		}
	})
	offFull := b.bus.On(eventTabFullscreen, func(data ...any) {
		var ev tabEvent
		if decodePayload(data, &ev) == nil && ev.TabID != "" {
			h.OnFullscreenChanged(ev.TabID, ev.Fullscreen)
		}
	})
	offClosed := b.bus.On(eventTabClosed, func(data ...any) {
		var ev tabEvent
		if decodePayload(data, &ev) == nil && ev.TabID != "" {
			h.OnViewClosed(ev.TabID)
		}
	})
	b.mu.Lock()
	b.off = append(b.off, offFocus, offFull, offClosed)
	b.mu.Unlock()
}

// Close unsubscribes and fails every request still waiting for an ack.
func (b *eventBridge) Close() {
	b.mu.Lock()
	off := b.off
	b.off = nil
	for id, ch := range b.pending {
		close(ch)
		delete(b.pending, id)
	}
	b.mu.Unlock()
	for _, fn := range off {
		if fn != nil {
			fn()
		}
	}
}

func (b *eventBridge) onAck(data ...any) {
	var ack hostAck
	if err := decodePayload(data, &ack); err != nil || ack.RequestID == "" {
		return
	}
	b.mu.Lock()
	ch, ok := b.pending[ack.RequestID]
	delete(b.pending, ack.RequestID)
	b.mu.Unlock()
	if ok {
		ch <- ack
	}
}

// request emits event and waits for its ack or ctx.
func (b *eventBridge) request(ctx context.Context, event string, req hostRequest) (hostAck, error) {
	req.RequestID = uuid.New().String()
	ch := make(chan hostAck, 1)

	b.mu.Lock()
	b.pending[req.RequestID] = ch
	b.mu.Unlock()

	b.bus.Emit(event, req)

	select {
	case ack, ok := <-ch:
		if !ok {
			return hostAck{}, fmt.Errorf("%s: bridge closed", event)
		}
		if ack.Error != "" {
			return ack, fmt.Errorf("%s: %w: %s", event, ErrHostRejected, ack.Error)
		}
		return ack, nil
	case <-ctx.Done():
		b.mu.Lock()
		delete(b.pending, req.RequestID)
		b.mu.Unlock()
		return hostAck{}, fmt.Errorf("%s: %w", event, ctx.Err())
	}
}

func (b *eventBridge) CreateView(ctx context.Context, tab domain.WebTab) error {
	_, err := b.request(ctx, eventTabCreate, hostRequest{TabID: tab.ID, Tab: &tab})
	return err
}

func (b *eventBridge) UpdateViewBounds(ctx context.Context, tabID string, bounds domain.Bounds) error {
	_, err := b.request(ctx, eventTabBounds, hostRequest{TabID: tabID, Bounds: &bounds})
	return err
}

func (b *eventBridge) SetViewFullscreen(ctx context.Context, tabID string, fullscreen bool) error {
	_, err := b.request(ctx, eventTabSetFull, hostRequest{TabID: tabID, Value: &fullscreen})
	return err
}

func (b *eventBridge) SetViewVisible(ctx context.Context, tabID string, visible bool) error {
	_, err := b.request(ctx, eventTabSetVisible, hostRequest{TabID: tabID, Value: &visible})
	return err
}

func (b *eventBridge) FocusView(ctx context.Context, tabID string) error {
	_, err := b.request(ctx, eventTabSetFocus, hostRequest{TabID: tabID})
	return err
}

func (b *eventBridge) UnfocusViews(ctx context.Context) error {
	_, err := b.request(ctx, eventTabUnfocus, hostRequest{})
	return err
}

func (b *eventBridge) CloseView(ctx context.Context, tabID string) error {
	_, err := b.request(ctx, eventTabClose, hostRequest{TabID: tabID})
	return err
}

func (b *eventBridge) CloseAllViews(ctx context.Context) error {
	_, err := b.request(ctx, eventTabCloseAll, hostRequest{Prefix: domain.WebTabPrefix})
	return err
}

func (b *eventBridge) CloseOrphanedViews(ctx context.Context, keep []string) (int, error) {
	ack, err := b.request(ctx, eventTabCloseOrphans, hostRequest{Keep: keep, Prefix: domain.WebTabPrefix})
	if err != nil {
		return 0, err
	}
	return ack.Closed, nil
}

// decodePayload converts the first event argument into v. Frontend events
// arrive as generic maps, so the value is round-tripped through JSON.
func decodePayload(data []any, v any) error {
	if len(data) == 0 {
		return errors.New("empty event payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
