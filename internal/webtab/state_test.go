package webtab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"workspace/internal/canvas"
	"workspace/internal/domain"
	"workspace/internal/webtab"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		hasURL, hasTab, urlMatches bool
		want                       webtab.Action
	}{
		{false, false, false, webtab.ActionNone},
		{false, false, true, webtab.ActionNone},
		{false, true, false, webtab.ActionClose},
		{false, true, true, webtab.ActionClose},
		{true, false, false, webtab.ActionCreate},
		{true, false, true, webtab.ActionCreate},
		{true, true, true, webtab.ActionUpdate},
		{true, true, false, webtab.ActionRecreate},
	}
	for _, tt := range tests {
		if got := webtab.Decide(tt.hasURL, tt.hasTab, tt.urlMatches); got != tt.want {
			t.Errorf("Decide(%v,%v,%v) = %v, want %v", tt.hasURL, tt.hasTab, tt.urlMatches, got, tt.want)
		}
	}
}

func TestProjector_Project(t *testing.T) {
	r := domain.Rect{X: 100, Y: 100, Width: 200, Height: 100}
	tests := []struct {
		name string
		p    webtab.Projector
		vp   canvas.Viewport
		want domain.Bounds
	}{
		{"identity", webtab.Projector{}, canvas.NewViewport(), domain.Bounds{X: 100, Y: 100, Width: 200, Height: 100}},
		{"panned", webtab.Projector{}, canvas.NewViewport().Pan(50, -20), domain.Bounds{X: 150, Y: 80, Width: 200, Height: 100}},
		{"header scales", webtab.Projector{HeaderHeight: 20}, canvas.Viewport{Scale: 2}, domain.Bounds{X: 200, Y: 240, Width: 400, Height: 160}},
		{"chrome", webtab.Projector{ChromeX: 3, ChromeY: 28}, canvas.NewViewport(), domain.Bounds{X: 103, Y: 128, Width: 200, Height: 100}},
		{"header taller than card", webtab.Projector{HeaderHeight: 500}, canvas.NewViewport(), domain.Bounds{X: 100, Y: 600, Width: 200, Height: 0}},
		{"rounds", webtab.Projector{}, canvas.Viewport{X: 0.4, Y: 0.6, Scale: 1}, domain.Bounds{X: 100, Y: 101, Width: 200, Height: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Project(tt.vp, r); got != tt.want {
				t.Errorf("Project = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestOnScreen(t *testing.T) {
	tests := []struct {
		name string
		b    domain.Bounds
		w, h int
		want bool
	}{
		{"inside", domain.Bounds{X: 10, Y: 10, Width: 100, Height: 100}, 800, 600, true},
		{"partly left", domain.Bounds{X: -50, Y: 10, Width: 100, Height: 100}, 800, 600, true},
		{"fully left", domain.Bounds{X: -100, Y: 10, Width: 100, Height: 100}, 800, 600, false},
		{"below", domain.Bounds{X: 10, Y: 600, Width: 100, Height: 100}, 800, 600, false},
		{"unknown window", domain.Bounds{X: -5000, Y: 0, Width: 100, Height: 100}, 0, 0, true},
		{"zero size", domain.Bounds{X: 10, Y: 10}, 800, 600, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := webtab.OnScreen(tt.b, tt.w, tt.h); got != tt.want {
				t.Errorf("OnScreen = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_TryLockUnlock(t *testing.T) {
	g := webtab.NewGuard()
	if !g.TryLock("webtab-a") {
		t.Fatal("first TryLock should succeed")
	}
	if g.TryLock("webtab-a") {
		t.Fatal("second TryLock for the same id should fail")
	}
	if !g.TryLock("webtab-b") {
		t.Fatal("TryLock for another id should succeed")
	}
	g.Unlock("webtab-a")
	g.Unlock("webtab-a")
	if g.Held("webtab-a") {
		t.Error("webtab-a still held after unlock")
	}
	if !g.TryLock("webtab-a") {
		t.Error("TryLock after unlock should succeed")
	}
}

func TestGuard_WaitAll(t *testing.T) {
	g := webtab.NewGuard()
	g.TryLock("webtab-a")

	done := make(chan struct{})
	go func() {
		if err := g.WaitAll(context.Background()); err != nil {
			t.Errorf("WaitAll: %v", err)
		}
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("WaitAll returned while a creation was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	g.Unlock("webtab-a")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll did not return after unlock")
	}

	g.TryLock("webtab-b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.WaitAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitAll with cancelled ctx = %v, want context.Canceled", err)
	}
}
