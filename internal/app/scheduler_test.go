package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_SkipsEmptyAndInvalid(t *testing.T) {
	var s scheduler
	defer s.Stop()
	noop := func(context.Context) error { return nil }

	n := s.Restart(context.Background(), []scheduledJob{
		{name: "autosave", spec: "@every 30s", run: noop},
		{name: "sweep", spec: "", run: noop},
		{name: "broken", spec: "not a cron spec", run: noop},
	})
	if n != 1 {
		t.Errorf("scheduled %d jobs, want 1", n)
	}

	if n := s.Restart(context.Background(), []scheduledJob{{name: "off", spec: "  ", run: noop}}); n != 0 {
		t.Errorf("scheduled %d jobs, want 0", n)
	}
	if s.cron != nil {
		t.Error("cron left running with no jobs")
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	var s scheduler
	defer s.Stop()

	var runs atomic.Int32
	s.Restart(context.Background(), []scheduledJob{{
		name: "tick",
		spec: "@every 1s",
		run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}})

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Fatal("job never ran")
	}
}

func TestScheduler_CancelledContextSkipsRun(t *testing.T) {
	var s scheduler
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var runs atomic.Int32
	s.Restart(ctx, []scheduledJob{{
		name: "tick",
		spec: "@every 1s",
		run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}})
	time.Sleep(1500 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("job ran %d times after cancel", runs.Load())
	}
}
