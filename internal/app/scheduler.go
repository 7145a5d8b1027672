package app

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// scheduledJob is a periodic background task. An empty spec disables it.
type scheduledJob struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// scheduler runs the autosave and orphan sweep jobs on cron specs from the
// config file. Restart rebuilds the cron instance after a config reload.
type scheduler struct {
	mu   sync.Mutex
	cron *cron.Cron
}

// Restart stops the current schedule and starts jobs, returning how many
// were scheduled. Invalid specs are logged and skipped.
func (s *scheduler) Restart(ctx context.Context, jobs []scheduledJob) int {
	s.Stop()

	c := cron.New()
	n := 0
	for _, j := range jobs {
		spec := strings.TrimSpace(j.spec)
		if spec == "" {
			continue
		}
		job := j
		_, err := c.AddFunc(spec, func() {
			if ctx.Err() != nil {
				return
			}
			if err := job.run(ctx); err != nil {
				log.Printf("scheduler: %s failed: %v", job.name, err)
			}
		})
		if err != nil {
			log.Printf("scheduler: invalid expression %q for %s: %v", spec, j.name, err)
			continue
		}
		n++
	}
	if n == 0 {
		return 0
	}
	c.Start()

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	log.Printf("scheduler: scheduled %d job(s)", n)
	return n
}

// Stop halts the schedule without waiting for running jobs.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}
