package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule pairs a job with its cadence. A zero Every runs the job on every
// service cycle.
type Schedule struct {
	Job   Job
	Every time.Duration
}

type entry struct {
	Schedule
	lastSuccess time.Time
}

// Registry tracks jobs and when each last succeeded. A failed job stays due
// and is retried on the next cycle.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
}

func NewRegistry(schedules ...Schedule) (*Registry, error) {
	registry := &Registry{}
	for _, schedule := range schedules {
		if err := registry.Register(schedule); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Names must be unique.
func (r *Registry) Register(schedule Schedule) error {
	if schedule.Job == nil {
		return errors.New("cron job is required")
	}
	if schedule.Every < 0 {
		return fmt.Errorf("cron job %s: negative cadence", schedule.Job.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.Job.Name() == schedule.Job.Name() {
			return fmt.Errorf("cron job %s already registered", schedule.Job.Name())
		}
	}
	r.entries = append(r.entries, &entry{Schedule: schedule})
	return nil
}

// Due returns the jobs whose cadence has elapsed at now, in registration order.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, e := range r.entries {
		if e.lastSuccess.IsZero() || e.Every == 0 || !now.Before(e.lastSuccess.Add(e.Every)) {
			due = append(due, e.Job)
		}
	}
	return due
}

// MarkSucceeded restarts the cadence of the named job from at.
func (r *Registry) MarkSucceeded(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Job.Name() == name {
			e.lastSuccess = at
			return
		}
	}
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Job.Name())
	}
	return names
}
