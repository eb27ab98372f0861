// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs named periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned for names that were never added.
var ErrJobNotFound = errors.New("job not found")

// Job is the work of one scheduled job.
type Job func(ctx context.Context) error

// JobInfo describes a registered job for display.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	LastRun  time.Time `json:"last_run"`
}

type registeredJob struct {
	name     string
	schedule string
	entryID  cron.EntryID
	run      func()
}

// Scheduler owns a cron instance and the jobs added to it.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a scheduler. Each job run gets a context bounded by timeout;
// zero means no bound.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// ValidateSchedule reports whether spec is a five-field cron expression or
// a descriptor such as "@hourly".
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Add registers job under name on the given schedule.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	run := func() {
		if err := s.execute(name, job); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	}
	entryID, err := s.cron.AddFunc(schedule, run)
	if err != nil {
		return fmt.Errorf("scheduling job %q: %w", name, err)
	}

	s.jobs[name] = &registeredJob{
		name:     name,
		schedule: schedule,
		entryID:  entryID,
		run:      run,
	}
	s.logger.Debug("registered scheduled job", "job", name, "schedule", schedule)
	return nil
}

// List returns the registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:     job.name,
			Schedule: job.schedule,
			NextRun:  entry.Next,
			LastRun:  entry.Prev,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a job synchronously outside its schedule.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "job", name)
	job.run()
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) execute(name string, job Job) error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start), "error", err)
	return err
}
