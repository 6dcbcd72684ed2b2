// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"
)

var ErrNotStarted = errors.New("scheduler has not started")

// Task is a unit of background work. Errors are logged; they never stop
// later runs.
type Task func(ctx context.Context) error

// Scheduler runs named background tasks on cron or fixed-interval triggers.
type Scheduler struct {
	mu          sync.Mutex
	quartz      quartz.Scheduler
	started     *atomic.Bool
	stopTimeout time.Duration
	location    *time.Location
}

// New creates a Scheduler. Cron expressions are evaluated in UTC.
func New(stopTimeout time.Duration) (*Scheduler, error) {
	// quartz logs nothing itself; tasks log through slog
	qs, err := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		quartz:      qs,
		started:     atomic.NewBool(false),
		stopTimeout: stopTimeout,
		location:    time.UTC,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quartz.Start(ctx)
	s.started.Store(s.quartz.IsStarted())
	slog.Info("scheduler started")
}

// Stop clears every job and waits up to the stop timeout for running ones.
func (s *Scheduler) Stop(ctx context.Context) {
	if !s.started.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.quartz.Clear()
	s.quartz.Stop()
	s.started.Store(s.quartz.IsStarted())

	ctx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()
	s.quartz.Wait(ctx)
	slog.Info("scheduler stopped")
}

// ScheduleCron runs task whenever the seconds-resolution cron expression fires.
func (s *Scheduler) ScheduleCron(name, expression string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started.Load() {
		return ErrNotStarted
	}

	trigger, err := quartz.NewCronTriggerWithLoc(expression, s.location)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for %s: %w", expression, name, err)
	}
	detail := quartz.NewJobDetail(wrap(name, task), quartz.NewJobKey(name))
	if err := s.quartz.ScheduleJob(detail, trigger); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	slog.Info("task scheduled", "task", name, "cron", expression)
	return nil
}

// ScheduleEvery runs task at a fixed interval.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started.Load() {
		return ErrNotStarted
	}

	detail := quartz.NewJobDetail(wrap(name, task), quartz.NewJobKey(name))
	if err := s.quartz.ScheduleJob(detail, quartz.NewSimpleTrigger(interval)); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	slog.Info("task scheduled", "task", name, "every", interval)
	return nil
}

// Jobs lists the names of scheduled tasks.
func (s *Scheduler) Jobs() ([]string, error) {
	keys, err := s.quartz.GetJobKeys()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Name())
	}
	return names, nil
}

func wrap(name string, task Task) *job.FunctionJob[bool] {
	return job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		start := time.Now()
		if err := task(ctx); err != nil {
			slog.Error("scheduled task failed", "task", name, "error", err)
			return false, nil
		}
		slog.Debug("scheduled task finished", "task", name, "took", time.Since(start))
		return true, nil
	})
}
