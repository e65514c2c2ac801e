// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scheduler implements the three scheduler shapes the Scheduling
// Kernel offers the daemon's long-lived actors: continuous, interval
// (plain and immediate-start), and wall-clock. Every shape cancels
// cleanly on a stop signal observed at every tick, never blocking
// shutdown for longer than one tick (SPEC_FULL.md §4.5).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oxbow-labs/ingestord/internal/metrics"
)

// tickGranularity bounds how long any scheduler sleeps between checking
// its stop signal, so Stop() is always responsive within one tick.
const tickGranularity = 60 * time.Second

// Job is the work a scheduler invokes on each firing.
type Job func(ctx context.Context) error

// Status summarizes a scheduler's current state for health/status reporting.
type Status struct {
	Name      string
	Running   bool
	LastRun   time.Time
	LastErr   error
	NextRunAt time.Time
	RunCount  int
}

// Scheduler is the common interface all four shapes satisfy.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	RunNow()
	Status() Status
}

// base holds the state common to every scheduler shape.
type base struct {
	name string
	job  Job

	logger zerolog.Logger

	mu        sync.Mutex
	running   bool
	lastRun   time.Time
	lastErr   error
	nextRunAt time.Time
	runCount  int

	stopCh   chan struct{}
	runNowCh chan struct{}
	stopOnce sync.Once
}

func newBase(name string, job Job, logger zerolog.Logger) *base {
	return &base{
		name:     name,
		job:      job,
		logger:   logger.With().Str("component", "scheduler").Str("scheduler", name).Logger(),
		stopCh:   make(chan struct{}),
		runNowCh: make(chan struct{}, 1),
	}
}

func (b *base) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// RunNow requests an out-of-band run at the next opportunity, without
// disturbing the running schedule.
func (b *base) RunNow() {
	select {
	case b.runNowCh <- struct{}{}:
	default:
	}
}

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Name:      b.name,
		Running:   b.running,
		LastRun:   b.lastRun,
		LastErr:   b.lastErr,
		NextRunAt: b.nextRunAt,
		RunCount:  b.runCount,
	}
}

func (b *base) invoke(ctx context.Context) {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()

	metrics.RecordSchedulerTick(b.name)
	err := b.job(ctx)

	b.mu.Lock()
	b.running = false
	b.lastRun = time.Now()
	b.lastErr = err
	b.runCount++
	b.mu.Unlock()

	if err != nil {
		b.logger.Error().Err(err).Msg("scheduled job failed")
	}
}

// sleepTicked sleeps for d, split into tickGranularity chunks, returning
// early with stopped=true on stop or context cancellation, or with
// runNow=true on a run-now request.
func (b *base) sleepTicked(ctx context.Context, d time.Duration) (stopped, runNow bool) {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, false
		}
		tick := remaining
		if tick > tickGranularity {
			tick = tickGranularity
		}
		timer := time.NewTimer(tick)
		select {
		case <-ctx.Done():
			timer.Stop()
			return true, false
		case <-b.stopCh:
			timer.Stop()
			return true, false
		case <-b.runNowCh:
			timer.Stop()
			return false, true
		case <-timer.C:
		}
	}
}

// ---- Continuous ----

// continuousScheduler calls its job, waits cooldown, and repeats
// indefinitely. Lock contention (reported by the job returning
// ErrLockHeld-style errors) is the caller's concern; this scheduler simply
// keeps retrying on its own cadence.
type continuousScheduler struct {
	*base
	cooldown time.Duration
}

// NewContinuous returns a scheduler that runs job, waits cooldown, and
// repeats for as long as the process lives.
func NewContinuous(name string, job Job, cooldown time.Duration, logger zerolog.Logger) Scheduler {
	return &continuousScheduler{base: newBase(name, job, logger), cooldown: cooldown}
}

func (s *continuousScheduler) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		s.invoke(ctx)

		if stopped, _ := s.sleepTicked(ctx, s.cooldown); stopped {
			return nil
		}
	}
}

// ---- Interval ----

type intervalScheduler struct {
	*base
	interval  time.Duration
	immediate bool
}

// NewInterval returns a scheduler that sleeps interval, then runs job,
// repeating for as long as the process lives.
func NewInterval(name string, job Job, interval time.Duration, logger zerolog.Logger) Scheduler {
	return &intervalScheduler{base: newBase(name, job, logger), interval: interval}
}

// NewImmediateInterval is the supplemented fourth scheduler shape (§4.5.1):
// like NewInterval, but runs job immediately on Start rather than waiting
// one full interval first. It shares the plain interval's sleep loop, which
// already returns on stop or run-now without waiting for the next tick.
func NewImmediateInterval(name string, job Job, interval time.Duration, logger zerolog.Logger) Scheduler {
	return &intervalScheduler{base: newBase(name, job, logger), interval: interval, immediate: true}
}

func (s *intervalScheduler) Start(ctx context.Context) error {
	if s.immediate {
		s.invoke(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		s.mu.Lock()
		s.nextRunAt = time.Now().Add(s.interval)
		s.mu.Unlock()

		stopped, _ := s.sleepTicked(ctx, s.interval)
		if stopped {
			return nil
		}

		s.invoke(ctx)
	}
}

// ---- Wall-clock ----

// WallClockTarget names a daily (dayOfWeek == nil) or weekly target time.
type WallClockTarget struct {
	HourMinute string // "HH:MM"
	DayOfWeek  *time.Weekday
}

type wallClockScheduler struct {
	*base
	target WallClockTarget
	now    func() time.Time
}

// NewWallClock returns a scheduler that runs job at the next occurrence of
// target, then repeats.
func NewWallClock(name string, job Job, target WallClockTarget, logger zerolog.Logger) Scheduler {
	return &wallClockScheduler{base: newBase(name, job, logger), target: target, now: time.Now}
}

func (s *wallClockScheduler) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		wait := s.untilNext(s.now())
		s.mu.Lock()
		s.nextRunAt = s.now().Add(wait)
		s.mu.Unlock()

		stopped, runNow := s.sleepTicked(ctx, wait)
		if stopped {
			return nil
		}
		if runNow {
			s.invoke(ctx)
			continue
		}

		s.invoke(ctx)
	}
}

func (s *wallClockScheduler) untilNext(from time.Time) time.Duration {
	hour, minute := parseHourMinute(s.target.HourMinute)

	candidate := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	if s.target.DayOfWeek != nil {
		for candidate.Weekday() != *s.target.DayOfWeek || !candidate.After(from) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate.Sub(from)
	}

	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.Sub(from)
}

// parseHourMinute parses an "HH:MM" string, defaulting to midnight on any
// malformed input rather than erroring — wall-clock targets are validated
// at config-load time.
func parseHourMinute(hhmm string) (hour, minute int) {
	_, _ = fmt.Sscanf(hhmm, "%d:%d", &hour, &minute)
	return hour, minute
}
