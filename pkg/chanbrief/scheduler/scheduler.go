// Package scheduler implements the daily firing loop for the digest
// pipeline: compute the next occurrence of the target local time, wait
// interruptibly, run one pipeline pass, and repeat. The fire time is an
// explicit computed instant rather than a recurring-timer callback, so
// cancellation and catch-up-after-restart semantics stay explicit and
// testable.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// dateLayout is the calendar-date form of LastFiredDate.
const dateLayout = "2006-01-02"

// State is the process-wide schedule state. It has a single writer: the
// scheduler's own loop goroutine. LastFiredDate is the sole invariant
// guarding against double-firing within the same calendar day.
type State struct {
	Timezone     *time.Location
	TargetHour   int
	TargetMinute int

	// LastFiredDate is the YYYY-MM-DD date (in Timezone) of the last
	// completed run, or empty if the scheduler has never fired.
	LastFiredDate string
}

// StateStore persists the schedule state across restarts so the catch-up
// policy can tell a missed day from a normal overnight wait.
type StateStore interface {
	Load() (lastFiredDate string, err error)
	Save(lastFiredDate string) error
}

// RunFunc executes one pipeline pass. Success and handled failure are
// treated alike by the scheduler: both advance LastFiredDate.
type RunFunc func(ctx context.Context) error

// NextFire returns the next occurrence of hour:minute in loc strictly
// after now. If now is already past today's target time, the result is
// tomorrow's target time.
func NextFire(now time.Time, loc *time.Location, hour, minute int) time.Time {
	local := now.In(loc)
	target := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !target.After(local) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// Scheduler drives the daily loop. At most one pipeline run is in flight
// at any time; the Running state is exclusive by construction since the
// loop is a single goroutine.
type Scheduler struct {
	state State
	store StateStore
	run   RunFunc
	now   func() time.Time

	// wait is swappable so tests can fast-forward the clock instead of
	// sleeping for real.
	wait   func(ctx context.Context, d time.Duration) bool
	logger *slog.Logger
}

// New creates a Scheduler. store may be nil for a memory-only state
// (catch-up then only works within one process lifetime).
func New(state State, store StateStore, run RunFunc, logger *slog.Logger) *Scheduler {
	if state.Timezone == nil {
		state.Timezone = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		state:  state,
		store:  store,
		run:    run,
		now:    time.Now,
		logger: logger.With("component", "scheduler"),
	}
	s.wait = s.sleepUntil
	return s
}

// SetNow overrides the clock, for tests.
func (s *Scheduler) SetNow(now func() time.Time) { s.now = now }

// LastFiredDate returns the current double-fire guard value.
func (s *Scheduler) LastFiredDate() string { return s.state.LastFiredDate }

// Run executes the scheduling loop until ctx is canceled. The only way
// out is an explicit shutdown request; per-run failures never terminate
// the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.restoreState()

	s.logger.Info("scheduler started",
		"timezone", s.state.Timezone.String(),
		"target", fmt.Sprintf("%02d:%02d", s.state.TargetHour, s.state.TargetMinute),
		"last_fired", s.state.LastFiredDate,
	)

	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		}

		now := s.now()
		today := now.In(s.state.Timezone).Format(dateLayout)

		// Catch-up: a missed tick (restart, clock drift) fires once,
		// immediately, as long as today has not fired yet.
		if s.state.LastFiredDate != today && s.behindTarget(now) {
			s.fire(ctx, today)
			continue
		}

		next := NextFire(now, s.state.Timezone, s.state.TargetHour, s.state.TargetMinute)
		s.logger.Info("waiting for next fire", "at", next.Format(time.RFC3339))

		if !s.wait(ctx, next.Sub(now)) {
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		}

		fireDay := s.now().In(s.state.Timezone).Format(dateLayout)
		if s.state.LastFiredDate == fireDay {
			// Woke twice within one calendar day; never double-fire.
			continue
		}
		s.fire(ctx, fireDay)
	}
}

// behindTarget reports whether now is already past today's target time.
func (s *Scheduler) behindTarget(now time.Time) bool {
	local := now.In(s.state.Timezone)
	target := time.Date(local.Year(), local.Month(), local.Day(),
		s.state.TargetHour, s.state.TargetMinute, 0, 0, s.state.Timezone)
	return !local.Before(target)
}

// sleepUntil blocks until the duration elapses or ctx is canceled.
// Returns false on cancellation.
func (s *Scheduler) sleepUntil(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// fire executes one pipeline pass and advances LastFiredDate regardless
// of the run's outcome, so a recurring bad input cannot cause a retry
// storm. Panics are caught here so they cannot kill the loop.
func (s *Scheduler) fire(ctx context.Context, date string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("digest run panicked", "date", date, "panic", r)
		}
		s.advance(date)
	}()

	s.logger.Info("firing digest run", "date", date)
	if err := s.run(ctx); err != nil {
		s.logger.Error("digest run failed", "date", date, "error", err)
	}
}

func (s *Scheduler) advance(date string) {
	s.state.LastFiredDate = date
	if s.store == nil {
		return
	}
	if err := s.store.Save(date); err != nil {
		s.logger.Error("failed to persist schedule state", "error", err)
	}
}

// restoreState loads the persisted LastFiredDate. Load failures degrade
// to an empty state, which at worst fires one catch-up run.
func (s *Scheduler) restoreState() {
	if s.store == nil {
		return
	}
	last, err := s.store.Load()
	if err != nil {
		s.logger.Warn("failed to load schedule state, starting fresh", "error", err)
		return
	}
	if last != "" {
		if _, err := time.Parse(dateLayout, last); err != nil {
			s.logger.Warn("ignoring malformed persisted fire date", "value", last)
			return
		}
		s.state.LastFiredDate = last
	}
}
