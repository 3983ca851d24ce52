// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package scheduler runs the daily contest closer.
//
// Once per day, at local midnight in the configured zone, the closer:
//   - lists contests whose window has ended and that are still open
//   - closes each one in turn through the contest service
//   - retries result notifications left pending by earlier runs
//
// Contests are processed one at a time. A failing or panicking contest is
// logged and the tick moves on to the next one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// ContestCloser is the part of the contest service the closer drives.
// *contest.Service implements it.
type ContestCloser interface {
	DueForClosing(ctx context.Context) ([]models.Contest, error)
	DetermineWinners(ctx context.Context, contestID string, topN int) ([]models.RecipeSnapshot, error)
}

// PendingRetrier replays undelivered notifications and returns how many
// contests are now fully handled.
type PendingRetrier func(ctx context.Context) (int, error)

// Result values recorded per contest.
const (
	ResultClosed = "closed"
	ResultEmpty  = "empty"
	ResultError  = "error"
)

// TickReport summarizes one pass.
type TickReport struct {
	Closed  int
	Empty   int
	Failed  int
	Retried int
}

// Closer closes finished contests on a daily schedule.
type Closer struct {
	contests ContestCloser
	retry    PendingRetrier
	cfg      config.SchedulerConfig
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger

	// tickMu serializes ticks started by the loop and by RunNow.
	tickMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Closer.
type Option func(*Closer)

// WithPendingRetry sets the notification retry hook run after each tick.
func WithPendingRetry(fn PendingRetrier) Option {
	return func(c *Closer) { c.retry = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Closer) { c.now = now }
}

// NewCloser creates a Closer. An unknown cfg.Location is an error.
func NewCloser(contests ContestCloser, cfg config.SchedulerConfig, opts ...Option) (*Closer, error) {
	loc := time.Local
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("load scheduler location %q: %w", cfg.Location, err)
		}
		loc = l
	}
	if cfg.ContestTimeout <= 0 {
		cfg.ContestTimeout = 2 * time.Minute
	}

	c := &Closer{
		contests: contests,
		cfg:      cfg,
		loc:      loc,
		now:      time.Now,
		logger:   logging.WithComponent("contest-scheduler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins the scheduler loop. The loop ends on Stop or when ctx is
// canceled; either way the closer can be started again afterwards.
func (c *Closer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	c.running = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	c.stopCh, c.doneCh = stopCh, doneCh
	c.mu.Unlock()

	if !c.cfg.Enabled {
		c.logger.Info().Msg("contest scheduler disabled")
		go func() {
			defer c.finish(doneCh)
			select {
			case <-stopCh:
			case <-ctx.Done():
			}
		}()
		return nil
	}

	c.logger.Info().
		Str("location", c.loc.String()).
		Bool("run_on_startup", c.cfg.RunOnStartup).
		Time("next_run", c.NextRun()).
		Msg("starting contest scheduler")

	go c.run(ctx, stopCh, doneCh)
	return nil
}

// Stop stops the loop and waits for an in-flight tick to finish.
func (c *Closer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	stopCh, doneCh := c.stopCh, c.doneCh
	c.mu.Unlock()

	close(stopCh)
	<-doneCh

	c.logger.Info().Msg("contest scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (c *Closer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// finish marks the loop that owns doneCh as stopped. A loop superseded by a
// later Start leaves the newer state alone.
func (c *Closer) finish(doneCh chan struct{}) {
	c.mu.Lock()
	if c.doneCh == doneCh {
		c.running = false
	}
	c.mu.Unlock()
	close(doneCh)
}

func (c *Closer) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer c.finish(doneCh)

	if c.cfg.RunOnStartup {
		c.RunNow(ctx)
	}

	for {
		timer := time.NewTimer(c.NextRun().Sub(c.now()))
		select {
		case <-timer.C:
			c.RunNow(ctx)
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info().Msg("contest scheduler context canceled")
			return
		}
	}
}

// NextRun is the next local midnight after now.
func (c *Closer) NextRun() time.Time {
	return nextMidnight(c.now(), c.loc)
}

func nextMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// RunNow performs one tick immediately.
func (c *Closer) RunNow(ctx context.Context) TickReport {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	start := time.Now()
	var report TickReport

	due, err := c.contests.DueForClosing(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to list contests due for closing")
	}
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		switch c.process(ctx, &due[i]) {
		case ResultClosed:
			report.Closed++
		case ResultEmpty:
			report.Empty++
		default:
			report.Failed++
		}
	}

	if c.retry != nil && ctx.Err() == nil {
		n, err := c.retry(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to retry pending notifications")
		}
		report.Retried = n
	}

	metrics.RecordSchedulerTick(time.Since(start))
	c.logger.Info().
		Int("due", len(due)).
		Int("closed", report.Closed).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Int("notifications_retried", report.Retried).
		Dur("duration", time.Since(start)).
		Msg("contest scheduler tick complete")
	return report
}

// process closes one contest under its own timeout. A panic is turned into
// an error result.
func (c *Closer) process(parent context.Context, ct *models.Contest) (result string) {
	log := c.logger.With().Str("contest_id", ct.ID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic while closing contest")
			result = ResultError
		}
		metrics.SchedulerContestsProcessed.WithLabelValues(result).Inc()
	}()

	if len(ct.Recipes) == 0 {
		log.Debug().Msg("contest ended without entries, leaving open")
		return ResultEmpty
	}

	ctx, cancel := context.WithTimeout(parent, c.cfg.ContestTimeout)
	defer cancel()

	winners, err := c.contests.DetermineWinners(ctx, ct.ID, 0)
	if err != nil {
		log.Error().Err(err).Msg("failed to close contest")
		return ResultError
	}
	log.Info().Int("winners", len(winners)).Msg("contest closed by scheduler")
	return ResultClosed
}
