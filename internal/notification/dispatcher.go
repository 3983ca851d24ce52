// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/ledger"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

var errNoAddress = errors.New("author has no email address")

// Ledger is the delivery record store. *ledger.Ledger implements it.
type Ledger interface {
	Get(ctx context.Context, contestID, authorID string) (*ledger.Record, error)
	RecordAttempt(ctx context.Context, contestID, authorID, kind string, sendErr error) (*ledger.Record, error)
	MarkPending(ctx context.Context, contestID string) error
	ClearPending(ctx context.Context, contestID string) error
	PendingContests(ctx context.Context) ([]string, error)
}

// UserDirectory resolves author addresses.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// ContestSource loads contests for pending retries.
type ContestSource interface {
	GetContest(ctx context.Context, id string) (*models.Contest, error)
}

// Report summarizes one delivery pass over a contest.
type Report struct {
	Sent      int
	Failed    int
	Skipped   int
	Exhausted int
}

// Done reports whether nothing is left to retry.
func (r Report) Done() bool {
	return r.Failed == 0
}

// Dispatcher sends one result message per distinct author of a closed
// contest.
type Dispatcher struct {
	ledger      Ledger
	users       UserDirectory
	sender      Sender
	composer    *Composer
	maxAttempts int
	logger      zerolog.Logger
}

// NewDispatcher creates a Dispatcher. maxAttempts < 1 means a single attempt.
func NewDispatcher(l Ledger, users UserDirectory, sender Sender, composer *Composer, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if composer == nil {
		composer = NewComposer("")
	}
	return &Dispatcher{
		ledger:      l,
		users:       users,
		sender:      sender,
		composer:    composer,
		maxAttempts: maxAttempts,
		logger:      logging.WithComponent("notification"),
	}
}

// NotifyContestClosed delivers results for c. Per-recipient failures are
// logged and left pending for a later retry; only a ledger that cannot be
// written is reported as an error.
func (d *Dispatcher) NotifyContestClosed(ctx context.Context, c *models.Contest, winners []models.RecipeSnapshot) error {
	_, err := d.Deliver(ctx, c, winners)
	return err
}

// Deliver is NotifyContestClosed returning the per-recipient tally.
func (d *Dispatcher) Deliver(ctx context.Context, c *models.Contest, winners []models.RecipeSnapshot) (Report, error) {
	var report Report
	log := d.logger.With().Str("contest_id", c.ID).Logger()

	if err := d.ledger.MarkPending(ctx, c.ID); err != nil {
		return report, fmt.Errorf("mark contest pending: %w", err)
	}

	for _, authorID := range distinctAuthors(c.Recipes) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		switch d.deliverOne(ctx, log, c, winners, authorID) {
		case resultSent:
			report.Sent++
		case resultSkipped:
			report.Skipped++
		case resultExhausted:
			report.Exhausted++
		default:
			report.Failed++
		}
	}

	if report.Done() {
		if err := d.ledger.ClearPending(ctx, c.ID); err != nil {
			return report, fmt.Errorf("clear contest pending: %w", err)
		}
	}

	log.Info().
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("exhausted", report.Exhausted).
		Msg("contest results dispatched")
	return report, nil
}

type result int

const (
	resultSent result = iota
	resultFailed
	resultSkipped
	resultExhausted
)

func (d *Dispatcher) deliverOne(ctx context.Context, log zerolog.Logger, c *models.Contest,
	winners []models.RecipeSnapshot, authorID string) result {
	log = log.With().Str("author_id", authorID).Logger()

	rec, err := d.ledger.Get(ctx, c.ID, authorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read notification ledger")
		return resultFailed
	}
	if rec.Delivered() {
		metrics.RecordNotification(rec.Kind, "skipped", 0)
		return resultSkipped
	}
	if rec != nil && rec.Attempts >= d.maxAttempts {
		return resultExhausted
	}

	author, err := d.users.GetUser(ctx, authorID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load author")
		return resultFailed
	}

	var (
		msg     Message
		sendErr error
		start   = time.Now()
	)
	switch {
	case author == nil || author.Email == "":
		msg.Kind = kindFor(winners, authorID)
		sendErr = errNoAddress
	default:
		msg = d.composer.Compose(c, winners, author)
		sendErr = d.sender.Send(ctx, msg)
	}

	rec, err = d.ledger.RecordAttempt(ctx, c.ID, authorID, msg.Kind, sendErr)
	if err != nil {
		log.Error().Err(err).Msg("failed to record notification attempt")
		return resultFailed
	}

	if sendErr != nil {
		metrics.RecordNotification(msg.Kind, "failed", time.Since(start))
		log.Warn().Err(sendErr).Int("attempts", rec.Attempts).Str("kind", msg.Kind).Msg("notification failed")
		if rec.Attempts >= d.maxAttempts {
			return resultExhausted
		}
		return resultFailed
	}

	metrics.RecordNotification(msg.Kind, "sent", time.Since(start))
	log.Debug().Str("kind", msg.Kind).Msg("notification sent")
	return resultSent
}

// RetryPending re-runs delivery for every contest still marked pending.
// It returns the number of contests that are now fully handled.
func (d *Dispatcher) RetryPending(ctx context.Context, contests ContestSource) (int, error) {
	ids, err := d.ledger.PendingContests(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending contests: %w", err)
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		c, err := contests.GetContest(ctx, id)
		if err != nil {
			d.logger.Error().Err(err).Str("contest_id", id).Msg("failed to load pending contest")
			continue
		}
		if c == nil || !c.IsClosed {
			if err := d.ledger.ClearPending(ctx, id); err != nil {
				d.logger.Error().Err(err).Str("contest_id", id).Msg("failed to clear stale pending flag")
			}
			continue
		}
		report, err := d.Deliver(ctx, c, c.Winners)
		if err != nil {
			d.logger.Error().Err(err).Str("contest_id", id).Msg("pending delivery failed")
			continue
		}
		if report.Done() {
			done++
		}
	}
	return done, nil
}

func distinctAuthors(entries []models.RecipeSnapshot) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.AuthorID == "" || seen[e.AuthorID] {
			continue
		}
		seen[e.AuthorID] = true
		out = append(out, e.AuthorID)
	}
	return out
}

func kindFor(winners []models.RecipeSnapshot, authorID string) string {
	for _, w := range winners {
		if w.AuthorID == authorID {
			return KindWinner
		}
	}
	if len(winners) == 0 {
		return KindNoWinner
	}
	return KindParticipant
}
