// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/events"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// maxCloseAttempts bounds the reload-and-recompute loop when enrollments keep
// landing during a close.
const maxCloseAttempts = 3

// DetermineWinners closes contestID and returns its winners. It is safe to
// call any number of times:
//
//   - a contest without entries is left open and yields no winners;
//   - a closed contest returns its stored winners and changes nothing;
//   - otherwise scores are recomputed from every rating, the scoreboard,
//     winners and is_closed are written in one transaction, and participants
//     are notified. An enrollment that lands between the read and the write
//     rolls the close back and the contest is reloaded.
//
// topN <= 0 uses the configured default.
func (s *Service) DetermineWinners(ctx context.Context, contestID string, topN int) ([]models.RecipeSnapshot, error) {
	if contestID == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "contest id is required")
	}
	if topN <= 0 {
		topN = s.cfg.TopN
	}
	log := logging.Ctx(ctx).With().Str("contest_id", contestID).Logger()

	for attempt := 1; attempt <= maxCloseAttempts; attempt++ {
		c, err := s.store.GetContest(ctx, contestID)
		if err != nil {
			return nil, apperrors.Internal("failed to load contest", err)
		}
		if c == nil {
			return nil, apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", contestID)
		}

		if len(c.Recipes) == 0 {
			log.Debug().Msg("contest has no entries, nothing to close")
			return []models.RecipeSnapshot{}, nil
		}
		if c.IsClosed {
			return nonNil(c.Winners), nil
		}

		winners, err := s.freeze(ctx, c, topN)
		if errors.Is(err, database.ErrContestChanged) {
			log.Debug().Int("attempt", attempt).Msg("entries changed during close, recomputing")
			continue
		}
		return winners, err
	}
	return nil, apperrors.Internal("contest entries kept changing while closing", database.ErrContestChanged)
}

// freeze scores the entries of the open contest c and commits the close.
// ErrContestChanged is passed through unwrapped so the caller can reload.
func (s *Service) freeze(ctx context.Context, c *models.Contest, topN int) ([]models.RecipeSnapshot, error) {
	log := logging.Ctx(ctx).With().Str("contest_id", c.ID).Logger()

	stats, err := s.store.RatingStats(ctx, recipeIDs(c.Recipes))
	if err != nil {
		return nil, apperrors.Internal("failed to load rating statistics", err)
	}

	entries := make([]models.RecipeSnapshot, len(c.Recipes))
	finalScores := make([]models.FinalScore, len(c.Recipes))
	for i, e := range c.Recipes {
		st := stats[e.RecipeID]
		e.ContestScore = Score(st)
		e.AverageRating = st.Average
		entries[i] = e
		finalScores[i] = models.FinalScore{RecipeID: e.RecipeID, Score: e.ContestScore}
	}
	winners := SelectWinners(entries, s.cfg.WinnerMinAverage, topN)

	closed, err := s.store.CloseContest(ctx, c.ID, entries, finalScores, winners)
	if errors.Is(err, database.ErrContestChanged) {
		return nil, err
	}
	if err != nil {
		// A concurrent closer may have committed first; its result stands.
		if frozen, ok := s.frozenWinners(ctx, c.ID); ok {
			log.Info().Err(err).Msg("contest closed concurrently, returning stored winners")
			return frozen, nil
		}
		return nil, apperrors.Internal("failed to close contest", err)
	}
	if !closed {
		if frozen, ok := s.frozenWinners(ctx, c.ID); ok {
			return frozen, nil
		}
		return nil, apperrors.Internal("contest reported closed but could not be reloaded", nil)
	}

	closedAt := s.now().UTC()
	c.IsClosed = true
	c.ClosedAt = &closedAt
	c.Recipes = entries
	c.FinalScores = finalScores
	c.Winners = winners

	metrics.RecordContestClosed(len(winners))
	log.Info().
		Int("entries", len(entries)).
		Int("winners", len(winners)).
		Msg("contest closed")

	s.publish(ctx, events.TopicContestClosed, events.ContestClosed{
		ContestID:   c.ID,
		Slug:        c.Slug,
		Winners:     winners,
		FinalScores: finalScores,
		ClosedAt:    closedAt,
	})

	if s.notifier != nil {
		start := time.Now()
		if err := s.notifier.NotifyContestClosed(ctx, c, winners); err != nil {
			log.Warn().Err(err).Msg("contest result notification incomplete")
		} else {
			log.Debug().Dur("duration", time.Since(start)).Msg("contest results sent")
		}
	}

	return winners, nil
}

func (s *Service) frozenWinners(ctx context.Context, contestID string) ([]models.RecipeSnapshot, bool) {
	c, err := s.store.GetContest(ctx, contestID)
	if err != nil || c == nil || !c.IsClosed {
		return nil, false
	}
	return nonNil(c.Winners), true
}

func nonNil(s []models.RecipeSnapshot) []models.RecipeSnapshot {
	if s == nil {
		return []models.RecipeSnapshot{}
	}
	return s
}
