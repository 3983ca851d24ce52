// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package rating records votes and pushes the resulting scores into every
// open contest the recipe is entered in. Propagation runs inside the request
// so a vote is visible in live standings once SubmitRating returns.
package rating

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/events"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

const (
	MinStars = 1
	MaxStars = 5
)

// Store is the persistence SubmitRating needs. *database.DB implements it.
type Store interface {
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	UpsertRating(ctx context.Context, r models.Rating) error
	RefreshRecipeRating(ctx context.Context, recipeID string) (models.RatingStats, error)
	RefreshUserRating(ctx context.Context, userID string) (float64, error)
	UpdateOpenContestEntries(ctx context.Context, recipeID string, average float64, score int) (int64, error)
	ListContestsByRecipe(ctx context.Context, recipeID string) ([]models.Contest, error)
}

// Service is the rating store front.
type Service struct {
	store     Store
	publisher contest.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p contest.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a rating service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: logging.WithComponent("rating"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is what a vote changed.
type Result struct {
	Stats            models.RatingStats `json:"stats"`
	ContestScore     int                `json:"contest_score"`
	AuthorRating     float64            `json:"author_rating"`
	SnapshotsUpdated int64              `json:"snapshots_updated"`
}

// SubmitRating upserts userID's vote for recipeID, refreshes the recipe and
// author aggregates, then rewrites the recipe's snapshot in every open
// contest from the full rating history.
func (s *Service) SubmitRating(ctx context.Context, recipeID, userID string, stars int) (*Result, error) {
	if recipeID == "" || userID == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "recipe id and user id are required")
	}
	if stars < MinStars || stars > MaxStars {
		return nil, apperrors.Invalid(apperrors.CodeInvalidStars, "stars must be between %d and %d, got %d", MinStars, MaxStars, stars)
	}

	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, apperrors.Internal("failed to load recipe", err)
	}
	if recipe == nil {
		return nil, apperrors.NotFound(apperrors.CodeRecipeNotFound, "recipe %s not found", recipeID)
	}

	ratedAt := s.now().UTC()
	if err := s.store.UpsertRating(ctx, models.Rating{
		RecipeID: recipeID,
		UserID:   userID,
		Stars:    stars,
		RatedAt:  ratedAt,
	}); err != nil {
		return nil, apperrors.Internal("failed to store rating", err)
	}

	stats, err := s.store.RefreshRecipeRating(ctx, recipeID)
	if err != nil {
		return nil, apperrors.Internal("failed to refresh recipe rating", err)
	}
	authorRating, err := s.store.RefreshUserRating(ctx, recipe.AuthorID)
	if err != nil {
		return nil, apperrors.Internal("failed to refresh author rating", err)
	}

	res := &Result{
		Stats:        stats,
		ContestScore: contest.Score(stats),
		AuthorRating: authorRating,
	}

	n, err := s.store.UpdateOpenContestEntries(ctx, recipeID, stats.Average, res.ContestScore)
	if err != nil {
		return nil, apperrors.Internal("failed to update contest standings", err)
	}
	res.SnapshotsUpdated = n
	metrics.ContestSnapshotsUpdated.Add(float64(n))

	var openIDs []string
	if n > 0 {
		openIDs = s.openContestIDs(ctx, recipeID)
	}

	metrics.RatingsSubmitted.WithLabelValues(strconv.Itoa(stars)).Inc()
	logging.Ctx(ctx).Debug().
		Str("recipe_id", recipeID).
		Int("stars", stars).
		Float64("average", stats.Average).
		Int("contest_score", res.ContestScore).
		Int64("snapshots_updated", res.SnapshotsUpdated).
		Msg("rating recorded")

	if s.publisher != nil {
		evt := events.RatingSubmitted{
			RecipeID:       recipeID,
			UserID:         userID,
			Stars:          stars,
			AverageRating:  stats.Average,
			TotalRatings:   stats.Count,
			ContestScore:   res.ContestScore,
			OpenContestIDs: openIDs,
			RatedAt:        ratedAt,
		}
		if err := s.publisher.Publish(ctx, events.TopicRatingSubmitted, evt); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("topic", events.TopicRatingSubmitted).Msg("failed to publish event")
		}
	}
	return res, nil
}

// openContestIDs is best effort; it only labels the event.
func (s *Service) openContestIDs(ctx context.Context, recipeID string) []string {
	contests, err := s.store.ListContestsByRecipe(ctx, recipeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("recipe_id", recipeID).Msg("failed to list contests for event")
		return nil
	}
	var out []string
	for _, c := range contests {
		if !c.IsClosed {
			out = append(out, c.ID)
		}
	}
	return out
}
