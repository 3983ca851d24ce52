// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package contest implements the contest lifecycle: creation, enrollment
// with eligibility rules, live standings, and the one-time freeze that fixes
// final scores and winners.
//
// Close safety does not rely on a lock. The freeze is a single storage
// transaction guarded by is_closed = FALSE, so a second closer finds the
// contest already closed and returns the stored winners.
package contest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

var errSlugExhausted = errors.New("no free slug suffix")

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	CreateContest(ctx context.Context, c *models.Contest) error
	ContestSlugExists(ctx context.Context, slug string) (bool, error)
	GetContest(ctx context.Context, id string) (*models.Contest, error)
	GetContestBySlug(ctx context.Context, slug string) (*models.Contest, error)
	ListActiveContests(ctx context.Context, at time.Time) ([]models.Contest, error)
	ListFinishedContests(ctx context.Context, at time.Time) ([]models.Contest, error)
	ListContestsByRecipe(ctx context.Context, recipeID string) ([]models.Contest, error)
	AddContestEntry(ctx context.Context, contestID string, snap models.RecipeSnapshot) error
	CloseContest(ctx context.Context, contestID string, entries []models.RecipeSnapshot,
		finalScores []models.FinalScore, winners []models.RecipeSnapshot) (bool, error)

	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	RatingStats(ctx context.Context, recipeIDs []string) (map[string]models.RatingStats, error)
}

// Notifier delivers contest results to participants.
type Notifier interface {
	NotifyContestClosed(ctx context.Context, c *models.Contest, winners []models.RecipeSnapshot) error
}

// Publisher emits domain events. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Service is the contest engine.
type Service struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	cfg       config.ContestConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the result notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a contest service.
func NewService(store Store, cfg config.ContestConfig, opts ...Option) *Service {
	if cfg.TopN <= 0 {
		cfg.TopN = 3
	}
	s := &Service{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logging.WithComponent("contest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopN is the configured number of winners.
func (s *Service) TopN() int {
	return s.cfg.TopN
}

func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

func recipeIDs(entries []models.RecipeSnapshot) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.RecipeID
	}
	return ids
}
