// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/models"
	"github.com/tomtom215/cityofrecipes/internal/rating"
)

// ContestService is the contest lifecycle surface. *contest.Service
// implements it.
type ContestService interface {
	CreateContest(ctx context.Context, in contest.CreateContestInput) (*models.Contest, error)
	Enroll(ctx context.Context, contestID, recipeID, userID string) error
	DetermineWinners(ctx context.Context, contestID string, topN int) ([]models.RecipeSnapshot, error)
	GetContest(ctx context.Context, id string) (*models.ContestView, error)
	GetContestBySlug(ctx context.Context, slug string) (*models.ContestView, error)
	ListActive(ctx context.Context) ([]models.Contest, error)
	ListFinished(ctx context.Context) ([]models.Contest, error)
	ListByRecipe(ctx context.Context, recipeID string) ([]models.Contest, error)
	AvailableForRecipe(ctx context.Context, recipeID string) ([]models.Contest, error)
	RecipesByContest(ctx context.Context, contestID string) ([]models.Recipe, error)
}

// RatingService accepts votes. *rating.Service implements it.
type RatingService interface {
	SubmitRating(ctx context.Context, recipeID, userID string, stars int) (*rating.Result, error)
}

// Directory stores users, categories and recipes. Getters return nil, nil
// for missing rows. *database.DB implements it.
type Directory interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateRecipe(ctx context.Context, r *models.Recipe) error
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
}

// Pinger reports dependency health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the API routes.
type Handler struct {
	contests  ContestService
	ratings   RatingService
	directory Directory
	db        Pinger
	tokens    *auth.JWTManager
	startTime time.Time
}

// HandlerDeps groups the Handler's collaborators. Tokens is optional; when
// set, newly created users receive a signed token.
type HandlerDeps struct {
	Contests  ContestService
	Ratings   RatingService
	Directory Directory
	DB        Pinger
	Tokens    *auth.JWTManager
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		contests:  deps.Contests,
		ratings:   deps.Ratings,
		directory: deps.Directory,
		db:        deps.DB,
		tokens:    deps.Tokens,
		startTime: time.Now(),
	}
}
