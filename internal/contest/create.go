// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/models"
	"github.com/tomtom215/cityofrecipes/internal/validation"
)

// CreateContestInput is the admin payload for a new contest.
type CreateContestInput struct {
	Name                string    `json:"name" validate:"required,notblank,max=200"`
	Slug                string    `json:"slug" validate:"omitempty,max=100"`
	PhotoURL            string    `json:"photo_url" validate:"omitempty,httpurl"`
	Details             string    `json:"details" validate:"max=5000"`
	StartDate           time.Time `json:"start_date" validate:"required"`
	EndDate             time.Time `json:"end_date" validate:"required"`
	CategoryID          string    `json:"category_id" validate:"max=64"`
	RequiredIngredients string    `json:"required_ingredients" validate:"max=1000"`
	MinPopularity       int       `json:"min_popularity" validate:"gte=0"`
}

// CreateContest validates in and stores a new open contest. An empty slug is
// derived from the name and suffixed until unique; an explicit slug that is
// already used is a conflict.
func (s *Service) CreateContest(ctx context.Context, in CreateContestInput) (*models.Contest, error) {
	if verr := validation.ValidateStruct(&in); verr != nil {
		return nil, verr.AppError()
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, apperrors.Conflict(apperrors.CodeInvalidDateRange, "start date must be before end date")
	}

	if in.CategoryID != "" {
		cat, err := s.store.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, apperrors.Internal("failed to load category", err)
		}
		if cat == nil {
			return nil, apperrors.NotFound(apperrors.CodeCategoryNotFound, "category %s not found", in.CategoryID)
		}
	}

	slug, err := s.resolveSlug(ctx, in.Slug, in.Name)
	if err != nil {
		return nil, err
	}

	c := &models.Contest{
		Name:                strings.TrimSpace(in.Name),
		Slug:                slug,
		PhotoURL:            in.PhotoURL,
		Details:             in.Details,
		StartDate:           in.StartDate.UTC(),
		EndDate:             in.EndDate.UTC(),
		CategoryID:          in.CategoryID,
		RequiredIngredients: strings.TrimSpace(in.RequiredIngredients),
		MinPopularity:       in.MinPopularity,
		Recipes:             []models.RecipeSnapshot{},
		Winners:             []models.RecipeSnapshot{},
		CreatedAt:           s.now().UTC(),
	}

	if err := s.store.CreateContest(ctx, c); err != nil {
		if errors.Is(err, database.ErrSlugTaken) {
			return nil, apperrors.Conflict(apperrors.CodeSlugTaken, "slug %q is already in use", slug)
		}
		return nil, apperrors.Internal("failed to create contest", err)
	}

	s.logger.Info().
		Str("contest_id", c.ID).
		Str("slug", c.Slug).
		Time("start", c.StartDate).
		Time("end", c.EndDate).
		Msg("contest created")
	return c, nil
}

func (s *Service) resolveSlug(ctx context.Context, requested, name string) (string, error) {
	if requested != "" {
		slug := Slugify(requested)
		if slug == "" {
			return "", apperrors.Invalid(apperrors.CodeInvalidInput, "slug %q has no letters or digits", requested)
		}
		taken, err := s.store.ContestSlugExists(ctx, slug)
		if err != nil {
			return "", apperrors.Internal("failed to check slug", err)
		}
		if taken {
			return "", apperrors.Conflict(apperrors.CodeSlugTaken, "slug %q is already in use", slug)
		}
		return slug, nil
	}

	base := Slugify(name)
	if base == "" {
		base = "contest"
	}
	if len(base) > 100 {
		base = strings.Trim(truncateRunes(base, 100), "-")
	}
	slug, err := uniqueSlug(ctx, base, s.store.ContestSlugExists)
	if err != nil {
		return "", apperrors.Internal("failed to generate slug", err)
	}
	return slug, nil
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
