// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"sort"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// GetContest returns the contest view for id. Closed contests report their
// frozen scoreboard; open ones are scored from the rating store at read time.
func (s *Service) GetContest(ctx context.Context, id string) (*models.ContestView, error) {
	if id == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "contest id is required")
	}
	c, err := s.store.GetContest(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("failed to load contest", err)
	}
	if c == nil {
		return nil, apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", id)
	}
	return s.view(ctx, c)
}

// GetContestBySlug is GetContest keyed by slug.
func (s *Service) GetContestBySlug(ctx context.Context, slug string) (*models.ContestView, error) {
	if slug == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "contest slug is required")
	}
	c, err := s.store.GetContestBySlug(ctx, slug)
	if err != nil {
		return nil, apperrors.Internal("failed to load contest", err)
	}
	if c == nil {
		return nil, apperrors.NotFound(apperrors.CodeContestNotFound, "contest %q not found", slug)
	}
	return s.view(ctx, c)
}

func (s *Service) view(ctx context.Context, c *models.Contest) (*models.ContestView, error) {
	v := &models.ContestView{
		Contest: *c,
		Status:  c.Status(s.now()),
		Frozen:  c.IsClosed,
	}
	v.Recipes = make([]models.RecipeSnapshot, len(c.Recipes))
	copy(v.Recipes, c.Recipes)
	v.Winners = nonNil(c.Winners)

	if c.IsClosed {
		for i := range v.Recipes {
			if score, ok := c.FinalScoreFor(v.Recipes[i].RecipeID); ok {
				v.Recipes[i].ContestScore = score
			}
		}
	} else if len(v.Recipes) > 0 {
		stats, err := s.store.RatingStats(ctx, recipeIDs(v.Recipes))
		if err != nil {
			return nil, apperrors.Internal("failed to load rating statistics", err)
		}
		for i := range v.Recipes {
			st := stats[v.Recipes[i].RecipeID]
			v.Recipes[i].ContestScore = Score(st)
			v.Recipes[i].AverageRating = st.Average
		}
	}

	v.Standings = rankStandings(v.Recipes)
	return v, nil
}

// ListActive returns contests whose window contains now.
func (s *Service) ListActive(ctx context.Context) ([]models.Contest, error) {
	out, err := s.store.ListActiveContests(ctx, s.now())
	if err != nil {
		return nil, apperrors.Internal("failed to list active contests", err)
	}
	return nonNilContests(out), nil
}

// ListFinished returns contests whose window ended, closed or not.
func (s *Service) ListFinished(ctx context.Context) ([]models.Contest, error) {
	out, err := s.store.ListFinishedContests(ctx, s.now())
	if err != nil {
		return nil, apperrors.Internal("failed to list finished contests", err)
	}
	return nonNilContests(out), nil
}

// ListByRecipe returns the contests recipeID is entered in.
func (s *Service) ListByRecipe(ctx context.Context, recipeID string) ([]models.Contest, error) {
	if recipeID == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "recipe id is required")
	}
	out, err := s.store.ListContestsByRecipe(ctx, recipeID)
	if err != nil {
		return nil, apperrors.Internal("failed to list contests for recipe", err)
	}
	return nonNilContests(out), nil
}

// RecipesByContest returns the current directory records of the contest's
// entries, highest average rating first.
func (s *Service) RecipesByContest(ctx context.Context, contestID string) ([]models.Recipe, error) {
	if contestID == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "contest id is required")
	}
	c, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, apperrors.Internal("failed to load contest", err)
	}
	if c == nil {
		return nil, apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", contestID)
	}

	recipes := make([]models.Recipe, 0, len(c.Recipes))
	for _, e := range c.Recipes {
		r, err := s.store.GetRecipe(ctx, e.RecipeID)
		if err != nil {
			return nil, apperrors.Internal("failed to load recipe", err)
		}
		if r != nil {
			recipes = append(recipes, *r)
		}
	}
	sort.SliceStable(recipes, func(i, j int) bool {
		return recipes[i].AverageRating > recipes[j].AverageRating
	})
	return recipes, nil
}

// DueForClosing returns contests whose window ended before now and that are
// still open. The scheduler funnels each through DetermineWinners.
func (s *Service) DueForClosing(ctx context.Context) ([]models.Contest, error) {
	finished, err := s.store.ListFinishedContests(ctx, s.now())
	if err != nil {
		return nil, apperrors.Internal("failed to list finished contests", err)
	}
	due := make([]models.Contest, 0, len(finished))
	for _, c := range finished {
		if c.IsClosed || len(c.Winners) > 0 {
			continue
		}
		due = append(due, c)
	}
	return due, nil
}

func nonNilContests(in []models.Contest) []models.Contest {
	if in == nil {
		return []models.Contest{}
	}
	return in
}
