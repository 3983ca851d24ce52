// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/events"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/metrics"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// Enroll adds recipeID to contestID on behalf of userID. Checks run in a
// fixed order and the first failure is returned: missing contest or recipe,
// non-author, closed contest, duplicate entry, category, ingredients,
// popularity. Nothing is written unless every check passes.
func (s *Service) Enroll(ctx context.Context, contestID, recipeID, userID string) error {
	err := s.enroll(ctx, contestID, recipeID, userID)
	if err != nil {
		metrics.RecordEnrollment(apperrors.CodeOf(err))
		return err
	}
	metrics.RecordEnrollment("accepted")
	return nil
}

func (s *Service) enroll(ctx context.Context, contestID, recipeID, userID string) error {
	if contestID == "" || recipeID == "" || userID == "" {
		return apperrors.Invalid(apperrors.CodeInvalidInput, "contest id, recipe id and user id are required")
	}

	c, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return apperrors.Internal("failed to load contest", err)
	}
	if c == nil {
		return apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", contestID)
	}

	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return apperrors.Internal("failed to load recipe", err)
	}
	if recipe == nil {
		return apperrors.NotFound(apperrors.CodeRecipeNotFound, "recipe %s not found", recipeID)
	}

	if recipe.AuthorID != userID {
		return apperrors.PermissionDenied(apperrors.CodeNotRecipeAuthor, "only the author can enter a recipe into a contest")
	}

	if c.IsClosed || c.IsFinished(s.now()) {
		return apperrors.Conflict(apperrors.CodeContestClosed, "contest %s no longer accepts entries", contestID)
	}

	if err := checkEligibility(c, recipe); err != nil {
		return err
	}

	snap := recipe.Snapshot()
	if err := s.store.AddContestEntry(ctx, contestID, snap); err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyEnrolled):
			return apperrors.Conflict(apperrors.CodeAlreadyParticipating, "recipe is already participating in this contest")
		case errors.Is(err, database.ErrContestClosed):
			return apperrors.Conflict(apperrors.CodeContestClosed, "contest %s no longer accepts entries", contestID)
		case errors.Is(err, database.ErrContestNotFound):
			return apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", contestID)
		default:
			return apperrors.Internal("failed to enroll recipe", err)
		}
	}

	logging.Ctx(ctx).Info().
		Str("contest_id", contestID).
		Str("recipe_id", recipeID).
		Str("author_id", userID).
		Msg("recipe enrolled in contest")

	s.publish(ctx, events.TopicContestEnrolled, events.ContestEnrolled{
		ContestID:  contestID,
		Recipe:     snap,
		EnrolledAt: s.now().UTC(),
	})
	return nil
}

// checkEligibility applies the contest's content rules to recipe.
func checkEligibility(c *models.Contest, recipe *models.Recipe) error {
	if c.HasRecipe(recipe.ID) {
		return apperrors.Conflict(apperrors.CodeAlreadyParticipating, "recipe is already participating in this contest")
	}
	if c.CategoryID != "" && c.CategoryID != recipe.CategoryID {
		return apperrors.Conflict(apperrors.CodeCategoryMismatch, "contest accepts only recipes of category %s", c.CategoryID)
	}
	if missing := MissingIngredients(c.RequiredIngredients, recipe.Ingredients); len(missing) > 0 {
		return apperrors.Conflict(apperrors.CodeIngredientsMissing, "recipe is missing required ingredients: %s", strings.Join(missing, ", "))
	}
	if recipe.TotalRatings < c.MinPopularity {
		return apperrors.Conflict(apperrors.CodeNotEnoughRatings,
			"recipe needs at least %d ratings to participate, has %d", c.MinPopularity, recipe.TotalRatings)
	}
	return nil
}

// AvailableForRecipe lists active contests recipeID could still join:
// category unrestricted or matching, required ingredients present, and not
// already entered. Popularity is not considered.
func (s *Service) AvailableForRecipe(ctx context.Context, recipeID string) ([]models.Contest, error) {
	if recipeID == "" {
		return nil, apperrors.Invalid(apperrors.CodeInvalidInput, "recipe id is required")
	}
	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, apperrors.Internal("failed to load recipe", err)
	}
	if recipe == nil {
		return nil, apperrors.NotFound(apperrors.CodeRecipeNotFound, "recipe %s not found", recipeID)
	}

	active, err := s.store.ListActiveContests(ctx, s.now())
	if err != nil {
		return nil, apperrors.Internal("failed to list active contests", err)
	}

	out := make([]models.Contest, 0, len(active))
	for i := range active {
		c := &active[i]
		if c.IsClosed || c.HasRecipe(recipe.ID) {
			continue
		}
		if c.CategoryID != "" && c.CategoryID != recipe.CategoryID {
			continue
		}
		if len(MissingIngredients(c.RequiredIngredients, recipe.Ingredients)) > 0 {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}
