// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// ListActiveContests handles GET /api/v1/contests/active.
func (h *Handler) ListActiveContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.contests.ListActive(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, contests)
}

// ListFinishedContests handles GET /api/v1/contests/finished.
func (h *Handler) ListFinishedContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.contests.ListFinished(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, contests)
}

// GetContest handles GET /api/v1/contests/{id}.
func (h *Handler) GetContest(w http.ResponseWriter, r *http.Request) {
	view, err := h.contests.GetContest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, view)
}

// GetContestBySlug handles GET /api/v1/contests/by-slug/{slug}.
func (h *Handler) GetContestBySlug(w http.ResponseWriter, r *http.Request) {
	view, err := h.contests.GetContestBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, view)
}

// ContestRecipes handles GET /api/v1/contests/{id}/recipes.
func (h *Handler) ContestRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.contests.RecipesByContest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, recipes)
}

// ContestsByRecipe handles GET /api/v1/contests/by-recipe/{recipeId}.
func (h *Handler) ContestsByRecipe(w http.ResponseWriter, r *http.Request) {
	contests, err := h.contests.ListByRecipe(r.Context(), chi.URLParam(r, "recipeId"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, contests)
}

// AvailableContests handles GET /api/v1/contests/available-for-recipe/{recipeId}.
func (h *Handler) AvailableContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.contests.AvailableForRecipe(r.Context(), chi.URLParam(r, "recipeId"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, contests)
}

// CreateContest handles POST /api/v1/contests (admin).
func (h *Handler) CreateContest(w http.ResponseWriter, r *http.Request) {
	var in contest.CreateContestInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	c, err := h.contests.CreateContest(r.Context(), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, c)
}

// Enroll handles POST /api/v1/contests/{id}/recipes/{recipeId}. The
// caller must be the recipe's author.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	subject := auth.SubjectFromContext(r.Context())
	contestID := chi.URLParam(r, "id")
	recipeID := chi.URLParam(r, "recipeId")

	if err := h.contests.Enroll(r.Context(), contestID, recipeID, subject.ID); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, map[string]string{
		"contest_id": contestID,
		"recipe_id":  recipeID,
	})
}

// finalizeResponse is returned by FinalizeContest.
type finalizeResponse struct {
	ContestID string                  `json:"contest_id"`
	Winners   []models.RecipeSnapshot `json:"winners"`
}

// FinalizeContest handles POST /api/v1/contests/{id}/finalize (admin). It
// freezes the contest now with the configured number of winners.
func (h *Handler) FinalizeContest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	winners, err := h.contests.DetermineWinners(r.Context(), id, 0)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, finalizeResponse{ContestID: id, Winners: winners})
}
