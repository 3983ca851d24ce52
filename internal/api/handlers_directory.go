// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/models"
	"github.com/tomtom215/cityofrecipes/internal/validation"
)

type createRecipeRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=200"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,httpurl"`
	CategoryID  string `json:"category_id" validate:"max=64"`
	Ingredients string `json:"ingredients" validate:"max=5000"`
}

type rateRequest struct {
	Stars int `json:"stars"`
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// createUserResponse carries a token only when JWT auth is enabled.
type createUserResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

// GetRecipe handles GET /api/v1/recipes/{id}.
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recipe, err := h.directory.GetRecipe(r.Context(), id)
	if err != nil {
		respondAppError(w, r, apperrors.Internal("failed to load recipe", err))
		return
	}
	if recipe == nil {
		respondAppError(w, r, apperrors.NotFound(apperrors.CodeRecipeNotFound, "recipe %s not found", id))
		return
	}
	respondData(w, r, http.StatusOK, recipe)
}

// CreateRecipe handles POST /api/v1/recipes. The caller becomes the author
// and must exist in the user directory.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAppError(w, r, verr.AppError())
		return
	}

	ctx := r.Context()
	subject := auth.SubjectFromContext(ctx)

	author, err := h.directory.GetUser(ctx, subject.ID)
	if err != nil {
		respondAppError(w, r, apperrors.Internal("failed to load user", err))
		return
	}
	if author == nil {
		respondAppError(w, r, apperrors.NotFound(apperrors.CodeUserNotFound, "user %s not found", subject.ID))
		return
	}

	if req.CategoryID != "" {
		category, err := h.directory.GetCategory(ctx, req.CategoryID)
		if err != nil {
			respondAppError(w, r, apperrors.Internal("failed to load category", err))
			return
		}
		if category == nil {
			respondAppError(w, r, apperrors.NotFound(apperrors.CodeCategoryNotFound, "category %s not found", req.CategoryID))
			return
		}
	}

	slug := req.Slug
	if slug == "" {
		slug = contest.Slugify(req.Name)
	}
	recipe := &models.Recipe{
		Slug:        slug,
		Name:        strings.TrimSpace(req.Name),
		PhotoURL:    req.PhotoURL,
		AuthorID:    subject.ID,
		CategoryID:  req.CategoryID,
		Ingredients: req.Ingredients,
	}
	if err := h.directory.CreateRecipe(ctx, recipe); err != nil {
		respondAppError(w, r, apperrors.Internal("failed to create recipe", err))
		return
	}
	respondData(w, r, http.StatusCreated, recipe)
}

// RateRecipe handles POST /api/v1/recipes/{id}/ratings.
func (h *Handler) RateRecipe(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	subject := auth.SubjectFromContext(r.Context())
	result, err := h.ratings.SubmitRating(r.Context(), chi.URLParam(r, "id"), subject.ID, req.Stars)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, result)
}

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.directory.ListCategories(r.Context())
	if err != nil {
		respondAppError(w, r, apperrors.Internal("failed to list categories", err))
		return
	}
	respondData(w, r, http.StatusOK, categories)
}

// CreateCategory handles POST /api/v1/categories (admin).
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAppError(w, r, verr.AppError())
		return
	}
	category := &models.Category{Name: strings.TrimSpace(req.Name)}
	if err := h.directory.CreateCategory(r.Context(), category); err != nil {
		respondAppError(w, r, apperrors.Internal("failed to create category", err))
		return
	}
	respondData(w, r, http.StatusCreated, category)
}

// CreateUser handles POST /api/v1/users (admin).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondAppError(w, r, verr.AppError())
		return
	}

	user := &models.User{Username: strings.TrimSpace(req.Username), Email: req.Email}
	if err := h.directory.CreateUser(r.Context(), user); err != nil {
		respondAppError(w, r, apperrors.Internal("failed to create user", err))
		return
	}

	resp := createUserResponse{User: user}
	if h.tokens != nil {
		role := req.Role
		if role == "" {
			role = auth.RoleUser
		}
		token, err := h.tokens.GenerateToken(user.ID, user.Username, role)
		if err != nil {
			respondAppError(w, r, apperrors.Internal("failed to issue token", err))
			return
		}
		resp.Token = token
	}
	respondData(w, r, http.StatusCreated, resp)
}
