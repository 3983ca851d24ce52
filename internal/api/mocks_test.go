// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package api

import (
	"context"
	"sync"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/contest"
	"github.com/tomtom215/cityofrecipes/internal/models"
	"github.com/tomtom215/cityofrecipes/internal/rating"
)

type mockContests struct {
	mu sync.Mutex

	contests map[string]*models.ContestView
	active   []models.Contest
	err      error

	enrolled  [][3]string
	enrollErr error
	created   []contest.CreateContestInput
	finalized []string
	winners   []models.RecipeSnapshot
}

func newMockContests() *mockContests {
	return &mockContests{contests: map[string]*models.ContestView{}}
}

func (m *mockContests) CreateContest(_ context.Context, in contest.CreateContestInput) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, in)
	return &models.Contest{ID: "new", Name: in.Name, Slug: contest.Slugify(in.Name)}, nil
}

func (m *mockContests) Enroll(_ context.Context, contestID, recipeID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolled = append(m.enrolled, [3]string{contestID, recipeID, userID})
	return nil
}

func (m *mockContests) DetermineWinners(_ context.Context, contestID string, _ int) ([]models.RecipeSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = append(m.finalized, contestID)
	return m.winners, m.err
}

func (m *mockContests) GetContest(_ context.Context, id string) (*models.ContestView, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.contests[id]; ok {
		return v, nil
	}
	return nil, apperrors.NotFound(apperrors.CodeContestNotFound, "contest %s not found", id)
}

func (m *mockContests) GetContestBySlug(_ context.Context, slug string) (*models.ContestView, error) {
	for _, v := range m.contests {
		if v.Slug == slug {
			return v, nil
		}
	}
	return nil, m.err
}

func (m *mockContests) ListActive(context.Context) ([]models.Contest, error) {
	return m.active, m.err
}

func (m *mockContests) ListFinished(context.Context) ([]models.Contest, error) {
	return []models.Contest{}, m.err
}

func (m *mockContests) ListByRecipe(context.Context, string) ([]models.Contest, error) {
	return m.active, m.err
}

func (m *mockContests) AvailableForRecipe(context.Context, string) ([]models.Contest, error) {
	return m.active, m.err
}

func (m *mockContests) RecipesByContest(context.Context, string) ([]models.Recipe, error) {
	return []models.Recipe{}, m.err
}

type mockRatings struct {
	mu    sync.Mutex
	votes []int
	err   error
}

func (m *mockRatings) SubmitRating(_ context.Context, recipeID, _ string, stars int) (*rating.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.votes = append(m.votes, stars)
	return &rating.Result{Stats: models.RatingStats{RecipeID: recipeID, Count: len(m.votes)}}, nil
}

type mockDirectory struct {
	mu         sync.Mutex
	users      map[string]*models.User
	categories map[string]*models.Category
	recipes    map[string]*models.Recipe
	err        error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		users:      map[string]*models.User{},
		categories: map[string]*models.Category{},
		recipes:    map[string]*models.Recipe{},
	}
}

func (m *mockDirectory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u.ID = "user-" + u.Username
	m.users[u.ID] = u
	return nil
}

func (m *mockDirectory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], m.err
}

func (m *mockDirectory) CreateCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = "cat-1"
	m.categories[c.ID] = c
	return m.err
}

func (m *mockDirectory) GetCategory(_ context.Context, id string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categories[id], m.err
}

func (m *mockDirectory) ListCategories(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Category{}
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, m.err
}

func (m *mockDirectory) CreateRecipe(_ context.Context, r *models.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r.ID = "recipe-new"
	m.recipes[r.ID] = r
	return nil
}

func (m *mockDirectory) GetRecipe(_ context.Context, id string) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recipes[id], m.err
}

type mockPinger struct{ err error }

func (p mockPinger) Ping(context.Context) error { return p.err }
