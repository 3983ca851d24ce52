// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// mockStore is an in-memory Store. Ratings are kept per recipe as raw star
// values so statistics are always derived from the full history.
type mockStore struct {
	mu         sync.Mutex
	contests   map[string]*models.Contest
	recipes    map[string]*models.Recipe
	categories map[string]*models.Category
	ratings    map[string][]int

	closeCalls int
	closeErr   error
	// closeRace makes CloseContest commit a competing close before failing.
	closeRace bool
	statsErr  error
	// statsHook runs at the start of RatingStats, between the contest read
	// and the close, without the lock held.
	statsHook func()
}

func newMockStore() *mockStore {
	return &mockStore{
		contests:   make(map[string]*models.Contest),
		recipes:    make(map[string]*models.Recipe),
		categories: make(map[string]*models.Category),
		ratings:    make(map[string][]int),
	}
}

func cloneContest(c *models.Contest) *models.Contest {
	cp := *c
	cp.Recipes = append([]models.RecipeSnapshot(nil), c.Recipes...)
	cp.FinalScores = append([]models.FinalScore(nil), c.FinalScores...)
	cp.Winners = append([]models.RecipeSnapshot(nil), c.Winners...)
	return &cp
}

func (m *mockStore) addContest(c *models.Contest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contests[c.ID] = cloneContest(c)
}

func (m *mockStore) addRecipe(r *models.Recipe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.recipes[r.ID] = &cp
}

func (m *mockStore) rate(recipeID string, stars ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings[recipeID] = append(m.ratings[recipeID], stars...)
	st := m.statsLocked(recipeID)
	if r, ok := m.recipes[recipeID]; ok {
		r.AverageRating = st.Average
		r.TotalRatings = st.Count
	}
}

func (m *mockStore) contest(id string) *models.Contest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contests[id]; ok {
		return cloneContest(c)
	}
	return nil
}

func (m *mockStore) statsLocked(recipeID string) models.RatingStats {
	st := models.RatingStats{RecipeID: recipeID}
	sum := 0
	for _, s := range m.ratings[recipeID] {
		st.Count++
		sum += s
		switch s {
		case 4:
			st.Fours++
		case 5:
			st.Fives++
		}
	}
	if st.Count > 0 {
		st.Average = float64(sum) / float64(st.Count)
	}
	return st
}

func (m *mockStore) CreateContest(_ context.Context, c *models.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contests {
		if existing.Slug == c.Slug {
			return database.ErrSlugTaken
		}
	}
	if c.ID == "" {
		c.ID = "contest-" + c.Slug
	}
	m.contests[c.ID] = cloneContest(c)
	return nil
}

func (m *mockStore) ContestSlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contests {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) GetContest(_ context.Context, id string) (*models.Contest, error) {
	return m.contest(id), nil
}

func (m *mockStore) GetContestBySlug(_ context.Context, slug string) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contests {
		if c.Slug == slug {
			return cloneContest(c), nil
		}
	}
	return nil, nil
}

func (m *mockStore) filter(keep func(*models.Contest) bool) []models.Contest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contest
	for _, c := range m.contests {
		if keep(c) {
			out = append(out, *cloneContest(c))
		}
	}
	return out
}

func (m *mockStore) ListActiveContests(_ context.Context, at time.Time) ([]models.Contest, error) {
	return m.filter(func(c *models.Contest) bool { return c.IsActive(at) }), nil
}

func (m *mockStore) ListFinishedContests(_ context.Context, at time.Time) ([]models.Contest, error) {
	return m.filter(func(c *models.Contest) bool { return c.IsFinished(at) }), nil
}

func (m *mockStore) ListContestsByRecipe(_ context.Context, recipeID string) ([]models.Contest, error) {
	return m.filter(func(c *models.Contest) bool { return c.HasRecipe(recipeID) }), nil
}

func (m *mockStore) AddContestEntry(_ context.Context, contestID string, snap models.RecipeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contests[contestID]
	if !ok {
		return database.ErrContestNotFound
	}
	if c.IsClosed {
		return database.ErrContestClosed
	}
	if c.HasRecipe(snap.RecipeID) {
		return database.ErrAlreadyEnrolled
	}
	snap.ContestScore = 0
	c.Recipes = append(c.Recipes, snap)
	if r, ok := m.recipes[snap.RecipeID]; ok {
		r.Participated = true
	}
	return nil
}

func (m *mockStore) CloseContest(_ context.Context, contestID string, entries []models.RecipeSnapshot,
	finalScores []models.FinalScore, winners []models.RecipeSnapshot) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++

	c, ok := m.contests[contestID]
	if !ok {
		return false, database.ErrContestNotFound
	}
	if c.IsClosed {
		return false, nil
	}
	if len(c.Recipes) != len(entries) {
		return false, database.ErrContestChanged
	}
	if m.closeRace {
		c.IsClosed = true
		c.Recipes = append([]models.RecipeSnapshot(nil), entries...)
		c.FinalScores = append([]models.FinalScore(nil), finalScores...)
		c.Winners = append([]models.RecipeSnapshot(nil), winners...)
		return false, errors.New("transaction conflict")
	}
	if m.closeErr != nil {
		return false, m.closeErr
	}

	now := time.Now().UTC()
	c.IsClosed = true
	c.ClosedAt = &now
	c.Recipes = append([]models.RecipeSnapshot(nil), entries...)
	c.FinalScores = append([]models.FinalScore(nil), finalScores...)
	c.Winners = append([]models.RecipeSnapshot(nil), winners...)
	return true, nil
}

func (m *mockStore) GetRecipe(_ context.Context, id string) (*models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recipes[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.categories[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) RatingStats(_ context.Context, ids []string) (map[string]models.RatingStats, error) {
	if hook := m.takeStatsHook(); hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	out := make(map[string]models.RatingStats, len(ids))
	for _, id := range ids {
		out[id] = m.statsLocked(id)
	}
	return out, nil
}

func (m *mockStore) takeStatsHook() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	hook := m.statsHook
	m.statsHook = nil
	return hook
}

type mockNotifier struct {
	mu      sync.Mutex
	calls   int
	winners [][]models.RecipeSnapshot
	err     error
}

func (n *mockNotifier) NotifyContestClosed(_ context.Context, _ *models.Contest, winners []models.RecipeSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.winners = append(n.winners, winners)
	return n.err
}

func (n *mockNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type mockPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *mockPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *mockPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}
