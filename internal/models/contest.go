// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package models holds the domain types shared by storage, services and the API.
package models

import "time"

// RecipeSnapshot is a recipe as embedded in a contest. AverageRating and
// ContestScore track the live values while the contest is open and stop
// changing once it closes.
type RecipeSnapshot struct {
	RecipeID      string  `json:"recipe_id"`
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	PhotoURL      string  `json:"photo_url,omitempty"`
	AuthorID      string  `json:"author_id"`
	CategoryID    string  `json:"category_id,omitempty"`
	AverageRating float64 `json:"average_rating"`
	ContestScore  int     `json:"contest_score"`
}

// FinalScore is one frozen entry of a closed contest's scoreboard.
type FinalScore struct {
	RecipeID string `json:"recipe_id"`
	Score    int    `json:"score"`
}

// Contest is the contest aggregate. Recipes is kept in enrollment order.
type Contest struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Slug                string           `json:"slug"`
	PhotoURL            string           `json:"photo_url,omitempty"`
	Details             string           `json:"details,omitempty"`
	StartDate           time.Time        `json:"start_date"`
	EndDate             time.Time        `json:"end_date"`
	CategoryID          string           `json:"category_id,omitempty"`          // empty = any category
	RequiredIngredients string           `json:"required_ingredients,omitempty"` // comma/semicolon separated
	MinPopularity       int              `json:"min_popularity"`
	Recipes             []RecipeSnapshot `json:"recipes"`
	IsClosed            bool             `json:"is_closed"`
	ClosedAt            *time.Time       `json:"closed_at,omitempty"`
	FinalScores         []FinalScore     `json:"final_scores,omitempty"`
	Winners             []RecipeSnapshot `json:"winners"`
	CreatedAt           time.Time        `json:"created_at"`
}

// IsActive reports whether t falls inside the contest window (inclusive).
func (c *Contest) IsActive(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// IsFinished reports whether the window ended before t.
func (c *Contest) IsFinished(t time.Time) bool {
	return c.EndDate.Before(t)
}

// Entry returns the enrolled snapshot for recipeID.
func (c *Contest) Entry(recipeID string) (RecipeSnapshot, bool) {
	for _, r := range c.Recipes {
		if r.RecipeID == recipeID {
			return r, true
		}
	}
	return RecipeSnapshot{}, false
}

// HasRecipe reports whether recipeID is enrolled.
func (c *Contest) HasRecipe(recipeID string) bool {
	_, ok := c.Entry(recipeID)
	return ok
}

// FinalScoreFor looks up the frozen score of recipeID.
func (c *Contest) FinalScoreFor(recipeID string) (int, bool) {
	for _, fs := range c.FinalScores {
		if fs.RecipeID == recipeID {
			return fs.Score, true
		}
	}
	return 0, false
}

// Contest status values reported in ContestView.
const (
	StatusUpcoming = "upcoming"
	StatusOpen     = "open"
	StatusEnded    = "ended" // window over, not yet closed
	StatusClosed   = "closed"
)

// Status derives the lifecycle status at t.
func (c *Contest) Status(t time.Time) string {
	switch {
	case c.IsClosed:
		return StatusClosed
	case t.Before(c.StartDate):
		return StatusUpcoming
	case c.IsActive(t):
		return StatusOpen
	default:
		return StatusEnded
	}
}

// Standing is one row of a contest scoreboard.
type Standing struct {
	Rank          int     `json:"rank"`
	RecipeID      string  `json:"recipe_id"`
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	AuthorID      string  `json:"author_id"`
	AverageRating float64 `json:"average_rating"`
	Score         int     `json:"score"`
}

// ContestView is the read model returned by GetContest. Scores come from the
// frozen list when Frozen is true and from the rating store otherwise.
type ContestView struct {
	Contest
	Status    string     `json:"status"`
	Frozen    bool       `json:"frozen"`
	Standings []Standing `json:"standings"`
}
