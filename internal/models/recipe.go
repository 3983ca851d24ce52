// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package models

import "time"

// Recipe is the directory record the contest engine reads from.
type Recipe struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	AuthorID      string    `json:"author_id"`
	CategoryID    string    `json:"category_id,omitempty"`
	Ingredients   string    `json:"ingredients"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int       `json:"total_ratings"`
	Participated  bool      `json:"participated"` // set on first enrollment, never cleared
	CreatedAt     time.Time `json:"created_at"`
}

// Snapshot copies the fields a contest embeds. ContestScore starts at 0.
func (r *Recipe) Snapshot() RecipeSnapshot {
	return RecipeSnapshot{
		RecipeID:      r.ID,
		Slug:          r.Slug,
		Name:          r.Name,
		PhotoURL:      r.PhotoURL,
		AuthorID:      r.AuthorID,
		CategoryID:    r.CategoryID,
		AverageRating: r.AverageRating,
		ContestScore:  0,
	}
}

// Category groups recipes.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a directory entry used for notification addresses and author ratings.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating is a single vote. (RecipeID, UserID) is unique.
type Rating struct {
	RecipeID string    `json:"recipe_id"`
	UserID   string    `json:"user_id"`
	Stars    int       `json:"stars"`
	RatedAt  time.Time `json:"rated_at"`
}

// RatingStats summarizes every rating ever cast for one recipe.
type RatingStats struct {
	RecipeID string  `json:"recipe_id"`
	Count    int     `json:"count"`
	Average  float64 `json:"average"`
	Fours    int     `json:"fours"`
	Fives    int     `json:"fives"`
}
