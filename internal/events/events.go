// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package events carries domain events between the contest services and
// their listeners over Watermill. The in-memory GoChannel transport serves a
// single process; the NATS transport lets several API instances share one
// stream of events.
package events

import (
	"time"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// Event topics. The bus prefixes them with the configured topic prefix.
const (
	TopicContestEnrolled = "contest.enrolled"
	TopicRatingSubmitted = "rating.submitted"
	TopicContestClosed   = "contest.closed"
)

// Topics lists every topic the service publishes.
func Topics() []string {
	return []string{TopicContestEnrolled, TopicRatingSubmitted, TopicContestClosed}
}

// ContestEnrolled is published after a recipe joins a contest.
type ContestEnrolled struct {
	ContestID  string                `json:"contest_id"`
	Recipe     models.RecipeSnapshot `json:"recipe"`
	EnrolledAt time.Time             `json:"enrolled_at"`
}

// RatingSubmitted is published after a vote and its contest propagation.
type RatingSubmitted struct {
	RecipeID       string    `json:"recipe_id"`
	UserID         string    `json:"user_id"`
	Stars          int       `json:"stars"`
	AverageRating  float64   `json:"average_rating"`
	TotalRatings   int       `json:"total_ratings"`
	ContestScore   int       `json:"contest_score"`
	OpenContestIDs []string  `json:"open_contest_ids,omitempty"`
	RatedAt        time.Time `json:"rated_at"`
}

// ContestClosed is published once, when a contest is frozen.
type ContestClosed struct {
	ContestID   string                  `json:"contest_id"`
	Slug        string                  `json:"slug"`
	Winners     []models.RecipeSnapshot `json:"winners"`
	FinalScores []models.FinalScore     `json:"final_scores"`
	ClosedAt    time.Time               `json:"closed_at"`
}
