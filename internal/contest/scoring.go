// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"sort"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// Score is the contest score of a recipe: one point per 4-star rating and
// two per 5-star rating, over every rating the recipe ever received.
func Score(stats models.RatingStats) int {
	return stats.Fours + 2*stats.Fives
}

// ScoreFromStars computes Score from raw star values.
func ScoreFromStars(stars []int) int {
	var st models.RatingStats
	for _, s := range stars {
		switch s {
		case 4:
			st.Fours++
		case 5:
			st.Fives++
		}
	}
	return Score(st)
}

// SelectWinners keeps the entries whose average is at least minAverage,
// orders them by contest score and returns at most topN. Entries with equal
// scores keep their enrollment order.
func SelectWinners(entries []models.RecipeSnapshot, minAverage float64, topN int) []models.RecipeSnapshot {
	candidates := make([]models.RecipeSnapshot, 0, len(entries))
	for _, e := range entries {
		if e.AverageRating >= minAverage {
			candidates = append(candidates, e)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ContestScore > candidates[j].ContestScore
	})

	if topN >= 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// rankStandings orders snapshots by score, highest first, keeping
// enrollment order for ties.
func rankStandings(entries []models.RecipeSnapshot) []models.Standing {
	ordered := make([]models.RecipeSnapshot, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ContestScore > ordered[j].ContestScore
	})

	standings := make([]models.Standing, len(ordered))
	for i, e := range ordered {
		standings[i] = models.Standing{
			Rank:          i + 1,
			RecipeID:      e.RecipeID,
			Slug:          e.Slug,
			Name:          e.Name,
			AuthorID:      e.AuthorID,
			AverageRating: e.AverageRating,
			Score:         e.ContestScore,
		}
	}
	return standings
}
