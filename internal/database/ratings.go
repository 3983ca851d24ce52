// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// UpsertRating stores one vote per (recipe, user); a repeat vote replaces the
// previous stars and timestamp.
func (db *DB) UpsertRating(ctx context.Context, r models.Rating) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	ratedAt := r.RatedAt
	if ratedAt.IsZero() {
		ratedAt = db.now()
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO ratings (recipe_id, user_id, stars, rated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (recipe_id, user_id) DO UPDATE SET stars = EXCLUDED.stars, rated_at = EXCLUDED.rated_at`,
		r.RecipeID, r.UserID, r.Stars, ratedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// RatingStats aggregates the full rating history of each recipe. Recipes
// without ratings are present with zero values.
func (db *DB) RatingStats(ctx context.Context, recipeIDs []string) (map[string]models.RatingStats, error) {
	out := make(map[string]models.RatingStats, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return out, nil
	}
	for _, id := range recipeIDs {
		out[id] = models.RatingStats{RecipeID: id}
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	args := make([]any, len(recipeIDs))
	for i, id := range recipeIDs {
		args[i] = id
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT recipe_id,
			COUNT(*),
			AVG(stars),
			COUNT(*) FILTER (WHERE stars = 4),
			COUNT(*) FILTER (WHERE stars = 5)
		FROM ratings
		WHERE recipe_id IN (`+placeholders(len(recipeIDs))+`)
		GROUP BY recipe_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			s                   models.RatingStats
			count, fours, fives int64
		)
		if err := rows.Scan(&s.RecipeID, &count, &s.Average, &fours, &fives); err != nil {
			return nil, fmt.Errorf("failed to scan rating aggregate: %w", err)
		}
		s.Count, s.Fours, s.Fives = int(count), int(fours), int(fives)
		out[s.RecipeID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating aggregates: %w", err)
	}
	return out, nil
}

// RefreshRecipeRating recomputes the recipe's average and total count from
// its ratings and stores them on the recipe row.
func (db *DB) RefreshRecipeRating(ctx context.Context, recipeID string) (models.RatingStats, error) {
	stats, err := db.RatingStats(ctx, []string{recipeID})
	if err != nil {
		return models.RatingStats{}, err
	}
	s := stats[recipeID]

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE recipes SET average_rating = ?, total_ratings = ? WHERE id = ?`,
		s.Average, s.Count, recipeID); err != nil {
		return models.RatingStats{}, fmt.Errorf("failed to update recipe rating: %w", err)
	}
	return s, nil
}

// RefreshUserRating sets the author's rating to the average over every
// rating of every recipe they wrote (0 when there are none).
func (db *DB) RefreshUserRating(ctx context.Context, userID string) (float64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var avg float64
	if err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(AVG(r.stars), 0)
		FROM ratings r JOIN recipes p ON p.id = r.recipe_id
		WHERE p.author_id = ?`, userID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute user rating: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, `UPDATE users SET rating = ? WHERE id = ?`, avg, userID); err != nil {
		return 0, fmt.Errorf("failed to update user rating: %w", err)
	}
	return avg, nil
}
