// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// CreateUser inserts a directory entry.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = db.now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, rating, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Rating, u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser returns nil, nil when the user does not exist.
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var u models.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, rating, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Rating, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// CreateCategory inserts a category.
func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := db.conn.ExecContext(ctx, `INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name); err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

// GetCategory returns nil, nil when the category does not exist.
func (db *DB) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c models.Category
	err := db.conn.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer closeRows(rows)

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateRecipe inserts a recipe with zeroed rating aggregates.
func (db *DB) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = db.now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO recipes (
			id, slug, name, photo_url, author_id, category_id, ingredients,
			average_rating, total_ratings, participated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, FALSE, ?)`,
		r.ID, r.Slug, r.Name, r.PhotoURL, r.AuthorID, nullString(r.CategoryID), r.Ingredients, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	return nil
}

// GetRecipe returns nil, nil when the recipe does not exist.
func (db *DB) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		r        models.Recipe
		category sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `SELECT id, slug, name, photo_url, author_id, category_id, ingredients,
			average_rating, total_ratings, participated, created_at
		FROM recipes WHERE id = ?`, id).
		Scan(&r.ID, &r.Slug, &r.Name, &r.PhotoURL, &r.AuthorID, &category, &r.Ingredients,
			&r.AverageRating, &r.TotalRatings, &r.Participated, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	r.CategoryID = category.String
	return &r, nil
}
