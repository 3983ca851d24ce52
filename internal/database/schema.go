// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package database

import (
	"context"
	"fmt"
)

// No foreign keys: DuckDB rewrites some updates as delete+insert, which
// fails FK checks on rows that are still referenced.
var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		rating DOUBLE NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		photo_url TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL,
		category_id TEXT,
		ingredients TEXT NOT NULL DEFAULT '',
		average_rating DOUBLE NOT NULL DEFAULT 0,
		total_ratings INTEGER NOT NULL DEFAULT 0,
		participated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ratings (
		recipe_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		stars INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
		rated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (recipe_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contests (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		photo_url TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		category_id TEXT,
		required_ingredients TEXT,
		min_popularity INTEGER NOT NULL DEFAULT 0,
		is_closed BOOLEAN NOT NULL DEFAULT FALSE,
		closed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		entry_count INTEGER NOT NULL DEFAULT 0
	)`,
	// position preserves enrollment order, which is the winner tie-break.
	`CREATE TABLE IF NOT EXISTS contest_entries (
		contest_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		photo_url TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL,
		category_id TEXT,
		average_rating DOUBLE NOT NULL DEFAULT 0,
		contest_score INTEGER NOT NULL DEFAULT 0,
		enrolled_at TIMESTAMP NOT NULL,
		PRIMARY KEY (contest_id, recipe_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contest_final_scores (
		contest_id TEXT NOT NULL,
		recipe_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (contest_id, recipe_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contest_winners (
		contest_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		recipe_id TEXT NOT NULL,
		slug TEXT NOT NULL,
		name TEXT NOT NULL,
		photo_url TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL,
		category_id TEXT,
		average_rating DOUBLE NOT NULL,
		contest_score INTEGER NOT NULL,
		PRIMARY KEY (contest_id, rank)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contest_entries_recipe ON contest_entries(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recipes_author ON recipes(author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contests_end ON contests(end_date)`,
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	for _, q := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
