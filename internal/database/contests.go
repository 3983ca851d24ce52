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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cityofrecipes/internal/models"
)

// maxConflictRetries bounds how often an enrollment is replayed after a
// write-write conflict on the contests row.
const maxConflictRetries = 3

const contestColumns = `id, name, slug, photo_url, details, start_date, end_date,
	category_id, required_ingredients, min_popularity, is_closed, closed_at, created_at`

// CreateContest inserts a new contest. ID and CreatedAt are filled when empty.
func (db *DB) CreateContest(ctx context.Context, c *models.Contest) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = db.now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `INSERT INTO contests (`+contestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, NULL, ?)`,
		c.ID, c.Name, c.Slug, c.PhotoURL, c.Details,
		c.StartDate.UTC(), c.EndDate.UTC(),
		nullString(c.CategoryID), nullString(c.RequiredIngredients),
		c.MinPopularity, c.CreatedAt.UTC(),
	)
	if isConstraintViolation(err) {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert contest: %w", err)
	}
	return nil
}

// ContestSlugExists reports whether a contest already uses slug.
func (db *DB) ContestSlugExists(ctx context.Context, slug string) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM contests WHERE slug = ?`, slug).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check contest slug: %w", err)
	}
	return n > 0, nil
}

// GetContest loads a contest with its entries, frozen scores and winners.
// Returns nil, nil when the contest does not exist.
func (db *DB) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	return db.getContestWhere(ctx, "id = ?", id)
}

// GetContestBySlug is GetContest keyed by slug.
func (db *DB) GetContestBySlug(ctx context.Context, slug string) (*models.Contest, error) {
	return db.getContestWhere(ctx, "slug = ?", slug)
}

func (db *DB) getContestWhere(ctx context.Context, where string, arg any) (*models.Contest, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE `+where, arg)
	c, err := scanContest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	if err := db.loadContestChildren(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListActiveContests returns contests whose window contains at.
func (db *DB) ListActiveContests(ctx context.Context, at time.Time) ([]models.Contest, error) {
	t := at.UTC()
	return db.listContests(ctx, `start_date <= ? AND end_date >= ? ORDER BY end_date, id`, t, t)
}

// ListFinishedContests returns contests whose window ended before at,
// closed or not.
func (db *DB) ListFinishedContests(ctx context.Context, at time.Time) ([]models.Contest, error) {
	return db.listContests(ctx, `end_date < ? ORDER BY end_date, id`, at.UTC())
}

// ListContestsByRecipe returns every contest the recipe is enrolled in.
func (db *DB) ListContestsByRecipe(ctx context.Context, recipeID string) ([]models.Contest, error) {
	return db.listContests(ctx,
		`id IN (SELECT contest_id FROM contest_entries WHERE recipe_id = ?) ORDER BY start_date, id`, recipeID)
}

func (db *DB) listContests(ctx context.Context, where string, args ...any) ([]models.Contest, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}

	var contests []models.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			closeRows(rows)
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, *c)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate contests: %w", err)
	}

	for i := range contests {
		if err := db.loadContestChildren(ctx, &contests[i]); err != nil {
			return nil, err
		}
	}
	return contests, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContest(s rowScanner) (*models.Contest, error) {
	var (
		c        models.Contest
		category sql.NullString
		required sql.NullString
		closedAt sql.NullTime
	)
	err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.PhotoURL, &c.Details, &c.StartDate, &c.EndDate,
		&category, &required, &c.MinPopularity, &c.IsClosed, &closedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.CategoryID = category.String
	c.RequiredIngredients = required.String
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	return &c, nil
}

func (db *DB) loadContestChildren(ctx context.Context, c *models.Contest) error {
	entries, err := db.querySnapshots(ctx, `SELECT recipe_id, slug, name, photo_url, author_id, category_id,
		average_rating, contest_score FROM contest_entries WHERE contest_id = ? ORDER BY position`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load contest entries: %w", err)
	}
	c.Recipes = entries

	winners, err := db.querySnapshots(ctx, `SELECT recipe_id, slug, name, photo_url, author_id, category_id,
		average_rating, contest_score FROM contest_winners WHERE contest_id = ? ORDER BY rank`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load contest winners: %w", err)
	}
	c.Winners = winners

	rows, err := db.conn.QueryContext(ctx, `SELECT s.recipe_id, s.score FROM contest_final_scores s
		JOIN contest_entries e ON e.contest_id = s.contest_id AND e.recipe_id = s.recipe_id
		WHERE s.contest_id = ? ORDER BY e.position`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load final scores: %w", err)
	}
	defer closeRows(rows)

	c.FinalScores = nil
	for rows.Next() {
		var fs models.FinalScore
		if err := rows.Scan(&fs.RecipeID, &fs.Score); err != nil {
			return fmt.Errorf("failed to scan final score: %w", err)
		}
		c.FinalScores = append(c.FinalScores, fs)
	}
	return rows.Err()
}

func (db *DB) querySnapshots(ctx context.Context, query string, args ...any) ([]models.RecipeSnapshot, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	out := []models.RecipeSnapshot{}
	for rows.Next() {
		var (
			s        models.RecipeSnapshot
			category sql.NullString
		)
		if err := rows.Scan(&s.RecipeID, &s.Slug, &s.Name, &s.PhotoURL, &s.AuthorID, &category,
			&s.AverageRating, &s.ContestScore); err != nil {
			return nil, err
		}
		s.CategoryID = category.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddContestEntry appends snap to the contest's enrolled list and marks the
// recipe as participated, in one transaction. Returns ErrAlreadyEnrolled,
// ErrContestClosed or ErrContestNotFound when the write is rejected.
//
// The entry_count bump writes the contests row, so an enrollment racing a
// CloseContest on the same contest conflicts instead of slipping past it.
func (db *DB) AddContestEntry(ctx context.Context, contestID string, snap models.RecipeSnapshot) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.addContestEntry(ctx, contestID, snap)
		if !isTransactionConflict(err) {
			return err
		}
	}
	return err
}

func (db *DB) addContestEntry(ctx context.Context, contestID string, snap models.RecipeSnapshot) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE contests SET entry_count = entry_count + 1 WHERE id = ? AND is_closed = FALSE`, contestID)
		if err != nil {
			return fmt.Errorf("failed to claim contest row: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			var closed bool
			err := tx.QueryRowContext(ctx, `SELECT is_closed FROM contests WHERE id = ?`, contestID).Scan(&closed)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrContestNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to read contest state: %w", err)
			}
			return ErrContestClosed
		}

		var exists int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM contest_entries WHERE contest_id = ? AND recipe_id = ?`,
			contestID, snap.RecipeID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check entry: %w", err)
		}
		if exists > 0 {
			return ErrAlreadyEnrolled
		}

		var position int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM contest_entries WHERE contest_id = ?`,
			contestID).Scan(&position); err != nil {
			return fmt.Errorf("failed to compute entry position: %w", err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO contest_entries (
				contest_id, recipe_id, position, slug, name, photo_url, author_id, category_id,
				average_rating, contest_score, enrolled_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			contestID, snap.RecipeID, position, snap.Slug, snap.Name, snap.PhotoURL, snap.AuthorID,
			nullString(snap.CategoryID), snap.AverageRating, db.now().UTC())
		if isConstraintViolation(err) {
			return ErrAlreadyEnrolled
		}
		if err != nil {
			return fmt.Errorf("failed to insert contest entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE recipes SET participated = TRUE WHERE id = ?`, snap.RecipeID); err != nil {
			return fmt.Errorf("failed to mark recipe as participated: %w", err)
		}
		return nil
	})
}

// UpdateOpenContestEntries writes the live average and score into every
// snapshot of recipeID held by a contest that is still open. Returns the
// number of snapshots updated.
func (db *DB) UpdateOpenContestEntries(ctx context.Context, recipeID string, average float64, score int) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE contest_entries
		SET average_rating = ?, contest_score = ?
		WHERE recipe_id = ?
		  AND contest_id IN (SELECT id FROM contests WHERE is_closed = FALSE)`,
		average, score, recipeID)
	if err != nil {
		return 0, fmt.Errorf("failed to update contest entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// CloseContest performs the Open -> Closed transition in one transaction:
// flips is_closed, freezes each entry's score and average, and stores the
// final scores and winners. It returns false without writing anything when
// the contest was already closed, and ErrContestChanged when entries holds
// fewer rows than are enrolled or a concurrent enrollment conflicts.
func (db *DB) CloseContest(ctx context.Context, contestID string, entries []models.RecipeSnapshot,
	finalScores []models.FinalScore, winners []models.RecipeSnapshot) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	closed := false
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE contests SET is_closed = TRUE, closed_at = ? WHERE id = ? AND is_closed = FALSE`,
			db.now().UTC(), contestID)
		if err != nil {
			return fmt.Errorf("failed to close contest: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return nil
		}

		var stored int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM contest_entries WHERE contest_id = ?`, contestID).Scan(&stored); err != nil {
			return fmt.Errorf("failed to count contest entries: %w", err)
		}
		if stored != len(entries) {
			return ErrContestChanged
		}

		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `UPDATE contest_entries SET average_rating = ?, contest_score = ?
				WHERE contest_id = ? AND recipe_id = ?`,
				e.AverageRating, e.ContestScore, contestID, e.RecipeID); err != nil {
				return fmt.Errorf("failed to freeze entry %s: %w", e.RecipeID, err)
			}
		}

		for _, fs := range finalScores {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contest_final_scores (contest_id, recipe_id, score) VALUES (?, ?, ?)`,
				contestID, fs.RecipeID, fs.Score); err != nil {
				return fmt.Errorf("failed to store final score for %s: %w", fs.RecipeID, err)
			}
		}

		for i, w := range winners {
			if _, err := tx.ExecContext(ctx, `INSERT INTO contest_winners (
					contest_id, rank, recipe_id, slug, name, photo_url, author_id, category_id,
					average_rating, contest_score)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				contestID, i+1, w.RecipeID, w.Slug, w.Name, w.PhotoURL, w.AuthorID,
				nullString(w.CategoryID), w.AverageRating, w.ContestScore); err != nil {
				return fmt.Errorf("failed to store winner %s: %w", w.RecipeID, err)
			}
		}

		closed = true
		return nil
	})
	if isTransactionConflict(err) {
		return false, fmt.Errorf("%w: %v", ErrContestChanged, err)
	}
	if err != nil {
		return false, err
	}
	return closed, nil
}
