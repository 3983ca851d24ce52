// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package contest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/database"
	"github.com/tomtom215/cityofrecipes/internal/models"
)

// enrollDuringStats commits one extra enrollment the first time rating
// statistics are read, which is after DetermineWinners loaded the contest
// and before it writes the close.
type enrollDuringStats struct {
	*database.DB
	contestID string
	late      models.RecipeSnapshot

	once sync.Once
	err  error
}

func (s *enrollDuringStats) RatingStats(ctx context.Context, ids []string) (map[string]models.RatingStats, error) {
	s.once.Do(func() {
		s.err = s.DB.AddContestEntry(ctx, s.contestID, s.late)
	})
	return s.DB.RatingStats(ctx, ids)
}

func TestDetermineWinners_DuckDBLateEnrollment(t *testing.T) {
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	c := &models.Contest{
		Name:      "Late Bake",
		Slug:      "late-bake",
		StartDate: testNow.Add(-72 * time.Hour),
		EndDate:   testNow.Add(-time.Hour),
	}
	if err := db.CreateContest(ctx, c); err != nil {
		t.Fatalf("CreateContest() error = %v", err)
	}
	early := models.RecipeSnapshot{RecipeID: "a", Slug: "a", Name: "A", AuthorID: "u1"}
	if err := db.AddContestEntry(ctx, c.ID, early); err != nil {
		t.Fatalf("AddContestEntry() error = %v", err)
	}
	for _, rater := range []string{"r1", "r2"} {
		if err := db.UpsertRating(ctx, models.Rating{RecipeID: "late", UserID: rater, Stars: 5}); err != nil {
			t.Fatalf("UpsertRating() error = %v", err)
		}
	}

	store := &enrollDuringStats{
		DB:        db,
		contestID: c.ID,
		late:      models.RecipeSnapshot{RecipeID: "late", Slug: "late", Name: "Late", AuthorID: "u2"},
	}
	svc := NewService(store, config.ContestConfig{TopN: 3, WinnerMinAverage: 4.0},
		WithClock(func() time.Time { return testNow }))

	winners, err := svc.DetermineWinners(ctx, c.ID, 0)
	if err != nil {
		t.Fatalf("DetermineWinners() error = %v", err)
	}
	if store.err != nil {
		t.Fatalf("late AddContestEntry() error = %v", store.err)
	}
	if len(winners) != 1 || winners[0].RecipeID != "late" {
		t.Errorf("winners = %v, want [late]", ids(winners))
	}

	got, err := db.GetContest(ctx, c.ID)
	if err != nil || got == nil {
		t.Fatalf("GetContest() = %v, %v", got, err)
	}
	if !got.IsClosed {
		t.Fatal("contest should be closed")
	}
	if len(got.Recipes) != 2 || len(got.FinalScores) != 2 {
		t.Fatalf("entries=%d final_scores=%d, want 2 and 2", len(got.Recipes), len(got.FinalScores))
	}
	scores := map[string]int{}
	for _, fs := range got.FinalScores {
		scores[fs.RecipeID] = fs.Score
	}
	if scores["a"] != 0 || scores["late"] != 4 {
		t.Errorf("final scores = %v", got.FinalScores)
	}
}
