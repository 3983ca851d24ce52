// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/cityofrecipes/internal/config"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open in-memory badger: %v", err)
	}
	l := New(db)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpen_InMemory(t *testing.T) {
	l, err := Open(&config.LedgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if _, err := l.RecordAttempt(context.Background(), "c1", "u1", "winner", nil); err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}
}

func TestRecordAttempt(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	rec, err := l.Get(ctx, "c1", "u1")
	if err != nil || rec != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", rec, err)
	}

	rec, err = l.RecordAttempt(ctx, "c1", "u1", "winner", errors.New("smtp: 421 try later"))
	if err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}
	if rec.Status != StatusFailed || rec.Attempts != 1 || rec.LastError == "" || rec.Delivered() {
		t.Errorf("after failure: %+v", rec)
	}

	rec, err = l.RecordAttempt(ctx, "c1", "u1", "winner", nil)
	if err != nil {
		t.Fatalf("RecordAttempt() error = %v", err)
	}
	if rec.Status != StatusSent || rec.Attempts != 2 || rec.LastError != "" || !rec.Delivered() {
		t.Errorf("after success: %+v", rec)
	}

	stored, err := l.Get(ctx, "c1", "u1")
	if err != nil || !stored.Delivered() || stored.Kind != "winner" {
		t.Errorf("Get() = %+v, %v", stored, err)
	}
}

func TestRecordsByContest(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	for _, a := range []string{"u1", "u2"} {
		if _, err := l.RecordAttempt(ctx, "c1", a, "participant", nil); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if _, err := l.RecordAttempt(ctx, "c10", "u3", "participant", nil); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	recs, err := l.Records(ctx, "c1")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Records(c1) returned %d records, want 2 (c10 must not match)", len(recs))
	}
}

func TestPendingContests(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []string{"c2", "c1"} {
		if err := l.MarkPending(ctx, id); err != nil {
			t.Fatalf("MarkPending: %v", err)
		}
	}
	ids, err := l.PendingContests(ctx)
	if err != nil {
		t.Fatalf("PendingContests() error = %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("PendingContests() = %v", ids)
	}

	if err := l.ClearPending(ctx, "c1"); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	ids, _ = l.PendingContests(ctx)
	if len(ids) != 1 || ids[0] != "c2" {
		t.Errorf("PendingContests() after clear = %v", ids)
	}
}
