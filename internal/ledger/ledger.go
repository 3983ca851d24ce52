// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package ledger records contest-result notification outcomes in BadgerDB so
// that each author is emailed at most once per contest and undelivered
// notifications survive a restart.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
)

const (
	recordKeyPrefix  = "notify:"
	pendingKeyPrefix = "pending:"
)

// Status of a recipient record.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Record is the delivery state for one (contest, author) pair.
type Record struct {
	ContestID string    `json:"contest_id"`
	AuthorID  string    `json:"author_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delivered reports whether the notification went out.
func (r *Record) Delivered() bool {
	return r != nil && r.Status == StatusSent
}

// Ledger is the Badger-backed notification ledger.
type Ledger struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) the ledger described by cfg.
func Open(cfg *config.LedgerConfig) (*Ledger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{logger: logging.WithComponent("ledger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return New(db), nil
}

// New wraps an already opened Badger database.
func New(db *badger.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func recordKey(contestID, authorID string) []byte {
	return []byte(recordKeyPrefix + contestID + ":" + authorID)
}

func pendingKey(contestID string) []byte {
	return []byte(pendingKeyPrefix + contestID)
}

// Get returns the record for (contestID, authorID), or nil when none exists.
func (l *Ledger) Get(_ context.Context, contestID, authorID string) (*Record, error) {
	var rec *Record
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(contestID, authorID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}
		return item.Value(func(val []byte) error {
			rec = &Record{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordAttempt stores the outcome of one delivery attempt and returns the
// updated record. A nil sendErr marks the recipient as sent.
func (l *Ledger) RecordAttempt(_ context.Context, contestID, authorID, kind string, sendErr error) (*Record, error) {
	var rec Record
	err := l.db.Update(func(txn *badger.Txn) error {
		key := recordKey(contestID, authorID)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			rec = Record{ContestID: contestID, AuthorID: authorID}
		case err != nil:
			return fmt.Errorf("get record: %w", err)
		default:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
		}

		rec.Kind = kind
		rec.Attempts++
		rec.UpdatedAt = l.now().UTC()
		if sendErr != nil {
			rec.Status = StatusFailed
			rec.LastError = sendErr.Error()
		} else {
			rec.Status = StatusSent
			rec.LastError = ""
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Records lists every recipient record of a contest.
func (l *Ledger) Records(_ context.Context, contestID string) ([]Record, error) {
	var out []Record
	prefix := []byte(recordKeyPrefix + contestID + ":")
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPending flags a contest as having undelivered notifications.
func (l *Ledger) MarkPending(_ context.Context, contestID string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(contestID), []byte(l.now().UTC().Format(time.RFC3339)))
	})
}

// ClearPending removes the pending flag of a contest.
func (l *Ledger) ClearPending(_ context.Context, contestID string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingKey(contestID))
	})
}

// PendingContests lists contests that still have undelivered notifications.
func (l *Ledger) PendingContests(_ context.Context) ([]string, error) {
	var ids []string
	prefix := []byte(pendingKeyPrefix)
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), pendingKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct {
	logger zerolog.Logger
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
