// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("telemetry: usage store closed")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	kind            TEXT NOT NULL,
	provider        TEXT NOT NULL,
	model           TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	error_kind      TEXT NOT NULL DEFAULT '',
	chars           INTEGER NOT NULL DEFAULT 0,
	fragments       INTEGER NOT NULL DEFAULT 0,
	started_at      INTEGER NOT NULL,
	duration_ms     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);
CREATE INDEX IF NOT EXISTS idx_jobs_provider ON jobs(provider);
`

// =============================================================================
// USAGE STORE
// =============================================================================

// UsageStore is the sqlite ledger.
type UsageStore struct {
	db *sql.DB
}

// OpenUsageStore opens or creates the ledger at path.
func OpenUsageStore(path string) (*UsageStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create usage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open usage store: %w", err)
	}
	// One connection keeps :memory: databases alive across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure usage store: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create usage schema: %w", err)
	}
	return &UsageStore{db: db}, nil
}

// Close releases the database.
func (s *UsageStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores one finished job. Recording the same job twice keeps the
// latest row.
func (s *UsageStore) Record(ctx context.Context, r Record) error {
	if s.db == nil {
		return ErrClosed
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(id, conversation_id, kind, provider, model, status, error_kind, chars, fragments, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.ConversationID, r.Kind, r.Provider, r.Model, r.Status, r.ErrorKind,
		r.Chars, r.Fragments, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// Recent returns the newest jobs first.
func (s *UsageStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, kind, provider, model, status, error_kind, chars, fragments, started_at, duration_ms
		FROM jobs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var started, durMS int64
		if err := rows.Scan(&r.JobID, &r.ConversationID, &r.Kind, &r.Provider, &r.Model,
			&r.Status, &r.ErrorKind, &r.Chars, &r.Fragments, &started, &durMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary totals the ledger per provider, ordered by provider name.
func (s *UsageStore) Summary(ctx context.Context) ([]ProviderSummary, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider,
		       COUNT(*),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END),
		       COALESCE(SUM(chars), 0),
		       COALESCE(SUM(duration_ms), 0)
		FROM jobs GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("summarize jobs: %w", err)
	}
	defer rows.Close()

	var out []ProviderSummary
	for rows.Next() {
		var ps ProviderSummary
		var durMS int64
		if err := rows.Scan(&ps.Provider, &ps.Jobs, &ps.Failures, &ps.Cancelled, &ps.Chars, &durMS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		ps.TotalDuration = time.Duration(durMS) * time.Millisecond
		out = append(out, ps)
	}
	return out, rows.Err()
}
