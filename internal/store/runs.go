// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
)

// RunRecord is a stored pipeline run.
type RunRecord struct {
	RunID        string                   `json:"run_id"`
	ModelVersion string                   `json:"model_version"`
	AsOf         time.Time                `json:"as_of"`
	StartedAt    time.Time                `json:"started_at"`
	FinishedAt   time.Time                `json:"finished_at"`
	Listings     int                      `json:"listings"`
	Events       int                      `json:"events"`
	Matched      int                      `json:"matched"`
	Scored       int                      `json:"scored"`
	SkippedTotal int                      `json:"skipped_total"`
	Skipped      map[models.ErrorKind]int `json:"skipped"`
	DurationMS   int64                    `json:"duration_ms"`
}

// skippedDetail is the JSON document kept in pipeline_runs.skipped_json.
type skippedDetail struct {
	Counts      map[models.ErrorKind]int `json:"counts"`
	Pairs       []models.PairRef         `json:"pairs,omitempty"`
	Diagnostics []string                 `json:"diagnostics,omitempty"`
}

const runColumns = `run_id, model_version, as_of, started_at, finished_at, listings, events,
	matched, scored, skipped_total, skipped_json, duration_ms`

// RecordRun stores the summary of a completed run.
func (s *Store) RecordRun(ctx context.Context, summary *pipeline.Summary) error {
	return s.recordRun(ctx, s.db, summary)
}

func (s *Store) recordRun(ctx context.Context, db execer, summary *pipeline.Summary) error {
	detail, err := json.Marshal(skippedDetail{
		Counts:      summary.Skipped,
		Pairs:       summary.SkippedPairs,
		Diagnostics: summary.Diagnostics,
	})
	if err != nil {
		return fmt.Errorf("failed to encode skipped rows: %w", err)
	}

	finished := summary.StartedAt.Add(summary.Duration)
	_, err = db.ExecContext(ctx, s.rebind(`INSERT INTO pipeline_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		summary.RunID,
		summary.ModelVersion,
		formatDate(summary.AsOf),
		formatTimestamp(summary.StartedAt),
		formatTimestamp(finished),
		summary.Listings,
		summary.Events,
		summary.Matched,
		summary.Scored,
		summary.TotalSkipped(),
		string(detail),
		summary.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", summary.RunID, err)
	}
	return nil
}

// LatestRun returns the most recently finished run, or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no recorded runs", ErrNotFound)
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM pipeline_runs ORDER BY finished_at DESC, run_id LIMIT %d`, runColumns, limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // rows.Err is checked below

	var out []RunRecord
	for rows.Next() {
		var (
			r                       RunRecord
			asOf, started, finished string
			detail                  sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.ModelVersion, &asOf, &started, &finished,
			&r.Listings, &r.Events, &r.Matched, &r.Scored, &r.SkippedTotal, &detail, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.AsOf = parseDate(asOf)
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		if detail.Valid && detail.String != "" {
			var d skippedDetail
			if err := json.Unmarshal([]byte(detail.String), &d); err != nil {
				return nil, fmt.Errorf("failed to decode skipped rows of run %s: %w", r.RunID, err)
			}
			r.Skipped = d.Counts
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}
