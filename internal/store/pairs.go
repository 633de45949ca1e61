// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
)

const pairColumns = `listing_id, event_id, distance_km, date_overlap, predicted_price, model_version,
	event_name, event_type, event_date, venue_name, days_until_event, current_price, price_level`

// ClampLimit applies the lookup default and maximum to a requested limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopMatches
	case limit > MaxTopMatches:
		return MaxTopMatches
	default:
		return limit
	}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// ReplacePairs replaces every pair scored by modelVersion with pairs in a
// single transaction. Readers see either the old table or the new one.
func (s *Store) ReplacePairs(ctx context.Context, modelVersion string, pairs []models.ListingEventPair) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.replacePairs(ctx, tx, modelVersion, pairs)
	})
}

// PublishRun replaces the pairs of the run's model version and records the
// run in one transaction, so lookups never see new pairs without their run
// or a run without its pairs.
func (s *Store) PublishRun(ctx context.Context, summary *pipeline.Summary, pairs []models.ListingEventPair) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.replacePairs(ctx, tx, summary.ModelVersion, pairs); err != nil {
			return err
		}
		return s.recordRun(ctx, tx, summary)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error takes precedence
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) replacePairs(ctx context.Context, tx execer, modelVersion string, pairs []models.ListingEventPair) error {
	start := time.Now()

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM listing_event_pairs WHERE model_version = ?`), modelVersion)
	if err != nil {
		return fmt.Errorf("failed to delete previous pairs: %w", err)
	}
	deleted, _ := res.RowsAffected() //nolint:errcheck // informational only

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO listing_event_pairs (`+pairColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }() //nolint:errcheck // closed with the transaction

	for i := range pairs {
		p := &pairs[i]
		if p.ModelVersion != modelVersion {
			return fmt.Errorf("pair %s/%s has model version %q, want %q", p.ListingID, p.EventID, p.ModelVersion, modelVersion)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ListingID,
			p.EventID,
			p.DistanceKm,
			p.DateOverlap,
			p.PredictedPrice,
			p.ModelVersion,
			p.EventName,
			p.EventType,
			formatDate(p.EventDate),
			p.VenueName,
			p.DaysUntilEvent,
			p.CurrentPrice,
			string(p.PriceLevel),
		); err != nil {
			return fmt.Errorf("failed to insert pair %s/%s: %w", p.ListingID, p.EventID, err)
		}
	}

	logging.Info().
		Str("model_version", modelVersion).
		Int64("deleted", deleted).
		Int("inserted", len(pairs)).
		Dur("duration", time.Since(start)).
		Msg("Replaced pair table")
	return nil
}

// TopMatches returns the nearest events for a listing, ordered by distance
// then event date then event ID. Pairs come from the model version of the
// latest recorded run; when no run is recorded, all versions are searched.
// limit is clamped with ClampLimit.
func (s *Store) TopMatches(ctx context.Context, listingID string, limit int) ([]models.ListingEventPair, error) {
	limit = ClampLimit(limit)

	run, err := s.LatestRun(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `SELECT ` + pairColumns + ` FROM listing_event_pairs WHERE listing_id = ?`
	args := []interface{}{listingID}
	if run != nil {
		query += ` AND model_version = ?`
		args = append(args, run.ModelVersion)
	}
	query += fmt.Sprintf(` ORDER BY distance_km, event_date, event_id LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // rows.Err is checked below

	out := make([]models.ListingEventPair, 0, limit)
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return out, nil
}

// Pair returns a single pair for the latest run's model version.
func (s *Store) Pair(ctx context.Context, listingID, eventID string) (*models.ListingEventPair, error) {
	run, err := s.LatestRun(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `SELECT ` + pairColumns + ` FROM listing_event_pairs WHERE listing_id = ? AND event_id = ?`
	args := []interface{}{listingID, eventID}
	if run != nil {
		query += ` AND model_version = ?`
		args = append(args, run.ModelVersion)
	}
	query += ` ORDER BY model_version LIMIT 1`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pair: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // rows.Err is checked below

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query pair: %w", err)
		}
		return nil, fmt.Errorf("%w: pair %s/%s", ErrNotFound, listingID, eventID)
	}
	p, err := scanPair(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPairs returns the number of stored pairs for modelVersion.
func (s *Store) CountPairs(ctx context.Context, modelVersion string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM listing_event_pairs WHERE model_version = ?`), modelVersion).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pairs: %w", err)
	}
	return n, nil
}

func scanPair(rows *sql.Rows) (models.ListingEventPair, error) {
	var (
		p         models.ListingEventPair
		eventDate sql.NullString
		name      sql.NullString
		kind      sql.NullString
		venue     sql.NullString
		level     sql.NullString
		days      sql.NullInt64
		current   sql.NullFloat64
	)
	if err := rows.Scan(
		&p.ListingID,
		&p.EventID,
		&p.DistanceKm,
		&p.DateOverlap,
		&p.PredictedPrice,
		&p.ModelVersion,
		&name,
		&kind,
		&eventDate,
		&venue,
		&days,
		&current,
		&level,
	); err != nil {
		return p, fmt.Errorf("failed to scan pair: %w", err)
	}
	p.EventName = name.String
	p.EventType = kind.String
	p.EventDate = parseDate(eventDate.String)
	p.VenueName = venue.String
	p.DaysUntilEvent = int(days.Int64)
	p.CurrentPrice = current.Float64
	p.PriceLevel = models.PriceLevel(level.String)
	return p, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
