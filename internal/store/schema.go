// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package store

import (
	"context"
	"fmt"
	"strings"
)

const createPairsTable = `
CREATE TABLE IF NOT EXISTS listing_event_pairs (
	listing_id       VARCHAR(64)  NOT NULL,
	event_id         VARCHAR(128) NOT NULL,
	distance_km      {{double}}   NOT NULL,
	date_overlap     BOOLEAN      NOT NULL,
	predicted_price  {{double}}   NOT NULL,
	model_version    VARCHAR(64)  NOT NULL,
	event_name       TEXT,
	event_type       TEXT,
	event_date       VARCHAR(10),
	venue_name       TEXT,
	days_until_event INTEGER,
	current_price    {{double}},
	price_level      VARCHAR(16)
)`

const createPairsIndex = `
CREATE INDEX IF NOT EXISTS idx_pairs_listing
	ON listing_event_pairs (listing_id, model_version)`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id        VARCHAR(64) PRIMARY KEY,
	model_version VARCHAR(64) NOT NULL,
	as_of         VARCHAR(10) NOT NULL,
	started_at    VARCHAR(32) NOT NULL,
	finished_at   VARCHAR(32) NOT NULL,
	listings      INTEGER     NOT NULL,
	events        INTEGER     NOT NULL,
	matched       INTEGER     NOT NULL,
	scored        INTEGER     NOT NULL,
	skipped_total INTEGER     NOT NULL,
	skipped_json  TEXT,
	duration_ms   BIGINT      NOT NULL
)`

const createRunsIndex = `
CREATE INDEX IF NOT EXISTS idx_runs_finished
	ON pipeline_runs (finished_at)`

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createPairsTable, createPairsIndex, createRunsTable, createRunsIndex} {
		if _, err := s.db.ExecContext(ctx, s.ddl(stmt)); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// ddl substitutes dialect-specific column types.
func (s *Store) ddl(stmt string) string {
	double := "DOUBLE"
	switch s.dialect {
	case DialectPostgres:
		double = "DOUBLE PRECISION"
	case DialectSQLite:
		double = "REAL"
	}
	return strings.ReplaceAll(stmt, "{{double}}", double)
}
