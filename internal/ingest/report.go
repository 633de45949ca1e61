// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package ingest reads listings, events and training samples from CSV files
// or DuckDB tables into validated domain records.
//
// Malformed rows never reach the matcher. Each one is dropped and recorded
// in the Report as a *models.IngestionError naming the row and field. Only
// structural problems, such as an unreadable file or a missing required
// column, fail the whole read.
package ingest

import (
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
)

// Source names used in reports, errors and metrics.
const (
	SourceListings = "listings"
	SourceEvents   = "events"
	SourceSamples  = "samples"
)

// Report summarizes one ingestion pass.
type Report struct {
	Source   string                  `json:"source"`
	Accepted int                     `json:"accepted"`
	Rejected int                     `json:"rejected"`
	Errors   []models.IngestionError `json:"-"`
}

func newReport(source string) *Report {
	return &Report{Source: source}
}

func (r *Report) accept() {
	r.Accepted++
}

func (r *Report) reject(err *models.IngestionError) {
	r.Rejected++
	r.Errors = append(r.Errors, *err)
}

// Messages returns the rejection messages in row order.
func (r *Report) Messages() []string {
	out := make([]string, len(r.Errors))
	for i := range r.Errors {
		out[i] = r.Errors[i].Error()
	}
	return out
}

// finish records metrics and logs a one-line summary of rejected rows.
func (r *Report) finish() {
	metrics.RecordIngestion(r.Source, r.Accepted, r.Rejected)
	if r.Rejected == 0 {
		return
	}
	first := r.Errors[0]
	logging.Warn().
		Str("source", r.Source).
		Int("accepted", r.Accepted).
		Int("rejected", r.Rejected).
		Str("first_error", first.Error()).
		Msg("Dropped malformed rows")
}
