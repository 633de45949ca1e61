// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pipeline

import (
	"time"

	"github.com/tomtom215/eventbnb/internal/ingest"
	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
)

// maxDiagnostics caps the per-row messages kept in a Summary.
const maxDiagnostics = 100

// Summary describes what a run consumed, emitted, and skipped.
type Summary struct {
	RunID        string                   `json:"run_id"`
	ModelVersion string                   `json:"model_version"`
	AsOf         time.Time                `json:"as_of"`
	StartedAt    time.Time                `json:"started_at"`
	Listings     int                      `json:"listings"`
	Events       int                      `json:"events"`
	Matched      int                      `json:"matched"`
	Scored       int                      `json:"scored"`
	Skipped      map[models.ErrorKind]int `json:"skipped"`
	SkippedPairs []models.PairRef         `json:"skipped_pairs,omitempty"`
	Diagnostics  []string                 `json:"diagnostics,omitempty"`
	Duration     time.Duration            `json:"duration_ns"`
}

// AddIngestion merges rows rejected at ingestion into the summary.
func (s *Summary) AddIngestion(r *ingest.Report) {
	if r == nil || r.Rejected == 0 {
		return
	}
	if s.Skipped == nil {
		s.Skipped = make(map[models.ErrorKind]int)
	}
	s.Skipped[models.KindIngestion] += r.Rejected
	metrics.RecordSkipped(string(models.KindIngestion), r.Rejected)
	for i := range r.Errors {
		s.addDiagnostic(r.Errors[i].Error())
	}
}

// TotalSkipped returns the number of rows and pairs skipped for any reason.
func (s *Summary) TotalSkipped() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

func (s *Summary) addDiagnostic(msg string) {
	if len(s.Diagnostics) < maxDiagnostics {
		s.Diagnostics = append(s.Diagnostics, msg)
	}
}
