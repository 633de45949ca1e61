// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package models

import (
	"errors"
	"fmt"
)

// ErrorKind names a class of pipeline failure for skip summaries.
type ErrorKind string

const (
	// KindIngestion marks a malformed listing or event row. The row is dropped.
	KindIngestion ErrorKind = "ingestion"
	// KindMatch marks a matcher defect on well-formed input. The run aborts.
	KindMatch ErrorKind = "match"
	// KindScoring marks a pair the price model could not score. The pair is dropped.
	KindScoring ErrorKind = "scoring"
	// KindExternalService marks a failed description-generation call.
	KindExternalService ErrorKind = "external_service"
	// KindUnknown is returned by KindOf for errors outside the taxonomy.
	KindUnknown ErrorKind = "unknown"
)

// IngestionError reports a listing or event row rejected at the ingestion boundary.
type IngestionError struct {
	Source string // "listings" or "events"
	Row    int    // 1-based data row, header excluded
	ID     string
	Field  string
	Err    error
}

func (e *IngestionError) Error() string {
	msg := fmt.Sprintf("%s row %d", e.Source, e.Row)
	if e.ID != "" {
		msg += fmt.Sprintf(" (id %s)", e.ID)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %s", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

func (e *IngestionError) Unwrap() error { return e.Err }

// MatchError reports a matcher failure on valid-shaped input.
type MatchError struct {
	ListingID string
	Err       error
}

func (e *MatchError) Error() string {
	if e.ListingID == "" {
		return "match: " + e.Err.Error()
	}
	return fmt.Sprintf("match listing %s: %v", e.ListingID, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// ScoringError reports a pair the price model could not score.
type ScoringError struct {
	ListingID string
	EventID   string
	Err       error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score listing %s event %s: %v", e.ListingID, e.EventID, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// ExternalServiceError reports a failed call to an external collaborator
// such as the description generator.
type ExternalServiceError struct {
	Service     string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// KindOf classifies err into the pipeline error taxonomy.
func KindOf(err error) ErrorKind {
	var (
		ingestErr   *IngestionError
		matchErr    *MatchError
		scoreErr    *ScoringError
		externalErr *ExternalServiceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &matchErr):
		return KindMatch
	case errors.As(err, &scoreErr):
		return KindScoring
	case errors.As(err, &ingestErr):
		return KindIngestion
	case errors.As(err, &externalErr):
		return KindExternalService
	default:
		return KindUnknown
	}
}
