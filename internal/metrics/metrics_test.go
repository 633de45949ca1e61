// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPipelineRun(t *testing.T) {
	successBefore := testutil.ToFloat64(PipelineRuns.WithLabelValues("success"))
	failedBefore := testutil.ToFloat64(PipelineRuns.WithLabelValues("failed"))
	pairsBefore := testutil.ToFloat64(PairsEmitted)

	RecordPipelineRun(120*time.Millisecond, 7, nil)
	RecordPipelineRun(10*time.Millisecond, 3, errors.New("index build failed"))

	if got := testutil.ToFloat64(PipelineRuns.WithLabelValues("success")) - successBefore; got != 1 {
		t.Errorf("success runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PipelineRuns.WithLabelValues("failed")) - failedBefore; got != 1 {
		t.Errorf("failed runs delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(PairsEmitted) - pairsBefore; got != 7 {
		t.Errorf("pairs emitted delta = %v, want 7 (failed runs emit nothing)", got)
	}
}

func TestRecordSkipped(t *testing.T) {
	before := testutil.ToFloat64(PairsSkipped.WithLabelValues("scoring"))

	RecordSkipped("scoring", 2)
	RecordSkipped("scoring", 0)
	RecordSkipped("scoring", -1)

	if got := testutil.ToFloat64(PairsSkipped.WithLabelValues("scoring")) - before; got != 2 {
		t.Errorf("skipped delta = %v, want 2", got)
	}
}

func TestRecordIngestion(t *testing.T) {
	acceptedBefore := testutil.ToFloat64(RowsIngested.WithLabelValues("events", "accepted"))
	rejectedBefore := testutil.ToFloat64(RowsIngested.WithLabelValues("events", "rejected"))

	RecordIngestion("events", 10, 2)

	if got := testutil.ToFloat64(RowsIngested.WithLabelValues("events", "accepted")) - acceptedBefore; got != 10 {
		t.Errorf("accepted delta = %v, want 10", got)
	}
	if got := testutil.ToFloat64(RowsIngested.WithLabelValues("events", "rejected")) - rejectedBefore; got != 2 {
		t.Errorf("rejected delta = %v, want 2", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/listings/{id}/matches", "200"))

	RecordAPIRequest("GET", "/api/v1/listings/{id}/matches", "200", 5*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/listings/{id}/matches", "200"))
	if after-before != 1 {
		t.Errorf("api requests delta = %v, want 1", after-before)
	}
}
