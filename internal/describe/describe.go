// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package describe rewrites listing descriptions for a targeted nearby event
// through an external text generator.
//
// The only operation is Writer.Revise. GeminiClient implements it over the
// Gemini generateContent endpoint with retry on rate limiting, a circuit
// breaker, and a per-client cooldown. CachedWriter memoizes any Writer in
// BadgerDB keyed by model and prompt.
//
// Failures here never touch the pair table; callers surface them as
// *models.ExternalServiceError.
package describe

import (
	"context"

	"github.com/tomtom215/eventbnb/internal/models"
)

// Request is the input to a revision: the listing whose description is
// rewritten and the matched event to target.
type Request struct {
	Listing models.Listing
	Pair    models.ListingEventPair
}

// Writer revises listing descriptions.
type Writer interface {
	Revise(ctx context.Context, req Request) (string, error)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, req Request) (string, error)

// Revise calls f.
func (f WriterFunc) Revise(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
