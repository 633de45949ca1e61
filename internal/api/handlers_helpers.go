// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/eventbnb/internal/validation"
)

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// listingIDParam returns the {id} path value, writing a 400 when it is not
// a well-formed listing ID.
func listingIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validation.IsListingID(id) {
		respondValidationError(w, r, "Invalid listing id: use letters and numbers only", map[string]string{"field": "id"})
		return "", false
	}
	return id, true
}

// eventIDParam validates an event ID from the path or query.
func eventIDParam(w http.ResponseWriter, r *http.Request, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 128 {
		respondValidationError(w, r, "event_id is required (max 128 characters)", map[string]string{"field": "event_id"})
		return "", false
	}
	return value, true
}

// limitParam parses ?limit=, writing a 400 for a non-integer. Missing means
// def; out-of-range values are clamped by the caller.
func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondValidationError(w, r, "limit must be an integer", map[string]string{"field": "limit"})
		return 0, false
	}
	return n, true
}
