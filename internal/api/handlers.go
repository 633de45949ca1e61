// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/eventbnb/internal/describe"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/store"
)

// PairStore is the read side of the pair table.
type PairStore interface {
	TopMatches(ctx context.Context, listingID string, limit int) ([]models.ListingEventPair, error)
	Pair(ctx context.Context, listingID, eventID string) (*models.ListingEventPair, error)
	LatestRun(ctx context.Context) (*store.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error)
	Ping(ctx context.Context) error
}

// maxDescriptionBody bounds the description request body.
const maxDescriptionBody = 64 << 10

// Handler serves the API routes.
type Handler struct {
	store     PairStore
	writer    describe.Writer
	startTime time.Time

	mu       sync.RWMutex
	listings map[string]models.Listing
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithWriter enables the description route.
func WithWriter(w describe.Writer) HandlerOption {
	return func(h *Handler) {
		h.writer = w
	}
}

// WithListings supplies listing descriptions for the description route.
func WithListings(listings []models.Listing) HandlerOption {
	return func(h *Handler) {
		h.SetListings(listings)
	}
}

// NewHandler creates a handler over s.
func NewHandler(s PairStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:     s,
		startTime: time.Now(),
		listings:  map[string]models.Listing{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetListings replaces the listing catalog. Later duplicates win.
func (h *Handler) SetListings(listings []models.Listing) {
	byID := make(map[string]models.Listing, len(listings))
	for i := range listings {
		byID[listings[i].ID] = listings[i]
	}
	h.mu.Lock()
	h.listings = byID
	h.mu.Unlock()
}

func (h *Handler) listing(id string) (models.Listing, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	l, ok := h.listings[id]
	return l, ok
}

// Matches handles GET /api/v1/listings/{id}/matches.
//
// @Summary Top matched events for a listing
// @Description Returns the listing's matched events from the latest pipeline run, nearest first, then by event date.
// @Tags Matches
// @Produce json
// @Param id path string true "Listing ID (alphanumeric)"
// @Param limit query int false "Maximum results (1-50)" default(5)
// @Success 200 {object} APIResponse{data=[]models.ListingEventPair} "Matched events"
// @Failure 400 {object} APIResponse "Invalid listing ID or limit"
// @Failure 429 {object} APIResponse "Rate limit exceeded"
// @Failure 500 {object} APIResponse "Store error"
// @Router /api/v1/listings/{id}/matches [get]
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	id, ok := listingIDParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, store.DefaultTopMatches)
	if !ok {
		return
	}

	start := time.Now()
	pairs, err := h.store.TopMatches(r.Context(), id, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeStore, "Failed to query matches", err)
		return
	}
	if pairs == nil {
		pairs = []models.ListingEventPair{}
	}

	meta := Metadata{QueryTimeMS: time.Since(start).Milliseconds(), Count: intPtr(len(pairs))}
	if len(pairs) > 0 {
		meta.ModelVersion = pairs[0].ModelVersion
	}
	respondSuccess(w, r, pairs, meta)
}

// Match handles GET /api/v1/listings/{id}/matches/{event_id}.
//
// @Summary One listing-event pair
// @Tags Matches
// @Produce json
// @Param id path string true "Listing ID (alphanumeric)"
// @Param event_id path string true "Event ID"
// @Success 200 {object} APIResponse{data=models.ListingEventPair} "Matched pair"
// @Failure 400 {object} APIResponse "Invalid listing or event ID"
// @Failure 404 {object} APIResponse "No match for this listing and event"
// @Failure 500 {object} APIResponse "Store error"
// @Router /api/v1/listings/{id}/matches/{event_id} [get]
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	id, ok := listingIDParam(w, r)
	if !ok {
		return
	}
	eventID, ok := eventIDParam(w, r, chi.URLParam(r, "event_id"))
	if !ok {
		return
	}

	pair, ok := h.lookupPair(w, r, id, eventID)
	if !ok {
		return
	}
	respondSuccess(w, r, pair, Metadata{ModelVersion: pair.ModelVersion})
}

func (h *Handler) lookupPair(w http.ResponseWriter, r *http.Request, listingID, eventID string) (*models.ListingEventPair, bool) {
	pair, err := h.store.Pair(r.Context(), listingID, eventID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "No match for this listing and event", nil)
		return nil, false
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeStore, "Failed to query match", err)
		return nil, false
	}
	return pair, true
}

// DescriptionRequest is the optional body of the description route.
type DescriptionRequest struct {
	Description string `json:"description"`
}

// DescriptionResponse is the payload of the description route.
type DescriptionResponse struct {
	ListingID    string `json:"listing_id"`
	EventID      string `json:"event_id"`
	Description  string `json:"description"`
	ModelVersion string `json:"model_version"`
}

// Description handles POST /api/v1/listings/{id}/description?event_id=.
// The original description comes from the request body or, failing that,
// the listing catalog.
//
// @Summary Revise a listing description for an event
// @Description Rewrites the listing description to mention the matched event. Requires a configured description generator.
// @Tags Descriptions
// @Accept json
// @Produce json
// @Param id path string true "Listing ID (alphanumeric)"
// @Param event_id query string true "Event ID"
// @Param request body DescriptionRequest false "Original description (defaults to the loaded listing catalog)"
// @Success 200 {object} APIResponse{data=DescriptionResponse} "Revised description"
// @Failure 400 {object} APIResponse "Invalid parameters or no description available"
// @Failure 404 {object} APIResponse "No match for this listing and event"
// @Failure 502 {object} APIResponse "Description generator failed or is rate limited"
// @Failure 503 {object} APIResponse "Description generation is not configured"
// @Router /api/v1/listings/{id}/description [post]
func (h *Handler) Description(w http.ResponseWriter, r *http.Request) {
	id, ok := listingIDParam(w, r)
	if !ok {
		return
	}
	eventID, ok := eventIDParam(w, r, r.URL.Query().Get("event_id"))
	if !ok {
		return
	}
	if h.writer == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeDescribeDisabled, "Description generation is not configured", nil)
		return
	}

	var body DescriptionRequest
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, maxDescriptionBody)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			respondValidationError(w, r, "Request body must be JSON: {\"description\": \"...\"}", nil)
			return
		}
	}

	pair, ok := h.lookupPair(w, r, id, eventID)
	if !ok {
		return
	}

	listing, _ := h.listing(id)
	listing.ID = id
	if d := strings.TrimSpace(body.Description); d != "" {
		listing.Description = d
	}
	if strings.TrimSpace(listing.Description) == "" {
		respondError(w, r, http.StatusBadRequest, CodeMissingDescription, "No description known for this listing; send one in the request body", nil)
		return
	}

	start := time.Now()
	text, err := h.writer.Revise(r.Context(), describe.Request{Listing: listing, Pair: *pair})
	if err != nil {
		var extErr *models.ExternalServiceError
		switch {
		case errors.As(err, &extErr) && extErr.RateLimited:
			respondError(w, r, http.StatusBadGateway, CodeUpstreamRateLimit, "Description generator is rate limited, try again shortly", err)
		case errors.As(err, &extErr):
			respondError(w, r, http.StatusBadGateway, CodeUpstream, "Description generator failed", err)
		default:
			respondError(w, r, http.StatusInternalServerError, CodeInternal, "Description generation failed", err)
		}
		return
	}

	respondSuccess(w, r, DescriptionResponse{
		ListingID:    id,
		EventID:      eventID,
		Description:  text,
		ModelVersion: pair.ModelVersion,
	}, Metadata{QueryTimeMS: time.Since(start).Milliseconds(), ModelVersion: pair.ModelVersion})
}

// LatestRun handles GET /api/v1/runs/latest.
//
// @Summary Most recent pipeline run
// @Tags Runs
// @Produce json
// @Success 200 {object} APIResponse{data=store.RunRecord} "Latest run"
// @Failure 404 {object} APIResponse "No pipeline runs recorded"
// @Failure 500 {object} APIResponse "Store error"
// @Router /api/v1/runs/latest [get]
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.LatestRun(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "No pipeline runs recorded", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeStore, "Failed to query runs", err)
		return
	}
	respondSuccess(w, r, run, Metadata{ModelVersion: run.ModelVersion})
}

// Runs handles GET /api/v1/runs.
//
// @Summary Recent pipeline runs
// @Tags Runs
// @Produce json
// @Param limit query int false "Maximum results (1-100)" default(20)
// @Success 200 {object} APIResponse{data=[]store.RunRecord} "Runs, newest first"
// @Failure 400 {object} APIResponse "Invalid limit"
// @Failure 500 {object} APIResponse "Store error"
// @Router /api/v1/runs [get]
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 20)
	if !ok {
		return
	}
	if limit < 1 || limit > 100 {
		respondValidationError(w, r, "limit must be between 1 and 100", map[string]string{"field": "limit"})
		return
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeStore, "Failed to query runs", err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	respondSuccess(w, r, runs, Metadata{Count: intPtr(len(runs))})
}
