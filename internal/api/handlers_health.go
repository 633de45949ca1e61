// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the payload of /healthz.
type HealthStatus struct {
	Status   string `json:"status"`
	Store    string `json:"store"`
	Describe string `json:"describe"`
	Listings int    `json:"listings"`
	Uptime   string `json:"uptime"`
}

// Health handles GET /healthz. It answers 503 when the store is unreachable.
//
// @Summary Service health
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus} "Healthy"
// @Failure 503 {object} APIResponse{data=HealthStatus} "Store unreachable"
// @Router /healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:   "healthy",
		Store:    "ok",
		Describe: "disabled",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.writer != nil {
		status.Describe = "enabled"
	}
	h.mu.RLock()
	status.Listings = len(h.listings)
	h.mu.RUnlock()

	code, envelope := http.StatusOK, "success"
	if err := h.store.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Store = "unreachable"
		code, envelope = http.StatusServiceUnavailable, "error"
	}

	respondJSON(w, code, &APIResponse{Status: envelope, Data: status})
}
