// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventbnb/internal/logging"
)

// Refresher rebuilds the served pair table.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

// Refresh calls f.
func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// RefreshServiceConfig controls the refresh schedule.
type RefreshServiceConfig struct {
	// Interval between refreshes. Zero disables periodic refresh, leaving
	// only the startup run.
	Interval time.Duration

	// RunOnStartup refreshes once before the first tick.
	RunOnStartup bool

	// Timeout bounds a single refresh. Zero means no bound beyond the
	// service context.
	Timeout time.Duration
}

// RefreshService re-runs the batch pipeline on a fixed interval.
type RefreshService struct {
	refresher Refresher
	config    RefreshServiceConfig
	logger    zerolog.Logger
}

// NewRefreshService creates a refresh service.
func NewRefreshService(r Refresher, cfg RefreshServiceConfig) *RefreshService {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	return &RefreshService{
		refresher: r,
		config:    cfg,
		logger:    logging.WithComponent("refresh"),
	}
}

// Serve implements suture.Service. Refresh failures are logged and retried
// on the next tick; only context cancellation ends the loop.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("run_on_startup", s.config.RunOnStartup).
		Msg("Pipeline refresh service starting")

	if s.config.RunOnStartup {
		s.refresh(ctx)
	}
	if s.config.Interval == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefreshService) refresh(ctx context.Context) {
	runCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.refresher.Refresh(runCtx); err != nil {
		if ctx.Err() != nil {
			return // shutting down
		}
		s.logger.Warn().Err(err).Msg("Pipeline refresh failed, keeping previous pairs")
		return
	}
	s.logger.Info().Dur("duration", time.Since(start)).Msg("Pipeline refresh complete")
}

// String implements fmt.Stringer.
func (s *RefreshService) String() string {
	return "pipeline-refresh"
}
