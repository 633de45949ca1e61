// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefreshService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         RefreshServiceConfig
		fail        bool
		wait        time.Duration
		wantAtLeast int32
	}{
		{"runs on startup", RefreshServiceConfig{Interval: time.Hour, RunOnStartup: true}, false, 50 * time.Millisecond, 1},
		{"ticks", RefreshServiceConfig{Interval: 20 * time.Millisecond}, false, 150 * time.Millisecond, 2},
		{"keeps going after failures", RefreshServiceConfig{Interval: 20 * time.Millisecond, RunOnStartup: true}, true, 150 * time.Millisecond, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			svc := NewRefreshService(RefreshFunc(func(context.Context) error {
				calls.Add(1)
				if tt.fail {
					return errors.New("ingest failed")
				}
				return nil
			}), tt.cfg)

			ctx, cancel := context.WithTimeout(context.Background(), tt.wait)
			defer cancel()
			err := svc.Serve(ctx)

			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve = %v, want context.DeadlineExceeded", err)
			}
			if got := calls.Load(); got < tt.wantAtLeast {
				t.Errorf("refreshes = %d, want >= %d", got, tt.wantAtLeast)
			}
		})
	}
}

func TestRefreshService_NoStartupRun(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc := NewRefreshService(RefreshFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), RefreshServiceConfig{Interval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if calls.Load() != 0 {
		t.Errorf("refreshes = %d, want 0", calls.Load())
	}
}

func TestRefreshService_TimeoutBoundsRun(t *testing.T) {
	t.Parallel()

	deadlineSeen := make(chan bool, 1)
	svc := NewRefreshService(RefreshFunc(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		deadlineSeen <- ok
		<-ctx.Done()
		return ctx.Err()
	}), RefreshServiceConfig{Interval: time.Hour, RunOnStartup: true, Timeout: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if !<-deadlineSeen {
		t.Error("refresh context had no deadline")
	}
}

func TestRefreshService_StartupOnly(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc := NewRefreshService(RefreshFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), RefreshServiceConfig{RunOnStartup: true})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("refreshes = %d, want exactly 1", calls.Load())
	}
	if svc.String() != "pipeline-refresh" {
		t.Errorf("String() = %q", svc.String())
	}
}
