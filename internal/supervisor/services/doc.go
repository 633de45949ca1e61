// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package services provides suture.Service wrappers for EventBnb components.

Each wrapper translates a component's lifecycle into suture's context-aware
Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Pipeline Refresh (RefreshService):
  - Re-runs the batch pipeline on a fixed interval
  - Optionally runs once on startup
  - A failed refresh is logged and retried on the next tick; it never
    crashes the service, so the last good pair table keep being served

# Return Semantics

  - nil: service stopped cleanly and will not be restarted
  - error: service crashed and will be restarted with backoff
  - ctx.Err(): shutdown requested
*/
package services
