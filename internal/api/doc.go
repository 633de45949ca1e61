// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package api serves the read-only lookup surface over the pair table.

Routes:

	GET  /healthz                                       store ping and feature flags
	GET  /metrics                                       Prometheus exposition
	GET  /swagger/*                                     OpenAPI document and UI
	GET  /api/v1/listings/{id}/matches?limit=N          top matches for a listing
	GET  /api/v1/listings/{id}/matches/{event_id}       a single pair
	POST /api/v1/listings/{id}/description?event_id=E   revised description
	GET  /api/v1/runs/latest                            most recent pipeline run
	GET  /api/v1/runs?limit=N                           recent pipeline runs

Listing IDs must match ^[A-Za-z0-9]+$; anything else is rejected with 400
before the store is touched.

Every JSON response uses the same envelope:

	{
	  "status": "success",
	  "data": [...],
	  "metadata": {"timestamp": "...", "query_time_ms": 3, "count": 5}
	}

Errors set status to "error" and fill error.code and error.message.

The description route is optional. Without a configured describe.Writer it
answers 503; generator failures answer 502 and never touch the pair table.
*/
package api
