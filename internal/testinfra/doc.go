// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package testinfra starts throwaway Docker containers for integration tests.
//
// Everything here is built only with the integration tag:
//
//	go test -tags integration ./internal/store/...
//
// # Postgres Container
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    s, err := store.Open(ctx, store.DialectPostgres, pg.DSN)
//	    // ...
//	}
//
// Tests skip rather than fail when Docker is unavailable.
package testinfra
