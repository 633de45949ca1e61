// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package supervisor runs the long-lived parts of `eventbnb serve` under a
suture v4 supervisor tree.

# Overview

	Root ("eventbnb")
	├── BatchSupervisor ("batch-layer")
	│   └── RefreshService (if server.refresh_interval > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's failure counter: each failure
increments a counter that decays over FailureDecay seconds, and once it
exceeds FailureThreshold restarts wait FailureBackoff.

# Usage

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Not Supervised

The pair store is a connection pool, not a service; it is opened before the
tree starts and closed after it stops.

# Debugging Shutdown

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
	}
*/
package supervisor
