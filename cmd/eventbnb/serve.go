// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/eventbnb/internal/api"
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/supervisor"
	"github.com/tomtom215/eventbnb/internal/supervisor/services"
)

func (a *app) serveCmd() *cobra.Command {
	var refreshOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lookup HTTP API",
		Long: "Serve exposes the pair table over HTTP under a supervisor tree.\n" +
			"With --refresh (REFRESH_INTERVAL) the pipeline is re-run periodically.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, refreshOnStart)
		},
	}

	matchingFlags(cmd)
	storeFlags(cmd)
	cmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
	cmd.Flags().String("refresh", "", "Re-run the pipeline at this interval, e.g. 1h (0 disables)")
	cmd.Flags().BoolVar(&refreshOnStart, "refresh-on-start", false, "Run the pipeline once before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, refreshOnStart bool) error {
	sc := a.cfg.Server

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }() //nolint:errcheck // best-effort on exit

	var opts []api.HandlerOption
	if a.cfg.Describe.Enabled() {
		writer, closeWriter, err := a.newWriter(a.cfg.Describe.APIKey)
		if err != nil {
			return err
		}
		defer closeWriter()
		opts = append(opts, api.WithWriter(writer))
	} else {
		logging.Info().Msg("Description route disabled (GEMINI_API_KEY not set)")
	}

	handler := api.NewHandler(st, opts...)
	if listings, err := a.loadListings(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to load listing catalog, descriptions need a request body")
	} else {
		handler.SetListings(listings)
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = sc.CORSOrigins
	mwCfg.RateLimitRequests = sc.RateLimitRequests
	mwCfg.RateLimitWindow = sc.RateLimitWindow
	mwCfg.RateLimitDisabled = sc.RateLimitDisabled

	server := &http.Server{
		Addr:              sc.Addr(),
		Handler:           api.NewRouter(handler, mwCfg).SetupChi(),
		ReadTimeout:       sc.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      sc.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{ShutdownTimeout: sc.ShutdownTimeout})
	tree.AddAPIService(services.NewHTTPServerService(server, sc.ShutdownTimeout))

	if sc.RefreshInterval > 0 || refreshOnStart {
		refresh := services.RefreshFunc(func(ctx context.Context) error {
			b, err := a.runBatch(ctx, st, true)
			if err != nil {
				return err
			}
			handler.SetListings(b.Inputs.Listings)
			return nil
		})
		tree.AddBatchService(services.NewRefreshService(refresh, services.RefreshServiceConfig{
			Interval:     sc.RefreshInterval,
			RunOnStartup: refreshOnStart,
		}))
		logging.Info().Dur("interval", sc.RefreshInterval).Bool("on_start", refreshOnStart).Msg("Pipeline refresh enabled")
	}

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Server stopped")
	return nil
}
