// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tomtom215/eventbnb/internal/config"
	"github.com/tomtom215/eventbnb/internal/logging"
)

// app carries state shared by every command.
type app struct {
	configPath string
	outputJSON bool
	cfg        *config.Config

	stdout io.Writer
	stderr io.Writer
	stdin  *os.File
}

// execute runs the CLI and returns the process exit code.
func execute(args []string) int {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin}
	root := a.rootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventbnb",
		Short: "Event-aware rental pricing",
		Long: "EventBnb matches rental listings to nearby events, predicts an\n" +
			"event-adjusted nightly price, and serves the results.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: $CONFIG_PATH or ./eventbnb.yaml)")
	root.PersistentFlags().BoolVar(&a.outputJSON, "json", false, "Output JSON")
	root.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	root.AddCommand(a.runCmd())
	root.AddCommand(a.trainCmd())
	root.AddCommand(a.modelsCmd())
	root.AddCommand(a.lookupCmd())
	root.AddCommand(a.describeCmd())
	root.AddCommand(a.serveCmd())
	return root
}

// loadConfig loads configuration, applies flag overrides, validates, and
// initializes logging.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadUnvalidated(a.configPath)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Init(cfg.Logging.LoggerConfig())
	a.cfg = cfg
	return nil
}

// flagOverrides maps flag names to config setters. A command opts in by
// defining a flag with one of these names.
var flagOverrides = map[string]func(cfg *config.Config, v string) error{
	"log-level": func(cfg *config.Config, v string) error { cfg.Logging.Level = v; return nil },
	"listings":  func(cfg *config.Config, v string) error { cfg.Input.Listings = v; return nil },
	"events":    func(cfg *config.Config, v string) error { cfg.Input.Events = v; return nil },
	"samples":   func(cfg *config.Config, v string) error { cfg.Input.Samples = v; return nil },
	"warehouse": func(cfg *config.Config, v string) error { cfg.Input.Warehouse = v; return nil },
	"model":     func(cfg *config.Config, v string) error { cfg.Model.Version = v; return nil },
	"as-of":     func(cfg *config.Config, v string) error { cfg.Matching.AsOf = v; return nil },
	"index":     func(cfg *config.Config, v string) error { cfg.Matching.Index = v; return nil },
	"missing-availability": func(cfg *config.Config, v string) error {
		cfg.Matching.MissingAvailability = v
		return nil
	},
	"radius": func(cfg *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		cfg.Matching.RadiusKm = f
		return err
	},
	"window-before": func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		cfg.Matching.DateWindow.Before = n
		return err
	},
	"window-after": func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		cfg.Matching.DateWindow.After = n
		return err
	},
	"max-listings": func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		cfg.Matching.MaxListings = n
		return err
	},
	"upcoming-only": func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		cfg.Matching.UpcomingOnly = b
		return err
	},
	"store-driver": func(cfg *config.Config, v string) error { cfg.Store.Driver = v; return nil },
	"store-dsn":    func(cfg *config.Config, v string) error { cfg.Store.DSN = v; return nil },
	"port": func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		cfg.Server.Port = n
		return err
	},
	"refresh": func(cfg *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		cfg.Server.RefreshInterval = d
		return err
	},
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	var firstErr error
	flags.Visit(func(f *pflag.Flag) {
		set, ok := flagOverrides[f.Name]
		if !ok || firstErr != nil {
			return
		}
		if err := set(cfg, f.Value.String()); err != nil {
			firstErr = fmt.Errorf("invalid --%s %q: %w", f.Name, f.Value.String(), err)
		}
	})
	return firstErr
}

// matchingFlags registers the matching overrides shared by run and serve.
func matchingFlags(cmd *cobra.Command) {
	cmd.Flags().String("listings", "", "Listings CSV (overrides input.listings)")
	cmd.Flags().String("events", "", "Events CSV (overrides input.events)")
	cmd.Flags().String("warehouse", "", "DuckDB warehouse with listing and event tables")
	cmd.Flags().String("model", "", `Model version: "latest", N, "name@vN" or "baseline"`)
	cmd.Flags().String("as-of", "", "Reference date YYYY-MM-DD (default: today)")
	cmd.Flags().Float64("radius", 0, "Match radius in km")
	cmd.Flags().Int("window-before", 0, "Days before an event a stay still counts")
	cmd.Flags().Int("window-after", 0, "Days after an event a stay still counts")
	cmd.Flags().String("missing-availability", "", "Listings without availability: exclude or always")
	cmd.Flags().String("index", "", "Geospatial index: grid or linear")
	cmd.Flags().Int("max-listings", 0, "Stop after this many listings (0 = all)")
	cmd.Flags().Bool("upcoming-only", false, "Skip events that ended before the reference date")
}

func storeFlags(cmd *cobra.Command) {
	cmd.Flags().String("store-driver", "", "Pair store driver: duckdb, postgres or sqlite3")
	cmd.Flags().String("store-dsn", "", "Pair store path or connection string")
}
