// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
	"github.com/tomtom215/eventbnb/internal/store"
)

// runOutput is the --json form of a run.
type runOutput struct {
	Summary   pipeline.Summary `json:"summary"`
	Persisted bool             `json:"persisted"`
	CSVPath   string           `json:"csv_path,omitempty"`
}

func (a *app) runCmd() *cobra.Command {
	var (
		csvPath string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match listings to events, score pairs and persist them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var st *store.Store
			if !dryRun {
				var err error
				if st, err = a.openStore(ctx); err != nil {
					return err
				}
				defer func() { _ = st.Close() }() //nolint:errcheck // best-effort on exit
			}

			b, err := a.runBatch(ctx, st, !dryRun)
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := writeCSVFile(csvPath, b.Result.Pairs); err != nil {
					return err
				}
			}

			if a.outputJSON {
				return a.printJSON(runOutput{Summary: b.Result.Summary, Persisted: b.Persist, CSVPath: csvPath})
			}
			a.printSummary(&b.Result.Summary, b.Persist)
			if csvPath != "" {
				fmt.Fprintf(a.stdout, "Pairs written to %s\n", csvPath)
			}
			return nil
		},
	}

	matchingFlags(cmd)
	storeFlags(cmd)
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also write the pair table to this CSV file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write to the pair store")
	return cmd
}

func writeCSVFile(path string, pairs []models.ListingEventPair) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return store.WriteCSV(f, pairs)
}

func (a *app) printSummary(s *pipeline.Summary, persisted bool) {
	w := a.stdout
	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "  Model:     %s\n", s.ModelVersion)
	fmt.Fprintf(w, "  As of:     %s\n", s.AsOf.Format(models.DateLayout))
	fmt.Fprintf(w, "  Listings:  %d\n", s.Listings)
	fmt.Fprintf(w, "  Events:    %d\n", s.Events)
	fmt.Fprintf(w, "  Matched:   %d\n", s.Matched)
	fmt.Fprintf(w, "  Scored:    %d\n", s.Scored)
	if total := s.TotalSkipped(); total > 0 {
		kinds := make([]string, 0, len(s.Skipped))
		for k := range s.Skipped {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		fmt.Fprintf(w, "  Skipped:   %d\n", total)
		for _, k := range kinds {
			fmt.Fprintf(w, "    %-10s %d\n", k+":", s.Skipped[models.ErrorKind(k)])
		}
	}
	fmt.Fprintf(w, "  Duration:  %s\n", s.Duration.Round(1e6))
	if !persisted {
		fmt.Fprintln(w, "  (dry run: pair store not updated)")
	}
}
