// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/store"
	"github.com/tomtom215/eventbnb/internal/validation"
)

func (a *app) lookupCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "lookup <listing-id>",
		Short: "Show the nearest matched events for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !validation.IsListingID(id) {
				return fmt.Errorf("invalid listing id %q: use letters and numbers only", id)
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }() //nolint:errcheck // best-effort on exit

			pairs, err := st.TopMatches(ctx, id, limit)
			if err != nil {
				return err
			}
			if pairs == nil {
				pairs = []models.ListingEventPair{}
			}

			if a.outputJSON {
				return a.printJSON(pairs)
			}
			if len(pairs) == 0 {
				fmt.Fprintf(a.stdout, "No matched events for listing %s.\n", id)
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tNAME\tTYPE\tDATE\tVENUE\tKM\tDAYS\tCURRENT\tSUGGESTED\tLEVEL")
			for i := range pairs {
				p := &pairs[i]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%.2f\t%.2f\t%s\n",
					p.EventID, p.EventName, p.EventType, p.EventDate.Format(models.DateLayout),
					p.VenueName, p.DistanceKm, p.DaysUntilEvent, p.CurrentPrice, p.PredictedPrice, p.PriceLevel)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "\nModel: %s\n", pairs[0].ModelVersion)
			return nil
		},
	}

	storeFlags(cmd)
	cmd.Flags().IntVar(&limit, "limit", store.DefaultTopMatches, "Maximum matches to show")
	return cmd
}
