// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/eventbnb/internal/pricing"
)

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List stored model versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ms, err := pricing.NewStore(a.cfg.Model.Dir)
			if err != nil {
				return err
			}
			list, err := ms.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if list == nil {
				list = []pricing.ModelMetadata{}
			}

			if a.outputJSON {
				return a.printJSON(list)
			}
			if len(list) == 0 {
				fmt.Fprintf(a.stdout, "No models in %s. Scoring uses %s.\n", a.cfg.Model.Dir, pricing.BaselineVersion)
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tTRAINED\tSAMPLES\tRMSE\tLAMBDA\tSIZE")
			for i := range list {
				m := &list[i]
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%g\t%d\n",
					m.VersionString(), m.TrainedAt.Format("2006-01-02 15:04"), m.SampleCount, m.TrainRMSE, m.Lambda, m.SizeBytes)
			}
			return w.Flush()
		},
	}
}
