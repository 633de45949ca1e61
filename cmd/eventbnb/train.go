// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/eventbnb/internal/ingest"
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/pricing"
)

type trainOutput struct {
	Model    pricing.ModelMetadata `json:"model"`
	Accepted int                   `json:"accepted_samples"`
	Rejected int                   `json:"rejected_samples"`
	Pruned   int                   `json:"pruned_versions"`
}

func (a *app) trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a ridge price model from historical samples",
		Long: "Train fits log(observed/base) price uplift from a samples CSV and\n" +
			"saves the result as the next version of model.name.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mc := a.cfg.Model
			if a.cfg.Input.Samples == "" {
				return errors.New("no samples configured: set --samples or SAMPLES_PATH")
			}

			samples, report, err := ingest.ReadSamplesFile(a.cfg.Input.Samples)
			if err != nil {
				return err
			}
			for _, msg := range report.Messages() {
				logging.Warn().Str("source", report.Source).Msg(msg)
			}

			model, err := pricing.Train(samples, pricing.RidgeConfig{
				Lambda:        mc.L2,
				MaxZ:          mc.MaxZ,
				MaxMultiplier: mc.MaxMultiplier,
			})
			if err != nil {
				return err
			}
			model.Name = mc.Name

			ms, err := pricing.NewStore(mc.Dir)
			if err != nil {
				return err
			}
			meta, err := ms.SaveRidge(ctx, model)
			if err != nil {
				return err
			}
			logging.Info().
				Str("model_version", meta.VersionString()).
				Int("samples", meta.SampleCount).
				Float64("train_rmse", meta.TrainRMSE).
				Msg("Model trained")

			pruned := 0
			if mc.Keep > 0 {
				if pruned, err = ms.Prune(ctx, mc.Name, mc.Keep); err != nil {
					return err
				}
			}

			if a.outputJSON {
				return a.printJSON(trainOutput{Model: *meta, Accepted: report.Accepted, Rejected: report.Rejected, Pruned: pruned})
			}
			fmt.Fprintf(a.stdout, "Saved %s (%d samples, %d rejected, train RMSE %.2f)\n",
				meta.VersionString(), meta.SampleCount, report.Rejected, meta.TrainRMSE)
			if pruned > 0 {
				fmt.Fprintf(a.stdout, "Pruned %d old version(s)\n", pruned)
			}
			return nil
		},
	}

	cmd.Flags().String("samples", "", "Samples CSV (overrides input.samples)")
	return cmd
}
