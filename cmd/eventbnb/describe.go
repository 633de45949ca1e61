// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tomtom215/eventbnb/internal/describe"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/validation"
)

type describeOutput struct {
	ListingID    string `json:"listing_id"`
	EventID      string `json:"event_id"`
	Original     string `json:"original"`
	Description  string `json:"description"`
	ModelVersion string `json:"model_version"`
}

func (a *app) describeCmd() *cobra.Command {
	var (
		eventID string
		text    string
	)

	cmd := &cobra.Command{
		Use:   "describe <listing-id> --event <event-id>",
		Short: "Revise a listing description to mention a matched event",
		Long: "Describe rewrites a listing description for one of its matched events\n" +
			"using the configured generator. The API key comes from GEMINI_API_KEY\n" +
			"or describe.api_key; when neither is set it is read from the terminal.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !validation.IsListingID(id) {
				return fmt.Errorf("invalid listing id %q: use letters and numbers only", id)
			}
			if strings.TrimSpace(eventID) == "" {
				return errors.New("--event is required")
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }() //nolint:errcheck // best-effort on exit

			pair, err := st.Pair(ctx, id, eventID)
			if err != nil {
				return fmt.Errorf("listing %s, event %s: %w", id, eventID, err)
			}

			listing := models.Listing{ID: id, Description: strings.TrimSpace(text)}
			if listing.Description == "" {
				if listing, err = a.findListing(ctx, id); err != nil {
					return err
				}
			}

			apiKey, err := a.apiKey()
			if err != nil {
				return err
			}
			writer, closeWriter, err := a.newWriter(apiKey)
			if err != nil {
				return err
			}
			defer closeWriter()

			revised, err := writer.Revise(ctx, describe.Request{Listing: listing, Pair: *pair})
			if err != nil {
				return err
			}

			if a.outputJSON {
				return a.printJSON(describeOutput{
					ListingID:    id,
					EventID:      eventID,
					Original:     listing.Description,
					Description:  revised,
					ModelVersion: pair.ModelVersion,
				})
			}
			fmt.Fprintln(a.stdout, revised)
			return nil
		},
	}

	storeFlags(cmd)
	cmd.Flags().String("listings", "", "Listings CSV to read the original description from")
	cmd.Flags().StringVar(&eventID, "event", "", "Matched event id (required)")
	cmd.Flags().StringVar(&text, "text", "", "Original description (default: from the listing source)")
	return cmd
}

// findListing looks a listing up in the configured listing source.
func (a *app) findListing(ctx context.Context, id string) (models.Listing, error) {
	listings, err := a.loadListings(ctx)
	if err != nil {
		return models.Listing{}, err
	}
	// Later rows win, matching ingestion.
	for i := len(listings) - 1; i >= 0; i-- {
		if listings[i].ID == id && strings.TrimSpace(listings[i].Description) != "" {
			return listings[i], nil
		}
	}
	return models.Listing{}, fmt.Errorf("no description for listing %s: pass --text or configure --listings", id)
}

// apiKey returns the configured key, prompting without echo when none is set
// and stdin is a terminal.
func (a *app) apiKey() (string, error) {
	if a.cfg.Describe.Enabled() {
		return strings.TrimSpace(a.cfg.Describe.APIKey), nil
	}
	fd := int(a.stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", errors.New("no API key: set GEMINI_API_KEY or describe.api_key")
	}

	fmt.Fprint(a.stderr, "Gemini API key: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(a.stderr)
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if len(key) < describe.MinAPIKeyLength {
		return "", fmt.Errorf("API key must be at least %d characters", describe.MinAPIKeyLength)
	}
	return key, nil
}
