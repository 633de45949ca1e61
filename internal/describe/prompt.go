// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package describe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/eventbnb/internal/models"
)

// MaxDescriptionChars bounds the original description included in a prompt.
const MaxDescriptionChars = 1500

const promptTemplate = `Task: Rewrite an Airbnb listing description to attract guests attending an event.

Strict rules:
- Keep ONLY facts stated in the original description. Do NOT invent amenities, rules, views, parking, neighborhood claims, or anything else.
- 30-70 words, one paragraph.
- Friendly, natural tone (no cringe marketing).
- Mention the event and convenience to the venue using the provided event info.
- Plain text only, no markdown.

Event info:
- Name: %s
- Type: %s
- Date: %s
- Venue: %s
- Distance to venue (km): %s
- Days until event: %d

Pricing context (do not claim discounts or guarantees):
- Current price: %s
- Suggested price: %s

Original description:
%s

Output ONLY the improved description text:`

// BuildPrompt renders the generator prompt for req.
func BuildPrompt(req Request) string {
	p := req.Pair

	name := orDefault(p.EventName, "an upcoming event")
	kind := orDefault(p.EventType, "event")
	date := ""
	if !p.EventDate.IsZero() {
		date = p.EventDate.Format(models.DateLayout)
	}

	return fmt.Sprintf(promptTemplate,
		name,
		kind,
		date,
		p.VenueName,
		strconv.FormatFloat(p.DistanceKm, 'f', 2, 64),
		p.DaysUntilEvent,
		formatPrice(p.CurrentPrice),
		formatPrice(p.PredictedPrice),
		truncateDescription(req.Listing.Description),
	)
}

// truncateDescription trims s to MaxDescriptionChars runes, marking the cut.
func truncateDescription(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= MaxDescriptionChars {
		return s
	}
	return strings.TrimRight(string(runes[:MaxDescriptionChars]), " \t\r\n") + "..."
}

func formatPrice(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
