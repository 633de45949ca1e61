// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/eventbnb/internal/models"
)

// ErrUnscored marks an input the model refuses to score. Callers drop the
// pair and report it rather than emitting a price.
var ErrUnscored = errors.New("pricing: unscored")

func unscored(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUnscored}, args...)...)
}

// Model predicts a nightly price from features.
type Model interface {
	// Version identifies the artifact, e.g. "ridge@v3".
	Version() string

	// Predict returns a non-negative price, or an error wrapping ErrUnscored.
	// It must be deterministic and safe for concurrent use.
	Predict(f Features) (float64, error)
}

// FormatVersion renders a model name and version number as "name@vN".
func FormatVersion(name string, version int) string {
	return fmt.Sprintf("%s@v%d", name, version)
}

// ParseVersion parses a configured model version. Accepted forms:
//
//	""        latest version of defaultName
//	"latest"  latest version of defaultName
//	"3"       version 3 of defaultName
//	"ridge@v3", "ridge@3"
//
// A returned version of 0 means latest.
func ParseVersion(s, defaultName string) (name string, version int, err error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "latest" {
		return defaultName, 0, nil
	}

	name = defaultName
	num := s
	if at := strings.LastIndex(s, "@"); at >= 0 {
		name = s[:at]
		num = strings.TrimPrefix(s[at+1:], "v")
		if num == "latest" {
			return name, 0, nil
		}
	}
	version, err = strconv.Atoi(num)
	if err != nil || version < 1 || name == "" {
		return "", 0, fmt.Errorf("pricing: invalid model version %q", s)
	}
	return name, version, nil
}

// Price level band: within ±10% of the predicted price is fair.
const fairBand = 0.10

// ClassifyPrice compares a listing's current price to the predicted one.
func ClassifyPrice(current, predicted float64) models.PriceLevel {
	switch {
	case predicted <= 0 || current <= 0:
		return models.PriceFair
	case current < predicted*(1-fairBand):
		return models.PriceBelowMarket
	case current > predicted*(1+fairBand):
		return models.PriceAboveMarket
	default:
		return models.PriceFair
	}
}

// clampPrice rounds to cents and enforces a non-negative result.
func clampPrice(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	return math.Round(p*100) / 100
}
