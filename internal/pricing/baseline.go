// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import "math"

// BaselineVersion identifies the untrained fallback model.
const BaselineVersion = "baseline@v1"

// BaselineModel applies a fixed event uplift to the base price. The uplift
// is strongest next to the venue and for events inside the booking lead
// window:
//
//	price = base * (1 + Uplift * exp(-distance/DistanceScaleKm) * lead)
//
// where lead is 1 up to LeadDays before the event and decays after that.
type BaselineModel struct {
	Uplift          float64
	DistanceScaleKm float64
	LeadDays        int
}

// NewBaselineModel returns the baseline with its default parameters.
func NewBaselineModel() *BaselineModel {
	return &BaselineModel{
		Uplift:          0.25,
		DistanceScaleKm: 5,
		LeadDays:        30,
	}
}

// Version returns BaselineVersion.
func (b *BaselineModel) Version() string {
	return BaselineVersion
}

// Predict returns the uplifted price for f.
func (b *BaselineModel) Predict(f Features) (float64, error) {
	if err := f.check(); err != nil {
		return 0, err
	}

	proximity := 1.0
	if b.DistanceScaleKm > 0 {
		proximity = math.Exp(-f.DistanceKm / b.DistanceScaleKm)
	}
	lead := 1.0
	if b.LeadDays > 0 && f.DaysUntil > b.LeadDays {
		lead = math.Exp(-float64(f.DaysUntil-b.LeadDays) / float64(b.LeadDays))
	}

	return clampPrice(f.BasePrice * (1 + b.Uplift*proximity*lead)), nil
}
