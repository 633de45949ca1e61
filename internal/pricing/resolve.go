// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/eventbnb/internal/logging"
)

// LoadModel resolves a configured version reference to a Model.
//
// "baseline" and "baseline@v1" select the BaselineModel. Anything else is
// parsed with ParseVersion and loaded from store. When the latest version
// was requested, none exists, and allowBaseline is set, the baseline is
// returned instead.
func LoadModel(ctx context.Context, store *Store, ref string, allowBaseline bool) (Model, error) {
	if ref == "baseline" || ref == BaselineVersion {
		return NewBaselineModel(), nil
	}

	name, version, err := ParseVersion(ref, DefaultModelName)
	if err != nil {
		return nil, err
	}
	if store == nil {
		if allowBaseline && version == 0 {
			return NewBaselineModel(), nil
		}
		return nil, fmt.Errorf("%w: no model store configured", ErrModelNotFound)
	}

	m, err := store.LoadRidge(ctx, name, version)
	if errors.Is(err, ErrModelNotFound) && allowBaseline && version == 0 {
		logging.Warn().Str("model", name).Msg("No trained model found, scoring with baseline")
		return NewBaselineModel(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", ref, err)
	}
	return m, nil
}
