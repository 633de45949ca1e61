// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package pricing predicts the nightly price of a listing during a matched event.

# Models

A Model maps a Features value to a non-negative price. Two implementations
exist:

  - RidgeModel: linear regression on standardized features, trained offline
    with closed-form ridge regression. It predicts the log ratio between the
    event-night price and the listing's base price.
  - BaselineModel: a fixed multiplier that decays with distance and lead
    time, used when no trained artifact exists.

Prediction is a pure function of the model and its input: the same features
always yield the same price under the same model version. Inputs the model
cannot score (non-finite values, a non-positive base price, or standardized
features far outside the training range) yield ErrUnscored instead of a
number.

# Versioning

Trained models are stored by Store as {name}_v{N}.gob.gz with a SHA-256
checksum. The version string recorded on every scored pair is "{name}@v{N}".
*/
package pricing
