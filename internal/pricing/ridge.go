// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultModelName names trained ridge artifacts.
const DefaultModelName = "ridge"

// ErrInsufficientData is returned when fewer than two usable samples are
// available for training.
var ErrInsufficientData = errors.New("pricing: insufficient training data")

// RidgeConfig holds training and scoring parameters.
type RidgeConfig struct {
	// Lambda is the L2 regularization strength.
	// Default: 1.0
	Lambda float64

	// MaxZ rejects inputs whose standardized value exceeds this magnitude.
	// Default: 8.0
	MaxZ float64

	// MaxMultiplier bounds the predicted price to base * [1/MaxMultiplier, MaxMultiplier].
	// Default: 5.0
	MaxMultiplier float64
}

// DefaultRidgeConfig returns the default training configuration.
func DefaultRidgeConfig() RidgeConfig {
	return RidgeConfig{
		Lambda:        1.0,
		MaxZ:          8.0,
		MaxMultiplier: 5.0,
	}
}

// Sample is one historical observation: the features of a listing-event
// pair and the nightly price actually charged.
type Sample struct {
	Features      Features
	ObservedPrice float64
}

// RidgeModel is a trained, serializable ridge regression over standardized
// features. Fields are exported for gob encoding; treat a loaded model as
// read-only.
type RidgeModel struct {
	Name           string
	ModelVersion   int
	FeatureNames   []string
	Categories     []string // sorted, always includes OtherCategory
	Means          []float64
	Stds           []float64
	Weights        []float64
	Bias           float64
	MaxZ           float64
	MaxMultiplier  float64
	Lambda         float64
	TrainedAt      time.Time
	SampleCount    int
	TrainRMSE      float64
	TrainingMillis int64
}

// Version returns "name@vN".
func (m *RidgeModel) Version() string {
	return FormatVersion(m.Name, m.ModelVersion)
}

// Predict returns the predicted nightly price for f.
func (m *RidgeModel) Predict(f Features) (float64, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	x := m.vector(&f)
	if len(x) != len(m.Weights) {
		return 0, fmt.Errorf("pricing: model %s expects %d features, got %d", m.Version(), len(m.Weights), len(x))
	}

	adj := m.Bias
	for i, v := range x {
		z := (v - m.Means[i]) / m.Stds[i]
		if m.MaxZ > 0 && i < len(continuousFeatures) && continuousFeatures[i] && math.Abs(z) > m.MaxZ {
			return 0, unscored("%s out of training range (z=%.1f)", m.FeatureNames[i], z)
		}
		adj += m.Weights[i] * z
	}

	if m.MaxMultiplier > 1 {
		bound := math.Log(m.MaxMultiplier)
		adj = math.Max(-bound, math.Min(bound, adj))
	}
	price := f.BasePrice * math.Exp(adj)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, unscored("non-finite prediction")
	}
	return clampPrice(price), nil
}

// vector builds the numeric features followed by the category one-hot.
func (m *RidgeModel) vector(f *Features) []float64 {
	x := f.numeric()
	cat := f.Category
	if i := sort.SearchStrings(m.Categories, cat); i >= len(m.Categories) || m.Categories[i] != cat {
		cat = OtherCategory
	}
	for _, c := range m.Categories {
		if c == cat {
			x = append(x, 1)
		} else {
			x = append(x, 0)
		}
	}
	return x
}

// Train fits a ridge model predicting log(observed / base) from samples.
// Samples with a non-positive base or observed price are ignored. The
// returned model has version 0 until it is saved to a Store.
func Train(samples []Sample, cfg RidgeConfig) (*RidgeModel, error) {
	start := time.Now()
	if cfg.Lambda < 0 {
		return nil, fmt.Errorf("pricing: lambda must be non-negative, got %v", cfg.Lambda)
	}

	usable := make([]Sample, 0, len(samples))
	for _, s := range samples {
		s.Features.Category = NormalizeCategory(s.Features.Category)
		if s.Features.check() != nil || !(s.ObservedPrice > 0) || math.IsInf(s.ObservedPrice, 0) {
			continue
		}
		usable = append(usable, s)
	}
	if len(usable) < 2 {
		return nil, fmt.Errorf("%w: %d usable samples", ErrInsufficientData, len(usable))
	}

	m := &RidgeModel{
		Name:          DefaultModelName,
		Categories:    categoryVocabulary(usable),
		MaxZ:          cfg.MaxZ,
		MaxMultiplier: cfg.MaxMultiplier,
		Lambda:        cfg.Lambda,
		SampleCount:   len(usable),
	}
	m.FeatureNames = append(append([]string{}, numericFeatureNames...), categoryColumns(m.Categories)...)

	rows := make([][]float64, len(usable))
	y := make([]float64, len(usable))
	for i := range usable {
		rows[i] = m.vector(&usable[i].Features)
		y[i] = math.Log(usable[i].ObservedPrice / usable[i].Features.BasePrice)
	}

	p := len(m.FeatureNames)
	m.Means, m.Stds = columnStats(rows, p)
	for _, row := range rows {
		for j := range row {
			row[j] = (row[j] - m.Means[j]) / m.Stds[j]
		}
	}

	m.Bias = mean(y)

	// (Z'Z + lambda*I) w = Z'(y - mean(y))
	A := make([][]float64, p)
	for i := range A {
		A[i] = make([]float64, p)
	}
	b := make([]float64, p)
	for r, row := range rows {
		yc := y[r] - m.Bias
		for i := 0; i < p; i++ {
			b[i] += row[i] * yc
			for j := i; j < p; j++ {
				A[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < p; i++ {
		A[i][i] += cfg.Lambda
		for j := 0; j < i; j++ {
			A[i][j] = A[j][i]
		}
	}
	weights, err := solveLinearSystem(A, b)
	if err != nil {
		if cfg.Lambda == 0 {
			return nil, fmt.Errorf("%w (set lambda > 0 to regularize)", err)
		}
		return nil, err
	}
	m.Weights = weights

	var sse float64
	for r, row := range rows {
		pred := m.Bias
		for j, z := range row {
			pred += m.Weights[j] * z
		}
		actual := usable[r].Features.BasePrice * math.Exp(y[r])
		est := usable[r].Features.BasePrice * math.Exp(pred)
		sse += (actual - est) * (actual - est)
	}
	m.TrainRMSE = math.Sqrt(sse / float64(len(rows)))
	m.TrainedAt = time.Now().UTC()
	m.TrainingMillis = time.Since(start).Milliseconds()

	return m, nil
}

func categoryVocabulary(samples []Sample) []string {
	seen := map[string]struct{}{OtherCategory: {}}
	for i := range samples {
		seen[samples[i].Features.Category] = struct{}{}
	}
	vocab := make([]string, 0, len(seen))
	for c := range seen {
		vocab = append(vocab, c)
	}
	sort.Strings(vocab)
	return vocab
}

func categoryColumns(categories []string) []string {
	cols := make([]string, len(categories))
	for i, c := range categories {
		cols[i] = "category=" + c
	}
	return cols
}

// columnStats returns per-column mean and standard deviation. Constant
// columns get a deviation of 1 so they standardize to zero.
func columnStats(rows [][]float64, p int) (means, stds []float64) {
	means = make([]float64, p)
	stds = make([]float64, p)
	n := float64(len(rows))
	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] < 1e-12 {
			stds[j] = 1
		}
	}
	return means, stds
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
