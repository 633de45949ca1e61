// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularSystem is returned when the normal equations are not positive
// definite, which happens with zero regularization and collinear or
// constant features.
var ErrSingularSystem = errors.New("pricing: normal equations are singular")

// pivotTolerance is relative to the largest diagonal entry.
const pivotTolerance = 1e-12

// solveLinearSystem solves A*x = b for symmetric positive-definite A by
// Cholesky factorization A = L*L'. Only the lower triangle of A is read.
func solveLinearSystem(A [][]float64, b []float64) ([]float64, error) {
	L, err := cholesky(A)
	if err != nil {
		return nil, err
	}
	n := len(b)

	// Forward substitution: L*z = b.
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= L[i][k] * z[k]
		}
		z[i] = sum / L[i][i]
	}

	// Back substitution: L'*x = z.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for k := i + 1; k < n; k++ {
			sum -= L[k][i] * x[k]
		}
		x[i] = sum / L[i][i]
	}
	return x, nil
}

// cholesky returns the lower-triangular factor of A, or ErrSingularSystem
// when a pivot is not safely positive.
func cholesky(A [][]float64) ([][]float64, error) {
	n := len(A)
	var scale float64
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(A[i][i]))
	}
	if scale == 0 {
		scale = 1
	}

	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, i+1)
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}
			if i != j {
				L[i][j] = sum / L[j][j]
				continue
			}
			if !(sum > pivotTolerance*scale) {
				return nil, fmt.Errorf("%w: pivot %d is %.3g", ErrSingularSystem, i, sum)
			}
			L[i][i] = math.Sqrt(sum)
		}
	}
	return L, nil
}
