// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package portfolio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyTable      = errors.New("returns table has no observations")
	ErrNoAssets        = errors.New("returns table has no assets")
	ErrDuplicateAsset  = errors.New("duplicate asset identifier")
	ErrRaggedTable     = errors.New("returns table is not rectangular")
	ErrDateOrder       = errors.New("dates are not strictly increasing")
	ErrWeightSum       = errors.New("weights do not sum to 1.0")
	ErrNegativeWeight  = errors.New("weight is negative")
	ErrAssetMismatch   = errors.New("weight vector and returns table reference different assets")
	ErrUnknownAsset    = errors.New("unknown asset reference")
	ErrMalformedCSV    = errors.New("malformed portfolio csv")
	ErrCrossCheck      = errors.New("direct and analytic portfolio statistics disagree")
	ErrNotEnoughPoints = errors.New("not enough observations")
)

// WeightSumTol is the absolute tolerance applied when checking that a
// weight vector sums to 1.0. A weight row summing to 0.99 is rejected,
// never renormalized.
const WeightSumTol = 1e-6

// ReturnsTable holds daily fractional returns for a set of assets over a
// strictly increasing date index. Values are stored column-major, one
// slice per asset, aligned with the date index.
type ReturnsTable struct {
	Dates  []time.Time
	Assets []string
	Vals   [][]float64
}

// WeightVector maps asset identifiers to non-negative portfolio weights
// summing to 1.0.
type WeightVector map[string]float64

// Len returns the number of dates in the table
func (t *ReturnsTable) Len() int {
	return len(t.Dates)
}

// NumAssets returns the number of asset columns
func (t *ReturnsTable) NumAssets() int {
	return len(t.Assets)
}

// ColIndex returns the column index of the named asset, or -1 when the
// asset is not in the table
func (t *ReturnsTable) ColIndex(asset string) int {
	for idx, name := range t.Assets {
		if name == asset {
			return idx
		}
	}
	return -1
}

// Validate checks the table invariants: at least one asset, at least one
// observation, a rectangular value matrix, and strictly increasing dates.
func (t *ReturnsTable) Validate() error {
	if len(t.Assets) == 0 {
		return ErrNoAssets
	}
	if len(t.Dates) == 0 {
		return ErrEmptyTable
	}
	if len(t.Vals) != len(t.Assets) {
		return fmt.Errorf("%w: %d columns for %d assets", ErrRaggedTable, len(t.Vals), len(t.Assets))
	}

	seen := make(map[string]bool, len(t.Assets))
	for _, asset := range t.Assets {
		if seen[asset] {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset)
		}
		seen[asset] = true
	}

	for colIdx, col := range t.Vals {
		if len(col) != len(t.Dates) {
			return fmt.Errorf("%w: column %s has %d values for %d dates", ErrRaggedTable, t.Assets[colIdx], len(col), len(t.Dates))
		}
	}

	for ii := 1; ii < len(t.Dates); ii++ {
		if !t.Dates[ii].After(t.Dates[ii-1]) {
			return fmt.Errorf("%w: %s does not follow %s", ErrDateOrder,
				t.Dates[ii].Format("2006-01-02"), t.Dates[ii-1].Format("2006-01-02"))
		}
	}

	return nil
}

// Validate checks that all weights are non-negative, sum to 1.0 within
// WeightSumTol, and that the weight vector and table cover exactly the
// same assets.
func (w WeightVector) Validate(t *ReturnsTable) error {
	var sum float64
	for asset, weight := range w {
		if weight < 0 {
			return fmt.Errorf("%w: %s = %f", ErrNegativeWeight, asset, weight)
		}
		if t.ColIndex(asset) == -1 {
			return fmt.Errorf("%w: %s is not in the returns table", ErrUnknownAsset, asset)
		}
		sum += weight
	}

	for _, asset := range t.Assets {
		if _, ok := w[asset]; !ok {
			return fmt.Errorf("%w: no weight for %s", ErrAssetMismatch, asset)
		}
	}

	if math.Abs(sum-1.0) > WeightSumTol {
		return fmt.Errorf("%w: sum is %f", ErrWeightSum, sum)
	}

	return nil
}

// Vector returns the weights ordered to match the table's asset columns
func (w WeightVector) Vector(t *ReturnsTable) []float64 {
	vec := make([]float64, t.NumAssets())
	for idx, asset := range t.Assets {
		vec[idx] = w[asset]
	}
	return vec
}

// EqualWeights builds a weight vector assigning 1/M to each asset
func EqualWeights(assets []string) WeightVector {
	w := make(WeightVector, len(assets))
	for _, asset := range assets {
		w[asset] = 1.0 / float64(len(assets))
	}
	return w
}

// MeanReturns returns the mean daily return of each asset column
func (t *ReturnsTable) MeanReturns() []float64 {
	mu := make([]float64, t.NumAssets())
	for idx, col := range t.Vals {
		mu[idx] = stat.Mean(col, nil)
	}
	return mu
}

// CovarianceMatrix computes the sample covariance matrix of the asset
// return columns
func (t *ReturnsTable) CovarianceMatrix() *mat.SymDense {
	n := t.Len()
	m := t.NumAssets()

	obs := mat.NewDense(n, m, nil)
	for colIdx, col := range t.Vals {
		for rowIdx, v := range col {
			obs.Set(rowIdx, colIdx, v)
		}
	}

	sigma := mat.NewSymDense(m, nil)
	stat.CovarianceMatrix(sigma, obs, nil)
	return sigma
}

// CorrelationMatrix computes the sample correlation matrix of the asset
// return columns
func (t *ReturnsTable) CorrelationMatrix() *mat.SymDense {
	n := t.Len()
	m := t.NumAssets()

	obs := mat.NewDense(n, m, nil)
	for colIdx, col := range t.Vals {
		for rowIdx, v := range col {
			obs.Set(rowIdx, colIdx, v)
		}
	}

	corr := mat.NewSymDense(m, nil)
	stat.CorrelationMatrix(corr, obs, nil)
	return corr
}
