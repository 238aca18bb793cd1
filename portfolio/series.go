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
	"time"
)

// InitialValue is the base the cumulative value series grows from
const InitialValue = 100.0

// TimePoint pairs a date with a single series value
type TimePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PortfolioSeries computes the daily portfolio return series as the
// weighted sum of asset returns on each date
func (t *ReturnsTable) PortfolioSeries(weights WeightVector) []float64 {
	vec := weights.Vector(t)
	series := make([]float64, t.Len())
	for colIdx, col := range t.Vals {
		w := vec[colIdx]
		for dateIdx, r := range col {
			series[dateIdx] += w * r
		}
	}
	return series
}

// CumulativeValues compounds a return series into a value series
// anchored at InitialValue. The result has one more element than the
// input: index 0 is the anchor, index i+1 the value after day i.
func CumulativeValues(returns []float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = InitialValue
	for ii, r := range returns {
		values[ii+1] = values[ii] * (1.0 + r)
	}
	return values
}

// DrawdownSeries computes value/peak - 1 for each element of a value
// series, where peak is the running maximum updated left-to-right.
// Every element is <= 0.
func DrawdownSeries(values []float64) []float64 {
	dd := make([]float64, len(values))
	if len(values) == 0 {
		return dd
	}

	peak := values[0]
	for ii, v := range values {
		if v > peak {
			peak = v
		}
		dd[ii] = v/peak - 1.0
	}
	return dd
}

// MaxDrawdown returns the minimum of the drawdown series computed over
// the cumulative values of the given return series. The result is <= 0
// and equals 0 exactly when the value series never declines.
func MaxDrawdown(returns []float64) float64 {
	dd := DrawdownSeries(CumulativeValues(returns))
	maxDD := 0.0
	for _, v := range dd {
		if v < maxDD {
			maxDD = v
		}
	}
	return maxDD
}

// datedSeries pairs each date with the corresponding value. vals may be
// one element longer than dates (an anchored cumulative series); the
// anchor is dropped.
func datedSeries(dates []time.Time, vals []float64) []TimePoint {
	if len(vals) == len(dates)+1 {
		vals = vals[1:]
	}
	points := make([]TimePoint, len(dates))
	for ii, dt := range dates {
		points[ii] = TimePoint{Date: dt, Value: vals[ii]}
	}
	return points
}
