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
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RollingSharpePoint is one rolling-window Sharpe observation. Sharpe is
// nil when the window's volatility is zero.
type RollingSharpePoint struct {
	Date   time.Time `json:"date"`
	Sharpe *float64  `json:"sharpe"`
}

// QuarterMetrics holds return, volatility, and Sharpe computed over a
// single calendar quarter's observations. Volatility and Sharpe are nil
// when the quarter has too few observations to estimate them.
type QuarterMetrics struct {
	Year         int      `json:"year"`
	Quarter      int      `json:"quarter"`
	Return       float64  `json:"return"`
	Volatility   *float64 `json:"volatility"`
	Sharpe       *float64 `json:"sharpe"`
	Observations int      `json:"observations"`
}

// CorrelationPair reports the correlation between two distinct assets.
// Each unordered pair appears once.
type CorrelationPair struct {
	AssetA      string  `json:"asset_a"`
	AssetB      string  `json:"asset_b"`
	Correlation float64 `json:"correlation"`
}

// Metric Functions

// SharpeRatio computes the annualized Sharpe ratio from a daily mean and
// standard deviation. Returns nil when volatility is zero; the ratio is
// undefined there, not infinite.
func SharpeRatio(meanDaily float64, stdDaily float64, riskFree float64, factor float64) *float64 {
	annVol := stdDaily * math.Sqrt(factor)
	if annVol == 0 || math.IsNaN(annVol) {
		return nil
	}

	sharpe := (meanDaily*factor - riskFree) / annVol
	return &sharpe
}

// DownsideDeviation computes the daily standard deviation of the return
// observations strictly below target, measured around target. Returns
// nil when no observation falls below target.
func DownsideDeviation(returns []float64, target float64) *float64 {
	var sumSq float64
	var count int
	for _, r := range returns {
		if r < target {
			diff := r - target
			sumSq += diff * diff
			count++
		}
	}

	if count == 0 {
		return nil
	}

	dd := math.Sqrt(sumSq / float64(count))
	return &dd
}

// SortinoRatio computes the annualized Sortino ratio: the Sharpe
// numerator over annualized downside deviation. Returns nil when every
// observation is at or above target.
func SortinoRatio(returns []float64, riskFree float64, target float64, factor float64) *float64 {
	dd := DownsideDeviation(returns, target)
	if dd == nil {
		return nil
	}

	annDD := *dd * math.Sqrt(factor)
	if annDD == 0 {
		return nil
	}

	meanDaily := stat.Mean(returns, nil)
	sortino := (meanDaily*factor - riskFree) / annDD
	return &sortino
}

// Beta measures the sensitivity of the portfolio to a benchmark:
// covariance(portfolio, benchmark) / variance(benchmark). Returns nil
// when the benchmark has zero variance or the series are too short.
func Beta(portfolio []float64, benchmark []float64) *float64 {
	if len(portfolio) != len(benchmark) || len(portfolio) < 2 {
		return nil
	}

	variance := stat.Variance(benchmark, nil)
	if variance == 0 || math.IsNaN(variance) {
		return nil
	}

	beta := stat.Covariance(portfolio, benchmark, nil) / variance
	return &beta
}

// DiversificationRatio is the weighted average of individual asset
// volatilities divided by portfolio volatility. It is >= 1 for any
// multi-asset portfolio with imperfect correlation and exactly 1 for a
// single asset. Returns nil when portfolio volatility is zero.
func DiversificationRatio(weights []float64, assetVols []float64, portfolioVol float64) *float64 {
	if portfolioVol == 0 || math.IsNaN(portfolioVol) {
		return nil
	}

	var weightedVol float64
	for ii, w := range weights {
		weightedVol += w * assetVols[ii]
	}

	ratio := weightedVol / portfolioVol
	return &ratio
}

// RollingSharpe computes the Sharpe ratio over every full window of the
// given length, producing one point per window-end date. Annualization
// matches the top-level Sharpe ratio.
func RollingSharpe(dates []time.Time, returns []float64, window int, riskFree float64, factor float64) []RollingSharpePoint {
	if window < 2 || len(returns) < window {
		return []RollingSharpePoint{}
	}

	points := make([]RollingSharpePoint, 0, len(returns)-window+1)
	for end := window; end <= len(returns); end++ {
		slice := returns[end-window : end]
		points = append(points, RollingSharpePoint{
			Date:   dates[end-1],
			Sharpe: SharpeRatio(stat.Mean(slice, nil), stat.StdDev(slice, nil), riskFree, factor),
		})
	}
	return points
}

// Quarterly partitions the date range into calendar quarters and
// computes return, volatility, and Sharpe over each quarter's
// observations. The quarter return is the compounded return over the
// quarter; volatility and Sharpe are annualized.
func Quarterly(dates []time.Time, returns []float64, riskFree float64, factor float64) []QuarterMetrics {
	quarters := []QuarterMetrics{}
	if len(dates) == 0 {
		return quarters
	}

	start := 0
	for ii := 1; ii <= len(dates); ii++ {
		if ii < len(dates) && sameQuarter(dates[ii], dates[start]) {
			continue
		}

		slice := returns[start:ii]
		q := QuarterMetrics{
			Year:         dates[start].Year(),
			Quarter:      int(dates[start].Month()-1)/3 + 1,
			Return:       compound(slice),
			Observations: len(slice),
		}
		if len(slice) >= 2 {
			vol := stat.StdDev(slice, nil) * math.Sqrt(factor)
			q.Volatility = &vol
			q.Sharpe = SharpeRatio(stat.Mean(slice, nil), stat.StdDev(slice, nil), riskFree, factor)
		}
		quarters = append(quarters, q)
		start = ii
	}

	return quarters
}

// TopCorrelations returns every distinct off-diagonal asset pair sorted
// descending by absolute correlation. Pairs involving a zero-variance
// asset have undefined correlation and are omitted.
func TopCorrelations(t *ReturnsTable) []CorrelationPair {
	pairs := []CorrelationPair{}
	if t.NumAssets() < 2 {
		return pairs
	}

	corr := t.CorrelationMatrix()
	for ii := 0; ii < t.NumAssets(); ii++ {
		for jj := ii + 1; jj < t.NumAssets(); jj++ {
			rho := corr.At(ii, jj)
			if math.IsNaN(rho) {
				continue
			}
			pairs = append(pairs, CorrelationPair{
				AssetA:      t.Assets[ii],
				AssetB:      t.Assets[jj],
				Correlation: rho,
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})

	return pairs
}

// HELPER FUNCTIONS

func sameQuarter(a time.Time, b time.Time) bool {
	return a.Year() == b.Year() && (a.Month()-1)/3 == (b.Month()-1)/3
}

// compound computes the total compounded return of a return series
func compound(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1.0 + r
	}
	return total - 1.0
}
