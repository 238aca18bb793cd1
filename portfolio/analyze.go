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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fincanon/fc-api/observability/opentelemetry"
	"github.com/fincanon/fc-api/optimize"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultWindow is the rolling Sharpe window length in trading days
	DefaultWindow = 90

	// DefaultAnnualizationFactor is the assumed number of trading days
	// per year
	DefaultAnnualizationFactor = 252

	// DefaultFrontierPoints is the number of target returns solved when
	// tracing the efficient frontier
	DefaultFrontierPoints = 50

	// DefaultBenchmark is used for beta when the caller names no
	// benchmark; beta is omitted when this asset is not in the table
	DefaultBenchmark = "SPY"

	// crossCheckTol is the relative tolerance for the agreement between
	// the direct (series) and analytic (wᵗμ, √(wᵗΣw)) portfolio
	// statistics
	crossCheckTol = 1e-9

	// crossCheckNoise is the absolute difference below which the two
	// computations are considered identical; a zero-volatility portfolio
	// leaves O(1e-18) rounding residue on both paths, where a relative
	// comparison is meaningless
	crossCheckNoise = 1e-15
)

// Options control an analysis request. The zero value selects the
// documented defaults.
type Options struct {
	// RiskFreeRate is an annualized rate; 0 when unset
	RiskFreeRate float64

	// Window is the rolling Sharpe window length in trading days
	Window int

	// AnnualizationFactor is the number of trading days per year
	AnnualizationFactor float64

	// Benchmark names the asset column used for beta; defaults to
	// DefaultBenchmark. Beta is omitted when the column is absent.
	Benchmark string

	// FrontierPoints is the number of frontier targets to solve
	FrontierPoints int
}

func (opts *Options) setDefaults() {
	if opts.Window == 0 {
		opts.Window = DefaultWindow
	}
	if opts.AnnualizationFactor == 0 {
		opts.AnnualizationFactor = DefaultAnnualizationFactor
	}
	if opts.Benchmark == "" {
		opts.Benchmark = DefaultBenchmark
	}
	if opts.FrontierPoints == 0 {
		opts.FrontierPoints = DefaultFrontierPoints
	}
}

// AssetStats holds the per-asset annualized statistics
type AssetStats struct {
	Asset              string   `json:"asset"`
	Weight             float64  `json:"weight"`
	MeanReturn         float64  `json:"return_annual"`
	Volatility         float64  `json:"vol_annual"`
	Sharpe             *float64 `json:"sharpe_annual"`
	ReturnContribution float64  `json:"return_contribution"`
}

// OptimalPortfolio is a solved portfolio (minimum variance or maximum
// Sharpe) with its realized annualized statistics
type OptimalPortfolio struct {
	Weights        WeightVector `json:"weights"`
	Return         float64      `json:"return"`
	Volatility     float64      `json:"volatility"`
	Sharpe         *float64     `json:"sharpe"`
	Regularization float64      `json:"regularization,omitempty"`
}

// FrontierPoint is one point of the efficient frontier with annualized
// return and volatility
type FrontierPoint struct {
	Return     float64      `json:"return"`
	Volatility float64      `json:"volatility"`
	Weights    WeightVector `json:"weights"`
}

// Analysis is the complete result of one analysis request. Metrics that
// cannot be computed are nil, never fabricated; optimization failures
// are localized to their *_error fields while everything else is still
// produced.
type Analysis struct {
	ComputedOn time.Time `json:"computed_on"`

	PortfolioReturn      float64  `json:"portfolio_return_annual"`
	PortfolioVolatility  float64  `json:"portfolio_vol_annual"`
	Sharpe               *float64 `json:"portfolio_sharpe_annual"`
	Sortino              *float64 `json:"sortino_ratio_annual"`
	MaxDrawdown          float64  `json:"max_drawdown"`
	DiversificationRatio *float64 `json:"diversification_ratio"`
	Beta                 *float64 `json:"beta"`
	BenchmarkAsset       string   `json:"benchmark_asset,omitempty"`

	Assets          []AssetStats      `json:"assets"`
	TopCorrelations []CorrelationPair `json:"top_correlations"`
	Quarterly       []QuarterMetrics  `json:"quarterly_metrics"`

	RollingSharpe        []RollingSharpePoint   `json:"rolling_sharpe"`
	Drawdowns            []TimePoint            `json:"drawdown_series"`
	CumulativeValue      []TimePoint            `json:"cumulative_value"`
	AssetCumulativeValue map[string][]TimePoint `json:"asset_cumulative_value"`

	EfficientFrontier      []FrontierPoint   `json:"efficient_frontier,omitempty"`
	EfficientFrontierError string            `json:"efficient_frontier_error,omitempty"`
	MinVariance            *OptimalPortfolio `json:"min_variance,omitempty"`
	MinVarianceError       string            `json:"min_variance_error,omitempty"`
	MaxSharpe              *OptimalPortfolio `json:"max_sharpe,omitempty"`
	MaxSharpeError         string            `json:"max_sharpe_error,omitempty"`
}

// Analyze runs the full metrics computation for one request. It is a
// pure function of its inputs: no state survives between calls and
// concurrent calls need no coordination.
//
// Input validation failures abort with an error and no partial result.
// Numerical failures in the optimizations are reported in the result's
// *_error fields; division-by-zero conditions surface as nil metrics.
func Analyze(ctx context.Context, table *ReturnsTable, weights WeightVector, opts Options) (*Analysis, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "portfolio.Analyze")
	defer span.End()

	opts.setDefaults()

	if err := table.Validate(); err != nil {
		return nil, err
	}
	if err := weights.Validate(table); err != nil {
		return nil, err
	}
	if table.Len() < 2 {
		return nil, fmt.Errorf("%w: have %d dates, need at least 2", ErrNotEnoughPoints, table.Len())
	}

	factor := opts.AnnualizationFactor
	series := table.PortfolioSeries(weights)
	wVec := weights.Vector(table)
	mu := table.MeanReturns()
	sigma := table.CovarianceMatrix()

	// Portfolio mean and volatility are computed two ways: directly from
	// the portfolio return series and analytically as wᵗμ / √(wᵗΣw).
	// Agreement is a correctness invariant of the whole computation.
	directMean := stat.Mean(series, nil)
	directVol := stat.StdDev(series, nil)

	var analyticMean, analyticVariance float64
	for ii := 0; ii < len(wVec); ii++ {
		analyticMean += wVec[ii] * mu[ii]
		for jj := 0; jj < len(wVec); jj++ {
			analyticVariance += wVec[ii] * wVec[jj] * sigma.At(ii, jj)
		}
	}
	analyticVol := math.Sqrt(math.Max(analyticVariance, 0))

	if err := crossCheck(directMean, analyticMean); err != nil {
		return nil, fmt.Errorf("portfolio mean: %w", err)
	}
	if err := crossCheck(directVol, analyticVol); err != nil {
		return nil, fmt.Errorf("portfolio volatility: %w", err)
	}

	analysis := &Analysis{
		ComputedOn:          time.Now(),
		PortfolioReturn:     directMean * factor,
		PortfolioVolatility: directVol * math.Sqrt(factor),
		Sharpe:              SharpeRatio(directMean, directVol, opts.RiskFreeRate, factor),
		Sortino:             SortinoRatio(series, opts.RiskFreeRate, 0, factor),
		MaxDrawdown:         MaxDrawdown(series),
		TopCorrelations:     TopCorrelations(table),
		Quarterly:           Quarterly(table.Dates, series, opts.RiskFreeRate, factor),
		RollingSharpe:       RollingSharpe(table.Dates, series, opts.Window, opts.RiskFreeRate, factor),
		Drawdowns:           datedSeries(table.Dates, DrawdownSeries(CumulativeValues(series))),
		CumulativeValue:     datedSeries(table.Dates, CumulativeValues(series)),
	}

	// per-asset statistics and cumulative value series
	assetVols := make([]float64, table.NumAssets())
	analysis.Assets = make([]AssetStats, table.NumAssets())
	analysis.AssetCumulativeValue = make(map[string][]TimePoint, table.NumAssets())
	for idx, asset := range table.Assets {
		col := table.Vals[idx]
		meanDaily := mu[idx]
		volDaily := stat.StdDev(col, nil)
		assetVols[idx] = volDaily

		analysis.Assets[idx] = AssetStats{
			Asset:              asset,
			Weight:             wVec[idx],
			MeanReturn:         meanDaily * factor,
			Volatility:         volDaily * math.Sqrt(factor),
			Sharpe:             SharpeRatio(meanDaily, volDaily, opts.RiskFreeRate, factor),
			ReturnContribution: wVec[idx] * meanDaily * factor,
		}
		analysis.AssetCumulativeValue[asset] = datedSeries(table.Dates, CumulativeValues(col))
	}

	analysis.DiversificationRatio = DiversificationRatio(wVec, assetVols, directVol)

	if benchIdx := table.ColIndex(opts.Benchmark); benchIdx != -1 {
		analysis.BenchmarkAsset = opts.Benchmark
		analysis.Beta = Beta(series, table.Vals[benchIdx])
	}

	analysis.runOptimizations(table, mu, sigma, opts)

	return analysis, nil
}

// runOptimizations solves the optimal portfolios and the efficient
// frontier. Failures are recorded on the analysis rather than aborting
// it; the summary statistics are always delivered.
func (analysis *Analysis) runOptimizations(table *ReturnsTable, mu []float64, sigma *mat.SymDense, opts Options) {
	factor := opts.AnnualizationFactor
	riskFreeDaily := opts.RiskFreeRate / factor

	if sol, err := optimize.MinVariance(mu, sigma); err != nil {
		log.Warn().Err(err).Msg("minimum variance portfolio unavailable")
		analysis.MinVarianceError = err.Error()
	} else {
		analysis.MinVariance = newOptimalPortfolio(table, sol, opts)
	}

	if sol, err := optimize.MaxSharpe(mu, sigma, riskFreeDaily); err != nil {
		log.Warn().Err(err).Msg("maximum Sharpe portfolio unavailable")
		analysis.MaxSharpeError = err.Error()
	} else {
		analysis.MaxSharpe = newOptimalPortfolio(table, sol, opts)
	}

	if points, err := optimize.Frontier(mu, sigma, opts.FrontierPoints); err != nil {
		log.Warn().Err(err).Msg("efficient frontier unavailable")
		analysis.EfficientFrontierError = err.Error()
	} else {
		analysis.EfficientFrontier = make([]FrontierPoint, len(points))
		for ii, pt := range points {
			analysis.EfficientFrontier[ii] = FrontierPoint{
				Return:     pt.Return * factor,
				Volatility: pt.Volatility * math.Sqrt(factor),
				Weights:    namedWeights(table, pt.Weights),
			}
		}
	}
}

func newOptimalPortfolio(table *ReturnsTable, sol *optimize.Solution, opts Options) *OptimalPortfolio {
	factor := opts.AnnualizationFactor
	return &OptimalPortfolio{
		Weights:        namedWeights(table, sol.Weights),
		Return:         sol.Return * factor,
		Volatility:     sol.Volatility * math.Sqrt(factor),
		Sharpe:         SharpeRatio(sol.Return, sol.Volatility, opts.RiskFreeRate, factor),
		Regularization: sol.Regularization,
	}
}

func namedWeights(table *ReturnsTable, weights []float64) WeightVector {
	named := make(WeightVector, len(weights))
	for idx, asset := range table.Assets {
		named[asset] = weights[idx]
	}
	return named
}

// crossCheck verifies two computations of the same quantity agree
// within crossCheckTol relative tolerance
func crossCheck(direct float64, analytic float64) error {
	diff := math.Abs(direct - analytic)
	if diff <= crossCheckNoise {
		return nil
	}

	scale := math.Max(math.Abs(direct), math.Abs(analytic))
	if diff > crossCheckTol*scale {
		return fmt.Errorf("%w: direct %.15g vs analytic %.15g", ErrCrossCheck, direct, analytic)
	}
	return nil
}
