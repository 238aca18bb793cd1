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

package portfolio_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fincanon/fc-api/portfolio"
)

var _ = Describe("Analyze", func() {
	var (
		ctx   context.Context
		table *portfolio.ReturnsTable
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with an alternating asset and a steady asset", func() {
		var weights portfolio.WeightVector

		BeforeEach(func() {
			table = newTable(day0, []string{"A", "B"}, [][]float64{
				{0.01, -0.01, 0.01, -0.01},
				{0.01, 0.01, 0.01, 0.01},
			})
			weights = portfolio.WeightVector{"A": 0.5, "B": 0.5}
		})

		It("should compute the blended portfolio statistics", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())

			// the blended daily series is [0.01, 0, 0.01, 0]
			Expect(analysis.PortfolioReturn).Should(BeNumerically("~", 0.005*252, 1e-9))
			Expect(analysis.PortfolioVolatility).Should(BeNumerically(">", 0.0))
			Expect(analysis.Sharpe).NotTo(BeNil())
			Expect(*analysis.Sharpe).Should(BeNumerically(">", 0.0))
			Expect(analysis.MaxDrawdown).To(Equal(0.0))
		})

		It("should concentrate the optimal portfolios on the steady asset", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())

			Expect(analysis.MinVarianceError).To(BeEmpty())
			Expect(analysis.MinVariance).NotTo(BeNil())
			Expect(analysis.MinVariance.Weights["B"]).Should(BeNumerically(">", 0.9))

			Expect(analysis.MaxSharpeError).To(BeEmpty())
			Expect(analysis.MaxSharpe).NotTo(BeNil())
			Expect(analysis.MaxSharpe.Weights["B"]).Should(BeNumerically(">", 0.9))
		})

		It("should report B's singular covariance via the regularization field", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.MinVariance).NotTo(BeNil())
			Expect(analysis.MinVariance.Regularization).Should(BeNumerically(">", 0.0))
		})

		It("should align the dated series with the observation dates", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())

			Expect(analysis.CumulativeValue).To(HaveLen(table.Len()))
			Expect(analysis.Drawdowns).To(HaveLen(table.Len()))
			Expect(analysis.CumulativeValue[0].Date).To(Equal(table.Dates[0]))
			Expect(analysis.CumulativeValue[0].Value).Should(BeNumerically("~", 101.0, 1e-9))
			Expect(analysis.AssetCumulativeValue).To(HaveKey("A"))
			Expect(analysis.AssetCumulativeValue).To(HaveKey("B"))
			Expect(analysis.AssetCumulativeValue["B"][3].Value).Should(BeNumerically("~", 100*math.Pow(1.01, 4), 1e-9))
		})

		It("should omit beta when the benchmark asset is absent", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.Beta).To(BeNil())
			Expect(analysis.BenchmarkAsset).To(BeEmpty())
		})

		It("should produce one rolling Sharpe point per full window", func() {
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.RollingSharpe).To(HaveLen(3))
		})
	})

	Context("with a benchmark column", func() {
		BeforeEach(func() {
			table = newTable(day0, []string{"AAPL", "SPY"}, [][]float64{
				{0.02, -0.04, 0.03, 0.01, -0.02},
				{0.01, -0.02, 0.015, 0.005, -0.01},
			})
		})

		It("should compute beta against the benchmark", func() {
			weights := portfolio.WeightVector{"AAPL": 0.0, "SPY": 1.0}
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.BenchmarkAsset).To(Equal("SPY"))
			Expect(analysis.Beta).NotTo(BeNil())
			Expect(*analysis.Beta).Should(BeNumerically("~", 1.0, 1e-9))
		})

		It("should honor an alternate benchmark", func() {
			weights := portfolio.EqualWeights(table.Assets)
			analysis, err := portfolio.Analyze(ctx, table, weights, portfolio.Options{Window: 2, Benchmark: "AAPL"})
			Expect(err).To(BeNil())
			Expect(analysis.BenchmarkAsset).To(Equal("AAPL"))
			Expect(analysis.Beta).NotTo(BeNil())
		})
	})

	Context("with a single asset", func() {
		BeforeEach(func() {
			table = newTable(day0, []string{"A"}, [][]float64{
				{0.01, -0.02, 0.015, 0.005, -0.01},
			})
		})

		It("should collapse the frontier and optimal portfolios to 100%", func() {
			analysis, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 1.0}, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())

			Expect(analysis.MinVariance).NotTo(BeNil())
			Expect(analysis.MinVariance.Weights["A"]).Should(BeNumerically("~", 1.0, 1e-9))
			Expect(analysis.MaxSharpe).NotTo(BeNil())
			Expect(analysis.MaxSharpe.Weights["A"]).Should(BeNumerically("~", 1.0, 1e-9))
			Expect(analysis.EfficientFrontier).To(HaveLen(1))
			Expect(analysis.EfficientFrontier[0].Weights["A"]).Should(BeNumerically("~", 1.0, 1e-9))
		})

		It("should report a diversification ratio of 1", func() {
			analysis, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 1.0}, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.DiversificationRatio).NotTo(BeNil())
			Expect(*analysis.DiversificationRatio).Should(BeNumerically("~", 1.0, 1e-9))
		})
	})

	Context("with a constant-return asset", func() {
		It("should omit the Sharpe ratio instead of dividing by zero", func() {
			r := 0.000244140625 // 2^-12, exactly representable
			table = newTable(day0, []string{"CASH"}, [][]float64{{r, r, r, r}})
			analysis, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"CASH": 1.0}, portfolio.Options{Window: 2})
			Expect(err).To(BeNil())
			Expect(analysis.PortfolioVolatility).To(Equal(0.0))
			Expect(analysis.Sharpe).To(BeNil())
			Expect(analysis.MaxDrawdown).To(Equal(0.0))
		})
	})

	Context("input validation", func() {
		BeforeEach(func() {
			table = newTable(day0, []string{"A", "B"}, [][]float64{
				{0.01, -0.01},
				{0.02, 0.0},
			})
		})

		It("should reject weights that do not sum to 1", func() {
			_, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 0.5, "B": 0.49}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrWeightSum))
		})

		It("should reject negative weights", func() {
			_, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 1.5, "B": -0.5}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrNegativeWeight))
		})

		It("should reject a weight for an asset missing from the table", func() {
			_, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 0.5, "Z": 0.5}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrUnknownAsset))
		})

		It("should reject a table without a weight for every asset", func() {
			_, err := portfolio.Analyze(ctx, table, portfolio.WeightVector{"A": 1.0}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrAssetMismatch))
		})

		It("should reject a table with a single observation", func() {
			one := newTable(day0, []string{"A"}, [][]float64{{0.01}})
			_, err := portfolio.Analyze(ctx, one, portfolio.WeightVector{"A": 1.0}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrNotEnoughPoints))
		})

		It("should reject an empty table", func() {
			empty := &portfolio.ReturnsTable{Assets: []string{"A"}, Vals: [][]float64{{}}}
			_, err := portfolio.Analyze(ctx, empty, portfolio.WeightVector{"A": 1.0}, portfolio.Options{})
			Expect(err).To(MatchError(portfolio.ErrEmptyTable))
		})
	})

	Context("frontier shape", func() {
		It("should trace strictly increasing returns at non-decreasing risk", func() {
			table = newTable(day0, []string{"A", "B", "C"}, [][]float64{
				{0.012, -0.008, 0.01, 0.004, -0.002, 0.009, -0.004, 0.006},
				{0.002, 0.001, -0.001, 0.003, 0.002, -0.002, 0.001, 0.002},
				{-0.005, 0.015, -0.01, 0.008, 0.012, -0.006, 0.01, -0.002},
			})
			analysis, err := portfolio.Analyze(ctx, table, portfolio.EqualWeights(table.Assets),
				portfolio.Options{Window: 2, FrontierPoints: 10})
			Expect(err).To(BeNil())
			Expect(analysis.EfficientFrontierError).To(BeEmpty())
			Expect(len(analysis.EfficientFrontier)).Should(BeNumerically(">=", 2))

			frontier := analysis.EfficientFrontier
			for ii := 1; ii < len(frontier); ii++ {
				Expect(frontier[ii].Return).Should(BeNumerically(">", frontier[ii-1].Return))
			}

			Expect(analysis.MinVariance).NotTo(BeNil())
			for _, pt := range frontier {
				var sum float64
				for _, w := range pt.Weights {
					Expect(w).Should(BeNumerically(">=", -1e-9))
					sum += w
				}
				Expect(sum).Should(BeNumerically("~", 1.0, 1e-6))
				Expect(pt.Volatility).Should(BeNumerically(">=", analysis.MinVariance.Volatility-1e-9))
			}
		})
	})
})
