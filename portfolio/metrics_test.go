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
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fincanon/fc-api/portfolio"
)

var _ = Describe("SharpeRatio", func() {
	It("should annualize the mean and volatility", func() {
		sharpe := portfolio.SharpeRatio(0.001, 0.01, 0.0, 252)
		Expect(sharpe).NotTo(BeNil())
		Expect(*sharpe).Should(BeNumerically("~", 0.001*252/(0.01*math.Sqrt(252)), 1e-12))
	})

	It("should subtract the annual risk-free rate from the annual return", func() {
		sharpe := portfolio.SharpeRatio(0.001, 0.01, 0.02, 252)
		Expect(sharpe).NotTo(BeNil())
		Expect(*sharpe).Should(BeNumerically("~", (0.001*252-0.02)/(0.01*math.Sqrt(252)), 1e-12))
	})

	It("should be nil when volatility is zero", func() {
		Expect(portfolio.SharpeRatio(0.001, 0.0, 0.0, 252)).To(BeNil())
	})
})

var _ = Describe("DownsideDeviation", func() {
	It("should measure only observations below target", func() {
		dd := portfolio.DownsideDeviation([]float64{0.02, -0.01, 0.03, -0.02}, 0.0)
		Expect(dd).NotTo(BeNil())
		Expect(*dd).Should(BeNumerically("~", math.Sqrt((0.01*0.01+0.02*0.02)/2.0), 1e-12))
	})

	It("should be nil when no observation falls below target", func() {
		Expect(portfolio.DownsideDeviation([]float64{0.01, 0.0, 0.02}, 0.0)).To(BeNil())
	})
})

var _ = Describe("SortinoRatio", func() {
	It("should be nil when every return is at or above target", func() {
		Expect(portfolio.SortinoRatio([]float64{0.01, 0.02, 0.0}, 0.0, 0.0, 252)).To(BeNil())
	})

	It("should exceed the Sharpe ratio for a right-skewed series", func() {
		returns := []float64{0.05, 0.04, -0.005, 0.03, -0.005, 0.06}
		sortino := portfolio.SortinoRatio(returns, 0.0, 0.0, 252)
		Expect(sortino).NotTo(BeNil())

		mean := 0.0
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))
		var sumSq float64
		for _, r := range returns {
			sumSq += (r - mean) * (r - mean)
		}
		std := math.Sqrt(sumSq / float64(len(returns)-1))
		sharpe := portfolio.SharpeRatio(mean, std, 0.0, 252)
		Expect(*sortino).Should(BeNumerically(">", *sharpe))
	})
})

var _ = Describe("Beta", func() {
	It("should be 1 against itself", func() {
		series := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
		beta := portfolio.Beta(series, series)
		Expect(beta).NotTo(BeNil())
		Expect(*beta).Should(BeNumerically("~", 1.0, 1e-12))
	})

	It("should scale with leverage on the benchmark", func() {
		benchmark := []float64{0.01, -0.02, 0.015, 0.005, -0.01}
		levered := make([]float64, len(benchmark))
		for ii, r := range benchmark {
			levered[ii] = 2 * r
		}
		beta := portfolio.Beta(levered, benchmark)
		Expect(beta).NotTo(BeNil())
		Expect(*beta).Should(BeNumerically("~", 2.0, 1e-12))
	})

	It("should be nil for a flat benchmark", func() {
		Expect(portfolio.Beta([]float64{0.01, -0.02, 0.015}, []float64{0.0, 0.0, 0.0})).To(BeNil())
	})

	It("should be nil for mismatched series lengths", func() {
		Expect(portfolio.Beta([]float64{0.01, -0.02}, []float64{0.01})).To(BeNil())
	})
})

var _ = Describe("DiversificationRatio", func() {
	It("should be 1 for a single asset", func() {
		ratio := portfolio.DiversificationRatio([]float64{1.0}, []float64{0.02}, 0.02)
		Expect(ratio).NotTo(BeNil())
		Expect(*ratio).Should(BeNumerically("~", 1.0, 1e-12))
	})

	It("should exceed 1 when diversification lowers portfolio volatility", func() {
		ratio := portfolio.DiversificationRatio([]float64{0.5, 0.5}, []float64{0.02, 0.02}, 0.015)
		Expect(ratio).NotTo(BeNil())
		Expect(*ratio).Should(BeNumerically(">", 1.0))
	})

	It("should be nil when portfolio volatility is zero", func() {
		Expect(portfolio.DiversificationRatio([]float64{1.0}, []float64{0.0}, 0.0)).To(BeNil())
	})
})

var _ = Describe("MaxDrawdown", func() {
	It("should be zero for a non-decreasing value series", func() {
		Expect(portfolio.MaxDrawdown([]float64{0.01, 0.0, 0.02, 0.0})).To(Equal(0.0))
	})

	It("should report the deepest peak-to-trough decline", func() {
		// 100 -> 110 -> 99 -> 108.9
		mdd := portfolio.MaxDrawdown([]float64{0.10, -0.10, 0.10})
		Expect(mdd).Should(BeNumerically("~", 99.0/110.0-1.0, 1e-12))
	})

	It("should count a decline on the first day against the anchor", func() {
		mdd := portfolio.MaxDrawdown([]float64{-0.05, 0.10})
		Expect(mdd).Should(BeNumerically("~", -0.05, 1e-12))
	})
})

var _ = Describe("DrawdownSeries", func() {
	It("should track the running peak", func() {
		dd := portfolio.DrawdownSeries([]float64{100, 110, 99, 115, 92})
		Expect(dd).To(HaveLen(5))
		Expect(dd[0]).To(Equal(0.0))
		Expect(dd[1]).To(Equal(0.0))
		Expect(dd[2]).Should(BeNumerically("~", 99.0/110.0-1.0, 1e-12))
		Expect(dd[3]).To(Equal(0.0))
		Expect(dd[4]).Should(BeNumerically("~", 92.0/115.0-1.0, 1e-12))
	})

	It("should never be positive", func() {
		dd := portfolio.DrawdownSeries([]float64{100, 101, 97, 104, 95, 108})
		for _, v := range dd {
			Expect(v).Should(BeNumerically("<=", 0.0))
		}
	})
})

var _ = Describe("CumulativeValues", func() {
	It("should anchor the series at the initial value", func() {
		values := portfolio.CumulativeValues([]float64{0.10, -0.10})
		Expect(values).To(HaveLen(3))
		Expect(values[0]).To(Equal(100.0))
		Expect(values[1]).Should(BeNumerically("~", 110.0, 1e-9))
		Expect(values[2]).Should(BeNumerically("~", 99.0, 1e-9))
	})
})

var _ = Describe("RollingSharpe", func() {
	It("should produce one point per full window", func() {
		dates := tradingDays(day0, 10)
		returns := []float64{0.01, -0.005, 0.02, 0.0, 0.01, -0.01, 0.005, 0.015, -0.002, 0.008}
		points := portfolio.RollingSharpe(dates, returns, 4, 0.0, 252)
		Expect(points).To(HaveLen(7))
		Expect(points[0].Date).To(Equal(dates[3]))
		Expect(points[6].Date).To(Equal(dates[9]))
		for _, p := range points {
			Expect(p.Sharpe).NotTo(BeNil())
		}
	})

	It("should be empty when the series is shorter than the window", func() {
		dates := tradingDays(day0, 3)
		Expect(portfolio.RollingSharpe(dates, []float64{0.01, 0.02, 0.0}, 4, 0.0, 252)).To(BeEmpty())
	})

	It("should report nil Sharpe over a zero-volatility window", func() {
		dates := tradingDays(day0, 4)
		points := portfolio.RollingSharpe(dates, []float64{0.01, 0.01, 0.01, 0.01}, 3, 0.0, 252)
		Expect(points).To(HaveLen(2))
		Expect(points[0].Sharpe).To(BeNil())
		Expect(points[1].Sharpe).To(BeNil())
	})
})

var _ = Describe("Quarterly", func() {
	It("should partition observations by calendar quarter", func() {
		dates := []time.Time{
			time.Date(2024, time.March, 27, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC),
		}
		returns := []float64{0.01, 0.02, -0.01, 0.005, 0.01}

		quarters := portfolio.Quarterly(dates, returns, 0.0, 252)
		Expect(quarters).To(HaveLen(2))

		Expect(quarters[0].Year).To(Equal(2024))
		Expect(quarters[0].Quarter).To(Equal(1))
		Expect(quarters[0].Observations).To(Equal(2))
		Expect(quarters[0].Return).Should(BeNumerically("~", 1.01*1.02-1.0, 1e-12))

		Expect(quarters[1].Year).To(Equal(2024))
		Expect(quarters[1].Quarter).To(Equal(2))
		Expect(quarters[1].Observations).To(Equal(3))
		Expect(quarters[1].Return).Should(BeNumerically("~", 0.99*1.005*1.01-1.0, 1e-12))
	})

	It("should omit volatility and Sharpe for a single-observation quarter", func() {
		dates := []time.Time{
			time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, time.July, 2, 0, 0, 0, 0, time.UTC),
		}
		quarters := portfolio.Quarterly(dates, []float64{0.01, 0.02, -0.01}, 0.0, 252)
		Expect(quarters).To(HaveLen(2))
		Expect(quarters[0].Volatility).To(BeNil())
		Expect(quarters[0].Sharpe).To(BeNil())
		Expect(quarters[1].Volatility).NotTo(BeNil())
		Expect(quarters[1].Sharpe).NotTo(BeNil())
	})

	It("should be empty for an empty series", func() {
		Expect(portfolio.Quarterly(nil, nil, 0.0, 252)).To(BeEmpty())
	})
})

var _ = Describe("TopCorrelations", func() {
	It("should list each unordered pair once, sorted by absolute correlation", func() {
		table := newTable(day0, []string{"A", "B", "C"}, [][]float64{
			{0.01, -0.02, 0.015, 0.005, -0.01},
			{0.01, -0.02, 0.015, 0.005, -0.01},  // identical to A
			{-0.01, 0.02, -0.015, 0.004, 0.012}, // near mirror of A
		})

		pairs := portfolio.TopCorrelations(table)
		Expect(pairs).To(HaveLen(3))
		Expect(pairs[0].AssetA).To(Equal("A"))
		Expect(pairs[0].AssetB).To(Equal("B"))
		Expect(pairs[0].Correlation).Should(BeNumerically("~", 1.0, 1e-9))
		for ii := 1; ii < len(pairs); ii++ {
			Expect(math.Abs(pairs[ii].Correlation)).Should(BeNumerically("<=", math.Abs(pairs[ii-1].Correlation)))
		}
	})

	It("should omit pairs involving a zero-variance asset", func() {
		table := newTable(day0, []string{"A", "FLAT"}, [][]float64{
			{0.01, -0.02, 0.015},
			{0.0, 0.0, 0.0},
		})
		Expect(portfolio.TopCorrelations(table)).To(BeEmpty())
	})

	It("should be empty for a single asset", func() {
		table := newTable(day0, []string{"A"}, [][]float64{{0.01, -0.02}})
		Expect(portfolio.TopCorrelations(table)).To(BeEmpty())
	})
})
