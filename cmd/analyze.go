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

package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fincanon/fc-api/common"
	"github.com/fincanon/fc-api/portfolio"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	analyzeRiskFree  float64
	analyzeWindow    int
	analyzeBenchmark string
)

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeRiskFree, "risk-free", 0, "Annualized risk-free rate")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", portfolio.DefaultWindow, "Rolling Sharpe window in trading days")
	analyzeCmd.Flags().StringVar(&analyzeBenchmark, "benchmark", "", "Asset column to compute beta against")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <portfolio.csv>",
	Short: "compute portfolio metrics for a returns csv file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		fh, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("File", args[0]).Msg("cannot open portfolio file")
		}
		defer fh.Close()

		table, weights, err := portfolio.LoadCSV(fh)
		if err != nil {
			log.Fatal().Err(err).Str("File", args[0]).Msg("cannot parse portfolio file")
		}

		analysis, err := portfolio.Analyze(context.Background(), table, weights, portfolio.Options{
			RiskFreeRate: analyzeRiskFree,
			Window:       analyzeWindow,
			Benchmark:    analyzeBenchmark,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("analysis failed")
		}

		printSummary(analysis)
		printAssets(analysis)
		printOptimal("MINIMUM VARIANCE PORTFOLIO", analysis.MinVariance, analysis.MinVarianceError)
		printOptimal("MAXIMUM SHARPE PORTFOLIO", analysis.MaxSharpe, analysis.MaxSharpeError)
	},
}

func printSummary(analysis *portfolio.Analysis) {
	fmt.Println("\nPORTFOLIO METRICS")
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"Metric", "Value"})
	writer.Append([]string{"Annual Return", fmt.Sprintf("%.2f%%", analysis.PortfolioReturn*100)})
	writer.Append([]string{"Annual Volatility", fmt.Sprintf("%.2f%%", analysis.PortfolioVolatility*100)})
	writer.Append([]string{"Sharpe Ratio", formatPtr(analysis.Sharpe)})
	writer.Append([]string{"Sortino Ratio", formatPtr(analysis.Sortino)})
	writer.Append([]string{"Maximum Drawdown", fmt.Sprintf("%.2f%%", analysis.MaxDrawdown*100)})
	writer.Append([]string{"Diversification", formatPtr(analysis.DiversificationRatio)})
	if analysis.BenchmarkAsset != "" {
		writer.Append([]string{"Beta vs " + analysis.BenchmarkAsset, formatPtr(analysis.Beta)})
	}
	writer.Render()
}

func printAssets(analysis *portfolio.Analysis) {
	fmt.Println("\nASSET STATISTICS")
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"Asset", "Weight", "Annual Return", "Annual Vol", "Sharpe"})
	for _, stats := range analysis.Assets {
		writer.Append([]string{
			stats.Asset,
			fmt.Sprintf("%.1f%%", stats.Weight*100),
			fmt.Sprintf("%.2f%%", stats.MeanReturn*100),
			fmt.Sprintf("%.2f%%", stats.Volatility*100),
			formatPtr(stats.Sharpe),
		})
	}
	writer.Render()
}

func printOptimal(title string, opt *portfolio.OptimalPortfolio, errMsg string) {
	fmt.Println("\n" + title)
	if opt == nil {
		fmt.Printf("unavailable: %s\n", errMsg)
		return
	}

	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"Asset", "Weight"})
	for _, stats := range sortedWeights(opt.Weights) {
		writer.Append([]string{stats.asset, fmt.Sprintf("%.1f%%", stats.weight*100)})
	}
	writer.Append([]string{"Return", fmt.Sprintf("%.2f%%", opt.Return*100)})
	writer.Append([]string{"Volatility", fmt.Sprintf("%.2f%%", opt.Volatility*100)})
	writer.Append([]string{"Sharpe", formatPtr(opt.Sharpe)})
	writer.Render()
}

func formatPtr(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

type assetWeight struct {
	asset  string
	weight float64
}

func sortedWeights(weights portfolio.WeightVector) []assetWeight {
	sorted := make([]assetWeight, 0, len(weights))
	for asset, weight := range weights {
		sorted = append(sorted, assetWeight{asset: asset, weight: weight})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].weight > sorted[j].weight
	})
	return sorted
}
