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
	"github.com/rs/zerolog"
)

func logFloatPtr(e *zerolog.Event, key string, v *float64) {
	if v == nil {
		e.Str(key, "n/a")
		return
	}
	e.Float64(key, *v)
}

func (analysis *Analysis) MarshalZerologObject(e *zerolog.Event) {
	e.Time("ComputedOn", analysis.ComputedOn).
		Float64("PortfolioReturn", analysis.PortfolioReturn).
		Float64("PortfolioVolatility", analysis.PortfolioVolatility).
		Float64("MaxDrawdown", analysis.MaxDrawdown).
		Int("NumAssets", len(analysis.Assets)).
		Int("NumFrontierPoints", len(analysis.EfficientFrontier))
	logFloatPtr(e, "Sharpe", analysis.Sharpe)
	logFloatPtr(e, "Sortino", analysis.Sortino)
	logFloatPtr(e, "DiversificationRatio", analysis.DiversificationRatio)
	logFloatPtr(e, "Beta", analysis.Beta)
}

func (stats AssetStats) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Asset", stats.Asset).
		Float64("Weight", stats.Weight).
		Float64("MeanReturn", stats.MeanReturn).
		Float64("Volatility", stats.Volatility).
		Float64("ReturnContribution", stats.ReturnContribution)
	logFloatPtr(e, "Sharpe", stats.Sharpe)
}

func (opt *OptimalPortfolio) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("Return", opt.Return).
		Float64("Volatility", opt.Volatility).
		Float64("Regularization", opt.Regularization)
	logFloatPtr(e, "Sharpe", opt.Sharpe)
	for asset, weight := range opt.Weights {
		e.Float64("Weights."+asset, weight)
	}
}
