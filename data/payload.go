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

package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fincanon/fc-api/portfolio"
	"github.com/rs/zerolog/log"
)

var ErrNoCommonDates = errors.New("symbols share fewer than two quote dates")

type quoteResult struct {
	Symbol string
	Quotes []Quote
	Err    error
}

// BuildReturnsTable downloads daily closes for every symbol, aligns
// them on their common trading dates, and converts the closes into
// daily fractional returns.
func BuildReturnsTable(ctx context.Context, provider Provider, symbols []string, begin time.Time, end time.Time) (*portfolio.ReturnsTable, error) {
	if len(symbols) == 0 {
		return nil, portfolio.ErrNoAssets
	}

	ch := make(chan quoteResult)
	for _, symbol := range symbols {
		go downloadWorker(ctx, ch, provider, symbol, begin, end)
	}

	closes := make(map[string]map[time.Time]float64, len(symbols))
	var errs []error
	for range symbols {
		res := <-ch
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("Symbol", res.Symbol).Msg("cannot download quotes")
			errs = append(errs, res.Err)
			continue
		}
		byDate := make(map[time.Time]float64, len(res.Quotes))
		for _, q := range res.Quotes {
			byDate[q.Date] = q.Close
		}
		closes[res.Symbol] = byDate
	}
	if len(errs) != 0 {
		return nil, errs[0]
	}

	// intersect the per-symbol date sets
	var common []time.Time
	for dt := range closes[symbols[0]] {
		shared := true
		for _, symbol := range symbols[1:] {
			if _, ok := closes[symbol][dt]; !ok {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, dt)
		}
	}
	if len(common) < 2 {
		return nil, fmt.Errorf("%w: %d shared dates", ErrNoCommonDates, len(common))
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	table := &portfolio.ReturnsTable{
		Dates:  common[1:],
		Assets: symbols,
		Vals:   make([][]float64, len(symbols)),
	}
	for colIdx, symbol := range symbols {
		col := make([]float64, 0, len(common)-1)
		for ii := 1; ii < len(common); ii++ {
			prev := closes[symbol][common[ii-1]]
			curr := closes[symbol][common[ii]]
			col = append(col, curr/prev-1.0)
		}
		table.Vals[colIdx] = col
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func downloadWorker(ctx context.Context, result chan<- quoteResult, provider Provider, symbol string, begin time.Time, end time.Time) {
	quotes, err := provider.DailyCloses(ctx, symbol, begin, end)
	result <- quoteResult{
		Symbol: symbol,
		Quotes: quotes,
		Err:    err,
	}
}
