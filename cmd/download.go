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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fincanon/fc-api/common"
	"github.com/fincanon/fc-api/data"
	"github.com/fincanon/fc-api/portfolio"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	downloadOutput  string
	downloadBegin   string
	downloadEnd     string
	downloadWeights string
)

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "portfolio.csv", "File to write the returns csv to")
	downloadCmd.Flags().String("begin", "", "First quote date (YYYY-MM-DD), defaults to one year ago")
	downloadCmd.Flags().String("end", "", "Last quote date (YYYY-MM-DD), defaults to today")
	downloadCmd.Flags().StringVar(&downloadWeights, "weights", "", "Comma separated weights matching the symbol order; defaults to equal weighting")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <SYMBOL> [SYMBOL...]",
	Short: "download daily quotes and build an analyzable returns csv",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		ctx := context.Background()

		end := time.Now()
		begin := end.AddDate(-1, 0, 0)
		var err error
		if raw, _ := cmd.Flags().GetString("begin"); raw != "" {
			if begin, err = time.Parse("2006-01-02", raw); err != nil {
				log.Fatal().Err(err).Msg("cannot parse begin date")
			}
		}
		if raw, _ := cmd.Flags().GetString("end"); raw != "" {
			if end, err = time.Parse("2006-01-02", raw); err != nil {
				log.Fatal().Err(err).Msg("cannot parse end date")
			}
		}

		symbols := make([]string, len(args))
		for ii, symbol := range args {
			symbols[ii] = strings.ToUpper(symbol)
		}

		weights := portfolio.EqualWeights(symbols)
		if downloadWeights != "" {
			weights = parseWeights(symbols, downloadWeights)
		}

		table, err := data.BuildReturnsTable(ctx, data.NewStooq(nil), symbols, begin, end)
		if err != nil {
			log.Fatal().Err(err).Msg("could not build returns table")
		}

		fh, err := os.Create(downloadOutput)
		if err != nil {
			log.Fatal().Err(err).Str("File", downloadOutput).Msg("cannot create output file")
		}
		defer fh.Close()

		if err := portfolio.WriteCSV(fh, table, weights); err != nil {
			log.Fatal().Err(err).Msg("cannot write returns csv")
		}

		log.Info().Str("File", downloadOutput).Int("NumDates", table.Len()).
			Strs("Symbols", symbols).Msg("wrote returns csv")
	},
}

func parseWeights(symbols []string, raw string) portfolio.WeightVector {
	parts := strings.Split(raw, ",")
	if len(parts) != len(symbols) {
		log.Fatal().Int("NumWeights", len(parts)).Int("NumSymbols", len(symbols)).
			Msg("weights must match symbols one-to-one")
	}

	weights := make(portfolio.WeightVector, len(symbols))
	for ii, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			log.Fatal().Err(err).Str("Weight", part).Msg("cannot parse weight")
		}
		weights[symbols[ii]] = w
	}
	return weights
}
