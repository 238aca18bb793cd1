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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// WeightRowMarker is the literal first cell of the weight row in the
// portfolio csv payload
const WeightRowMarker = "Weights"

const dateLayout = "2006-01-02"

// LoadCSV parses the portfolio payload:
//
//	Date,AAPL,MSFT,...
//	Weights,0.5,0.25,...
//	2024-01-02,0.0102,-0.0045,...
//	...
//
// Row 1 is a header naming the asset columns, row 2 the weight row, and
// every following row an ascending date with one fractional return per
// asset. Shape errors, non-monotonic dates, negative weights, or a
// weight row that does not sum to 1.0 within WeightSumTol are rejected
// with a descriptive error.
func LoadCSV(r io.Reader) (*ReturnsTable, WeightVector, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrMalformedCSV, err.Error())
	}

	if len(records) < 3 {
		return nil, nil, fmt.Errorf("%w: need a header row, a weight row, and at least one return row", ErrMalformedCSV)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, nil, fmt.Errorf("%w: header names no asset columns", ErrNoAssets)
	}
	assets := header[1:]

	weightRow := records[1]
	if !strings.EqualFold(weightRow[0], WeightRowMarker) {
		return nil, nil, fmt.Errorf("%w: second row must begin with %q, got %q", ErrMalformedCSV, WeightRowMarker, weightRow[0])
	}

	weights := make(WeightVector, len(assets))
	for idx, asset := range assets {
		w, err := strconv.ParseFloat(strings.TrimSpace(weightRow[idx+1]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: weight for %s: %s", ErrMalformedCSV, asset, err.Error())
		}
		weights[asset] = w
	}

	table := &ReturnsTable{
		Dates:  make([]time.Time, 0, len(records)-2),
		Assets: assets,
		Vals:   make([][]float64, len(assets)),
	}
	for idx := range table.Vals {
		table.Vals[idx] = make([]float64, 0, len(records)-2)
	}

	for rowIdx, record := range records[2:] {
		dt, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %s", ErrMalformedCSV, rowIdx+3, err.Error())
		}
		table.Dates = append(table.Dates, dt)

		for colIdx, asset := range assets {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[colIdx+1]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: row %d, asset %s: %s", ErrMalformedCSV, rowIdx+3, asset, err.Error())
			}
			table.Vals[colIdx] = append(table.Vals[colIdx], v)
		}
	}

	if err := table.Validate(); err != nil {
		return nil, nil, err
	}
	if err := weights.Validate(table); err != nil {
		return nil, nil, err
	}

	return table, weights, nil
}

// WriteCSV serializes a returns table and weight vector in the payload
// format accepted by LoadCSV
func WriteCSV(w io.Writer, table *ReturnsTable, weights WeightVector) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if err := weights.Validate(table); err != nil {
		return err
	}

	writer := csv.NewWriter(w)

	header := make([]string, 0, table.NumAssets()+1)
	header = append(header, "Date")
	header = append(header, table.Assets...)
	if err := writer.Write(header); err != nil {
		return err
	}

	weightRow := make([]string, 0, table.NumAssets()+1)
	weightRow = append(weightRow, WeightRowMarker)
	for _, asset := range table.Assets {
		weightRow = append(weightRow, strconv.FormatFloat(weights[asset], 'f', -1, 64))
	}
	if err := writer.Write(weightRow); err != nil {
		return err
	}

	row := make([]string, table.NumAssets()+1)
	for dateIdx, dt := range table.Dates {
		row[0] = dt.Format(dateLayout)
		for colIdx := range table.Assets {
			row[colIdx+1] = strconv.FormatFloat(table.Vals[colIdx][dateIdx], 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
