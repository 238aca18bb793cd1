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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrDownloadFailed = errors.New("quote download failed")
	ErrNoQuotes       = errors.New("no quotes returned")
)

// Quote is a single daily closing price
type Quote struct {
	Date  time.Time
	Close float64
}

// Provider fetches daily closing prices for a single symbol
type Provider interface {
	DailyCloses(ctx context.Context, symbol string, begin time.Time, end time.Time) ([]Quote, error)
}

type stooq struct {
	baseURL string
	client  *http.Client
}

// NewStooq creates a quote provider backed by the stooq.com daily csv
// endpoint
func NewStooq(client *http.Client) Provider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &stooq{
		baseURL: "https://stooq.com",
		client:  client,
	}
}

func (s *stooq) DailyCloses(ctx context.Context, symbol string, begin time.Time, end time.Time) ([]Quote, error) {
	// stooq lists US equities with a .us suffix
	ticker := strings.ToLower(symbol)
	if !strings.Contains(ticker, ".") {
		ticker += ".us"
	}

	url := fmt.Sprintf("%s/q/d/l/?s=%s&d1=%s&d2=%s&i=d", s.baseURL, ticker,
		begin.Format("20060102"), end.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDownloadFailed, symbol, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrDownloadFailed, symbol, resp.StatusCode)
	}

	quotes, err := parseQuoteCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrDownloadFailed, symbol, err.Error())
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoQuotes, symbol)
	}

	log.Debug().Str("Symbol", symbol).Int("NumQuotes", len(quotes)).Msg("downloaded quotes")
	return quotes, nil
}

// parseQuoteCSV reads the stooq daily format: Date,Open,High,Low,Close,Volume
func parseQuoteCSV(r io.Reader) ([]Quote, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	quotes := make([]Quote, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 5 {
			continue
		}
		dt, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, err
		}
		closePrice, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, Quote{Date: dt, Close: closePrice})
	}

	return quotes, nil
}
