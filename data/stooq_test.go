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

package data_test

import (
	"context"
	"net/http"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fincanon/fc-api/data"
)

var _ = Describe("Stooq", func() {
	var (
		ctx      context.Context
		client   *http.Client
		provider data.Provider
		begin    time.Time
		end      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &http.Client{}
		httpmock.ActivateNonDefault(client)
		provider = data.NewStooq(client)
		begin = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		end = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Context("when stooq returns quotes", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", `=~^https://stooq\.com/q/d/l/\?.*s=aapl\.us`,
				httpmock.NewStringResponder(200, `Date,Open,High,Low,Close,Volume
2024-01-02,184.0,186.0,183.0,185.64,50000000
2024-01-03,185.0,186.5,184.0,184.25,45000000
2024-01-04,184.5,185.5,181.0,181.91,48000000
`))
		})

		It("should parse the daily closes", func() {
			quotes, err := provider.DailyCloses(ctx, "AAPL", begin, end)
			Expect(err).To(BeNil())
			Expect(quotes).To(HaveLen(3))
			Expect(quotes[0].Date).To(Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
			Expect(quotes[0].Close).Should(BeNumerically("~", 185.64))
			Expect(quotes[2].Close).Should(BeNumerically("~", 181.91))
		})
	})

	Context("when stooq returns an error status", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", `=~^https://stooq\.com/q/d/l/`,
				httpmock.NewStringResponder(404, "Not Found"))
		})

		It("should report the download failure", func() {
			_, err := provider.DailyCloses(ctx, "AAPL", begin, end)
			Expect(err).To(MatchError(data.ErrDownloadFailed))
		})
	})

	Context("when stooq returns no data rows", func() {
		BeforeEach(func() {
			httpmock.RegisterResponder("GET", `=~^https://stooq\.com/q/d/l/`,
				httpmock.NewStringResponder(200, "Date,Open,High,Low,Close,Volume\n"))
		})

		It("should report an empty result", func() {
			_, err := provider.DailyCloses(ctx, "AAPL", begin, end)
			Expect(err).To(MatchError(data.ErrNoQuotes))
		})
	})
})
