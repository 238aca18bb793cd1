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

package handler

import (
	"bytes"
	"io"
	"strconv"

	"github.com/fincanon/fc-api/observability/opentelemetry"
	"github.com/fincanon/fc-api/portfolio"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Analyze accepts a portfolio csv payload (multipart `file` field or the
// raw request body), runs the metrics computation, and returns the full
// analysis as JSON. Validation failures return 400 with the validation
// message; localized numerical failures still return 200 with the
// affected fields nulled.
func Analyze(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.Analyze",
		trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...))
	defer span.End()

	body, closeBody, err := payloadReader(c)
	if err != nil {
		log.Warn().Err(err).Msg("cannot read analyze payload")
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer closeBody()

	table, weights, err := portfolio.LoadCSV(body)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting analyze payload")
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	opts, err := optionsFromQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	analysis, err := portfolio.Analyze(ctx, table, weights, opts)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	log.Info().Object("Analysis", analysis).Int("NumDates", table.Len()).Msg("analysis complete")
	return c.JSON(analysis)
}

func payloadReader(c *fiber.Ctx) (io.Reader, func(), error) {
	if fileHeader, err := c.FormFile("file"); err == nil {
		fh, err := fileHeader.Open()
		if err != nil {
			return nil, nil, err
		}
		return fh, func() {
			if err := fh.Close(); err != nil {
				log.Warn().Err(err).Msg("cannot close uploaded file")
			}
		}, nil
	}
	return bytes.NewReader(c.Body()), func() {}, nil
}

func optionsFromQuery(c *fiber.Ctx) (portfolio.Options, error) {
	opts := portfolio.Options{
		Benchmark: c.Query("benchmark"),
	}

	if raw := c.Query("riskFree"); raw != "" {
		riskFree, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, fiber.NewError(fiber.StatusBadRequest, "riskFree must be a number")
		}
		opts.RiskFreeRate = riskFree
	}

	if raw := c.Query("window"); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil || window < 2 {
			return opts, fiber.NewError(fiber.StatusBadRequest, "window must be an integer >= 2")
		}
		opts.Window = window
	}

	return opts, nil
}
