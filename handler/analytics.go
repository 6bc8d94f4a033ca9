// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/treasury-vault/tv-api/analytics"
	"github.com/treasury-vault/tv-api/common"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/dilution"
	"github.com/treasury-vault/tv-api/nav"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
)

// GetAnalytics returns the comprehensive analytics picture for one ticker.
func GetAnalytics(svc *analytics.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := requestSpan(c, "handler.GetAnalytics")
		defer span.End()

		ticker := strings.ToUpper(c.Params("ticker"))
		metrics, err := svc.ComprehensiveAnalytics(ctx, ticker)
		if err != nil {
			return analyticsError(c, ticker, err)
		}
		return c.JSON(metrics)
	}
}

// scenarioRequest is the POST body for scenario analysis: price scenarios
// drive NAV projections, dilution what-ifs the capital-structure outcomes.
type scenarioRequest struct {
	PriceScenarios  []nav.PriceScenario `json:"priceScenarios"`
	DilutionWhatIfs []dilution.WhatIf   `json:"dilutionWhatIfs"`
}

// RunScenarios projects NAV and share counts under the scenarios in the
// request body.
func RunScenarios(svc *analytics.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := requestSpan(c, "handler.RunScenarios")
		defer span.End()

		ticker := strings.ToUpper(c.Params("ticker"))

		request := scenarioRequest{}
		if err := c.BodyParser(&request); err != nil {
			log.Warn().Stack().Err(err).Str("Ticker", ticker).Msg("could not parse scenario request")
			return fiber.ErrBadRequest
		}

		result, err := svc.ScenarioAnalysis(ctx, ticker, request.PriceScenarios, request.DilutionWhatIfs)
		if err != nil {
			return analyticsError(c, ticker, err)
		}
		return c.JSON(result)
	}
}

// GetComparative aggregates a peer set. Tickers come from the comma-separated
// `tickers` query parameter; empty means every tracked company.
func GetComparative(svc *analytics.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := requestSpan(c, "handler.GetComparative")
		defer span.End()

		var tickers []string
		if raw := c.Query("tickers"); raw != "" {
			tickers = strings.Split(raw, ",")
			common.ArrToUpper(tickers)
		}

		result, err := svc.ComparativeAnalytics(ctx, tickers)
		if err != nil {
			log.Error().Stack().Err(err).Msg("comparative analytics failed")
			return fiber.ErrInternalServerError
		}
		return c.JSON(result)
	}
}

// ListCompanies returns every tracked ticker.
func ListCompanies(provider data.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := requestSpan(c, "handler.ListCompanies")
		defer span.End()

		tickers, err := provider.Companies(ctx)
		if err != nil {
			log.Error().Stack().Err(err).Msg("could not list companies")
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{"companies": tickers})
	}
}

func requestSpan(c *fiber.Ctx, name string) (context.Context, trace.Span) {
	return otel.Tracer(opentelemetry.Name).Start(c.UserContext(), name,
		trace.WithAttributes(opentelemetry.SpanAttributesFromFiber(c)...))
}

// analyticsError maps the error taxonomy onto HTTP statuses: unknown tickers
// and missing prices are the caller's problem, everything else is ours.
func analyticsError(c *fiber.Ctx, ticker string, err error) error {
	subLog := log.With().Str("Ticker", ticker).Logger()

	switch {
	case errors.Is(err, data.ErrCompanyNotFound):
		subLog.Warn().Msg("ticker not found")
		return fiber.ErrNotFound
	case errors.Is(err, data.ErrPriceMissing):
		subLog.Warn().Msg("no prices for held assets")
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no current prices for held assets")
	default:
		subLog.Error().Stack().Err(err).Msg("analytics request failed")
		return fiber.ErrInternalServerError
	}
}
