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

package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/treasury-vault/tv-api/common"
	"github.com/treasury-vault/tv-api/nav"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
)

// RecordNavSnapshots computes and persists one NAV time-series point per
// tracked company. Writes are idempotent by (ticker, time), so re-running a
// window overwrites rather than duplicates. A failing company is logged and
// skipped; the remaining companies still snapshot.
func (service *Service) RecordNavSnapshots(ctx context.Context) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.RecordNavSnapshots")
	defer span.End()

	// each scheduled run gets an id so its log lines can be correlated
	runLog := log.With().Str("RunID", uuid.New().String()).Logger()

	tickers, err := service.provider.Companies(ctx)
	if err != nil {
		runLog.Error().Stack().Err(err).Msg("could not list companies for NAV snapshots")
		return
	}

	now := time.Now().In(common.GetTimezone()).Truncate(time.Hour)

	for _, ticker := range tickers {
		subLog := runLog.With().Str("Ticker", ticker).Logger()

		snap, err := service.fetchSnapshot(ctx, ticker)
		if err != nil {
			subLog.Warn().Stack().Err(err).Msg("skipping NAV snapshot")
			continue
		}

		calc := nav.Calculate(snap.company, snap.res, snap.valuation, snap.stockPrice, &service.policy.Nav, now)
		if err := service.provider.SaveNavPoint(ctx, calc.TimeSeriesPoint()); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not save NAV point")
			continue
		}

		subLog.Debug().Float64("NavPerShare", calc.AssumedDiluted.NavPerShare).Msg("recorded NAV snapshot")
	}
}
