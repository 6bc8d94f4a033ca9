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
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/treasury-vault/tv-api/comparative"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
)

// ComparativeResult is the cross-sectional view plus the per-peer metrics it
// was built from.
type ComparativeResult struct {
	Report *comparative.Report `json:"report"`

	Peers []*CalculatedMetrics `json:"peers"`

	// Excluded lists peers whose computation failed; they are dropped from
	// aggregates rather than aborting the request.
	Excluded []string `json:"excluded,omitempty"`
}

// ComparativeAnalytics computes the full picture for every peer concurrently
// and aggregates the survivors. An empty ticker list means all tracked
// companies.
func (service *Service) ComparativeAnalytics(ctx context.Context, tickers []string) (*ComparativeResult, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.ComparativeAnalytics")
	defer span.End()

	if len(tickers) == 0 {
		var err error
		tickers, err = service.provider.Companies(ctx)
		if err != nil {
			return nil, err
		}
	}

	type peerOutcome struct {
		ticker  string
		metrics *CalculatedMetrics
	}

	outcomes := make([]peerOutcome, len(tickers))
	var wg sync.WaitGroup
	wg.Add(len(tickers))
	for idx, ticker := range tickers {
		go func(idx int, ticker string) {
			defer wg.Done()
			metrics, err := service.ComprehensiveAnalytics(ctx, ticker)
			if err != nil {
				log.Warn().Stack().Err(err).Str("Ticker", ticker).Msg("excluding peer from comparative set")
				outcomes[idx] = peerOutcome{ticker: ticker}
				return
			}
			outcomes[idx] = peerOutcome{ticker: ticker, metrics: metrics}
		}(idx, ticker)
	}
	wg.Wait()

	result := &ComparativeResult{}
	peerMetrics := make([]comparative.PeerMetrics, 0, len(tickers))
	for _, outcome := range outcomes {
		if outcome.metrics == nil {
			result.Excluded = append(result.Excluded, outcome.ticker)
			continue
		}
		result.Peers = append(result.Peers, outcome.metrics)
		peerMetrics = append(peerMetrics, toPeerMetrics(outcome.metrics))
	}

	result.Report = comparative.Compare(peerMetrics, &service.policy.Comparative)

	return result, nil
}

// toPeerMetrics projects one company's computed picture onto the comparative
// engine's input.
func toPeerMetrics(metrics *CalculatedMetrics) comparative.PeerMetrics {
	return comparative.PeerMetrics{
		Ticker:          metrics.Ticker,
		MarketCap:       metrics.MarketCap,
		EnterpriseValue: metrics.EnterpriseValue,
		TreasuryValue:   metrics.Nav.TreasuryValue,
		StockPrice:      metrics.Nav.StockPrice,
		NavPerShare:     metrics.Nav.AssumedDiluted.NavPerShare,

		PremiumPercent: metrics.Nav.AssumedDiluted.PremiumPercent,
		YieldPercent:   metrics.CryptoYield.BlendedAnnualizedPercent,

		Volatility:  metrics.Risk.Market.AnnualizedVolatility,
		RiskScore:   metrics.Risk.Scores.Composite,
		HealthScore: metrics.FinancialHealth.Composite,
	}
}
