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

// Package analytics orchestrates the engines: it fetches company and market
// snapshots, fans the independent computations out concurrently, and composes
// the dependent ones.
package analytics

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel"

	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/common"
	"github.com/treasury-vault/tv-api/cryptoyield"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/dilution"
	"github.com/treasury-vault/tv-api/health"
	"github.com/treasury-vault/tv-api/nav"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/risk"
	"github.com/treasury-vault/tv-api/treasury"
)

// historyDays is the snapshot depth the risk and growth engines consume.
const historyDays = 365

// Service coordinates the analytics engines over a data provider. Engines are
// pure functions; all state lives in the provider and the cache.
type Service struct {
	provider data.Provider
	policy   *policy.Policy
}

func NewService(provider data.Provider, pol *policy.Policy) *Service {
	return &Service{
		provider: provider,
		policy:   pol,
	}
}

// InstitutionalMetrics summarizes the ownership picture for institutional
// investors.
type InstitutionalMetrics struct {
	InsiderOwnershipPercent       float64 `json:"insiderOwnershipPercent"`
	InstitutionalOwnershipPercent float64 `json:"institutionalOwnershipPercent"`
	RetailOwnershipPercent        float64 `json:"retailOwnershipPercent"`

	FloatShares      float64 `json:"floatShares"`
	FloatMarketValue float64 `json:"floatMarketValue"`

	TreasuryValuePerFloatShare float64 `json:"treasuryValuePerFloatShare"`
}

// CalculatedMetrics is the full derived picture for one company. It is a
// deterministic pure function of its inputs and safe to cache by snapshot
// hash; only NAV time-series points persist.
type CalculatedMetrics struct {
	Ticker        string    `json:"ticker"`
	Time          time.Time `json:"time"`
	PolicyVersion string    `json:"policyVersion"`

	MarketCap       float64 `json:"marketCap"`
	EnterpriseValue float64 `json:"enterpriseValue"`

	Nav             *nav.Calculation      `json:"nav"`
	CryptoYield     *cryptoyield.Report   `json:"cryptoYield"`
	Dilution        *dilution.Report      `json:"dilution"`
	Risk            *risk.Report          `json:"risk"`
	FinancialHealth *health.Report        `json:"financialHealth"`
	Institutional   *InstitutionalMetrics `json:"institutionalMetrics"`
	CostBasis       []*treasury.LotReport `json:"costBasis,omitempty"`
}

// snapshot bundles the immutable inputs one computation runs over.
type snapshot struct {
	company    *data.Company
	prices     data.PriceMap
	stockPrice float64
	history    []data.HistoricalDataPoint

	res       *capstructure.Resolution
	valuation *treasury.Valuation
}

// fetchSnapshot loads everything a computation needs in one place. A missing
// company fails fast; missing prices surface through the valuation.
func (service *Service) fetchSnapshot(ctx context.Context, ticker string) (*snapshot, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.fetchSnapshot")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Logger()

	company, err := service.provider.CompanyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	quotes, err := service.provider.CryptoPrices(ctx)
	if err != nil {
		return nil, err
	}

	stockPrice, err := service.provider.StockPrice(ctx, ticker)
	if err != nil {
		return nil, err
	}

	history, err := service.provider.HistoricalData(ctx, ticker, historyDays)
	if err != nil {
		// risk statistics degrade gracefully without history
		subLog.Warn().Stack().Err(err).Msg("could not load historical data")
		history = nil
	}

	snap := &snapshot{
		company:    company,
		prices:     data.BuildPriceMap(quotes),
		stockPrice: stockPrice,
		history:    history,
	}

	snap.res = capstructure.Resolve(&company.CapitalStructure)
	snap.valuation, err = treasury.Value(company.Holdings, snap.prices)
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// snapshotHash derives the cache key for a (ticker, price-snapshot, policy)
// triple. CalculatedMetrics is pure, so identical hashes mean identical
// results.
func (service *Service) snapshotHash(ticker string, snap *snapshot) string {
	hasher := blake3.New()
	enc := json.NewEncoder(hasher)

	_ = enc.Encode(ticker)
	_ = enc.Encode(service.policy.Version)
	_ = enc.Encode(snap.stockPrice)
	_ = enc.Encode(snap.prices)

	sum := hasher.Sum(nil)
	return "analytics:" + hex.EncodeToString(sum[:16])
}

// ComprehensiveAnalytics computes the full derived picture for one company.
// NAV, yield, dilution, risk, and cost basis are independent and run
// concurrently; financial health composes their outputs afterwards. Each fresh
// computation also appends the NAV point to the time series.
func (service *Service) ComprehensiveAnalytics(ctx context.Context, ticker string) (*CalculatedMetrics, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.ComprehensiveAnalytics")
	defer span.End()

	snap, err := service.fetchSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}

	cacheKey := service.snapshotHash(ticker, snap)
	if raw, err := common.CacheGet(cacheKey); err == nil {
		cached := &CalculatedMetrics{}
		if err := json.Unmarshal(raw, cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, common.ErrCacheMiss) {
		log.Warn().Stack().Err(err).Str("Ticker", ticker).Msg("cache read failed")
	}

	metrics := service.compute(snap, time.Now().In(common.GetTimezone()))

	if raw, err := json.Marshal(metrics); err == nil {
		if err := common.CacheSet(cacheKey, raw); err != nil {
			log.Warn().Stack().Err(err).Str("Ticker", ticker).Msg("cache write failed")
		}
	}

	// the scheduled snapshot job appends the same hour-truncated point; writes
	// are idempotent by (ticker, time) so the two paths never duplicate
	point := metrics.Nav.TimeSeriesPoint()
	point.Time = metrics.Time.Truncate(time.Hour)
	if err := service.provider.SaveNavPoint(ctx, point); err != nil {
		log.Warn().Stack().Err(err).Str("Ticker", ticker).Msg("could not save NAV point")
	}

	return metrics, nil
}

// compute runs the engines over one snapshot.
func (service *Service) compute(snap *snapshot, now time.Time) *CalculatedMetrics {
	metrics := &CalculatedMetrics{
		Ticker:        snap.company.Ticker,
		Time:          now,
		PolicyVersion: service.policy.Version,
	}

	weights := make(map[string]float64, len(snap.valuation.Assets))
	for _, asset := range snap.valuation.Assets {
		weights[asset.Asset] = asset.Weight
	}

	// risk needs total NAV for its stress tests; derive it without waiting on
	// the NAV branch
	navTotal := snap.valuation.TotalValue + nav.AdjustedEquity(snap.company, &service.policy.Nav)

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		metrics.Nav = nav.Calculate(snap.company, snap.res, snap.valuation, snap.stockPrice, &service.policy.Nav, now)
	}()

	go func() {
		defer wg.Done()
		metrics.CryptoYield = cryptoyield.Compute(snap.company, snap.res, cryptoyield.WindowQuarterly, weights, now, &service.policy.Yield)
	}()

	go func() {
		defer wg.Done()
		metrics.Dilution = dilution.Analyze(snap.company, snap.res, snap.stockPrice, &service.policy.Dilution)
	}()

	go func() {
		defer wg.Done()
		metrics.Risk = risk.Analyze(snap.company, snap.valuation, snap.history, snap.prices, navTotal, &service.policy.Risk)
	}()

	go func() {
		defer wg.Done()
		metrics.CostBasis = service.costBasis(snap, now)
	}()

	wg.Wait()

	metrics.MarketCap = snap.res.BasicShares * snap.stockPrice
	metrics.EnterpriseValue = metrics.MarketCap + snap.company.TotalDebt - snap.company.Cash

	metrics.FinancialHealth = health.Grade(snap.company, snap.valuation, metrics.CryptoYield, snap.history, &service.policy.Health)
	metrics.Institutional = institutionalMetrics(snap)

	return metrics
}

// costBasis tracks open lots for each held asset under the policy cost-basis
// method, marked at current prices.
func (service *Service) costBasis(snap *snapshot, now time.Time) []*treasury.LotReport {
	pol := &service.policy.Yield
	reports := make([]*treasury.LotReport, 0, len(snap.company.Holdings))
	for _, holding := range snap.company.Holdings {
		price := snap.prices[holding.Asset].Price
		reports = append(reports, treasury.TrackLots(holding.Asset, holding.Transactions, pol.CostBasisMethod, price, now, pol))
	}
	return reports
}

func institutionalMetrics(snap *snapshot) *InstitutionalMetrics {
	cs := &snap.company.CapitalStructure

	im := &InstitutionalMetrics{
		InsiderOwnershipPercent:       cs.InsiderOwnership * 100,
		InstitutionalOwnershipPercent: cs.InstitutionalOwnership * 100,
		FloatShares:                   cs.Float,
		FloatMarketValue:              cs.Float * snap.stockPrice,
	}

	retail := 1 - cs.InsiderOwnership - cs.InstitutionalOwnership
	if retail > 0 {
		im.RetailOwnershipPercent = retail * 100
	}
	if cs.Float > 0 {
		im.TreasuryValuePerFloatShare = snap.valuation.TotalValue / cs.Float
	}

	return im
}
