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

package analytics_test

import (
	"context"
	"sync"
	"time"

	"github.com/treasury-vault/tv-api/data"
)

// fakeProvider is an in-memory data.Provider for orchestrator tests.
type fakeProvider struct {
	mu sync.Mutex

	companies map[string]*data.Company
	prices    []data.CryptoPrice
	stocks    map[string]float64
	history   map[string][]data.HistoricalDataPoint

	saved []data.NavTimeSeriesPoint
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		companies: map[string]*data.Company{},
		stocks:    map[string]float64{},
		history:   map[string][]data.HistoricalDataPoint{},
	}
}

func (f *fakeProvider) addCompany(company *data.Company, stockPrice float64) {
	f.companies[company.Ticker] = company
	f.stocks[company.Ticker] = stockPrice
}

func (f *fakeProvider) Companies(_ context.Context) ([]string, error) {
	tickers := make([]string, 0, len(f.companies))
	for ticker := range f.companies {
		tickers = append(tickers, ticker)
	}
	return tickers, nil
}

func (f *fakeProvider) CompanyByTicker(_ context.Context, ticker string) (*data.Company, error) {
	company, ok := f.companies[ticker]
	if !ok {
		return nil, data.ErrCompanyNotFound
	}
	return company, nil
}

func (f *fakeProvider) CryptoPrices(_ context.Context) ([]data.CryptoPrice, error) {
	return f.prices, nil
}

func (f *fakeProvider) StockPrice(_ context.Context, ticker string) (float64, error) {
	price, ok := f.stocks[ticker]
	if !ok {
		return 0, data.ErrCompanyNotFound
	}
	return price, nil
}

func (f *fakeProvider) HistoricalData(_ context.Context, ticker string, _ int) ([]data.HistoricalDataPoint, error) {
	return f.history[ticker], nil
}

func (f *fakeProvider) SaveNavPoint(_ context.Context, point data.NavTimeSeriesPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// idempotent by (ticker, time): overwrite, never duplicate
	for idx := range f.saved {
		if f.saved[idx].Ticker == point.Ticker && f.saved[idx].Time.Equal(point.Time) {
			f.saved[idx] = point
			return nil
		}
	}
	f.saved = append(f.saved, point)
	return nil
}

func (f *fakeProvider) savedPoints() []data.NavTimeSeriesPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]data.NavTimeSeriesPoint, len(f.saved))
	copy(out, f.saved)
	return out
}

// testCompany builds a company with a BTC-heavy treasury and a simple capital
// structure.
func testCompany(ticker string, btcAmount float64) *data.Company {
	return &data.Company{
		Ticker:             ticker,
		Name:               ticker + " Treasury Corp",
		ShareholderEquity:  1_000_000_000,
		TotalDebt:          250_000_000,
		Cash:               100_000_000,
		CurrentAssets:      300_000_000,
		CurrentLiabilities: 100_000_000,
		Revenue:            200_000_000,
		OperatingIncome:    40_000_000,
		InterestExpense:    10_000_000,
		MonthlyBurn:        10_000_000,
		CapitalStructure: data.CapitalStructure{
			BasicShares:            100_000_000,
			DilutedShares:          105_000_000,
			Float:                  80_000_000,
			InsiderOwnership:       0.15,
			InstitutionalOwnership: 0.55,
			Options:                5_000_000,
		},
		Holdings: []data.TreasuryHolding{
			{
				Asset:     "BTC",
				Amount:    btcAmount,
				TotalCost: btcAmount * 40_000,
				Transactions: []data.TreasuryTransaction{
					{
						Date:          time.Now().AddDate(0, -1, 0),
						Kind:          data.PurchaseTransaction,
						Asset:         "BTC",
						Amount:        btcAmount / 10,
						TotalCost:     btcAmount / 10 * 50_000,
						FundingMethod: data.EquityFunding,
						StockPrice:    10,
					},
				},
			},
		},
	}
}
