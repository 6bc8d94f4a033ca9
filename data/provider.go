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

package data

import (
	"context"
)

// Provider is the external-collaborator surface the analytics engines consume.
// The production implementation is Manager; tests substitute fakes.
type Provider interface {
	// Companies lists all tracked tickers.
	Companies(ctx context.Context) ([]string, error)

	// CompanyByTicker loads a full company snapshot including capital
	// structure, holdings, and transactions.
	CompanyByTicker(ctx context.Context, ticker string) (*Company, error)

	// CryptoPrices returns current quotes for all tracked assets.
	CryptoPrices(ctx context.Context) ([]CryptoPrice, error)

	// StockPrice returns the most recent stock quote for ticker.
	StockPrice(ctx context.Context, ticker string) (float64, error)

	// HistoricalData returns up to days of per-date snapshots, oldest first.
	HistoricalData(ctx context.Context, ticker string, days int) ([]HistoricalDataPoint, error)

	// SaveNavPoint persists one NAV time-series point; writes are idempotent
	// by (ticker, time).
	SaveNavPoint(ctx context.Context, point NavTimeSeriesPoint) error
}
