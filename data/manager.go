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
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Manager is the production Provider: a PostgreSQL store for company records
// plus an HTTP quote feed for crypto prices. Quotes are held for a short TTL
// so a comparative fan-out does not hammer the feed once per peer.
type Manager struct {
	store *Store
	feed  *CryptoFeed

	quoteTTL  time.Duration
	lock      sync.Mutex
	quotes    []CryptoPrice
	fetchedAt time.Time
}

// NewManager creates a Manager from viper configuration.
func NewManager() *Manager {
	ttl := viper.GetInt("marketdata.quote_ttl_seconds")
	if ttl <= 0 {
		ttl = 60
	}
	return &Manager{
		store:    NewStore(),
		feed:     NewCryptoFeed(viper.GetString("marketdata.quote_url"), viper.GetString("marketdata.token")),
		quoteTTL: time.Duration(ttl) * time.Second,
	}
}

// NewManagerWithSources creates a Manager with explicit collaborators; used in
// tests.
func NewManagerWithSources(store *Store, feed *CryptoFeed, quoteTTL time.Duration) *Manager {
	return &Manager{store: store, feed: feed, quoteTTL: quoteTTL}
}

func (m *Manager) Companies(ctx context.Context) ([]string, error) {
	return m.store.Companies(ctx)
}

func (m *Manager) CompanyByTicker(ctx context.Context, ticker string) (*Company, error) {
	return m.store.CompanyByTicker(ctx, ticker)
}

// CryptoPrices returns current quotes, serving from the short-lived cache when
// fresh.
func (m *Manager) CryptoPrices(ctx context.Context) ([]CryptoPrice, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.quotes != nil && time.Since(m.fetchedAt) < m.quoteTTL {
		return m.quotes, nil
	}

	quotes, err := m.feed.Prices(ctx)
	if err != nil {
		return nil, err
	}

	m.quotes = quotes
	m.fetchedAt = time.Now()
	return quotes, nil
}

func (m *Manager) StockPrice(ctx context.Context, ticker string) (float64, error) {
	return m.store.StockPrice(ctx, ticker)
}

func (m *Manager) HistoricalData(ctx context.Context, ticker string, days int) ([]HistoricalDataPoint, error) {
	return m.store.HistoricalData(ctx, ticker, days)
}

func (m *Manager) SaveNavPoint(ctx context.Context, point NavTimeSeriesPoint) error {
	return m.store.SaveNavPoint(ctx, point)
}
