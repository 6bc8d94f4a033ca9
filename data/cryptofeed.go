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
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// CryptoFeed retrieves spot quotes from the configured quote service.
type CryptoFeed struct {
	baseURL string
	token   string
}

type cryptoQuoteJSON struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume24h"`
	Timestamp string  `json:"timestamp"`
}

// NewCryptoFeed creates a quote provider for the given service.
func NewCryptoFeed(baseURL string, token string) *CryptoFeed {
	return &CryptoFeed{
		baseURL: baseURL,
		token:   token,
	}
}

// Prices fetches current quotes for all tracked assets.
func (f *CryptoFeed) Prices(ctx context.Context) ([]CryptoPrice, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "cryptofeed.Prices")
	defer span.End()

	url := fmt.Sprintf("%s/v1/crypto/prices?token=%s", f.baseURL, f.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not build quote request")
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote request failed")
		log.Error().Stack().Err(err).Msg("quote request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("quote service returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote request failed")
		log.Error().Stack().Err(err).Int("StatusCode", resp.StatusCode).Msg("quote request failed")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not read quote response")
		return nil, err
	}

	var quotes []cryptoQuoteJSON
	if err := json.Unmarshal(body, &quotes); err != nil {
		log.Error().Stack().Err(err).Msg("could not parse quote response")
		return nil, err
	}

	prices := make([]CryptoPrice, 0, len(quotes))
	for _, q := range quotes {
		ts, err := time.Parse(time.RFC3339, q.Timestamp)
		if err != nil {
			log.Warn().Str("Symbol", q.Symbol).Str("Timestamp", q.Timestamp).Msg("bad quote timestamp; using now")
			ts = time.Now()
		}
		prices = append(prices, CryptoPrice{
			Symbol:    q.Symbol,
			Price:     q.Price,
			Volume24h: q.Volume24h,
			Timestamp: ts,
		})
	}

	return prices, nil
}
