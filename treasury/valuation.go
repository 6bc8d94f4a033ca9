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

// Package treasury marks digital-asset holdings to market and tracks
// cost-basis lots.
package treasury

import (
	"github.com/rs/zerolog/log"
	"github.com/treasury-vault/tv-api/data"
)

// AssetValuation is one holding marked to the current price.
type AssetValuation struct {
	Asset                 string  `json:"asset"`
	Amount                float64 `json:"amount"`
	Price                 float64 `json:"price"`
	CurrentValue          float64 `json:"currentValue"`
	TotalCost             float64 `json:"totalCost"`
	UnrealizedGain        float64 `json:"unrealizedGain"`
	UnrealizedGainPercent float64 `json:"unrealizedGainPercent"`

	// Weight is this asset's share of total treasury value on [0, 1].
	Weight float64 `json:"weight"`
}

// Valuation is the marked treasury. Assets with no current quote are excluded
// from totals and listed in MissingPrices; they are never valued at zero.
type Valuation struct {
	TotalValue     float64          `json:"totalValue"`
	TotalCost      float64          `json:"totalCost"`
	UnrealizedGain float64          `json:"unrealizedGain"`
	Assets         []AssetValuation `json:"assets"`
	MissingPrices  []string         `json:"missingPrices,omitempty"`
}

// Value marks holdings to market. Zero-amount holdings are pruned. When every
// held asset is missing a quote the valuation fails with ErrPriceMissing.
func Value(holdings []data.TreasuryHolding, prices data.PriceMap) (*Valuation, error) {
	v := &Valuation{
		Assets: make([]AssetValuation, 0, len(holdings)),
	}

	held := 0
	for _, holding := range holdings {
		if holding.Amount <= 0 {
			continue
		}
		held++

		quote, ok := prices[holding.Asset]
		if !ok || quote.Price <= 0 {
			log.Warn().Str("Asset", holding.Asset).Msg("no quote for held asset; excluding from valuation")
			v.MissingPrices = append(v.MissingPrices, holding.Asset)
			continue
		}

		av := AssetValuation{
			Asset:          holding.Asset,
			Amount:         holding.Amount,
			Price:          quote.Price,
			CurrentValue:   holding.Amount * quote.Price,
			TotalCost:      holding.TotalCost,
			UnrealizedGain: holding.Amount*quote.Price - holding.TotalCost,
		}
		if av.TotalCost > 0 {
			av.UnrealizedGainPercent = av.UnrealizedGain / av.TotalCost * 100
		}

		v.TotalValue += av.CurrentValue
		v.TotalCost += av.TotalCost
		v.UnrealizedGain += av.UnrealizedGain
		v.Assets = append(v.Assets, av)
	}

	if held > 0 && len(v.Assets) == 0 {
		return nil, data.ErrPriceMissing
	}

	for ii := range v.Assets {
		if v.TotalValue > 0 {
			v.Assets[ii].Weight = v.Assets[ii].CurrentValue / v.TotalValue
		}
	}

	return v, nil
}
