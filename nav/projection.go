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

package nav

import (
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// PriceScenario is a named repricing of treasury assets. AssetReturns holds
// fractional returns per symbol; assets not listed use DefaultReturn.
type PriceScenario struct {
	Name          string             `json:"name"`
	AssetReturns  map[string]float64 `json:"assetReturns,omitempty"`
	DefaultReturn float64            `json:"defaultReturn"`
}

// Projection is the NAV outcome of one price scenario. The implied stock move
// applies a fixed leverage multiplier to the treasury's percentage change; an
// explicit approximation, not a market model.
type Projection struct {
	Name                  string  `json:"name"`
	TreasuryValue         float64 `json:"treasuryValue"`
	TreasuryChangePercent float64 `json:"treasuryChangePercent"`
	Nav                   float64 `json:"nav"`
	NavPerShare           float64 `json:"navPerShare"`
	ImpliedStockMove      float64 `json:"impliedStockMovePercent"`
	ImpliedStockPrice     float64 `json:"impliedStockPrice"`
}

// Project recomputes NAV per share (assumed-diluted convention) under each
// scenario.
func Project(calc *Calculation, valuation *treasury.Valuation, scenarios []PriceScenario, pol *policy.NavPolicy) []Projection {
	projections := make([]Projection, 0, len(scenarios))

	for _, scenario := range scenarios {
		var newTreasury float64
		for _, asset := range valuation.Assets {
			ret, ok := scenario.AssetReturns[asset.Asset]
			if !ok {
				ret = scenario.DefaultReturn
			}
			newTreasury += asset.CurrentValue * (1 + ret)
		}

		proj := Projection{
			Name:          scenario.Name,
			TreasuryValue: newTreasury,
			Nav:           newTreasury + calc.AdjustedEquity,
		}
		if calc.TreasuryValue > 0 {
			proj.TreasuryChangePercent = (newTreasury - calc.TreasuryValue) / calc.TreasuryValue * 100
		}
		if calc.AssumedDiluted.Shares > 0 {
			proj.NavPerShare = proj.Nav / calc.AssumedDiluted.Shares
		}
		proj.ImpliedStockMove = proj.TreasuryChangePercent * pol.LeverageMultiplier
		proj.ImpliedStockPrice = calc.StockPrice * (1 + proj.ImpliedStockMove/100)

		projections = append(projections, proj)
	}

	return projections
}
