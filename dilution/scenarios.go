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

package dilution

import (
	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// what-if scenario kinds
const (
	PriceShockScenario     = "PRICE_SHOCK"
	EquityRaiseScenario    = "EQUITY_RAISE"
	AcquisitionScenario    = "ACQUISITION"
	NewConvertibleScenario = "NEW_CONVERTIBLE"
)

// ProjectionScenario is one probability-weighted stock-price outcome.
type ProjectionScenario struct {
	Name        string  `json:"name"`
	StockPrice  float64 `json:"stockPrice"`
	Probability float64 `json:"probability"`
}

// Projection is the probability-weighted forward share count over a set of
// price outcomes.
type Projection struct {
	Scenarios []ProjectionOutcome `json:"scenarios"`

	ExpectedShares          float64 `json:"expectedShares"`
	ExpectedDilutionPercent float64 `json:"expectedDilutionPercent"`
}

// ProjectionOutcome is the share count under one price outcome.
type ProjectionOutcome struct {
	Name            string  `json:"name"`
	StockPrice      float64 `json:"stockPrice"`
	Probability     float64 `json:"probability"`
	Shares          float64 `json:"shares"`
	DilutionPercent float64 `json:"dilutionPercent"`
}

// WhatIf describes one arbitrary scenario. Fields are interpreted per Kind:
// PriceChangePercent for price shocks, Amount and IssuePrice for equity raises,
// Amount and SharesIssued for acquisitions, Amount and ConversionPrice for new
// convertibles.
type WhatIf struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	PriceChangePercent float64 `json:"priceChangePercent,omitempty"`
	Amount             float64 `json:"amount,omitempty"`
	IssuePrice         float64 `json:"issuePrice,omitempty"`
	SharesIssued       float64 `json:"sharesIssued,omitempty"`
	ConversionPrice    float64 `json:"conversionPrice,omitempty"`
}

// WhatIfResult is the outcome of one what-if scenario.
type WhatIfResult struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	ResultingShares          float64 `json:"resultingShares"`
	DilutionPercent          float64 `json:"dilutionPercent"`
	NavPerShareImpactPercent float64 `json:"navPerShareImpactPercent"`
	EpsImpactPercent         float64 `json:"epsImpactPercent"`
}

// expectedSharesAt is the probability-weighted share count at one stock price:
// basic plus compensation plus expected conversions plus in-the-money warrant
// exercises.
func expectedSharesAt(cs *data.CapitalStructure, res *capstructure.Resolution, stockPrice float64, pol *policy.DilutionPolicy) float64 {
	shares := res.BasicShares + res.CompensationShares

	for _, debt := range cs.ConvertibleDebts {
		if !debt.Outstanding || debt.ConversionPrice <= 0 {
			continue
		}
		moneyness := 0.0
		if stockPrice > 0 {
			moneyness = stockPrice / debt.ConversionPrice
		}
		shares += debt.Principal / debt.ConversionPrice * ConversionProbability(moneyness, pol)
	}

	for _, warrant := range cs.Warrants {
		if !warrant.Outstanding || warrant.Strike <= 0 {
			continue
		}
		if stockPrice >= warrant.Strike {
			shares += warrant.Count * warrant.SharesPerWarrant
		}
	}

	return shares
}

// Project computes the probability-weighted forward share count across the
// given price outcomes. Probabilities are normalized when they do not sum to 1.
func Project(company *data.Company, res *capstructure.Resolution, scenarios []ProjectionScenario, pol *policy.DilutionPolicy) *Projection {
	projection := &Projection{Scenarios: make([]ProjectionOutcome, 0, len(scenarios))}

	var totalProb float64
	for _, scenario := range scenarios {
		outcome := ProjectionOutcome{
			Name:        scenario.Name,
			StockPrice:  scenario.StockPrice,
			Probability: scenario.Probability,
			Shares:      expectedSharesAt(&company.CapitalStructure, res, scenario.StockPrice, pol),
		}
		if res.BasicShares > 0 {
			outcome.DilutionPercent = (outcome.Shares - res.BasicShares) / res.BasicShares * 100
		}
		projection.Scenarios = append(projection.Scenarios, outcome)

		projection.ExpectedShares += outcome.Shares * scenario.Probability
		totalProb += scenario.Probability
	}

	if totalProb > 0 {
		projection.ExpectedShares /= totalProb
	}
	if res.BasicShares > 0 {
		projection.ExpectedDilutionPercent = (projection.ExpectedShares - res.BasicShares) / res.BasicShares * 100
	}

	return projection
}

// RunWhatIf evaluates arbitrary scenarios against the current structure. nav
// is the company's current total NAV and stockPrice the current quote; both
// drive the per-share impact estimates.
func RunWhatIf(company *data.Company, res *capstructure.Resolution, scenarios []WhatIf, nav float64, stockPrice float64, pol *policy.DilutionPolicy) []WhatIfResult {
	results := make([]WhatIfResult, 0, len(scenarios))

	baseShares := res.AssumedDilutedShares
	baseNavPerShare := 0.0
	if baseShares > 0 {
		baseNavPerShare = nav / baseShares
	}

	for _, scenario := range scenarios {
		result := WhatIfResult{Name: scenario.Name, Kind: scenario.Kind}
		newShares := baseShares
		newNav := nav

		switch scenario.Kind {
		case PriceShockScenario:
			shocked := stockPrice * (1 + scenario.PriceChangePercent/100)
			newShares = expectedSharesAt(&company.CapitalStructure, res, shocked, pol)
		case EquityRaiseScenario:
			if scenario.IssuePrice > 0 {
				newShares += scenario.Amount / scenario.IssuePrice
			}
			newNav += scenario.Amount
		case AcquisitionScenario:
			newShares += scenario.SharesIssued
			newNav += scenario.Amount
		case NewConvertibleScenario:
			if scenario.ConversionPrice > 0 {
				moneyness := 0.0
				if stockPrice > 0 {
					moneyness = stockPrice / scenario.ConversionPrice
				}
				newShares += scenario.Amount / scenario.ConversionPrice * ConversionProbability(moneyness, pol)
			}
			newNav += scenario.Amount
		}

		result.ResultingShares = newShares
		if res.BasicShares > 0 {
			result.DilutionPercent = (newShares - res.BasicShares) / res.BasicShares * 100
		}
		if baseNavPerShare > 0 && newShares > 0 {
			result.NavPerShareImpactPercent = (newNav/newShares - baseNavPerShare) / baseNavPerShare * 100
		}
		if baseShares > 0 && newShares > 0 {
			// earnings are unchanged in every scenario; EPS moves inversely
			// with the share count
			result.EpsImpactPercent = (baseShares/newShares - 1) * 100
		}

		results = append(results, result)
	}

	return results
}
