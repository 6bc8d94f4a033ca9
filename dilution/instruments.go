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

// ConvertibleAnalysis is the conversion picture for one note issue.
type ConvertibleAnalysis struct {
	Name            string  `json:"name"`
	Principal       float64 `json:"principal"`
	ConversionPrice float64 `json:"conversionPrice"`

	// Moneyness is stock price over conversion price.
	Moneyness  float64 `json:"moneyness"`
	InTheMoney bool    `json:"inTheMoney"`

	ConversionProbability float64 `json:"conversionProbability"`
	SharesIfConverted     float64 `json:"sharesIfConverted"`
	ExpectedShares        float64 `json:"expectedShares"`

	// EpsImpactPercent is the EPS change if the note fully converts, always
	// negative or zero.
	EpsImpactPercent float64 `json:"epsImpactPercent"`
}

// WarrantAnalysis is the exercise picture for one warrant series.
type WarrantAnalysis struct {
	Name   string  `json:"name"`
	Strike float64 `json:"strike"`
	Shares float64 `json:"shares"`

	Moneyness  float64 `json:"moneyness"`
	InTheMoney bool    `json:"inTheMoney"`

	IntrinsicValue float64 `json:"intrinsicValue"`
	TimeValue      float64 `json:"timeValue"`
	TotalValue     float64 `json:"totalValue"`

	// ProceedsIfExercised is cash received by the company on full exercise.
	ProceedsIfExercised float64 `json:"proceedsIfExercised"`
}

// ConversionProbability maps moneyness to conversion probability with a step
// function. Monotonically non-decreasing in moneyness.
func ConversionProbability(moneyness float64, pol *policy.DilutionPolicy) float64 {
	switch {
	case moneyness >= pol.DeepItmMoneyness:
		return pol.DeepItmProbability
	case moneyness >= 1.0:
		return pol.ItmProbability
	case moneyness >= pol.NearMoneyness:
		return pol.NearProbability
	default:
		return pol.OtmProbability
	}
}

// AnalyzeConvertibles evaluates moneyness, conversion odds, and EPS impact for
// every outstanding note. Notes with a zero conversion price were already
// excluded by the resolver and are skipped here too.
func AnalyzeConvertibles(cs *data.CapitalStructure, res *capstructure.Resolution, stockPrice float64, pol *policy.DilutionPolicy) []ConvertibleAnalysis {
	out := make([]ConvertibleAnalysis, 0, len(cs.ConvertibleDebts))

	for _, debt := range cs.ConvertibleDebts {
		if !debt.Outstanding || debt.ConversionPrice <= 0 {
			continue
		}

		analysis := ConvertibleAnalysis{
			Name:              debt.Name,
			Principal:         debt.Principal,
			ConversionPrice:   debt.ConversionPrice,
			SharesIfConverted: debt.Principal / debt.ConversionPrice,
		}
		if stockPrice > 0 {
			analysis.Moneyness = stockPrice / debt.ConversionPrice
		}
		analysis.InTheMoney = analysis.Moneyness >= 1.0
		analysis.ConversionProbability = ConversionProbability(analysis.Moneyness, pol)
		analysis.ExpectedShares = analysis.SharesIfConverted * analysis.ConversionProbability

		base := res.DilutedShares
		if base > 0 {
			analysis.EpsImpactPercent = -analysis.SharesIfConverted / (base + analysis.SharesIfConverted) * 100
		}

		out = append(out, analysis)
	}

	return out
}

// AnalyzeWarrants builds a moneyness table for every outstanding series. A
// simplified time-value add-on applies only to in-the-money warrants.
func AnalyzeWarrants(cs *data.CapitalStructure, stockPrice float64, pol *policy.DilutionPolicy) []WarrantAnalysis {
	out := make([]WarrantAnalysis, 0, len(cs.Warrants))

	for _, warrant := range cs.Warrants {
		if !warrant.Outstanding {
			continue
		}

		analysis := WarrantAnalysis{
			Name:   warrant.Name,
			Strike: warrant.Strike,
			Shares: warrant.Count * warrant.SharesPerWarrant,
		}
		if warrant.Strike > 0 {
			analysis.Moneyness = stockPrice / warrant.Strike
		}
		analysis.InTheMoney = analysis.Moneyness >= 1.0

		if stockPrice > warrant.Strike {
			analysis.IntrinsicValue = (stockPrice - warrant.Strike) * analysis.Shares
			analysis.TimeValue = warrant.Strike * pol.WarrantTimeValueFraction * analysis.Shares
		}
		analysis.TotalValue = analysis.IntrinsicValue + analysis.TimeValue
		analysis.ProceedsIfExercised = warrant.Strike * analysis.Shares

		out = append(out, analysis)
	}

	return out
}
