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

// Package nav computes net asset value per share under the three share-count
// conventions and projects NAV under price scenarios.
package nav

import (
	"time"

	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// PerShare is NAV under one share-count convention.
type PerShare struct {
	Shares         float64 `json:"shares"`
	NavPerShare    float64 `json:"navPerShare"`
	Premium        float64 `json:"premium"`
	PremiumPercent float64 `json:"premiumPercent"`
}

// Calculation is a complete NAV picture. The asset total is identical across
// conventions; only the divisor differs.
type Calculation struct {
	Ticker string    `json:"ticker"`
	Time   time.Time `json:"time"`

	TreasuryValue  float64 `json:"treasuryValue"`
	AdjustedEquity float64 `json:"adjustedEquity"`
	Nav            float64 `json:"nav"`
	StockPrice     float64 `json:"stockPrice"`

	Basic          PerShare `json:"basic"`
	Diluted        PerShare `json:"diluted"`
	AssumedDiluted PerShare `json:"assumedDiluted"`

	MissingPrices []string `json:"missingPrices,omitempty"`
}

// AdjustedEquity is book equity less estimated intangibles plus estimated
// deferred-tax assets, both fixed policy fractions of book equity.
func AdjustedEquity(company *data.Company, pol *policy.NavPolicy) float64 {
	return company.ShareholderEquity -
		company.ShareholderEquity*pol.IntangibleFraction +
		company.ShareholderEquity*pol.DeferredTaxFraction
}

// Calculate derives NAV from a marked treasury and resolved share counts.
func Calculate(company *data.Company, res *capstructure.Resolution, valuation *treasury.Valuation, stockPrice float64, pol *policy.NavPolicy, now time.Time) *Calculation {
	adjustedEquity := AdjustedEquity(company, pol)

	calc := &Calculation{
		Ticker:         company.Ticker,
		Time:           now,
		TreasuryValue:  valuation.TotalValue,
		AdjustedEquity: adjustedEquity,
		Nav:            valuation.TotalValue + adjustedEquity,
		StockPrice:     stockPrice,
		MissingPrices:  valuation.MissingPrices,
	}

	calc.Basic = perShare(calc.Nav, res.BasicShares, stockPrice)
	calc.Diluted = perShare(calc.Nav, res.DilutedShares, stockPrice)
	calc.AssumedDiluted = perShare(calc.Nav, res.AssumedDilutedShares, stockPrice)

	return calc
}

func perShare(nav float64, shares float64, stockPrice float64) PerShare {
	ps := PerShare{Shares: shares}
	if shares <= 0 {
		return ps
	}
	ps.NavPerShare = nav / shares
	ps.Premium = stockPrice - ps.NavPerShare
	if ps.NavPerShare != 0 {
		ps.PremiumPercent = ps.Premium / ps.NavPerShare * 100
	}
	return ps
}

// TimeSeriesPoint converts a calculation to the persisted NAV record.
func (calc *Calculation) TimeSeriesPoint() data.NavTimeSeriesPoint {
	return data.NavTimeSeriesPoint{
		Ticker:                    calc.Ticker,
		Time:                      calc.Time,
		Nav:                       calc.Nav,
		NavPerShareBasic:          calc.Basic.NavPerShare,
		NavPerShareDiluted:        calc.Diluted.NavPerShare,
		NavPerShareAssumedDiluted: calc.AssumedDiluted.NavPerShare,
		StockPrice:                calc.StockPrice,
		PremiumPercent:            calc.AssumedDiluted.PremiumPercent,
	}
}
