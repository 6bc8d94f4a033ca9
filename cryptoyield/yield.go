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

// Package cryptoyield measures growth in crypto-per-share over a window and
// attributes it to funding sources. Crypto yield is the core "was this raise
// accretive" metric for treasury companies.
package cryptoyield

import (
	"time"

	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// analysis windows
const (
	WindowQuarterly = "QUARTERLY"
	WindowYearly    = "YEARLY"
)

// AssetYield is crypto-per-share growth for one asset.
type AssetYield struct {
	Asset string `json:"asset"`

	CurrentAmount   float64 `json:"currentAmount"`
	PriorAmount     float64 `json:"priorAmount"`
	CurrentPerShare float64 `json:"currentPerShare"`
	PriorPerShare   float64 `json:"priorPerShare"`

	// YieldPercent is growth over the window; Annualized and Quarterly are
	// linear conversions (x4 / /4), not compounded.
	YieldPercent      float64 `json:"yieldPercent"`
	AnnualizedPercent float64 `json:"annualizedPercent"`
	QuarterlyPercent  float64 `json:"quarterlyPercent"`
}

// FundingEvent is one in-window purchase with its estimated share issuance.
type FundingEvent struct {
	Date         time.Time `json:"date"`
	Asset        string    `json:"asset"`
	Cost         float64   `json:"cost"`
	Method       string    `json:"method"`
	SharesIssued float64   `json:"sharesIssued"`

	// Accretive is true when crypto-per-share after the purchase exceeds the
	// pre-window baseline.
	Accretive bool `json:"accretive"`
}

// FundingBucket aggregates events by funding method.
type FundingBucket struct {
	Method         string  `json:"method"`
	TotalCost      float64 `json:"totalCost"`
	SharesIssued   float64 `json:"sharesIssued"`
	EventCount     int     `json:"eventCount"`
	AccretiveCount int     `json:"accretiveCount"`
	DilutiveCount  int     `json:"dilutiveCount"`
}

// Report is the complete yield picture for one company and window.
type Report struct {
	Ticker string `json:"ticker"`
	Window string `json:"window"`

	CurrentShares float64 `json:"currentShares"`
	PriorShares   float64 `json:"priorShares"`

	Assets []AssetYield `json:"assets"`

	BlendedYieldPercent      float64 `json:"blendedYieldPercent"`
	BlendedAnnualizedPercent float64 `json:"blendedAnnualizedPercent"`

	Events  []FundingEvent  `json:"events,omitempty"`
	Funding []FundingBucket `json:"funding,omitempty"`
}

// windowStart returns the beginning of the analysis window.
func windowStart(window string, asOf time.Time) time.Time {
	if window == WindowYearly {
		return asOf.AddDate(-1, 0, 0)
	}
	return asOf.AddDate(0, -3, 0)
}

// annualize converts a window yield to annual and quarterly terms linearly.
func annualize(window string, yield float64) (annual float64, quarterly float64) {
	if window == WindowYearly {
		return yield, yield / 4
	}
	return yield * 4, yield
}

// Compute derives per-asset and blended crypto yield over the window ending at
// asOf. weights are current treasury value shares by asset and drive the
// blended figure; a nil map yields equal weighting.
//
// Prior share count is reconstructed by subtracting the estimated shares
// issued for in-window purchases from the current assumed-diluted count. A
// zero prior amount or share count yields 0%, never NaN.
func Compute(company *data.Company, res *capstructure.Resolution, window string, weights map[string]float64, asOf time.Time, pol *policy.YieldPolicy) *Report {
	report := &Report{
		Ticker:        company.Ticker,
		Window:        window,
		CurrentShares: res.AssumedDilutedShares,
	}

	start := windowStart(window, asOf)

	// First pass: estimate shares issued for every in-window purchase so the
	// prior share count can be reconstructed.
	var issued float64
	for _, holding := range company.Holdings {
		for _, trx := range holding.Transactions {
			if trx.Kind != data.PurchaseTransaction || trx.Date.Before(start) || trx.Date.After(asOf) {
				continue
			}
			issued += sharesForPurchase(trx, pol)
		}
	}
	report.PriorShares = res.AssumedDilutedShares - issued
	if report.PriorShares < 0 {
		report.PriorShares = 0
	}

	// Per-asset yields.
	for _, holding := range company.Holdings {
		ay := AssetYield{
			Asset:         holding.Asset,
			CurrentAmount: holding.Amount,
			PriorAmount:   priorAmount(holding, start, asOf),
		}

		if res.AssumedDilutedShares > 0 {
			ay.CurrentPerShare = ay.CurrentAmount / res.AssumedDilutedShares
		}
		if report.PriorShares > 0 {
			ay.PriorPerShare = ay.PriorAmount / report.PriorShares
		}
		if ay.PriorPerShare > 0 {
			ay.YieldPercent = (ay.CurrentPerShare - ay.PriorPerShare) / ay.PriorPerShare * 100
		}
		ay.AnnualizedPercent, ay.QuarterlyPercent = annualize(window, ay.YieldPercent)

		report.Assets = append(report.Assets, ay)
	}

	// Blended yield: value-weighted when weights are provided.
	if len(report.Assets) > 0 {
		var totalWeight float64
		for _, ay := range report.Assets {
			w, ok := weights[ay.Asset]
			if !ok {
				w = 1.0 / float64(len(report.Assets))
			}
			report.BlendedYieldPercent += ay.YieldPercent * w
			totalWeight += w
		}
		if totalWeight > 0 {
			report.BlendedYieldPercent /= totalWeight
		}
		report.BlendedAnnualizedPercent, _ = annualize(window, report.BlendedYieldPercent)
	}

	report.Events, report.Funding = attributeFunding(company, res, report.PriorShares, start, asOf, pol)

	return report
}

// priorAmount rolls the holding back to the window start by reversing
// in-window purchases and sales. Stake/unstake moves do not change the amount
// held.
func priorAmount(holding data.TreasuryHolding, start time.Time, asOf time.Time) float64 {
	amount := holding.Amount
	for _, trx := range holding.Transactions {
		if trx.Date.Before(start) || trx.Date.After(asOf) {
			continue
		}
		switch trx.Kind {
		case data.PurchaseTransaction:
			amount -= trx.Amount
		case data.SaleTransaction:
			amount += trx.Amount
		}
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// sharesForPurchase estimates shares issued to fund one purchase. Equity
// raises issue cost/pricePerShare; convertible raises are discounted by the
// assumed conversion premium. Cash and straight-debt purchases issue nothing.
func sharesForPurchase(trx data.TreasuryTransaction, pol *policy.YieldPolicy) float64 {
	if trx.StockPrice <= 0 {
		return 0
	}
	switch trx.FundingMethod {
	case data.EquityFunding:
		return trx.TotalCost / trx.StockPrice
	case data.ConvertibleFunding:
		return trx.TotalCost / (trx.StockPrice * pol.ConvertiblePremium)
	}
	return 0
}

// attributeFunding classifies each in-window purchase as accretive or
// dilutive against the pre-window crypto-per-share baseline, folding events
// into per-method buckets with a single-pass accumulator.
func attributeFunding(company *data.Company, res *capstructure.Resolution, priorShares float64, start time.Time, asOf time.Time, pol *policy.YieldPolicy) ([]FundingEvent, []FundingBucket) {
	events := []FundingEvent{}
	buckets := map[string]*FundingBucket{}
	order := []string{}

	for _, holding := range company.Holdings {
		// baseline crypto-per-share before the window opened
		baseline := 0.0
		if priorShares > 0 {
			baseline = priorAmount(holding, start, asOf) / priorShares
		}

		runningAmount := priorAmount(holding, start, asOf)
		runningShares := priorShares

		for _, trx := range holding.Transactions {
			if trx.Date.Before(start) || trx.Date.After(asOf) {
				continue
			}
			switch trx.Kind {
			case data.PurchaseTransaction:
				shares := sharesForPurchase(trx, pol)
				runningAmount += trx.Amount
				runningShares += shares

				perShareAfter := 0.0
				if runningShares > 0 {
					perShareAfter = runningAmount / runningShares
				}

				method := trx.FundingMethod
				if method == "" {
					method = data.CashFunding
				}
				event := FundingEvent{
					Date:         trx.Date,
					Asset:        holding.Asset,
					Cost:         trx.TotalCost,
					Method:       method,
					SharesIssued: shares,
					Accretive:    perShareAfter > baseline,
				}
				events = append(events, event)

				bucket, ok := buckets[method]
				if !ok {
					bucket = &FundingBucket{Method: method}
					buckets[method] = bucket
					order = append(order, method)
				}
				bucket.TotalCost += event.Cost
				bucket.SharesIssued += event.SharesIssued
				bucket.EventCount++
				if event.Accretive {
					bucket.AccretiveCount++
				} else {
					bucket.DilutiveCount++
				}
			case data.SaleTransaction:
				runningAmount -= trx.Amount
			}
		}
	}

	result := make([]FundingBucket, 0, len(order))
	for _, method := range order {
		result = append(result, *buckets[method])
	}
	return events, result
}
