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

package risk

import (
	"math"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// LiquidityRisk covers balance-sheet liquidity with the treasury treated as a
// liquid asset.
type LiquidityRisk struct {
	CurrentRatio float64 `json:"currentRatio"`
	QuickRatio   float64 `json:"quickRatio"`
	CashRatio    float64 `json:"cashRatio"`

	// RunwayMonths is treasury plus cash over monthly burn.
	RunwayMonths float64 `json:"runwayMonths"`

	// LiquidationDays estimates full-treasury liquidation time at the policy's
	// max daily volume participation; the slowest asset dominates.
	LiquidationDays float64 `json:"liquidationDays"`
}

// CreditRisk covers leverage, coverage, and a modified Altman Z-score.
type CreditRisk struct {
	DebtToEquity     float64 `json:"debtToEquity"`
	DebtToTreasury   float64 `json:"debtToTreasury"`
	InterestCoverage float64 `json:"interestCoverage"`

	ZScore             float64 `json:"zScore"`
	Rating             string  `json:"rating"`
	DefaultProbability float64 `json:"defaultProbability"`
}

// OperationalRisk blends governance heuristics into a 0-100 score.
type OperationalRisk struct {
	BusinessModel        float64 `json:"businessModel"`
	RevenueConcentration float64 `json:"revenueConcentration"`
	KeyPerson            float64 `json:"keyPerson"`
	Regulatory           float64 `json:"regulatory"`
	Cybersecurity        float64 `json:"cybersecurity"`

	Score float64 `json:"score"`
}

func analyzeLiquidity(company *data.Company, valuation *treasury.Valuation, prices data.PriceMap, pol *policy.RiskPolicy) LiquidityRisk {
	liq := LiquidityRisk{}

	if company.CurrentLiabilities > 0 {
		liq.CurrentRatio = company.CurrentAssets / company.CurrentLiabilities
		liq.QuickRatio = (company.CurrentAssets - company.Inventory) / company.CurrentLiabilities
		liq.CashRatio = company.Cash / company.CurrentLiabilities
	}
	if company.MonthlyBurn > 0 {
		liq.RunwayMonths = (valuation.TotalValue + company.Cash) / company.MonthlyBurn
	}

	for _, asset := range valuation.Assets {
		quote, ok := prices[asset.Asset]
		if !ok || quote.Volume24h <= 0 {
			continue
		}
		days := asset.CurrentValue / (quote.Volume24h * pol.MaxDailyVolumeParticipation)
		if days > liq.LiquidationDays {
			liq.LiquidationDays = days
		}
	}

	return liq
}

func analyzeCredit(company *data.Company, valuation *treasury.Valuation, pol *policy.RiskPolicy) CreditRisk {
	credit := CreditRisk{}

	if company.ShareholderEquity > 0 {
		credit.DebtToEquity = company.TotalDebt / company.ShareholderEquity
	}
	if valuation.TotalValue > 0 {
		credit.DebtToTreasury = company.TotalDebt / valuation.TotalValue
	}
	if company.InterestExpense > 0 {
		credit.InterestCoverage = company.OperatingIncome / company.InterestExpense
	}

	credit.ZScore = altmanZ(company, valuation)
	credit.Rating = zRating(credit.ZScore, pol)

	// logistic transform: higher Z, lower default odds
	credit.DefaultProbability = 1 / (1 + math.Exp(credit.ZScore))

	return credit
}

// altmanZ is a modified five-ratio Z-score with the treasury folded into
// total assets.
func altmanZ(company *data.Company, valuation *treasury.Valuation) float64 {
	totalAssets := company.CurrentAssets + valuation.TotalValue
	if totalAssets <= 0 {
		return 0
	}

	workingCapital := company.CurrentAssets - company.CurrentLiabilities

	z := 1.2 * (workingCapital / totalAssets)
	z += 1.4 * (company.RetainedEarnings / totalAssets)
	z += 3.3 * (company.OperatingIncome / totalAssets)
	if company.TotalDebt > 0 {
		z += 0.6 * (company.MarketCap / company.TotalDebt)
	} else {
		// unlevered: grant the full leverage term
		z += 0.6 * 4
	}
	z += 1.0 * (company.Revenue / totalAssets)

	return z
}

func zRating(z float64, pol *policy.RiskPolicy) string {
	for _, band := range pol.ZScoreBands {
		if z >= band.Min {
			return band.Rating
		}
	}
	return pol.ZScoreBands[len(pol.ZScoreBands)-1].Rating
}

func analyzeOperational(company *data.Company, pol *policy.RiskPolicy) OperationalRisk {
	op := OperationalRisk{
		BusinessModel:        company.BusinessModelRisk,
		RevenueConcentration: company.RevenueConcentration,
		KeyPerson:            company.KeyPersonRisk,
		Regulatory:           company.RegulatoryExposure,
		Cybersecurity:        company.CybersecurityRisk,
	}

	blend := op.BusinessModel*pol.Operational.BusinessModel +
		op.RevenueConcentration*pol.Operational.RevenueConcentration +
		op.KeyPerson*pol.Operational.KeyPerson +
		op.Regulatory*pol.Operational.Regulatory +
		op.Cybersecurity*pol.Operational.Cybersecurity

	op.Score = blend * 100

	return op
}
