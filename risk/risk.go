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

// Package risk scores market, concentration, liquidity, credit, and
// operational risk for a treasury company. All analyses are pure functions of
// the company snapshot, price quotes, and historical series.
package risk

import (
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// concentration and composite bands
const (
	BandLow      = "LOW"
	BandMedium   = "MEDIUM"
	BandModerate = "MODERATE"
	BandHigh     = "HIGH"
	BandCritical = "CRITICAL"
)

// ConcentrationRisk is the Herfindahl view of the treasury.
type ConcentrationRisk struct {
	// Herfindahl is the sum of squared value shares; 1/n <= HHI <= 1 and
	// HHI = 1 only for a single-asset treasury.
	Herfindahl float64 `json:"herfindahl"`
	Band       string  `json:"band"`

	LargestAsset  string  `json:"largestAsset"`
	LargestWeight float64 `json:"largestWeight"`
}

// Scores are the 0-100 component scores feeding the composite; higher is
// riskier.
type Scores struct {
	Market        float64 `json:"market"`
	Concentration float64 `json:"concentration"`
	Liquidity     float64 `json:"liquidity"`
	Credit        float64 `json:"credit"`
	Operational   float64 `json:"operational"`

	Composite float64 `json:"composite"`
	Band      string  `json:"band"`
}

// Report is the complete risk scorecard for one company.
type Report struct {
	Ticker string `json:"ticker"`

	Market        MarketRisk        `json:"market"`
	Concentration ConcentrationRisk `json:"concentration"`
	Liquidity     LiquidityRisk     `json:"liquidity"`
	Credit        CreditRisk        `json:"credit"`
	Operational   OperationalRisk   `json:"operational"`

	CorrelationRegime CorrelationRegime `json:"correlationRegime"`
	Var               []HorizonVar      `json:"var,omitempty"`
	StressTests       []StressResult    `json:"stressTests"`

	Scores Scores `json:"scores"`
}

// Analyze builds the full risk scorecard. nav is the company's current total
// NAV, used by the stress tests.
func Analyze(company *data.Company, valuation *treasury.Valuation, history []data.HistoricalDataPoint, prices data.PriceMap, nav float64, pol *policy.RiskPolicy) *Report {
	report := &Report{Ticker: company.Ticker}

	report.Concentration = analyzeConcentration(valuation, pol)
	report.Market = analyzeMarket(history, report.Concentration.LargestAsset, pol)
	report.Liquidity = analyzeLiquidity(company, valuation, prices, pol)
	report.Credit = analyzeCredit(company, valuation, pol)
	report.Operational = analyzeOperational(company, pol)
	report.CorrelationRegime = analyzeCorrelation(history, pol)
	report.Var = analyzeVar(history, valuation.TotalValue, pol)
	report.StressTests = runStressTests(company, valuation, nav, pol)

	report.Scores = compositeScores(report, pol)

	return report
}

func analyzeConcentration(valuation *treasury.Valuation, pol *policy.RiskPolicy) ConcentrationRisk {
	conc := ConcentrationRisk{Band: BandLow}

	for _, asset := range valuation.Assets {
		conc.Herfindahl += asset.Weight * asset.Weight
		if asset.Weight > conc.LargestWeight {
			conc.LargestWeight = asset.Weight
			conc.LargestAsset = asset.Asset
		}
	}

	switch {
	case conc.Herfindahl >= pol.HhiCritical:
		conc.Band = BandCritical
	case conc.Herfindahl >= pol.HhiHigh:
		conc.Band = BandHigh
	case conc.Herfindahl >= pol.HhiMedium:
		conc.Band = BandMedium
	default:
		conc.Band = BandLow
	}

	return conc
}

// compositeScores maps each component to 0-100 and blends them with the
// policy weights. The composite is banded at 25/50/75.
func compositeScores(report *Report, pol *policy.RiskPolicy) Scores {
	scores := Scores{
		Concentration: clampScore(report.Concentration.Herfindahl * 100),
		Credit:        clampScore(report.Credit.DefaultProbability * 100),
		Operational:   clampScore(report.Operational.Score),
	}

	// volatility and drawdown both feed the market score
	volScore := clampScore(report.Market.AnnualizedVolatility * 100)
	ddScore := clampScore(-report.Market.MaxDrawdownPercent)
	scores.Market = clampScore(0.6*volScore + 0.4*ddScore)

	// long runway pulls liquidity risk down; a current ratio below 1 adds a
	// fixed penalty
	liquidityScore := 100 - report.Liquidity.RunwayMonths*2.5
	if report.Liquidity.CurrentRatio > 0 && report.Liquidity.CurrentRatio < 1 {
		liquidityScore += 20
	}
	scores.Liquidity = clampScore(liquidityScore)

	weights := pol.Weights
	total := weights.Market + weights.Concentration + weights.Liquidity + weights.Credit + weights.Operational
	if total > 0 {
		scores.Composite = (scores.Market*weights.Market +
			scores.Concentration*weights.Concentration +
			scores.Liquidity*weights.Liquidity +
			scores.Credit*weights.Credit +
			scores.Operational*weights.Operational) / total
	}

	switch {
	case scores.Composite >= 75:
		scores.Band = BandCritical
	case scores.Composite >= 50:
		scores.Band = BandHigh
	case scores.Composite >= 25:
		scores.Band = BandModerate
	default:
		scores.Band = BandLow
	}

	return scores
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
