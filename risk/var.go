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
	"sort"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// stress severity bands over NAV impact percent
const (
	SeverityMild     = "MILD"
	SeverityModerate = "MODERATE"
	SeveritySevere   = "SEVERE"
	SeverityCritical = "CRITICAL"
)

// HorizonVar is VaR and CVaR for one horizon, loss-negative: VaR99 <= VaR95
// <= 0.
type HorizonVar struct {
	HorizonDays int `json:"horizonDays"`

	Var95Percent  float64 `json:"var95Percent"`
	Var99Percent  float64 `json:"var99Percent"`
	CVar95Percent float64 `json:"cvar95Percent"`
	CVar99Percent float64 `json:"cvar99Percent"`

	Var95Value float64 `json:"var95Value"`
	Var99Value float64 `json:"var99Value"`
}

// StressResult is the deterministic impact of one named scenario.
type StressResult struct {
	Name        string  `json:"name"`
	Decline     float64 `json:"decline"`
	Probability float64 `json:"probability"`

	TreasuryLoss     float64 `json:"treasuryLoss"`
	TreasuryAfter    float64 `json:"treasuryAfter"`
	NavAfter         float64 `json:"navAfter"`
	NavImpactPercent float64 `json:"navImpactPercent"`
	RunwayAfter      float64 `json:"runwayAfterMonths"`
	SolvencyAfter    float64 `json:"solvencyAfter"`

	Severity string `json:"severity"`
}

// treasuryReturns extracts daily treasury value returns, oldest first.
func treasuryReturns(history []data.HistoricalDataPoint) []float64 {
	returns := make([]float64, 0, len(history))
	for idx := 1; idx < len(history); idx++ {
		prev := history[idx-1].TreasuryValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, history[idx].TreasuryValue/prev-1)
	}
	return returns
}

// analyzeVar runs a historical simulation over daily treasury returns and
// scales to each policy horizon by sqrt time.
func analyzeVar(history []data.HistoricalDataPoint, treasuryValue float64, pol *policy.RiskPolicy) []HorizonVar {
	returns := treasuryReturns(history)
	if len(returns) < pol.MinHistoryForStats {
		return nil
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	var95 := orderStatistic(sorted, 0.05)
	var99 := orderStatistic(sorted, 0.01)
	cvar95 := tailMean(sorted, var95)
	cvar99 := tailMean(sorted, var99)

	// losses only; a profitable tail is still zero risk
	if var95 > 0 {
		var95 = 0
	}
	if var99 > 0 {
		var99 = 0
	}

	// expected shortfall can never be better than its cutoff
	cvar95 = math.Min(cvar95, var95)
	cvar99 = math.Min(cvar99, var99)

	horizons := make([]HorizonVar, 0, len(pol.VarHorizonsDays))
	for _, days := range pol.VarHorizonsDays {
		scale := math.Sqrt(float64(days))
		h := HorizonVar{
			HorizonDays:   days,
			Var95Percent:  var95 * scale * 100,
			Var99Percent:  var99 * scale * 100,
			CVar95Percent: cvar95 * scale * 100,
			CVar99Percent: cvar99 * scale * 100,
		}
		h.Var95Value = treasuryValue * h.Var95Percent / 100
		h.Var99Value = treasuryValue * h.Var99Percent / 100
		horizons = append(horizons, h)
	}

	return horizons
}

// orderStatistic picks the q-quantile from an ascending sample by index.
func orderStatistic(sorted []float64, q float64) float64 {
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// tailMean averages the losses at or beyond the VaR cutoff.
func tailMean(sorted []float64, cutoff float64) float64 {
	var sum float64
	var n int
	for _, r := range sorted {
		if r > cutoff {
			break
		}
		sum += r
		n++
	}
	if n == 0 {
		return cutoff
	}
	return sum / float64(n)
}

// runStressTests applies each policy scenario deterministically.
func runStressTests(company *data.Company, valuation *treasury.Valuation, nav float64, pol *policy.RiskPolicy) []StressResult {
	results := make([]StressResult, 0, len(pol.StressScenarios))

	for _, scenario := range pol.StressScenarios {
		result := StressResult{
			Name:        scenario.Name,
			Decline:     scenario.Decline,
			Probability: scenario.Probability,

			TreasuryLoss:  valuation.TotalValue * scenario.Decline,
			TreasuryAfter: valuation.TotalValue * (1 - scenario.Decline),
		}
		result.NavAfter = nav - result.TreasuryLoss
		if nav > 0 {
			result.NavImpactPercent = -result.TreasuryLoss / nav * 100
		}
		if company.MonthlyBurn > 0 {
			result.RunwayAfter = (result.TreasuryAfter + company.Cash) / company.MonthlyBurn
		}
		if company.TotalDebt > 0 {
			result.SolvencyAfter = (company.ShareholderEquity - result.TreasuryLoss) / company.TotalDebt
		}

		switch impact := -result.NavImpactPercent; {
		case impact >= 50:
			result.Severity = SeverityCritical
		case impact >= 30:
			result.Severity = SeveritySevere
		case impact >= 15:
			result.Severity = SeverityModerate
		default:
			result.Severity = SeverityMild
		}

		results = append(results, result)
	}

	return results
}
