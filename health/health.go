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

// Package health grades overall financial health from five weighted
// sub-scores and derives an outlook.
package health

import (
	"fmt"

	"github.com/treasury-vault/tv-api/cryptoyield"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

// outlooks
const (
	OutlookPositive = "POSITIVE"
	OutlookStable   = "STABLE"
	OutlookNegative = "NEGATIVE"
)

// sub-score ratings at fixed cutpoints
const (
	RatingStrong   = "STRONG"
	RatingAdequate = "ADEQUATE"
	RatingWeak     = "WEAK"
)

// SubScore is one 0-100 component with its rating.
type SubScore struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Rating string  `json:"rating"`
}

// Report is the graded financial health picture.
type Report struct {
	Ticker string `json:"ticker"`

	Liquidity  SubScore `json:"liquidity"`
	Solvency   SubScore `json:"solvency"`
	Efficiency SubScore `json:"efficiency"`
	Growth     SubScore `json:"growth"`
	Treasury   SubScore `json:"treasury"`

	Composite float64 `json:"composite"`
	Grade     string  `json:"grade"`

	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`

	Outlook string `json:"outlook"`
}

// bucket walks descending (threshold, score) pairs and returns the score of
// the first threshold the value meets.
type bucket struct {
	min   float64
	score float64
}

func scoreBuckets(value float64, buckets []bucket, floor float64) float64 {
	for _, b := range buckets {
		if value >= b.min {
			return b.score
		}
	}
	return floor
}

func rate(score float64) string {
	switch {
	case score >= 75:
		return RatingStrong
	case score >= 50:
		return RatingAdequate
	default:
		return RatingWeak
	}
}

func subScore(name string, score float64) SubScore {
	return SubScore{Name: name, Score: score, Rating: rate(score)}
}

// Grade aggregates the engine outputs into a letter grade. yieldReport may be
// nil when no yield window could be computed.
func Grade(company *data.Company, valuation *treasury.Valuation, yieldReport *cryptoyield.Report, history []data.HistoricalDataPoint, pol *policy.HealthPolicy) *Report {
	report := &Report{Ticker: company.Ticker}

	report.Liquidity = subScore("liquidity", liquidityScore(company, valuation))
	report.Solvency = subScore("solvency", solvencyScore(company))
	report.Efficiency = subScore("efficiency", efficiencyScore(company))
	report.Growth = subScore("growth", growthScore(history))
	report.Treasury = subScore("treasury", treasuryScore(valuation, yieldReport))

	weights := pol.Weights
	total := weights.Liquidity + weights.Solvency + weights.Efficiency + weights.Growth + weights.Treasury
	if total > 0 {
		report.Composite = (report.Liquidity.Score*weights.Liquidity +
			report.Solvency.Score*weights.Solvency +
			report.Efficiency.Score*weights.Efficiency +
			report.Growth.Score*weights.Growth +
			report.Treasury.Score*weights.Treasury) / total
	}

	report.Grade = letterGrade(report.Composite, pol)
	report.Strengths, report.Weaknesses = flags(report)
	report.Outlook = outlook(report.Growth, report.Solvency)

	return report
}

func letterGrade(composite float64, pol *policy.HealthPolicy) string {
	for _, band := range pol.Grades {
		if composite >= band.Min {
			return band.Grade
		}
	}
	return pol.Grades[len(pol.Grades)-1].Grade
}

func liquidityScore(company *data.Company, valuation *treasury.Valuation) float64 {
	currentRatio := 0.0
	if company.CurrentLiabilities > 0 {
		currentRatio = company.CurrentAssets / company.CurrentLiabilities
	}
	ratioScore := scoreBuckets(currentRatio, []bucket{
		{3, 95}, {2, 85}, {1.5, 75}, {1, 60}, {0.5, 40},
	}, 20)

	runway := 0.0
	if company.MonthlyBurn > 0 {
		runway = (valuation.TotalValue + company.Cash) / company.MonthlyBurn
	}
	runwayScore := scoreBuckets(runway, []bucket{
		{36, 95}, {24, 85}, {12, 70}, {6, 50},
	}, 25)

	return (ratioScore + runwayScore) / 2
}

func solvencyScore(company *data.Company) float64 {
	leverageScore := 25.0
	if company.ShareholderEquity > 0 {
		debtToEquity := company.TotalDebt / company.ShareholderEquity
		// lower leverage scores higher
		switch {
		case debtToEquity <= 0.3:
			leverageScore = 95
		case debtToEquity <= 0.6:
			leverageScore = 85
		case debtToEquity <= 1.0:
			leverageScore = 70
		case debtToEquity <= 2.0:
			leverageScore = 50
		}
	}

	coverage := 0.0
	if company.InterestExpense > 0 {
		coverage = company.OperatingIncome / company.InterestExpense
	}
	coverageScore := scoreBuckets(coverage, []bucket{
		{10, 95}, {5, 80}, {2, 60}, {1, 40},
	}, 20)

	return (leverageScore + coverageScore) / 2
}

func efficiencyScore(company *data.Company) float64 {
	margin := 0.0
	if company.Revenue > 0 {
		margin = company.OperatingIncome / company.Revenue
	}
	return scoreBuckets(margin, []bucket{
		{0.30, 95}, {0.20, 85}, {0.10, 70}, {0, 50},
	}, 25)
}

func growthScore(history []data.HistoricalDataPoint) float64 {
	if len(history) < 2 {
		return 50
	}
	first := history[0].NavPerShare
	last := history[len(history)-1].NavPerShare
	if first <= 0 {
		return 50
	}
	growth := (last - first) / first
	return scoreBuckets(growth, []bucket{
		{0.50, 95}, {0.25, 85}, {0.10, 70}, {0, 55},
	}, 30)
}

func treasuryScore(valuation *treasury.Valuation, yieldReport *cryptoyield.Report) float64 {
	annualYield := 0.0
	if yieldReport != nil {
		annualYield = yieldReport.BlendedAnnualizedPercent
	}
	yieldScore := scoreBuckets(annualYield, []bucket{
		{20, 95}, {10, 85}, {5, 70}, {0, 55},
	}, 30)

	gainScore := 50.0
	if valuation.TotalCost > 0 {
		gainPercent := valuation.UnrealizedGain / valuation.TotalCost
		gainScore = scoreBuckets(gainPercent, []bucket{
			{0.50, 95}, {0.20, 80}, {0, 60},
		}, 35)
	}

	return (yieldScore + gainScore) / 2
}

// flags derives threshold-triggered strength and weakness callouts.
func flags(report *Report) (strengths []string, weaknesses []string) {
	for _, sub := range []SubScore{report.Liquidity, report.Solvency, report.Efficiency, report.Growth, report.Treasury} {
		switch {
		case sub.Score >= 80:
			strengths = append(strengths, fmt.Sprintf("strong %s profile", sub.Name))
		case sub.Score <= 50:
			weaknesses = append(weaknesses, fmt.Sprintf("weak %s profile", sub.Name))
		}
	}
	return strengths, weaknesses
}

// outlook is a small decision table over growth and solvency ratings.
func outlook(growth SubScore, solvency SubScore) string {
	switch {
	case growth.Rating == RatingStrong && solvency.Rating != RatingWeak:
		return OutlookPositive
	case growth.Rating == RatingWeak || solvency.Rating == RatingWeak:
		return OutlookNegative
	default:
		return OutlookStable
	}
}
