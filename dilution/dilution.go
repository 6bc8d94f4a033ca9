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

// Package dilution analyzes current and projected share dilution: convertible
// conversion odds, warrant exercise, compensation burn, what-if scenarios, and
// a fixed-order waterfall.
package dilution

import (
	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// WaterfallStep is one additive stage of share-count growth.
type WaterfallStep struct {
	Name             string  `json:"name"`
	SharesAdded      float64 `json:"sharesAdded"`
	CumulativeShares float64 `json:"cumulativeShares"`
	DilutionPercent  float64 `json:"dilutionPercent"`
}

// Compensation covers equity-compensation dilution.
type Compensation struct {
	// BurnRatePercent is annual equity grants over basic shares.
	BurnRatePercent float64 `json:"burnRatePercent"`

	// OverhangPercent is outstanding equity comp over basic shares.
	OverhangPercent float64 `json:"overhangPercent"`

	OutstandingShares float64 `json:"outstandingShares"`
}

// Report is the complete dilution picture for one company.
type Report struct {
	Ticker string `json:"ticker"`

	Current *capstructure.Resolution `json:"current"`

	Convertibles []ConvertibleAnalysis `json:"convertibles,omitempty"`
	Warrants     []WarrantAnalysis     `json:"warrants,omitempty"`
	Compensation Compensation          `json:"compensation"`

	// ExpectedShares is the probability-weighted share count at the current
	// stock price: basic + compensation + expected conversions and exercises.
	ExpectedShares          float64 `json:"expectedShares"`
	ExpectedDilutionPercent float64 `json:"expectedDilutionPercent"`

	// Projection is the forward share count over the policy's bear, base, and
	// bull price outcomes.
	Projection *Projection `json:"projection"`

	// Waterfall decomposes growth from basic to assumed diluted in the fixed
	// order options, RSUs, PSUs, warrants, convertibles.
	Waterfall []WaterfallStep `json:"waterfall"`
}

// Analyze builds the full dilution report at the given stock price.
func Analyze(company *data.Company, res *capstructure.Resolution, stockPrice float64, pol *policy.DilutionPolicy) *Report {
	report := &Report{
		Ticker:       company.Ticker,
		Current:      res,
		Convertibles: AnalyzeConvertibles(&company.CapitalStructure, res, stockPrice, pol),
		Warrants:     AnalyzeWarrants(&company.CapitalStructure, stockPrice, pol),
		Compensation: analyzeCompensation(&company.CapitalStructure),
		Waterfall:    Waterfall(&company.CapitalStructure, res),
	}

	report.ExpectedShares = res.BasicShares + res.CompensationShares
	for _, conv := range report.Convertibles {
		report.ExpectedShares += conv.ExpectedShares
	}
	for _, warrant := range report.Warrants {
		if warrant.InTheMoney {
			report.ExpectedShares += warrant.Shares
		}
	}
	if res.BasicShares > 0 {
		report.ExpectedDilutionPercent = (report.ExpectedShares - res.BasicShares) / res.BasicShares * 100
	}

	scenarios := make([]ProjectionScenario, 0, len(pol.ProjectionOutcomes))
	for _, outcome := range pol.ProjectionOutcomes {
		scenarios = append(scenarios, ProjectionScenario{
			Name:        outcome.Name,
			StockPrice:  stockPrice * outcome.PriceFactor,
			Probability: outcome.Probability,
		})
	}
	report.Projection = Project(company, res, scenarios, pol)

	return report
}

func analyzeCompensation(cs *data.CapitalStructure) Compensation {
	comp := Compensation{
		OutstandingShares: cs.Options + cs.RSUs + cs.PSUs,
	}
	if cs.BasicShares > 0 {
		comp.BurnRatePercent = cs.AnnualEquityGrant / cs.BasicShares * 100
		comp.OverhangPercent = comp.OutstandingShares / cs.BasicShares * 100
	}
	return comp
}

// Waterfall decomposes share-count growth from basic to assumed diluted. The
// step order is a documented convention, not configurable.
func Waterfall(cs *data.CapitalStructure, res *capstructure.Resolution) []WaterfallStep {
	steps := make([]WaterfallStep, 0, 6)
	cumulative := res.BasicShares

	add := func(name string, shares float64) {
		cumulative += shares
		step := WaterfallStep{
			Name:             name,
			SharesAdded:      shares,
			CumulativeShares: cumulative,
		}
		if res.BasicShares > 0 {
			step.DilutionPercent = (cumulative - res.BasicShares) / res.BasicShares * 100
		}
		steps = append(steps, step)
	}

	add("Basic", 0)
	add("Options", cs.Options)
	add("RSUs", cs.RSUs)
	add("PSUs", cs.PSUs)
	add("Warrants", res.WarrantShares)
	add("Convertibles", res.ConvertibleShares)

	// when reported diluted exceeds the instrument sum the resolver floors
	// assumed diluted at diluted; carry that floor into the final step
	last := &steps[len(steps)-1]
	if last.CumulativeShares < res.AssumedDilutedShares {
		last.SharesAdded += res.AssumedDilutedShares - last.CumulativeShares
		last.CumulativeShares = res.AssumedDilutedShares
		if res.BasicShares > 0 {
			last.DilutionPercent = (last.CumulativeShares - res.BasicShares) / res.BasicShares * 100
		}
	}

	return steps
}
