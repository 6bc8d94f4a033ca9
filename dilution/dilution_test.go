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

package dilution_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/capstructure"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/dilution"
	"github.com/treasury-vault/tv-api/policy"
)

var _ = Describe("Dilution", func() {
	var (
		company *data.Company
		res     *capstructure.Resolution
		pol     *policy.Policy
	)

	BeforeEach(func() {
		pol = policy.Default()
		company = &data.Company{
			Ticker: "TSV",
			CapitalStructure: data.CapitalStructure{
				BasicShares:       100_000_000,
				DilutedShares:     110_000_000,
				Options:           5_000_000,
				RSUs:              3_000_000,
				PSUs:              2_000_000,
				AnnualEquityGrant: 4_000_000,
				ConvertibleDebts: []data.ConvertibleDebt{
					{
						Name:            "2028 Notes",
						Principal:       500_000_000,
						ConversionPrice: 25,
						Maturity:        time.Date(2028, 6, 15, 0, 0, 0, 0, time.UTC),
						Outstanding:     true,
					},
				},
				Warrants: []data.Warrant{
					{
						Name:             "Series A",
						Strike:           15,
						SharesPerWarrant: 1,
						Count:            10_000_000,
						Expiry:           time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
						Outstanding:      true,
					},
				},
			},
		}
		res = capstructure.Resolve(&company.CapitalStructure)
	})

	Describe("when building the waterfall", func() {
		It("ends at the resolver's assumed-diluted count", func() {
			steps := dilution.Waterfall(&company.CapitalStructure, res)
			Expect(steps).Should(HaveLen(6))
			Expect(steps[len(steps)-1].CumulativeShares).Should(BeNumerically("~", res.AssumedDilutedShares, 1))
		})

		It("keeps the fixed step order", func() {
			steps := dilution.Waterfall(&company.CapitalStructure, res)
			names := make([]string, 0, len(steps))
			for _, step := range steps {
				names = append(names, step.Name)
			}
			Expect(names).To(Equal([]string{"Basic", "Options", "RSUs", "PSUs", "Warrants", "Convertibles"}))
		})

		It("accumulates dilution percent monotonically", func() {
			steps := dilution.Waterfall(&company.CapitalStructure, res)
			// 100M -> 105M -> 108M -> 110M -> 120M -> 140M
			Expect(steps[1].CumulativeShares).Should(BeNumerically("~", 105_000_000, 1))
			Expect(steps[4].CumulativeShares).Should(BeNumerically("~", 120_000_000, 1))
			Expect(steps[5].DilutionPercent).Should(BeNumerically("~", 40.0, 1e-9))
		})
	})

	Describe("when analyzing convertibles", func() {
		It("computes moneyness against the conversion price", func() {
			convs := dilution.AnalyzeConvertibles(&company.CapitalStructure, res, 20, &pol.Dilution)
			Expect(convs).Should(HaveLen(1))
			Expect(convs[0].Moneyness).Should(BeNumerically("~", 0.8, 1e-9))
			Expect(convs[0].InTheMoney).To(BeFalse())
			Expect(convs[0].ConversionProbability).Should(BeNumerically("~", 0.35, 1e-9))
			Expect(convs[0].SharesIfConverted).Should(BeNumerically("~", 20_000_000, 1))
			Expect(convs[0].ExpectedShares).Should(BeNumerically("~", 7_000_000, 1))
		})

		It("reports a negative EPS impact on full conversion", func() {
			convs := dilution.AnalyzeConvertibles(&company.CapitalStructure, res, 20, &pol.Dilution)
			// -20M / (110M + 20M) * 100
			Expect(convs[0].EpsImpactPercent).Should(BeNumerically("~", -20.0/130.0*100, 1e-9))
		})

		It("produces a non-decreasing probability as the stock rises", func() {
			prev := 0.0
			for price := 5.0; price <= 50; price += 1 {
				prob := dilution.ConversionProbability(price/25.0, &pol.Dilution)
				Expect(prob).Should(BeNumerically(">=", prev))
				prev = prob
			}
		})

		It("steps through every probability band", func() {
			Expect(dilution.ConversionProbability(0.5, &pol.Dilution)).Should(BeNumerically("~", 0.05, 1e-9))
			Expect(dilution.ConversionProbability(0.9, &pol.Dilution)).Should(BeNumerically("~", 0.35, 1e-9))
			Expect(dilution.ConversionProbability(1.2, &pol.Dilution)).Should(BeNumerically("~", 0.75, 1e-9))
			Expect(dilution.ConversionProbability(1.6, &pol.Dilution)).Should(BeNumerically("~", 0.95, 1e-9))
		})
	})

	Describe("when analyzing warrants", func() {
		It("adds time value only in the money", func() {
			warrants := dilution.AnalyzeWarrants(&company.CapitalStructure, 20, &pol.Dilution)
			Expect(warrants).Should(HaveLen(1))
			Expect(warrants[0].InTheMoney).To(BeTrue())
			Expect(warrants[0].IntrinsicValue).Should(BeNumerically("~", 50_000_000, 1))
			Expect(warrants[0].TimeValue).Should(BeNumerically("~", 15_000_000, 1))
			Expect(warrants[0].ProceedsIfExercised).Should(BeNumerically("~", 150_000_000, 1))
		})

		It("carries no value out of the money", func() {
			warrants := dilution.AnalyzeWarrants(&company.CapitalStructure, 10, &pol.Dilution)
			Expect(warrants[0].InTheMoney).To(BeFalse())
			Expect(warrants[0].IntrinsicValue).To(BeZero())
			Expect(warrants[0].TimeValue).To(BeZero())
		})
	})

	Describe("when measuring compensation dilution", func() {
		It("computes burn rate and overhang over basic shares", func() {
			report := dilution.Analyze(company, res, 20, &pol.Dilution)
			Expect(report.Compensation.BurnRatePercent).Should(BeNumerically("~", 4.0, 1e-9))
			Expect(report.Compensation.OverhangPercent).Should(BeNumerically("~", 10.0, 1e-9))
		})
	})

	Describe("when building the full report", func() {
		It("weights expected shares by conversion odds and warrant moneyness", func() {
			report := dilution.Analyze(company, res, 20, &pol.Dilution)
			// basic 100M + comp 10M + conv 20M*0.35 + ITM warrants 10M
			Expect(report.ExpectedShares).Should(BeNumerically("~", 127_000_000, 1))
			Expect(report.ExpectedDilutionPercent).Should(BeNumerically("~", 27.0, 1e-9))
		})

		It("carries the policy's bear, base, and bull projection", func() {
			report := dilution.Analyze(company, res, 20, &pol.Dilution)
			Expect(report.Projection).ShouldNot(BeNil())
			Expect(report.Projection.Scenarios).Should(HaveLen(3))
			Expect(report.Projection.Scenarios[0].StockPrice).Should(BeNumerically("~", 14, 1e-9))
			Expect(report.Projection.Scenarios[2].StockPrice).Should(BeNumerically("~", 26, 1e-9))
			// conversion odds and warrant moneyness both rise with the price
			Expect(report.Projection.Scenarios[2].Shares).Should(BeNumerically(">", report.Projection.Scenarios[0].Shares))
		})
	})

	Describe("when projecting price outcomes", func() {
		It("weights the share count by outcome probability", func() {
			projection := dilution.Project(company, res, []dilution.ProjectionScenario{
				{Name: "Bear", StockPrice: 10, Probability: 0.5},
				{Name: "Bull", StockPrice: 30, Probability: 0.5},
			}, &pol.Dilution)

			Expect(projection.Scenarios[0].Shares).Should(BeNumerically("~", 111_000_000, 1))
			Expect(projection.Scenarios[1].Shares).Should(BeNumerically("~", 125_000_000, 1))
			Expect(projection.ExpectedShares).Should(BeNumerically("~", 118_000_000, 1))
		})
	})

	Describe("when running what-if scenarios", func() {
		It("models an equity raise as NAV accretive at a premium issue price", func() {
			results := dilution.RunWhatIf(company, res, []dilution.WhatIf{
				{Name: "ATM raise", Kind: dilution.EquityRaiseScenario, Amount: 100_000_000, IssuePrice: 20},
			}, 1_400_000_000, 20, &pol.Dilution)

			Expect(results).Should(HaveLen(1))
			Expect(results[0].ResultingShares).Should(BeNumerically("~", 145_000_000, 1))
			// nav/share moves from 10.00 to 1.5B/145M
			Expect(results[0].NavPerShareImpactPercent).Should(BeNumerically("~", (1_500_000_000.0/145_000_000.0/10.0-1)*100, 1e-9))
			Expect(results[0].EpsImpactPercent).Should(BeNumerically("~", (140.0/145.0-1)*100, 1e-9))
		})

		It("reprices conversion odds under a price shock", func() {
			results := dilution.RunWhatIf(company, res, []dilution.WhatIf{
				{Name: "Double", Kind: dilution.PriceShockScenario, PriceChangePercent: 100},
			}, 1_400_000_000, 20, &pol.Dilution)

			// at $40 the notes are deep in the money: 100M + 10M + 19M + 10M
			Expect(results[0].ResultingShares).Should(BeNumerically("~", 139_000_000, 1))
		})

		It("adds probability-weighted shares for a new convertible", func() {
			results := dilution.RunWhatIf(company, res, []dilution.WhatIf{
				{Name: "New notes", Kind: dilution.NewConvertibleScenario, Amount: 130_000_000, ConversionPrice: 26},
			}, 1_400_000_000, 20, &pol.Dilution)

			// moneyness 20/26 is out of the money: 5M potential shares * 0.05
			Expect(results[0].ResultingShares).Should(BeNumerically("~", 140_250_000, 1))
		})
	})
})
