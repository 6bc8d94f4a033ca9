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

package health_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/cryptoyield"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/health"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

func growthHistory(startNav float64, endNav float64) []data.HistoricalDataPoint {
	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []data.HistoricalDataPoint{
		{Date: begin, NavPerShare: startNav, StockPrice: 10, TreasuryValue: 1},
		{Date: begin.AddDate(0, 6, 0), NavPerShare: endNav, StockPrice: 12, TreasuryValue: 1},
	}
}

var _ = Describe("Health", func() {
	var (
		company     *data.Company
		valuation   *treasury.Valuation
		yieldReport *cryptoyield.Report
		pol         *policy.Policy
	)

	BeforeEach(func() {
		pol = policy.Default()
		company = &data.Company{
			Ticker:             "TSV",
			ShareholderEquity:  1_000_000_000,
			TotalDebt:          250_000_000,
			Cash:               100_000_000,
			CurrentAssets:      350_000_000,
			CurrentLiabilities: 100_000_000,
			Revenue:            200_000_000,
			OperatingIncome:    50_000_000,
			InterestExpense:    5_000_000,
			MonthlyBurn:        10_000_000,
		}
		var err error
		valuation, err = treasury.Value([]data.TreasuryHolding{
			{Asset: "BTC", Amount: 10_000, TotalCost: 300_000_000},
		}, data.BuildPriceMap([]data.CryptoPrice{
			{Symbol: "BTC", Price: 60_000},
		}))
		Expect(err).To(BeNil())
		yieldReport = &cryptoyield.Report{BlendedAnnualizedPercent: 25}
	})

	Describe("when grading a healthy company", func() {
		It("awards strong sub-scores", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 14), &pol.Health)

			// current ratio 3.5 and 70 months of runway
			Expect(report.Liquidity.Score).Should(BeNumerically("~", 95, 1e-9))
			Expect(report.Liquidity.Rating).To(Equal(health.RatingStrong))

			// leverage 0.25 and coverage 10x
			Expect(report.Solvency.Score).Should(BeNumerically("~", 95, 1e-9))

			// 25% operating margin
			Expect(report.Efficiency.Score).Should(BeNumerically("~", 85, 1e-9))
		})

		It("maps the composite to a letter grade", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 14), &pol.Health)
			Expect(report.Composite).Should(BeNumerically(">=", 85))
			Expect(report.Grade).Should(BeElementOf("A+", "A", "A-", "B+"))
		})

		It("derives a positive outlook from strong growth and solvency", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 14), &pol.Health)
			Expect(report.Growth.Rating).To(Equal(health.RatingStrong))
			Expect(report.Outlook).To(Equal(health.OutlookPositive))
		})

		It("lists strengths for high sub-scores", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 14), &pol.Health)
			Expect(report.Strengths).To(ContainElement("strong liquidity profile"))
			Expect(report.Weaknesses).To(BeEmpty())
		})
	})

	Describe("when grading a distressed company", func() {
		BeforeEach(func() {
			company.TotalDebt = 3_000_000_000
			company.CurrentAssets = 40_000_000
			company.OperatingIncome = -20_000_000
			company.InterestExpense = 100_000_000
			company.MonthlyBurn = 100_000_000
			yieldReport = &cryptoyield.Report{BlendedAnnualizedPercent: -5}
		})

		It("fails the composite and flags weaknesses", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 8), &pol.Health)
			Expect(report.Composite).Should(BeNumerically("<", 50))
			Expect(report.Grade).To(Equal("F"))
			Expect(report.Weaknesses).ShouldNot(BeEmpty())
		})

		It("derives a negative outlook from weak growth", func() {
			report := health.Grade(company, valuation, yieldReport, growthHistory(10, 8), &pol.Health)
			Expect(report.Growth.Rating).To(Equal(health.RatingWeak))
			Expect(report.Outlook).To(Equal(health.OutlookNegative))
		})
	})

	Describe("when engine inputs are missing", func() {
		It("tolerates a nil yield report", func() {
			report := health.Grade(company, valuation, nil, growthHistory(10, 11), &pol.Health)
			Expect(report.Treasury.Score).Should(BeNumerically(">", 0))
		})

		It("scores growth neutrally without history", func() {
			report := health.Grade(company, valuation, yieldReport, nil, &pol.Health)
			Expect(report.Growth.Score).Should(BeNumerically("~", 50, 1e-9))
		})
	})
})
