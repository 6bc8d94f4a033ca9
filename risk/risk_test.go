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

package risk_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/risk"
	"github.com/treasury-vault/tv-api/treasury"
)

// buildHistory generates a deterministic price path: a -5% day every tenth
// observation, +1% otherwise, mirrored in treasury value and asset prices.
func buildHistory(days int) []data.HistoricalDataPoint {
	history := make([]data.HistoricalDataPoint, 0, days)
	stock, tval, btc, eth := 10.0, 600_000_000.0, 60_000.0, 3_000.0
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for day := 0; day < days; day++ {
		ret := 0.01
		if day%10 == 9 {
			ret = -0.05
		}
		stock *= 1 + ret
		tval *= 1 + ret
		btc *= 1 + ret
		eth *= 1 + ret

		history = append(history, data.HistoricalDataPoint{
			Date:          start.AddDate(0, 0, day),
			StockPrice:    stock,
			TreasuryValue: tval,
			CryptoPrices:  map[string]float64{"BTC": btc, "ETH": eth},
		})
	}

	return history
}

var _ = Describe("Risk", func() {
	var (
		company   *data.Company
		valuation *treasury.Valuation
		prices    data.PriceMap
		history   []data.HistoricalDataPoint
		pol       *policy.Policy
	)

	BeforeEach(func() {
		pol = policy.Default()
		company = &data.Company{
			Ticker:             "TSV",
			MarketCap:          2_000_000_000,
			ShareholderEquity:  1_000_000_000,
			TotalDebt:          500_000_000,
			Cash:               100_000_000,
			CurrentAssets:      300_000_000,
			CurrentLiabilities: 100_000_000,
			Inventory:          20_000_000,
			Revenue:            200_000_000,
			OperatingIncome:    50_000_000,
			RetainedEarnings:   100_000_000,
			InterestExpense:    10_000_000,
			MonthlyBurn:        10_000_000,

			BusinessModelRisk:    0.4,
			RevenueConcentration: 0.6,
			KeyPersonRisk:        0.5,
			RegulatoryExposure:   0.7,
			CybersecurityRisk:    0.3,
		}
		prices = data.BuildPriceMap([]data.CryptoPrice{
			{Symbol: "BTC", Price: 60_000, Volume24h: 20_000_000_000},
			{Symbol: "ETH", Price: 3_000, Volume24h: 8_000_000_000},
		})
		var err error
		valuation, err = treasury.Value([]data.TreasuryHolding{
			{Asset: "BTC", Amount: 8_000},
			{Asset: "ETH", Amount: 40_000},
		}, prices)
		Expect(err).To(BeNil())
		history = buildHistory(60)
	})

	Describe("when measuring concentration", func() {
		It("bounds the Herfindahl index between 1/n and 1", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Concentration.Herfindahl).Should(BeNumerically(">=", 0.5))
			Expect(report.Concentration.Herfindahl).Should(BeNumerically("<=", 1.0))
			Expect(report.Concentration.LargestAsset).To(Equal("BTC"))
		})

		It("scores a single-asset treasury at exactly one", func() {
			single, err := treasury.Value([]data.TreasuryHolding{
				{Asset: "BTC", Amount: 10_000},
			}, prices)
			Expect(err).To(BeNil())

			report := risk.Analyze(company, single, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Concentration.Herfindahl).Should(BeNumerically("~", 1.0, 1e-12))
			Expect(report.Concentration.Band).To(Equal(risk.BandCritical))
		})
	})

	Describe("when computing value at risk", func() {
		It("keeps the loss-negative ordering", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Var).ShouldNot(BeEmpty())
			for _, h := range report.Var {
				Expect(h.Var99Percent).Should(BeNumerically("<=", h.Var95Percent))
				Expect(h.Var95Percent).Should(BeNumerically("<=", 0))
				Expect(h.CVar95Percent).Should(BeNumerically("<=", h.Var95Percent))
			}
		})

		It("reports zero risk on an all-gains history", func() {
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			hist := make([]data.HistoricalDataPoint, 0, 40)
			stock, tval := 10.0, 600_000_000.0
			for day := 0; day < 40; day++ {
				stock *= 1.01
				tval *= 1.01
				hist = append(hist, data.HistoricalDataPoint{
					Date:       start.AddDate(0, 0, day),
					StockPrice: stock, TreasuryValue: tval,
				})
			}

			report := risk.Analyze(company, valuation, hist, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Var).ShouldNot(BeEmpty())
			for _, h := range report.Var {
				Expect(h.Var95Percent).Should(BeZero())
				Expect(h.Var99Percent).Should(BeZero())
				Expect(h.CVar95Percent).Should(BeNumerically("<=", h.Var95Percent))
				Expect(h.CVar99Percent).Should(BeNumerically("<=", h.Var99Percent))
			}
		})

		It("scales horizons by the square root of time", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			oneDay := report.Var[0]
			tenDay := report.Var[1]
			Expect(tenDay.Var95Percent).Should(BeNumerically("~", oneDay.Var95Percent*math.Sqrt(10), 1e-9))
		})

		It("returns nothing on a short history", func() {
			report := risk.Analyze(company, valuation, buildHistory(10), prices, 1_500_000_000, &pol.Risk)
			Expect(report.Var).Should(BeEmpty())
			Expect(report.Market.InsufficientHistory).To(BeTrue())
		})
	})

	Describe("when tracking drawdown", func() {
		It("finds the worst peak-to-trough range", func() {
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			path := []float64{10, 12, 15, 11, 9, 12, 13}
			hist := make([]data.HistoricalDataPoint, 0, len(path))
			for idx, price := range path {
				hist = append(hist, data.HistoricalDataPoint{
					Date:       start.AddDate(0, 0, idx),
					StockPrice: price, TreasuryValue: 1,
				})
			}

			report := risk.Analyze(company, valuation, hist, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Market.MaxDrawdownPercent).Should(BeNumerically("~", -40.0, 1e-9))
			Expect(report.Market.DrawdownPeakDate).To(Equal(start.AddDate(0, 0, 2)))
			Expect(report.Market.DrawdownTroughDate).To(Equal(start.AddDate(0, 0, 4)))
		})
	})

	Describe("when classifying the market regime", func() {
		It("flags a sustained sell-off as risk-off", func() {
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			hist := make([]data.HistoricalDataPoint, 0, 40)
			price := 20.0
			for day := 0; day < 40; day++ {
				ret := -0.01
				if day%2 == 0 {
					ret = -0.002
				}
				price *= 1 + ret
				hist = append(hist, data.HistoricalDataPoint{
					Date:       start.AddDate(0, 0, day),
					StockPrice: price, TreasuryValue: 1,
				})
			}

			report := risk.Analyze(company, valuation, hist, prices, 1_500_000_000, &pol.Risk)
			Expect(report.CorrelationRegime.Regime).To(Equal(risk.RegimeRiskOff))
		})
	})

	Describe("when correlating treasury assets", func() {
		It("finds identical return paths perfectly correlated", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.CorrelationRegime.Correlations).Should(HaveLen(1))
			pair := report.CorrelationRegime.Correlations[0]
			Expect(pair.AssetA).To(Equal("BTC"))
			Expect(pair.AssetB).To(Equal("ETH"))
			Expect(pair.Correlation).Should(BeNumerically("~", 1.0, 1e-9))
		})
	})

	Describe("when scoring credit", func() {
		It("derives leverage and coverage ratios", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Credit.DebtToEquity).Should(BeNumerically("~", 0.5, 1e-9))
			Expect(report.Credit.InterestCoverage).Should(BeNumerically("~", 5.0, 1e-9))
		})

		It("lowers default probability as the Z-score rises", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)

			stronger := *company
			stronger.TotalDebt = 100_000_000
			strongReport := risk.Analyze(&stronger, valuation, history, prices, 1_500_000_000, &pol.Risk)

			Expect(strongReport.Credit.ZScore).Should(BeNumerically(">", report.Credit.ZScore))
			Expect(strongReport.Credit.DefaultProbability).Should(BeNumerically("<", report.Credit.DefaultProbability))
		})
	})

	Describe("when blending operational heuristics", func() {
		It("applies the policy weights", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			expected := (0.4*0.30 + 0.6*0.20 + 0.5*0.20 + 0.7*0.20 + 0.3*0.10) * 100
			Expect(report.Operational.Score).Should(BeNumerically("~", expected, 1e-9))
		})
	})

	Describe("when running stress tests", func() {
		It("applies each scenario deterministically", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.StressTests).Should(HaveLen(4))

			winter := report.StressTests[0]
			Expect(winter.Name).To(Equal("Crypto Winter"))
			Expect(winter.TreasuryLoss).Should(BeNumerically("~", valuation.TotalValue*0.70, 1))
			Expect(winter.NavAfter).Should(BeNumerically("~", 1_500_000_000-winter.TreasuryLoss, 1))
		})

		It("bands severity by NAV impact", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			// treasury 600M on NAV 1.5B: -70% is a 28% NAV hit, -20% an 8% hit
			Expect(report.StressTests[0].Severity).To(Equal(risk.SeverityModerate))
			Expect(report.StressTests[3].Severity).To(Equal(risk.SeverityMild))
		})
	})

	Describe("when compositing the scorecard", func() {
		It("stays within the 0-100 range and bands consistently", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			Expect(report.Scores.Composite).Should(BeNumerically(">=", 0))
			Expect(report.Scores.Composite).Should(BeNumerically("<=", 100))
			Expect(report.Scores.Band).ShouldNot(BeEmpty())
		})

		It("estimates liquidation time from daily volume", func() {
			report := risk.Analyze(company, valuation, history, prices, 1_500_000_000, &pol.Risk)
			// BTC is slowest: 480M over 20B * 2% per day = 1.2 days
			Expect(report.Liquidity.LiquidationDays).Should(BeNumerically("~", 1.2, 1e-9))
		})
	})
})
