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

package comparative_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/comparative"
	"github.com/treasury-vault/tv-api/policy"
)

var _ = Describe("Comparative", func() {
	var (
		peers []comparative.PeerMetrics
		pol   *policy.Policy
	)

	BeforeEach(func() {
		pol = policy.Default()
		peers = []comparative.PeerMetrics{
			{
				Ticker: "AAA", MarketCap: 100_000_000, EnterpriseValue: 120_000_000,
				TreasuryValue: 100_000_000, StockPrice: 10, NavPerShare: 10,
				PremiumPercent: 5, YieldPercent: 10, Volatility: 0.5,
				RiskScore: 40, HealthScore: 70,
			},
			{
				Ticker: "BBB", MarketCap: 95_000_000, EnterpriseValue: 110_000_000,
				TreasuryValue: 105_000_000, StockPrice: 9, NavPerShare: 10,
				PremiumPercent: -5, YieldPercent: 12, Volatility: 0.6,
				RiskScore: 45, HealthScore: 75,
			},
			{
				Ticker: "CCC", MarketCap: 600_000_000, EnterpriseValue: 650_000_000,
				TreasuryValue: 500_000_000, StockPrice: 12, NavPerShare: 10,
				PremiumPercent: 0, YieldPercent: 11, Volatility: 0.55,
				RiskScore: 42, HealthScore: 72,
			},
		}
	})

	Describe("when detecting outliers", func() {
		It("flags exactly the induced treasury outlier", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.Outliers).Should(HaveLen(1))
			Expect(report.Outliers[0].Ticker).To(Equal("CCC"))
			Expect(report.Outliers[0].Metric).To(Equal(comparative.MetricTreasuryValue))
			Expect(report.Outliers[0].Sigma).Should(BeNumerically(">", pol.Comparative.OutlierSigma))
		})
	})

	Describe("when ranking the peer set", func() {
		It("orders each metric by its better direction", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.Rankings).Should(HaveLen(6))

			byMetric := map[string]comparative.Ranking{}
			for _, ranking := range report.Rankings {
				byMetric[ranking.Metric] = ranking
			}

			Expect(byMetric[comparative.MetricTreasuryValue].Entries[0].Ticker).To(Equal("CCC"))
			Expect(byMetric[comparative.MetricYield].Entries[0].Ticker).To(Equal("BBB"))
			// lower volatility ranks first
			Expect(byMetric[comparative.MetricVolatility].Entries[0].Ticker).To(Equal("AAA"))
		})

		It("re-ranks the average of ranks into the composite", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.CompositeRanking.Entries[0].Ticker).To(Equal("BBB"))
			Expect(report.CompositeRanking.Entries[1].Ticker).To(Equal("CCC"))
			Expect(report.CompositeRanking.Entries[2].Ticker).To(Equal("AAA"))
		})

		It("scores percentiles by peers beaten or tied", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			var aaa comparative.Percentiles
			for _, p := range report.Percentiles {
				if p.Ticker == "AAA" {
					aaa = p
				}
			}
			Expect(aaa.Values[comparative.MetricYield]).Should(BeNumerically("~", 100.0/3, 1e-9))
			Expect(aaa.Values[comparative.MetricVolatility]).Should(BeNumerically("~", 100, 1e-9))
		})
	})

	Describe("when clustering the yield and premium plane", func() {
		It("assigns each peer to a median-split quadrant", func() {
			report := comparative.Compare(peers, &pol.Comparative)

			byName := map[string][]string{}
			for _, cluster := range report.Clusters {
				byName[cluster.Name] = cluster.Tickers
			}
			Expect(byName["high-yield discount"]).To(ContainElement("BBB"))
			Expect(byName["high-yield premium"]).To(ContainElement("CCC"))
			Expect(byName["low-yield premium"]).To(ContainElement("AAA"))
		})
	})

	Describe("when building the efficiency frontier", func() {
		It("admits only peers above the minimum ratio", func() {
			peers[0].YieldPercent = 40 // ratio 0.8
			peers[2].YieldPercent = 60
			peers[2].Volatility = 0.75 // ratio 0.8

			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.Frontier.OptimalPortfolio).Should(HaveLen(2))
			Expect(report.Frontier.OptimalPortfolio["AAA"]).Should(BeNumerically("~", 0.5, 1e-9))
			Expect(report.Frontier.OptimalPortfolio["CCC"]).Should(BeNumerically("~", 0.5, 1e-9))
			Expect(report.Frontier.PortfolioYieldPercent).Should(BeNumerically("~", 50, 1e-9))
			Expect(report.Frontier.PortfolioVolatility).Should(BeNumerically("~", 0.625, 1e-9))
		})

		It("builds no portfolio when every peer falls short", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.Frontier.OptimalPortfolio).Should(BeEmpty())
			for _, member := range report.Frontier.Members {
				Expect(member.OnFrontier).To(BeFalse())
			}
		})
	})

	Describe("when computing relative value", func() {
		It("flags the cheapest and richest peers", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			Expect(report.RelativeValue.Cheapest).To(Equal("BBB"))
			Expect(report.RelativeValue.MostExpensive).To(Equal("CCC"))
		})

		It("marks each stock against the peer-average NAV multiple", func() {
			report := comparative.Compare(peers, &pol.Comparative)
			// average price/NAV multiple is (1.0 + 0.9 + 1.2) / 3
			fair := 10 * (1.0 + 0.9 + 1.2) / 3
			Expect(report.RelativeValue.FairValues["AAA"]).Should(BeNumerically("~", fair, 1e-9))
			Expect(report.RelativeValue.MispricingPercent["AAA"]).Should(BeNumerically("~", (10-fair)/fair*100, 1e-9))
		})
	})
})
