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

package analytics_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/analytics"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/dilution"
	"github.com/treasury-vault/tv-api/nav"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

var _ = Describe("Service", func() {
	var (
		provider *fakeProvider
		service  *analytics.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		provider = newFakeProvider()
		provider.prices = []data.CryptoPrice{
			{Symbol: "BTC", Price: 60_000, Volume24h: 20_000_000_000, Timestamp: time.Now()},
			{Symbol: "ETH", Price: 3_000, Volume24h: 8_000_000_000, Timestamp: time.Now()},
		}
		provider.addCompany(testCompany("TSV", 10_000), 12)
		service = analytics.NewService(provider, policy.Default())
	})

	Describe("when computing comprehensive analytics", func() {
		It("fills every engine block", func() {
			metrics, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			Expect(metrics.Ticker).To(Equal("TSV"))
			Expect(metrics.Nav).ShouldNot(BeNil())
			Expect(metrics.CryptoYield).ShouldNot(BeNil())
			Expect(metrics.Dilution).ShouldNot(BeNil())
			Expect(metrics.Risk).ShouldNot(BeNil())
			Expect(metrics.FinancialHealth).ShouldNot(BeNil())
			Expect(metrics.Institutional).ShouldNot(BeNil())
			Expect(metrics.Dilution.Projection).ShouldNot(BeNil())
			Expect(metrics.CostBasis).ShouldNot(BeEmpty())
		})

		It("tracks open lots for each held asset", func() {
			metrics, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			Expect(metrics.CostBasis).Should(HaveLen(1))
			lots := metrics.CostBasis[0]
			Expect(lots.Asset).To(Equal("BTC"))
			Expect(lots.Method).To(Equal(treasury.MethodFIFO))
			// one purchase a month ago: 1,000 BTC for 50M, still short-term
			Expect(lots.OpenAmount).Should(BeNumerically("~", 1_000, 1e-9))
			Expect(lots.OpenCost).Should(BeNumerically("~", 50_000_000, 1))
			Expect(lots.ShortTermAmount).Should(BeNumerically("~", 1_000, 1e-9))
			Expect(lots.ShortTermGain).Should(BeNumerically("~", 10_000_000, 1))
		})

		It("appends the NAV point to the time series", func() {
			_, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			points := provider.savedPoints()
			Expect(points).Should(HaveLen(1))
			Expect(points[0].Ticker).To(Equal("TSV"))
			Expect(points[0].Time.Minute()).To(Equal(0))

			// a cache hit never duplicates the point
			_, err = service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())
			Expect(provider.savedPoints()).Should(HaveLen(1))
		})

		It("keeps NAV consistent with the treasury mark", func() {
			metrics, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			// 10,000 BTC at 60,000
			Expect(metrics.Nav.TreasuryValue).Should(BeNumerically("~", 600_000_000, 1))
			Expect(metrics.Nav.Nav).Should(BeNumerically("~", 600_000_000+970_000_000, 1))
		})

		It("derives the ownership picture", func() {
			metrics, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			Expect(metrics.Institutional.InsiderOwnershipPercent).Should(BeNumerically("~", 15, 1e-9))
			Expect(metrics.Institutional.RetailOwnershipPercent).Should(BeNumerically("~", 30, 1e-9))
			Expect(metrics.Institutional.FloatMarketValue).Should(BeNumerically("~", 80_000_000*12, 1))
		})

		It("returns identical results for an identical snapshot", func() {
			first, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())
			second, err := service.ComprehensiveAnalytics(ctx, "TSV")
			Expect(err).To(BeNil())

			Expect(second.Time).To(BeTemporally("==", first.Time))
			Expect(second.Nav.Nav).To(Equal(first.Nav.Nav))
			Expect(second.Risk.Scores.Composite).To(Equal(first.Risk.Scores.Composite))
		})

		It("fails fast on an unknown ticker", func() {
			_, err := service.ComprehensiveAnalytics(ctx, "NOPE")
			Expect(err).To(MatchError(data.ErrCompanyNotFound))
		})
	})

	Describe("when computing comparative analytics", func() {
		BeforeEach(func() {
			provider.addCompany(testCompany("AAA", 8_000), 10)
			provider.addCompany(testCompany("BBB", 12_000), 14)
		})

		It("aggregates every requested peer", func() {
			result, err := service.ComparativeAnalytics(ctx, []string{"TSV", "AAA", "BBB"})
			Expect(err).To(BeNil())

			Expect(result.Peers).Should(HaveLen(3))
			Expect(result.Excluded).Should(BeEmpty())
			Expect(result.Report.Rankings).Should(HaveLen(6))
		})

		It("excludes a failing peer instead of aborting", func() {
			result, err := service.ComparativeAnalytics(ctx, []string{"TSV", "AAA", "MISSING"})
			Expect(err).To(BeNil())

			Expect(result.Peers).Should(HaveLen(2))
			Expect(result.Excluded).To(ConsistOf("MISSING"))
		})
	})

	Describe("when running scenario analysis", func() {
		It("projects each named scenario off the base case", func() {
			result, err := service.ScenarioAnalysis(ctx, "TSV", []nav.PriceScenario{
				{Name: "BTC -50%", AssetReturns: map[string]float64{"BTC": -0.5}},
				{Name: "BTC +50%", AssetReturns: map[string]float64{"BTC": 0.5}},
			}, nil)
			Expect(err).To(BeNil())

			Expect(result.BaseCase).ShouldNot(BeNil())
			Expect(result.Scenarios).Should(HaveLen(2))
			Expect(result.Scenarios[0].TreasuryValue).Should(BeNumerically("~", 300_000_000, 1))
			Expect(result.Scenarios[1].TreasuryValue).Should(BeNumerically("~", 900_000_000, 1))
		})

		It("calls out a single-asset treasury", func() {
			result, err := service.ScenarioAnalysis(ctx, "TSV", nil, nil)
			Expect(err).To(BeNil())
			Expect(result.Recommendations).ShouldNot(BeEmpty())
		})

		It("evaluates dilution what-ifs against the capital structure", func() {
			result, err := service.ScenarioAnalysis(ctx, "TSV", nil, []dilution.WhatIf{
				{Name: "ATM raise", Kind: dilution.EquityRaiseScenario, Amount: 500_000_000, IssuePrice: 10},
			})
			Expect(err).To(BeNil())

			Expect(result.WhatIfs).Should(HaveLen(1))
			raise := result.WhatIfs[0]
			// 50M new shares on the 105M assumed-diluted base
			Expect(raise.ResultingShares).Should(BeNumerically("~", 155_000_000, 1))
			Expect(raise.EpsImpactPercent).Should(BeNumerically("<", 0))
		})
	})

	Describe("when recording NAV snapshots", func() {
		It("persists one point per company", func() {
			provider.addCompany(testCompany("AAA", 8_000), 10)

			service.RecordNavSnapshots(ctx)
			Expect(provider.savedPoints()).Should(HaveLen(2))
		})

		It("overwrites a same-timestamp point on re-run", func() {
			service.RecordNavSnapshots(ctx)
			service.RecordNavSnapshots(ctx)

			// hour-truncated timestamps collide across immediate re-runs
			Expect(provider.savedPoints()).Should(HaveLen(1))
		})

		It("skips companies whose snapshot fails", func() {
			// a held asset with no quote fails the valuation
			provider.addCompany(&data.Company{
				Ticker:   "DARK",
				Holdings: []data.TreasuryHolding{{Asset: "DOGE", Amount: 1_000_000}},
			}, 5)

			service.RecordNavSnapshots(ctx)
			points := provider.savedPoints()
			Expect(points).Should(HaveLen(1))
			Expect(points[0].Ticker).To(Equal("TSV"))
		})
	})
})
