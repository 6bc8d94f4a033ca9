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

package treasury_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
	"github.com/treasury-vault/tv-api/treasury"
)

var _ = Describe("Lots", func() {
	var (
		transactions []data.TreasuryTransaction
		asOf         time.Time
		pol          *policy.YieldPolicy
	)

	BeforeEach(func() {
		asOf = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		pol = &policy.Default().Yield
		transactions = []data.TreasuryTransaction{
			{Asset: "BTC", Date: time.Date(2022, 1, 15, 0, 0, 0, 0, time.UTC),
				Kind: data.PurchaseTransaction, Amount: 100, PricePerUnit: 40_000, TotalCost: 4_000_000},
			{Asset: "BTC", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Kind: data.PurchaseTransaction, Amount: 50, PricePerUnit: 60_000, TotalCost: 3_000_000},
		}
	})

	Describe("with purchases only", func() {
		It("tags lots long and short term at 365 days", func() {
			report := treasury.TrackLots("BTC", transactions, treasury.MethodFIFO, 65_000, asOf, pol)
			Expect(report.LongTermAmount).Should(BeNumerically("~", 100, 1e-9))
			Expect(report.ShortTermAmount).Should(BeNumerically("~", 50, 1e-9))
			Expect(report.OpenAmount).Should(BeNumerically("~", 150, 1e-9))
		})

		It("estimates tax with fixed policy rates on positive gains", func() {
			report := treasury.TrackLots("BTC", transactions, treasury.MethodFIFO, 65_000, asOf, pol)
			// LT gain: 100*65k - 4M = 2.5M at 20%; ST gain: 50*65k - 3M = 250k at 37%
			Expect(report.EstimatedTax).Should(BeNumerically("~", 2_500_000*0.20+250_000*0.37, 1))
		})
	})

	Describe("with a sale", func() {
		BeforeEach(func() {
			transactions = append(transactions, data.TreasuryTransaction{
				Asset: "BTC", Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
				Kind: data.SaleTransaction, Amount: 120, PricePerUnit: 62_000, TotalCost: 7_440_000,
			})
		})

		It("consumes the oldest lots first under FIFO", func() {
			report := treasury.TrackLots("BTC", transactions, treasury.MethodFIFO, 65_000, asOf, pol)
			Expect(report.OpenAmount).Should(BeNumerically("~", 30, 1e-9))
			// remaining 30 units all come from the 2024 lot
			Expect(report.ShortTermAmount).Should(BeNumerically("~", 30, 1e-9))
			Expect(report.LongTermAmount).Should(BeNumerically("~", 0, 1e-9))
		})

		It("consumes the newest lots first under LIFO", func() {
			report := treasury.TrackLots("BTC", transactions, treasury.MethodLIFO, 65_000, asOf, pol)
			Expect(report.OpenAmount).Should(BeNumerically("~", 30, 1e-9))
			// the 2024 lot is fully consumed; the remainder is 2022 vintage
			Expect(report.LongTermAmount).Should(BeNumerically("~", 30, 1e-9))
		})

		It("reduces lots pro-rata under Average", func() {
			report := treasury.TrackLots("BTC", transactions, treasury.MethodAverage, 65_000, asOf, pol)
			Expect(report.OpenAmount).Should(BeNumerically("~", 30, 1e-9))
			Expect(report.Lots).Should(HaveLen(2))
			// both lots keep 20% of their original size
			Expect(report.Lots[0].Amount).Should(BeNumerically("~", 20, 1e-9))
			Expect(report.Lots[1].Amount).Should(BeNumerically("~", 10, 1e-9))
		})
	})
})
