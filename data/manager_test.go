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

package data_test

import (
	"context"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/treasury-vault/tv-api/data"
)

var _ = Describe("Manager", func() {
	var (
		ctx  context.Context
		feed *data.CryptoFeed
	)

	BeforeEach(func() {
		httpmock.Activate()
		httpmock.RegisterResponder("GET", "https://quotes.example.com/v1/crypto/prices?token=TEST",
			httpmock.NewStringResponder(200, `[
				{"symbol": "BTC", "price": 60000, "volume24h": 20000000000, "timestamp": "2025-11-04T15:00:00Z"}
			]`))
		feed = data.NewCryptoFeed("https://quotes.example.com", "TEST")
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Context("when quotes are fresh", func() {
		It("serves repeat calls from the short-lived cache", func() {
			manager := data.NewManagerWithSources(data.NewStore(), feed, time.Minute)

			first, err := manager.CryptoPrices(ctx)
			Expect(err).To(BeNil())
			second, err := manager.CryptoPrices(ctx)
			Expect(err).To(BeNil())

			Expect(first).To(HaveLen(1))
			Expect(second).To(HaveLen(1))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})
	})

	Context("when quotes are stale", func() {
		It("refetches once the TTL lapses", func() {
			manager := data.NewManagerWithSources(data.NewStore(), feed, 0)

			_, err := manager.CryptoPrices(ctx)
			Expect(err).To(BeNil())
			_, err = manager.CryptoPrices(ctx)
			Expect(err).To(BeNil())

			Expect(httpmock.GetTotalCallCount()).To(Equal(2))
		})
	})
})
