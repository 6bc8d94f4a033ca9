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

package comparative

import (
	"sort"

	"github.com/treasury-vault/tv-api/policy"
)

// FrontierMember is one peer's position on the yield/volatility plane.
type FrontierMember struct {
	Ticker string `json:"ticker"`

	YieldPercent float64 `json:"yieldPercent"`
	Volatility   float64 `json:"volatility"`

	// Ratio is the Sharpe-like yield over volatility figure that gates
	// frontier membership.
	Ratio      float64 `json:"ratio"`
	OnFrontier bool    `json:"onFrontier"`
}

// Frontier is the efficiency view: members above the policy ratio plus an
// equal-weighted portfolio of them.
type Frontier struct {
	Members []FrontierMember `json:"members"`

	// OptimalPortfolio equal-weights the frontier members.
	OptimalPortfolio map[string]float64 `json:"optimalPortfolio,omitempty"`

	PortfolioYieldPercent float64 `json:"portfolioYieldPercent"`
	PortfolioVolatility   float64 `json:"portfolioVolatility"`
}

// Multiple is one peer's relative-value multiples.
type Multiple struct {
	Ticker string `json:"ticker"`

	PriceToNav      float64 `json:"priceToNav"`
	PriceToTreasury float64 `json:"priceToTreasury"`
	EvToTreasury    float64 `json:"evToTreasury"`

	// Average is the mean of the three multiples and orders the peer set.
	Average float64 `json:"average"`
}

// RelativeValue flags the cheapest and richest peers and marks each company's
// fair value against the peer-average price/NAV multiple.
type RelativeValue struct {
	Multiples []Multiple `json:"multiples"`

	Cheapest      string `json:"cheapest"`
	MostExpensive string `json:"mostExpensive"`

	// FairValues maps ticker to the stock price implied by the peer-average
	// price/NAV multiple; MispricingPercent is actual versus fair.
	FairValues        map[string]float64 `json:"fairValues"`
	MispricingPercent map[string]float64 `json:"mispricingPercent"`
}

// buildFrontier computes the yield/volatility ratio per peer and assembles the
// equal-weighted optimal portfolio from frontier members.
func buildFrontier(peers []PeerMetrics, pol *policy.ComparativePolicy) *Frontier {
	frontier := &Frontier{Members: make([]FrontierMember, 0, len(peers))}

	var onFrontier []FrontierMember
	for idx := range peers {
		member := FrontierMember{
			Ticker:       peers[idx].Ticker,
			YieldPercent: peers[idx].YieldPercent,
			Volatility:   peers[idx].Volatility,
		}
		if member.Volatility > 0 {
			member.Ratio = member.YieldPercent / 100 / member.Volatility
		}
		member.OnFrontier = member.Ratio > pol.FrontierMinRatio
		frontier.Members = append(frontier.Members, member)
		if member.OnFrontier {
			onFrontier = append(onFrontier, member)
		}
	}

	if len(onFrontier) == 0 {
		return frontier
	}

	weight := 1.0 / float64(len(onFrontier))
	frontier.OptimalPortfolio = make(map[string]float64, len(onFrontier))
	for _, member := range onFrontier {
		frontier.OptimalPortfolio[member.Ticker] = weight
		frontier.PortfolioYieldPercent += member.YieldPercent * weight
		frontier.PortfolioVolatility += member.Volatility * weight
	}

	return frontier
}

// relativeValue computes the three multiples per peer and the fair-value view
// off the peer-average price/NAV multiple.
func relativeValue(peers []PeerMetrics) *RelativeValue {
	rv := &RelativeValue{
		Multiples:         make([]Multiple, 0, len(peers)),
		FairValues:        map[string]float64{},
		MispricingPercent: map[string]float64{},
	}

	var navMultipleSum float64
	var navMultipleCount int
	for idx := range peers {
		peer := &peers[idx]
		multiple := Multiple{Ticker: peer.Ticker}

		if peer.NavPerShare > 0 {
			multiple.PriceToNav = peer.StockPrice / peer.NavPerShare
			navMultipleSum += multiple.PriceToNav
			navMultipleCount++
		}
		if peer.TreasuryValue > 0 {
			multiple.PriceToTreasury = peer.MarketCap / peer.TreasuryValue
			multiple.EvToTreasury = peer.EnterpriseValue / peer.TreasuryValue
		}
		multiple.Average = (multiple.PriceToNav + multiple.PriceToTreasury + multiple.EvToTreasury) / 3

		rv.Multiples = append(rv.Multiples, multiple)
	}

	sorted := make([]Multiple, len(rv.Multiples))
	copy(sorted, rv.Multiples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Average < sorted[j].Average })
	if len(sorted) > 0 {
		rv.Cheapest = sorted[0].Ticker
		rv.MostExpensive = sorted[len(sorted)-1].Ticker
	}

	if navMultipleCount == 0 {
		return rv
	}
	avgNavMultiple := navMultipleSum / float64(navMultipleCount)

	for idx := range peers {
		peer := &peers[idx]
		if peer.NavPerShare <= 0 {
			continue
		}
		fair := peer.NavPerShare * avgNavMultiple
		rv.FairValues[peer.Ticker] = fair
		if fair > 0 {
			rv.MispricingPercent[peer.Ticker] = (peer.StockPrice - fair) / fair * 100
		}
	}

	return rv
}
