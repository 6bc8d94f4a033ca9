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

package risk

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// annualization factor for daily observations
const tradingDays = 252

// MarketRisk covers volatility, beta, risk-adjusted returns, and drawdown.
type MarketRisk struct {
	DailyVolatility      float64 `json:"dailyVolatility"`
	AnnualizedVolatility float64 `json:"annualizedVolatility"`

	// Beta is the stock's annualized volatility over the reference volatility
	// of the dominant treasury asset, not a regression coefficient.
	Beta           float64 `json:"beta"`
	ReferenceAsset string  `json:"referenceAsset"`

	AnnualizedReturn float64 `json:"annualizedReturn"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	SortinoRatio     float64 `json:"sortinoRatio"`

	MaxDrawdownPercent float64   `json:"maxDrawdownPercent"`
	DrawdownPeakDate   time.Time `json:"drawdownPeakDate"`
	DrawdownTroughDate time.Time `json:"drawdownTroughDate"`

	InsufficientHistory bool `json:"insufficientHistory,omitempty"`
}

// dailyReturns extracts stock price returns from the history, oldest first.
func dailyReturns(history []data.HistoricalDataPoint) []float64 {
	returns := make([]float64, 0, len(history))
	for idx := 1; idx < len(history); idx++ {
		prev := history[idx-1].StockPrice
		if prev <= 0 {
			continue
		}
		returns = append(returns, history[idx].StockPrice/prev-1)
	}
	return returns
}

// analyzeMarket computes the market risk block. referenceAsset is the largest
// treasury position by value and anchors the volatility-ratio beta.
func analyzeMarket(history []data.HistoricalDataPoint, referenceAsset string, pol *policy.RiskPolicy) MarketRisk {
	market := MarketRisk{ReferenceAsset: referenceAsset}

	// drawdown needs no minimum sample
	market.MaxDrawdownPercent, market.DrawdownPeakDate, market.DrawdownTroughDate = maxDrawdown(history)

	returns := dailyReturns(history)
	if len(returns) < pol.MinHistoryForStats {
		market.InsufficientHistory = true
		return market
	}

	mean, std := stat.MeanStdDev(returns, nil)
	market.DailyVolatility = std
	market.AnnualizedVolatility = std * math.Sqrt(tradingDays)
	market.AnnualizedReturn = mean * tradingDays

	refVol, ok := pol.ReferenceVolatility[referenceAsset]
	if !ok {
		refVol = pol.DefaultRefVolatility
	}
	if refVol > 0 {
		market.Beta = market.AnnualizedVolatility / refVol
	}

	if market.AnnualizedVolatility > 0 {
		market.SharpeRatio = (market.AnnualizedReturn - pol.RiskFreeRate) / market.AnnualizedVolatility
	}

	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 1 {
		downsideDev := stat.StdDev(downside, nil) * math.Sqrt(tradingDays)
		if downsideDev > 0 {
			market.SortinoRatio = (market.AnnualizedReturn - pol.RiskFreeRate) / downsideDev
		}
	}

	return market
}

// maxDrawdown tracks the running peak and returns the worst peak-to-trough
// decline with its date range.
func maxDrawdown(history []data.HistoricalDataPoint) (float64, time.Time, time.Time) {
	var (
		peak        float64
		peakDate    time.Time
		worst       float64
		worstPeak   time.Time
		worstTrough time.Time
	)

	for _, point := range history {
		if point.StockPrice > peak {
			peak = point.StockPrice
			peakDate = point.Date
		}
		if peak <= 0 {
			continue
		}
		drawdown := (point.StockPrice - peak) / peak * 100
		if drawdown < worst {
			worst = drawdown
			worstPeak = peakDate
			worstTrough = point.Date
		}
	}

	return worst, worstPeak, worstTrough
}
