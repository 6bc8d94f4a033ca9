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
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// market regimes
const (
	RegimeRiskOn  = "RISK_ON"
	RegimeRiskOff = "RISK_OFF"
	RegimeNeutral = "NEUTRAL"
)

// AssetCorrelation is one pairwise correlation of daily asset returns.
type AssetCorrelation struct {
	AssetA      string  `json:"assetA"`
	AssetB      string  `json:"assetB"`
	Correlation float64 `json:"correlation"`
}

// CorrelationRegime covers pairwise correlations and the current market
// regime classification.
type CorrelationRegime struct {
	Correlations []AssetCorrelation `json:"correlations,omitempty"`

	Regime           string  `json:"regime"`
	RecentReturn     float64 `json:"recentReturn"`
	RecentVolatility float64 `json:"recentVolatility"`
}

// assetReturnSeries builds aligned daily return series per asset from the
// history's crypto price maps.
func assetReturnSeries(history []data.HistoricalDataPoint) map[string][]float64 {
	series := map[string][]float64{}

	for idx := 1; idx < len(history); idx++ {
		for asset, price := range history[idx].CryptoPrices {
			prev, ok := history[idx-1].CryptoPrices[asset]
			if !ok || prev <= 0 {
				continue
			}
			series[asset] = append(series[asset], price/prev-1)
		}
	}

	return series
}

// analyzeCorrelation computes pairwise correlations and classifies the market
// regime from the recent stock return and realized volatility.
func analyzeCorrelation(history []data.HistoricalDataPoint, pol *policy.RiskPolicy) CorrelationRegime {
	out := CorrelationRegime{Regime: RegimeNeutral}

	series := assetReturnSeries(history)
	assets := make([]string, 0, len(series))
	for asset := range series {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			a, b := series[assets[i]], series[assets[j]]
			n := len(a)
			if len(b) < n {
				n = len(b)
			}
			if n < pol.MinHistoryForStats {
				continue
			}
			out.Correlations = append(out.Correlations, AssetCorrelation{
				AssetA:      assets[i],
				AssetB:      assets[j],
				Correlation: stat.Correlation(a[:n], b[:n], nil),
			})
		}
	}

	returns := dailyReturns(history)
	if len(returns) < pol.MinHistoryForStats {
		return out
	}

	// recent window: the trailing month of observations
	window := 21
	if len(returns) < window {
		window = len(returns)
	}
	recent := returns[len(returns)-window:]

	for _, r := range recent {
		out.RecentReturn += r
	}
	out.RecentVolatility = stat.StdDev(recent, nil) * math.Sqrt(tradingDays)

	switch {
	case out.RecentReturn >= pol.RegimeReturnThreshold && out.RecentVolatility < pol.RegimeVolThreshold:
		out.Regime = RegimeRiskOn
	case out.RecentReturn <= -pol.RegimeReturnThreshold || out.RecentVolatility >= pol.RegimeVolThreshold:
		out.Regime = RegimeRiskOff
	default:
		out.Regime = RegimeNeutral
	}

	return out
}
