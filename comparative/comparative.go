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

// Package comparative ranks a peer set of treasury companies: group stats,
// outliers, rankings, percentiles, an efficiency frontier, and relative-value
// multiples.
package comparative

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/treasury-vault/tv-api/policy"
)

// ranked metrics
const (
	MetricTreasuryValue = "treasuryValue"
	MetricYield         = "cryptoYield"
	MetricPremium       = "navPremium"
	MetricVolatility    = "volatility"
	MetricRisk          = "riskScore"
	MetricHealth        = "healthScore"
)

// PeerMetrics is one company's computed metrics, the comparative engine's
// sole input.
type PeerMetrics struct {
	Ticker string `json:"ticker"`

	MarketCap       float64 `json:"marketCap"`
	EnterpriseValue float64 `json:"enterpriseValue"`
	TreasuryValue   float64 `json:"treasuryValue"`

	StockPrice     float64 `json:"stockPrice"`
	NavPerShare    float64 `json:"navPerShare"`
	PremiumPercent float64 `json:"premiumPercent"`

	// YieldPercent is annualized blended crypto yield.
	YieldPercent float64 `json:"yieldPercent"`

	// Volatility is annualized, as a fraction.
	Volatility float64 `json:"volatility"`

	RiskScore   float64 `json:"riskScore"`
	HealthScore float64 `json:"healthScore"`
}

// GroupStat is the peer mean and standard deviation for one metric.
type GroupStat struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Outlier flags one (company, metric) pair beyond the sigma threshold.
type Outlier struct {
	Ticker string  `json:"ticker"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Sigma  float64 `json:"sigma"`
}

// RankEntry is one company's position in a single-metric ranking; rank 1 is
// best.
type RankEntry struct {
	Ticker string  `json:"ticker"`
	Value  float64 `json:"value"`
	Rank   int     `json:"rank"`
}

// Ranking is one metric's full ordering.
type Ranking struct {
	Metric  string      `json:"metric"`
	Entries []RankEntry `json:"entries"`
}

// Percentiles is one company's percentile across every ranked metric.
type Percentiles struct {
	Ticker string             `json:"ticker"`
	Values map[string]float64 `json:"values"`
}

// Report is the complete cross-sectional view.
type Report struct {
	Tickers []string `json:"tickers"`

	GroupStats []GroupStat `json:"groupStats"`
	Outliers   []Outlier   `json:"outliers,omitempty"`

	Rankings         []Ranking     `json:"rankings"`
	CompositeRanking Ranking       `json:"compositeRanking"`
	Percentiles      []Percentiles `json:"percentiles"`

	// YieldPremiumCorrelation is the cross-sectional correlation between
	// crypto yield and NAV premium; the simplified cluster view groups peers
	// by those two dimensions.
	YieldPremiumCorrelation float64   `json:"yieldPremiumCorrelation"`
	Clusters                []Cluster `json:"clusters"`

	Frontier      *Frontier      `json:"frontier"`
	RelativeValue *RelativeValue `json:"relativeValue"`
}

// Cluster is a quadrant of the yield/premium plane.
type Cluster struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
}

// metric defines one ranked dimension. higherBetter drives rank order and
// percentile direction.
type metric struct {
	name         string
	higherBetter bool
	value        func(*PeerMetrics) float64
}

func rankedMetrics() []metric {
	return []metric{
		{MetricTreasuryValue, true, func(p *PeerMetrics) float64 { return p.TreasuryValue }},
		{MetricYield, true, func(p *PeerMetrics) float64 { return p.YieldPercent }},
		{MetricPremium, false, func(p *PeerMetrics) float64 { return p.PremiumPercent }},
		{MetricVolatility, false, func(p *PeerMetrics) float64 { return p.Volatility }},
		{MetricRisk, false, func(p *PeerMetrics) float64 { return p.RiskScore }},
		{MetricHealth, true, func(p *PeerMetrics) float64 { return p.HealthScore }},
	}
}

// Compare builds the full cross-sectional report. At least two peers are
// required for meaningful statistics; a smaller set yields a degenerate but
// valid report.
func Compare(peers []PeerMetrics, pol *policy.ComparativePolicy) *Report {
	report := &Report{}
	for idx := range peers {
		report.Tickers = append(report.Tickers, peers[idx].Ticker)
	}

	metrics := rankedMetrics()

	report.GroupStats, report.Outliers = groupStats(peers, metrics, pol)
	report.Rankings = rankAll(peers, metrics)
	report.CompositeRanking = compositeRank(peers, report.Rankings)
	report.Percentiles = percentiles(peers, metrics)
	report.YieldPremiumCorrelation = yieldPremiumCorrelation(peers)
	report.Clusters = clusterPeers(peers)
	report.Frontier = buildFrontier(peers, pol)
	report.RelativeValue = relativeValue(peers)

	return report
}

func groupStats(peers []PeerMetrics, metrics []metric, pol *policy.ComparativePolicy) ([]GroupStat, []Outlier) {
	stats := make([]GroupStat, 0, len(metrics))
	outliers := []Outlier{}

	for _, m := range metrics {
		values := make([]float64, 0, len(peers))
		for idx := range peers {
			values = append(values, m.value(&peers[idx]))
		}

		mean, std := stat.MeanStdDev(values, nil)
		stats = append(stats, GroupStat{Metric: m.name, Mean: mean, StdDev: std})

		// the candidate is excluded from the deviation estimate: in a small
		// peer set an extreme value inflates the group sigma enough to hide
		// itself otherwise
		for idx := range peers {
			others := make([]float64, 0, len(values)-1)
			for j, v := range values {
				if j != idx {
					others = append(others, v)
				}
			}
			if len(others) < 2 {
				continue
			}
			otherStd := stat.StdDev(others, nil)
			if otherStd <= 0 {
				continue
			}
			sigma := math.Abs(values[idx]-mean) / otherStd
			if sigma > pol.OutlierSigma {
				outliers = append(outliers, Outlier{
					Ticker: peers[idx].Ticker,
					Metric: m.name,
					Value:  values[idx],
					Sigma:  sigma,
				})
			}
		}
	}

	return stats, outliers
}

func rankAll(peers []PeerMetrics, metrics []metric) []Ranking {
	rankings := make([]Ranking, 0, len(metrics))

	for _, m := range metrics {
		entries := make([]RankEntry, 0, len(peers))
		for idx := range peers {
			entries = append(entries, RankEntry{
				Ticker: peers[idx].Ticker,
				Value:  m.value(&peers[idx]),
			})
		}

		better := m.higherBetter
		sort.SliceStable(entries, func(i, j int) bool {
			if better {
				return entries[i].Value > entries[j].Value
			}
			return entries[i].Value < entries[j].Value
		})
		for idx := range entries {
			entries[idx].Rank = idx + 1
		}

		rankings = append(rankings, Ranking{Metric: m.name, Entries: entries})
	}

	return rankings
}

// compositeRank averages each company's ranks across all metrics, then
// re-ranks by that average.
func compositeRank(peers []PeerMetrics, rankings []Ranking) Ranking {
	sums := map[string]float64{}
	for _, ranking := range rankings {
		for _, entry := range ranking.Entries {
			sums[entry.Ticker] += float64(entry.Rank)
		}
	}

	entries := make([]RankEntry, 0, len(peers))
	for idx := range peers {
		ticker := peers[idx].Ticker
		entries = append(entries, RankEntry{
			Ticker: ticker,
			Value:  sums[ticker] / float64(len(rankings)),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value < entries[j].Value
	})
	for idx := range entries {
		entries[idx].Rank = idx + 1
	}

	return Ranking{Metric: "composite", Entries: entries}
}

// percentiles scores each company 0-100 per metric by the share of peers it
// beats or ties.
func percentiles(peers []PeerMetrics, metrics []metric) []Percentiles {
	out := make([]Percentiles, 0, len(peers))

	for i := range peers {
		p := Percentiles{Ticker: peers[i].Ticker, Values: map[string]float64{}}
		for _, m := range metrics {
			own := m.value(&peers[i])
			var atOrBelow int
			for j := range peers {
				other := m.value(&peers[j])
				if (m.higherBetter && other <= own) || (!m.higherBetter && other >= own) {
					atOrBelow++
				}
			}
			p.Values[m.name] = float64(atOrBelow) / float64(len(peers)) * 100
		}
		out = append(out, p)
	}

	return out
}

func yieldPremiumCorrelation(peers []PeerMetrics) float64 {
	if len(peers) < 3 {
		return 0
	}
	yields := make([]float64, 0, len(peers))
	premiums := make([]float64, 0, len(peers))
	for idx := range peers {
		yields = append(yields, peers[idx].YieldPercent)
		premiums = append(premiums, peers[idx].PremiumPercent)
	}
	corr := stat.Correlation(yields, premiums, nil)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

// clusterPeers groups peers into quadrants of the yield/premium plane using
// the group medians as the split.
func clusterPeers(peers []PeerMetrics) []Cluster {
	yields := make([]float64, 0, len(peers))
	premiums := make([]float64, 0, len(peers))
	for idx := range peers {
		yields = append(yields, peers[idx].YieldPercent)
		premiums = append(premiums, peers[idx].PremiumPercent)
	}
	medYield := median(yields)
	medPremium := median(premiums)

	clusters := []Cluster{
		{Name: "high-yield premium"},
		{Name: "high-yield discount"},
		{Name: "low-yield premium"},
		{Name: "low-yield discount"},
	}
	for idx := range peers {
		highYield := peers[idx].YieldPercent >= medYield
		premium := peers[idx].PremiumPercent >= medPremium
		switch {
		case highYield && premium:
			clusters[0].Tickers = append(clusters[0].Tickers, peers[idx].Ticker)
		case highYield:
			clusters[1].Tickers = append(clusters[1].Tickers, peers[idx].Ticker)
		case premium:
			clusters[2].Tickers = append(clusters[2].Tickers, peers[idx].Ticker)
		default:
			clusters[3].Tickers = append(clusters[3].Tickers, peers[idx].Ticker)
		}
	}

	out := clusters[:0]
	for _, cluster := range clusters {
		if len(cluster.Tickers) > 0 {
			out = append(out, cluster)
		}
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
