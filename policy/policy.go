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

// Package policy centralizes every methodology constant the analytics engines
// use. Engines never embed magic numbers; they take a *Policy so methodology
// changes are auditable and testable in isolation. The Version string is bumped
// whenever a constant changes.
package policy

import (
	"github.com/spf13/viper"
)

const Version = "2024.2"

// NavPolicy holds the constants used by the NAV engine.
type NavPolicy struct {
	// Fraction of book equity assumed to be intangible and removed from
	// adjusted equity.
	IntangibleFraction float64

	// Fraction of book equity added back as estimated deferred-tax assets.
	DeferredTaxFraction float64

	// Multiplier applied to treasury value percentage changes when estimating
	// the implied stock move in projections. An explicit approximation.
	LeverageMultiplier float64
}

// YieldPolicy holds constants for the crypto yield engine.
type YieldPolicy struct {
	// Premium assumed on convertible-debt funded purchases when estimating
	// shares issued: shares = cost / (pricePerShare * ConvertiblePremium).
	ConvertiblePremium float64

	// Holding period, in days, after which a lot is long-term.
	LongTermDays int

	// Simplified capital gains tax rates.
	LongTermTaxRate  float64
	ShortTermTaxRate float64

	// Cost-basis method for lot tracking: FIFO, LIFO, or AVERAGE.
	CostBasisMethod string
}

// PriceOutcome is one probability-weighted stock-price multiple.
type PriceOutcome struct {
	Name        string
	PriceFactor float64
	Probability float64
}

// DilutionPolicy holds constants for the dilution engine.
type DilutionPolicy struct {
	// Time value added to intrinsic value for in-the-money warrants, as a
	// fraction of strike.
	WarrantTimeValueFraction float64

	// Moneyness thresholds for the conversion probability step function.
	// A convertible at >= DeepItmMoneyness converts with DeepItmProbability.
	DeepItmMoneyness   float64
	ItmProbability     float64
	DeepItmProbability float64
	NearMoneyness      float64
	NearProbability    float64
	OtmProbability     float64

	// Price outcomes for the standing forward-share projection, as multiples
	// of the current stock price. Probabilities sum to 1.
	ProjectionOutcomes []PriceOutcome
}

// RiskWeights are the composite risk score weights. They sum to 100.
type RiskWeights struct {
	Market        float64
	Concentration float64
	Liquidity     float64
	Credit        float64
	Operational   float64
}

// OperationalWeights blend the operational risk heuristics. They sum to 1.
type OperationalWeights struct {
	BusinessModel        float64
	RevenueConcentration float64
	KeyPerson            float64
	Regulatory           float64
	Cybersecurity        float64
}

// StressScenario is a fixed named market shock.
type StressScenario struct {
	Name        string
	Decline     float64 // fractional treasury decline, e.g. 0.5
	Probability float64 // annualized probability estimate
}

// RiskPolicy holds constants for the risk engine.
type RiskPolicy struct {
	RiskFreeRate float64

	// Annualized reference volatilities used to express beta as a volatility
	// ratio against the dominant treasury asset.
	ReferenceVolatility  map[string]float64
	DefaultRefVolatility float64

	// Herfindahl cutpoints: below Low is low concentration, etc.
	HhiMedium   float64
	HhiHigh     float64
	HhiCritical float64

	// Fraction of average daily volume assumed sellable per day when
	// estimating liquidation time.
	MaxDailyVolumeParticipation float64

	// Altman Z-score bands mapped to letter ratings, descending.
	ZScoreBands []ZBand

	// Regime detection thresholds over the recent window.
	RegimeReturnThreshold float64
	RegimeVolThreshold    float64

	Weights            RiskWeights
	Operational        OperationalWeights
	StressScenarios    []StressScenario
	VarHorizonsDays    []int
	MinHistoryForStats int
}

// ZBand maps a minimum Z-score to a letter rating.
type ZBand struct {
	Min    float64
	Rating string
}

// HealthWeights are financial health sub-score weights. They sum to 100.
type HealthWeights struct {
	Liquidity  float64
	Solvency   float64
	Efficiency float64
	Growth     float64
	Treasury   float64
}

// HealthPolicy holds constants for the financial health engine.
type HealthPolicy struct {
	Weights HealthWeights

	// Grade cutpoints, descending: composite >= Min gets Grade.
	Grades []GradeBand
}

// GradeBand maps a minimum composite score to a letter grade.
type GradeBand struct {
	Min   float64
	Grade string
}

// ComparativePolicy holds constants for the comparative engine.
type ComparativePolicy struct {
	// Standard deviations from the group mean before a metric is an outlier.
	OutlierSigma float64

	// Sharpe-like ratio a company must exceed for frontier membership.
	FrontierMinRatio float64
}

// Policy is the complete, versioned methodology configuration.
type Policy struct {
	Version     string
	Nav         NavPolicy
	Yield       YieldPolicy
	Dilution    DilutionPolicy
	Risk        RiskPolicy
	Health      HealthPolicy
	Comparative ComparativePolicy
}

// Default returns the current published methodology.
func Default() *Policy {
	return &Policy{
		Version: Version,
		Nav: NavPolicy{
			IntangibleFraction:  0.05,
			DeferredTaxFraction: 0.02,
			LeverageMultiplier:  1.5,
		},
		Yield: YieldPolicy{
			ConvertiblePremium: 1.3,
			LongTermDays:       365,
			LongTermTaxRate:    0.20,
			ShortTermTaxRate:   0.37,
			CostBasisMethod:    "FIFO",
		},
		Dilution: DilutionPolicy{
			WarrantTimeValueFraction: 0.10,
			DeepItmMoneyness:         1.5,
			DeepItmProbability:       0.95,
			ItmProbability:           0.75,
			NearMoneyness:            0.8,
			NearProbability:          0.35,
			OtmProbability:           0.05,
			ProjectionOutcomes: []PriceOutcome{
				{Name: "Bear", PriceFactor: 0.7, Probability: 0.25},
				{Name: "Base", PriceFactor: 1.0, Probability: 0.50},
				{Name: "Bull", PriceFactor: 1.3, Probability: 0.25},
			},
		},
		Risk: RiskPolicy{
			RiskFreeRate: 0.045,
			ReferenceVolatility: map[string]float64{
				"BTC": 0.60,
				"ETH": 0.75,
				"SOL": 0.95,
			},
			DefaultRefVolatility:        0.85,
			HhiMedium:                   0.2,
			HhiHigh:                     0.35,
			HhiCritical:                 0.5,
			MaxDailyVolumeParticipation: 0.02,
			ZScoreBands: []ZBand{
				{Min: 3.0, Rating: "AA"},
				{Min: 2.6, Rating: "A"},
				{Min: 1.8, Rating: "BBB"},
				{Min: 1.1, Rating: "BB"},
				{Min: 0.5, Rating: "B"},
				{Min: -1e308, Rating: "CCC"},
			},
			RegimeReturnThreshold: 0.05,
			RegimeVolThreshold:    0.80,
			Weights: RiskWeights{
				Market:        25,
				Concentration: 25,
				Liquidity:     20,
				Credit:        20,
				Operational:   10,
			},
			Operational: OperationalWeights{
				BusinessModel:        0.30,
				RevenueConcentration: 0.20,
				KeyPerson:            0.20,
				Regulatory:           0.20,
				Cybersecurity:        0.10,
			},
			StressScenarios: []StressScenario{
				{Name: "Crypto Winter", Decline: 0.70, Probability: 0.10},
				{Name: "Severe Correction", Decline: 0.50, Probability: 0.20},
				{Name: "Moderate Correction", Decline: 0.30, Probability: 0.35},
				{Name: "Flash Crash", Decline: 0.20, Probability: 0.50},
			},
			VarHorizonsDays:    []int{1, 10, 30},
			MinHistoryForStats: 20,
		},
		Health: HealthPolicy{
			Weights: HealthWeights{
				Liquidity:  20,
				Solvency:   25,
				Efficiency: 20,
				Growth:     15,
				Treasury:   20,
			},
			Grades: []GradeBand{
				{Min: 93, Grade: "A+"},
				{Min: 90, Grade: "A"},
				{Min: 87, Grade: "A-"},
				{Min: 83, Grade: "B+"},
				{Min: 80, Grade: "B"},
				{Min: 77, Grade: "B-"},
				{Min: 73, Grade: "C+"},
				{Min: 70, Grade: "C"},
				{Min: 67, Grade: "C-"},
				{Min: 60, Grade: "D+"},
				{Min: 50, Grade: "D"},
				{Min: -1e308, Grade: "F"},
			},
		},
		Comparative: ComparativePolicy{
			OutlierSigma:     2.0,
			FrontierMinRatio: 0.5,
		},
	}
}

// Load returns the default policy with any viper overrides applied. Only the
// constants operators actually tune are exposed as config keys.
func Load() *Policy {
	p := Default()

	if viper.IsSet("policy.risk_free_rate") {
		p.Risk.RiskFreeRate = viper.GetFloat64("policy.risk_free_rate")
	}
	if viper.IsSet("policy.leverage_multiplier") {
		p.Nav.LeverageMultiplier = viper.GetFloat64("policy.leverage_multiplier")
	}
	if viper.IsSet("policy.convertible_premium") {
		p.Yield.ConvertiblePremium = viper.GetFloat64("policy.convertible_premium")
	}
	if viper.IsSet("policy.long_term_tax_rate") {
		p.Yield.LongTermTaxRate = viper.GetFloat64("policy.long_term_tax_rate")
	}
	if viper.IsSet("policy.short_term_tax_rate") {
		p.Yield.ShortTermTaxRate = viper.GetFloat64("policy.short_term_tax_rate")
	}
	if viper.IsSet("policy.cost_basis_method") {
		p.Yield.CostBasisMethod = viper.GetString("policy.cost_basis_method")
	}

	return p
}
