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

package data

import (
	"time"
)

// Transaction types
const (
	PurchaseTransaction = "PURCHASE"
	SaleTransaction     = "SALE"
	StakeTransaction    = "STAKE"
	UnstakeTransaction  = "UNSTAKE"
)

// Funding methods
const (
	EquityFunding      = "EQUITY"
	ConvertibleFunding = "CONVERTIBLE_DEBT"
	DebtFunding        = "DEBT"
	CashFunding        = "CASH"
)

// TreasuryTransaction is a single, immutable treasury event. Date order drives
// FIFO/LIFO lot assignment.
type TreasuryTransaction struct {
	Date          time.Time `json:"date"`
	Kind          string    `json:"kind"`
	Asset         string    `json:"asset"`
	Amount        float64   `json:"amount"`
	PricePerUnit  float64   `json:"pricePerUnit"`
	TotalCost     float64   `json:"totalCost"`
	FundingMethod string    `json:"fundingMethod,omitempty"`

	// Stock price per share on the transaction date; used to estimate shares
	// issued when attributing funding.
	StockPrice float64 `json:"stockPrice,omitempty"`
}

// TreasuryHolding is one (company, asset) position. CurrentValue and
// UnrealizedGain are derived by the valuation engine, never stored.
type TreasuryHolding struct {
	Asset          string                `json:"asset"`
	Amount         float64               `json:"amount"`
	AvgCostBasis   float64               `json:"avgCostBasis"`
	TotalCost      float64               `json:"totalCost"`
	CurrentValue   float64               `json:"currentValue"`
	UnrealizedGain float64               `json:"unrealizedGain"`
	Transactions   []TreasuryTransaction `json:"transactions,omitempty"`
}

// ConvertibleDebt is one convertible note issue.
type ConvertibleDebt struct {
	Name            string    `json:"name"`
	Principal       float64   `json:"principal"`
	InterestRate    float64   `json:"interestRate"`
	ConversionPrice float64   `json:"conversionPrice"`
	ConversionRatio float64   `json:"conversionRatio"`
	Maturity        time.Time `json:"maturity"`
	Outstanding     bool      `json:"outstanding"`
}

// Warrant is one warrant series.
type Warrant struct {
	Name             string    `json:"name"`
	Strike           float64   `json:"strike"`
	SharesPerWarrant float64   `json:"sharesPerWarrant"`
	Count            float64   `json:"count"`
	Expiry           time.Time `json:"expiry"`
	Outstanding      bool      `json:"outstanding"`
}

// CapitalStructure describes share counts and dilutive instruments.
// Invariant: BasicShares <= DilutedShares <= AssumedDilutedShares.
type CapitalStructure struct {
	BasicShares          float64 `json:"basicShares"`
	DilutedShares        float64 `json:"dilutedShares"`
	AssumedDilutedShares float64 `json:"assumedDilutedShares"`
	Float                float64 `json:"float"`

	InsiderOwnership       float64 `json:"insiderOwnership"`
	InstitutionalOwnership float64 `json:"institutionalOwnership"`

	ConvertibleDebts []ConvertibleDebt `json:"convertibleDebts,omitempty"`
	Warrants         []Warrant         `json:"warrants,omitempty"`

	Options float64 `json:"options"`
	RSUs    float64 `json:"rsus"`
	PSUs    float64 `json:"psus"`

	// Equity compensation granted per year, in shares; feeds burn rate.
	AnnualEquityGrant float64 `json:"annualEquityGrant"`
}

// Company is a snapshot of a treasury company's capital structure, balance
// sheet, and holdings. Read-only to the analytics engines.
type Company struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`

	MarketCap          float64 `json:"marketCap"`
	SharesOutstanding  float64 `json:"sharesOutstanding"`
	ShareholderEquity  float64 `json:"shareholderEquity"`
	TotalDebt          float64 `json:"totalDebt"`
	Cash               float64 `json:"cash"`
	CurrentAssets      float64 `json:"currentAssets"`
	CurrentLiabilities float64 `json:"currentLiabilities"`
	Inventory          float64 `json:"inventory"`
	Revenue            float64 `json:"revenue"`
	OperatingIncome    float64 `json:"operatingIncome"`
	RetainedEarnings   float64 `json:"retainedEarnings"`
	InterestExpense    float64 `json:"interestExpense"`
	MonthlyBurn        float64 `json:"monthlyBurn"`

	// Governance / business-model heuristics on [0, 1]; higher is riskier.
	BusinessModelRisk    float64 `json:"businessModelRisk"`
	RevenueConcentration float64 `json:"revenueConcentration"`
	KeyPersonRisk        float64 `json:"keyPersonRisk"`
	RegulatoryExposure   float64 `json:"regulatoryExposure"`
	CybersecurityRisk    float64 `json:"cybersecurityRisk"`

	CapitalStructure CapitalStructure  `json:"capitalStructure"`
	Holdings         []TreasuryHolding `json:"holdings"`
}

// CryptoPrice is an externally supplied spot quote.
type CryptoPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume24h float64   `json:"volume24h"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoricalDataPoint is one per-date snapshot feeding the risk and growth
// engines.
type HistoricalDataPoint struct {
	Date          time.Time          `json:"date"`
	StockPrice    float64            `json:"stockPrice"`
	TreasuryValue float64            `json:"treasuryValue"`
	NavPerShare   float64            `json:"navPerShare"`
	CryptoPrices  map[string]float64 `json:"cryptoPrices,omitempty"`
}

// NavTimeSeriesPoint is the only record the analytics core writes. Writes are
// idempotent by (ticker, time): a same-timestamp write overwrites.
type NavTimeSeriesPoint struct {
	Ticker                    string    `json:"ticker"`
	Time                      time.Time `json:"time"`
	Nav                       float64   `json:"nav"`
	NavPerShareBasic          float64   `json:"navPerShareBasic"`
	NavPerShareDiluted        float64   `json:"navPerShareDiluted"`
	NavPerShareAssumedDiluted float64   `json:"navPerShareAssumedDiluted"`
	StockPrice                float64   `json:"stockPrice"`
	PremiumPercent            float64   `json:"premiumPercent"`
}

// PriceMap indexes crypto quotes by symbol.
type PriceMap map[string]CryptoPrice

// BuildPriceMap converts a quote slice into a symbol lookup.
func BuildPriceMap(prices []CryptoPrice) PriceMap {
	m := make(PriceMap, len(prices))
	for _, p := range prices {
		m[p.Symbol] = p
	}
	return m
}
