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

// Package pgxmockhelper builds canned pgxmock expectations for the store's
// company snapshot queries so engine and handler suites don't repeat them.
package pgxmockhelper

import (
	"time"

	"github.com/jackc/pgconn"
	"github.com/pashagolub/pgxmock"
	"github.com/treasury-vault/tv-api/data"
)

// MockCompany registers expectations for the full CompanyByTicker query chain
// against company.
func MockCompany(mock pgxmock.PgxConnIface, company *data.Company) {
	cs := company.CapitalStructure

	mock.ExpectBegin()

	companyRows := pgxmock.NewRows([]string{"name", "market_cap",
		"shares_outstanding", "shareholder_equity", "total_debt", "cash",
		"current_assets", "current_liabilities", "inventory", "revenue",
		"operating_income", "retained_earnings", "interest_expense",
		"monthly_burn", "business_model_risk", "revenue_concentration",
		"key_person_risk", "regulatory_exposure", "cybersecurity_risk",
		"basic_shares", "diluted_shares", "assumed_diluted_shares",
		"share_float", "insider_ownership", "institutional_ownership",
		"options", "rsus", "psus", "annual_equity_grant"}).
		AddRow(company.Name, company.MarketCap, company.SharesOutstanding,
			company.ShareholderEquity, company.TotalDebt, company.Cash,
			company.CurrentAssets, company.CurrentLiabilities, company.Inventory,
			company.Revenue, company.OperatingIncome, company.RetainedEarnings,
			company.InterestExpense, company.MonthlyBurn,
			company.BusinessModelRisk, company.RevenueConcentration,
			company.KeyPersonRisk, company.RegulatoryExposure,
			company.CybersecurityRisk, cs.BasicShares, cs.DilutedShares,
			cs.AssumedDilutedShares, cs.Float, cs.InsiderOwnership,
			cs.InstitutionalOwnership, cs.Options, cs.RSUs, cs.PSUs,
			cs.AnnualEquityGrant)
	mock.ExpectQuery("^SELECT name, market_cap").WithArgs(company.Ticker).
		WillReturnRows(companyRows)

	convertRows := pgxmock.NewRows([]string{"name", "principal", "interest_rate",
		"conversion_price", "conversion_ratio", "maturity", "outstanding"})
	for _, d := range cs.ConvertibleDebts {
		convertRows.AddRow(d.Name, d.Principal, d.InterestRate, d.ConversionPrice,
			d.ConversionRatio, d.Maturity, d.Outstanding)
	}
	mock.ExpectQuery("^SELECT name, principal").WithArgs(company.Ticker).
		WillReturnRows(convertRows)

	warrantRows := pgxmock.NewRows([]string{"name", "strike",
		"shares_per_warrant", "warrant_count", "expiry", "outstanding"})
	for _, w := range cs.Warrants {
		warrantRows.AddRow(w.Name, w.Strike, w.SharesPerWarrant, w.Count,
			w.Expiry, w.Outstanding)
	}
	mock.ExpectQuery("^SELECT name, strike").WithArgs(company.Ticker).
		WillReturnRows(warrantRows)

	holdingRows := pgxmock.NewRows([]string{"asset", "amount", "avg_cost_basis",
		"total_cost"})
	trxRows := pgxmock.NewRows([]string{"asset", "event_date", "kind", "amount",
		"price_per_unit", "total_cost", "funding_method", "stock_price"})
	for _, h := range company.Holdings {
		holdingRows.AddRow(h.Asset, h.Amount, h.AvgCostBasis, h.TotalCost)
		for _, t := range h.Transactions {
			trxRows.AddRow(t.Asset, t.Date, t.Kind, t.Amount, t.PricePerUnit,
				t.TotalCost, t.FundingMethod, t.StockPrice)
		}
	}
	mock.ExpectQuery("^SELECT asset, amount").WithArgs(company.Ticker).
		WillReturnRows(holdingRows)
	mock.ExpectQuery("^SELECT asset, event_date").WithArgs(company.Ticker).
		WillReturnRows(trxRows)

	mock.ExpectCommit()
}

// MockStockPrice registers expectations for a single stock quote lookup.
func MockStockPrice(mock pgxmock.PgxConnIface, ticker string, price float64) {
	mock.ExpectBegin()
	mock.ExpectQuery("^SELECT price FROM stock_prices").WithArgs(ticker).
		WillReturnRows(pgxmock.NewRows([]string{"price"}).AddRow(price))
	mock.ExpectCommit()
}

// MockHistoricalData registers expectations for the historical metrics query.
func MockHistoricalData(mock pgxmock.PgxConnIface, ticker string, points []data.HistoricalDataPoint) {
	rows := pgxmock.NewRows([]string{"event_date", "stock_price",
		"treasury_value", "nav_per_share"})
	for _, p := range points {
		rows.AddRow(p.Date, p.StockPrice, p.TreasuryValue, p.NavPerShare)
	}
	mock.ExpectBegin()
	mock.ExpectQuery("^SELECT event_date").
		WithArgs(ticker, pgxmock.AnyArg()).WillReturnRows(rows)
	mock.ExpectCommit()
}

// MockNavUpsert registers expectations for the idempotent NAV point write.
func MockNavUpsert(mock pgxmock.PgxConnIface, ticker string, eventTime time.Time) {
	mock.ExpectBegin()
	mock.ExpectExec("^INSERT INTO nav_history").
		WithArgs(ticker, eventTime, pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
	mock.ExpectCommit()
}
