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
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/treasury-vault/tv-api/data/database"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// Store reads company snapshots and writes NAV time-series points to
// PostgreSQL.
type Store struct {
}

// NewStore creates a new PostgreSQL-backed store.
func NewStore() *Store {
	return &Store{}
}

// Companies lists all tracked tickers.
func (s *Store) Companies(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "store.Companies")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT ticker FROM companies ORDER BY ticker")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		log.Error().Stack().Err(err).Msg("could not query companies")
		rollback(ctx, trx)
		return nil, err
	}

	tickers := make([]string, 0, 16)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan ticker")
			rollback(ctx, trx)
			return nil, err
		}
		tickers = append(tickers, ticker)
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}
	return tickers, nil
}

// CompanyByTicker loads a full company snapshot: balance sheet, capital
// structure, holdings, and transactions.
func (s *Store) CompanyByTicker(ctx context.Context, ticker string) (*Company, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "store.CompanyByTicker")
	defer span.End()

	ticker = strings.ToUpper(ticker)
	subLog := log.With().Str("Ticker", ticker).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	company := &Company{Ticker: ticker}
	companySQL := `SELECT name, market_cap, shares_outstanding, shareholder_equity,
		total_debt, cash, current_assets, current_liabilities, inventory, revenue,
		operating_income, retained_earnings, interest_expense, monthly_burn,
		business_model_risk, revenue_concentration, key_person_risk,
		regulatory_exposure, cybersecurity_risk,
		basic_shares, diluted_shares, assumed_diluted_shares, share_float,
		insider_ownership, institutional_ownership, options, rsus, psus,
		annual_equity_grant
		FROM companies WHERE ticker=$1`
	row := trx.QueryRow(ctx, companySQL, ticker)
	cs := &company.CapitalStructure
	err = row.Scan(&company.Name, &company.MarketCap, &company.SharesOutstanding,
		&company.ShareholderEquity, &company.TotalDebt, &company.Cash,
		&company.CurrentAssets, &company.CurrentLiabilities, &company.Inventory,
		&company.Revenue, &company.OperatingIncome, &company.RetainedEarnings,
		&company.InterestExpense, &company.MonthlyBurn, &company.BusinessModelRisk,
		&company.RevenueConcentration, &company.KeyPersonRisk,
		&company.RegulatoryExposure, &company.CybersecurityRisk,
		&cs.BasicShares, &cs.DilutedShares, &cs.AssumedDilutedShares, &cs.Float,
		&cs.InsiderOwnership, &cs.InstitutionalOwnership, &cs.Options, &cs.RSUs,
		&cs.PSUs, &cs.AnnualEquityGrant)
	if err != nil {
		rollback(ctx, trx)
		if errors.Is(err, pgx.ErrNoRows) {
			subLog.Warn().Msg("ticker not found")
			return nil, ErrCompanyNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query company")
		return nil, err
	}

	if cs.ConvertibleDebts, err = s.convertibles(ctx, trx, ticker); err != nil {
		rollback(ctx, trx)
		return nil, err
	}
	if cs.Warrants, err = s.warrants(ctx, trx, ticker); err != nil {
		rollback(ctx, trx)
		return nil, err
	}
	if company.Holdings, err = s.holdings(ctx, trx, ticker); err != nil {
		rollback(ctx, trx)
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}
	return company, nil
}

func (s *Store) convertibles(ctx context.Context, trx pgx.Tx, ticker string) ([]ConvertibleDebt, error) {
	sql := `SELECT name, principal, interest_rate, conversion_price,
		conversion_ratio, maturity, outstanding
		FROM convertible_debt WHERE ticker=$1 ORDER BY maturity`
	rows, err := trx.Query(ctx, sql, ticker)
	if err != nil {
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not query convertibles")
		return nil, err
	}

	debts := []ConvertibleDebt{}
	for rows.Next() {
		var d ConvertibleDebt
		if err := rows.Scan(&d.Name, &d.Principal, &d.InterestRate,
			&d.ConversionPrice, &d.ConversionRatio, &d.Maturity, &d.Outstanding); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan convertible")
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, nil
}

func (s *Store) warrants(ctx context.Context, trx pgx.Tx, ticker string) ([]Warrant, error) {
	sql := `SELECT name, strike, shares_per_warrant, warrant_count, expiry, outstanding
		FROM warrants WHERE ticker=$1 ORDER BY expiry`
	rows, err := trx.Query(ctx, sql, ticker)
	if err != nil {
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not query warrants")
		return nil, err
	}

	warrants := []Warrant{}
	for rows.Next() {
		var w Warrant
		if err := rows.Scan(&w.Name, &w.Strike, &w.SharesPerWarrant, &w.Count,
			&w.Expiry, &w.Outstanding); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan warrant")
			return nil, err
		}
		warrants = append(warrants, w)
	}
	return warrants, nil
}

func (s *Store) holdings(ctx context.Context, trx pgx.Tx, ticker string) ([]TreasuryHolding, error) {
	sql := `SELECT asset, amount, avg_cost_basis, total_cost
		FROM treasury_holdings WHERE ticker=$1 AND amount > 0 ORDER BY asset`
	rows, err := trx.Query(ctx, sql, ticker)
	if err != nil {
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not query holdings")
		return nil, err
	}

	holdings := []TreasuryHolding{}
	for rows.Next() {
		var h TreasuryHolding
		if err := rows.Scan(&h.Asset, &h.Amount, &h.AvgCostBasis, &h.TotalCost); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan holding")
			return nil, err
		}
		holdings = append(holdings, h)
	}

	trxSQL := `SELECT asset, event_date, kind, amount, price_per_unit, total_cost,
		funding_method, stock_price
		FROM treasury_transactions WHERE ticker=$1 ORDER BY event_date`
	rows, err = trx.Query(ctx, trxSQL, ticker)
	if err != nil {
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not query transactions")
		return nil, err
	}

	byAsset := make(map[string][]TreasuryTransaction)
	for rows.Next() {
		var t TreasuryTransaction
		if err := rows.Scan(&t.Asset, &t.Date, &t.Kind, &t.Amount, &t.PricePerUnit,
			&t.TotalCost, &t.FundingMethod, &t.StockPrice); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan transaction")
			return nil, err
		}
		byAsset[t.Asset] = append(byAsset[t.Asset], t)
	}

	for ii := range holdings {
		holdings[ii].Transactions = byAsset[holdings[ii].Asset]
	}
	return holdings, nil
}

// StockPrice returns the most recent stock quote for ticker.
func (s *Store) StockPrice(ctx context.Context, ticker string) (float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "store.StockPrice")
	defer span.End()

	ticker = strings.ToUpper(ticker)
	trx, err := database.Trx(ctx)
	if err != nil {
		return 0, err
	}

	var price float64
	sql := `SELECT price FROM stock_prices WHERE ticker=$1 ORDER BY event_time DESC LIMIT 1`
	err = trx.QueryRow(ctx, sql, ticker).Scan(&price)
	if err != nil {
		rollback(ctx, trx)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCompanyNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		log.Error().Stack().Err(err).Str("Ticker", ticker).Msg("could not query stock price")
		return 0, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit transaction")
	}
	return price, nil
}

// HistoricalData returns up to days of per-date snapshots, oldest first.
func (s *Store) HistoricalData(ctx context.Context, ticker string, days int) ([]HistoricalDataPoint, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "store.HistoricalData")
	defer span.End()

	ticker = strings.ToUpper(ticker)
	subLog := log.With().Str("Ticker", ticker).Int("Days", days).Logger()

	if days <= 0 {
		return nil, ErrInvalidTimeRange
	}

	trx, err := database.Trx(ctx)
	if err != nil {
		return nil, err
	}

	begin := time.Now().AddDate(0, 0, -days)
	sql := `SELECT event_date, stock_price, treasury_value, nav_per_share
		FROM historical_metrics WHERE ticker=$1 AND event_date >= $2
		ORDER BY event_date`
	rows, err := trx.Query(ctx, sql, ticker, begin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Stack().Err(err).Msg("could not query historical metrics")
		rollback(ctx, trx)
		return nil, err
	}

	points := make([]HistoricalDataPoint, 0, days)
	for rows.Next() {
		var p HistoricalDataPoint
		if err := rows.Scan(&p.Date, &p.StockPrice, &p.TreasuryValue, &p.NavPerShare); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not scan historical point")
			rollback(ctx, trx)
			return nil, err
		}
		points = append(points, p)
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}
	return points, nil
}

// SaveNavPoint persists one NAV time-series point. Same-timestamp writes
// overwrite, never fail.
func (s *Store) SaveNavPoint(ctx context.Context, point NavTimeSeriesPoint) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "store.SaveNavPoint")
	defer span.End()

	subLog := log.With().Str("Ticker", point.Ticker).Time("Time", point.Time).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		return err
	}

	sql := `INSERT INTO nav_history (ticker, event_time, nav, nav_per_share_basic,
		nav_per_share_diluted, nav_per_share_assumed, stock_price, premium_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, event_time) DO UPDATE SET
		nav=EXCLUDED.nav, nav_per_share_basic=EXCLUDED.nav_per_share_basic,
		nav_per_share_diluted=EXCLUDED.nav_per_share_diluted,
		nav_per_share_assumed=EXCLUDED.nav_per_share_assumed,
		stock_price=EXCLUDED.stock_price, premium_percent=EXCLUDED.premium_percent`
	_, err = trx.Exec(ctx, sql, point.Ticker, point.Time, point.Nav,
		point.NavPerShareBasic, point.NavPerShareDiluted,
		point.NavPerShareAssumedDiluted, point.StockPrice, point.PremiumPercent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database exec failed")
		subLog.Error().Stack().Err(err).Msg("could not upsert nav point")
		rollback(ctx, trx)
		return err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
		return err
	}
	return nil
}

func rollback(ctx context.Context, trx pgx.Tx) {
	if err := trx.Rollback(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not rollback transaction")
	}
}
