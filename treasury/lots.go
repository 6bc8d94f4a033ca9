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

package treasury

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/treasury-vault/tv-api/data"
	"github.com/treasury-vault/tv-api/policy"
)

// cost basis methods
const (
	MethodFIFO    = "FIFO"
	MethodLIFO    = "LIFO"
	MethodAverage = "AVERAGE"
)

// Lot is an open acquisition lot.
type Lot struct {
	Date         time.Time `json:"date"`
	Amount       float64   `json:"amount"`
	PricePerUnit float64   `json:"pricePerUnit"`
	TotalCost    float64   `json:"totalCost"`

	// LongTerm is true when the lot has been held past the long-term
	// threshold as of the report date.
	LongTerm bool `json:"longTerm"`
}

// LotReport is the open-lot picture for one asset under a cost-basis method,
// with a simplified tax estimate for a full liquidation at the current price.
type LotReport struct {
	Asset  string `json:"asset"`
	Method string `json:"method"`
	Lots   []Lot  `json:"lots"`

	OpenAmount      float64 `json:"openAmount"`
	OpenCost        float64 `json:"openCost"`
	LongTermAmount  float64 `json:"longTermAmount"`
	ShortTermAmount float64 `json:"shortTermAmount"`
	LongTermGain    float64 `json:"longTermGain"`
	ShortTermGain   float64 `json:"shortTermGain"`

	// EstimatedTax applies the policy's fixed long/short-term rates to
	// positive gains only.
	EstimatedTax float64 `json:"estimatedTax"`
}

// TrackLots replays an asset's transactions under the given cost-basis method
// and reports the open lots as of asOf, marked at currentPrice.
//
// Purchases open lots; sales consume them FIFO (oldest first), LIFO (newest
// first), or pro-rata for Average. Stake and unstake events do not affect
// basis.
func TrackLots(asset string, transactions []data.TreasuryTransaction, method string, currentPrice float64, asOf time.Time, pol *policy.YieldPolicy) *LotReport {
	report := &LotReport{
		Asset:  asset,
		Method: method,
	}

	lots := make([]Lot, 0, len(transactions))
	for _, trx := range transactions {
		if trx.Asset != asset || trx.Date.After(asOf) {
			continue
		}
		switch trx.Kind {
		case data.PurchaseTransaction:
			lots = append(lots, Lot{
				Date:         trx.Date,
				Amount:       trx.Amount,
				PricePerUnit: trx.PricePerUnit,
				TotalCost:    trx.TotalCost,
			})
		case data.SaleTransaction:
			lots = consumeLots(lots, trx.Amount, method)
		}
	}

	ltcDate := asOf.AddDate(0, 0, -pol.LongTermDays)
	for _, lot := range lots {
		lot.LongTerm = lot.Date.Before(ltcDate)
		gain := lot.Amount*currentPrice - lot.TotalCost

		report.OpenAmount += lot.Amount
		report.OpenCost += lot.TotalCost
		if lot.LongTerm {
			report.LongTermAmount += lot.Amount
			report.LongTermGain += gain
		} else {
			report.ShortTermAmount += lot.Amount
			report.ShortTermGain += gain
		}
		report.Lots = append(report.Lots, lot)
	}

	if report.LongTermGain > 0 {
		report.EstimatedTax += report.LongTermGain * pol.LongTermTaxRate
	}
	if report.ShortTermGain > 0 {
		report.EstimatedTax += report.ShortTermGain * pol.ShortTermTaxRate
	}

	return report
}

// consumeLots removes amount from the open lots under the given method.
func consumeLots(lots []Lot, amount float64, method string) []Lot {
	switch method {
	case MethodLIFO:
		for len(lots) > 0 && amount > 0 {
			last := len(lots) - 1
			if lots[last].Amount > amount {
				frac := amount / lots[last].Amount
				lots[last].TotalCost *= 1 - frac
				lots[last].Amount -= amount
				amount = 0
			} else {
				amount -= lots[last].Amount
				lots = lots[:last]
			}
		}
	case MethodAverage:
		var total float64
		for _, lot := range lots {
			total += lot.Amount
		}
		if total <= 0 {
			break
		}
		if amount >= total {
			amount = total
		}
		frac := amount / total
		kept := lots[:0]
		for _, lot := range lots {
			lot.Amount *= 1 - frac
			lot.TotalCost *= 1 - frac
			if lot.Amount > 1e-9 {
				kept = append(kept, lot)
			}
		}
		lots = kept
		amount = 0
	default: // FIFO
		for len(lots) > 0 && amount > 0 {
			if lots[0].Amount > amount {
				frac := amount / lots[0].Amount
				lots[0].TotalCost *= 1 - frac
				lots[0].Amount -= amount
				amount = 0
			} else {
				amount -= lots[0].Amount
				lots = lots[1:]
			}
		}
	}

	if amount > 1e-5 {
		// sale larger than recorded acquisitions; transaction history is
		// out-of-sync with the holding
		log.Warn().Float64("UnmatchedAmount", amount).Msg("sale exceeds open lots")
	}
	return lots
}
