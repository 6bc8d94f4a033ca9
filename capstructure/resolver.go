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

// Package capstructure derives basic, diluted, and assumed-diluted share
// counts from a company's capital structure.
package capstructure

import (
	"github.com/rs/zerolog/log"
	"github.com/treasury-vault/tv-api/data"
)

// DataQualityFlag records an instrument excluded from share math because its
// terms are unusable.
type DataQualityFlag struct {
	Instrument string `json:"instrument"`
	Field      string `json:"field"`
	Reason     string `json:"reason"`
}

// Resolution is the derived share-count picture.
type Resolution struct {
	BasicShares          float64 `json:"basicShares"`
	DilutedShares        float64 `json:"dilutedShares"`
	AssumedDilutedShares float64 `json:"assumedDilutedShares"`

	ConvertibleShares float64 `json:"convertibleShares"`
	WarrantShares     float64 `json:"warrantShares"`
	CompensationShares float64 `json:"compensationShares"`

	// DilutionPercent is (assumedDiluted - basic) / basic * 100.
	DilutionPercent float64 `json:"dilutionPercent"`

	DataQuality []DataQualityFlag `json:"dataQuality,omitempty"`
}

// Resolve computes share counts under all three conventions.
//
// assumedDiluted = basic + convertible shares + warrant shares + options +
// RSUs + PSUs. A convertible with a zero conversion price is excluded and
// flagged rather than divided.
func Resolve(cs *data.CapitalStructure) *Resolution {
	res := &Resolution{
		BasicShares:   cs.BasicShares,
		DilutedShares: cs.DilutedShares,
	}
	if res.DilutedShares < res.BasicShares {
		// diluted can never be below basic; trust basic
		log.Warn().Float64("Basic", cs.BasicShares).Float64("Diluted", cs.DilutedShares).Msg("diluted share count below basic; using basic")
		res.DilutedShares = res.BasicShares
	}

	for _, debt := range cs.ConvertibleDebts {
		if !debt.Outstanding {
			continue
		}
		if debt.ConversionPrice <= 0 {
			res.DataQuality = append(res.DataQuality, DataQualityFlag{
				Instrument: debt.Name,
				Field:      "conversionPrice",
				Reason:     "conversion price must be positive for outstanding convertible",
			})
			continue
		}
		res.ConvertibleShares += debt.Principal / debt.ConversionPrice
	}

	for _, warrant := range cs.Warrants {
		if !warrant.Outstanding {
			continue
		}
		res.WarrantShares += warrant.Count * warrant.SharesPerWarrant
	}

	res.CompensationShares = cs.Options + cs.RSUs + cs.PSUs

	res.AssumedDilutedShares = res.BasicShares + res.ConvertibleShares +
		res.WarrantShares + res.CompensationShares
	if res.AssumedDilutedShares < res.DilutedShares {
		res.AssumedDilutedShares = res.DilutedShares
	}

	if res.BasicShares > 0 {
		res.DilutionPercent = (res.AssumedDilutedShares - res.BasicShares) / res.BasicShares * 100
	}

	return res
}
