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

import "errors"

var (
	// ErrCompanyNotFound is returned when a ticker has no company record.
	// Callers fail fast; this is never retried.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrPriceMissing is returned when a held asset has no current quote.
	// Valuation must not silently treat the asset as worthless.
	ErrPriceMissing = errors.New("no price for held asset")

	// ErrNoHoldings is returned when a company has an empty treasury.
	ErrNoHoldings = errors.New("company has no treasury holdings")

	// ErrInvalidTimeRange is returned when end precedes begin.
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrMalformedInput is returned for requests that cannot be parsed.
	ErrMalformedInput = errors.New("malformed input")
)
