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

package analytics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/treasury-vault/tv-api/dilution"
	"github.com/treasury-vault/tv-api/nav"
	"github.com/treasury-vault/tv-api/observability/opentelemetry"
	"github.com/treasury-vault/tv-api/risk"
)

// ScenarioResult is the base case plus each scenario's NAV projection, any
// dilution what-if outcomes, and the derived recommendations.
type ScenarioResult struct {
	BaseCase *CalculatedMetrics `json:"baseCase"`

	Scenarios []nav.Projection        `json:"scenarios"`
	WhatIfs   []dilution.WhatIfResult `json:"whatIfs,omitempty"`

	Recommendations []string `json:"recommendations,omitempty"`
}

// ScenarioAnalysis projects NAV under the named price scenarios, evaluates any
// dilution what-ifs against the current capital structure, and derives
// plain-language recommendations from the base case and the worst outcome.
func (service *Service) ScenarioAnalysis(ctx context.Context, ticker string, scenarios []nav.PriceScenario, whatIfs []dilution.WhatIf) (*ScenarioResult, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "analytics.ScenarioAnalysis")
	defer span.End()

	snap, err := service.fetchSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}

	base, err := service.ComprehensiveAnalytics(ctx, ticker)
	if err != nil {
		return nil, err
	}

	result := &ScenarioResult{
		BaseCase:  base,
		Scenarios: nav.Project(base.Nav, snap.valuation, scenarios, &service.policy.Nav),
	}
	if len(whatIfs) > 0 {
		result.WhatIfs = dilution.RunWhatIf(snap.company, snap.res, whatIfs, base.Nav.Nav, snap.stockPrice, &service.policy.Dilution)
	}
	result.Recommendations = recommendations(base, result.Scenarios)

	return result, nil
}

// recommendations derives threshold-triggered callouts; advisory text, not
// investment advice.
func recommendations(base *CalculatedMetrics, projections []nav.Projection) []string {
	out := []string{}

	premium := base.Nav.AssumedDiluted.PremiumPercent
	switch {
	case premium > 25:
		out = append(out, fmt.Sprintf("stock trades %.0f%% above assumed-diluted NAV; treasury exposure is cheaper via the underlying assets", premium))
	case premium < -25:
		out = append(out, fmt.Sprintf("stock trades %.0f%% below assumed-diluted NAV; a deep discount to treasury value", -premium))
	}

	if base.Risk.Concentration.Band == risk.BandCritical {
		out = append(out, fmt.Sprintf("treasury is concentrated in %s; a single-asset drawdown moves the whole NAV", base.Risk.Concentration.LargestAsset))
	}

	if base.Dilution.ExpectedDilutionPercent > 20 {
		out = append(out, fmt.Sprintf("expected dilution of %.1f%% at the current price; watch convertible conversion levels", base.Dilution.ExpectedDilutionPercent))
	}

	var worst *nav.Projection
	for idx := range projections {
		if worst == nil || projections[idx].NavPerShare < worst.NavPerShare {
			worst = &projections[idx]
		}
	}
	if worst != nil && base.Nav.AssumedDiluted.NavPerShare > 0 {
		change := (worst.NavPerShare - base.Nav.AssumedDiluted.NavPerShare) / base.Nav.AssumedDiluted.NavPerShare * 100
		if change < -30 {
			out = append(out, fmt.Sprintf("worst scenario %q cuts NAV per share %.0f%%; size positions for that outcome", worst.Name, -change))
		}
	}

	return out
}
